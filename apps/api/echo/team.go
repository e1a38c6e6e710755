package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/waynerigley/migslist/core"
	"github.com/waynerigley/migslist/core/user"
)

type teamApi struct {
	deps ServerDeps
}

func registerTeamAPI(g *echo.Group, sess, gate echo.MiddlewareFunc, deps ServerDeps) {
	api := teamApi{deps: deps}

	tg := g.Group("/team", sess, gate)
	tg.GET("", api.query)
	tg.POST("", api.create)
	tg.PUT("/:id", api.update)
	tg.DELETE("/:id", api.delete)
}

func (api *teamApi) query(ctx echo.Context) error {
	sub, err := getContextSubject(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context subject")
	}
	unionID, err := effectiveUnionID(ctx, sub)
	if err != nil {
		return err
	}
	users, err := api.deps.UserSvc.QueryByUnion(ctx.Request().Context(), unionID)
	if err != nil {
		return errors.Wrap(err, "querying team")
	}
	return ctx.JSON(http.StatusOK, users)
}

// create adds a team member with an emailed temporary password. Presidents
// only; secretaries can see the team but not change it.
func (api *teamApi) create(ctx echo.Context) error {
	sub, err := getContextSubject(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context subject")
	}
	unionID, err := effectiveUnionID(ctx, sub)
	if err != nil {
		return err
	}
	if !sub.CanManageTeam(unionID) {
		return errHttpForbidden
	}

	var data user.NewTeamMember
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewTeamMember")
	}
	if err = data.Validate(api.deps.Validate, api.deps.UserSvc); err != nil {
		return err
	}

	usr, _, err := api.deps.UserSvc.CreateWithTempPassword(
		ctx.Request().Context(), data.FirstName, data.LastName, data.Email, data.Role, unionID,
	)
	if err != nil {
		return errors.Wrap(err, "creating team member")
	}
	return ctx.JSON(http.StatusCreated, usr)
}

func (api *teamApi) update(ctx echo.Context) error {
	target, sub, err := api.getTeamMember(ctx)
	if err != nil {
		return err
	}
	if !sub.CanManageTeam(target.UnionID) {
		return errHttpForbidden
	}

	var data user.UpdateUser
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateUser")
	}
	// team edits cannot promote beyond the union or move users across unions
	if data.Role == user.RoleSuperAdmin {
		return errHttpForbidden
	}
	data.UnionID = target.UnionID
	data.IsActive = nil
	data.Password, data.PasswordConfirm = "", ""
	if err = data.Validate(target, api.deps.Validate, api.deps.UserSvc); err != nil {
		return err
	}

	usr, err := api.deps.UserSvc.Update(ctx.Request().Context(), target.ID, data)
	if err != nil {
		return errors.Wrap(err, "updating team member")
	}
	return ctx.JSON(http.StatusOK, usr)
}

func (api *teamApi) delete(ctx echo.Context) error {
	target, sub, err := api.getTeamMember(ctx)
	if err != nil {
		return err
	}
	if !sub.CanManageTeam(target.UnionID) {
		return errHttpForbidden
	}
	if target.ID == sub.UserID {
		return core.NewValidationError(errors.New("you cannot remove your own account"))
	}
	if err = api.deps.UserSvc.Delete(ctx.Request().Context(), target.ID); err != nil {
		return errors.Wrap(err, "deleting team member")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// getTeamMember loads the user from the :id param; users outside the
// caller's union read as not found.
func (api *teamApi) getTeamMember(ctx echo.Context) (user.User, user.Subject, error) {
	sub, err := getContextSubject(ctx)
	if err != nil {
		return user.User{}, user.Subject{}, errors.Wrap(err, "getting context subject")
	}
	target, err := api.deps.UserSvc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == user.ErrNotFound {
			return user.User{}, user.Subject{}, errHttpNotFound
		}
		return user.User{}, user.Subject{}, errors.Wrap(err, "getting user")
	}
	if target.UnionID == "" || !sub.CanManageUnion(target.UnionID) {
		return user.User{}, user.Subject{}, errHttpNotFound
	}
	return target, sub, nil
}
