package echoapi

import (
	"context"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/waynerigley/migslist/core"
	"github.com/waynerigley/migslist/core/signup"
	"github.com/waynerigley/migslist/core/union"
	"github.com/waynerigley/migslist/core/user"
)

type adminApi struct {
	deps ServerDeps
}

func registerAdminAPI(g *echo.Group, sess echo.MiddlewareFunc, deps ServerDeps) {
	api := adminApi{deps: deps}

	ag := g.Group("/admin", sess, superAdminMiddleware())

	// unions
	ag.GET("/unions", api.queryUnions)
	ag.POST("/unions", api.createUnion)
	ag.GET("/unions/trials", api.queryTrials)
	ag.GET("/unions/:id", api.getUnion)
	ag.PUT("/unions/:id", api.updateUnion)
	ag.DELETE("/unions/:id", api.deleteUnion)
	ag.GET("/unions/:id/stats", api.unionStats)
	ag.POST("/unions/:id/activate", api.activateUnion)
	ag.POST("/unions/:id/deactivate", api.deactivateUnion)
	ag.POST("/unions/:id/start-trial", api.startTrial)
	ag.POST("/unions/:id/extend", api.extendSubscription)
	ag.POST("/unions/:id/grant-free-year", api.grantFreeYear)

	// users
	ag.GET("/users", api.queryUsers)
	ag.POST("/users", api.createUser)
	ag.PUT("/users/:id", api.updateUser)
	ag.DELETE("/users/:id", api.deleteUser)
	ag.POST("/users/:id/reset-password", api.resetUserPassword)

	// signup requests
	ag.GET("/signups", api.querySignups)
	ag.GET("/signups/pending", api.queryPendingSignups)
	ag.GET("/signups/:id", api.getSignup)
	ag.POST("/signups/:id/approve", api.approveSignup)
	ag.POST("/signups/:id/reject", api.rejectSignup)
	ag.DELETE("/signups/:id", api.deleteSignup)
}

// Unions

func (api *adminApi) queryUnions(ctx echo.Context) error {
	var (
		unions []union.Union
		err    error
	)
	switch ctx.QueryParam("status") {
	case "":
		unions, err = api.deps.UnionSvc.QueryAll(ctx.Request().Context())
	case union.StatusActive:
		unions, err = api.deps.UnionSvc.QueryActive(ctx.Request().Context())
	case union.StatusPending:
		unions, err = api.deps.UnionSvc.QueryPending(ctx.Request().Context())
	default:
		return core.NewValidationError(
			errors.New("invalid status"), core.FieldError{Field: "status", Error: "must be active or pending"})
	}
	if err != nil {
		return errors.Wrap(err, "querying unions")
	}
	return ctx.JSON(http.StatusOK, unions)
}

func (api *adminApi) createUnion(ctx echo.Context) error {
	var data union.NewUnion
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewUnion")
	}
	if err := data.Validate(api.deps.Validate); err != nil {
		return err
	}

	un, err := api.deps.UnionSvc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating union")
	}
	return ctx.JSON(http.StatusCreated, un)
}

func (api *adminApi) queryTrials(ctx echo.Context) error {
	trials, err := api.deps.UnionSvc.QueryTrials(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying trials")
	}
	return ctx.JSON(http.StatusOK, trials)
}

func (api *adminApi) getUnion(ctx echo.Context) error {
	un, err := api.deps.UnionSvc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == union.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "getting union")
	}
	return ctx.JSON(http.StatusOK, un)
}

func (api *adminApi) updateUnion(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()
	un, err := api.deps.UnionSvc.GetByID(reqCtx, ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == union.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "getting union")
	}

	var data union.UpdateUnion
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateUnion")
	}
	if err = data.Validate(un, api.deps.Validate); err != nil {
		return err
	}

	if un, err = api.deps.UnionSvc.Update(reqCtx, un.ID, data); err != nil {
		return errors.Wrap(err, "updating union")
	}
	return ctx.JSON(http.StatusOK, un)
}

func (api *adminApi) deleteUnion(ctx echo.Context) error {
	if err := api.deps.UnionSvc.Delete(ctx.Request().Context(), ctx.Param("id")); err != nil {
		if errors.Cause(err) == union.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "deleting union")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *adminApi) unionStats(ctx echo.Context) error {
	stats, err := api.deps.UnionSvc.GetStats(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == union.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "getting union stats")
	}
	return ctx.JSON(http.StatusOK, stats)
}

// Subscription lifecycle

type ActivateUnionRequest struct {
	PaymentReference string `json:"payment_reference"`
}

func (api *adminApi) activateUnion(ctx echo.Context) error {
	var data ActivateUnionRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ActivateUnionRequest")
	}
	return api.transitionUnion(ctx, func(reqCtx context.Context, id string) (union.Union, error) {
		return api.deps.UnionSvc.Activate(reqCtx, id, data.PaymentReference)
	})
}

func (api *adminApi) deactivateUnion(ctx echo.Context) error {
	return api.transitionUnion(ctx, api.deps.UnionSvc.Deactivate)
}

func (api *adminApi) startTrial(ctx echo.Context) error {
	return api.transitionUnion(ctx, api.deps.UnionSvc.StartTrial)
}

type ExtendSubscriptionRequest struct {
	Days int `json:"days" validate:"required,gt=0"`
}

func (er *ExtendSubscriptionRequest) Validate(validate *validator.Validate) error {
	return validate.Struct(er)
}

func (api *adminApi) extendSubscription(ctx echo.Context) error {
	var data ExtendSubscriptionRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ExtendSubscriptionRequest")
	}
	if err := data.Validate(api.deps.Validate); err != nil {
		return err
	}
	return api.transitionUnion(ctx, func(reqCtx context.Context, id string) (union.Union, error) {
		return api.deps.UnionSvc.ExtendSubscription(reqCtx, id, data.Days)
	})
}

func (api *adminApi) grantFreeYear(ctx echo.Context) error {
	return api.transitionUnion(ctx, api.deps.UnionSvc.GrantFreeYear)
}

func (api *adminApi) transitionUnion(
	ctx echo.Context,
	transition func(reqCtx context.Context, id string) (union.Union, error),
) error {
	un, err := transition(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == union.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "transitioning union")
	}
	return ctx.JSON(http.StatusOK, un)
}

// Users

func (api *adminApi) queryUsers(ctx echo.Context) error {
	var (
		users []user.User
		err   error
	)
	if unionID := ctx.QueryParam("union_id"); unionID != "" {
		users, err = api.deps.UserSvc.QueryByUnion(ctx.Request().Context(), unionID)
	} else {
		users, err = api.deps.UserSvc.QueryAll(ctx.Request().Context())
	}
	if err != nil {
		return errors.Wrap(err, "querying users")
	}
	return ctx.JSON(http.StatusOK, users)
}

func (api *adminApi) createUser(ctx echo.Context) error {
	var data user.NewUser
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewUser")
	}
	if err := data.Validate(api.deps.Validate, api.deps.UserSvc); err != nil {
		return err
	}

	usr, err := api.deps.UserSvc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating user")
	}
	return ctx.JSON(http.StatusCreated, usr)
}

func (api *adminApi) updateUser(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()
	usr, err := api.deps.UserSvc.GetByID(reqCtx, ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == user.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "getting user")
	}

	var data user.UpdateUser
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateUser")
	}
	if err = data.Validate(usr, api.deps.Validate, api.deps.UserSvc); err != nil {
		return err
	}

	if usr, err = api.deps.UserSvc.Update(reqCtx, usr.ID, data); err != nil {
		return errors.Wrap(err, "updating user")
	}
	return ctx.JSON(http.StatusOK, usr)
}

func (api *adminApi) deleteUser(ctx echo.Context) error {
	sub, err := getContextSubject(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context subject")
	}
	if ctx.Param("id") == sub.UserID {
		return core.NewValidationError(errors.New("you cannot remove your own account"))
	}
	if err = api.deps.UserSvc.Delete(ctx.Request().Context(), ctx.Param("id")); err != nil {
		if errors.Cause(err) == user.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "deleting user")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// resetUserPassword emails the user a password reset link on their behalf.
func (api *adminApi) resetUserPassword(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()
	usr, err := api.deps.UserSvc.GetByID(reqCtx, ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == user.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "getting user")
	}
	if err = api.deps.UserSvc.RequestPasswordReset(reqCtx, usr.Email); err != nil {
		return errors.Wrap(err, "requesting password reset")
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: "Password reset instructions sent to " + usr.Email + "."})
}

// Signup requests

func (api *adminApi) querySignups(ctx echo.Context) error {
	reqs, err := api.deps.SignupSvc.QueryAll(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying signup requests")
	}
	return ctx.JSON(http.StatusOK, reqs)
}

func (api *adminApi) queryPendingSignups(ctx echo.Context) error {
	reqs, err := api.deps.SignupSvc.QueryPending(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying pending signup requests")
	}
	return ctx.JSON(http.StatusOK, reqs)
}

func (api *adminApi) getSignup(ctx echo.Context) error {
	req, err := api.deps.SignupSvc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == signup.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "getting signup request")
	}
	return ctx.JSON(http.StatusOK, req)
}

// ApprovedSignup pairs the processed request with the union it created.
type ApprovedSignup struct {
	Request signup.Request `json:"request"`
	Union   union.Union    `json:"union"`
}

func (api *adminApi) approveSignup(ctx echo.Context) error {
	req, un, err := api.deps.SignupSvc.Approve(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		switch errors.Cause(err) {
		case signup.ErrNotFound:
			return errHttpNotFound
		case signup.ErrAlreadyProcessed:
			return core.NewValidationError(signup.ErrAlreadyProcessed)
		}
		return errors.Wrap(err, "approving signup request")
	}
	return ctx.JSON(http.StatusOK, ApprovedSignup{Request: req, Union: un})
}

type RejectSignupRequest struct {
	Notes string `json:"notes"`
}

func (api *adminApi) rejectSignup(ctx echo.Context) error {
	var data RejectSignupRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to RejectSignupRequest")
	}

	req, err := api.deps.SignupSvc.Reject(ctx.Request().Context(), ctx.Param("id"), data.Notes)
	if err != nil {
		switch errors.Cause(err) {
		case signup.ErrNotFound:
			return errHttpNotFound
		case signup.ErrAlreadyProcessed:
			return core.NewValidationError(signup.ErrAlreadyProcessed)
		}
		return errors.Wrap(err, "rejecting signup request")
	}
	return ctx.JSON(http.StatusOK, req)
}

func (api *adminApi) deleteSignup(ctx echo.Context) error {
	if err := api.deps.SignupSvc.Delete(ctx.Request().Context(), ctx.Param("id")); err != nil {
		if errors.Cause(err) == signup.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "deleting signup request")
	}
	return ctx.NoContent(http.StatusNoContent)
}
