package echoapi

import (
	"context"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/waynerigley/migslist/core/member"
	"github.com/waynerigley/migslist/core/user"
	"github.com/waynerigley/migslist/storage/filestore"
)

type memberApi struct {
	deps ServerDeps
}

func registerMemberAPI(g *echo.Group, sess, gate echo.MiddlewareFunc, deps ServerDeps) {
	api := memberApi{deps: deps}

	bg := g.Group("/buckets/:id/members", sess, gate)
	bg.GET("", api.queryByBucket)
	bg.POST("", api.create)
	bg.GET("/good-standing", api.queryGoodStanding)
	bg.GET("/retired", api.queryRetired)

	mg := g.Group("/members", sess, gate)
	mg.GET("/search", api.search)
	mg.GET("/:id", api.get)
	mg.PUT("/:id", api.update)
	mg.DELETE("/:id", api.delete)
	mg.POST("/:id/retire", api.retire)
	mg.POST("/:id/restore", api.restore)
	mg.POST("/:id/pdf", api.uploadPDF)
	mg.GET("/:id/pdf", api.downloadPDF)
	mg.DELETE("/:id/pdf", api.removePDF)
}

// Bucket-scoped listings

func (api *memberApi) queryByBucket(ctx echo.Context) error {
	return api.listForBucket(ctx, api.deps.MemberSvc.QueryByBucket)
}

func (api *memberApi) queryGoodStanding(ctx echo.Context) error {
	return api.listForBucket(ctx, api.deps.MemberSvc.QueryGoodStanding)
}

func (api *memberApi) queryRetired(ctx echo.Context) error {
	return api.listForBucket(ctx, api.deps.MemberSvc.QueryRetired)
}

func (api *memberApi) create(ctx echo.Context) error {
	b, _, err := bucketForSubject(ctx, api.deps, false)
	if err != nil {
		return err
	}

	var data member.NewMember
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewMember")
	}
	if err = data.Validate(api.deps.Validate); err != nil {
		return err
	}

	m, err := api.deps.MemberSvc.Create(ctx.Request().Context(), b.ID, data)
	if err != nil {
		return errors.Wrap(err, "creating member")
	}
	return ctx.JSON(http.StatusCreated, m)
}

// Member CRUD

func (api *memberApi) get(ctx echo.Context) error {
	m, _, err := api.getMember(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, m)
}

func (api *memberApi) update(ctx echo.Context) error {
	m, _, err := api.getMember(ctx)
	if err != nil {
		return err
	}

	var data member.UpdateMember
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateMember")
	}
	if err = data.Validate(m, api.deps.Validate); err != nil {
		return err
	}

	m, err = api.deps.MemberSvc.Update(ctx.Request().Context(), m.ID, data)
	if err != nil {
		return errors.Wrap(err, "updating member")
	}
	return ctx.JSON(http.StatusOK, m)
}

func (api *memberApi) delete(ctx echo.Context) error {
	m, _, err := api.getMember(ctx)
	if err != nil {
		return err
	}
	if err = api.deps.MemberSvc.Delete(ctx.Request().Context(), m.ID); err != nil {
		return errors.Wrap(err, "deleting member")
	}
	if err = api.deps.Files.Remove(m.PDFFilename); err != nil {
		ctx.Logger().Errorf("%+v", errors.Wrap(err, "removing member PDF"))
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Retirement

type RetireRequest struct {
	Reason string `json:"reason"`
}

func (api *memberApi) retire(ctx echo.Context) error {
	m, _, err := api.getMember(ctx)
	if err != nil {
		return err
	}

	var data RetireRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to RetireRequest")
	}

	m, err = api.deps.MemberSvc.Retire(ctx.Request().Context(), m.ID, data.Reason)
	if err != nil {
		return errors.Wrap(err, "retiring member")
	}
	return ctx.JSON(http.StatusOK, m)
}

func (api *memberApi) restore(ctx echo.Context) error {
	m, _, err := api.getMember(ctx)
	if err != nil {
		return err
	}
	m, err = api.deps.MemberSvc.Restore(ctx.Request().Context(), m.ID)
	if err != nil {
		return errors.Wrap(err, "restoring member")
	}
	return ctx.JSON(http.StatusOK, m)
}

// Signed membership PDF; having one on file is what good standing means.

func (api *memberApi) uploadPDF(ctx echo.Context) error {
	m, _, err := api.getMember(ctx)
	if err != nil {
		return err
	}
	filename, err := saveUpload(ctx, api.deps.Files, "file", filestore.KindMemberPDF)
	if err != nil {
		return err
	}

	prev := m.PDFFilename
	if m, err = api.deps.MemberSvc.SetPDF(ctx.Request().Context(), m.ID, filename); err != nil {
		return errors.Wrap(err, "setting member PDF")
	}
	if err = api.deps.Files.Remove(prev); err != nil {
		ctx.Logger().Errorf("%+v", errors.Wrap(err, "removing previous member PDF"))
	}
	return ctx.JSON(http.StatusOK, m)
}

func (api *memberApi) downloadPDF(ctx echo.Context) error {
	m, _, err := api.getMember(ctx)
	if err != nil {
		return err
	}
	return streamStoredFile(ctx, api.deps.Files, m.PDFFilename, fmt.Sprintf("%s - Membership.pdf", m.FullName()))
}

func (api *memberApi) removePDF(ctx echo.Context) error {
	m, _, err := api.getMember(ctx)
	if err != nil {
		return err
	}
	prev := m.PDFFilename
	if m, err = api.deps.MemberSvc.RemovePDF(ctx.Request().Context(), m.ID); err != nil {
		return errors.Wrap(err, "removing member PDF")
	}
	if err = api.deps.Files.Remove(prev); err != nil {
		ctx.Logger().Errorf("%+v", errors.Wrap(err, "removing stored member PDF"))
	}
	return ctx.JSON(http.StatusOK, m)
}

// Search

func (api *memberApi) search(ctx echo.Context) error {
	sub, err := getContextSubject(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context subject")
	}
	unionID, err := effectiveUnionID(ctx, sub)
	if err != nil {
		return err
	}
	members, err := api.deps.MemberSvc.Search(ctx.Request().Context(), unionID, ctx.QueryParam("q"))
	if err != nil {
		return errors.Wrap(err, "searching members")
	}
	return ctx.JSON(http.StatusOK, members)
}

// Helpers

func (api *memberApi) listForBucket(
	ctx echo.Context,
	query func(reqCtx context.Context, bucketID string) ([]member.Member, error),
) error {
	b, _, err := bucketForSubject(ctx, api.deps, false)
	if err != nil {
		return err
	}
	members, err := query(ctx.Request().Context(), b.ID)
	if err != nil {
		return errors.Wrap(err, "querying members")
	}
	return ctx.JSON(http.StatusOK, members)
}

// getMember loads the member from the :id param and enforces tenancy through
// its bucket's union; cross-union members read as not found.
func (api *memberApi) getMember(ctx echo.Context) (member.Member, user.Subject, error) {
	sub, err := getContextSubject(ctx)
	if err != nil {
		return member.Member{}, user.Subject{}, errors.Wrap(err, "getting context subject")
	}
	m, err := api.deps.MemberSvc.Get(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == member.ErrNotFound {
			return member.Member{}, user.Subject{}, errHttpNotFound
		}
		return member.Member{}, user.Subject{}, errors.Wrap(err, "getting member")
	}
	if !sub.CanManageUnion(m.UnionID) {
		return member.Member{}, user.Subject{}, errHttpNotFound
	}
	return m, sub, nil
}
