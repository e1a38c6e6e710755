package echoapi

import (
	"fmt"
	"net/http"
	"net/mail"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/waynerigley/migslist/core"
	"github.com/waynerigley/migslist/core/bucket"
	"github.com/waynerigley/migslist/core/member"
	"github.com/waynerigley/migslist/core/user"
	"github.com/waynerigley/migslist/storage/filestore"
)

type bucketApi struct {
	deps ServerDeps
}

func registerBucketAPI(g *echo.Group, sess, gate echo.MiddlewareFunc, deps ServerDeps) {
	api := bucketApi{deps: deps}

	bg := g.Group("/buckets", sess, gate)

	bg.GET("", api.query)
	bg.POST("", api.create)
	bg.GET("/deleted", api.queryDeleted)
	bg.GET("/import-template", api.importTemplate)
	bg.GET("/:id", api.get)
	bg.PUT("/:id", api.update)
	bg.DELETE("/:id", api.softDelete)
	bg.DELETE("/:id/permanent", api.hardDelete)
	bg.POST("/:id/restore", api.restore)
	bg.POST("/:id/master-pdf", api.uploadMasterPDF)
	bg.GET("/:id/master-pdf", api.downloadMasterPDF)
	bg.DELETE("/:id/master-pdf", api.removeMasterPDF)
	bg.POST("/:id/email-members", api.emailMembers)
	bg.POST("/:id/import", api.importMembers)
}

// Handlers

func (api *bucketApi) query(ctx echo.Context) error {
	sub, err := getContextSubject(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context subject")
	}
	unionID, err := effectiveUnionID(ctx, sub)
	if err != nil {
		return err
	}
	buckets, err := api.deps.BucketSvc.QueryByUnion(ctx.Request().Context(), unionID)
	if err != nil {
		return errors.Wrap(err, "querying buckets")
	}
	return ctx.JSON(http.StatusOK, buckets)
}

func (api *bucketApi) queryDeleted(ctx echo.Context) error {
	sub, err := getContextSubject(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context subject")
	}
	unionID, err := effectiveUnionID(ctx, sub)
	if err != nil {
		return err
	}
	buckets, err := api.deps.BucketSvc.QueryDeleted(ctx.Request().Context(), unionID)
	if err != nil {
		return errors.Wrap(err, "querying deleted buckets")
	}
	return ctx.JSON(http.StatusOK, buckets)
}

func (api *bucketApi) create(ctx echo.Context) error {
	sub, err := getContextSubject(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context subject")
	}
	unionID, err := effectiveUnionID(ctx, sub)
	if err != nil {
		return err
	}
	if !sub.CanManageUnion(unionID) {
		return errHttpForbidden
	}

	var data bucket.NewBucket
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewBucket")
	}
	if err = data.Validate(api.deps.Validate); err != nil {
		return err
	}

	b, err := api.deps.BucketSvc.Create(ctx.Request().Context(), unionID, data)
	if err != nil {
		return errors.Wrap(err, "creating bucket")
	}
	return ctx.JSON(http.StatusCreated, b)
}

func (api *bucketApi) get(ctx echo.Context) error {
	b, _, err := api.getBucket(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, b)
}

func (api *bucketApi) update(ctx echo.Context) error {
	b, _, err := api.getBucket(ctx)
	if err != nil {
		return err
	}

	var data bucket.UpdateBucket
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateBucket")
	}
	if err = data.Validate(b, api.deps.Validate); err != nil {
		return err
	}

	b, err = api.deps.BucketSvc.Update(ctx.Request().Context(), b.ID, data)
	if err != nil {
		return errors.Wrap(err, "updating bucket")
	}
	return ctx.JSON(http.StatusOK, b)
}

func (api *bucketApi) softDelete(ctx echo.Context) error {
	b, sub, err := api.getBucket(ctx)
	if err != nil {
		return err
	}
	if !sub.CanDeleteBuckets(b.UnionID) {
		return errHttpForbidden
	}
	if err = api.deps.BucketSvc.SoftDelete(ctx.Request().Context(), b.ID); err != nil {
		return errors.Wrap(err, "deleting bucket")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *bucketApi) hardDelete(ctx echo.Context) error {
	b, sub, err := api.getAnyBucket(ctx)
	if err != nil {
		return err
	}
	if !sub.CanDeleteBuckets(b.UnionID) {
		return errHttpForbidden
	}
	if err = api.deps.BucketSvc.HardDelete(ctx.Request().Context(), b.ID); err != nil {
		return errors.Wrap(err, "deleting bucket permanently")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *bucketApi) restore(ctx echo.Context) error {
	b, sub, err := api.getAnyBucket(ctx)
	if err != nil {
		return err
	}
	if !sub.CanDeleteBuckets(b.UnionID) {
		return errHttpForbidden
	}
	b, err = api.deps.BucketSvc.Restore(ctx.Request().Context(), b.ID)
	if err != nil {
		if errors.Cause(err) == bucket.ErrNumberExists {
			return core.NewValidationError(err, core.FieldError{Field: "number", Error: err.Error()})
		}
		return errors.Wrap(err, "restoring bucket")
	}
	return ctx.JSON(http.StatusOK, b)
}

// Master agreement PDF

func (api *bucketApi) uploadMasterPDF(ctx echo.Context) error {
	b, _, err := api.getBucket(ctx)
	if err != nil {
		return err
	}
	filename, err := saveUpload(ctx, api.deps.Files, "file", filestore.KindMasterPDF)
	if err != nil {
		return err
	}

	prev := b.MasterPDFFilename
	if b, err = api.deps.BucketSvc.SetMasterPDF(ctx.Request().Context(), b.ID, filename); err != nil {
		return errors.Wrap(err, "setting master PDF")
	}
	if err = api.deps.Files.Remove(prev); err != nil {
		ctx.Logger().Errorf("%+v", errors.Wrap(err, "removing previous master PDF"))
	}
	return ctx.JSON(http.StatusOK, b)
}

func (api *bucketApi) downloadMasterPDF(ctx echo.Context) error {
	b, _, err := api.getBucket(ctx)
	if err != nil {
		return err
	}
	return streamStoredFile(ctx, api.deps.Files, b.MasterPDFFilename, fmt.Sprintf("%s - Master Agreement.pdf", b.Name))
}

func (api *bucketApi) removeMasterPDF(ctx echo.Context) error {
	b, _, err := api.getBucket(ctx)
	if err != nil {
		return err
	}
	prev := b.MasterPDFFilename
	if b, err = api.deps.BucketSvc.RemoveMasterPDF(ctx.Request().Context(), b.ID); err != nil {
		return errors.Wrap(err, "removing master PDF")
	}
	if err = api.deps.Files.Remove(prev); err != nil {
		ctx.Logger().Errorf("%+v", errors.Wrap(err, "removing stored master PDF"))
	}
	return ctx.JSON(http.StatusOK, b)
}

// Member email blast

type EmailMembersRequest struct {
	Subject string `json:"subject" validate:"required"`
	Message string `json:"message" validate:"required"`
}

func (er *EmailMembersRequest) Validate(validate *validator.Validate) error {
	er.Subject = core.CleanString(er.Subject)
	er.Message = core.CleanString(er.Message)
	return validate.Struct(er)
}

// emailMembers sends the message to every active member of the bucket with
// an email address, the master agreement PDF attached when one is on file.
func (api *bucketApi) emailMembers(ctx echo.Context) error {
	b, _, err := api.getBucket(ctx)
	if err != nil {
		return err
	}

	var data EmailMembersRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to EmailMembersRequest")
	}
	if err = data.Validate(api.deps.Validate); err != nil {
		return err
	}

	members, err := api.deps.MemberSvc.QueryByBucket(ctx.Request().Context(), b.ID)
	if err != nil {
		return errors.Wrap(err, "querying members")
	}
	var recipients []mail.Address
	for _, m := range members {
		if m.Email != "" {
			recipients = append(recipients, mail.Address{Name: m.FullName(), Address: m.Email})
		}
	}
	if len(recipients) == 0 {
		return core.NewValidationError(errors.New("no members with an email address in this bucket"))
	}

	msg := &core.EmailMessage{
		To:          []mail.Address{api.deps.Conf.DefaultFromEmail()},
		Bcc:         recipients,
		Subject:     data.Subject,
		TextContent: data.Message,
	}
	if b.MasterPDFFilename != "" {
		f, err := api.deps.Files.Open(b.MasterPDFFilename)
		if err != nil && errors.Cause(err) != filestore.ErrNotFound {
			return errors.Wrap(err, "opening master PDF")
		}
		if err == nil {
			aErr := msg.Attach(f, fmt.Sprintf("%s - Master Agreement.pdf", b.Name), mimePDF)
			f.Close()
			if aErr != nil {
				return errors.Wrap(aErr, "attaching master PDF")
			}
		}
	}
	api.deps.MailSvc.SendMessages(msg)

	return ctx.JSON(http.StatusOK, echo.Map{"sent": len(recipients)})
}

// Bulk import

func (api *bucketApi) importMembers(ctx echo.Context) error {
	b, _, err := api.getBucket(ctx)
	if err != nil {
		return err
	}
	data, err := readUpload(ctx, "file", api.deps.Conf.Uploads.MaxSpreadsheetBytes)
	if err != nil {
		return err
	}

	res, err := api.deps.MemberSvc.Import(ctx.Request().Context(), b.ID, data)
	if err != nil {
		return core.NewValidationError(
			errors.New("could not read the file"), core.FieldError{Field: "file", Error: "upload a valid .xlsx workbook"})
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *bucketApi) importTemplate(ctx echo.Context) error {
	data, err := member.ImportTemplate()
	if err != nil {
		return errors.Wrap(err, "building import template")
	}
	return sendBlob(ctx, mimeXLSX, "member-import-template.xlsx", data)
}

// Helpers

// getBucket loads the live bucket from the :id param and enforces tenancy;
// a bucket outside the caller's union reads as not found.
func (api *bucketApi) getBucket(ctx echo.Context) (bucket.Bucket, user.Subject, error) {
	return bucketForSubject(ctx, api.deps, false)
}

// getAnyBucket is getBucket for soft deleted buckets too (restore, purge).
func (api *bucketApi) getAnyBucket(ctx echo.Context) (bucket.Bucket, user.Subject, error) {
	return bucketForSubject(ctx, api.deps, true)
}

func bucketForSubject(ctx echo.Context, deps ServerDeps, includeDeleted bool) (bucket.Bucket, user.Subject, error) {
	sub, err := getContextSubject(ctx)
	if err != nil {
		return bucket.Bucket{}, user.Subject{}, errors.Wrap(err, "getting context subject")
	}

	get := deps.BucketSvc.Get
	if includeDeleted {
		get = deps.BucketSvc.GetAny
	}
	b, err := get(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == bucket.ErrNotFound {
			return bucket.Bucket{}, user.Subject{}, errHttpNotFound
		}
		return bucket.Bucket{}, user.Subject{}, errors.Wrap(err, "getting bucket")
	}
	if !sub.CanManageUnion(b.UnionID) {
		return bucket.Bucket{}, user.Subject{}, errHttpNotFound
	}
	return b, sub, nil
}
