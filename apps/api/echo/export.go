package echoapi

import (
	"fmt"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/waynerigley/migslist/core"
	"github.com/waynerigley/migslist/core/member"
	"github.com/waynerigley/migslist/core/report"
	"github.com/waynerigley/migslist/core/union"
)

// Export scopes and formats
const (
	scopeGoodStanding = "good-standing"
	scopeAll          = "all"

	formatXLSX = "xlsx"
	formatPDF  = "pdf"
)

type exportApi struct {
	deps ServerDeps
}

func registerExportAPI(g *echo.Group, sess, gate echo.MiddlewareFunc, deps ServerDeps) {
	api := exportApi{deps: deps}

	g.GET("/buckets/:id/export", api.exportBucket, sess, gate)
	g.GET("/exports/members", api.exportUnion, sess, gate)
}

// exportBucket downloads one bucket's roster, good standing members only by
// default, as a spreadsheet or PDF.
func (api *exportApi) exportBucket(ctx echo.Context) error {
	b, _, err := bucketForSubject(ctx, api.deps, false)
	if err != nil {
		return err
	}
	scope, format, err := exportParams(ctx)
	if err != nil {
		return err
	}

	var members []member.Member
	if scope == scopeGoodStanding {
		members, err = api.deps.MemberSvc.QueryGoodStanding(ctx.Request().Context(), b.ID)
	} else {
		members, err = api.deps.MemberSvc.QueryByBucket(ctx.Request().Context(), b.ID)
	}
	if err != nil {
		return errors.Wrap(err, "querying members")
	}

	basename := fmt.Sprintf("%s - %s", b.Name, scopeLabel(scope))
	if format == formatXLSX {
		data, err := report.MembersWorkbook(scopeLabel(scope), members, scope == scopeAll)
		if err != nil {
			return errors.Wrap(err, "building workbook")
		}
		return sendBlob(ctx, mimeXLSX, basename+".xlsx", data)
	}

	color := report.ColorGoodStanding
	if scope == scopeAll {
		color = report.ColorAllMembers
	}
	data, err := report.MemberRosterPDF(report.RosterOptions{
		Title:    b.Name,
		Subtitle: fmt.Sprintf("%s - %s", b.UnionName, scopeLabel(scope)),
		Color:    color,
	}, members)
	if err != nil {
		return errors.Wrap(err, "building roster PDF")
	}
	return sendBlob(ctx, mimePDF, basename+".pdf", data)
}

// exportUnion downloads the rank and file roster: every active member across
// the union's live buckets, bucket numbers included.
func (api *exportApi) exportUnion(ctx echo.Context) error {
	sub, err := getContextSubject(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context subject")
	}
	unionID, err := effectiveUnionID(ctx, sub)
	if err != nil {
		return err
	}
	scope, format, err := exportParams(ctx)
	if err != nil {
		return err
	}
	reqCtx := ctx.Request().Context()

	un, err := api.deps.UnionSvc.GetByID(reqCtx, unionID)
	if err != nil {
		if errors.Cause(err) == union.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "getting union")
	}
	members, err := api.deps.MemberSvc.QueryByUnion(reqCtx, unionID)
	if err != nil {
		return errors.Wrap(err, "querying members")
	}
	if scope == scopeGoodStanding {
		inGood := make([]member.Member, 0, len(members))
		for _, m := range members {
			if m.InGoodStanding() {
				inGood = append(inGood, m)
			}
		}
		members = inGood
	}

	basename := fmt.Sprintf("%s - Rank and File", un.Name)
	if format == formatXLSX {
		data, err := report.MembersWorkbook("Rank and File", members, scope == scopeAll)
		if err != nil {
			return errors.Wrap(err, "building workbook")
		}
		return sendBlob(ctx, mimeXLSX, basename+".xlsx", data)
	}

	data, err := report.MemberRosterPDF(report.RosterOptions{
		Title:      un.Name,
		Subtitle:   "Rank and File - " + scopeLabel(scope),
		Color:      report.ColorRankAndFile,
		ShowBucket: true,
	}, members)
	if err != nil {
		return errors.Wrap(err, "building roster PDF")
	}
	return sendBlob(ctx, mimePDF, basename+".pdf", data)
}

func exportParams(ctx echo.Context) (scope, format string, err error) {
	scope = ctx.QueryParam("scope")
	if scope == "" {
		scope = scopeGoodStanding
	}
	if scope != scopeGoodStanding && scope != scopeAll {
		return "", "", core.NewValidationError(
			errors.New("invalid scope"), core.FieldError{Field: "scope", Error: "must be good-standing or all"})
	}
	format = ctx.QueryParam("format")
	if format == "" {
		format = formatXLSX
	}
	if format != formatXLSX && format != formatPDF {
		return "", "", core.NewValidationError(
			errors.New("invalid format"), core.FieldError{Field: "format", Error: "must be xlsx or pdf"})
	}
	return scope, format, nil
}

func scopeLabel(scope string) string {
	if scope == scopeGoodStanding {
		return "Good Standing"
	}
	return "All Members"
}
