package echoapi

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/waynerigley/migslist/core"
	"github.com/waynerigley/migslist/core/bucket"
	"github.com/waynerigley/migslist/core/union"
	"github.com/waynerigley/migslist/core/user"
)

type dashboardApi struct {
	deps ServerDeps
}

func registerDashboardAPI(g *echo.Group, sess, gate echo.MiddlewareFunc, deps ServerDeps) {
	api := dashboardApi{deps: deps}

	g.GET("/dashboard", api.get, sess, gate)
}

// Dashboard is the union home screen payload.
type Dashboard struct {
	Union        union.Union             `json:"union"`
	Subscription union.SubscriptionState `json:"subscription"`
	Buckets      []bucket.Bucket         `json:"buckets"`
	Stats        union.Stats             `json:"stats"`
}

func (api *dashboardApi) get(ctx echo.Context) error {
	sub, err := getContextSubject(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context subject")
	}
	unionID, err := effectiveUnionID(ctx, sub)
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
	buckets, err := api.deps.BucketSvc.QueryByUnion(reqCtx, unionID)
	if err != nil {
		return errors.Wrap(err, "querying buckets")
	}
	stats, err := api.deps.UnionSvc.GetStats(reqCtx, unionID)
	if err != nil {
		return errors.Wrap(err, "getting union stats")
	}

	return ctx.JSON(http.StatusOK, Dashboard{
		Union:        un,
		Subscription: union.Evaluate(un, time.Now().UTC()),
		Buckets:      buckets,
		Stats:        stats,
	})
}

// effectiveUnionID resolves the union a request operates on: a union user's
// own union, or the union_id query param for super admins.
func effectiveUnionID(ctx echo.Context, sub user.Subject) (string, error) {
	if sub.IsSuperAdmin() {
		if id := ctx.QueryParam("union_id"); id != "" {
			return id, nil
		}
		return "", core.NewValidationError(
			errors.New("missing union"), core.FieldError{Field: "union_id", Error: "union_id is required"})
	}
	if sub.UnionID == "" {
		return "", errHttpForbidden
	}
	return sub.UnionID, nil
}
