package echoapi

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/waynerigley/migslist/core/session"
	"github.com/waynerigley/migslist/core/union"
)

// sessionMiddleware loads the session from the cookie into the context.
func sessionMiddleware(svc session.ServiceInterface) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			cookie, err := ctx.Cookie(sessionCookieName)
			if err != nil || cookie.Value == "" {
				return errUnauthorized
			}
			sess, err := svc.Get(ctx.Request().Context(), cookie.Value)
			if err != nil {
				if errors.Cause(err) == session.ErrNotFound {
					return errUnauthorized
				}
				return errors.Wrap(err, "getting session")
			}
			ctx.Set(ctxSessionKey, sess)
			return next(ctx)
		}
	}
}

// superAdminMiddleware restricts a route group to super admins.
func superAdminMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			sub, err := getContextSubject(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context subject")
			}
			if sub.IsSuperAdmin() {
				return next(ctx)
			}
			return errHttpForbidden
		}
	}
}

// subscriptionGateMiddleware blocks union users whose subscription is not
// usable. Super admins pass through, as does a user with no union.
func subscriptionGateMiddleware(svc union.ServiceInterface) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			sub, err := getContextSubject(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context subject")
			}
			if sub.IsSuperAdmin() || sub.UnionID == "" {
				return next(ctx)
			}

			un, err := svc.GetByID(ctx.Request().Context(), sub.UnionID)
			if err != nil {
				if errors.Cause(err) == union.ErrNotFound {
					return errSubscriptionExpired
				}
				return errors.Wrap(err, "getting union")
			}
			if !union.Evaluate(un, time.Now().UTC()).Usable {
				return errSubscriptionExpired
			}
			return next(ctx)
		}
	}
}
