package echoapi

import (
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/waynerigley/migslist/core"
	"github.com/waynerigley/migslist/core/session"
	"github.com/waynerigley/migslist/core/union"
	"github.com/waynerigley/migslist/core/user"
)

const (
	sessionCookieName = "migslist_session"
	ctxSessionKey     = "session"
)

var errSessNotFoundInCtx = errors.New("session not found in echo.Context")

type authApi struct {
	deps ServerDeps
}

func registerAuthAPI(g *echo.Group, sess echo.MiddlewareFunc, deps ServerDeps) {
	api := authApi{deps: deps}

	ag := g.Group("/auth")

	// un-authed endpoints
	ag.POST("/login", api.login)
	ag.POST("/password-reset", api.resetPassword)
	ag.POST("/password-reset-confirm", api.confirmPasswordReset)

	// authed endpoints
	ag.POST("/logout", api.logout, sess)
	ag.GET("/me", api.me, sess)
	ag.POST("/change-password", api.changePassword, sess)
}

// Handlers

func (api *authApi) login(ctx echo.Context) error {
	var data LoginRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LoginRequest")
	}
	if err := data.Validate(api.deps.Validate); err != nil {
		return err
	}

	sess, err := api.authenticate(ctx, data.Email, data.Password)
	if err != nil {
		return err
	}

	setSessionCookie(ctx, sess, !api.deps.Conf.Debug)
	return ctx.JSON(http.StatusOK, sess)
}

func (api *authApi) logout(ctx echo.Context) error {
	sess, err := getContextSession(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context session")
	}
	if err = api.deps.SessionSvc.Delete(ctx.Request().Context(), sess.Token); err != nil {
		return errors.Wrap(err, "deleting session")
	}
	clearSessionCookie(ctx, !api.deps.Conf.Debug)
	return ctx.NoContent(http.StatusNoContent)
}

func (api *authApi) me(ctx echo.Context) error {
	sess, err := getContextSession(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context session")
	}
	return ctx.JSON(http.StatusOK, sess)
}

func (api *authApi) resetPassword(ctx echo.Context) error {
	var data PasswordResetRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to PasswordResetRequest")
	}
	if err := data.Validate(api.deps.Validate); err != nil {
		return err
	}

	if err := api.deps.UserSvc.RequestPasswordReset(ctx.Request().Context(), data.Email); !(err == nil || errors.Cause(err) == user.ErrNotFound) {
		// do not return errors to attackers
		ctx.Logger().Errorf("%+v", errors.Wrap(err, "requesting password reset"))
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{
		Success: "If the email address supplied is associated with an active account on this system, " +
			"an email will arrive in your inbox shortly with instructions to reset your password.",
	})
}

func (api *authApi) confirmPasswordReset(ctx echo.Context) error {
	var data user.ResetUserPassword
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ResetUserPassword")
	}
	if err := data.Validate(api.deps.Validate); err != nil {
		return err
	}

	if err := api.deps.UserSvc.ResetPassword(ctx.Request().Context(), data); err != nil {
		return errors.Wrap(err, "resetting password")
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: "Password has been reset with the new password."})
}

func (api *authApi) changePassword(ctx echo.Context) error {
	sess, err := getContextSession(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context session")
	}

	var data user.ChangePassword
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ChangePassword")
	}
	if err = data.Validate(api.deps.Validate); err != nil {
		return err
	}

	reqCtx := ctx.Request().Context()
	usr, err := api.deps.UserSvc.GetByID(reqCtx, sess.UserID)
	if err != nil {
		return errors.Wrap(err, "getting user")
	}
	if err = api.deps.UserSvc.ChangePassword(reqCtx, usr, data); err != nil {
		return errors.Wrap(err, "changing password")
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: "Password changed."})
}

// authenticate checks the credentials, reconciles the union's subscription
// status and opens a fresh session.
func (api *authApi) authenticate(ctx echo.Context, email, password string) (session.Session, error) {
	reqCtx := ctx.Request().Context()

	usr, err := api.deps.UserSvc.GetByEmail(reqCtx, email)
	if err != nil {
		if errors.Cause(err) == user.ErrNotFound {
			return session.Session{}, core.NewValidationError(errors.New("invalid credentials"))
		}
		return session.Session{}, errors.Wrap(err, "getting user by email")
	}
	if err = usr.CheckPassword(password); err != nil {
		return session.Session{}, core.NewValidationError(errors.New("invalid credentials"))
	}
	if usr.IsActive != nil && !*usr.IsActive {
		return session.Session{}, errAccountDeactivated
	}

	var unionName string
	if usr.UnionID != "" {
		// lapse demotion happens at login, not on reads
		un, err := api.deps.UnionSvc.ReconcileSubscriptionStatus(reqCtx, usr.UnionID, time.Now().UTC())
		if err != nil && errors.Cause(err) != union.ErrNotFound {
			return session.Session{}, errors.Wrap(err, "reconciling subscription")
		}
		unionName = un.Name
	}

	if usr, err = api.deps.UserSvc.SetLastLogin(reqCtx, usr); err != nil {
		return session.Session{}, errors.Wrap(err, "setting last login")
	}

	sess, err := api.deps.SessionSvc.Create(reqCtx, usr, unionName)
	if err != nil {
		return session.Session{}, errors.Wrap(err, "creating session")
	}
	return sess, nil
}

// Cookies

// setSessionCookie stores the session token client side. The cookie is
// HttpOnly and, outside debug, Secure so the token never rides plain HTTP.
func setSessionCookie(ctx echo.Context, sess session.Session, secure bool) {
	ctx.SetCookie(&http.Cookie{
		Name:     sessionCookieName,
		Value:    sess.Token,
		Path:     "/",
		Expires:  sess.ExpiresAt,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func clearSessionCookie(ctx echo.Context, secure bool) {
	ctx.SetCookie(&http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// Context helpers

func getContextSession(ctx echo.Context) (session.Session, error) {
	if sess, ok := ctx.Get(ctxSessionKey).(session.Session); ok {
		return sess, nil
	}
	return session.Session{}, errSessNotFoundInCtx
}

func getContextSubject(ctx echo.Context) (user.Subject, error) {
	sess, err := getContextSession(ctx)
	if err != nil {
		return user.Subject{}, err
	}
	return user.Subject{UserID: sess.UserID, Role: user.NormalizeRole(sess.Role), UnionID: sess.UnionID}, nil
}

type (
	LoginRequest struct {
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required"`
	}

	PasswordResetRequest struct {
		Email string `json:"email" validate:"required,email"`
	}

	SuccessResponse struct {
		Success string `json:"success"`
	}
)

func (lr *LoginRequest) Validate(validate *validator.Validate) error {
	lr.Email = core.CleanString(lr.Email, true /* lower */)
	return validate.Struct(lr)
}

func (pr *PasswordResetRequest) Validate(validate *validator.Validate) error {
	pr.Email = core.CleanString(pr.Email, true /* lower */)
	return validate.Struct(pr)
}
