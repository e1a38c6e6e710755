package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/waynerigley/migslist/core/signup"
)

type signupApi struct {
	deps ServerDeps
}

func registerSignupAPI(g *echo.Group, _ echo.MiddlewareFunc, deps ServerDeps) {
	api := signupApi{deps: deps}

	// public, filed from the marketing site
	g.POST("/signup", api.create)
}

func (api *signupApi) create(ctx echo.Context) error {
	var data signup.NewRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewRequest")
	}
	if err := data.Validate(api.deps.Validate); err != nil {
		return err
	}

	req, err := api.deps.SignupSvc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating signup request")
	}
	return ctx.JSON(http.StatusCreated, req)
}
