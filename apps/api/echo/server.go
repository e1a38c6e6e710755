package echoapi

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/waynerigley/migslist/core"
	"github.com/waynerigley/migslist/core/bucket"
	"github.com/waynerigley/migslist/core/finance"
	"github.com/waynerigley/migslist/core/member"
	"github.com/waynerigley/migslist/core/session"
	"github.com/waynerigley/migslist/core/signup"
	"github.com/waynerigley/migslist/core/union"
	"github.com/waynerigley/migslist/core/user"
	"github.com/waynerigley/migslist/storage/filestore"
)

type (
	ServerDeps struct {
		Conf       *core.Config
		Logger     core.Logger
		Validate   *validator.Validate
		Translator ut.Translator

		UserSvc    user.ServiceInterface
		SessionSvc session.ServiceInterface
		UnionSvc   union.ServiceInterface
		BucketSvc  bucket.ServiceInterface
		MemberSvc  member.ServiceInterface
		FinanceSvc finance.ServiceInterface
		SignupSvc  signup.ServiceInterface
		MailSvc    core.EmailService
		Files      *filestore.Store
	}

	Server struct {
		deps     ServerDeps
		app      *echo.Echo
		shutdown chan os.Signal
		errors   chan error
	}
)

func NewServer(deps ServerDeps) *Server {
	s := &Server{
		deps:     deps,
		app:      echo.New(),
		shutdown: make(chan os.Signal, 1),
		errors:   make(chan error, 1),
	}
	signal.Notify(s.shutdown, syscall.SIGINT, syscall.SIGTERM)
	s.setup()
	return s
}

func (s *Server) setup() {
	conf := s.deps.Conf

	s.app.Pre(middleware.RemoveTrailingSlash())
	if !conf.TestMode {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.deps.Logger, s.deps.Translator, s.signalShutdown)
	s.app.Debug = conf.Debug
	s.app.HideBanner = true

	s.app.GET("/", home)

	v1 := s.app.Group("/v1")
	sess := sessionMiddleware(s.deps.SessionSvc)
	gate := subscriptionGateMiddleware(s.deps.UnionSvc)

	registerAuthAPI(v1, sess, s.deps)
	registerSignupAPI(v1, sess, s.deps)
	registerDashboardAPI(v1, sess, gate, s.deps)
	registerBucketAPI(v1, sess, gate, s.deps)
	registerMemberAPI(v1, sess, gate, s.deps)
	registerExportAPI(v1, sess, gate, s.deps)
	registerTeamAPI(v1, sess, gate, s.deps)
	registerAdminAPI(v1, sess, s.deps)
	registerFinanceAPI(v1, sess, s.deps)
}

func (s *Server) Start() {
	if err := s.app.Start(s.deps.Conf.Server.Addr); err != nil && err != http.ErrServerClosed {
		s.errors <- err
	}
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *Server) Close() error {
	return s.app.Close()
}

func (s *Server) Errors() <-chan error {
	return s.errors
}

func (s *Server) ShutdownSignal() <-chan os.Signal {
	return s.shutdown
}

func (s *Server) signalShutdown() {
	s.shutdown <- syscall.SIGTERM
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to MigsList API!")
}
