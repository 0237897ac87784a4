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

	"github.com/trezcool/shule/apps/api/di"
	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/theme"
)

type (
	ServerDeps struct {
		Conf           *core.Config
		Logger         core.Logger
		Validate       *validator.Validate
		Translator     ut.Translator
		Theme          *theme.Context
		DisableReqLogs bool

		Services di.Services
	}

	Server struct {
		deps     ServerDeps
		app      *echo.Echo
		auth     *authenticator
		errors   chan error
		shutdown chan os.Signal
	}
)

func NewServer(deps ServerDeps) *Server {
	s := &Server{
		deps:     deps,
		app:      echo.New(),
		auth:     newAuthenticator(deps.Conf, deps.Services.Users),
		errors:   make(chan error, 1),
		shutdown: make(chan os.Signal, 1),
	}
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)
	s.setup()
	return s
}

func (s *Server) setup() {
	conf := s.deps.Conf
	svcs := s.deps.Services

	s.app.HideBanner = true
	s.app.Pre(middleware.RemoveTrailingSlash())
	if !s.deps.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}
	s.app.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{conf.FrontendBaseURL},
		AllowHeaders: []string{echo.HeaderAuthorization, echo.HeaderContentType, headerBranchID},
	}))

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.deps.Logger, s.deps.Translator, s.SignalShutdown)
	s.app.Debug = conf.Debug

	s.app.GET("/", s.home)

	v1 := s.app.Group("/api/v1")
	jwt := middleware.JWTWithConfig(s.auth.jwtConfig)
	perms := svcs.Permissions

	registerAuthAPI(v1, jwt, s.auth, svcs.Users, s.deps.Validate, s.deps.Translator, s.deps.Logger)
	registerThemeAPI(v1, jwt, s.auth.optionalJWT(), s.deps.Theme, svcs.Tenants, s.deps.Validate)

	ag := v1.Group("", jwt, s.auth.scopeMiddleware(svcs.Tenants))
	registerUserAPI(ag, perms, s.auth, svcs.Users, s.deps.Validate)
	registerStudentAPI(ag, perms, svcs.Students, svcs.Academic, s.deps.Validate, s.deps.Translator, s.deps.Logger)
	registerStaffAPI(ag, perms, svcs.Staff, s.deps.Validate)
	registerAttendanceAPI(ag, perms, svcs.Attendance, s.deps.Validate)
	registerAcademicAPI(ag, perms, svcs.Academic, s.deps.Validate)
	registerScheduleAPI(ag, perms, svcs.Schedule, s.deps.Validate)
	registerGradingAPI(ag, perms, svcs.Grading, s.deps.Validate)
	registerPermissionAPI(ag, perms, s.deps.Validate)
	registerNotificationAPI(ag, perms, svcs.Notifications, s.deps.Validate)
}

// Start blocks serving requests; a failure is sent to Errors.
func (s *Server) Start() {
	if err := s.app.Start(s.deps.Conf.Server.Address()); err != nil && err != http.ErrServerClosed {
		s.errors <- err
	}
}

func (s *Server) Errors() <-chan error { return s.errors }

// ShutdownSignal receives SIGINT, SIGTERM and shutdowns requested through SignalShutdown.
func (s *Server) ShutdownSignal() <-chan os.Signal { return s.shutdown }

func (s *Server) SignalShutdown() {
	select {
	case s.shutdown <- syscall.SIGTERM:
	default:
	}
}

func (s *Server) Shutdown(ctx context.Context) error {
	signal.Stop(s.shutdown)
	return s.app.Shutdown(ctx)
}

func (s *Server) Close() error {
	signal.Stop(s.shutdown)
	return s.app.Close()
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func (s *Server) home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to "+s.deps.Conf.AppName+" API!")
}
