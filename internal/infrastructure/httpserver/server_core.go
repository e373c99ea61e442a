package httpserver

import (
	"context"
	"time"

	"github.com/avatarctic/commerce-gateway/internal/application/services"
	"github.com/avatarctic/commerce-gateway/internal/core/domain/auth"
	"github.com/avatarctic/commerce-gateway/internal/core/domain/operation"
	"github.com/avatarctic/commerce-gateway/internal/core/ports"
	customMiddleware "github.com/avatarctic/commerce-gateway/internal/infrastructure/httpserver/middleware"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

type ServerConfig struct {
	Host           string
	Port           string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	TLSCertFile    string
	TLSKeyFile     string
	AllowedOrigins []string
	Environment    string
}

// Gateway is the router surface the transport needs.
type Gateway interface {
	Operations() *operation.Table
	Authenticate(ctx context.Context, token string) (auth.Principal, error)
	Execute(ctx context.Context, call services.Call) (*services.Reply, error)
}

type ServerDeps struct {
	Gateway        Gateway
	RateLimiter    ports.RateLimiter
	HealthCheckers []ports.HealthChecker
}

type Server struct {
	echo           *echo.Echo
	config         *ServerConfig
	logger         *logrus.Logger
	gateway        Gateway
	middleware     *customMiddleware.MiddlewareCollection
	healthCheckers []ports.HealthChecker
}

func NewServer(serverConfig *ServerConfig, logger *logrus.Logger, deps ServerDeps) *Server {
	e := echo.New()
	e.HideBanner = true
	e.Validator = NewRequestValidator()

	if logger == nil {
		logger = logrus.New()
	}
	server := &Server{
		echo:           e,
		config:         serverConfig,
		logger:         logger,
		gateway:        deps.Gateway,
		healthCheckers: deps.HealthCheckers,
		middleware: customMiddleware.NewMiddlewareCollection(
			deps.Gateway,
			deps.RateLimiter,
			logger,
			GetRequestsTotal(),
			GetRequestDuration(),
		),
	}

	server.setupMiddleware()
	server.setupRoutes()

	return server
}
