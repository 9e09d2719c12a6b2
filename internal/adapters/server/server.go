// Package server composes the GraphQL and MCP transports of the development board service.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/hylla/kanboard/internal/adapters/server/common"
	"github.com/hylla/kanboard/internal/adapters/server/graphqlapi"
	"github.com/hylla/kanboard/internal/adapters/server/mcpapi"
	"github.com/hylla/kanboard/internal/app"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// defaultBindAddress defines the localhost-first serve default.
const defaultBindAddress = "127.0.0.1:8080"

// defaultShutdownTimeout bounds graceful shutdown time once context cancellation starts.
const defaultShutdownTimeout = 5 * time.Second

// Config defines serve-mode endpoint configuration.
type Config struct {
	HTTPBind        string
	GraphQLEndpoint string
	MCPEndpoint     string
	ServerName      string
	ServerVersion   string
	AllowOrigins    []string
}

// Dependencies defines app-facing adapters required by server transports.
type Dependencies struct {
	Boards   common.BoardDirectory
	Accounts common.AccountService
	Auth     common.Authorizer
	Logger   app.Logger
}

// NewHandler composes one echo router containing health, GraphQL, and MCP endpoints.
func NewHandler(cfg Config, deps Dependencies) (http.Handler, Config, error) {
	normalizedCfg, err := normalizeConfig(cfg)
	if err != nil {
		return nil, Config{}, err
	}
	if deps.Boards == nil || deps.Accounts == nil || deps.Auth == nil {
		return nil, Config{}, fmt.Errorf("boards, accounts, and auth dependencies are required")
	}

	gqlHandler, err := graphqlapi.NewHandler(deps.Boards, deps.Accounts, deps.Auth)
	if err != nil {
		return nil, Config{}, fmt.Errorf("configure graphql handler: %w", err)
	}
	mcpHandler, err := mcpapi.NewHandler(
		mcpapi.Config{
			ServerName:    normalizedCfg.ServerName,
			ServerVersion: normalizedCfg.ServerVersion,
			EndpointPath:  normalizedCfg.MCPEndpoint,
		},
		deps.Boards,
		deps.Auth,
	)
	if err != nil {
		return nil, Config{}, fmt.Errorf("configure mcp handler: %w", err)
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: normalizedCfg.AllowOrigins,
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))
	if deps.Logger != nil {
		e.Use(requestLogger(deps.Logger))
	}

	e.GET("/healthz", writeHealthStatus)
	e.GET("/readyz", writeHealthStatus)
	e.Any(normalizedCfg.GraphQLEndpoint, echo.WrapHandler(gqlHandler))
	e.Any(normalizedCfg.MCPEndpoint, echo.WrapHandler(mcpHandler))
	return e, normalizedCfg, nil
}

// Run starts the composed HTTP server and blocks until shutdown or startup failure.
func Run(ctx context.Context, cfg Config, deps Dependencies) error {
	if ctx == nil {
		ctx = context.Background()
	}

	handler, normalizedCfg, err := NewHandler(cfg, deps)
	if err != nil {
		return fmt.Errorf("build server handler: %w", err)
	}
	httpServer := &http.Server{
		Addr:              normalizedCfg.HTTPBind,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	if deps.Logger != nil {
		deps.Logger.Info("board service listening", "bind", normalizedCfg.HTTPBind, "graphql", normalizedCfg.GraphQLEndpoint, "mcp", normalizedCfg.MCPEndpoint)
	}

	serveErrCh := make(chan error, 1)
	go func() {
		serveErrCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serveErrCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("listen and serve: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), defaultShutdownTimeout)
		defer cancel()

		shutdownErr := httpServer.Shutdown(shutdownCtx)
		serveErr := <-serveErrCh
		if shutdownErr != nil && !errors.Is(shutdownErr, context.Canceled) {
			return fmt.Errorf("shutdown server: %w", shutdownErr)
		}
		if serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			return fmt.Errorf("serve after shutdown: %w", serveErr)
		}
		return nil
	}
}

// normalizeConfig fills defaults and rejects endpoints that shadow each other
// or the health routes.
func normalizeConfig(cfg Config) (Config, error) {
	cfg.HTTPBind = common.TrimOr(cfg.HTTPBind, defaultBindAddress)
	cfg.GraphQLEndpoint = common.EndpointPath(cfg.GraphQLEndpoint, "/graphql")
	cfg.MCPEndpoint = common.EndpointPath(cfg.MCPEndpoint, "/mcp")
	if cfg.GraphQLEndpoint == cfg.MCPEndpoint {
		return Config{}, fmt.Errorf("graphql and mcp endpoints must differ")
	}
	for _, reserved := range []string{"/healthz", "/readyz"} {
		if cfg.GraphQLEndpoint == reserved || cfg.MCPEndpoint == reserved {
			return Config{}, fmt.Errorf("endpoint %s is reserved", reserved)
		}
	}
	cfg.ServerName = common.TrimOr(cfg.ServerName, "kanboard")
	cfg.ServerVersion = common.TrimOr(cfg.ServerVersion, "dev")

	origins := make([]string, 0, len(cfg.AllowOrigins))
	for _, origin := range cfg.AllowOrigins {
		if origin = strings.TrimSpace(origin); origin != "" {
			origins = append(origins, origin)
		}
	}
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	cfg.AllowOrigins = origins
	return cfg, nil
}

// requestLogger reports one line per request at debug level, warn on 5xx.
func requestLogger(logger app.Logger) echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogError:   true,
		LogValuesFunc: func(_ echo.Context, v middleware.RequestLoggerValues) error {
			keyvals := []any{"method", v.Method, "uri", v.URI, "status", v.Status, "latency", v.Latency}
			if v.Error != nil {
				keyvals = append(keyvals, "err", v.Error)
			}
			if v.Status >= http.StatusInternalServerError {
				logger.Warn("request failed", keyvals...)
				return nil
			}
			logger.Debug("request", keyvals...)
			return nil
		},
	})
}

// writeHealthStatus responds with a deterministic readiness payload.
func writeHealthStatus(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}
