/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package shared

import (
	"context"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomoncle/users-shared/auth"
	"github.com/tomoncle/users-shared/config"
	"github.com/tomoncle/users-shared/database"
	"github.com/tomoncle/users-shared/errs"
	"github.com/tomoncle/users-shared/logging"
	"github.com/tomoncle/users-shared/middleware"
)

// MetricsNamespace prefixes every collector the App registers.
const MetricsNamespace = "users"

// App bundles the shared pieces a users service process needs.
type App struct {
	Config   *config.Config
	Logs     *logging.Factory
	DB       *database.Manager
	Auth     *auth.Extractor
	Registry *prometheus.Registry
}

// New sets up logging and metrics and prepares, but does not open, the
// database connection.
func New(cfg *config.Config) (*App, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	logs := logging.Setup(cfg.Log)

	registry := prometheus.NewRegistry()
	if err := registry.Register(collectors.NewGoCollector()); err != nil {
		return nil, fmt.Errorf("register go collector: %w", err)
	}
	hook, err := database.NewMetricsHook(registry, MetricsNamespace)
	if err != nil {
		return nil, fmt.Errorf("register database metrics: %w", err)
	}

	db := database.NewManager(&cfg.DB,
		database.WithLogger(database.NewLogger(logs.Named("database"))),
		database.WithQueryLogWriter(logs.Writer(logging.SubsystemSQL)),
		database.WithMetrics(hook),
	)

	return &App{
		Config:   cfg,
		Logs:     logs,
		DB:       db,
		Auth:     auth.NewExtractor(logs.Named("auth")),
		Registry: registry,
	}, nil
}

// Start connects to the database and, when models is not nil, creates their
// tables.
func (a *App) Start(ctx context.Context, models database.ModelRegistry) error {
	if err := a.DB.Connect(ctx); err != nil {
		return err
	}
	if models == nil {
		return nil
	}
	return database.CreateTables(ctx, a.DB.DB(), models, database.NewLogger(a.Logs.Named("database")))
}

func (a *App) Close() error {
	return a.DB.Disconnect()
}

// Echo returns a server with error rendering, access logging, panic recovery
// and the /healthz and /metrics endpoints.
func (a *App) Echo() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = errs.ErrorHandler(a.Logs.Named("http"))
	e.Use(
		middleware.AccessLog(a.Logs.Named(logging.SubsystemHTTPAccess)),
		middleware.Recover(),
	)
	e.GET("/healthz", a.health)
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(a.Registry, promhttp.HandlerOpts{})))
	return e
}

// Protected mounts a route group that requires an authenticated subject.
func (a *App) Protected(e *echo.Echo, prefix string) *echo.Group {
	return e.Group(prefix, a.Auth.Middleware())
}

func (a *App) health(c echo.Context) error {
	status := a.DB.HealthCheck(c.Request().Context())
	code := http.StatusOK
	if !status.Healthy {
		code = http.StatusServiceUnavailable
	}
	return c.JSON(code, status)
}
