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

package database

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/mysqldialect"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/extra/bundebug"

	"github.com/tomoncle/users-shared/repository"
)

// Manager owns one Bun database handle and its pool.
type Manager struct {
	config   *Config
	db       *bun.DB
	sqlDB    *sql.DB
	logger   Logger
	queryLog io.Writer
	metrics  *MetricsHook
	mu       sync.RWMutex
}

// Option customises a Manager.
type Option func(*Manager)

// WithLogger sets the logger for connection lifecycle and slow query events.
func WithLogger(logger Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithQueryLogWriter sets where bundebug prints queries when query logging is
// enabled.
func WithQueryLogWriter(w io.Writer) Option {
	return func(m *Manager) {
		m.queryLog = w
	}
}

// WithMetrics installs a Prometheus query hook.
func WithMetrics(hook *MetricsHook) Option {
	return func(m *Manager) {
		m.metrics = hook
	}
}

// NewManager returns a Manager for cfg. If cfg is nil, DefaultConfig is used.
func NewManager(cfg *Config, opts ...Option) *Manager {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	m := &Manager{
		config:   cfg,
		logger:   nopLogger{},
		queryLog: os.Stdout,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Connect opens the pool and verifies it with a ping.
func (m *Manager) Connect(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.db != nil {
		return nil
	}

	sqlDB, db, err := m.createConnection()
	if err != nil {
		return fmt.Errorf("failed to create database connection: %w", err)
	}
	m.configureConnectionPool(sqlDB)

	ctxTimeout, cancel := context.WithTimeout(ctx, m.config.ConnectTimeout)
	defer cancel()

	if err := db.PingContext(ctxTimeout); err != nil {
		_ = db.Close()
		return fmt.Errorf("database connection test failed: %w", Classify(err))
	}
	m.sqlDB, m.db = sqlDB, db
	m.logger.Info("Database connected successfully", "type", m.config.Type, "host", m.config.Host)
	return nil
}

func (m *Manager) isSQLite() bool {
	return m.config.Type == "sqlite" || m.config.Type == "sqlite3"
}

func (m *Manager) createConnection() (*sql.DB, *bun.DB, error) {
	var sqlDB *sql.DB
	var db *bun.DB
	var err error

	if m.config.ConnectTimeout <= 0 {
		m.config.ConnectTimeout = 30 * time.Second
	}

	switch m.config.Type {
	case "mysql":
		sqlDB, db, err = m.createMySQLConnection()
	case "postgres", "postgresql":
		sqlDB, db, err = m.createPostgreSQLConnection()
	case "sqlite", "sqlite3":
		sqlDB, db, err = m.createSQLiteConnection()
	default:
		return nil, nil, fmt.Errorf("unsupported database type: %s", m.config.Type)
	}
	if err != nil {
		return nil, nil, err
	}

	if m.config.EnableQueryLog {
		db.AddQueryHook(bundebug.NewQueryHook(
			bundebug.WithVerbose(true),
			bundebug.WithWriter(m.queryLog),
		))
	}
	if m.config.SlowQueryTime > 0 {
		db.AddQueryHook(&slowQueryHook{
			slowTime: m.config.SlowQueryTime,
			logger:   m.logger,
		})
	}
	if m.metrics != nil {
		db.AddQueryHook(m.metrics)
	}
	return sqlDB, db, nil
}

func (m *Manager) createMySQLConnection() (*sql.DB, *bun.DB, error) {
	charset := m.config.Charset
	if charset == "" {
		charset = "utf8mb4"
	}
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s&parseTime=True&loc=Local&timeout=%s&readTimeout=%s&writeTimeout=%s",
		m.config.Username,
		m.config.Password,
		m.config.Host,
		m.config.Port,
		m.config.DBName,
		charset,
		m.config.ConnectTimeout,
		m.config.ReadTimeout,
		m.config.WriteTimeout,
	)

	sqlDB, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, nil, err
	}
	return sqlDB, bun.NewDB(sqlDB, mysqldialect.New()), nil
}

func (m *Manager) createPostgreSQLConnection() (*sql.DB, *bun.DB, error) {
	sslMode := m.config.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}

	dsn := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s&connect_timeout=%d",
		m.config.Username,
		m.config.Password,
		m.config.Host,
		m.config.Port,
		m.config.DBName,
		sslMode,
		int(m.config.ConnectTimeout.Seconds()),
	)

	sqlDB, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, nil, err
	}
	return sqlDB, bun.NewDB(sqlDB, pgdialect.New()), nil
}

// createSQLiteConnection treats DBName as a file stem unless it is already a
// DSN (":memory:" or "file:...").
func (m *Manager) createSQLiteConnection() (*sql.DB, *bun.DB, error) {
	dsn := m.config.DBName
	if dsn != ":memory:" && !strings.HasPrefix(dsn, "file:") {
		dsn = fmt.Sprintf("%s.db", dsn)
	}

	connector, err := newSQLiteConnector(dsn)
	if err != nil {
		return nil, nil, err
	}
	sqlDB := sql.OpenDB(connector)
	return sqlDB, bun.NewDB(sqlDB, sqlitedialect.New()), nil
}

// configureConnectionPool applies the pool settings. An in-memory SQLite
// database is pinned to one connection that is never recycled, since closing
// it discards the data.
func (m *Manager) configureConnectionPool(sqlDB *sql.DB) {
	if m.isSQLite() && isSQLiteMemory(m.config.DBName) {
		sqlDB.SetMaxOpenConns(1)
		sqlDB.SetMaxIdleConns(1)
		sqlDB.SetConnMaxLifetime(0)
		sqlDB.SetConnMaxIdleTime(0)
		return
	}
	sqlDB.SetMaxIdleConns(m.config.MaxIdleConns)
	sqlDB.SetMaxOpenConns(m.config.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(m.config.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(m.config.ConnMaxIdleTime)
}

// Disconnect closes the pool. It is safe to call on a manager that never
// connected.
func (m *Manager) Disconnect() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.db == nil {
		return nil
	}
	err := m.db.Close()
	m.db = nil
	m.sqlDB = nil
	if err != nil {
		m.logger.Error("Failed to close database connection", "error", err)
	} else {
		m.logger.Info("Database connection closed")
	}
	return err
}

func (m *Manager) Ping(ctx context.Context) error {
	db := m.DB()
	if db == nil {
		return fmt.Errorf("%w: database not connected", repository.ErrConnection)
	}
	return Classify(db.PingContext(ctx))
}

// DB returns the Bun handle, or nil before Connect.
func (m *Manager) DB() *bun.DB {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.db
}

func (m *Manager) SQLDB() *sql.DB {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sqlDB
}

// NewSession opens a unit of work on the managed database.
func (m *Manager) NewSession() (*Session, error) {
	db := m.DB()
	if db == nil {
		return nil, fmt.Errorf("%w: database not connected", repository.ErrConnection)
	}
	return NewSession(db), nil
}

func (m *Manager) HealthCheck(ctx context.Context) *HealthStatus {
	m.mu.RLock()
	db, sqlDB := m.db, m.sqlDB
	m.mu.RUnlock()

	start := time.Now()
	status := &HealthStatus{LastCheckTime: start}
	if db == nil {
		status.LastError = "Database not initialized"
		return status
	}

	ctxTimeout, cancel := context.WithTimeout(ctx, time.Second*5)
	defer cancel()

	err := db.PingContext(ctxTimeout)
	status.ResponseTime = time.Since(start)
	if err != nil {
		status.LastError = err.Error()
	} else {
		status.Healthy = true
		status.Connected = true
	}

	stats := sqlDB.Stats()
	status.ActiveConns = stats.InUse
	status.IdleConns = stats.Idle
	status.MaxOpenConns = stats.MaxOpenConnections
	return status
}

func (m *Manager) Stats() *DBStats {
	sqlDB := m.SQLDB()
	if sqlDB == nil {
		return &DBStats{}
	}

	stats := sqlDB.Stats()
	return &DBStats{
		MaxOpenConns:      stats.MaxOpenConnections,
		OpenConns:         stats.OpenConnections,
		InUse:             stats.InUse,
		Idle:              stats.Idle,
		WaitCount:         stats.WaitCount,
		WaitDuration:      stats.WaitDuration,
		MaxIdleClosed:     stats.MaxIdleClosed,
		MaxIdleTimeClosed: stats.MaxIdleTimeClosed,
		MaxLifetimeClosed: stats.MaxLifetimeClosed,
	}
}

type slowQueryHook struct {
	slowTime time.Duration
	logger   Logger
}

func (h *slowQueryHook) BeforeQuery(ctx context.Context, event *bun.QueryEvent) context.Context {
	return ctx
}

func (h *slowQueryHook) AfterQuery(ctx context.Context, event *bun.QueryEvent) {
	if event.Err != nil {
		return
	}
	duration := time.Since(event.StartTime)
	if duration > h.slowTime {
		h.logger.Warn("Database slow query detected",
			"duration", duration,
			"slow_threshold", h.slowTime,
			"operation", event.Operation(),
		)
	}
}
