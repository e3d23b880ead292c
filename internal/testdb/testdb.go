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

// Package testdb provides in-memory SQLite fixtures for tests.
package testdb

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"

	"github.com/tomoncle/users-shared/database"
)

type User struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID        int64     `bun:"id,pk,autoincrement" json:"id"`
	Email     string    `bun:"email,notnull,unique" json:"email"`
	Name      string    `bun:"name" json:"name"`
	Role      string    `bun:"role,nullzero,notnull,default:'member'" json:"role"`
	CreatedAt time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
}

// APIKey is keyed by a caller-assigned UUID string and references a user.
type APIKey struct {
	bun.BaseModel `bun:"table:api_keys,alias:k"`

	ID     string `bun:"id,pk" json:"id"`
	UserID int64  `bun:"user_id,notnull" json:"user_id"`
	Label  string `bun:"label" json:"label"`
}

func Models() database.ModelRegistry {
	registry := database.NewModelRegistry()
	registry.Register(database.NewModelAdapter(&User{}, 0))
	registry.Register(database.NewModelAdapter(&APIKey{}, 10,
		`("user_id") REFERENCES "users" ("id") ON DELETE RESTRICT`))
	return registry
}

// Config returns an in-memory SQLite config with the default pool settings.
// The manager pins memory databases to a single connection.
func Config() *database.Config {
	cfg := database.DefaultConfig()
	cfg.Type = "sqlite"
	cfg.DBName = ":memory:"
	cfg.SlowQueryTime = 0
	return cfg
}

// FileConfig returns a SQLite config backed by a file in a temporary
// directory, so the full connection pool is in use.
func FileConfig(t testing.TB) *database.Config {
	t.Helper()
	cfg := Config()
	cfg.DBName = "file:" + filepath.Join(t.TempDir(), "users.db")
	return cfg
}

// Open connects a Manager to a fresh schema and disconnects it when the test
// ends.
func Open(t testing.TB, opts ...database.Option) *database.Manager {
	t.Helper()
	return OpenWith(t, Config(), opts...)
}

func OpenWith(t testing.TB, cfg *database.Config, opts ...database.Option) *database.Manager {
	t.Helper()
	ctx := context.Background()

	m := database.NewManager(cfg, opts...)
	require.NoError(t, m.Connect(ctx))
	t.Cleanup(func() { _ = m.Disconnect() })

	require.NoError(t, database.CreateTables(ctx, m.DB(), Models(), nil))
	return m
}
