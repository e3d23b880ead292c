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
	"database/sql/driver"
	"fmt"
	"strings"

	"github.com/uptrace/bun/driver/sqliteshim"
)

// sqlitePragmas run on every new connection. SQLite keeps them per
// connection, so setting them once through the pool is not enough.
var sqlitePragmas = []string{
	"PRAGMA foreign_keys = ON",
}

// pragmaConnector opens connections through the sqliteshim driver and applies
// pragmas before the pool hands them out.
type pragmaConnector struct {
	driver  driver.Driver
	dsn     string
	pragmas []string
}

var _ driver.Connector = (*pragmaConnector)(nil)

func newSQLiteConnector(dsn string) (*pragmaConnector, error) {
	// sql.Open does not dial; it only resolves the registered driver
	opened, err := sql.Open(sqliteshim.ShimName, dsn)
	if err != nil {
		return nil, err
	}
	drv := opened.Driver()
	_ = opened.Close()
	return &pragmaConnector{driver: drv, dsn: dsn, pragmas: sqlitePragmas}, nil
}

func (c *pragmaConnector) Connect(ctx context.Context) (driver.Conn, error) {
	conn, err := c.driver.Open(c.dsn)
	if err != nil {
		return nil, err
	}
	execer, ok := conn.(driver.ExecerContext)
	if !ok {
		_ = conn.Close()
		return nil, fmt.Errorf("sqlite connection %T cannot execute pragmas", conn)
	}
	for _, pragma := range c.pragmas {
		if _, err := execer.ExecContext(ctx, pragma, nil); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("apply %q: %w", pragma, err)
		}
	}
	return conn, nil
}

func (c *pragmaConnector) Driver() driver.Driver {
	return c.driver
}

// isSQLiteMemory reports whether dsn names an in-memory database, which
// exists only inside the connection that created it.
func isSQLiteMemory(dsn string) bool {
	return dsn == ":memory:" ||
		strings.HasPrefix(dsn, "file::memory:") ||
		strings.Contains(dsn, "mode=memory")
}
