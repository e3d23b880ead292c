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
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"

	"github.com/tomoncle/users-shared/repository"
)

func TestIsSqlError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		is   bool
		kind SQLError
	}{
		{"nil", nil, false, UnknownErr},
		{"no rows", fmt.Errorf("scan: %w", sql.ErrNoRows), true, NoRowsErr},
		{"mysql duplicate", &mysql.MySQLError{Number: 1062}, true, DuplicateKeyErr},
		{"mysql fk", &mysql.MySQLError{Number: 1451}, true, ForeignKeyViolationErr},
		{"mysql other", &mysql.MySQLError{Number: 1205}, true, UnknownErr},
		{"pq unique", &pq.Error{Code: "23505"}, true, DuplicateKeyErr},
		{"pq not null", &pq.Error{Code: "23502"}, true, NotNullViolationErr},
		{"pq fk", &pq.Error{Code: "23503"}, true, ForeignKeyViolationErr},
		{"pq missing table", &pq.Error{Code: "42P01"}, true, NoTableErr},
		{"sqlite unique", errors.New("UNIQUE constraint failed: users.email"), true, DuplicateKeyErr},
		{"sqlite fk", errors.New("FOREIGN KEY constraint failed"), true, ForeignKeyViolationErr},
		{"sqlite not null", errors.New("NOT NULL constraint failed: users.email"), true, NotNullViolationErr},
		{"sqlite check", errors.New("CHECK constraint failed: age"), true, CheckConstraintViolationErr},
		{"sqlite missing table", errors.New("no such table: users"), true, NoTableErr},
		{"unrelated", errors.New("boom"), false, UnknownErr},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			is, kind := IsSqlError(tt.err)
			assert.Equal(t, tt.is, is)
			assert.Equal(t, tt.kind, kind)
		})
	}
}

func TestIsConnectionError(t *testing.T) {
	assert.True(t, IsConnectionError(driver.ErrBadConn))
	assert.True(t, IsConnectionError(fmt.Errorf("tx: %w", sql.ErrConnDone)))
	assert.True(t, IsConnectionError(mysql.ErrInvalidConn))
	assert.True(t, IsConnectionError(&net.OpError{Op: "dial", Err: errors.New("timeout")}))
	assert.True(t, IsConnectionError(errors.New("dial tcp 127.0.0.1:5432: connect: connection refused")))
	assert.False(t, IsConnectionError(errors.New("syntax error")))
	assert.False(t, IsConnectionError(nil))
}

func TestClassify(t *testing.T) {
	assert.Nil(t, Classify(nil))

	err := Classify(&pq.Error{Code: "23505", Message: "duplicate key value"})
	assert.ErrorIs(t, err, repository.ErrConstraintViolation)
	var pqErr *pq.Error
	assert.ErrorAs(t, err, &pqErr)

	err = Classify(driver.ErrBadConn)
	assert.ErrorIs(t, err, repository.ErrConnection)
	assert.ErrorIs(t, err, driver.ErrBadConn)

	plain := errors.New("syntax error at or near")
	assert.Same(t, plain, Classify(plain))

	// classification is not applied twice
	once := Classify(&mysql.MySQLError{Number: 1062})
	assert.Equal(t, once, Classify(once))

	assert.Equal(t, sql.ErrNoRows, Classify(sql.ErrNoRows))
}

func TestSQLErrorIsConstraintViolation(t *testing.T) {
	for _, kind := range []SQLError{DuplicateKeyErr, NotNullViolationErr, ForeignKeyViolationErr, CheckConstraintViolationErr} {
		assert.True(t, kind.IsConstraintViolation())
	}
	for _, kind := range []SQLError{UnknownErr, NoRowsErr, NoTableErr, DataTruncatedErr, InvalidTypeCastErr} {
		assert.False(t, kind.IsConstraintViolation())
	}
}
