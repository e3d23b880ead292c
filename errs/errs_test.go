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

package errs

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"

	"github.com/tomoncle/users-shared/repository"
)

func TestCodeFor(t *testing.T) {
	assert.Equal(t, "UNAUTHORIZED", CodeFor(http.StatusUnauthorized))
	assert.Equal(t, "INTERNAL_SERVER_ERROR", CodeFor(http.StatusInternalServerError))
	assert.Equal(t, "UNKNOWN_ERROR", CodeFor(799))
}

func TestHTTPErrorIs(t *testing.T) {
	err := fmt.Errorf("auth: %w", NewUnauthorizedError("Invalid JWT format"))
	assert.True(t, errors.Is(err, NewUnauthorizedError("")))
	assert.False(t, errors.Is(err, NewNotFoundError("")))
	assert.Equal(t, "auth: Invalid JWT format", err.Error())
}

func TestFrom(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		detail string
	}{
		{"http error", NewUnauthorizedError("Not authenticated"), 401, "Not authenticated"},
		{"echo error", echo.NewHTTPError(http.StatusNotFound, "no route"), 404, "no route"},
		{"echo error without message", &echo.HTTPError{Code: http.StatusMethodNotAllowed, Message: 1}, 405, "Method Not Allowed"},
		{"constraint", fmt.Errorf("%w: unique", repository.ErrConstraintViolation), 409, "Request conflicts with existing data"},
		{"connection", repository.ErrConnection, 503, "Storage is unavailable"},
		{"unknown", errors.New("boom"), 500, "Internal Server Error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := From(tt.err)
			assert.Equal(t, tt.status, got.Status)
			assert.Equal(t, tt.detail, got.Detail)
			assert.Equal(t, CodeFor(tt.status), got.Code)
		})
	}
}

func TestErrorHandlerRendersJSON(t *testing.T) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	ErrorHandler(logrus.NewEntry(logger))(NewUnauthorizedError("JWT missing 'sub' claim"), c)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"code":"UNAUTHORIZED","detail":"JWT missing 'sub' claim","status":401}`, rec.Body.String())
}
