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
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/tomoncle/users-shared/repository"
)

// From maps any error onto an HTTPError. Unknown errors become a generic 500.
func From(err error) *HTTPError {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr
	}
	var echoErr *echo.HTTPError
	if errors.As(err, &echoErr) {
		detail, ok := echoErr.Message.(string)
		if !ok {
			detail = http.StatusText(echoErr.Code)
		}
		return New(echoErr.Code, detail)
	}
	switch {
	case errors.Is(err, repository.ErrConstraintViolation):
		return NewConflictError("Request conflicts with existing data")
	case errors.Is(err, repository.ErrConnection):
		return NewServiceUnavailableError("Storage is unavailable")
	}
	return NewInternalServerError()
}

// ErrorHandler returns an echo.HTTPErrorHandler that renders errors as
// HTTPError JSON. Server faults are logged at error level, client faults at
// warning level.
func ErrorHandler(logger *logrus.Entry) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		httpErr := From(err)

		entry := logger.WithError(err).WithFields(logrus.Fields{
			"status": httpErr.Status,
			"code":   httpErr.Code,
			"path":   c.Request().URL.Path,
		})
		if httpErr.Status >= http.StatusInternalServerError {
			entry.Error(httpErr.Detail)
		} else {
			entry.Warn(httpErr.Detail)
		}

		if c.Response().Committed {
			return
		}
		if err := c.JSON(httpErr.Status, httpErr); err != nil {
			logger.WithError(err).Error("failed to write error response")
		}
	}
}
