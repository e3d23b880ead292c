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

// Package middleware holds echo middleware shared by the users service.
package middleware

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"

	"github.com/tomoncle/users-shared/auth"
	"github.com/tomoncle/users-shared/errs"
)

// AccessLog writes one line per request to logger. Pass the entry returned
// by logging.Factory.Named("http.access"); it discards everything unless
// log.access (LOG_ACCESS) is set.
func AccessLog(logger *logrus.Entry) echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:       true,
		LogStatus:    true,
		LogError:     true,
		LogLatency:   true,
		LogMethod:    true,
		LogRemoteIP:  true,
		LogUserAgent: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			// the error handler has not written the final status yet
			status := v.Status
			if v.Error != nil {
				var httpErr *errs.HTTPError
				var echoErr *echo.HTTPError
				switch {
				case errors.As(v.Error, &httpErr):
					status = httpErr.Status
				case errors.As(v.Error, &echoErr):
					status = echoErr.Code
				default:
					status = http.StatusInternalServerError
				}
			}

			entry := logger.WithFields(logrus.Fields{
				"method":     v.Method,
				"uri":        v.URI,
				"status":     status,
				"latency":    v.Latency.String(),
				"ip":         v.RemoteIP,
				"user_agent": v.UserAgent,
			})
			if sub, ok := auth.SubjectFrom(c); ok {
				entry = entry.WithField("subject", sub)
			}

			switch {
			case status >= http.StatusInternalServerError:
				if v.Error != nil {
					entry = entry.WithError(v.Error)
				}
				entry.Error("request")
			case status >= http.StatusBadRequest:
				entry.Warn("request")
			default:
				entry.Info("request")
			}
			return nil
		},
	})
}

// Recover turns handler panics into 500 responses. Mount it inside AccessLog
// so recovered requests are still logged.
func Recover() echo.MiddlewareFunc {
	return middleware.Recover()
}
