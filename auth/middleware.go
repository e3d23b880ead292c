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

package auth

import (
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/tomoncle/users-shared/errs"
)

const subjectKey = "auth.subject"

// Middleware requires an "Authorization: Bearer <token>" header and stores the
// token subject on the echo context.
func (x *Extractor) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token, ok := bearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
			if !ok {
				return errs.NewUnauthorizedError(DetailNotAuthenticated)
			}
			sub, err := x.SubjectFromToken(token)
			if err != nil {
				return err
			}
			c.Set(subjectKey, sub)
			return next(c)
		}
	}
}

// SubjectFrom returns the subject stored by Middleware.
func SubjectFrom(c echo.Context) (string, bool) {
	sub, ok := c.Get(subjectKey).(string)
	return sub, ok && sub != ""
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
