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

// Package errs defines the error shape returned to HTTP clients.
package errs

import (
	"net/http"
	"strings"
)

// HTTPError is serialised as {"code":"UNAUTHORIZED","detail":"...","status":401}.
type HTTPError struct {
	Code   string `json:"code"`
	Detail string `json:"detail"`
	Status int    `json:"status"`
}

func (e *HTTPError) Error() string {
	return e.Detail
}

// Is matches any *HTTPError with the same status, so callers can write
// errors.Is(err, errs.NewUnauthorizedError("")).
func (e *HTTPError) Is(target error) bool {
	t, ok := target.(*HTTPError)
	return ok && t.Status == e.Status
}

// New builds an HTTPError whose code is derived from the status text.
func New(status int, detail string) *HTTPError {
	return &HTTPError{
		Code:   CodeFor(status),
		Detail: detail,
		Status: status,
	}
}

func NewUnauthorizedError(detail string) *HTTPError {
	return New(http.StatusUnauthorized, detail)
}

func NewNotFoundError(detail string) *HTTPError {
	return New(http.StatusNotFound, detail)
}

func NewConflictError(detail string) *HTTPError {
	return New(http.StatusConflict, detail)
}

func NewServiceUnavailableError(detail string) *HTTPError {
	return New(http.StatusServiceUnavailable, detail)
}

// NewInternalServerError hides the underlying cause behind the generic status
// text.
func NewInternalServerError() *HTTPError {
	return New(http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
}

// CodeFor turns a status into its machine code, e.g. 404 -> "NOT_FOUND".
func CodeFor(status int) string {
	text := http.StatusText(status)
	if text == "" {
		text = "Unknown Error"
	}
	return strings.ToUpper(strings.ReplaceAll(text, " ", "_"))
}
