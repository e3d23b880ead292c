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
	"bytes"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomoncle/users-shared/errs"
)

func sign(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	// any key works, the signature is never checked
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("gateway-only"))
	require.NoError(t, err)
	return token
}

func newTestExtractor() (*Extractor, *bytes.Buffer) {
	var out bytes.Buffer
	logger := logrus.New()
	logger.SetOutput(&out)
	logger.SetLevel(logrus.DebugLevel)
	logger.SetFormatter(&logrus.JSONFormatter{})
	return NewExtractor(logrus.NewEntry(logger)), &out
}

func assertUnauthorized(t *testing.T, err error, detail string) {
	t.Helper()
	var httpErr *errs.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusUnauthorized, httpErr.Status)
	assert.Equal(t, detail, httpErr.Detail)
}

func TestDecodePayload(t *testing.T) {
	x, _ := newTestExtractor()
	claims, err := x.DecodePayload(sign(t, jwt.MapClaims{"sub": "user_123", "org": "acme"}))
	require.NoError(t, err)
	assert.Equal(t, "user_123", claims["sub"])
	assert.Equal(t, "acme", claims["org"])
}

func TestDecodePayloadIgnoresExpiry(t *testing.T) {
	x, _ := newTestExtractor()
	claims, err := x.DecodePayload(sign(t, jwt.MapClaims{"sub": "user_123", "exp": 1}))
	require.NoError(t, err)
	assert.Equal(t, "user_123", claims["sub"])
}

func TestDecodePayloadInvalid(t *testing.T) {
	x, out := newTestExtractor()
	for _, token := range []string{"", "not-a-jwt", "a.b.c", "eyJhbGciOiJIUzI1NiJ9.bm90LWpzb24.sig"} {
		_, err := x.DecodePayload(token)
		assertUnauthorized(t, err, "Invalid JWT format")
	}
	assert.Contains(t, out.String(), "Failed to decode JWT token")
	assert.Contains(t, out.String(), `"level":"warning"`)
}

func rawToken(header, payload string) string {
	enc := base64.RawURLEncoding
	return enc.EncodeToString([]byte(header)) + "." + enc.EncodeToString([]byte(payload)) + ".c2ln"
}

func TestDecodePayloadAcceptsAnyAlgorithm(t *testing.T) {
	x, _ := newTestExtractor()
	for _, header := range []string{`{"typ":"JWT"}`, `{"alg":"ES256K","typ":"JWT"}`, `{"alg":"none"}`} {
		claims, err := x.DecodePayload(rawToken(header, `{"sub":"user_123"}`))
		require.NoError(t, err, header)
		assert.Equal(t, "user_123", claims["sub"])
	}
}

func TestDecodePayloadRejectsNonObjects(t *testing.T) {
	x, _ := newTestExtractor()
	tests := map[string]string{
		"array payload":  rawToken(`{"alg":"HS256"}`, `["user_123"]`),
		"null payload":   rawToken(`{"alg":"HS256"}`, `null`),
		"string header":  rawToken(`"HS256"`, `{"sub":"user_123"}`),
		"four segments":  rawToken(`{"alg":"HS256"}`, `{"sub":"user_123"}`) + ".extra",
		"bad base64 hdr": "!!!." + base64.RawURLEncoding.EncodeToString([]byte(`{"sub":"x"}`)) + ".sig",
	}
	for name, token := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := x.DecodePayload(token)
			assertUnauthorized(t, err, "Invalid JWT format")
		})
	}
}

func TestSubject(t *testing.T) {
	x, out := newTestExtractor()

	sub, err := x.Subject(jwt.MapClaims{"sub": "user_123"})
	require.NoError(t, err)
	assert.Equal(t, "user_123", sub)
	assert.Contains(t, out.String(), `"subject":"user_123"`)

	for _, claims := range []jwt.MapClaims{{}, {"sub": ""}, {"sub": 42.0}, {"sub": nil}} {
		_, err := x.Subject(claims)
		assertUnauthorized(t, err, "JWT missing 'sub' claim")
	}
}

func TestSubjectFromToken(t *testing.T) {
	x, _ := newTestExtractor()

	sub, err := x.SubjectFromToken(sign(t, jwt.MapClaims{"sub": "user_123"}))
	require.NoError(t, err)
	assert.Equal(t, "user_123", sub)

	_, err = x.SubjectFromToken(sign(t, jwt.MapClaims{"name": "ann"}))
	assertUnauthorized(t, err, "JWT missing 'sub' claim")
}

func TestNewExtractorNilLogger(t *testing.T) {
	_, err := NewExtractor(nil).SubjectFromToken("garbage")
	assertUnauthorized(t, err, "Invalid JWT format")
}

func TestMiddleware(t *testing.T) {
	x, _ := newTestExtractor()
	quiet := logrus.New()
	quiet.SetOutput(&bytes.Buffer{})

	e := echo.New()
	e.HTTPErrorHandler = errs.ErrorHandler(logrus.NewEntry(quiet))
	e.GET("/me", func(c echo.Context) error {
		sub, ok := SubjectFrom(c)
		if !ok {
			return echo.ErrInternalServerError
		}
		return c.String(http.StatusOK, sub)
	}, x.Middleware())

	tests := []struct {
		name   string
		header string
		status int
		body   string
	}{
		{"valid", "Bearer " + sign(t, jwt.MapClaims{"sub": "user_123"}), 200, "user_123"},
		{"lowercase scheme", "bearer " + sign(t, jwt.MapClaims{"sub": "user_9"}), 200, "user_9"},
		{"missing header", "", 401, `{"code":"UNAUTHORIZED","detail":"Not authenticated","status":401}`},
		{"basic scheme", "Basic dXNlcjpwYXNz", 401, `{"code":"UNAUTHORIZED","detail":"Not authenticated","status":401}`},
		{"empty token", "Bearer ", 401, `{"code":"UNAUTHORIZED","detail":"Not authenticated","status":401}`},
		{"malformed", "Bearer abc", 401, `{"code":"UNAUTHORIZED","detail":"Invalid JWT format","status":401}`},
		{"no sub", "Bearer " + sign(t, jwt.MapClaims{"iss": "gw"}), 401, `{"code":"UNAUTHORIZED","detail":"JWT missing 'sub' claim","status":401}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set(echo.HeaderAuthorization, tt.header)
			}
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)

			assert.Equal(t, tt.status, rec.Code)
			if tt.status == http.StatusOK {
				assert.Equal(t, tt.body, rec.Body.String())
			} else {
				assert.JSONEq(t, tt.body, rec.Body.String())
			}
		})
	}
}

func TestSubjectFromWithoutMiddleware(t *testing.T) {
	c := echo.New().NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	_, ok := SubjectFrom(c)
	assert.False(t, ok)
}
