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

// Package auth extracts the caller identity from gateway-verified bearer
// tokens.
//
// The extractor never checks signatures or registered claims such as exp. It
// must only be mounted behind an API gateway that has already verified the
// token; exposed directly, any client can claim any subject.
package auth

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"

	"github.com/tomoncle/users-shared/errs"
)

const (
	DetailInvalidFormat    = "Invalid JWT format"
	DetailMissingSubject   = "JWT missing 'sub' claim"
	DetailNotAuthenticated = "Not authenticated"
)

type Extractor struct {
	parser *jwt.Parser
	logger *logrus.Entry
}

// NewExtractor returns an Extractor logging through logger. A nil logger
// discards output.
func NewExtractor(logger *logrus.Entry) *Extractor {
	if logger == nil {
		silent := logrus.New()
		silent.SetLevel(logrus.PanicLevel)
		logger = logrus.NewEntry(silent)
	}
	return &Extractor{
		parser: jwt.NewParser(),
		logger: logger,
	}
}

// DecodePayload returns the token's claims without verifying it. The header
// must be a JSON object but its alg is not inspected, so tokens signed with
// algorithms this process does not know are still accepted.
func (x *Extractor) DecodePayload(token string) (jwt.MapClaims, error) {
	claims, err := x.decode(token)
	if err != nil {
		x.logger.WithError(err).Warn("Failed to decode JWT token")
		return nil, errs.NewUnauthorizedError(DetailInvalidFormat)
	}
	return claims, nil
}

func (x *Extractor) decode(token string) (jwt.MapClaims, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return nil, fmt.Errorf("token has %d segments, want 3", len(parts))
	}

	var header map[string]any
	if err := x.unmarshalSegment(parts[0], &header); err != nil {
		return nil, fmt.Errorf("header: %w", err)
	}
	claims := jwt.MapClaims{}
	if err := x.unmarshalSegment(parts[1], &claims); err != nil {
		return nil, fmt.Errorf("payload: %w", err)
	}
	return claims, nil
}

// unmarshalSegment decodes one base64url segment holding a JSON object.
func (x *Extractor) unmarshalSegment(segment string, dst any) error {
	raw, err := x.parser.DecodeSegment(segment)
	if err != nil {
		return err
	}
	if !bytes.HasPrefix(bytes.TrimSpace(raw), []byte("{")) {
		return errors.New("not a JSON object")
	}
	return json.Unmarshal(raw, dst)
}

// Subject returns the non-empty string "sub" claim.
func (x *Extractor) Subject(claims jwt.MapClaims) (string, error) {
	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		x.logger.Warn("JWT token missing 'sub' claim")
		return "", errs.NewUnauthorizedError(DetailMissingSubject)
	}
	x.logger.WithField("subject", sub).Debug("Extracted subject from JWT")
	return sub, nil
}

func (x *Extractor) SubjectFromToken(token string) (string, error) {
	claims, err := x.DecodePayload(token)
	if err != nil {
		return "", err
	}
	return x.Subject(claims)
}
