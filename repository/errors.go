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

package repository

import "errors"

var (
	// ErrConstraintViolation marks writes or deletes rejected by integrity
	// rules: unique, foreign-key, not-null and check constraints.
	ErrConstraintViolation = errors.New("constraint violation")

	// ErrConnection marks failures to reach the store.
	ErrConnection = errors.New("store connection error")

	// ErrDetached is returned when Save or Delete receives an entity that is
	// not attached to the repository's session.
	ErrDetached = errors.New("entity is not attached to the session")

	// ErrNilEntity is returned when a nil entity pointer is passed in.
	ErrNilEntity = errors.New("entity cannot be nil")
)
