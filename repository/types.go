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

import (
	"context"
)

// Session is the unit of work a Repository delegates to. Implementations track
// the entities they load or persist and are confined to a single goroutine.
// The session is owned by the caller; repositories never close it.
type Session interface {
	// Get loads the entity of model's type whose primary key equals id. It
	// returns the session-tracked instance, or nil when no row matches.
	Get(ctx context.Context, model any, id any) (any, error)

	// Add stages a transient entity for insertion on the next Commit.
	Add(entity any)

	// Delete stages an attached entity for removal on the next Commit.
	Delete(entity any) error

	// Commit flushes staged inserts, dirty columns and removals in one transaction.
	Commit(ctx context.Context) error

	// Refresh reloads every column of an attached entity from the store.
	Refresh(ctx context.Context, entity any) error

	// Exists reports whether a row with the given primary key is stored,
	// projecting the key column only.
	Exists(ctx context.Context, model any, id any) (bool, error)

	// Contains reports whether entity is attached to the session.
	Contains(entity any) bool
}

// Repository is the data-access surface for a single entity type T keyed by ID.
type Repository[T any, ID comparable] interface {
	// Create persists a transient entity and returns it with store-generated
	// fields populated.
	Create(ctx context.Context, entity *T) (*T, error)

	// Get returns the entity stored under id, or nil when there is none.
	Get(ctx context.Context, id ID) (*T, error)

	// Exists reports whether an entity is stored under id.
	Exists(ctx context.Context, id ID) (bool, error)

	// Save commits pending mutations of an attached entity and refreshes it.
	Save(ctx context.Context, entity *T) (*T, error)

	// Delete removes a persistent entity.
	Delete(ctx context.Context, entity *T) error
}
