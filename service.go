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

package shared

import (
	"context"
	"errors"

	"github.com/uptrace/bun"

	"github.com/tomoncle/users-shared/database"
	"github.com/tomoncle/users-shared/repository"
)

// ErrNotFound is returned by Update and Remove when no row has the given id.
var ErrNotFound = errors.New("entity not found")

// Service runs each call in its own session scope, so it is safe for
// concurrent use even though sessions are not.
type Service[T any, ID comparable] interface {
	// Create inserts a transient entity and returns it with generated fields.
	Create(ctx context.Context, entity *T) (*T, error)

	// Get returns the entity for id, or nil when it does not exist.
	Get(ctx context.Context, id ID) (*T, error)

	// Exists reports whether a row with id exists.
	Exists(ctx context.Context, id ID) (bool, error)

	// Update loads the entity, applies mutate and saves the changed columns.
	Update(ctx context.Context, id ID, mutate func(*T) error) (*T, error)

	// Remove deletes the entity for id.
	Remove(ctx context.Context, id ID) error
}

type baseServiceImpl[T any, ID comparable] struct {
	db *bun.DB
}

// NewService returns a Service backed by db.
func NewService[T any, ID comparable](db *bun.DB) Service[T, ID] {
	return &baseServiceImpl[T, ID]{db: db}
}

// WithRepository opens a session scope, binds a repository for T to it and
// runs fn. Use it when several operations must share one identity map.
func WithRepository[T any, ID comparable](ctx context.Context, db *bun.DB, fn func(ctx context.Context, repo repository.Repository[T, ID]) error) error {
	return database.Scope(ctx, db, func(ctx context.Context, s *database.Session) error {
		return fn(ctx, repository.NewRepository[T, ID](s))
	})
}

func (s *baseServiceImpl[T, ID]) Create(ctx context.Context, entity *T) (created *T, err error) {
	err = WithRepository(ctx, s.db, func(ctx context.Context, repo repository.Repository[T, ID]) error {
		created, err = repo.Create(ctx, entity)
		return err
	})
	return created, err
}

func (s *baseServiceImpl[T, ID]) Get(ctx context.Context, id ID) (found *T, err error) {
	err = WithRepository(ctx, s.db, func(ctx context.Context, repo repository.Repository[T, ID]) error {
		found, err = repo.Get(ctx, id)
		return err
	})
	return found, err
}

func (s *baseServiceImpl[T, ID]) Exists(ctx context.Context, id ID) (ok bool, err error) {
	err = WithRepository(ctx, s.db, func(ctx context.Context, repo repository.Repository[T, ID]) error {
		ok, err = repo.Exists(ctx, id)
		return err
	})
	return ok, err
}

func (s *baseServiceImpl[T, ID]) Update(ctx context.Context, id ID, mutate func(*T) error) (saved *T, err error) {
	err = WithRepository(ctx, s.db, func(ctx context.Context, repo repository.Repository[T, ID]) error {
		entity, err := repo.Get(ctx, id)
		if err != nil {
			return err
		}
		if entity == nil {
			return ErrNotFound
		}
		if err := mutate(entity); err != nil {
			return err
		}
		saved, err = repo.Save(ctx, entity)
		return err
	})
	return saved, err
}

func (s *baseServiceImpl[T, ID]) Remove(ctx context.Context, id ID) error {
	return WithRepository(ctx, s.db, func(ctx context.Context, repo repository.Repository[T, ID]) error {
		entity, err := repo.Get(ctx, id)
		if err != nil {
			return err
		}
		if entity == nil {
			return ErrNotFound
		}
		return repo.Delete(ctx, entity)
	})
}
