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
	"fmt"
)

type baseRepositoryImpl[T any, ID comparable] struct {
	session Session
}

// NewRepository returns a generic repository bound to the given session.
func NewRepository[T any, ID comparable](session Session) Repository[T, ID] {
	return &baseRepositoryImpl[T, ID]{session: session}
}

func (r *baseRepositoryImpl[T, ID]) Create(ctx context.Context, entity *T) (*T, error) {
	if entity == nil {
		return nil, ErrNilEntity
	}
	r.session.Add(entity)
	return r.commitAndRefresh(ctx, entity)
}

func (r *baseRepositoryImpl[T, ID]) Get(ctx context.Context, id ID) (*T, error) {
	found, err := r.session.Get(ctx, new(T), id)
	if err != nil || found == nil {
		return nil, err
	}
	entity, ok := found.(*T)
	if !ok {
		return nil, fmt.Errorf("session returned %T, expected %T", found, entity)
	}
	return entity, nil
}

func (r *baseRepositoryImpl[T, ID]) Exists(ctx context.Context, id ID) (bool, error) {
	return r.session.Exists(ctx, (*T)(nil), id)
}

// Save refuses entities the session does not track, so a detached value is
// never silently re-attached.
func (r *baseRepositoryImpl[T, ID]) Save(ctx context.Context, entity *T) (*T, error) {
	if entity == nil {
		return nil, ErrNilEntity
	}
	if !r.session.Contains(entity) {
		return nil, ErrDetached
	}
	return r.commitAndRefresh(ctx, entity)
}

func (r *baseRepositoryImpl[T, ID]) Delete(ctx context.Context, entity *T) error {
	if entity == nil {
		return ErrNilEntity
	}
	if err := r.session.Delete(entity); err != nil {
		return err
	}
	return r.session.Commit(ctx)
}

func (r *baseRepositoryImpl[T, ID]) commitAndRefresh(ctx context.Context, entity *T) (*T, error) {
	if err := r.session.Commit(ctx); err != nil {
		return nil, err
	}
	if err := r.session.Refresh(ctx, entity); err != nil {
		return nil, err
	}
	return entity, nil
}
