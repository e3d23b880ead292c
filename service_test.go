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

package shared_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	shared "github.com/tomoncle/users-shared"
	"github.com/tomoncle/users-shared/internal/testdb"
	"github.com/tomoncle/users-shared/repository"
)

func TestServiceLifecycle(t *testing.T) {
	m := testdb.Open(t)
	svc := shared.NewService[testdb.User, int64](m.DB())
	ctx := context.Background()

	u, err := svc.Create(ctx, &testdb.User{Email: "ann@example.com", Name: "Ann"})
	require.NoError(t, err)
	require.NotZero(t, u.ID)

	ok, err := svc.Exists(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	updated, err := svc.Update(ctx, u.ID, func(u *testdb.User) error {
		u.Role = "admin"
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "admin", updated.Role)

	got, err := svc.Get(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "admin", got.Role)
	assert.Equal(t, "Ann", got.Name)

	require.NoError(t, svc.Remove(ctx, u.ID))
	got, err = svc.Get(ctx, u.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestServiceMissing(t *testing.T) {
	m := testdb.Open(t)
	svc := shared.NewService[testdb.User, int64](m.DB())
	ctx := context.Background()

	_, err := svc.Update(ctx, 42, func(*testdb.User) error { return nil })
	assert.ErrorIs(t, err, shared.ErrNotFound)
	assert.ErrorIs(t, svc.Remove(ctx, 42), shared.ErrNotFound)
}

func TestServiceUpdateMutateError(t *testing.T) {
	m := testdb.Open(t)
	svc := shared.NewService[testdb.User, int64](m.DB())
	ctx := context.Background()
	u, err := svc.Create(ctx, &testdb.User{Email: "ann@example.com", Name: "Ann"})
	require.NoError(t, err)

	rejected := errors.New("rejected")
	_, err = svc.Update(ctx, u.ID, func(u *testdb.User) error {
		u.Name = "never written"
		return rejected
	})
	assert.ErrorIs(t, err, rejected)

	got, err := svc.Get(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ann", got.Name)
}

func TestServiceConstraintViolation(t *testing.T) {
	m := testdb.Open(t)
	svc := shared.NewService[testdb.User, int64](m.DB())
	ctx := context.Background()

	_, err := svc.Create(ctx, &testdb.User{Email: "ann@example.com"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, &testdb.User{Email: "ann@example.com"})
	assert.ErrorIs(t, err, repository.ErrConstraintViolation)
}

func TestServiceConcurrentCreates(t *testing.T) {
	m := testdb.Open(t)
	svc := shared.NewService[testdb.User, int64](m.DB())
	ctx := context.Background()

	emails := []string{"a@example.com", "b@example.com", "c@example.com", "d@example.com"}
	var wg sync.WaitGroup
	errs := make([]error, len(emails))
	for i, email := range emails {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = svc.Create(ctx, &testdb.User{Email: email})
		}()
	}
	wg.Wait()

	for _, err := range errs {
		assert.NoError(t, err)
	}
	count, err := m.DB().NewSelect().Model((*testdb.User)(nil)).Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, len(emails), count)
}

func TestWithRepositorySharesIdentityMap(t *testing.T) {
	m := testdb.Open(t)
	ctx := context.Background()

	err := shared.WithRepository(ctx, m.DB(), func(ctx context.Context, users repository.Repository[testdb.User, int64]) error {
		u, err := users.Create(ctx, &testdb.User{Email: "ann@example.com"})
		if err != nil {
			return err
		}
		again, err := users.Get(ctx, u.ID)
		if err != nil {
			return err
		}
		assert.Same(t, u, again)
		return nil
	})
	require.NoError(t, err)
}
