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

package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/tomoncle/users-shared/repository"
)

type MockSession struct {
	mock.Mock
}

var _ repository.Session = (*MockSession)(nil)

func (m *MockSession) Get(ctx context.Context, model any, id any) (any, error) {
	args := m.Called(ctx, model, id)
	return args.Get(0), args.Error(1)
}

func (m *MockSession) Add(entity any) {
	m.Called(entity)
}

func (m *MockSession) Delete(entity any) error {
	args := m.Called(entity)
	return args.Error(0)
}

func (m *MockSession) Commit(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockSession) Refresh(ctx context.Context, entity any) error {
	args := m.Called(ctx, entity)
	return args.Error(0)
}

func (m *MockSession) Exists(ctx context.Context, model any, id any) (bool, error) {
	args := m.Called(ctx, model, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockSession) Contains(entity any) bool {
	args := m.Called(entity)
	return args.Bool(0)
}
