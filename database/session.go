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

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"reflect"

	"github.com/mitchellh/copystructure"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/schema"

	"github.com/tomoncle/users-shared/repository"
)

// Session is a Bun-backed unit of work. It keeps an identity map of the
// entities it loaded or inserted and a column snapshot of each, so Commit
// writes only the columns that changed since the last load or refresh.
//
// A Session must not be shared between goroutines. Mutating a slice or map
// field in place is not detected; assign a new value instead.
type Session struct {
	db       *bun.DB
	tracked  map[any]*trackedEntity
	order    []any
	identity map[identityKey]any
	added    []any
	removed  []any
	addErr   error
}

type trackedEntity struct {
	table    *schema.Table
	snapshot reflect.Value
	key      identityKey
	keyed    bool
}

type identityKey struct {
	typ reflect.Type
	id  any
}

var _ repository.Session = (*Session)(nil)

// NewSession opens an empty unit of work on db.
func NewSession(db *bun.DB) *Session {
	return &Session{
		db:       db,
		tracked:  make(map[any]*trackedEntity),
		identity: make(map[identityKey]any),
	}
}

// Scope runs fn with a fresh session and closes it afterwards, discarding any
// work fn staged but did not commit.
func Scope(ctx context.Context, db *bun.DB, fn func(ctx context.Context, s *Session) error) error {
	s := NewSession(db)
	defer s.Close()
	return fn(ctx, s)
}

func (s *Session) Get(ctx context.Context, model any, id any) (any, error) {
	table, v, err := s.resolve(model)
	if err != nil {
		return nil, err
	}
	pk, err := primaryKey(table)
	if err != nil {
		return nil, err
	}
	if key, ok := newIdentityKey(v.Type(), id); ok {
		if found, hit := s.identity[key]; hit {
			return found, nil
		}
	}

	if v.IsNil() {
		v = reflect.New(v.Type().Elem())
		model = v.Interface()
	}
	err = s.db.NewSelect().
		Model(model).
		Where("?TableAlias.? = ?", bun.Ident(pk.Name), id).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, Classify(err)
	}
	return s.attach(table, v), nil
}

func (s *Session) Add(entity any) {
	if !isEntityPointer(entity) {
		s.addErr = errors.Join(s.addErr, fmt.Errorf("entity must be a non-nil pointer to a struct, got %T", entity))
		return
	}
	if _, ok := s.tracked[entity]; ok || indexOf(s.added, entity) >= 0 {
		return
	}
	s.added = append(s.added, entity)
}

// Delete removes an entity staged by Add without touching the store, and
// stages attached entities for removal.
func (s *Session) Delete(entity any) error {
	if !isEntityPointer(entity) {
		return fmt.Errorf("entity must be a non-nil pointer to a struct, got %T", entity)
	}
	if i := indexOf(s.added, entity); i >= 0 {
		s.added = append(s.added[:i], s.added[i+1:]...)
		return nil
	}
	if _, ok := s.tracked[entity]; !ok {
		return repository.ErrDetached
	}
	if indexOf(s.removed, entity) < 0 {
		s.removed = append(s.removed, entity)
	}
	return nil
}

type pendingUpdate struct {
	entity  any
	columns []string
}

// Commit flushes staged work in one transaction. On failure the transaction
// is rolled back and the staged inserts and removals are dropped.
func (s *Session) Commit(ctx context.Context) error {
	added, removed, addErr := s.added, s.removed, s.addErr
	s.added, s.removed, s.addErr = nil, nil, nil
	if addErr != nil {
		return addErr
	}

	var updates []pendingUpdate
	for _, entity := range s.order {
		if indexOf(removed, entity) >= 0 {
			continue
		}
		if cols := s.tracked[entity].dirtyColumns(reflect.ValueOf(entity)); len(cols) > 0 {
			updates = append(updates, pendingUpdate{entity: entity, columns: cols})
		}
	}
	if len(added) == 0 && len(removed) == 0 && len(updates) == 0 {
		return nil
	}

	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		for _, entity := range added {
			if _, err := tx.NewInsert().Model(entity).Exec(ctx); err != nil {
				return err
			}
		}
		for _, u := range updates {
			if _, err := tx.NewUpdate().Model(u.entity).Column(u.columns...).WherePK().Exec(ctx); err != nil {
				return err
			}
		}
		for _, entity := range removed {
			if _, err := tx.NewDelete().Model(entity).WherePK().Exec(ctx); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return Classify(err)
	}

	for _, entity := range added {
		table, v, _ := s.resolve(entity)
		s.attach(table, v)
	}
	for _, u := range updates {
		s.tracked[u.entity].snapshot = snapshot(reflect.ValueOf(u.entity))
	}
	for _, entity := range removed {
		s.detach(entity)
	}
	return nil
}

func (s *Session) Refresh(ctx context.Context, entity any) error {
	if !s.Contains(entity) {
		return repository.ErrDetached
	}
	err := s.db.NewSelect().Model(entity).WherePK().Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		s.detach(entity)
		return fmt.Errorf("refresh %T: row no longer exists: %w", entity, err)
	}
	if err != nil {
		return Classify(err)
	}
	s.tracked[entity].snapshot = snapshot(reflect.ValueOf(entity))
	return nil
}

func (s *Session) Exists(ctx context.Context, model any, id any) (bool, error) {
	table, _, err := s.resolve(model)
	if err != nil {
		return false, err
	}
	pk, err := primaryKey(table)
	if err != nil {
		return false, err
	}
	exists, err := s.db.NewSelect().
		Model(model).
		ColumnExpr("?TableAlias.?", bun.Ident(pk.Name)).
		Where("?TableAlias.? = ?", bun.Ident(pk.Name), id).
		Exists(ctx)
	if err != nil {
		return false, Classify(err)
	}
	return exists, nil
}

func (s *Session) Contains(entity any) bool {
	if !isEntityPointer(entity) {
		return false
	}
	_, ok := s.tracked[entity]
	return ok
}

// Close detaches every entity and drops staged work. The session can be
// reused afterwards.
func (s *Session) Close() {
	s.tracked = make(map[any]*trackedEntity)
	s.identity = make(map[identityKey]any)
	s.order = nil
	s.added = nil
	s.removed = nil
	s.addErr = nil
}

// attach starts tracking v and returns the tracked instance for its key,
// which is an existing one when the row was already loaded.
func (s *Session) attach(table *schema.Table, v reflect.Value) any {
	entity := v.Interface()
	t := &trackedEntity{table: table, snapshot: snapshot(v)}
	if len(table.PKs) == 1 {
		id := table.PKs[0].Value(v.Elem()).Interface()
		if key, ok := newIdentityKey(v.Type(), id); ok {
			if existing, hit := s.identity[key]; hit && existing != entity {
				return existing
			}
			t.key, t.keyed = key, true
			s.identity[key] = entity
		}
	}
	if _, ok := s.tracked[entity]; !ok {
		s.order = append(s.order, entity)
	}
	s.tracked[entity] = t
	return entity
}

func (s *Session) detach(entity any) {
	t, ok := s.tracked[entity]
	if !ok {
		return
	}
	if t.keyed {
		delete(s.identity, t.key)
	}
	delete(s.tracked, entity)
	if i := indexOf(s.order, entity); i >= 0 {
		s.order = append(s.order[:i], s.order[i+1:]...)
	}
}

func (s *Session) resolve(model any) (*schema.Table, reflect.Value, error) {
	v := reflect.ValueOf(model)
	if !v.IsValid() || v.Kind() != reflect.Pointer || v.Type().Elem().Kind() != reflect.Struct {
		return nil, reflect.Value{}, fmt.Errorf("model must be a pointer to a struct, got %T", model)
	}
	return s.db.Table(v.Type().Elem()), v, nil
}

func (t *trackedEntity) dirtyColumns(v reflect.Value) []string {
	cur := v.Elem()
	var cols []string
	for _, f := range t.table.DataFields {
		if !reflect.DeepEqual(f.Value(cur).Interface(), f.Value(t.snapshot).Interface()) {
			cols = append(cols, f.Name)
		}
	}
	return cols
}

func primaryKey(table *schema.Table) (*schema.Field, error) {
	if len(table.PKs) != 1 {
		return nil, fmt.Errorf("table %s must have exactly one primary key column, has %d", table.Name, len(table.PKs))
	}
	return table.PKs[0], nil
}

func newIdentityKey(typ reflect.Type, id any) (identityKey, bool) {
	if id == nil || !reflect.TypeOf(id).Comparable() {
		return identityKey{}, false
	}
	return identityKey{typ: typ, id: id}, true
}

// snapshot deep-copies the struct behind v into an addressable value.
func snapshot(v reflect.Value) reflect.Value {
	dst := reflect.New(v.Elem().Type()).Elem()
	copied, err := copystructure.Copy(v.Elem().Interface())
	if err != nil {
		dst.Set(v.Elem())
		return dst
	}
	dst.Set(reflect.ValueOf(copied))
	return dst
}

func isEntityPointer(entity any) bool {
	v := reflect.ValueOf(entity)
	return v.IsValid() && v.Kind() == reflect.Pointer && !v.IsNil() && v.Type().Elem().Kind() == reflect.Struct
}

func indexOf(list []any, entity any) int {
	for i, e := range list {
		if e == entity {
			return i
		}
	}
	return -1
}
