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
	"fmt"

	"github.com/uptrace/bun"
)

// CreateTables registers every model with db and creates the missing tables in
// ascending priority order inside one transaction.
func CreateTables(ctx context.Context, db *bun.DB, registry ModelRegistry, logger Logger) error {
	if db == nil {
		return fmt.Errorf("database not initialized")
	}
	if logger == nil {
		logger = nopLogger{}
	}
	models := registry.Models()
	db.RegisterModel(registry.Instances()...)

	return db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		for _, model := range models {
			query := tx.NewCreateTable().Model(model.Instance()).IfNotExists()
			for _, fk := range model.ForeignKeys() {
				query = query.ForeignKey(fk)
			}
			if _, err := query.Exec(ctx); err != nil {
				return fmt.Errorf("failed to create table for %T: %w", model.Instance(), Classify(err))
			}
			logger.Debug("Table ensured", "model", fmt.Sprintf("%T", model.Instance()))
		}
		return nil
	})
}
