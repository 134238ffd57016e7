// Copyright 2024
// SPDX-License-Identifier: Apache-2.0
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package graph

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
)

var constraintStatements = []string{
	`CREATE CONSTRAINT company_stock_code IF NOT EXISTS FOR (c:Company) REQUIRE c.stock_code IS UNIQUE`,
	`CREATE CONSTRAINT date_date IF NOT EXISTS FOR (d:Date) REQUIRE d.date IS UNIQUE`,
	`CREATE CONSTRAINT quarter_year_quarter IF NOT EXISTS FOR (q:Quarter) REQUIRE (q.year, q.quarter) IS UNIQUE`,
	`CREATE CONSTRAINT year_year IF NOT EXISTS FOR (y:Year) REQUIRE y.year IS UNIQUE`,
	`CREATE CONSTRAINT sector_name IF NOT EXISTS FOR (s:Sector) REQUIRE s.sector_name IS UNIQUE`,
}

// EnsureConstraints declares the uniqueness constraints for every keyed node
// label. Safe to call before every run; IF NOT EXISTS makes re-declaration a
// no-op. A failed declaration is reported but the caller may proceed --
// duplicate keys afterwards are a data-integrity problem, not a crash.
func (store *Store) EnsureConstraints(ctx context.Context) error {
	var failures []error
	for _, statement := range constraintStatements {
		if err := store.writeCypher(ctx, statement, nil); err != nil {
			log.Warn().Err(err).Str("Statement", statement).Msg("could not ensure constraint")
			failures = append(failures, fmt.Errorf("ensure constraint: %w", err))
		}
	}

	return errors.Join(failures...)
}
