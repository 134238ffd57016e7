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
package ingest

import (
	"context"

	"github.com/rs/zerolog/log"
)

// recoverRun unwinds the run's per-date writes after a fatal error or an
// interruption: first the in-flight date, then every completed date when the
// all-or-nothing policy is on. Each per-company write committed on its own, so
// this is compensating deletion by date key, not a storage-level rollback.
// Best effort throughout; failures are logged and never re-raised. The
// one-time company, sector, and competitor data is left in place.
func (orchestrator *Orchestrator) recoverRun(run *Run) []string {
	// The run context is usually already canceled by the time we get here.
	ctx := context.Background()

	var rolledBack []string

	if current := run.CurrentDate(); current != "" {
		if err := orchestrator.Store.DeleteDateSubgraph(ctx, current); err != nil {
			log.Error().Err(err).Str("Date", current).Msg("could not delete in-flight date subgraph")
		} else {
			log.Info().Str("Date", current).Msg("rolled back in-flight date")
			rolledBack = append(rolledBack, current)
		}
	}

	if !orchestrator.RollbackProcessed {
		return rolledBack
	}

	for _, date := range run.ProcessedDates() {
		if err := orchestrator.Store.DeleteDateSubgraph(ctx, date); err != nil {
			log.Error().Err(err).Str("Date", date).Msg("could not delete completed date subgraph")
			continue
		}
		log.Info().Str("Date", date).Msg("rolled back completed date")
		rolledBack = append(rolledBack, date)
	}

	return rolledBack
}
