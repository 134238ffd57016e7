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
	"errors"
	"time"

	"github.com/quantgraph/kgdata/data"
	"github.com/quantgraph/kgdata/graph"
	"github.com/rs/zerolog/log"
)

// Orchestrator drives a full batch: the one-time company, sector, and
// competitor ingestion followed by the per-date price/statement/write loop.
// One date is fully processed before the next begins; one company is fully
// written before the next within a date.
type Orchestrator struct {
	Store   GraphStore
	Sources Sources

	// RollbackProcessed extends recovery to dates that already completed in
	// this run, making the batch all-or-nothing. On by default to match the
	// upstream pipeline.
	RollbackProcessed bool
}

// New returns an orchestrator with the default all-or-nothing rollback policy.
func New(store GraphStore, sources Sources) *Orchestrator {
	return &Orchestrator{
		Store:             store,
		Sources:           sources,
		RollbackProcessed: true,
	}
}

// Execute runs the batch for the given dates in the order supplied. On a
// run-level failure or interruption it performs compensating deletes for the
// in-flight date and, per policy, every completed date, then reports what was
// rolled back in the summary. The returned error is the run-level cause; the
// summary is always returned.
func (orchestrator *Orchestrator) Execute(ctx context.Context, dates []string) (*data.RunSummary, error) {
	run := newRun(dates)

	err := orchestrator.execute(ctx, run)
	if err != nil {
		log.Error().Err(err).Str("CurrentDate", run.CurrentDate()).Msg("run failed; unwinding per-date writes")
		run.summary.RolledBackDates = orchestrator.recoverRun(run)
	}

	run.summary.EndTime = time.Now()
	return run.summary, err
}

func (orchestrator *Orchestrator) execute(ctx context.Context, run *Run) error {
	if err := checkpoint(ctx); err != nil {
		return err
	}

	if err := orchestrator.Store.EnsureConstraints(ctx); err != nil {
		// Non-fatal: merges still work, they just lose the uniqueness backstop.
		log.Warn().Err(err).Msg("could not ensure every uniqueness constraint")
	}

	universe, err := orchestrator.Sources.Companies.Universe(ctx)
	if err != nil {
		return err
	}
	log.Info().Int("NumCompanies", len(universe)).Msg("collected company universe")

	codes := make([]string, 0, len(universe))
	inUniverse := make(map[string]struct{}, len(universe))
	for _, company := range universe {
		codes = append(codes, company.StockCode)
		inUniverse[company.StockCode] = struct{}{}
	}

	if err := orchestrator.writeNewCompanies(ctx, run, universe); err != nil {
		return err
	}

	if err := checkpoint(ctx); err != nil {
		return err
	}

	if err := orchestrator.writeNewCompetitors(ctx, run, codes, inUniverse); err != nil {
		return err
	}

	for _, date := range run.Dates {
		if err := checkpoint(ctx); err != nil {
			return err
		}
		if err := orchestrator.processDate(ctx, run, date, universe, codes); err != nil {
			return err
		}
	}

	return nil
}

// writeNewCompanies merges Company and Sector nodes for companies the graph
// has not seen. Existing companies are never re-merged for their static
// attributes; the probe keeps the one-time step cheap on re-runs.
func (orchestrator *Orchestrator) writeNewCompanies(ctx context.Context, run *Run, universe []*data.Company) error {
	existing, err := orchestrator.Store.ExistingCompanyCodes(ctx)
	if err != nil {
		return err
	}
	log.Info().Int("NumExisting", len(existing)).Msg("probed existing companies")

	for _, company := range universe {
		if err := checkpoint(ctx); err != nil {
			return err
		}

		if _, ok := existing[company.StockCode]; ok {
			continue
		}

		op, err := graph.CompanyOp(company)
		if err != nil {
			log.Error().Err(err).Str("StockCode", company.StockCode).Msg("could not synthesize company write")
			continue
		}

		if err := orchestrator.Store.Write(ctx, op); err != nil {
			if errors.Is(err, data.ErrStoreUnavailable) {
				return err
			}
			log.Error().Err(err).Str("StockCode", company.StockCode).Msg("could not write company")
			continue
		}

		run.summary.NewCompanies++
	}

	log.Info().Int("NewCompanies", run.summary.NewCompanies).Msg("company ingestion complete")
	return nil
}

// writeNewCompetitors merges COMPETES_WITH edges for ordered pairs not already
// in the graph. Self links and competitors outside the collected universe are
// skipped.
func (orchestrator *Orchestrator) writeNewCompetitors(ctx context.Context, run *Run, codes []string, inUniverse map[string]struct{}) error {
	links, err := orchestrator.Sources.Competitors.Links(ctx, codes)
	if err != nil {
		// The competitor feed is auxiliary; a run without it is still useful.
		log.Warn().Err(err).Msg("could not collect competitor links; skipping competitor ingestion")
		return nil
	}

	existing, err := orchestrator.Store.ExistingCompetitorPairs(ctx)
	if err != nil {
		return err
	}
	log.Info().Int("NumExisting", len(existing)).Msg("probed existing competitor pairs")

	for _, link := range links {
		for _, competitor := range link.CompetitorCodes {
			if err := checkpoint(ctx); err != nil {
				return err
			}

			if competitor == link.StockCode {
				continue
			}
			if _, ok := inUniverse[competitor]; !ok {
				continue
			}

			pair := graph.CompetitorPair{Src: link.StockCode, Dst: competitor}
			if _, ok := existing[pair]; ok {
				continue
			}

			op, err := graph.CompetitorOp(pair.Src, pair.Dst)
			if err != nil {
				log.Error().Err(err).Str("Src", pair.Src).Str("Dst", pair.Dst).Msg("could not synthesize competitor write")
				continue
			}

			if err := orchestrator.Store.Write(ctx, op); err != nil {
				if errors.Is(err, data.ErrStoreUnavailable) {
					return err
				}
				log.Error().Err(err).Str("Src", pair.Src).Str("Dst", pair.Dst).Msg("could not write competitor edge")
				continue
			}

			existing[pair] = struct{}{}
			run.summary.NewCompetitors++
		}
	}

	log.Info().Int("NewCompetitors", run.summary.NewCompetitors).Msg("competitor ingestion complete")
	return nil
}

// processDate runs one cycle of the per-date loop: collect prices, collect
// statements, write the graph for every company with a price record. The
// current-date marker is set before any write and cleared only after the
// write step finishes.
func (orchestrator *Orchestrator) processDate(ctx context.Context, run *Run, date string, universe []*data.Company, codes []string) error {
	run.beginDate(date)

	quotes, err := orchestrator.Sources.Prices.DailyQuotes(ctx, date, codes)
	if err != nil {
		return err
	}

	if err := checkpoint(ctx); err != nil {
		return err
	}

	statements, err := orchestrator.Sources.Statements.Statements(ctx, date, codes)
	if err != nil {
		return err
	}

	if err := checkpoint(ctx); err != nil {
		return err
	}

	quoteByCode := make(map[string]*data.PriceQuote, len(quotes))
	for _, quote := range quotes {
		quoteByCode[quote.StockCode] = quote
	}

	statementsByCode := make(map[string]*data.FinancialStatements, len(statements))
	for _, fs := range statements {
		statementsByCode[fs.StockCode] = fs
	}

	result := data.DateResult{Date: date}
	for _, company := range universe {
		// Interrupts are honored between writes; with the current-date marker
		// still set, recovery unwinds whatever this loop committed so far.
		if err := checkpoint(ctx); err != nil {
			return err
		}

		quote, ok := quoteByCode[company.StockCode]
		if !ok {
			// No price record for this date: counted, skipped, never retried.
			result.Errors++
			continue
		}

		op, err := graph.DailyOp(company, quote, statementsByCode[company.StockCode])
		if err != nil {
			result.Errors++
			log.Error().Err(err).Str("StockCode", company.StockCode).Str("Date", date).Msg("could not synthesize daily write")
			continue
		}

		if err := orchestrator.Store.Write(ctx, op); err != nil {
			if errors.Is(err, data.ErrStoreUnavailable) {
				return err
			}
			result.Errors++
			log.Error().Err(err).Str("StockCode", company.StockCode).Str("Date", date).Msg("could not write daily data")
			continue
		}

		result.Written++
	}

	run.completeDate(result)
	log.Info().Str("Date", date).Int("Written", result.Written).Int("Errors", result.Errors).Msg("date complete")
	return nil
}
