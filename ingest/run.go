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
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/quantgraph/kgdata/data"
	"github.com/quantgraph/kgdata/graph"
)

// GraphStore is the slice of the graph layer the orchestrator needs. It is
// satisfied by *graph.Store.
type GraphStore interface {
	EnsureConstraints(ctx context.Context) error
	ExistingCompanyCodes(ctx context.Context) (map[string]struct{}, error)
	ExistingCompetitorPairs(ctx context.Context) (map[graph.CompetitorPair]struct{}, error)
	Write(ctx context.Context, op *graph.WriteOp) error
	DeleteDateSubgraph(ctx context.Context, date string) error
}

// CompanySource produces the full company/sector universe once per run.
type CompanySource interface {
	Universe(ctx context.Context) ([]*data.Company, error)
}

// PriceSource produces the daily quotes available for one date. Companies the
// source has no data for are simply absent from the result.
type PriceSource interface {
	DailyQuotes(ctx context.Context, date string, codes []string) ([]*data.PriceQuote, error)
}

// StatementSource produces the most recent reporting-quarter statements
// available as of one date.
type StatementSource interface {
	Statements(ctx context.Context, date string, codes []string) ([]*data.FinancialStatements, error)
}

// CompetitorSource produces the competitor links for the given universe.
type CompetitorSource interface {
	Links(ctx context.Context, codes []string) ([]*data.CompetitorLink, error)
}

// Sources bundles the collaborators that hand the orchestrator clean records.
type Sources struct {
	Companies   CompanySource
	Prices      PriceSource
	Statements  StatementSource
	Competitors CompetitorSource
}

// Run carries the mutable state of one batch: the current-date marker and the
// processed-dates log the recovery path consumes, plus the summary under
// construction. It is owned by a single goroutine.
type Run struct {
	ID    uuid.UUID
	Dates []string

	currentDate    string
	processedDates []string
	summary        *data.RunSummary
}

func newRun(dates []string) *Run {
	id := uuid.New()
	return &Run{
		ID:    id,
		Dates: dates,
		summary: &data.RunSummary{
			RunID:     id,
			StartTime: time.Now(),
		},
	}
}

// beginDate sets the current-date marker. It must be called before the first
// write for the date so an abort mid-write knows what to unwind.
func (run *Run) beginDate(date string) {
	run.currentDate = date
}

// completeDate clears the marker and appends the date to the processed log.
// Per-company failures do not keep a date out of the log; only an abort before
// the graph-write step finishes does.
func (run *Run) completeDate(result data.DateResult) {
	run.currentDate = ""
	run.processedDates = append(run.processedDates, result.Date)
	run.summary.Dates = append(run.summary.Dates, result)
}

// CurrentDate reports the date whose writes are in flight, or "".
func (run *Run) CurrentDate() string {
	return run.currentDate
}

// ProcessedDates reports the dates whose graph writes completed this run.
func (run *Run) ProcessedDates() []string {
	return run.processedDates
}

// checkpoint observes cooperative cancellation between steps. Termination
// requests are only honored here, never mid-write.
func checkpoint(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %s", data.ErrInterrupted, err)
	}
	return nil
}
