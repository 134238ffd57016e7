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
	"fmt"
	"testing"

	"github.com/quantgraph/kgdata/data"
	"github.com/quantgraph/kgdata/graph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeStore records every write and delete so tests can assert on exactly
// what reached the graph.
type fakeStore struct {
	existingCodes map[string]struct{}
	existingPairs map[graph.CompetitorPair]struct{}

	writes  []*graph.WriteOp
	deleted []string

	// failWriteAt makes the Nth Write call (1-based) fail with failWriteErr.
	failWriteAt  int
	failWriteErr error

	// onWrite runs before the Nth write returns; tests use it to cancel the run.
	onWrite func(n int)

	constraintsErr error
	probeErr       error
	deleteErr      error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		existingCodes: map[string]struct{}{},
		existingPairs: map[graph.CompetitorPair]struct{}{},
	}
}

func (store *fakeStore) EnsureConstraints(_ context.Context) error {
	return store.constraintsErr
}

func (store *fakeStore) ExistingCompanyCodes(_ context.Context) (map[string]struct{}, error) {
	if store.probeErr != nil {
		return nil, store.probeErr
	}
	return store.existingCodes, nil
}

func (store *fakeStore) ExistingCompetitorPairs(_ context.Context) (map[graph.CompetitorPair]struct{}, error) {
	if store.probeErr != nil {
		return nil, store.probeErr
	}
	return store.existingPairs, nil
}

func (store *fakeStore) Write(_ context.Context, op *graph.WriteOp) error {
	store.writes = append(store.writes, op)
	if store.onWrite != nil {
		store.onWrite(len(store.writes))
	}
	if store.failWriteAt > 0 && len(store.writes) == store.failWriteAt {
		return store.failWriteErr
	}
	return nil
}

func (store *fakeStore) DeleteDateSubgraph(_ context.Context, date string) error {
	if store.deleteErr != nil {
		return store.deleteErr
	}
	store.deleted = append(store.deleted, date)
	return nil
}

type fakeCompanies struct {
	universe []*data.Company
	err      error
}

func (src *fakeCompanies) Universe(_ context.Context) ([]*data.Company, error) {
	return src.universe, src.err
}

type fakePrices struct {
	quotes map[string][]*data.PriceQuote
	err    error

	// onFetch runs before each per-date fetch; tests use it to cancel the run.
	onFetch func(date string)
}

func (src *fakePrices) DailyQuotes(ctx context.Context, date string, _ []string) ([]*data.PriceQuote, error) {
	if src.onFetch != nil {
		src.onFetch(date)
	}
	if src.err != nil {
		return nil, src.err
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %s", data.ErrInterrupted, err)
	}
	return src.quotes[date], nil
}

type fakeStatements struct {
	statements []*data.FinancialStatements
	err        error
}

func (src *fakeStatements) Statements(_ context.Context, _ string, _ []string) ([]*data.FinancialStatements, error) {
	return src.statements, src.err
}

type fakeCompetitors struct {
	links []*data.CompetitorLink
	err   error
}

func (src *fakeCompetitors) Links(_ context.Context, _ []string) ([]*data.CompetitorLink, error) {
	return src.links, src.err
}

func twoCompanyUniverse() []*data.Company {
	return []*data.Company{
		{StockCode: "005930", Name: "Samsung Electronics", SectorName: "Electronics"},
		{StockCode: "000660", Name: "SK hynix", SectorName: "Electronics"},
	}
}

func quotesFor(date string, codes ...string) []*data.PriceQuote {
	quotes := make([]*data.PriceQuote, 0, len(codes))
	for _, code := range codes {
		quotes = append(quotes, &data.PriceQuote{StockCode: code, Date: date, Close: 100})
	}
	return quotes
}

func sourcesFor(universe []*data.Company, prices *fakePrices, competitors *fakeCompetitors) Sources {
	return Sources{
		Companies:   &fakeCompanies{universe: universe},
		Prices:      prices,
		Statements:  &fakeStatements{},
		Competitors: competitors,
	}
}

func TestExecuteHappyPath(t *testing.T) {
	store := newFakeStore()
	prices := &fakePrices{quotes: map[string][]*data.PriceQuote{
		"20240315": quotesFor("20240315", "005930", "000660"),
	}}
	competitors := &fakeCompetitors{links: []*data.CompetitorLink{
		{StockCode: "005930", CompetitorCodes: []string{"000660"}},
	}}

	orchestrator := New(store, sourcesFor(twoCompanyUniverse(), prices, competitors))
	summary, err := orchestrator.Execute(context.Background(), []string{"20240315"})
	require.NoError(t, err)

	assert.Equal(t, 2, summary.NewCompanies)
	assert.Equal(t, 1, summary.NewCompetitors)
	require.Len(t, summary.Dates, 1)
	assert.Equal(t, 2, summary.Dates[0].Written)
	assert.Equal(t, 0, summary.Dates[0].Errors)
	assert.Empty(t, summary.RolledBackDates)
	assert.Empty(t, store.deleted)

	// 2 company writes + 1 competitor edge + 2 daily writes
	assert.Len(t, store.writes, 5)
}

func TestExecuteSecondRunWritesNothingNew(t *testing.T) {
	store := newFakeStore()
	store.existingCodes = map[string]struct{}{"005930": {}, "000660": {}}
	store.existingPairs = map[graph.CompetitorPair]struct{}{
		{Src: "005930", Dst: "000660"}: {},
	}

	prices := &fakePrices{quotes: map[string][]*data.PriceQuote{
		"20240315": quotesFor("20240315", "005930", "000660"),
	}}
	competitors := &fakeCompetitors{links: []*data.CompetitorLink{
		{StockCode: "005930", CompetitorCodes: []string{"000660"}},
	}}

	orchestrator := New(store, sourcesFor(twoCompanyUniverse(), prices, competitors))
	summary, err := orchestrator.Execute(context.Background(), []string{"20240315"})
	require.NoError(t, err)

	assert.Equal(t, 0, summary.NewCompanies)
	assert.Equal(t, 0, summary.NewCompetitors)

	// only the two daily writes remain
	assert.Len(t, store.writes, 2)
}

func TestExecuteOnlyNewCompanyWritten(t *testing.T) {
	store := newFakeStore()
	store.existingCodes = map[string]struct{}{"005930": {}, "000660": {}}

	universe := append(twoCompanyUniverse(),
		&data.Company{StockCode: "066570", Name: "LG Electronics", SectorName: "Electronics"})

	prices := &fakePrices{quotes: map[string][]*data.PriceQuote{}}
	orchestrator := New(store, sourcesFor(universe, prices, &fakeCompetitors{}))

	summary, err := orchestrator.Execute(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.NewCompanies)
}

func TestExecuteMissingQuoteCountedNotRetried(t *testing.T) {
	store := newFakeStore()
	prices := &fakePrices{quotes: map[string][]*data.PriceQuote{
		"20240315": quotesFor("20240315", "005930"), // no quote for 000660
	}}

	orchestrator := New(store, sourcesFor(twoCompanyUniverse(), prices, &fakeCompetitors{}))
	summary, err := orchestrator.Execute(context.Background(), []string{"20240315"})
	require.NoError(t, err)

	require.Len(t, summary.Dates, 1)
	assert.Equal(t, 1, summary.Dates[0].Written)
	assert.Equal(t, 1, summary.Dates[0].Errors)
}

func TestExecuteCompetitorSkipRules(t *testing.T) {
	store := newFakeStore()
	competitors := &fakeCompetitors{links: []*data.CompetitorLink{
		// self link and an out-of-universe competitor are both skipped
		{StockCode: "005930", CompetitorCodes: []string{"005930", "999999", "000660"}},
	}}

	prices := &fakePrices{quotes: map[string][]*data.PriceQuote{}}
	orchestrator := New(store, sourcesFor(twoCompanyUniverse(), prices, competitors))

	summary, err := orchestrator.Execute(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.NewCompetitors)
}

func TestExecuteCompetitorFeedFailureIsNotFatal(t *testing.T) {
	store := newFakeStore()
	competitors := &fakeCompetitors{err: errors.New("feed offline")}
	prices := &fakePrices{quotes: map[string][]*data.PriceQuote{
		"20240315": quotesFor("20240315", "005930", "000660"),
	}}

	orchestrator := New(store, sourcesFor(twoCompanyUniverse(), prices, competitors))
	summary, err := orchestrator.Execute(context.Background(), []string{"20240315"})
	require.NoError(t, err)

	assert.Equal(t, 0, summary.NewCompetitors)
	require.Len(t, summary.Dates, 1)
	assert.Equal(t, 2, summary.Dates[0].Written)
}

func TestExecuteUniverseFailureIsFatal(t *testing.T) {
	store := newFakeStore()
	sources := sourcesFor(nil, &fakePrices{}, &fakeCompetitors{})
	sources.Companies = &fakeCompanies{err: fmt.Errorf("%w: exchange timeout", data.ErrTransientSource)}

	orchestrator := New(store, sources)
	_, err := orchestrator.Execute(context.Background(), []string{"20240315"})
	assert.ErrorIs(t, err, data.ErrTransientSource)
	assert.Empty(t, store.writes)
}

func TestExecuteCanceledBeforeStart(t *testing.T) {
	store := newFakeStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	orchestrator := New(store, sourcesFor(twoCompanyUniverse(), &fakePrices{}, &fakeCompetitors{}))
	summary, err := orchestrator.Execute(ctx, []string{"20240315"})

	assert.ErrorIs(t, err, data.ErrInterrupted)
	assert.Empty(t, store.writes)
	assert.Empty(t, summary.RolledBackDates)
}

func TestExecuteInterruptRollsBackProcessedAndInFlight(t *testing.T) {
	store := newFakeStore()

	ctx, cancel := context.WithCancel(context.Background())
	prices := &fakePrices{
		quotes: map[string][]*data.PriceQuote{
			"20240315": quotesFor("20240315", "005930", "000660"),
			"20240316": quotesFor("20240316", "005930", "000660"),
		},
		onFetch: func(date string) {
			// interrupt arrives while the second date is in flight
			if date == "20240316" {
				cancel()
			}
		},
	}

	orchestrator := New(store, sourcesFor(twoCompanyUniverse(), prices, &fakeCompetitors{}))
	summary, err := orchestrator.Execute(ctx, []string{"20240315", "20240316"})

	assert.ErrorIs(t, err, data.ErrInterrupted)

	// in-flight date first, then the completed one
	assert.Equal(t, []string{"20240316", "20240315"}, store.deleted)
	assert.Equal(t, []string{"20240316", "20240315"}, summary.RolledBackDates)

	// the first date still reports what it wrote before the interrupt
	require.Len(t, summary.Dates, 1)
	assert.Equal(t, "20240315", summary.Dates[0].Date)
}

func TestExecuteInterruptDuringWriteLoopTriggersRecovery(t *testing.T) {
	store := newFakeStore()

	ctx, cancel := context.WithCancel(context.Background())
	// writes 1-2 are companies; write 3 is the first daily write of the date
	store.onWrite = func(n int) {
		if n == 3 {
			cancel()
		}
	}

	prices := &fakePrices{quotes: map[string][]*data.PriceQuote{
		"20240315": quotesFor("20240315", "005930", "000660"),
	}}

	orchestrator := New(store, sourcesFor(twoCompanyUniverse(), prices, &fakeCompetitors{}))
	summary, err := orchestrator.Execute(ctx, []string{"20240315"})

	// the interrupt surfaces as a run-level error, never a per-company one
	assert.ErrorIs(t, err, data.ErrInterrupted)

	// the in-flight date is unwound and never reported as complete
	assert.Equal(t, []string{"20240315"}, store.deleted)
	assert.Equal(t, []string{"20240315"}, summary.RolledBackDates)
	assert.Empty(t, summary.Dates)
}

func TestExecuteStoreOutageRollsBack(t *testing.T) {
	store := newFakeStore()
	// 2 company writes succeed, first daily write of the second date fails:
	// writes 1-2 companies, 3-4 first date, 5 second date
	store.failWriteAt = 5
	store.failWriteErr = fmt.Errorf("%w: connection reset", data.ErrStoreUnavailable)

	prices := &fakePrices{quotes: map[string][]*data.PriceQuote{
		"20240315": quotesFor("20240315", "005930", "000660"),
		"20240316": quotesFor("20240316", "005930", "000660"),
	}}

	orchestrator := New(store, sourcesFor(twoCompanyUniverse(), prices, &fakeCompetitors{}))
	summary, err := orchestrator.Execute(context.Background(), []string{"20240315", "20240316"})

	assert.ErrorIs(t, err, data.ErrStoreUnavailable)
	assert.Equal(t, []string{"20240316", "20240315"}, store.deleted)
	assert.Equal(t, []string{"20240316", "20240315"}, summary.RolledBackDates)
}

func TestExecuteRollbackPolicyOff(t *testing.T) {
	store := newFakeStore()
	store.failWriteAt = 5
	store.failWriteErr = fmt.Errorf("%w: connection reset", data.ErrStoreUnavailable)

	prices := &fakePrices{quotes: map[string][]*data.PriceQuote{
		"20240315": quotesFor("20240315", "005930", "000660"),
		"20240316": quotesFor("20240316", "005930", "000660"),
	}}

	orchestrator := New(store, sourcesFor(twoCompanyUniverse(), prices, &fakeCompetitors{}))
	orchestrator.RollbackProcessed = false

	summary, err := orchestrator.Execute(context.Background(), []string{"20240315", "20240316"})

	assert.ErrorIs(t, err, data.ErrStoreUnavailable)

	// only the in-flight date is unwound; the completed date survives
	assert.Equal(t, []string{"20240316"}, store.deleted)
	assert.Equal(t, []string{"20240316"}, summary.RolledBackDates)
}

func TestExecutePerCompanyWriteFailureIsCounted(t *testing.T) {
	store := newFakeStore()
	// writes 1-2 are companies; write 3 is the first daily write
	store.failWriteAt = 3
	store.failWriteErr = errors.New("constraint violation")

	prices := &fakePrices{quotes: map[string][]*data.PriceQuote{
		"20240315": quotesFor("20240315", "005930", "000660"),
	}}

	orchestrator := New(store, sourcesFor(twoCompanyUniverse(), prices, &fakeCompetitors{}))
	summary, err := orchestrator.Execute(context.Background(), []string{"20240315"})
	require.NoError(t, err)

	require.Len(t, summary.Dates, 1)
	assert.Equal(t, 1, summary.Dates[0].Written)
	assert.Equal(t, 1, summary.Dates[0].Errors)
	assert.Empty(t, summary.RolledBackDates)
}

func TestExecuteConstraintFailureIsNotFatal(t *testing.T) {
	store := newFakeStore()
	store.constraintsErr = errors.New("not supported in this edition")

	prices := &fakePrices{quotes: map[string][]*data.PriceQuote{}}
	orchestrator := New(store, sourcesFor(twoCompanyUniverse(), prices, &fakeCompetitors{}))

	summary, err := orchestrator.Execute(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.NewCompanies)
}
