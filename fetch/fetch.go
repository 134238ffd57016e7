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
package fetch

import (
	"context"
	"time"

	"github.com/quantgraph/kgdata/data"
	"github.com/quantgraph/kgdata/ingest"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

// Config carries the endpoints and credentials of every upstream source.
type Config struct {
	ExchangeURL string

	MarketDataURL   string
	MarketDataToken string

	FilingsURL    string
	FilingsAPIKey string

	CompetitorURI        string
	CompetitorDatabase   string
	CompetitorCollection string

	// UniverseCSV switches the company universe to a local file for offline
	// and backfill runs.
	UniverseCSV string

	// CallDelay is the fixed gap between consecutive per-company source calls.
	CallDelay time.Duration
}

// ConfigFromViper builds the source configuration from the loaded config
// file and environment.
func ConfigFromViper() Config {
	callDelay := viper.GetDuration("sources.callDelay")
	if callDelay <= 0 {
		callDelay = 100 * time.Millisecond
	}

	return Config{
		ExchangeURL:          viper.GetString("sources.exchangeUrl"),
		MarketDataURL:        viper.GetString("sources.marketDataUrl"),
		MarketDataToken:      viper.GetString("sources.marketDataToken"),
		FilingsURL:           viper.GetString("sources.filingsUrl"),
		FilingsAPIKey:        viper.GetString("sources.filingsApiKey"),
		CompetitorURI:        viper.GetString("sources.competitorUri"),
		CompetitorDatabase:   viper.GetString("sources.competitorDatabase"),
		CompetitorCollection: viper.GetString("sources.competitorCollection"),
		UniverseCSV:          viper.GetString("sources.universeCsv"),
		CallDelay:            callDelay,
	}
}

// NewSources assembles the source collaborators the orchestrator consumes.
func NewSources(cfg Config) ingest.Sources {
	quotes := NewQuoteClient(cfg.MarketDataURL, cfg.MarketDataToken, cfg.CallDelay)
	competitors := NewCompetitorClient(cfg.CompetitorURI, cfg.CompetitorDatabase, cfg.CompetitorCollection)

	builder := &UniverseBuilder{
		exchange:    NewUniverseClient(cfg.ExchangeURL),
		quotes:      quotes,
		competitors: competitors,
	}

	var companies ingest.CompanySource = builder
	if cfg.UniverseCSV != "" {
		companies = &CSVUniverse{Path: cfg.UniverseCSV}
	}

	return ingest.Sources{
		Companies:   companies,
		Prices:      quotes,
		Statements:  NewStatementClient(cfg.FilingsURL, cfg.FilingsAPIKey, cfg.CallDelay),
		Competitors: builder,
	}
}

// UniverseBuilder assembles the full company universe: the exchange listing,
// per-stock sector and index-membership detail, and denormalized competitor
// lists. It caches the competitor links it fetched so the orchestrator's
// edge-creation step does not hit the feed twice.
type UniverseBuilder struct {
	exchange    *UniverseClient
	quotes      *QuoteClient
	competitors *CompetitorClient

	cachedLinks []*data.CompetitorLink
}

// Universe collects and merges the company records for the whole market.
func (builder *UniverseBuilder) Universe(ctx context.Context) ([]*data.Company, error) {
	companies, err := builder.exchange.Listed(ctx)
	if err != nil {
		return nil, err
	}

	codes := make([]string, 0, len(companies))
	for _, company := range companies {
		codes = append(codes, company.StockCode)
	}

	for _, company := range companies {
		detail, err := builder.quotes.Detail(ctx, company.StockCode)
		if err != nil {
			log.Warn().Err(err).Str("StockCode", company.StockCode).Msg("no company detail collected")
			continue
		}
		company.SectorName = detail.SectorName
		company.IndexMember = detail.IndexMember
	}

	links, err := builder.competitors.Links(ctx, codes)
	if err != nil {
		log.Warn().Err(err).Msg("no competitor links collected for universe")
		return companies, nil
	}
	builder.cachedLinks = links

	linkByCode := make(map[string]*data.CompetitorLink, len(links))
	for _, link := range links {
		linkByCode[link.StockCode] = link
	}

	for _, company := range companies {
		if link, ok := linkByCode[company.StockCode]; ok {
			company.CompetitorCodes = link.CompetitorCodes
			company.CompetitorNames = link.CompetitorNames
		}
	}

	return companies, nil
}

// Links returns the competitor links collected while building the universe,
// fetching them fresh only if Universe has not run.
func (builder *UniverseBuilder) Links(ctx context.Context, codes []string) ([]*data.CompetitorLink, error) {
	if builder.cachedLinks != nil {
		return builder.cachedLinks, nil
	}
	return builder.competitors.Links(ctx, codes)
}
