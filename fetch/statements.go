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
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/goccy/go-json"
	"github.com/quantgraph/kgdata/data"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// StatementClient pulls quarterly financial statements from the filings API.
// Filings lag the calendar, so for a given trading date the client walks a
// month-keyed list of candidate reporting quarters from newest to oldest and
// takes the first one with data.
type StatementClient struct {
	BaseURL string
	APIKey  string

	client  *resty.Client
	limiter *rate.Limiter
}

// NewStatementClient returns a client for the filings API.
func NewStatementClient(baseURL string, apiKey string, callDelay time.Duration) *StatementClient {
	if callDelay <= 0 {
		callDelay = 100 * time.Millisecond
	}

	return &StatementClient{
		BaseURL: baseURL,
		APIKey:  apiKey,
		client:  resty.New().SetQueryParam("apiKey", apiKey),
		limiter: rate.NewLimiter(rate.Every(callDelay), 1),
	}
}

// reportingQuarter identifies one candidate filing period.
type reportingQuarter struct {
	Year    int
	Quarter int
}

// quarterCandidates lists the reporting quarters worth trying for a trading
// date, newest first. A date early in the calendar year can only have the
// prior year's Q4 filed; later months add the current year's quarters as their
// filing windows open.
func quarterCandidates(date data.TradingDate) []reportingQuarter {
	switch {
	case date.Month <= 3:
		return []reportingQuarter{{date.Year - 1, 4}}
	case date.Month <= 6:
		return []reportingQuarter{{date.Year, 1}, {date.Year - 1, 4}}
	case date.Month <= 9:
		return []reportingQuarter{{date.Year, 2}, {date.Year, 1}, {date.Year - 1, 4}}
	default:
		return []reportingQuarter{{date.Year, 3}, {date.Year, 2}, {date.Year, 1}, {date.Year - 1, 4}}
	}
}

type statementResponse struct {
	Revenue          int64 `json:"revenue"`
	OperatingIncome  int64 `json:"operating_income"`
	NetIncome        int64 `json:"net_income"`
	TotalAssets      int64 `json:"total_assets"`
	TotalLiabilities int64 `json:"total_liabilities"`
	TotalEquity      int64 `json:"total_equity"`
	CapitalStock     int64 `json:"capital_stock"`
}

// Statements returns the most recent reporting-quarter statements available
// for each company as of the given date. A company for which every candidate
// quarter comes back empty yields the all-zero sentinel record carrying the
// last candidate tried, so the graph still links the company to the correct
// Quarter and Year.
func (statements *StatementClient) Statements(ctx context.Context, date string, codes []string) ([]*data.FinancialStatements, error) {
	tradingDate, err := data.ParseTradingDate(date)
	if err != nil {
		return nil, err
	}

	candidates := quarterCandidates(tradingDate)
	results := make([]*data.FinancialStatements, 0, len(codes))

	for _, code := range codes {
		record, err := statements.forCompany(ctx, code, candidates)
		if err != nil {
			log.Warn().Err(err).Str("StockCode", code).Str("Date", date).Msg("no statements collected")
			continue
		}
		results = append(results, record)
	}

	log.Debug().Str("Date", date).Int("NumStatements", len(results)).Msg("collected financial statements")
	return results, nil
}

func (statements *StatementClient) forCompany(ctx context.Context, code string, candidates []reportingQuarter) (*data.FinancialStatements, error) {
	var lastTried reportingQuarter

	for _, candidate := range candidates {
		if err := statements.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%w: %s", data.ErrInterrupted, err)
		}
		lastTried = candidate

		record, err := statements.fetchQuarter(ctx, code, candidate)
		if err != nil {
			return nil, err
		}
		if record != nil {
			return record, nil
		}
	}

	// All-zero sentinel: no candidate quarter had a filing.
	return &data.FinancialStatements{
		StockCode: code,
		Year:      lastTried.Year,
		Quarter:   lastTried.Quarter,
	}, nil
}

func (statements *StatementClient) fetchQuarter(ctx context.Context, code string, candidate reportingQuarter) (*data.FinancialStatements, error) {
	resp, err := statements.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"year":    fmt.Sprintf("%d", candidate.Year),
			"quarter": fmt.Sprintf("%d", candidate.Quarter),
		}).
		Get(fmt.Sprintf("%s/statements/%s", statements.BaseURL, code))
	if err != nil {
		return nil, fmt.Errorf("%w: fetch statements: %s", data.ErrTransientSource, err)
	}

	if resp.StatusCode() == http.StatusNotFound {
		return nil, nil
	}

	if resp.StatusCode() >= 300 {
		return nil, fmt.Errorf("%w: statements returned status %d", data.ErrTransientSource, resp.StatusCode())
	}

	payload := statementResponse{}
	if err := json.Unmarshal(resp.Body(), &payload); err != nil {
		return nil, fmt.Errorf("%w: decode statements: %s", data.ErrTransientSource, err)
	}

	return &data.FinancialStatements{
		StockCode:        code,
		Year:             candidate.Year,
		Quarter:          candidate.Quarter,
		Revenue:          payload.Revenue,
		OperatingIncome:  payload.OperatingIncome,
		NetIncome:        payload.NetIncome,
		TotalAssets:      payload.TotalAssets,
		TotalLiabilities: payload.TotalLiabilities,
		TotalEquity:      payload.TotalEquity,
		CapitalStock:     payload.CapitalStock,
	}, nil
}
