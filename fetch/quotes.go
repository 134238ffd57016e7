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
	"strconv"
	"strings"
	"time"

	"github.com/alphadose/haxmap"
	"github.com/go-resty/resty/v2"
	"github.com/goccy/go-json"
	"github.com/quantgraph/kgdata/data"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// QuoteClient pulls per-stock company detail and daily price/indicator data
// from the market-data API. Calls are spaced by a fixed delay to respect the
// upstream rate limit; details are cached for the life of the run because the
// per-date loop re-reads them for every date.
type QuoteClient struct {
	BaseURL string

	client  *resty.Client
	limiter *rate.Limiter
	details *haxmap.Map[string, *companyDetail]
}

// NewQuoteClient returns a client authenticated with the given bearer token.
// callDelay is the fixed gap between consecutive per-company calls.
func NewQuoteClient(baseURL string, token string, callDelay time.Duration) *QuoteClient {
	if callDelay <= 0 {
		callDelay = 100 * time.Millisecond
	}

	return &QuoteClient{
		BaseURL: baseURL,
		client:  resty.New().SetAuthToken(token),
		limiter: rate.NewLimiter(rate.Every(callDelay), 1),
		details: haxmap.New[string, *companyDetail](),
	}
}

type companyDetail struct {
	SectorName  string `json:"sector_name"`
	IndexMember string `json:"index_member_flag"`
}

type quoteResponse struct {
	High  string `json:"high"`
	Low   string `json:"low"`
	Open  string `json:"open"`
	Close string `json:"close"`
	EPS   string `json:"eps"`
	PBR   string `json:"pbr"`
	PER   string `json:"per"`
}

// Detail returns the sector name and index-membership flag for one company.
func (quotes *QuoteClient) Detail(ctx context.Context, code string) (*companyDetail, error) {
	if cached, ok := quotes.details.Get(code); ok {
		return cached, nil
	}

	if err := quotes.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: %s", data.ErrInterrupted, err)
	}

	resp, err := quotes.client.R().
		SetContext(ctx).
		Get(fmt.Sprintf("%s/companies/%s", quotes.BaseURL, code))
	if err != nil {
		return nil, fmt.Errorf("%w: fetch company detail %s: %s", data.ErrTransientSource, code, err)
	}

	if resp.StatusCode() >= 300 {
		return nil, fmt.Errorf("%w: company detail %s returned status %d", data.ErrTransientSource, code, resp.StatusCode())
	}

	detail := &companyDetail{}
	if err := json.Unmarshal(resp.Body(), detail); err != nil {
		return nil, fmt.Errorf("%w: decode company detail %s: %s", data.ErrTransientSource, code, err)
	}

	quotes.details.Set(code, detail)
	return detail, nil
}

// DailyQuotes returns the price and indicator records available for the given
// date. A company the source has no bar for is absent from the result; a
// transient per-company failure is logged and treated the same way.
func (quotes *QuoteClient) DailyQuotes(ctx context.Context, date string, codes []string) ([]*data.PriceQuote, error) {
	results := make([]*data.PriceQuote, 0, len(codes))

	for _, code := range codes {
		if err := quotes.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%w: %s", data.ErrInterrupted, err)
		}

		quote, err := quotes.dailyQuote(ctx, code, date)
		if err != nil {
			log.Warn().Err(err).Str("StockCode", code).Str("Date", date).Msg("no quote collected")
			continue
		}
		if quote == nil {
			continue
		}

		results = append(results, quote)
	}

	log.Debug().Str("Date", date).Int("NumQuotes", len(results)).Msg("collected daily quotes")
	return results, nil
}

func (quotes *QuoteClient) dailyQuote(ctx context.Context, code string, date string) (*data.PriceQuote, error) {
	resp, err := quotes.client.R().
		SetContext(ctx).
		SetQueryParam("date", date).
		Get(fmt.Sprintf("%s/quotes/%s", quotes.BaseURL, code))
	if err != nil {
		return nil, fmt.Errorf("%w: fetch quote: %s", data.ErrTransientSource, err)
	}

	// No bar for this company and date is absence, not an error.
	if resp.StatusCode() == http.StatusNotFound {
		return nil, nil
	}

	if resp.StatusCode() >= 300 {
		return nil, fmt.Errorf("%w: quote returned status %d", data.ErrTransientSource, resp.StatusCode())
	}

	payload := quoteResponse{}
	if err := json.Unmarshal(resp.Body(), &payload); err != nil {
		return nil, fmt.Errorf("%w: decode quote: %s", data.ErrTransientSource, err)
	}

	if payload.Close == "" {
		return nil, nil
	}

	return &data.PriceQuote{
		StockCode: code,
		Date:      date,
		High:      parsePrice(payload.High),
		Low:       parsePrice(payload.Low),
		Open:      parsePrice(payload.Open),
		Close:     parsePrice(payload.Close),
		EPS:       parsePrice(payload.EPS),
		PBR:       parsePrice(payload.PBR),
		PER:       parsePrice(payload.PER),
	}, nil
}

// parsePrice falls back to 0 for missing or unparseable values.
func parsePrice(raw string) float64 {
	cleaned := strings.ReplaceAll(strings.TrimSpace(raw), ",", "")
	if cleaned == "" {
		return 0
	}

	value, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0
	}
	return value
}
