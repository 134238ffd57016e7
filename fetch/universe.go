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
	"strconv"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/goccy/go-json"
	"github.com/quantgraph/kgdata/data"
	"github.com/rs/zerolog/log"
)

// UniverseClient pulls the full listed-company universe from the exchange
// operator's bulk endpoint.
type UniverseClient struct {
	BaseURL string

	client *resty.Client
}

// NewUniverseClient returns a client for the exchange bulk endpoint.
func NewUniverseClient(baseURL string) *UniverseClient {
	return &UniverseClient{
		BaseURL: baseURL,
		client:  resty.New(),
	}
}

type universeRow struct {
	StockCode         string `json:"stock_code"`
	Name              string `json:"stock_name"`
	Abbrv             string `json:"stock_abbrv"`
	NameEng           string `json:"stock_name_eng"`
	ListingDate       string `json:"listing_date"`
	MarketName        string `json:"market_name"`
	OutstandingShares string `json:"outstanding_shares"`
}

type universeResponse struct {
	Companies []universeRow `json:"companies"`
}

// Listed returns every listed company's static attributes. Stock codes are
// normalized to their zero-padded 6-digit form and share counts have their
// thousands separators stripped.
func (universe *UniverseClient) Listed(ctx context.Context) ([]*data.Company, error) {
	resp, err := universe.client.R().
		SetContext(ctx).
		SetFormData(map[string]string{"market": "ALL", "share": "1"}).
		Post(universe.BaseURL + "/listed-companies")
	if err != nil {
		return nil, fmt.Errorf("%w: fetch listed companies: %s", data.ErrTransientSource, err)
	}

	if resp.StatusCode() >= 300 {
		return nil, fmt.Errorf("%w: listed companies returned status %d", data.ErrTransientSource, resp.StatusCode())
	}

	listing := universeResponse{}
	if err := json.Unmarshal(resp.Body(), &listing); err != nil {
		return nil, fmt.Errorf("%w: decode listed companies: %s", data.ErrTransientSource, err)
	}

	companies := make([]*data.Company, 0, len(listing.Companies))
	for _, row := range listing.Companies {
		if row.StockCode == "" {
			log.Warn().Str("Name", row.Name).Msg("skipping listed company without stock code")
			continue
		}

		companies = append(companies, &data.Company{
			StockCode:         padStockCode(row.StockCode),
			Name:              row.Name,
			Abbrv:             row.Abbrv,
			NameEng:           row.NameEng,
			ListingDate:       row.ListingDate,
			MarketName:        row.MarketName,
			OutstandingShares: parseShareCount(row.OutstandingShares),
		})
	}

	return companies, nil
}

// padStockCode left-pads numeric codes to 6 digits, the exchange's canonical
// form.
func padStockCode(code string) string {
	if len(code) >= 6 {
		return code
	}
	return strings.Repeat("0", 6-len(code)) + code
}

func parseShareCount(raw string) int64 {
	cleaned := strings.ReplaceAll(raw, ",", "")
	count, err := strconv.ParseInt(cleaned, 10, 64)
	if err != nil {
		return 0
	}
	return count
}
