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
package data

import (
	"time"

	"github.com/google/uuid"
)

// Company is the static description of a listed company as collected from the
// exchange universe and per-stock detail sources. StockCode is the natural key
// for the Company graph node; everything else is attribute data.
type Company struct {
	StockCode         string   `json:"stock_code" csv:"stock_code"`
	Name              string   `json:"stock_name" csv:"stock_name"`
	Abbrv             string   `json:"stock_abbrv" csv:"stock_abbrv"`
	NameEng           string   `json:"stock_name_eng" csv:"stock_name_eng"`
	ListingDate       string   `json:"listing_date" csv:"listing_date"`
	MarketName        string   `json:"market_name" csv:"market_name"`
	OutstandingShares int64    `json:"outstanding_shares" csv:"outstanding_shares"`
	SectorName        string   `json:"sector_name" csv:"sector_name"`
	IndexMember       string   `json:"index_member_flag" csv:"index_member_flag"`
	CompetitorCodes   []string `json:"competitor_code_list" csv:"-"`
	CompetitorNames   []string `json:"competitor_name_list" csv:"-"`
}

// PriceQuote holds one company's daily price bar plus the valuation indicators
// reported alongside it.
type PriceQuote struct {
	StockCode string  `json:"stock_code"`
	Date      string  `json:"date"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Open      float64 `json:"open"`
	Close     float64 `json:"close"`
	EPS       float64 `json:"eps"`
	PBR       float64 `json:"pbr"`
	PER       float64 `json:"per"`
}

// FinancialStatements holds one company's figures for a single reporting
// quarter. A record with every monetary field equal to zero is the documented
// sentinel for "no filing available for any candidate quarter"; it still
// carries the (Year, Quarter) the source last attempted.
type FinancialStatements struct {
	StockCode        string `json:"stock_code"`
	Year             int    `json:"year"`
	Quarter          int    `json:"quarter"`
	Revenue          int64  `json:"revenue"`
	OperatingIncome  int64  `json:"operating_income"`
	NetIncome        int64  `json:"net_income"`
	TotalAssets      int64  `json:"total_assets"`
	TotalLiabilities int64  `json:"total_liabilities"`
	TotalEquity      int64  `json:"total_equity"`
	CapitalStock     int64  `json:"capital_stock"`
}

// CompetitorLink lists the competitors reported for one company.
type CompetitorLink struct {
	StockCode       string   `json:"stock_code"`
	StockName       string   `json:"stock_name"`
	CompetitorCodes []string `json:"competitor_code_list"`
	CompetitorNames []string `json:"competitor_name_list"`
}

// DateResult carries the per-company outcome counts for one processed date.
type DateResult struct {
	Date       string
	Written    int
	Errors     int
	RolledBack bool
}

// RunSummary describes the outcome of a full batch run.
type RunSummary struct {
	RunID           uuid.UUID
	StartTime       time.Time
	EndTime         time.Time
	NewCompanies    int
	NewCompetitors  int
	Dates           []DateResult
	RolledBackDates []string
}

// Elapsed is the wall time spent on the run.
func (summary *RunSummary) Elapsed() time.Duration {
	return summary.EndTime.Sub(summary.StartTime)
}
