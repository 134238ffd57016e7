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
	"fmt"
	"strings"

	"github.com/quantgraph/kgdata/data"
)

// Node labels and relationship types of the knowledge-graph schema.
const (
	LabelCompany    = "Company"
	LabelSector     = "Sector"
	LabelDate       = "Date"
	LabelQuarter    = "Quarter"
	LabelYear       = "Year"
	LabelStockPrice = "StockPrice"
	LabelIndicator  = "Indicator"
	LabelStatements = "FinancialStatements"

	RelRecordedOn    = "RECORDED_ON"
	RelMeasuredOn    = "MEASURED_ON"
	RelInQuarter     = "IN_QUARTER"
	RelInYear        = "IN_YEAR"
	RelForQuarter    = "FOR_QUARTER"
	RelForYear       = "FOR_YEAR"
	RelHasPrice      = "HAS_STOCK_PRICE"
	RelHasIndicator  = "HAS_INDICATOR"
	RelHasStatements = "HAS_FINANCIAL_STATEMENTS"
	RelBelongsTo     = "BELONGS_TO"
	RelCompetesWith  = "COMPETES_WITH"
)

// DefaultSector is merged for companies whose detail source reports no sector.
const DefaultSector = "Unclassified"

// CompanyOp synthesizes the one-time write for a company and its sector: the
// Company node keyed by stock code, the shared Sector node keyed by name, and
// the membership edge. Competitor lists are denormalized onto the Company node
// as delimited strings; the discrete edges come from CompetitorOp.
func CompanyOp(company *data.Company) (*WriteOp, error) {
	if company.StockCode == "" {
		return nil, fmt.Errorf("%w: company record without stock code", data.ErrMalformedRecord)
	}

	sector := company.SectorName
	if sector == "" {
		sector = DefaultSector
	}

	return &WriteOp{
		Merges: []NodeMerge{
			{
				Alias: "company",
				Label: LabelCompany,
				Key:   Props{"stock_code": company.StockCode},
				Props: Props{
					"stock_name":           company.Name,
					"stock_abbrv":          company.Abbrv,
					"stock_name_eng":       company.NameEng,
					"listing_date":         company.ListingDate,
					"market_name":          company.MarketName,
					"outstanding_shares":   company.OutstandingShares,
					"index_member_flag":    company.IndexMember,
					"competitor_code_list": strings.Join(company.CompetitorCodes, ", "),
					"competitor_name_list": strings.Join(company.CompetitorNames, ", "),
				},
			},
			{
				Alias: "sector",
				Label: LabelSector,
				Key:   Props{"sector_name": sector},
			},
		},
		Edges: []EdgeMerge{
			{From: "company", Rel: RelBelongsTo, To: "sector"},
		},
	}, nil
}

// DailyOp synthesizes one company's write for one date: the shared calendar
// nodes, the per-company StockPrice and Indicator nodes scoped by company and
// date, and when statements are available the FinancialStatements node scoped
// by company and quarter. The Company node must already exist.
func DailyOp(company *data.Company, quote *data.PriceQuote, statements *data.FinancialStatements) (*WriteOp, error) {
	if company.StockCode == "" {
		return nil, fmt.Errorf("%w: company record without stock code", data.ErrMalformedRecord)
	}

	date, err := data.ParseTradingDate(quote.Date)
	if err != nil {
		return nil, err
	}

	op := &WriteOp{
		Merges: []NodeMerge{
			{
				Alias: "date",
				Label: LabelDate,
				Key:   Props{"date": date.Raw},
				Props: Props{"year": date.Year, "month": date.Month, "day": date.Day},
			},
			{
				Alias: "quarter",
				Label: LabelQuarter,
				Key:   Props{"year": date.Year, "quarter": date.Quarter()},
			},
			{
				Alias: "year",
				Label: LabelYear,
				Key:   Props{"year": date.Year},
			},
		},
		Matches: []NodeMatch{
			{Alias: "company", Label: LabelCompany, Key: Props{"stock_code": company.StockCode}},
		},
		Scoped: []ScopedMerge{
			{
				Alias: "price", Label: LabelStockPrice,
				Owner: "company", OwnerRel: RelHasPrice,
				Anchor: "date", AnchorRel: RelRecordedOn,
				Props: Props{"high": quote.High, "low": quote.Low, "open": quote.Open, "close": quote.Close},
			},
			{
				Alias: "indicator", Label: LabelIndicator,
				Owner: "company", OwnerRel: RelHasIndicator,
				Anchor: "date", AnchorRel: RelMeasuredOn,
				Props: Props{"pbr": quote.PBR, "per": quote.PER, "eps": quote.EPS},
			},
		},
		Edges: []EdgeMerge{
			{From: "date", Rel: RelInQuarter, To: "quarter"},
			{From: "quarter", Rel: RelInYear, To: "year"},
			{From: "date", Rel: RelInYear, To: "year"},
		},
	}

	if statements != nil {
		fsQuarter := "quarter"
		if statements.Year != date.Year || statements.Quarter != date.Quarter() {
			// Statements usually lag the trading date into an earlier
			// reporting quarter; anchor them to their own Quarter node.
			op.Merges = append(op.Merges, NodeMerge{
				Alias: "report_quarter",
				Label: LabelQuarter,
				Key:   Props{"year": statements.Year, "quarter": statements.Quarter},
			})
			op.Merges = append(op.Merges, NodeMerge{
				Alias: "report_year",
				Label: LabelYear,
				Key:   Props{"year": statements.Year},
			})
			fsQuarter = "report_quarter"
		}

		op.Scoped = append(op.Scoped, ScopedMerge{
			Alias: "statements", Label: LabelStatements,
			Owner: "company", OwnerRel: RelHasStatements,
			Anchor: fsQuarter, AnchorRel: RelForQuarter,
			Props: Props{
				"revenue":           statements.Revenue,
				"operating_income":  statements.OperatingIncome,
				"net_income":        statements.NetIncome,
				"total_assets":      statements.TotalAssets,
				"total_liabilities": statements.TotalLiabilities,
				"total_equity":      statements.TotalEquity,
				"capital_stock":     statements.CapitalStock,
			},
		})

		fsYear := "year"
		if fsQuarter == "report_quarter" {
			fsYear = "report_year"
		}
		op.Edges = append(op.Edges, EdgeMerge{From: "statements", Rel: RelForYear, To: fsYear})
		if fsQuarter == "report_quarter" {
			op.Edges = append(op.Edges, EdgeMerge{From: "report_quarter", Rel: RelInYear, To: "report_year"})
		}
	}

	return op, nil
}

// CompetitorOp synthesizes one directed COMPETES_WITH edge between two
// companies that already exist in the graph.
func CompetitorOp(srcCode string, dstCode string) (*WriteOp, error) {
	if srcCode == "" || dstCode == "" {
		return nil, fmt.Errorf("%w: competitor pair with empty stock code", data.ErrMalformedRecord)
	}

	return &WriteOp{
		Matches: []NodeMatch{
			{Alias: "src", Label: LabelCompany, Key: Props{"stock_code": srcCode}},
			{Alias: "dst", Label: LabelCompany, Key: Props{"stock_code": dstCode}},
		},
		Edges: []EdgeMerge{
			{From: "src", Rel: RelCompetesWith, To: "dst"},
		},
	}, nil
}
