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
	"testing"

	"github.com/quantgraph/kgdata/data"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Statements written for a date anchor to their reporting quarter, which lags
// the trading date's quarter, so the delete must not try to reach them through
// the date's own IN_QUARTER edge.
func TestDeleteDateStatementReachesLaggingStatements(t *testing.T) {
	// a January trading date always carries statements for the prior year's Q4
	quote := &data.PriceQuote{StockCode: "005930", Date: "20240115", Close: 71800}
	statements := &data.FinancialStatements{StockCode: "005930", Year: 2023, Quarter: 4}

	op, err := DailyOp(&data.Company{StockCode: "005930"}, quote, statements)
	require.NoError(t, err)

	written, _, err := op.Render()
	require.NoError(t, err)

	// the write anchors the statements node to the reporting quarter, not the
	// quarter the Date node links to
	assert.Contains(t, written, "(statements:FinancialStatements)-[:FOR_QUARTER]->(report_quarter)")

	// the delete reaches that node through the company priced on the date
	assert.Contains(t, deleteDateStatement,
		"(d)<-[:RECORDED_ON]-(:StockPrice)<-[:HAS_STOCK_PRICE]-(:Company)-[:HAS_FINANCIAL_STATEMENTS]->(statements:FinancialStatements)")
	assert.NotContains(t, deleteDateStatement, "IN_QUARTER")
}

func TestDeleteDateStatementIsParameterized(t *testing.T) {
	assert.Contains(t, deleteDateStatement, "MATCH (d:Date {date: $date})")
	assert.Contains(t, deleteDateStatement, "DETACH DELETE price, indicator, statements, d")
}
