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

import "context"

// Statements are anchored to their reporting quarter, which usually lags the
// trading date's own quarter, so they cannot be reached from the Date node
// through IN_QUARTER. They are reached through the companies that got a price
// on the date instead: every daily write commits price and statements in one
// transaction, so a company with a StockPrice on d has its statements from the
// same write.
const deleteDateStatement = `
MATCH (d:Date {date: $date})
OPTIONAL MATCH (d)<-[:RECORDED_ON]-(price:StockPrice)
OPTIONAL MATCH (d)<-[:MEASURED_ON]-(indicator:Indicator)
OPTIONAL MATCH (d)<-[:RECORDED_ON]-(:StockPrice)<-[:HAS_STOCK_PRICE]-(:Company)-[:HAS_FINANCIAL_STATEMENTS]->(statements:FinancialStatements)
DETACH DELETE price, indicator, statements, d`

// DeleteDateSubgraph removes everything written under one Date node: the
// StockPrice and Indicator nodes recorded on it, the FinancialStatements of
// the companies priced on it, and finally the Date node itself. Shared
// Quarter, Year, Company, and Sector nodes are left alone. This is the
// compensating delete used by run recovery; each per-company write was its own
// committed transaction, so unwinding happens at the domain level by key.
func (store *Store) DeleteDateSubgraph(ctx context.Context, date string) error {
	return store.writeCypher(ctx, deleteDateStatement, map[string]any{"date": date})
}
