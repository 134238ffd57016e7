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
	"strings"
	"testing"

	"github.com/quantgraph/kgdata/data"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderKeyedMerge(t *testing.T) {
	op := &WriteOp{
		Merges: []NodeMerge{
			{
				Alias: "company",
				Label: LabelCompany,
				Key:   Props{"stock_code": "005930"},
				Props: Props{"stock_name": "Samsung Electronics"},
			},
		},
	}

	statement, params, err := op.Render()
	require.NoError(t, err)

	assert.Contains(t, statement, "MERGE (company:Company {stock_code: $company_stock_code})")
	assert.Contains(t, statement, "SET company += $company_props")
	assert.Equal(t, "005930", params["company_stock_code"])
	assert.Equal(t, map[string]any{"stock_name": "Samsung Electronics"}, params["company_props"])
}

func TestRenderNeverInterpolatesValues(t *testing.T) {
	op := &WriteOp{
		Merges: []NodeMerge{
			{
				Alias: "company",
				Label: LabelCompany,
				Key:   Props{"stock_code": `000"}) DETACH DELETE (n) //`},
				Props: Props{"stock_name": "Evil {Corp}"},
			},
		},
	}

	statement, params, err := op.Render()
	require.NoError(t, err)

	// attribute values only ever travel in the parameter map
	assert.NotContains(t, statement, "DETACH DELETE")
	assert.NotContains(t, statement, "Evil")
	assert.Equal(t, `000"}) DETACH DELETE (n) //`, params["company_stock_code"])
}

func TestRenderCompositeKeySorted(t *testing.T) {
	op := &WriteOp{
		Merges: []NodeMerge{
			{Alias: "quarter", Label: LabelQuarter, Key: Props{"year": 2024, "quarter": 1}},
		},
	}

	statement, params, err := op.Render()
	require.NoError(t, err)

	assert.Contains(t, statement, "MERGE (quarter:Quarter {quarter: $quarter_quarter, year: $quarter_year})")
	assert.Equal(t, 1, params["quarter_quarter"])
	assert.Equal(t, 2024, params["quarter_year"])
}

func TestRenderDeterministic(t *testing.T) {
	op := &WriteOp{
		Merges: []NodeMerge{
			{Alias: "date", Label: LabelDate, Key: Props{"date": "20240315"}},
			{Alias: "quarter", Label: LabelQuarter, Key: Props{"year": 2024, "quarter": 1}},
		},
		Matches: []NodeMatch{
			{Alias: "company", Label: LabelCompany, Key: Props{"stock_code": "005930"}},
		},
		Scoped: []ScopedMerge{
			{
				Alias: "price", Label: LabelStockPrice,
				Owner: "company", OwnerRel: RelHasPrice,
				Anchor: "date", AnchorRel: RelRecordedOn,
				Props: Props{"close": 71000.0},
			},
		},
		Edges: []EdgeMerge{
			{From: "date", Rel: RelInQuarter, To: "quarter"},
		},
	}

	first, _, err := op.Render()
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		next, _, err := op.Render()
		require.NoError(t, err)
		assert.Equal(t, first, next)
	}
}

func TestRenderScopedMergePath(t *testing.T) {
	op := &WriteOp{
		Merges: []NodeMerge{
			{Alias: "date", Label: LabelDate, Key: Props{"date": "20240315"}},
		},
		Matches: []NodeMatch{
			{Alias: "company", Label: LabelCompany, Key: Props{"stock_code": "005930"}},
		},
		Scoped: []ScopedMerge{
			{
				Alias: "price", Label: LabelStockPrice,
				Owner: "company", OwnerRel: RelHasPrice,
				Anchor: "date", AnchorRel: RelRecordedOn,
				Props: Props{"close": 71000.0},
			},
		},
	}

	statement, params, err := op.Render()
	require.NoError(t, err)

	assert.Contains(t, statement, "MERGE (company)-[:HAS_STOCK_PRICE]->(price:StockPrice)-[:RECORDED_ON]->(date)")
	assert.Contains(t, statement, "SET price += $price_props")
	assert.Equal(t, map[string]any{"close": 71000.0}, params["price_props"])

	// bound aliases are carried across the MATCH boundary
	assert.Contains(t, statement, "WITH date")
}

func TestRenderRejectsEmptyKey(t *testing.T) {
	op := &WriteOp{
		Merges: []NodeMerge{{Alias: "company", Label: LabelCompany}},
	}

	_, _, err := op.Render()
	assert.ErrorIs(t, err, data.ErrMalformedRecord)
}

func TestRenderRejectsDuplicateAlias(t *testing.T) {
	op := &WriteOp{
		Merges: []NodeMerge{
			{Alias: "date", Label: LabelDate, Key: Props{"date": "20240315"}},
			{Alias: "date", Label: LabelDate, Key: Props{"date": "20240316"}},
		},
	}

	_, _, err := op.Render()
	assert.ErrorIs(t, err, data.ErrMalformedRecord)
}

func TestRenderRejectsUnboundEdgeAlias(t *testing.T) {
	op := &WriteOp{
		Merges: []NodeMerge{
			{Alias: "date", Label: LabelDate, Key: Props{"date": "20240315"}},
		},
		Edges: []EdgeMerge{
			{From: "date", Rel: RelInQuarter, To: "quarter"},
		},
	}

	_, _, err := op.Render()
	assert.ErrorIs(t, err, data.ErrMalformedRecord)
}

func TestRenderRejectsUnboundScopedEndpoints(t *testing.T) {
	op := &WriteOp{
		Matches: []NodeMatch{
			{Alias: "company", Label: LabelCompany, Key: Props{"stock_code": "005930"}},
		},
		Scoped: []ScopedMerge{
			{
				Alias: "price", Label: LabelStockPrice,
				Owner: "company", OwnerRel: RelHasPrice,
				Anchor: "date", AnchorRel: RelRecordedOn,
			},
		},
	}

	_, _, err := op.Render()
	assert.ErrorIs(t, err, data.ErrMalformedRecord)
}

func TestRenderStatementOrdering(t *testing.T) {
	op := &WriteOp{
		Merges: []NodeMerge{
			{Alias: "date", Label: LabelDate, Key: Props{"date": "20240315"}},
		},
		Matches: []NodeMatch{
			{Alias: "company", Label: LabelCompany, Key: Props{"stock_code": "005930"}},
		},
		Scoped: []ScopedMerge{
			{
				Alias: "price", Label: LabelStockPrice,
				Owner: "company", OwnerRel: RelHasPrice,
				Anchor: "date", AnchorRel: RelRecordedOn,
			},
		},
	}

	statement, _, err := op.Render()
	require.NoError(t, err)

	mergeIdx := strings.Index(statement, "MERGE (date:Date")
	withIdx := strings.Index(statement, "WITH ")
	matchIdx := strings.Index(statement, "MATCH (company:Company")
	scopedIdx := strings.Index(statement, "MERGE (company)-")

	assert.True(t, mergeIdx < withIdx)
	assert.True(t, withIdx < matchIdx)
	assert.True(t, matchIdx < scopedIdx)
}
