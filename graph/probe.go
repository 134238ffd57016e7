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

// CompetitorPair is an ordered (source, destination) company pair.
type CompetitorPair struct {
	Src string
	Dst string
}

// ExistingCompanyCodes returns the stock codes already present in the graph.
// The probe is read-only; a stale answer is harmless because every subsequent
// write uses merge semantics.
func (store *Store) ExistingCompanyCodes(ctx context.Context) (map[string]struct{}, error) {
	records, err := store.readCypher(ctx, `MATCH (c:Company) RETURN c.stock_code AS stock_code`, nil)
	if err != nil {
		return nil, err
	}

	codes := make(map[string]struct{}, len(records))
	for _, record := range records {
		if code, ok := record.Get("stock_code"); ok {
			if text, ok := code.(string); ok {
				codes[text] = struct{}{}
			}
		}
	}

	return codes, nil
}

// ExistingCompetitorPairs returns every ordered pair of companies already
// connected by a COMPETES_WITH edge.
func (store *Store) ExistingCompetitorPairs(ctx context.Context) (map[CompetitorPair]struct{}, error) {
	records, err := store.readCypher(ctx,
		`MATCH (a:Company)-[:COMPETES_WITH]->(b:Company) RETURN a.stock_code AS src, b.stock_code AS dst`, nil)
	if err != nil {
		return nil, err
	}

	pairs := make(map[CompetitorPair]struct{}, len(records))
	for _, record := range records {
		src, srcOK := record.Get("src")
		dst, dstOK := record.Get("dst")
		if !srcOK || !dstOK {
			continue
		}

		srcText, srcIsText := src.(string)
		dstText, dstIsText := dst.(string)
		if srcIsText && dstIsText {
			pairs[CompetitorPair{Src: srcText, Dst: dstText}] = struct{}{}
		}
	}

	return pairs, nil
}
