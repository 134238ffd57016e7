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
	"context"
	"fmt"
	"strings"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/rs/zerolog/log"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// LabelCount pairs a node label or relationship type with its count.
type LabelCount struct {
	Name  string
	Count int64
}

// DatabaseInfo summarizes the graph's current contents and schema.
type DatabaseInfo struct {
	NodeCount   int64
	RelCount    int64
	NodeTypes   []LabelCount
	RelTypes    []LabelCount
	Constraints []string
	Indexes     []string
}

// ClearAllData detach-deletes every node and relationship. Constraints and
// indexes are retained.
func (store *Store) ClearAllData(ctx context.Context) error {
	return store.writeCypher(ctx, `MATCH (n) DETACH DELETE n`, nil)
}

// ResetDatabase clears all data and additionally drops every constraint and
// every non-system index, returning the database to a blank slate.
func (store *Store) ResetDatabase(ctx context.Context) error {
	if err := store.ClearAllData(ctx); err != nil {
		return err
	}

	constraints, err := store.showNames(ctx, `SHOW CONSTRAINTS`)
	if err != nil {
		return err
	}
	for _, name := range constraints {
		if err := store.writeCypher(ctx, fmt.Sprintf("DROP CONSTRAINT %s IF EXISTS", name), nil); err != nil {
			log.Warn().Err(err).Str("Constraint", name).Msg("could not drop constraint")
		}
	}

	indexes, err := store.showNames(ctx, `SHOW INDEXES`)
	if err != nil {
		return err
	}
	for _, name := range indexes {
		if strings.HasPrefix(name, "system") {
			continue
		}
		if err := store.writeCypher(ctx, fmt.Sprintf("DROP INDEX %s IF EXISTS", name), nil); err != nil {
			log.Warn().Err(err).Str("Index", name).Msg("could not drop index")
		}
	}

	return nil
}

// Info collects node and relationship counts by type plus the declared
// constraints and indexes.
func (store *Store) Info(ctx context.Context) (*DatabaseInfo, error) {
	info := &DatabaseInfo{}

	records, err := store.readCypher(ctx, `MATCH (n) RETURN count(n) AS total`, nil)
	if err != nil {
		return nil, err
	}
	info.NodeCount = singleCount(records, "total")

	records, err = store.readCypher(ctx, `MATCH ()-[r]->() RETURN count(r) AS total`, nil)
	if err != nil {
		return nil, err
	}
	info.RelCount = singleCount(records, "total")

	records, err = store.readCypher(ctx,
		`MATCH (n) RETURN labels(n)[0] AS name, count(n) AS total ORDER BY total DESC`, nil)
	if err != nil {
		return nil, err
	}
	info.NodeTypes = labelCounts(records)

	records, err = store.readCypher(ctx,
		`MATCH ()-[r]->() RETURN type(r) AS name, count(r) AS total ORDER BY total DESC`, nil)
	if err != nil {
		return nil, err
	}
	info.RelTypes = labelCounts(records)

	if info.Constraints, err = store.showNames(ctx, `SHOW CONSTRAINTS`); err != nil {
		return nil, err
	}
	if info.Indexes, err = store.showNames(ctx, `SHOW INDEXES`); err != nil {
		return nil, err
	}

	return info, nil
}

// Summary returns a description of the database in markdown
func (info *DatabaseInfo) Summary(uri string) string {
	p := message.NewPrinter(language.English)
	builder := strings.Builder{}

	builder.WriteString("# Stock Knowledge Graph\n")
	builder.WriteString("## Details\n\n")
	builder.WriteString(fmt.Sprintf("Database: %s\n\n", uri))
	builder.WriteString(p.Sprintf("  * Total Nodes: %d\n", info.NodeCount))
	builder.WriteString(p.Sprintf("  * Total Relationships: %d\n\n", info.RelCount))

	builder.WriteString("## Nodes By Type\n\n")
	for _, nodeType := range info.NodeTypes {
		builder.WriteString(p.Sprintf("  * %s: %d\n", nodeType.Name, nodeType.Count))
	}

	builder.WriteString("\n## Relationships By Type\n\n")
	for _, relType := range info.RelTypes {
		builder.WriteString(p.Sprintf("  * %s: %d\n", relType.Name, relType.Count))
	}

	builder.WriteString(p.Sprintf("\n## Schema\n\nConstraints: %d\n\n", len(info.Constraints)))
	for _, name := range info.Constraints {
		builder.WriteString(fmt.Sprintf("  * %s\n", name))
	}

	builder.WriteString(p.Sprintf("\nIndexes: %d\n\n", len(info.Indexes)))
	for _, name := range info.Indexes {
		builder.WriteString(fmt.Sprintf("  * %s\n", name))
	}

	return builder.String()
}

func (store *Store) showNames(ctx context.Context, statement string) ([]string, error) {
	records, err := store.readCypher(ctx, statement, nil)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(records))
	for _, record := range records {
		if value, ok := record.Get("name"); ok {
			if name, ok := value.(string); ok && name != "" {
				names = append(names, name)
			}
		}
	}

	return names, nil
}

func singleCount(records []*neo4j.Record, field string) int64 {
	if len(records) == 0 {
		return 0
	}
	if value, ok := records[0].Get(field); ok {
		if count, ok := value.(int64); ok {
			return count
		}
	}
	return 0
}

func labelCounts(records []*neo4j.Record) []LabelCount {
	counts := make([]LabelCount, 0, len(records))
	for _, record := range records {
		name, nameOK := record.Get("name")
		total, totalOK := record.Get("total")
		if !nameOK || !totalOK {
			continue
		}

		nameText, nameIsText := name.(string)
		totalCount, totalIsCount := total.(int64)
		if nameIsText && totalIsCount {
			counts = append(counts, LabelCount{Name: nameText, Count: totalCount})
		}
	}
	return counts
}
