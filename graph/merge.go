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
	"sort"
	"strings"

	"github.com/quantgraph/kgdata/data"
)

// Props is a bag of node or edge attributes. Values travel as query
// parameters; nothing is ever interpolated into statement text.
type Props map[string]any

// NodeMerge creates or matches a node by its natural key and applies the full
// attribute set. Key attributes must be stable across invocations for the same
// logical entity and never include optional fields.
type NodeMerge struct {
	Alias string
	Label string
	Key   Props
	Props Props
}

// NodeMatch binds an alias to a node that must already exist.
type NodeMatch struct {
	Alias string
	Label string
	Key   Props
}

// ScopedMerge creates a node that has no natural key of its own. The node is
// merged through its owner and anchor endpoints, so exactly one exists per
// (owner, anchor) pair and the linkage can never be partial.
type ScopedMerge struct {
	Alias     string
	Label     string
	Owner     string
	OwnerRel  string
	Anchor    string
	AnchorRel string
	Props     Props
}

// EdgeMerge creates a directed relationship between two bound aliases.
// Merge-by-endpoint-and-type semantics make re-creation a no-op.
type EdgeMerge struct {
	From string
	Rel  string
	To   string
}

// WriteOp is one synthesized write: the node and edge merges that must exist
// after a single transaction commits.
type WriteOp struct {
	Merges  []NodeMerge
	Matches []NodeMatch
	Scoped  []ScopedMerge
	Edges   []EdgeMerge
}

// Render produces a single parameterized Cypher statement and its parameter
// map. Statement shape is deterministic: keyed merges, then matches, then
// scoped merges, then edges, with key attributes emitted in sorted order.
func (op *WriteOp) Render() (string, map[string]any, error) {
	builder := strings.Builder{}
	params := make(map[string]any)
	bound := make(map[string]bool)

	for _, merge := range op.Merges {
		if err := validateAlias(merge.Alias, bound); err != nil {
			return "", nil, err
		}
		if len(merge.Key) == 0 {
			return "", nil, fmt.Errorf("%w: node merge %s/%s has no key attributes", data.ErrMalformedRecord, merge.Alias, merge.Label)
		}
		bound[merge.Alias] = true

		builder.WriteString(fmt.Sprintf("MERGE (%s:%s %s)\n", merge.Alias, merge.Label, keyPattern(merge.Alias, merge.Key, params)))
		if len(merge.Props) > 0 {
			propsParam := merge.Alias + "_props"
			params[propsParam] = map[string]any(merge.Props)
			builder.WriteString(fmt.Sprintf("SET %s += $%s\n", merge.Alias, propsParam))
		}
	}

	if len(op.Matches) > 0 || len(op.Scoped) > 0 {
		if len(bound) > 0 {
			aliases := make([]string, 0, len(bound))
			for alias := range bound {
				aliases = append(aliases, alias)
			}
			sort.Strings(aliases)
			builder.WriteString("WITH " + strings.Join(aliases, ", ") + "\n")
		}

		for _, match := range op.Matches {
			if err := validateAlias(match.Alias, bound); err != nil {
				return "", nil, err
			}
			if len(match.Key) == 0 {
				return "", nil, fmt.Errorf("%w: node match %s/%s has no key attributes", data.ErrMalformedRecord, match.Alias, match.Label)
			}
			bound[match.Alias] = true

			builder.WriteString(fmt.Sprintf("MATCH (%s:%s %s)\n", match.Alias, match.Label, keyPattern(match.Alias, match.Key, params)))
		}

		for _, scoped := range op.Scoped {
			if err := validateAlias(scoped.Alias, bound); err != nil {
				return "", nil, err
			}
			if !bound[scoped.Owner] {
				return "", nil, fmt.Errorf("%w: scoped merge %s references unbound owner %s", data.ErrMalformedRecord, scoped.Alias, scoped.Owner)
			}
			if !bound[scoped.Anchor] {
				return "", nil, fmt.Errorf("%w: scoped merge %s references unbound anchor %s", data.ErrMalformedRecord, scoped.Alias, scoped.Anchor)
			}
			bound[scoped.Alias] = true

			builder.WriteString(fmt.Sprintf("MERGE (%s)-[:%s]->(%s:%s)-[:%s]->(%s)\n",
				scoped.Owner, scoped.OwnerRel, scoped.Alias, scoped.Label, scoped.AnchorRel, scoped.Anchor))
			if len(scoped.Props) > 0 {
				propsParam := scoped.Alias + "_props"
				params[propsParam] = map[string]any(scoped.Props)
				builder.WriteString(fmt.Sprintf("SET %s += $%s\n", scoped.Alias, propsParam))
			}
		}
	}

	for _, edge := range op.Edges {
		if !bound[edge.From] || !bound[edge.To] {
			return "", nil, fmt.Errorf("%w: edge %s-[:%s]->%s references an unbound alias", data.ErrMalformedRecord, edge.From, edge.Rel, edge.To)
		}
		builder.WriteString(fmt.Sprintf("MERGE (%s)-[:%s]->(%s)\n", edge.From, edge.Rel, edge.To))
	}

	return builder.String(), params, nil
}

func validateAlias(alias string, bound map[string]bool) error {
	if alias == "" {
		return fmt.Errorf("%w: merge spec with empty alias", data.ErrMalformedRecord)
	}
	if bound[alias] {
		return fmt.Errorf("%w: alias %s bound twice", data.ErrMalformedRecord, alias)
	}
	return nil
}

// keyPattern renders `{name: $alias_name, ...}` and registers the key values
// as parameters. Names are sorted so statements are reproducible.
func keyPattern(alias string, key Props, params map[string]any) string {
	names := make([]string, 0, len(key))
	for name := range key {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		param := alias + "_" + name
		params[param] = key[name]
		parts = append(parts, fmt.Sprintf("%s: $%s", name, param))
	}

	return "{" + strings.Join(parts, ", ") + "}"
}
