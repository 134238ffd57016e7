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
	"os"

	"github.com/gocarina/gocsv"
	"github.com/quantgraph/kgdata/data"
	"github.com/rs/zerolog/log"
)

// CSVUniverse reads the company universe from a local CSV file instead of the
// exchange endpoint. Used for offline and backfill runs; competitor lists are
// not part of the file and stay empty.
type CSVUniverse struct {
	Path string
}

// Universe loads and normalizes the company records from the file.
func (universe *CSVUniverse) Universe(ctx context.Context) ([]*data.Company, error) {
	fh, err := os.Open(universe.Path)
	if err != nil {
		return nil, fmt.Errorf("open universe file: %w", err)
	}
	defer func() {
		if err := fh.Close(); err != nil {
			log.Error().Err(err).Str("Path", universe.Path).Msg("could not close universe file")
		}
	}()

	var companies []*data.Company
	if err := gocsv.UnmarshalFile(fh, &companies); err != nil {
		return nil, fmt.Errorf("parse universe file: %w", err)
	}

	normalized := make([]*data.Company, 0, len(companies))
	for _, company := range companies {
		if company.StockCode == "" {
			log.Warn().Str("Name", company.Name).Msg("skipping universe row without stock code")
			continue
		}
		company.StockCode = padStockCode(company.StockCode)
		normalized = append(normalized, company)
	}

	log.Info().Str("Path", universe.Path).Int("NumCompanies", len(normalized)).Msg("loaded company universe from file")
	return normalized, nil
}
