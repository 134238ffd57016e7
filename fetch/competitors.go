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

	"github.com/quantgraph/kgdata/data"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// CompetitorClient reads the curated competitor feed, a document collection of
// {target_company, competitors[]} entries.
type CompetitorClient struct {
	URI        string
	Database   string
	Collection string
}

// NewCompetitorClient returns a client for the competitor feed collection.
func NewCompetitorClient(uri string, database string, collection string) *CompetitorClient {
	return &CompetitorClient{
		URI:        uri,
		Database:   database,
		Collection: collection,
	}
}

type competitorRef struct {
	Code string `bson:"code"`
	Name string `bson:"name"`
}

type competitorDocument struct {
	TargetCompany competitorRef   `bson:"target_company"`
	Competitors   []competitorRef `bson:"competitors"`
}

// Links returns the competitor links for companies in the given universe.
// Feed entries for unlisted companies are dropped; listed companies missing
// from the feed appear with an empty competitor list.
func (competitors *CompetitorClient) Links(ctx context.Context, codes []string) ([]*data.CompetitorLink, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(competitors.URI))
	if err != nil {
		return nil, fmt.Errorf("%w: connect competitor feed: %s", data.ErrTransientSource, err)
	}
	defer func() {
		if err := client.Disconnect(ctx); err != nil {
			log.Error().Err(err).Msg("could not disconnect from competitor feed")
		}
	}()

	cursor, err := client.Database(competitors.Database).Collection(competitors.Collection).Find(ctx, bson.D{})
	if err != nil {
		return nil, fmt.Errorf("%w: query competitor feed: %s", data.ErrTransientSource, err)
	}

	var documents []competitorDocument
	if err := cursor.All(ctx, &documents); err != nil {
		return nil, fmt.Errorf("%w: decode competitor feed: %s", data.ErrTransientSource, err)
	}

	inUniverse := make(map[string]struct{}, len(codes))
	for _, code := range codes {
		inUniverse[code] = struct{}{}
	}

	linkByCode := make(map[string]*data.CompetitorLink, len(documents))
	for _, document := range documents {
		code := document.TargetCompany.Code
		if code == "" {
			continue
		}
		if _, ok := inUniverse[code]; !ok {
			continue
		}

		link := &data.CompetitorLink{
			StockCode: code,
			StockName: document.TargetCompany.Name,
		}
		for _, competitor := range document.Competitors {
			if competitor.Code == "" {
				continue
			}
			link.CompetitorCodes = append(link.CompetitorCodes, competitor.Code)
			link.CompetitorNames = append(link.CompetitorNames, competitor.Name)
		}

		linkByCode[code] = link
	}

	// Companies the feed does not cover still get a record so callers can
	// denormalize an empty list onto the Company node.
	links := make([]*data.CompetitorLink, 0, len(codes))
	for _, code := range codes {
		if link, ok := linkByCode[code]; ok {
			links = append(links, link)
			continue
		}
		links = append(links, &data.CompetitorLink{StockCode: code})
	}

	log.Info().Int("NumDocuments", len(documents)).Int("NumLinks", len(links)).Msg("collected competitor links")
	return links, nil
}
