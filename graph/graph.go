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
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/quantgraph/kgdata/data"
	"github.com/rs/zerolog/log"
)

// Store is a handle on the knowledge-graph database. A run holds exactly one
// Store with one open session; writers are single-threaded so no further
// coordination is needed.
type Store struct {
	URI      string
	Database string

	driver  neo4j.DriverWithContext
	session neo4j.SessionWithContext
}

// Connect opens a driver against the configured graph database, verifies
// connectivity, and opens the session used for the remainder of the run.
func Connect(ctx context.Context, uri string, user string, password string, database string) (*Store, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(user, password, ""), func(cfg *neo4j.Config) {
		cfg.SocketConnectTimeout = 10 * time.Second
	})
	if err != nil {
		return nil, fmt.Errorf("%w: init driver: %s", data.ErrStoreUnavailable, err)
	}

	if err := driver.VerifyConnectivity(ctx); err != nil {
		if closeErr := driver.Close(ctx); closeErr != nil {
			log.Error().Err(closeErr).Msg("could not close graph driver")
		}
		return nil, fmt.Errorf("%w: verify connectivity: %s", data.ErrStoreUnavailable, err)
	}

	store := &Store{
		URI:      uri,
		Database: database,
		driver:   driver,
	}
	store.session = driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeWrite,
		DatabaseName: database,
	})

	return store, nil
}

// Close releases the session and the underlying driver.
func (store *Store) Close(ctx context.Context) error {
	if store == nil || store.driver == nil {
		return nil
	}

	if store.session != nil {
		if err := store.session.Close(ctx); err != nil {
			log.Error().Err(err).Msg("could not close graph session")
		}
		store.session = nil
	}

	err := store.driver.Close(ctx)
	store.driver = nil
	return err
}

// Write renders the merge specs to a single parameterized statement and
// executes it in one transaction. Either every node and edge in the op exists
// afterwards or none do.
func (store *Store) Write(ctx context.Context, op *WriteOp) error {
	statement, params, err := op.Render()
	if err != nil {
		return err
	}

	return store.writeCypher(ctx, statement, params)
}

func (store *Store) writeCypher(ctx context.Context, statement string, params map[string]any) error {
	_, err := store.session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, statement, params)
		if err != nil {
			return nil, err
		}
		return res.Consume(ctx)
	})

	return wrapStoreErr(err)
}

func (store *Store) readCypher(ctx context.Context, statement string, params map[string]any) ([]*neo4j.Record, error) {
	records, err := store.session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, statement, params)
		if err != nil {
			return nil, err
		}
		return res.Collect(ctx)
	})
	if err != nil {
		return nil, wrapStoreErr(err)
	}

	return records.([]*neo4j.Record), nil
}

// wrapStoreErr tags connection-level failures so the orchestrator can tell a
// fatal outage apart from a rejected statement.
func wrapStoreErr(err error) error {
	if err == nil {
		return nil
	}
	if neo4j.IsConnectivityError(err) {
		return fmt.Errorf("%w: %s", data.ErrStoreUnavailable, err)
	}
	return err
}
