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
package cmd

import (
	"context"
	"os"
	"path/filepath"

	"github.com/charmbracelet/huh"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/pelletier/go-toml/v2"
	"github.com/quantgraph/kgdata/graph"
	"github.com/quantgraph/kgdata/healthcheck"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

type graphConfig struct {
	URL      string `toml:"url"`
	User     string `toml:"user"`
	Password string `toml:"password"`
	Database string `toml:"database"`
}

type sourcesConfig struct {
	ExchangeURL          string `toml:"exchangeUrl"`
	MarketDataURL        string `toml:"marketDataUrl"`
	MarketDataToken      string `toml:"marketDataToken"`
	FilingsURL           string `toml:"filingsUrl"`
	FilingsAPIKey        string `toml:"filingsApiKey"`
	CompetitorURI        string `toml:"competitorUri"`
	CompetitorDatabase   string `toml:"competitorDatabase"`
	CompetitorCollection string `toml:"competitorCollection"`
}

type healthchecksConfig struct {
	APIKey  string `toml:"apikey,omitempty"`
	CheckID string `toml:"checkid,omitempty"`
}

type configFileLayout struct {
	Graph        graphConfig        `toml:"graph"`
	Sources      sourcesConfig      `toml:"sources"`
	Healthchecks healthchecksConfig `toml:"healthchecks,omitempty"`
}

// initCmd represents the init command
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Gather connection settings and create the graph schema",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()

		cfg := configFileLayout{
			Graph: graphConfig{
				URL:      "neo4j://localhost:7687",
				User:     "neo4j",
				Database: "neo4j",
			},
		}

		form := huh.NewForm(
			// Get details about the graph database
			huh.NewGroup(
				huh.NewInput().
					Title("Neo4j connection URI (neo4j://host:port or bolt://host:port)").
					Value(&cfg.Graph.URL).
					Validate(func(uri string) error {
						_, err := neo4j.NewDriverWithContext(uri, neo4j.NoAuth())
						return err
					}),

				huh.NewInput().
					Title("Neo4j user").
					Value(&cfg.Graph.User),

				huh.NewInput().
					Title("Neo4j password").
					EchoMode(huh.EchoModePassword).
					Value(&cfg.Graph.Password),

				huh.NewInput().
					Title("Neo4j database name").
					Value(&cfg.Graph.Database),
			),

			// Gather the upstream source endpoints
			huh.NewGroup(
				huh.NewInput().
					Title("Exchange listing endpoint URL").
					Value(&cfg.Sources.ExchangeURL),

				huh.NewInput().
					Title("Market data endpoint URL").
					Value(&cfg.Sources.MarketDataURL),

				huh.NewInput().
					Title("Market data API token").
					Value(&cfg.Sources.MarketDataToken),

				huh.NewInput().
					Title("Financial filings endpoint URL").
					Value(&cfg.Sources.FilingsURL),

				huh.NewInput().
					Title("Financial filings API key").
					Value(&cfg.Sources.FilingsAPIKey),

				huh.NewInput().
					Title("Competitor feed MongoDB URI (leave empty to skip competitor edges)").
					Value(&cfg.Sources.CompetitorURI),

				huh.NewInput().
					Title("Competitor feed database").
					Value(&cfg.Sources.CompetitorDatabase),

				huh.NewInput().
					Title("Competitor feed collection").
					Value(&cfg.Sources.CompetitorCollection),
			),

			// Optional healthchecks.io monitoring for the build batch
			huh.NewGroup(
				huh.NewInput().
					Title("healthchecks.io API key (leave empty to skip monitoring)").
					Value(&cfg.Healthchecks.APIKey),
			),
		)

		err := form.Run()
		if err != nil {
			log.Fatal().Err(err).Msg("error gathering connection settings")
		}

		log.Info().Msg("creating graph constraints")

		store, err := graph.Connect(ctx, cfg.Graph.URL, cfg.Graph.User, cfg.Graph.Password, cfg.Graph.Database)
		if err != nil {
			log.Fatal().Err(err).Msg("could not connect to graph database")
		}

		defer store.Close(ctx)

		if err := store.EnsureConstraints(ctx); err != nil {
			log.Fatal().Err(err).Msg("error creating graph constraints")
		}

		log.Info().Msg("graph constraints created")

		if cfg.Healthchecks.APIKey != "" {
			viper.Set("healthchecks.apikey", cfg.Healthchecks.APIKey)

			checkID, err := healthcheck.Create("kgdata build", "kgdata-build", []string{"kgdata"}, "0 19 * * 1-5")
			if err != nil {
				log.Fatal().Err(err).Msg("could not create health check")
			}

			cfg.Healthchecks.CheckID = checkID
			log.Info().Str("CheckID", checkID).Msg("created health check for the build batch")
		}

		// save settings to config file
		home, err := os.UserHomeDir()
		if err != nil {
			log.Fatal().Err(err).Msg("could not determine user home directory")
		}

		configFN := filepath.Join(home, ".kgdata.toml")
		log.Info().Str("ConfigFile", configFN).Msg("Saving connection info to config file")
		configData, err := toml.Marshal(cfg)
		if err != nil {
			log.Fatal().Err(err).Msg("could not marshal configuration data")
		}

		err = os.WriteFile(configFN, configData, 0644)
		if err != nil {
			log.Fatal().Err(err).Str("FileName", configFN).Msg("could not save configuration to file")
		}

		log.Info().Msg("Your knowledge graph has been initialized")
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
