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
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "kgdata",
	Short: "kgdata builds and maintains a knowledge graph of listed companies",
	Long: `kgdata is a command line utility for incrementally constructing a
knowledge graph of listed companies, their daily market data, valuation
indicators, and quarterly financial statements in a Neo4j database.

Each invocation merges new facts into the existing graph rather than
rebuilding it: companies and competitor relationships are only written when
they are not already present, and per-date price, indicator, and statement
sub-graphs are merged idempotently so the same date can be re-run without
creating duplicates. If a run is interrupted or the database becomes
unreachable mid-batch, kgdata deletes the partially written date sub-graphs
so the store is left in a consistent state.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.kgdata.toml)")
	rootCmd.PersistentFlags().String("graphUrl", "neo4j://localhost:7687", "neo4j connection URI")
	if err := viper.BindPFlag("graph.url", rootCmd.PersistentFlags().Lookup("graphUrl")); err != nil {
		log.Panic().Err(err).Msg("BindPFlag for graphUrl failed")
	}
	rootCmd.PersistentFlags().String("graphDatabase", "neo4j", "neo4j database name")
	if err := viper.BindPFlag("graph.database", rootCmd.PersistentFlags().Lookup("graphDatabase")); err != nil {
		log.Panic().Err(err).Msg("BindPFlag for graphDatabase failed")
	}
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory.
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		// Search config in home directory with name ".kgdata" (without extension).
		viper.AddConfigPath(home)
		viper.SetConfigType("toml")
		viper.SetConfigName(".kgdata")
	}

	viper.AutomaticEnv() // read in environment variables that match

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err == nil {
		log.Info().Str("ConfigFN", viper.ConfigFileUsed()).Msg("Using config file")
	}
}
