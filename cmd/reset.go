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

	"github.com/quantgraph/kgdata/graph"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var resetYes bool

// resetCmd represents the reset command
var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Delete all graph data, constraints, and indexes",
	Long: `The reset sub-command returns the graph database to an empty state: every
node and relationship is deleted and all user-created constraints and indexes
are dropped. The next build run recreates the schema.`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()

		if !resetYes && !confirmDestructive("Delete ALL data, constraints, and indexes?") {
			log.Info().Msg("aborted")
			return
		}

		store, err := graph.Connect(ctx,
			viper.GetString("graph.url"),
			viper.GetString("graph.user"),
			viper.GetString("graph.password"),
			viper.GetString("graph.database"),
		)
		if err != nil {
			log.Fatal().Err(err).Msg("could not connect to graph database")
		}

		defer store.Close(ctx)

		if err := store.ResetDatabase(ctx); err != nil {
			log.Fatal().Err(err).Msg("could not reset graph database")
		}

		log.Info().Msg("graph database reset")
	},
}

func init() {
	rootCmd.AddCommand(resetCmd)
	resetCmd.Flags().BoolVarP(&resetYes, "yes", "y", false, "skip the confirmation prompt")
}
