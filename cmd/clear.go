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

	"github.com/charmbracelet/huh"
	"github.com/quantgraph/kgdata/graph"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var clearYes bool

// clearCmd represents the clear command
var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every node and relationship from the graph",
	Long: `The clear sub-command deletes all nodes and relationships from the graph
database. Constraints and indexes are kept; use reset to remove those too.`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()

		if !clearYes && !confirmDestructive("Delete ALL nodes and relationships?") {
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

		if err := store.ClearAllData(ctx); err != nil {
			log.Fatal().Err(err).Msg("could not clear graph data")
		}

		log.Info().Msg("graph data cleared")
	},
}

func confirmDestructive(title string) bool {
	confirmed := false

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(title).
				Affirmative("Yes").
				Negative("No").
				Value(&confirmed),
		),
	)

	if err := form.Run(); err != nil {
		log.Fatal().Err(err).Msg("error reading confirmation")
	}

	return confirmed
}

func init() {
	rootCmd.AddCommand(clearCmd)
	clearCmd.Flags().BoolVarP(&clearYes, "yes", "y", false, "skip the confirmation prompt")
}
