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
	"fmt"

	"github.com/charmbracelet/glamour"
	"github.com/quantgraph/kgdata/graph"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// infoCmd represents the info command
var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Display information about the knowledge graph",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()

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

		info, err := store.Info(ctx)
		if err != nil {
			log.Fatal().Err(err).Msg("could not collect graph statistics")
		}

		r, _ := glamour.NewTermRenderer(
			// detect background color and pick either the default dark or light theme
			glamour.WithAutoStyle(),
			// wrap output at specific width (default is 80)
			glamour.WithWordWrap(80),
		)

		out, err := r.Render(info.Summary(store.URI))
		if err != nil {
			log.Fatal().Err(err).Msg("could not render summary document")
		}

		fmt.Print(out)
	},
}

func init() {
	rootCmd.AddCommand(infoCmd)
}
