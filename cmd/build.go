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
	"os/signal"
	"syscall"

	"github.com/goccy/go-json"
	"github.com/hako/durafmt"
	"github.com/quantgraph/kgdata/data"
	"github.com/quantgraph/kgdata/fetch"
	"github.com/quantgraph/kgdata/graph"
	"github.com/quantgraph/kgdata/healthcheck"
	"github.com/quantgraph/kgdata/ingest"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	buildStart     string
	buildEnd       string
	buildDatesFile string
	buildNoRecover bool
)

// buildCmd represents the build command
var buildCmd = &cobra.Command{
	Use:   "build [date...]",
	Short: "Merge company, price, and financial statement facts into the graph",
	Long: `The build sub-command runs a full construction batch: it loads the company
universe, writes companies and competitor relationships that are not yet in
the graph, and then merges the price, indicator, and financial statement
sub-graph for every requested trading date.

Dates may be given as arguments (YYYYMMDD or YYYY-MM-DD), as an inclusive
range with --start and --end, or as a JSON document ({"dates": [...]})
via --dates-file.
The same date can be built repeatedly; existing facts are matched rather
than duplicated.`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		dates, err := collectDates(args)
		if err != nil {
			log.Fatal().Err(err).Msg("could not determine dates to build")
		}

		if len(dates) == 0 {
			log.Fatal().Msg("no dates specified; pass dates as arguments, --start/--end, or --dates-file")
		}

		store, err := graph.Connect(ctx,
			viper.GetString("graph.url"),
			viper.GetString("graph.user"),
			viper.GetString("graph.password"),
			viper.GetString("graph.database"),
		)
		if err != nil {
			log.Fatal().Err(err).Str("URI", viper.GetString("graph.url")).Msg("could not connect to graph database")
		}

		defer store.Close(ctx)

		sources := fetch.NewSources(fetch.ConfigFromViper())

		orchestrator := ingest.New(store, sources)
		orchestrator.RollbackProcessed = !buildNoRecover

		checkID := viper.GetString("healthchecks.checkid")
		if checkID != "" {
			if err := healthcheck.PingStart(checkID); err != nil {
				log.Warn().Err(err).Msg("healthcheck start ping failed")
			}
		}

		summary, runErr := orchestrator.Execute(ctx, dates)
		reportSummary(summary)

		if runErr != nil {
			if checkID != "" {
				if err := healthcheck.PingFail(checkID); err != nil {
					log.Warn().Err(err).Msg("healthcheck fail ping failed")
				}
			}

			log.Error().Err(runErr).Msg("build did not complete")
			store.Close(ctx)
			os.Exit(1)
		}

		if checkID != "" {
			if err := healthcheck.PingSuccess(checkID); err != nil {
				log.Warn().Err(err).Msg("healthcheck success ping failed")
			}
		}
	},
}

// datesFile is the --dates-file document: {"dates": ["20240315", ...]}.
type datesFile struct {
	Dates []string `json:"dates"`
}

// collectDates merges date arguments, the --start/--end range, and the
// contents of --dates-file into a single ordered list.
func collectDates(args []string) ([]string, error) {
	dates := make([]string, 0, len(args))
	dates = append(dates, args...)

	if buildStart != "" || buildEnd != "" {
		expanded, err := data.DateRange(buildStart, buildEnd)
		if err != nil {
			return nil, err
		}

		dates = append(dates, expanded...)
	}

	if buildDatesFile != "" {
		raw, err := os.ReadFile(buildDatesFile)
		if err != nil {
			return nil, err
		}

		payload := datesFile{}
		if err := json.Unmarshal(raw, &payload); err != nil {
			return nil, err
		}

		dates = append(dates, payload.Dates...)
	}

	return dates, nil
}

func reportSummary(summary *data.RunSummary) {
	if summary == nil {
		return
	}

	written := 0
	failed := 0

	for _, dateResult := range summary.Dates {
		written += dateResult.Written
		failed += dateResult.Errors
	}

	log.Info().
		Str("RunID", summary.RunID.String()).
		Str("RunTime", durafmt.Parse(summary.Elapsed()).String()).
		Int("NewCompanies", summary.NewCompanies).
		Int("NewCompetitors", summary.NewCompetitors).
		Int("DatesProcessed", len(summary.Dates)).
		Int("FactsWritten", written).
		Int("CompanyErrors", failed).
		Msg("build finished")

	if len(summary.RolledBackDates) > 0 {
		log.Warn().Strs("Dates", summary.RolledBackDates).Msg("rolled back partially written dates")
	}
}

func init() {
	rootCmd.AddCommand(buildCmd)

	buildCmd.Flags().StringVar(&buildStart, "start", "", "first date of an inclusive range (YYYYMMDD)")
	buildCmd.Flags().StringVar(&buildEnd, "end", "", "last date of an inclusive range (YYYYMMDD)")
	buildCmd.Flags().StringVar(&buildDatesFile, "dates-file", "", `JSON file of the form {"dates": ["20240315", ...]}`)
	buildCmd.Flags().BoolVar(&buildNoRecover, "no-rollback", false, "on failure, keep already completed dates instead of deleting them")
}
