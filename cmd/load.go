/*
Copyright © 2020 A. Jensen <jensen.aaro@gmail.com>

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with this program. If not, see <http://www.gnu.org/licenses/>.
*/
package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ajjensen13/gke"

	"github.com/ajjensen13/moexer/internal/pipeline"
	"github.com/ajjensen13/moexer/internal/util"
)

const (
	dbSecretName  = "moexer-db-secret.json"
	appConfigName = "moexer-config-cm.json"
)

const dateFlagLayout = "2006-01-02"

type appConfig struct {
	ApiBaseURL             string `json:"api_base_url"`
	Board                  string `json:"board"`
	Timezone               string `json:"timezone"`
	RedisAddr              string `json:"redis_addr"`
	RedisDb                int    `json:"redis_db"`
	Workers                int    `json:"workers"`
	PriceChangeBufferHours int    `json:"price_change_buffer_hours"`
	DataSourceName         string `json:"data_source_name"`
	MigrationSourceURL     string `json:"migration_source_url"`
}

var (
	loadUpdate bool
	loadDays   int
	loadStart  string
	loadEnd    string
)

// loadCmd represents the load command
var loadCmd = &cobra.Command{
	Use:   "load",
	Short: "Load the share catalog, candle history, and price changes",
	Long: `load refreshes the share catalog from MOEX, ingests candle history
for every active ticker, and recomputes per-ticker price changes.

Without flags the entire available history is reconciled. With --update only
the trailing --days days are fetched. --start and --end narrow a full run;
out-of-range bounds are clamped to the provider's available dates.`,
	Run: func(cmd *cobra.Command, args []string) {
		runCfg, err := parseRunConfig()
		if err != nil {
			cmd.PrintErrf("moexer: %v\n", err)
			os.Exit(2)
		}

		lg, cleanup := logger()
		defer cleanup()

		ctx := util.WithLogger(context.Background(), lg)

		pool, cleanupPool, err := openPool(ctx)
		if err != nil {
			panic(lg.ErrorErr(fmt.Errorf("failed to open database connection pool: %w", err)))
		}
		defer cleanupPool()

		o, cleanupOrchestrator, err := orchestrator(lg, pool)
		if err != nil {
			panic(lg.ErrorErr(fmt.Errorf("failed to setup ingestion pipeline: %w", err)))
		}
		defer cleanupOrchestrator()

		report, err := o.Run(ctx, runCfg)
		if err != nil {
			panic(lg.ErrorErr(fmt.Errorf("failed to load stock data: %w", err)))
		}

		for _, f := range report.Failures {
			lg.Warningf("stock %q failed: %v", f.Ticker, f.Err)
		}

		lg.Default(gke.NewFmtMsgData("loaded stock data in %v: %d stocks, %d candles, %d price changes, %d failures",
			report.Elapsed, report.Stocks, report.Candles, report.PriceChanges, len(report.Failures)))
	},
}

func parseRunConfig() (pipeline.RunConfig, error) {
	result := pipeline.RunConfig{Update: loadUpdate, Days: loadDays}

	if loadStart != "" {
		t, err := time.Parse(dateFlagLayout, loadStart)
		if err != nil {
			return result, fmt.Errorf("invalid --start date %q, expected YYYY-MM-DD", loadStart)
		}
		result.Start = &t
	}

	if loadEnd != "" {
		t, err := time.Parse(dateFlagLayout, loadEnd)
		if err != nil {
			return result, fmt.Errorf("invalid --end date %q, expected YYYY-MM-DD", loadEnd)
		}
		result.End = &t
	}

	if result.Start != nil && result.End != nil && !result.Start.Before(*result.End) {
		return result, fmt.Errorf("--start %q must be before --end %q", loadStart, loadEnd)
	}

	if loadUpdate && (loadStart != "" || loadEnd != "") {
		return result, fmt.Errorf("--update cannot be combined with --start or --end")
	}

	return result, nil
}

func init() {
	rootCmd.AddCommand(loadCmd)

	loadCmd.Flags().BoolVarP(&loadUpdate, "update", "U", false, "fetch only the trailing --days days instead of the full history")
	loadCmd.Flags().IntVar(&loadDays, "days", 1, "trailing window for --update runs, in days")
	loadCmd.Flags().StringVar(&loadStart, "start", "", "start date (YYYY-MM-DD) for a full run")
	loadCmd.Flags().StringVar(&loadEnd, "end", "", "end date (YYYY-MM-DD) for a full run")
}
