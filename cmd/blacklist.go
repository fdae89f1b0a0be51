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

	"github.com/spf13/cobra"

	"github.com/ajjensen13/moexer/internal/db"
	"github.com/ajjensen13/moexer/internal/util"
)

var blacklistCmd = &cobra.Command{
	Use:   "blacklist",
	Short: "Exclude tickers from ingestion and listing",
	Long: `Blacklisted tickers are skipped by load runs and excluded from
active-ticker queries. Already stored candles are kept.`,
}

var blacklistAddCmd = &cobra.Command{
	Use:  "add <ticker>",
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runBlacklist(args[0], func(ctx context.Context, store *db.Store, ticker string) error {
			return store.BlacklistTicker(ctx, ticker)
		})
	},
}

var blacklistRemoveCmd = &cobra.Command{
	Use:  "remove <ticker>",
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runBlacklist(args[0], func(ctx context.Context, store *db.Store, ticker string) error {
			return store.UnblacklistTicker(ctx, ticker)
		})
	},
}

func runBlacklist(ticker string, f func(ctx context.Context, store *db.Store, ticker string) error) {
	lg, cleanup := logger()
	defer cleanup()

	ctx := util.WithLogger(context.Background(), lg)

	pool, cleanupPool, err := openPool(ctx)
	if err != nil {
		panic(lg.ErrorErr(fmt.Errorf("failed to open database connection pool: %w", err)))
	}
	defer cleanupPool()

	if err := f(ctx, provideStore(pool), ticker); err != nil {
		panic(lg.ErrorErr(err))
	}

	lg.Defaultf("successfully updated blacklist for stock %q", ticker)
}

func init() {
	blacklistCmd.AddCommand(blacklistAddCmd)
	blacklistCmd.AddCommand(blacklistRemoveCmd)
	rootCmd.AddCommand(blacklistCmd)
}
