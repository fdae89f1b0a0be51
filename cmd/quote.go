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
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ajjensen13/moexer/internal/quote"
	"github.com/ajjensen13/moexer/internal/util"
)

// quoteCmd represents the quote command
var quoteCmd = &cobra.Command{
	Use:   "quote <ticker>",
	Short: "Print the derived metrics for one ticker",
	Long: `quote prints the stored detail payload for a ticker: catalog data,
last price, last candle date, price changes, and the daily/yearly price
ranges. Reads are memoized through the cache.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		lg, cleanup := logger()
		defer cleanup()

		ctx := util.WithLogger(context.Background(), lg)

		pool, cleanupPool, err := openPool(ctx)
		if err != nil {
			panic(lg.ErrorErr(fmt.Errorf("failed to open database connection pool: %w", err)))
		}
		defer cleanupPool()

		svc, cleanupSvc, err := quotes(pool)
		if err != nil {
			panic(lg.ErrorErr(fmt.Errorf("failed to setup quote service: %w", err)))
		}
		defer cleanupSvc()

		ticker := args[0]

		detail, err := svc.StockDetail(ctx, ticker)
		if err != nil {
			panic(lg.ErrorErr(fmt.Errorf("failed to query stock detail %q: %w", ticker, err)))
		}

		pair, err := svc.OpeningClosingToday(ctx, ticker)
		if err != nil {
			panic(lg.ErrorErr(fmt.Errorf("failed to query opening/closing prices %q: %w", ticker, err)))
		}

		daily, err := svc.DailyPriceRange(ctx, ticker)
		if err != nil {
			panic(lg.ErrorErr(fmt.Errorf("failed to query daily price range %q: %w", ticker, err)))
		}

		yearly, err := svc.YearlyPriceRange(ctx, ticker)
		if err != nil {
			panic(lg.ErrorErr(fmt.Errorf("failed to query yearly price range %q: %w", ticker, err)))
		}

		out := struct {
			Detail         quote.Detail     `json:"detail"`
			OpeningClosing quote.PricePair  `json:"opening_closing_today"`
			DailyRange     quote.PriceRange `json:"daily_price_range"`
			YearlyRange    quote.PriceRange `json:"yearly_price_range"`
		}{detail, pair, daily, yearly}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if err := enc.Encode(out); err != nil {
			panic(lg.ErrorErr(fmt.Errorf("failed to render quote %q: %w", ticker, err)))
		}
	},
}

func init() {
	rootCmd.AddCommand(quoteCmd)
}
