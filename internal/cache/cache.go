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

// Package cache memoizes read-side aggregates per ticker. Entries expire
// after DefaultTTL, but write paths must still invalidate explicitly: TTL
// expiry alone would serve stale derived data right after ingestion.
// Everything cached here is recomputable from the store.
package cache

import (
	"context"
	"fmt"
	"time"
)

// DefaultTTL bounds the lifetime of any cached aggregate.
const DefaultTTL = 24 * time.Hour

// Cache is the key-value port injected into read paths. Implementations
// must treat a missing key as (nil, false, nil), not an error.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, val []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

func LastPriceKey(ticker string) string {
	return fmt.Sprintf("last_price_%s", ticker)
}

func LastCandleDateKey(ticker string) string {
	return fmt.Sprintf("last_candle_date_%s", ticker)
}

func DailyPriceRangeKey(ticker string) string {
	return fmt.Sprintf("daily_price_range_%s", ticker)
}

func YearlyPriceRangeKey(ticker string) string {
	return fmt.Sprintf("yearly_price_range_%s", ticker)
}

func OpeningClosingPriceTodayKey(ticker string) string {
	return fmt.Sprintf("opening_closing_price_today_%s", ticker)
}

func StockDetailKey(ticker string) string {
	return fmt.Sprintf("stock_detail_%s", ticker)
}

// TickerKeys enumerates every cache key derived from one ticker's data.
func TickerKeys(ticker string) []string {
	return []string{
		LastPriceKey(ticker),
		LastCandleDateKey(ticker),
		DailyPriceRangeKey(ticker),
		YearlyPriceRangeKey(ticker),
		OpeningClosingPriceTodayKey(ticker),
		StockDetailKey(ticker),
	}
}

// InvalidateTicker drops all cached aggregates for ticker. Call it from any
// write path that changes the underlying candles or price changes.
func InvalidateTicker(ctx context.Context, c Cache, ticker string) error {
	if c == nil {
		return nil
	}
	if err := c.Delete(ctx, TickerKeys(ticker)...); err != nil {
		return fmt.Errorf("failed to invalidate cache for stock %q: %w", ticker, err)
	}
	return nil
}
