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

// Package change derives absolute and percentage price movement over a
// trailing window from stored candles.
package change

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ajjensen13/moexer/internal/model"
)

const (
	// DayWindow and YearWindow are the two standing trailing windows, in days.
	DayWindow  = 1
	YearWindow = 365

	// DefaultBuffer extends the window past today's midnight so the current
	// trading day's candle is included. The exact boundary is configurable.
	DefaultBuffer = 24 * time.Hour
)

var hundred = decimal.NewFromInt(100)

// CandleSource yields candles overlapping [from, to), newest first.
type CandleSource interface {
	CandlesOverlapping(ctx context.Context, ticker string, from, to time.Time) ([]model.Candle, error)
}

type Calculator struct {
	Source CandleSource
	TZ     *time.Location
	Buffer time.Duration
	Now    func() time.Time
}

func NewCalculator(source CandleSource, tz *time.Location) *Calculator {
	return &Calculator{Source: source, TZ: tz, Buffer: DefaultBuffer, Now: time.Now}
}

// Change computes the price movement over the trailing days window ending
// now. The window starts at midnight minus days and extends Buffer past
// midnight. Without candles in the window, or with a zero opening price, the
// result is (0, 0).
func (c *Calculator) Change(ctx context.Context, ticker string, days int) (value, percent decimal.Decimal, err error) {
	midnight := c.midnight()
	from := midnight.AddDate(0, 0, -days)
	to := midnight.Add(c.Buffer)

	candles, err := c.Source.CandlesOverlapping(ctx, ticker, from, to)
	if err != nil {
		return decimal.Zero, decimal.Zero, fmt.Errorf("failed to query candles for stock %q: %w", ticker, err)
	}
	if len(candles) == 0 {
		return decimal.Zero, decimal.Zero, nil
	}

	// Candles arrive newest first; the window opens at the oldest open and
	// closes at the newest close.
	firstOpen := candles[len(candles)-1].Open
	lastClose := candles[0].Close

	if firstOpen.IsZero() {
		return decimal.Zero, decimal.Zero, nil
	}

	value = lastClose.Sub(firstOpen)
	percent = value.Div(firstOpen).Mul(hundred)

	// Normalize negative zero to positive zero.
	if value.IsZero() {
		value = decimal.Zero
	}
	if percent.IsZero() {
		percent = decimal.Zero
	}

	return value, percent, nil
}

// Compute fills a PriceChange row with both standing windows for ticker.
func (c *Calculator) Compute(ctx context.Context, ticker string) (model.PriceChange, error) {
	valueDay, percentDay, err := c.Change(ctx, ticker, DayWindow)
	if err != nil {
		return model.PriceChange{}, err
	}

	valueYear, percentYear, err := c.Change(ctx, ticker, YearWindow)
	if err != nil {
		return model.PriceChange{}, err
	}

	return model.PriceChange{
		Ticker:         ticker,
		ValuePerDay:    valueDay,
		PercentPerDay:  percentDay,
		ValuePerYear:   valueYear,
		PercentPerYear: percentYear,
		Updated:        c.now(),
	}, nil
}

func (c *Calculator) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

func (c *Calculator) midnight() time.Time {
	tz := c.TZ
	if tz == nil {
		tz = time.UTC
	}
	now := c.now().In(tz)
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, tz)
}
