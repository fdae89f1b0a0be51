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

package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// TimeRange is the half-open interval [Start, End) a candle aggregates over.
type TimeRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Overlaps reports whether the range intersects [from, to).
func (r TimeRange) Overlaps(from, to time.Time) bool {
	return r.Start.Before(to) && r.End.After(from)
}

// Candle is one OHLCV aggregate for a stock over a single time range.
// Candles are immutable once written; (Ticker, Range) is unique.
type Candle struct {
	Ticker string          `json:"ticker"`
	Open   decimal.Decimal `json:"open"`
	Close  decimal.Decimal `json:"close"`
	High   decimal.Decimal `json:"high"`
	Low    decimal.Decimal `json:"low"`
	Value  decimal.Decimal `json:"value"`
	Volume decimal.Decimal `json:"volume"`
	Range  TimeRange       `json:"range"`
}
