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

package change

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajjensen13/moexer/internal/model"
)

type fakeSource struct {
	candles []model.Candle
	err     error

	gotFrom, gotTo time.Time
	calls          int
}

func (f *fakeSource) CandlesOverlapping(_ context.Context, _ string, from, to time.Time) ([]model.Candle, error) {
	f.calls++
	f.gotFrom, f.gotTo = from, to
	return f.candles, f.err
}

// newestFirst builds candles the way the store returns them: most recent range
// at index zero.
func newestFirst(open, close []int64) []model.Candle {
	out := make([]model.Candle, len(open))
	for i := range open {
		out[len(open)-1-i] = model.Candle{
			Ticker: "SBER",
			Open:   decimal.NewFromInt(open[i]),
			Close:  decimal.NewFromInt(close[i]),
		}
	}
	return out
}

func testCalculator(src *fakeSource) *Calculator {
	c := NewCalculator(src, time.UTC)
	c.Now = func() time.Time { return time.Date(2024, 5, 15, 13, 30, 0, 0, time.UTC) }
	return c
}

func TestChange_NoCandles(t *testing.T) {
	c := testCalculator(&fakeSource{})

	value, percent, err := c.Change(context.Background(), "SBER", DayWindow)
	require.NoError(t, err)
	assert.True(t, value.IsZero())
	assert.True(t, percent.IsZero())
}

func TestChange_BasicMovement(t *testing.T) {
	src := &fakeSource{candles: newestFirst([]int64{100, 103}, []int64{102, 105})}
	c := testCalculator(src)

	value, percent, err := c.Change(context.Background(), "SBER", DayWindow)
	require.NoError(t, err)
	assert.True(t, value.Equal(decimal.NewFromInt(5)), "value = %s", value)
	assert.True(t, percent.Equal(decimal.NewFromInt(5)), "percent = %s", percent)
}

func TestChange_ZeroOpeningPrice(t *testing.T) {
	src := &fakeSource{candles: newestFirst([]int64{0, 103}, []int64{102, 105})}
	c := testCalculator(src)

	value, percent, err := c.Change(context.Background(), "SBER", DayWindow)
	require.NoError(t, err)
	assert.True(t, value.IsZero())
	assert.True(t, percent.IsZero())
}

func TestChange_FlatMovementIsPositiveZero(t *testing.T) {
	src := &fakeSource{candles: newestFirst([]int64{100}, []int64{100})}
	c := testCalculator(src)

	value, percent, err := c.Change(context.Background(), "SBER", DayWindow)
	require.NoError(t, err)
	assert.Equal(t, "0", value.String())
	assert.Equal(t, "0", percent.String())
}

func TestChange_WindowBounds(t *testing.T) {
	src := &fakeSource{}
	c := testCalculator(src)

	_, _, err := c.Change(context.Background(), "SBER", YearWindow)
	require.NoError(t, err)

	midnight := time.Date(2024, 5, 15, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, midnight.AddDate(0, 0, -YearWindow), src.gotFrom)
	assert.Equal(t, midnight.Add(DefaultBuffer), src.gotTo)
}

func TestChange_CustomBuffer(t *testing.T) {
	src := &fakeSource{}
	c := testCalculator(src)
	c.Buffer = 6 * time.Hour

	_, _, err := c.Change(context.Background(), "SBER", DayWindow)
	require.NoError(t, err)

	midnight := time.Date(2024, 5, 15, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, midnight.Add(6*time.Hour), src.gotTo)
}

func TestChange_SourceError(t *testing.T) {
	boom := errors.New("boom")
	c := testCalculator(&fakeSource{err: boom})

	_, _, err := c.Change(context.Background(), "SBER", DayWindow)
	assert.ErrorIs(t, err, boom)
}

func TestCompute(t *testing.T) {
	src := &fakeSource{candles: newestFirst([]int64{200}, []int64{210})}
	c := testCalculator(src)

	pc, err := c.Compute(context.Background(), "SBER")
	require.NoError(t, err)

	assert.Equal(t, "SBER", pc.Ticker)
	assert.True(t, pc.ValuePerDay.Equal(decimal.NewFromInt(10)))
	assert.True(t, pc.PercentPerDay.Equal(decimal.NewFromInt(5)))
	assert.True(t, pc.ValuePerYear.Equal(decimal.NewFromInt(10)))
	assert.True(t, pc.PercentPerYear.Equal(decimal.NewFromInt(5)))
	assert.Equal(t, c.Now(), pc.Updated)
	assert.Equal(t, 2, src.calls)
}
