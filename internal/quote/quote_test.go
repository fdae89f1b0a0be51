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

package quote

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajjensen13/moexer/internal/cache"
	"github.com/ajjensen13/moexer/internal/model"
)

type fakeStore struct {
	latest      *model.Candle
	overlapping []model.Candle
	min, max    decimal.Decimal
	rangeOk     bool
	stock       model.Stock
	priceChange *model.PriceChange

	latestCalls int
	rangeCalls  int

	gotFrom, gotTo time.Time
}

func (f *fakeStore) LatestCandle(context.Context, string) (*model.Candle, error) {
	f.latestCalls++
	return f.latest, nil
}

func (f *fakeStore) CandlesOverlapping(_ context.Context, _ string, from, to time.Time) ([]model.Candle, error) {
	f.gotFrom, f.gotTo = from, to
	return f.overlapping, nil
}

func (f *fakeStore) PriceRange(_ context.Context, _ string, from, to time.Time) (decimal.Decimal, decimal.Decimal, bool, error) {
	f.rangeCalls++
	f.gotFrom, f.gotTo = from, to
	return f.min, f.max, f.rangeOk, nil
}

func (f *fakeStore) GetStock(context.Context, string) (model.Stock, error) {
	return f.stock, nil
}

func (f *fakeStore) GetPriceChange(context.Context, string) (*model.PriceChange, error) {
	return f.priceChange, nil
}

func testService(store *fakeStore) *Service {
	s := NewService(store, cache.NewMemory(), time.UTC)
	s.Now = func() time.Time { return time.Date(2024, 5, 15, 13, 30, 0, 0, time.UTC) }
	return s
}

func candleAt(end time.Time, open, close int64) model.Candle {
	return model.Candle{
		Ticker: "SBER",
		Open:   decimal.NewFromInt(open),
		Close:  decimal.NewFromInt(close),
		Range:  model.TimeRange{Start: end.Add(-24 * time.Hour), End: end},
	}
}

func TestLastPrice(t *testing.T) {
	end := time.Date(2024, 5, 14, 23, 59, 59, 0, time.UTC)
	c := candleAt(end, 100, 105)
	store := &fakeStore{latest: &c}
	s := testService(store)

	price, err := s.LastPrice(context.Background(), "SBER")
	require.NoError(t, err)
	require.NotNil(t, price)
	assert.Equal(t, "105", price.String())

	// Second read is served from the cache.
	price, err = s.LastPrice(context.Background(), "SBER")
	require.NoError(t, err)
	require.NotNil(t, price)
	assert.Equal(t, "105", price.String())
	assert.Equal(t, 1, store.latestCalls)
}

func TestLastPrice_NoCandles(t *testing.T) {
	s := testService(&fakeStore{})

	price, err := s.LastPrice(context.Background(), "SBER")
	require.NoError(t, err)
	assert.Nil(t, price)
}

func TestLastCandleDate(t *testing.T) {
	end := time.Date(2024, 5, 14, 23, 59, 59, 0, time.UTC)
	c := candleAt(end, 100, 105)
	s := testService(&fakeStore{latest: &c})

	date, err := s.LastCandleDate(context.Background(), "SBER")
	require.NoError(t, err)
	require.NotNil(t, date)
	assert.True(t, date.Equal(end))
}

func TestOpeningClosingToday(t *testing.T) {
	morning := candleAt(time.Date(2024, 5, 15, 12, 0, 0, 0, time.UTC), 100, 102)
	evening := candleAt(time.Date(2024, 5, 15, 18, 0, 0, 0, time.UTC), 102, 104)
	s := testService(&fakeStore{overlapping: []model.Candle{evening, morning}})

	pair, err := s.OpeningClosingToday(context.Background(), "SBER")
	require.NoError(t, err)
	require.NotNil(t, pair.Open)
	require.NotNil(t, pair.Close)
	assert.Equal(t, "100", pair.Open.String())
	assert.Equal(t, "104", pair.Close.String())
}

func TestOpeningClosingToday_NoCandles(t *testing.T) {
	s := testService(&fakeStore{})

	pair, err := s.OpeningClosingToday(context.Background(), "SBER")
	require.NoError(t, err)
	assert.Nil(t, pair.Open)
	assert.Nil(t, pair.Close)
}

func TestDailyPriceRange(t *testing.T) {
	store := &fakeStore{min: decimal.NewFromInt(99), max: decimal.NewFromInt(106), rangeOk: true}
	s := testService(store)

	r, err := s.DailyPriceRange(context.Background(), "SBER")
	require.NoError(t, err)
	require.NotNil(t, r.Min)
	require.NotNil(t, r.Max)
	assert.Equal(t, "99", r.Min.String())
	assert.Equal(t, "106", r.Max.String())

	midnight := time.Date(2024, 5, 15, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, midnight.AddDate(0, 0, -1), store.gotFrom)
	assert.Equal(t, midnight.AddDate(0, 0, 1), store.gotTo)
}

func TestYearlyPriceRange_WindowBounds(t *testing.T) {
	store := &fakeStore{rangeOk: true}
	s := testService(store)

	_, err := s.YearlyPriceRange(context.Background(), "SBER")
	require.NoError(t, err)

	midnight := time.Date(2024, 5, 15, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, midnight.AddDate(0, 0, -366), store.gotFrom)
	assert.Equal(t, midnight.AddDate(0, 0, 1), store.gotTo)
}

func TestPriceRange_NoData(t *testing.T) {
	s := testService(&fakeStore{rangeOk: false})

	r, err := s.DailyPriceRange(context.Background(), "SBER")
	require.NoError(t, err)
	assert.Nil(t, r.Min)
	assert.Nil(t, r.Max)
}

func TestStockDetail(t *testing.T) {
	end := time.Date(2024, 5, 14, 23, 59, 59, 0, time.UTC)
	c := candleAt(end, 100, 105)
	store := &fakeStore{
		latest: &c,
		stock:  model.Stock{Ticker: "SBER"},
		priceChange: &model.PriceChange{
			Ticker:      "SBER",
			ValuePerDay: decimal.NewFromInt(5),
		},
	}
	s := testService(store)

	d, err := s.StockDetail(context.Background(), "SBER")
	require.NoError(t, err)
	assert.Equal(t, "SBER", d.Stock.Ticker)
	require.NotNil(t, d.LastPrice)
	assert.Equal(t, "105", d.LastPrice.String())
	require.NotNil(t, d.PriceChange)
	assert.Equal(t, "5", d.PriceChange.ValuePerDay.String())
}

func TestLookup_CacheErrorDegradesToStore(t *testing.T) {
	end := time.Date(2024, 5, 14, 23, 59, 59, 0, time.UTC)
	c := candleAt(end, 100, 105)
	store := &fakeStore{latest: &c}

	s := testService(store)
	s.Cache = failingCache{}

	price, err := s.LastPrice(context.Background(), "SBER")
	require.NoError(t, err)
	require.NotNil(t, price)
	assert.Equal(t, "105", price.String())
}

type failingCache struct{}

func (failingCache) Get(context.Context, string) ([]byte, bool, error) {
	return nil, false, assert.AnError
}

func (failingCache) Set(context.Context, string, []byte, time.Duration) error {
	return assert.AnError
}

func (failingCache) Delete(context.Context, ...string) error {
	return assert.AnError
}
