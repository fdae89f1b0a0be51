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

// Package quote serves per-ticker read-side metrics derived from stored
// candles, memoized through the cache port. A cache failure degrades to a
// store read; cached values are never authoritative.
package quote

import (
	"context"
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ajjensen13/moexer/internal/cache"
	"github.com/ajjensen13/moexer/internal/model"
)

// Store is the persistence surface quote reads from.
type Store interface {
	LatestCandle(ctx context.Context, ticker string) (*model.Candle, error)
	CandlesOverlapping(ctx context.Context, ticker string, from, to time.Time) ([]model.Candle, error)
	PriceRange(ctx context.Context, ticker string, from, to time.Time) (min, max decimal.Decimal, ok bool, err error)
	GetStock(ctx context.Context, ticker string) (model.Stock, error)
	GetPriceChange(ctx context.Context, ticker string) (*model.PriceChange, error)
}

type Service struct {
	Store Store
	Cache cache.Cache
	TZ    *time.Location
	TTL   time.Duration
	Now   func() time.Time
}

func NewService(store Store, c cache.Cache, tz *time.Location) *Service {
	return &Service{Store: store, Cache: c, TZ: tz, TTL: cache.DefaultTTL, Now: time.Now}
}

// PricePair holds the opening and closing price of a window. Either side is
// nil when no candle covers it.
type PricePair struct {
	Open  *decimal.Decimal `json:"open"`
	Close *decimal.Decimal `json:"close"`
}

// PriceRange holds the low/high price bounds of a window.
type PriceRange struct {
	Min *decimal.Decimal `json:"min"`
	Max *decimal.Decimal `json:"max"`
}

// Detail is the rendered per-stock payload.
type Detail struct {
	Stock          model.Stock        `json:"stock"`
	LastPrice      *decimal.Decimal   `json:"last_price"`
	LastCandleDate *time.Time         `json:"last_candle_date"`
	PriceChange    *model.PriceChange `json:"price_change"`
}

// LastPrice returns the close of the most recent candle, or nil without data.
func (s *Service) LastPrice(ctx context.Context, ticker string) (*decimal.Decimal, error) {
	key := cache.LastPriceKey(ticker)
	var cached *decimal.Decimal
	if s.lookup(ctx, key, &cached) {
		return cached, nil
	}

	c, err := s.Store.LatestCandle(ctx, ticker)
	if err != nil {
		return nil, err
	}

	var price *decimal.Decimal
	if c != nil {
		price = &c.Close
	}
	s.memoize(ctx, key, price)
	return price, nil
}

// LastCandleDate returns the upper bound of the most recent candle's range.
func (s *Service) LastCandleDate(ctx context.Context, ticker string) (*time.Time, error) {
	key := cache.LastCandleDateKey(ticker)
	var cached *time.Time
	if s.lookup(ctx, key, &cached) {
		return cached, nil
	}

	c, err := s.Store.LatestCandle(ctx, ticker)
	if err != nil {
		return nil, err
	}

	var date *time.Time
	if c != nil {
		date = &c.Range.End
	}
	s.memoize(ctx, key, date)
	return date, nil
}

// OpeningClosingToday returns the opening price of the first and the closing
// price of the last candle overlapping the current trading day.
func (s *Service) OpeningClosingToday(ctx context.Context, ticker string) (PricePair, error) {
	key := cache.OpeningClosingPriceTodayKey(ticker)
	var cached PricePair
	if s.lookup(ctx, key, &cached) {
		return cached, nil
	}

	midnight := s.midnight()
	candles, err := s.Store.CandlesOverlapping(ctx, ticker, midnight.AddDate(0, 0, -1), midnight.AddDate(0, 0, 1))
	if err != nil {
		return PricePair{}, err
	}

	var pair PricePair
	if len(candles) > 0 {
		// Newest first: the window opens at the last element.
		pair.Open = &candles[len(candles)-1].Open
		pair.Close = &candles[0].Close
	}
	s.memoize(ctx, key, pair)
	return pair, nil
}

// DailyPriceRange returns the low/high bounds over the current trading day.
func (s *Service) DailyPriceRange(ctx context.Context, ticker string) (PriceRange, error) {
	return s.priceRange(ctx, ticker, 0, cache.DailyPriceRangeKey(ticker))
}

// YearlyPriceRange returns the low/high bounds over the trailing year.
func (s *Service) YearlyPriceRange(ctx context.Context, ticker string) (PriceRange, error) {
	return s.priceRange(ctx, ticker, 365, cache.YearlyPriceRangeKey(ticker))
}

func (s *Service) priceRange(ctx context.Context, ticker string, daysOffset int, key string) (PriceRange, error) {
	var cached PriceRange
	if s.lookup(ctx, key, &cached) {
		return cached, nil
	}

	midnight := s.midnight()
	from := midnight.AddDate(0, 0, -1-daysOffset)
	to := midnight.AddDate(0, 0, 1)

	min, max, ok, err := s.Store.PriceRange(ctx, ticker, from, to)
	if err != nil {
		return PriceRange{}, err
	}

	var r PriceRange
	if ok {
		r.Min = &min
		r.Max = &max
	}
	s.memoize(ctx, key, r)
	return r, nil
}

// StockDetail returns the rendered detail payload for ticker.
func (s *Service) StockDetail(ctx context.Context, ticker string) (Detail, error) {
	key := cache.StockDetailKey(ticker)
	var cached Detail
	if s.lookup(ctx, key, &cached) {
		return cached, nil
	}

	stock, err := s.Store.GetStock(ctx, ticker)
	if err != nil {
		return Detail{}, err
	}

	price, err := s.LastPrice(ctx, ticker)
	if err != nil {
		return Detail{}, err
	}

	date, err := s.LastCandleDate(ctx, ticker)
	if err != nil {
		return Detail{}, err
	}

	pc, err := s.Store.GetPriceChange(ctx, ticker)
	if err != nil {
		return Detail{}, err
	}

	d := Detail{Stock: stock, LastPrice: price, LastCandleDate: date, PriceChange: pc}
	s.memoize(ctx, key, d)
	return d, nil
}

// lookup fills out from the cache, reporting a hit. Errors count as misses.
func (s *Service) lookup(ctx context.Context, key string, out interface{}) bool {
	if s.Cache == nil {
		return false
	}
	raw, ok, err := s.Cache.Get(ctx, key)
	if err != nil || !ok {
		return false
	}
	return json.Unmarshal(raw, out) == nil
}

// memoize stores val best-effort; a failed write only costs a future miss.
func (s *Service) memoize(ctx context.Context, key string, val interface{}) {
	if s.Cache == nil {
		return
	}
	raw, err := json.Marshal(val)
	if err != nil {
		return
	}
	_ = s.Cache.Set(ctx, key, raw, s.ttl())
}

func (s *Service) ttl() time.Duration {
	if s.TTL > 0 {
		return s.TTL
	}
	return cache.DefaultTTL
}

func (s *Service) midnight() time.Time {
	tz := s.TZ
	if tz == nil {
		tz = time.UTC
	}
	now := time.Now()
	if s.Now != nil {
		now = s.Now()
	}
	now = now.In(tz)
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, tz)
}
