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

// Package pipeline orchestrates a full ingestion run: catalog refresh, then
// a per-ticker historical fetch fan-out, then a per-ticker price-change
// fan-out. Stages are sequential barriers; within a stage tickers are
// independent and unordered. Safety under duplicate or concurrent execution
// comes from the store's conflict-tolerant writes, not from locking.
package pipeline

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"cloud.google.com/go/logging"
	"github.com/cenkalti/backoff/v4"
	"golang.org/x/sync/errgroup"

	"github.com/ajjensen13/moexer/internal/api"
	"github.com/ajjensen13/moexer/internal/cache"
	"github.com/ajjensen13/moexer/internal/change"
	"github.com/ajjensen13/moexer/internal/db"
	"github.com/ajjensen13/moexer/internal/model"
	"github.com/ajjensen13/moexer/internal/transform"
	"github.com/ajjensen13/moexer/internal/util"
	"github.com/ajjensen13/moexer/internal/window"
)

const (
	// MaxAttempts caps retries of one ticker-level task, initial try included.
	MaxAttempts = 10

	DefaultWorkers = 8
)

// MarketData is the provider surface the pipeline pulls from.
type MarketData interface {
	Securities(ctx context.Context) ([]api.Record, error)
	AvailableDates(ctx context.Context, ticker string) (from, till time.Time, ok bool, err error)
	StreamCandles(ctx context.Context, ticker string, start, end time.Time, fn api.BatchFunc) error
}

// Store is the persistence surface the pipeline writes to.
type Store interface {
	UpsertStocks(ctx context.Context, stocks []model.Stock) (int64, error)
	ActiveTickers(ctx context.Context) ([]string, error)
	StockExists(ctx context.Context, ticker string) (bool, error)
	InsertCandles(ctx context.Context, ticker string, candles []model.Candle) (int64, error)
	UpsertPriceChange(ctx context.Context, pc model.PriceChange) error
}

type Orchestrator struct {
	Client     MarketData
	Store      Store
	Cache      cache.Cache
	Calculator *change.Calculator
	TZ         *time.Location
	Workers    int

	// NewBackOff produces the retry policy for one ticker-level task.
	NewBackOff func() backoff.BackOff
	Notify     backoff.Notify
}

func New(client MarketData, store Store, c cache.Cache, calc *change.Calculator, tz *time.Location, workers int) *Orchestrator {
	return &Orchestrator{
		Client:     client,
		Store:      store,
		Cache:      c,
		Calculator: calc,
		TZ:         tz,
		Workers:    workers,
		NewBackOff: DefaultBackOff,
	}
}

// DefaultBackOff is exponential starting at 5s, capped at MaxAttempts tries.
func DefaultBackOff() backoff.BackOff {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 5 * time.Second
	bo.MaxElapsedTime = 0
	return backoff.WithMaxRetries(bo, MaxAttempts-1)
}

// RunConfig selects between a full run (reconcile against the entire
// available history) and an update run (trailing Days days). Explicit
// Start/End bounds are honored in full mode.
type RunConfig struct {
	Update bool
	Days   int
	Start  *time.Time
	End    *time.Time
}

// TickerFailure records one ticker-level task that exhausted its retries.
type TickerFailure struct {
	Ticker string
	Err    error
}

// Report summarizes one completed run.
type Report struct {
	Stocks       int64
	Candles      int64
	PriceChanges int64
	Failures     []TickerFailure
	Elapsed      time.Duration
}

// Run executes the full pipeline. A ticker-level failure is recorded and the
// stage proceeds; Run itself fails only when a stage cannot run at all.
func (o *Orchestrator) Run(ctx context.Context, cfg RunConfig) (Report, error) {
	started := time.Now()
	util.Logf(ctx, logging.Info, "starting stock data load")

	var report Report

	stocks, err := o.refreshCatalog(ctx)
	if err != nil {
		return report, fmt.Errorf("failed to refresh ticker catalog: %w", err)
	}
	report.Stocks = stocks
	util.Logf(ctx, logging.Info, "successfully refreshed catalog: %d stocks", stocks)

	tickers, err := o.Store.ActiveTickers(ctx)
	if err != nil {
		return report, fmt.Errorf("failed to list active tickers: %w", err)
	}

	start, end := cfg.bounds(o.tz())

	report.Failures = append(report.Failures, o.forEachTicker(ctx, "history", tickers, func(ctx context.Context, ticker string) error {
		created, err := o.loadHistory(ctx, ticker, start, end)
		if err != nil {
			return err
		}
		atomic.AddInt64(&report.Candles, created)
		return nil
	})...)
	util.Logf(ctx, logging.Info, "successfully completed historical fetch: %d candles", report.Candles)

	report.Failures = append(report.Failures, o.forEachTicker(ctx, "price_change", tickers, func(ctx context.Context, ticker string) error {
		if err := o.refreshPriceChange(ctx, ticker); err != nil {
			return err
		}
		atomic.AddInt64(&report.PriceChanges, 1)
		return nil
	})...)

	report.Elapsed = time.Since(started)
	util.Logf(ctx, logging.Info, "successfully loaded stock data in %v (%d stocks, %d candles, %d price changes, %d failed tasks)",
		report.Elapsed, report.Stocks, report.Candles, report.PriceChanges, len(report.Failures))
	return report, nil
}

func (o *Orchestrator) refreshCatalog(ctx context.Context) (int64, error) {
	ctx = util.WithLoggerValue(ctx, "stage", "catalog")

	var count int64
	err := o.retry(ctx, func() error {
		recs, err := o.Client.Securities(ctx)
		if err != nil {
			return err
		}

		stocks, err := transform.Stocks(recs)
		if err != nil {
			return err
		}

		count, err = o.Store.UpsertStocks(ctx, stocks)
		return err
	})
	return count, err
}

// loadHistory ingests candle history for one ticker, reconciling the
// requested bounds against provider availability. A ticker without available
// dates completes with zero work.
func (o *Orchestrator) loadHistory(ctx context.Context, ticker string, start, end *time.Time) (int64, error) {
	if err := o.requireStock(ctx, ticker); err != nil {
		return 0, err
	}

	from, till, ok, err := o.Client.AvailableDates(ctx, ticker)
	if err != nil {
		return 0, err
	}
	if !ok {
		util.Logf(ctx, logging.Info, "no available dates for stock %q, nothing to load", ticker)
		return 0, nil
	}

	w := window.Resolve(window.Range{From: from, Till: till}, start, end)

	var created int64
	err = o.Client.StreamCandles(ctx, ticker, w.From, w.Till, func(batch []api.Record) error {
		candles, err := transform.Candles(ticker, batch, o.tz())
		if err != nil {
			return err
		}

		n, err := o.Store.InsertCandles(ctx, ticker, candles)
		if err != nil {
			return err
		}
		created += n
		return nil
	})
	if err != nil {
		return created, err
	}

	if created > 0 {
		if err := cache.InvalidateTicker(ctx, o.Cache, ticker); err != nil {
			util.Logf(ctx, logging.Warning, "failed to invalidate cache for stock %q: %v", ticker, err)
		}
	}

	util.Logf(ctx, logging.Info, "successfully loaded %d candles for stock %q (%v — %v)", created, ticker, w.From, w.Till)
	return created, nil
}

func (o *Orchestrator) refreshPriceChange(ctx context.Context, ticker string) error {
	if err := o.requireStock(ctx, ticker); err != nil {
		return err
	}

	pc, err := o.Calculator.Compute(ctx, ticker)
	if err != nil {
		return err
	}

	if err := o.Store.UpsertPriceChange(ctx, pc); err != nil {
		return err
	}

	if err := cache.InvalidateTicker(ctx, o.Cache, ticker); err != nil {
		util.Logf(ctx, logging.Warning, "failed to invalidate cache for stock %q: %v", ticker, err)
	}

	util.Logf(ctx, logging.Info, "successfully refreshed price change for stock %q", ticker)
	return nil
}

// requireStock fails with db.ErrStockMissing when the catalog row is absent.
// The error is retryable: the catalog may not have propagated yet.
func (o *Orchestrator) requireStock(ctx context.Context, ticker string) error {
	exists, err := o.Store.StockExists(ctx, ticker)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("stock %q: %w", ticker, db.ErrStockMissing)
	}
	return nil
}

// forEachTicker fans f out over tickers on a bounded worker pool and waits
// for all of them: the stage barrier. Failures are collected, never fatal.
func (o *Orchestrator) forEachTicker(ctx context.Context, stage string, tickers []string, f func(ctx context.Context, ticker string) error) []TickerFailure {
	ctx = util.WithLoggerValue(ctx, "stage", stage)

	var mu sync.Mutex
	var failures []TickerFailure

	g := new(errgroup.Group)
	g.SetLimit(o.workers())

	for _, ticker := range tickers {
		ticker := ticker
		g.Go(func() error {
			ctx := util.WithLoggerValue(ctx, "ticker", ticker)
			err := o.retry(ctx, func() error { return f(ctx, ticker) })
			if err != nil {
				util.Logf(ctx, logging.Error, "stage %q failed for stock %q: %v", stage, ticker, err)
				mu.Lock()
				failures = append(failures, TickerFailure{Ticker: ticker, Err: err})
				mu.Unlock()
			}
			return nil
		})
	}

	_ = g.Wait()
	return failures
}

// retry runs op under the task retry policy. Integrity violations and
// validation failures are never retried; they indicate a bug or bad data,
// not a transient condition.
func (o *Orchestrator) retry(ctx context.Context, op func() error) error {
	bo := o.NewBackOff
	if bo == nil {
		bo = DefaultBackOff
	}

	return backoff.RetryNotify(func() error {
		err := op()
		switch {
		case err == nil:
			return nil
		case db.IsIntegrityViolation(err), transform.IsValidation(err):
			return backoff.Permanent(err)
		default:
			return err
		}
	}, backoff.WithContext(bo(), ctx), o.Notify)
}

func (cfg RunConfig) bounds(tz *time.Location) (start, end *time.Time) {
	if !cfg.Update {
		return cfg.Start, cfg.End
	}

	days := cfg.Days
	if days < 1 {
		days = 1
	}

	now := time.Now().In(tz)
	e := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, tz)
	s := e.AddDate(0, 0, -days)
	return &s, &e
}

func (o *Orchestrator) workers() int {
	if o.Workers > 0 {
		return o.Workers
	}
	return DefaultWorkers
}

func (o *Orchestrator) tz() *time.Location {
	if o.TZ != nil {
		return o.TZ
	}
	return time.UTC
}
