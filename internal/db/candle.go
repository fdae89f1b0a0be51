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

package db

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/logging"
	"github.com/jackc/pgtype"
	"github.com/jackc/pgx/v4"
	"github.com/shopspring/decimal"

	"github.com/ajjensen13/moexer/internal/model"
	"github.com/ajjensen13/moexer/internal/util"
)

// InsertCandles bulk-inserts a candle batch for ticker. Rows conflicting on
// (ticker, range_start, range_end) are silently skipped, which makes repeated
// ingestion of overlapping windows idempotent. Returns the count of newly
// inserted rows only.
func (s *Store) InsertCandles(ctx context.Context, ticker string, candles []model.Candle) (int64, error) {
	ctx = util.WithLoggerValue(ctx, "action", "load")
	ctx = util.WithLoggerValue(ctx, "ticker", ticker)

	var inserted int64
	err := util.RunTx(ctx, s.pool, func(ctx context.Context, tx pgx.Tx) error {
		ctx, cancel := context.WithTimeout(ctx, util.MedReqTimeout)
		defer cancel()

		for _, c := range candles {
			r, err := tx.Exec(ctx, `
				INSERT INTO candles
					(ticker, open, close, high, low, value, volume, range_start, range_end)
				VALUES
					($1, $2, $3, $4, $5, $6, $7, $8, $9)
				ON CONFLICT
					(ticker, range_start, range_end)
				DO NOTHING`,
				strings.ToUpper(ticker), decArg(c.Open), decArg(c.Close), decArg(c.High),
				decArg(c.Low), decArg(c.Value), decArg(c.Volume), c.Range.Start, c.Range.End)
			if err != nil {
				return fmt.Errorf("failed to insert candle for stock %q at %v: %w", ticker, c.Range.Start, err)
			}
			inserted += r.RowsAffected()
		}

		util.Logf(ctx, logging.Debug, "successfully inserted %d of %d candles", inserted, len(candles))
		return nil
	})
	if err != nil {
		return 0, err
	}

	return inserted, nil
}

// CandlesOverlapping returns candles whose half-open time range intersects
// [from, to), newest first.
func (s *Store) CandlesOverlapping(ctx context.Context, ticker string, from, to time.Time) ([]model.Candle, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT ticker, open::text, close::text, high::text, low::text, value::text, volume::text, range_start, range_end
		FROM candles
		WHERE ticker = $1 AND range_start < $3 AND range_end > $2
		ORDER BY range_start DESC, range_end DESC`,
		strings.ToUpper(ticker), from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query candles for stock %q: %w", ticker, err)
	}
	defer rows.Close()

	var ret []model.Candle
	for rows.Next() {
		c, err := scanCandle(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan candle for stock %q: %w", ticker, err)
		}
		ret = append(ret, c)
	}

	return ret, rows.Err()
}

// LatestCandle returns the most recent candle by time range, or nil when the
// stock has no candles.
func (s *Store) LatestCandle(ctx context.Context, ticker string) (*model.Candle, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT ticker, open::text, close::text, high::text, low::text, value::text, volume::text, range_start, range_end
		FROM candles
		WHERE ticker = $1
		ORDER BY range_start DESC, range_end DESC
		LIMIT 1`,
		strings.ToUpper(ticker))
	if err != nil {
		return nil, fmt.Errorf("failed to query latest candle for stock %q: %w", ticker, err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}

	c, err := scanCandle(rows)
	if err != nil {
		return nil, fmt.Errorf("failed to scan latest candle for stock %q: %w", ticker, err)
	}
	return &c, nil
}

// PriceRange returns MIN(low) and MAX(high) over candles overlapping
// [from, to). ok is false when no candle overlaps.
func (s *Store) PriceRange(ctx context.Context, ticker string, from, to time.Time) (min, max decimal.Decimal, ok bool, err error) {
	var lo, hi pgtype.Text
	err = s.pool.QueryRow(ctx, `
		SELECT MIN(low)::text, MAX(high)::text
		FROM candles
		WHERE ticker = $1 AND range_start < $3 AND range_end > $2`,
		strings.ToUpper(ticker), from, to).Scan(&lo, &hi)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return decimal.Zero, decimal.Zero, false, fmt.Errorf("failed to query price range for stock %q: %w", ticker, err)
	}
	if lo.Status != pgtype.Present || hi.Status != pgtype.Present {
		return decimal.Zero, decimal.Zero, false, nil
	}

	if min, err = decFromText(lo); err != nil {
		return decimal.Zero, decimal.Zero, false, fmt.Errorf("failed to parse price range for stock %q: %w", ticker, err)
	}
	if max, err = decFromText(hi); err != nil {
		return decimal.Zero, decimal.Zero, false, fmt.Errorf("failed to parse price range for stock %q: %w", ticker, err)
	}
	return min, max, true, nil
}

func scanCandle(rows pgx.Rows) (model.Candle, error) {
	var (
		c                                  model.Candle
		open, close, high, low, value, vol string
	)
	err := rows.Scan(&c.Ticker, &open, &close, &high, &low, &value, &vol, &c.Range.Start, &c.Range.End)
	if err != nil {
		return model.Candle{}, err
	}

	if c.Open, err = decimal.NewFromString(open); err != nil {
		return model.Candle{}, err
	}
	if c.Close, err = decimal.NewFromString(close); err != nil {
		return model.Candle{}, err
	}
	if c.High, err = decimal.NewFromString(high); err != nil {
		return model.Candle{}, err
	}
	if c.Low, err = decimal.NewFromString(low); err != nil {
		return model.Candle{}, err
	}
	if c.Value, err = decimal.NewFromString(value); err != nil {
		return model.Candle{}, err
	}
	if c.Volume, err = decimal.NewFromString(vol); err != nil {
		return model.Candle{}, err
	}

	return c, nil
}
