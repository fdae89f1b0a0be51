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

	"github.com/jackc/pgx/v4"

	"github.com/ajjensen13/moexer/internal/model"
)

// UpsertPriceChange writes the derived day/year movement for one stock.
// At most one row exists per ticker.
func (s *Store) UpsertPriceChange(ctx context.Context, pc model.PriceChange) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO price_changes
			(ticker, value_per_day, percent_per_day, value_per_year, percent_per_year, updated)
		VALUES
			($1, $2, $3, $4, $5, CURRENT_TIMESTAMP)
		ON CONFLICT
			(ticker)
		DO UPDATE
			SET
				value_per_day = excluded.value_per_day,
				percent_per_day = excluded.percent_per_day,
				value_per_year = excluded.value_per_year,
				percent_per_year = excluded.percent_per_year,
				updated = excluded.updated`,
		strings.ToUpper(pc.Ticker), decArg(pc.ValuePerDay), decArg(pc.PercentPerDay),
		decArg(pc.ValuePerYear), decArg(pc.PercentPerYear))
	if err != nil {
		return fmt.Errorf("failed to upsert price change for stock %q: %w", pc.Ticker, err)
	}
	return nil
}

// GetPriceChange returns the derived movement row for ticker, or nil when it
// has not been computed yet.
func (s *Store) GetPriceChange(ctx context.Context, ticker string) (*model.PriceChange, error) {
	var (
		ret                                                        model.PriceChange
		valuePerDay, percentPerDay, valuePerYear, percentPerYear string
	)
	err := s.pool.QueryRow(ctx, `
		SELECT ticker, value_per_day::text, percent_per_day::text, value_per_year::text, percent_per_year::text, updated
		FROM price_changes
		WHERE ticker = $1`, strings.ToUpper(ticker)).
		Scan(&ret.Ticker, &valuePerDay, &percentPerDay, &valuePerYear, &percentPerYear, &ret.Updated)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return nil, nil
	case err != nil:
		return nil, fmt.Errorf("failed to query price change for stock %q: %w", ticker, err)
	}

	if ret.ValuePerDay, err = parseDec(valuePerDay); err != nil {
		return nil, fmt.Errorf("failed to parse price change for stock %q: %w", ticker, err)
	}
	if ret.PercentPerDay, err = parseDec(percentPerDay); err != nil {
		return nil, fmt.Errorf("failed to parse price change for stock %q: %w", ticker, err)
	}
	if ret.ValuePerYear, err = parseDec(valuePerYear); err != nil {
		return nil, fmt.Errorf("failed to parse price change for stock %q: %w", ticker, err)
	}
	if ret.PercentPerYear, err = parseDec(percentPerYear); err != nil {
		return nil, fmt.Errorf("failed to parse price change for stock %q: %w", ticker, err)
	}

	return &ret, nil
}
