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

// Package db persists stocks, candles, and price changes in Postgres.
// Correctness under concurrent and repeated ingestion relies on the unique
// constraints declared in migrations plus conflict-tolerant bulk writes, not
// on application-level locking.
package db

import (
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgtype"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/shopspring/decimal"
)

// ErrStockMissing reports an operation against a ticker the catalog has not
// propagated yet.
var ErrStockMissing = errors.New("stock record missing")

type Store struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// IsIntegrityViolation reports whether err is a database integrity-constraint
// violation (SQLSTATE class 23). These indicate a logic or data bug and must
// not be retried.
func IsIntegrityViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && strings.HasPrefix(pgErr.Code, "23")
}

func textPtr(t pgtype.Text) *string {
	if t.Status != pgtype.Present {
		return nil
	}
	s := t.String
	return &s
}

func int8Ptr(v pgtype.Int8) *int64 {
	if v.Status != pgtype.Present {
		return nil
	}
	n := v.Int
	return &n
}

func int2Ptr(v pgtype.Int2) *int16 {
	if v.Status != pgtype.Present {
		return nil
	}
	n := v.Int
	return &n
}

func datePtr(v pgtype.Date) *time.Time {
	if v.Status != pgtype.Present {
		return nil
	}
	t := v.Time
	return &t
}

// Numeric columns travel as text; decimal keeps full precision either way.
func decFromText(t pgtype.Text) (decimal.Decimal, error) {
	if t.Status != pgtype.Present {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(t.String)
}

func decPtrFromText(t pgtype.Text) (*decimal.Decimal, error) {
	if t.Status != pgtype.Present {
		return nil, nil
	}
	d, err := decimal.NewFromString(t.String)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func parseDec(s string) (decimal.Decimal, error) {
	return decimal.NewFromString(s)
}

func decArg(d decimal.Decimal) string {
	return d.String()
}

func optDecArg(d *decimal.Decimal) interface{} {
	if d == nil {
		return nil
	}
	return d.String()
}
