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

// Package transform maps raw provider records to model entities. A record
// that cannot produce a valid entity yields a *ValidationError, which aborts
// the batch rather than silently dropping the record.
package transform

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ajjensen13/moexer/internal/api"
	"github.com/ajjensen13/moexer/internal/model"
)

const (
	dateLayout     = "2006-01-02"
	dateTimeLayout = "2006-01-02 15:04:05"
)

// ValidationError marks a provider record the model cannot be built from.
type ValidationError struct {
	Ticker string
	Column string
	Err    error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid record for stock %q: column %q: %v", e.Ticker, e.Column, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// IsValidation reports whether err stems from a malformed provider record.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// Stocks maps a ticker catalog batch. The first invalid record fails the
// whole batch.
func Stocks(in []api.Record) ([]model.Stock, error) {
	out := make([]model.Stock, 0, len(in))
	for _, rec := range in {
		s, err := Stock(rec)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// Stock maps one catalog record. The ticker is case-normalized to uppercase.
func Stock(rec api.Record) (model.Stock, error) {
	ticker, err := reqString(rec, "SECID")
	if err != nil {
		return model.Stock{}, &ValidationError{Column: "SECID", Err: err}
	}
	ticker = strings.ToUpper(ticker)

	var s model.Stock
	s.Ticker = ticker

	fail := func(col string, err error) (model.Stock, error) {
		return model.Stock{}, &ValidationError{Ticker: ticker, Column: col, Err: err}
	}

	if s.ShortName, err = optString(rec, "SHORTNAME"); err != nil {
		return fail("SHORTNAME", err)
	}
	if s.SecName, err = optString(rec, "SECNAME"); err != nil {
		return fail("SECNAME", err)
	}
	if s.LatName, err = optString(rec, "LATNAME"); err != nil {
		return fail("LATNAME", err)
	}
	if s.PrevPrice, err = defDecimal(rec, "PREVPRICE"); err != nil {
		return fail("PREVPRICE", err)
	}
	if s.LotSize, err = optInt64(rec, "LOTSIZE"); err != nil {
		return fail("LOTSIZE", err)
	}
	if s.FaceValue, err = optDecimal(rec, "FACEVALUE"); err != nil {
		return fail("FACEVALUE", err)
	}
	if s.FaceUnit, err = optString(rec, "FACEUNIT"); err != nil {
		return fail("FACEUNIT", err)
	}
	if s.Status, err = optString(rec, "STATUS"); err != nil {
		return fail("STATUS", err)
	}
	if s.Decimals, err = optInt16(rec, "DECIMALS"); err != nil {
		return fail("DECIMALS", err)
	}
	if s.MinStep, err = optDecimal(rec, "MINSTEP"); err != nil {
		return fail("MINSTEP", err)
	}
	if s.PrevDate, err = optDate(rec, "PREVDATE"); err != nil {
		return fail("PREVDATE", err)
	}
	if s.IssueSize, err = optInt64(rec, "ISSUESIZE"); err != nil {
		return fail("ISSUESIZE", err)
	}
	if s.ISIN, err = optString(rec, "ISIN"); err != nil {
		return fail("ISIN", err)
	}
	if s.RegNumber, err = optString(rec, "REGNUMBER"); err != nil {
		return fail("REGNUMBER", err)
	}
	if s.PrevLegalClosePrice, err = defDecimal(rec, "PREVLEGALCLOSEPRICE"); err != nil {
		return fail("PREVLEGALCLOSEPRICE", err)
	}
	if s.CurrencyID, err = optString(rec, "CURRENCYID"); err != nil {
		return fail("CURRENCYID", err)
	}
	if s.SecType, err = optString(rec, "SECTYPE"); err != nil {
		return fail("SECTYPE", err)
	}
	if s.ListLevel, err = optInt16(rec, "LISTLEVEL"); err != nil {
		return fail("LISTLEVEL", err)
	}
	if s.SettleDate, err = optDate(rec, "SETTLEDATE"); err != nil {
		return fail("SETTLEDATE", err)
	}

	return s, nil
}

// Candles maps one candle batch for ticker. Time ranges are interpreted in tz.
func Candles(ticker string, in []api.Record, tz *time.Location) ([]model.Candle, error) {
	if len(in) == 0 {
		return nil, nil
	}

	out := make([]model.Candle, 0, len(in))
	for _, rec := range in {
		c, err := candle(ticker, rec, tz)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

func candle(ticker string, rec api.Record, tz *time.Location) (model.Candle, error) {
	var c model.Candle
	c.Ticker = ticker

	fail := func(col string, err error) (model.Candle, error) {
		return model.Candle{}, &ValidationError{Ticker: ticker, Column: col, Err: err}
	}

	var err error
	if c.Open, err = reqDecimal(rec, "open"); err != nil {
		return fail("open", err)
	}
	if c.Close, err = reqDecimal(rec, "close"); err != nil {
		return fail("close", err)
	}
	if c.High, err = reqDecimal(rec, "high"); err != nil {
		return fail("high", err)
	}
	if c.Low, err = reqDecimal(rec, "low"); err != nil {
		return fail("low", err)
	}
	if c.Value, err = reqDecimal(rec, "value"); err != nil {
		return fail("value", err)
	}
	if c.Volume, err = reqDecimal(rec, "volume"); err != nil {
		return fail("volume", err)
	}
	if c.Range.Start, err = reqDateTime(rec, "begin", tz); err != nil {
		return fail("begin", err)
	}
	if c.Range.End, err = reqDateTime(rec, "end", tz); err != nil {
		return fail("end", err)
	}

	return c, nil
}

var errColumnMissing = errors.New("column missing")

func rawValue(rec api.Record, col string) (json.RawMessage, bool) {
	raw, ok := rec[col]
	if !ok || string(raw) == "null" {
		return nil, false
	}
	return raw, true
}

func reqString(rec api.Record, col string) (string, error) {
	raw, ok := rawValue(rec, col)
	if !ok {
		return "", errColumnMissing
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", err
	}
	if s == "" {
		return "", errColumnMissing
	}
	return s, nil
}

func optString(rec api.Record, col string) (*string, error) {
	raw, ok := rawValue(rec, col)
	if !ok {
		return nil, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func reqDecimal(rec api.Record, col string) (decimal.Decimal, error) {
	raw, ok := rawValue(rec, col)
	if !ok {
		return decimal.Decimal{}, errColumnMissing
	}
	var d decimal.Decimal
	if err := json.Unmarshal(raw, &d); err != nil {
		return decimal.Decimal{}, err
	}
	return d, nil
}

// defDecimal is like reqDecimal, except a missing value defaults to zero.
func defDecimal(rec api.Record, col string) (decimal.Decimal, error) {
	raw, ok := rawValue(rec, col)
	if !ok {
		return decimal.Zero, nil
	}
	var d decimal.Decimal
	if err := json.Unmarshal(raw, &d); err != nil {
		return decimal.Decimal{}, err
	}
	return d, nil
}

func optDecimal(rec api.Record, col string) (*decimal.Decimal, error) {
	raw, ok := rawValue(rec, col)
	if !ok {
		return nil, nil
	}
	var d decimal.Decimal
	if err := json.Unmarshal(raw, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

func optInt64(rec api.Record, col string) (*int64, error) {
	raw, ok := rawValue(rec, col)
	if !ok {
		return nil, nil
	}
	var n int64
	if err := json.Unmarshal(raw, &n); err != nil {
		return nil, err
	}
	return &n, nil
}

func optInt16(rec api.Record, col string) (*int16, error) {
	raw, ok := rawValue(rec, col)
	if !ok {
		return nil, nil
	}
	var n int16
	if err := json.Unmarshal(raw, &n); err != nil {
		return nil, err
	}
	return &n, nil
}

func optDate(rec api.Record, col string) (*time.Time, error) {
	raw, ok := rawValue(rec, col)
	if !ok {
		return nil, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, err
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func reqDateTime(rec api.Record, col string, tz *time.Location) (time.Time, error) {
	raw, ok := rawValue(rec, col)
	if !ok {
		return time.Time{}, errColumnMissing
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return time.Time{}, err
	}
	return time.ParseInLocation(dateTimeLayout, s, tz)
}
