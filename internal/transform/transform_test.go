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

package transform

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajjensen13/moexer/internal/api"
)

func rec(pairs map[string]string) api.Record {
	out := make(api.Record, len(pairs))
	for k, v := range pairs {
		out[k] = json.RawMessage(v)
	}
	return out
}

func TestStock_FullRecord(t *testing.T) {
	s, err := Stock(rec(map[string]string{
		"SECID":               `"sber"`,
		"SHORTNAME":           `"Сбербанк"`,
		"PREVPRICE":           `271.2`,
		"LOTSIZE":             `10`,
		"FACEVALUE":           `3`,
		"STATUS":              `"A"`,
		"DECIMALS":            `2`,
		"MINSTEP":             `0.01`,
		"PREVDATE":            `"2024-05-14"`,
		"ISSUESIZE":           `21586948000`,
		"ISIN":                `"RU0009029540"`,
		"PREVLEGALCLOSEPRICE": `271.05`,
		"CURRENCYID":          `"SUR"`,
		"SECTYPE":             `"1"`,
		"LISTLEVEL":           `1`,
	}))
	require.NoError(t, err)

	assert.Equal(t, "SBER", s.Ticker)
	require.NotNil(t, s.ShortName)
	assert.Equal(t, "Сбербанк", *s.ShortName)
	assert.Equal(t, "271.2", s.PrevPrice.String())
	require.NotNil(t, s.LotSize)
	assert.EqualValues(t, 10, *s.LotSize)
	require.NotNil(t, s.PrevDate)
	assert.Equal(t, time.Date(2024, 5, 14, 0, 0, 0, 0, time.UTC), *s.PrevDate)
	require.NotNil(t, s.ListLevel)
	assert.EqualValues(t, 1, *s.ListLevel)
	assert.Nil(t, s.SecName)
	assert.Nil(t, s.RegNumber)
}

func TestStock_NullsAreAbsent(t *testing.T) {
	s, err := Stock(rec(map[string]string{
		"SECID":     `"GAZP"`,
		"SHORTNAME": `null`,
		"LOTSIZE":   `null`,
		"PREVPRICE": `null`,
	}))
	require.NoError(t, err)

	assert.Nil(t, s.ShortName)
	assert.Nil(t, s.LotSize)
	assert.True(t, s.PrevPrice.IsZero())
}

func TestStock_MissingTicker(t *testing.T) {
	_, err := Stock(rec(map[string]string{"SHORTNAME": `"Сбербанк"`}))
	require.Error(t, err)
	assert.True(t, IsValidation(err))

	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "SECID", ve.Column)
}

func TestStock_MalformedField(t *testing.T) {
	_, err := Stock(rec(map[string]string{
		"SECID":   `"SBER"`,
		"LOTSIZE": `"ten"`,
	}))
	require.Error(t, err)
	assert.True(t, IsValidation(err))

	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "SBER", ve.Ticker)
	assert.Equal(t, "LOTSIZE", ve.Column)
}

func TestStocks_FirstInvalidRecordFailsBatch(t *testing.T) {
	_, err := Stocks([]api.Record{
		rec(map[string]string{"SECID": `"SBER"`}),
		rec(map[string]string{"SHORTNAME": `"no ticker"`}),
	})
	assert.True(t, IsValidation(err))
}

func candleRec(begin, end string) api.Record {
	return rec(map[string]string{
		"open":   `100.5`,
		"close":  `101.25`,
		"high":   `102`,
		"low":    `99.9`,
		"value":  `1000000`,
		"volume": `5000`,
		"begin":  begin,
		"end":    end,
	})
}

func TestCandles(t *testing.T) {
	tz, err := time.LoadLocation("Europe/Moscow")
	require.NoError(t, err)

	candles, err := Candles("SBER", []api.Record{
		candleRec(`"2024-05-14 00:00:00"`, `"2024-05-14 23:59:59"`),
	}, tz)
	require.NoError(t, err)
	require.Len(t, candles, 1)

	c := candles[0]
	assert.Equal(t, "SBER", c.Ticker)
	assert.Equal(t, "100.5", c.Open.String())
	assert.Equal(t, "101.25", c.Close.String())
	assert.Equal(t, time.Date(2024, 5, 14, 0, 0, 0, 0, tz), c.Range.Start)
	assert.Equal(t, time.Date(2024, 5, 14, 23, 59, 59, 0, tz), c.Range.End)
}

func TestCandles_EmptyBatch(t *testing.T) {
	candles, err := Candles("SBER", nil, time.UTC)
	require.NoError(t, err)
	assert.Nil(t, candles)
}

func TestCandles_MissingColumn(t *testing.T) {
	bad := candleRec(`"2024-05-14 00:00:00"`, `"2024-05-14 23:59:59"`)
	delete(bad, "open")

	_, err := Candles("SBER", []api.Record{bad}, time.UTC)
	require.Error(t, err)
	assert.True(t, IsValidation(err))

	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "open", ve.Column)
}
