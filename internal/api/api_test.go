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

package api

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, "", srv.Client())
}

func TestSecurities(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/engines/stock/markets/shares/boards/TQBR/securities.json", r.URL.Path)
		assert.Equal(t, "off", r.URL.Query().Get("iss.meta"))
		fmt.Fprint(w, `{"securities":{"columns":["SECID","SHORTNAME","LOTSIZE"],"data":[["SBER","Сбербанк",10],["GAZP",null,100]]}}`)
	})

	recs, err := c.Securities(context.Background())
	require.NoError(t, err)
	require.Len(t, recs, 2)

	assert.Equal(t, `"SBER"`, string(recs[0]["SECID"]))
	assert.Equal(t, `10`, string(recs[0]["LOTSIZE"]))
	assert.Equal(t, `null`, string(recs[1]["SHORTNAME"]))
}

func TestAvailableDates(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/history/engines/stock/markets/shares/boards/TQBR/securities/SBER/dates.json", r.URL.Path)
		fmt.Fprint(w, `{"dates":{"columns":["from","till"],"data":[["2020-01-01","2024-01-01"]]}}`)
	})

	from, till, ok, err := c.AvailableDates(context.Background(), "SBER")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC), from)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), till)
}

func TestAvailableDates_EmptyIsNotAnError(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"dates":{"columns":["from","till"],"data":[]}}`)
	})

	_, _, ok, err := c.AvailableDates(context.Background(), "SBER")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAvailableDates_MalformedIsNotAnError(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"dates":{"columns":["from","till"],"data":[["not a date","2024-01-01"]]}}`)
	})

	_, _, ok, err := c.AvailableDates(context.Background(), "SBER")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAvailableDates_MissingBlockIsNotAnError(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{}`)
	})

	_, _, ok, err := c.AvailableDates(context.Background(), "SBER")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAvailableDates_NonJsonBodyIsNotAnError(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html>service unavailable</html>`)
	})

	_, _, ok, err := c.AvailableDates(context.Background(), "SBER")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAvailableDates_TransportErrorPropagates(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, _, _, err := c.AvailableDates(context.Background(), "SBER")
	assert.Error(t, err)
}

func TestGet_TooManyRequests(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := c.Securities(context.Background())
	assert.ErrorIs(t, err, ErrTooManyRequests)
}

func candleBody(n int) string {
	body := `{"candles":{"columns":["open","close","begin","end"],"data":[`
	for i := 0; i < n; i++ {
		if i > 0 {
			body += ","
		}
		body += fmt.Sprintf(`[100,101,"2020-01-%02d 00:00:00","2020-01-%02d 23:59:59"]`, i+1, i+1)
	}
	return body + `]}}`
}

func TestStreamCandles_SplitsLargeWindows(t *testing.T) {
	var windows [][2]string
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("start") != "0" {
			fmt.Fprint(w, candleBody(0))
			return
		}
		windows = append(windows, [2]string{q.Get("from"), q.Get("till")})
		assert.Equal(t, "24", q.Get("interval"))
		fmt.Fprint(w, candleBody(2))
	})

	start := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2021, 6, 1, 0, 0, 0, 0, time.UTC)

	var batches int
	err := c.StreamCandles(context.Background(), "SBER", start, end, func(batch []Record) error {
		batches += len(batch)
		return nil
	})
	require.NoError(t, err)

	require.Equal(t, [][2]string{
		{"2020-01-01", "2020-12-31"},
		{"2020-12-31", "2021-06-01"},
	}, windows)
	assert.Equal(t, 4, batches)
}

func TestStreamCandles_Pages(t *testing.T) {
	var starts []string
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		start := r.URL.Query().Get("start")
		starts = append(starts, start)
		if start == "0" {
			fmt.Fprint(w, candleBody(3))
			return
		}
		fmt.Fprint(w, candleBody(0))
	})

	start := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2020, 2, 1, 0, 0, 0, 0, time.UTC)

	var got int
	err := c.StreamCandles(context.Background(), "SBER", start, end, func(batch []Record) error {
		got += len(batch)
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"0", "3"}, starts)
	assert.Equal(t, 3, got)
}

func TestStreamCandles_StopsAtFirstFailure(t *testing.T) {
	var requests int
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("start") != "0" {
			fmt.Fprint(w, candleBody(0))
			return
		}
		requests++
		if requests > 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		fmt.Fprint(w, candleBody(1))
	})

	start := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC)

	var batches int
	err := c.StreamCandles(context.Background(), "SBER", start, end, func(batch []Record) error {
		batches++
		return nil
	})
	require.Error(t, err)
	assert.Equal(t, 1, batches)
}

func TestStreamCandles_EmptyBatchesAreSkipped(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, candleBody(0))
	})

	start := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2020, 2, 1, 0, 0, 0, 0, time.UTC)

	err := c.StreamCandles(context.Background(), "SBER", start, end, func(batch []Record) error {
		t.Fatal("unexpected batch for empty window")
		return nil
	})
	require.NoError(t, err)
}

func TestDecodeTable_MissingBlock(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"unexpected":{"columns":[],"data":[]}}`)
	})

	_, err := c.Securities(context.Background())
	assert.Error(t, err)
}
