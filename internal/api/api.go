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

// Package api talks to the MOEX ISS HTTP JSON API. Responses come back as
// column/row tables; they are decoded into Record maps keyed by column name
// and interpreted by the transform package.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

const (
	DefaultBaseURL = "https://iss.moex.com/iss"
	DefaultBoard   = "TQBR"

	// MaxWindowDays bounds a single candle request; the provider rejects or
	// truncates larger history spans.
	MaxWindowDays = 365

	// dayInterval selects daily candles on the ISS candle endpoint.
	dayInterval = "24"

	dateLayout = "2006-01-02"
)

var ErrTooManyRequests = errors.New("error: too many requests")

// errMalformed marks a 200 response whose body is not a decodable ISS table
// (bad JSON, missing block). Kept separate from transport failures so callers
// that tolerate absent data can tell the two apart.
var errMalformed = errors.New("malformed response")

// Record is one row of an ISS table, keyed by column name. Values keep their
// raw JSON encoding; typed extraction happens in the transform package.
type Record map[string]json.RawMessage

type issTable struct {
	Columns []string            `json:"columns"`
	Data    [][]json.RawMessage `json:"data"`
}

type Client struct {
	baseURL    string
	board      string
	httpClient *http.Client
}

func NewClient(baseURL, board string, httpClient *http.Client) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if board == "" {
		board = DefaultBoard
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{baseURL: baseURL, board: board, httpClient: httpClient}
}

// Securities requests the ticker catalog for the client board.
func (c *Client) Securities(ctx context.Context) ([]Record, error) {
	path := fmt.Sprintf("/engines/stock/markets/shares/boards/%s/securities.json", c.board)
	return c.get(ctx, path, nil, "securities")
}

// AvailableDates requests the [from, till] span of history the provider can
// serve for ticker. Any malformed or empty response is reported as ok=false
// rather than an error; only transport failures propagate for retry.
func (c *Client) AvailableDates(ctx context.Context, ticker string) (from, till time.Time, ok bool, err error) {
	path := fmt.Sprintf("/history/engines/stock/markets/shares/boards/%s/securities/%s/dates.json", c.board, url.PathEscape(ticker))
	recs, err := c.get(ctx, path, nil, "dates")
	switch {
	case errors.Is(err, errMalformed):
		return time.Time{}, time.Time{}, false, nil
	case err != nil:
		return time.Time{}, time.Time{}, false, err
	}
	if len(recs) == 0 {
		return time.Time{}, time.Time{}, false, nil
	}

	from, err = recordDate(recs[0], "from")
	if err != nil {
		return time.Time{}, time.Time{}, false, nil
	}
	till, err = recordDate(recs[0], "till")
	if err != nil {
		return time.Time{}, time.Time{}, false, nil
	}

	return from, till, true, nil
}

func recordDate(rec Record, col string) (time.Time, error) {
	raw, ok := rec[col]
	if !ok {
		return time.Time{}, fmt.Errorf("column %q missing", col)
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return time.Time{}, err
	}
	return time.Parse(dateLayout, s)
}

// BatchFunc consumes one batch of raw candle records. Returning an error
// stops the stream; batches already consumed are considered delivered.
type BatchFunc func(batch []Record) error

// StreamCandles walks [start, end) in sub-windows of at most MaxWindowDays
// and feeds each sub-window's daily candles to fn. The stream terminates at
// the first failure without retrying the failed sub-window.
func (c *Client) StreamCandles(ctx context.Context, ticker string, start, end time.Time, fn BatchFunc) error {
	for cur := start; cur.Before(end); {
		till := cur.AddDate(0, 0, MaxWindowDays)
		if till.After(end) {
			till = end
		}

		recs, err := c.candlesWindow(ctx, ticker, cur, till)
		if err != nil {
			return fmt.Errorf("error while streaming candles for stock %q (%v — %v): %w", ticker, cur, till, err)
		}
		if len(recs) > 0 {
			if err := fn(recs); err != nil {
				return err
			}
		}

		cur = till
	}
	return nil
}

// candlesWindow fetches all candle pages of one sub-window. ISS pages row
// sets with a start cursor.
func (c *Client) candlesWindow(ctx context.Context, ticker string, from, till time.Time) ([]Record, error) {
	path := fmt.Sprintf("/engines/stock/markets/shares/securities/%s/candles.json", url.PathEscape(ticker))

	var out []Record
	for cursor := 0; ; {
		query := url.Values{
			"from":     []string{from.Format(dateLayout)},
			"till":     []string{till.Format(dateLayout)},
			"interval": []string{dayInterval},
			"start":    []string{fmt.Sprint(cursor)},
		}

		page, err := c.get(ctx, path, query, "candles")
		if err != nil {
			return nil, err
		}
		if len(page) == 0 {
			break
		}

		out = append(out, page...)
		cursor += len(page)
	}

	return out, nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values, block string) ([]Record, error) {
	u := c.baseURL + path
	if query == nil {
		query = url.Values{}
	}
	query.Set("iss.meta", "off")
	u += "?" + query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("error while building request %s: %w", path, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error while requesting %s: %w", path, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, fmt.Errorf("error while requesting %s: %w", path, ErrTooManyRequests)
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("error while requesting %s: unexpected status %d (%s)", path, resp.StatusCode, body)
	}

	return decodeTable(resp.Body, block)
}

func decodeTable(r io.Reader, block string) ([]Record, error) {
	var env map[string]issTable
	if err := json.NewDecoder(r).Decode(&env); err != nil {
		return nil, fmt.Errorf("error while decoding %q response (%v): %w", block, err, errMalformed)
	}

	t, ok := env[block]
	if !ok {
		return nil, fmt.Errorf("error while decoding response: block %q missing: %w", block, errMalformed)
	}

	recs := make([]Record, 0, len(t.Data))
	for _, row := range t.Data {
		rec := make(Record, len(t.Columns))
		for i, col := range t.Columns {
			if i < len(row) {
				rec[col] = row[i]
			}
		}
		recs = append(recs, rec)
	}

	return recs, nil
}
