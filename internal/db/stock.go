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

	"cloud.google.com/go/logging"
	"github.com/jackc/pgtype"
	"github.com/jackc/pgx/v4"

	"github.com/ajjensen13/moexer/internal/model"
	"github.com/ajjensen13/moexer/internal/util"
)

// UpsertStocks bulk-upserts the ticker catalog in a single transaction,
// keyed on ticker. Non-key fields and the updated timestamp are overwritten
// on conflict. Returns the number of rows written.
func (s *Store) UpsertStocks(ctx context.Context, stocks []model.Stock) (int64, error) {
	ctx = util.WithLoggerValue(ctx, "action", "load")

	var count int64
	err := util.RunTx(ctx, s.pool, func(ctx context.Context, tx pgx.Tx) error {
		ctx, cancel := context.WithTimeout(ctx, util.MedReqTimeout)
		defer cancel()

		for _, stock := range stocks {
			ctx := util.WithLoggerValue(ctx, "ticker", stock.Ticker)

			sql := `
				INSERT INTO stocks
					(ticker, shortname, secname, latname, prevprice, lotsize, facevalue, faceunit,
					 status, decimals, minstep, prevdate, issuesize, isin, regnumber,
					 prevlegalcloseprice, currencyid, sectype, listlevel, settledate, updated)
				VALUES
					($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, CURRENT_TIMESTAMP)
				ON CONFLICT
					(ticker)
				DO UPDATE
					SET
						shortname = excluded.shortname,
						secname = excluded.secname,
						latname = excluded.latname,
						prevprice = excluded.prevprice,
						lotsize = excluded.lotsize,
						facevalue = excluded.facevalue,
						faceunit = excluded.faceunit,
						status = excluded.status,
						decimals = excluded.decimals,
						minstep = excluded.minstep,
						prevdate = excluded.prevdate,
						issuesize = excluded.issuesize,
						isin = excluded.isin,
						regnumber = excluded.regnumber,
						prevlegalcloseprice = excluded.prevlegalcloseprice,
						currencyid = excluded.currencyid,
						sectype = excluded.sectype,
						listlevel = excluded.listlevel,
						settledate = excluded.settledate,
						updated = excluded.updated`

			_, err := tx.Exec(ctx, sql,
				strings.ToUpper(stock.Ticker), stock.ShortName, stock.SecName, stock.LatName,
				decArg(stock.PrevPrice), stock.LotSize, optDecArg(stock.FaceValue), stock.FaceUnit,
				stock.Status, stock.Decimals, optDecArg(stock.MinStep), stock.PrevDate,
				stock.IssueSize, stock.ISIN, stock.RegNumber, decArg(stock.PrevLegalClosePrice),
				stock.CurrencyID, stock.SecType, stock.ListLevel, stock.SettleDate)
			if err != nil {
				return fmt.Errorf("failed to upsert stock %q: %w", stock.Ticker, err)
			}
			count++
		}

		util.Logf(ctx, logging.Debug, "successfully upserted %d stocks", count)
		return nil
	})
	if err != nil {
		return 0, err
	}

	return count, nil
}

// ActiveTickers lists all cataloged tickers except blacklisted ones,
// ordered by ticker.
func (s *Store) ActiveTickers(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT s.ticker
		FROM stocks s
		LEFT JOIN blacklisted_stocks b ON b.ticker = s.ticker
		WHERE b.ticker IS NULL
		ORDER BY s.ticker`)
	if err != nil {
		return nil, fmt.Errorf("failed to query active tickers: %w", err)
	}
	defer rows.Close()

	var ret []string
	for rows.Next() {
		var ticker string
		if err := rows.Scan(&ticker); err != nil {
			return nil, fmt.Errorf("failed to scan active tickers: %w", err)
		}
		ret = append(ret, ticker)
	}

	return ret, rows.Err()
}

// StockExists reports whether ticker is in the catalog (blacklisted or not).
func (s *Store) StockExists(ctx context.Context, ticker string) (bool, error) {
	var one int
	err := s.pool.QueryRow(ctx, `SELECT 1 FROM stocks WHERE ticker = $1`, strings.ToUpper(ticker)).Scan(&one)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return false, nil
	case err != nil:
		return false, fmt.Errorf("failed to query stock %q: %w", ticker, err)
	}
	return true, nil
}

// GetStock returns the catalog record for ticker, or ErrStockMissing.
func (s *Store) GetStock(ctx context.Context, ticker string) (model.Stock, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT
			ticker, shortname, secname, latname, prevprice::text, lotsize, facevalue::text,
			faceunit, status, decimals, minstep::text, prevdate, issuesize, isin, regnumber,
			prevlegalcloseprice::text, currencyid, sectype, listlevel, settledate, updated
		FROM stocks
		WHERE ticker = $1`, strings.ToUpper(ticker))

	var (
		ret model.Stock

		shortname, secname, latname       pgtype.Text
		prevprice, facevalue, minstep     pgtype.Text
		faceunit, status                  pgtype.Text
		decimals, listlevel               pgtype.Int2
		lotsize, issuesize                pgtype.Int8
		isin, regnumber                   pgtype.Text
		prevlegalcloseprice               pgtype.Text
		currencyid, sectype               pgtype.Text
		prevdate, settledate              pgtype.Date
	)

	err := row.Scan(&ret.Ticker, &shortname, &secname, &latname, &prevprice, &lotsize, &facevalue,
		&faceunit, &status, &decimals, &minstep, &prevdate, &issuesize, &isin, &regnumber,
		&prevlegalcloseprice, &currencyid, &sectype, &listlevel, &settledate, &ret.Updated)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return model.Stock{}, fmt.Errorf("stock %q: %w", ticker, ErrStockMissing)
	case err != nil:
		return model.Stock{}, fmt.Errorf("failed to scan stock %q: %w", ticker, err)
	}

	ret.ShortName = textPtr(shortname)
	ret.SecName = textPtr(secname)
	ret.LatName = textPtr(latname)
	ret.FaceUnit = textPtr(faceunit)
	ret.Status = textPtr(status)
	ret.ISIN = textPtr(isin)
	ret.RegNumber = textPtr(regnumber)
	ret.CurrencyID = textPtr(currencyid)
	ret.SecType = textPtr(sectype)
	ret.LotSize = int8Ptr(lotsize)
	ret.IssueSize = int8Ptr(issuesize)
	ret.Decimals = int2Ptr(decimals)
	ret.ListLevel = int2Ptr(listlevel)
	ret.PrevDate = datePtr(prevdate)
	ret.SettleDate = datePtr(settledate)

	if ret.PrevPrice, err = decFromText(prevprice); err != nil {
		return model.Stock{}, fmt.Errorf("failed to parse prevprice for stock %q: %w", ticker, err)
	}
	if ret.PrevLegalClosePrice, err = decFromText(prevlegalcloseprice); err != nil {
		return model.Stock{}, fmt.Errorf("failed to parse prevlegalcloseprice for stock %q: %w", ticker, err)
	}
	if ret.FaceValue, err = decPtrFromText(facevalue); err != nil {
		return model.Stock{}, fmt.Errorf("failed to parse facevalue for stock %q: %w", ticker, err)
	}
	if ret.MinStep, err = decPtrFromText(minstep); err != nil {
		return model.Stock{}, fmt.Errorf("failed to parse minstep for stock %q: %w", ticker, err)
	}

	return ret, nil
}

// BlacklistTicker excludes ticker from default stock queries. Raw candle
// storage is unaffected.
func (s *Store) BlacklistTicker(ctx context.Context, ticker string) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO blacklisted_stocks (ticker) VALUES ($1) ON CONFLICT (ticker) DO NOTHING`,
		strings.ToUpper(ticker))
	if err != nil {
		return fmt.Errorf("failed to blacklist stock %q: %w", ticker, err)
	}
	return nil
}

// UnblacklistTicker restores ticker to default stock queries.
func (s *Store) UnblacklistTicker(ctx context.Context, ticker string) error {
	_, err := s.pool.Exec(ctx,
		`DELETE FROM blacklisted_stocks WHERE ticker = $1`, strings.ToUpper(ticker))
	if err != nil {
		return fmt.Errorf("failed to unblacklist stock %q: %w", ticker, err)
	}
	return nil
}
