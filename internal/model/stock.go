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

package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Stock is one tradable instrument from the provider catalog. Ticker is the
// identity: case-normalized to uppercase on write and immutable once set.
// Optional catalog attributes are pointers; the provider omits them freely.
type Stock struct {
	Ticker              string
	ShortName           *string
	SecName             *string
	LatName             *string
	PrevPrice           decimal.Decimal
	LotSize             *int64
	FaceValue           *decimal.Decimal
	FaceUnit            *string
	Status              *string
	Decimals            *int16
	MinStep             *decimal.Decimal
	PrevDate            *time.Time
	IssueSize           *int64
	ISIN                *string
	RegNumber           *string
	PrevLegalClosePrice decimal.Decimal
	CurrencyID          *string
	SecType             *string
	ListLevel           *int16
	SettleDate          *time.Time
	Updated             time.Time
}
