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

// PriceChange holds the derived day and year price movements for one stock.
// At most one row exists per ticker; each refresh overwrites the previous one.
type PriceChange struct {
	Ticker         string
	ValuePerDay    decimal.Decimal
	PercentPerDay  decimal.Decimal
	ValuePerYear   decimal.Decimal
	PercentPerYear decimal.Decimal
	Updated        time.Time
}
