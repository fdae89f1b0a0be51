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

// Package window reconciles a requested fetch window against the span of
// history the provider can actually serve for a ticker.
package window

import "time"

// Range is a date window. From is inclusive, Till exclusive when used as a
// fetch bound.
type Range struct {
	From time.Time
	Till time.Time
}

// Resolve computes the effective fetch window for a ticker whose available
// history is avail. Either requested bound may be nil:
//
//   - both given: the end clamps to avail.Till when outside (From, Till]; the
//     start clamps to end minus the originally requested span, and never
//     before avail.From.
//   - only start: the end becomes avail.Till; the start clamps to avail.From
//     when outside [From, Till).
//   - only end: the end clamps to avail.Till when outside (From, Till]; the
//     start becomes avail.From.
//   - neither: the full available range.
//
// The result always satisfies avail.From <= From < Till <= avail.Till.
// When both bounds are given the caller must ensure start < end.
func Resolve(avail Range, start, end *time.Time) Range {
	switch {
	case start != nil && end != nil:
		span := end.Sub(*start)

		e := *end
		if !validEnd(avail, e) {
			e = avail.Till
		}

		s := *start
		if !validStart(avail, s, e) {
			s = e.Add(-span)
		}
		if s.Before(avail.From) {
			s = avail.From
		}

		return Range{From: s, Till: e}

	case start != nil:
		s := *start
		if !validStart(avail, s, avail.Till) {
			s = avail.From
		}
		return Range{From: s, Till: avail.Till}

	case end != nil:
		e := *end
		if !validEnd(avail, e) {
			e = avail.Till
		}
		return Range{From: avail.From, Till: e}

	default:
		return avail
	}
}

// validEnd reports avail.From < e <= avail.Till.
func validEnd(avail Range, e time.Time) bool {
	return e.After(avail.From) && !e.After(avail.Till)
}

// validStart reports avail.From <= s < e.
func validStart(avail Range, s, e time.Time) bool {
	return !s.Before(avail.From) && s.Before(e)
}
