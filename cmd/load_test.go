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
package cmd

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setLoadFlags(t *testing.T, update bool, days int, start, end string) {
	t.Helper()
	loadUpdate, loadDays, loadStart, loadEnd = update, days, start, end
	t.Cleanup(func() {
		loadUpdate, loadDays, loadStart, loadEnd = false, 1, "", ""
	})
}

func TestParseRunConfig(t *testing.T) {
	setLoadFlags(t, false, 1, "2020-01-01", "2021-01-01")

	cfg, err := parseRunConfig()
	require.NoError(t, err)
	require.NotNil(t, cfg.Start)
	require.NotNil(t, cfg.End)
	assert.Equal(t, time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC), *cfg.Start)
	assert.Equal(t, time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC), *cfg.End)
	assert.False(t, cfg.Update)
}

func TestParseRunConfig_BadDateFormat(t *testing.T) {
	setLoadFlags(t, false, 1, "01.01.2020", "")
	_, err := parseRunConfig()
	assert.Error(t, err)

	setLoadFlags(t, false, 1, "", "2020-13-40")
	_, err = parseRunConfig()
	assert.Error(t, err)
}

func TestParseRunConfig_InvertedBounds(t *testing.T) {
	setLoadFlags(t, false, 1, "2021-01-01", "2020-01-01")
	_, err := parseRunConfig()
	assert.Error(t, err)

	setLoadFlags(t, false, 1, "2020-01-01", "2020-01-01")
	_, err = parseRunConfig()
	assert.Error(t, err, "an empty window is a user input error")
}

func TestParseRunConfig_UpdateExcludesBounds(t *testing.T) {
	setLoadFlags(t, true, 30, "2020-01-01", "")
	_, err := parseRunConfig()
	assert.Error(t, err)

	setLoadFlags(t, true, 30, "", "")
	cfg, err := parseRunConfig()
	require.NoError(t, err)
	assert.True(t, cfg.Update)
	assert.Equal(t, 30, cfg.Days)
}
