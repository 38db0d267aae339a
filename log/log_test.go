// Copyright (c) 2024 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package log

import (
	"bytes"
	"log/slog"
	"math/big"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
)

func TestLogfmtBigValues(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(LogfmtHandlerWithLevel(&buf, newLevelVar(LevelTrace)))
	l.Info("bonded", "amount", big.NewInt(1000), "balance", uint256.NewInt(7), "none", (*big.Int)(nil))

	out := buf.String()
	assert.Contains(t, out, "lvl=info")
	assert.Contains(t, out, "amount=1000")
	assert.Contains(t, out, "balance=7")
	assert.Contains(t, out, "none=<nil>")
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(JSONHandlerWithLevel(&buf, newLevelVar(LevelWarn)))
	l.Debug("hidden")
	assert.Empty(t, buf.String())
	l.Warn("shown", "k", "v")
	assert.Contains(t, buf.String(), `"lvl":"warn"`)
}

func TestWithContextFollowsDefault(t *testing.T) {
	pkgLogger := WithContext("pkg", "test")

	orig := Root().(*lazyLogger).resolve()
	defer SetDefault(orig)

	var buf bytes.Buffer
	SetDefault(NewLogger(LogfmtHandler(&buf)))

	pkgLogger.Info("hello")
	assert.Contains(t, buf.String(), "pkg=test")
	assert.Contains(t, buf.String(), "msg=hello")
}

func TestFromLegacyLevel(t *testing.T) {
	assert.Equal(t, LevelCrit, FromLegacyLevel(0))
	assert.Equal(t, slog.LevelInfo, FromLegacyLevel(3))
	assert.Equal(t, LevelTrace, FromLegacyLevel(9))
}
