// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package reverts

import (
	"testing"

	errorsmod "cosmossdk.io/errors"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestIsRevertErr(t *testing.T) {
	wrapped := errorsmod.Wrapf(ErrInsufficientBond, "bonded %d, requested %d", 1, 2)
	assert.True(t, IsRevertErr(wrapped))
	assert.ErrorIs(t, wrapped, ErrInsufficientBond)
	assert.Equal(t, uint32(4), Code(wrapped))

	fault := errors.New("disk on fire")
	assert.False(t, IsRevertErr(fault))
	assert.Equal(t, uint32(0), Code(fault))
	assert.False(t, IsRevertErr(nil))

	assert.True(t, IsRevertErr(errors.Wrap(ErrValidatorJailed, "withdraw")))
}
