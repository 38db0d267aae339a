// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package staker

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vechain/posledger/pos"
	"github.com/vechain/posledger/staker/reverts"
)

func validatorConfig(addr pos.Address) *ValidatorConfig {
	return &ValidatorConfig{
		Address:                 addr,
		ConsensusKey:            addr.Bytes(),
		CommissionRate:          pos.MustParseDec("0.1"),
		MaxCommissionRateChange: pos.MustParseDec("0.05"),
	}
}

func TestBecomeValidator(t *testing.T) {
	ts := newTest(t, testParams(2), genesisValidator(addrV1, 1000)).Mint(addrD1, 100)

	require.NoError(t, ts.BecomeValidator(validatorConfig(addrV2)))
	ts.AssertState(addrV2, 2, pos.BelowThreshold).AssertStake(addrV2, 2, 0)
	_, found, err := ts.ValidatorState(addrV2, 1)
	require.NoError(t, err)
	assert.False(t, found)

	v, err := ts.Validator(addrV2)
	require.NoError(t, err)
	require.NotNil(t, v)
	assert.Equal(t, addrV2.Bytes(), v.ConsensusKey)

	assert.ErrorIs(t, ts.BecomeValidator(validatorConfig(addrV2)), reverts.ErrValidatorAlreadyExists)

	dupKey := validatorConfig(addrV3)
	dupKey.ConsensusKey = addrV2.Bytes()
	assert.ErrorIs(t, ts.BecomeValidator(dupKey), reverts.ErrConsensusKeyInUse)

	badRate := validatorConfig(addrV3)
	badRate.CommissionRate = pos.MustParseDec("1.5")
	assert.ErrorIs(t, ts.BecomeValidator(badRate), reverts.ErrInvalidCommissionRate)

	ts.Bond(addrD1, addrV1, 10)
	assert.ErrorIs(t, ts.BecomeValidator(validatorConfig(addrD1)), reverts.ErrInvalidBondSource)

	ts.Advance(2)
	ts.Mint(addrV2, 50).Bond(addrV2, addrV2, 50)
	ts.AssertState(addrV2, 4, pos.Consensus).AssertInvariants()
}

func TestChangeCommission(t *testing.T) {
	ts := newTest(t, testParams(2), genesisValidator(addrV1, 1000))

	err := ts.ChangeCommission(addrV1, pos.MustParseDec("0.1"))
	assert.ErrorIs(t, err, reverts.ErrCommissionChangeTooLarge)

	err = ts.ChangeCommission(addrV1, pos.MustParseDec("-0.1"))
	assert.ErrorIs(t, err, reverts.ErrInvalidCommissionRate)

	require.NoError(t, ts.ChangeCommission(addrV1, pos.MustParseDec("0.055")))

	before, err := ts.Commission(addrV1, 1)
	require.NoError(t, err)
	assert.Equal(t, "0.050000000000000000", before.Rate.String())
	after, err := ts.Commission(addrV1, 2)
	require.NoError(t, err)
	assert.Equal(t, "0.055000000000000000", after.Rate.String())
	assert.Equal(t, "0.010000000000000000", after.MaxChange.String())

	assert.ErrorIs(t, ts.ChangeCommission(addrD1, pos.MustParseDec("0.05")), reverts.ErrNotAValidator)
}

func TestDeactivateReactivate(t *testing.T) {
	ts := newTest(t, testParams(1), genesisValidator(addrV1, 1000), genesisValidator(addrV2, 500)).Mint(addrD1, 100)

	require.NoError(t, ts.Deactivate(addrV1))
	ts.AssertState(addrV1, 1, pos.Consensus).
		AssertState(addrV1, 2, pos.Inactive).
		AssertState(addrV2, 2, pos.Consensus).
		AssertInvariants()

	assert.ErrorIs(t, ts.Deactivate(addrV1), reverts.ErrValidatorInactive)
	assert.ErrorIs(t, ts.Staker.Bond(pos.BondID{Source: addrD1, Validator: addrV1}, big.NewInt(10)), reverts.ErrValidatorInactive)
	assert.ErrorIs(t, ts.Reactivate(addrV2), reverts.ErrValidatorNotInactive)

	ts.Advance(1)
	ts.AssertState(addrV1, 3, pos.Inactive)
	require.NoError(t, ts.Reactivate(addrV1))
	ts.AssertState(addrV1, 2, pos.Inactive).
		AssertState(addrV1, 3, pos.Consensus).
		AssertState(addrV2, 3, pos.BelowCapacity).
		AssertStake(addrV1, 3, 1000).
		AssertInvariants()
}
