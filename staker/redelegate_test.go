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

func TestRedelegate(t *testing.T) {
	ts := newTest(t, testParams(2), genesisValidator(addrV1, 1000), genesisValidator(addrV2, 1000)).Mint(addrD1, 500)
	src := pos.BondID{Source: addrD1, Validator: addrV1}
	dst := pos.BondID{Source: addrD1, Validator: addrV2}

	ts.Bond(addrD1, addrV1, 500)

	moved, err := ts.Redelegate(src, addrV2, big.NewInt(200))
	require.NoError(t, err)
	assert.Equal(t, "200", moved.String())

	ts.AssertStake(addrV1, 2, 1300).
		AssertStake(addrV2, 2, 1200).
		AssertBalance(addrD1, 0).
		AssertBalance(PoSAccount, 2500).
		AssertInvariants()

	bonded, err := ts.BondAmount(dst, 2)
	require.NoError(t, err)
	assert.Equal(t, "200", bonded.String())
	bonded, err = ts.BondAmount(src, 2)
	require.NoError(t, err)
	assert.Equal(t, "300", bonded.String())

	unbonds, err := ts.Unbonds(src)
	require.NoError(t, err)
	assert.Empty(t, unbonds)

	outgoing, err := ts.redelegationService.Outgoing(addrV1, addrV2)
	require.NoError(t, err)
	require.Len(t, outgoing, 1)
	assert.Equal(t, pos.Epoch(2), outgoing[0].SrcStart)
	assert.Equal(t, pos.Epoch(0), outgoing[0].RedelStart)
	assert.Equal(t, "200", outgoing[0].Amount.String())
}

func TestRedelegate_Chained(t *testing.T) {
	ts := newTest(t, testParams(2), genesisValidator(addrV1, 1000), genesisValidator(addrV2, 1000)).Mint(addrD1, 500)
	src := pos.BondID{Source: addrD1, Validator: addrV1}
	dst := pos.BondID{Source: addrD1, Validator: addrV2}

	ts.Bond(addrD1, addrV1, 500)
	_, err := ts.Redelegate(src, addrV2, big.NewInt(200))
	require.NoError(t, err)

	_, err = ts.Redelegate(dst, addrV1, big.NewInt(100))
	assert.ErrorIs(t, err, reverts.ErrChainedRedelegation)

	// the untouched part of the source bond can still move
	_, err = ts.Redelegate(src, addrV2, big.NewInt(100))
	require.NoError(t, err)

	end := pos.Epoch(ts.params.PipelineLen)
	for ts.Epoch() < end.Prev().Add(ts.params.SlashProcessingEpochOffset()) {
		_, err = ts.Redelegate(dst, addrV1, big.NewInt(100))
		assert.ErrorIs(t, err, reverts.ErrChainedRedelegation, "epoch %d", ts.Epoch())
		ts.Advance(1)
	}

	moved, err := ts.Redelegate(dst, addrV1, big.NewInt(100))
	require.NoError(t, err)
	assert.Equal(t, "100", moved.String())

	bonded, err := ts.BondAmount(dst, ts.Epoch().Add(ts.params.PipelineLen))
	require.NoError(t, err)
	assert.Equal(t, "200", bonded.String())
	ts.AssertInvariants()
}

func TestRedelegate_Errors(t *testing.T) {
	ts := newTest(t, testParams(2), genesisValidator(addrV1, 1000), genesisValidator(addrV2, 1000)).Mint(addrD1, 500)
	src := pos.BondID{Source: addrD1, Validator: addrV1}
	ts.Bond(addrD1, addrV1, 500)

	_, err := ts.Redelegate(pos.BondID{Source: addrV1, Validator: addrV1}, addrV2, big.NewInt(10))
	assert.ErrorIs(t, err, reverts.ErrRedelegationOfSelfBond)

	_, err = ts.Redelegate(src, addrV1, big.NewInt(10))
	assert.ErrorIs(t, err, reverts.ErrRedelegationSrcEqDest)

	_, err = ts.Redelegate(src, addrV3, big.NewInt(10))
	assert.ErrorIs(t, err, reverts.ErrNotAValidator)

	_, err = ts.Redelegate(src, addrV2, big.NewInt(501))
	assert.ErrorIs(t, err, reverts.ErrInsufficientBond)

	require.NoError(t, ts.Slash(addrV2, pos.DuplicateVote, 0, 0))
	_, err = ts.Redelegate(src, addrV2, big.NewInt(10))
	assert.ErrorIs(t, err, reverts.ErrValidatorFrozen)

	moved, err := ts.Redelegate(src, addrV1, new(big.Int))
	assert.ErrorIs(t, err, reverts.ErrRedelegationSrcEqDest)
	assert.Nil(t, moved)
}

func TestRedelegate_SourceSlashFollowsStake(t *testing.T) {
	params := testParams(3)
	ts := newTest(t, params,
		genesisValidator(addrV1, 1000),
		genesisValidator(addrV2, 10000),
		genesisValidator(addrV3, 10000),
	).Mint(addrD1, 1000)
	src := pos.BondID{Source: addrD1, Validator: addrV1}

	ts.Bond(addrD1, addrV1, 1000)
	ts.Advance(3)

	// the bond moves to V2 in the epoch V1 misbehaves
	moved, err := ts.Redelegate(src, addrV2, big.NewInt(1000))
	require.NoError(t, err)
	assert.Equal(t, "1000", moved.String())
	ts.AssertStake(addrV1, 5, 1000).AssertStake(addrV2, 5, 11000)
	require.NoError(t, ts.Slash(addrV1, pos.DuplicateVote, 3, 0))

	processing := pos.Epoch(3).Add(ts.params.SlashProcessingEpochOffset())
	for ts.Epoch() < processing {
		ts.Advance(1)
	}

	slashes, err := ts.ValidatorSlashes(addrV1)
	require.NoError(t, err)
	require.Len(t, slashes, 1)
	due := pos.MulCeil(slashes[0].Rate, big.NewInt(1000))
	assert.Positive(t, due.Sign())

	// the redelegated stake loses its share from the epoch after processing
	ts.AssertStake(addrV2, processing, 11000)
	ts.AssertStake(addrV2, processing.Next(), 11000-due.Int64())

	// V2 itself is not jailed
	ts.AssertState(addrV2, processing.Next(), pos.Consensus)
}
