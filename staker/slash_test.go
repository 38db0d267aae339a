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

func TestSlash_JailsAndPromotes(t *testing.T) {
	ts := newTest(t, testParams(2),
		genesisValidator(addrV1, 1000),
		genesisValidator(addrV2, 500),
		genesisValidator(addrV3, 200),
	)

	require.NoError(t, ts.Slash(addrV1, pos.DuplicateVote, 0, 10))

	ts.AssertState(addrV1, 0, pos.Consensus).
		AssertState(addrV1, 1, pos.Jailed).
		AssertState(addrV1, 2, pos.Jailed).
		AssertInvariants()
	assert.Equal(t, []pos.Address{addrV2}, ts.Members(pos.Consensus, 1))
	assert.Equal(t, []pos.Address{addrV3}, ts.Members(pos.BelowCapacity, 1))
	assert.Equal(t, []pos.Address{addrV3, addrV2}, ts.Members(pos.Consensus, 2))
	assert.Empty(t, ts.Members(pos.BelowCapacity, 2))

	enqueued, err := ts.EnqueuedSlashes(pos.Epoch(0).Add(ts.params.SlashProcessingEpochOffset()))
	require.NoError(t, err)
	require.Len(t, enqueued, 1)
	assert.Equal(t, addrV1, enqueued[0].Validator)
	require.Len(t, enqueued[0].Slashes, 1)
	assert.Equal(t, uint64(10), enqueued[0].Slashes[0].BlockHeight)

	last, found, err := ts.LastSlashEpoch(addrV1)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, pos.Epoch(0), last)

	// a second report does not jail twice
	require.NoError(t, ts.Slash(addrV1, pos.LightClientAttack, 0, 11))
	ts.AssertState(addrV1, 2, pos.Jailed).AssertInvariants()
}

func TestSlash_Errors(t *testing.T) {
	ts := newTest(t, testParams(1), genesisValidator(addrV1, 1000), genesisValidator(addrV2, 500))

	assert.ErrorIs(t, ts.Slash(addrV1, pos.DuplicateVote, 1, 0), reverts.ErrEpochOutOfRange)
	assert.ErrorIs(t, ts.Slash(addrV2, pos.DuplicateVote, 0, 0), reverts.ErrNotEligibleForMisbehavior)
	assert.ErrorIs(t, ts.Slash(addrD1, pos.DuplicateVote, 0, 0), reverts.ErrNotAValidator)

	ts.Advance(int(ts.params.UnbondingLen) + 1)
	assert.ErrorIs(t, ts.Slash(addrV1, pos.DuplicateVote, 0, 0), reverts.ErrEpochOutOfRange)
	require.NoError(t, ts.Slash(addrV1, pos.DuplicateVote, 1, 0))
}

func TestSlash_ProcessUnjailWithdraw(t *testing.T) {
	ts := newTest(t, testParams(2), genesisValidator(addrV1, 1000), genesisValidator(addrV2, 500)).Mint(addrD1, 300)
	id := pos.BondID{Source: addrD1, Validator: addrV1}

	ts.Bond(addrD1, addrV1, 300)
	require.NoError(t, ts.Slash(addrV1, pos.DuplicateVote, 0, 1))
	ts.AssertStake(addrV1, 2, 1300)

	_, err := ts.Unbond(id, big.NewInt(100))
	assert.ErrorIs(t, err, reverts.ErrValidatorFrozen)

	ts.Advance(1)
	_, err = ts.Withdraw(id)
	assert.ErrorIs(t, err, reverts.ErrValidatorJailed)
	assert.ErrorIs(t, ts.Unjail(addrV1), reverts.ErrValidatorFrozen)
	assert.ErrorIs(t, ts.Unjail(addrV2), reverts.ErrValidatorNotJailed)

	ts.Advance(int(ts.params.UnbondingLen) - 1)
	require.NoError(t, ts.Unjail(addrV1))
	ts.AssertState(addrV1, 5, pos.Jailed).
		AssertState(addrV1, 6, pos.Consensus).
		AssertInvariants()

	processing := pos.Epoch(0).Add(ts.params.SlashProcessingEpochOffset())
	for ts.Epoch() < processing {
		ts.Advance(1)
	}

	slashes, err := ts.ValidatorSlashes(addrV1)
	require.NoError(t, err)
	require.Len(t, slashes, 1)
	assert.Equal(t, pos.Epoch(0), slashes[0].Epoch)
	assert.True(t, slashes[0].Rate.Equal(pos.OneDec()), "rate %s", slashes[0].Rate)

	// only the self-bond was bonded at the infraction
	for _, epoch := range processing.Range(ts.params.PipelineLen + 1) {
		ts.AssertStake(addrV1, epoch, 300)
	}
	ts.AssertStake(addrV2, processing, 500).AssertInvariants()
	assert.Equal(t, []pos.Address{addrV1, addrV2}, ts.Members(pos.Consensus, processing))

	enqueued, err := ts.EnqueuedSlashes(processing)
	require.NoError(t, err)
	assert.Empty(t, enqueued)

	// processing the same epoch again changes nothing
	require.NoError(t, ts.processEnqueuedSlashes(processing))
	ts.AssertStake(addrV1, processing, 300)
	slashes, err = ts.ValidatorSlashes(addrV1)
	require.NoError(t, err)
	assert.Len(t, slashes, 1)

	frozen, err := ts.slashingService.IsFrozen(addrV1, processing)
	require.NoError(t, err)
	assert.False(t, frozen)
	unbonded, err := ts.Unbond(id, big.NewInt(100))
	require.NoError(t, err)
	assert.Equal(t, "100", unbonded.String())
}

func TestSlash_UnbondedStakeStaysLiable(t *testing.T) {
	params := testParams(2)
	params.DuplicateVoteMinSlashRate = pos.MustParseDec("0.1")
	ts := newTest(t, params,
		genesisValidator(addrV1, 1000),
		genesisValidator(addrV2, 10000),
		genesisValidator(addrV3, 1000),
	).Mint(addrD1, 1000)
	id := pos.BondID{Source: addrD1, Validator: addrV1}

	ts.Bond(addrD1, addrV1, 1000)
	ts.Advance(2)

	unbonded, err := ts.Unbond(id, big.NewInt(1000))
	require.NoError(t, err)
	assert.Equal(t, "1000", unbonded.String())
	ts.AssertStake(addrV1, 4, 1000)

	// the unbonded stake still counts at the infraction epoch
	ts.Advance(1)
	ts.AssertStake(addrV1, 3, 2000)
	require.NoError(t, ts.Slash(addrV1, pos.DuplicateVote, 3, 0))

	for ts.Epoch() < 3+pos.Epoch(ts.params.UnbondingLen) {
		ts.Advance(1)
	}
	require.NoError(t, ts.Unjail(addrV1))

	processing := pos.Epoch(3).Add(ts.params.SlashProcessingEpochOffset())
	for ts.Epoch() < processing {
		ts.Advance(1)
	}
	slashes, err := ts.ValidatorSlashes(addrV1)
	require.NoError(t, err)
	require.Len(t, slashes, 1)
	rate := slashes[0].Rate
	assert.True(t, rate.GTE(params.DuplicateVoteMinSlashRate), "rate %s", rate)
	assert.True(t, rate.LT(pos.OneDec()), "rate %s", rate)

	// the self-bond share is settled at processing, the unbond share was off stake by then
	settled := pos.MulCeil(rate, big.NewInt(1000))
	ts.AssertBalance(SlashPoolAccount, settled.Int64()).
		AssertBalance(PoSAccount, 13000-settled.Int64())

	unbonds, err := ts.Unbonds(id)
	require.NoError(t, err)
	require.Len(t, unbonds, 1)
	require.Equal(t, processing, unbonds[0].Withdraw)

	paid, err := ts.Withdraw(id)
	require.NoError(t, err)
	want := new(big.Int).Sub(big.NewInt(1000), pos.MulCeil(rate, big.NewInt(1000)))
	assert.Equal(t, want.String(), paid.String())
	ts.AssertBalance(addrD1, want.Int64()).
		AssertBalance(SlashPoolAccount, 1000-want.Int64())
}

func TestSlash_CubicRateCountsWindow(t *testing.T) {
	var (
		validators []pos.GenesisValidator
		addrs      []pos.Address
	)
	for i := range 10 {
		addr := pos.BytesToAddress([]byte{byte(i + 1)})
		addrs = append(addrs, addr)
		validators = append(validators, genesisValidator(addr, 1000))
	}
	ts := newTest(t, testParams(10), validators...)

	require.NoError(t, ts.Slash(addrs[0], pos.DuplicateVote, 0, 0))
	ts.Advance(1)
	require.NoError(t, ts.Slash(addrs[1], pos.DuplicateVote, 1, 0))

	// the second slash is processed after the first one left the queue
	last := pos.Epoch(1).Add(ts.params.SlashProcessingEpochOffset())
	for ts.Epoch() < last {
		ts.Advance(1)
	}

	var rates []pos.Dec
	for _, addr := range addrs[:2] {
		slashes, err := ts.ValidatorSlashes(addr)
		require.NoError(t, err)
		require.Len(t, slashes, 1)
		rates = append(rates, slashes[0].Rate)
	}
	assert.True(t, rates[0].Equal(rates[1]), "rates %s and %s", rates[0], rates[1])

	// 9 * (1000/10000 + 1000/9000)^2
	assert.InDelta(t, 361.0/900.0, rates[1].MustFloat64(), 1e-9)

	// the infraction index is pruned once no window reaches back to it
	for ts.Epoch() < last+pos.Epoch(ts.params.CubicSlashingWindowLen)+1 {
		ts.Advance(1)
	}
	processed, err := ts.slashingService.ProcessedAt(0)
	require.NoError(t, err)
	assert.Empty(t, processed)
	slashes, err := ts.ValidatorSlashes(addrs[0])
	require.NoError(t, err)
	assert.Len(t, slashes, 1)
}

func TestSlash_JailsInactiveValidator(t *testing.T) {
	ts := newTest(t, testParams(2),
		genesisValidator(addrV1, 1000),
		genesisValidator(addrV2, 500),
		genesisValidator(addrV3, 200),
	)

	require.NoError(t, ts.Deactivate(addrV1))
	require.NoError(t, ts.Slash(addrV1, pos.DuplicateVote, 0, 0))
	ts.AssertState(addrV1, 1, pos.Jailed).
		AssertState(addrV1, 2, pos.Jailed).
		AssertInvariants()

	ts.Advance(1)
	assert.ErrorIs(t, ts.Reactivate(addrV1), reverts.ErrValidatorNotInactive)
	ts.AssertState(addrV1, 3, pos.Jailed).AssertInvariants()
	assert.NotContains(t, ts.Members(pos.Consensus, 3), addrV1)
}

func TestSlash_ReactivateWhileFrozen(t *testing.T) {
	ts := newTest(t, testParams(2),
		genesisValidator(addrV1, 1000),
		genesisValidator(addrV2, 500),
		genesisValidator(addrV3, 200),
	)

	require.NoError(t, ts.Slash(addrV1, pos.DuplicateVote, 0, 0))
	ts.Advance(int(ts.params.UnbondingLen))
	require.NoError(t, ts.Unjail(addrV1))
	require.NoError(t, ts.Deactivate(addrV1))
	ts.AssertState(addrV1, 6, pos.Inactive)

	// the slash at epoch 0 is processed at epoch 6
	require.NoError(t, ts.Reactivate(addrV1))
	ts.AssertState(addrV1, 6, pos.Jailed).AssertInvariants()
	assert.Equal(t, []pos.Address{addrV3, addrV2}, ts.Members(pos.Consensus, 6))

	ts.Advance(2)
	frozen, err := ts.slashingService.IsFrozen(addrV1, ts.Epoch())
	require.NoError(t, err)
	assert.False(t, frozen)

	// fully slashed, so it comes back below threshold
	require.NoError(t, ts.Unjail(addrV1))
	ts.AssertStake(addrV1, 8, 0).
		AssertState(addrV1, 8, pos.BelowThreshold).
		AssertInvariants()
}
