// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package staker

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vechain/posledger/lvldb"
	"github.com/vechain/posledger/pos"
	"github.com/vechain/posledger/state"
)

var (
	addrV1 = pos.BytesToAddress([]byte("v1"))
	addrV2 = pos.BytesToAddress([]byte("v2"))
	addrV3 = pos.BytesToAddress([]byte("v3"))
	addrD1 = pos.BytesToAddress([]byte("d1"))
	addrD2 = pos.BytesToAddress([]byte("d2"))
)

func genesisValidator(addr pos.Address, tokens int64) pos.GenesisValidator {
	return pos.GenesisValidator{
		Address:                 addr,
		Tokens:                  big.NewInt(tokens),
		ConsensusKey:            addr.Bytes(),
		CommissionRate:          pos.MustParseDec("0.05"),
		MaxCommissionRateChange: pos.MustParseDec("0.01"),
	}
}

func testParams(slots uint64) *pos.Params {
	p := pos.DefaultParams()
	p.MaxValidatorSlots = slots
	return p
}

type StakerTest struct {
	*Staker
	t     *testing.T
	state *state.State
}

func newTest(t *testing.T, params *pos.Params, validators ...pos.GenesisValidator) *StakerTest {
	db, err := lvldb.NewMem()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	st := state.NewCreator(db, 0).NewState()
	s, err := InitGenesis(st, params, validators)
	require.NoError(t, err)
	return &StakerTest{Staker: s, t: t, state: st}
}

func (ts *StakerTest) Mint(addr pos.Address, amount int64) *StakerTest {
	require.NoError(ts.t, ts.Staker.Mint(addr, big.NewInt(amount)))
	return ts
}

func (ts *StakerTest) Bond(source, validator pos.Address, amount int64) *StakerTest {
	require.NoError(ts.t, ts.Staker.Bond(pos.BondID{Source: source, Validator: validator}, big.NewInt(amount)))
	return ts
}

func (ts *StakerTest) Advance(n int) *StakerTest {
	for range n {
		_, err := ts.AdvanceEpoch()
		require.NoError(ts.t, err)
		ts.AssertInvariants()
	}
	return ts
}

func (ts *StakerTest) Epoch() pos.Epoch {
	epoch, err := ts.CurrentEpoch()
	require.NoError(ts.t, err)
	return epoch
}

func (ts *StakerTest) Members(set pos.ValidatorState, epoch pos.Epoch) []pos.Address {
	members, err := ts.validationService.Members(set, epoch)
	require.NoError(ts.t, err)
	out := make([]pos.Address, 0, len(members))
	for _, m := range members {
		out = append(out, m.Address)
	}
	return out
}

func (ts *StakerTest) AssertState(addr pos.Address, epoch pos.Epoch, want pos.ValidatorState) *StakerTest {
	got, found, err := ts.ValidatorState(addr, epoch)
	require.NoError(ts.t, err)
	assert.True(ts.t, found, "no state for %s at epoch %d", addr, epoch)
	assert.Equal(ts.t, want, got, "state of %s at epoch %d", addr, epoch)
	return ts
}

func (ts *StakerTest) AssertStake(addr pos.Address, epoch pos.Epoch, want int64) *StakerTest {
	stake, err := ts.ValidatorStake(addr, epoch)
	require.NoError(ts.t, err)
	assert.Equal(ts.t, big.NewInt(want).String(), stake.String(), "stake of %s at epoch %d", addr, epoch)
	return ts
}

func (ts *StakerTest) AssertBalance(addr pos.Address, want int64) *StakerTest {
	bal, err := ts.Balance(addr)
	require.NoError(ts.t, err)
	assert.Equal(ts.t, big.NewInt(want).String(), bal.String(), "balance of %s", addr)
	return ts
}

// AssertInvariants checks the sets from the current epoch through the pipeline epoch.
func (ts *StakerTest) AssertInvariants() *StakerTest {
	current := ts.Epoch()
	validators, err := ts.Validators()
	require.NoError(ts.t, err)

	for _, epoch := range current.Range(ts.params.PipelineLen + 1) {
		consensus, err := ts.ConsensusValidators(epoch)
		require.NoError(ts.t, err)
		belowCapacity, err := ts.BelowCapacityValidators(epoch)
		require.NoError(ts.t, err)
		belowThreshold, err := ts.BelowThresholdValidators(epoch)
		require.NoError(ts.t, err)

		assert.LessOrEqual(ts.t, uint64(len(consensus)), ts.params.MaxValidatorSlots, "consensus overflow at epoch %d", epoch)
		if len(consensus) > 0 && len(belowCapacity) > 0 {
			minConsensus := consensus[0].BondedStake
			maxBelowCapacity := belowCapacity[len(belowCapacity)-1].BondedStake
			assert.True(ts.t, minConsensus.Cmp(maxBelowCapacity) >= 0,
				"min consensus %s < max below capacity %s at epoch %d", minConsensus, maxBelowCapacity, epoch)
		}
		for _, m := range belowThreshold {
			assert.True(ts.t, m.BondedStake.Cmp(ts.params.ValidatorStakeThreshold) < 0, "%s above threshold at epoch %d", m.Address, epoch)
		}

		placed := make(map[pos.Address]pos.ValidatorState)
		for set, members := range map[pos.ValidatorState][]pos.WeightedValidator{
			pos.Consensus:      consensus,
			pos.BelowCapacity:  belowCapacity,
			pos.BelowThreshold: belowThreshold,
		} {
			for _, m := range members {
				_, dup := placed[m.Address]
				assert.False(ts.t, dup, "%s in two sets at epoch %d", m.Address, epoch)
				placed[m.Address] = set

				stake, err := ts.ValidatorStake(m.Address, epoch)
				require.NoError(ts.t, err)
				assert.Equal(ts.t, stake.String(), m.BondedStake.String(), "set stake of %s at epoch %d", m.Address, epoch)
			}
		}
		for _, v := range validators {
			state, found, err := ts.ValidatorState(v, epoch)
			require.NoError(ts.t, err)
			set, inSet := placed[v]
			if !found {
				assert.False(ts.t, inSet, "%s placed before registration at epoch %d", v, epoch)
				continue
			}
			if state.InSet() {
				assert.True(ts.t, inSet, "%s is %s but in no set at epoch %d", v, state, epoch)
				assert.Equal(ts.t, state, set, "%s state at epoch %d", v, epoch)
			} else {
				assert.False(ts.t, inSet, "%s is %s but in a set at epoch %d", v, state, epoch)
			}
		}
	}
	return ts
}
