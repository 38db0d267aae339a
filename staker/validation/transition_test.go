// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package validation

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/vechain/posledger/pos"
)

var (
	addrA = pos.BytesToAddress([]byte("a"))
	addrB = pos.BytesToAddress([]byte("b"))
	addrC = pos.BytesToAddress([]byte("c"))
)

func weighted(addr pos.Address, stake int64) *pos.WeightedValidator {
	return &pos.WeightedValidator{Address: addr, BondedStake: big.NewInt(stake)}
}

func opsString(ops []SetOp) []string {
	out := make([]string, 0, len(ops))
	for _, op := range ops {
		out = append(out, op.String())
	}
	return out
}

func TestTransition(t *testing.T) {
	threshold := big.NewInt(10)
	full := View{Threshold: threshold, MaxSlots: 1, ConsensusCount: 1, MinConsensus: weighted(addrB, 50)}

	tests := []struct {
		name  string
		state pos.ValidatorState
		stake int64
		delta int64
		view  View
		want  []SetOp
	}{
		{
			name:  "zero delta",
			state: pos.Consensus,
			stake: 50,
			view:  full,
		},
		{
			name:  "stays below threshold",
			state: pos.BelowThreshold,
			stake: 2,
			delta: 3,
			view:  full,
		},
		{
			name:  "consensus increase",
			state: pos.Consensus,
			stake: 50,
			delta: 5,
			view:  View{Threshold: threshold, MaxSlots: 1, ConsensusCount: 1, MaxBelowCapacity: weighted(addrB, 40)},
			want: []SetOp{
				remove(pos.Consensus, addrA, big.NewInt(50)),
				insert(pos.Consensus, addrA, big.NewInt(55)),
			},
		},
		{
			name:  "consensus decrease swaps with below capacity",
			state: pos.Consensus,
			stake: 50,
			delta: -20,
			view:  View{Threshold: threshold, MaxSlots: 1, ConsensusCount: 1, MaxBelowCapacity: weighted(addrB, 40)},
			want: []SetOp{
				remove(pos.Consensus, addrA, big.NewInt(50)),
				remove(pos.BelowCapacity, addrB, big.NewInt(40)),
				insert(pos.Consensus, addrB, big.NewInt(40)),
				insert(pos.BelowCapacity, addrA, big.NewInt(30)),
			},
		},
		{
			name:  "consensus decrease to a tie keeps its slot",
			state: pos.Consensus,
			stake: 50,
			delta: -10,
			view:  View{Threshold: threshold, MaxSlots: 1, ConsensusCount: 1, MaxBelowCapacity: weighted(addrB, 40)},
			want: []SetOp{
				remove(pos.Consensus, addrA, big.NewInt(50)),
				insert(pos.Consensus, addrA, big.NewInt(40)),
			},
		},
		{
			name:  "consensus drops below threshold and is backfilled",
			state: pos.Consensus,
			stake: 50,
			delta: -45,
			view:  View{Threshold: threshold, MaxSlots: 1, ConsensusCount: 1, MaxBelowCapacity: weighted(addrB, 40)},
			want: []SetOp{
				remove(pos.Consensus, addrA, big.NewInt(50)),
				insert(pos.BelowThreshold, addrA, big.NewInt(5)),
				remove(pos.BelowCapacity, addrB, big.NewInt(40)),
				insert(pos.Consensus, addrB, big.NewInt(40)),
			},
		},
		{
			name:  "below capacity increase swaps with consensus",
			state: pos.BelowCapacity,
			stake: 40,
			delta: 20,
			view:  full,
			want: []SetOp{
				remove(pos.BelowCapacity, addrA, big.NewInt(40)),
				remove(pos.Consensus, addrB, big.NewInt(50)),
				insert(pos.BelowCapacity, addrB, big.NewInt(50)),
				insert(pos.Consensus, addrA, big.NewInt(60)),
			},
		},
		{
			name:  "below capacity decrease",
			state: pos.BelowCapacity,
			stake: 40,
			delta: -5,
			view:  full,
			want: []SetOp{
				remove(pos.BelowCapacity, addrA, big.NewInt(40)),
				insert(pos.BelowCapacity, addrA, big.NewInt(35)),
			},
		},
		{
			name:  "below threshold enters consensus with free slots",
			state: pos.BelowThreshold,
			stake: 5,
			delta: 10,
			view:  View{Threshold: threshold, MaxSlots: 2, ConsensusCount: 1, MinConsensus: weighted(addrB, 50)},
			want: []SetOp{
				remove(pos.BelowThreshold, addrA, big.NewInt(5)),
				insert(pos.Consensus, addrA, big.NewInt(15)),
			},
		},
		{
			name:  "below threshold enters below capacity",
			state: pos.BelowThreshold,
			stake: 5,
			delta: 10,
			view:  full,
			want: []SetOp{
				remove(pos.BelowThreshold, addrA, big.NewInt(5)),
				insert(pos.BelowCapacity, addrA, big.NewInt(15)),
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ops := Transition(addrA, tt.state, big.NewInt(tt.stake), big.NewInt(tt.delta), tt.view)
			assert.Equal(t, opsString(tt.want), opsString(ops))
		})
	}
}

func TestTransitionPanicsOutsideSets(t *testing.T) {
	view := View{Threshold: big.NewInt(1), MaxSlots: 1}
	assert.Panics(t, func() {
		Transition(addrA, pos.Jailed, big.NewInt(10), big.NewInt(1), view)
	})
}

func TestPlacement(t *testing.T) {
	threshold := big.NewInt(10)

	ops := Placement(addrA, big.NewInt(5), View{Threshold: threshold, MaxSlots: 1})
	assert.Equal(t, []string{"insert below-threshold " + addrA.String() + "@5"}, opsString(ops))

	ops = Placement(addrA, big.NewInt(20), View{Threshold: threshold, MaxSlots: 1})
	assert.Equal(t, opsString([]SetOp{insert(pos.Consensus, addrA, big.NewInt(20))}), opsString(ops))

	full := View{Threshold: threshold, MaxSlots: 1, ConsensusCount: 1, MinConsensus: weighted(addrB, 20)}
	ops = Placement(addrA, big.NewInt(20), full)
	assert.Equal(t, opsString([]SetOp{insert(pos.BelowCapacity, addrA, big.NewInt(20))}), opsString(ops))

	ops = Placement(addrA, big.NewInt(21), full)
	assert.Equal(t, opsString([]SetOp{
		remove(pos.Consensus, addrB, big.NewInt(20)),
		insert(pos.BelowCapacity, addrB, big.NewInt(20)),
		insert(pos.Consensus, addrA, big.NewInt(21)),
	}), opsString(ops))
}

func TestVacate(t *testing.T) {
	view := View{Threshold: big.NewInt(1), MaxSlots: 1, ConsensusCount: 1, MaxBelowCapacity: weighted(addrC, 7)}

	assert.Nil(t, Vacate(addrA, pos.Jailed, big.NewInt(10), view, true))

	ops := Vacate(addrA, pos.Consensus, big.NewInt(10), view, false)
	assert.Equal(t, opsString([]SetOp{remove(pos.Consensus, addrA, big.NewInt(10))}), opsString(ops))

	ops = Vacate(addrA, pos.Consensus, big.NewInt(10), view, true)
	assert.Equal(t, opsString([]SetOp{
		remove(pos.Consensus, addrA, big.NewInt(10)),
		remove(pos.BelowCapacity, addrC, big.NewInt(7)),
		insert(pos.Consensus, addrC, big.NewInt(7)),
	}), opsString(ops))

	ops = Vacate(addrA, pos.BelowCapacity, big.NewInt(10), view, true)
	assert.Equal(t, opsString([]SetOp{remove(pos.BelowCapacity, addrA, big.NewInt(10))}), opsString(ops))
}
