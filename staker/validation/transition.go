// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package validation

import (
	"fmt"
	"math/big"

	"github.com/vechain/posledger/pos"
)

// OpKind is a mutation of one of the stake-ordered sets.
type OpKind uint8

const (
	OpRemove OpKind = iota
	OpInsert
)

// SetOp moves one validator in or out of a set. Inserting a validator also sets its state.
type SetOp struct {
	Kind      OpKind
	Set       pos.ValidatorState
	Validator pos.Address
	Stake     *big.Int
}

func (op SetOp) String() string {
	kind := "remove"
	if op.Kind == OpInsert {
		kind = "insert"
	}
	return fmt.Sprintf("%s %s %s@%s", kind, op.Set, op.Validator, op.Stake)
}

// View is the part of the sets at one epoch that a transition depends on.
type View struct {
	Threshold      *big.Int
	MaxSlots       uint64
	ConsensusCount uint64
	// MinConsensus is the consensus validator demoted first: last in the lowest stake bucket.
	MinConsensus *pos.WeightedValidator
	// MaxBelowCapacity is the validator promoted first: first in the highest stake bucket.
	MaxBelowCapacity *pos.WeightedValidator
}

func remove(set pos.ValidatorState, v pos.Address, stake *big.Int) SetOp {
	return SetOp{Kind: OpRemove, Set: set, Validator: v, Stake: stake}
}

func insert(set pos.ValidatorState, v pos.Address, stake *big.Int) SetOp {
	return SetOp{Kind: OpInsert, Set: set, Validator: v, Stake: stake}
}

// Transition computes the set operations for a stake change of validator v,
// currently in state with the given stake. It returns nil when the change
// leaves the sets untouched. The validator must be in one of the sets.
func Transition(v pos.Address, state pos.ValidatorState, stake, delta *big.Int, view View) []SetOp {
	if delta.Sign() == 0 {
		return nil
	}
	post := new(big.Int).Add(stake, delta)
	if stake.Cmp(view.Threshold) < 0 && post.Cmp(view.Threshold) < 0 {
		return nil
	}

	switch state {
	case pos.Consensus:
		ops := []SetOp{remove(pos.Consensus, v, stake)}
		if post.Cmp(view.Threshold) < 0 {
			ops = append(ops, insert(pos.BelowThreshold, v, post))
			if w := view.MaxBelowCapacity; w != nil {
				ops = append(ops,
					remove(pos.BelowCapacity, w.Address, w.BondedStake),
					insert(pos.Consensus, w.Address, w.BondedStake))
			}
			return ops
		}
		if w := view.MaxBelowCapacity; delta.Sign() < 0 && w != nil && w.BondedStake.Cmp(post) > 0 {
			return append(ops,
				remove(pos.BelowCapacity, w.Address, w.BondedStake),
				insert(pos.Consensus, w.Address, w.BondedStake),
				insert(pos.BelowCapacity, v, post))
		}
		return append(ops, insert(pos.Consensus, v, post))

	case pos.BelowCapacity:
		ops := []SetOp{remove(pos.BelowCapacity, v, stake)}
		if post.Cmp(view.Threshold) < 0 {
			return append(ops, insert(pos.BelowThreshold, v, post))
		}
		if w := view.MinConsensus; delta.Sign() >= 0 && w != nil && post.Cmp(w.BondedStake) > 0 {
			return append(ops,
				remove(pos.Consensus, w.Address, w.BondedStake),
				insert(pos.BelowCapacity, w.Address, w.BondedStake),
				insert(pos.Consensus, v, post))
		}
		return append(ops, insert(pos.BelowCapacity, v, post))

	case pos.BelowThreshold:
		ops := []SetOp{remove(pos.BelowThreshold, v, stake)}
		return append(ops, Placement(v, post, view)...)

	default:
		panic(fmt.Sprintf("validator %s in state %s has no set to update", v, state))
	}
}

// Placement computes the operations that insert validator v, absent from
// every set, with the given stake.
func Placement(v pos.Address, stake *big.Int, view View) []SetOp {
	if stake.Cmp(view.Threshold) < 0 {
		return []SetOp{insert(pos.BelowThreshold, v, stake)}
	}
	if view.ConsensusCount < view.MaxSlots {
		return []SetOp{insert(pos.Consensus, v, stake)}
	}
	if w := view.MinConsensus; w != nil && stake.Cmp(w.BondedStake) > 0 {
		return []SetOp{
			remove(pos.Consensus, w.Address, w.BondedStake),
			insert(pos.BelowCapacity, w.Address, w.BondedStake),
			insert(pos.Consensus, v, stake),
		}
	}
	return []SetOp{insert(pos.BelowCapacity, v, stake)}
}

// Vacate computes the operations that take validator v out of its set.
// A vacated consensus slot is backfilled from below capacity when backfill is set.
func Vacate(v pos.Address, state pos.ValidatorState, stake *big.Int, view View, backfill bool) []SetOp {
	if !state.InSet() {
		return nil
	}
	ops := []SetOp{remove(state, v, stake)}
	if state == pos.Consensus && backfill {
		if w := view.MaxBelowCapacity; w != nil {
			ops = append(ops,
				remove(pos.BelowCapacity, w.Address, w.BondedStake),
				insert(pos.Consensus, w.Address, w.BondedStake))
		}
	}
	return ops
}
