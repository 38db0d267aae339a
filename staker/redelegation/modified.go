// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package redelegation

import (
	"math/big"

	"github.com/vechain/posledger/pos"
	"github.com/vechain/posledger/staker/bonds"
)

// Modified describes how a partial unbond of a bond entry at Epoch cuts into the
// redelegated bonds of that entry.
type Modified struct {
	Epoch *pos.Epoch
	// ValidatorsToRemove lists sources whose redelegated bonds are unbonded, in address order.
	ValidatorsToRemove []pos.Address
	// ValidatorToModify is the source only partly unbonded.
	ValidatorToModify *pos.Address
	// EpochsToRemove are the source start epochs of ValidatorToModify that are touched.
	EpochsToRemove []pos.Epoch
	// EpochToModify is the source start epoch partly unbonded, keeping NewAmount.
	EpochToModify *pos.Epoch
	NewAmount     *big.Int
}

func (m *Modified) removesValidator(v pos.Address) bool {
	for _, r := range m.ValidatorsToRemove {
		if r == v {
			return true
		}
	}
	return false
}

func (m *Modified) isValidatorToModify(v pos.Address) bool {
	return m.ValidatorToModify != nil && *m.ValidatorToModify == v
}

func (m *Modified) isEpochToModify(e pos.Epoch) bool {
	return m.EpochToModify != nil && *m.EpochToModify == e
}

// ComputeModified computes which redelegated bonds of the entry at bondEpoch
// are unbonded when amount is taken out of it.
func ComputeModified(redelegated BondsByStart, bondEpoch pos.Epoch, amount *big.Int) *Modified {
	modified := &Modified{Epoch: &bondEpoch}
	rbonds := redelegated[bondEpoch]
	if rbonds.Sum().Cmp(amount) <= 0 {
		return modified
	}

	remaining := new(big.Int).Set(amount)
	for _, src := range rbonds.Sources() {
		if remaining.Sign() == 0 {
			break
		}
		srcBonds := rbonds[src]
		modified.ValidatorsToRemove = append(modified.ValidatorsToRemove, src)

		total := srcBonds.Sum()
		if total.Cmp(remaining) <= 0 {
			remaining.Sub(remaining, total)
			continue
		}

		removal := bonds.FindBondsToRemove(srcBonds, remaining)
		remaining.SetInt64(0)
		modified.ValidatorToModify = &src
		modified.EpochsToRemove = removal.Touched()
		if e := removal.NewEntry; e != nil {
			start := e.Start
			modified.EpochToModify = &start
			modified.NewAmount = e.Amount
		}
	}
	return modified
}

// ComputeNewUnbonds returns the redelegated bonds unbonded by removing the
// entries at removed and the partial modification, by destination start epoch.
func ComputeNewUnbonds(redelegated BondsByStart, removed []pos.Epoch, modified *Modified) BondsByStart {
	epochs := make(pos.EpochAmounts)
	for _, e := range removed {
		if _, ok := redelegated[e]; ok {
			epochs[e] = nil
		}
	}
	if modified != nil && modified.Epoch != nil {
		if _, ok := redelegated[*modified.Epoch]; ok {
			epochs[*modified.Epoch] = nil
		}
	}

	out := make(BondsByStart)
	for _, start := range epochs.Epochs() {
		rbonds := redelegated[start]
		unbonded := make(Bonds)
		out[start] = unbonded

		partial := modified != nil && modified.Epoch != nil && *modified.Epoch == start &&
			len(modified.ValidatorsToRemove) > 0
		if !partial {
			for src, amounts := range rbonds {
				unbonded[src] = amounts.Clone()
			}
			continue
		}

		for _, src := range modified.ValidatorsToRemove {
			if !modified.isValidatorToModify(src) {
				if amounts, ok := rbonds[src]; ok {
					unbonded[src] = amounts.Clone()
				} else {
					unbonded[src] = make(pos.EpochAmounts)
				}
				continue
			}
			unbonded[src] = make(pos.EpochAmounts)
			for _, srcStart := range modified.EpochsToRemove {
				cur := rbonds[src].Get(srcStart)
				if modified.isEpochToModify(srcStart) {
					unbonded[src][srcStart] = new(big.Int).Sub(cur, modified.NewAmount)
				} else {
					unbonded[src][srcStart] = new(big.Int).Set(cur)
				}
			}
		}
	}
	return out
}

// ApplyRemoval updates the redelegated bonds of a delegator for bond entries
// removed entirely and the partial modification.
func ApplyRemoval(redelegated BondsByStart, removed []pos.Epoch, modified *Modified) {
	for _, e := range removed {
		delete(redelegated, e)
	}
	if modified == nil || modified.Epoch == nil {
		return
	}
	epoch := *modified.Epoch
	if len(modified.ValidatorsToRemove) == 0 {
		delete(redelegated, epoch)
		return
	}
	rbonds := redelegated[epoch]
	if rbonds == nil {
		return
	}
	for _, src := range modified.ValidatorsToRemove {
		if !modified.isValidatorToModify(src) {
			delete(rbonds, src)
		}
	}
	if modified.ValidatorToModify == nil {
		return
	}
	srcBonds := rbonds[*modified.ValidatorToModify]
	for _, e := range modified.EpochsToRemove {
		if !modified.isEpochToModify(e) {
			delete(srcBonds, e)
		}
	}
	if modified.EpochToModify != nil {
		if srcBonds == nil {
			srcBonds = make(pos.EpochAmounts)
			rbonds[*modified.ValidatorToModify] = srcBonds
		}
		srcBonds[*modified.EpochToModify] = new(big.Int).Set(modified.NewAmount)
	}
}
