// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package bonds

import (
	"math/big"

	"github.com/vechain/posledger/pos"
)

// Removal is the result of taking an amount out of a set of bond entries.
type Removal struct {
	// Epochs are the start epochs of entries removed entirely.
	Epochs []pos.Epoch
	// NewEntry, when set, is the entry partially removed and the amount it keeps.
	NewEntry *Entry
}

// Entry is a bond amount with its start epoch.
type Entry struct {
	Start  pos.Epoch
	Amount *big.Int
}

// Contains reports whether epoch was removed entirely.
func (r *Removal) Contains(epoch pos.Epoch) bool {
	for _, e := range r.Epochs {
		if e == epoch {
			return true
		}
	}
	return false
}

// Touched returns the removed epochs plus the partially removed one, ascending.
func (r *Removal) Touched() []pos.Epoch {
	touched := make(pos.EpochAmounts, len(r.Epochs)+1)
	for _, e := range r.Epochs {
		touched[e] = nil
	}
	if r.NewEntry != nil {
		touched[r.NewEntry.Start] = nil
	}
	return touched.Epochs()
}

// FindBondsToRemove takes amount out of bonds, newest entries first. The amount
// must not exceed the sum of the entries.
func FindBondsToRemove(bonds pos.EpochAmounts, amount *big.Int) *Removal {
	removal := &Removal{}
	remaining := new(big.Int).Set(amount)
	if remaining.Sign() <= 0 {
		return removal
	}

	epochs := bonds.Epochs()
	for i := len(epochs) - 1; i >= 0; i-- {
		start := epochs[i]
		bond := bonds[start]
		if bond.Cmp(remaining) <= 0 {
			removal.Epochs = append(removal.Epochs, start)
			remaining.Sub(remaining, bond)
		} else {
			removal.NewEntry = &Entry{Start: start, Amount: new(big.Int).Sub(bond, remaining)}
			remaining.SetInt64(0)
		}
		if remaining.Sign() == 0 {
			break
		}
	}
	return removal
}
