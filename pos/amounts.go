// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package pos

import (
	"math/big"
	"sort"
)

// EpochAmounts maps epochs to amounts, e.g. bond deltas by start epoch.
type EpochAmounts map[Epoch]*big.Int

// Epochs returns the epochs in ascending order.
func (m EpochAmounts) Epochs() []Epoch {
	epochs := make([]Epoch, 0, len(m))
	for e := range m {
		epochs = append(epochs, e)
	}
	sort.Slice(epochs, func(i, j int) bool { return epochs[i] < epochs[j] })
	return epochs
}

// Sum returns the sum of all amounts.
func (m EpochAmounts) Sum() *big.Int {
	sum := new(big.Int)
	for _, v := range m {
		sum.Add(sum, v)
	}
	return sum
}

// Add adds amount at epoch.
func (m EpochAmounts) Add(epoch Epoch, amount *big.Int) {
	if cur, ok := m[epoch]; ok {
		m[epoch] = new(big.Int).Add(cur, amount)
		return
	}
	m[epoch] = new(big.Int).Set(amount)
}

// Get returns the amount at epoch, zero if absent.
func (m EpochAmounts) Get(epoch Epoch) *big.Int {
	if v, ok := m[epoch]; ok {
		return v
	}
	return new(big.Int)
}

// Filter returns the entries whose epoch satisfies keep.
func (m EpochAmounts) Filter(keep func(Epoch) bool) EpochAmounts {
	out := make(EpochAmounts, len(m))
	for e, v := range m {
		if keep(e) {
			out[e] = v
		}
	}
	return out
}

// Clone returns a deep copy.
func (m EpochAmounts) Clone() EpochAmounts {
	out := make(EpochAmounts, len(m))
	for e, v := range m {
		out[e] = new(big.Int).Set(v)
	}
	return out
}

// SortAddresses sorts addresses in place, ascending.
func SortAddresses(addrs []Address) {
	sort.Slice(addrs, func(i, j int) bool { return addrs[i].Compare(addrs[j]) < 0 })
}
