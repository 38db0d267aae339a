// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package redelegation keeps the provenance of stake moved between validators,
// so that slashes of the source validator still reach it at the destination.
package redelegation

import (
	"math/big"

	"github.com/vechain/posledger/pos"
)

// Bonds maps source validators to their bond amounts by source bond start epoch.
type Bonds map[pos.Address]pos.EpochAmounts

// Sources returns the source validators in address order.
func (b Bonds) Sources() []pos.Address {
	srcs := make([]pos.Address, 0, len(b))
	for src := range b {
		srcs = append(srcs, src)
	}
	pos.SortAddresses(srcs)
	return srcs
}

// Sum returns the total amount.
func (b Bonds) Sum() *big.Int {
	sum := new(big.Int)
	for _, amounts := range b {
		sum.Add(sum, amounts.Sum())
	}
	return sum
}

// Add adds amount for src at srcStart.
func (b Bonds) Add(src pos.Address, srcStart pos.Epoch, amount *big.Int) {
	if b[src] == nil {
		b[src] = make(pos.EpochAmounts)
	}
	b[src].Add(srcStart, amount)
}

// Clone returns a deep copy.
func (b Bonds) Clone() Bonds {
	out := make(Bonds, len(b))
	for src, amounts := range b {
		out[src] = amounts.Clone()
	}
	return out
}

// BondsByStart maps destination bond start epochs to the redelegated bonds they hold.
type BondsByStart map[pos.Epoch]Bonds

// Epochs returns the start epochs in ascending order.
func (m BondsByStart) Epochs() []pos.Epoch {
	keys := make(pos.EpochAmounts, len(m))
	for e := range m {
		keys[e] = nil
	}
	return keys.Epochs()
}

// Add adds amount at destination start epoch start for src at srcStart.
func (m BondsByStart) Add(start pos.Epoch, src pos.Address, srcStart pos.Epoch, amount *big.Int) {
	if m[start] == nil {
		m[start] = make(Bonds)
	}
	m[start].Add(src, srcStart, amount)
}

// Clone returns a deep copy.
func (m BondsByStart) Clone() BondsByStart {
	out := make(BondsByStart, len(m))
	for e, b := range m {
		out[e] = b.Clone()
	}
	return out
}

// Outgoing is a redelegation that left a validator.
type Outgoing struct {
	Dest       pos.Address
	SrcStart   pos.Epoch // start of the bond at the source validator
	RedelStart pos.Epoch // epoch the redelegation was made
	Amount     *big.Int
}
