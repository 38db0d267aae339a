// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package epoched

import (
	"math/big"

	"github.com/vechain/posledger/pos"
	"github.com/vechain/posledger/store"
)

// Delta stores signed amounts per epoch; the value at an epoch is the sum of
// all deltas at or before it. Zero entries are removed.
type Delta struct {
	data   *store.Mapping[*big.Int]
	params *pos.Params
	offset Offset
}

func NewDelta(sctx *store.Context, prefix string, params *pos.Params, offset Offset) *Delta {
	return &Delta{
		data:   store.NewMapping[*big.Int](sctx, prefix, store.BigInt),
		params: params,
		offset: offset,
	}
}

// Offset returns the activation offset in epochs.
func (d *Delta) Offset() uint64 {
	return d.offset.Value(d.params)
}

// Get returns the delta written at exactly epoch, zero if none.
func (d *Delta) Get(sub []byte, epoch pos.Epoch) (*big.Int, error) {
	v, ok, err := d.data.Get(store.Key(sub, epoch.Bytes()))
	if err != nil {
		return nil, err
	}
	if !ok {
		return new(big.Int), nil
	}
	return v, nil
}

// Set overwrites the delta at epoch; a zero amount removes the entry.
func (d *Delta) Set(sub []byte, epoch pos.Epoch, amount *big.Int) error {
	key := store.Key(sub, epoch.Bytes())
	if amount.Sign() == 0 {
		d.data.Delete(key)
		return nil
	}
	return d.data.Set(key, amount)
}

// Add adds change to the delta at epoch.
func (d *Delta) Add(sub []byte, epoch pos.Epoch, change *big.Int) error {
	cur, err := d.Get(sub, epoch)
	if err != nil {
		return err
	}
	return d.Set(sub, epoch, new(big.Int).Add(cur, change))
}

// AddAtOffset adds change at current+offset.
func (d *Delta) AddAtOffset(sub []byte, current pos.Epoch, change *big.Int) error {
	return d.Add(sub, current.Add(d.Offset()), change)
}

// Sum returns the sum of deltas at or before epoch.
func (d *Delta) Sum(sub []byte, epoch pos.Epoch) (*big.Int, error) {
	sum := new(big.Int)
	err := d.data.IterateRange(
		store.Key(sub, pos.Epoch(0).Bytes()),
		store.Key(sub, epoch.Next().Bytes()),
		false,
		func(_ []byte, v *big.Int) (bool, error) {
			sum.Add(sum, v)
			return true, nil
		})
	return sum, err
}

// SumAll returns the sum of every delta, including future ones.
func (d *Delta) SumAll(sub []byte) (*big.Int, error) {
	sum := new(big.Int)
	err := d.Entries(sub, func(_ pos.Epoch, v *big.Int) (bool, error) {
		sum.Add(sum, v)
		return true, nil
	})
	return sum, err
}

// Entries visits deltas of sub in epoch order.
func (d *Delta) Entries(sub []byte, fn func(epoch pos.Epoch, amount *big.Int) (bool, error)) error {
	return d.data.Iterate(sub, false, func(key []byte, v *big.Int) (bool, error) {
		return fn(pos.EpochFromBytes(key[len(sub):]), v)
	})
}

// Map returns the deltas of sub keyed by epoch.
func (d *Delta) Map(sub []byte) (map[pos.Epoch]*big.Int, error) {
	out := make(map[pos.Epoch]*big.Int)
	err := d.Entries(sub, func(e pos.Epoch, v *big.Int) (bool, error) {
		out[e] = v
		return true, nil
	})
	return out, err
}

// Keys returns the raw sub|epoch keys starting with sub.
func (d *Delta) Keys(sub []byte) ([][]byte, error) {
	return d.data.Keys(sub)
}
