// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package epoched provides storage for values that take effect at a delayed epoch.
//
// Each collection declares an Offset policy. A write made during epoch e lands at
// e+offset, and reads at any epoch fall back to the nearest earlier entry, so
// only epochs where a value changed need to be stored. Entries older than the
// retention window are pruned on epoch advance.
package epoched

import (
	"github.com/vechain/posledger/pos"
	"github.com/vechain/posledger/store"
)

// Offset is the activation delay policy of a collection.
type Offset uint8

const (
	OffsetZero Offset = iota
	OffsetPipelineLen
	OffsetUnbondingLen
)

// Value returns the offset in epochs.
func (o Offset) Value(p *pos.Params) uint64 {
	switch o {
	case OffsetZero:
		return 0
	case OffsetPipelineLen:
		return p.PipelineLen
	case OffsetUnbondingLen:
		return p.UnbondingLen
	default:
		panic("unknown offset")
	}
}

// KeepAll disables pruning.
const KeepAll = ^uint64(0)

// Epoched stores per sub-key values keyed by the epoch from which they apply.
// Sub-keys of one collection must have a fixed length.
type Epoched[V any] struct {
	data       *store.Mapping[V]
	params     *pos.Params
	offset     Offset
	pastEpochs uint64
}

func New[V any](
	sctx *store.Context,
	prefix string,
	codec store.Codec[V],
	params *pos.Params,
	offset Offset,
	pastEpochs uint64,
) *Epoched[V] {
	return &Epoched[V]{
		data:       store.NewMapping[V](sctx, prefix, codec),
		params:     params,
		offset:     offset,
		pastEpochs: pastEpochs,
	}
}

// Get returns the value effective at epoch: the entry at epoch, or the nearest earlier one.
func (e *Epoched[V]) Get(sub []byte, epoch pos.Epoch) (value V, found bool, err error) {
	err = e.data.IterateRange(
		store.Key(sub, pos.Epoch(0).Bytes()),
		store.Key(sub, epoch.Next().Bytes()),
		true,
		func(_ []byte, v V) (bool, error) {
			value, found = v, true
			return false, nil
		})
	return
}

// GetExact returns the entry written exactly at epoch, without fallback.
func (e *Epoched[V]) GetExact(sub []byte, epoch pos.Epoch) (V, bool, error) {
	return e.data.Get(store.Key(sub, epoch.Bytes()))
}

// Set writes the value at current+offset.
func (e *Epoched[V]) Set(sub []byte, value V, current pos.Epoch) error {
	return e.SetAt(sub, value, current.Add(e.offset.Value(e.params)))
}

// SetAt writes the value at the given epoch.
func (e *Epoched[V]) SetAt(sub []byte, value V, epoch pos.Epoch) error {
	return e.data.Set(store.Key(sub, epoch.Bytes()), value)
}

// Entries visits the explicit entries of sub in epoch order.
func (e *Epoched[V]) Entries(sub []byte, fn func(epoch pos.Epoch, value V) (bool, error)) error {
	return e.data.Iterate(sub, false, func(key []byte, v V) (bool, error) {
		return fn(pos.EpochFromBytes(key[len(sub):]), v)
	})
}

// Prune drops entries older than current-pastEpochs. The newest dropped
// entry is kept when no entry exists at the boundary, so that reads at
// the oldest retained epoch still resolve.
func (e *Epoched[V]) Prune(sub []byte, current pos.Epoch) error {
	if e.pastEpochs == KeepAll || uint64(current) <= e.pastEpochs {
		return nil
	}
	oldest := current.SubSat(e.pastEpochs)

	var stale []pos.Epoch
	if err := e.data.IterateRange(
		store.Key(sub, pos.Epoch(0).Bytes()),
		store.Key(sub, oldest.Next().Bytes()),
		true,
		func(key []byte, _ V) (bool, error) {
			stale = append(stale, pos.EpochFromBytes(key[len(sub):]))
			return true, nil
		}); err != nil {
		return err
	}
	// stale is descending, the first one is the base for reads at oldest
	for i := 1; i < len(stale); i++ {
		e.data.Delete(store.Key(sub, stale[i].Bytes()))
	}
	return nil
}
