// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package validation

import (
	"math/big"

	"github.com/vechain/posledger/pos"
	"github.com/vechain/posledger/store"
)

// stakeSet is a set of validators ordered by stake, then by insertion position.
// Keys are epoch|stake|position.
type stakeSet struct {
	entries *store.Mapping[pos.Address]
}

func newStakeSet(sctx *store.Context, prefix string) *stakeSet {
	return &stakeSet{entries: store.NewMapping[pos.Address](sctx, prefix, store.RLP[pos.Address]())}
}

func bucketKey(epoch pos.Epoch, stake *big.Int) []byte {
	return store.Key(epoch.Bytes(), store.AmountKey(stake))
}

func decodeEntry(key []byte) (stake *big.Int, position uint64) {
	return store.AmountFromKey(key[8:]), store.Uint64FromKey(key[8+store.AmountKeyLength:])
}

// insert appends v at the back of its stake bucket and returns the position used.
func (s *stakeSet) insert(epoch pos.Epoch, stake *big.Int, v pos.Address) (uint64, error) {
	bucket := bucketKey(epoch, stake)
	next := uint64(0)
	if err := s.entries.Iterate(bucket, true, func(key []byte, _ pos.Address) (bool, error) {
		_, last := decodeEntry(key)
		next = last + 1
		return false, nil
	}); err != nil {
		return 0, err
	}
	return next, s.entries.Set(store.Key(bucket, store.Uint64Key(next)), v)
}

func (s *stakeSet) remove(epoch pos.Epoch, stake *big.Int, position uint64) {
	s.entries.Delete(store.Key(bucketKey(epoch, stake), store.Uint64Key(position)))
}

// edge returns the last validator of the lowest bucket, or the first
// validator of the highest bucket when highest is set.
func (s *stakeSet) edge(epoch pos.Epoch, highest bool) (*pos.WeightedValidator, error) {
	var stake *big.Int
	if err := s.entries.Iterate(epoch.Bytes(), highest, func(key []byte, _ pos.Address) (bool, error) {
		stake, _ = decodeEntry(key)
		return false, nil
	}); err != nil || stake == nil {
		return nil, err
	}

	var found *pos.WeightedValidator
	err := s.entries.Iterate(bucketKey(epoch, stake), !highest, func(_ []byte, v pos.Address) (bool, error) {
		found = &pos.WeightedValidator{Address: v, BondedStake: stake}
		return false, nil
	})
	return found, err
}

func (s *stakeSet) min(epoch pos.Epoch) (*pos.WeightedValidator, error) {
	return s.edge(epoch, false)
}

func (s *stakeSet) max(epoch pos.Epoch) (*pos.WeightedValidator, error) {
	return s.edge(epoch, true)
}

// members returns the validators at epoch in ascending stake order.
func (s *stakeSet) members(epoch pos.Epoch) ([]pos.WeightedValidator, error) {
	var out []pos.WeightedValidator
	err := s.entries.Iterate(epoch.Bytes(), false, func(key []byte, v pos.Address) (bool, error) {
		stake, _ := decodeEntry(key)
		out = append(out, pos.WeightedValidator{Address: v, BondedStake: stake})
		return true, nil
	})
	return out, err
}

func (s *stakeSet) count(epoch pos.Epoch) (uint64, error) {
	n := uint64(0)
	err := s.entries.Iterate(epoch.Bytes(), false, func([]byte, pos.Address) (bool, error) {
		n++
		return true, nil
	})
	return n, err
}

func (s *stakeSet) copyEpoch(from, to pos.Epoch) error {
	var keys [][]byte
	var vals []pos.Address
	if err := s.entries.Iterate(from.Bytes(), false, func(key []byte, v pos.Address) (bool, error) {
		keys = append(keys, key[8:])
		vals = append(vals, v)
		return true, nil
	}); err != nil {
		return err
	}
	if err := s.entries.DeletePrefix(to.Bytes()); err != nil {
		return err
	}
	for i, k := range keys {
		if err := s.entries.Set(store.Key(to.Bytes(), k), vals[i]); err != nil {
			return err
		}
	}
	return nil
}

func (s *stakeSet) clearEpoch(epoch pos.Epoch) error {
	return s.entries.DeletePrefix(epoch.Bytes())
}
