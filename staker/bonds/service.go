// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package bonds

import (
	"math/big"

	"github.com/vechain/posledger/pos"
	"github.com/vechain/posledger/staker/epoched"
	"github.com/vechain/posledger/store"
)

// Unbond is a pending unbond of a bond id.
type Unbond struct {
	Start    pos.Epoch
	Withdraw pos.Epoch
	Amount   *big.Int
}

// Service stores bonds, unbonds and their per-validator totals.
type Service struct {
	bonds         *epoched.Delta           // bond id|start
	totalBonded   *epoched.Delta           // validator|start
	totalUnbonded *store.Mapping[*big.Int] // validator|unbond epoch|start
	unbonds       *store.Mapping[*big.Int] // source|validator|start|withdraw
}

func New(sctx *store.Context, params *pos.Params) *Service {
	return &Service{
		bonds:         epoched.NewDelta(sctx, "bonds", params, epoched.OffsetPipelineLen),
		totalBonded:   epoched.NewDelta(sctx, "total-bonded", params, epoched.OffsetPipelineLen),
		totalUnbonded: store.NewMapping[*big.Int](sctx, "total-unbonded", store.BigInt),
		unbonds:       store.NewMapping[*big.Int](sctx, "unbonds", store.BigInt),
	}
}

//
// Bonds
//

// Bonds returns the bond deltas of id by start epoch.
func (s *Service) Bonds(id pos.BondID) (pos.EpochAmounts, error) {
	return s.bonds.Map(id.Bytes())
}

// BondAmount returns the bonded amount of id effective at epoch.
func (s *Service) BondAmount(id pos.BondID, epoch pos.Epoch) (*big.Int, error) {
	return s.bonds.Sum(id.Bytes(), epoch)
}

// BondTotal returns the bonded amount of id including pending bonds.
func (s *Service) BondTotal(id pos.BondID) (*big.Int, error) {
	return s.bonds.SumAll(id.Bytes())
}

// AddBond adds amount to the bond of id starting at start, and to the validator total.
func (s *Service) AddBond(id pos.BondID, start pos.Epoch, amount *big.Int) error {
	if err := s.bonds.Add(id.Bytes(), start, amount); err != nil {
		return err
	}
	return s.totalBonded.Add(id.Validator.Bytes(), start, amount)
}

// ApplyRemoval removes the entries of a removal from the bonds of id.
// Validator totals are updated separately.
func (s *Service) ApplyRemoval(id pos.BondID, removal *Removal) error {
	for _, start := range removal.Epochs {
		if err := s.bonds.Set(id.Bytes(), start, new(big.Int)); err != nil {
			return err
		}
	}
	if e := removal.NewEntry; e != nil {
		return s.bonds.Set(id.Bytes(), e.Start, e.Amount)
	}
	return nil
}

// TotalBonded returns the bond deltas to validator by start epoch.
func (s *Service) TotalBonded(validator pos.Address) (pos.EpochAmounts, error) {
	return s.totalBonded.Map(validator.Bytes())
}

// SubTotalBonded moves amount of bonds to validator starting at start from
// bonded to unbonded as of unbondEpoch.
func (s *Service) SubTotalBonded(validator pos.Address, start, unbondEpoch pos.Epoch, amount *big.Int) error {
	if err := s.totalBonded.Add(validator.Bytes(), start, new(big.Int).Neg(amount)); err != nil {
		return err
	}
	key := store.Key(validator.Bytes(), unbondEpoch.Bytes(), start.Bytes())
	cur, _, err := s.totalUnbonded.Get(key)
	if err != nil {
		return err
	}
	if cur == nil {
		cur = new(big.Int)
	}
	return s.totalUnbonded.Set(key, new(big.Int).Add(cur, amount))
}

// TotalUnbonded returns what was unbonded from validator as of unbondEpoch, by bond start epoch.
func (s *Service) TotalUnbonded(validator pos.Address, unbondEpoch pos.Epoch) (pos.EpochAmounts, error) {
	out := make(pos.EpochAmounts)
	prefix := store.Key(validator.Bytes(), unbondEpoch.Bytes())
	err := s.totalUnbonded.Iterate(prefix, false, func(key []byte, v *big.Int) (bool, error) {
		out[pos.EpochFromBytes(key[len(prefix):])] = v
		return true, nil
	})
	return out, err
}

// PruneTotalUnbonded drops unbond totals of validator recorded before epoch.
func (s *Service) PruneTotalUnbonded(validator pos.Address, before pos.Epoch) error {
	var stale [][]byte
	err := s.totalUnbonded.IterateRange(
		store.Key(validator.Bytes(), pos.Epoch(0).Bytes()),
		store.Key(validator.Bytes(), before.Bytes()),
		false,
		func(key []byte, _ *big.Int) (bool, error) {
			stale = append(stale, key)
			return true, nil
		})
	if err != nil {
		return err
	}
	for _, k := range stale {
		s.totalUnbonded.Delete(k)
	}
	return nil
}

//
// Unbonds
//

func unbondKey(id pos.BondID, start, withdraw pos.Epoch) []byte {
	return store.Key(id.Bytes(), start.Bytes(), withdraw.Bytes())
}

// AddUnbond adds amount to the unbond of id at (start, withdraw).
func (s *Service) AddUnbond(id pos.BondID, start, withdraw pos.Epoch, amount *big.Int) error {
	key := unbondKey(id, start, withdraw)
	cur, _, err := s.unbonds.Get(key)
	if err != nil {
		return err
	}
	if cur == nil {
		cur = new(big.Int)
	}
	return s.unbonds.Set(key, new(big.Int).Add(cur, amount))
}

// Unbonds returns the pending unbonds of id ordered by start then withdraw epoch.
func (s *Service) Unbonds(id pos.BondID) ([]Unbond, error) {
	var out []Unbond
	prefix := id.Bytes()
	err := s.unbonds.Iterate(prefix, false, func(key []byte, v *big.Int) (bool, error) {
		rest := key[len(prefix):]
		out = append(out, Unbond{
			Start:    pos.EpochFromBytes(rest[:8]),
			Withdraw: pos.EpochFromBytes(rest[8:16]),
			Amount:   v,
		})
		return true, nil
	})
	return out, err
}

// DeleteUnbond removes the unbond of id at (start, withdraw).
func (s *Service) DeleteUnbond(id pos.BondID, start, withdraw pos.Epoch) {
	s.unbonds.Delete(unbondKey(id, start, withdraw))
}

// BondIDs returns every bond id with a non-zero entry, optionally limited to a source.
func (s *Service) BondIDs(source *pos.Address) ([]pos.BondID, error) {
	var sub []byte
	if source != nil {
		sub = source.Bytes()
	}
	var ids []pos.BondID
	keys, err := s.bonds.Keys(sub)
	if err != nil {
		return nil, err
	}
	for _, k := range keys {
		id := pos.BondID{
			Source:    pos.BytesToAddress(k[:pos.AddressLength]),
			Validator: pos.BytesToAddress(k[pos.AddressLength : 2*pos.AddressLength]),
		}
		if n := len(ids); n == 0 || ids[n-1] != id {
			ids = append(ids, id)
		}
	}
	return ids, nil
}
