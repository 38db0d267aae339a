// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package redelegation

import (
	"math/big"

	"github.com/vechain/posledger/pos"
	"github.com/vechain/posledger/store"
)

const (
	addrLen  = pos.AddressLength
	epochLen = 8
)

// Service stores redelegation provenance. All keys are fixed-length composites.
type Service struct {
	params *pos.Params

	delegatorBonded   *store.Mapping[*big.Int]  // delegator|dest|dest start|src|src start
	delegatorUnbonded *store.Mapping[*big.Int]  // delegator|dest|dest start|withdraw|src|src start
	totalBonded       *store.Mapping[*big.Int]  // dest|dest start|src|src start
	totalUnbonded     *store.Mapping[*big.Int]  // dest|unbond epoch|dest start|src|src start
	incoming          *store.Mapping[pos.Epoch] // dest|delegator -> redelegation end epoch
	outgoing          *store.Mapping[*big.Int]  // src|dest|src start|redelegation start
}

func New(sctx *store.Context, params *pos.Params) *Service {
	return &Service{
		params:            params,
		delegatorBonded:   store.NewMapping[*big.Int](sctx, "delegator-redelegated-bonded", store.BigInt),
		delegatorUnbonded: store.NewMapping[*big.Int](sctx, "delegator-redelegated-unbonded", store.BigInt),
		totalBonded:       store.NewMapping[*big.Int](sctx, "validator-redelegated-bonded", store.BigInt),
		totalUnbonded:     store.NewMapping[*big.Int](sctx, "validator-redelegated-unbonded", store.BigInt),
		incoming:          store.NewMapping[pos.Epoch](sctx, "incoming-redelegations", store.RLP[pos.Epoch]()),
		outgoing:          store.NewMapping[*big.Int](sctx, "outgoing-redelegations", store.BigInt),
	}
}

func addAt(m *store.Mapping[*big.Int], key []byte, change *big.Int) error {
	cur, _, err := m.Get(key)
	if err != nil {
		return err
	}
	if cur == nil {
		cur = new(big.Int)
	}
	updated := new(big.Int).Add(cur, change)
	if updated.Sign() == 0 {
		m.Delete(key)
		return nil
	}
	return m.Set(key, updated)
}

// loadByStart reads entries keyed prefix|start|src|src start.
func loadByStart(m *store.Mapping[*big.Int], prefix []byte) (BondsByStart, error) {
	out := make(BondsByStart)
	err := m.Iterate(prefix, false, func(key []byte, v *big.Int) (bool, error) {
		rest := key[len(prefix):]
		out.Add(
			pos.EpochFromBytes(rest[:epochLen]),
			pos.BytesToAddress(rest[epochLen:epochLen+addrLen]),
			pos.EpochFromBytes(rest[epochLen+addrLen:]),
			v)
		return true, nil
	})
	return out, err
}

//
// Delegator records
//

// DelegatorBonded returns the redelegated bonds of delegator at dest.
func (s *Service) DelegatorBonded(delegator, dest pos.Address) (BondsByStart, error) {
	return loadByStart(s.delegatorBonded, store.Key(delegator.Bytes(), dest.Bytes()))
}

// SetDelegatorBonded replaces the redelegated bonds of delegator at dest.
func (s *Service) SetDelegatorBonded(delegator, dest pos.Address, bonds BondsByStart) error {
	prefix := store.Key(delegator.Bytes(), dest.Bytes())
	if err := s.delegatorBonded.DeletePrefix(prefix); err != nil {
		return err
	}
	for start, rbonds := range bonds {
		for src, amounts := range rbonds {
			for srcStart, amount := range amounts {
				if amount.Sign() == 0 {
					continue
				}
				key := store.Key(prefix, start.Bytes(), src.Bytes(), srcStart.Bytes())
				if err := s.delegatorBonded.Set(key, amount); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// AddDelegatorBonded records amount redelegated by delegator from src to dest, bonded at dest from start.
func (s *Service) AddDelegatorBonded(delegator, dest pos.Address, start pos.Epoch, src pos.Address, srcStart pos.Epoch, amount *big.Int) error {
	return addAt(s.delegatorBonded, store.Key(delegator.Bytes(), dest.Bytes(), start.Bytes(), src.Bytes(), srcStart.Bytes()), amount)
}

// AddDelegatorUnbonded records redelegated bonds unbonded by delegator from dest, withdrawable at withdraw.
func (s *Service) AddDelegatorUnbonded(delegator, dest pos.Address, withdraw pos.Epoch, unbonded BondsByStart) error {
	for start, rbonds := range unbonded {
		for src, amounts := range rbonds {
			for srcStart, amount := range amounts {
				key := store.Key(delegator.Bytes(), dest.Bytes(), start.Bytes(), withdraw.Bytes(), src.Bytes(), srcStart.Bytes())
				if err := addAt(s.delegatorUnbonded, key, amount); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// DelegatorUnbonded returns the redelegated unbonds of delegator from dest for the unbond at (start, withdraw).
func (s *Service) DelegatorUnbonded(delegator, dest pos.Address, start, withdraw pos.Epoch) (Bonds, error) {
	out := make(Bonds)
	prefix := store.Key(delegator.Bytes(), dest.Bytes(), start.Bytes(), withdraw.Bytes())
	err := s.delegatorUnbonded.Iterate(prefix, false, func(key []byte, v *big.Int) (bool, error) {
		rest := key[len(prefix):]
		out.Add(pos.BytesToAddress(rest[:addrLen]), pos.EpochFromBytes(rest[addrLen:]), v)
		return true, nil
	})
	return out, err
}

// DeleteDelegatorUnbonded removes the redelegated unbonds of delegator from dest for the unbond at (start, withdraw).
func (s *Service) DeleteDelegatorUnbonded(delegator, dest pos.Address, start, withdraw pos.Epoch) error {
	return s.delegatorUnbonded.DeletePrefix(store.Key(delegator.Bytes(), dest.Bytes(), start.Bytes(), withdraw.Bytes()))
}

//
// Validator totals
//

// TotalBonded returns the redelegated bonds held by dest, by dest start epoch.
func (s *Service) TotalBonded(dest pos.Address) (BondsByStart, error) {
	return loadByStart(s.totalBonded, dest.Bytes())
}

// AddTotalBonded adds change to the redelegated bonds held by dest.
func (s *Service) AddTotalBonded(dest pos.Address, bonds BondsByStart, negate bool) error {
	for start, rbonds := range bonds {
		for src, amounts := range rbonds {
			for srcStart, amount := range amounts {
				change := amount
				if negate {
					change = new(big.Int).Neg(amount)
				}
				key := store.Key(dest.Bytes(), start.Bytes(), src.Bytes(), srcStart.Bytes())
				if err := addAt(s.totalBonded, key, change); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// AddTotalUnbonded records redelegated bonds unbonded from dest as of unbondEpoch.
func (s *Service) AddTotalUnbonded(dest pos.Address, unbondEpoch pos.Epoch, unbonded BondsByStart) error {
	for start, rbonds := range unbonded {
		for src, amounts := range rbonds {
			for srcStart, amount := range amounts {
				key := store.Key(dest.Bytes(), unbondEpoch.Bytes(), start.Bytes(), src.Bytes(), srcStart.Bytes())
				if err := addAt(s.totalUnbonded, key, amount); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// TotalUnbonded returns the redelegated bonds unbonded from dest as of unbondEpoch, by dest start epoch.
func (s *Service) TotalUnbonded(dest pos.Address, unbondEpoch pos.Epoch) (BondsByStart, error) {
	return loadByStart(s.totalUnbonded, store.Key(dest.Bytes(), unbondEpoch.Bytes()))
}

// PruneTotalUnbonded drops redelegated unbond totals of dest recorded before epoch.
func (s *Service) PruneTotalUnbonded(dest pos.Address, before pos.Epoch) error {
	var stale [][]byte
	err := s.totalUnbonded.IterateRange(
		store.Key(dest.Bytes(), pos.Epoch(0).Bytes()),
		store.Key(dest.Bytes(), before.Bytes()),
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
// Incoming and outgoing index
//

// SetIncoming records that delegator redelegated to dest, leaving its source at end.
func (s *Service) SetIncoming(dest, delegator pos.Address, end pos.Epoch) error {
	return s.incoming.Set(store.Key(dest.Bytes(), delegator.Bytes()), end)
}

// Incoming returns the end epoch of the last redelegation of delegator into dest.
func (s *Service) Incoming(dest, delegator pos.Address) (pos.Epoch, bool, error) {
	return s.incoming.Get(store.Key(dest.Bytes(), delegator.Bytes()))
}

// IsChained reports whether redelegating delegator's bond at src at epoch would
// move stake that is still liable for slashes of the validator it came from.
func (s *Service) IsChained(epoch pos.Epoch, delegator, src pos.Address) (bool, error) {
	end, found, err := s.Incoming(src, delegator)
	if err != nil || !found {
		return false, err
	}
	return end.Prev().Add(s.params.SlashProcessingEpochOffset()) > epoch, nil
}

// AddOutgoing records amount of src bonds starting at srcStart redelegated to dest at redelStart.
func (s *Service) AddOutgoing(src, dest pos.Address, srcStart, redelStart pos.Epoch, amount *big.Int) error {
	return addAt(s.outgoing, store.Key(src.Bytes(), dest.Bytes(), srcStart.Bytes(), redelStart.Bytes()), amount)
}

// OutgoingDests returns the validators src redelegated to, in address order.
func (s *Service) OutgoingDests(src pos.Address) ([]pos.Address, error) {
	var dests []pos.Address
	err := s.outgoing.Iterate(src.Bytes(), false, func(key []byte, _ *big.Int) (bool, error) {
		dest := pos.BytesToAddress(key[addrLen : 2*addrLen])
		if n := len(dests); n == 0 || dests[n-1] != dest {
			dests = append(dests, dest)
		}
		return true, nil
	})
	return dests, err
}

// Outgoing returns the redelegations from src to dest.
func (s *Service) Outgoing(src, dest pos.Address) ([]Outgoing, error) {
	var out []Outgoing
	prefix := store.Key(src.Bytes(), dest.Bytes())
	err := s.outgoing.Iterate(prefix, false, func(key []byte, v *big.Int) (bool, error) {
		rest := key[len(prefix):]
		out = append(out, Outgoing{
			Dest:       dest,
			SrcStart:   pos.EpochFromBytes(rest[:epochLen]),
			RedelStart: pos.EpochFromBytes(rest[epochLen:]),
			Amount:     v,
		})
		return true, nil
	})
	return out, err
}
