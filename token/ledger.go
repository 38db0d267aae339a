// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package token keeps native token balances in the ledger state.
package token

import (
	"math/big"

	"github.com/holiman/uint256"
	"github.com/pkg/errors"

	"github.com/vechain/posledger/pos"
	"github.com/vechain/posledger/staker/reverts"
	"github.com/vechain/posledger/store"
)

type uint256Codec struct{}

func (uint256Codec) Encode(v *uint256.Int) ([]byte, error) {
	// a zero balance still needs a non-empty value
	return append([]byte{0}, v.Bytes()...), nil
}

func (uint256Codec) Decode(raw []byte) (*uint256.Int, error) {
	if len(raw) == 0 || len(raw) > 33 {
		return nil, errors.Errorf("invalid balance encoding of %d bytes", len(raw))
	}
	return new(uint256.Int).SetBytes(raw[1:]), nil
}

// Ledger holds balances of addresses.
type Ledger struct {
	balances *store.Mapping[*uint256.Int]
}

func New(sctx *store.Context) *Ledger {
	return &Ledger{balances: store.NewMapping[*uint256.Int](sctx, "balances", uint256Codec{})}
}

func toUint256(amount *big.Int) (*uint256.Int, error) {
	if amount.Sign() < 0 {
		return nil, errors.Wrapf(reverts.ErrUnderflow, "negative amount %s", amount)
	}
	v, overflow := uint256.FromBig(amount)
	if overflow {
		return nil, errors.Wrapf(reverts.ErrOverflow, "amount %s", amount)
	}
	return v, nil
}

func (l *Ledger) get(addr pos.Address) (*uint256.Int, error) {
	v, ok, err := l.balances.Get(addr.Bytes())
	if err != nil {
		return nil, err
	}
	if !ok {
		return new(uint256.Int), nil
	}
	return v, nil
}

func (l *Ledger) set(addr pos.Address, v *uint256.Int) error {
	if v.IsZero() {
		l.balances.Delete(addr.Bytes())
		return nil
	}
	return l.balances.Set(addr.Bytes(), v)
}

// Balance returns the balance of addr.
func (l *Ledger) Balance(addr pos.Address) (*big.Int, error) {
	v, err := l.get(addr)
	if err != nil {
		return nil, err
	}
	return v.ToBig(), nil
}

// Credit adds amount to the balance of addr.
func (l *Ledger) Credit(addr pos.Address, amount *big.Int) error {
	delta, err := toUint256(amount)
	if err != nil {
		return err
	}
	cur, err := l.get(addr)
	if err != nil {
		return err
	}
	sum, overflow := new(uint256.Int).AddOverflow(cur, delta)
	if overflow {
		return errors.Wrapf(reverts.ErrOverflow, "credit %s to %s", amount, addr)
	}
	return l.set(addr, sum)
}

// Debit takes amount from the balance of addr.
func (l *Ledger) Debit(addr pos.Address, amount *big.Int) error {
	delta, err := toUint256(amount)
	if err != nil {
		return err
	}
	cur, err := l.get(addr)
	if err != nil {
		return err
	}
	if cur.Lt(delta) {
		return errors.Wrapf(reverts.ErrInsufficientBalance, "debit %s from %s holding %s", amount, addr, cur.Dec())
	}
	return l.set(addr, new(uint256.Int).Sub(cur, delta))
}

// Transfer moves amount from one address to another.
func (l *Ledger) Transfer(from, to pos.Address, amount *big.Int) error {
	if amount.Sign() == 0 {
		return nil
	}
	if err := l.Debit(from, amount); err != nil {
		return err
	}
	return l.Credit(to, amount)
}
