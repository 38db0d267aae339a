// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package processor

import (
	"math/big"

	"github.com/vechain/posledger/pos"
	"github.com/vechain/posledger/staker"
)

// Op is one staking operation of a transaction.
type Op interface {
	// Name identifies the operation kind in receipts, logs and metrics.
	Name() string
	// Apply runs the operation and returns the token amount it moved, if any.
	Apply(s *staker.Staker) (*big.Int, error)
}

// Mint credits new tokens to an account. Only used by genesis allocations and dev tooling.
type Mint struct {
	To     pos.Address
	Amount *big.Int
}

func (m *Mint) Name() string { return "mint" }

func (m *Mint) Apply(s *staker.Staker) (*big.Int, error) {
	return m.Amount, s.Mint(m.To, m.Amount)
}

type Bond struct {
	ID     pos.BondID
	Amount *big.Int
}

func (b *Bond) Name() string { return "bond" }

func (b *Bond) Apply(s *staker.Staker) (*big.Int, error) {
	return b.Amount, s.Bond(b.ID, b.Amount)
}

type Unbond struct {
	ID     pos.BondID
	Amount *big.Int
}

func (u *Unbond) Name() string { return "unbond" }

func (u *Unbond) Apply(s *staker.Staker) (*big.Int, error) {
	return s.Unbond(u.ID, u.Amount)
}

type Withdraw struct {
	ID pos.BondID
}

func (w *Withdraw) Name() string { return "withdraw" }

func (w *Withdraw) Apply(s *staker.Staker) (*big.Int, error) {
	return s.Withdraw(w.ID)
}

type Redelegate struct {
	ID     pos.BondID
	Dest   pos.Address
	Amount *big.Int
}

func (r *Redelegate) Name() string { return "redelegate" }

func (r *Redelegate) Apply(s *staker.Staker) (*big.Int, error) {
	return s.Redelegate(r.ID, r.Dest, r.Amount)
}

// Slash reports validator misbehavior at an infraction epoch.
type Slash struct {
	Validator  pos.Address
	Type       pos.SlashType
	Infraction pos.Epoch
	Height     uint64
}

func (sl *Slash) Name() string { return "slash" }

func (sl *Slash) Apply(s *staker.Staker) (*big.Int, error) {
	return nil, s.Slash(sl.Validator, sl.Type, sl.Infraction, sl.Height)
}

type Unjail struct {
	Validator pos.Address
}

func (u *Unjail) Name() string { return "unjail" }

func (u *Unjail) Apply(s *staker.Staker) (*big.Int, error) {
	return nil, s.Unjail(u.Validator)
}

type BecomeValidator struct {
	Config staker.ValidatorConfig
}

func (b *BecomeValidator) Name() string { return "become-validator" }

func (b *BecomeValidator) Apply(s *staker.Staker) (*big.Int, error) {
	cfg := b.Config
	return nil, s.BecomeValidator(&cfg)
}

type ChangeCommission struct {
	Validator pos.Address
	Rate      pos.Dec
}

func (c *ChangeCommission) Name() string { return "change-commission" }

func (c *ChangeCommission) Apply(s *staker.Staker) (*big.Int, error) {
	return nil, s.ChangeCommission(c.Validator, c.Rate)
}

type Deactivate struct {
	Validator pos.Address
}

func (d *Deactivate) Name() string { return "deactivate" }

func (d *Deactivate) Apply(s *staker.Staker) (*big.Int, error) {
	return nil, s.Deactivate(d.Validator)
}

type Reactivate struct {
	Validator pos.Address
}

func (r *Reactivate) Name() string { return "reactivate" }

func (r *Reactivate) Apply(s *staker.Staker) (*big.Int, error) {
	return nil, s.Reactivate(r.Validator)
}
