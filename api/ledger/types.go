// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package ledger

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/common/math"

	"github.com/vechain/posledger/pos"
	"github.com/vechain/posledger/staker/bonds"
)

func amount(v *big.Int) *math.HexOrDecimal256 {
	if v == nil {
		return nil
	}
	return (*math.HexOrDecimal256)(new(big.Int).Set(v))
}

type Params struct {
	MaxValidatorSlots             uint64                `json:"maxValidatorSlots"`
	PipelineLen                   uint64                `json:"pipelineLen"`
	UnbondingLen                  uint64                `json:"unbondingLen"`
	CubicSlashingWindowLen        uint64                `json:"cubicSlashingWindowLen"`
	ValidatorStakeThreshold       *math.HexOrDecimal256 `json:"validatorStakeThreshold"`
	DuplicateVoteMinSlashRate     string                `json:"duplicateVoteMinSlashRate"`
	LightClientAttackMinSlashRate string                `json:"lightClientAttackMinSlashRate"`
}

func convertParams(p *pos.Params) *Params {
	return &Params{
		MaxValidatorSlots:             p.MaxValidatorSlots,
		PipelineLen:                   p.PipelineLen,
		UnbondingLen:                  p.UnbondingLen,
		CubicSlashingWindowLen:        p.CubicSlashingWindowLen,
		ValidatorStakeThreshold:       amount(p.ValidatorStakeThreshold),
		DuplicateVoteMinSlashRate:     p.DuplicateVoteMinSlashRate.String(),
		LightClientAttackMinSlashRate: p.LightClientAttackMinSlashRate.String(),
	}
}

// Status is the ledger position and configuration.
type Status struct {
	GenesisID string    `json:"genesisId,omitempty"`
	Epoch     pos.Epoch `json:"epoch"`
	Pipeline  pos.Epoch `json:"pipeline"`
	Params    *Params   `json:"params"`
}

// Validator is a validator as seen at one epoch.
type Validator struct {
	Address                 pos.Address           `json:"address"`
	ConsensusKey            hexutil.Bytes         `json:"consensusKey"`
	EthColdKey              hexutil.Bytes         `json:"ethColdKey,omitempty"`
	EthHotKey               hexutil.Bytes         `json:"ethHotKey,omitempty"`
	Epoch                   pos.Epoch             `json:"epoch"`
	State                   string                `json:"state,omitempty"`
	Stake                   *math.HexOrDecimal256 `json:"stake"`
	CommissionRate          string                `json:"commissionRate"`
	MaxCommissionRateChange string                `json:"maxCommissionRateChange"`
}

// WeightedValidator is a set member.
type WeightedValidator struct {
	Address pos.Address           `json:"address"`
	Stake   *math.HexOrDecimal256 `json:"stake"`
}

func convertWeighted(in []pos.WeightedValidator) []*WeightedValidator {
	out := make([]*WeightedValidator, 0, len(in))
	for _, v := range in {
		out = append(out, &WeightedValidator{v.Address, amount(v.BondedStake)})
	}
	return out
}

// SetUpdate is a consensus set change.
type SetUpdate struct {
	Address      pos.Address           `json:"address"`
	ConsensusKey hexutil.Bytes         `json:"consensusKey"`
	Stake        *math.HexOrDecimal256 `json:"stake"`
	Removed      bool                  `json:"removed"`
}

// Sets holds the validator sets of one epoch.
type Sets struct {
	Epoch               pos.Epoch             `json:"epoch"`
	Consensus           []*WeightedValidator  `json:"consensus"`
	BelowCapacity       []*WeightedValidator  `json:"belowCapacity"`
	BelowThreshold      []*WeightedValidator  `json:"belowThreshold"`
	TotalConsensusStake *math.HexOrDecimal256 `json:"totalConsensusStake"`
	Updates             []*SetUpdate          `json:"updates"`
}

// Slash is a recorded misbehavior.
type Slash struct {
	Epoch       pos.Epoch `json:"epoch"`
	BlockHeight uint64    `json:"blockHeight"`
	Type        string    `json:"type"`
	Rate        string    `json:"rate,omitempty"`
}

func convertSlashes(in []*pos.Slash) []*Slash {
	out := make([]*Slash, 0, len(in))
	for _, s := range in {
		var rate string
		if !s.Rate.IsNil() {
			rate = s.Rate.String()
		}
		out = append(out, &Slash{s.Epoch, s.BlockHeight, s.Type.String(), rate})
	}
	return out
}

// ValidatorSlashes lists the processed slashes of a validator.
type ValidatorSlashes struct {
	Validator      pos.Address `json:"validator"`
	LastSlashEpoch *pos.Epoch  `json:"lastSlashEpoch"`
	Slashes        []*Slash    `json:"slashes"`
}

// EnqueuedSlashes lists the slashes due at one epoch.
type EnqueuedSlashes struct {
	Validator pos.Address `json:"validator"`
	Slashes   []*Slash    `json:"slashes"`
}

// Unbond is a pending unbond.
type Unbond struct {
	Start    pos.Epoch             `json:"start"`
	Withdraw pos.Epoch             `json:"withdraw"`
	Amount   *math.HexOrDecimal256 `json:"amount"`
}

func convertUnbonds(in []bonds.Unbond) []*Unbond {
	out := make([]*Unbond, 0, len(in))
	for _, u := range in {
		out = append(out, &Unbond{u.Start, u.Withdraw, amount(u.Amount)})
	}
	return out
}

// Bond is one bond of an account.
type Bond struct {
	Validator    pos.Address           `json:"validator"`
	Bonded       *math.HexOrDecimal256 `json:"bonded"`
	Pending      *math.HexOrDecimal256 `json:"pending"`
	Unbonds      []*Unbond             `json:"unbonds"`
	Withdrawable *math.HexOrDecimal256 `json:"withdrawable"`
}

// Account is the balance and bonds of an address.
type Account struct {
	Address pos.Address           `json:"address"`
	Balance *math.HexOrDecimal256 `json:"balance"`
	Bonds   []*Bond               `json:"bonds"`
}
