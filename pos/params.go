// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package pos

import (
	"io"
	"math/big"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/pkg/errors"
)

// Params chain-wide staking parameters.
type Params struct {
	MaxValidatorSlots             uint64
	PipelineLen                   uint64
	UnbondingLen                  uint64
	CubicSlashingWindowLen        uint64
	ValidatorStakeThreshold       *big.Int
	DuplicateVoteMinSlashRate     Dec
	LightClientAttackMinSlashRate Dec
}

// DefaultParams returns params suitable for dev networks and tests.
func DefaultParams() *Params {
	return &Params{
		MaxValidatorSlots:             2,
		PipelineLen:                   2,
		UnbondingLen:                  4,
		CubicSlashingWindowLen:        1,
		ValidatorStakeThreshold:       big.NewInt(1),
		DuplicateVoteMinSlashRate:     MustParseDec("0.001"),
		LightClientAttackMinSlashRate: MustParseDec("0.001"),
	}
}

// Validate checks params consistency.
func (p *Params) Validate() error {
	if p.PipelineLen < 1 {
		return errors.New("pipeline length must be at least 1")
	}
	if p.UnbondingLen <= p.PipelineLen {
		return errors.New("unbonding length must be greater than pipeline length")
	}
	if p.MaxValidatorSlots == 0 {
		return errors.New("max validator slots must be positive")
	}
	if p.ValidatorStakeThreshold == nil || p.ValidatorStakeThreshold.Sign() < 0 {
		return errors.New("validator stake threshold must be non-negative")
	}
	for name, rate := range map[string]Dec{
		"duplicate vote":      p.DuplicateVoteMinSlashRate,
		"light client attack": p.LightClientAttackMinSlashRate,
	} {
		if rate.IsNil() || rate.IsNegative() || rate.GT(OneDec()) {
			return errors.Errorf("%s min slash rate must be within [0, 1]", name)
		}
	}
	return nil
}

// SlashProcessingEpochOffset is the delay between an infraction and the processing of its slash.
func (p *Params) SlashProcessingEpochOffset() uint64 {
	return p.UnbondingLen + 1 + p.CubicSlashingWindowLen
}

// WithdrawableEpochOffset is the delay between an unbond and its withdrawability.
func (p *Params) WithdrawableEpochOffset() uint64 {
	return p.PipelineLen + p.UnbondingLen + p.CubicSlashingWindowLen
}

// RedelegationEndEpochFromStart returns the epoch a redelegation stops contributing to the source stake.
func (p *Params) RedelegationEndEpochFromStart(start Epoch) Epoch {
	return start.Add(p.PipelineLen)
}

// RedelegationStartEpochFromEnd is the inverse of RedelegationEndEpochFromStart.
func (p *Params) RedelegationStartEpochFromEnd(end Epoch) Epoch {
	return end.SubSat(p.PipelineLen)
}

// InRedelegationSlashingWindow tells whether an infraction of the source validator must be
// charged lazily to a redelegation that started at start and left the source stake at end.
// Slashes processed before the redelegation started were already applied eagerly.
func (p *Params) InRedelegationSlashingWindow(infraction, start, end Epoch) bool {
	processing := infraction.Add(p.SlashProcessingEpochOffset())
	return start < processing && infraction < end
}

// MinSlashRate returns the minimum rate for a slash type.
func (p *Params) MinSlashRate(t SlashType) Dec {
	switch t {
	case DuplicateVote:
		return p.DuplicateVoteMinSlashRate
	case LightClientAttack:
		return p.LightClientAttackMinSlashRate
	default:
		panic("unknown slash type")
	}
}

// StateRetention is the number of past epochs kept for validator sets, states and stakes.
// The cubic rate looks back cubic window epochs behind the oldest unprocessed infraction.
func (p *Params) StateRetention() uint64 {
	return p.SlashProcessingEpochOffset() + p.CubicSlashingWindowLen
}

type paramsRLP struct {
	MaxValidatorSlots             uint64
	PipelineLen                   uint64
	UnbondingLen                  uint64
	CubicSlashingWindowLen        uint64
	ValidatorStakeThreshold       *big.Int
	DuplicateVoteMinSlashRate     *big.Int
	LightClientAttackMinSlashRate *big.Int
}

// EncodeRLP implements rlp.Encoder.
func (p *Params) EncodeRLP(w io.Writer) error {
	return rlp.Encode(w, &paramsRLP{
		MaxValidatorSlots:             p.MaxValidatorSlots,
		PipelineLen:                   p.PipelineLen,
		UnbondingLen:                  p.UnbondingLen,
		CubicSlashingWindowLen:        p.CubicSlashingWindowLen,
		ValidatorStakeThreshold:       p.ValidatorStakeThreshold,
		DuplicateVoteMinSlashRate:     RawDec(p.DuplicateVoteMinSlashRate),
		LightClientAttackMinSlashRate: RawDec(p.LightClientAttackMinSlashRate),
	})
}

// DecodeRLP implements rlp.Decoder.
func (p *Params) DecodeRLP(s *rlp.Stream) error {
	var raw paramsRLP
	if err := s.Decode(&raw); err != nil {
		return err
	}
	*p = Params{
		MaxValidatorSlots:             raw.MaxValidatorSlots,
		PipelineLen:                   raw.PipelineLen,
		UnbondingLen:                  raw.UnbondingLen,
		CubicSlashingWindowLen:        raw.CubicSlashingWindowLen,
		ValidatorStakeThreshold:       raw.ValidatorStakeThreshold,
		DuplicateVoteMinSlashRate:     DecFromRaw(raw.DuplicateVoteMinSlashRate),
		LightClientAttackMinSlashRate: DecFromRaw(raw.LightClientAttackMinSlashRate),
	}
	return nil
}
