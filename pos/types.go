// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package pos

import (
	"fmt"
	"io"
	"math/big"

	"github.com/ethereum/go-ethereum/rlp"
)

// BondID identifies a bond by its source (delegator) and validator.
type BondID struct {
	Source    Address
	Validator Address
}

// IsSelfBond reports whether the validator bonds to itself.
func (id BondID) IsSelfBond() bool {
	return id.Source == id.Validator
}

// Bytes returns source|validator.
func (id BondID) Bytes() []byte {
	b := make([]byte, 0, AddressLength*2)
	b = append(b, id.Source[:]...)
	return append(b, id.Validator[:]...)
}

func (id BondID) String() string {
	return fmt.Sprintf("%s->%s", id.Source, id.Validator)
}

// ValidatorState is the per-epoch state of a validator.
type ValidatorState uint8

const (
	Consensus ValidatorState = iota
	BelowCapacity
	BelowThreshold
	Jailed
	Inactive
)

func (s ValidatorState) String() string {
	switch s {
	case Consensus:
		return "consensus"
	case BelowCapacity:
		return "below-capacity"
	case BelowThreshold:
		return "below-threshold"
	case Jailed:
		return "jailed"
	case Inactive:
		return "inactive"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(s))
	}
}

// InSet reports whether a validator in this state occupies one of the stake-ordered sets.
func (s ValidatorState) InSet() bool {
	return s == Consensus || s == BelowCapacity || s == BelowThreshold
}

// SlashType is the kind of misbehavior.
type SlashType uint8

const (
	DuplicateVote SlashType = iota
	LightClientAttack
)

func (t SlashType) String() string {
	switch t {
	case DuplicateVote:
		return "duplicate-vote"
	case LightClientAttack:
		return "light-client-attack"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(t))
	}
}

// ParseSlashType parses the textual form of a slash type.
func ParseSlashType(s string) (SlashType, error) {
	switch s {
	case "duplicate-vote":
		return DuplicateVote, nil
	case "light-client-attack":
		return LightClientAttack, nil
	default:
		return 0, fmt.Errorf("unknown slash type %q", s)
	}
}

// Slash is a misbehavior record. Rate is zero until the slash is processed.
type Slash struct {
	Epoch       Epoch
	BlockHeight uint64
	Type        SlashType
	Rate        Dec
}

type slashRLP struct {
	Epoch       uint64
	BlockHeight uint64
	Type        uint8
	Rate        *big.Int
}

// EncodeRLP implements rlp.Encoder.
func (s *Slash) EncodeRLP(w io.Writer) error {
	return rlp.Encode(w, &slashRLP{
		Epoch:       uint64(s.Epoch),
		BlockHeight: s.BlockHeight,
		Type:        uint8(s.Type),
		Rate:        RawDec(s.Rate),
	})
}

// DecodeRLP implements rlp.Decoder.
func (s *Slash) DecodeRLP(stream *rlp.Stream) error {
	var raw slashRLP
	if err := stream.Decode(&raw); err != nil {
		return err
	}
	*s = Slash{
		Epoch:       Epoch(raw.Epoch),
		BlockHeight: raw.BlockHeight,
		Type:        SlashType(raw.Type),
		Rate:        DecFromRaw(raw.Rate),
	}
	return nil
}

// CommissionPair is a validator commission rate and its max change per epoch.
type CommissionPair struct {
	Rate      Dec
	MaxChange Dec
}

// GenesisValidator describes a validator present at genesis.
type GenesisValidator struct {
	Address                 Address
	Tokens                  *big.Int
	ConsensusKey            []byte
	EthColdKey              []byte
	EthHotKey               []byte
	CommissionRate          Dec
	MaxCommissionRateChange Dec
}

// WeightedValidator is a validator with its bonded stake.
type WeightedValidator struct {
	Address     Address
	BondedStake *big.Int
}

// ValidatorSetUpdate describes a change of the consensus set between two epochs.
// Removed updates have a zero stake.
type ValidatorSetUpdate struct {
	Address      Address
	ConsensusKey []byte
	BondedStake  *big.Int
	Removed      bool
}
