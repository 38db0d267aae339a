// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package genesis

import (
	"bytes"
	"fmt"
	"math/big"
	"os"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/vechain/posledger/pos"
)

// CustomGenesis is the user customized genesis file.
type CustomGenesis struct {
	Name       string            `yaml:"name"`
	Params     *CustomParams     `yaml:"params"`
	Validators []CustomValidator `yaml:"validators"`
	Accounts   []CustomAccount   `yaml:"accounts"`
}

// CustomParams overrides the default staking params. Unset fields keep their default.
type CustomParams struct {
	MaxValidatorSlots             *uint64          `yaml:"maxValidatorSlots"`
	PipelineLen                   *uint64          `yaml:"pipelineLen"`
	UnbondingLen                  *uint64          `yaml:"unbondingLen"`
	CubicSlashingWindowLen        *uint64          `yaml:"cubicSlashingWindowLen"`
	ValidatorStakeThreshold       *HexOrDecimal256 `yaml:"validatorStakeThreshold"`
	DuplicateVoteMinSlashRate     *Rate            `yaml:"duplicateVoteMinSlashRate"`
	LightClientAttackMinSlashRate *Rate            `yaml:"lightClientAttackMinSlashRate"`
}

// CustomValidator is a genesis validator entry.
type CustomValidator struct {
	Address                 pos.Address      `yaml:"address"`
	Tokens                  *HexOrDecimal256 `yaml:"tokens"`
	ConsensusKey            hexutil.Bytes    `yaml:"consensusKey"`
	EthColdKey              hexutil.Bytes    `yaml:"ethColdKey"`
	EthHotKey               hexutil.Bytes    `yaml:"ethHotKey"`
	CommissionRate          *Rate            `yaml:"commissionRate"`
	MaxCommissionRateChange *Rate            `yaml:"maxCommissionRateChange"`
}

// CustomAccount is a pre-funded account entry.
type CustomAccount struct {
	Address pos.Address      `yaml:"address"`
	Balance *HexOrDecimal256 `yaml:"balance"`
}

// HexOrDecimal256 is a 256 bits integer written as hex or decimal.
type HexOrDecimal256 math.HexOrDecimal256

// UnmarshalYAML implements yaml.Unmarshaler.
func (i *HexOrDecimal256) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: expected an integer", node.Line)
	}
	bigint, ok := math.ParseBig256(node.Value)
	if !ok {
		return fmt.Errorf("line %d: invalid hex or decimal integer %q", node.Line, node.Value)
	}
	*i = HexOrDecimal256(*bigint)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (i HexOrDecimal256) MarshalYAML() (any, error) {
	return (*big.Int)(&i).String(), nil
}

// Big returns a copy of the value as big.Int.
func (i *HexOrDecimal256) Big() *big.Int {
	if i == nil {
		return nil
	}
	return new(big.Int).Set((*big.Int)(i))
}

// Rate is a decimal fraction such as "0.05".
type Rate struct {
	pos.Dec
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (r *Rate) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: expected a decimal", node.Line)
	}
	dec, err := pos.ParseDec(node.Value)
	if err != nil {
		return fmt.Errorf("line %d: invalid decimal %q: %w", node.Line, node.Value, err)
	}
	r.Dec = dec
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (r Rate) MarshalYAML() (any, error) {
	return r.Dec.String(), nil
}

// LoadCustomGenesis reads and parses a genesis file.
func LoadCustomGenesis(path string) (*CustomGenesis, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read genesis file")
	}
	return ParseCustomGenesis(data)
}

// ParseCustomGenesis parses genesis YAML. Unknown fields are rejected.
func ParseCustomGenesis(data []byte) (*CustomGenesis, error) {
	var gen CustomGenesis
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&gen); err != nil {
		return nil, errors.Wrap(err, "decode genesis")
	}
	return &gen, nil
}

// NewCustomNet builds a genesis from a custom genesis.
func NewCustomNet(gen *CustomGenesis) (*Genesis, error) {
	params := pos.DefaultParams()
	if p := gen.Params; p != nil {
		setIf(&params.MaxValidatorSlots, p.MaxValidatorSlots)
		setIf(&params.PipelineLen, p.PipelineLen)
		setIf(&params.UnbondingLen, p.UnbondingLen)
		setIf(&params.CubicSlashingWindowLen, p.CubicSlashingWindowLen)
		if p.ValidatorStakeThreshold != nil {
			params.ValidatorStakeThreshold = p.ValidatorStakeThreshold.Big()
		}
		if p.DuplicateVoteMinSlashRate != nil {
			params.DuplicateVoteMinSlashRate = p.DuplicateVoteMinSlashRate.Dec
		}
		if p.LightClientAttackMinSlashRate != nil {
			params.LightClientAttackMinSlashRate = p.LightClientAttackMinSlashRate.Dec
		}
	}

	builder := new(Builder).Name(gen.Name).Params(params)
	for i, v := range gen.Validators {
		if v.Address.IsZero() {
			return nil, errors.Errorf("validator %d: address required", i)
		}
		if v.Tokens == nil {
			return nil, errors.Errorf("validator %d: tokens required", i)
		}
		if v.CommissionRate == nil || v.MaxCommissionRateChange == nil {
			return nil, errors.Errorf("validator %d: commission rates required", i)
		}
		if len(v.ConsensusKey) == 0 {
			return nil, errors.Errorf("validator %d: consensus key required", i)
		}
		builder.Validator(pos.GenesisValidator{
			Address:                 v.Address,
			Tokens:                  v.Tokens.Big(),
			ConsensusKey:            v.ConsensusKey,
			EthColdKey:              v.EthColdKey,
			EthHotKey:               v.EthHotKey,
			CommissionRate:          v.CommissionRate.Dec,
			MaxCommissionRateChange: v.MaxCommissionRateChange.Dec,
		})
	}
	for i, acc := range gen.Accounts {
		if acc.Balance == nil {
			return nil, errors.Errorf("account %d: balance required", i)
		}
		builder.Account(acc.Address, acc.Balance.Big())
	}
	return builder.Build()
}

func setIf(dst *uint64, v *uint64) {
	if v != nil {
		*dst = *v
	}
}
