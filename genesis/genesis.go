// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package genesis

import (
	"math/big"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/pkg/errors"

	"github.com/vechain/posledger/log"
	"github.com/vechain/posledger/pos"
	"github.com/vechain/posledger/staker"
	"github.com/vechain/posledger/state"
	"github.com/vechain/posledger/store"
)

var logger = log.WithContext("pkg", "genesis")

// ErrAlreadyInitialized is returned when building genesis over a non-empty store.
var ErrAlreadyInitialized = errors.New("store already initialized")

// Account is a pre-funded account.
type Account struct {
	Address pos.Address
	Balance *big.Int
}

// Genesis describes the initial ledger state.
type Genesis struct {
	name       string
	id         pos.Bytes32
	params     *pos.Params
	validators []pos.GenesisValidator
	accounts   []Account
}

// ID returns the hash identifying this genesis.
func (g *Genesis) ID() pos.Bytes32 { return g.id }

// Name returns the network name.
func (g *Genesis) Name() string { return g.name }

// Params returns the staking params.
func (g *Genesis) Params() *pos.Params { return g.params }

// Validators returns the genesis validators.
func (g *Genesis) Validators() []pos.GenesisValidator { return g.validators }

// Accounts returns the pre-funded accounts.
func (g *Genesis) Accounts() []Account { return g.accounts }

func idValue(st *state.State) *store.Value[pos.Bytes32] {
	return store.NewValue[pos.Bytes32](store.NewContext("genesis", st), "id", store.RLP[pos.Bytes32]())
}

// ReadID returns the genesis ID recorded in the store.
func ReadID(st *state.State) (pos.Bytes32, bool, error) {
	return idValue(st).Get()
}

// Build writes the genesis state into the store behind creator and commits it.
func (g *Genesis) Build(creator *state.Creator) error {
	st := creator.NewState()
	if _, found, err := ReadID(st); err != nil {
		return err
	} else if found {
		return ErrAlreadyInitialized
	}

	stk, err := staker.InitGenesis(st, g.params, g.validators)
	if err != nil {
		return errors.Wrap(err, "init staker")
	}
	for _, acc := range g.accounts {
		if err := stk.Mint(acc.Address, acc.Balance); err != nil {
			return errors.Wrapf(err, "fund %s", acc.Address)
		}
	}
	if err := idValue(st).Set(g.id); err != nil {
		return err
	}
	if err := st.Commit(); err != nil {
		return errors.Wrap(err, "commit genesis")
	}
	logger.Info("genesis initialized", "name", g.name, "id", g.id, "validators", len(g.validators), "accounts", len(g.accounts))
	return nil
}

// Builder helper to build a genesis.
type Builder struct {
	name       string
	params     *pos.Params
	validators []pos.GenesisValidator
	accounts   []Account
}

// Name sets the network name.
func (b *Builder) Name(name string) *Builder {
	b.name = name
	return b
}

// Params sets the staking params. DefaultParams are used when unset.
func (b *Builder) Params(p *pos.Params) *Builder {
	b.params = p
	return b
}

// Validator adds a genesis validator.
func (b *Builder) Validator(v pos.GenesisValidator) *Builder {
	b.validators = append(b.validators, v)
	return b
}

// Account adds a pre-funded account.
func (b *Builder) Account(addr pos.Address, balance *big.Int) *Builder {
	b.accounts = append(b.accounts, Account{addr, balance})
	return b
}

// Build validates the presets and computes the genesis ID.
func (b *Builder) Build() (*Genesis, error) {
	params := b.params
	if params == nil {
		params = pos.DefaultParams()
	}
	if err := params.Validate(); err != nil {
		return nil, errors.Wrap(err, "params")
	}
	for _, acc := range b.accounts {
		if acc.Balance == nil || acc.Balance.Sign() < 0 {
			return nil, errors.Errorf("invalid balance for account %s", acc.Address)
		}
	}

	id, err := computeID(params, b.validators, b.accounts)
	if err != nil {
		return nil, err
	}
	return &Genesis{
		name:       b.name,
		id:         id,
		params:     params,
		validators: b.validators,
		accounts:   b.accounts,
	}, nil
}

type validatorRLP struct {
	Address                 pos.Address
	Tokens                  *big.Int
	ConsensusKey            []byte
	EthColdKey              []byte
	EthHotKey               []byte
	CommissionRate          string
	MaxCommissionRateChange string
}

func computeID(params *pos.Params, validators []pos.GenesisValidator, accounts []Account) (pos.Bytes32, error) {
	encodedParams, err := rlp.EncodeToBytes(params)
	if err != nil {
		return pos.Bytes32{}, errors.Wrap(err, "encode params")
	}

	vals := make([]validatorRLP, 0, len(validators))
	for _, v := range validators {
		tokens := v.Tokens
		if tokens == nil || tokens.Sign() < 0 {
			return pos.Bytes32{}, errors.Errorf("invalid tokens for validator %s", v.Address)
		}
		if v.CommissionRate.IsNil() || v.MaxCommissionRateChange.IsNil() {
			return pos.Bytes32{}, errors.Errorf("missing commission for validator %s", v.Address)
		}
		vals = append(vals, validatorRLP{
			Address:                 v.Address,
			Tokens:                  tokens,
			ConsensusKey:            v.ConsensusKey,
			EthColdKey:              v.EthColdKey,
			EthHotKey:               v.EthHotKey,
			CommissionRate:          v.CommissionRate.String(),
			MaxCommissionRateChange: v.MaxCommissionRateChange.String(),
		})
	}
	encodedVals, err := rlp.EncodeToBytes(vals)
	if err != nil {
		return pos.Bytes32{}, errors.Wrap(err, "encode validators")
	}
	encodedAccounts, err := rlp.EncodeToBytes(accounts)
	if err != nil {
		return pos.Bytes32{}, errors.Wrap(err, "encode accounts")
	}
	return pos.Blake2b(encodedParams, encodedVals, encodedAccounts), nil
}
