// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package genesis_test

import (
	"math/big"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vechain/posledger/genesis"
	"github.com/vechain/posledger/lvldb"
	"github.com/vechain/posledger/pos"
	"github.com/vechain/posledger/staker"
	"github.com/vechain/posledger/state"
)

const customYAML = `
name: testnet
params:
  maxValidatorSlots: 1
  pipelineLen: 1
  unbondingLen: 3
  validatorStakeThreshold: "0x64"
  duplicateVoteMinSlashRate: "0.01"
validators:
  - address: "0x0000000000000000000000000000000000000a01"
    tokens: "1000"
    consensusKey: "0x01"
    commissionRate: "0.05"
    maxCommissionRateChange: "0.01"
  - address: "0x0000000000000000000000000000000000000a02"
    tokens: "0x1f4"
    consensusKey: "0x02"
    commissionRate: "0.1"
    maxCommissionRateChange: "0.02"
accounts:
  - address: "0x0000000000000000000000000000000000000b01"
    balance: "250"
`

func newCreator(t *testing.T) *state.Creator {
	db, err := lvldb.NewMem()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return state.NewCreator(db, 0)
}

func TestCustomNet(t *testing.T) {
	custom, err := genesis.ParseCustomGenesis([]byte(customYAML))
	require.NoError(t, err)
	gen, err := genesis.NewCustomNet(custom)
	require.NoError(t, err)

	assert.Equal(t, "testnet", gen.Name())
	params := gen.Params()
	assert.Equal(t, uint64(1), params.MaxValidatorSlots)
	assert.Equal(t, uint64(1), params.PipelineLen)
	assert.Equal(t, uint64(3), params.UnbondingLen)
	assert.Equal(t, pos.DefaultParams().CubicSlashingWindowLen, params.CubicSlashingWindowLen)
	assert.Equal(t, "100", params.ValidatorStakeThreshold.String())
	assert.True(t, params.DuplicateVoteMinSlashRate.Equal(pos.MustParseDec("0.01")))
	require.Len(t, gen.Validators(), 2)
	assert.Equal(t, "500", gen.Validators()[1].Tokens.String())
	assert.Equal(t, []byte{0x02}, gen.Validators()[1].ConsensusKey)

	creator := newCreator(t)
	require.NoError(t, gen.Build(creator))
	assert.ErrorIs(t, gen.Build(creator), genesis.ErrAlreadyInitialized)

	st := creator.NewState()
	id, found, err := genesis.ReadID(st)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, gen.ID(), id)

	stored, err := staker.ReadParams(st)
	require.NoError(t, err)
	s := staker.New(st, stored)

	members, err := s.ConsensusValidators(0)
	require.NoError(t, err)
	require.Len(t, members, 1)
	assert.Equal(t, pos.MustParseAddress("0x0000000000000000000000000000000000000a01"), members[0].Address)

	bal, err := s.Balance(pos.MustParseAddress("0x0000000000000000000000000000000000000b01"))
	require.NoError(t, err)
	assert.Equal(t, "250", bal.String())
	bal, err = s.Balance(staker.PoSAccount)
	require.NoError(t, err)
	assert.Equal(t, "1500", bal.String())
}

func TestLoadCustomGenesis(t *testing.T) {
	path := filepath.Join(t.TempDir(), "genesis.yaml")
	require.NoError(t, os.WriteFile(path, []byte(customYAML), 0o600))

	custom, err := genesis.LoadCustomGenesis(path)
	require.NoError(t, err)
	assert.Len(t, custom.Accounts, 1)

	_, err = genesis.LoadCustomGenesis(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestCustomNet_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		err  string
	}{
		{"unknown field", "name: x\nfoo: 1\n", "field foo not found"},
		{"bad rate", "validators:\n  - commissionRate: abc\n", "invalid decimal"},
		{"bad integer", "accounts:\n  - balance: 0xzz\n", "invalid hex or decimal integer"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := genesis.ParseCustomGenesis([]byte(tt.yaml))
			assert.ErrorContains(t, err, tt.err)
		})
	}

	custom, err := genesis.ParseCustomGenesis([]byte("params:\n  pipelineLen: 5\n"))
	require.NoError(t, err)
	_, err = genesis.NewCustomNet(custom)
	assert.ErrorContains(t, err, "unbonding length")

	custom, err = genesis.ParseCustomGenesis([]byte("validators:\n  - address: \"0x0000000000000000000000000000000000000a01\"\n    tokens: \"1\"\n"))
	require.NoError(t, err)
	_, err = genesis.NewCustomNet(custom)
	assert.ErrorContains(t, err, "commission rates required")
}

func TestDevnet(t *testing.T) {
	gen := genesis.NewDevnet()
	assert.Equal(t, gen.ID(), genesis.NewDevnet().ID())
	require.Len(t, gen.Validators(), 3)
	assert.Len(t, gen.Accounts(), len(genesis.DevAccounts())-3)

	creator := newCreator(t)
	require.NoError(t, gen.Build(creator))

	st := creator.NewState()
	s := staker.New(st, gen.Params())
	stake, err := s.ValidatorStake(genesis.DevAccounts()[0].Address, 0)
	require.NoError(t, err)
	want := new(big.Int).Mul(big.NewInt(3000), new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil))
	assert.Equal(t, want.String(), stake.String())
}

func TestID_DependsOnContent(t *testing.T) {
	a, err := new(genesis.Builder).Account(pos.BytesToAddress([]byte("a")), big.NewInt(1)).Build()
	require.NoError(t, err)
	b, err := new(genesis.Builder).Account(pos.BytesToAddress([]byte("a")), big.NewInt(2)).Build()
	require.NoError(t, err)
	assert.NotEqual(t, a.ID(), b.ID())

	_, err = new(genesis.Builder).Account(pos.BytesToAddress([]byte("a")), big.NewInt(-1)).Build()
	assert.ErrorContains(t, err, "invalid balance")
}
