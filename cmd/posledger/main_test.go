// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"bytes"
	"encoding/json"
	"math"
	"math/big"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vechain/posledger/api/ledger"
	"github.com/vechain/posledger/genesis"
	"github.com/vechain/posledger/pos"
)

func TestReadIntFromUInt64Flag(t *testing.T) {
	got, err := readIntFromUInt64Flag(42)
	require.NoError(t, err)
	assert.Equal(t, 42, got)

	got, err = readIntFromUInt64Flag(uint64(math.MaxInt))
	require.NoError(t, err)
	assert.Equal(t, math.MaxInt, got)

	_, err = readIntFromUInt64Flag(uint64(math.MaxInt) + 1)
	assert.Error(t, err)
}

func TestParseAmount(t *testing.T) {
	v, err := parseAmount("100")
	require.NoError(t, err)
	assert.Equal(t, "100", v.String())

	v, err = parseAmount("0x64")
	require.NoError(t, err)
	assert.Equal(t, "100", v.String())

	_, err = parseAmount("")
	assert.ErrorContains(t, err, "missing -amount")
	_, err = parseAmount("ten")
	assert.ErrorContains(t, err, "invalid amount")
}

type cliTest struct {
	t       *testing.T
	dataDir string
}

func newCLITest(t *testing.T) *cliTest {
	return &cliTest{t: t, dataDir: t.TempDir()}
}

func (c *cliTest) run(args ...string) (string, error) {
	app := newApp()
	var out bytes.Buffer
	app.Writer = &out
	argv := append([]string{"posledger", args[0], "--data-dir", c.dataDir, "--verbosity", "1"}, args[1:]...)
	err := app.Run(argv)
	return out.String(), err
}

func (c *cliTest) mustRun(args ...string) string {
	out, err := c.run(args...)
	require.NoError(c.t, err, "%v", args)
	return out
}

func TestCommands(t *testing.T) {
	c := newCLITest(t)
	validator := genesis.DevAccounts()[0].Address.String()
	delegator := genesis.DevAccounts()[3].Address.String()

	_, err := c.run("export")
	assert.ErrorContains(t, err, "ledger not initialized")

	var initOut map[string]string
	require.NoError(t, json.Unmarshal([]byte(c.mustRun("init", "--genesis", "devnet")), &initOut))
	assert.Equal(t, "devnet", initOut["name"])
	assert.Equal(t, genesis.NewDevnet().ID().String(), initOut["genesisId"])

	_, err = c.run("init", "--genesis", "devnet")
	assert.ErrorContains(t, err, genesis.ErrAlreadyInitialized.Error())

	var res txResult
	require.NoError(t, json.Unmarshal([]byte(c.mustRun("bond", "--source", delegator, "--validator", validator, "--amount", "100")), &res))
	assert.Equal(t, "bond", res.Op)
	assert.Equal(t, "100", res.Amount)
	assert.Equal(t, pos.Epoch(0), res.Epoch)

	_, err = c.run("bond", "--source", delegator, "--validator", delegator, "--amount", "100")
	assert.ErrorContains(t, err, "bond rejected")

	var advanced []*advanceResult
	require.NoError(t, json.Unmarshal([]byte(c.mustRun("advance", "--epochs", "2")), &advanced))
	require.Len(t, advanced, 2)
	assert.Equal(t, pos.Epoch(1), advanced[0].Epoch)
	assert.Equal(t, pos.Epoch(2), advanced[1].Epoch)

	require.NoError(t, json.Unmarshal([]byte(c.mustRun("unbond", "--source", delegator, "--validator", validator, "--amount", "0x28")), &res))
	assert.Equal(t, "40", res.Amount)
	assert.Equal(t, pos.Epoch(2), res.Epoch)

	require.NoError(t, json.Unmarshal([]byte(c.mustRun("withdraw", "--source", delegator, "--validator", validator)), &res))
	assert.Equal(t, "0", res.Amount)

	out := filepath.Join(t.TempDir(), "dump.json")
	c.mustRun("export", "--out", out)
	data, err := os.ReadFile(out)
	require.NoError(t, err)

	var dump ledger.Dump
	require.NoError(t, json.Unmarshal(data, &dump))
	assert.Equal(t, pos.Epoch(2), dump.Status.Epoch)
	assert.Len(t, dump.Validators, 3)
	assert.Len(t, dump.Sets, 3)

	var found bool
	for _, acc := range dump.Accounts {
		if acc.Address.String() != delegator {
			continue
		}
		found = true
		require.Len(t, acc.Bonds, 1)
		assert.Equal(t, "100", (*big.Int)(acc.Bonds[0].Bonded).String())
		assert.Equal(t, "60", (*big.Int)(acc.Bonds[0].Pending).String())
		require.Len(t, acc.Bonds[0].Unbonds, 1)
		assert.Equal(t, "40", (*big.Int)(acc.Bonds[0].Unbonds[0].Amount).String())
	}
	assert.True(t, found, "delegator missing from dump")
}

func TestCommands_SlashAndUnjail(t *testing.T) {
	c := newCLITest(t)
	validator := genesis.DevAccounts()[1].Address.String()
	c.mustRun("init")

	c.mustRun("slash", "--validator", validator, "--type", "light-client-attack", "--height", "7")

	_, err := c.run("slash", "--validator", validator, "--type", "bogus")
	assert.ErrorContains(t, err, "unknown slash type")

	_, err = c.run("unjail", "--validator", validator)
	assert.ErrorContains(t, err, "unjail rejected")

	_, err = c.run("unjail", "--validator", "0x01")
	assert.Error(t, err)
}

func TestSelectGenesis_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "genesis.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
name: localnet
params:
  pipelineLen: 1
  unbondingLen: 3
validators:
  - address: "0x0000000000000000000000000000000000000001"
    tokens: "1000"
    consensusKey: "0x01"
    commissionRate: "0.05"
    maxCommissionRateChange: "0.01"
`), 0o600))

	c := newCLITest(t)
	var initOut map[string]string
	require.NoError(t, json.Unmarshal([]byte(c.mustRun("init", "--genesis", path)), &initOut))
	assert.Equal(t, "localnet", initOut["name"])

	var advanced []*advanceResult
	require.NoError(t, json.Unmarshal([]byte(c.mustRun("advance")), &advanced))
	require.Len(t, advanced, 1)
	assert.Equal(t, pos.Epoch(1), advanced[0].Epoch)
}

func TestHandleXGenesisID(t *testing.T) {
	id := genesis.NewDevnet().ID()
	h := handleXGenesisID(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}), id)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/ledger/status", nil))
	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Equal(t, id.String(), rr.Header().Get("x-genesis-id"))

	req := httptest.NewRequest(http.MethodGet, "/ledger/status", nil)
	req.Header.Set("x-genesis-id", id.String())
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/ledger/status?x-genesis-id=0x00", nil))
	assert.Equal(t, http.StatusForbidden, rr.Code)
}
