// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package staker

import (
	"bytes"
	"math/big"
	"sort"

	"github.com/pkg/errors"

	"github.com/vechain/posledger/pos"
	"github.com/vechain/posledger/staker/validation"
	"github.com/vechain/posledger/state"
)

// InitGenesis writes the params and the genesis validators into st and
// returns the engine at epoch 0. Each validator self-bonds its tokens, which
// are minted into the PoS account.
func InitGenesis(st *state.State, params *pos.Params, validators []pos.GenesisValidator) (*Staker, error) {
	if err := params.Validate(); err != nil {
		return nil, errors.Wrap(err, "params")
	}
	if err := writeParams(st, params); err != nil {
		return nil, err
	}
	s := New(st, params)
	if err := s.epoch.Set(0); err != nil {
		return nil, err
	}

	sorted := make([]pos.GenesisValidator, len(validators))
	copy(sorted, validators)
	sort.SliceStable(sorted, func(i, j int) bool {
		if c := sorted[i].Tokens.Cmp(sorted[j].Tokens); c != 0 {
			return c > 0
		}
		return bytes.Compare(sorted[i].Address.Bytes(), sorted[j].Address.Bytes()) < 0
	})

	seen := make(map[pos.Address]struct{}, len(sorted))
	for _, gv := range sorted {
		if _, ok := seen[gv.Address]; ok {
			return nil, errors.Errorf("duplicate genesis validator %s", gv.Address)
		}
		seen[gv.Address] = struct{}{}
		if gv.Tokens == nil || gv.Tokens.Sign() < 0 {
			return nil, errors.Errorf("genesis validator %s: invalid tokens", gv.Address)
		}
		if !validRate(gv.CommissionRate) || !validRate(gv.MaxCommissionRateChange) {
			return nil, errors.Errorf("genesis validator %s: invalid commission", gv.Address)
		}

		v := &validation.Validator{
			Address:      gv.Address,
			ConsensusKey: gv.ConsensusKey,
			EthColdKey:   gv.EthColdKey,
			EthHotKey:    gv.EthHotKey,
		}
		commission := pos.CommissionPair{Rate: gv.CommissionRate, MaxChange: gv.MaxCommissionRateChange}
		if err := s.validationService.RegisterGenesis(v, commission, gv.Tokens); err != nil {
			return nil, errors.Wrapf(err, "genesis validator %s", gv.Address)
		}
		if gv.Tokens.Sign() > 0 {
			self := pos.BondID{Source: gv.Address, Validator: gv.Address}
			if err := s.bondService.AddBond(self, 0, gv.Tokens); err != nil {
				return nil, err
			}
			if err := s.ledger.Credit(PoSAccount, new(big.Int).Set(gv.Tokens)); err != nil {
				return nil, err
			}
		}
	}

	for epoch := pos.Epoch(1); epoch <= pos.Epoch(params.PipelineLen); epoch++ {
		if err := s.validationService.CopyDiscrete(epoch); err != nil {
			return nil, err
		}
	}
	logger.Info("genesis initialized", "validators", len(sorted), "pipeline", params.PipelineLen)
	return s, nil
}
