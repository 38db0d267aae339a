// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package staker

import (
	"math/big"

	"github.com/vechain/posledger/pos"
	"github.com/vechain/posledger/staker/redelegation"
	"github.com/vechain/posledger/staker/reverts"
)

// Redelegate moves amount of the bond id to dest without going through the
// unbonding delay. The moved stake stays liable for slashes of id.Validator
// for infractions committed before it left. It returns the amount bonded to
// dest, which is amount net of slashes already processed.
func (s *Staker) Redelegate(id pos.BondID, dest pos.Address, amount *big.Int) (*big.Int, error) {
	if err := requireNonNegative(amount); err != nil {
		return nil, err
	}
	if err := s.requireValidator(id.Validator); err != nil {
		return nil, err
	}
	if err := s.requireValidator(dest); err != nil {
		return nil, err
	}
	if id.IsSelfBond() {
		return nil, reverts.ErrRedelegationOfSelfBond.Wrapf("%s", id.Validator)
	}
	if id.Validator == dest {
		return nil, reverts.ErrRedelegationSrcEqDest.Wrapf("%s", dest)
	}

	current, err := s.CurrentEpoch()
	if err != nil {
		return nil, err
	}
	chained, err := s.redelegationService.IsChained(current, id.Source, id.Validator)
	if err != nil {
		return nil, err
	}
	if chained {
		return nil, reverts.ErrChainedRedelegation.Wrapf("%s via %s", id.Source, id.Validator)
	}
	if err := s.checkUnbondable(id, amount, current); err != nil {
		return nil, err
	}
	if frozen, err := s.slashingService.IsFrozen(dest, current); err != nil {
		return nil, err
	} else if frozen {
		return nil, reverts.ErrValidatorFrozen.Wrapf("%s", dest)
	}
	pipeline := s.pipelineEpoch(current)
	if state, _, err := s.validationService.State(dest, pipeline); err != nil {
		return nil, err
	} else if state == pos.Inactive {
		return nil, reverts.ErrValidatorInactive.Wrapf("%s", dest)
	}
	if amount.Sign() == 0 {
		return new(big.Int), nil
	}

	result, err := s.unbondTokens(id, amount, current, true)
	if err != nil {
		return nil, err
	}

	for _, start := range result.epochMap.Epochs() {
		if err := s.redelegationService.AddDelegatorBonded(id.Source, dest, pipeline, id.Validator, start, result.epochMap[start]); err != nil {
			return nil, err
		}
	}
	if result.sum.Sign() != 0 {
		if err := s.bondService.AddBond(pos.BondID{Source: id.Source, Validator: dest}, pipeline, result.sum); err != nil {
			return nil, err
		}
	}
	for _, start := range result.epochMap.Epochs() {
		if err := s.redelegationService.AddOutgoing(id.Validator, dest, start, current, result.epochMap[start]); err != nil {
			return nil, err
		}
	}
	moved := redelegation.BondsByStart{pipeline: redelegation.Bonds{id.Validator: result.epochMap}}
	if err := s.redelegationService.AddTotalBonded(dest, moved, false); err != nil {
		return nil, err
	}
	if err := s.redelegationService.SetIncoming(dest, id.Source, pipeline); err != nil {
		return nil, err
	}
	if err := s.changeStake(dest, pipeline, result.sum); err != nil {
		return nil, err
	}

	// settle what processed slashes took from the moved bonds
	if slashed := new(big.Int).Sub(amount, result.sum); slashed.Sign() > 0 {
		if err := s.settleSlashed(slashed); err != nil {
			return nil, err
		}
	}

	metricOperations().AddWithLabel(1, map[string]string{"op": "redelegate"})
	logger.Debug("redelegated", "bond", id, "dest", dest, "amount", amount, "bonded", result.sum)
	return result.sum, nil
}
