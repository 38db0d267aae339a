// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package staker

import (
	"math/big"

	"github.com/vechain/posledger/pos"
	"github.com/vechain/posledger/staker/bonds"
	"github.com/vechain/posledger/staker/redelegation"
	"github.com/vechain/posledger/staker/reverts"
	"github.com/vechain/posledger/staker/slashing"
)

// Bond moves amount from the source balance into a bond to the validator,
// effective at the pipeline epoch.
func (s *Staker) Bond(id pos.BondID, amount *big.Int) error {
	if err := requireNonNegative(amount); err != nil {
		return err
	}
	if err := s.requireValidator(id.Validator); err != nil {
		return err
	}
	if !id.IsSelfBond() {
		isValidator, err := s.validationService.IsValidator(id.Source)
		if err != nil {
			return err
		}
		if isValidator {
			return reverts.ErrInvalidBondSource.Wrapf("%s", id.Source)
		}
	}
	current, err := s.CurrentEpoch()
	if err != nil {
		return err
	}
	pipeline := s.pipelineEpoch(current)
	if state, _, err := s.validationService.State(id.Validator, pipeline); err != nil {
		return err
	} else if state == pos.Inactive {
		return reverts.ErrValidatorInactive.Wrapf("%s", id.Validator)
	}
	if amount.Sign() == 0 {
		return nil
	}

	if err := s.ledger.Transfer(id.Source, PoSAccount, amount); err != nil {
		return err
	}
	if err := s.bondService.AddBond(id, pipeline, amount); err != nil {
		return err
	}
	if err := s.changeStake(id.Validator, pipeline, amount); err != nil {
		return err
	}

	metricOperations().AddWithLabel(1, map[string]string{"op": "bond"})
	logger.Debug("bonded", "bond", id, "amount", amount, "pipeline", pipeline)
	return nil
}

// Unbond removes amount from a bond, newest bond entries first. It returns
// the amount left after slashes, which becomes withdrawable after the
// unbonding delay.
func (s *Staker) Unbond(id pos.BondID, amount *big.Int) (*big.Int, error) {
	if err := requireNonNegative(amount); err != nil {
		return nil, err
	}
	if err := s.requireValidator(id.Validator); err != nil {
		return nil, err
	}
	current, err := s.CurrentEpoch()
	if err != nil {
		return nil, err
	}
	if err := s.checkUnbondable(id, amount, current); err != nil {
		return nil, err
	}
	if amount.Sign() == 0 {
		return new(big.Int), nil
	}

	result, err := s.unbondTokens(id, amount, current, false)
	if err != nil {
		return nil, err
	}

	metricOperations().AddWithLabel(1, map[string]string{"op": "unbond"})
	logger.Debug("unbonded", "bond", id, "amount", amount, "after-slashing", result.sum)
	return result.sum, nil
}

func (s *Staker) checkUnbondable(id pos.BondID, amount *big.Int, current pos.Epoch) error {
	bonded, err := s.bondService.BondTotal(id)
	if err != nil {
		return err
	}
	if bonded.Cmp(amount) < 0 {
		return reverts.ErrInsufficientBond.Wrapf("bonded %s, requested %s", bonded, amount)
	}
	frozen, err := s.slashingService.IsFrozen(id.Validator, current)
	if err != nil {
		return err
	}
	if frozen {
		return reverts.ErrValidatorFrozen.Wrapf("%s", id.Validator)
	}
	return nil
}

// slashedAmounts is the outcome of taking bonds out of a validator: the sum left
// after slashes and its split by bond start epoch.
type slashedAmounts struct {
	sum      *big.Int
	epochMap pos.EpochAmounts
}

// unbondTokens takes amount out of the bond of id at the pipeline epoch.
// A redelegation records no unbond and no redelegated unbond for the delegator.
func (s *Staker) unbondTokens(id pos.BondID, amount *big.Int, current pos.Epoch, isRedelegation bool) (*slashedAmounts, error) {
	pipeline := s.pipelineEpoch(current)
	withdraw := current.Add(s.params.WithdrawableEpochOffset())

	entries, err := s.bondService.Bonds(id)
	if err != nil {
		return nil, err
	}
	redelegated, err := s.redelegationService.DelegatorBonded(id.Source, id.Validator)
	if err != nil {
		return nil, err
	}

	removal := bonds.FindBondsToRemove(entries, amount)

	var modified *redelegation.Modified
	if e := removal.NewEntry; e != nil {
		if _, ok := redelegated[e.Start]; ok {
			taken := new(big.Int).Sub(entries[e.Start], e.Amount)
			modified = redelegation.ComputeModified(redelegated, e.Start, taken)
		}
	}

	newUnbonds := make(pos.EpochAmounts)
	for _, start := range removal.Touched() {
		unbonded := new(big.Int).Set(entries[start])
		if e := removal.NewEntry; e != nil && e.Start == start {
			unbonded.Sub(unbonded, e.Amount)
		}
		newUnbonds[start] = unbonded
	}

	if err := s.bondService.ApplyRemoval(id, removal); err != nil {
		return nil, err
	}
	if !isRedelegation {
		for _, start := range newUnbonds.Epochs() {
			if err := s.bondService.AddUnbond(id, start, withdraw, newUnbonds[start]); err != nil {
				return nil, err
			}
		}
	}

	newRedelegatedUnbonds := redelegation.ComputeNewUnbonds(redelegated, removal.Epochs, modified)
	redelegation.ApplyRemoval(redelegated, removal.Epochs, modified)
	if err := s.redelegationService.SetDelegatorBonded(id.Source, id.Validator, redelegated); err != nil {
		return nil, err
	}
	if !isRedelegation {
		if err := s.redelegationService.AddDelegatorUnbonded(id.Source, id.Validator, withdraw, newRedelegatedUnbonds); err != nil {
			return nil, err
		}
	}

	for _, start := range newUnbonds.Epochs() {
		if err := s.bondService.SubTotalBonded(id.Validator, start, pipeline, newUnbonds[start]); err != nil {
			return nil, err
		}
	}
	if err := s.redelegationService.AddTotalBonded(id.Validator, newRedelegatedUnbonds, true); err != nil {
		return nil, err
	}
	if err := s.redelegationService.AddTotalUnbonded(id.Validator, pipeline, newRedelegatedUnbonds); err != nil {
		return nil, err
	}

	result, err := s.amountAfterSlashingUnbond(id.Validator, newUnbonds, newRedelegatedUnbonds)
	if err != nil {
		return nil, err
	}
	if err := s.changeStake(id.Validator, pipeline, new(big.Int).Neg(result.sum)); err != nil {
		return nil, err
	}
	return result, nil
}

// amountAfterSlashingUnbond applies the processed slashes of the validator, and
// of the sources of redelegated bonds, to newly unbonded amounts.
func (s *Staker) amountAfterSlashingUnbond(
	validator pos.Address,
	newUnbonds pos.EpochAmounts,
	newRedelegatedUnbonds redelegation.BondsByStart,
) (*slashedAmounts, error) {
	history := s.newSlashHistory()
	validatorSlashes, err := history.get(validator)
	if err != nil {
		return nil, err
	}

	result := &slashedAmounts{sum: new(big.Int), epochMap: make(pos.EpochAmounts)}
	for _, start := range newUnbonds.Epochs() {
		slashes := filterSlashes(validatorSlashes, func(sl *pos.Slash) bool {
			return sl.Epoch >= start
		})
		redelegated, afterRedelegated, err := s.foldRedelegated(history, newRedelegatedUnbonds[start], start, slashes, nil)
		if err != nil {
			return nil, err
		}

		notRedelegated := new(big.Int).Sub(newUnbonds[start], redelegated)
		after := slashing.ApplySlashesToAmount(s.params, slashes, notRedelegated)
		after.Add(after, afterRedelegated)

		result.sum.Add(result.sum, after)
		result.epochMap[start] = after
	}
	return result, nil
}

// Withdraw pays out every unbond of id that is withdrawable at the current
// epoch, net of slashes. The slashed part not yet settled at processing moves
// to the slash pool.
func (s *Staker) Withdraw(id pos.BondID) (*big.Int, error) {
	if err := s.requireValidator(id.Validator); err != nil {
		return nil, err
	}
	current, err := s.CurrentEpoch()
	if err != nil {
		return nil, err
	}
	if state, _, err := s.validationService.State(id.Validator, current); err != nil {
		return nil, err
	} else if state == pos.Jailed {
		return nil, reverts.ErrValidatorJailed.Wrapf("%s", id.Validator)
	}

	plan, err := s.withdrawPlan(id, current)
	if err != nil {
		return nil, err
	}
	if len(plan.unbonds) == 0 {
		return new(big.Int), nil
	}

	for _, u := range plan.unbonds {
		s.bondService.DeleteUnbond(id, u.Start, u.Withdraw)
		if err := s.redelegationService.DeleteDelegatorUnbonded(id.Source, id.Validator, u.Start, u.Withdraw); err != nil {
			return nil, err
		}
	}
	if err := s.ledger.Transfer(PoSAccount, id.Source, plan.paid); err != nil {
		return nil, err
	}
	if err := s.settleSlashed(plan.slashed); err != nil {
		return nil, err
	}

	metricOperations().AddWithLabel(1, map[string]string{"op": "withdraw"})
	logger.Debug("withdrawn", "bond", id, "paid", plan.paid, "slashed", plan.slashed)
	return plan.paid, nil
}

type withdrawal struct {
	unbonds []bonds.Unbond
	paid    *big.Int
	slashed *big.Int
}

// withdrawPlan collects the unbonds of id withdrawable at epoch with their
// amounts after slashing.
func (s *Staker) withdrawPlan(id pos.BondID, epoch pos.Epoch) (*withdrawal, error) {
	unbonds, err := s.bondService.Unbonds(id)
	if err != nil {
		return nil, err
	}
	history := s.newSlashHistory()
	validatorSlashes, err := history.get(id.Validator)
	if err != nil {
		return nil, err
	}

	offset := s.params.SlashProcessingEpochOffset()
	plan := &withdrawal{paid: new(big.Int), slashed: new(big.Int)}
	for _, u := range unbonds {
		if u.Withdraw > epoch {
			continue
		}
		processedBy := func(e pos.Epoch) bool { return e.Add(offset) <= u.Withdraw }
		slashes := filterSlashes(validatorSlashes, func(sl *pos.Slash) bool {
			return u.Start <= sl.Epoch && processedBy(sl.Epoch)
		})

		rbonds, err := s.redelegationService.DelegatorUnbonded(id.Source, id.Validator, u.Start, u.Withdraw)
		if err != nil {
			return nil, err
		}
		redelegated, afterRedelegated, err := s.foldRedelegated(history, rbonds, u.Start, slashes, processedBy)
		if err != nil {
			return nil, err
		}

		after := slashing.ApplySlashesToAmount(s.params, slashes, new(big.Int).Sub(u.Amount, redelegated))
		after.Add(after, afterRedelegated)
		if after.Cmp(u.Amount) > 0 {
			after.Set(u.Amount)
		}

		plan.unbonds = append(plan.unbonds, u)
		plan.paid.Add(plan.paid, after)
		plan.slashed.Add(plan.slashed, new(big.Int).Sub(u.Amount, after))
	}
	return plan, nil
}
