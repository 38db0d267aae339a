// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package staker

import (
	"github.com/vechain/posledger/pos"
	"github.com/vechain/posledger/staker/reverts"
	"github.com/vechain/posledger/staker/validation"
)

// ValidatorConfig is the registration request of a new validator.
type ValidatorConfig struct {
	Address                 pos.Address
	ConsensusKey            []byte
	EthColdKey              []byte
	EthHotKey               []byte
	CommissionRate          pos.Dec
	MaxCommissionRateChange pos.Dec
}

func validRate(rate pos.Dec) bool {
	return !rate.IsNil() && !rate.IsNegative() && rate.LTE(pos.OneDec())
}

// BecomeValidator registers a validator with zero stake. It enters the below
// threshold set at the pipeline epoch.
func (s *Staker) BecomeValidator(cfg *ValidatorConfig) error {
	exists, err := s.validationService.IsValidator(cfg.Address)
	if err != nil {
		return err
	}
	if exists {
		return reverts.ErrValidatorAlreadyExists.Wrapf("%s", cfg.Address)
	}
	delegations, err := s.bondService.BondIDs(&cfg.Address)
	if err != nil {
		return err
	}
	if len(delegations) > 0 {
		return reverts.ErrInvalidBondSource.Wrapf("%s has delegations", cfg.Address)
	}
	if !validRate(cfg.CommissionRate) || !validRate(cfg.MaxCommissionRateChange) {
		return reverts.ErrInvalidCommissionRate.Wrapf("rate %s, max change %s", cfg.CommissionRate, cfg.MaxCommissionRateChange)
	}

	current, err := s.CurrentEpoch()
	if err != nil {
		return err
	}
	v := &validation.Validator{
		Address:      cfg.Address,
		ConsensusKey: cfg.ConsensusKey,
		EthColdKey:   cfg.EthColdKey,
		EthHotKey:    cfg.EthHotKey,
	}
	commission := pos.CommissionPair{Rate: cfg.CommissionRate, MaxChange: cfg.MaxCommissionRateChange}
	if err := s.validationService.Register(v, commission, current); err != nil {
		return err
	}

	metricOperations().AddWithLabel(1, map[string]string{"op": "become-validator"})
	logger.Info("validator registered", "validator", cfg.Address, "pipeline", s.pipelineEpoch(current))
	return nil
}

// ChangeCommission sets the commission rate of a validator from the pipeline epoch.
func (s *Staker) ChangeCommission(validator pos.Address, rate pos.Dec) error {
	if err := s.requireValidator(validator); err != nil {
		return err
	}
	if !validRate(rate) {
		return reverts.ErrInvalidCommissionRate.Wrapf("rate %s", rate)
	}
	current, err := s.CurrentEpoch()
	if err != nil {
		return err
	}
	prev, err := s.validationService.Commission(validator, s.pipelineEpoch(current).Prev())
	if err != nil {
		return err
	}
	if rate.Sub(prev.Rate).Abs().GT(prev.MaxChange) {
		return reverts.ErrCommissionChangeTooLarge.Wrapf("from %s to %s, max change %s", prev.Rate, rate, prev.MaxChange)
	}
	return s.validationService.SetCommissionRate(validator, rate, current)
}

// Deactivate takes a validator out of the sets at the pipeline epoch. Its
// bonds stay in place.
func (s *Staker) Deactivate(validator pos.Address) error {
	if err := s.requireValidator(validator); err != nil {
		return err
	}
	current, err := s.CurrentEpoch()
	if err != nil {
		return err
	}
	pipeline := s.pipelineEpoch(current)
	state, _, err := s.validationService.State(validator, pipeline)
	if err != nil {
		return err
	}
	switch state {
	case pos.Inactive:
		return reverts.ErrValidatorInactive.Wrapf("%s", validator)
	case pos.Jailed:
		return reverts.ErrValidatorJailed.Wrapf("%s", validator)
	}
	if _, err := s.validationService.Vacate(pipeline, validator, pos.Inactive, true); err != nil {
		return err
	}
	logger.Info("validator deactivated", "validator", validator, "pipeline", pipeline)
	return nil
}

// Reactivate puts an inactive validator back into the sets at the pipeline epoch.
func (s *Staker) Reactivate(validator pos.Address) error {
	if err := s.requireValidator(validator); err != nil {
		return err
	}
	current, err := s.CurrentEpoch()
	if err != nil {
		return err
	}
	pipeline := s.pipelineEpoch(current)
	state, _, err := s.validationService.State(validator, pipeline)
	if err != nil {
		return err
	}
	if state != pos.Inactive {
		return reverts.ErrValidatorNotInactive.Wrapf("%s is %s", validator, state)
	}
	frozen, err := s.slashingService.IsFrozen(validator, current)
	if err != nil {
		return err
	}
	if frozen {
		// a slash is still pending, the validator comes back jailed
		if err := s.validationService.SetState(validator, pipeline, pos.Jailed); err != nil {
			return err
		}
		logger.Info("validator reactivated jailed", "validator", validator, "pipeline", pipeline)
		return nil
	}
	if err := s.validationService.Place(pipeline, validator); err != nil {
		return err
	}
	logger.Info("validator reactivated", "validator", validator, "pipeline", pipeline)
	return nil
}
