// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package staker

import (
	"context"

	"github.com/davecgh/go-spew/spew"

	"github.com/vechain/posledger/log"
	"github.com/vechain/posledger/pos"
)

// AdvanceEpoch moves the engine into the next epoch. It extends the pipeline
// horizon, processes the slashes due, prunes expired data and returns the
// consensus set changes taking effect in the new epoch.
func (s *Staker) AdvanceEpoch() ([]pos.ValidatorSetUpdate, error) {
	prev, err := s.CurrentEpoch()
	if err != nil {
		return nil, err
	}
	current := prev.Next()
	if err := s.epoch.Set(current); err != nil {
		return nil, err
	}

	if err := s.validationService.CopyDiscrete(s.pipelineEpoch(current)); err != nil {
		return nil, err
	}
	if err := s.processEnqueuedSlashes(current); err != nil {
		return nil, err
	}
	if err := s.prune(current); err != nil {
		return nil, err
	}

	updates, err := s.validationService.SetUpdates(current)
	if err != nil {
		return nil, err
	}

	metricEpoch().Set(int64(current))
	for _, set := range []pos.ValidatorState{pos.Consensus, pos.BelowCapacity, pos.BelowThreshold} {
		members, err := s.validationService.Members(set, current)
		if err != nil {
			return nil, err
		}
		metricSetSize().SetWithLabel(int64(len(members)), map[string]string{"set": set.String()})
	}

	logger.Info("🏠 epoch advanced", "epoch", current, "set-updates", len(updates))
	if logger.Enabled(context.Background(), log.LevelDebug) {
		logger.Debug("consensus set updates", "updates", spew.Sdump(updates))
	}
	return updates, nil
}

// prune drops what no operation can read any more.
func (s *Staker) prune(current pos.Epoch) error {
	if err := s.validationService.Prune(current); err != nil {
		return err
	}
	// the next infraction to process looks back one window
	windowStart := current.Next().SubSat(s.params.SlashProcessingEpochOffset() + s.params.CubicSlashingWindowLen)
	if err := s.slashingService.PruneProcessed(windowStart); err != nil {
		return err
	}
	before := current.SubSat(s.params.SlashProcessingEpochOffset())
	if before == 0 {
		return nil
	}
	validators, err := s.validationService.Addresses()
	if err != nil {
		return err
	}
	for _, v := range validators {
		if err := s.bondService.PruneTotalUnbonded(v, before); err != nil {
			return err
		}
		if err := s.redelegationService.PruneTotalUnbonded(v, before); err != nil {
			return err
		}
	}
	return nil
}
