// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package staker

import (
	"math/big"

	"github.com/vechain/posledger/pos"
	"github.com/vechain/posledger/staker/redelegation"
	"github.com/vechain/posledger/staker/reverts"
	"github.com/vechain/posledger/staker/slashing"
)

// Slash reports a misbehavior of validator committed at infraction. The slash
// is processed once the processing epoch is reached; meanwhile the validator is
// jailed from the next epoch through the pipeline epoch.
func (s *Staker) Slash(validator pos.Address, slashType pos.SlashType, infraction pos.Epoch, height uint64) error {
	if err := s.requireValidator(validator); err != nil {
		return err
	}
	current, err := s.CurrentEpoch()
	if err != nil {
		return err
	}
	if infraction > current || uint64(current-infraction) > s.params.UnbondingLen {
		return reverts.ErrEpochOutOfRange.Wrapf("infraction epoch %d at epoch %d", infraction, current)
	}
	state, found, err := s.validationService.State(validator, infraction)
	if err != nil {
		return err
	}
	if !found || state != pos.Consensus {
		return reverts.ErrNotEligibleForMisbehavior.Wrapf("%s is %s at epoch %d", validator, state, infraction)
	}

	processing := infraction.Add(s.params.SlashProcessingEpochOffset())
	slash := &pos.Slash{Epoch: infraction, BlockHeight: height, Type: slashType, Rate: pos.ZeroDec()}
	if err := s.slashingService.Enqueue(processing, validator, slash); err != nil {
		return err
	}

	for offset := uint64(1); offset <= s.params.PipelineLen; offset++ {
		epoch := current.Add(offset)
		state, found, err := s.validationService.State(validator, epoch)
		if err != nil {
			return err
		}
		if !found || state == pos.Jailed {
			continue
		}
		if state == pos.Inactive {
			// in no set, nothing to vacate
			if err := s.validationService.SetState(validator, epoch, pos.Jailed); err != nil {
				return err
			}
			continue
		}
		// a vacated consensus slot is backfilled at the pipeline epoch only
		if _, err := s.validationService.Vacate(epoch, validator, pos.Jailed, offset == s.params.PipelineLen); err != nil {
			return err
		}
	}

	metricOperations().AddWithLabel(1, map[string]string{"op": "slash"})
	logger.Info("misbehavior reported", "validator", validator, "type", slashType, "infraction", infraction, "processing", processing)
	return nil
}

// Unjail puts a jailed validator back into the sets at the pipeline epoch.
func (s *Staker) Unjail(validator pos.Address) error {
	if err := s.requireValidator(validator); err != nil {
		return err
	}
	current, err := s.CurrentEpoch()
	if err != nil {
		return err
	}
	pipeline := s.pipelineEpoch(current)
	for epoch := current; epoch <= pipeline; epoch++ {
		state, _, err := s.validationService.State(validator, epoch)
		if err != nil {
			return err
		}
		if state != pos.Jailed {
			return reverts.ErrValidatorNotJailed.Wrapf("%s is %s at epoch %d", validator, state, epoch)
		}
	}
	last, found, err := s.slashingService.LastSlashEpoch(validator)
	if err != nil {
		return err
	}
	if found && uint64(current) < uint64(last)+s.params.UnbondingLen {
		return reverts.ErrValidatorFrozen.Wrapf("%s last slashed at epoch %d", validator, last)
	}

	if err := s.validationService.Place(pipeline, validator); err != nil {
		return err
	}
	metricOperations().AddWithLabel(1, map[string]string{"op": "unjail"})
	logger.Info("validator unjailed", "validator", validator, "pipeline", pipeline)
	return nil
}

// processEnqueuedSlashes processes the slashes whose processing epoch is current.
// All stake changes are computed from the slash history as it was before this
// batch; the batch itself is recorded last.
func (s *Staker) processEnqueuedSlashes(current pos.Epoch) error {
	enqueued, err := s.slashingService.Enqueued(current)
	if err != nil {
		return err
	}
	if len(enqueued) == 0 {
		return nil
	}

	cubic, err := s.cubicSlashRate(current)
	if err != nil {
		return err
	}

	history := s.newSlashHistory()
	deltas := make(map[pos.Address]pos.EpochAmounts)
	for _, vs := range enqueued {
		rate := slashing.EffectiveRate(s.params, vs.Slashes, cubic)
		if err := s.processValidatorSlash(history, vs.Validator, rate, current, deltas); err != nil {
			return err
		}
	}

	validators := make([]pos.Address, 0, len(deltas))
	for v := range deltas {
		validators = append(validators, v)
	}
	pos.SortAddresses(validators)
	settled := new(big.Int)
	for _, v := range validators {
		epochs := deltas[v].Epochs()
		// later epochs first: an epoch without its own stake entry reads the previous one
		for i := len(epochs) - 1; i >= 0; i-- {
			applied, err := s.applySlash(v, epochs[i], deltas[v][epochs[i]])
			if err != nil {
				return err
			}
			if epochs[i] == current {
				settled.Add(settled, applied)
			}
		}
	}
	// the stake taken off at current leaves the PoS account now
	if err := s.ledger.Transfer(PoSAccount, SlashPoolAccount, settled); err != nil {
		return err
	}
	if err := s.slashingService.AddPresettled(settled); err != nil {
		return err
	}

	for _, vs := range enqueued {
		for _, sl := range vs.Slashes {
			processed := &pos.Slash{
				Epoch:       sl.Epoch,
				BlockHeight: sl.BlockHeight,
				Type:        sl.Type,
				Rate:        slashing.SlashRate(s.params, sl.Type, cubic),
			}
			if err := s.slashingService.Record(vs.Validator, processed); err != nil {
				return err
			}
			metricSlashesProcessed().Add(1)
		}
		logger.Info("slash processed", "validator", vs.Validator, "count", len(vs.Slashes), "cubic-rate", cubic)
	}
	return s.slashingService.ClearEnqueued(current)
}

// applySlash takes amount off the stake of v at epoch and returns what it took.
func (s *Staker) applySlash(v pos.Address, epoch pos.Epoch, amount *big.Int) (*big.Int, error) {
	if amount.Sign() == 0 {
		return amount, nil
	}
	stake, err := s.validationService.Stake(v, epoch)
	if err != nil {
		return nil, err
	}
	if amount.Cmp(stake) > 0 {
		logger.Warn("slash exceeds stake", "validator", v, "epoch", epoch, "slash", amount, "stake", stake)
		amount = stake
	}
	return amount, s.changeStake(v, epoch, new(big.Int).Neg(amount))
}

// settleSlashed moves to the slash pool the part of slashed that processing
// did not move there already.
func (s *Staker) settleSlashed(slashed *big.Int) error {
	if slashed.Sign() <= 0 {
		return nil
	}
	taken, err := s.slashingService.TakePresettled(slashed)
	if err != nil {
		return err
	}
	return s.ledger.Transfer(PoSAccount, SlashPoolAccount, new(big.Int).Sub(slashed, taken))
}

// cubicSlashRate sums, over the window around the infraction epoch processed
// at current, the voting power of every validator slashed for an infraction
// at that epoch. Slashes of earlier infractions in the window are already
// processed and read from the infraction index, later ones are still enqueued.
func (s *Staker) cubicSlashRate(current pos.Epoch) (pos.Dec, error) {
	offset := s.params.SlashProcessingEpochOffset()
	window := s.params.CubicSlashingWindowLen
	infraction := current.SubSat(offset)

	sum := pos.ZeroDec()
	for epoch := infraction.SubSat(window); epoch <= infraction.Add(window); epoch++ {
		consensusStake, err := s.validationService.ConsensusStake(epoch)
		if err != nil {
			return pos.Dec{}, err
		}
		var slashes []slashing.ValidatorSlashes
		if processing := epoch.Add(offset); processing < current {
			slashes, err = s.slashingService.ProcessedAt(epoch)
		} else {
			slashes, err = s.slashingService.Enqueued(processing)
		}
		if err != nil {
			return pos.Dec{}, err
		}
		for _, vs := range slashes {
			stake, err := s.validationService.Stake(vs.Validator, epoch)
			if err != nil {
				return pos.Dec{}, err
			}
			sum = sum.Add(slashing.VotingPowerFraction(len(vs.Slashes), stake, consensusStake))
		}
	}
	return slashing.CubicRate(sum), nil
}

// processValidatorSlash accumulates into deltas the stake to take off the
// slashed validator, and off every validator it redelegated to.
func (s *Staker) processValidatorSlash(
	history *slashHistory,
	validator pos.Address,
	rate pos.Dec,
	current pos.Epoch,
	deltas map[pos.Address]pos.EpochAmounts,
) error {
	slashed, err := s.slashValidator(history, validator, rate, current)
	if err != nil {
		return err
	}
	acc, ok := deltas[validator]
	if !ok {
		acc = make(pos.EpochAmounts)
		deltas[validator] = acc
	}
	for epoch, amount := range slashed {
		acc.Add(epoch, amount)
	}

	dests, err := s.redelegationService.OutgoingDests(validator)
	if err != nil {
		return err
	}
	for _, dest := range dests {
		toModify, ok := deltas[dest]
		if !ok {
			toModify = make(pos.EpochAmounts)
		}
		if err := s.slashValidatorRedelegation(history, validator, dest, rate, current, toModify); err != nil {
			return err
		}
		if len(toModify) > 0 {
			deltas[dest] = toModify
		}
	}
	return nil
}

// slashValidator returns the cumulative stake to take off validator at every
// epoch from current through the pipeline epoch. Stake unbonded at a later
// epoch was still bonded at the earlier ones, so walking backwards each epoch
// adds the bonds unbonded as of the epoch after it.
func (s *Staker) slashValidator(history *slashHistory, validator pos.Address, rate pos.Dec, current pos.Epoch) (pos.EpochAmounts, error) {
	infraction := current.SubSat(s.params.SlashProcessingEpochOffset())
	beforeInfraction := func(e pos.Epoch) bool { return e <= infraction }

	totalBonded, err := s.bondService.TotalBonded(validator)
	if err != nil {
		return nil, err
	}
	totalBonded = totalBonded.Filter(beforeInfraction)
	allRedelegated, err := s.redelegationService.TotalBonded(validator)
	if err != nil {
		return nil, err
	}
	redelegated := restrictTo(allRedelegated, totalBonded)

	slashed := make(pos.EpochAmounts)
	sum := new(big.Int)
	epochs := current.Range(s.params.PipelineLen)
	for i := len(epochs) - 1; i >= 0; i-- {
		epoch := epochs[i]
		amount := new(big.Int)
		for _, start := range totalBonded.Epochs() {
			due, err := s.computeSlashBondAtEpoch(history, validator, epoch, infraction, start, totalBonded[start], redelegated[start], rate)
			if err != nil {
				return nil, err
			}
			amount.Add(amount, due)
		}

		unbonded, err := s.bondService.TotalUnbonded(validator, epoch)
		if err != nil {
			return nil, err
		}
		redelegatedUnbonded, err := s.redelegationService.TotalUnbonded(validator, epoch)
		if err != nil {
			return nil, err
		}
		totalBonded = unbonded.Filter(beforeInfraction)
		redelegated = restrictTo(redelegatedUnbonded, totalBonded)

		sum.Add(sum, amount)
		slashed[epoch] = new(big.Int).Set(sum)
	}
	pipeline := s.pipelineEpoch(current)
	slashed[pipeline] = new(big.Int).Set(slashed.Get(pipeline.Prev()))
	return slashed, nil
}

// computeSlashBondAtEpoch is the part of a bond slashed at epoch: the rate
// applied to the bond at the infraction, bounded by what is left of it at epoch.
func (s *Staker) computeSlashBondAtEpoch(
	history *slashHistory,
	validator pos.Address,
	epoch, infraction, start pos.Epoch,
	amount *big.Int,
	redelegated redelegation.Bonds,
	rate pos.Dec,
) (*big.Int, error) {
	atInfraction, err := s.computeBondAtEpoch(history, validator, infraction, start, amount, redelegated)
	if err != nil {
		return nil, err
	}
	due := pos.MulCeil(rate, atInfraction)
	slashable, err := s.computeBondAtEpoch(history, validator, epoch, start, amount, redelegated)
	if err != nil {
		return nil, err
	}
	if slashable.Cmp(due) < 0 {
		return slashable, nil
	}
	return due, nil
}

// computeBondAtEpoch is what is left at epoch of a bond started at start
// after the slashes processed by then, including slashes of the sources of
// its redelegated part.
func (s *Staker) computeBondAtEpoch(
	history *slashHistory,
	validator pos.Address,
	epoch, start pos.Epoch,
	amount *big.Int,
	redelegated redelegation.Bonds,
) (*big.Int, error) {
	validatorSlashes, err := history.get(validator)
	if err != nil {
		return nil, err
	}
	offset := s.params.SlashProcessingEpochOffset()
	processedBy := func(e pos.Epoch) bool { return e.Add(offset) <= epoch }
	slashes := filterSlashes(validatorSlashes, func(sl *pos.Slash) bool {
		return start <= sl.Epoch && processedBy(sl.Epoch)
	})

	total, afterRedelegated, err := s.foldRedelegated(history, redelegated, start, slashes, processedBy)
	if err != nil {
		return nil, err
	}
	after := slashing.ApplySlashesToAmount(s.params, slashes, new(big.Int).Sub(amount, total))
	return after.Add(after, afterRedelegated), nil
}

// slashValidatorRedelegation accumulates into toModify the stake to take off
// dest for bonds src redelegated to it that are liable for the infraction.
func (s *Staker) slashValidatorRedelegation(
	history *slashHistory,
	src, dest pos.Address,
	rate pos.Dec,
	current pos.Epoch,
	toModify pos.EpochAmounts,
) error {
	infraction := current.SubSat(s.params.SlashProcessingEpochOffset())
	srcSlashes, err := history.get(src)
	if err != nil {
		return err
	}
	outgoing, err := s.redelegationService.Outgoing(src, dest)
	if err != nil {
		return err
	}
	for _, o := range outgoing {
		end := s.params.RedelegationEndEpochFromStart(o.RedelStart)
		if !s.params.InRedelegationSlashingWindow(infraction, o.RedelStart, end) || o.SrcStart > infraction {
			continue
		}
		if err := s.slashRedelegation(src, dest, o.Amount, o.SrcStart, end, rate, srcSlashes, current, toModify); err != nil {
			return err
		}
	}
	return nil
}

// slashRedelegation slashes one redelegated bond at dest from the epoch after
// current through the pipeline epoch. Whatever dest already unbonded of it
// since the infraction is not slashable there.
func (s *Staker) slashRedelegation(
	src, dest pos.Address,
	amount *big.Int,
	bondStart, redelBondStart pos.Epoch,
	rate pos.Dec,
	srcSlashes []*pos.Slash,
	current pos.Epoch,
	toModify pos.EpochAmounts,
) error {
	offset := s.params.SlashProcessingEpochOffset()
	infraction := current.SubSat(offset)
	setUpdate := current.Next()

	unbondedAt := func(epoch pos.Epoch) (*big.Int, error) {
		unbonded, err := s.redelegationService.TotalUnbonded(dest, epoch)
		if err != nil {
			return nil, err
		}
		return unbonded[redelBondStart][src].Get(bondStart), nil
	}

	totalUnbonded := new(big.Int)
	for epoch := infraction.Next(); epoch <= setUpdate; epoch++ {
		unbonded, err := unbondedAt(epoch)
		if err != nil {
			return err
		}
		totalUnbonded.Add(totalUnbonded, unbonded)
	}

	redelStart := s.params.RedelegationStartEpochFromEnd(redelBondStart)
	inWindow := func(sl *pos.Slash) bool {
		return s.params.InRedelegationSlashingWindow(sl.Epoch, redelStart, redelBondStart) && bondStart <= sl.Epoch
	}
	processed := filterSlashes(srcSlashes, func(sl *pos.Slash) bool {
		return inWindow(sl) && sl.Epoch.Add(offset) <= infraction
	})
	liable := filterSlashes(srcSlashes, inWindow)

	for _, epoch := range setUpdate.Range(s.params.PipelineLen) {
		unbonded, err := unbondedAt(epoch)
		if err != nil {
			return err
		}
		totalUnbonded = new(big.Int).Add(totalUnbonded, unbonded)

		slashable := new(big.Int).Sub(amount, totalUnbonded)
		if slashable.Sign() < 0 {
			slashable.SetInt64(0)
		}
		slashed := pos.MulCeil(rate, slashing.ApplySlashesToAmount(s.params, processed, slashable))
		slashableStake := pos.MulCeil(rate, slashing.ApplySlashesToAmount(s.params, liable, slashable))

		toSlash := slashed
		if slashableStake.Cmp(toSlash) < 0 {
			toSlash = slashableStake
		}
		if toSlash.Sign() != 0 {
			toModify.Add(epoch, toSlash)
		}
	}
	return nil
}

//
// Slash history helpers
//

// slashHistory caches processed slashes per validator for one computation.
type slashHistory struct {
	load   func(pos.Address) ([]*pos.Slash, error)
	byAddr map[pos.Address][]*pos.Slash
}

func (s *Staker) newSlashHistory() *slashHistory {
	return &slashHistory{
		load:   s.slashingService.Slashes,
		byAddr: make(map[pos.Address][]*pos.Slash),
	}
}

func (h *slashHistory) get(addr pos.Address) ([]*pos.Slash, error) {
	if slashes, ok := h.byAddr[addr]; ok {
		return slashes, nil
	}
	slashes, err := h.load(addr)
	if err != nil {
		return nil, err
	}
	h.byAddr[addr] = slashes
	return slashes, nil
}

func filterSlashes(slashes []*pos.Slash, keep func(*pos.Slash) bool) []*pos.Slash {
	var out []*pos.Slash
	for _, sl := range slashes {
		if keep(sl) {
			out = append(out, sl)
		}
	}
	return out
}

// foldRedelegated applies to the redelegated part of a bond started at start
// both the given slashes and the slashes of each source validator the part is
// liable for. It returns the redelegated total and what is left of it.
func (s *Staker) foldRedelegated(
	history *slashHistory,
	redelegated redelegation.Bonds,
	start pos.Epoch,
	slashes []*pos.Slash,
	srcFilter func(pos.Epoch) bool,
) (total, after *big.Int, err error) {
	total, after = new(big.Int), new(big.Int)
	redelStart := s.params.RedelegationStartEpochFromEnd(start)
	for _, src := range redelegated.Sources() {
		srcSlashes, err := history.get(src)
		if err != nil {
			return nil, nil, err
		}
		for _, srcStart := range redelegated[src].Epochs() {
			bonded := redelegated[src][srcStart]
			liable := filterSlashes(srcSlashes, func(sl *pos.Slash) bool {
				return s.params.InRedelegationSlashingWindow(sl.Epoch, redelStart, start) &&
					srcStart <= sl.Epoch &&
					(srcFilter == nil || srcFilter(sl.Epoch))
			})
			merged := append(append(make([]*pos.Slash, 0, len(slashes)+len(liable)), slashes...), liable...)
			slashing.SortByEpoch(merged)

			total.Add(total, bonded)
			after.Add(after, slashing.ApplySlashesToAmount(s.params, merged, bonded))
		}
	}
	return total, after, nil
}

// restrictTo keeps the redelegated bonds whose start epoch has a bond entry.
func restrictTo(redelegated redelegation.BondsByStart, entries pos.EpochAmounts) redelegation.BondsByStart {
	out := make(redelegation.BondsByStart)
	for start := range entries {
		if rbonds, ok := redelegated[start]; ok {
			out[start] = rbonds
		}
	}
	return out
}
