// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package staker

import (
	"math/big"

	"github.com/pkg/errors"

	"github.com/vechain/posledger/log"
	"github.com/vechain/posledger/pos"
	"github.com/vechain/posledger/staker/bonds"
	"github.com/vechain/posledger/staker/redelegation"
	"github.com/vechain/posledger/staker/reverts"
	"github.com/vechain/posledger/staker/slashing"
	"github.com/vechain/posledger/staker/validation"
	"github.com/vechain/posledger/state"
	"github.com/vechain/posledger/store"
	"github.com/vechain/posledger/token"
)

const namespace = "staker"

var (
	logger = log.WithContext("pkg", "staker")

	// PoSAccount holds every bonded, unbonded and not yet withdrawn token.
	PoSAccount = pos.BytesToAddress([]byte("pos"))
	// SlashPoolAccount receives slashed tokens once they are settled.
	SlashPoolAccount = pos.BytesToAddress([]byte("pos-slash-pool"))
)

func SetLogger(l log.Logger) {
	logger = l
}

// Staker is the staking and slashing engine, bound to one state.
type Staker struct {
	params *pos.Params
	epoch  *store.Value[pos.Epoch]

	validationService   *validation.Service
	bondService         *bonds.Service
	redelegationService *redelegation.Service
	slashingService     *slashing.Service
	ledger              *token.Ledger
}

// New create a new instance.
func New(st *state.State, params *pos.Params) *Staker {
	sctx := store.NewContext(namespace, st)
	return &Staker{
		params: params,
		epoch:  store.NewValue[pos.Epoch](sctx, "epoch", store.RLP[pos.Epoch]()),

		validationService:   validation.New(sctx, params),
		bondService:         bonds.New(sctx, params),
		redelegationService: redelegation.New(sctx, params),
		slashingService:     slashing.New(sctx, params),
		ledger:              token.New(store.NewContext("token", st)),
	}
}

// ReadParams returns the params stored at genesis.
func ReadParams(st *state.State) (*pos.Params, error) {
	sctx := store.NewContext(namespace, st)
	params, ok, err := store.NewValue[*pos.Params](sctx, "params", store.RLP[*pos.Params]()).Get()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errors.New("staker params not initialized")
	}
	return params, nil
}

func writeParams(st *state.State, params *pos.Params) error {
	sctx := store.NewContext(namespace, st)
	return store.NewValue[*pos.Params](sctx, "params", store.RLP[*pos.Params]()).Set(params)
}

//
// Getters - no state change
//

// Params returns the chain params the engine runs with.
func (s *Staker) Params() *pos.Params {
	return s.params
}

// CurrentEpoch returns the epoch transactions currently execute in.
func (s *Staker) CurrentEpoch() (pos.Epoch, error) {
	epoch, _, err := s.epoch.Get()
	return epoch, err
}

func (s *Staker) pipelineEpoch(current pos.Epoch) pos.Epoch {
	return current.Add(s.params.PipelineLen)
}

// Validator returns the registration of a validator, nil if unknown.
func (s *Staker) Validator(addr pos.Address) (*validation.Validator, error) {
	return s.validationService.Get(addr)
}

// Validators returns every registered validator address.
func (s *Staker) Validators() ([]pos.Address, error) {
	return s.validationService.Addresses()
}

// ValidatorState returns the state of a validator at epoch.
func (s *Staker) ValidatorState(addr pos.Address, epoch pos.Epoch) (pos.ValidatorState, bool, error) {
	return s.validationService.State(addr, epoch)
}

// ValidatorStake returns the bonded stake of a validator at epoch.
func (s *Staker) ValidatorStake(addr pos.Address, epoch pos.Epoch) (*big.Int, error) {
	return s.validationService.Stake(addr, epoch)
}

// Commission returns the commission rate and its max change of a validator at epoch.
func (s *Staker) Commission(addr pos.Address, epoch pos.Epoch) (pos.CommissionPair, error) {
	return s.validationService.Commission(addr, epoch)
}

// ConsensusValidators returns the consensus set at epoch, ascending by stake.
func (s *Staker) ConsensusValidators(epoch pos.Epoch) ([]pos.WeightedValidator, error) {
	return s.validationService.Members(pos.Consensus, epoch)
}

// BelowCapacityValidators returns the below capacity set at epoch, ascending by stake.
func (s *Staker) BelowCapacityValidators(epoch pos.Epoch) ([]pos.WeightedValidator, error) {
	return s.validationService.Members(pos.BelowCapacity, epoch)
}

// BelowThresholdValidators returns the below threshold set at epoch.
func (s *Staker) BelowThresholdValidators(epoch pos.Epoch) ([]pos.WeightedValidator, error) {
	return s.validationService.Members(pos.BelowThreshold, epoch)
}

// TotalConsensusStake returns the stake of the consensus set at epoch.
func (s *Staker) TotalConsensusStake(epoch pos.Epoch) (*big.Int, error) {
	return s.validationService.ConsensusStake(epoch)
}

// ValidatorSetUpdates returns the consensus set changes taking effect at epoch.
func (s *Staker) ValidatorSetUpdates(epoch pos.Epoch) ([]pos.ValidatorSetUpdate, error) {
	return s.validationService.SetUpdates(epoch)
}

// BondAmount returns the bond of id effective at epoch.
func (s *Staker) BondAmount(id pos.BondID, epoch pos.Epoch) (*big.Int, error) {
	return s.bondService.BondAmount(id, epoch)
}

// Bonds returns the bond deltas of id by start epoch, pending ones included.
func (s *Staker) Bonds(id pos.BondID) (pos.EpochAmounts, error) {
	return s.bondService.Bonds(id)
}

// BondIDs returns the bonds of source, or every bond when source is nil.
func (s *Staker) BondIDs(source *pos.Address) ([]pos.BondID, error) {
	return s.bondService.BondIDs(source)
}

// Unbonds returns the pending unbonds of id.
func (s *Staker) Unbonds(id pos.BondID) ([]bonds.Unbond, error) {
	return s.bondService.Unbonds(id)
}

// Withdrawable returns what withdrawing id would pay at the current epoch.
func (s *Staker) Withdrawable(id pos.BondID) (*big.Int, error) {
	current, err := s.CurrentEpoch()
	if err != nil {
		return nil, err
	}
	plan, err := s.withdrawPlan(id, current)
	if err != nil {
		return nil, err
	}
	return plan.paid, nil
}

// ValidatorSlashes returns the processed slashes of a validator.
func (s *Staker) ValidatorSlashes(addr pos.Address) ([]*pos.Slash, error) {
	return s.slashingService.Slashes(addr)
}

// EnqueuedSlashes returns the slashes to be processed at epoch.
func (s *Staker) EnqueuedSlashes(epoch pos.Epoch) ([]slashing.ValidatorSlashes, error) {
	return s.slashingService.Enqueued(epoch)
}

// LastSlashEpoch returns the most recent infraction epoch of a validator.
func (s *Staker) LastSlashEpoch(addr pos.Address) (pos.Epoch, bool, error) {
	return s.slashingService.LastSlashEpoch(addr)
}

// Balance returns the token balance of an address.
func (s *Staker) Balance(addr pos.Address) (*big.Int, error) {
	return s.ledger.Balance(addr)
}

// Mint credits tokens to an address. Used by genesis allocations and dev tooling.
func (s *Staker) Mint(addr pos.Address, amount *big.Int) error {
	return s.ledger.Credit(addr, amount)
}

//
// Helpers
//

// requireValidator fails with ErrNotAValidator when addr is not registered.
func (s *Staker) requireValidator(addr pos.Address) error {
	ok, err := s.validationService.IsValidator(addr)
	if err != nil {
		return err
	}
	if !ok {
		return reverts.ErrNotAValidator.Wrapf("%s", addr)
	}
	return nil
}

func requireNonNegative(amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return reverts.ErrUnderflow.Wrapf("amount %v", amount)
	}
	return nil
}

// changeStake applies a stake change of v at epoch, rebalancing the sets when v occupies one.
func (s *Staker) changeStake(v pos.Address, epoch pos.Epoch, delta *big.Int) error {
	if delta.Sign() == 0 {
		return nil
	}
	state, found, err := s.validationService.State(v, epoch)
	if err != nil {
		return err
	}
	if found && state.InSet() {
		if err := s.validationService.UpdateValidatorSets(epoch, v, delta); err != nil {
			return err
		}
	}
	return s.validationService.AddStake(v, epoch, delta)
}
