// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package validation

import (
	"fmt"
	"math/big"
	"sort"

	"github.com/pkg/errors"

	"github.com/vechain/posledger/pos"
	"github.com/vechain/posledger/staker/epoched"
	"github.com/vechain/posledger/staker/reverts"
	"github.com/vechain/posledger/store"
)

// Validator is the static registration of a validator.
type Validator struct {
	Address             pos.Address
	ConsensusKey        []byte
	EthColdKey          []byte
	EthHotKey           []byte
	MaxCommissionChange *big.Int // raw decimal
}

// MaxCommissionRateChange returns the max commission change per epoch.
func (v *Validator) MaxCommissionRateChange() pos.Dec {
	return pos.DecFromRaw(v.MaxCommissionChange)
}

// Service owns validator registration, per-epoch states and stakes, and the three stake-ordered sets.
type Service struct {
	params *pos.Params

	registry      *store.Mapping[*Validator]
	consensusKeys *store.Mapping[pos.Address]

	states     *epoched.Epoched[pos.ValidatorState]
	stakes     *epoched.Epoched[*big.Int]
	commission *epoched.Epoched[*big.Int]

	consensus      *stakeSet
	belowCapacity  *stakeSet
	belowThreshold *store.Mapping[uint8]
	positions      *store.Mapping[uint64]
}

func New(sctx *store.Context, params *pos.Params) *Service {
	retention := params.StateRetention()
	return &Service{
		params: params,

		registry:      store.NewMapping[*Validator](sctx, "validators", store.RLP[*Validator]()),
		consensusKeys: store.NewMapping[pos.Address](sctx, "consensus-keys", store.RLP[pos.Address]()),

		states: epoched.New[pos.ValidatorState](
			sctx, "validator-states", store.RLP[pos.ValidatorState](), params, epoched.OffsetPipelineLen, retention),
		stakes: epoched.New[*big.Int](
			sctx, "validator-stakes", store.BigInt, params, epoched.OffsetPipelineLen, retention),
		commission: epoched.New[*big.Int](
			sctx, "validator-commission", store.BigInt, params, epoched.OffsetPipelineLen, epoched.KeepAll),

		consensus:      newStakeSet(sctx, "set-consensus"),
		belowCapacity:  newStakeSet(sctx, "set-below-capacity"),
		belowThreshold: store.NewMapping[uint8](sctx, "set-below-threshold", store.RLP[uint8]()),
		positions:      store.NewMapping[uint64](sctx, "set-positions", store.RLP[uint64]()),
	}
}

//
// Registry
//

// Register adds a validator with zero stake, effective at the pipeline epoch.
// The caller checks the address is not already registered.
func (s *Service) Register(v *Validator, commission pos.CommissionPair, current pos.Epoch) error {
	return s.register(v, commission, current.Add(s.params.PipelineLen), new(big.Int))
}

// RegisterGenesis adds a validator with its genesis stake, effective at epoch 0.
// Validators must be registered in descending stake order.
func (s *Service) RegisterGenesis(v *Validator, commission pos.CommissionPair, stake *big.Int) error {
	return s.register(v, commission, 0, stake)
}

func (s *Service) register(v *Validator, commission pos.CommissionPair, activation pos.Epoch, stake *big.Int) error {
	keyHash := pos.Blake2b(v.ConsensusKey)
	if _, used, err := s.consensusKeys.Get(keyHash.Bytes()); err != nil {
		return err
	} else if used {
		return reverts.ErrConsensusKeyInUse
	}
	v.MaxCommissionChange = pos.RawDec(commission.MaxChange)
	if err := s.registry.Set(v.Address.Bytes(), v); err != nil {
		return err
	}
	if err := s.consensusKeys.Set(keyHash.Bytes(), v.Address); err != nil {
		return err
	}
	if err := s.commission.SetAt(v.Address.Bytes(), pos.RawDec(commission.Rate), activation); err != nil {
		return err
	}
	if err := s.stakes.SetAt(v.Address.Bytes(), new(big.Int).Set(stake), activation); err != nil {
		return err
	}
	return s.Place(activation, v.Address)
}

// Get returns the registration of a validator, nil if unknown.
func (s *Service) Get(addr pos.Address) (*Validator, error) {
	v, _, err := s.registry.Get(addr.Bytes())
	return v, err
}

// IsValidator reports whether the address is a registered validator.
func (s *Service) IsValidator(addr pos.Address) (bool, error) {
	return s.registry.Has(addr.Bytes())
}

// Addresses returns every registered validator in address order.
func (s *Service) Addresses() ([]pos.Address, error) {
	var out []pos.Address
	err := s.registry.Iterate(nil, false, func(key []byte, _ *Validator) (bool, error) {
		out = append(out, pos.BytesToAddress(key))
		return true, nil
	})
	return out, err
}

//
// Epoched validator data
//

// State returns the state of a validator at epoch; found is false before it was registered.
func (s *Service) State(addr pos.Address, epoch pos.Epoch) (state pos.ValidatorState, found bool, err error) {
	return s.states.Get(addr.Bytes(), epoch)
}

// SetState writes the state of a validator at epoch.
func (s *Service) SetState(addr pos.Address, epoch pos.Epoch, state pos.ValidatorState) error {
	return s.states.SetAt(addr.Bytes(), state, epoch)
}

// Stake returns the total stake of a validator at epoch.
func (s *Service) Stake(addr pos.Address, epoch pos.Epoch) (*big.Int, error) {
	stake, found, err := s.stakes.Get(addr.Bytes(), epoch)
	if err != nil {
		return nil, err
	}
	if !found {
		return new(big.Int), nil
	}
	return stake, nil
}

// AddStake adds a signed change to the stake of a validator at epoch.
func (s *Service) AddStake(addr pos.Address, epoch pos.Epoch, change *big.Int) error {
	stake, err := s.Stake(addr, epoch)
	if err != nil {
		return err
	}
	updated := new(big.Int).Add(stake, change)
	if updated.Sign() < 0 {
		panic(fmt.Sprintf("negative stake of %s at epoch %d", addr, epoch))
	}
	return s.stakes.SetAt(addr.Bytes(), updated, epoch)
}

// Commission returns the commission pair of a validator at epoch.
func (s *Service) Commission(addr pos.Address, epoch pos.Epoch) (pos.CommissionPair, error) {
	v, err := s.Get(addr)
	if err != nil || v == nil {
		return pos.CommissionPair{}, err
	}
	raw, _, err := s.commission.Get(addr.Bytes(), epoch)
	if err != nil {
		return pos.CommissionPair{}, err
	}
	return pos.CommissionPair{Rate: pos.DecFromRaw(raw), MaxChange: v.MaxCommissionRateChange()}, nil
}

// SetCommissionRate writes the commission rate at the pipeline epoch.
func (s *Service) SetCommissionRate(addr pos.Address, rate pos.Dec, current pos.Epoch) error {
	return s.commission.Set(addr.Bytes(), pos.RawDec(rate), current)
}

//
// Sets
//

// View collects the set summary at epoch.
func (s *Service) View(epoch pos.Epoch) (View, error) {
	count, err := s.consensus.count(epoch)
	if err != nil {
		return View{}, err
	}
	minConsensus, err := s.consensus.min(epoch)
	if err != nil {
		return View{}, err
	}
	maxBelowCapacity, err := s.belowCapacity.max(epoch)
	if err != nil {
		return View{}, err
	}
	return View{
		Threshold:        s.params.ValidatorStakeThreshold,
		MaxSlots:         s.params.MaxValidatorSlots,
		ConsensusCount:   count,
		MinConsensus:     minConsensus,
		MaxBelowCapacity: maxBelowCapacity,
	}, nil
}

// UpdateValidatorSets rebalances the sets at epoch for a stake change of v.
// It must be called before the stake itself is updated, and never for a
// jailed or inactive validator.
func (s *Service) UpdateValidatorSets(epoch pos.Epoch, v pos.Address, delta *big.Int) error {
	if delta.Sign() == 0 {
		return nil
	}
	state, found, err := s.State(v, epoch)
	if err != nil {
		return err
	}
	if !found {
		panic(fmt.Sprintf("validator %s has no state at epoch %d", v, epoch))
	}
	stake, err := s.Stake(v, epoch)
	if err != nil {
		return err
	}
	view, err := s.View(epoch)
	if err != nil {
		return err
	}
	return s.apply(epoch, Transition(v, state, stake, delta, view))
}

// Place inserts v, absent from every set, at epoch according to its stake there.
func (s *Service) Place(epoch pos.Epoch, v pos.Address) error {
	stake, err := s.Stake(v, epoch)
	if err != nil {
		return err
	}
	view, err := s.View(epoch)
	if err != nil {
		return err
	}
	return s.apply(epoch, Placement(v, stake, view))
}

// Vacate takes v out of its set at epoch and sets the new state.
func (s *Service) Vacate(epoch pos.Epoch, v pos.Address, newState pos.ValidatorState, backfill bool) (pos.ValidatorState, error) {
	state, found, err := s.State(v, epoch)
	if err != nil {
		return 0, err
	}
	if !found {
		panic(fmt.Sprintf("validator %s has no state at epoch %d", v, epoch))
	}
	stake, err := s.Stake(v, epoch)
	if err != nil {
		return 0, err
	}
	view, err := s.View(epoch)
	if err != nil {
		return 0, err
	}
	if err := s.apply(epoch, Vacate(v, state, stake, view, backfill)); err != nil {
		return 0, err
	}
	return state, s.SetState(v, epoch, newState)
}

func (s *Service) positionKey(epoch pos.Epoch, v pos.Address) []byte {
	return store.Key(epoch.Bytes(), v.Bytes())
}

func (s *Service) apply(epoch pos.Epoch, ops []SetOp) error {
	for _, op := range ops {
		var err error
		if op.Kind == OpRemove {
			err = s.removeFromSet(epoch, op)
		} else {
			err = s.insertIntoSet(epoch, op)
		}
		if err != nil {
			return errors.Wrap(err, op.String())
		}
	}
	return nil
}

func (s *Service) removeFromSet(epoch pos.Epoch, op SetOp) error {
	pk := s.positionKey(epoch, op.Validator)
	switch op.Set {
	case pos.Consensus, pos.BelowCapacity:
		position, found, err := s.positions.Get(pk)
		if err != nil {
			return err
		}
		if !found {
			panic(fmt.Sprintf("validator %s has no position in %s at epoch %d", op.Validator, op.Set, epoch))
		}
		s.setOf(op.Set).remove(epoch, op.Stake, position)
		s.positions.Delete(pk)
	case pos.BelowThreshold:
		s.belowThreshold.Delete(pk)
	default:
		panic("not a set: " + op.Set.String())
	}
	return nil
}

func (s *Service) insertIntoSet(epoch pos.Epoch, op SetOp) error {
	pk := s.positionKey(epoch, op.Validator)
	switch op.Set {
	case pos.Consensus, pos.BelowCapacity:
		position, err := s.setOf(op.Set).insert(epoch, op.Stake, op.Validator)
		if err != nil {
			return err
		}
		if err := s.positions.Set(pk, position); err != nil {
			return err
		}
	case pos.BelowThreshold:
		if err := s.belowThreshold.Set(pk, 1); err != nil {
			return err
		}
	default:
		panic("not a set: " + op.Set.String())
	}
	return s.SetState(op.Validator, epoch, op.Set)
}

func (s *Service) setOf(state pos.ValidatorState) *stakeSet {
	if state == pos.Consensus {
		return s.consensus
	}
	return s.belowCapacity
}

// Members returns the members of a set at epoch, in ascending stake order for
// consensus and below capacity, in address order for below threshold.
func (s *Service) Members(set pos.ValidatorState, epoch pos.Epoch) ([]pos.WeightedValidator, error) {
	switch set {
	case pos.Consensus, pos.BelowCapacity:
		return s.setOf(set).members(epoch)
	case pos.BelowThreshold:
		var addrs []pos.Address
		if err := s.belowThreshold.Iterate(epoch.Bytes(), false, func(key []byte, _ uint8) (bool, error) {
			addrs = append(addrs, pos.BytesToAddress(key[8:]))
			return true, nil
		}); err != nil {
			return nil, err
		}
		out := make([]pos.WeightedValidator, 0, len(addrs))
		for _, addr := range addrs {
			stake, err := s.Stake(addr, epoch)
			if err != nil {
				return nil, err
			}
			out = append(out, pos.WeightedValidator{Address: addr, BondedStake: stake})
		}
		return out, nil
	default:
		return nil, errors.Errorf("not a set: %s", set)
	}
}

// ConsensusStake returns the total stake of the consensus set at epoch.
func (s *Service) ConsensusStake(epoch pos.Epoch) (*big.Int, error) {
	members, err := s.consensus.members(epoch)
	if err != nil {
		return nil, err
	}
	total := new(big.Int)
	for _, m := range members {
		total.Add(total, m.BondedStake)
	}
	return total, nil
}

//
// Epoch advance
//

// CopyDiscrete extends the pipeline horizon: sets, states and stakes at
// epoch.Prev() are materialized at epoch.
func (s *Service) CopyDiscrete(epoch pos.Epoch) error {
	prev := epoch.Prev()
	if err := s.consensus.copyEpoch(prev, epoch); err != nil {
		return err
	}
	if err := s.belowCapacity.copyEpoch(prev, epoch); err != nil {
		return err
	}
	if err := copyMarkers(s.belowThreshold, prev, epoch); err != nil {
		return err
	}
	if err := copyMarkers(s.positions, prev, epoch); err != nil {
		return err
	}

	addrs, err := s.Addresses()
	if err != nil {
		return err
	}
	for _, addr := range addrs {
		if err := materialize(s.states, addr.Bytes(), prev, epoch); err != nil {
			return err
		}
		if err := materialize(s.stakes, addr.Bytes(), prev, epoch); err != nil {
			return err
		}
	}
	return nil
}

func copyMarkers[V any](m *store.Mapping[V], from, to pos.Epoch) error {
	if err := m.DeletePrefix(to.Bytes()); err != nil {
		return err
	}
	type entry struct {
		key []byte
		val V
	}
	var entries []entry
	if err := m.Iterate(from.Bytes(), false, func(key []byte, v V) (bool, error) {
		entries = append(entries, entry{store.Key(to.Bytes(), key[8:]), v})
		return true, nil
	}); err != nil {
		return err
	}
	for _, e := range entries {
		if err := m.Set(e.key, e.val); err != nil {
			return err
		}
	}
	return nil
}

// materialize writes the value effective at prev explicitly at epoch, unless epoch already has one.
func materialize[V any](e *epoched.Epoched[V], sub []byte, prev, epoch pos.Epoch) error {
	if _, ok, err := e.GetExact(sub, epoch); err != nil || ok {
		return err
	}
	v, found, err := e.Get(sub, prev)
	if err != nil || !found {
		return err
	}
	return e.SetAt(sub, v, epoch)
}

// Prune drops set snapshots, states and stakes that fell out of the retention window.
func (s *Service) Prune(current pos.Epoch) error {
	retention := s.params.StateRetention()
	if uint64(current) <= retention {
		return nil
	}
	stale := current.SubSat(retention + 1)
	if err := s.consensus.clearEpoch(stale); err != nil {
		return err
	}
	if err := s.belowCapacity.clearEpoch(stale); err != nil {
		return err
	}
	if err := s.belowThreshold.DeletePrefix(stale.Bytes()); err != nil {
		return err
	}
	if err := s.positions.DeletePrefix(stale.Bytes()); err != nil {
		return err
	}

	addrs, err := s.Addresses()
	if err != nil {
		return err
	}
	for _, addr := range addrs {
		if err := s.states.Prune(addr.Bytes(), current); err != nil {
			return err
		}
		if err := s.stakes.Prune(addr.Bytes(), current); err != nil {
			return err
		}
	}
	return nil
}

// SetUpdates diffs the consensus set at epoch against the one at epoch.Prev().
// Updates are sorted by address.
func (s *Service) SetUpdates(epoch pos.Epoch) ([]pos.ValidatorSetUpdate, error) {
	cur, err := s.consensus.members(epoch)
	if err != nil {
		return nil, err
	}
	var prev []pos.WeightedValidator
	if epoch > 0 {
		if prev, err = s.consensus.members(epoch.Prev()); err != nil {
			return nil, err
		}
	}

	before := make(map[pos.Address]*big.Int, len(prev))
	for _, m := range prev {
		before[m.Address] = m.BondedStake
	}

	var updates []pos.ValidatorSetUpdate
	for _, m := range cur {
		if stake, ok := before[m.Address]; ok {
			delete(before, m.Address)
			if stake.Cmp(m.BondedStake) == 0 {
				continue
			}
		}
		updates = append(updates, pos.ValidatorSetUpdate{Address: m.Address, BondedStake: m.BondedStake})
	}
	for addr := range before {
		updates = append(updates, pos.ValidatorSetUpdate{Address: addr, BondedStake: new(big.Int), Removed: true})
	}

	for i := range updates {
		v, err := s.Get(updates[i].Address)
		if err != nil {
			return nil, err
		}
		if v != nil {
			updates[i].ConsensusKey = v.ConsensusKey
		}
	}
	sort.Slice(updates, func(i, j int) bool {
		return updates[i].Address.Compare(updates[j].Address) < 0
	})
	return updates, nil
}
