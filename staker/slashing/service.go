// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package slashing

import (
	"math/big"

	"github.com/vechain/posledger/pos"
	"github.com/vechain/posledger/store"
)

// ValidatorSlashes groups the slashes of one validator.
type ValidatorSlashes struct {
	Validator pos.Address
	Slashes   []*pos.Slash
}

// Service stores enqueued and processed slashes.
type Service struct {
	params *pos.Params

	enqueued  *store.Mapping[*pos.Slash] // processing epoch|validator|index
	processed *store.Mapping[*pos.Slash] // validator|index
	windowed  *store.Mapping[*pos.Slash] // infraction epoch|validator|index
	lastSlash *store.Mapping[pos.Epoch]  // validator

	// slashed tokens moved to the pool at processing that no withdrawal
	// or redelegation has accounted for yet
	presettled *store.Value[*big.Int]
}

func New(sctx *store.Context, params *pos.Params) *Service {
	return &Service{
		params:    params,
		enqueued:  store.NewMapping[*pos.Slash](sctx, "enqueued-slashes", store.RLP[*pos.Slash]()),
		processed: store.NewMapping[*pos.Slash](sctx, "validator-slashes", store.RLP[*pos.Slash]()),
		windowed:  store.NewMapping[*pos.Slash](sctx, "processed-by-infraction", store.RLP[*pos.Slash]()),
		lastSlash: store.NewMapping[pos.Epoch](sctx, "last-slash-epoch", store.RLP[pos.Epoch]()),

		presettled: store.NewValue[*big.Int](sctx, "presettled", store.BigInt),
	}
}

// nextIndex returns the index after the last entry under prefix.
func nextIndex(m *store.Mapping[*pos.Slash], prefix []byte) (uint64, error) {
	next := uint64(0)
	err := m.Iterate(prefix, true, func(key []byte, _ *pos.Slash) (bool, error) {
		next = store.Uint64FromKey(key[len(prefix):]) + 1
		return false, nil
	})
	return next, err
}

// Enqueue schedules a slash of validator for processing at the given epoch,
// and records the infraction epoch as its last slash epoch if newer.
func (s *Service) Enqueue(processing pos.Epoch, validator pos.Address, slash *pos.Slash) error {
	prefix := store.Key(processing.Bytes(), validator.Bytes())
	index, err := nextIndex(s.enqueued, prefix)
	if err != nil {
		return err
	}
	if err := s.enqueued.Set(store.Key(prefix, store.Uint64Key(index)), slash); err != nil {
		return err
	}

	last, found, err := s.LastSlashEpoch(validator)
	if err != nil {
		return err
	}
	if !found || slash.Epoch > last {
		return s.lastSlash.Set(validator.Bytes(), slash.Epoch)
	}
	return nil
}

// Enqueued returns the slashes to process at epoch, grouped by validator in address order.
func (s *Service) Enqueued(processing pos.Epoch) ([]ValidatorSlashes, error) {
	return groupByValidator(s.enqueued, processing)
}

// ProcessedAt returns the processed slashes for infractions committed at
// epoch, grouped by validator in address order. Entries are kept only while
// they fall in the cubic window of an unprocessed infraction.
func (s *Service) ProcessedAt(infraction pos.Epoch) ([]ValidatorSlashes, error) {
	return groupByValidator(s.windowed, infraction)
}

// groupByValidator reads the epoch|validator|index entries of epoch.
func groupByValidator(m *store.Mapping[*pos.Slash], epoch pos.Epoch) ([]ValidatorSlashes, error) {
	var out []ValidatorSlashes
	err := m.Iterate(epoch.Bytes(), false, func(key []byte, slash *pos.Slash) (bool, error) {
		validator := pos.BytesToAddress(key[8 : 8+pos.AddressLength])
		if n := len(out); n == 0 || out[n-1].Validator != validator {
			out = append(out, ValidatorSlashes{Validator: validator})
		}
		out[len(out)-1].Slashes = append(out[len(out)-1].Slashes, slash)
		return true, nil
	})
	return out, err
}

// ClearEnqueued removes every slash enqueued for epoch.
func (s *Service) ClearEnqueued(processing pos.Epoch) error {
	return s.enqueued.DeletePrefix(processing.Bytes())
}

// Record appends a processed slash to the history of validator.
func (s *Service) Record(validator pos.Address, slash *pos.Slash) error {
	index, err := nextIndex(s.processed, validator.Bytes())
	if err != nil {
		return err
	}
	if err := s.processed.Set(store.Key(validator.Bytes(), store.Uint64Key(index)), slash); err != nil {
		return err
	}

	prefix := store.Key(slash.Epoch.Bytes(), validator.Bytes())
	if index, err = nextIndex(s.windowed, prefix); err != nil {
		return err
	}
	return s.windowed.Set(store.Key(prefix, store.Uint64Key(index)), slash)
}

// PruneProcessed drops the infraction index entries of epochs before the given one.
func (s *Service) PruneProcessed(before pos.Epoch) error {
	var stale [][]byte
	if err := s.windowed.IterateRange(nil, before.Bytes(), false, func(key []byte, _ *pos.Slash) (bool, error) {
		stale = append(stale, key)
		return true, nil
	}); err != nil {
		return err
	}
	for _, key := range stale {
		s.windowed.Delete(key)
	}
	return nil
}

// Presettled returns the slashed tokens already in the slash pool whose bonds
// are still held.
func (s *Service) Presettled() (*big.Int, error) {
	amount, ok, err := s.presettled.Get()
	if err != nil {
		return nil, err
	}
	if !ok {
		return new(big.Int), nil
	}
	return amount, nil
}

// AddPresettled records amount moved to the slash pool at processing.
func (s *Service) AddPresettled(amount *big.Int) error {
	total, err := s.Presettled()
	if err != nil {
		return err
	}
	return s.presettled.Set(total.Add(total, amount))
}

// TakePresettled consumes up to amount of the presettled tokens and returns
// what it took.
func (s *Service) TakePresettled(amount *big.Int) (*big.Int, error) {
	total, err := s.Presettled()
	if err != nil {
		return nil, err
	}
	taken := new(big.Int).Set(amount)
	if taken.Cmp(total) > 0 {
		taken.Set(total)
	}
	if taken.Sign() <= 0 {
		return new(big.Int), nil
	}
	return taken, s.presettled.Set(total.Sub(total, taken))
}

// Slashes returns the processed slashes of validator in processing order.
func (s *Service) Slashes(validator pos.Address) ([]*pos.Slash, error) {
	var out []*pos.Slash
	err := s.processed.Iterate(validator.Bytes(), false, func(_ []byte, slash *pos.Slash) (bool, error) {
		out = append(out, slash)
		return true, nil
	})
	return out, err
}

// LastSlashEpoch returns the most recent infraction epoch of validator.
func (s *Service) LastSlashEpoch(validator pos.Address) (pos.Epoch, bool, error) {
	return s.lastSlash.Get(validator.Bytes())
}

// IsFrozen reports whether a slash of validator may still be processed after epoch.
func (s *Service) IsFrozen(validator pos.Address, epoch pos.Epoch) (bool, error) {
	last, found, err := s.LastSlashEpoch(validator)
	if err != nil || !found {
		return false, err
	}
	return last.Add(s.params.SlashProcessingEpochOffset()) > epoch, nil
}
