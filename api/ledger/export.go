// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package ledger

import (
	"slices"

	"golang.org/x/sync/errgroup"

	"github.com/vechain/posledger/pos"
	"github.com/vechain/posledger/staker"
	"github.com/vechain/posledger/state"
)

// Dump is a full view of the committed ledger.
type Dump struct {
	Status     *Status      `json:"status"`
	Validators []*Validator `json:"validators"`
	Sets       []*Sets      `json:"sets"`
	Accounts   []*Account   `json:"accounts"`
}

// Export dumps the committed ledger: validators at the current epoch, the
// sets from the current epoch to the pipeline epoch and every account that
// holds a bond, plus the protocol accounts.
func (l *Ledger) Export() (*Dump, error) {
	var dump Dump
	err := l.view(func(snap *state.Snapshot, s *staker.Staker, current pos.Epoch) error {
		status, err := l.status(snap, current)
		if err != nil {
			return err
		}
		dump.Status = status

		ids, err := s.BondIDs(nil)
		if err != nil {
			return err
		}
		addrs := []pos.Address{staker.PoSAccount, staker.SlashPoolAccount}
		for _, id := range ids {
			addrs = append(addrs, id.Source)
		}
		slices.SortFunc(addrs, pos.Address.Compare)
		addrs = slices.Compact(addrs)

		epochs := current.Range(l.params.PipelineLen + 1)
		dump.Sets = make([]*Sets, len(epochs))
		dump.Accounts = make([]*Account, len(addrs))

		var g errgroup.Group
		g.SetLimit(8)
		g.Go(func() error {
			validators, err := l.validators(snap, staker.New(snap.NewState(), l.params), current)
			dump.Validators = validators
			return err
		})
		for i, epoch := range epochs {
			g.Go(func() error {
				sets, err := l.sets(snap, staker.New(snap.NewState(), l.params), epoch)
				dump.Sets[i] = sets
				return err
			})
		}
		for i, addr := range addrs {
			g.Go(func() error {
				acc, err := l.account(snap, staker.New(snap.NewState(), l.params), addr, current)
				dump.Accounts[i] = acc
				return err
			})
		}
		return g.Wait()
	})
	if err != nil {
		return nil, err
	}
	return &dump, nil
}
