// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package ledger

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/vechain/posledger/api/restutil"
	"github.com/vechain/posledger/genesis"
	"github.com/vechain/posledger/pos"
	"github.com/vechain/posledger/staker"
	"github.com/vechain/posledger/state"
)

// Ledger serves read-only queries over the committed ledger state.
type Ledger struct {
	creator *state.Creator
	params  *pos.Params
}

func New(creator *state.Creator, params *pos.Params) *Ledger {
	return &Ledger{creator, params}
}

// view runs fn against one snapshot of the committed state.
func (l *Ledger) view(fn func(snap *state.Snapshot, s *staker.Staker, current pos.Epoch) error) error {
	snap := l.creator.NewSnapshot()
	defer snap.Release()

	s := staker.New(snap.NewState(), l.params)
	current, err := s.CurrentEpoch()
	if err != nil {
		return err
	}
	return fn(snap, s, current)
}

func (l *Ledger) status(snap *state.Snapshot, current pos.Epoch) (*Status, error) {
	status := &Status{
		Epoch:    current,
		Pipeline: current.Add(l.params.PipelineLen),
		Params:   convertParams(l.params),
	}
	id, found, err := genesis.ReadID(snap.NewState())
	if err != nil {
		return nil, err
	}
	if found {
		status.GenesisID = id.String()
	}
	return status, nil
}

func (l *Ledger) handleGetStatus(w http.ResponseWriter, _ *http.Request) error {
	return l.view(func(snap *state.Snapshot, _ *staker.Staker, current pos.Epoch) error {
		status, err := l.status(snap, current)
		if err != nil {
			return err
		}
		return restutil.WriteJSON(w, status)
	})
}

func (l *Ledger) validator(s *staker.Staker, addr pos.Address, epoch pos.Epoch) (*Validator, error) {
	v, err := s.Validator(addr)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, restutil.NotFound(errors.Errorf("validator %s not found", addr))
	}
	out := &Validator{
		Address:      addr,
		ConsensusKey: v.ConsensusKey,
		EthColdKey:   v.EthColdKey,
		EthHotKey:    v.EthHotKey,
		Epoch:        epoch,
	}
	st, found, err := s.ValidatorState(addr, epoch)
	if err != nil {
		return nil, err
	}
	if found {
		out.State = st.String()
	}
	stake, err := s.ValidatorStake(addr, epoch)
	if err != nil {
		return nil, err
	}
	out.Stake = amount(stake)
	commission, err := s.Commission(addr, epoch)
	if err != nil {
		return nil, err
	}
	if !commission.Rate.IsNil() {
		out.CommissionRate = commission.Rate.String()
	}
	out.MaxCommissionRateChange = v.MaxCommissionRateChange().String()
	return out, nil
}

func (l *Ledger) validators(snap *state.Snapshot, s *staker.Staker, epoch pos.Epoch) ([]*Validator, error) {
	addrs, err := s.Validators()
	if err != nil {
		return nil, err
	}

	out := make([]*Validator, len(addrs))
	var g errgroup.Group
	g.SetLimit(8)
	for i, addr := range addrs {
		g.Go(func() error {
			v, err := l.validator(staker.New(snap.NewState(), l.params), addr, epoch)
			out[i] = v
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (l *Ledger) handleGetValidators(w http.ResponseWriter, req *http.Request) error {
	return l.view(func(snap *state.Snapshot, s *staker.Staker, current pos.Epoch) error {
		epoch, err := restutil.ParseEpoch(req.URL.Query().Get("epoch"), current)
		if err != nil {
			return err
		}
		out, err := l.validators(snap, s, epoch)
		if err != nil {
			return err
		}
		return restutil.WriteJSON(w, out)
	})
}

func (l *Ledger) handleGetValidator(w http.ResponseWriter, req *http.Request) error {
	addr, err := restutil.ParseAddress(mux.Vars(req)["address"])
	if err != nil {
		return err
	}
	return l.view(func(_ *state.Snapshot, s *staker.Staker, current pos.Epoch) error {
		epoch, err := restutil.ParseEpoch(req.URL.Query().Get("epoch"), current)
		if err != nil {
			return err
		}
		v, err := l.validator(s, addr, epoch)
		if err != nil {
			return err
		}
		return restutil.WriteJSON(w, v)
	})
}

func (l *Ledger) handleGetValidatorSlashes(w http.ResponseWriter, req *http.Request) error {
	addr, err := restutil.ParseAddress(mux.Vars(req)["address"])
	if err != nil {
		return err
	}
	return l.view(func(_ *state.Snapshot, s *staker.Staker, _ pos.Epoch) error {
		slashes, err := s.ValidatorSlashes(addr)
		if err != nil {
			return err
		}
		out := &ValidatorSlashes{Validator: addr, Slashes: convertSlashes(slashes)}
		last, found, err := s.LastSlashEpoch(addr)
		if err != nil {
			return err
		}
		if found {
			out.LastSlashEpoch = &last
		}
		return restutil.WriteJSON(w, out)
	})
}

func (l *Ledger) sets(snap *state.Snapshot, s *staker.Staker, epoch pos.Epoch) (*Sets, error) {
	sets := &Sets{Epoch: epoch}
	var g errgroup.Group
	g.Go(func() error {
		members, err := staker.New(snap.NewState(), l.params).ConsensusValidators(epoch)
		sets.Consensus = convertWeighted(members)
		return err
	})
	g.Go(func() error {
		members, err := staker.New(snap.NewState(), l.params).BelowCapacityValidators(epoch)
		sets.BelowCapacity = convertWeighted(members)
		return err
	})
	g.Go(func() error {
		members, err := staker.New(snap.NewState(), l.params).BelowThresholdValidators(epoch)
		sets.BelowThreshold = convertWeighted(members)
		return err
	})
	g.Go(func() error {
		total, err := staker.New(snap.NewState(), l.params).TotalConsensusStake(epoch)
		sets.TotalConsensusStake = amount(total)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	updates, err := s.ValidatorSetUpdates(epoch)
	if err != nil {
		return nil, err
	}
	sets.Updates = make([]*SetUpdate, 0, len(updates))
	for _, u := range updates {
		sets.Updates = append(sets.Updates, &SetUpdate{u.Address, u.ConsensusKey, amount(u.BondedStake), u.Removed})
	}
	return sets, nil
}

func (l *Ledger) handleGetSets(w http.ResponseWriter, req *http.Request) error {
	return l.view(func(snap *state.Snapshot, s *staker.Staker, current pos.Epoch) error {
		epoch, err := restutil.ParseEpoch(mux.Vars(req)["epoch"], current)
		if err != nil {
			return err
		}
		if epoch > current.Add(l.params.PipelineLen) {
			return restutil.BadRequest(errors.Errorf("epoch %d is beyond the pipeline", epoch))
		}
		sets, err := l.sets(snap, s, epoch)
		if err != nil {
			return err
		}
		return restutil.WriteJSON(w, sets)
	})
}

func (l *Ledger) handleGetEnqueuedSlashes(w http.ResponseWriter, req *http.Request) error {
	return l.view(func(_ *state.Snapshot, s *staker.Staker, current pos.Epoch) error {
		epoch, err := restutil.ParseEpoch(mux.Vars(req)["epoch"], current)
		if err != nil {
			return err
		}
		enqueued, err := s.EnqueuedSlashes(epoch)
		if err != nil {
			return err
		}
		out := make([]*EnqueuedSlashes, 0, len(enqueued))
		for _, e := range enqueued {
			out = append(out, &EnqueuedSlashes{e.Validator, convertSlashes(e.Slashes)})
		}
		return restutil.WriteJSON(w, out)
	})
}

func (l *Ledger) bond(s *staker.Staker, id pos.BondID, current pos.Epoch) (*Bond, error) {
	bonded, err := s.BondAmount(id, current)
	if err != nil {
		return nil, err
	}
	pending, err := s.BondAmount(id, current.Add(l.params.PipelineLen))
	if err != nil {
		return nil, err
	}
	unbonds, err := s.Unbonds(id)
	if err != nil {
		return nil, err
	}
	withdrawable, err := s.Withdrawable(id)
	if err != nil {
		return nil, err
	}
	return &Bond{
		Validator:    id.Validator,
		Bonded:       amount(bonded),
		Pending:      amount(pending),
		Unbonds:      convertUnbonds(unbonds),
		Withdrawable: amount(withdrawable),
	}, nil
}

func (l *Ledger) account(snap *state.Snapshot, s *staker.Staker, addr pos.Address, current pos.Epoch) (*Account, error) {
	balance, err := s.Balance(addr)
	if err != nil {
		return nil, err
	}
	ids, err := s.BondIDs(&addr)
	if err != nil {
		return nil, err
	}

	bonds := make([]*Bond, len(ids))
	var g errgroup.Group
	g.SetLimit(8)
	for i, id := range ids {
		g.Go(func() error {
			b, err := l.bond(staker.New(snap.NewState(), l.params), id, current)
			bonds[i] = b
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &Account{Address: addr, Balance: amount(balance), Bonds: bonds}, nil
}

func (l *Ledger) handleGetAccount(w http.ResponseWriter, req *http.Request) error {
	addr, err := restutil.ParseAddress(mux.Vars(req)["address"])
	if err != nil {
		return err
	}
	return l.view(func(snap *state.Snapshot, s *staker.Staker, current pos.Epoch) error {
		acc, err := l.account(snap, s, addr, current)
		if err != nil {
			return err
		}
		return restutil.WriteJSON(w, acc)
	})
}

// Mount registers the ledger routes under pathPrefix.
func (l *Ledger) Mount(root *mux.Router, pathPrefix string) {
	sub := root.PathPrefix(pathPrefix).Subrouter()

	sub.Path("/status").
		Methods(http.MethodGet).
		Name("GET /status").
		HandlerFunc(restutil.WrapHandlerFunc(l.handleGetStatus))
	sub.Path("/validators").
		Methods(http.MethodGet).
		Name("GET /validators").
		HandlerFunc(restutil.WrapHandlerFunc(l.handleGetValidators))
	sub.Path("/validators/{address}").
		Methods(http.MethodGet).
		Name("GET /validators/{address}").
		HandlerFunc(restutil.WrapHandlerFunc(l.handleGetValidator))
	sub.Path("/validators/{address}/slashes").
		Methods(http.MethodGet).
		Name("GET /validators/{address}/slashes").
		HandlerFunc(restutil.WrapHandlerFunc(l.handleGetValidatorSlashes))
	sub.Path("/sets/{epoch}").
		Methods(http.MethodGet).
		Name("GET /sets/{epoch}").
		HandlerFunc(restutil.WrapHandlerFunc(l.handleGetSets))
	sub.Path("/slashes/enqueued/{epoch}").
		Methods(http.MethodGet).
		Name("GET /slashes/enqueued/{epoch}").
		HandlerFunc(restutil.WrapHandlerFunc(l.handleGetEnqueuedSlashes))
	sub.Path("/accounts/{address}").
		Methods(http.MethodGet).
		Name("GET /accounts/{address}").
		HandlerFunc(restutil.WrapHandlerFunc(l.handleGetAccount))
}
