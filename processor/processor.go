// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package processor

import (
	"github.com/pkg/errors"

	"github.com/vechain/posledger/log"
	"github.com/vechain/posledger/metrics"
	"github.com/vechain/posledger/pos"
	"github.com/vechain/posledger/staker"
	"github.com/vechain/posledger/staker/reverts"
	"github.com/vechain/posledger/state"
)

var (
	logger = log.WithContext("pkg", "processor")

	metricTxs    = metrics.LazyLoadCounterVec("processor_txs_count", []string{"outcome"})
	metricBlocks = metrics.LazyLoadCounter("processor_blocks_count")
)

// Processor drives the staker over one read-write state. It is the single
// writer of the store and is not safe for concurrent use.
type Processor struct {
	st     *state.State
	staker *staker.Staker
}

// New creates a processor over the latest committed state, which must
// have been initialized by genesis.
func New(creator *state.Creator) (*Processor, error) {
	st := creator.NewState()
	params, err := staker.ReadParams(st)
	if err != nil {
		return nil, errors.Wrap(err, "read params")
	}
	return &Processor{
		st:     st,
		staker: staker.New(st, params),
	}, nil
}

// Staker returns the engine bound to the pending state.
func (p *Processor) Staker() *staker.Staker {
	return p.staker
}

// Execute runs ops as one transaction. Either every op applies or the
// transaction is reverted as a whole. A rejected transaction yields a
// reverted receipt and no error; any other error is a fault and the
// pending state should be discarded.
func (p *Processor) Execute(ops ...Op) (*Receipt, error) {
	checkpoint := p.st.NewCheckpoint()

	receipt := &Receipt{FailedOp: -1}
	for i, op := range ops {
		amount, err := op.Apply(p.staker)
		if err != nil {
			p.st.RevertTo(checkpoint)
			if !reverts.IsRevertErr(err) {
				metricTxs().AddWithLabel(1, map[string]string{"outcome": "fault"})
				return nil, errors.Wrapf(err, "op %d (%s)", i, op.Name())
			}
			logger.Debug("transaction reverted", "op", op.Name(), "index", i, "reason", err)
			metricTxs().AddWithLabel(1, map[string]string{"outcome": "reverted"})
			return &Receipt{Reverted: true, Reason: err, FailedOp: i}, nil
		}
		receipt.Outputs = append(receipt.Outputs, &Output{Op: op.Name(), Amount: amount})
	}
	metricTxs().AddWithLabel(1, map[string]string{"outcome": "applied"})
	return receipt, nil
}

// AdvanceEpoch moves the engine into the next epoch.
func (p *Processor) AdvanceEpoch() ([]pos.ValidatorSetUpdate, error) {
	updates, err := p.staker.AdvanceEpoch()
	if err != nil {
		return nil, errors.Wrap(err, "advance epoch")
	}
	return updates, nil
}

// ProcessBlock executes the block transactions, advances the epoch when the
// block ends one and commits everything at once. On a fault nothing is
// committed.
func (p *Processor) ProcessBlock(blk *Block) (*BlockResult, error) {
	result := &BlockResult{}
	for i, ops := range blk.Txs {
		receipt, err := p.Execute(ops...)
		if err != nil {
			p.Discard()
			return nil, errors.Wrapf(err, "block %d tx %d", blk.Height, i)
		}
		result.Receipts = append(result.Receipts, receipt)
	}

	if blk.EndOfEpoch {
		updates, err := p.AdvanceEpoch()
		if err != nil {
			p.Discard()
			return nil, errors.Wrapf(err, "block %d", blk.Height)
		}
		result.Updates = updates
	}

	epoch, err := p.staker.CurrentEpoch()
	if err != nil {
		p.Discard()
		return nil, err
	}
	result.Epoch = epoch

	if err := p.Commit(); err != nil {
		return nil, err
	}
	metricBlocks().Add(1)
	logger.Debug("block processed", "height", blk.Height, "txs", len(blk.Txs), "epoch", epoch)
	return result, nil
}

// Commit persists the pending state.
func (p *Processor) Commit() error {
	return errors.Wrap(p.st.Commit(), "commit")
}

// Discard drops every uncommitted change.
func (p *Processor) Discard() {
	p.st.RevertTo(0)
}
