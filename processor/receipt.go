// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package processor

import (
	"math/big"

	"github.com/vechain/posledger/pos"
)

// Output is the result of one applied op.
type Output struct {
	Op     string
	Amount *big.Int
}

// Receipt is the result of a transaction. A reverted transaction has no
// outputs and left the state untouched.
type Receipt struct {
	Outputs  []*Output
	Reverted bool
	// Reason is the rejection of a reverted transaction.
	Reason error
	// FailedOp is the index of the op that caused the revert.
	FailedOp int
}

// Block is a batch of transactions committed together.
type Block struct {
	Height uint64
	Txs    [][]Op
	// EndOfEpoch advances the epoch after the transactions are executed.
	EndOfEpoch bool
}

// BlockResult is the outcome of a processed block.
type BlockResult struct {
	Receipts []*Receipt
	Epoch    pos.Epoch
	// Updates holds the consensus set changes when the block ended an epoch.
	Updates []pos.ValidatorSetUpdate
}
