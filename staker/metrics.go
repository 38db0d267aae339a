// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package staker

import "github.com/vechain/posledger/metrics"

var (
	metricOperations       = metrics.LazyLoadCounterVec("staker_operations_count", []string{"op"})
	metricSlashesProcessed = metrics.LazyLoadCounter("staker_slashes_processed_count")
	metricEpoch            = metrics.LazyLoadGauge("staker_epoch")
	metricSetSize          = metrics.LazyLoadGaugeVec("staker_validator_set_size", []string{"set"})
)
