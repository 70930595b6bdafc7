// Copyright (c) 2024 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package node

import "github.com/vechain/dpos/metrics"

var (
	metricBlocksCount         = metrics.LazyLoadCounterVec("node_blocks_count", []string{"status"})
	metricBlockDuration       = metrics.LazyLoadHistogram("node_block_duration_ms", metrics.Bucket10s)
	metricSetUpdates          = metrics.LazyLoadCounter("node_validator_set_updates_count")
	metricEventsWriteFailures = metrics.LazyLoadCounter("node_events_write_failures_count")
)
