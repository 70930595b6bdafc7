// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package lvldb

import "github.com/vechain/dpos/metrics"

var (
	metricWrites    = metrics.LazyLoadCounterVec("lvldb_writes_count", []string{"op"})
	metricBatchSize = metrics.LazyLoadHistogram("lvldb_batch_size", []int64{1, 4, 16, 64, 256, 1024})
)
