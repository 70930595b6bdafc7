// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package staker

import (
	"math"

	"github.com/holiman/uint256"

	"github.com/vechain/dpos/metrics"
)

var (
	metricCallsCount          = metrics.LazyLoadCounterVec("staker_calls_count", []string{"method", "status"})
	metricEpochsCount         = metrics.LazyLoadCounter("staker_epochs_count")
	metricStepFailuresCount   = metrics.LazyLoadCounterVec("staker_boundary_failures_count", []string{"step"})
	metricInvariantViolations = metrics.LazyLoadCounter("staker_invariant_violations_count")
	metricRewardsMinted       = metrics.LazyLoadCounterVec("staker_rewards_minted", []string{"kind"})
	metricMintFailuresCount   = metrics.LazyLoadCounter("staker_mint_failures_count")
	metricElectedValidators   = metrics.LazyLoadGauge("staker_elected_validators")
	metricHousekeepDuration   = metrics.LazyLoadHistogram("staker_housekeep_duration_ms", metrics.Bucket10s)
)

// clampInt64 converts an amount for metric reporting.
func clampInt64(v *uint256.Int) int64 {
	if !v.IsUint64() || v.Uint64() > math.MaxInt64 {
		return math.MaxInt64
	}
	return int64(v.Uint64())
}
