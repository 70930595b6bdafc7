// Copyright (c) 2024 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package subscriptions

import "github.com/vechain/dpos/metrics"

var (
	metricActiveSubscriptions = metrics.LazyLoadGauge("api_active_subscriptions")
	metricDroppedEvents       = metrics.LazyLoadCounter("api_subscription_dropped_events_count")
)
