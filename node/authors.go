// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package node

import (
	"sync"

	"github.com/vechain/dpos/thor"
)

// roundRobin names the author of a block by rotating over the elected set.
type roundRobin struct {
	elected func() ([]thor.Address, error)
	block   uint32
}

func (r *roundRobin) Author() (thor.Address, bool) {
	if r.elected == nil {
		return thor.Address{}, false
	}
	set, err := r.elected()
	if err != nil {
		logger.Warn("failed to load elected set", "err", err)
		return thor.Address{}, false
	}
	if len(set) == 0 {
		return thor.Address{}, false
	}
	return set[int(r.block%uint32(len(set)))], true
}

// setRecorder keeps the last validator set reported by the staker.
type setRecorder struct {
	mu      sync.Mutex
	block   func() uint32
	set     []thor.Address
	at      uint32
	updates uint64
}

func (r *setRecorder) Accept(set []thor.Address) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.set = append([]thor.Address(nil), set...)
	if r.block != nil {
		r.at = r.block()
	}
	r.updates++
	metricSetUpdates().Add(1)
	logger.Info("validator set updated", "block", r.at, "size", len(set))
}

func (r *setRecorder) last() ([]thor.Address, uint32, uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]thor.Address(nil), r.set...), r.at, r.updates
}
