// Copyright (c) 2024 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package health

import (
	"sync"
	"time"
)

type BlockProduction struct {
	BestBlock          *uint32    `json:"bestBlock"`
	BestBlockTimestamp *time.Time `json:"bestBlockTimestamp"`
}

type Status struct {
	Healthy         bool             `json:"healthy"`
	BlockProduction *BlockProduction `json:"blockProduction"`
}

// Health tracks the liveness of block production.
type Health struct {
	lock         sync.RWMutex
	newBestBlock time.Time
	bestBlock    *uint32
}

func (h *Health) NewBestBlock(number uint32) {
	h.lock.Lock()
	defer h.lock.Unlock()

	h.newBestBlock = time.Now()
	h.bestBlock = &number
}

// Status reports healthy when a block was produced within maxTimeBetweenBlocks.
func (h *Health) Status(maxTimeBetweenBlocks time.Duration) *Status {
	h.lock.RLock()
	defer h.lock.RUnlock()

	var production BlockProduction
	if h.bestBlock != nil {
		number, ts := *h.bestBlock, h.newBestBlock
		production.BestBlock = &number
		production.BestBlockTimestamp = &ts
	}

	return &Status{
		Healthy:         h.bestBlock != nil && time.Since(h.newBestBlock) <= maxTimeBetweenBlocks,
		BlockProduction: &production,
	}
}
