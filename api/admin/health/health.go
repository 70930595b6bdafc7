// Copyright (c) 2024 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package health

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/vechain/dpos/api/utils"
	"github.com/vechain/dpos/health"
)

type Health struct {
	health      *health.Health
	defaultSlot time.Duration
}

// New serves the health status. A node is healthy when it produced a block within
// defaultSlot, unless the maxTimeBetweenBlocks query overrides it.
func New(health *health.Health, defaultSlot time.Duration) *Health {
	return &Health{
		health:      health,
		defaultSlot: defaultSlot,
	}
}

func (h *Health) handleGetHealth(w http.ResponseWriter, r *http.Request) error {
	maxTimeBetweenBlocks := h.defaultSlot
	if q := r.URL.Query().Get("maxTimeBetweenBlocks"); q != "" {
		if parsed, err := time.ParseDuration(q); err == nil {
			maxTimeBetweenBlocks = parsed
		}
	}

	status := h.health.Status(maxTimeBetweenBlocks)
	if !status.Healthy {
		w.Header().Set("Content-Type", utils.JSONContentType)
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	return utils.WriteJSON(w, status)
}

func (h *Health) Mount(root *mux.Router, pathPrefix string) {
	sub := root.PathPrefix(pathPrefix).Subrouter()

	sub.Path("").
		Methods(http.MethodGet).
		Name("health").
		HandlerFunc(utils.WrapHandlerFunc(h.handleGetHealth))
}
