// Copyright (c) 2024 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package admin

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/vechain/dpos/api/admin/loglevel"
	"github.com/vechain/dpos/api/admin/slashing"
	"github.com/vechain/dpos/health"
	"github.com/vechain/dpos/metrics"
	"github.com/vechain/dpos/node"

	healthAPI "github.com/vechain/dpos/api/admin/health"
)

// New returns the handler of the privileged admin API.
func New(logLevel *slog.LevelVar, health *health.Health, node *node.Node, blockInterval time.Duration) http.HandlerFunc {
	router := mux.NewRouter()
	sub := router.PathPrefix("/admin").Subrouter()

	loglevel.New(logLevel).Mount(sub, "/loglevel")
	healthAPI.New(health, 3*blockInterval).Mount(sub, "/health")
	slashing.New(node).Mount(sub, "/staker/slash")
	sub.Path("/metrics").Methods(http.MethodGet).Handler(metrics.HTTPHandler())

	handler := handlers.CompressHandler(router)

	return handler.ServeHTTP
}
