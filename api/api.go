// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package api

import (
	"net/http"
	"strings"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/vechain/dpos/api/accounts"
	"github.com/vechain/dpos/api/events"
	nodeAPI "github.com/vechain/dpos/api/node"
	"github.com/vechain/dpos/api/staker"
	"github.com/vechain/dpos/api/subscriptions"
	"github.com/vechain/dpos/logdb"
	"github.com/vechain/dpos/node"
)

type Options struct {
	AllowedOrigins string
	LogsLimit      uint64
	EnableMetrics  bool
}

// New return api router
func New(
	node *node.Node,
	logDB *logdb.LogDB,
	opts Options,
) (http.HandlerFunc, func()) {
	origins := strings.Split(strings.TrimSpace(opts.AllowedOrigins), ",")
	for i, o := range origins {
		origins[i] = strings.ToLower(strings.TrimSpace(o))
	}

	router := mux.NewRouter()

	staker.New(node).
		Mount(router, "/staker")
	accounts.New(node).
		Mount(router, "/accounts")
	events.New(logDB, opts.LogsLimit).
		Mount(router, "/logs/staker")
	nodeAPI.New(node).
		Mount(router, "/node")
	subs := subscriptions.New(node, origins)
	subs.Mount(router, "/subscriptions")

	if opts.EnableMetrics {
		router.Use(metricsMiddleware)
	}

	handler := handlers.CompressHandler(router)
	handler = handlers.CORS(
		handlers.AllowedOrigins(origins),
		handlers.AllowedHeaders([]string{"content-type"}),
	)(handler)

	return handler.ServeHTTP, subs.Close // subscriptions handles hijacked conns, which need to be closed
}
