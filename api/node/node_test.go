// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package node_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vechain/dpos/api/node"
	"github.com/vechain/dpos/genesis"
	"github.com/vechain/dpos/logdb"
	"github.com/vechain/dpos/lvldb"

	dposnode "github.com/vechain/dpos/node"
)

func TestNodeStatus(t *testing.T) {
	gene := genesis.NewDevnet()
	gene.Params.EpochLength = 5

	store, err := lvldb.NewMem()
	require.NoError(t, err)
	defer store.Close()
	logDB, err := logdb.NewMem()
	require.NoError(t, err)
	defer logDB.Close()

	n, err := dposnode.New(store, logDB, gene, dposnode.Options{BlockInterval: time.Second})
	require.NoError(t, err)
	require.NoError(t, n.ProduceBlocks(7))

	router := mux.NewRouter()
	node.New(n).Mount(router, "/node")
	ts := httptest.NewServer(router)
	defer ts.Close()

	res, err := http.Get(ts.URL + "/node/status")
	require.NoError(t, err)
	defer res.Body.Close()
	require.Equal(t, http.StatusOK, res.StatusCode)
	body, err := io.ReadAll(res.Body)
	require.NoError(t, err)

	var status node.Status
	require.NoError(t, json.Unmarshal(body, &status))
	assert.Equal(t, uint32(7), status.BestBlock)
	assert.Equal(t, uint32(1), status.Epoch)
	assert.Equal(t, uint32(5), status.EpochLength)
	assert.Equal(t, len(gene.Validators), status.Validators)
	assert.ElementsMatch(t, gene.Validators, status.Elected)
	assert.Equal(t, uint32(5), status.LastSetUpdate)
	assert.Equal(t, uint64(2), status.SetUpdates)
}
