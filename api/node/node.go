// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package node

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/vechain/dpos/api/utils"
	"github.com/vechain/dpos/node"
	"github.com/vechain/dpos/thor"
)

// Status for marshal node status.
type Status struct {
	BestBlock     uint32         `json:"bestBlock"`
	Epoch         uint32         `json:"epoch"`
	EpochLength   uint32         `json:"epochLength"`
	Elected       []thor.Address `json:"elected"`
	LastSetUpdate uint32         `json:"lastSetUpdate"`
	SetUpdates    uint64         `json:"setUpdates"`
	Validators    int            `json:"validators"`
}

type Node struct {
	node *node.Node
}

func New(node *node.Node) *Node {
	return &Node{
		node,
	}
}

func (n *Node) handleStatus(w http.ResponseWriter, req *http.Request) error {
	st, err := n.node.Status()
	if err != nil {
		return err
	}
	elected := st.Elected
	if elected == nil {
		elected = []thor.Address{}
	}
	return utils.WriteJSON(w, &Status{
		BestBlock:     st.BestBlock,
		Epoch:         st.Epoch,
		EpochLength:   st.EpochLength,
		Elected:       elected,
		LastSetUpdate: st.LastSetUpdate,
		SetUpdates:    st.SetUpdates,
		Validators:    st.Validators,
	})
}

func (n *Node) Mount(root *mux.Router, pathPrefix string) {
	sub := root.PathPrefix(pathPrefix).Subrouter()

	sub.Path("/status").
		Methods(http.MethodGet).
		Name("GET /node/status").
		HandlerFunc(utils.WrapHandlerFunc(n.handleStatus))
}
