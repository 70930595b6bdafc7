// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package slashing

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	"github.com/vechain/dpos/api/utils"
	"github.com/vechain/dpos/log"
	"github.com/vechain/dpos/node"
	"github.com/vechain/dpos/staker"
	"github.com/vechain/dpos/staker/reverts"
)

var logger = log.WithContext("pkg", "slashing-api")

type Slashing struct {
	node *node.Node
}

func New(node *node.Node) *Slashing {
	return &Slashing{node}
}

func (s *Slashing) handleSlash(w http.ResponseWriter, req *http.Request) error {
	addr, err := utils.AddressVar(req, "address")
	if err != nil {
		return err
	}
	err = s.node.Submit(func(st *staker.Staker) error {
		return st.Slash(addr)
	})
	if err != nil {
		if reverts.IsRevertErr(err) {
			if errors.Is(err, staker.ErrValidatorNotFound) {
				return utils.NotFound(err)
			}
			return utils.BadRequest(err)
		}
		return err
	}
	logger.Warn("validator slashed by admin", "validator", addr)
	return utils.WriteJSON(w, utils.M{"slashed": addr})
}

func (s *Slashing) Mount(root *mux.Router, pathPrefix string) {
	sub := root.PathPrefix(pathPrefix).Subrouter()

	sub.Path("/{address}").
		Methods(http.MethodPost).
		Name("slash-validator").
		HandlerFunc(utils.WrapHandlerFunc(s.handleSlash))
}
