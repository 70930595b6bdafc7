// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package accounts

import (
	"net/http"

	"github.com/ethereum/go-ethereum/common/math"
	"github.com/gorilla/mux"
	"github.com/holiman/uint256"

	"github.com/vechain/dpos/api/utils"
	"github.com/vechain/dpos/balance"
	"github.com/vechain/dpos/node"
	"github.com/vechain/dpos/staker"
	"github.com/vechain/dpos/thor"
)

type Accounts struct {
	node *node.Node
}

func New(node *node.Node) *Accounts {
	return &Accounts{
		node,
	}
}

func (a *Accounts) getAccount(addr thor.Address) (*Account, error) {
	var acc *balance.Account
	err := a.node.View(func(_ *staker.Staker, l *balance.Ledger) (err error) {
		acc, err = l.Account(addr)
		return err
	})
	if err != nil {
		return nil, err
	}
	held := make(map[string]*math.HexOrDecimal256, len(acc.Held))
	for reason, amount := range acc.Held {
		held[reason.String()] = utils.FromAmount(amount)
	}
	return &Account{
		Free: utils.FromAmount(acc.Free),
		Held: held,
	}, nil
}

func (a *Accounts) handleGetAccount(w http.ResponseWriter, req *http.Request) error {
	addr, err := utils.AddressVar(req, "address")
	if err != nil {
		return err
	}
	acc, err := a.getAccount(addr)
	if err != nil {
		return err
	}
	return utils.WriteJSON(w, acc)
}

func (a *Accounts) handleGetIssuance(w http.ResponseWriter, req *http.Request) error {
	var total *uint256.Int
	err := a.node.View(func(_ *staker.Staker, l *balance.Ledger) (err error) {
		total, err = l.TotalIssuance()
		return err
	})
	if err != nil {
		return err
	}
	return utils.WriteJSON(w, map[string]*math.HexOrDecimal256{"totalIssuance": utils.FromAmount(total)})
}

func (a *Accounts) Mount(root *mux.Router, pathPrefix string) {
	sub := root.PathPrefix(pathPrefix).Subrouter()

	sub.Path("/*/issuance").
		Methods(http.MethodGet).
		Name("GET /accounts/*/issuance").
		HandlerFunc(utils.WrapHandlerFunc(a.handleGetIssuance))
	sub.Path("/{address}").
		Methods(http.MethodGet).
		Name("GET /accounts/{address}").
		HandlerFunc(utils.WrapHandlerFunc(a.handleGetAccount))
}
