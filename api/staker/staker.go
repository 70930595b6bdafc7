// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package staker

import (
	"net/http"
	"slices"

	"github.com/gorilla/mux"
	"github.com/holiman/uint256"
	"github.com/pkg/errors"

	"github.com/vechain/dpos/api/utils"
	"github.com/vechain/dpos/balance"
	"github.com/vechain/dpos/node"
	"github.com/vechain/dpos/staker"
	"github.com/vechain/dpos/staker/reverts"
	"github.com/vechain/dpos/thor"
)

type Staker struct {
	node *node.Node
}

func New(node *node.Node) *Staker {
	return &Staker{node}
}

func (s *Staker) loadValidator(st *staker.Staker, addr thor.Address, elected []thor.Address) (*Validator, error) {
	v, err := st.Validator(addr)
	if err != nil {
		return nil, err
	}
	stake, err := st.Stake(addr)
	if err != nil {
		return nil, err
	}
	blocks, err := st.BlockCount(addr)
	if err != nil {
		return nil, err
	}
	isElected := slices.Contains(elected, addr)
	if v == nil && stake.IsZero() && !isElected {
		return nil, nil
	}
	var selfStake *uint256.Int
	if v != nil {
		selfStake = v.SelfStake()
	}
	return &Validator{
		Address:   addr,
		Stake:     utils.FromAmount(stake),
		SelfStake: utils.FromAmount(selfStake),
		Elected:   isElected,
		Blocks:    blocks,
	}, nil
}

func (s *Staker) handleGetValidators(w http.ResponseWriter, req *http.Request) error {
	var validators []*Validator
	err := s.node.View(func(st *staker.Staker, _ *balance.Ledger) error {
		elected, err := st.Elected()
		if err != nil {
			return err
		}
		stakes, err := st.Stakes()
		if err != nil {
			return err
		}
		validators = make([]*Validator, 0, len(stakes))
		for _, stake := range stakes {
			v, err := s.loadValidator(st, stake.Address, elected)
			if err != nil {
				return err
			}
			if v != nil {
				validators = append(validators, v)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	return utils.WriteJSON(w, validators)
}

func (s *Staker) handleGetValidator(w http.ResponseWriter, req *http.Request) error {
	addr, err := utils.AddressVar(req, "address")
	if err != nil {
		return err
	}
	var v *Validator
	err = s.node.View(func(st *staker.Staker, _ *balance.Ledger) (err error) {
		elected, err := st.Elected()
		if err != nil {
			return err
		}
		v, err = s.loadValidator(st, addr, elected)
		return err
	})
	if err != nil {
		return err
	}
	if v == nil {
		return utils.NotFound(errors.New("validator not found"))
	}
	return utils.WriteJSON(w, v)
}

func (s *Staker) handleGetDelegators(w http.ResponseWriter, req *http.Request) error {
	addr, err := utils.AddressVar(req, "address")
	if err != nil {
		return err
	}
	var delegators []thor.Address
	err = s.node.View(func(st *staker.Staker, _ *balance.Ledger) (err error) {
		delegators, err = st.Delegators(addr)
		return err
	})
	if err != nil {
		return err
	}
	if delegators == nil {
		delegators = []thor.Address{}
	}
	return utils.WriteJSON(w, delegators)
}

func (s *Staker) handleGetElected(w http.ResponseWriter, req *http.Request) error {
	var elected []thor.Address
	err := s.node.View(func(st *staker.Staker, _ *balance.Ledger) (err error) {
		elected, err = st.Elected()
		return err
	})
	if err != nil {
		return err
	}
	if elected == nil {
		elected = []thor.Address{}
	}
	return utils.WriteJSON(w, elected)
}

func (s *Staker) handleGetDelegation(w http.ResponseWriter, req *http.Request) error {
	addr, err := utils.AddressVar(req, "address")
	if err != nil {
		return err
	}
	info := &DelegatorInfo{Delegator: addr}
	err = s.node.View(func(st *staker.Staker, _ *balance.Ledger) error {
		live, err := st.Delegation(addr)
		if err != nil {
			return err
		}
		snap, err := st.Snapshot(addr)
		if err != nil {
			return err
		}
		info.Delegation = convertDelegation(live)
		info.Snapshot = convertDelegation(snap)
		return nil
	})
	if err != nil {
		return err
	}
	return utils.WriteJSON(w, info)
}

func (s *Staker) handleCall(w http.ResponseWriter, req *http.Request) error {
	var call Call
	if err := utils.ParseJSON(req.Body, &call); err != nil {
		return utils.BadRequest(errors.WithMessage(err, "body"))
	}
	fn, err := s.prepareCall(&call)
	if err != nil {
		return utils.BadRequest(err)
	}

	result := &CallResult{}
	err = s.node.Submit(func(st *staker.Staker) error {
		result.Block = st.BlockNumber()
		return fn(st)
	})
	if err != nil {
		if !reverts.IsRevertErr(err) {
			return err
		}
		result.Reverted = true
		result.Error = err.Error()
	}
	return utils.WriteJSON(w, result)
}

func (s *Staker) prepareCall(call *Call) (func(st *staker.Staker) error, error) {
	switch call.Method {
	case MethodRegister:
		amount, err := utils.ToAmount(call.Amount)
		if err != nil {
			return nil, errors.WithMessage(err, "amount")
		}
		return func(st *staker.Staker) error { return st.Register(call.Sender, amount) }, nil
	case MethodUnregister:
		return func(st *staker.Staker) error { return st.Unregister(call.Sender) }, nil
	case MethodDelegate:
		if call.Validator == nil {
			return nil, errors.New("validator: missing")
		}
		amount, err := utils.ToAmount(call.Amount)
		if err != nil {
			return nil, errors.WithMessage(err, "amount")
		}
		validator := *call.Validator
		return func(st *staker.Staker) error { return st.Delegate(call.Sender, validator, amount) }, nil
	case MethodUndelegate:
		amount, err := utils.ToAmount(call.Amount)
		if err != nil {
			return nil, errors.WithMessage(err, "amount")
		}
		return func(st *staker.Staker) error { return st.Undelegate(call.Sender, amount) }, nil
	default:
		return nil, errors.Errorf("method: unknown %q", call.Method)
	}
}

func (s *Staker) Mount(root *mux.Router, pathPrefix string) {
	sub := root.PathPrefix(pathPrefix).Subrouter()

	sub.Path("/validators").
		Methods(http.MethodGet).
		Name("GET /staker/validators").
		HandlerFunc(utils.WrapHandlerFunc(s.handleGetValidators))
	sub.Path("/validators/{address}").
		Methods(http.MethodGet).
		Name("GET /staker/validators/{address}").
		HandlerFunc(utils.WrapHandlerFunc(s.handleGetValidator))
	sub.Path("/validators/{address}/delegators").
		Methods(http.MethodGet).
		Name("GET /staker/validators/{address}/delegators").
		HandlerFunc(utils.WrapHandlerFunc(s.handleGetDelegators))
	sub.Path("/elected").
		Methods(http.MethodGet).
		Name("GET /staker/elected").
		HandlerFunc(utils.WrapHandlerFunc(s.handleGetElected))
	sub.Path("/delegations/{address}").
		Methods(http.MethodGet).
		Name("GET /staker/delegations/{address}").
		HandlerFunc(utils.WrapHandlerFunc(s.handleGetDelegation))
	sub.Path("/calls").
		Methods(http.MethodPost).
		Name("POST /staker/calls").
		HandlerFunc(utils.WrapHandlerFunc(s.handleCall))
}
