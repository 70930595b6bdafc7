// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package logdb

import (
	"slices"

	"github.com/holiman/uint256"

	"github.com/vechain/dpos/thor"
)

// Event is a staker event as stored in db.
type Event struct {
	BlockNumber uint32
	Index       uint32
	Name        string
	Validator   thor.Address
	Account     thor.Address
	Amount      *uint256.Int // nil if the event carries no amount
	Validators  []thor.Address
}

// accounts returns the distinct non-zero accounts the event refers to.
func (e *Event) accounts() []thor.Address {
	var accounts []thor.Address
	add := func(a thor.Address) {
		if !a.IsZero() && !slices.Contains(accounts, a) {
			accounts = append(accounts, a)
		}
	}
	add(e.Validator)
	add(e.Account)
	for _, v := range e.Validators {
		add(v)
	}
	return accounts
}

type Range struct {
	From uint32
	To   uint32
}

type Options struct {
	Offset uint64
	Limit  uint64
}

type Order string

const (
	ASC  Order = "asc"
	DESC Order = "desc"
)

// EventFilter selects events. Accounts and Names are each OR-ed; the
// different criteria are AND-ed.
type EventFilter struct {
	Range    *Range
	Accounts []thor.Address
	Names    []string
	Options  *Options
	Order    Order
}

func encodeAddresses(addrs []thor.Address) []byte {
	if len(addrs) == 0 {
		return nil
	}
	b := make([]byte, 0, len(addrs)*thor.AddressLength)
	for _, a := range addrs {
		b = append(b, a.Bytes()...)
	}
	return b
}

func decodeAddresses(b []byte) []thor.Address {
	if len(b) == 0 {
		return nil
	}
	addrs := make([]thor.Address, 0, len(b)/thor.AddressLength)
	for i := 0; i+thor.AddressLength <= len(b); i += thor.AddressLength {
		addrs = append(addrs, thor.BytesToAddress(b[i:i+thor.AddressLength]))
	}
	return addrs
}
