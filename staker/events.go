// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package staker

import (
	"slices"

	"github.com/holiman/uint256"

	"github.com/vechain/dpos/thor"
)

// EventName identifies the kind of a staker event.
type EventName string

const (
	EventValidatorRegistered   EventName = "ValidatorRegistered"
	EventValidatorDeregistered EventName = "ValidatorDeregistered"
	EventDelegated             EventName = "Delegated"
	EventUndelegated           EventName = "Undelegated"
	EventValidatorsUpdated     EventName = "ValidatorsUpdated"
	EventRewardsDistributed    EventName = "RewardsDistributed"
	EventValidatorSlashed      EventName = "ValidatorSlashed"
)

// EventNames lists every event kind.
var EventNames = []EventName{
	EventValidatorRegistered,
	EventValidatorDeregistered,
	EventDelegated,
	EventUndelegated,
	EventValidatorsUpdated,
	EventRewardsDistributed,
	EventValidatorSlashed,
}

// Event is a notification of a committed state change.
// Fields not relevant to the event kind are left zero.
type Event struct {
	Name       EventName
	Block      uint32
	Validator  thor.Address
	Account    thor.Address // delegator, or reward recipient
	Amount     *uint256.Int
	Validators []thor.Address
}

// Accounts returns the accounts the event refers to.
func (e *Event) Accounts() []thor.Address {
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

// EventSink receives events once the call that produced them has committed.
type EventSink interface {
	Emit(ev *Event)
}

// EventSinkFunc adapts a function to EventSink.
type EventSinkFunc func(ev *Event)

func (f EventSinkFunc) Emit(ev *Event) { f(ev) }

func (s *Staker) emit(ev *Event) {
	ev.Block = s.block
	if ev.Amount != nil {
		ev.Amount = new(uint256.Int).Set(ev.Amount)
	}
	s.pending = append(s.pending, ev)
}
