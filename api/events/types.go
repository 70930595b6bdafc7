// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package events

import (
	"github.com/ethereum/go-ethereum/common/math"

	"github.com/vechain/dpos/api/utils"
	"github.com/vechain/dpos/logdb"
	"github.com/vechain/dpos/thor"
)

// FilteredEvent is a staker event as returned by the API.
type FilteredEvent struct {
	BlockNumber uint32                `json:"blockNumber"`
	Index       uint32                `json:"index"`
	Name        string                `json:"name"`
	Validator   *thor.Address         `json:"validator,omitempty"`
	Account     *thor.Address         `json:"account,omitempty"`
	Amount      *math.HexOrDecimal256 `json:"amount,omitempty"`
	Validators  []thor.Address        `json:"validators,omitempty"`
}

// ConvertEvent converts a stored event.
func ConvertEvent(ev *logdb.Event) *FilteredEvent {
	fe := &FilteredEvent{
		BlockNumber: ev.BlockNumber,
		Index:       ev.Index,
		Name:        ev.Name,
		Amount:      utils.FromAmount(ev.Amount),
		Validators:  ev.Validators,
	}
	if !ev.Validator.IsZero() {
		v := ev.Validator
		fe.Validator = &v
	}
	if !ev.Account.IsZero() {
		a := ev.Account
		fe.Account = &a
	}
	return fe
}

type Range struct {
	From *uint32 `json:"from,omitempty"`
	To   *uint32 `json:"to,omitempty"`
}

type Options struct {
	Offset uint64 `json:"offset"`
	Limit  uint64 `json:"limit"`
}

// EventFilter selects staker events. Accounts match any account an event
// refers to, elected set members included.
type EventFilter struct {
	Range    *Range         `json:"range"`
	Accounts []thor.Address `json:"accounts"`
	Names    []string       `json:"names"`
	Options  *Options       `json:"options"`
	Order    logdb.Order    `json:"order"`
}

func convertEventFilter(ef *EventFilter) *logdb.EventFilter {
	f := &logdb.EventFilter{
		Accounts: ef.Accounts,
		Names:    ef.Names,
		Order:    ef.Order,
	}
	if ef.Range != nil {
		r := &logdb.Range{To: ^uint32(0)}
		if ef.Range.From != nil {
			r.From = *ef.Range.From
		}
		if ef.Range.To != nil {
			r.To = *ef.Range.To
		}
		f.Range = r
	}
	if ef.Options != nil {
		f.Options = &logdb.Options{Offset: ef.Options.Offset, Limit: ef.Options.Limit}
	}
	return f
}
