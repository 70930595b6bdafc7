// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package delegation

import (
	"github.com/holiman/uint256"

	"github.com/vechain/dpos/thor"
)

type body struct {
	Validator    thor.Address
	Amount       *uint256.Int
	EpochStarted uint64
}

// Delegation is the stake a delegator has placed with a validator.
type Delegation struct {
	body *body
}

func (d *Delegation) Validator() thor.Address {
	return d.body.Validator
}

func (d *Delegation) Amount() *uint256.Int {
	return new(uint256.Int).Set(d.body.Amount)
}

// EpochStarted is the first epoch the delegation counts for rewards.
func (d *Delegation) EpochStarted() uint64 {
	return d.body.EpochStarted
}

func (d *Delegation) clone() *body {
	return &body{
		Validator:    d.body.Validator,
		Amount:       new(uint256.Int).Set(d.body.Amount),
		EpochStarted: d.body.EpochStarted,
	}
}

func wrap(b *body) *Delegation {
	if b.Amount == nil {
		b.Amount = new(uint256.Int)
	}
	return &Delegation{b}
}
