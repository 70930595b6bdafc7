// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package validation

import (
	"github.com/holiman/uint256"

	"github.com/vechain/dpos/thor"
)

type body struct {
	SelfStake *uint256.Int
}

// Validator is the record of a registered validator.
type Validator struct {
	body *body
}

func (v *Validator) SelfStake() *uint256.Int {
	return new(uint256.Int).Set(v.body.SelfStake)
}

// Stake pairs a validator with its aggregate stake.
type Stake struct {
	Address thor.Address
	Amount  *uint256.Int
}
