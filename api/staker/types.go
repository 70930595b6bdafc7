// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package staker

import (
	"github.com/ethereum/go-ethereum/common/math"

	"github.com/vechain/dpos/api/utils"
	"github.com/vechain/dpos/staker/delegation"
	"github.com/vechain/dpos/thor"
)

// Validator for marshal validator.
type Validator struct {
	Address   thor.Address          `json:"address"`
	Stake     *math.HexOrDecimal256 `json:"stake"`
	SelfStake *math.HexOrDecimal256 `json:"selfStake"`
	Elected   bool                  `json:"elected"`
	Blocks    uint64                `json:"blocks"`
}

// Delegation for marshal delegation.
type Delegation struct {
	Validator    thor.Address          `json:"validator"`
	Amount       *math.HexOrDecimal256 `json:"amount"`
	EpochStarted uint64                `json:"epochStarted"`
}

func convertDelegation(del *delegation.Delegation) *Delegation {
	if del == nil {
		return nil
	}
	return &Delegation{
		Validator:    del.Validator(),
		Amount:       utils.FromAmount(del.Amount()),
		EpochStarted: del.EpochStarted(),
	}
}

// DelegatorInfo is the live delegation of an account with its snapshot entry.
type DelegatorInfo struct {
	Delegator  thor.Address `json:"delegator"`
	Delegation *Delegation  `json:"delegation"`
	Snapshot   *Delegation  `json:"snapshot"`
}

// Call methods.
const (
	MethodRegister   = "register"
	MethodUnregister = "unregister"
	MethodDelegate   = "delegate"
	MethodUndelegate = "undelegate"
)

// Call is a staker call submitted on behalf of sender.
type Call struct {
	Sender    thor.Address          `json:"sender"`
	Method    string                `json:"method"`
	Validator *thor.Address         `json:"validator,omitempty"`
	Amount    *math.HexOrDecimal256 `json:"amount,omitempty"`
}

// CallResult reports the outcome of a call.
type CallResult struct {
	Block    uint32 `json:"block"`
	Reverted bool   `json:"reverted"`
	Error    string `json:"error,omitempty"`
}
