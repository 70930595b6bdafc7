// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package thor

// Default staking parameters.
const (
	EpochLength         uint32 = 100  // blocks per epoch
	MaxValidators       uint32 = 10   // size bound of the elected set
	BaseRewardPerBlock  uint64 = 1000 // minted per authored block
	ValidatorPercentage uint64 = 30   // share of the pool kept by the validator
	GenesisSelfStake    uint64 = 100  // self-stake held for each genesis validator

	BlockInterval uint64 = 6 // seconds between two consecutive blocks
)
