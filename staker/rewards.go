// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package staker

import (
	"github.com/holiman/uint256"

	"github.com/vechain/dpos/staker/delegation"
	"github.com/vechain/dpos/thor"
)

var hundred = uint256.NewInt(100)

type snapshotEntry struct {
	delegator thor.Address
	del       *delegation.Delegation
}

// RewardSplit is the reward pool of one validator for an epoch.
type RewardSplit struct {
	Pool          *uint256.Int
	ValidatorCut  *uint256.Int
	DelegatorPool *uint256.Int
}

// splitReward computes the pool earned by blocks authored blocks and its split.
func splitReward(baseReward *uint256.Int, blocks uint64, validatorPercentage uint64) RewardSplit {
	pool, overflow := new(uint256.Int).MulOverflow(baseReward, uint256.NewInt(blocks))
	if overflow {
		pool.SetAllOne()
	}
	cut, _ := new(uint256.Int).MulDivOverflow(pool, uint256.NewInt(validatorPercentage), hundred)
	return RewardSplit{
		Pool:          pool,
		ValidatorCut:  cut,
		DelegatorPool: new(uint256.Int).Sub(pool, cut),
	}
}

// delegatorReward is the truncated share of pool for amount out of stake, never above pool.
// A snapshot amount can exceed the live stake after undelegations within the epoch.
func delegatorReward(pool, amount, stake *uint256.Int) *uint256.Int {
	if stake.IsZero() {
		return new(uint256.Int)
	}
	reward, overflow := new(uint256.Int).MulDivOverflow(pool, amount, stake)
	if overflow || reward.Gt(pool) {
		return new(uint256.Int).Set(pool)
	}
	return reward
}

// distributeRewards pays the validators of the ending epoch and the delegators of
// their snapshot. Only delegations started before epoch, and still live with the
// same validator, earn on their snapshot amount. Payouts of a validator never exceed
// its delegator pool.
func (s *Staker) distributeRewards(epoch uint32) error {
	elected, err := s.validationService.Elected()
	if err != nil {
		return err
	}

	byValidator := make(map[thor.Address][]snapshotEntry)
	err = s.delegationService.IterateSnapshot(func(delegator thor.Address, del *delegation.Delegation) error {
		byValidator[del.Validator()] = append(byValidator[del.Validator()], snapshotEntry{delegator, del})
		return nil
	})
	if err != nil {
		return err
	}

	for _, validator := range elected {
		blocks, err := s.authorshipService.Count(validator)
		if err != nil {
			return err
		}
		split := splitReward(s.config.BaseRewardPerBlock, blocks, s.config.ValidatorPercentage)
		stake, err := s.validationService.GetStake(validator)
		if err != nil {
			return err
		}
		logger.Debug("distributing rewards",
			"validator", validator,
			"blocks", blocks,
			"pool", split.Pool,
			"stake", stake,
		)

		distributed := new(uint256.Int)
		for _, entry := range byValidator[validator] {
			if entry.del.EpochStarted() >= uint64(epoch) {
				continue
			}
			live, err := s.delegationService.GetDelegation(entry.delegator)
			if err != nil {
				return err
			}
			if live == nil || live.Validator() != validator {
				continue
			}
			reward := delegatorReward(split.DelegatorPool, entry.del.Amount(), stake)
			if left := new(uint256.Int).Sub(split.DelegatorPool, distributed); reward.Gt(left) {
				reward = left
			}
			if reward.IsZero() {
				continue
			}
			if s.mintReward(entry.delegator, validator, reward, "delegator") {
				distributed.Add(distributed, reward)
			}
		}
		if !split.ValidatorCut.IsZero() {
			s.mintReward(validator, validator, split.ValidatorCut, "validator")
		}
		if forfeited := new(uint256.Int).Sub(split.DelegatorPool, distributed); !forfeited.IsZero() {
			logger.Debug("reward remainder forfeited", "validator", validator, "amount", forfeited)
		}
	}
	return nil
}

// mintReward mints a payout, logging a failure instead of aborting the distribution.
func (s *Staker) mintReward(account, validator thor.Address, amount *uint256.Int, kind string) bool {
	if err := s.ledger.Mint(account, amount); err != nil {
		metricMintFailuresCount().Add(1)
		logger.Error("failed to mint reward", "account", account, "validator", validator, "amount", amount, "err", err)
		return false
	}
	s.emit(&Event{Name: EventRewardsDistributed, Validator: validator, Account: account, Amount: amount})
	s.afterCommit = append(s.afterCommit, func() {
		metricRewardsMinted().AddWithLabel(clampInt64(amount), map[string]string{"kind": kind})
	})
	return true
}
