// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package staker

import (
	"github.com/holiman/uint256"
	"github.com/pkg/errors"

	"github.com/vechain/dpos/balance"
	"github.com/vechain/dpos/staker/delegation"
	"github.com/vechain/dpos/thor"
)

// Delegate stakes amount from delegator with validator. A delegator has at most one
// delegation, topping it up keeps its start epoch.
func (s *Staker) Delegate(delegator, validator thor.Address, amount *uint256.Int) error {
	return s.transact("delegate", func() error {
		if amount.IsZero() {
			return ErrInvalidAmount
		}
		val, err := s.validationService.GetValidator(validator)
		if err != nil {
			return err
		}
		if val == nil {
			return ErrValidatorNotFound
		}
		free, err := s.ledger.Balance(delegator)
		if err != nil {
			return err
		}
		if free.Lt(amount) {
			return ErrInsufficientBalance
		}

		elected, err := s.validationService.IsElected(validator)
		if err != nil {
			return err
		}
		// delegations to an active validator wait for the next epoch
		epochStarted := uint64(s.CurrentEpoch())
		if elected {
			epochStarted++
		}

		existing, err := s.delegationService.GetDelegation(delegator)
		if err != nil {
			return err
		}
		if existing != nil && existing.Validator() != validator {
			return ErrAlreadyDelegated
		}

		del, err := s.delegationService.Add(delegator, validator, amount, epochStarted)
		if err != nil {
			return err
		}
		if err := s.ledger.Hold(balance.ReasonDelegation, delegator, amount); err != nil {
			return errors.Wrap(err, "failed to hold delegation")
		}
		if err := s.validationService.IncreaseStake(validator, amount); err != nil {
			return err
		}

		s.emit(&Event{Name: EventDelegated, Validator: validator, Account: delegator, Amount: amount})
		logger.Debug("delegated",
			"delegator", delegator,
			"validator", validator,
			"amount", amount,
			"total", del.Amount(),
			"epochStarted", del.EpochStarted(),
		)
		return nil
	})
}

// Undelegate withdraws amount from the delegator's delegation, removing it at zero.
func (s *Staker) Undelegate(delegator thor.Address, amount *uint256.Int) error {
	return s.transact("undelegate", func() error {
		del, err := s.delegationService.GetDelegation(delegator)
		if err != nil {
			return err
		}
		if del == nil {
			return ErrNoDelegationFound
		}
		if amount.Gt(del.Amount()) {
			return ErrInsufficientBalance
		}
		return s.undelegate(delegator, del, amount)
	})
}

func (s *Staker) undelegate(delegator thor.Address, del *delegation.Delegation, amount *uint256.Int) error {
	remaining, err := s.delegationService.Decrease(delegator, amount)
	if err != nil {
		return err
	}
	released, err := s.ledger.Release(balance.ReasonDelegation, delegator, amount, true)
	if err != nil {
		return errors.Wrap(err, "failed to release delegation")
	}
	if released.Lt(amount) {
		logger.Warn("released less than undelegated", "delegator", delegator, "amount", amount, "released", released)
	}
	if err := s.validationService.DecreaseStake(del.Validator(), amount); err != nil {
		return err
	}

	s.emit(&Event{Name: EventUndelegated, Validator: del.Validator(), Account: delegator, Amount: amount})
	logger.Debug("undelegated", "delegator", delegator, "validator", del.Validator(), "amount", amount, "remaining", remaining)
	return nil
}
