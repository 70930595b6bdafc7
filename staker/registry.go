// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package staker

import (
	"github.com/holiman/uint256"
	"github.com/pkg/errors"

	"github.com/vechain/dpos/balance"
	"github.com/vechain/dpos/thor"
)

// Register makes account a validator, holding amount as its self-stake.
func (s *Staker) Register(account thor.Address, amount *uint256.Int) error {
	return s.transact("register", func() error {
		logger.Debug("adding validator", "validator", account, "amount", amount)

		free, err := s.ledger.Balance(account)
		if err != nil {
			return err
		}
		if free.Lt(amount) {
			return ErrInsufficientBalance
		}
		existing, err := s.validationService.GetValidator(account)
		if err != nil {
			return err
		}
		if existing != nil {
			return ErrAlreadyRegistered
		}

		if err := s.ledger.Hold(balance.ReasonRegistration, account, amount); err != nil {
			return errors.Wrap(err, "failed to hold self-stake")
		}
		if err := s.validationService.Add(account, amount); err != nil {
			return err
		}

		s.emit(&Event{Name: EventValidatorRegistered, Validator: account, Amount: amount})
		logger.Info("added validator", "validator", account, "amount", amount)
		return nil
	})
}

// Unregister removes the validator, first undelegating every delegation pointing to it.
// The account stays in the elected set until the next election.
func (s *Staker) Unregister(account thor.Address) error {
	return s.transact("unregister", func() error {
		val, err := s.validationService.GetValidator(account)
		if err != nil {
			return err
		}
		if val == nil {
			return ErrValidatorNotFound
		}

		delegators, err := s.delegationService.DelegatorsOf(account)
		if err != nil {
			return err
		}
		logger.Debug("removing validator", "validator", account, "delegators", len(delegators))

		for _, delegator := range delegators {
			del, err := s.delegationService.GetDelegation(delegator)
			if err != nil {
				return err
			}
			if del == nil {
				continue
			}
			if err := s.undelegate(delegator, del, del.Amount()); err != nil {
				return errors.WithMessagef(err, "undelegate %v", delegator)
			}
		}

		if _, err := s.ledger.Release(balance.ReasonRegistration, account, val.SelfStake(), true); err != nil {
			return errors.Wrap(err, "failed to release self-stake")
		}
		if err := s.validationService.Remove(account); err != nil {
			return err
		}

		s.emit(&Event{Name: EventValidatorDeregistered, Validator: account})
		logger.Info("removed validator", "validator", account, "delegators", len(delegators))
		return nil
	})
}
