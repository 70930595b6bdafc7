// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package staker

import (
	"github.com/pkg/errors"

	"github.com/vechain/dpos/balance"
	"github.com/vechain/dpos/thor"
)

// Slash zeroes the stake of the validator, burns what it holds under the slashing
// reason and removes its record. Delegations pointing to it are left as they are,
// their holds stay until each delegator undelegates. Only privileged callers reach it.
func (s *Staker) Slash(validator thor.Address) error {
	return s.transact("slash", func() error {
		val, err := s.validationService.GetValidator(validator)
		if err != nil {
			return err
		}
		if val == nil {
			return ErrValidatorNotFound
		}
		stake, err := s.validationService.GetStake(validator)
		if err != nil {
			return err
		}
		if stake.IsZero() {
			return ErrInsufficientBalance
		}

		if err := s.validationService.ZeroStake(validator); err != nil {
			return err
		}
		burned, err := s.ledger.Burn(balance.ReasonSlashing, validator, stake, true)
		if err != nil {
			return errors.Wrap(err, "failed to burn slashed stake")
		}
		if err := s.validationService.RemoveRecord(validator); err != nil {
			return err
		}

		s.emit(&Event{Name: EventValidatorSlashed, Validator: validator, Amount: stake})
		logger.Warn("slashed validator", "validator", validator, "stake", stake, "burned", burned)
		return nil
	})
}
