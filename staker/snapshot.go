// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package staker

import (
	"github.com/pkg/errors"
)

// takeSnapshot replaces the snapshot with the live delegations of the elected validators.
func (s *Staker) takeSnapshot() error {
	if err := s.delegationService.ClearSnapshot(); err != nil {
		return err
	}
	elected, err := s.validationService.Elected()
	if err != nil {
		return err
	}

	var captured int
	for _, validator := range elected {
		delegators, err := s.delegationService.DelegatorsOf(validator)
		if err != nil {
			return err
		}
		for _, delegator := range delegators {
			del, err := s.delegationService.GetDelegation(delegator)
			if err != nil {
				return err
			}
			if del == nil {
				return errors.Errorf("index lists %v for %v without a delegation", delegator, validator)
			}
			if err := s.delegationService.Capture(delegator, del); err != nil {
				return err
			}
			captured++
		}
	}
	logger.Debug("took snapshot", "block", s.block, "validators", len(elected), "delegations", captured)
	return nil
}
