// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package staker

import (
	"slices"

	"github.com/vechain/dpos/staker/validation"
	"github.com/vechain/dpos/thor"
)

// rank orders candidates by stake descending, equal stakes by ascending address,
// and returns at most max of them.
func rank(candidates []validation.Stake, max uint32) []thor.Address {
	sorted := slices.Clone(candidates)
	slices.SortStableFunc(sorted, func(a, b validation.Stake) int {
		if c := b.Amount.Cmp(a.Amount); c != 0 {
			return c
		}
		return a.Address.Compare(b.Address)
	})

	n := min(len(sorted), int(max))
	elected := make([]thor.Address, 0, n)
	for _, c := range sorted[:n] {
		elected = append(elected, c.Address)
	}
	return elected
}

func checkBound(set []thor.Address, max uint32) error {
	if len(set) > int(max) {
		return ErrTooManyValidators
	}
	return nil
}

// updateValidators elects the top staked validators and replaces the elected set.
func (s *Staker) updateValidators() error {
	candidates, err := s.validationService.Stakes()
	if err != nil {
		return err
	}
	elected := rank(candidates, s.config.MaxValidators)

	if err := checkBound(elected, s.config.MaxValidators); err != nil {
		// unreachable while rank truncates, the previous set stays in place
		metricInvariantViolations().Add(1)
		logger.Error("elected set exceeds the bound, keeping the previous set",
			"size", len(elected),
			"max", s.config.MaxValidators,
			"err", err,
		)
		return nil
	}
	if err := s.validationService.SetElected(elected); err != nil {
		return err
	}

	s.emit(&Event{Name: EventValidatorsUpdated, Validators: slices.Clone(elected)})
	s.afterCommit = append(s.afterCommit, func() {
		metricElectedValidators().Set(int64(len(elected)))
		if s.sink != nil {
			s.sink.Accept(slices.Clone(elected))
		}
	})
	logger.Info("elected validators", "block", s.block, "candidates", len(candidates), "elected", len(elected))
	return nil
}
