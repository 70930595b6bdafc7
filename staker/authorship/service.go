// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package authorship

import (
	"github.com/pkg/errors"

	"github.com/vechain/dpos/storage"
	"github.com/vechain/dpos/thor"
)

const slotTally = "staker.authorship"

// Service tallies blocks authored per validator within an epoch.
type Service struct {
	tally *storage.Mapping[uint64]
}

func New(sctx *storage.Context) *Service {
	return &Service{tally: storage.NewMapping[uint64](sctx, slotTally)}
}

// Count returns the blocks authored by the validator, zero when absent.
func (s *Service) Count(validator thor.Address) (uint64, error) {
	n, _, err := s.tally.Get(validator)
	return n, errors.Wrap(err, "failed to get tally")
}

// Increment bumps the tally of the validator and returns the new count.
func (s *Service) Increment(validator thor.Address) (uint64, error) {
	n, err := s.Count(validator)
	if err != nil {
		return 0, err
	}
	n++
	return n, errors.Wrap(s.tally.Set(validator, n), "failed to set tally")
}

// All returns every non-zero tally.
func (s *Service) All() (map[thor.Address]uint64, error) {
	all := make(map[thor.Address]uint64)
	err := s.tally.Iterate(func(validator thor.Address, n uint64) error {
		all[validator] = n
		return nil
	})
	return all, errors.Wrap(err, "failed to iterate tally")
}

// Reset zeroes every tally.
func (s *Service) Reset() error {
	return errors.Wrap(s.tally.Clear(), "failed to reset tally")
}
