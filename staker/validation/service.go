// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package validation

import (
	"slices"

	"github.com/holiman/uint256"
	"github.com/pkg/errors"

	"github.com/vechain/dpos/storage"
	"github.com/vechain/dpos/thor"
)

const (
	slotValidators = "staker.validators"
	slotStakes     = "staker.stakes"
	slotElected    = "staker.elected"
)

// Service owns validator records, aggregate stakes and the elected set.
type Service struct {
	validators *storage.Mapping[*body]
	stakes     *storage.Mapping[*uint256.Int]
	elected    *storage.Value[[]thor.Address]
}

func New(sctx *storage.Context) *Service {
	return &Service{
		validators: storage.NewMapping[*body](sctx, slotValidators),
		stakes:     storage.NewMapping[*uint256.Int](sctx, slotStakes),
		elected:    storage.NewValue[[]thor.Address](sctx, slotElected),
	}
}

// GetValidator returns the record, or nil if the account is not registered.
func (s *Service) GetValidator(addr thor.Address) (*Validator, error) {
	b, found, err := s.validators.Get(addr)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get validator")
	}
	if !found {
		return nil, nil
	}
	if b.SelfStake == nil {
		b.SelfStake = new(uint256.Int)
	}
	return &Validator{b}, nil
}

// Add creates the record and initialises the aggregate stake with the self-stake.
func (s *Service) Add(addr thor.Address, selfStake *uint256.Int) error {
	if err := s.validators.Set(addr, &body{SelfStake: new(uint256.Int).Set(selfStake)}); err != nil {
		return errors.Wrap(err, "failed to set validator")
	}
	return s.setStake(addr, selfStake)
}

// Remove deletes the record and the aggregate stake.
func (s *Service) Remove(addr thor.Address) error {
	if err := s.validators.Delete(addr); err != nil {
		return errors.Wrap(err, "failed to remove validator")
	}
	return errors.Wrap(s.stakes.Delete(addr), "failed to remove stake")
}

// RemoveRecord deletes the record only.
func (s *Service) RemoveRecord(addr thor.Address) error {
	return errors.Wrap(s.validators.Delete(addr), "failed to remove validator")
}

// Count returns the number of registered validators.
func (s *Service) Count() (int, error) {
	keys, err := s.validators.Keys()
	return len(keys), err
}

// GetStake returns the aggregate stake, zero when absent.
func (s *Service) GetStake(addr thor.Address) (*uint256.Int, error) {
	v, found, err := s.stakes.Get(addr)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get stake")
	}
	if !found || v == nil {
		return new(uint256.Int), nil
	}
	return v, nil
}

func (s *Service) setStake(addr thor.Address, amount *uint256.Int) error {
	return errors.Wrap(s.stakes.Set(addr, new(uint256.Int).Set(amount)), "failed to set stake")
}

// IncreaseStake adds amount to the aggregate stake, saturating at the maximum.
func (s *Service) IncreaseStake(addr thor.Address, amount *uint256.Int) error {
	stake, err := s.GetStake(addr)
	if err != nil {
		return err
	}
	sum, overflow := new(uint256.Int).AddOverflow(stake, amount)
	if overflow {
		sum.SetAllOne()
	}
	return s.setStake(addr, sum)
}

// DecreaseStake subtracts amount from the aggregate stake, saturating at zero.
// An absent stake is left absent.
func (s *Service) DecreaseStake(addr thor.Address, amount *uint256.Int) error {
	stake, found, err := s.stakes.Get(addr)
	if err != nil {
		return errors.Wrap(err, "failed to get stake")
	}
	if !found || stake == nil {
		return nil
	}
	diff, underflow := new(uint256.Int).SubOverflow(stake, amount)
	if underflow {
		diff.Clear()
	}
	return s.setStake(addr, diff)
}

// ZeroStake drops the aggregate stake, which then reads as zero and is no longer a candidate.
func (s *Service) ZeroStake(addr thor.Address) error {
	return errors.Wrap(s.stakes.Delete(addr), "failed to zero stake")
}

// Stakes returns every (validator, stake) pair in ascending address order.
func (s *Service) Stakes() ([]Stake, error) {
	var stakes []Stake
	err := s.stakes.Iterate(func(addr thor.Address, amount *uint256.Int) error {
		if amount == nil {
			amount = new(uint256.Int)
		}
		stakes = append(stakes, Stake{Address: addr, Amount: amount})
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to iterate stakes")
	}
	return stakes, nil
}

// Elected returns the elected set, empty when never set.
func (s *Service) Elected() ([]thor.Address, error) {
	set, _, err := s.elected.Get()
	if err != nil {
		return nil, errors.Wrap(err, "failed to get elected set")
	}
	return set, nil
}

func (s *Service) SetElected(set []thor.Address) error {
	return errors.Wrap(s.elected.Set(slices.Clone(set)), "failed to set elected set")
}

func (s *Service) IsElected(addr thor.Address) (bool, error) {
	set, err := s.Elected()
	if err != nil {
		return false, err
	}
	return slices.Contains(set, addr), nil
}
