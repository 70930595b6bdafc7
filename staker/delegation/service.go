// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package delegation

import (
	"slices"

	"github.com/holiman/uint256"
	"github.com/pkg/errors"

	"github.com/vechain/dpos/storage"
	"github.com/vechain/dpos/thor"
)

const (
	slotDelegations = "staker.delegations"
	slotIndex       = "staker.delegators-by-validator"
	slotSnapshot    = "staker.snapshot"
)

// Service owns live delegations, the validator to delegators index and the epoch snapshot.
type Service struct {
	delegations *storage.Mapping[*body]
	index       *storage.Mapping[[]thor.Address]
	snapshot    *storage.Mapping[*body]
}

func New(sctx *storage.Context) *Service {
	return &Service{
		delegations: storage.NewMapping[*body](sctx, slotDelegations),
		index:       storage.NewMapping[[]thor.Address](sctx, slotIndex),
		snapshot:    storage.NewMapping[*body](sctx, slotSnapshot),
	}
}

// GetDelegation returns the live delegation of the delegator, or nil.
func (s *Service) GetDelegation(delegator thor.Address) (*Delegation, error) {
	b, found, err := s.delegations.Get(delegator)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get delegation")
	}
	if !found {
		return nil, nil
	}
	return wrap(b), nil
}

// Add creates a delegation, or accumulates amount into the existing one keeping its start epoch.
// The caller ensures an existing delegation points to the same validator.
func (s *Service) Add(delegator, validator thor.Address, amount *uint256.Int, epochStarted uint64) (*Delegation, error) {
	existing, err := s.GetDelegation(delegator)
	if err != nil {
		return nil, err
	}

	var b *body
	if existing != nil {
		if existing.Validator() != validator {
			return nil, errors.Errorf("delegator %v already delegates to %v", delegator, existing.Validator())
		}
		b = existing.clone()
		sum, overflow := new(uint256.Int).AddOverflow(b.Amount, amount)
		if overflow {
			return nil, errors.New("delegation amount overflow")
		}
		b.Amount = sum
	} else {
		b = &body{Validator: validator, Amount: new(uint256.Int).Set(amount), EpochStarted: epochStarted}
		if err := s.addToIndex(validator, delegator); err != nil {
			return nil, err
		}
	}

	if err := s.delegations.Set(delegator, b); err != nil {
		return nil, errors.Wrap(err, "failed to set delegation")
	}
	return wrap(b), nil
}

// Decrease subtracts amount from the delegation, deleting it at zero.
// It returns the remaining amount.
func (s *Service) Decrease(delegator thor.Address, amount *uint256.Int) (*uint256.Int, error) {
	del, err := s.GetDelegation(delegator)
	if err != nil {
		return nil, err
	}
	if del == nil {
		return nil, errors.Errorf("no delegation for %v", delegator)
	}
	b := del.clone()
	remaining, underflow := new(uint256.Int).SubOverflow(b.Amount, amount)
	if underflow {
		return nil, errors.New("delegation amount underflow")
	}
	if remaining.IsZero() {
		return remaining, s.Remove(delegator)
	}
	b.Amount = remaining
	if err := s.delegations.Set(delegator, b); err != nil {
		return nil, errors.Wrap(err, "failed to set delegation")
	}
	return remaining, nil
}

// Remove deletes the delegation and its index entry.
func (s *Service) Remove(delegator thor.Address) error {
	del, err := s.GetDelegation(delegator)
	if err != nil || del == nil {
		return err
	}
	if err := s.removeFromIndex(del.Validator(), delegator); err != nil {
		return err
	}
	return errors.Wrap(s.delegations.Delete(delegator), "failed to remove delegation")
}

// DelegatorsOf lists, in ascending order, the delegators whose live delegation points to validator.
func (s *Service) DelegatorsOf(validator thor.Address) ([]thor.Address, error) {
	list, _, err := s.index.Get(validator)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get delegators")
	}
	return list, nil
}

// ScanDelegatorsOf answers the same question as DelegatorsOf by scanning every delegation.
func (s *Service) ScanDelegatorsOf(validator thor.Address) ([]thor.Address, error) {
	var list []thor.Address
	err := s.delegations.Iterate(func(delegator thor.Address, b *body) error {
		if b.Validator == validator {
			list = append(list, delegator)
		}
		return nil
	})
	return list, errors.Wrap(err, "failed to scan delegations")
}

// Iterate visits every live delegation in ascending delegator order.
func (s *Service) Iterate(fn func(delegator thor.Address, del *Delegation) error) error {
	return s.delegations.Iterate(func(delegator thor.Address, b *body) error {
		return fn(delegator, wrap(b))
	})
}

func (s *Service) addToIndex(validator, delegator thor.Address) error {
	list, err := s.DelegatorsOf(validator)
	if err != nil {
		return err
	}
	pos, found := slices.BinarySearchFunc(list, delegator, thor.Address.Compare)
	if found {
		return nil
	}
	list = slices.Insert(list, pos, delegator)
	return errors.Wrap(s.index.Set(validator, list), "failed to update index")
}

func (s *Service) removeFromIndex(validator, delegator thor.Address) error {
	list, err := s.DelegatorsOf(validator)
	if err != nil {
		return err
	}
	pos, found := slices.BinarySearchFunc(list, delegator, thor.Address.Compare)
	if !found {
		return nil
	}
	list = slices.Delete(list, pos, pos+1)
	if len(list) == 0 {
		return errors.Wrap(s.index.Delete(validator), "failed to update index")
	}
	return errors.Wrap(s.index.Set(validator, list), "failed to update index")
}

// ClearSnapshot drops every snapshot entry.
func (s *Service) ClearSnapshot() error {
	return errors.Wrap(s.snapshot.Clear(), "failed to clear snapshot")
}

// Capture copies the live delegation into the snapshot.
func (s *Service) Capture(delegator thor.Address, del *Delegation) error {
	return errors.Wrap(s.snapshot.Set(delegator, del.clone()), "failed to capture delegation")
}

// GetSnapshot returns the snapshot entry of the delegator, or nil.
func (s *Service) GetSnapshot(delegator thor.Address) (*Delegation, error) {
	b, found, err := s.snapshot.Get(delegator)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get snapshot")
	}
	if !found {
		return nil, nil
	}
	return wrap(b), nil
}

// IterateSnapshot visits every snapshot entry in ascending delegator order.
func (s *Service) IterateSnapshot(fn func(delegator thor.Address, del *Delegation) error) error {
	return s.snapshot.Iterate(func(delegator thor.Address, b *body) error {
		return fn(delegator, wrap(b))
	})
}
