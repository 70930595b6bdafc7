// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package staker

import (
	"time"

	"github.com/holiman/uint256"
	"github.com/pkg/errors"

	"github.com/vechain/dpos/balance"
	"github.com/vechain/dpos/thor"
)

// GenesisBalance seeds the free balance of an account at bootstrap.
type GenesisBalance struct {
	Account thor.Address
	Balance *uint256.Int
}

// Initialize bootstraps the staker: seeds balances, registers the initial validators with
// the genesis self-stake and makes them the elected set. It runs once.
func (s *Staker) Initialize(validators []thor.Address, balances []GenesisBalance) error {
	return s.transact("initialize", func() error {
		done, err := s.Initialized()
		if err != nil {
			return err
		}
		if done {
			return ErrAlreadyInitialized
		}
		if err := checkBound(validators, s.config.MaxValidators); err != nil {
			return err
		}

		for _, b := range balances {
			if err := s.ledger.SetBalance(b.Account, b.Balance); err != nil {
				return errors.WithMessagef(err, "seed balance of %v", b.Account)
			}
		}

		seen := make(map[thor.Address]bool, len(validators))
		for _, v := range validators {
			if seen[v] {
				return ErrAlreadyRegistered
			}
			seen[v] = true

			// the self-stake is escrowed as far as the seeded balance covers it
			free, err := s.ledger.Balance(v)
			if err != nil {
				return err
			}
			hold := new(uint256.Int).Set(s.config.GenesisSelfStake)
			if free.Lt(hold) {
				logger.Warn("genesis validator cannot cover its self-stake", "validator", v, "free", free, "self-stake", hold)
				hold.Set(free)
			}
			if !hold.IsZero() {
				if err := s.ledger.Hold(balance.ReasonRegistration, v, hold); err != nil {
					return errors.Wrap(err, "failed to hold genesis self-stake")
				}
			}
			if err := s.validationService.Add(v, s.config.GenesisSelfStake); err != nil {
				return err
			}
			s.emit(&Event{Name: EventValidatorRegistered, Validator: v, Amount: s.config.GenesisSelfStake})
		}

		if err := s.validationService.SetElected(validators); err != nil {
			return err
		}
		elected := append([]thor.Address(nil), validators...)
		s.afterCommit = append(s.afterCommit, func() {
			metricElectedValidators().Set(int64(len(elected)))
			if s.sink != nil {
				s.sink.Accept(elected)
			}
		})
		logger.Info("initialized staker", "validators", len(validators), "balances", len(balances))
		return s.initialized.Set(true)
	})
}

// OnInitialize is called at the start of every block. At an epoch boundary it pays the
// ending epoch, elects the new set, snapshots its delegations and resets the tallies.
// Each step commits on its own: a failing step is reported in the returned
// *BoundaryError and the following steps still run.
func (s *Staker) OnInitialize(block uint32) error {
	if err := s.context.Transact(func() error { return s.blockNumber.Set(block) }); err != nil {
		return errors.Wrap(err, "failed to store block number")
	}
	s.block = block

	if block == 0 || block%s.config.EpochLength != 0 {
		return nil
	}
	return s.housekeep(block)
}

func (s *Staker) housekeep(block uint32) error {
	epoch := block / s.config.EpochLength
	logger.Info("🏠performing housekeeping", "block", block, "epoch", epoch)
	start := time.Now()

	steps := []struct {
		name string
		fn   func() error
	}{
		{"distribute", func() error { return s.distributeRewards(epoch) }},
		{"elect", s.updateValidators},
		{"snapshot", s.takeSnapshot},
		{"reset", s.authorshipService.Reset},
	}

	var failed []*StepError
	for _, step := range steps {
		if err := s.transact("housekeep."+step.name, step.fn); err != nil {
			metricStepFailuresCount().AddWithLabel(1, map[string]string{"step": step.name})
			logger.Error("housekeeping step failed", "block", block, "step", step.name, "err", err)
			failed = append(failed, &StepError{Step: step.name, Err: err})
		}
	}

	metricEpochsCount().Add(1)
	metricHousekeepDuration().Observe(time.Since(start).Milliseconds())

	if len(failed) > 0 {
		return &BoundaryError{Block: block, Steps: failed}
	}
	logger.Info("performed housekeeping", "block", block, "epoch", epoch, "elapsed", time.Since(start))
	return nil
}

// OnFinalize is called at the end of every block and tallies its author.
// A block without a resolvable author is not counted.
func (s *Staker) OnFinalize(block uint32) error {
	if s.oracle == nil {
		return nil
	}
	author, ok := s.oracle.Author()
	if !ok {
		logger.Debug("no author resolved", "block", block)
		return nil
	}
	return s.transact("finalize", func() error {
		n, err := s.authorshipService.Increment(author)
		if err != nil {
			return err
		}
		logger.Trace("counted block", "block", block, "author", author, "count", n)
		return nil
	})
}
