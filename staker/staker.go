// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package staker

import (
	"github.com/holiman/uint256"
	"github.com/pkg/errors"

	"github.com/vechain/dpos/balance"
	"github.com/vechain/dpos/log"
	"github.com/vechain/dpos/staker/authorship"
	"github.com/vechain/dpos/staker/delegation"
	"github.com/vechain/dpos/staker/reverts"
	"github.com/vechain/dpos/staker/validation"
	"github.com/vechain/dpos/storage"
	"github.com/vechain/dpos/thor"
)

var logger = log.WithContext("pkg", "staker")

func SetLogger(l log.Logger) {
	logger = l
}

// Ledger is the balance ledger the staker escrows stake in and mints rewards into.
type Ledger interface {
	Balance(addr thor.Address) (*uint256.Int, error)
	Hold(reason balance.Reason, addr thor.Address, amount *uint256.Int) error
	Release(reason balance.Reason, addr thor.Address, amount *uint256.Int, bestEffort bool) (*uint256.Int, error)
	Mint(addr thor.Address, amount *uint256.Int) error
	Burn(reason balance.Reason, addr thor.Address, amount *uint256.Int, forced bool) (*uint256.Int, error)
	SetBalance(addr thor.Address, amount *uint256.Int) error
}

// AuthorOracle resolves the author of the block being finalized.
type AuthorOracle interface {
	Author() (thor.Address, bool)
}

// ValidatorSetSink consumes every newly elected validator set.
type ValidatorSetSink interface {
	Accept(validators []thor.Address)
}

// Config holds the staking parameters.
type Config struct {
	EpochLength         uint32
	MaxValidators       uint32
	BaseRewardPerBlock  *uint256.Int
	ValidatorPercentage uint64
	GenesisSelfStake    *uint256.Int
}

// DefaultConfig returns the default staking parameters.
func DefaultConfig() Config {
	return Config{
		EpochLength:         thor.EpochLength,
		MaxValidators:       thor.MaxValidators,
		BaseRewardPerBlock:  uint256.NewInt(thor.BaseRewardPerBlock),
		ValidatorPercentage: thor.ValidatorPercentage,
		GenesisSelfStake:    uint256.NewInt(thor.GenesisSelfStake),
	}
}

func (c Config) Validate() error {
	if c.EpochLength == 0 {
		return errors.New("epoch length must be positive")
	}
	if c.MaxValidators == 0 {
		return errors.New("max validators must be positive")
	}
	if c.ValidatorPercentage > 100 {
		return errors.Errorf("validator percentage %d exceeds 100", c.ValidatorPercentage)
	}
	if c.BaseRewardPerBlock == nil || c.GenesisSelfStake == nil {
		return errors.New("reward and genesis self-stake must be set")
	}
	return nil
}

// Staker is the staking, election and reward core.
// It is not safe for concurrent use, callers serialize every call.
type Staker struct {
	context *storage.Context
	ledger  Ledger
	oracle  AuthorOracle
	sink    ValidatorSetSink
	events  EventSink
	config  Config

	validationService *validation.Service
	delegationService *delegation.Service
	authorshipService *authorship.Service

	blockNumber *storage.Value[uint32]
	initialized *storage.Value[bool]

	block       uint32
	pending     []*Event
	afterCommit []func()
}

// New creates a staker over the storage context. The ledger is expected to share the
// context so that a call commits its ledger effects together with its own.
func New(
	sctx *storage.Context,
	ledger Ledger,
	oracle AuthorOracle,
	sink ValidatorSetSink,
	events EventSink,
	config Config,
) (*Staker, error) {
	if err := config.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid staker config")
	}
	s := &Staker{
		context: sctx,
		ledger:  ledger,
		oracle:  oracle,
		sink:    sink,
		events:  events,
		config:  config,

		validationService: validation.New(sctx),
		delegationService: delegation.New(sctx),
		authorshipService: authorship.New(sctx),

		blockNumber: storage.NewValue[uint32](sctx, "staker.block-number"),
		initialized: storage.NewValue[bool](sctx, "staker.initialized"),
	}
	block, _, err := s.blockNumber.Get()
	if err != nil {
		return nil, errors.Wrap(err, "failed to load block number")
	}
	s.block = block
	return s, nil
}

// transact runs fn atomically. Events and post-commit notifications queued by fn
// are delivered only when it commits.
func (s *Staker) transact(method string, fn func() error) error {
	s.pending = nil
	s.afterCommit = nil

	err := s.context.Transact(fn)

	status := "success"
	switch {
	case err == nil:
	case reverts.IsRevertErr(err):
		status = "reverted"
	default:
		status = "failed"
	}
	metricCallsCount().AddWithLabel(1, map[string]string{"method": method, "status": status})

	pending, afterCommit := s.pending, s.afterCommit
	s.pending, s.afterCommit = nil, nil
	if err != nil {
		return err
	}

	if s.events != nil {
		for _, ev := range pending {
			s.events.Emit(ev)
		}
	}
	for _, f := range afterCommit {
		f()
	}
	return nil
}

//
// Getters - no state change
//

// Config returns the staking parameters.
func (s *Staker) Config() Config {
	return s.config
}

// BlockNumber returns the last block passed to OnInitialize.
func (s *Staker) BlockNumber() uint32 {
	return s.block
}

// CurrentEpoch returns the epoch index of the current block.
func (s *Staker) CurrentEpoch() uint32 {
	return s.block / s.config.EpochLength
}

// Validator returns the record of a registered validator, or nil.
func (s *Staker) Validator(addr thor.Address) (*validation.Validator, error) {
	return s.validationService.GetValidator(addr)
}

// Stake returns the aggregate stake of the validator, zero when absent.
func (s *Staker) Stake(addr thor.Address) (*uint256.Int, error) {
	return s.validationService.GetStake(addr)
}

// Stakes returns every (validator, stake) pair in ascending address order.
func (s *Staker) Stakes() ([]validation.Stake, error) {
	return s.validationService.Stakes()
}

// Elected returns the current elected set.
func (s *Staker) Elected() ([]thor.Address, error) {
	return s.validationService.Elected()
}

// Delegation returns the live delegation of the delegator, or nil.
func (s *Staker) Delegation(delegator thor.Address) (*delegation.Delegation, error) {
	return s.delegationService.GetDelegation(delegator)
}

// Delegators returns the delegators of the validator in ascending order.
func (s *Staker) Delegators(validator thor.Address) ([]thor.Address, error) {
	return s.delegationService.DelegatorsOf(validator)
}

// Snapshot returns the snapshot entry of the delegator, or nil.
func (s *Staker) Snapshot(delegator thor.Address) (*delegation.Delegation, error) {
	return s.delegationService.GetSnapshot(delegator)
}

// BlockCount returns the blocks authored by the validator in the current epoch.
func (s *Staker) BlockCount(validator thor.Address) (uint64, error) {
	return s.authorshipService.Count(validator)
}

// BlockCounts returns every non-zero tally of the current epoch.
func (s *Staker) BlockCounts() (map[thor.Address]uint64, error) {
	return s.authorshipService.All()
}

// Initialized reports whether genesis bootstrap has run.
func (s *Staker) Initialized() (bool, error) {
	ok, _, err := s.initialized.Get()
	return ok, err
}
