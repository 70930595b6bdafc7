// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package staker

import (
	"strings"

	"github.com/vechain/dpos/staker/reverts"
)

// Caller errors. A call failing with one of them leaves no effect.
var (
	ErrInsufficientBalance = reverts.New("insufficient balance")
	ErrAlreadyRegistered   = reverts.New("validator already registered")
	ErrValidatorNotFound   = reverts.New("validator not found")
	ErrAlreadyDelegated    = reverts.New("already delegated to another validator")
	ErrNoDelegationFound   = reverts.New("no delegation found")
	ErrInvalidAmount       = reverts.New("invalid amount")
	ErrTooManyValidators   = reverts.New("too many validators")
	ErrAlreadyInitialized  = reverts.New("already initialized")
)

// StepError is the failure of a single epoch boundary step.
type StepError struct {
	Step string
	Err  error
}

func (e *StepError) Error() string {
	return e.Step + ": " + e.Err.Error()
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// BoundaryError aggregates the steps that failed during an epoch boundary.
// The steps not listed completed.
type BoundaryError struct {
	Block uint32
	Steps []*StepError
}

func (e *BoundaryError) Error() string {
	msgs := make([]string, 0, len(e.Steps))
	for _, s := range e.Steps {
		msgs = append(msgs, s.Error())
	}
	return "epoch boundary: " + strings.Join(msgs, "; ")
}

func (e *BoundaryError) Unwrap() []error {
	errs := make([]error, 0, len(e.Steps))
	for _, s := range e.Steps {
		errs = append(errs, s)
	}
	return errs
}
