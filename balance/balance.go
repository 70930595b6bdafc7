// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package balance

import (
	"fmt"

	"github.com/holiman/uint256"
	"github.com/pkg/errors"

	"github.com/vechain/dpos/log"
	"github.com/vechain/dpos/storage"
	"github.com/vechain/dpos/thor"
)

var (
	ErrInsufficientFunds = errors.New("insufficient free balance")
	ErrInsufficientHeld  = errors.New("insufficient held balance")
	ErrOverflow          = errors.New("balance overflow")

	logger = log.WithContext("pkg", "balance")
)

// Reason tags an escrowed amount with the purpose it is held for.
type Reason uint8

const (
	ReasonRegistration Reason = iota + 1
	ReasonDelegation
	ReasonSlashing
)

// Reasons lists every hold reason.
var Reasons = []Reason{ReasonRegistration, ReasonDelegation, ReasonSlashing}

func (r Reason) String() string {
	switch r {
	case ReasonRegistration:
		return "registration"
	case ReasonDelegation:
		return "delegation"
	case ReasonSlashing:
		return "slashing"
	default:
		return fmt.Sprintf("reason(%d)", uint8(r))
	}
}

// Account is a view of an account's free and held funds.
type Account struct {
	Free *uint256.Int
	Held map[Reason]*uint256.Int
}

// Ledger keeps free balances and an escrow sub-ledger keyed by (reason, account).
// Every mutation is atomic, and joins the caller's transaction when one is open.
type Ledger struct {
	context  *storage.Context
	free     *storage.Mapping[*uint256.Int]
	held     map[Reason]*storage.Mapping[*uint256.Int]
	issuance *storage.Value[*uint256.Int]
}

func New(context *storage.Context) *Ledger {
	held := make(map[Reason]*storage.Mapping[*uint256.Int], len(Reasons))
	for _, r := range Reasons {
		held[r] = storage.NewMapping[*uint256.Int](context, "balance.held."+r.String())
	}
	return &Ledger{
		context:  context,
		free:     storage.NewMapping[*uint256.Int](context, "balance.free"),
		held:     held,
		issuance: storage.NewValue[*uint256.Int](context, "balance.issuance"),
	}
}

func get(m *storage.Mapping[*uint256.Int], addr thor.Address) (*uint256.Int, error) {
	v, found, err := m.Get(addr)
	if err != nil {
		return nil, err
	}
	if !found || v == nil {
		return new(uint256.Int), nil
	}
	return v, nil
}

func set(m *storage.Mapping[*uint256.Int], addr thor.Address, v *uint256.Int) error {
	if v.IsZero() {
		return m.Delete(addr)
	}
	return m.Set(addr, v)
}

func (l *Ledger) heldMapping(reason Reason) (*storage.Mapping[*uint256.Int], error) {
	m, ok := l.held[reason]
	if !ok {
		return nil, errors.Errorf("unknown hold reason %v", reason)
	}
	return m, nil
}

// Balance returns the free balance of the account.
func (l *Ledger) Balance(addr thor.Address) (*uint256.Int, error) {
	return get(l.free, addr)
}

// Held returns the amount held under the reason.
func (l *Ledger) Held(reason Reason, addr thor.Address) (*uint256.Int, error) {
	m, err := l.heldMapping(reason)
	if err != nil {
		return nil, err
	}
	return get(m, addr)
}

// Account returns free and held balances of the account.
func (l *Ledger) Account(addr thor.Address) (*Account, error) {
	free, err := l.Balance(addr)
	if err != nil {
		return nil, err
	}
	acc := &Account{Free: free, Held: make(map[Reason]*uint256.Int, len(Reasons))}
	for _, r := range Reasons {
		if acc.Held[r], err = l.Held(r, addr); err != nil {
			return nil, err
		}
	}
	return acc, nil
}

// TotalIssuance returns the amount of funds in existence, free and held.
func (l *Ledger) TotalIssuance() (*uint256.Int, error) {
	v, found, err := l.issuance.Get()
	if err != nil {
		return nil, err
	}
	if !found || v == nil {
		return new(uint256.Int), nil
	}
	return v, nil
}

func (l *Ledger) adjustIssuance(delta *uint256.Int, increase bool) error {
	total, err := l.TotalIssuance()
	if err != nil {
		return err
	}
	var overflow bool
	if increase {
		total, overflow = new(uint256.Int).AddOverflow(total, delta)
	} else {
		total, overflow = new(uint256.Int).SubOverflow(total, delta)
	}
	if overflow {
		return ErrOverflow
	}
	return l.issuance.Set(total)
}

// SetBalance overwrites the free balance, adjusting the issuance by the difference.
func (l *Ledger) SetBalance(addr thor.Address, amount *uint256.Int) error {
	return l.context.Transact(func() error {
		prev, err := l.Balance(addr)
		if err != nil {
			return err
		}
		if amount.Gt(prev) {
			err = l.adjustIssuance(new(uint256.Int).Sub(amount, prev), true)
		} else {
			err = l.adjustIssuance(new(uint256.Int).Sub(prev, amount), false)
		}
		if err != nil {
			return err
		}
		return set(l.free, addr, new(uint256.Int).Set(amount))
	})
}

// Hold moves amount from the free balance into escrow under the reason.
func (l *Ledger) Hold(reason Reason, addr thor.Address, amount *uint256.Int) error {
	m, err := l.heldMapping(reason)
	if err != nil {
		return err
	}
	return l.context.Transact(func() error {
		free, err := l.Balance(addr)
		if err != nil {
			return err
		}
		if free.Lt(amount) {
			return ErrInsufficientFunds
		}
		held, err := get(m, addr)
		if err != nil {
			return err
		}
		held, overflow := new(uint256.Int).AddOverflow(held, amount)
		if overflow {
			return ErrOverflow
		}
		if err := set(l.free, addr, new(uint256.Int).Sub(free, amount)); err != nil {
			return err
		}
		return set(m, addr, held)
	})
}

// Release moves amount from escrow back to the free balance. In best effort mode
// it releases whatever is held up to amount, otherwise a shortfall fails.
// It returns the amount actually released.
func (l *Ledger) Release(reason Reason, addr thor.Address, amount *uint256.Int, bestEffort bool) (*uint256.Int, error) {
	m, err := l.heldMapping(reason)
	if err != nil {
		return nil, err
	}
	released := new(uint256.Int)
	err = l.context.Transact(func() error {
		held, err := get(m, addr)
		if err != nil {
			return err
		}
		released.Set(amount)
		if held.Lt(amount) {
			if !bestEffort {
				return ErrInsufficientHeld
			}
			logger.Debug("partial release", "account", addr, "reason", reason, "requested", amount, "held", held)
			released.Set(held)
		}
		free, err := l.Balance(addr)
		if err != nil {
			return err
		}
		free, overflow := new(uint256.Int).AddOverflow(free, released)
		if overflow {
			return ErrOverflow
		}
		if err := set(m, addr, new(uint256.Int).Sub(held, released)); err != nil {
			return err
		}
		return set(l.free, addr, free)
	})
	if err != nil {
		return nil, err
	}
	return released, nil
}

// Mint creates amount into the free balance.
func (l *Ledger) Mint(addr thor.Address, amount *uint256.Int) error {
	return l.context.Transact(func() error {
		free, err := l.Balance(addr)
		if err != nil {
			return err
		}
		free, overflow := new(uint256.Int).AddOverflow(free, amount)
		if overflow {
			return ErrOverflow
		}
		if err := l.adjustIssuance(amount, true); err != nil {
			return err
		}
		return set(l.free, addr, free)
	})
}

// Burn destroys amount held under the reason. A forced burn destroys whatever is
// held up to amount, otherwise a shortfall fails. It returns the amount burned.
func (l *Ledger) Burn(reason Reason, addr thor.Address, amount *uint256.Int, forced bool) (*uint256.Int, error) {
	m, err := l.heldMapping(reason)
	if err != nil {
		return nil, err
	}
	burned := new(uint256.Int)
	err = l.context.Transact(func() error {
		held, err := get(m, addr)
		if err != nil {
			return err
		}
		burned.Set(amount)
		if held.Lt(amount) {
			if !forced {
				return ErrInsufficientHeld
			}
			burned.Set(held)
		}
		if err := l.adjustIssuance(burned, false); err != nil {
			return err
		}
		return set(m, addr, new(uint256.Int).Sub(held, burned))
	})
	if err != nil {
		return nil, err
	}
	return burned, nil
}
