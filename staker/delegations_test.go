// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package staker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vechain/dpos/balance"
)

func TestDelegateErrors(t *testing.T) {
	v, w, d := addr("v"), addr("w"), addr("d")
	ts := newTest(t).Fund(v, 1000).Fund(w, 1000).Fund(d, 500)
	ts.MustRegister(v, 100).MustRegister(w, 100)
	ts.events.events = nil

	tests := []struct {
		name      string
		validator string
		amount    uint64
		err       error
	}{
		{"zero amount", "v", 0, ErrInvalidAmount},
		{"unknown validator", "nobody", 10, ErrValidatorNotFound},
		{"not enough funds", "v", 501, ErrInsufficientBalance},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, ts.Delegate(d, addr(tt.validator), u(tt.amount)), tt.err)

			del, err := ts.Delegation(d)
			require.NoError(t, err)
			assert.Nil(t, del)
			assert.Equal(t, uint64(500), ts.Free(d))
			assert.Equal(t, uint64(100), ts.StakeOf(v))
			assert.Empty(t, ts.events.events)
		})
	}
}

func TestSingleDelegation(t *testing.T) {
	v, w, d := addr("v"), addr("w"), addr("d")
	ts := newTest(t).Fund(v, 1000).Fund(w, 1000).Fund(d, 500)
	ts.MustRegister(v, 100).MustRegister(w, 100)

	ts.MustDelegate(d, v, 100)
	assert.ErrorIs(t, ts.Delegate(d, w, u(100)), ErrAlreadyDelegated)

	del, err := ts.Delegation(d)
	require.NoError(t, err)
	assert.Equal(t, v, del.Validator())
	assert.Equal(t, uint64(100), del.Amount().Uint64())
	assert.Equal(t, uint64(100), ts.StakeOf(w))
	assert.Equal(t, uint64(400), ts.Free(d))

	ts.MustDelegate(d, v, 50)
	del, err = ts.Delegation(d)
	require.NoError(t, err)
	assert.Equal(t, uint64(150), del.Amount().Uint64())
	assert.Equal(t, uint64(250), ts.StakeOf(v))
	assert.Equal(t, uint64(150), ts.Held(balance.ReasonDelegation, d))
	ts.AssertConservation(nil)
}

func TestDelegateEpochStarted(t *testing.T) {
	elected, candidate := addr("elected"), addr("candidate")
	d1, d2 := addr("d1"), addr("d2")
	ts := newTest(t).Genesis(elected).Fund(candidate, 1000).Fund(d1, 1000).Fund(d2, 1000)
	ts.MustRegister(candidate, 100)

	ts.RunTo(25) // epoch 2
	ts.MustDelegate(d1, elected, 10).MustDelegate(d2, candidate, 10)

	del, err := ts.Delegation(d1)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), del.EpochStarted())

	del, err = ts.Delegation(d2)
	require.NoError(t, err)
	// candidate was elected at block 10, genesis set had only one member
	assert.Equal(t, uint64(3), del.EpochStarted())

	ts.RunTo(35)
	ts.MustDelegate(d1, elected, 10)
	del, err = ts.Delegation(d1)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), del.EpochStarted(), "top up keeps the start epoch")
}

func TestDelegateToUnelectedValidator(t *testing.T) {
	a, b, c, late, d := addr("a"), addr("b"), addr("c"), addr("late"), addr("d")
	ts := newTest(t).Genesis(a, b, c).Fund(late, 1000).Fund(d, 1000)

	ts.RunTo(15)
	ts.MustRegister(late, 50)
	ts.MustDelegate(d, late, 10)

	del, err := ts.Delegation(d)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), del.EpochStarted())
}

func TestUndelegate(t *testing.T) {
	v, d := addr("v"), addr("d")
	ts := newTest(t).Fund(v, 1000).Fund(d, 500)
	ts.MustRegister(v, 100).MustDelegate(d, v, 300)

	assert.ErrorIs(t, ts.Undelegate(addr("nobody"), u(1)), ErrNoDelegationFound)
	assert.ErrorIs(t, ts.Undelegate(d, u(301)), ErrInsufficientBalance)

	require.NoError(t, ts.Undelegate(d, u(120)))
	del, err := ts.Delegation(d)
	require.NoError(t, err)
	assert.Equal(t, uint64(180), del.Amount().Uint64())
	assert.Equal(t, uint64(280), ts.StakeOf(v))
	assert.Equal(t, uint64(320), ts.Free(d))

	require.NoError(t, ts.Undelegate(d, u(180)))
	del, err = ts.Delegation(d)
	require.NoError(t, err)
	assert.Nil(t, del)
	assert.Equal(t, uint64(100), ts.StakeOf(v))
	assert.Equal(t, uint64(500), ts.Free(d))
	assert.Zero(t, ts.Held(balance.ReasonDelegation, d))

	evs := ts.events.named(EventUndelegated)
	require.Len(t, evs, 2)
	assert.Equal(t, d, evs[1].Account)
	assert.Equal(t, v, evs[1].Validator)
	assert.Equal(t, uint64(180), evs[1].Amount.Uint64())
}

func TestUndelegateFromSlashedValidator(t *testing.T) {
	v, d := addr("v"), addr("d")
	ts := newTest(t).Fund(v, 1000).Fund(d, 500)
	ts.MustRegister(v, 100).MustDelegate(d, v, 300)
	require.NoError(t, ts.Slash(v))

	// stake is already gone, the decrement saturates and the hold comes back
	require.NoError(t, ts.Undelegate(d, u(300)))
	assert.Zero(t, ts.StakeOf(v))
	assert.Equal(t, uint64(500), ts.Free(d))

	stakes, err := ts.Stakes()
	require.NoError(t, err)
	assert.Empty(t, stakes)
}
