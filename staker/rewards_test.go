// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package staker

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vechain/dpos/balance"
	"github.com/vechain/dpos/thor"
)

func TestSplitReward(t *testing.T) {
	split := splitReward(u(1000), 10, 30)
	assert.Equal(t, uint64(10_000), split.Pool.Uint64())
	assert.Equal(t, uint64(3000), split.ValidatorCut.Uint64())
	assert.Equal(t, uint64(7000), split.DelegatorPool.Uint64())

	split = splitReward(u(1000), 0, 30)
	assert.True(t, split.Pool.IsZero())

	split = splitReward(new(uint256.Int).SetAllOne(), 2, 30)
	assert.Equal(t, new(uint256.Int).SetAllOne(), split.Pool, "pool saturates")
	assert.True(t, split.DelegatorPool.Lt(split.Pool))
}

func TestDelegatorReward(t *testing.T) {
	assert.Equal(t, uint64(2333), delegatorReward(u(7000), u(100), u(300)).Uint64())
	assert.True(t, delegatorReward(u(7000), u(100), u(0)).IsZero())
	assert.Equal(t, uint64(7000), delegatorReward(u(7000), u(300), u(300)).Uint64())
	// amount above stake is capped at the pool
	assert.Equal(t, uint64(7000), delegatorReward(u(7000), u(300), u(100)).Uint64())
}

// A delegator joining during epoch 1 is paid at boundary 2 and not at boundary 1.
func TestRewardEligibilityAcrossEpochs(t *testing.T) {
	v, d := addr("v"), addr("d")
	ts := newTest(t).Genesis(v).Fund(d, 1000).AuthoredBy(v)

	ts.RunTo(5)
	ts.MustDelegate(d, v, 100)

	// boundary 1: blocks 1..9 authored, nothing for d yet
	ts.RunTo(10)
	assert.Equal(t, uint64(900), ts.Free(d))
	assert.Equal(t, uint64(10_000-100+2700), ts.Free(v))

	// boundary 2: blocks 10..19, pool 10000, d holds 100 of 200
	ts.RunTo(20)
	assert.Equal(t, uint64(900+3500), ts.Free(d))
	assert.Equal(t, uint64(10_000-100+2700+3000), ts.Free(v))

	// boundary 3: paid again
	ts.RunTo(30)
	assert.Equal(t, uint64(900+3500+3500), ts.Free(d))

	evs := ts.events.named(EventRewardsDistributed)
	var toD int
	for _, ev := range evs {
		if ev.Account == d {
			toD++
			assert.Equal(t, v, ev.Validator)
			assert.Equal(t, uint64(3500), ev.Amount.Uint64())
		}
	}
	assert.Equal(t, 2, toD)
}

func TestRewardTruncationForfeitsRemainder(t *testing.T) {
	v, d1, d2 := addr("v"), addr("d1"), addr("d2")
	ts := newTest(t).Genesis(v).Fund(d1, 1000).Fund(d2, 1000).AuthoredBy(v)
	ts.MustDelegate(d1, v, 100).MustDelegate(d2, v, 100)

	ts.RunTo(20)
	// 10 blocks, pool 10000, delegator pool 7000 over stake 300
	assert.Equal(t, uint64(900+2333), ts.Free(d1))
	assert.Equal(t, uint64(900+2333), ts.Free(d2))

	var minted uint64
	for _, ev := range ts.events.named(EventRewardsDistributed) {
		if ev.Block == 20 {
			minted += ev.Amount.Uint64()
		}
	}
	assert.Equal(t, uint64(3000+2333+2333), minted)
	assert.Less(t, minted, uint64(10_000))
}

func TestRewardOnlyForAuthoredBlocks(t *testing.T) {
	a, b := addr("a"), addr("b")
	ts := newTest(t).Genesis(a, b)

	ts.RunTo(9) // no author resolved
	ts.AuthoredBy(a).RunTo(10)
	assert.Equal(t, uint64(10_000-100), ts.Free(a))
	assert.Equal(t, uint64(10_000-100), ts.Free(b))

	ts.AuthoredBy(b).RunTo(20)
	// a authored block 10 only, b blocks 11..19
	assert.Equal(t, uint64(10_000-100+300), ts.Free(a))
	assert.Equal(t, uint64(10_000-100+2700), ts.Free(b))
}

func TestUndelegatedBeforeBoundaryGetsNothing(t *testing.T) {
	v, d, e := addr("v"), addr("d"), addr("e")
	ts := newTest(t).Genesis(v).Fund(d, 1000).Fund(e, 1000).AuthoredBy(v)
	ts.MustDelegate(d, v, 100).MustDelegate(e, v, 100)
	ts.RunTo(15)

	require.NoError(t, ts.Undelegate(d, u(100)))
	require.NoError(t, ts.Undelegate(e, u(60)))
	ts.RunTo(20)

	assert.Equal(t, uint64(1000), ts.Free(d))
	// e still counts its snapshot amount of 100, over a live stake of 140
	assert.Equal(t, uint64(960+7000*100/140), ts.Free(e))
}

func TestPartialUndelegationKeepsSnapshotAmount(t *testing.T) {
	v, e := addr("v"), addr("e")
	ts := newTest(t).Genesis(v).Fund(e, 3000).AuthoredBy(v)
	ts.MustDelegate(e, v, 100)
	ts.RunTo(15)

	require.NoError(t, ts.Undelegate(e, u(60)))
	ts.RunTo(20)
	assert.Equal(t, uint64(2960+7000*100/140), ts.Free(e))
}

func TestDelegatorPayoutsNeverExceedPool(t *testing.T) {
	v, d, e := addr("v"), addr("d"), addr("e")
	ts := newTest(t).Genesis(v).Fund(d, 1000).Fund(e, 1000).AuthoredBy(v)
	ts.MustDelegate(d, v, 100).MustDelegate(e, v, 100)
	ts.RunTo(15)

	require.NoError(t, ts.Undelegate(d, u(90)))
	require.NoError(t, ts.Undelegate(e, u(90)))
	ts.RunTo(20)

	// 7000*100/120 each would overpay, the second payout gets what is left
	assert.Equal(t, uint64(910+910+7000), ts.Free(d)+ts.Free(e))
}

func TestTopUpDuringEpochDoesNotEarn(t *testing.T) {
	v, d := addr("v"), addr("d")
	ts := newTest(t).Genesis(v).Fund(d, 1000).AuthoredBy(v)
	ts.MustDelegate(d, v, 100)
	ts.RunTo(15)

	ts.MustDelegate(d, v, 200)
	ts.RunTo(20)
	// snapshot amount 100 counts, over the live stake of 400
	assert.Equal(t, uint64(700+7000*100/400), ts.Free(d))
}

func TestUnregisteredValidatorStillGetsCut(t *testing.T) {
	v, w, d := addr("v"), addr("w"), addr("d")
	ts := newTest(t).Genesis(v, w).Fund(d, 1000)
	ts.MustDelegate(d, v, 100)
	ts.RunTo(10)
	ts.AuthoredBy(v).RunTo(15)

	require.NoError(t, ts.Unregister(v))
	assert.Equal(t, uint64(10_000), ts.Free(v))
	assert.Equal(t, uint64(1000), ts.Free(d))
	ts.RunTo(20)

	// still in the pre-election set: the cut of blocks 11..19 is paid, no delegator is left to earn
	assert.Equal(t, uint64(10_000+2700), ts.Free(v))
	assert.Equal(t, uint64(1000), ts.Free(d))
	assert.Equal(t, []thor.Address{w}, ts.ElectedSet())
}

func TestMintFailureDoesNotStopBoundary(t *testing.T) {
	v := addr("v")
	ts := newTest(t)
	failing := &failingLedger{Ledger: ts.ledger, failMint: true}
	ts.Staker.ledger = failing
	ts.Genesis(v).AuthoredBy(v)

	ts.RunTo(10)
	assert.Equal(t, uint64(10_000-100), ts.Free(v))
	assert.Empty(t, ts.events.named(EventRewardsDistributed))
	assert.Len(t, ts.events.named(EventValidatorsUpdated), 1)
	assert.Equal(t, uint64(100), ts.Held(balance.ReasonRegistration, v))
}

func TestDelegationToCandidateEarnsOnceElected(t *testing.T) {
	a, b, c, late, d := addr("a"), addr("b"), addr("c"), addr("late"), addr("d")
	ts := newTest(t).Genesis(a, b, c).Fund(late, 1000).Fund(d, 1000)
	ts.RunTo(5)
	ts.MustRegister(late, 50).MustDelegate(d, late, 200)
	ts.AuthoredBy(late)

	ts.RunTo(10)
	assert.Contains(t, ts.ElectedSet(), late)
	snap, err := ts.Snapshot(d)
	require.NoError(t, err)
	require.NotNil(t, snap)
	assert.Equal(t, uint64(0), snap.EpochStarted())
	assert.Equal(t, uint64(800), ts.Free(d), "late was not active during epoch 0")

	ts.RunTo(20)
	// 10 blocks by late, delegator pool 7000, d holds 200 of 250
	assert.Equal(t, uint64(800+5600), ts.Free(d))
}
