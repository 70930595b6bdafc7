// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package node

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/holiman/uint256"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vechain/dpos/balance"
	"github.com/vechain/dpos/genesis"
	"github.com/vechain/dpos/kv"
	"github.com/vechain/dpos/logdb"
	"github.com/vechain/dpos/lvldb"
	"github.com/vechain/dpos/staker"
	"github.com/vechain/dpos/thor"
)

var delegator = thor.BytesToAddress([]byte("delegator"))

func testGenesis() *genesis.Genesis {
	gene := genesis.NewDevnet()
	gene.Params.EpochLength = 10
	gene.Accounts = append(gene.Accounts, genesis.Account{Address: delegator, Balance: genesis.NewAmount(5000)})
	return gene
}

func newTestNode(t *testing.T, store kv.Store, logDB *logdb.LogDB) *Node {
	n, err := New(store, logDB, testGenesis(), Options{BlockInterval: 10 * time.Millisecond})
	require.NoError(t, err)
	return n
}

func newMemNode(t *testing.T) (*Node, *logdb.LogDB) {
	store, err := lvldb.NewMem()
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	logDB, err := logdb.NewMem()
	require.NoError(t, err)
	t.Cleanup(func() { logDB.Close() })

	return newTestNode(t, store, logDB), logDB
}

func allEvents(t *testing.T, logDB *logdb.LogDB) []*logdb.Event {
	events, err := logDB.FilterEvents(context.Background(), nil)
	require.NoError(t, err)
	return events
}

func TestNewBootstrapsGenesis(t *testing.T) {
	n, logDB := newMemNode(t)
	gene := testGenesis()

	status, err := n.Status()
	require.NoError(t, err)
	assert.Equal(t, uint32(0), status.BestBlock)
	assert.Equal(t, uint32(10), status.EpochLength)
	assert.Equal(t, gene.Validators, status.Elected)
	assert.Equal(t, uint64(1), status.SetUpdates)
	assert.Equal(t, len(gene.Validators), status.Validators)

	events := allEvents(t, logDB)
	require.Len(t, events, len(gene.Validators))
	for i, ev := range events {
		assert.Equal(t, uint32(0), ev.BlockNumber)
		assert.Equal(t, uint32(i), ev.Index)
		assert.Equal(t, string(staker.EventValidatorRegistered), ev.Name)
		assert.Equal(t, gene.Validators[i], ev.Validator)
	}

	err = n.View(func(s *staker.Staker, l *balance.Ledger) error {
		free, err := l.Balance(delegator)
		require.NoError(t, err)
		assert.Equal(t, uint256.NewInt(5000), free)
		return nil
	})
	require.NoError(t, err)
}

func TestProduceBlocks(t *testing.T) {
	n, logDB := newMemNode(t)
	gene := testGenesis()

	require.NoError(t, n.ProduceBlocks(10))

	status, err := n.Status()
	require.NoError(t, err)
	assert.Equal(t, uint32(10), status.BestBlock)
	assert.Equal(t, uint32(1), status.Epoch)

	// blocks 1..9 are authored round robin by validators 1..9
	rewards, err := logDB.FilterEvents(context.Background(), &logdb.EventFilter{
		Names: []string{string(staker.EventRewardsDistributed)},
	})
	require.NoError(t, err)
	require.Len(t, rewards, 9)
	for _, ev := range rewards {
		assert.Equal(t, uint32(10), ev.BlockNumber)
		assert.Equal(t, ev.Validator, ev.Account)
		assert.Equal(t, uint256.NewInt(300), ev.Amount)
	}

	err = n.View(func(s *staker.Staker, l *balance.Ledger) error {
		free, err := l.Balance(gene.Validators[0])
		require.NoError(t, err)
		assert.Equal(t, uint256.NewInt(9900), free)

		free, err = l.Balance(gene.Validators[1])
		require.NoError(t, err)
		assert.Equal(t, uint256.NewInt(10_200), free)

		// block 10 is the first one of the new epoch
		count, err := s.BlockCount(status.Elected[0])
		require.NoError(t, err)
		assert.Equal(t, uint64(1), count)
		return nil
	})
	require.NoError(t, err)
}

func TestSubmitAndSubscribe(t *testing.T) {
	n, logDB := newMemNode(t)
	gene := testGenesis()

	ch := make(chan *logdb.Event, 16)
	sub := n.SubscribeEvents(ch)
	defer sub.Unsubscribe()

	require.NoError(t, n.ProduceBlocks(3))
	err := n.Submit(func(s *staker.Staker) error {
		return s.Delegate(delegator, gene.Validators[2], uint256.NewInt(1000))
	})
	require.NoError(t, err)

	select {
	case ev := <-ch:
		assert.Equal(t, string(staker.EventDelegated), ev.Name)
		assert.Equal(t, uint32(3), ev.BlockNumber)
		assert.Equal(t, uint32(0), ev.Index)
		assert.Equal(t, delegator, ev.Account)
		assert.Equal(t, gene.Validators[2], ev.Validator)
	case <-time.After(time.Second):
		t.Fatal("no event received")
	}

	// reverted calls emit nothing
	err = n.Submit(func(s *staker.Staker) error {
		return s.Delegate(delegator, gene.Validators[3], uint256.NewInt(1000))
	})
	assert.ErrorIs(t, err, staker.ErrAlreadyDelegated)

	err = n.Submit(func(s *staker.Staker) error {
		return s.Undelegate(delegator, uint256.NewInt(400))
	})
	require.NoError(t, err)

	events, err := logDB.FilterEvents(context.Background(), &logdb.EventFilter{Accounts: []thor.Address{delegator}})
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, uint32(1), events[1].Index)
	assert.Equal(t, string(staker.EventUndelegated), events[1].Name)
	assert.Len(t, ch, 1)
}

func TestRestart(t *testing.T) {
	dir := t.TempDir()
	gene := testGenesis()

	store, err := lvldb.New(filepath.Join(dir, "main.db"), lvldb.Options{})
	require.NoError(t, err)
	logDB, err := logdb.New(filepath.Join(dir, "logs.db"))
	require.NoError(t, err)

	n := newTestNode(t, store, logDB)
	require.NoError(t, n.ProduceBlocks(12))
	require.NoError(t, n.Submit(func(s *staker.Staker) error {
		return s.Delegate(delegator, gene.Validators[0], uint256.NewInt(500))
	}))
	before := allEvents(t, logDB)

	require.NoError(t, store.Close())
	require.NoError(t, logDB.Close())

	store, err = lvldb.New(filepath.Join(dir, "main.db"), lvldb.Options{})
	require.NoError(t, err)
	defer store.Close()
	logDB, err = logdb.New(filepath.Join(dir, "logs.db"))
	require.NoError(t, err)
	defer logDB.Close()

	n = newTestNode(t, store, logDB)
	status, err := n.Status()
	require.NoError(t, err)
	assert.Equal(t, uint32(12), status.BestBlock)
	assert.Len(t, status.Elected, len(gene.Validators))

	assert.Equal(t, before, allEvents(t, logDB))

	require.NoError(t, n.Submit(func(s *staker.Staker) error {
		return s.Undelegate(delegator, uint256.NewInt(500))
	}))
	after := allEvents(t, logDB)
	require.Len(t, after, len(before)+1)
	last := after[len(after)-1]
	assert.Equal(t, uint32(12), last.BlockNumber)
	assert.Equal(t, before[len(before)-1].Index+1, last.Index)
}

func TestRun(t *testing.T) {
	n, _ := newMemNode(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- n.Run(ctx) }()

	require.Eventually(t, func() bool {
		status, err := n.Status()
		return err == nil && status.BestBlock >= 3
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("run did not stop")
	}
}

func TestRoundRobin(t *testing.T) {
	set := []thor.Address{{1}, {2}, {3}}
	r := &roundRobin{elected: func() ([]thor.Address, error) { return set, nil }}

	for block, want := range []thor.Address{{1}, {2}, {3}, {1}} {
		r.block = uint32(block)
		author, ok := r.Author()
		assert.True(t, ok)
		assert.Equal(t, want, author)
	}

	set = nil
	_, ok := r.Author()
	assert.False(t, ok)
}

type flakyLog struct {
	*logdb.LogDB
	fail bool
}

func (f *flakyLog) Write(events []*logdb.Event) error {
	if f.fail {
		return errors.New("disk full")
	}
	return f.LogDB.Write(events)
}

func TestFlushKeepsEventsOnWriteFailure(t *testing.T) {
	n, logDB := newMemNode(t)
	gene := testGenesis()
	flaky := &flakyLog{LogDB: logDB, fail: true}
	n.logDB = flaky

	ch := make(chan *logdb.Event, 16)
	sub := n.SubscribeEvents(ch)
	defer sub.Unsubscribe()

	require.NoError(t, n.ProduceBlocks(2))
	err := n.Submit(func(s *staker.Staker) error {
		return s.Delegate(delegator, gene.Validators[1], uint256.NewInt(1000))
	})
	assert.ErrorContains(t, err, "disk full")
	assert.Empty(t, ch)

	// the delegation is committed even though its event is not stored yet
	err = n.View(func(s *staker.Staker, _ *balance.Ledger) error {
		del, err := s.Delegation(delegator)
		require.NoError(t, err)
		assert.NotNil(t, del)
		return nil
	})
	require.NoError(t, err)

	flaky.fail = false
	require.NoError(t, n.Submit(func(s *staker.Staker) error {
		return s.Undelegate(delegator, uint256.NewInt(400))
	}))

	events, err := logDB.FilterEvents(context.Background(), &logdb.EventFilter{Accounts: []thor.Address{delegator}})
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, string(staker.EventDelegated), events[0].Name)
	assert.Equal(t, uint32(0), events[0].Index)
	assert.Equal(t, string(staker.EventUndelegated), events[1].Name)
	assert.Equal(t, uint32(1), events[1].Index)
	assert.Len(t, ch, 2)
}
