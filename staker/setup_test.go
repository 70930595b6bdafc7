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
	"github.com/vechain/dpos/lvldb"
	"github.com/vechain/dpos/staker/delegation"
	"github.com/vechain/dpos/storage"
	"github.com/vechain/dpos/thor"
)

func u(v uint64) *uint256.Int { return uint256.NewInt(v) }

func addr(name string) thor.Address { return thor.BytesToAddress([]byte(name)) }

type eventRecorder struct {
	events []*Event
}

func (r *eventRecorder) Emit(ev *Event) { r.events = append(r.events, ev) }

func (r *eventRecorder) named(name EventName) []*Event {
	var out []*Event
	for _, ev := range r.events {
		if ev.Name == name {
			out = append(out, ev)
		}
	}
	return out
}

type setRecorder struct {
	sets [][]thor.Address
}

func (r *setRecorder) Accept(set []thor.Address) { r.sets = append(r.sets, set) }

// stubOracle names a fixed author, or none when unset.
type stubOracle struct {
	author *thor.Address
}

func (o *stubOracle) Author() (thor.Address, bool) {
	if o.author == nil {
		return thor.Address{}, false
	}
	return *o.author, true
}

type StakerTest struct {
	*Staker
	t      *testing.T
	ctx    *storage.Context
	ledger *balance.Ledger
	events *eventRecorder
	sink   *setRecorder
	oracle *stubOracle
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.EpochLength = 10
	cfg.MaxValidators = 3
	return cfg
}

func newTest(t *testing.T) *StakerTest {
	return newTestWithConfig(t, testConfig())
}

func newTestWithConfig(t *testing.T, cfg Config) *StakerTest {
	db, err := lvldb.NewMem()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	ctx := storage.NewContext(db)
	ts := &StakerTest{
		t:      t,
		ctx:    ctx,
		ledger: balance.New(ctx),
		events: &eventRecorder{},
		sink:   &setRecorder{},
		oracle: &stubOracle{},
	}
	ts.Staker, err = New(ctx, ts.ledger, ts.oracle, ts.sink, ts.events, cfg)
	require.NoError(t, err)
	return ts
}

// Fund sets the free balance of the account.
func (ts *StakerTest) Fund(account thor.Address, amount uint64) *StakerTest {
	require.NoError(ts.t, ts.ledger.SetBalance(account, u(amount)))
	return ts
}

func (ts *StakerTest) Genesis(validators ...thor.Address) *StakerTest {
	balances := make([]GenesisBalance, 0, len(validators))
	for _, v := range validators {
		balances = append(balances, GenesisBalance{Account: v, Balance: u(10_000)})
	}
	require.NoError(ts.t, ts.Initialize(validators, balances))
	return ts
}

func (ts *StakerTest) MustRegister(account thor.Address, amount uint64) *StakerTest {
	require.NoError(ts.t, ts.Register(account, u(amount)))
	return ts
}

func (ts *StakerTest) MustDelegate(delegator, validator thor.Address, amount uint64) *StakerTest {
	require.NoError(ts.t, ts.Delegate(delegator, validator, u(amount)))
	return ts
}

func (ts *StakerTest) AuthoredBy(author thor.Address) *StakerTest {
	ts.oracle.author = &author
	return ts
}

// RunTo processes blocks from the next block up to and including block.
func (ts *StakerTest) RunTo(block uint32) *StakerTest {
	for n := ts.BlockNumber() + 1; n <= block; n++ {
		require.NoError(ts.t, ts.OnInitialize(n))
		require.NoError(ts.t, ts.OnFinalize(n))
	}
	return ts
}

func (ts *StakerTest) Free(account thor.Address) uint64 {
	free, err := ts.ledger.Balance(account)
	require.NoError(ts.t, err)
	return free.Uint64()
}

func (ts *StakerTest) Held(reason balance.Reason, account thor.Address) uint64 {
	held, err := ts.ledger.Held(reason, account)
	require.NoError(ts.t, err)
	return held.Uint64()
}

func (ts *StakerTest) StakeOf(validator thor.Address) uint64 {
	stake, err := ts.Stake(validator)
	require.NoError(ts.t, err)
	return stake.Uint64()
}

func (ts *StakerTest) ElectedSet() []thor.Address {
	set, err := ts.Elected()
	require.NoError(ts.t, err)
	return set
}

// AssertConservation checks that every registered validator's stake equals its
// self-stake plus the delegations pointing to it, and that the index agrees with a scan.
// Validators listed in skip are not checked.
func (ts *StakerTest) AssertConservation(skip map[thor.Address]bool) {
	sums := make(map[thor.Address]*uint256.Int)
	require.NoError(ts.t, ts.delegationService.Iterate(func(_ thor.Address, del *delegation.Delegation) error {
		sum, ok := sums[del.Validator()]
		if !ok {
			sum = new(uint256.Int)
			sums[del.Validator()] = sum
		}
		sum.Add(sum, del.Amount())
		return nil
	}))

	stakes, err := ts.Stakes()
	require.NoError(ts.t, err)
	for _, st := range stakes {
		val, err := ts.Validator(st.Address)
		require.NoError(ts.t, err)
		if val == nil || skip[st.Address] {
			continue
		}
		expected := val.SelfStake()
		if sum, ok := sums[st.Address]; ok {
			expected.Add(expected, sum)
		}
		assert.Equal(ts.t, expected.Dec(), st.Amount.Dec(), "stake of %v", st.Address)

		indexed, err := ts.delegationService.DelegatorsOf(st.Address)
		require.NoError(ts.t, err)
		scanned, err := ts.delegationService.ScanDelegatorsOf(st.Address)
		require.NoError(ts.t, err)
		assert.Equal(ts.t, scanned, indexed)
	}
}
