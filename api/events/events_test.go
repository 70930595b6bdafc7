// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package events_test

import (
	"bytes"
	"encoding/json"
	"io"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vechain/dpos/api/events"
	"github.com/vechain/dpos/logdb"
	"github.com/vechain/dpos/staker"
	"github.com/vechain/dpos/thor"
)

const defaultLogLimit uint64 = 10

var (
	validator = thor.BytesToAddress([]byte("validator"))
	delegator = thor.BytesToAddress([]byte("delegator"))
)

func initEventServer(t *testing.T, limit uint64) *httptest.Server {
	db, err := logdb.NewMem()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	var evs []*logdb.Event
	for i := range uint32(5) {
		evs = append(evs,
			&logdb.Event{BlockNumber: i, Index: 0, Name: string(staker.EventValidatorRegistered), Validator: validator, Account: validator, Amount: uint256.NewInt(100)},
			&logdb.Event{BlockNumber: i, Index: 1, Name: string(staker.EventDelegated), Validator: validator, Account: delegator, Amount: uint256.NewInt(10)},
		)
	}
	evs = append(evs, &logdb.Event{BlockNumber: 5, Index: 0, Name: string(staker.EventValidatorsUpdated), Validators: []thor.Address{validator}})
	require.NoError(t, db.Write(evs))

	router := mux.NewRouter()
	events.New(db, limit).Mount(router, "/logs/staker")
	ts := httptest.NewServer(router)
	t.Cleanup(ts.Close)
	return ts
}

func ptr(v uint32) *uint32 {
	return &v
}

func httpPost(t *testing.T, url string, body any) ([]byte, int) {
	data, err := json.Marshal(body)
	require.NoError(t, err)
	res, err := http.Post(url, "application/x-www-form-urlencoded", bytes.NewReader(data)) //#nosec G107
	require.NoError(t, err)
	defer res.Body.Close()
	r, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	return r, res.StatusCode
}

func filter(t *testing.T, ts *httptest.Server, f *events.EventFilter) []*events.FilteredEvent {
	res, status := httpPost(t, ts.URL+"/logs/staker", f)
	require.Equal(t, http.StatusOK, status, string(res))
	var fes []*events.FilteredEvent
	require.NoError(t, json.Unmarshal(res, &fes))
	return fes
}

func TestEvents(t *testing.T) {
	ts := initEventServer(t, 100)

	for name, tt := range map[string]struct {
		filter   *events.EventFilter
		expected int
	}{
		"empty filter": {&events.EventFilter{}, 11},
		"by name":      {&events.EventFilter{Names: []string{string(staker.EventDelegated)}}, 5},
		"by account":   {&events.EventFilter{Accounts: []thor.Address{delegator}}, 5},
		"by range":     {&events.EventFilter{Range: &events.Range{From: ptr(1), To: ptr(2)}}, 4},
		"open range":   {&events.EventFilter{Range: &events.Range{From: ptr(4)}}, 3},
		"paged":        {&events.EventFilter{Options: &events.Options{Offset: 8, Limit: 5}}, 3},
	} {
		t.Run(name, func(t *testing.T) {
			assert.Len(t, filter(t, ts, tt.filter), tt.expected)
		})
	}

	t.Run("converted fields", func(t *testing.T) {
		fes := filter(t, ts, &events.EventFilter{Order: logdb.DESC, Options: &events.Options{Limit: 2}})
		require.Len(t, fes, 2)

		updated := fes[0]
		assert.Equal(t, uint32(5), updated.BlockNumber)
		assert.Equal(t, string(staker.EventValidatorsUpdated), updated.Name)
		assert.Nil(t, updated.Validator)
		assert.Nil(t, updated.Amount)
		assert.Equal(t, []thor.Address{validator}, updated.Validators)

		delegated := fes[1]
		assert.Equal(t, uint32(4), delegated.BlockNumber)
		assert.Equal(t, uint32(1), delegated.Index)
		require.NotNil(t, delegated.Account)
		assert.Equal(t, delegator, *delegated.Account)
		assert.Equal(t, int64(10), (*big.Int)(delegated.Amount).Int64())
	})
}

func TestEventsBadRequests(t *testing.T) {
	ts := initEventServer(t, defaultLogLimit)

	for name, tt := range map[string]struct {
		body   any
		status int
	}{
		"malformed body": {"not an object", http.StatusBadRequest},
		"unknown field":  {map[string]any{"foo": 1}, http.StatusBadRequest},
		"unknown name":   {&events.EventFilter{Names: []string{"Transfer"}}, http.StatusBadRequest},
		"unknown order":  {map[string]any{"order": "sideways"}, http.StatusBadRequest},
		"reversed range": {&events.EventFilter{Range: &events.Range{From: ptr(3), To: ptr(1)}}, http.StatusBadRequest},
		"limit too high": {&events.EventFilter{Options: &events.Options{Limit: defaultLogLimit + 1}}, http.StatusForbidden},
		"too many logs":  {&events.EventFilter{}, http.StatusForbidden},
	} {
		t.Run(name, func(t *testing.T) {
			_, status := httpPost(t, ts.URL+"/logs/staker", tt.body)
			assert.Equal(t, tt.status, status)
		})
	}

	// within the limit with explicit paging
	fes := filter(t, ts, &events.EventFilter{Options: &events.Options{Limit: defaultLogLimit}})
	assert.Len(t, fes, int(defaultLogLimit))
}
