// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package authorship

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vechain/dpos/lvldb"
	"github.com/vechain/dpos/storage"
	"github.com/vechain/dpos/thor"
)

func TestTally(t *testing.T) {
	db, err := lvldb.NewMem()
	require.NoError(t, err)
	defer db.Close()
	svc := New(storage.NewContext(db))

	a := thor.BytesToAddress([]byte("a"))
	b := thor.BytesToAddress([]byte("b"))

	n, err := svc.Count(a)
	require.NoError(t, err)
	assert.Zero(t, n)

	for range 3 {
		_, err = svc.Increment(a)
		require.NoError(t, err)
	}
	n, err = svc.Increment(b)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), n)

	all, err := svc.All()
	require.NoError(t, err)
	assert.Equal(t, map[thor.Address]uint64{a: 3, b: 1}, all)

	require.NoError(t, svc.Reset())
	n, err = svc.Count(a)
	require.NoError(t, err)
	assert.Zero(t, n)

	all, err = svc.All()
	require.NoError(t, err)
	assert.Empty(t, all)
}
