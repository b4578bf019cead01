// Copyright (c) 2025 The libbitcoin developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package banstore

import (
	"testing"

	"github.com/lastcanal/libbitcoin/addrmgr"
	"github.com/stretchr/testify/require"
)

func TestIncrementAndScore(t *testing.T) {
	store, err := Open("")
	require.NoError(t, err)
	defer store.Close()

	a := addrmgr.Authority{Host: "10.0.0.1", Port: 8333}

	score, err := store.Score(a)
	require.NoError(t, err)
	require.Zero(t, score)

	score, err = store.Increment(a, 50)
	require.NoError(t, err)
	require.EqualValues(t, 50, score)

	score, err = store.Increment(a, 75)
	require.NoError(t, err)
	require.EqualValues(t, 125, score)

	require.NoError(t, store.Clear(a))
	score, err = store.Score(a)
	require.NoError(t, err)
	require.Zero(t, score)
}

func TestDiskBackedStore(t *testing.T) {
	dir := t.TempDir()
	store, err := Open(dir)
	require.NoError(t, err)

	a := addrmgr.Authority{Host: "10.0.0.2", Port: 18333}
	_, err = store.Increment(a, 10)
	require.NoError(t, err)
	require.NoError(t, store.Close())

	reopened, err := Open(dir)
	require.NoError(t, err)
	defer reopened.Close()

	score, err := reopened.Score(a)
	require.NoError(t, err)
	require.EqualValues(t, 10, score)
}
