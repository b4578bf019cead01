// Copyright (c) 2025 The libbitcoin developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package addrmgr

import (
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/lastcanal/libbitcoin/wire"
	"github.com/stretchr/testify/require"
)

func na(ip string, port uint16) *wire.NetAddress {
	return &wire.NetAddress{IP: net.ParseIP(ip), Port: port, Services: wire.SFNodeNetwork}
}

func TestHostPoolCapacityFIFOEviction(t *testing.T) {
	pool := New(2, "", nil)

	require.NoError(t, pool.Insert(na("10.0.0.1", 8333)))
	require.NoError(t, pool.Insert(na("10.0.0.2", 8333)))
	require.Equal(t, 2, pool.Len())

	require.NoError(t, pool.Insert(na("10.0.0.3", 8333)))
	require.Equal(t, 2, pool.Len(), "H1: size must never exceed capacity")
	require.False(t, pool.Contains(Authority{Host: "10.0.0.1", Port: 8333}), "oldest entry must be evicted FIFO")
	require.True(t, pool.Contains(Authority{Host: "10.0.0.3", Port: 8333}))
}

func TestHostPoolBlacklistRejectsInsertAndFetch(t *testing.T) {
	blocked := Authority{Host: "10.0.0.9", Port: 8333}
	pool := New(10, "", []Authority{blocked})

	err := pool.Insert(na(blocked.Host, blocked.Port))
	require.Error(t, err, "H2: blacklisted authority must never enter the pool")
	require.False(t, pool.Contains(blocked))

	require.NoError(t, pool.Insert(na("10.0.0.1", 8333)))
	addr, ok := pool.Fetch()
	require.True(t, ok)
	require.NotEqual(t, blocked.Host, addr.IP.String(), "P6: blacklisted authority never appears in Fetch output")
}

type fakeConnected struct{ set map[Authority]bool }

func (f fakeConnected) IsConnected(a Authority) bool { return f.set[a] }

func TestHostPoolFetchSkipsConnected(t *testing.T) {
	pool := New(10, "", nil)
	require.NoError(t, pool.Insert(na("10.0.0.1", 8333)))
	require.NoError(t, pool.Insert(na("10.0.0.2", 8333)))

	pool.SetConnectedChecker(fakeConnected{set: map[Authority]bool{
		{Host: "10.0.0.1", Port: 8333}: true,
	}})

	addr, ok := pool.Fetch()
	require.True(t, ok)
	require.Equal(t, "10.0.0.2", addr.IP.String())
}

func TestHostPoolFetchEmptyReturnsFalse(t *testing.T) {
	pool := New(10, "", nil)
	_, ok := pool.Fetch()
	require.False(t, ok)
}

type fakeScorer struct{ scores map[Authority]int32 }

func (f fakeScorer) Score(a Authority) (int32, error) { return f.scores[a], nil }

func TestHostPoolBanScoreBlacklists(t *testing.T) {
	pool := New(10, "", nil)
	bad := Authority{Host: "10.0.0.5", Port: 8333}
	pool.SetScorer(fakeScorer{scores: map[Authority]int32{bad: 150}}, 100)

	require.Error(t, pool.Insert(na(bad.Host, bad.Port)))
}

func TestHostPoolSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "hosts.txt")

	pool := New(10, path, nil)
	require.NoError(t, pool.Insert(na("10.0.0.1", 8333)))
	require.NoError(t, pool.Insert(na("10.0.0.2", 18333)))
	require.NoError(t, pool.Save())

	contents, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(contents), "10.0.0.1:8333")

	reloaded := New(10, path, nil)
	require.NoError(t, reloaded.Load())
	require.Equal(t, 2, reloaded.Len())
	require.True(t, reloaded.Contains(Authority{Host: "10.0.0.1", Port: 8333}))
}

func TestHostPoolLoadMissingFileIsEmpty(t *testing.T) {
	pool := New(10, filepath.Join(t.TempDir(), "missing.txt"), nil)
	require.NoError(t, pool.Load())
	require.Equal(t, 0, pool.Len())
}

func TestHostPoolLoadSkipsMalformedLines(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "hosts.txt")
	require.NoError(t, os.WriteFile(path, []byte("# comment\nnot-an-authority\n10.0.0.1:8333\n"), 0o644))

	pool := New(10, path, nil)
	require.NoError(t, pool.Load())
	require.Equal(t, 1, pool.Len())
}

func TestTstNewKnownAddress(t *testing.T) {
	now := time.Now()
	ka := TstNewKnownAddress(na("10.0.0.1", 8333), 3, now, now, true, 1)
	require.Equal(t, Authority{Host: "10.0.0.1", Port: 8333}, ka.Authority())
}
