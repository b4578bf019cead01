// Copyright (c) 2025 The libbitcoin developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package registry

import (
	"net"
	"testing"
	"time"

	"github.com/lastcanal/libbitcoin/addrmgr"
	"github.com/lastcanal/libbitcoin/errs"
	"github.com/lastcanal/libbitcoin/peer"
	"github.com/lastcanal/libbitcoin/wire"
	"github.com/stretchr/testify/require"
)

func newTestChannel(t *testing.T, authority addrmgr.Authority) *peer.Channel {
	t.Helper()
	serverConn, clientConn := net.Pipe()
	t.Cleanup(func() { clientConn.Close() })

	go func() {
		buf := make([]byte, 4096)
		for {
			if _, err := clientConn.Read(buf); err != nil {
				return
			}
		}
	}()

	ch, err := peer.New(serverConn, authority, false, peer.Config{
		Magic:             wire.SimNet,
		ProtocolVersion:   wire.ProtocolVersion,
		HandshakeTimeout:  time.Minute,
		AddrKnownCapacity: 8,
		Nonces:            peer.NewNonceSet(),
	})
	require.NoError(t, err)
	return ch
}

func TestRegistryStoreRejectsDuplicateAuthority(t *testing.T) {
	r := New()
	defer r.Close()

	a := addrmgr.Authority{Host: "10.0.0.1", Port: 8333}
	c1 := newTestChannel(t, a)
	c2 := newTestChannel(t, a)

	require.NoError(t, r.Store(c1))
	err := r.Store(c2)
	require.ErrorIs(t, err, errs.ErrAddressInUse)
	require.Equal(t, 1, r.Count())
}

func TestRegistryRemoveAndExists(t *testing.T) {
	r := New()
	defer r.Close()

	a := addrmgr.Authority{Host: "10.0.0.2", Port: 8333}
	c := newTestChannel(t, a)

	require.NoError(t, r.Store(c))
	require.True(t, r.Exists(a))
	require.True(t, r.IsConnected(a))

	r.Remove(c)
	require.False(t, r.Exists(a))
	require.Zero(t, r.Count())

	// Removing again is a no-op, not an error.
	r.Remove(c)
}

func TestRegistryClearStopsAllChannels(t *testing.T) {
	r := New()
	defer r.Close()

	c1 := newTestChannel(t, addrmgr.Authority{Host: "10.0.0.3", Port: 8333})
	c2 := newTestChannel(t, addrmgr.Authority{Host: "10.0.0.4", Port: 8333})
	require.NoError(t, r.Store(c1))
	require.NoError(t, r.Store(c2))

	r.Clear(errs.ErrOperationFailed)

	require.Zero(t, r.Count())
	select {
	case <-c1.Done():
	case <-time.After(time.Second):
		t.Fatal("channel 1 was not stopped")
	}
	select {
	case <-c2.Done():
	case <-time.After(time.Second):
		t.Fatal("channel 2 was not stopped")
	}
}

func TestRegistryConcurrentStoreIsSerialized(t *testing.T) {
	r := New()
	defer r.Close()

	const n = 20
	errCh := make(chan error, n)
	for i := 0; i < n; i++ {
		i := i
		go func() {
			a := addrmgr.Authority{Host: "10.1.0.1", Port: uint16(1000 + i)}
			errCh <- r.Store(newTestChannel(t, a))
		}()
	}
	for i := 0; i < n; i++ {
		require.NoError(t, <-errCh)
	}
	require.Equal(t, n, r.Count())
}
