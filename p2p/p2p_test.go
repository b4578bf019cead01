// Copyright (c) 2025 The libbitcoin developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package p2p

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/lastcanal/libbitcoin/config"
	"github.com/lastcanal/libbitcoin/errs"
	"github.com/lastcanal/libbitcoin/wire"
	"github.com/stretchr/testify/require"
)

func mustNetAddress(t *testing.T, ip string, port uint16) *wire.NetAddress {
	t.Helper()
	return &wire.NetAddress{IP: net.ParseIP(ip), Port: port}
}

func noSessionsSettings(t *testing.T) config.Settings {
	t.Helper()
	s := config.Testnet()
	s.HostPoolCapacity = 0
	s.OutboundConnections = 0
	s.InboundConnectionLimit = 0
	s.InboundPort = 0
	return s
}

func TestStartStopNoSessions(t *testing.T) {
	svc, err := New(noSessionsSettings(t))
	require.NoError(t, err)

	require.NoError(t, <-svc.Start(context.Background()))
	require.NoError(t, <-svc.Stop(context.Background()))
}

func TestDoubleStartRejected(t *testing.T) {
	svc, err := New(noSessionsSettings(t))
	require.NoError(t, err)

	require.NoError(t, <-svc.Start(context.Background()))
	err = <-svc.Start(context.Background())
	require.ErrorIs(t, err, errs.ErrOperationFailed)

	require.NoError(t, <-svc.Stop(context.Background()))
}

func TestRestart(t *testing.T) {
	settings := noSessionsSettings(t)
	settings.HostPoolCapacity = 42
	settings.Seeds = []string{"127.0.0.1:18999"}

	svc, err := New(settings)
	require.NoError(t, err)

	// A seed with at least one pre-populated address short-circuits the
	// seed session per spec.md §4.5, so Start does not depend on a real
	// listener at 127.0.0.1:18999.
	require.NoError(t, svc.hosts.Insert(mustNetAddress(t, "10.1.2.3", 8333)))

	require.NoError(t, <-svc.Start(context.Background()))
	require.NoError(t, <-svc.Stop(context.Background()))
	require.NoError(t, <-svc.Start(context.Background()))
	require.NoError(t, <-svc.Stop(context.Background()))
}

func TestHandshakeTimeoutFailsStart(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			// Accept and hold the connection open without ever speaking
			// the handshake, so the seed's only path to completion is the
			// (zeroed) handshake timeout firing.
			t.Cleanup(func() { conn.Close() })
		}
	}()

	settings := noSessionsSettings(t)
	settings.HostPoolCapacity = 42
	settings.Seeds = []string{ln.Addr().String()}
	settings.ChannelHandshakeSeconds = 0

	svc, err := New(settings)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err = <-svc.Start(ctx)
	require.ErrorIs(t, err, errs.ErrOperationFailed)
	require.NoError(t, <-svc.Stop(context.Background()))
}

func TestConnectTimeoutFailsStart(t *testing.T) {
	settings := noSessionsSettings(t)
	settings.HostPoolCapacity = 42
	settings.Seeds = []string{"127.0.0.1:18999"}
	settings.ConnectTimeoutSeconds = 0

	svc, err := New(settings)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err = <-svc.Start(ctx)
	require.ErrorIs(t, err, errs.ErrOperationFailed)
	require.NoError(t, <-svc.Stop(context.Background()))
}

func TestBlacklistedSeedFailsStart(t *testing.T) {
	settings := noSessionsSettings(t)
	settings.HostPoolCapacity = 42
	settings.Seeds = []string{"127.0.0.1:18999"}
	settings.Blacklists = []string{"127.0.0.1:18999"}

	svc, err := New(settings)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err = <-svc.Start(ctx)
	require.ErrorIs(t, err, errs.ErrOperationFailed)
	require.NoError(t, <-svc.Stop(context.Background()))
}

func TestHeightAccessor(t *testing.T) {
	svc, err := New(noSessionsSettings(t))
	require.NoError(t, err)

	require.EqualValues(t, 0, svc.Height())
	svc.SetHeight(42)
	require.EqualValues(t, 42, svc.Height())
}

func TestStopIsIdempotentFromStopped(t *testing.T) {
	svc, err := New(noSessionsSettings(t))
	require.NoError(t, err)

	require.NoError(t, <-svc.Stop(context.Background()))
}
