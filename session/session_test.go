// Copyright (c) 2025 The libbitcoin developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package session

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/lastcanal/libbitcoin/addrmgr"
	"github.com/lastcanal/libbitcoin/config"
	"github.com/lastcanal/libbitcoin/errs"
	"github.com/lastcanal/libbitcoin/peer"
	"github.com/lastcanal/libbitcoin/registry"
	"github.com/lastcanal/libbitcoin/wire"
	"github.com/stretchr/testify/require"
)

func testNetwork(t *testing.T) *Network {
	t.Helper()
	settings := config.Testnet()
	settings.ConnectTimeoutSeconds = 2
	settings.ChannelHandshakeSeconds = 5
	settings.ChannelGerminationSeconds = 2

	n := &Network{
		Settings: settings,
		Magic:    wire.SimNet,
		Hosts:    addrmgr.New(10, "", nil),
		Conns:    registry.New(),
		Dialer:   NewDialer(""),
		Nonces:   peer.NewNonceSet(),
		Height:   func() int32 { return 0 },
	}
	t.Cleanup(func() { n.Conns.Close() })
	return n
}

func TestSeedSkippedWhenPoolNonEmpty(t *testing.T) {
	n := testNetwork(t)
	require.NoError(t, n.Hosts.Insert(&wire.NetAddress{IP: []byte{10, 0, 0, 1}, Port: 8333}))

	seed, err := NewSeed(n)
	require.NoError(t, err)

	err = <-seed.Start(context.Background())
	require.NoError(t, err)
}

func TestSeedFailsWithNoReachableSeeds(t *testing.T) {
	n := testNetwork(t)
	n.Settings.Seeds = []string{"127.0.0.1:1"}
	n.Settings.ConnectTimeoutSeconds = 1

	seed, err := NewSeed(n)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err = <-seed.Start(ctx)
	require.ErrorIs(t, err, errs.ErrOperationFailed)
}

func TestManualConnectRejectsBlacklisted(t *testing.T) {
	n := testNetwork(t)
	blocked := addrmgr.Authority{Host: "10.0.0.9", Port: 8333}
	n.Hosts = addrmgr.New(10, "", []addrmgr.Authority{blocked})

	m := NewManual(n)
	_, err := m.Connect(context.Background(), blocked)
	require.ErrorIs(t, err, errs.ErrAddressBlocked)
}

func TestInboundDisabledWhenLimitZero(t *testing.T) {
	n := testNetwork(t)
	n.Settings.InboundConnectionLimit = 0

	in := NewInbound(n)
	err := <-in.Start(context.Background())
	require.NoError(t, err)
}

func TestOutboundNoopWhenTargetZero(t *testing.T) {
	n := testNetwork(t)
	n.Settings.OutboundConnections = 0

	out := NewOutbound(n)
	err := <-out.Start(context.Background())
	require.NoError(t, err)
}

func TestManualConnectEstablishesAgainstInbound(t *testing.T) {
	server := testNetwork(t)
	server.Settings.InboundConnectionLimit = 1
	server.Settings.InboundPort = 18475

	in := NewInbound(server)
	require.NoError(t, <-in.Start(context.Background()))

	client := testNetwork(t)
	m := NewManual(client)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	ch, err := m.Connect(ctx, addrmgr.Authority{Host: "127.0.0.1", Port: 18475})
	require.NoError(t, err)
	require.Equal(t, peer.StateEstablished, ch.State())

	require.Eventually(t, func() bool {
		return server.Conns.Count() == 1
	}, time.Second, 10*time.Millisecond)

	ch.Stop(nil)
	in.Stop()

	// Once Stop has returned, the listener is closed: a fresh dial to the
	// same port must fail rather than be accepted.
	_, err = net.Dial("tcp", "127.0.0.1:18475")
	require.Error(t, err)
}
