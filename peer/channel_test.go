// Copyright (c) 2025 The libbitcoin developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package peer

import (
	"net"
	"testing"
	"time"

	"github.com/lastcanal/libbitcoin/addrmgr"
	"github.com/lastcanal/libbitcoin/errs"
	"github.com/lastcanal/libbitcoin/wire"
	"github.com/stretchr/testify/require"
)

func testConfig() Config {
	return Config{
		Magic:             wire.SimNet,
		ProtocolVersion:   wire.ProtocolVersion,
		Services:          0,
		UserAgent:         "/test:0.0.1/",
		HandshakeTimeout:  2 * time.Second,
		InactivityTimeout: 0,
		ExpirationTimeout: 0,
		AddrKnownCapacity: 64,
		Nonces:            NewNonceSet(),
	}
}

func newChannelPair(t *testing.T, cfgA, cfgB Config) (*Channel, *Channel) {
	t.Helper()
	connA, connB := net.Pipe()

	a, err := New(connA, addrmgr.Authority{Host: "10.0.0.1", Port: 8333}, false, cfgA)
	require.NoError(t, err)
	b, err := New(connB, addrmgr.Authority{Host: "10.0.0.2", Port: 8333}, true, cfgB)
	require.NoError(t, err)
	return a, b
}

func TestChannelHandshakeEstablishes(t *testing.T) {
	a, b := newChannelPair(t, testConfig(), testConfig())

	aResult := a.Start()
	bResult := b.Start()

	require.NoError(t, <-aResult)
	require.NoError(t, <-bResult)

	require.Equal(t, StateEstablished, a.State())
	require.Equal(t, StateEstablished, b.State())

	require.NotNil(t, a.PeerVersion())
	require.NotNil(t, b.PeerVersion())

	a.Stop(nil)
	b.Stop(nil)
}

func TestChannelSelfConnectDetected(t *testing.T) {
	shared := NewNonceSet()

	cfgA := testConfig()
	cfgA.Nonces = shared
	cfgB := testConfig()
	cfgB.Nonces = shared

	connA, connB := net.Pipe()
	a, err := New(connA, addrmgr.Authority{Host: "10.0.0.1", Port: 8333}, false, cfgA)
	require.NoError(t, err)

	// Force b to present a's own nonce, simulating a self-connection.
	b, err := New(connB, addrmgr.Authority{Host: "10.0.0.2", Port: 8333}, true, cfgB)
	require.NoError(t, err)
	b.nonce = a.nonce

	aResult := a.Start()
	b.Start()

	err = <-aResult
	require.Error(t, err)
	require.ErrorIs(t, err, errs.ErrChannelProxy)
}

func TestChannelHandshakeTimeout(t *testing.T) {
	connA, connB := net.Pipe()
	defer connB.Close()

	cfg := testConfig()
	cfg.HandshakeTimeout = 10 * time.Millisecond

	a, err := New(connA, addrmgr.Authority{Host: "10.0.0.1", Port: 8333}, false, cfg)
	require.NoError(t, err)

	// Drain whatever a sends so its writer does not block, but never
	// reply, so the handshake never completes before the timer fires.
	go func() {
		buf := make([]byte, 4096)
		for {
			if _, err := connB.Read(buf); err != nil {
				return
			}
		}
	}()

	result := a.Start()
	select {
	case err := <-result:
		require.Error(t, err)
	case <-time.After(time.Second):
		t.Fatal("handshake did not time out")
	}
	require.Equal(t, StateClosed, a.State())
}

func TestChannelSendAfterStopFails(t *testing.T) {
	a, b := newChannelPair(t, testConfig(), testConfig())
	require.NoError(t, <-a.Start())
	require.NoError(t, <-b.Start())

	a.Stop(nil)
	<-a.Done()

	err := <-a.Send(wire.NewMsgPing(1))
	require.ErrorIs(t, err, errs.ErrChannelStopped)

	b.Stop(nil)
}

func TestChannelSubscribeReceivesPostHandshakeMessages(t *testing.T) {
	a, b := newChannelPair(t, testConfig(), testConfig())

	received := make(chan *wire.MsgPing, 1)
	SubscribeMessage(b, wire.CmdPing, func(c *Channel, msg *wire.MsgPing) {
		received <- msg
	})

	require.NoError(t, <-a.Start())
	require.NoError(t, <-b.Start())

	a.Send(wire.NewMsgPing(42))

	select {
	case msg := <-received:
		require.EqualValues(t, 42, msg.Nonce)
	case <-time.After(time.Second):
		t.Fatal("ping was not delivered to subscriber")
	}

	<-b.Germinated()

	a.Stop(nil)
	b.Stop(nil)
}
