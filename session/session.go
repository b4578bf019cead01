// Copyright (c) 2025 The libbitcoin developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package session implements the four connection-establishing protocol
// sub-machines layered over peer and registry: seed, outbound, inbound, and
// manual (spec.md §4.5).
package session

import (
	"context"
	"net"
	"time"

	"github.com/btcsuite/btclog"
	"github.com/lastcanal/libbitcoin/addrmgr"
	"github.com/lastcanal/libbitcoin/config"
	"github.com/lastcanal/libbitcoin/peer"
	"github.com/lastcanal/libbitcoin/registry"
	"github.com/lastcanal/libbitcoin/wire"
)

var log btclog.Logger = btclog.Disabled

// UseLogger sets the logger used by the session package.
func UseLogger(logger btclog.Logger) { log = logger }

// Network is the shared collaborator surface every session needs from the
// owning p2p service: the host pool, the registry, the dialer, and the
// settings the service was constructed with. Declared here (rather than
// depending on package p2p) to keep p2p the only importer of session, never
// the reverse.
type Network struct {
	Settings config.Settings
	Magic    wire.BitcoinNet
	Hosts    *addrmgr.HostPool
	Conns    *registry.Registry
	Dialer   Dialer
	Nonces   *peer.NonceSet
	Height   func() int32
	Bans     peer.Incrementer
}

func (n *Network) channelConfig() peer.Config {
	return peer.Config{
		Magic:             n.Magic,
		ProtocolVersion:   n.Settings.ProtocolVersion,
		Services:          n.Settings.Services,
		UserAgent:         n.Settings.UserAgent,
		StartHeight:       n.Height,
		HandshakeTimeout:  n.Settings.HandshakeTimeout(),
		InactivityTimeout: n.Settings.InactivityTimeout(),
		ExpirationTimeout: n.Settings.ExpirationTimeout(),
		AddrKnownCapacity: 2000,
		Nonces:            n.Nonces,
		Bans:              n.Bans,
	}
}

// dial opens an outbound TCP connection to a and runs the channel handshake
// to completion, returning the established channel.
func (n *Network) dial(ctx context.Context, a addrmgr.Authority) (*peer.Channel, error) {
	conn, err := n.Dialer.Dial(ctx, "tcp", a.String(), n.Settings.ConnectTimeout())
	if err != nil {
		return nil, err
	}

	ch, err := peer.New(conn, a, false, n.channelConfig())
	if err != nil {
		conn.Close()
		return nil, err
	}

	result := ch.Start()
	select {
	case err := <-result:
		if err != nil {
			return nil, err
		}
		return ch, nil
	case <-ctx.Done():
		ch.Stop(ctx.Err())
		return nil, ctx.Err()
	}
}

// accept runs the channel handshake over an already-accepted inbound conn.
func (n *Network) accept(conn net.Conn, a addrmgr.Authority) (*peer.Channel, error) {
	ch, err := peer.New(conn, a, true, n.channelConfig())
	if err != nil {
		conn.Close()
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), n.Settings.HandshakeTimeout())
	defer cancel()

	result := ch.Start()
	select {
	case err := <-result:
		if err != nil {
			return nil, err
		}
		return ch, nil
	case <-ctx.Done():
		ch.Stop(ctx.Err())
		return nil, ctx.Err()
	}
}

func authorityFromAddr(addr net.Addr) addrmgr.Authority {
	if tcp, ok := addr.(*net.TCPAddr); ok {
		return addrmgr.Authority{Host: tcp.IP.String(), Port: uint16(tcp.Port)}
	}
	return addrmgr.Authority{}
}

// requestAddresses sends getaddr on ch and waits up to timeout for the first
// addr message, inserting each of its addresses into hosts and returning
// the number inserted. Later addr messages are not read. Used by the seed
// session (spec.md §4.5).
func requestAddresses(ch *peer.Channel, hosts *addrmgr.HostPool, timeout time.Duration) int {
	received := make(chan *wire.MsgAddr, 4)
	peer.SubscribeMessage(ch, wire.CmdAddr, func(_ *peer.Channel, msg *wire.MsgAddr) {
		select {
		case received <- msg:
		default:
		}
	})

	if err := <-ch.Send(wire.NewMsgGetAddr()); err != nil {
		return 0
	}

	deadline := time.After(timeout)
	inserted := 0
	for {
		select {
		case msg := <-received:
			for _, na := range msg.AddrList {
				if hosts.Insert(na) == nil {
					inserted++
				}
			}
			return inserted
		case <-ch.Done():
			return inserted
		case <-deadline:
			return inserted
		}
	}
}

// backoff returns the exponential retry delay for the given attempt count
// (0-indexed), capped at cap.
func backoff(attempt int, cap time.Duration) time.Duration {
	d := time.Second
	for i := 0; i < attempt && d < cap; i++ {
		d *= 2
	}
	if d > cap {
		d = cap
	}
	return d
}
