// Copyright (c) 2025 The libbitcoin developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package session

import (
	"context"
	"fmt"
	"net"
	"sync"

	"github.com/lastcanal/libbitcoin/errs"
)

// Inbound accepts connections on net.Settings.InboundPort, subject to
// net.Settings.InboundConnectionLimit (spec.md §4.5). A zero limit disables
// the session entirely.
type Inbound struct {
	net      *Network
	listener net.Listener
	wg       sync.WaitGroup
	storeMu  sync.Mutex
}

// NewInbound returns an Inbound session bound to no listener yet; Start
// opens it.
func NewInbound(n *Network) *Inbound {
	return &Inbound{net: n}
}

// Start binds the listener and reports readiness (nil once bound, or the
// bind error) without waiting for the accept loop to terminate — the loop
// itself runs for the life of the session, the same fire-and-forget shape
// as Outbound.Start. A listener that fails after a clean bind logs its
// terminal error rather than blocking Start's caller on it.
func (in *Inbound) Start(ctx context.Context) <-chan error {
	out := make(chan error, 1)

	if in.net.Settings.InboundConnectionLimit <= 0 {
		out <- nil
		return out
	}

	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", in.net.Settings.InboundPort))
	if err != nil {
		out <- err
		return out
	}
	in.listener = ln
	out <- nil

	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				select {
				case <-ctx.Done():
				default:
					log.Errorf("session: inbound listener on %s terminated: %v", ln.Addr(), err)
				}
				return
			}
			in.wg.Add(1)
			go in.handle(conn)
		}
	}()

	return out
}

// Stop closes the listener, ending Accept, and then waits for every accepted
// connection's goroutine: an in-flight handshake runs until it completes or
// its handshake timeout fires, and a stored channel's goroutine returns only
// once that channel has closed.
func (in *Inbound) Stop() {
	if in.listener != nil {
		in.listener.Close()
	}
	in.wg.Wait()
}

func (in *Inbound) handle(conn net.Conn) {
	defer in.wg.Done()

	a := authorityFromAddr(conn.RemoteAddr())

	if in.net.Conns.Count() >= in.net.Settings.InboundConnectionLimit {
		conn.Close()
		log.Debugf("session: rejecting inbound %s, at connection limit", a)
		return
	}

	ch, err := in.net.accept(conn, a)
	if err != nil {
		log.Debugf("session: inbound handshake with %s failed: %v", a, err)
		return
	}

	// Re-check the limit at store time: two accepts racing past the
	// pre-check above must not both land (spec.md §4.5).
	in.storeMu.Lock()
	if in.net.Conns.Count() >= in.net.Settings.InboundConnectionLimit {
		in.storeMu.Unlock()
		ch.Stop(errs.ErrOperationFailed)
		return
	}
	err = in.net.Conns.Store(ch)
	in.storeMu.Unlock()
	if err != nil {
		ch.Stop(err)
		return
	}

	<-ch.Done()
	in.net.Conns.Remove(ch)
}
