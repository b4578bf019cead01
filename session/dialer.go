// Copyright (c) 2025 The libbitcoin developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package session

import (
	"context"
	"net"
	"time"

	"github.com/btcsuite/go-socks/socks"
)

// Dialer opens an outbound TCP connection to addr within timeout. It is
// satisfied by both a plain net.Dialer and a SOCKS5 proxy dialer, so
// outbound/seed/manual sessions are agnostic to whether Tor is in play
// (SPEC_FULL §1b).
type Dialer interface {
	Dial(ctx context.Context, network, addr string, timeout time.Duration) (net.Conn, error)
}

// directDialer dials the network directly with net.Dialer.
type directDialer struct{}

func (directDialer) Dial(ctx context.Context, network, addr string, timeout time.Duration) (net.Conn, error) {
	d := net.Dialer{Timeout: timeout}
	return d.DialContext(ctx, network, addr)
}

// proxyDialer routes every dial through a SOCKS5 proxy.
type proxyDialer struct {
	proxy *socks.Proxy
}

func (p proxyDialer) Dial(ctx context.Context, network, addr string, timeout time.Duration) (net.Conn, error) {
	result := make(chan dialResult, 1)
	go func() {
		conn, err := p.proxy.Dial(network, addr)
		result <- dialResult{conn, err}
	}()

	select {
	case r := <-result:
		return r.conn, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(timeout):
		return nil, context.DeadlineExceeded
	}
}

type dialResult struct {
	conn net.Conn
	err  error
}

// NewDialer returns a directDialer, or a proxyDialer when proxyAddr is
// non-empty.
func NewDialer(proxyAddr string) Dialer {
	if proxyAddr == "" {
		return directDialer{}
	}
	return proxyDialer{proxy: &socks.Proxy{Addr: proxyAddr}}
}
