// Copyright (c) 2025 The libbitcoin developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package session

import (
	"context"
	"sync"
	"time"

	"github.com/lastcanal/libbitcoin/peer"
)

// Outbound maintains a target number of live outbound channels, replacing
// any that close while the session runs (spec.md §4.5).
type Outbound struct {
	net    *Network
	target int

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewOutbound returns an Outbound session targeting
// net.Settings.OutboundConnections live channels.
func NewOutbound(n *Network) *Outbound {
	return &Outbound{net: n, target: n.Settings.OutboundConnections}
}

// Start spawns target connect-and-maintain goroutines. The returned channel
// receives nil once Stop is called (or ctx is cancelled) and every such
// goroutine has exited; with a target of zero it receives nil immediately.
// The outbound session otherwise runs until then, so its "completion" is
// purely a stop signal, not a one-shot result like Seed's.
func (o *Outbound) Start(ctx context.Context) <-chan error {
	out := make(chan error, 1)

	if o.target <= 0 {
		out <- nil
		return out
	}

	ctx, cancel := context.WithCancel(ctx)
	o.mu.Lock()
	o.running = true
	o.cancel = cancel
	o.mu.Unlock()

	for i := 0; i < o.target; i++ {
		o.wg.Add(1)
		go o.maintainOne(ctx)
	}

	go func() {
		<-ctx.Done()
		o.wg.Wait()
		out <- nil
	}()

	return out
}

// Stop cancels every in-flight attempt and live channel this session
// started, and waits for their goroutines to exit.
func (o *Outbound) Stop() {
	o.mu.Lock()
	cancel := o.cancel
	o.running = false
	o.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	o.wg.Wait()
}

func (o *Outbound) maintainOne(ctx context.Context) {
	defer o.wg.Done()

	attempt := 0
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		a, ok := o.net.Hosts.Fetch()
		if !ok {
			select {
			case <-o.net.Hosts.Inserted():
			case <-ctx.Done():
				return
			}
			continue
		}

		dialCtx, cancel := context.WithTimeout(ctx, o.net.Settings.ConnectTimeout())
		ch, err := o.net.dial(dialCtx, a)
		cancel()
		if err != nil {
			attempt++
			o.sleep(ctx, attempt)
			continue
		}

		if err := o.net.Conns.Store(ch); err != nil {
			ch.Stop(err)
			attempt++
			o.sleep(ctx, attempt)
			continue
		}

		attempt = 0
		o.waitForClose(ctx, ch)
	}
}

func (o *Outbound) waitForClose(ctx context.Context, ch *peer.Channel) {
	select {
	case <-ch.Done():
		o.net.Conns.Remove(ch)
	case <-ctx.Done():
		ch.Stop(ctx.Err())
		o.net.Conns.Remove(ch)
	}
}

func (o *Outbound) sleep(ctx context.Context, attempt int) {
	d := backoff(attempt, o.net.Settings.ConnectTimeout())
	select {
	case <-time.After(d):
	case <-ctx.Done():
	}
}
