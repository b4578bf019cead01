// Copyright (c) 2025 The libbitcoin developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package registry implements the connections registry: the single
// authoritative list of established channels, serialized through one
// goroutine so Store/Remove/Count/Exists/Broadcast never race each other
// (spec.md §5, grounded on libbitcoin's connections/dispatcher strand).
package registry

import (
	"sync"

	"github.com/btcsuite/btclog"
	"github.com/lastcanal/libbitcoin/addrmgr"
	"github.com/lastcanal/libbitcoin/errs"
	"github.com/lastcanal/libbitcoin/peer"
	"github.com/lastcanal/libbitcoin/wire"
)

var log btclog.Logger = btclog.Disabled

// UseLogger sets the logger used by the registry package.
func UseLogger(logger btclog.Logger) { log = logger }

// BroadcastResult reports the outcome of sending a message to one channel
// as part of a Broadcast call.
type BroadcastResult struct {
	Channel *peer.Channel
	Err     error
}

// task is one unit of work submitted to the strand.
type task func()

// Registry is the single-writer, serialized store of established channels.
// Every mutation and every read that must observe a consistent snapshot
// runs as a task on the strand goroutine, in submission order (I1-I4).
type Registry struct {
	strand chan task
	wg     sync.WaitGroup

	closeOnce sync.Once
	done      chan struct{}

	channels []*peer.Channel
}

// New returns a running Registry. Call Close to stop its strand goroutine.
func New() *Registry {
	r := &Registry{
		strand: make(chan task, 256),
		done:   make(chan struct{}),
	}
	r.wg.Add(1)
	go r.run()
	return r
}

func (r *Registry) run() {
	defer r.wg.Done()
	for {
		select {
		case t := <-r.strand:
			t()
		case <-r.done:
			// Drain anything already queued before a submitter observed
			// done, so a Close racing with a late Store still resolves the
			// pending call's result channel instead of leaking it.
			for {
				select {
				case t := <-r.strand:
					t()
				default:
					return
				}
			}
		}
	}
}

// Close stops the strand goroutine. Idempotent.
func (r *Registry) Close() {
	r.closeOnce.Do(func() { close(r.done) })
	r.wg.Wait()
}

// submit runs fn on the strand and blocks until it has executed.
func (r *Registry) submit(fn func()) {
	done := make(chan struct{})
	t := func() {
		fn()
		close(done)
	}
	select {
	case r.strand <- t:
		<-done
	case <-r.done:
	}
}

func indexByAuthority(channels []*peer.Channel, a addrmgr.Authority) int {
	for i, c := range channels {
		if c.Authority() == a {
			return i
		}
	}
	return -1
}

func indexByNonce(channels []*peer.Channel, nonce uint64) int {
	for i, c := range channels {
		if c.Nonce() == nonce {
			return i
		}
	}
	return -1
}

func indexByChannel(channels []*peer.Channel, ch *peer.Channel) int {
	for i, c := range channels {
		if c == ch {
			return i
		}
	}
	return -1
}

// Store adds ch to the registry. It fails with errs.ErrAddressInUse if a
// channel for the same authority or nonce is already stored (P1, self-
// connect protection relies on nonce uniqueness across the whole registry,
// not just one channel pair).
func (r *Registry) Store(ch *peer.Channel) error {
	var result error
	r.submit(func() {
		if indexByAuthority(r.channels, ch.Authority()) != -1 {
			result = errs.ErrAddressInUse
			return
		}
		if indexByNonce(r.channels, ch.Nonce()) != -1 {
			result = errs.ErrAddressInUse
			return
		}
		r.channels = append(r.channels, ch)
	})
	return result
}

// Remove drops ch from the registry if present. Removing an absent channel
// is not an error (idempotent, mirrors libbitcoin's do_remove).
func (r *Registry) Remove(ch *peer.Channel) {
	r.submit(func() {
		if i := indexByChannel(r.channels, ch); i != -1 {
			r.channels = append(r.channels[:i], r.channels[i+1:]...)
		}
	})
}

// Count returns the number of stored channels.
func (r *Registry) Count() int {
	var n int
	r.submit(func() { n = len(r.channels) })
	return n
}

// Exists reports whether a channel for authority is currently stored.
func (r *Registry) Exists(authority addrmgr.Authority) bool {
	var found bool
	r.submit(func() { found = indexByAuthority(r.channels, authority) != -1 })
	return found
}

// IsConnected implements addrmgr.ConnectedChecker.
func (r *Registry) IsConnected(authority addrmgr.Authority) bool {
	return r.Exists(authority)
}

// Clear stops and removes every stored channel, in stored order (I4).
func (r *Registry) Clear(reason error) {
	r.submit(func() {
		snapshot := r.channels
		r.channels = nil
		for _, c := range snapshot {
			c.Stop(reason)
		}
	})
}

// Snapshot returns a copy of the currently stored channels, safe to range
// over without holding the strand.
func (r *Registry) Snapshot() []*peer.Channel {
	var out []*peer.Channel
	r.submit(func() {
		out = make([]*peer.Channel, len(r.channels))
		copy(out, r.channels)
	})
	return out
}

// Broadcast sends msg to every stored channel and reports each channel's
// outcome on the returned channel, closed once every send has replied.
func (r *Registry) Broadcast(msg wire.Message) <-chan BroadcastResult {
	results := make(chan BroadcastResult)
	snapshot := r.Snapshot()

	go func() {
		defer close(results)
		var wg sync.WaitGroup
		wg.Add(len(snapshot))
		for _, c := range snapshot {
			c := c
			go func() {
				defer wg.Done()
				err := <-c.Send(msg)
				results <- BroadcastResult{Channel: c, Err: err}
			}()
		}
		wg.Wait()
	}()

	return results
}
