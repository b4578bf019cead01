// Copyright (c) 2025 The libbitcoin developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package session

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/lastcanal/libbitcoin/addrmgr"
	"github.com/lastcanal/libbitcoin/errs"
)

// Seed populates an empty host pool from a fixed list of bootstrap
// authorities (spec.md §4.5). It runs once and then reports done.
type Seed struct {
	net   *Network
	seeds []addrmgr.Authority
}

// NewSeed parses net.Settings.Seeds into authorities and returns a Seed
// session ready to Start.
func NewSeed(n *Network) (*Seed, error) {
	seeds := make([]addrmgr.Authority, 0, len(n.Settings.Seeds))
	for _, s := range n.Settings.Seeds {
		a, err := addrmgr.ParseAuthority(s)
		if err != nil {
			return nil, err
		}
		seeds = append(seeds, a)
	}
	return &Seed{net: n, seeds: seeds}, nil
}

// Start runs the seed session to completion, inserting discovered addresses
// into the host pool. The returned channel receives exactly once: nil if at
// least one address was inserted (or the pool was already non-empty),
// errs.ErrOperationFailed otherwise.
func (s *Seed) Start(ctx context.Context) <-chan error {
	out := make(chan error, 1)

	go func() {
		if s.net.Hosts.Len() > 0 {
			out <- nil
			return
		}

		var total int64
		var wg sync.WaitGroup
		for _, a := range s.seeds {
			a := a
			wg.Add(1)
			go func() {
				defer wg.Done()
				n := s.attempt(ctx, a)
				atomic.AddInt64(&total, int64(n))
			}()
		}
		wg.Wait()

		if total > 0 {
			out <- nil
		} else {
			out <- errs.ErrOperationFailed
		}
	}()

	return out
}

func (s *Seed) attempt(ctx context.Context, a addrmgr.Authority) int {
	if s.net.Hosts.IsBlacklisted(a) {
		log.Debugf("session: seed %s is blacklisted, skipping", a)
		return 0
	}

	dialCtx, cancel := context.WithTimeout(ctx, s.net.Settings.ConnectTimeout())
	defer cancel()

	ch, err := s.net.dial(dialCtx, a)
	if err != nil {
		log.Debugf("session: seed dial to %s failed: %v", a, err)
		return 0
	}
	defer ch.Stop(nil)

	return requestAddresses(ch, s.net.Hosts, s.net.Settings.GerminationTimeout())
}
