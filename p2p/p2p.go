// Copyright (c) 2025 The libbitcoin developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package p2p is the top-level lifecycle facade wiring the host pool, the
// connections registry, the misbehavior ledger, and the four sessions into
// a single Start/Stop/Broadcast surface (spec.md §4.6).
package p2p

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/btcsuite/btclog"
	"github.com/lastcanal/libbitcoin/addrmgr"
	"github.com/lastcanal/libbitcoin/banstore"
	"github.com/lastcanal/libbitcoin/config"
	"github.com/lastcanal/libbitcoin/errs"
	"github.com/lastcanal/libbitcoin/peer"
	"github.com/lastcanal/libbitcoin/registry"
	"github.com/lastcanal/libbitcoin/session"
	"github.com/lastcanal/libbitcoin/wire"
)

var log btclog.Logger = btclog.Disabled

// UseLogger sets the logger used by the p2p package, and propagates it to
// every collaborator package so a single call configures the whole stack.
func UseLogger(logger btclog.Logger) {
	log = logger
	addrmgr.UseLogger(logger)
	peer.UseLogger(logger)
	registry.UseLogger(logger)
	session.UseLogger(logger)
}

// State is the service's position in its lifecycle (spec.md §4.6).
type State int32

const (
	StateStopped State = iota
	StateStarting
	StateStarted
	StateStopping
)

func (s State) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StateStarting:
		return "starting"
	case StateStarted:
		return "started"
	case StateStopping:
		return "stopping"
	default:
		return "unknown"
	}
}

// Service is the p2p core's embeddable entry point.
type Service struct {
	settings config.Settings

	state int32 // atomic State

	mu          sync.Mutex
	lifecycleMu sync.Mutex

	hosts *addrmgr.HostPool
	conns *registry.Registry
	bans  *banstore.Store
	net   *session.Network

	seed     *session.Seed
	manual   *session.Manual
	inbound  *session.Inbound
	outbound *session.Outbound

	cancel context.CancelFunc

	height int32
}

// New constructs a Service from settings without starting it.
func New(settings config.Settings) (*Service, error) {
	params, err := settings.Params()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errs.ErrOperationFailed, err)
	}

	blacklist := make([]addrmgr.Authority, 0, len(settings.Blacklists))
	for _, s := range settings.Blacklists {
		a, err := addrmgr.ParseAuthority(s)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", errs.ErrOperationFailed, err)
		}
		blacklist = append(blacklist, a)
	}

	hosts := addrmgr.New(settings.HostPoolCapacity, settings.HostsFile, blacklist)
	if err := hosts.Load(); err != nil {
		return nil, err
	}

	bans, err := banstore.Open(settings.BanStoreDir)
	if err != nil {
		return nil, err
	}
	hosts.SetScorer(bans, settings.BanThresholdOrDefault())

	svc := &Service{
		settings: settings,
		hosts:    hosts,
		bans:     bans,
	}

	svc.net = &session.Network{
		Settings: settings,
		Magic:    params.Net,
		Hosts:    hosts,
		Dialer:   session.NewDialer(settings.Proxy),
		Nonces:   peer.NewNonceSet(),
		Height:   svc.Height32,
		Bans:     bans,
	}

	return svc, nil
}

// Height32 adapts Height to the func() int32 shape session.Network expects.
func (s *Service) Height32() int32 { return s.Height() }

// Height returns the block height surfaced in outgoing version messages.
func (s *Service) Height() int32 { return atomic.LoadInt32(&s.height) }

// SetHeight updates the block height surfaced in outgoing version messages.
func (s *Service) SetHeight(n int32) { atomic.StoreInt32(&s.height, n) }

func (s *Service) currentState() State { return State(atomic.LoadInt32(&s.state)) }

// Start transitions stopped -> starting -> started, running the seed,
// manual, inbound, and outbound sessions in that order. If seed fails, the
// service tears down whatever was already started and returns to stopped
// (spec.md §4.6, P7).
func (s *Service) Start(ctx context.Context) <-chan error {
	out := make(chan error, 1)

	s.lifecycleMu.Lock()
	defer s.lifecycleMu.Unlock()

	if !atomic.CompareAndSwapInt32(&s.state, int32(StateStopped), int32(StateStarting)) {
		out <- errs.ErrOperationFailed
		return out
	}

	runCtx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	s.mu.Lock()
	s.conns = registry.New()
	s.hosts.SetConnectedChecker(s.conns)
	s.net.Conns = s.conns
	s.mu.Unlock()

	seed, err := session.NewSeed(s.net)
	if err != nil {
		s.teardownLocked()
		atomic.StoreInt32(&s.state, int32(StateStopped))
		out <- fmt.Errorf("%w: %w", errs.ErrOperationFailed, err)
		return out
	}
	s.seed = seed

	if err := <-seed.Start(ctx); err != nil {
		s.teardownLocked()
		atomic.StoreInt32(&s.state, int32(StateStopped))
		out <- err
		return out
	}

	s.manual = session.NewManual(s.net)
	s.inbound = session.NewInbound(s.net)
	s.outbound = session.NewOutbound(s.net)

	if err := <-s.inbound.Start(runCtx); err != nil {
		s.teardownLocked()
		atomic.StoreInt32(&s.state, int32(StateStopped))
		out <- err
		return out
	}

	s.outbound.Start(runCtx)

	atomic.StoreInt32(&s.state, int32(StateStarted))
	out <- nil
	return out
}

func (s *Service) teardownLocked() {
	s.mu.Lock()
	conns := s.conns
	s.mu.Unlock()
	if conns != nil {
		conns.Clear(errs.ErrChannelStopped)
	}
	if s.outbound != nil {
		s.outbound.Stop()
	}
	if s.inbound != nil {
		s.inbound.Stop()
	}
	if s.cancel != nil {
		s.cancel()
	}
	if conns != nil {
		conns.Close()
	}

	// Persist whatever the host pool has learned this run; stop always
	// succeeds (spec.md §7), so a write failure is logged, not returned.
	if err := s.hosts.Save(); err != nil {
		log.Errorf("p2p: failed to save host pool: %v", err)
	}
}

// Stop transitions to stopping, clears the registry, stops every session,
// and returns to stopped. Idempotent: calling Stop from stopped succeeds
// immediately with nil.
func (s *Service) Stop(ctx context.Context) <-chan error {
	out := make(chan error, 1)

	s.lifecycleMu.Lock()
	defer s.lifecycleMu.Unlock()

	if s.currentState() == StateStopped {
		out <- nil
		return out
	}

	atomic.StoreInt32(&s.state, int32(StateStopping))

	s.teardownLocked()

	atomic.StoreInt32(&s.state, int32(StateStopped))
	out <- nil
	return out
}

// Broadcast delegates to the registry.
func (s *Service) Broadcast(msg wire.Message) <-chan registry.BroadcastResult {
	s.mu.Lock()
	conns := s.conns
	s.mu.Unlock()
	if conns == nil {
		results := make(chan registry.BroadcastResult)
		close(results)
		return results
	}
	return conns.Broadcast(msg)
}

// Connect dials authority manually, bypassing the host pool (but not the
// blacklist), and stores the resulting channel in the registry.
func (s *Service) Connect(ctx context.Context, authority addrmgr.Authority) (*peer.Channel, error) {
	s.mu.Lock()
	manual := s.manual
	s.mu.Unlock()
	if manual == nil {
		return nil, errs.ErrOperationFailed
	}
	return manual.Connect(ctx, authority)
}

// Count returns the number of currently established channels.
func (s *Service) Count() int {
	s.mu.Lock()
	conns := s.conns
	s.mu.Unlock()
	if conns == nil {
		return 0
	}
	return conns.Count()
}
