// Copyright (c) 2025 The libbitcoin developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package peer implements the channel: one transport connection, its
// read/write framing, version-handshake state machine, and per-channel
// timers (spec.md §4.2).
package peer

import (
	"bufio"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/btcsuite/btclog"
	"github.com/lastcanal/libbitcoin/addrmgr"
	"github.com/lastcanal/libbitcoin/errs"
	"github.com/lastcanal/libbitcoin/wire"
)

// log is the package logger; see UseLogger.
var log btclog.Logger = btclog.Disabled

// UseLogger sets the logger used by the peer package.
func UseLogger(logger btclog.Logger) { log = logger }

// State is a channel's position in the handshake state machine.
type State int

const (
	StateNew State = iota
	StateVersionSent
	StateVersionReceived
	StateVerAckReceived
	StateEstablished
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateNew:
		return "new"
	case StateVersionSent:
		return "version-sent"
	case StateVersionReceived:
		return "version-received"
	case StateVerAckReceived:
		return "verack-received"
	case StateEstablished:
		return "established"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Incrementer raises a persisted misbehavior score for an authority
// (SPEC_FULL §3a). Implemented by banstore.Store; declared here, mirroring
// addrmgr.Scorer, to avoid an import cycle. A nil Incrementer disables
// ban-score reporting.
type Incrementer interface {
	Increment(authority addrmgr.Authority, delta int32) (int32, error)
}

// ViolationScore is the ban-score delta applied for a single detected
// protocol violation (self-connect, bad checksum, oversized payload).
const ViolationScore = 20

// Config bundles the per-channel settings the handshake and timers need.
// It intentionally duplicates the handful of config.Settings fields a
// channel cares about rather than importing the config package, so peer has
// no dependency on the session/service layers above it.
type Config struct {
	Magic             wire.BitcoinNet
	ProtocolVersion   uint32
	Services          wire.ServiceFlag
	UserAgent         string
	StartHeight       func() int32
	HandshakeTimeout  time.Duration
	InactivityTimeout time.Duration
	ExpirationTimeout time.Duration
	AddrKnownCapacity uint
	Nonces            *NonceSet
	Bans              Incrementer
}

// Channel owns one transport connection and its handshake/timer state
// (spec.md §3, §4.2).
type Channel struct {
	conn      net.Conn
	cfg       Config
	authority addrmgr.Authority
	inbound   bool

	nonce uint64

	mu    sync.Mutex
	state State

	peerVersion *wire.MsgVersion
	gotVersion  bool
	gotVerAck   bool

	subscribers map[string][]func(*Channel, wire.Message)

	sendCh chan sendRequest

	closeOnce   sync.Once
	closed      chan struct{}
	firstErr    error
	startResult chan error
	startOnce   sync.Once

	germOnce  sync.Once
	germinate chan struct{}

	addrKnown *addrKnownFilter

	lastActivity time.Time

	timers struct {
		handshake  *time.Timer
		inactivity *time.Timer
		expiration *time.Timer
	}
}

type sendRequest struct {
	msg  wire.Message
	done chan error
}

// New wraps conn as a not-yet-started Channel. inbound distinguishes an
// accepted connection (no outgoing dial) from an outbound one purely for
// logging; the handshake itself is symmetric.
func New(conn net.Conn, authority addrmgr.Authority, inbound bool, cfg Config) (*Channel, error) {
	nonce, err := wire.RandomNonce()
	if err != nil {
		return nil, err
	}

	addrKnown, err := newAddrKnownFilter(cfg.AddrKnownCapacity)
	if err != nil {
		return nil, err
	}

	return &Channel{
		conn:        conn,
		cfg:         cfg,
		authority:   authority,
		inbound:     inbound,
		nonce:       nonce,
		state:       StateNew,
		subscribers: make(map[string][]func(*Channel, wire.Message)),
		sendCh:      make(chan sendRequest, 64),
		closed:      make(chan struct{}),
		startResult: make(chan error, 1),
		germinate:   make(chan struct{}),
		addrKnown:   addrKnown,
	}, nil
}

// Nonce returns the channel's locally-allocated handshake nonce.
func (c *Channel) Nonce() uint64 { return c.nonce }

// Authority returns the channel's peer endpoint.
func (c *Channel) Authority() addrmgr.Authority { return c.authority }

// State returns the channel's current handshake state.
func (c *Channel) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// PeerVersion returns the peer's version message, or nil before it arrives.
func (c *Channel) PeerVersion() *wire.MsgVersion {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.peerVersion
}

// Germinated is closed exactly once, on the first post-handshake inbound
// message (spec.md §4.2's "Germination" signal).
func (c *Channel) Germinated() <-chan struct{} { return c.germinate }

// Done is closed when the channel reaches the closed state.
func (c *Channel) Done() <-chan struct{} { return c.closed }

// AddrKnown reports whether na has already been announced to/by this peer.
func (c *Channel) AddrKnown(na *wire.NetAddress) bool { return c.addrKnown.Seen(na) }

// MarkAddrKnown records na as known to this peer.
func (c *Channel) MarkAddrKnown(na *wire.NetAddress) { c.addrKnown.Mark(na) }

// Subscribe registers handler for every post-handshake inbound message with
// the given command. Subscriptions must be added before Start, or from
// within the owning registry's strand callback (spec.md §4.2).
func (c *Channel) Subscribe(cmd string, handler func(*Channel, wire.Message)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subscribers[cmd] = append(c.subscribers[cmd], handler)
}

// SubscribeMessage is the generic convenience wrapper over Subscribe for a
// concrete wire.Message type T.
func SubscribeMessage[T wire.Message](ch *Channel, cmd string, handler func(*Channel, T)) {
	ch.Subscribe(cmd, func(c *Channel, msg wire.Message) {
		if typed, ok := msg.(T); ok {
			handler(c, typed)
		}
	})
}

// Start begins the read loop and handshake. The returned channel receives
// exactly once: nil once established, or the first error observed.
func (c *Channel) Start() <-chan error {
	c.startOnce.Do(func() {
		c.mu.Lock()
		c.lastActivity = time.Now()
		c.mu.Unlock()

		if c.cfg.Nonces != nil {
			c.cfg.Nonces.Add(c.nonce)
		}

		c.armTimers()
		go c.writeLoop()
		go c.readLoop()

		// sendVersion blocks on the transport write completing, so it runs
		// off the caller's goroutine: Start must return immediately with a
		// channel the caller can wait on (spec.md §4.2).
		go func() {
			if err := c.sendVersion(); err != nil {
				c.finish(err)
			}
		}()
	})
	return c.startResult
}

func (c *Channel) armTimers() {
	if c.cfg.HandshakeTimeout > 0 {
		c.timers.handshake = time.AfterFunc(c.cfg.HandshakeTimeout, func() {
			c.Stop(errs.ErrChannelTimeout)
		})
	} else {
		// A non-positive handshake timeout means "expire immediately",
		// matching the original suite's channel_handshake_seconds = 0
		// scenario (spec.md §8 scenario 4).
		c.Stop(errs.ErrChannelTimeout)
	}
	if c.cfg.InactivityTimeout > 0 {
		c.timers.inactivity = time.AfterFunc(c.cfg.InactivityTimeout, c.onInactivity)
	}
	if c.cfg.ExpirationTimeout > 0 {
		c.timers.expiration = time.AfterFunc(c.cfg.ExpirationTimeout, func() {
			c.Stop(errs.ErrChannelTimeout)
		})
	}
}

func (c *Channel) onInactivity() {
	c.mu.Lock()
	idle := time.Since(c.lastActivity)
	c.mu.Unlock()
	if idle >= c.cfg.InactivityTimeout {
		c.Stop(errs.ErrChannelTimeout)
		return
	}
	if c.cfg.InactivityTimeout > 0 {
		c.timers.inactivity = time.AfterFunc(c.cfg.InactivityTimeout-idle, c.onInactivity)
	}
}

func (c *Channel) sendVersion() error {
	me := wire.NetAddress{IP: localIP(c.conn), Port: 0, Services: c.cfg.Services}
	you := wire.NetAddress{IP: remoteIP(c.conn), Port: c.authority.Port, Services: 0}

	var startHeight int32
	if c.cfg.StartHeight != nil {
		startHeight = c.cfg.StartHeight()
	}

	msg := wire.NewMsgVersion(me, you, c.nonce, startHeight)
	msg.ProtocolVersion = int32(c.cfg.ProtocolVersion)
	msg.Services = c.cfg.Services
	if c.cfg.UserAgent != "" {
		msg.UserAgent = c.cfg.UserAgent
	}

	c.mu.Lock()
	if c.state == StateClosed {
		c.mu.Unlock()
		return errs.ErrChannelStopped
	}
	c.state = StateVersionSent
	c.mu.Unlock()

	done := make(chan error, 1)
	select {
	case c.sendCh <- sendRequest{msg: msg, done: done}:
	case <-c.closed:
		return errs.ErrChannelStopped
	}
	select {
	case err := <-done:
		return err
	case <-c.closed:
		return errs.ErrChannelStopped
	}
}

func localIP(conn net.Conn) net.IP {
	if tcp, ok := conn.LocalAddr().(*net.TCPAddr); ok {
		return tcp.IP
	}
	return net.IPv4zero
}

func remoteIP(conn net.Conn) net.IP {
	if tcp, ok := conn.RemoteAddr().(*net.TCPAddr); ok {
		return tcp.IP
	}
	return net.IPv4zero
}

// Send serializes msg and enqueues it on the channel's single writer
// goroutine; the returned channel receives the send's outcome exactly once.
func (c *Channel) Send(msg wire.Message) <-chan error {
	done := make(chan error, 1)

	c.mu.Lock()
	closed := c.state == StateClosed
	c.mu.Unlock()
	if closed {
		done <- errs.ErrChannelStopped
		return done
	}

	select {
	case c.sendCh <- sendRequest{msg: msg, done: done}:
	case <-c.closed:
		done <- errs.ErrChannelStopped
	}
	return done
}

func (c *Channel) writeLoop() {
	w := bufio.NewWriter(c.conn)
	for {
		select {
		case req := <-c.sendCh:
			err := wire.WriteMessage(w, req.msg, c.cfg.ProtocolVersion, c.cfg.Magic)
			if err == nil {
				err = w.Flush()
			}
			if err != nil {
				req.done <- err
				c.Stop(err)
				return
			}
			req.done <- nil
		case <-c.closed:
			return
		}
	}
}

// reportViolation raises the channel's peer's ban score by ViolationScore.
// Failures to reach the ledger are logged, not propagated: a missing or
// unreachable ledger must never block handshake/codec error handling.
func (c *Channel) reportViolation(detail string) {
	if c.cfg.Bans == nil {
		return
	}
	if _, err := c.cfg.Bans.Increment(c.authority, ViolationScore); err != nil {
		log.Warnf("peer: failed to record ban score for %s (%s): %v", c.authority, detail, err)
	}
}

func (c *Channel) readLoop() {
	r := bufio.NewReader(c.conn)
	for {
		msg, _, err := wire.ReadMessage(r, c.cfg.ProtocolVersion, c.cfg.Magic)
		if err != nil {
			if errors.Is(err, wire.ErrBadStream) {
				c.reportViolation("bad stream")
			}
			c.Stop(fmt.Errorf("%w: %v", errs.ErrBadStream, err))
			return
		}

		c.mu.Lock()
		c.lastActivity = time.Now()
		c.mu.Unlock()

		if err := c.handleMessage(msg); err != nil {
			c.Stop(err)
			return
		}

		select {
		case <-c.closed:
			return
		default:
		}
	}
}

func (c *Channel) handleMessage(msg wire.Message) error {
	c.mu.Lock()
	state := c.state
	c.mu.Unlock()

	switch m := msg.(type) {
	case *wire.MsgVersion:
		if c.cfg.Nonces != nil && c.cfg.Nonces.Contains(m.Nonce) {
			c.reportViolation("self-connect")
			return fmt.Errorf("%w: self-connect nonce %d", errs.ErrChannelProxy, m.Nonce)
		}
		c.mu.Lock()
		c.peerVersion = m
		c.gotVersion = true
		c.state = StateVersionReceived
		established := c.maybeEstablishLocked()
		c.mu.Unlock()
		// Acknowledge the peer's version as soon as it arrives, independent
		// of our own handshake completion (spec.md §4.2's handshake is not
		// a strict version/verack/version/verack lockstep).
		c.Send(wire.NewMsgVerAck())
		if established {
			c.onEstablished()
		}
	case *wire.MsgVerAck:
		c.mu.Lock()
		c.gotVerAck = true
		if c.state == StateVersionReceived || c.state == StateVersionSent {
			c.state = StateVerAckReceived
		}
		established := c.maybeEstablishLocked()
		c.mu.Unlock()
		if established {
			c.onEstablished()
		}
	case *wire.MsgPing:
		c.Send(wire.NewMsgPong(m.Nonce))
	}

	if state == StateEstablished {
		c.dispatch(msg)
	}
	return nil
}

// maybeEstablishLocked transitions to established once both halves of the
// handshake are satisfied: the peer's version was received AND the peer
// has acknowledged our version with a verack (spec.md §4.2, P3). Caller
// must hold c.mu.
func (c *Channel) maybeEstablishLocked() bool {
	if c.state == StateEstablished {
		return false
	}
	if c.gotVersion && c.gotVerAck {
		c.state = StateEstablished
		return true
	}
	return false
}

func (c *Channel) onEstablished() {
	if c.timers.handshake != nil {
		c.timers.handshake.Stop()
	}
	c.finish(nil)
}

func (c *Channel) dispatch(msg wire.Message) {
	c.germOnce.Do(func() { close(c.germinate) })

	c.mu.Lock()
	handlers := append([]func(*Channel, wire.Message){}, c.subscribers[msg.Command()]...)
	c.mu.Unlock()

	for _, h := range handlers {
		h(c, msg)
	}
}

func (c *Channel) finish(err error) {
	c.mu.Lock()
	if c.firstErr == nil {
		c.firstErr = err
	}
	c.mu.Unlock()

	select {
	case c.startResult <- err:
	default:
	}
}

// Stop closes the transport, cancels timers, and transitions to closed.
// Safe to call from any state; idempotent (spec.md §4.2).
func (c *Channel) Stop(reason error) {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.state = StateClosed
		if c.firstErr == nil {
			c.firstErr = reason
		}
		c.mu.Unlock()

		if c.timers.handshake != nil {
			c.timers.handshake.Stop()
		}
		if c.timers.inactivity != nil {
			c.timers.inactivity.Stop()
		}
		if c.timers.expiration != nil {
			c.timers.expiration.Stop()
		}
		if c.cfg.Nonces != nil {
			c.cfg.Nonces.Remove(c.nonce)
		}

		close(c.closed)
		c.conn.Close()

		c.finish(reason)
	})
}

// Err returns the first error observed by the channel, if any.
func (c *Channel) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.firstErr
}
