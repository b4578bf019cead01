// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2025 The libbitcoin developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package addrmgr implements the host pool: a bounded, persisted,
// blacklist-filtering set of known peer addresses (spec.md §4.3).
package addrmgr

import (
	"bufio"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/btcsuite/btclog"
	"github.com/lastcanal/libbitcoin/wire"
)

func parseIP(host string) net.IP {
	if ip := net.ParseIP(host); ip != nil {
		return ip
	}
	return net.IPv4zero
}

// log is the package logger; see UseLogger.
var log btclog.Logger = btclog.Disabled

// UseLogger sets the logger used by the addrmgr package.
func UseLogger(logger btclog.Logger) { log = logger }

// ConnectedChecker answers whether an authority currently has a live
// channel, so Fetch never hands out an address the registry already holds.
// Implemented by the registry package; declared here to avoid an import
// cycle.
type ConnectedChecker interface {
	IsConnected(authority Authority) bool
}

// Scorer reports a persisted misbehavior score for an authority (SPEC_FULL
// §3a). Implemented by banstore.Store; declared here to avoid an import
// cycle. A nil Scorer disables ban-score-based blacklisting.
type Scorer interface {
	Score(authority Authority) (int32, error)
}

type noConnectedChecker struct{}

func (noConnectedChecker) IsConnected(Authority) bool { return false }

// HostPool is the bounded, persisted set of known peer addresses.
type HostPool struct {
	mu sync.Mutex

	capacity int
	path     string

	order     []Authority
	entries   map[Authority]*KnownAddress
	blacklist map[Authority]struct{}

	connected ConnectedChecker
	scorer    Scorer
	banLimit  int32

	inserted chan struct{}
}

// New returns an empty host pool bounded to capacity, persisted at path (may
// be empty to disable persistence), rejecting the given static blacklist.
func New(capacity int, path string, blacklist []Authority) *HostPool {
	bl := make(map[Authority]struct{}, len(blacklist))
	for _, a := range blacklist {
		bl[a] = struct{}{}
	}
	return &HostPool{
		capacity:  capacity,
		path:      path,
		entries:   make(map[Authority]*KnownAddress),
		blacklist: bl,
		connected: noConnectedChecker{},
		inserted:  make(chan struct{}),
	}
}

// SetConnectedChecker wires the registry's liveness query into Fetch (H-pool
// collaborator query, spec.md §4.3).
func (p *HostPool) SetConnectedChecker(c ConnectedChecker) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if c == nil {
		c = noConnectedChecker{}
	}
	p.connected = c
}

// SetScorer wires the misbehavior ledger into the blacklist check (SPEC_FULL
// §3a). banLimit is the score at or above which an authority is treated as
// blacklisted.
func (p *HostPool) SetScorer(s Scorer, banLimit int32) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.scorer = s
	p.banLimit = banLimit
}

// Len returns the current pool size.
func (p *HostPool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.order)
}

// Inserted returns a channel closed (and replaced) every time an address is
// successfully inserted, so the outbound session can wait for new addresses
// rather than poll (spec.md §4.5).
func (p *HostPool) Inserted() <-chan struct{} {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.inserted
}

func (p *HostPool) signalInsertedLocked() {
	close(p.inserted)
	p.inserted = make(chan struct{})
}

// isBlacklistedLocked reports whether authority must be rejected: statically
// configured, or ban-scored at/over the threshold (SPEC_FULL §3a).
func (p *HostPool) isBlacklistedLocked(a Authority) bool {
	if _, ok := p.blacklist[a]; ok {
		return true
	}
	if p.scorer == nil {
		return false
	}
	score, err := p.scorer.Score(a)
	if err != nil {
		log.Warnf("addrmgr: ban score lookup failed for %s: %v", a, err)
		return false
	}
	return score >= p.banLimit
}

// IsBlacklisted reports whether authority is rejected by the static
// blacklist or the ban-score ledger, independent of pool membership. Used
// by the manual session, which bypasses the pool but must still honor the
// blacklist (spec.md §4.5).
func (p *HostPool) IsBlacklisted(a Authority) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.isBlacklistedLocked(a)
}

// Contains reports whether authority is currently in the pool.
func (p *HostPool) Contains(a Authority) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.entries[a]
	return ok
}

// Insert adds na to the pool, evicting the oldest entry (FIFO) if the pool
// is already at capacity (H1). Blacklisted authorities are rejected (H2).
func (p *HostPool) Insert(na *wire.NetAddress) error {
	a := Authority{Host: na.IP.String(), Port: na.Port}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.capacity <= 0 {
		return fmt.Errorf("addrmgr: pool has zero capacity")
	}
	if p.isBlacklistedLocked(a) {
		return fmt.Errorf("addrmgr: %s is blacklisted", a)
	}
	if existing, ok := p.entries[a]; ok {
		existing.na = na
		return nil
	}

	if len(p.order) >= p.capacity {
		oldest := p.order[0]
		p.order = p.order[1:]
		delete(p.entries, oldest)
	}

	p.order = append(p.order, a)
	p.entries[a] = &KnownAddress{na: na}
	p.signalInsertedLocked()
	return nil
}

// Remove deletes authority from the pool, if present.
func (p *HostPool) Remove(a Authority) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.entries[a]; !ok {
		return
	}
	delete(p.entries, a)
	for i, existing := range p.order {
		if existing == a {
			p.order = append(p.order[:i], p.order[i+1:]...)
			break
		}
	}
}

// Fetch returns an address not currently connected and not blacklisted, or
// (nil, false) if none qualifies.
func (p *HostPool) Fetch() (*wire.NetAddress, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, a := range p.order {
		if p.isBlacklistedLocked(a) {
			continue
		}
		if p.connected.IsConnected(a) {
			continue
		}
		ka := p.entries[a]
		ka.markAttempt()
		return ka.na, true
	}
	return nil, false
}

// Load reads the hosts file at p.path, one "host:port" authority per line,
// '#'-prefixed comment lines ignored. A missing file is treated as an empty
// pool (recoverable, spec.md §4.3 failure policy).
func (p *HostPool) Load() error {
	if p.path == "" {
		return nil
	}

	f, err := os.Open(p.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		a, err := ParseAuthority(line)
		if err != nil {
			log.Warnf("addrmgr: skipping malformed hosts line %q: %v", line, err)
			continue
		}
		host := strings.Trim(a.Host, "[]")
		na := &wire.NetAddress{IP: parseIP(host), Port: a.Port}
		if err := p.Insert(na); err != nil {
			log.Warnf("addrmgr: skipping hosts line %q: %v", line, err)
		}
	}
	return scanner.Err()
}

// Save atomically (write-temp-then-rename, H3) persists the pool to
// p.path, one authority per line.
func (p *HostPool) Save() error {
	if p.path == "" {
		return nil
	}

	p.mu.Lock()
	lines := make([]string, 0, len(p.order))
	for _, a := range p.order {
		lines = append(lines, a.String())
	}
	p.mu.Unlock()

	dir := filepath.Dir(p.path)
	tmp, err := os.CreateTemp(dir, "hosts-*.tmp")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()

	w := bufio.NewWriter(tmp)
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			tmp.Close()
			os.Remove(tmpPath)
			return err
		}
	}
	if err := w.Flush(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return os.Rename(tmpPath, p.path)
}
