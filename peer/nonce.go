// Copyright (c) 2025 The libbitcoin developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package peer

import "sync"

// NonceSet tracks the nonces of every channel a single p2p service has
// currently issued a version for, so an incoming version whose nonce
// matches one of ours can be recognized as a self-connection (spec.md
// §4.2). It is shared by every Channel the service creates.
type NonceSet struct {
	mu  sync.Mutex
	set map[uint64]struct{}
}

// NewNonceSet returns an empty, ready-to-use NonceSet.
func NewNonceSet() *NonceSet {
	return &NonceSet{set: make(map[uint64]struct{})}
}

// Add records nonce as live.
func (s *NonceSet) Add(nonce uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.set[nonce] = struct{}{}
}

// Remove forgets nonce, typically called when its channel closes.
func (s *NonceSet) Remove(nonce uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.set, nonce)
}

// Contains reports whether nonce is currently live.
func (s *NonceSet) Contains(nonce uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.set[nonce]
	return ok
}
