// Copyright (c) 2025 The libbitcoin developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package peer

import (
	"crypto/rand"
	"encoding/binary"

	"github.com/aead/siphash"
	"github.com/decred/dcrd/lru"
	"github.com/lastcanal/libbitcoin/wire"
)

// addrKnownFilter remembers, per channel, which addresses have already been
// announced to (or received from) the peer, so addr relay does not re-send
// entries the peer already has (SPEC_FULL §1b). Keys are folded through a
// per-channel random siphash key before insertion, matching the role
// siphash plays in bitcoind/btcd's rolling address filters: an observer
// cannot predict membership by guessing insertion order.
type addrKnownFilter struct {
	cache *lru.Cache
	key   [16]byte
}

func newAddrKnownFilter(capacity uint) (*addrKnownFilter, error) {
	var key [16]byte
	if _, err := rand.Read(key[:]); err != nil {
		return nil, err
	}
	return &addrKnownFilter{
		cache: lru.NewCache(capacity),
		key:   key,
	}, nil
}

func (f *addrKnownFilter) fold(na *wire.NetAddress) uint64 {
	buf := make([]byte, 0, 18)
	buf = append(buf, na.IP.To16()...)
	var portBuf [2]byte
	binary.BigEndian.PutUint16(portBuf[:], na.Port)
	buf = append(buf, portBuf[:]...)
	return siphash.Sum64(buf, &f.key)
}

// Seen reports whether na has already been marked known.
func (f *addrKnownFilter) Seen(na *wire.NetAddress) bool {
	return f.cache.Contains(f.fold(na))
}

// Mark records na as known.
func (f *addrKnownFilter) Mark(na *wire.NetAddress) {
	f.cache.Add(f.fold(na))
}
