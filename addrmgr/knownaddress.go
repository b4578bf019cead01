// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2025 The libbitcoin developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package addrmgr

import (
	"time"

	"github.com/lastcanal/libbitcoin/wire"
)

// KnownAddress holds one host pool entry: a wire address record plus the
// bookkeeping the pool needs for FIFO eviction. Field names and shape are
// carried over from the teacher's own KnownAddress (see
// addrmgr/export_test.go's TstNewKnownAddress), generalized to this spec's
// simpler "bounded set with FIFO eviction" contract in place of the
// teacher's tried/new bucket scheme.
type KnownAddress struct {
	na          *wire.NetAddress
	attempts    int
	lastattempt time.Time
	lastsuccess time.Time
	tried       bool
	refs        int
}

// NetAddress returns the wrapped wire address record.
func (ka *KnownAddress) NetAddress() *wire.NetAddress {
	return ka.na
}

// Authority returns the (host, port) identity of the address.
func (ka *KnownAddress) Authority() Authority {
	return Authority{Host: ka.na.IP.String(), Port: ka.na.Port}
}

func (ka *KnownAddress) markAttempt() {
	ka.attempts++
	ka.lastattempt = time.Now()
}

func (ka *KnownAddress) markSuccess() {
	ka.lastsuccess = time.Now()
	ka.tried = true
}
