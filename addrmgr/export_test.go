// Copyright (c) 2013-2015 The btcsuite developers
// Copyright (c) 2025 The libbitcoin developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// This file exports internal functions for use in tests.
// It is compiled only when running tests.

package addrmgr

import (
	"time"

	"github.com/lastcanal/libbitcoin/wire"
)

// TstNewKnownAddress makes the internal KnownAddress constructor available
// to tests.
func TstNewKnownAddress(na *wire.NetAddress, attempts int,
	lastattempt, lastsuccess time.Time, tried bool, refs int) *KnownAddress {
	return &KnownAddress{na: na, attempts: attempts, lastattempt: lastattempt,
		lastsuccess: lastsuccess, tried: tried, refs: refs}
}
