// Copyright (c) 2025 The libbitcoin developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package session

import (
	"context"

	"github.com/lastcanal/libbitcoin/addrmgr"
	"github.com/lastcanal/libbitcoin/errs"
	"github.com/lastcanal/libbitcoin/peer"
)

// Manual exposes on-demand outbound connections bypassing the host pool,
// used by the p2p service facade for operator-directed dials (spec.md
// §4.5). The host pool's blacklist (static entries plus the ban-score
// ledger) is still honored.
type Manual struct {
	net *Network
}

// NewManual returns a Manual session bound to net.
func NewManual(n *Network) *Manual {
	return &Manual{net: n}
}

// Connect dials authority, runs the handshake, and stores the resulting
// channel in the registry. It fails with errs.ErrAddressBlocked if
// authority is blacklisted.
func (m *Manual) Connect(ctx context.Context, authority addrmgr.Authority) (*peer.Channel, error) {
	if m.net.Hosts.IsBlacklisted(authority) {
		return nil, errs.ErrAddressBlocked
	}

	ch, err := m.net.dial(ctx, authority)
	if err != nil {
		return nil, err
	}

	if err := m.net.Conns.Store(ch); err != nil {
		ch.Stop(err)
		return nil, err
	}

	return ch, nil
}
