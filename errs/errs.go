// Copyright (c) 2025 The libbitcoin developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package errs defines the closed set of error kinds callers of the p2p
// core observe (spec.md §7). Success is always nil; every other outcome is
// one of these sentinels, usable with errors.Is.
package errs

import "errors"

var (
	// ErrOperationFailed is the generic catch-all for session- or
	// service-level failure (seed produced zero addresses, double start,
	// invalid configuration).
	ErrOperationFailed = errors.New("p2p: operation failed")

	// ErrNotFound indicates a lookup (authority, nonce) found nothing.
	ErrNotFound = errors.New("p2p: not found")

	// ErrAddressInUse is returned by the registry when an authority or
	// nonce already has a stored channel.
	ErrAddressInUse = errors.New("p2p: address in use")

	// ErrAddressBlocked is returned when an operation targets a
	// blacklisted authority.
	ErrAddressBlocked = errors.New("p2p: address blocked")

	// ErrChannelTimeout is returned when a channel's handshake,
	// inactivity, or expiration deadline fires.
	ErrChannelTimeout = errors.New("p2p: channel timeout")

	// ErrChannelStopped is returned by any operation on a channel that
	// has already closed.
	ErrChannelStopped = errors.New("p2p: channel stopped")

	// ErrBadStream is returned for codec-level failures (magic mismatch,
	// checksum mismatch, truncated input). Equal to wire.ErrBadStream's
	// role but kept distinct so session/service callers don't need to
	// import the wire package just to compare errors.
	ErrBadStream = errors.New("p2p: bad stream")

	// ErrChannelProxy indicates a handshake protocol violation (e.g. a
	// self-connect nonce collision).
	ErrChannelProxy = errors.New("p2p: channel protocol violation")

	// ErrPeerThrottling indicates a peer-imposed rate limit was hit.
	ErrPeerThrottling = errors.New("p2p: peer throttling")
)
