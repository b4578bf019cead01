// Copyright (c) 2025 The libbitcoin developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package config defines the tunables accepted by the p2p service. There is
// no CLI surface in scope (spec.md §6); Settings is constructed directly by
// the embedder.
package config

import (
	"time"

	"github.com/lastcanal/libbitcoin/chaincfg"
	"github.com/lastcanal/libbitcoin/wire"
)

// Settings collects every tunable of the p2p core (spec.md §6).
type Settings struct {
	// Threads is the worker count. No component reads it: sessions and
	// channels start their own goroutines, and there is no shared,
	// fixed-size worker pool.
	Threads int

	// HostPoolCapacity bounds the number of addresses the host pool keeps.
	HostPoolCapacity int

	// OutboundConnections is the target number of live outbound channels.
	OutboundConnections int

	// InboundConnectionLimit bounds inbound channels; zero disables the
	// inbound session entirely.
	InboundConnectionLimit int

	// InboundPort is the TCP port the inbound session listens on.
	InboundPort uint16

	// ConnectTimeoutSeconds bounds a single outbound dial attempt.
	ConnectTimeoutSeconds int

	// ChannelHandshakeSeconds bounds time to reach the established state.
	ChannelHandshakeSeconds int

	// ChannelGerminationSeconds bounds, per session-owned attempt, time to
	// the first post-handshake message.
	ChannelGerminationSeconds int

	// ChannelInactivityMinutes closes a channel with no inbound bytes.
	ChannelInactivityMinutes int

	// ChannelExpirationMinutes is a channel's absolute maximum lifetime.
	ChannelExpirationMinutes int

	// HostsFile is the path to the persisted host-address cache.
	HostsFile string

	// Seeds lists bootstrap authorities used only when the host pool is
	// empty at Start (spec.md §4.5).
	Seeds []string

	// Blacklists lists authorities the host pool and manual session must
	// never connect to.
	Blacklists []string

	// ProtocolVersion is advertised in outgoing version messages.
	ProtocolVersion uint32

	// Services is the service bitmask advertised in version messages.
	Services wire.ServiceFlag

	// UserAgent is advertised in outgoing version messages.
	UserAgent string

	// Network selects mainnet/testnet/regtest, determining the wire magic
	// (chaincfg.Params). Bootstrap peers come from Seeds only.
	Network string

	// Proxy, if set, is a SOCKS5 "host:port" all outbound/seed/manual
	// dials are routed through (SPEC_FULL §1b).
	Proxy string

	// BanThreshold is the misbehavior score (SPEC_FULL §3a) at or above
	// which an authority is treated as blacklisted. Zero uses the
	// default of 100.
	BanThreshold int32

	// BanStoreDir is the goleveldb directory backing the misbehavior
	// ledger. Empty disables ban-score persistence (in-memory only).
	BanStoreDir string
}

// DefaultBanThreshold is used when Settings.BanThreshold is zero.
const DefaultBanThreshold = 100

// Testnet returns the settings used by the original test suite's
// SETTINGS_TESTNET_ONE_THREAD_NO_CONNECTIONS fixture (test/network/p2p.cpp):
// one thread, an empty host pool, and every session disabled.
func Testnet() Settings {
	return Settings{
		Threads:                   1,
		HostPoolCapacity:          0,
		OutboundConnections:       0,
		InboundConnectionLimit:    0,
		InboundPort:               18333,
		ConnectTimeoutSeconds:     5,
		ChannelHandshakeSeconds:   30,
		ChannelGerminationSeconds: 30,
		ChannelInactivityMinutes:  10,
		ChannelExpirationMinutes:  60,
		ProtocolVersion:           wire.ProtocolVersion,
		Services:                  0,
		UserAgent:                 wire.DefaultUserAgent,
		Network:                   "testnet",
		BanThreshold:              DefaultBanThreshold,
	}
}

func (s Settings) banThreshold() int32 {
	if s.BanThreshold == 0 {
		return DefaultBanThreshold
	}
	return s.BanThreshold
}

// BanThresholdOrDefault returns BanThreshold, substituting DefaultBanThreshold
// when unset.
func (s Settings) BanThresholdOrDefault() int32 { return s.banThreshold() }

func (s Settings) handshakeTimeout() time.Duration {
	return time.Duration(s.ChannelHandshakeSeconds) * time.Second
}

// HandshakeTimeout is the duration a channel has to reach established.
func (s Settings) HandshakeTimeout() time.Duration { return s.handshakeTimeout() }

// GerminationTimeout is the duration a session gives one attempt to produce
// its first post-handshake message.
func (s Settings) GerminationTimeout() time.Duration {
	return time.Duration(s.ChannelGerminationSeconds) * time.Second
}

// InactivityTimeout is the duration of silence that closes a channel.
func (s Settings) InactivityTimeout() time.Duration {
	return time.Duration(s.ChannelInactivityMinutes) * time.Minute
}

// ExpirationTimeout is a channel's absolute maximum lifetime.
func (s Settings) ExpirationTimeout() time.Duration {
	return time.Duration(s.ChannelExpirationMinutes) * time.Minute
}

// ConnectTimeout bounds a single outbound dial attempt.
func (s Settings) ConnectTimeout() time.Duration {
	return time.Duration(s.ConnectTimeoutSeconds) * time.Second
}

// Params resolves the chaincfg.Params for Settings.Network.
func (s Settings) Params() (*chaincfg.Params, error) {
	return chaincfg.ParamsForNetwork(s.Network)
}
