// Copyright (c) 2014-2016 The btcsuite developers
// Copyright (c) 2025 The libbitcoin developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package chaincfg supplies the network-selection constants per network:
// magic bytes, default port, and DNS seed hostnames. The p2p service reads
// only the magic; the seed session bootstraps from config.Settings.Seeds and
// does not consult DNSSeeds. Consensus parameters (checkpoints, PoW limits,
// soft-fork deployments) belong to the excluded blockchain-validation layer
// and are not modeled here.
package chaincfg

import (
	"errors"
	"strings"

	"github.com/lastcanal/libbitcoin/wire"
)

// DNSSeed identifies a DNS seed hostname for a network.
type DNSSeed struct {
	// Host defines the hostname of the seed.
	Host string

	// HasFiltering defines whether the seed supports filtering by service
	// flags (wire.ServiceFlag).
	HasFiltering bool
}

func (d DNSSeed) String() string {
	return d.Host
}

// Params defines a bitcoin network by its magic bytes, default P2P port, and
// seed hostnames.
type Params struct {
	// Name is a human-readable identifier for the network.
	Name string

	// Net is the magic value placed in the message header that
	// distinguishes this network from others.
	Net wire.BitcoinNet

	// DefaultPort is the default peer-to-peer port for the network.
	DefaultPort string

	// DNSSeeds is the list of DNS seed hostnames for the network. No
	// session resolves or dials them.
	DNSSeeds []DNSSeed
}

// MainNetParams defines the network parameters for the main bitcoin network.
var MainNetParams = Params{
	Name:        "mainnet",
	Net:         wire.MainNet,
	DefaultPort: "8333",
	DNSSeeds: []DNSSeed{
		{Host: "seed.bitcoin.sipa.be", HasFiltering: false},
		{Host: "dnsseed.bluematt.me", HasFiltering: true},
		{Host: "seed.bitcoinstats.com", HasFiltering: true},
	},
}

// TestNet3Params defines the network parameters for the test network
// (version 3).
var TestNet3Params = Params{
	Name:        "testnet3",
	Net:         wire.TestNet3,
	DefaultPort: "18333",
	DNSSeeds: []DNSSeed{
		{Host: "testnet-seed.bitcoin.jonasschnelli.ch", HasFiltering: true},
		{Host: "seed.tbtc.petertodd.org", HasFiltering: false},
	},
}

// RegressionNetParams defines the network parameters for the regression
// test network. It has no DNS seeds: peers are expected to be added
// manually or via the static seed list in settings.
var RegressionNetParams = Params{
	Name:        "regtest",
	Net:         wire.SimNet,
	DefaultPort: "18444",
	DNSSeeds:    nil,
}

// ErrUnknownNetwork is returned by ParamsForNetwork for an unrecognized
// network name.
var ErrUnknownNetwork = errors.New("unknown bitcoin network")

// ParamsForNetwork returns the Params for the named network
// ("mainnet"|"testnet"|"regtest").
func ParamsForNetwork(name string) (*Params, error) {
	switch strings.ToLower(name) {
	case "mainnet", "":
		return &MainNetParams, nil
	case "testnet", "testnet3":
		return &TestNet3Params, nil
	case "regtest", "regression":
		return &RegressionNetParams, nil
	default:
		return nil, ErrUnknownNetwork
	}
}
