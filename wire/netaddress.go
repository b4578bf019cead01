// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2025 The libbitcoin developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"fmt"
	"io"
	"net"
	"time"
)

// maxNetAddressPayload returns the max payload size for a bitcoin NetAddress
// based on the protocol version.
func maxNetAddressPayload(pver uint32) uint32 {
	plen := uint32(26)
	if pver >= NetAddressTimeVersion {
		plen += 4
	}
	return plen
}

// NetAddress defines information about a peer on the network, including its
// last seen time, services it supports, and its network endpoint.
type NetAddress struct {
	// Timestamp is the last time the address was seen. It is only
	// encoded/decoded when pver >= NetAddressTimeVersion.
	Timestamp time.Time

	// Services is the bitmask of services supported by the peer.
	Services ServiceFlag

	// IP is the peer's IP address. Both IPv4 and IPv6 are encoded in a
	// fixed 16-byte field, mapping IPv4 addresses per RFC 4291.
	IP net.IP

	// Port is the peer's port, host byte order on the wire struct, but
	// big-endian on the wire itself (matching the bitcoin protocol quirk).
	Port uint16
}

// NewNetAddressIPPort returns a new NetAddress for the given IP, port, and
// supported service flags, with the timestamp set to now.
func NewNetAddressIPPort(ip net.IP, port uint16, services ServiceFlag) *NetAddress {
	return &NetAddress{
		Timestamp: time.Now(),
		Services:  services,
		IP:        ip,
		Port:      port,
	}
}

// Authority renders the address as host:port (bracketed for IPv6), matching
// the hosts-file and log-line convention used across the package.
func (na *NetAddress) Authority() string {
	return net.JoinHostPort(na.IP.String(), fmt.Sprintf("%d", na.Port))
}

func readNetAddress(r io.Reader, pver uint32, na *NetAddress, hasTimestamp bool) error {
	var ts time.Time
	if hasTimestamp && pver >= NetAddressTimeVersion {
		t, err := binarySerializer.Uint32(r)
		if err != nil {
			return err
		}
		ts = uint32ToTime(t)
	}

	services, err := binarySerializer.Uint64(r)
	if err != nil {
		return err
	}

	var ip [16]byte
	if _, err := io.ReadFull(r, ip[:]); err != nil {
		return err
	}

	port, err := readPortNumber(r)
	if err != nil {
		return err
	}

	*na = NetAddress{
		Timestamp: ts,
		Services:  ServiceFlag(services),
		IP:        net.IP(append([]byte(nil), ip[:]...)),
		Port:      port,
	}
	return nil
}

func writeNetAddress(w io.Writer, pver uint32, na *NetAddress, includeTimestamp bool) error {
	if includeTimestamp && pver >= NetAddressTimeVersion {
		if err := binarySerializer.PutUint32(w, timeToUint32(na.Timestamp)); err != nil {
			return err
		}
	}

	if err := binarySerializer.PutUint64(w, uint64(na.Services)); err != nil {
		return err
	}

	var ip [16]byte
	if ip4 := na.IP.To4(); ip4 != nil {
		copy(ip[10:12], []byte{0xff, 0xff})
		copy(ip[12:16], ip4)
	} else if ip16 := na.IP.To16(); ip16 != nil {
		copy(ip[:], ip16)
	}
	if _, err := w.Write(ip[:]); err != nil {
		return err
	}

	return writePortNumber(w, na.Port)
}

// readPortNumber and writePortNumber handle the bitcoin protocol's
// big-endian encoding of the port field (unlike every other integer field,
// which is little-endian).
func readPortNumber(r io.Reader) (uint16, error) {
	var buf [2]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return uint16(buf[0])<<8 | uint16(buf[1]), nil
}

func writePortNumber(w io.Writer, port uint16) error {
	var buf [2]byte
	buf[0] = byte(port >> 8)
	buf[1] = byte(port)
	_, err := w.Write(buf[:])
	return err
}
