// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2025 The libbitcoin developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"io"
	"time"
)

// MaxUserAgentLen is the maximum allowed length for the user agent field in
// a version message.
const MaxUserAgentLen = 256

// DefaultUserAgent is used when a caller does not override settings.UserAgent.
const DefaultUserAgent = "/libbitcoin:0.1.0/"

// MsgVersion implements the Message interface and represents a bitcoin
// version message, exchanged as the first step of the channel handshake.
type MsgVersion struct {
	ProtocolVersion int32
	Services        ServiceFlag
	Timestamp       time.Time
	AddrYou         NetAddress
	AddrMe          NetAddress
	Nonce           uint64
	UserAgent       string
	LastBlock       int32
}

// NewMsgVersion returns a new version message populated with the provided
// fields, including the caller-supplied nonce (see RandomNonce).
func NewMsgVersion(me, you NetAddress, nonce uint64, lastBlock int32) *MsgVersion {
	return &MsgVersion{
		ProtocolVersion: int32(ProtocolVersion),
		Services:        0,
		Timestamp:       time.Now(),
		AddrYou:         you,
		AddrMe:          me,
		Nonce:           nonce,
		UserAgent:       DefaultUserAgent,
		LastBlock:       lastBlock,
	}
}

// RandomNonce draws a fresh 64-bit nonce for self-connect detection. It does
// not perform any key-cryptography operation; crypto/rand is used purely as
// a high-quality source of entropy for the value itself.
func RandomNonce() (uint64, error) {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(buf[:]), nil
}

func (msg *MsgVersion) BtcDecode(r io.Reader, pver uint32) error {
	pv, err := binarySerializer.Uint32(r)
	if err != nil {
		return err
	}
	msg.ProtocolVersion = int32(pv)

	svc, err := binarySerializer.Uint64(r)
	if err != nil {
		return err
	}
	msg.Services = ServiceFlag(svc)

	ts, err := binarySerializer.Uint64(r)
	if err != nil {
		return err
	}
	msg.Timestamp = time.Unix(int64(ts), 0).UTC()

	if err := readNetAddress(r, pver, &msg.AddrYou, false); err != nil {
		return err
	}
	if err := readNetAddress(r, pver, &msg.AddrMe, false); err != nil {
		return err
	}

	msg.Nonce, err = binarySerializer.Uint64(r)
	if err != nil {
		return err
	}

	userAgent, err := ReadVarString(r, pver)
	if err != nil {
		return err
	}
	if len(userAgent) > MaxUserAgentLen {
		return messageError("MsgVersion.BtcDecode", fmt.Sprintf(
			"user agent too long [len %d, max %d]", len(userAgent), MaxUserAgentLen))
	}
	msg.UserAgent = userAgent

	lastBlock, err := binarySerializer.Uint32(r)
	if err != nil {
		return err
	}
	msg.LastBlock = int32(lastBlock)

	return nil
}

func (msg *MsgVersion) BtcEncode(w io.Writer, pver uint32) error {
	if len(msg.UserAgent) > MaxUserAgentLen {
		return messageError("MsgVersion.BtcEncode", fmt.Sprintf(
			"user agent too long [len %d, max %d]", len(msg.UserAgent), MaxUserAgentLen))
	}

	if err := binarySerializer.PutUint32(w, uint32(msg.ProtocolVersion)); err != nil {
		return err
	}
	if err := binarySerializer.PutUint64(w, uint64(msg.Services)); err != nil {
		return err
	}
	if err := binarySerializer.PutUint64(w, uint64(msg.Timestamp.Unix())); err != nil {
		return err
	}
	if err := writeNetAddress(w, pver, &msg.AddrYou, false); err != nil {
		return err
	}
	if err := writeNetAddress(w, pver, &msg.AddrMe, false); err != nil {
		return err
	}
	if err := binarySerializer.PutUint64(w, msg.Nonce); err != nil {
		return err
	}
	if err := WriteVarString(w, pver, msg.UserAgent); err != nil {
		return err
	}
	return binarySerializer.PutUint32(w, uint32(msg.LastBlock))
}

func (msg *MsgVersion) Command() string { return CmdVersion }

func (msg *MsgVersion) MaxPayloadLength(pver uint32) uint32 {
	return 4 + 8 + 8 + 26 + 26 + 8 + uint32(VarIntSerializeSize(MaxUserAgentLen)) + MaxUserAgentLen + 4
}
