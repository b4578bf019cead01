// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2025 The libbitcoin developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"fmt"
	"io"
)

// MaxAddrPerMsg is the maximum number of addresses a single addr message
// may carry, matching the bitcoin protocol limit.
const MaxAddrPerMsg = 1000

// MsgAddr implements the Message interface and represents a reply to
// MsgGetAddr carrying known peer addresses.
type MsgAddr struct {
	AddrList []*NetAddress
}

// AddAddress adds a single address to the message, erroring if the message
// would exceed MaxAddrPerMsg.
func (msg *MsgAddr) AddAddress(na *NetAddress) error {
	if len(msg.AddrList)+1 > MaxAddrPerMsg {
		return messageError("MsgAddr.AddAddress", "too many addresses in message")
	}
	msg.AddrList = append(msg.AddrList, na)
	return nil
}

// AddAddresses is a convenience wrapper around AddAddress for multiple
// addresses.
func (msg *MsgAddr) AddAddresses(addrs ...*NetAddress) error {
	for _, na := range addrs {
		if err := msg.AddAddress(na); err != nil {
			return err
		}
	}
	return nil
}

func (msg *MsgAddr) BtcDecode(r io.Reader, pver uint32) error {
	count, err := ReadVarInt(r, pver)
	if err != nil {
		return err
	}
	if count > MaxAddrPerMsg {
		return messageError("MsgAddr.BtcDecode", fmt.Sprintf(
			"too many addresses for message [count %d, max %d]", count, MaxAddrPerMsg))
	}

	addrList := make([]NetAddress, count)
	msg.AddrList = make([]*NetAddress, 0, count)
	for i := uint64(0); i < count; i++ {
		na := &addrList[i]
		if err := readNetAddress(r, pver, na, true); err != nil {
			return err
		}
		msg.AddrList = append(msg.AddrList, na)
	}
	return nil
}

func (msg *MsgAddr) BtcEncode(w io.Writer, pver uint32) error {
	count := len(msg.AddrList)
	if count > MaxAddrPerMsg {
		return messageError("MsgAddr.BtcEncode", fmt.Sprintf(
			"too many addresses for message [count %d, max %d]", count, MaxAddrPerMsg))
	}

	if err := WriteVarInt(w, pver, uint64(count)); err != nil {
		return err
	}
	for _, na := range msg.AddrList {
		if err := writeNetAddress(w, pver, na, true); err != nil {
			return err
		}
	}
	return nil
}

func (msg *MsgAddr) Command() string { return CmdAddr }

func (msg *MsgAddr) MaxPayloadLength(pver uint32) uint32 {
	return uint32(VarIntSerializeSize(MaxAddrPerMsg)) + (MaxAddrPerMsg * maxNetAddressPayload(pver))
}

// NewMsgAddr returns a new empty addr message ready to have addresses
// appended.
func NewMsgAddr() *MsgAddr {
	return &MsgAddr{AddrList: make([]*NetAddress, 0, 32)}
}
