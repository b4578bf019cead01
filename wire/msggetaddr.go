// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2025 The libbitcoin developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import "io"

// MsgGetAddr implements the Message interface and represents a request for
// the peer to send known addresses via MsgAddr. It has no payload.
type MsgGetAddr struct{}

func (msg *MsgGetAddr) BtcDecode(r io.Reader, pver uint32) error { return nil }
func (msg *MsgGetAddr) BtcEncode(w io.Writer, pver uint32) error { return nil }
func (msg *MsgGetAddr) Command() string                          { return CmdGetAddr }
func (msg *MsgGetAddr) MaxPayloadLength(pver uint32) uint32      { return 0 }

// NewMsgGetAddr returns a new getaddr message.
func NewMsgGetAddr() *MsgGetAddr { return &MsgGetAddr{} }
