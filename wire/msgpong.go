// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2025 The libbitcoin developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import "io"

// MsgPong implements the Message interface and represents the reply to a
// MsgPing, echoing its nonce.
type MsgPong struct {
	Nonce uint64
}

func (msg *MsgPong) BtcDecode(r io.Reader, pver uint32) error {
	nonce, err := binarySerializer.Uint64(r)
	if err != nil {
		return err
	}
	msg.Nonce = nonce
	return nil
}

func (msg *MsgPong) BtcEncode(w io.Writer, pver uint32) error {
	return binarySerializer.PutUint64(w, msg.Nonce)
}

func (msg *MsgPong) Command() string                     { return CmdPong }
func (msg *MsgPong) MaxPayloadLength(pver uint32) uint32 { return 8 }

// NewMsgPong returns a new pong message echoing nonce.
func NewMsgPong(nonce uint64) *MsgPong { return &MsgPong{Nonce: nonce} }
