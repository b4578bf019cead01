// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2025 The libbitcoin developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import "io"

// MsgPing implements the Message interface and represents a keepalive
// probe carrying a nonce the peer echoes back in MsgPong.
type MsgPing struct {
	Nonce uint64
}

func (msg *MsgPing) BtcDecode(r io.Reader, pver uint32) error {
	nonce, err := binarySerializer.Uint64(r)
	if err != nil {
		return err
	}
	msg.Nonce = nonce
	return nil
}

func (msg *MsgPing) BtcEncode(w io.Writer, pver uint32) error {
	return binarySerializer.PutUint64(w, msg.Nonce)
}

func (msg *MsgPing) Command() string                     { return CmdPing }
func (msg *MsgPing) MaxPayloadLength(pver uint32) uint32 { return 8 }

// NewMsgPing returns a new ping message carrying nonce.
func NewMsgPing(nonce uint64) *MsgPing { return &MsgPing{Nonce: nonce} }
