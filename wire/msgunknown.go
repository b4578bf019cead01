// Copyright (c) 2025 The libbitcoin developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import "io"

// MsgUnknown round-trips any command this codec does not natively model, so
// ReadMessage/WriteMessage never silently drop a well-formed message (§6).
// Subscribers that care about a specific unmodeled command can still inspect
// Payload themselves.
type MsgUnknown struct {
	cmd     string
	Payload []byte
}

func (msg *MsgUnknown) BtcDecode(r io.Reader, pver uint32) error {
	payload, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	msg.Payload = payload
	return nil
}

func (msg *MsgUnknown) BtcEncode(w io.Writer, pver uint32) error {
	_, err := w.Write(msg.Payload)
	return err
}

func (msg *MsgUnknown) Command() string { return msg.cmd }

func (msg *MsgUnknown) MaxPayloadLength(pver uint32) uint32 { return MaxMessagePayload }

// NewMsgUnknown wraps an opaque command/payload pair for relay or test
// construction.
func NewMsgUnknown(cmd string, payload []byte) *MsgUnknown {
	return &MsgUnknown{cmd: cmd, Payload: payload}
}
