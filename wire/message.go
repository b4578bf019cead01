// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2025 The libbitcoin developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"bytes"
	"fmt"
	"io"

	"github.com/lastcanal/libbitcoin/chaincfg/chainhash"
)

// Commands used in the bitcoin protocol this core speaks natively. Any
// other command round-trips as MsgUnknown.
const (
	CmdVersion = "version"
	CmdVerAck  = "verack"
	CmdPing    = "ping"
	CmdPong    = "pong"
	CmdGetAddr = "getaddr"
	CmdAddr    = "addr"
)

// Message is the interface every wire message type, native or opaque,
// implements so ReadMessage/WriteMessage can treat them uniformly.
type Message interface {
	BtcDecode(r io.Reader, pver uint32) error
	BtcEncode(w io.Writer, pver uint32) error
	Command() string
	MaxPayloadLength(pver uint32) uint32
}

// messageHeader defines the header structure prefixing every bitcoin
// protocol message on the wire.
type messageHeader struct {
	magic    BitcoinNet
	command  string
	length   uint32
	checksum [4]byte
}

func checksum(payload []byte) [4]byte {
	h := chainhash.DoubleHashB(payload)
	var cksum [4]byte
	copy(cksum[:], h[:4])
	return cksum
}

// makeEmptyMessage returns a Message of the concrete type matching command,
// or a MsgUnknown if the command is not natively modeled.
func makeEmptyMessage(command string) (Message, error) {
	switch command {
	case CmdVersion:
		return &MsgVersion{}, nil
	case CmdVerAck:
		return &MsgVerAck{}, nil
	case CmdPing:
		return &MsgPing{}, nil
	case CmdPong:
		return &MsgPong{}, nil
	case CmdGetAddr:
		return &MsgGetAddr{}, nil
	case CmdAddr:
		return &MsgAddr{}, nil
	default:
		return &MsgUnknown{cmd: command}, nil
	}
}

// WriteMessage encodes msg to w following the bitcoin message envelope:
// 4 byte magic, 12 byte zero-padded command, 4 byte length, 4 byte checksum,
// then the payload itself.
func WriteMessage(w io.Writer, msg Message, pver uint32, btcnet BitcoinNet) error {
	var bw bytes.Buffer
	if err := msg.BtcEncode(&bw, pver); err != nil {
		return err
	}
	payload := bw.Bytes()
	lenp := len(payload)

	cmd := msg.Command()
	if len(cmd) > CommandSize {
		return messageError("WriteMessage", fmt.Sprintf("command %q too long", cmd))
	}

	maxPayload := msg.MaxPayloadLength(pver)
	if uint32(lenp) > maxPayload {
		return messageError("WriteMessage", fmt.Sprintf(
			"message payload is too large - encoded %d bytes, but max "+
				"message payload is %d bytes", lenp, maxPayload))
	}

	var command [CommandSize]byte
	copy(command[:], cmd)

	hdr := messageHeader{
		magic:    btcnet,
		command:  string(command[:]),
		length:   uint32(lenp),
		checksum: checksum(payload),
	}

	if err := binarySerializer.PutUint32(w, uint32(hdr.magic)); err != nil {
		return err
	}
	if _, err := w.Write(command[:]); err != nil {
		return err
	}
	if err := binarySerializer.PutUint32(w, hdr.length); err != nil {
		return err
	}
	if _, err := w.Write(hdr.checksum[:]); err != nil {
		return err
	}
	_, err := w.Write(payload)
	return err
}

// ReadMessage reads, validates, and decodes the next bitcoin message from r,
// enforcing the network magic and checksum. It never returns a partially
// decoded message: every codec failure (magic, length bound, checksum,
// payload decode) wraps ErrBadStream, while an error from r itself is
// returned unchanged. An unrecognized command decodes into MsgUnknown
// rather than erroring.
func ReadMessage(r io.Reader, pver uint32, btcnet BitcoinNet) (Message, []byte, error) {
	var headerBytes [MessageHeaderSize]byte
	if _, err := io.ReadFull(r, headerBytes[:]); err != nil {
		return nil, nil, err
	}

	magic := BitcoinNet(littleEndian.Uint32(headerBytes[0:4]))
	if magic != btcnet {
		return nil, nil, messageError("ReadMessage",
			fmt.Sprintf("unexpected network magic %v, want %v", magic, btcnet))
	}

	command := commandString(headerBytes[4 : 4+CommandSize])
	length := littleEndian.Uint32(headerBytes[16:20])
	var wantChecksum [4]byte
	copy(wantChecksum[:], headerBytes[20:24])

	if length > MaxMessagePayload {
		return nil, nil, messageError("ReadMessage", fmt.Sprintf(
			"payload length %d exceeds max %d", length, MaxMessagePayload))
	}

	msg, err := makeEmptyMessage(command)
	if err != nil {
		return nil, nil, err
	}
	if length > msg.MaxPayloadLength(pver) {
		return nil, nil, messageError("ReadMessage", fmt.Sprintf(
			"payload length %d for command %q exceeds max %d",
			length, command, msg.MaxPayloadLength(pver)))
	}

	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, nil, err
	}

	gotChecksum := checksum(payload)
	if gotChecksum != wantChecksum {
		return nil, nil, messageError("ReadMessage", fmt.Sprintf(
			"payload checksum failed - header indicates %x, calculated %x",
			wantChecksum, gotChecksum))
	}

	if err := msg.BtcDecode(bytes.NewReader(payload), pver); err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrBadStream, err)
	}

	return msg, payload, nil
}

// commandString trims the trailing zero padding from a fixed 12-byte
// command field.
func commandString(b []byte) string {
	i := 0
	for i < len(b) && b[i] != 0 {
		i++
	}
	return string(b[:i])
}
