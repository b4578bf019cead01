// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2025 The libbitcoin developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"encoding/binary"
	"fmt"
	"io"
	"time"
)

// MaxVarIntPayload is the maximum payload size for a variable length integer.
const MaxVarIntPayload = 9

// MaxMessagePayload is the maximum bytes a message payload can be.
const MaxMessagePayload = (1024 * 1024 * 32) // 32MB

// CommandSize is the fixed size in bytes of a message command field, as
// specified in the bitcoin protocol.
const CommandSize = 12

// MessageHeaderSize is the number of bytes in a bitcoin message header:
// 4 byte magic, 12 byte command, 4 byte payload length, 4 byte checksum.
const MessageHeaderSize = 24

var littleEndian = binary.LittleEndian

// binaryFreeList is a free list of byte slices (specifically byte slices of
// size 8) that are used to reduce the number of allocations needed when
// serializing and deserializing primitive integer values.
type binaryFreeList chan []byte

func (l binaryFreeList) Borrow() []byte {
	var buf []byte
	select {
	case buf = <-l:
	default:
		buf = make([]byte, 8)
	}
	return buf[:8]
}

func (l binaryFreeList) Return(buf []byte) {
	select {
	case l <- buf:
	default:
	}
}

const binaryFreeListMaxItems = 1024

var binarySerializer binaryFreeList = make(chan []byte, binaryFreeListMaxItems)

func (l binaryFreeList) Uint8(r io.Reader) (uint8, error) {
	buf := l.Borrow()[:1]
	defer l.Return(buf)
	if _, err := io.ReadFull(r, buf); err != nil {
		return 0, err
	}
	return buf[0], nil
}

func (l binaryFreeList) Uint16(r io.Reader) (uint16, error) {
	buf := l.Borrow()[:2]
	defer l.Return(buf)
	if _, err := io.ReadFull(r, buf); err != nil {
		return 0, err
	}
	return littleEndian.Uint16(buf), nil
}

func (l binaryFreeList) Uint32(r io.Reader) (uint32, error) {
	buf := l.Borrow()[:4]
	defer l.Return(buf)
	if _, err := io.ReadFull(r, buf); err != nil {
		return 0, err
	}
	return littleEndian.Uint32(buf), nil
}

func (l binaryFreeList) Uint64(r io.Reader) (uint64, error) {
	buf := l.Borrow()[:8]
	defer l.Return(buf)
	if _, err := io.ReadFull(r, buf); err != nil {
		return 0, err
	}
	return littleEndian.Uint64(buf), nil
}

func (l binaryFreeList) PutUint8(w io.Writer, val uint8) error {
	buf := l.Borrow()[:1]
	defer l.Return(buf)
	buf[0] = val
	_, err := w.Write(buf)
	return err
}

func (l binaryFreeList) PutUint16(w io.Writer, val uint16) error {
	buf := l.Borrow()[:2]
	defer l.Return(buf)
	littleEndian.PutUint16(buf, val)
	_, err := w.Write(buf)
	return err
}

func (l binaryFreeList) PutUint32(w io.Writer, val uint32) error {
	buf := l.Borrow()[:4]
	defer l.Return(buf)
	littleEndian.PutUint32(buf, val)
	_, err := w.Write(buf)
	return err
}

func (l binaryFreeList) PutUint64(w io.Writer, val uint64) error {
	buf := l.Borrow()[:8]
	defer l.Return(buf)
	littleEndian.PutUint64(buf, val)
	_, err := w.Write(buf)
	return err
}

// ReadVarInt reads a variable length integer from r and returns it as a
// uint64. Unlike WriteVarInt, it accepts any length prefix including
// non-minimal encodings so that it never rejects a well-formed peer's
// message; only the encoder is required to emit the minimal form (P4).
func ReadVarInt(r io.Reader, pver uint32) (uint64, error) {
	discriminant, err := binarySerializer.Uint8(r)
	if err != nil {
		return 0, err
	}

	var rv uint64
	switch discriminant {
	case 0xff:
		sv, err := binarySerializer.Uint64(r)
		if err != nil {
			return 0, err
		}
		rv = sv

	case 0xfe:
		sv, err := binarySerializer.Uint32(r)
		if err != nil {
			return 0, err
		}
		rv = uint64(sv)

	case 0xfd:
		sv, err := binarySerializer.Uint16(r)
		if err != nil {
			return 0, err
		}
		rv = uint64(sv)

	default:
		rv = uint64(discriminant)
	}

	return rv, nil
}

// WriteVarInt serializes val to w using the minimal possible number of
// bytes per the bitcoin variable length integer encoding.
func WriteVarInt(w io.Writer, pver uint32, val uint64) error {
	if val < 0xfd {
		return binarySerializer.PutUint8(w, uint8(val))
	}

	if val <= uint64(^uint16(0)) {
		if err := binarySerializer.PutUint8(w, 0xfd); err != nil {
			return err
		}
		return binarySerializer.PutUint16(w, uint16(val))
	}

	if val <= uint64(^uint32(0)) {
		if err := binarySerializer.PutUint8(w, 0xfe); err != nil {
			return err
		}
		return binarySerializer.PutUint32(w, uint32(val))
	}

	if err := binarySerializer.PutUint8(w, 0xff); err != nil {
		return err
	}
	return binarySerializer.PutUint64(w, val)
}

// VarIntSerializeSize returns the number of bytes it would take to serialize
// val as a variable length integer.
func VarIntSerializeSize(val uint64) int {
	if val < 0xfd {
		return 1
	}
	if val <= uint64(^uint16(0)) {
		return 3
	}
	if val <= uint64(^uint32(0)) {
		return 5
	}
	return 9
}

// ReadVarString reads a variable length string from r and returns it as a Go
// string. A variable length string is encoded as a variable length integer
// containing the length of the string followed by the bytes that represent
// the string itself.
func ReadVarString(r io.Reader, pver uint32) (string, error) {
	numBytes, err := ReadVarInt(r, pver)
	if err != nil {
		return "", err
	}
	if numBytes > MaxMessagePayload {
		return "", messageError("ReadVarString", fmt.Sprintf(
			"variable length string is too long [%d, max %d]",
			numBytes, MaxMessagePayload))
	}

	buf := make([]byte, numBytes)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

// WriteVarString serializes str to w as a varint-length-prefixed byte
// string.
func WriteVarString(w io.Writer, pver uint32, str string) error {
	if err := WriteVarInt(w, pver, uint64(len(str))); err != nil {
		return err
	}
	_, err := io.WriteString(w, str)
	return err
}

// ReadVarBytes reads a variable length byte array from r and returns it,
// erroring if the purported length exceeds maxAllowed.
func ReadVarBytes(r io.Reader, pver uint32, maxAllowed uint32, fieldName string) ([]byte, error) {
	numBytes, err := ReadVarInt(r, pver)
	if err != nil {
		return nil, err
	}
	if numBytes > uint64(maxAllowed) {
		return nil, messageError("ReadVarBytes", fmt.Sprintf(
			"%s is larger than the max allowed size [count %d, max %d]",
			fieldName, numBytes, maxAllowed))
	}

	return readElementBytes(r, numBytes)
}

func readElementBytes(r io.Reader, numBytes uint64) ([]byte, error) {
	buf := make([]byte, numBytes)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// WriteVarBytes serializes a variable length byte array to w as a varint
// length prefix followed by the raw bytes.
func WriteVarBytes(w io.Writer, pver uint32, bs []byte) error {
	if err := WriteVarInt(w, pver, uint64(len(bs))); err != nil {
		return err
	}
	_, err := w.Write(bs)
	return err
}

// timeToUint32 encodes a time.Time as the unix-epoch uint32 used by the
// NetAddress wire encoding. (The version message's own timestamp is a
// 64-bit field.)
func timeToUint32(t time.Time) uint32 {
	return uint32(t.Unix())
}

// uint32ToTime decodes a unix-epoch uint32 into a time.Time in UTC.
func uint32ToTime(v uint32) time.Time {
	return time.Unix(int64(v), 0).UTC()
}
