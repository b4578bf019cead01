// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2025 The libbitcoin developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"errors"
	"fmt"
)

// ErrBadStream is returned for any codec-level failure: a magic mismatch,
// a payload exceeding its bound, a checksum mismatch, or a payload too
// short or malformed for its message type. An error from the underlying
// reader while reading the header or payload bytes is returned by
// ReadMessage unchanged. Callers never see a partially decoded message.
var ErrBadStream = errors.New("wire: bad stream")

// MessageError describes a problem encountered while serializing or
// deserializing a message. It implements the error interface and wraps
// ErrBadStream so callers can use errors.Is(err, wire.ErrBadStream).
type MessageError struct {
	Func        string
	Description string
}

func (e *MessageError) Error() string {
	if e.Func != "" {
		return fmt.Sprintf("%s: %s", e.Func, e.Description)
	}
	return e.Description
}

func (e *MessageError) Unwrap() error {
	return ErrBadStream
}

func messageError(f, desc string) error {
	return &MessageError{Func: f, Description: desc}
}
