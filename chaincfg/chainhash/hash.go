// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2025 The libbitcoin developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package chainhash provides the 32-byte hash type used by the wire codec
// for message checksums.
package chainhash

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strconv"
)

// HashSize is the number of bytes in a hash.
const HashSize = 32

// MaxHashStringSize is the maximum length of a Hash hash string.
const MaxHashStringSize = HashSize * 2

// ErrHashStrSize describes an error that indicates the caller specified a
// hash string that has too many characters.
var ErrHashStrSize = errors.New("max hash string length is " + strconv.Itoa(MaxHashStringSize) + " bytes")

// Hash is a 32-byte, wire-order array used to hold the result of a
// double-SHA-256 checksum or message hash. It is kept in the natural
// little-endian byte order produced by the hash function; callers that
// want the reversed, big-endian display order used by block explorers
// should use String().
type Hash [HashSize]byte

// String returns the Hash as the reversed, hex-encoded string conventionally
// used to display bitcoin hashes.
func (h Hash) String() string {
	var reversed Hash
	for i, b := range h[:] {
		reversed[HashSize-1-i] = b
	}
	return hex.EncodeToString(reversed[:])
}

// CloneBytes returns a copy of the bytes which represent the hash as a byte
// slice.
func (h *Hash) CloneBytes() []byte {
	newHash := make([]byte, HashSize)
	copy(newHash, h[:])
	return newHash
}

// SetBytes sets the bytes which represent the hash. An error is returned if
// the number of bytes passed in is not HashSize.
func (h *Hash) SetBytes(newHash []byte) error {
	if len(newHash) != HashSize {
		return errors.New("invalid hash length")
	}
	copy(h[:], newHash)
	return nil
}

// IsEqual returns true if target is the same as the hash.
func (h *Hash) IsEqual(target *Hash) bool {
	if h == nil && target == nil {
		return true
	}
	if h == nil || target == nil {
		return false
	}
	return *h == *target
}

// NewHash returns a new Hash from a byte slice.
func NewHash(newHash []byte) (*Hash, error) {
	var sh Hash
	if err := sh.SetBytes(newHash); err != nil {
		return nil, err
	}
	return &sh, nil
}

// DoubleHashRaw calculates SHA256(SHA256(b)) and returns it as a Hash.
func DoubleHashRaw(b []byte) Hash {
	first := sha256.Sum256(b)
	return Hash(sha256.Sum256(first[:]))
}

// DoubleHashB calculates SHA256(SHA256(b)) and returns the resulting bytes.
func DoubleHashB(b []byte) []byte {
	h := DoubleHashRaw(b)
	return h[:]
}
