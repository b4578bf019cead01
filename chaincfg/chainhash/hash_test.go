// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2025 The libbitcoin developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chainhash

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHashSetBytesLength(t *testing.T) {
	var h Hash
	require.Error(t, h.SetBytes([]byte{1, 2, 3}))
	require.NoError(t, h.SetBytes(make([]byte, HashSize)))
}

func TestHashIsEqual(t *testing.T) {
	a, err := NewHash(bytesOf(1))
	require.NoError(t, err)
	b, err := NewHash(bytesOf(1))
	require.NoError(t, err)
	c, err := NewHash(bytesOf(2))
	require.NoError(t, err)

	require.True(t, a.IsEqual(b))
	require.False(t, a.IsEqual(c))
	require.False(t, a.IsEqual(nil))

	var nilHash *Hash
	require.True(t, nilHash.IsEqual(nil))
}

func TestDoubleHashDeterministic(t *testing.T) {
	a := DoubleHashB([]byte("libbitcoin"))
	b := DoubleHashB([]byte("libbitcoin"))
	require.Equal(t, a, b)
	require.Len(t, a, HashSize)
}

func bytesOf(fill byte) []byte {
	b := make([]byte, HashSize)
	for i := range b {
		b[i] = fill
	}
	return b
}
