// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2025 The libbitcoin developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

// TestVarIntVectors checks the exact byte vectors from §8 of the spec.
func TestVarIntVectors(t *testing.T) {
	tests := []struct {
		val  uint64
		want []byte
	}{
		{0, []byte{0x00}},
		{252, []byte{0xfc}},
		{253, []byte{0xfd, 0xfd, 0x00}},
		{65535, []byte{0xfd, 0xff, 0xff}},
		{65536, []byte{0xfe, 0x00, 0x00, 0x01, 0x00}},
		{1 << 32, []byte{0xff, 0x00, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00}},
	}

	for _, tc := range tests {
		var buf bytes.Buffer
		require.NoError(t, WriteVarInt(&buf, 0, tc.val))
		require.Equal(t, tc.want, buf.Bytes())

		got, err := ReadVarInt(&buf, 0)
		require.NoError(t, err)
		require.Equal(t, tc.val, got)
	}
}

// TestVarIntNonMinimalAccepted verifies the decoder accepts an over-long
// encoding (spec §4.1: decoders MUST accept any length prefix).
func TestVarIntNonMinimalAccepted(t *testing.T) {
	buf := bytes.NewReader([]byte{0xfd, 0x10, 0x00})
	got, err := ReadVarInt(buf, 0)
	require.NoError(t, err)
	require.Equal(t, uint64(0x10), got)
}

// TestVarIntRoundTripProperty is P4: decode(encode(n)) == n for all n.
func TestVarIntRoundTripProperty(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		n := rapid.Uint64().Draw(rt, "n")

		var buf bytes.Buffer
		require.NoError(rt, WriteVarInt(&buf, 0, n))
		require.Equal(rt, VarIntSerializeSize(n), buf.Len())

		got, err := ReadVarInt(&buf, 0)
		require.NoError(rt, err)
		require.Equal(rt, n, got)
	})
}

func TestVarStringRoundTrip(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		s := rapid.StringN(0, 64, -1).Draw(rt, "s")

		var buf bytes.Buffer
		require.NoError(rt, WriteVarString(&buf, 0, s))
		got, err := ReadVarString(&buf, 0)
		require.NoError(rt, err)
		require.Equal(rt, s, got)
	})
}
