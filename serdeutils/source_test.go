// Copyright (c) 2025 epsio
// SPDX-License-Identifier: Apache-2.0
// This file is part of the epserde library.

package serdeutils

import (
	"bytes"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/require"
)

func bufferAddr(b []byte) uintptr {
	return uintptr(unsafe.Pointer(&b[0]))
}

func TestBufferSourceReadExact(t *testing.T) {
	src := NewBufferSource([]byte{1, 2, 3, 4})

	buf := make([]byte, 3)
	require.NoError(t, src.ReadExact(buf))
	require.Equal(t, []byte{1, 2, 3}, buf)
	require.Equal(t, 3, src.Pos())
	require.Equal(t, 1, src.Remaining())

	require.ErrorIs(t, src.ReadExact(buf), ErrUnexpectedEOF)
}

func TestBufferSourceAlign(t *testing.T) {
	buf := NewAlignedBuffer(8)
	_, err := buf.Write(make([]byte, 32))
	require.NoError(t, err)

	src := buf.Source()
	require.NoError(t, src.Skip(3))
	require.NoError(t, src.Align(8))
	require.Equal(t, 8, src.Pos())
}

func TestBufferSourceAlignVerifiesAddress(t *testing.T) {
	buf := NewAlignedBuffer(8)
	_, err := buf.Write(make([]byte, 32))
	require.NoError(t, err)

	// An odd offset into an aligned buffer puts the cursor position in sync
	// with an unaligned address.
	src := NewBufferSource(buf.Bytes()[1:])
	require.ErrorIs(t, src.Align(8), ErrAlignment)
}

func TestStreamSourceSkipAndAlign(t *testing.T) {
	src := NewStreamSource(bytes.NewReader(make([]byte, 64)))

	require.NoError(t, src.Skip(5))
	require.Equal(t, 5, src.Pos())
	require.NoError(t, src.Align(8))
	require.Equal(t, 8, src.Pos())

	buf := make([]byte, 64)
	require.ErrorIs(t, src.ReadExact(buf), ErrUnexpectedEOF)
}

func TestAlignedBufferAlignment(t *testing.T) {
	for _, align := range []int{8, 16, 64} {
		buf := NewAlignedBuffer(align)
		_, err := buf.Write([]byte{1})
		require.NoError(t, err)
		require.Equal(t, align, buf.Alignment())
		require.Zero(t, bufferAddr(buf.Bytes())&uintptr(align-1))
	}
}

func TestAlignedBufferGrowKeepsAlignment(t *testing.T) {
	buf := NewAlignedBuffer(16)
	payload := bytes.Repeat([]byte{0xab}, 37)
	for i := 0; i < 20; i++ {
		_, err := buf.Write(payload)
		require.NoError(t, err)
	}

	require.Equal(t, 20*37, buf.Len())
	require.Zero(t, bufferAddr(buf.Bytes())&uintptr(15))
	require.Equal(t, payload, buf.Bytes()[:37])
}

func TestAlignedBufferRejectsBadAlignment(t *testing.T) {
	require.Panics(t, func() {
		NewAlignedBuffer(12)
	})
}
