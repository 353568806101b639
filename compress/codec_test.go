// Copyright (c) 2025 epsio
// SPDX-License-Identifier: Apache-2.0
// This file is part of the epserde library.

package compress

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func testPayload() []byte {
	// Repetitive data so that real codecs actually shrink it.
	return bytes.Repeat([]byte("epserde artifact payload "), 512)
}

func TestCodecRoundtrip(t *testing.T) {
	tests := []struct {
		name      string
		algorithm Algorithm
		shrinks   bool
	}{
		{"none", AlgorithmNone, false},
		{"zstd", AlgorithmZstd, true},
		{"lz4", AlgorithmLZ4, true},
	}

	payload := testPayload()

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			codec, err := CreateCodec(test.algorithm)
			require.NoError(t, err)

			compressed, err := codec.Compress(payload)
			require.NoError(t, err)
			if test.shrinks {
				require.Less(t, len(compressed), len(payload))
			}

			restored, err := codec.Decompress(compressed)
			require.NoError(t, err)
			require.Equal(t, payload, restored)
		})
	}
}

func TestCodecEmptyInput(t *testing.T) {
	for _, algorithm := range []Algorithm{AlgorithmNone, AlgorithmZstd, AlgorithmLZ4} {
		codec, err := CreateCodec(algorithm)
		require.NoError(t, err)

		compressed, err := codec.Compress(nil)
		require.NoError(t, err)

		restored, err := codec.Decompress(compressed)
		require.NoError(t, err)
		require.Empty(t, restored)
	}
}

func TestCreateCodecUnknown(t *testing.T) {
	_, err := CreateCodec(Algorithm(99))
	require.Error(t, err)
}

func TestZstdRejectsCorruptData(t *testing.T) {
	codec := NewZstdCompressor()
	_, err := codec.Decompress([]byte("definitely not a zstd frame"))
	require.Error(t, err)
}
