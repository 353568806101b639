// Copyright (c) 2025 epsio
// SPDX-License-Identifier: Apache-2.0
// This file is part of the epserde library.

// Package compress provides storage codecs for serialized artifacts.
//
// An ε-copy artifact is normally kept as a raw byte stream so that it can be
// memory-mapped and deserialized in place. For cold storage and network
// transport the raw stream can be wrapped with a general-purpose compressor;
// a compressed artifact must be decompressed into an aligned buffer before
// deserialization, so it serves the full-copy path and loses the
// mmap-in-place property until unpacked.
package compress

import "fmt"

// Algorithm identifies a compression algorithm.
type Algorithm uint8

const (
	AlgorithmNone Algorithm = iota
	AlgorithmZstd
	AlgorithmLZ4
)

// Compressor compresses a complete serialized artifact.
//
// The returned slice is newly allocated and owned by the caller (except for
// the no-op codec, which passes the input through); the input slice is never
// modified.
type Compressor interface {
	Compress(data []byte) ([]byte, error)
}

// Decompressor restores a previously compressed artifact. Input must have
// been produced by the matching Compressor; corrupted or mismatched data
// returns an error.
type Decompressor interface {
	Decompress(data []byte) ([]byte, error)
}

// Codec combines both compression and decompression capabilities.
type Codec interface {
	Compressor
	Decompressor
}

// CreateCodec is a factory function that creates a Codec for the specified
// algorithm.
func CreateCodec(algorithm Algorithm) (Codec, error) {
	switch algorithm {
	case AlgorithmNone:
		return NewNoOpCompressor(), nil
	case AlgorithmZstd:
		return NewZstdCompressor(), nil
	case AlgorithmLZ4:
		return NewLZ4Compressor(), nil
	default:
		return nil, fmt.Errorf("unknown compression algorithm: %d", algorithm)
	}
}
