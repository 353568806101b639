// Copyright (c) 2025 epsio
// SPDX-License-Identifier: Apache-2.0
// This file is part of the epserde library.

package compress

// ZstdCompressor favors compression ratio over speed; the right choice for
// archival and bandwidth-limited transport of large artifacts.
//
// Two implementations exist behind the cgo_zstd build tag: the default
// pure-Go encoder (klauspost/compress) and a cgo binding to libzstd
// (valyala/gozstd) for workloads where encode throughput matters more than a
// C dependency.
type ZstdCompressor struct{}

var _ Codec = (*ZstdCompressor)(nil)

// NewZstdCompressor creates a new Zstd compressor with default settings.
func NewZstdCompressor() ZstdCompressor {
	return ZstdCompressor{}
}
