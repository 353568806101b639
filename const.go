// Copyright (c) 2025 epsio
// SPDX-License-Identifier: Apache-2.0
// This file is part of the epserde library.

package epserde

import "encoding/binary"

// magicBytes is the 8-byte tag at offset 0 of every serialized artifact. The
// magic is read back as a native-endian uint64, so a consumer with the wrong
// endianness rejects the artifact up front.
var magicBytes = [8]byte{'e', 'p', 's', 'e', 'r', 'd', 'e', ' '}

// Magic returns the magic number as seen by this architecture.
func Magic() uint64 {
	return binary.NativeEndian.Uint64(magicBytes[:])
}

const (
	// VersionMajor is bumped on incompatible format changes.
	VersionMajor uint16 = 1
	// VersionMinor is bumped on compatible format changes.
	VersionMinor uint16 = 0
)

// lengthWordSize is the on-wire size of every sequence length word.
const lengthWordSize = 8

// modulePath is used to recognize the engine's own generic carrier types.
const modulePath = "github.com/epsio/epserde"

// maxTypeNameLen bounds the envelope's diagnostic type name.
const maxTypeNameLen = 1 << 16

