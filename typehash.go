// Copyright (c) 2025 epsio
// SPDX-License-Identifier: Apache-2.0
// This file is part of the epserde library.

package epserde

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
)

// Type identity is a pair of xxhash64 digests computed per descriptor and
// folded bottom-up: a parent digests its own kind tag and names, then the
// finished 64-bit hashes of its children. Children are cached descriptors, so
// each type is hashed once per type cache, and the result is stable across
// runs and producers (seed is fixed at 0).
//
// The structural hash identifies the logical shape: kind tags, type names,
// variant and field names, field order, array lengths. The representational
// hash identifies the byte-level layout: size and alignment of every
// zero-copy node plus the length-word width of the containers. Two hashes let
// a reader distinguish "same type, different layout" (full-copy still safe)
// from "different type" (nothing is safe).

func computeTypeHashes(desc *TypeDescriptor) {
	th := xxhash.New()
	rh := xxhash.New()

	switch desc.SerdeType {
	case PrimitiveType:
		hashString(th, "primitive")
		hashString(th, desc.PrimName)
		hashUint(rh, uint64(desc.Size))
		hashUint(rh, uint64(desc.MaxAlign))

	case ArrayType:
		hashString(th, "array")
		hashUint(th, uint64(desc.Len))
		hashUint(th, desc.ElemDesc.TypeHash)
		hashUint(rh, uint64(desc.Size))
		hashUint(rh, uint64(desc.MaxAlign))
		hashUint(rh, desc.ElemDesc.ReprHash)

	case SequenceType, IterSeqType:
		hashString(th, "sequence")
		hashUint(th, desc.ElemDesc.TypeHash)
		hashUint(rh, lengthWordSize)
		hashUint(rh, desc.ElemDesc.ReprHash)

	case StringType:
		hashString(th, "string")
		hashUint(rh, lengthWordSize)
		hashUint(rh, 1)

	case StructType:
		hashString(th, "struct")
		hashString(th, desc.Type.Name())
		for _, field := range desc.Fields {
			hashString(th, field.Name)
			hashUint(th, field.Type.TypeHash)
		}
		if desc.IsZeroCopy() {
			hashUint(rh, uint64(desc.Size))
			hashUint(rh, uint64(desc.MaxAlign))
		}
		for _, field := range desc.Fields {
			hashUint(rh, field.Type.ReprHash)
		}

	case OptionType:
		hashString(th, "option")
		hashUint(th, desc.ElemDesc.TypeHash)
		hashUint(rh, 1)
		hashUint(rh, desc.ElemDesc.ReprHash)

	case UnionType:
		hashString(th, "union")
		hashString(th, unionName(desc.Type.Name()))
		for _, variant := range desc.Variants {
			hashString(th, variant.Name)
			hashUint(th, variant.Type.TypeHash)
		}
		hashUint(rh, uint64(desc.DiscWidth))
		for _, variant := range desc.Variants {
			hashUint(rh, variant.Type.ReprHash)
		}

	case WrapperType:
		hashString(th, "wrapper")
		hashUint(th, desc.ElemDesc.TypeHash)
		hashUint(rh, desc.ElemDesc.ReprHash)
	}

	desc.TypeHash = th.Sum64()
	desc.ReprHash = rh.Sum64()
}

func hashString(h *xxhash.Digest, s string) {
	_, _ = h.WriteString(s)
	_, _ = h.Write([]byte{0})
}

func hashUint(h *xxhash.Digest, v uint64) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	_, _ = h.Write(buf[:])
}

// unionName strips the generic instantiation from a Union type name so that
// the union's own identity comes from its variant list, not from the fully
// qualified descriptor type string.
func unionName(name string) string {
	for i := 0; i < len(name); i++ {
		if name[i] == '[' {
			return name[:i]
		}
	}
	return name
}
