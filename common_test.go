// Copyright (c) 2025 epsio
// SPDX-License-Identifier: Apache-2.0
// This file is part of the epserde library.

package epserde_test

import (
	"encoding/binary"
	"unsafe"

	. "github.com/epsio/epserde"
)

func putNativeUint64(b []byte, v uint64) {
	binary.NativeEndian.PutUint64(b, v)
}

// Point is a user record declared zero-copy via the marker interface.
type Point struct {
	X uint
	Y uint
}

func (Point) ZeroCopyType() {}

// Mixed is declared zero-copy but has a deep-copy field; building its
// descriptor must fail.
type Mixed struct {
	A uint64
	B []uint32
}

func (Mixed) ZeroCopyType() {}

// Plain has only zero-copy fields but no declaration; it classifies as
// deep-copy with the mismatch flag set.
type Plain struct {
	A uint64
	B uint32
}

// Inner and Outer mirror the nested-generics shape: sequences of different
// primitive widths around a scalar field.
type Inner struct {
	A []uint16
	B []int32
}

type Outer struct {
	A    []uint
	B    Inner
	Test int
}

// DataVariants describes a three-variant sum: a unit variant, a record
// variant and a payload variant.
type DataVariants struct {
	A struct{}
	B Point
	C []int32
}

type Data = Union[DataVariants]

// DataVariantsUint is DataVariants with the payload element width changed;
// artifacts of one must not deserialize into the other.
type DataVariantsUint struct {
	A struct{}
	B Point
	C []uint
}

type DataUint = Union[DataVariantsUint]

// aliasesBuffer reports whether ptr points into buf's backing memory.
func aliasesBuffer(buf []byte, ptr unsafe.Pointer) bool {
	if len(buf) == 0 {
		return false
	}
	start := uintptr(unsafe.Pointer(&buf[0]))
	return uintptr(ptr) >= start && uintptr(ptr) < start+uintptr(len(buf))
}
