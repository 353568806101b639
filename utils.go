// Copyright (c) 2025 epsio
// SPDX-License-Identifier: Apache-2.0
// This file is part of the epserde library.

package epserde

import (
	"encoding/binary"
	"reflect"
	"unsafe"
)

func nativeUint16(b []byte) uint16 {
	return binary.NativeEndian.Uint16(b)
}

func nativeUint32(b []byte) uint32 {
	return binary.NativeEndian.Uint32(b)
}

func nativeUint64(b []byte) uint64 {
	return binary.NativeEndian.Uint64(b)
}

func getPtr(v reflect.Value) reflect.Value {
	if v.CanAddr() {
		return v.Addr()
	}

	ptr := reflect.New(v.Type())
	ptr.Elem().Set(v)

	return ptr
}

// rawBytes exposes the in-memory image of a zero-copy value. The value is
// made addressable first; size is the type's full in-memory size including
// interior padding, which is part of the wire image.
func rawBytes(v reflect.Value, size int) []byte {
	ptr := getPtr(v)
	return unsafe.Slice((*byte)(ptr.UnsafePointer()), size)
}

// sliceDataBytes exposes the backing memory of a slice of zero-copy elements
// as raw bytes.
func sliceDataBytes(v reflect.Value, elemSize int) []byte {
	n := v.Len()
	if n == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(v.UnsafePointer()), n*elemSize)
}

// sliceHeader mirrors the runtime slice layout. Used to mint slice views that
// alias a deserialization buffer.
type sliceHeader struct {
	data unsafe.Pointer
	len  int
	cap  int
}

// sliceAt builds a slice value of the given slice type whose backing array is
// the n elements starting at ptr. The caller must keep the memory alive.
func sliceAt(sliceType reflect.Type, ptr unsafe.Pointer, n int) reflect.Value {
	hdr := sliceHeader{
		data: ptr,
		len:  n,
		cap:  n,
	}
	return reflect.NewAt(sliceType, unsafe.Pointer(&hdr)).Elem()
}
