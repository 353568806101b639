// Copyright (c) 2025 epsio
// SPDX-License-Identifier: Apache-2.0
// This file is part of the epserde library.

package epserde

import (
	"fmt"
	"math"
	"reflect"
	"unicode/utf8"
	"unsafe"

	"github.com/epsio/epserde/serdeutils"
)

// DeserializeEps performs ε-copy deserialization of data into a view of T
// using the default engine. See DeserializeEpsWith for the semantics.
func DeserializeEps[T any](data []byte) (*View[T], error) {
	return DeserializeEpsWith[T](Default(), data)
}

// DeserializeEpsWith performs ε-copy deserialization of data into a view of
// T: containers of zero-copy elements become slices aliasing data in place,
// strings alias their UTF-8 bytes, and only the spine of container headers
// and wrapper records is materialized.
//
// Both the structural and the representational hash in the envelope must
// match T exactly; alignment and size skew would silently corrupt the
// in-buffer views, so layout mismatch fails where full copy would still
// succeed. Every zero-copy access verifies the absolute buffer address, so
// data should come from an aligned allocation (Serde.Serialize, an
// AlignedBuffer, or a page-aligned file mapping).
func DeserializeEpsWith[T any](s *Serde, data []byte) (*View[T], error) {
	desc, err := s.typeCache.GetTypeDescriptor(reflect.TypeFor[T]())
	if err != nil {
		return nil, err
	}

	src := serdeutils.NewBufferSource(data)
	env, err := readEnvelope(src)
	if err != nil {
		return nil, err
	}
	if env.TypeHash != desc.TypeHash {
		return nil, fmt.Errorf("%w: artifact was written as %q", serdeutils.ErrTypeHash, env.TypeName)
	}
	if env.ReprHash != desc.ReprHash {
		return nil, fmt.Errorf("%w: artifact was written as %q", serdeutils.ErrReprHash, env.TypeName)
	}

	if err := src.Align(desc.MaxAlign); err != nil {
		return nil, err
	}

	view := &View[T]{data: data}

	if desc.IsZeroCopy() {
		// The whole root is a single zero-copy run; expose it in place.
		if desc.Size > src.Remaining() {
			return nil, serdeutils.ErrUnexpectedEOF
		}
		view.value = (*T)(src.PtrAt())
		return view, nil
	}

	spine := new(T)
	if err := s.deserializeEpsType(desc, reflect.ValueOf(spine).Elem(), src, 0); err != nil {
		return nil, err
	}
	view.value = spine
	return view, nil
}

// deserializeEpsType walks the same schedule as the serializer, materializing
// the spine and minting in-buffer references for the bulk data. Every
// alignment step both skips the serializer's padding and asserts that the
// absolute address is aligned; that check is what makes the unsafe
// reinterpretation below defensible.
func (s *Serde) deserializeEpsType(desc *TypeDescriptor, v reflect.Value, src *serdeutils.BufferSource, idt int) error {
	if desc.IsZeroCopy() {
		// Zero-copy fields of a deep-copy record are part of the spine: they
		// are copied out of the buffer into the materialized record.
		if err := src.Align(desc.MaxAlign); err != nil {
			return err
		}
		return src.ReadExact(rawBytes(v, desc.Size))
	}

	switch desc.SerdeType {
	case SequenceType:
		return s.deserializeEpsSequence(desc, v, src, idt)
	case StringType:
		return s.deserializeEpsString(v, src)
	case StructType:
		for i, field := range desc.Fields {
			if err := s.deserializeEpsType(field.Type, v.Field(i), src, idt+2); err != nil {
				return fmt.Errorf("failed decoding field %v: %w", field.Name, err)
			}
		}
		return nil
	case OptionType:
		return s.deserializeEpsOption(desc, v, src, idt)
	case UnionType:
		return s.deserializeEpsUnion(desc, v, src, idt)
	case WrapperType:
		return s.deserializeEpsType(desc.ElemDesc, v.Field(0), src, idt+2)
	case IterSeqType:
		return fmt.Errorf("cannot deserialize into an iterator sequence; use a slice of %v", desc.ElemDesc.TypeName)
	default:
		return fmt.Errorf("unknown type: %v", desc.TypeName)
	}
}

// deserializeEpsSequence returns a slice aliasing the buffer when the element
// type is zero-copy, and a materialized slice of element views otherwise.
func (s *Serde) deserializeEpsSequence(desc *TypeDescriptor, v reflect.Value, src *serdeutils.BufferSource, idt int) error {
	length, err := readLength(src)
	if err != nil {
		return err
	}

	elem := desc.ElemDesc
	if elem.IsZeroCopy() {
		if elem.Size > 0 && length > math.MaxInt/elem.Size {
			return serdeutils.ErrLengthOverflow
		}
		if err := src.Align(elem.MaxAlign); err != nil {
			return err
		}
		byteLen := length * elem.Size
		if byteLen > src.Remaining() {
			return serdeutils.ErrLengthOverflow
		}
		if length == 0 {
			v.Set(reflect.MakeSlice(desc.Type, 0, 0))
			return nil
		}
		v.Set(sliceAt(desc.Type, src.PtrAt(), length))
		return src.Skip(byteLen)
	}

	if elem.MinWire > 0 && length > math.MaxInt/elem.MinWire {
		return serdeutils.ErrLengthOverflow
	}
	if length*elem.MinWire > src.Remaining() {
		return serdeutils.ErrLengthOverflow
	}
	v.Set(reflect.MakeSlice(desc.Type, length, length))
	for i := 0; i < length; i++ {
		if err := s.deserializeEpsType(elem, v.Index(i), src, idt+2); err != nil {
			return err
		}
	}
	return nil
}

// deserializeEpsString validates the UTF-8 payload in place and returns a
// string header aliasing it.
func (s *Serde) deserializeEpsString(v reflect.Value, src *serdeutils.BufferSource) error {
	length, err := readLength(src)
	if err != nil {
		return err
	}
	if length > src.Remaining() {
		return serdeutils.ErrLengthOverflow
	}
	if length == 0 {
		v.SetString("")
		return nil
	}
	str := unsafe.String((*byte)(src.PtrAt()), length)
	if !utf8.ValidString(str) {
		return serdeutils.ErrInvalidUTF8
	}
	v.SetString(str)
	return src.Skip(length)
}

// deserializeEpsOption hands out a pointer into the buffer for a present
// zero-copy value, the wrapper shape around the element view otherwise.
func (s *Serde) deserializeEpsOption(desc *TypeDescriptor, v reflect.Value, src *serdeutils.BufferSource, idt int) error {
	var disc [1]byte
	if err := src.ReadExact(disc[:]); err != nil {
		return err
	}
	switch disc[0] {
	case 0:
		v.Set(reflect.Zero(desc.Type))
		return nil
	case 1:
	default:
		return fmt.Errorf("%w: option discriminant %d", ErrInvalidVariant, disc[0])
	}

	elem := desc.ElemDesc
	if elem.IsZeroCopy() {
		if err := src.Align(elem.MaxAlign); err != nil {
			return err
		}
		if elem.Size > src.Remaining() {
			return serdeutils.ErrUnexpectedEOF
		}
		v.Set(reflect.NewAt(desc.Type.Elem(), src.PtrAt()))
		return src.Skip(elem.Size)
	}

	v.Set(reflect.New(desc.Type.Elem()))
	return s.deserializeEpsType(elem, v.Elem(), src, idt+2)
}

// deserializeEpsUnion materializes the discriminant and the variant's view;
// the variant record itself is spine, its container fields alias the buffer.
func (s *Serde) deserializeEpsUnion(desc *TypeDescriptor, v reflect.Value, src *serdeutils.BufferSource, idt int) error {
	if err := skipPadding(src, desc.DiscWidth); err != nil {
		return err
	}
	variant, err := readDiscriminant(src, desc.DiscWidth)
	if err != nil {
		return err
	}
	if variant >= uint64(len(desc.Variants)) {
		return fmt.Errorf("%w: variant %d of %d", ErrInvalidVariant, variant, len(desc.Variants))
	}

	variantDesc := desc.Variants[variant]
	v.Field(0).SetUint(variant)

	data := reflect.New(variantDesc.Type.Type).Elem()
	if !isUnitVariant(variantDesc.Type) {
		if err := s.deserializeEpsType(variantDesc.Type, data, src, idt+2); err != nil {
			return fmt.Errorf("failed decoding union variant %v: %w", variantDesc.Name, err)
		}
	}
	v.Field(1).Set(data)
	return nil
}
