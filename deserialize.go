// Copyright (c) 2025 epsio
// SPDX-License-Identifier: Apache-2.0
// This file is part of the epserde library.

package epserde

import (
	"fmt"
	"io"
	"math"
	"reflect"
	"unicode/utf8"

	"github.com/epsio/epserde/serdeutils"
)

// Deserialize rebuilds an owned value of the serialized type from data. The
// target must be a non-nil pointer to the root type. The envelope is
// validated first: magic, major version and the structural type hash must
// match. The representational hash is deliberately not enforced on this path,
// so an artifact with the same logical type but different layout padding is
// still readable by full copy (it is only ε-copy that must refuse it).
//
// The full-copy path has no alignment requirement on data; it works on any
// byte slice.
func (s *Serde) Deserialize(target any, data []byte) error {
	return s.deserializeOn(target, serdeutils.NewBufferSource(data))
}

// DeserializeStream rebuilds an owned value of the serialized type from a
// positioned source over reader. Padding is skipped arithmetically; no
// seeking is performed.
func (s *Serde) DeserializeStream(target any, reader io.Reader) error {
	return s.deserializeOn(target, serdeutils.NewStreamSource(reader))
}

func (s *Serde) deserializeOn(target any, src serdeutils.Source) error {
	targetValue := reflect.ValueOf(target)
	if targetValue.Kind() != reflect.Ptr || targetValue.IsNil() {
		return fmt.Errorf("deserialization target must be a non-nil pointer, got %T", target)
	}

	desc, err := s.typeCache.GetTypeDescriptor(targetValue.Type().Elem())
	if err != nil {
		return err
	}

	env, err := readEnvelope(src)
	if err != nil {
		return err
	}
	if env.TypeHash != desc.TypeHash {
		return fmt.Errorf("%w: artifact was written as %q", serdeutils.ErrTypeHash, env.TypeName)
	}

	if err := skipPadding(src, desc.MaxAlign); err != nil {
		return err
	}

	return s.deserializeType(desc, targetValue.Elem(), src, 0)
}

// deserializeType is the core recursive dispatcher of the full-copy path. It
// walks the same schedule as the serializer, skipping the padding the
// serializer inserted and allocating owned containers.
func (s *Serde) deserializeType(desc *TypeDescriptor, v reflect.Value, src serdeutils.Source, idt int) error {
	if desc.IsZeroCopy() {
		if err := skipPadding(src, desc.MaxAlign); err != nil {
			return err
		}
		return src.ReadExact(rawBytes(v, desc.Size))
	}

	switch desc.SerdeType {
	case SequenceType:
		return s.deserializeSequence(desc, v, src, idt)
	case StringType:
		return s.deserializeString(v, src)
	case StructType:
		for i, field := range desc.Fields {
			if err := s.deserializeType(field.Type, v.Field(i), src, idt+2); err != nil {
				return fmt.Errorf("failed decoding field %v: %w", field.Name, err)
			}
		}
		return nil
	case OptionType:
		return s.deserializeOption(desc, v, src, idt)
	case UnionType:
		return s.deserializeUnion(desc, v, src, idt)
	case WrapperType:
		return s.deserializeType(desc.ElemDesc, v.Field(0), src, idt+2)
	case IterSeqType:
		return fmt.Errorf("cannot deserialize into an iterator sequence; use a slice of %v", desc.ElemDesc.TypeName)
	default:
		return fmt.Errorf("unknown type: %v", desc.TypeName)
	}
}

func (s *Serde) deserializeSequence(desc *TypeDescriptor, v reflect.Value, src serdeutils.Source, idt int) error {
	length, err := readLength(src)
	if err != nil {
		return err
	}

	elem := desc.ElemDesc
	if elem.IsZeroCopy() {
		if elem.Size > 0 && length > math.MaxInt/elem.Size {
			return serdeutils.ErrLengthOverflow
		}
		if err := skipPadding(src, elem.MaxAlign); err != nil {
			return err
		}
		byteLen := length * elem.Size
		if byteLen > src.Remaining() {
			return serdeutils.ErrLengthOverflow
		}
		v.Set(reflect.MakeSlice(desc.Type, length, length))
		if length == 0 {
			return nil
		}
		return src.ReadExact(sliceDataBytes(v, elem.Size))
	}

	if elem.MinWire > 0 && length > math.MaxInt/elem.MinWire {
		return serdeutils.ErrLengthOverflow
	}
	if length*elem.MinWire > src.Remaining() {
		return serdeutils.ErrLengthOverflow
	}
	v.Set(reflect.MakeSlice(desc.Type, length, length))
	for i := 0; i < length; i++ {
		if err := s.deserializeType(elem, v.Index(i), src, idt+2); err != nil {
			return err
		}
	}
	return nil
}

func (s *Serde) deserializeString(v reflect.Value, src serdeutils.Source) error {
	length, err := readLength(src)
	if err != nil {
		return err
	}
	if length > src.Remaining() {
		return serdeutils.ErrLengthOverflow
	}
	buf := make([]byte, length)
	if err := src.ReadExact(buf); err != nil {
		return err
	}
	if !utf8.Valid(buf) {
		return serdeutils.ErrInvalidUTF8
	}
	v.SetString(string(buf))
	return nil
}

func (s *Serde) deserializeOption(desc *TypeDescriptor, v reflect.Value, src serdeutils.Source, idt int) error {
	var disc [1]byte
	if err := src.ReadExact(disc[:]); err != nil {
		return err
	}
	switch disc[0] {
	case 0:
		v.Set(reflect.Zero(desc.Type))
		return nil
	case 1:
		v.Set(reflect.New(desc.Type.Elem()))
		return s.deserializeType(desc.ElemDesc, v.Elem(), src, idt+2)
	default:
		return fmt.Errorf("%w: option discriminant %d", ErrInvalidVariant, disc[0])
	}
}

func (s *Serde) deserializeUnion(desc *TypeDescriptor, v reflect.Value, src serdeutils.Source, idt int) error {
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
		if err := s.deserializeType(variantDesc.Type, data, src, idt+2); err != nil {
			return fmt.Errorf("failed decoding union variant %v: %w", variantDesc.Name, err)
		}
	}
	v.Field(1).Set(data)
	return nil
}

// readLength reads a sequence length word after skipping its alignment
// padding, rejecting values that cannot fit an int.
func readLength(src serdeutils.Source) (int, error) {
	if err := skipPadding(src, lengthWordSize); err != nil {
		return 0, err
	}
	var buf [8]byte
	if err := src.ReadExact(buf[:]); err != nil {
		return 0, err
	}
	length := nativeUint64(buf[:])
	if length > math.MaxInt {
		return 0, serdeutils.ErrLengthOverflow
	}
	return int(length), nil
}

func readDiscriminant(src serdeutils.Source, width int) (uint64, error) {
	var buf [8]byte
	if err := src.ReadExact(buf[:width]); err != nil {
		return 0, err
	}
	switch width {
	case 1:
		return uint64(buf[0]), nil
	case 2:
		return uint64(nativeUint16(buf[:2])), nil
	case 4:
		return uint64(nativeUint32(buf[:4])), nil
	default:
		return nativeUint64(buf[:8]), nil
	}
}
