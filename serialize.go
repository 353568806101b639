// Copyright (c) 2025 epsio
// SPDX-License-Identifier: Apache-2.0
// This file is part of the epserde library.

package epserde

import (
	"fmt"
	"io"
	"reflect"
	"strings"

	"github.com/epsio/epserde/serdeutils"
)

// SerializeTo serializes the given value through a positioned sink wrapped
// around writer. The output is the fixed envelope followed by the recursive
// encoding of the value, with zero padding inserted so that every zero-copy
// leaf lies at an offset divisible by its max-alignment.
//
// The writer may be a streaming target (file, socket); no seeking is ever
// performed. Returns the total number of bytes written.
func (s *Serde) SerializeTo(source any, writer io.Writer) (int, error) {
	return s.serializeOn(source, serdeutils.NewWriter(writer))
}

// Serialize serializes the given value into a freshly allocated aligned
// buffer. The returned slice's backing address is over-aligned, so it can be
// handed directly to ε-copy deserialization.
func (s *Serde) Serialize(source any) ([]byte, error) {
	buf := serdeutils.NewAlignedBuffer(serdeutils.DefaultAlignment)
	if _, err := s.SerializeTo(source, buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// SerializeWithSchema serializes like SerializeTo and additionally returns a
// schema describing the byte range of every named field written, for
// diagnostics and format debugging.
func (s *Serde) SerializeWithSchema(source any, writer io.Writer) (*Schema, error) {
	schema := &Schema{}
	w := serdeutils.NewWriter(writer)
	w.FieldHook = schema.addField
	if _, err := s.serializeOn(source, w); err != nil {
		return nil, err
	}
	return schema, nil
}

func (s *Serde) serializeOn(source any, w *serdeutils.Writer) (int, error) {
	sourceValue := reflect.ValueOf(source)
	if !sourceValue.IsValid() {
		return 0, fmt.Errorf("cannot serialize untyped nil")
	}

	desc, err := s.typeCache.GetTypeDescriptor(sourceValue.Type())
	if err != nil {
		return 0, err
	}

	if err := writeEnvelope(w, desc); err != nil {
		return 0, err
	}
	if err := w.Align(desc.MaxAlign); err != nil {
		return 0, err
	}
	if err := s.serializeType(desc, sourceValue, w, "ROOT", 0); err != nil {
		return 0, err
	}
	if err := w.Flush(); err != nil {
		return 0, err
	}

	return w.Pos(), nil
}

// serializeType is the core recursive dispatcher of the serializer. Zero-copy
// types take the raw path regardless of their shape; everything else
// dispatches on the descriptor's wire shape.
func (s *Serde) serializeType(desc *TypeDescriptor, v reflect.Value, w *serdeutils.Writer, name string, idt int) error {
	if s.options.Verbose {
		s.log("%sserialize %s: %s (%v)\n", strings.Repeat(" ", idt), name, desc.TypeName, desc.SerdeType)
	}

	if desc.IsZeroCopy() {
		return s.serializeZero(desc, v, w, name)
	}

	switch desc.SerdeType {
	case SequenceType:
		return s.serializeSequence(desc, v, w, name, idt)
	case StringType:
		return s.serializeString(v, w, name)
	case StructType:
		for i, field := range desc.Fields {
			if err := s.serializeType(field.Type, v.Field(i), w, name+"."+field.Name, idt+2); err != nil {
				return fmt.Errorf("failed encoding field %v: %w", field.Name, err)
			}
		}
		return nil
	case OptionType:
		return s.serializeOption(desc, v, w, name, idt)
	case UnionType:
		return s.serializeUnion(desc, v, w, name, idt)
	case WrapperType:
		return s.serializeType(desc.ElemDesc, v.Field(0), w, name, idt+2)
	case IterSeqType:
		return s.serializeIterSeq(desc, v, w, name, idt)
	default:
		return fmt.Errorf("unknown type: %v", desc.TypeName)
	}
}

// serializeZero writes a zero-copy value: align the sink to the value's
// max-alignment, then emit its in-memory image in a single write.
func (s *Serde) serializeZero(desc *TypeDescriptor, v reflect.Value, w *serdeutils.Writer, name string) error {
	if err := w.Align(desc.MaxAlign); err != nil {
		return err
	}
	start := w.Pos()
	if err := w.WriteAll(rawBytes(v, desc.Size)); err != nil {
		return err
	}
	w.RecordField(name, desc.TypeName, start, desc.Size)
	return nil
}

// serializeSequence writes a length word, pads to the element alignment, and
// then either emits the whole backing memory in one write (zero-copy
// elements; this is what makes the receiving side able to alias the run) or
// recursively encodes each element.
func (s *Serde) serializeSequence(desc *TypeDescriptor, v reflect.Value, w *serdeutils.Writer, name string, idt int) error {
	if err := w.Align(lengthWordSize); err != nil {
		return err
	}
	start := w.Pos()
	if err := w.WriteUint64(uint64(v.Len())); err != nil {
		return err
	}
	w.RecordField(name+".len", "uint64", start, lengthWordSize)

	elem := desc.ElemDesc
	if elem.IsZeroCopy() {
		if err := w.Align(elem.MaxAlign); err != nil {
			return err
		}
		start = w.Pos()
		if v.Len() > 0 {
			if err := w.WriteAll(sliceDataBytes(v, elem.Size)); err != nil {
				return err
			}
		}
		w.RecordField(name+".data", desc.TypeName, start, w.Pos()-start)
		return nil
	}

	for i := 0; i < v.Len(); i++ {
		if err := s.serializeType(elem, v.Index(i), w, fmt.Sprintf("%s[%d]", name, i), idt+2); err != nil {
			return err
		}
	}
	return nil
}

func (s *Serde) serializeString(v reflect.Value, w *serdeutils.Writer, name string) error {
	if err := w.Align(lengthWordSize); err != nil {
		return err
	}
	start := w.Pos()
	str := v.String()
	if err := w.WriteUint64(uint64(len(str))); err != nil {
		return err
	}
	if err := w.WriteAll([]byte(str)); err != nil {
		return err
	}
	w.RecordField(name, "string", start, w.Pos()-start)
	return nil
}

// serializeOption writes a one-byte discriminant followed by the value when
// the pointer is non-nil.
func (s *Serde) serializeOption(desc *TypeDescriptor, v reflect.Value, w *serdeutils.Writer, name string, idt int) error {
	start := w.Pos()
	if v.IsNil() {
		if err := w.WriteUint8(0); err != nil {
			return err
		}
		w.RecordField(name, "none", start, 1)
		return nil
	}
	if err := w.WriteUint8(1); err != nil {
		return err
	}
	w.RecordField(name, "some", start, 1)
	return s.serializeType(desc.ElemDesc, v.Elem(), w, name+".some", idt+2)
}

// serializeUnion writes the discriminant in the narrowest unsigned width that
// fits the variant count, followed by the variant's fields.
func (s *Serde) serializeUnion(desc *TypeDescriptor, v reflect.Value, w *serdeutils.Writer, name string, idt int) error {
	variant := int(v.Field(0).Uint())
	if variant >= len(desc.Variants) {
		return fmt.Errorf("%w: variant %d of %d", ErrInvalidVariant, variant, len(desc.Variants))
	}

	if err := w.Align(desc.DiscWidth); err != nil {
		return err
	}
	start := w.Pos()
	if err := writeDiscriminant(w, uint64(variant), desc.DiscWidth); err != nil {
		return err
	}
	variantDesc := desc.Variants[variant]
	w.RecordField(name+"."+variantDesc.Name, "discriminant", start, desc.DiscWidth)

	if isUnitVariant(variantDesc.Type) {
		return nil
	}

	dataField := v.Field(1)
	if dataField.IsNil() {
		return fmt.Errorf("%w: variant %v has no data", ErrInvalidVariant, variantDesc.Name)
	}
	dataValue := dataField.Elem()
	if dataValue.Type() != variantDesc.Type.Type {
		return fmt.Errorf("%w: variant %v expects %v, got %v",
			ErrInvalidVariant, variantDesc.Name, variantDesc.Type.Type, dataValue.Type())
	}

	return s.serializeType(variantDesc.Type, dataValue, w, name+"."+variantDesc.Name, idt+2)
}

// serializeIterSeq writes a sequence from a pull iterator with an advertised
// length, wire-identical to a slice of the element type. The advertised count
// is part of the format, so a disagreeing iterator aborts serialization.
func (s *Serde) serializeIterSeq(desc *TypeDescriptor, v reflect.Value, w *serdeutils.Writer, name string, idt int) error {
	count := v.Field(0).Uint()
	next := v.Field(1)
	if next.IsNil() {
		return fmt.Errorf("iterator sequence %v has no Next function", desc.TypeName)
	}

	if err := w.Align(lengthWordSize); err != nil {
		return err
	}
	start := w.Pos()
	if err := w.WriteUint64(count); err != nil {
		return err
	}
	w.RecordField(name+".len", "uint64", start, lengthWordSize)

	elem := desc.ElemDesc
	if elem.IsZeroCopy() {
		if err := w.Align(elem.MaxAlign); err != nil {
			return err
		}
	}

	produced := uint64(0)
	for {
		results := next.Call(nil)
		if !results[1].Bool() {
			break
		}
		produced++
		if produced > count {
			return ErrIteratorLength
		}
		if elem.IsZeroCopy() {
			if err := w.WriteAll(rawBytes(results[0], elem.Size)); err != nil {
				return err
			}
		} else {
			if err := s.serializeType(elem, results[0], w, fmt.Sprintf("%s[%d]", name, produced-1), idt+2); err != nil {
				return err
			}
		}
	}
	if produced != count {
		return ErrIteratorLength
	}
	return nil
}

func writeDiscriminant(w *serdeutils.Writer, v uint64, width int) error {
	switch width {
	case 1:
		return w.WriteUint8(uint8(v))
	case 2:
		return w.WriteUint16(uint16(v))
	case 4:
		return w.WriteUint32(uint32(v))
	default:
		return w.WriteUint64(v)
	}
}

func isUnitVariant(desc *TypeDescriptor) bool {
	return desc.SerdeType == StructType && len(desc.Fields) == 0
}
