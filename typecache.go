// Copyright (c) 2025 epsio
// SPDX-License-Identifier: Apache-2.0
// This file is part of the epserde library.

package epserde

import (
	"fmt"
	"reflect"
	"strings"
	"sync"
)

// TypeCache manages cached type descriptors
type TypeCache struct {
	serde       *Serde
	mutex       sync.RWMutex
	descriptors map[reflect.Type]*TypeDescriptor
}

// SerdeType identifies the wire shape of a type.
type SerdeType uint8

const (
	UnspecifiedType SerdeType = iota
	PrimitiveType             // fixed-width scalar, native-endian raw bytes
	ArrayType                 // fixed-size array of zero-copy elements
	SequenceType              // length-prefixed slice
	StringType                // length-prefixed UTF-8
	StructType                // fields in declaration order
	OptionType                // pointer: one-byte discriminant + value
	UnionType                 // discriminant + variant fields
	WrapperType               // single-item owning wrapper, encoded as its item
	IterSeqType               // sequence serialized from an iterator, wire-identical to SequenceType
)

func (t SerdeType) String() string {
	switch t {
	case PrimitiveType:
		return "primitive"
	case ArrayType:
		return "array"
	case SequenceType:
		return "sequence"
	case StringType:
		return "string"
	case StructType:
		return "struct"
	case OptionType:
		return "option"
	case UnionType:
		return "union"
	case WrapperType:
		return "wrapper"
	case IterSeqType:
		return "sequence"
	default:
		return "unspecified"
	}
}

// TypeFlag is a flag describing a type's serialization capabilities.
type TypeFlag uint8

const (
	// TypeFlagZeroCopy marks types whose in-memory byte image equals their
	// serialized byte image. The engine may copy their raw bytes on write and
	// hand out in-buffer references on ε-copy read.
	TypeFlagZeroCopy TypeFlag = 1 << iota
	// TypeFlagZeroCopyMismatch marks deep-copy struct types whose fields all
	// happen to be zero-copy. A performance warning, never an error.
	TypeFlagZeroCopyMismatch
)

// ZeroCopyType is the marker interface through which a struct declares a
// stable layout with no owned heap memory. The declaration is verified:
// building a descriptor for a marked struct with a deep-copy field fails
// with ErrZeroCopyViolation.
//
// A code generator deriving engine support for a record only needs to emit
// this marker; classification, identity hashes and the traversal schedule
// are reflection driven.
type ZeroCopyType interface {
	ZeroCopyType()
}

var zeroCopyMarkerType = reflect.TypeOf((*ZeroCopyType)(nil)).Elem()

// TypeDescriptor represents a cached, optimized descriptor for a type's
// serialization schedule: classification, max-alignment, identity hashes and
// the recursive structure the serializer and both deserializers walk.
type TypeDescriptor struct {
	Type      reflect.Type
	Kind      reflect.Kind
	SerdeType SerdeType
	Flags     TypeFlag
	Size      int    // in-memory byte size (meaningful for zero-copy types)
	MinWire   int    // minimum number of payload bytes an instance occupies
	MaxAlign  int    // largest alignment among zero-copy leaves
	Len       int    // fixed length for ArrayType
	PrimName  string // canonical primitive name for PrimitiveType
	TypeName  string // diagnostic name carried in the envelope

	Fields    []FieldDescriptor   // StructType
	ElemDesc  *TypeDescriptor     // ArrayType/SequenceType/OptionType/WrapperType/IterSeqType
	Variants  []VariantDescriptor // UnionType, declaration order
	DiscWidth int                 // UnionType discriminant width in bytes

	TypeHash uint64 // structural identity
	ReprHash uint64 // representational identity
}

// FieldDescriptor represents a cached descriptor for a struct field
type FieldDescriptor struct {
	Name string
	Type *TypeDescriptor
}

// VariantDescriptor represents a union variant in declaration order.
type VariantDescriptor struct {
	Name string
	Type *TypeDescriptor
}

// IsZeroCopy reports whether the type's raw bytes may be aliased in place.
func (td *TypeDescriptor) IsZeroCopy() bool {
	return td.Flags&TypeFlagZeroCopy != 0
}

// NewTypeCache creates a new type cache
func NewTypeCache(serde *Serde) *TypeCache {
	return &TypeCache{
		serde:       serde,
		descriptors: make(map[reflect.Type]*TypeDescriptor),
	}
}

// GetTypeDescriptor returns a cached type descriptor for the given type,
// computing it if necessary. The method is thread-safe; descriptors are
// computed once per type and reused across all (de)serialization calls.
func (tc *TypeCache) GetTypeDescriptor(t reflect.Type) (*TypeDescriptor, error) {
	tc.mutex.RLock()
	if desc, exists := tc.descriptors[t]; exists {
		tc.mutex.RUnlock()
		return desc, nil
	}
	tc.mutex.RUnlock()

	tc.mutex.Lock()
	defer tc.mutex.Unlock()

	return tc.getTypeDescriptor(t)
}

// getTypeDescriptor returns a cached type descriptor, computing it if necessary
func (tc *TypeCache) getTypeDescriptor(t reflect.Type) (*TypeDescriptor, error) {
	if desc, exists := tc.descriptors[t]; exists {
		return desc, nil
	}

	desc, err := tc.buildTypeDescriptor(t)
	if err != nil {
		return nil, err
	}

	tc.descriptors[t] = desc

	return desc, nil
}

// buildTypeDescriptor computes a type descriptor for the given type
func (tc *TypeCache) buildTypeDescriptor(t reflect.Type) (*TypeDescriptor, error) {
	desc := &TypeDescriptor{
		Type:     t,
		Kind:     t.Kind(),
		TypeName: t.String(),
	}

	switch {
	case t.PkgPath() == modulePath && strings.HasPrefix(t.Name(), "Union["):
		desc.SerdeType = UnionType
	case t.PkgPath() == modulePath && strings.HasPrefix(t.Name(), "Wrapped["):
		desc.SerdeType = WrapperType
	case t.PkgPath() == modulePath && strings.HasPrefix(t.Name(), "IterSeq["):
		desc.SerdeType = IterSeqType
	}

	if desc.SerdeType == UnspecifiedType {
		switch desc.Kind {
		case reflect.Bool,
			reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
			reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
			reflect.Float32, reflect.Float64:
			desc.SerdeType = PrimitiveType
		case reflect.Array:
			desc.SerdeType = ArrayType
		case reflect.Slice:
			desc.SerdeType = SequenceType
		case reflect.String:
			desc.SerdeType = StringType
		case reflect.Struct:
			desc.SerdeType = StructType
		case reflect.Ptr:
			desc.SerdeType = OptionType

		case reflect.Complex64, reflect.Complex128:
			return nil, fmt.Errorf("complex numbers are not serializable")
		case reflect.Map:
			return nil, fmt.Errorf("maps are not serializable (use a slice of key/value structs)")
		case reflect.Chan:
			return nil, fmt.Errorf("channels are not serializable")
		case reflect.Func:
			return nil, fmt.Errorf("functions are not serializable")
		case reflect.Interface:
			return nil, fmt.Errorf("interfaces are not serializable (use concrete types)")
		case reflect.UnsafePointer:
			return nil, fmt.Errorf("unsafe pointers are not serializable")
		default:
			return nil, fmt.Errorf("unsupported type kind: %v", t.Kind())
		}
	}

	var err error
	switch desc.SerdeType {
	case PrimitiveType:
		err = tc.buildPrimitiveDescriptor(desc, t)
	case ArrayType:
		err = tc.buildArrayDescriptor(desc, t)
	case SequenceType:
		err = tc.buildSequenceDescriptor(desc, t)
	case StringType:
		desc.MaxAlign = lengthWordSize
		desc.MinWire = lengthWordSize
	case StructType:
		err = tc.buildStructDescriptor(desc, t)
	case OptionType:
		err = tc.buildOptionDescriptor(desc, t)
	case UnionType:
		err = tc.buildUnionDescriptor(desc, t)
	case WrapperType:
		err = tc.buildWrapperDescriptor(desc, t)
	case IterSeqType:
		err = tc.buildIterSeqDescriptor(desc, t)
	}
	if err != nil {
		return nil, err
	}

	computeTypeHashes(desc)

	return desc, nil
}

// buildPrimitiveDescriptor classifies a fixed-width scalar. The max-alignment
// of a primitive equals its size, not the compiler's alignment choice, so a
// 64-bit integer sits at an 8-byte boundary on every producer.
func (tc *TypeCache) buildPrimitiveDescriptor(desc *TypeDescriptor, t reflect.Type) error {
	desc.Flags |= TypeFlagZeroCopy
	desc.Size = int(t.Size())
	desc.MinWire = desc.Size
	desc.MaxAlign = desc.Size
	desc.PrimName = desc.Kind.String()
	return nil
}

// buildArrayDescriptor classifies a fixed-size array. The element type must
// be zero-copy; the array is then itself zero-copy (a contiguous run with no
// length prefix).
func (tc *TypeCache) buildArrayDescriptor(desc *TypeDescriptor, t reflect.Type) error {
	elemDesc, err := tc.getTypeDescriptor(t.Elem())
	if err != nil {
		return err
	}
	if !elemDesc.IsZeroCopy() {
		return fmt.Errorf("fixed-size array element type %v must be zero-copy (use a slice for deep-copy elements)", t.Elem())
	}

	desc.ElemDesc = elemDesc
	desc.Len = t.Len()
	desc.Flags |= TypeFlagZeroCopy
	desc.Size = int(t.Size())
	desc.MinWire = desc.Size
	desc.MaxAlign = elemDesc.MaxAlign
	return nil
}

// buildSequenceDescriptor classifies a slice: a length word followed by
// padding to the element alignment and the elements.
func (tc *TypeCache) buildSequenceDescriptor(desc *TypeDescriptor, t reflect.Type) error {
	elemDesc, err := tc.getTypeDescriptor(t.Elem())
	if err != nil {
		return err
	}

	desc.ElemDesc = elemDesc
	desc.MinWire = lengthWordSize
	desc.MaxAlign = lengthWordSize
	if elemDesc.MaxAlign > desc.MaxAlign {
		desc.MaxAlign = elemDesc.MaxAlign
	}
	return nil
}

// buildStructDescriptor classifies a struct. A struct is zero-copy only if it
// carries the ZeroCopyType marker and every field is itself zero-copy; a
// marked struct with a deep-copy field fails here, which is what aborts
// serialization of such types.
func (tc *TypeCache) buildStructDescriptor(desc *TypeDescriptor, t reflect.Type) error {
	declared := t.Implements(zeroCopyMarkerType) || reflect.PointerTo(t).Implements(zeroCopyMarkerType)

	desc.Fields = make([]FieldDescriptor, t.NumField())
	allZeroCopy := true
	maxAlign := 1
	minWire := 0

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			return fmt.Errorf("struct %v has unexported field %v", t, field.Name)
		}

		fieldDesc, err := tc.getTypeDescriptor(field.Type)
		if err != nil {
			return fmt.Errorf("field %v: %w", field.Name, err)
		}

		if !fieldDesc.IsZeroCopy() {
			allZeroCopy = false
		}
		if fieldDesc.MaxAlign > maxAlign {
			maxAlign = fieldDesc.MaxAlign
		}
		minWire += fieldDesc.MinWire

		desc.Fields[i] = FieldDescriptor{
			Name: field.Name,
			Type: fieldDesc,
		}
	}

	desc.MaxAlign = maxAlign
	desc.MinWire = minWire

	if declared {
		if !allZeroCopy {
			return fmt.Errorf("%w: %v", ErrZeroCopyViolation, t)
		}
		desc.Flags |= TypeFlagZeroCopy
		desc.Size = int(t.Size())
		desc.MinWire = desc.Size
	} else if allZeroCopy && len(desc.Fields) > 0 {
		desc.Flags |= TypeFlagZeroCopyMismatch
		if tc.serde != nil {
			tc.serde.warnMismatch(t)
		}
	}

	return nil
}

// buildOptionDescriptor classifies a pointer as an option-like sum: a
// one-byte discriminant followed by the value when present.
func (tc *TypeCache) buildOptionDescriptor(desc *TypeDescriptor, t reflect.Type) error {
	elemDesc, err := tc.getTypeDescriptor(t.Elem())
	if err != nil {
		return err
	}

	desc.ElemDesc = elemDesc
	desc.MinWire = 1
	desc.MaxAlign = elemDesc.MaxAlign
	return nil
}

// buildUnionDescriptor builds a descriptor for Union types. The variant set
// comes from the generic descriptor struct's fields, in declaration order;
// the discriminant is the narrowest unsigned that fits the variant count.
func (tc *TypeCache) buildUnionDescriptor(desc *TypeDescriptor, t reflect.Type) error {
	descriptorType, err := extractDescriptorType(t)
	if err != nil {
		return err
	}
	if descriptorType.Kind() != reflect.Struct {
		return fmt.Errorf("union descriptor type must be a struct, got %v", descriptorType.Kind())
	}
	if descriptorType.NumField() == 0 {
		return fmt.Errorf("union descriptor struct %v has no variants", descriptorType)
	}
	if descriptorType.NumField() > 256 {
		return fmt.Errorf("union descriptor struct %v exceeds the 256 variants addressable by the Variant field", descriptorType)
	}

	desc.Variants = make([]VariantDescriptor, descriptorType.NumField())
	maxAlign := 1

	for i := 0; i < descriptorType.NumField(); i++ {
		field := descriptorType.Field(i)
		variantDesc, err := tc.getTypeDescriptor(field.Type)
		if err != nil {
			return fmt.Errorf("union variant %v: %w", field.Name, err)
		}

		if variantDesc.MaxAlign > maxAlign {
			maxAlign = variantDesc.MaxAlign
		}

		desc.Variants[i] = VariantDescriptor{
			Name: field.Name,
			Type: variantDesc,
		}
	}

	desc.DiscWidth = discriminantWidth(len(desc.Variants))
	if desc.DiscWidth > maxAlign {
		maxAlign = desc.DiscWidth
	}
	desc.MaxAlign = maxAlign
	desc.MinWire = desc.DiscWidth
	return nil
}

// buildWrapperDescriptor builds a descriptor for Wrapped types, which are
// encoded exactly as the wrapped value.
func (tc *TypeCache) buildWrapperDescriptor(desc *TypeDescriptor, t reflect.Type) error {
	if t.NumField() != 1 {
		return fmt.Errorf("wrapper type %v must have exactly one field", t)
	}

	elemDesc, err := tc.getTypeDescriptor(t.Field(0).Type)
	if err != nil {
		return err
	}

	desc.ElemDesc = elemDesc
	desc.MaxAlign = elemDesc.MaxAlign
	desc.MinWire = elemDesc.MinWire
	return nil
}

// buildIterSeqDescriptor builds a descriptor for IterSeq types. The wire form
// is identical to a slice of the element type, and so is the structural hash:
// an IterSeq-serialized artifact deserializes into a plain slice.
func (tc *TypeCache) buildIterSeqDescriptor(desc *TypeDescriptor, t reflect.Type) error {
	elemType, err := extractIterElemType(t)
	if err != nil {
		return err
	}

	elemDesc, err := tc.getTypeDescriptor(elemType)
	if err != nil {
		return err
	}

	desc.ElemDesc = elemDesc
	desc.MinWire = lengthWordSize
	desc.MaxAlign = lengthWordSize
	if elemDesc.MaxAlign > desc.MaxAlign {
		desc.MaxAlign = elemDesc.MaxAlign
	}
	return nil
}

// discriminantWidth returns the smallest unsigned width in bytes whose range
// covers count variants.
func discriminantWidth(count int) int {
	switch {
	case count <= 1<<8:
		return 1
	case count <= 1<<16:
		return 2
	case count <= 1<<32:
		return 4
	default:
		return 8
	}
}

// extractDescriptorType extracts the generic descriptor type parameter from a
// Union type by calling its GetDescriptorType method.
func extractDescriptorType(unionType reflect.Type) (reflect.Type, error) {
	unionValue := reflect.New(unionType)

	method := unionValue.MethodByName("GetDescriptorType")
	if !method.IsValid() {
		return nil, fmt.Errorf("GetDescriptorType method not found on type %s", unionType)
	}

	results := method.Call(nil)
	if len(results) == 0 {
		return nil, fmt.Errorf("GetDescriptorType returned no results")
	}

	descriptorType, ok := results[0].Interface().(reflect.Type)
	if !ok {
		return nil, fmt.Errorf("GetDescriptorType did not return a reflect.Type")
	}

	return descriptorType, nil
}

// extractIterElemType extracts the element type parameter from an IterSeq
// type by calling its GetElemType method.
func extractIterElemType(iterType reflect.Type) (reflect.Type, error) {
	iterValue := reflect.New(iterType)

	method := iterValue.MethodByName("GetElemType")
	if !method.IsValid() {
		return nil, fmt.Errorf("GetElemType method not found on type %s", iterType)
	}

	results := method.Call(nil)
	if len(results) == 0 {
		return nil, fmt.Errorf("GetElemType returned no results")
	}

	elemType, ok := results[0].Interface().(reflect.Type)
	if !ok {
		return nil, fmt.Errorf("GetElemType did not return a reflect.Type")
	}

	return elemType, nil
}

// GetAllTypes returns a slice of all types currently cached in the TypeCache.
func (tc *TypeCache) GetAllTypes() []reflect.Type {
	tc.mutex.RLock()
	defer tc.mutex.RUnlock()

	types := make([]reflect.Type, 0, len(tc.descriptors))
	for t := range tc.descriptors {
		types = append(types, t)
	}

	return types
}

// RemoveAllTypes clears all cached type descriptors from the cache.
func (tc *TypeCache) RemoveAllTypes() {
	tc.mutex.Lock()
	defer tc.mutex.Unlock()

	tc.descriptors = make(map[reflect.Type]*TypeDescriptor)
}
