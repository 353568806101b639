// Copyright (c) 2025 epsio
// SPDX-License-Identifier: Apache-2.0
// This file is part of the epserde library.

package epserde

import (
	"reflect"
)

// Union represents a sum type with a fixed set of variants. It uses Go
// generics where D is a descriptor struct whose fields, in declaration order,
// define the variants: a field of type struct{} is a unit variant, any other
// field type is the variant's payload. The descriptor struct is never
// instantiated; it only provides type information.
//
// On the wire a union is a discriminant in the narrowest unsigned width that
// fits the variant count, followed by the variant's payload. The variant
// list, including names and order, is part of the union's structural
// identity.
//
// Usage:
//
//	type DataVariants struct {
//	    A struct{}
//	    B Pair
//	    C []int32
//	}
//	type Data = epserde.Union[DataVariants]
//
//	value := Data{Variant: 2, Data: []int32{1, 2, 3}}
type Union[D any] struct {
	Variant uint8
	Data    interface{}
}

// NewUnion creates a new Union holding the given variant. The variantIndex
// corresponds to the field index in the descriptor struct D.
func NewUnion[D any](variantIndex uint8, data interface{}) Union[D] {
	return Union[D]{
		Variant: variantIndex,
		Data:    data,
	}
}

// GetDescriptorType returns the reflect.Type of the descriptor struct D.
func (u *Union[D]) GetDescriptorType() reflect.Type {
	var zero *D
	return reflect.TypeOf(zero).Elem()
}
