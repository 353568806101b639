// Copyright (c) 2025 epsio
// SPDX-License-Identifier: Apache-2.0
// This file is part of the epserde library.

package epserde

// Wrapped is a single-item owning wrapper around a value of type T. It is
// encoded exactly as T; on ε-copy deserialization the result is the same
// wrapper shape around the view of T. Useful to give a standalone container
// (a boxed slice, a string) a nominal root type.
//
// Usage:
//
//	type Payload = epserde.Wrapped[[]int32]
//
//	payload := epserde.NewWrapped([]int32{1, 2, 3, 4})
type Wrapped[T any] struct {
	Data T
}

// NewWrapped creates a new Wrapped with the specified data.
func NewWrapped[T any](data T) Wrapped[T] {
	return Wrapped[T]{
		Data: data,
	}
}

// Get returns the wrapped value.
func (w Wrapped[T]) Get() T {
	return w.Data
}

// Set sets the wrapped value.
func (w *Wrapped[T]) Set(value T) {
	w.Data = value
}
