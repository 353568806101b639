// Copyright (c) 2025 epsio
// SPDX-License-Identifier: Apache-2.0
// This file is part of the epserde library.

// Package epserde implements ε-copy binary serialization: after a single
// linear scan of a byte buffer, a typed, immutable view of the serialized
// data structure is returned in which the bulk of the payload (slices,
// strings, zero-copy records) aliases the buffer in place, while only a small
// spine of container headers and wrapper records is materialized.
//
// The engine classifies every participating type as zero-copy or deep-copy
// using runtime reflection, enforces an alignment discipline while writing so
// that every zero-copy value sits at an address aligned to its
// max-alignment, and guards readers with two stable type hashes carried in a
// fixed envelope. One serialized type yields two result types: full-copy
// deserialization rebuilds an owned value, ε-copy deserialization returns a
// View whose slice and string fields borrow from the source buffer.
//
// Intended for large, mostly-read structures (indices, dictionaries, static
// graphs) where deserialize-into-owned would dominate startup time.
package epserde

import (
	"fmt"
	"reflect"
)

// Serde is the ε-copy serialization engine. It holds a cache of type
// descriptors so that reflection and classification run once per type; reuse
// the same instance across operations. All methods are safe for concurrent
// use; the engine keeps no state between calls beyond the descriptor cache.
type Serde struct {
	typeCache *TypeCache
	options   *Options
}

// New creates a new engine instance.
func New(options ...Option) *Serde {
	opts := &Options{
		LogCb: func(format string, args ...any) {
			fmt.Printf(format, args...)
		},
	}

	for _, option := range options {
		option(opts)
	}

	serde := &Serde{
		options: opts,
	}
	serde.typeCache = NewTypeCache(serde)

	return serde
}

// GetTypeCache returns the engine's type descriptor cache.
func (s *Serde) GetTypeCache() *TypeCache {
	return s.typeCache
}

// TypeHashes returns the structural and representational hash of a type as
// they would appear in the envelope of an artifact with that root type.
func (s *Serde) TypeHashes(t reflect.Type) (typeHash uint64, reprHash uint64, err error) {
	desc, err := s.typeCache.GetTypeDescriptor(t)
	if err != nil {
		return 0, 0, err
	}
	return desc.TypeHash, desc.ReprHash, nil
}

func (s *Serde) log(format string, args ...any) {
	if s.options.LogCb != nil {
		s.options.LogCb(format, args...)
	}
}

// warnMismatch reports a type that is deep-copy but whose fields are all
// zero-copy. Adding the ZeroCopyType marker to such a type makes its
// sequences eligible for the single-write fast path and in-buffer views.
func (s *Serde) warnMismatch(t reflect.Type) {
	if s.options.NoMismatchWarn {
		return
	}
	s.log("epserde: type %v is zero-copy but has not been declared as such; "+
		"add the ZeroCopyType marker for faster (de)serialization\n", t)
}
