// Copyright (c) 2025 epsio
// SPDX-License-Identifier: Apache-2.0
// This file is part of the epserde library.

package epserde

import "io"

var globalSerde *Serde

// Default returns the shared engine instance used by the package-level
// generic helpers.
func Default() *Serde {
	if globalSerde == nil {
		globalSerde = New()
	}
	return globalSerde
}

// SetGlobalOptions replaces the shared engine instance with one configured
// with the given options.
func SetGlobalOptions(options ...Option) {
	globalSerde = New(options...)
}

// Serialize serializes value into a freshly allocated aligned buffer using
// the default engine.
func Serialize[T any](value T) ([]byte, error) {
	return Default().Serialize(value)
}

// SerializeTo serializes value to a streaming sink using the default engine.
func SerializeTo[T any](value T, writer io.Writer) (int, error) {
	return Default().SerializeTo(value, writer)
}

// Deserialize rebuilds an owned value of type T from data using the default
// engine.
func Deserialize[T any](data []byte) (T, error) {
	var value T
	err := Default().Deserialize(&value, data)
	return value, err
}

// DeserializeStream rebuilds an owned value of type T from a reader using the
// default engine.
func DeserializeStream[T any](reader io.Reader) (T, error) {
	var value T
	err := Default().DeserializeStream(&value, reader)
	return value, err
}
