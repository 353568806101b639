// Copyright (c) 2025 epsio
// SPDX-License-Identifier: Apache-2.0
// This file is part of the epserde library.

package serdeutils

import (
	"encoding/binary"
	"io"
)

// Writer is a positioned serialization sink. It wraps an io.Writer and keeps
// track of the absolute number of bytes written so far, so that alignment
// padding can be computed arithmetically instead of by seeking. This makes
// streaming sinks (files, sockets, hash writers) first-class serialization
// targets.
type Writer struct {
	writer   io.Writer
	position int
	scratch  [8]byte

	// FieldHook, if set, is invoked once per named field with the byte range
	// the field occupies. Used for schema recording.
	FieldHook func(name string, typeName string, offset int, size int)
}

// NewWriter creates a positioned writer on top of an io.Writer.
func NewWriter(writer io.Writer) *Writer {
	return &Writer{
		writer: writer,
	}
}

// Pos returns the number of bytes written so far.
func (w *Writer) Pos() int {
	return w.position
}

// WriteAll writes all bytes of buf or fails with ErrWrite.
func (w *Writer) WriteAll(buf []byte) error {
	written, err := w.writer.Write(buf)
	w.position += written
	if err != nil {
		return ErrWrite
	}
	if written != len(buf) {
		return ErrWrite
	}
	return nil
}

// Flush flushes the underlying writer if it supports flushing.
func (w *Writer) Flush() error {
	type flusher interface {
		Flush() error
	}
	if f, ok := w.writer.(flusher); ok {
		if err := f.Flush(); err != nil {
			return ErrWrite
		}
	}
	return nil
}

// Align writes zero padding until the position is a multiple of align.
// align must be a power of two.
func (w *Writer) Align(align int) error {
	padding := PadAlign(w.position, align)
	if padding == 0 {
		return nil
	}
	if err := WriteZeroPadding(w.writer, padding); err != nil {
		return ErrWrite
	}
	w.position += padding
	return nil
}

// WriteUint8 writes a single byte.
func (w *Writer) WriteUint8(v uint8) error {
	w.scratch[0] = v
	return w.WriteAll(w.scratch[:1])
}

// WriteUint16 writes a native-endian uint16.
func (w *Writer) WriteUint16(v uint16) error {
	binary.NativeEndian.PutUint16(w.scratch[:2], v)
	return w.WriteAll(w.scratch[:2])
}

// WriteUint32 writes a native-endian uint32.
func (w *Writer) WriteUint32(v uint32) error {
	binary.NativeEndian.PutUint32(w.scratch[:4], v)
	return w.WriteAll(w.scratch[:4])
}

// WriteUint64 writes a native-endian uint64.
func (w *Writer) WriteUint64(v uint64) error {
	binary.NativeEndian.PutUint64(w.scratch[:8], v)
	return w.WriteAll(w.scratch[:8])
}

// WriteBool writes a bool as a single 0/1 byte.
func (w *Writer) WriteBool(v bool) error {
	if v {
		return w.WriteUint8(1)
	}
	return w.WriteUint8(0)
}

// RecordField reports a named field's byte range to the field hook, if any.
func (w *Writer) RecordField(name string, typeName string, offset int, size int) {
	if w.FieldHook != nil {
		w.FieldHook(name, typeName, offset, size)
	}
}
