// Copyright (c) 2025 epsio
// SPDX-License-Identifier: Apache-2.0
// This file is part of the epserde library.

package epserde

import (
	"encoding/binary"
	"fmt"
	"unicode/utf8"

	"github.com/epsio/epserde/serdeutils"
)

// Envelope is the fixed header at offset 0 of every serialized artifact:
// magic, version pair, the root type's structural and representational
// hashes, and a diagnostic type name. Each field is written at its natural
// alignment; the root payload begins after padding to the root's
// max-alignment.
type Envelope struct {
	Magic        uint64
	VersionMajor uint16
	VersionMinor uint16
	TypeHash     uint64
	ReprHash     uint64
	TypeName     string
}

func writeEnvelope(w *serdeutils.Writer, desc *TypeDescriptor) error {
	start := w.Pos()
	if err := w.WriteUint64(Magic()); err != nil {
		return err
	}
	w.RecordField("MAGIC", "uint64", start, 8)

	start = w.Pos()
	if err := w.WriteUint16(VersionMajor); err != nil {
		return err
	}
	w.RecordField("VERSION_MAJOR", "uint16", start, 2)

	start = w.Pos()
	if err := w.WriteUint16(VersionMinor); err != nil {
		return err
	}
	w.RecordField("VERSION_MINOR", "uint16", start, 2)

	if err := w.Align(8); err != nil {
		return err
	}
	start = w.Pos()
	if err := w.WriteUint64(desc.TypeHash); err != nil {
		return err
	}
	w.RecordField("TYPE_HASH", "uint64", start, 8)

	start = w.Pos()
	if err := w.WriteUint64(desc.ReprHash); err != nil {
		return err
	}
	w.RecordField("REPR_HASH", "uint64", start, 8)

	name := desc.TypeName
	if len(name) > maxTypeNameLen {
		name = name[:maxTypeNameLen]
	}
	start = w.Pos()
	if err := w.WriteUint64(uint64(len(name))); err != nil {
		return err
	}
	if err := w.WriteAll([]byte(name)); err != nil {
		return err
	}
	w.RecordField("TYPE_NAME", "string", start, w.Pos()-start)

	return nil
}

// readEnvelope reads and validates the fixed header. Magic and major version
// are checked here; the hash checks against the target type are performed by
// the deserializers, which differ in how strict they are about the
// representational hash.
func readEnvelope(src serdeutils.Source) (*Envelope, error) {
	env := &Envelope{}

	var buf [8]byte
	if err := src.ReadExact(buf[:]); err != nil {
		return nil, err
	}
	env.Magic = binary.NativeEndian.Uint64(buf[:])
	if env.Magic != Magic() {
		return nil, serdeutils.ErrMagicMismatch
	}

	if err := src.ReadExact(buf[:2]); err != nil {
		return nil, err
	}
	env.VersionMajor = binary.NativeEndian.Uint16(buf[:2])
	if err := src.ReadExact(buf[:2]); err != nil {
		return nil, err
	}
	env.VersionMinor = binary.NativeEndian.Uint16(buf[:2])
	if env.VersionMajor != VersionMajor {
		return nil, fmt.Errorf("%w: artifact has major version %d, reader supports %d",
			serdeutils.ErrVersionMismatch, env.VersionMajor, VersionMajor)
	}

	if err := skipPadding(src, 8); err != nil {
		return nil, err
	}
	if err := src.ReadExact(buf[:]); err != nil {
		return nil, err
	}
	env.TypeHash = binary.NativeEndian.Uint64(buf[:])
	if err := src.ReadExact(buf[:]); err != nil {
		return nil, err
	}
	env.ReprHash = binary.NativeEndian.Uint64(buf[:])

	if err := src.ReadExact(buf[:]); err != nil {
		return nil, err
	}
	nameLen := binary.NativeEndian.Uint64(buf[:])
	if nameLen > maxTypeNameLen || int(nameLen) > src.Remaining() {
		return nil, serdeutils.ErrLengthOverflow
	}
	nameBuf := make([]byte, nameLen)
	if err := src.ReadExact(nameBuf); err != nil {
		return nil, err
	}
	if !utf8.Valid(nameBuf) {
		return nil, serdeutils.ErrInvalidUTF8
	}
	env.TypeName = string(nameBuf)

	return env, nil
}

// skipPadding advances the source to the given alignment without requiring an
// addressable buffer. Used on the full-copy path, which must keep working on
// unaligned or streamed data.
func skipPadding(src serdeutils.Source, align int) error {
	return src.Skip(serdeutils.PadAlign(src.Pos(), align))
}
