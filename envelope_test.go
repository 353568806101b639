// Copyright (c) 2025 epsio
// SPDX-License-Identifier: Apache-2.0
// This file is part of the epserde library.

package epserde_test

import (
	"bytes"
	"encoding/binary"
	"errors"
	"reflect"
	"testing"

	. "github.com/epsio/epserde"
)

// TestEnvelopeLayout checks the fixed header byte layout: magic at offset 0,
// version pair, pad to 8, both hashes, then the length-prefixed type name.
func TestEnvelopeLayout(t *testing.T) {
	serde := New(WithNoMismatchWarning())

	buf, err := serde.Serialize(uint64(42))
	if err != nil {
		t.Fatalf("serialize error: %v", err)
	}

	if !bytes.Equal(buf[0:8], []byte("epserde ")) {
		t.Errorf("magic bytes: got %q", buf[0:8])
	}
	if binary.NativeEndian.Uint16(buf[8:10]) != VersionMajor {
		t.Errorf("major version: got %d", binary.NativeEndian.Uint16(buf[8:10]))
	}
	if binary.NativeEndian.Uint16(buf[10:12]) != VersionMinor {
		t.Errorf("minor version: got %d", binary.NativeEndian.Uint16(buf[10:12]))
	}

	typeHash, reprHash, err := serde.TypeHashes(reflect.TypeOf(uint64(0)))
	if err != nil {
		t.Fatalf("type hash error: %v", err)
	}
	if binary.NativeEndian.Uint64(buf[16:24]) != typeHash {
		t.Errorf("structural hash not at offset 16")
	}
	if binary.NativeEndian.Uint64(buf[24:32]) != reprHash {
		t.Errorf("representational hash not at offset 24")
	}

	nameLen := binary.NativeEndian.Uint64(buf[32:40])
	if string(buf[40:40+nameLen]) != "uint64" {
		t.Errorf("type name: got %q", buf[40:40+nameLen])
	}
}

func TestMagicMismatch(t *testing.T) {
	serde := New(WithNoMismatchWarning())

	buf, err := serde.Serialize(uint64(42))
	if err != nil {
		t.Fatalf("serialize error: %v", err)
	}
	buf[0] ^= 0xff

	var target uint64
	if err := serde.Deserialize(&target, buf); !errors.Is(err, ErrMagicMismatch) {
		t.Errorf("got %v, wanted ErrMagicMismatch", err)
	}
}

func TestVersionMismatch(t *testing.T) {
	serde := New(WithNoMismatchWarning())

	buf, err := serde.Serialize(uint64(42))
	if err != nil {
		t.Fatalf("serialize error: %v", err)
	}
	binary.NativeEndian.PutUint16(buf[8:10], VersionMajor+1)

	var target uint64
	if err := serde.Deserialize(&target, buf); !errors.Is(err, ErrVersionMismatch) {
		t.Errorf("got %v, wanted ErrVersionMismatch", err)
	}
}

// TestEnvelopeAbortsBeforePayload checks that an envelope error surfaces even
// when the payload is garbage, i.e. validation happens before any payload
// access.
func TestEnvelopeAbortsBeforePayload(t *testing.T) {
	serde := New(WithNoMismatchWarning())

	buf, err := serde.Serialize([]uint64{1, 2, 3})
	if err != nil {
		t.Fatalf("serialize error: %v", err)
	}
	buf[0] ^= 0xff
	for i := 48; i < len(buf); i++ {
		buf[i] = 0xff
	}

	var target []uint64
	if err := serde.Deserialize(&target, buf); !errors.Is(err, ErrMagicMismatch) {
		t.Errorf("got %v, wanted ErrMagicMismatch", err)
	}
}

func TestTruncatedEnvelope(t *testing.T) {
	serde := New(WithNoMismatchWarning())

	buf, err := serde.Serialize(uint64(42))
	if err != nil {
		t.Fatalf("serialize error: %v", err)
	}

	var target uint64
	if err := serde.Deserialize(&target, buf[:10]); !errors.Is(err, ErrUnexpectedEOF) {
		t.Errorf("got %v, wanted ErrUnexpectedEOF", err)
	}
}
