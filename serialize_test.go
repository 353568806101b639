// Copyright (c) 2025 epsio
// SPDX-License-Identifier: Apache-2.0
// This file is part of the epserde library.

package epserde_test

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	. "github.com/epsio/epserde"
)

func schemaField(t *testing.T, schema *Schema, name string) SchemaField {
	t.Helper()
	for _, field := range schema.Fields {
		if field.Name == name {
			return field
		}
	}
	t.Fatalf("schema has no field %q (fields: %+v)", name, schema.Fields)
	return SchemaField{}
}

// TestAlignmentInvariant checks that every zero-copy leaf is written at an
// offset divisible by its max-alignment, across a struct that forces padding
// between a narrow and a wide field.
func TestAlignmentInvariant(t *testing.T) {
	serde := New(WithNoMismatchWarning())

	type padded struct {
		A uint8
		B uint64
		C uint16
		D []uint32
	}

	var sink bytes.Buffer
	schema, err := serde.SerializeWithSchema(padded{A: 1, B: 2, C: 3, D: []uint32{4, 5}}, &sink)
	if err != nil {
		t.Fatalf("serialize error: %v", err)
	}

	if off := schemaField(t, schema, "ROOT.B").Offset; off%8 != 0 {
		t.Errorf("uint64 field at offset %d, not 8-aligned", off)
	}
	if off := schemaField(t, schema, "ROOT.C").Offset; off%2 != 0 {
		t.Errorf("uint16 field at offset %d, not 2-aligned", off)
	}
	if off := schemaField(t, schema, "ROOT.D.len").Offset; off%8 != 0 {
		t.Errorf("length word at offset %d, not 8-aligned", off)
	}
	if off := schemaField(t, schema, "ROOT.D.data").Offset; off%4 != 0 {
		t.Errorf("uint32 run at offset %d, not 4-aligned", off)
	}
}

// TestLengthExactness checks that a sequence of n zero-copy elements occupies
// exactly size_of(len) + padding + n*size_of(elem) bytes.
func TestLengthExactness(t *testing.T) {
	serde := New(WithNoMismatchWarning())

	var sink bytes.Buffer
	schema, err := serde.SerializeWithSchema([]uint32{1, 2, 3}, &sink)
	if err != nil {
		t.Fatalf("serialize error: %v", err)
	}

	lenField := schemaField(t, schema, "ROOT.len")
	dataField := schemaField(t, schema, "ROOT.data")

	if lenField.Size != 8 {
		t.Errorf("length word size: got %d, wanted 8", lenField.Size)
	}
	if dataField.Size != 3*4 {
		t.Errorf("element run size: got %d, wanted 12", dataField.Size)
	}
	if dataField.Offset != lenField.Offset+8 {
		t.Errorf("unexpected padding between length word and 4-aligned run")
	}
	if sink.Len() != dataField.Offset+dataField.Size {
		t.Errorf("trailing bytes after element run: artifact is %d bytes, run ends at %d",
			sink.Len(), dataField.Offset+dataField.Size)
	}
}

// TestZeroCopyRunSingleWrite checks the slice-of-zero-copy fast path by
// comparing the raw element run against the source memory image.
func TestZeroCopyRunSingleWrite(t *testing.T) {
	serde := New(WithNoMismatchWarning())

	points := []Point{{2, 1}, {2, 1}}
	var sink bytes.Buffer
	schema, err := serde.SerializeWithSchema(points, &sink)
	if err != nil {
		t.Fatalf("serialize error: %v", err)
	}

	dataField := schemaField(t, schema, "ROOT.data")
	run := sink.Bytes()[dataField.Offset : dataField.Offset+dataField.Size]

	var expected bytes.Buffer
	for range points {
		for _, word := range []uint64{2, 1} {
			var scratch [8]byte
			putNativeUint64(scratch[:], word)
			expected.Write(scratch[:])
		}
	}
	if !bytes.Equal(run, expected.Bytes()) {
		t.Errorf("element run does not match the in-memory image:\ngot    %x\nwanted %x", run, expected.Bytes())
	}
}

// TestIteratorLengthMismatch checks that an iterator disagreeing with its
// advertised count aborts serialization in both directions.
func TestIteratorLengthMismatch(t *testing.T) {
	serde := New(WithNoMismatchWarning())

	short := NewIterSeq(5, SliceIter([]uint32{1, 2, 3}).Next)
	if _, err := serde.Serialize(short); !errors.Is(err, ErrIteratorLength) {
		t.Errorf("under-producing iterator: got %v, wanted ErrIteratorLength", err)
	}

	long := NewIterSeq(2, SliceIter([]uint32{1, 2, 3}).Next)
	if _, err := serde.Serialize(long); !errors.Is(err, ErrIteratorLength) {
		t.Errorf("over-producing iterator: got %v, wanted ErrIteratorLength", err)
	}
}

// TestIterSeqRoundtrip checks that an iterator-serialized artifact reads back
// as a plain slice on both paths.
func TestIterSeqRoundtrip(t *testing.T) {
	serde := New(WithNoMismatchWarning())

	buf, err := serde.Serialize(SliceIter([]uint32{10, 20, 30}))
	if err != nil {
		t.Fatalf("serialize error: %v", err)
	}

	var owned []uint32
	if err := serde.Deserialize(&owned, buf); err != nil {
		t.Fatalf("deserialize error: %v", err)
	}
	if len(owned) != 3 || owned[0] != 10 || owned[1] != 20 || owned[2] != 30 {
		t.Errorf("got %v, wanted [10 20 30]", owned)
	}

	view, err := DeserializeEpsWith[[]uint32](serde, buf)
	if err != nil {
		t.Fatalf("eps deserialize error: %v", err)
	}
	if got := *view.Get(); len(got) != 3 || got[2] != 30 {
		t.Errorf("eps got %v, wanted [10 20 30]", got)
	}
}

// TestIterSeqDeepElements checks iterator serialization of deep-copy
// elements, which recursively encodes each produced element.
func TestIterSeqDeepElements(t *testing.T) {
	serde := New(WithNoMismatchWarning())

	buf, err := serde.Serialize(SliceIter([]string{"x", "yy"}))
	if err != nil {
		t.Fatalf("serialize error: %v", err)
	}

	var owned []string
	if err := serde.Deserialize(&owned, buf); err != nil {
		t.Fatalf("deserialize error: %v", err)
	}
	if len(owned) != 2 || owned[0] != "x" || owned[1] != "yy" {
		t.Errorf("got %v, wanted [x yy]", owned)
	}
}

// TestSchemaOutput checks the diagnostic schema dump formats.
func TestSchemaOutput(t *testing.T) {
	serde := New(WithNoMismatchWarning())

	var sink bytes.Buffer
	schema, err := serde.SerializeWithSchema(Plain{A: 1, B: 2}, &sink)
	if err != nil {
		t.Fatalf("serialize error: %v", err)
	}

	yamlOut, err := schema.YAML()
	if err != nil {
		t.Fatalf("yaml error: %v", err)
	}
	for _, want := range []string{"MAGIC", "TYPE_HASH", "ROOT.A", "ROOT.B"} {
		if !strings.Contains(yamlOut, want) {
			t.Errorf("yaml dump is missing %q", want)
		}
		if !strings.Contains(schema.String(), want) {
			t.Errorf("table dump is missing %q", want)
		}
	}
}
