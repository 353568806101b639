// Copyright (c) 2025 epsio
// SPDX-License-Identifier: Apache-2.0
// This file is part of the epserde library.

package epserde

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// SchemaField describes one named field written by the serializer: its byte
// range in the artifact and a diagnostic type name.
type SchemaField struct {
	Name   string `yaml:"name"`
	Type   string `yaml:"type"`
	Offset int    `yaml:"offset"`
	Size   int    `yaml:"size"`
}

// Schema is the ordered list of named fields an artifact was written from,
// collected through the named-field sink during SerializeWithSchema. It
// exists for diagnostics only; the byte stream itself carries no field names.
type Schema struct {
	Fields []SchemaField `yaml:"fields"`
}

func (s *Schema) addField(name string, typeName string, offset int, size int) {
	s.Fields = append(s.Fields, SchemaField{
		Name:   name,
		Type:   typeName,
		Offset: offset,
		Size:   size,
	})
}

// YAML renders the schema as a YAML document.
func (s *Schema) YAML() (string, error) {
	out, err := yaml.Marshal(s)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// String renders the schema as a fixed-width table.
func (s *Schema) String() string {
	var b strings.Builder
	for _, field := range s.Fields {
		fmt.Fprintf(&b, "%8d %8d  %-24s %s\n", field.Offset, field.Size, field.Name, field.Type)
	}
	return b.String()
}
