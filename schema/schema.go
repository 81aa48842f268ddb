//
// SPDX-License-Identifier: GPL-3.0-or-later
//
// Copyright (C) 2025 CarbonBridge Authors
//
// This file is part of CarbonBridge.
//
// CarbonBridge is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// CarbonBridge is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with CarbonBridge. If not, see https://www.gnu.org/licenses/.

package schema

import (
	"fmt"
)

// Package schema describes the field layout of rows produced by a dataset
// reader: per-field element types and static shapes, plus the n-gram
// descriptor used for time-indexed reading.
//
// A Schema is read-only after construction and safe for concurrent use.

// ElementType identifies the declared element type of a schema field.
// The zero value is Unknown and never maps to a tensor dtype.
type ElementType int

const (
	Unknown ElementType = iota
	Bool
	Int8
	Int16
	Int32
	Int64
	Uint8
	Uint16
	Uint32
	Uint64
	Float32
	Float64
	Bytes
	String
	Decimal
	TimestampNano
	Date
)

var elementTypeNames = map[ElementType]string{
	Unknown:       "unknown",
	Bool:          "bool",
	Int8:          "int8",
	Int16:         "int16",
	Int32:         "int32",
	Int64:         "int64",
	Uint8:         "uint8",
	Uint16:        "uint16",
	Uint32:        "uint32",
	Uint64:        "uint64",
	Float32:       "float32",
	Float64:       "float64",
	Bytes:         "bytes",
	String:        "string",
	Decimal:       "decimal",
	TimestampNano: "timestamp[ns]",
	Date:          "date",
}

// String returns a human-readable name for the element type.
func (t ElementType) String() string {
	if name, ok := elementTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("element_type(%d)", int(t))
}

// Field describes a single schema field: its name, declared element type and
// declared static shape. A -1 dimension marks an unbound size.
type Field struct {
	Name  string
	Type  ElementType
	Shape []int
}

// Schema is an ordered collection of Fields. Field iteration order is the
// declaration order passed to New; that order drives tensor and dtype list
// construction throughout the bridge.
type Schema struct {
	names  []string
	fields map[string]Field
}

// New creates a Schema from the given fields. Field names must be non-empty
// and unique.
func New(fields ...Field) (*Schema, error) {
	if len(fields) == 0 {
		return nil, fmt.Errorf("schema must declare at least one field")
	}
	s := &Schema{
		names:  make([]string, 0, len(fields)),
		fields: make(map[string]Field, len(fields)),
	}
	for _, f := range fields {
		if f.Name == "" {
			return nil, fmt.Errorf("schema field with empty name")
		}
		if _, exists := s.fields[f.Name]; exists {
			return nil, fmt.Errorf("duplicate schema field %q", f.Name)
		}
		s.names = append(s.names, f.Name)
		s.fields[f.Name] = f
	}
	return s, nil
}

// Len returns the number of fields in the schema.
func (s *Schema) Len() int {
	return len(s.names)
}

// FieldNames returns the field names in declaration order.
func (s *Schema) FieldNames() []string {
	names := make([]string, len(s.names))
	copy(names, s.names)
	return names
}

// Field returns the descriptor for the named field.
func (s *Schema) Field(name string) (Field, bool) {
	f, ok := s.fields[name]
	return f, ok
}

// Fields returns the field descriptors in declaration order.
func (s *Schema) Fields() []Field {
	fields := make([]Field, 0, len(s.names))
	for _, name := range s.names {
		fields = append(fields, s.fields[name])
	}
	return fields
}

// Subset returns a new Schema restricted to the given field names, in the
// order given. Every name must exist in the receiver.
func (s *Schema) Subset(names ...string) (*Schema, error) {
	fields := make([]Field, 0, len(names))
	for _, name := range names {
		f, ok := s.fields[name]
		if !ok {
			return nil, fmt.Errorf("schema has no field %q", name)
		}
		fields = append(fields, f)
	}
	return New(fields...)
}

// MakeRow builds a Row from values given in schema declaration order.
// The value count must match the field count exactly.
func (s *Schema) MakeRow(values ...interface{}) (*Row, error) {
	if len(values) != len(s.names) {
		return nil, fmt.Errorf("schema has %d fields but %d values given", len(s.names), len(values))
	}
	return NewRow(s.FieldNames(), values)
}

// RowFromMap builds a Row in schema declaration order from a name-keyed value
// map. Every schema field must be present in the map.
func (s *Schema) RowFromMap(values map[string]interface{}) (*Row, error) {
	ordered := make([]interface{}, 0, len(s.names))
	for _, name := range s.names {
		v, ok := values[name]
		if !ok {
			return nil, fmt.Errorf("value map is missing schema field %q", name)
		}
		ordered = append(ordered, v)
	}
	return NewRow(s.FieldNames(), ordered)
}
