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

import "fmt"

// Row is an ordered named-value record. Unlike a bare map, a Row preserves
// the field order it was constructed with; the bridge relies on that order
// when pairing values with the dtype list.
type Row struct {
	names  []string
	values map[string]interface{}
}

// NewRow builds a Row from parallel name and value slices. Names must be
// non-empty and unique.
func NewRow(names []string, values []interface{}) (*Row, error) {
	if len(names) != len(values) {
		return nil, fmt.Errorf("row has %d names but %d values", len(names), len(values))
	}
	r := &Row{
		names:  make([]string, 0, len(names)),
		values: make(map[string]interface{}, len(names)),
	}
	for i, name := range names {
		if err := r.Append(name, values[i]); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Append adds a field to the end of the row's field order.
func (r *Row) Append(name string, value interface{}) error {
	if name == "" {
		return fmt.Errorf("row field with empty name")
	}
	if _, exists := r.values[name]; exists {
		return fmt.Errorf("duplicate row field %q", name)
	}
	if r.values == nil {
		r.values = make(map[string]interface{})
	}
	r.names = append(r.names, name)
	r.values[name] = value
	return nil
}

// Len returns the number of fields in the row.
func (r *Row) Len() int {
	return len(r.names)
}

// FieldNames returns the field names in row order.
func (r *Row) FieldNames() []string {
	names := make([]string, len(r.names))
	copy(names, r.names)
	return names
}

// Value returns the value stored under name.
func (r *Row) Value(name string) (interface{}, bool) {
	v, ok := r.values[name]
	return v, ok
}

// Values returns the row's values in field order.
func (r *Row) Values() []interface{} {
	values := make([]interface{}, 0, len(r.names))
	for _, name := range r.names {
		values = append(values, r.values[name])
	}
	return values
}
