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

package carbonbridge

import (
	"fmt"
	"strconv"

	"github.com/liutaobigdata/carbonbridge/schema"
	"github.com/liutaobigdata/carbonbridge/tensor"
)

// N-gram flattening. A timestep-indexed row group is turned into one flat row
// whose keys are "<field>_<positionIndex>", where positionIndex is the 0-based
// rank of the timestep among the sorted timesteps, not the raw offset.
//
// flattenOrder is the single source of field ordering. The flattened row, the
// dtype list (NGramDTypes) and the positional unflattening all derive from it,
// so the three can never drift apart.

// flatField locates one field of a flattened n-gram row.
type flatField struct {
	// Timestep is the raw timestep offset the field belongs to.
	Timestep int
	// Position is the 0-based rank of Timestep among the sorted timesteps.
	Position int
	// Name is the original schema field name.
	Name string
}

// Key returns the flattened field key, "<name>_<position>".
func (ff flatField) Key() string {
	return ff.Name + "_" + strconv.Itoa(ff.Position)
}

// flattenOrder enumerates the fields of a flattened n-gram row: timesteps
// ascending, then each timestep's fields in descriptor order. Every field
// named by the descriptor must exist in the schema.
func flattenOrder(s *schema.Schema, ng *schema.NGram) ([]flatField, error) {
	var order []flatField
	for pos, ts := range ng.Timesteps() {
		names, err := ng.FieldNamesAt(ts)
		if err != nil {
			return nil, err
		}
		for _, name := range names {
			if _, ok := s.Field(name); !ok {
				return nil, fmt.Errorf("ngram timestep %d names unknown schema field %q", ts, name)
			}
			order = append(order, flatField{Timestep: ts, Position: pos, Name: name})
		}
	}
	return order, nil
}

// Flatten converts a timestep-indexed row group into a single flat row.
// Every timestep named by the descriptor must be present in rows and carry
// values for all of its fields.
func Flatten(s *schema.Schema, ng *schema.NGram, rows map[int]*schema.Row) (*schema.Row, error) {
	order, err := flattenOrder(s, ng)
	if err != nil {
		return nil, err
	}
	flat := &schema.Row{}
	for _, ff := range order {
		row, ok := rows[ff.Timestep]
		if !ok {
			return nil, fmt.Errorf("ngram row group is missing timestep %d", ff.Timestep)
		}
		v, ok := row.Value(ff.Name)
		if !ok {
			return nil, fmt.Errorf("timestep %d row is missing field %q", ff.Timestep, ff.Name)
		}
		if err := flat.Append(ff.Key(), v); err != nil {
			return nil, err
		}
	}
	return flat, nil
}

// unflattenTensors reconstructs timestep-indexed tensor rows from a flat
// tensor list. Values are consumed strictly positionally: for each timestep in
// ascending order, exactly as many leading tensors as that timestep has
// fields. The list must have been produced in flattenOrder.
func unflattenTensors(ng *schema.NGram, flat []*tensor.Tensor) (map[int]TensorRow, error) {
	result := make(map[int]TensorRow, len(ng.Timesteps()))
	next := 0
	for _, ts := range ng.Timesteps() {
		names, err := ng.FieldNamesAt(ts)
		if err != nil {
			return nil, err
		}
		if next+len(names) > len(flat) {
			return nil, fmt.Errorf("flat tensor list too short: timestep %d needs %d values, %d left",
				ts, len(names), len(flat)-next)
		}
		row := make(TensorRow, len(names))
		for _, name := range names {
			row[name] = flat[next]
			next++
		}
		result[ts] = row
	}
	if next != len(flat) {
		return nil, fmt.Errorf("flat tensor list has %d values but the ngram consumes %d", len(flat), next)
	}
	return result, nil
}
