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
	"sort"
)

// NGram describes time-indexed reading: a mapping from integer timestep
// offsets to the subset of schema fields active at that timestep. Timesteps
// must form a contiguous integer range.
type NGram struct {
	timesteps []int
	fields    map[int][]string
}

// NewNGram creates an NGram descriptor from a timestep to field-name mapping.
// Field-name order per timestep is preserved as given.
func NewNGram(fields map[int][]string) (*NGram, error) {
	if len(fields) == 0 {
		return nil, fmt.Errorf("ngram must declare at least one timestep")
	}
	ng := &NGram{
		timesteps: make([]int, 0, len(fields)),
		fields:    make(map[int][]string, len(fields)),
	}
	for ts, names := range fields {
		if len(names) == 0 {
			return nil, fmt.Errorf("ngram timestep %d declares no fields", ts)
		}
		ng.timesteps = append(ng.timesteps, ts)
		copied := make([]string, len(names))
		copy(copied, names)
		ng.fields[ts] = copied
	}
	sort.Ints(ng.timesteps)
	for i := 1; i < len(ng.timesteps); i++ {
		if ng.timesteps[i] != ng.timesteps[i-1]+1 {
			return nil, fmt.Errorf("ngram timesteps must be contiguous: gap between %d and %d",
				ng.timesteps[i-1], ng.timesteps[i])
		}
	}
	return ng, nil
}

// Timesteps returns the timesteps in ascending order.
func (ng *NGram) Timesteps() []int {
	timesteps := make([]int, len(ng.timesteps))
	copy(timesteps, ng.timesteps)
	return timesteps
}

// MinTimestep returns the smallest timestep offset.
func (ng *NGram) MinTimestep() int {
	return ng.timesteps[0]
}

// MaxTimestep returns the largest timestep offset.
func (ng *NGram) MaxTimestep() int {
	return ng.timesteps[len(ng.timesteps)-1]
}

// FieldNamesAt returns the field names active at the given timestep, in
// descriptor order.
func (ng *NGram) FieldNamesAt(timestep int) ([]string, error) {
	names, ok := ng.fields[timestep]
	if !ok {
		return nil, fmt.Errorf("ngram has no timestep %d", timestep)
	}
	copied := make([]string, len(names))
	copy(copied, names)
	return copied, nil
}

// SchemaAt returns the schema restricted to the fields active at the given
// timestep, in descriptor order.
func (ng *NGram) SchemaAt(s *Schema, timestep int) (*Schema, error) {
	names, err := ng.FieldNamesAt(timestep)
	if err != nil {
		return nil, err
	}
	return s.Subset(names...)
}
