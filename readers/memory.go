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

package readers

import (
	"context"
	"fmt"
	"io"

	"github.com/liutaobigdata/carbonbridge"
	"github.com/liutaobigdata/carbonbridge/schema"
)

// Package readers provides RowReader implementations for the bridge.
//
// This file implements an in-memory reader over a fixed row slice. It is the
// reference implementation of the reader contract: epoch configuration,
// pre-batched output flagging, and n-gram window iteration.

// MemoryReader is a carbonbridge.RowReader over an in-memory row slice. One
// epoch is one pass over the rows (or, in n-gram mode, over every contiguous
// window of rows). Not safe for concurrent pulls, matching the reader
// contract.
type MemoryReader struct {
	sch       *schema.Schema
	ngram     *schema.NGram
	rows      []*schema.Row
	batched   bool
	numEpochs int

	epoch    int
	pos      int
	consumed bool
}

// Option configures a MemoryReader.
type Option func(*MemoryReader)

// WithNumEpochs sets how many passes over the rows the reader yields before
// reporting exhaustion. This is the mechanism to use instead of re-iterating
// an exhausted dataset.
func WithNumEpochs(n int) Option {
	return func(r *MemoryReader) {
		r.numEpochs = n
	}
}

// WithBatchedOutput marks the reader's rows as pre-batched: every field value
// carries a leading batch dimension.
func WithBatchedOutput() Option {
	return func(r *MemoryReader) {
		r.batched = true
	}
}

// WithNGram switches the reader to n-gram mode. Each pull yields one
// contiguous window of rows keyed by the descriptor's timestep offsets, with
// every timestep's row restricted to the fields active at that timestep.
func WithNGram(ng *schema.NGram) Option {
	return func(r *MemoryReader) {
		r.ngram = ng
	}
}

// NewMemoryReader creates a reader over rows, which must all match the
// schema. The default is a single epoch of plain (non n-gram) rows.
func NewMemoryReader(sch *schema.Schema, rows []*schema.Row, opts ...Option) (*MemoryReader, error) {
	r := &MemoryReader{
		sch:       sch,
		rows:      rows,
		numEpochs: 1,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.numEpochs < 1 {
		return nil, fmt.Errorf("numEpochs must be at least 1, got %d", r.numEpochs)
	}
	for i, row := range rows {
		if row.Len() != sch.Len() {
			return nil, fmt.Errorf("row %d has %d fields, schema has %d", i, row.Len(), sch.Len())
		}
		for _, name := range sch.FieldNames() {
			if _, ok := row.Value(name); !ok {
				return nil, fmt.Errorf("row %d is missing schema field %q", i, name)
			}
		}
	}
	return r, nil
}

// Schema returns the reader's field layout.
func (r *MemoryReader) Schema() *schema.Schema {
	return r.sch
}

// NGram returns the n-gram descriptor, or nil in plain mode.
func (r *MemoryReader) NGram() *schema.NGram {
	return r.ngram
}

// BatchedOutput reports whether rows are pre-batched.
func (r *MemoryReader) BatchedOutput() bool {
	return r.batched
}

// LastRowConsumed reports whether the reader has handed out its final row.
func (r *MemoryReader) LastRowConsumed() bool {
	return r.consumed
}

// Next returns the next row, or io.EOF after the configured number of epochs.
func (r *MemoryReader) Next(ctx context.Context) (*schema.Row, error) {
	if r.ngram != nil {
		return nil, fmt.Errorf("reader is in ngram mode, use NextNGram")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if r.pos >= len(r.rows) {
		r.epoch++
		r.pos = 0
		if r.epoch >= r.numEpochs || len(r.rows) == 0 {
			r.consumed = true
			return nil, io.EOF
		}
	}
	row := r.rows[r.pos]
	r.pos++
	if r.pos >= len(r.rows) && r.epoch == r.numEpochs-1 {
		r.consumed = true
	}
	return row, nil
}

// NextNGram returns the next contiguous window of rows keyed by timestep, or
// io.EOF after the configured number of epochs.
func (r *MemoryReader) NextNGram(ctx context.Context) (map[int]*schema.Row, error) {
	if r.ngram == nil {
		return nil, fmt.Errorf("reader is not in ngram mode, use Next")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	span := r.ngram.MaxTimestep() - r.ngram.MinTimestep() + 1
	windows := len(r.rows) - span + 1
	if windows < 1 {
		r.consumed = true
		return nil, io.EOF
	}
	if r.pos >= windows {
		r.epoch++
		r.pos = 0
		if r.epoch >= r.numEpochs {
			r.consumed = true
			return nil, io.EOF
		}
	}
	group := make(map[int]*schema.Row, span)
	for _, timestep := range r.ngram.Timesteps() {
		base := r.rows[r.pos+timestep-r.ngram.MinTimestep()]
		sub, err := r.ngram.SchemaAt(r.sch, timestep)
		if err != nil {
			return nil, err
		}
		values := make(map[string]interface{}, sub.Len())
		for _, name := range sub.FieldNames() {
			v, _ := base.Value(name)
			values[name] = v
		}
		row, err := sub.RowFromMap(values)
		if err != nil {
			return nil, err
		}
		group[timestep] = row
	}
	r.pos++
	if r.pos >= windows && r.epoch == r.numEpochs-1 {
		r.consumed = true
	}
	return group, nil
}

var _ carbonbridge.RowReader = (*MemoryReader)(nil)
