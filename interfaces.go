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
	"context"

	"github.com/liutaobigdata/carbonbridge/schema"
	"github.com/liutaobigdata/carbonbridge/tensor"
)

// Package carbonbridge bridges a row-oriented dataset reader to tensor-typed
// records for machine-learning training. It converts rows (flat or
// time-indexed n-gram sequences) into arrow-typed tensors with static shapes,
// optionally shuffling them through a bounded randomizing queue.
//
// This file declares the reader contract the bridge consumes and the record
// type it produces.

// RowReader is the row source consumed by the bridge. Implementations stream
// one row (or one timestep-indexed row group) at a time and report io.EOF on
// exhaustion. Readers are not safe for concurrent pulls; the bridge enforces
// single-producer access by construction.
type RowReader interface {
	// Schema returns the reader's field layout. Read-only to the bridge.
	Schema() *schema.Schema
	// NGram returns the n-gram descriptor, or nil for plain row reading.
	NGram() *schema.NGram
	// BatchedOutput reports whether rows are pre-batched, i.e. every field
	// value carries a leading batch dimension.
	BatchedOutput() bool
	// LastRowConsumed reports whether the reader has handed out its final row.
	LastRowConsumed() bool
	// Next returns the next row, blocking until one is available or the
	// reader is exhausted (io.EOF). Valid only when NGram() is nil.
	Next(ctx context.Context) (*schema.Row, error)
	// NextNGram returns the next timestep-indexed row group. Valid only when
	// NGram() is non-nil.
	NextNGram(ctx context.Context) (map[int]*schema.Row, error)
}

// TensorRow is a named record of produced tensors. Field order is defined by
// the schema, not by map iteration.
type TensorRow map[string]*tensor.Tensor

// Release frees the arrow buffers held by every tensor in the row.
func (r TensorRow) Release() {
	for _, t := range r {
		t.Release()
	}
}
