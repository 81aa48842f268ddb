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
	"fmt"
	"sync"

	"github.com/apache/arrow/go/v12/arrow"

	"github.com/liutaobigdata/carbonbridge/schema"
	"github.com/liutaobigdata/carbonbridge/tensor"
)

// tensorOptions collects MakeTensor configuration.
type tensorOptions struct {
	shufflingQueueCapacity int
	minAfterDequeue        int
}

// TensorOption configures MakeTensor.
type TensorOption func(*tensorOptions)

// WithShufflingQueue routes produced rows through a bounded randomizing
// queue. capacity rows are held at most; dequeuing waits until more than
// minAfterDequeue rows are held, keeping the shuffle well mixed. A capacity
// of zero or less disables queueing.
func WithShufflingQueue(capacity, minAfterDequeue int) TensorOption {
	return func(o *tensorOptions) {
		o.shufflingQueueCapacity = capacity
		o.minAfterDequeue = minAfterDequeue
	}
}

// TensorSource is the "pull one row into the training graph" operation. Use
// Pull for plain readers and PullNGram for n-gram readers. A TensorSource is
// bound to its reader's lifetime; Close releases the queue and feeder if one
// was configured.
type TensorSource struct {
	reader RowReader
	sch    *schema.Schema
	ngram  *schema.NGram
	dtypes []arrow.DataType

	queue     *shuffleQueue
	startOnce sync.Once
	feedCtx   context.Context
	cancel    context.CancelFunc
	startErr  error
}

// MakeTensor bridges a RowReader to tensor rows. Dtypes are resolved eagerly
// so an unmappable field type fails here, before any row is pulled, as does a
// configuration combining pre-batched output with a shuffling queue (extra
// shuffling across already-assembled batches has no statistical benefit).
func MakeTensor(reader RowReader, opts ...TensorOption) (*TensorSource, error) {
	var o tensorOptions
	for _, opt := range opts {
		opt(&o)
	}

	if reader.BatchedOutput() && o.shufflingQueueCapacity > 0 {
		return nil, &ConfigurationError{
			Reason: "a shuffling queue can not be combined with a reader that produces batched output",
		}
	}

	sch := reader.Schema()
	ngram := reader.NGram()

	var (
		dtypes []arrow.DataType
		err    error
	)
	if ngram != nil {
		dtypes, err = NGramDTypes(sch, ngram)
	} else {
		dtypes, err = SchemaDTypes(sch)
	}
	if err != nil {
		return nil, err
	}

	ts := &TensorSource{
		reader: reader,
		sch:    sch,
		ngram:  ngram,
		dtypes: dtypes,
	}
	if o.shufflingQueueCapacity > 0 {
		queue, err := newShuffleQueue(o.shufflingQueueCapacity, o.minAfterDequeue, dtypes)
		if err != nil {
			return nil, err
		}
		ts.queue = queue
		ts.feedCtx, ts.cancel = context.WithCancel(context.Background())
	}
	return ts, nil
}

// Pull produces the next named tensor row from a plain (non n-gram) reader.
// Exhaustion surfaces as the reader's own io.EOF.
func (ts *TensorSource) Pull(ctx context.Context) (TensorRow, error) {
	if ts.ngram != nil {
		return nil, &ConfigurationError{Reason: "reader produces ngrams, use PullNGram"}
	}

	var flat []*tensor.Tensor
	var err error
	if ts.queue != nil {
		ts.ensureFeeder(ts.pullFlatRow)
		if ts.startErr != nil {
			return nil, ts.startErr
		}
		flat, err = ts.queue.Dequeue(ctx)
	} else {
		flat, err = ts.pullFlatRow(ctx)
	}
	if err != nil {
		return nil, err
	}

	row := make(TensorRow, ts.sch.Len())
	for i, name := range ts.sch.FieldNames() {
		row[name] = flat[i]
	}
	if err := setRowShapes(ts.sch, row, ts.reader.BatchedOutput()); err != nil {
		row.Release()
		return nil, err
	}
	return row, nil
}

// PullNGram produces the next timestep-indexed tensor rows from an n-gram
// reader. Exhaustion surfaces as the reader's own io.EOF.
func (ts *TensorSource) PullNGram(ctx context.Context) (map[int]TensorRow, error) {
	if ts.ngram == nil {
		return nil, &ConfigurationError{Reason: "reader does not produce ngrams, use Pull"}
	}

	var flat []*tensor.Tensor
	var err error
	if ts.queue != nil {
		ts.ensureFeeder(ts.pullFlatNGram)
		if ts.startErr != nil {
			return nil, ts.startErr
		}
		flat, err = ts.queue.Dequeue(ctx)
	} else {
		flat, err = ts.pullFlatNGram(ctx)
	}
	if err != nil {
		return nil, err
	}

	result, err := unflattenTensors(ts.ngram, flat)
	if err != nil {
		for _, t := range flat {
			t.Release()
		}
		return nil, err
	}
	for _, row := range result {
		if err := setRowShapes(ts.sch, row, false); err != nil {
			for _, r := range result {
				r.Release()
			}
			return nil, err
		}
	}
	return result, nil
}

// Close shuts down the shuffling queue and its feeder, if any.
func (ts *TensorSource) Close() error {
	if ts.cancel != nil {
		ts.cancel()
	}
	if ts.queue != nil {
		ts.queue.Close()
	}
	return nil
}

// ensureFeeder starts the queue's single feeder on first use. Creating
// exactly one enqueue task per queue is what makes concurrent Pulls safe
// against a reader whose internal state tolerates only one producer.
func (ts *TensorSource) ensureFeeder(feed func(context.Context) ([]*tensor.Tensor, error)) {
	ts.startOnce.Do(func() {
		ts.startErr = ts.queue.Start(ts.feedCtx, feed)
	})
}

// pullFlatRow reads, sanitizes and materializes one plain row as a flat
// tensor list in schema declaration order.
func (ts *TensorSource) pullFlatRow(ctx context.Context) ([]*tensor.Tensor, error) {
	row, err := ts.reader.Next(ctx)
	if err != nil {
		return nil, err
	}
	sanitized, err := SanitizeRow(row)
	if err != nil {
		return nil, err
	}
	return ts.materialize(ts.sch.FieldNames(), sanitized)
}

// pullFlatNGram reads one timestep-indexed row group, sanitizes each
// timestep's row independently, flattens, and materializes the flat row in
// flatten order.
func (ts *TensorSource) pullFlatNGram(ctx context.Context) ([]*tensor.Tensor, error) {
	group, err := ts.reader.NextNGram(ctx)
	if err != nil {
		return nil, err
	}
	sanitized := make(map[int]*schema.Row, len(group))
	for timestep, row := range group {
		s, err := SanitizeRow(row)
		if err != nil {
			return nil, err
		}
		sanitized[timestep] = s
	}
	flat, err := Flatten(ts.sch, ts.ngram, sanitized)
	if err != nil {
		return nil, err
	}
	return ts.materialize(flat.FieldNames(), flat)
}

// materialize builds the flat tensor list for the named fields of a
// sanitized row. names and ts.dtypes are in the same order by construction;
// both derive from the schema (plain path) or from flattenOrder (ngram path).
func (ts *TensorSource) materialize(names []string, row *schema.Row) ([]*tensor.Tensor, error) {
	if len(names) != len(ts.dtypes) {
		return nil, fmt.Errorf("row has %d fields but %d dtypes are declared", len(names), len(ts.dtypes))
	}
	tensors := make([]*tensor.Tensor, 0, len(names))
	for i, name := range names {
		v, ok := row.Value(name)
		if !ok {
			return nil, fmt.Errorf("sanitized row is missing field %q", name)
		}
		t, err := tensor.New(ts.dtypes[i], v)
		if err != nil {
			for _, built := range tensors {
				built.Release()
			}
			return nil, fmt.Errorf("field %q: %w", name, err)
		}
		tensors = append(tensors, t)
	}
	return tensors, nil
}
