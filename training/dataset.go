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

package training

import (
	"context"
	"fmt"

	"github.com/gomlx/gomlx/pkg/core/tensors"

	"github.com/liutaobigdata/carbonbridge"
	"github.com/liutaobigdata/carbonbridge/schema"
)

// Package training adapts a carbonbridge.Dataset to the gomlx train.Dataset
// contract (Name / Reset / Yield), so a bridged reader can feed a gomlx
// training loop directly. Yield terminates an epoch with io.EOF, per the
// gomlx convention.

// Dataset implements the gomlx train.Dataset contract over a single-pass
// carbonbridge.Dataset.
type Dataset struct {
	name   string
	ds     *carbonbridge.Dataset
	sch    *schema.Schema
	labels map[string]bool

	resetRequested bool
}

// DatasetOption configures NewDataset.
type DatasetOption func(*Dataset)

// WithLabelFields names the schema fields yielded as labels. All remaining
// fields are yielded as inputs. Without this option every field is an input
// and the label slice is empty.
func WithLabelFields(names ...string) DatasetOption {
	return func(d *Dataset) {
		d.labels = make(map[string]bool, len(names))
		for _, name := range names {
			d.labels[name] = true
		}
	}
}

// NewDataset bridges a RowReader into a dataset consumable by gomlx training
// loops. String-typed fields (bytes, unicode, decimal) cannot become gomlx
// tensors and are rejected here, before any row is pulled.
func NewDataset(name string, reader carbonbridge.RowReader, opts ...DatasetOption) (*Dataset, error) {
	sch := reader.Schema()
	for _, f := range sch.Fields() {
		switch f.Type {
		case schema.Bytes, schema.String, schema.Decimal:
			return nil, fmt.Errorf("field %q has string-typed element type %s: gomlx tensors have no string dtype", f.Name, f.Type)
		}
	}
	ds, err := carbonbridge.MakeDataset(reader)
	if err != nil {
		return nil, err
	}
	d := &Dataset{
		name: name,
		ds:   ds,
		sch:  sch,
	}
	for _, opt := range opts {
		opt(d)
	}
	for name := range d.labels {
		if _, ok := sch.Field(name); !ok {
			return nil, fmt.Errorf("label field %q is not in the schema", name)
		}
	}
	return d, nil
}

// Name identifies the dataset to the training loop.
func (d *Dataset) Name() string {
	return d.name
}

// Reset arms the restart guard instead of rewinding: the underlying dataset
// is single-pass, and the next Yield reports the restart error. Configure
// epochs on the reader for multiple passes.
func (d *Dataset) Reset() {
	d.resetRequested = true
}

// Yield produces one row as gomlx tensors. The spec is the bridge schema;
// io.EOF signals normal end of data.
func (d *Dataset) Yield() (spec any, inputs, labels []*tensors.Tensor, err error) {
	if d.resetRequested {
		return nil, nil, nil, &carbonbridge.RestartError{}
	}
	row, err := d.ds.Next(context.Background())
	if err != nil {
		return nil, nil, nil, err
	}
	defer row.Release()

	for _, name := range d.sch.FieldNames() {
		t := tensors.FromAnyValue(row[name].Value())
		if d.labels[name] {
			labels = append(labels, t)
		} else {
			inputs = append(inputs, t)
		}
	}
	return d.sch, inputs, labels, nil
}
