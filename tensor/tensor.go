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

package tensor

import (
	"fmt"

	"github.com/apache/arrow/go/v12/arrow"
	"github.com/apache/arrow/go/v12/arrow/array"
	"github.com/apache/arrow/go/v12/arrow/memory"
)

// Package tensor materializes sanitized row values as arrow arrays typed by
// the bridge's dtype mapping, and carries the static shape annotation the
// training side relies on for shape inference.

// Tensor couples an arrow-typed value buffer with its dtype and a static
// shape annotation. The buffer is always flat; the shape describes how it is
// to be interpreted. A -1 dimension marks an unbound size.
type Tensor struct {
	dtype arrow.DataType
	data  arrow.Array
	value interface{}
	shape []int
}

// New materializes a sanitized scalar or slice value as a Tensor of the given
// dtype. The value must already be in sanitized form; unsupported value types
// for the dtype's builder are an error.
func New(dtype arrow.DataType, value interface{}) (*Tensor, error) {
	alloc := memory.NewGoAllocator()
	builder := array.NewBuilder(alloc, dtype)
	defer builder.Release()

	if err := appendValue(builder, value); err != nil {
		return nil, fmt.Errorf("tensor of dtype %s: %w", dtype.Name(), err)
	}
	return &Tensor{
		dtype: dtype,
		data:  builder.NewArray(),
		value: value,
	}, nil
}

// DType returns the tensor's arrow dtype.
func (t *Tensor) DType() arrow.DataType {
	return t.dtype
}

// Data returns the materialized arrow array.
func (t *Tensor) Data() arrow.Array {
	return t.data
}

// Value returns the sanitized Go value the tensor was built from.
func (t *Tensor) Value() interface{} {
	return t.value
}

// Len returns the number of elements in the flat buffer.
func (t *Tensor) Len() int {
	return t.data.Len()
}

// Shape returns the static shape annotation, or nil if none has been applied.
func (t *Tensor) Shape() []int {
	if t.shape == nil {
		return nil
	}
	shape := make([]int, len(t.shape))
	copy(shape, t.shape)
	return shape
}

// SetShape applies a static shape annotation. String-backed buffers in
// particular carry no dimension information of their own, so downstream shape
// inference needs the declared shape applied explicitly.
func (t *Tensor) SetShape(dims []int) {
	t.shape = make([]int, len(dims))
	copy(t.shape, dims)
}

// Release frees the underlying arrow buffers.
func (t *Tensor) Release() {
	if t.data != nil {
		t.data.Release()
		t.data = nil
	}
}

// appendValue appends a scalar or a slice to the builder matching its
// concrete type. Sanitized rows only ever carry the types handled here.
func appendValue(builder array.Builder, value interface{}) error {
	switch b := builder.(type) {
	case *array.BooleanBuilder:
		switch v := value.(type) {
		case bool:
			b.Append(v)
		case []bool:
			b.AppendValues(v, nil)
		default:
			return typeError(value)
		}
	case *array.Int8Builder:
		switch v := value.(type) {
		case int8:
			b.Append(v)
		case []int8:
			b.AppendValues(v, nil)
		default:
			return typeError(value)
		}
	case *array.Int16Builder:
		switch v := value.(type) {
		case int16:
			b.Append(v)
		case []int16:
			b.AppendValues(v, nil)
		default:
			return typeError(value)
		}
	case *array.Int32Builder:
		switch v := value.(type) {
		case int32:
			b.Append(v)
		case []int32:
			b.AppendValues(v, nil)
		case int:
			b.Append(int32(v))
		default:
			return typeError(value)
		}
	case *array.Int64Builder:
		switch v := value.(type) {
		case int64:
			b.Append(v)
		case []int64:
			b.AppendValues(v, nil)
		case int:
			b.Append(int64(v))
		default:
			return typeError(value)
		}
	case *array.Uint8Builder:
		switch v := value.(type) {
		case uint8:
			b.Append(v)
		case []uint8:
			b.AppendValues(v, nil)
		default:
			return typeError(value)
		}
	case *array.Uint32Builder:
		switch v := value.(type) {
		case uint32:
			b.Append(v)
		case []uint32:
			b.AppendValues(v, nil)
		default:
			return typeError(value)
		}
	case *array.Uint64Builder:
		switch v := value.(type) {
		case uint64:
			b.Append(v)
		case []uint64:
			b.AppendValues(v, nil)
		default:
			return typeError(value)
		}
	case *array.Float32Builder:
		switch v := value.(type) {
		case float32:
			b.Append(v)
		case []float32:
			b.AppendValues(v, nil)
		default:
			return typeError(value)
		}
	case *array.Float64Builder:
		switch v := value.(type) {
		case float64:
			b.Append(v)
		case []float64:
			b.AppendValues(v, nil)
		default:
			return typeError(value)
		}
	case *array.StringBuilder:
		switch v := value.(type) {
		case string:
			b.Append(v)
		case []string:
			b.AppendValues(v, nil)
		case []byte:
			b.Append(string(v))
		default:
			return typeError(value)
		}
	default:
		return fmt.Errorf("unsupported builder %T", builder)
	}
	return nil
}

func typeError(value interface{}) error {
	return fmt.Errorf("value type %T does not match dtype", value)
}
