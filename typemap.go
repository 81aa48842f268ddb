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
	"sync"

	"github.com/apache/arrow/go/v12/arrow"
	"github.com/sirupsen/logrus"

	"github.com/liutaobigdata/carbonbridge/schema"
)

// Mapping from declared schema element types to arrow tensor dtypes. Built
// once at package initialization and never mutated, so concurrent reads need
// no locking.
var tensorDTypes = map[schema.ElementType]arrow.DataType{
	schema.Bool:  arrow.FixedWidthTypes.Boolean,
	schema.Int8:  arrow.PrimitiveTypes.Int8,
	schema.Int16: arrow.PrimitiveTypes.Int16,
	schema.Int32: arrow.PrimitiveTypes.Int32,
	schema.Int64: arrow.PrimitiveTypes.Int64,
	schema.Uint8: arrow.PrimitiveTypes.Uint8,
	// uint16 has no tensor equivalent; widened to int32 to avoid overflow.
	schema.Uint16:  arrow.PrimitiveTypes.Int32,
	schema.Uint32:  arrow.PrimitiveTypes.Uint32,
	schema.Uint64:  arrow.PrimitiveTypes.Uint64,
	schema.Float32: arrow.PrimitiveTypes.Float32,
	schema.Float64: arrow.PrimitiveTypes.Float64,
	schema.Bytes:   arrow.BinaryTypes.String,
	schema.String:  arrow.BinaryTypes.String,
	// No decimal tensor dtype; decimals travel as normalized strings.
	schema.Decimal: arrow.BinaryTypes.String,
	// Timestamps and dates travel as nanoseconds since the Unix epoch.
	schema.TimestampNano: arrow.PrimitiveTypes.Int64,
	schema.Date:          arrow.PrimitiveTypes.Int64,
}

var unicodeAdvisoryOnce sync.Once

// TensorDType returns the arrow dtype corresponding to a declared element
// type. A *TypeMappingError is returned if there is no known mapping.
func TensorDType(t schema.ElementType) (arrow.DataType, error) {
	dt, ok := tensorDTypes[t]
	if !ok {
		return nil, &TypeMappingError{Type: t}
	}
	if t == schema.String {
		unicodeAdvisoryOnce.Do(func() {
			logrus.Warn("string tensors are materialized as raw bytes, not code-point " +
				"sequences; decode values explicitly downstream")
		})
	}
	return dt, nil
}

// SchemaDTypes returns the tensor dtypes for every schema field, in schema
// declaration order.
func SchemaDTypes(s *schema.Schema) ([]arrow.DataType, error) {
	dtypes := make([]arrow.DataType, 0, s.Len())
	for _, f := range s.Fields() {
		dt, err := TensorDType(f.Type)
		if err != nil {
			return nil, err
		}
		dtypes = append(dtypes, dt)
	}
	return dtypes, nil
}

// NGramDTypes returns the tensor dtypes for an n-gram reader's flattened
// output. The result order equals the flatten order, so the dtype list and
// the flat value list line up positionally.
func NGramDTypes(s *schema.Schema, ng *schema.NGram) ([]arrow.DataType, error) {
	order, err := flattenOrder(s, ng)
	if err != nil {
		return nil, err
	}
	dtypes := make([]arrow.DataType, 0, len(order))
	for _, ff := range order {
		f, _ := s.Field(ff.Name)
		dt, err := TensorDType(f.Type)
		if err != nil {
			return nil, err
		}
		dtypes = append(dtypes, dt)
	}
	return dtypes, nil
}
