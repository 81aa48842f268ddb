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
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/liutaobigdata/carbonbridge/schema"
)

// SanitizeRow rewrites field values of types the tensor layer cannot hold
// into supported representations and returns a new row; the input row is not
// modified. Rewrites applied:
//
//   - decimal.Decimal to its normalized string form (trailing fractional
//     zeros stripped)
//   - time.Time and []time.Time to int64 nanoseconds since the Unix epoch,
//     using integer arithmetic
//   - uint16 and []uint16 to int32 and []int32 (widened, no tensor uint16
//     dtype)
//   - [][]byte to []string
//   - []interface{} whose first element is a time.Time to []int64
//     nanoseconds, elementwise (some upstream parsers yield native date
//     objects for date-typed columns)
//
// A nil value in any field fails with a *NullValueError naming the field;
// rows with absent values must be filtered upstream. All other values pass
// through unchanged.
func SanitizeRow(row *schema.Row) (*schema.Row, error) {
	names := row.FieldNames()
	values := make([]interface{}, 0, len(names))
	for _, name := range names {
		v, _ := row.Value(name)
		if v == nil {
			return nil, &NullValueError{Field: name}
		}
		sanitized, err := sanitizeValue(v)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", name, err)
		}
		values = append(values, sanitized)
	}
	return schema.NewRow(names, values)
}

func sanitizeValue(v interface{}) (interface{}, error) {
	switch value := v.(type) {
	case decimal.Decimal:
		return normalizeDecimalString(value.String()), nil
	case time.Time:
		return value.UnixNano(), nil
	case []time.Time:
		nanos := make([]int64, len(value))
		for i, t := range value {
			nanos[i] = t.UnixNano()
		}
		return nanos, nil
	case uint16:
		return int32(value), nil
	case []uint16:
		widened := make([]int32, len(value))
		for i, u := range value {
			widened[i] = int32(u)
		}
		return widened, nil
	case [][]byte:
		strs := make([]string, len(value))
		for i, b := range value {
			strs[i] = string(b)
		}
		return strs, nil
	case []interface{}:
		if len(value) == 0 {
			return value, nil
		}
		if _, ok := value[0].(time.Time); !ok {
			return value, nil
		}
		nanos := make([]int64, len(value))
		for i, elem := range value {
			t, ok := elem.(time.Time)
			if !ok {
				return nil, fmt.Errorf("mixed date array: element %d is %T, not time.Time", i, elem)
			}
			nanos[i] = t.UnixNano()
		}
		return nanos, nil
	default:
		return v, nil
	}
}

// normalizeDecimalString strips trailing fractional zeros, keeping the
// decimal point only when a fractional part remains. "1.2300" becomes "1.23",
// "1.000" becomes "1", "120" stays "120". Inconsistent zero padding would
// break value-equality checks downstream.
func normalizeDecimalString(s string) string {
	if !strings.Contains(s, ".") {
		return s
	}
	s = strings.TrimRight(s, "0")
	return strings.TrimSuffix(s, ".")
}
