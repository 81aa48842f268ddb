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
	"errors"
	"fmt"
	"io"

	"github.com/apache/arrow/go/v12/arrow"

	"github.com/liutaobigdata/carbonbridge/schema"
	"github.com/liutaobigdata/carbonbridge/tensor"
)

// Dataset is a lazy, finite, single-pass sequence of sanitized, typed,
// shape-annotated tensor rows. It carries no shuffling queue. Once exhausted
// it can not be re-entered: configure epochs on the reader instead.
type Dataset struct {
	reader    RowReader
	sch       *schema.Schema
	dtypes    []arrow.DataType
	exhausted bool
}

// MakeDataset bridges a RowReader to a Dataset. N-gram readers are not
// supported; requesting one fails permanently with a *ConfigurationError. A
// reader that has already handed out its final row fails with a
// *RestartError, since starting a dataset on it could only ever mean an
// implicit (and expensive) rewind.
func MakeDataset(reader RowReader) (*Dataset, error) {
	if reader.NGram() != nil {
		return nil, &ConfigurationError{Reason: "datasets do not support ngram readers"}
	}
	if reader.LastRowConsumed() {
		return nil, &RestartError{}
	}
	dtypes, err := SchemaDTypes(reader.Schema())
	if err != nil {
		return nil, err
	}
	return &Dataset{
		reader: reader,
		sch:    reader.Schema(),
		dtypes: dtypes,
	}, nil
}

// Next produces the next tensor row. It returns io.EOF exactly once when the
// reader is exhausted; any call after that fails with a *RestartError.
func (d *Dataset) Next(ctx context.Context) (TensorRow, error) {
	if d.exhausted {
		return nil, &RestartError{}
	}
	row, err := d.reader.Next(ctx)
	if err != nil {
		if errors.Is(err, io.EOF) {
			d.exhausted = true
			return nil, io.EOF
		}
		return nil, err
	}
	sanitized, err := SanitizeRow(row)
	if err != nil {
		return nil, err
	}

	names := d.sch.FieldNames()
	result := make(TensorRow, len(names))
	for i, name := range names {
		v, ok := sanitized.Value(name)
		if !ok {
			return nil, &ConfigurationError{Reason: "reader row does not match its schema: missing field " + name}
		}
		t, err := newFieldTensor(d.dtypes[i], name, v)
		if err != nil {
			result.Release()
			return nil, err
		}
		result[name] = t
	}
	if err := setRowShapes(d.sch, result, d.reader.BatchedOutput()); err != nil {
		result.Release()
		return nil, err
	}
	return result, nil
}

func newFieldTensor(dtype arrow.DataType, name string, v interface{}) (*tensor.Tensor, error) {
	t, err := tensor.New(dtype, v)
	if err != nil {
		return nil, fmt.Errorf("field %q: %w", name, err)
	}
	return t, nil
}

// Reset is intentionally unsupported. Regenerating the underlying reader is
// expensive; use the reader's epoch configuration for multiple passes.
func (d *Dataset) Reset() error {
	return &RestartError{}
}
