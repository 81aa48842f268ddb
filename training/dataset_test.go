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
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liutaobigdata/carbonbridge"
	"github.com/liutaobigdata/carbonbridge/readers"
	"github.com/liutaobigdata/carbonbridge/schema"
)

func numericReader(t *testing.T, n int, opts ...readers.Option) carbonbridge.RowReader {
	t.Helper()
	s, err := schema.New(
		schema.Field{Name: "features", Type: schema.Float32, Shape: []int{2}},
		schema.Field{Name: "target", Type: schema.Float32},
	)
	require.NoError(t, err)

	rows := make([]*schema.Row, 0, n)
	for i := 0; i < n; i++ {
		row, err := s.MakeRow([]float32{float32(i), float32(i) + 0.5}, float32(i)*2)
		require.NoError(t, err)
		rows = append(rows, row)
	}
	r, err := readers.NewMemoryReader(s, rows, opts...)
	require.NoError(t, err)
	return r
}

func TestNewDataset_RejectsStringFields(t *testing.T) {
	s, err := schema.New(schema.Field{Name: "name", Type: schema.String})
	require.NoError(t, err)
	row, err := s.MakeRow("x")
	require.NoError(t, err)
	r, err := readers.NewMemoryReader(s, []*schema.Row{row})
	require.NoError(t, err)

	_, err = NewDataset("strings", r)
	assert.ErrorContains(t, err, "no string dtype")
}

func TestNewDataset_RejectsUnknownLabelField(t *testing.T) {
	_, err := NewDataset("bad-label", numericReader(t, 1), WithLabelFields("ghost"))
	assert.ErrorContains(t, err, "ghost")
}

func TestDataset_Yield(t *testing.T) {
	ds, err := NewDataset("pairs", numericReader(t, 3), WithLabelFields("target"))
	require.NoError(t, err)
	assert.Equal(t, "pairs", ds.Name())

	for i := 0; i < 3; i++ {
		spec, inputs, labels, err := ds.Yield()
		require.NoError(t, err)
		assert.NotNil(t, spec)
		require.Len(t, inputs, 1)
		require.Len(t, labels, 1)
		assert.Equal(t, []int{2}, inputs[0].Shape().Dimensions)
	}

	_, _, _, err = ds.Yield()
	assert.ErrorIs(t, err, io.EOF)
}

func TestDataset_AllFieldsAsInputs(t *testing.T) {
	ds, err := NewDataset("inputs-only", numericReader(t, 1))
	require.NoError(t, err)

	_, inputs, labels, err := ds.Yield()
	require.NoError(t, err)
	assert.Len(t, inputs, 2)
	assert.Empty(t, labels)
}

func TestDataset_ResetArmsRestartGuard(t *testing.T) {
	ds, err := NewDataset("once", numericReader(t, 1))
	require.NoError(t, err)

	_, _, _, err = ds.Yield()
	require.NoError(t, err)
	_, _, _, err = ds.Yield()
	require.ErrorIs(t, err, io.EOF)

	ds.Reset()
	var restartErr *carbonbridge.RestartError
	_, _, _, err = ds.Yield()
	require.ErrorAs(t, err, &restartErr)
}

func TestDataset_EpochsViaReader(t *testing.T) {
	ds, err := NewDataset("epochs", numericReader(t, 2, readers.WithNumEpochs(2)))
	require.NoError(t, err)

	count := 0
	for {
		_, _, _, err := ds.Yield()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		count++
	}
	assert.Equal(t, 4, count)
}
