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
	"io"
	"testing"

	"github.com/apache/arrow/go/v12/arrow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liutaobigdata/carbonbridge/schema"
)

// Mock reader for bridge testing.
type mockReader struct {
	sch     *schema.Schema
	ngram   *schema.NGram
	batched bool

	rows   []*schema.Row
	groups []map[int]*schema.Row
	pos    int

	nextCalls int
}

func (m *mockReader) Schema() *schema.Schema { return m.sch }
func (m *mockReader) NGram() *schema.NGram   { return m.ngram }
func (m *mockReader) BatchedOutput() bool    { return m.batched }

func (m *mockReader) LastRowConsumed() bool {
	if m.ngram != nil {
		return m.pos >= len(m.groups)
	}
	return m.pos >= len(m.rows)
}

func (m *mockReader) Next(ctx context.Context) (*schema.Row, error) {
	m.nextCalls++
	if m.pos >= len(m.rows) {
		return nil, io.EOF
	}
	row := m.rows[m.pos]
	m.pos++
	return row, nil
}

func (m *mockReader) NextNGram(ctx context.Context) (map[int]*schema.Row, error) {
	m.nextCalls++
	if m.pos >= len(m.groups) {
		return nil, io.EOF
	}
	group := m.groups[m.pos]
	m.pos++
	return group, nil
}

func scoreSchema(t *testing.T) *schema.Schema {
	t.Helper()
	s, err := schema.New(
		schema.Field{Name: "id", Type: schema.Int64},
		schema.Field{Name: "name", Type: schema.String},
		schema.Field{Name: "scores", Type: schema.Float64, Shape: []int{3, 4}},
	)
	require.NoError(t, err)
	return s
}

func scoreRow(t *testing.T, s *schema.Schema, id int64) *schema.Row {
	t.Helper()
	scores := make([]float64, 12)
	for i := range scores {
		scores[i] = float64(id) + float64(i)/100
	}
	row, err := s.MakeRow(id, "row", scores)
	require.NoError(t, err)
	return row
}

func TestMakeTensor_RejectsBatchedWithQueue(t *testing.T) {
	s := scoreSchema(t)
	reader := &mockReader{sch: s, batched: true, rows: []*schema.Row{scoreRow(t, s, 1)}}

	_, err := MakeTensor(reader, WithShufflingQueue(10, 2))
	var confErr *ConfigurationError
	require.ErrorAs(t, err, &confErr)
	assert.Contains(t, err.Error(), "batched output")

	// Rejected eagerly, before any row is pulled.
	assert.Zero(t, reader.nextCalls)
}

func TestMakeTensor_RejectsUnmappableSchema(t *testing.T) {
	s, err := schema.New(schema.Field{Name: "blob", Type: schema.Unknown})
	require.NoError(t, err)
	reader := &mockReader{sch: s}

	_, err = MakeTensor(reader)
	var mapErr *TypeMappingError
	require.ErrorAs(t, err, &mapErr)
	assert.Zero(t, reader.nextCalls)
}

func TestTensorSource_Pull(t *testing.T) {
	s := scoreSchema(t)
	reader := &mockReader{sch: s, rows: []*schema.Row{scoreRow(t, s, 7)}}

	src, err := MakeTensor(reader)
	require.NoError(t, err)
	defer src.Close()

	row, err := src.Pull(context.Background())
	require.NoError(t, err)
	defer row.Release()

	assert.Equal(t, int64(7), row["id"].Value())
	assert.Equal(t, "row", row["name"].Value())
	assert.Equal(t, []int{3, 4}, row["scores"].Shape())
	assert.Empty(t, row["id"].Shape())

	_, err = src.Pull(context.Background())
	assert.ErrorIs(t, err, io.EOF)
}

func TestTensorSource_PullWidenedAndEmptyValues(t *testing.T) {
	s, err := schema.New(
		schema.Field{Name: "u", Type: schema.Uint16},
		schema.Field{Name: "b", Type: schema.Bytes},
	)
	require.NoError(t, err)
	row, err := s.MakeRow(uint16(5), [][]byte{})
	require.NoError(t, err)
	reader := &mockReader{sch: s, rows: []*schema.Row{row}}

	src, err := MakeTensor(reader)
	require.NoError(t, err)
	defer src.Close()

	// Scalar uint16 fields widen to int32, and an empty byte-string array
	// still materializes as a zero-length string tensor.
	got, err := src.Pull(context.Background())
	require.NoError(t, err)
	defer got.Release()

	assert.Equal(t, int32(5), got["u"].Value())
	assert.Equal(t, []string{}, got["b"].Value())
	assert.Zero(t, got["b"].Len())
}

func TestTensorSource_PullBatchedShape(t *testing.T) {
	s := scoreSchema(t)
	reader := &mockReader{sch: s, batched: true, rows: []*schema.Row{scoreRow(t, s, 1)}}

	src, err := MakeTensor(reader)
	require.NoError(t, err)
	defer src.Close()

	row, err := src.Pull(context.Background())
	require.NoError(t, err)
	defer row.Release()

	// One unbound leading batch dimension is prepended.
	assert.Equal(t, []int{-1, 3, 4}, row["scores"].Shape())
	assert.Equal(t, []int{-1}, row["id"].Shape())
}

func TestTensorSource_PullThroughQueue(t *testing.T) {
	s := scoreSchema(t)
	const total = 12
	rows := make([]*schema.Row, 0, total)
	for i := int64(1); i <= total; i++ {
		rows = append(rows, scoreRow(t, s, i))
	}
	reader := &mockReader{sch: s, rows: rows}

	src, err := MakeTensor(reader, WithShufflingQueue(4, 1))
	require.NoError(t, err)
	defer src.Close()

	seen := make(map[int64]bool)
	for i := 0; i < total; i++ {
		row, err := src.Pull(context.Background())
		require.NoError(t, err)
		id, ok := row["id"].Value().(int64)
		require.True(t, ok)
		assert.False(t, seen[id], "row %d pulled twice", id)
		seen[id] = true
		assert.Equal(t, []int{3, 4}, row["scores"].Shape())
	}
	assert.Len(t, seen, total)

	_, err = src.Pull(context.Background())
	assert.ErrorIs(t, err, io.EOF)
}

func TestTensorSource_PullOnNGramReader(t *testing.T) {
	s, ng := twoStepNGram(t)
	reader := &mockReader{sch: s, ngram: ng}

	src, err := MakeTensor(reader)
	require.NoError(t, err)
	defer src.Close()

	_, err = src.Pull(context.Background())
	var confErr *ConfigurationError
	require.ErrorAs(t, err, &confErr)

	// And the other way around.
	plain := &mockReader{sch: s}
	src2, err := MakeTensor(plain)
	require.NoError(t, err)
	defer src2.Close()

	_, err = src2.PullNGram(context.Background())
	require.ErrorAs(t, err, &confErr)
}

func ngramGroup(t *testing.T, s *schema.Schema, ng *schema.NGram, base int64) map[int]*schema.Row {
	t.Helper()
	group := make(map[int]*schema.Row)
	for _, ts := range ng.Timesteps() {
		sub, err := ng.SchemaAt(s, ts)
		require.NoError(t, err)
		row, err := sub.MakeRow(base+int64(ts), float64(base)+float64(ts)/10)
		require.NoError(t, err)
		group[ts] = row
	}
	return group
}

func TestTensorSource_PullNGram(t *testing.T) {
	s, ng := twoStepNGram(t)
	reader := &mockReader{
		sch:    s,
		ngram:  ng,
		groups: []map[int]*schema.Row{ngramGroup(t, s, ng, 10)},
	}

	src, err := MakeTensor(reader)
	require.NoError(t, err)
	defer src.Close()

	result, err := src.PullNGram(context.Background())
	require.NoError(t, err)
	require.Len(t, result, 2)

	assert.Equal(t, int64(9), result[-1]["a"].Value())
	assert.Equal(t, float64(10)-0.1, result[-1]["b"].Value())
	assert.Equal(t, int64(10), result[0]["a"].Value())
	assert.Equal(t, float64(10), result[0]["b"].Value())

	_, err = src.PullNGram(context.Background())
	assert.ErrorIs(t, err, io.EOF)
}

func TestTensorSource_PullNGramThroughQueue(t *testing.T) {
	s, ng := twoStepNGram(t)
	const total = 6
	groups := make([]map[int]*schema.Row, 0, total)
	for i := int64(0); i < total; i++ {
		groups = append(groups, ngramGroup(t, s, ng, 100+10*i))
	}
	reader := &mockReader{sch: s, ngram: ng, groups: groups}

	src, err := MakeTensor(reader, WithShufflingQueue(3, 0))
	require.NoError(t, err)
	defer src.Close()

	seen := make(map[int64]bool)
	for i := 0; i < total; i++ {
		result, err := src.PullNGram(context.Background())
		require.NoError(t, err)
		base, ok := result[0]["a"].Value().(int64)
		require.True(t, ok)
		assert.False(t, seen[base])
		seen[base] = true
		// Timestep structure survives the flatten/unflatten round trip.
		assert.Equal(t, base-1, result[-1]["a"].Value())
	}
	assert.Len(t, seen, total)
}

func TestShapeSetter(t *testing.T) {
	s := scoreSchema(t)
	row, err := s.MakeRow(int64(1), "x", make([]float64, 12))
	require.NoError(t, err)
	sanitized, err := SanitizeRow(row)
	require.NoError(t, err)

	dtypes, err := SchemaDTypes(s)
	require.NoError(t, err)

	tensors := make(TensorRow, s.Len())
	for i, name := range s.FieldNames() {
		v, _ := sanitized.Value(name)
		tn, err := newFieldTensor(dtypes[i], name, v)
		require.NoError(t, err)
		tensors[name] = tn
	}
	defer tensors.Release()

	require.NoError(t, setRowShapes(s, tensors, false))
	assert.Equal(t, []int{3, 4}, tensors["scores"].Shape())

	require.NoError(t, setRowShapes(s, tensors, true))
	assert.Equal(t, []int{-1, 3, 4}, tensors["scores"].Shape())
}

func TestShapeSetter_UnknownFieldReleasesRow(t *testing.T) {
	s := scoreSchema(t)
	stray, err := newFieldTensor(dtypeFor(t, schema.Int64), "stray", int64(9))
	require.NoError(t, err)
	row := TensorRow{"stray": stray}

	err = setRowShapes(s, row, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "stray")

	// Callers drop the whole row on a shape error; nothing may leak.
	row.Release()
	assert.Nil(t, stray.Data())
}

func dtypeFor(t *testing.T, et schema.ElementType) arrow.DataType {
	t.Helper()
	dt, err := TensorDType(et)
	require.NoError(t, err)
	return dt
}
