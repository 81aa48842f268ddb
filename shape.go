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

	"github.com/liutaobigdata/carbonbridge/schema"
)

// setRowShapes applies each field's declared static shape to its tensor,
// prepending one unbound dimension when the reader pre-batches rows. This is
// a side-effecting finalization step: string-backed tensors carry no
// dimension information of their own, and leaving shapes undetermined breaks
// downstream shape inference.
func setRowShapes(s *schema.Schema, row TensorRow, batched bool) error {
	for name, t := range row {
		f, ok := s.Field(name)
		if !ok {
			return fmt.Errorf("tensor row field %q is not in the schema", name)
		}
		shape := f.Shape
		if batched {
			shape = append([]int{-1}, shape...)
		}
		t.SetShape(shape)
	}
	return nil
}
