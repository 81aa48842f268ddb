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

// Package carbonbridge error taxonomy. All failures are fatal to the current
// pull and are never retried inside the bridge; the caller decides whether to
// abort or recover at a higher level.

// TypeMappingError reports a declared field element type with no tensor
// dtype equivalent. Tensor construction cannot proceed past it.
type TypeMappingError struct {
	Type schema.ElementType
}

// Error returns the error string for TypeMappingError.
func (e *TypeMappingError) Error() string {
	return fmt.Sprintf("no tensor dtype mapping for element type %s", e.Type)
}

// NullValueError reports a nil field value. Tensors have no null
// representation, so rows carrying nil values must be filtered upstream.
type NullValueError struct {
	Field string
}

// Error returns the error string for NullValueError.
func (e *NullValueError) Error() string {
	return fmt.Sprintf("field %q is nil: tensors cannot represent null values, filter such rows upstream", e.Field)
}

// ConfigurationError reports an incompatible bridge configuration. It is
// raised eagerly, before any row is pulled.
type ConfigurationError struct {
	Reason string
}

// Error returns the error string for ConfigurationError.
func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid bridge configuration: %s", e.Reason)
}

// RestartError reports an attempt to re-enter an exhausted single-pass
// dataset. Regenerating the underlying reader is expensive; configure the
// number of passes on the reader instead of repeating the dataset.
type RestartError struct{}

// Error returns the error string for RestartError.
func (e *RestartError) Error() string {
	return "dataset is single-pass and already exhausted: configure the number of " +
		"epochs on the reader (e.g. WithNumEpochs) instead of re-iterating the dataset"
}
