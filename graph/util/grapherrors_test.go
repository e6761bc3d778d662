/*
 * ArcDB
 *
 * Copyright 2016 Matthias Ladkau. All rights reserved.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package util

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGraphError(t *testing.T) {
	err := &GraphError{ErrReading, "foo"}

	assert.Equal(t, "GraphError: Could not read graph information (foo)", err.Error())

	err = &GraphError{ErrReading, ""}

	assert.Equal(t, "GraphError: Could not read graph information", err.Error())
}

func TestErrorCategories(t *testing.T) {
	verr := NewValidationError(ErrInvalidType, "empty")

	assert.True(t, IsValidationError(verr))
	assert.False(t, IsBackendError(verr))

	berr := NewBackendError(ErrWriting, errors.New("disk full"))

	assert.True(t, IsBackendError(berr))
	assert.False(t, IsValidationError(berr))
	assert.True(t, errors.Is(berr, ErrWriting))
	assert.Equal(t, "GraphError: Could not write graph information (disk full)", berr.Error())

	// Wrapping a GraphError keeps the original type

	assert.Equal(t, berr, NewBackendError(ErrReading, berr))
	assert.True(t, IsBackendError(fmt.Errorf("op failed: %w", berr)))

	assert.Nil(t, NewBackendError(ErrReading, nil))
	assert.False(t, IsBackendError(errors.New("plain")))
}

func TestErrorTypeByName(t *testing.T) {
	assert.Equal(t, ErrInvalidJSON, ErrorTypeByName(ErrInvalidJSON.Error()))
	assert.Equal(t, ErrClosing, ErrorTypeByName("Failed to close graph storage"))
	assert.Nil(t, ErrorTypeByName("foo"))
}
