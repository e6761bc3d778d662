/*
 * ArcDB
 *
 * Copyright 2016 Matthias Ladkau. All rights reserved.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

/*
Package util contains utility classes for the graph storage.

GraphError

Models a graph related error. Low-level errors should be wrapped in a GraphError
before they are returned to a client. Every error type belongs to one of two
categories:

Validation errors are raised when a value type is constructed from malformed
input (e.g. an empty vertex type). They never reach a storage backend.

Backend errors are raised by storage backends (I/O, encoding, resource
exhaustion). They are propagated unchanged through the query evaluator.
*/
package util

import (
	"errors"
	"fmt"
)

/*
GraphError is a graph related error
*/
type GraphError struct {
	Type   error  // Error type (to be used for equal checks)
	Detail string // Details of this error
}

/*
Error returns a human-readable string representation of this error.
*/
func (ge *GraphError) Error() string {
	if ge.Detail != "" {
		return fmt.Sprintf("GraphError: %v (%v)", ge.Type, ge.Detail)
	}

	return fmt.Sprintf("GraphError: %v", ge.Type)
}

/*
Unwrap returns the error type so errors.Is can be used on GraphErrors.
*/
func (ge *GraphError) Unwrap() error {
	return ge.Type
}

/*
Graph storage related error types
*/
var (
	ErrOpening  = errors.New("Failed to open graph storage")
	ErrFlushing = errors.New("Failed to flush changes")
	ErrClosing  = errors.New("Failed to close graph storage")
	ErrReadOnly = errors.New("Failed write to readonly storage")
	ErrReading  = errors.New("Could not read graph information")
	ErrWriting  = errors.New("Could not write graph information")
	ErrEncoding = errors.New("Could not encode or decode graph information")
)

/*
Validation related error types
*/
var (
	ErrInvalidType = errors.New("Invalid type")
	ErrInvalidJSON = errors.New("Invalid JSON value")
	ErrInvalidData = errors.New("Invalid data")
)

var backendErrors = []error{ErrOpening, ErrFlushing, ErrClosing, ErrReadOnly,
	ErrReading, ErrWriting, ErrEncoding}

var validationErrors = []error{ErrInvalidType, ErrInvalidJSON, ErrInvalidData}

/*
NewValidationError creates a new validation error.
*/
func NewValidationError(errType error, detail string) error {
	return &GraphError{Type: errType, Detail: detail}
}

/*
NewBackendError wraps a low-level error into a backend error. GraphErrors are
returned as they are.
*/
func NewBackendError(errType error, err error) error {
	if err == nil {
		return nil
	}

	var ge *GraphError
	if errors.As(err, &ge) {
		return ge
	}

	return &GraphError{Type: errType, Detail: err.Error()}
}

/*
IsValidationError returns true if the given error is a validation error.
*/
func IsValidationError(err error) bool {
	return isOneOf(err, validationErrors)
}

/*
IsBackendError returns true if the given error is a backend error.
*/
func IsBackendError(err error) bool {
	return isOneOf(err, backendErrors)
}

func isOneOf(err error, types []error) bool {
	for _, t := range types {
		if errors.Is(err, t) {
			return true
		}
	}
	return false
}

/*
ErrorTypeByName looks up a known error type by its message. Returns nil if
the message does not belong to a known error type.
*/
func ErrorTypeByName(name string) error {
	for _, types := range [][]error{backendErrors, validationErrors} {
		for _, t := range types {
			if t.Error() == name {
				return t
			}
		}
	}
	return nil
}
