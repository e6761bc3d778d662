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
Package data contains the value types of the graph model.

Identifiers

Vertices are named by 128 bit UUIDs. Identifiers are compared bitwise; the
order defined by CompareIDs is the order in which range queries return vertices.

Types

A Type classifies a vertex or an edge. Types are validated on construction
and are immutable afterwards.

Vertices and edges

A Vertex is an identifier plus a type. An edge has no surrogate id, it is
identified by its EdgeKey (outbound id, type, inbound id) and carries the time
it was created (or last re-created).

Properties

Properties are JSON values stored under a name for a vertex or an edge. They
are kept apart from the vertex and edge records.
*/
package data

import (
	"fmt"
	"regexp"

	"devt.de/krotik/arcdb/graph/util"
)

/*
MaxTypeLength is the maximum length of a type in bytes.
*/
const MaxTypeLength = 255

var typeRegexp = regexp.MustCompile("^[a-zA-Z0-9_-]+$")

/*
Type is the type of a vertex or an edge.
*/
type Type struct {
	value string
}

/*
NewType creates a new Type. An error is returned if the given string is empty,
too long or contains invalid characters.
*/
func NewType(s string) (Type, error) {
	if s == "" {
		return Type{}, util.NewValidationError(util.ErrInvalidType, "Type must not be empty")
	} else if len(s) > MaxTypeLength {
		return Type{}, util.NewValidationError(util.ErrInvalidType,
			fmt.Sprintf("Type must not be longer than %v bytes", MaxTypeLength))
	} else if !typeRegexp.MatchString(s) {
		return Type{}, util.NewValidationError(util.ErrInvalidType,
			fmt.Sprintf("Type contains invalid characters: %v", s))
	}

	return Type{s}, nil
}

/*
MustType creates a new Type and panics if the given string is not a valid type.
*/
func MustType(s string) Type {
	t, err := NewType(s)
	if err != nil {
		panic(err.Error())
	}
	return t
}

/*
String returns the string value of this type.
*/
func (t Type) String() string {
	return t.value
}

/*
IsZero returns true if this type was not created through NewType.
*/
func (t Type) IsZero() bool {
	return t.value == ""
}

/*
MarshalText returns the type as text.
*/
func (t Type) MarshalText() ([]byte, error) {
	return []byte(t.value), nil
}

/*
UnmarshalText validates and sets the type from text.
*/
func (t *Type) UnmarshalText(text []byte) error {
	nt, err := NewType(string(text))
	if err == nil {
		*t = nt
	}
	return err
}

/*
TypePtr is a helper function which returns a pointer to a given type.
Optional types in queries are represented as pointers.
*/
func TypePtr(t Type) *Type {
	return &t
}
