/*
 * ArcDB
 *
 * Copyright 2016 Matthias Ladkau. All rights reserved.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package data

import (
	"bytes"
	"fmt"

	"github.com/google/uuid"
)

/*
Direction specifies which end of an edge is used in a traversal.
*/
type Direction int

/*
Known directions
*/
const (
	Outbound Direction = iota
	Inbound
)

/*
String returns a string representation of a direction.
*/
func (d Direction) String() string {
	if d == Inbound {
		return "inbound"
	}
	return "outbound"
}

/*
MarshalText returns the direction as text.
*/
func (d Direction) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

/*
UnmarshalText parses a direction.
*/
func (d *Direction) UnmarshalText(text []byte) error {
	switch string(text) {
	case "outbound":
		*d = Outbound
	case "inbound":
		*d = Inbound
	default:
		return fmt.Errorf("Unknown direction: %v", string(text))
	}
	return nil
}

/*
Vertex is a node in the graph.
*/
type Vertex struct {
	ID uuid.UUID `json:"id"`
	T  Type      `json:"t"`
}

/*
NewVertex creates a new vertex with a given id and type.
*/
func NewVertex(id uuid.UUID, t Type) Vertex {
	return Vertex{id, t}
}

/*
String returns a string representation of this vertex.
*/
func (v Vertex) String() string {
	return fmt.Sprintf("Vertex(%v:%v)", v.ID, v.T)
}

/*
CompareIDs compares two identifiers bitwise. The result is 0 if a == b, -1 if
a < b and +1 if a > b.
*/
func CompareIDs(a, b uuid.UUID) int {
	return bytes.Compare(a[:], b[:])
}
