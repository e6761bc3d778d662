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
	"encoding/json"

	"github.com/google/uuid"

	"devt.de/krotik/arcdb/graph/util"
)

/*
NormalizeJSON validates a JSON value and returns its compact form. Storages
only ever see normalized values so equal values are stored byte-identical.
*/
func NormalizeJSON(value json.RawMessage) (json.RawMessage, error) {
	if !json.Valid(value) {
		return nil, util.NewValidationError(util.ErrInvalidJSON, string(value))
	}

	var buf bytes.Buffer

	if err := json.Compact(&buf, value); err != nil {
		return nil, util.NewValidationError(util.ErrInvalidJSON, err.Error())
	}

	return json.RawMessage(buf.Bytes()), nil
}

/*
CheckPropertyName checks that a property name can be stored and exchanged.
Property names must not be empty.
*/
func CheckPropertyName(name string) error {
	if name == "" {
		return util.NewValidationError(util.ErrInvalidData, "Property name must not be empty")
	}
	return nil
}

/*
MustJSON marshals a given Go value into a JSON value and panics on error.
*/
func MustJSON(v interface{}) json.RawMessage {
	res, err := json.Marshal(v)
	if err != nil {
		panic(err.Error())
	}
	return res
}

/*
NamedProperty is a property value with its name.
*/
type NamedProperty struct {
	Name  string          `json:"name"`
	Value json.RawMessage `json:"value"`
}

/*
VertexProperty is a property value of a vertex.
*/
type VertexProperty struct {
	ID    uuid.UUID       `json:"id"`
	Value json.RawMessage `json:"value"`
}

/*
VertexProperties is a vertex with all its properties.
*/
type VertexProperties struct {
	Vertex Vertex          `json:"vertex"`
	Props  []NamedProperty `json:"props"`
}

/*
EdgeProperty is a property value of an edge.
*/
type EdgeProperty struct {
	Key   EdgeKey         `json:"key"`
	Value json.RawMessage `json:"value"`
}

/*
EdgeProperties is an edge with all its properties.
*/
type EdgeProperties struct {
	Edge  Edge            `json:"edge"`
	Props []NamedProperty `json:"props"`
}
