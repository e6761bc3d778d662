/*
 * ArcDB
 *
 * Copyright 2016 Matthias Ladkau. All rights reserved.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package query

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"devt.de/krotik/arcdb/graph/data"
	"devt.de/krotik/arcdb/graph/util"
)

/*
Query type names of the JSON representation
*/
const (
	TypeRange    = "range"
	TypeSpecific = "specific"
	TypePipe     = "pipe"
)

/*
queryJSON is the JSON representation of all query variants.
*/
type queryJSON struct {
	Type      string          `json:"type"`
	StartID   *uuid.UUID      `json:"start_id,omitempty"`
	IDs       []uuid.UUID     `json:"ids,omitempty"`
	Keys      []data.EdgeKey  `json:"keys,omitempty"`
	Inner     json.RawMessage `json:"inner,omitempty"`
	Direction *data.Direction `json:"direction,omitempty"`
	Limit     uint32          `json:"limit"`
	T         *data.Type      `json:"t,omitempty"`
	High      *time.Time      `json:"high,omitempty"`
	Low       *time.Time      `json:"low,omitempty"`
}

/*
propertyQueryJSON is the JSON representation of property queries.
*/
type propertyQueryJSON struct {
	Inner json.RawMessage `json:"inner"`
	Name  string          `json:"name"`
}

/*
MarshalVertexQuery returns the JSON representation of a vertex query.
*/
func MarshalVertexQuery(q VertexQuery) ([]byte, error) {
	obj, err := vertexQueryToJSON(q)
	if err != nil {
		return nil, err
	}
	return json.Marshal(obj)
}

/*
MarshalEdgeQuery returns the JSON representation of an edge query.
*/
func MarshalEdgeQuery(q EdgeQuery) ([]byte, error) {
	obj, err := edgeQueryToJSON(q)
	if err != nil {
		return nil, err
	}
	return json.Marshal(obj)
}

func vertexQueryToJSON(q VertexQuery) (*queryJSON, error) {
	switch vq := q.(type) {

	case RangeVertexQuery:
		return &queryJSON{Type: TypeRange, StartID: vq.StartID, T: vq.T, Limit: vq.Limit}, nil

	case SpecificVertexQuery:
		return &queryJSON{Type: TypeSpecific, IDs: vq.IDs}, nil

	case PipeVertexQuery:
		inner, err := MarshalEdgeQuery(vq.Inner)
		if err != nil {
			return nil, err
		}
		dir := vq.Direction
		return &queryJSON{Type: TypePipe, Inner: inner, Direction: &dir, Limit: vq.Limit, T: vq.T}, nil
	}

	return nil, util.NewValidationError(util.ErrInvalidData, fmt.Sprintf("Unknown vertex query: %T", q))
}

func edgeQueryToJSON(q EdgeQuery) (*queryJSON, error) {
	switch eq := q.(type) {

	case SpecificEdgeQuery:
		return &queryJSON{Type: TypeSpecific, Keys: eq.Keys}, nil

	case PipeEdgeQuery:
		inner, err := MarshalVertexQuery(eq.Inner)
		if err != nil {
			return nil, err
		}
		dir := eq.Direction
		return &queryJSON{Type: TypePipe, Inner: inner, Direction: &dir, Limit: eq.Limit,
			T: eq.T, High: eq.High, Low: eq.Low}, nil
	}

	return nil, util.NewValidationError(util.ErrInvalidData, fmt.Sprintf("Unknown edge query: %T", q))
}

/*
UnmarshalVertexQuery parses the JSON representation of a vertex query.
*/
func UnmarshalVertexQuery(b []byte) (VertexQuery, error) {
	var obj queryJSON

	if err := json.Unmarshal(b, &obj); err != nil {
		return nil, invalidQuery(err.Error())
	}

	switch obj.Type {

	case TypeRange:
		return RangeVertexQuery{StartID: obj.StartID, T: obj.T, Limit: obj.Limit}, nil

	case TypeSpecific:
		return SpecificVertexQuery{IDs: obj.IDs}, nil

	case TypePipe:
		if obj.Inner == nil || obj.Direction == nil {
			return nil, invalidQuery("Pipe query needs inner query and direction")
		}

		inner, err := UnmarshalEdgeQuery(obj.Inner)
		if err != nil {
			return nil, err
		}

		return PipeVertexQuery{Inner: inner, Direction: *obj.Direction, Limit: obj.Limit, T: obj.T}, nil
	}

	return nil, invalidQuery(fmt.Sprintf("Unknown vertex query type: %v", obj.Type))
}

/*
UnmarshalEdgeQuery parses the JSON representation of an edge query.
*/
func UnmarshalEdgeQuery(b []byte) (EdgeQuery, error) {
	var obj queryJSON

	if err := json.Unmarshal(b, &obj); err != nil {
		return nil, invalidQuery(err.Error())
	}

	switch obj.Type {

	case TypeSpecific:
		return SpecificEdgeQuery{Keys: obj.Keys}, nil

	case TypePipe:
		if obj.Inner == nil || obj.Direction == nil {
			return nil, invalidQuery("Pipe query needs inner query and direction")
		}

		inner, err := UnmarshalVertexQuery(obj.Inner)
		if err != nil {
			return nil, err
		}

		return PipeEdgeQuery{Inner: inner, Direction: *obj.Direction, Limit: obj.Limit,
			T: obj.T, High: obj.High, Low: obj.Low}, nil
	}

	return nil, invalidQuery(fmt.Sprintf("Unknown edge query type: %v", obj.Type))
}

/*
MarshalVertexPropertyQuery returns the JSON representation of a vertex property query.
*/
func MarshalVertexPropertyQuery(q VertexPropertyQuery) ([]byte, error) {
	inner, err := MarshalVertexQuery(q.Inner)
	if err != nil {
		return nil, err
	}
	return json.Marshal(propertyQueryJSON{inner, q.Name})
}

/*
UnmarshalVertexPropertyQuery parses the JSON representation of a vertex property query.
*/
func UnmarshalVertexPropertyQuery(b []byte) (VertexPropertyQuery, error) {
	var obj propertyQueryJSON

	if err := json.Unmarshal(b, &obj); err != nil {
		return VertexPropertyQuery{}, invalidQuery(err.Error())
	}

	if err := data.CheckPropertyName(obj.Name); err != nil {
		return VertexPropertyQuery{}, err
	}

	inner, err := UnmarshalVertexQuery(obj.Inner)

	return VertexPropertyQuery{inner, obj.Name}, err
}

/*
MarshalEdgePropertyQuery returns the JSON representation of an edge property query.
*/
func MarshalEdgePropertyQuery(q EdgePropertyQuery) ([]byte, error) {
	inner, err := MarshalEdgeQuery(q.Inner)
	if err != nil {
		return nil, err
	}
	return json.Marshal(propertyQueryJSON{inner, q.Name})
}

/*
UnmarshalEdgePropertyQuery parses the JSON representation of an edge property query.
*/
func UnmarshalEdgePropertyQuery(b []byte) (EdgePropertyQuery, error) {
	var obj propertyQueryJSON

	if err := json.Unmarshal(b, &obj); err != nil {
		return EdgePropertyQuery{}, invalidQuery(err.Error())
	}

	if err := data.CheckPropertyName(obj.Name); err != nil {
		return EdgePropertyQuery{}, err
	}

	inner, err := UnmarshalEdgeQuery(obj.Inner)

	return EdgePropertyQuery{inner, obj.Name}, err
}

func invalidQuery(detail string) error {
	return util.NewValidationError(util.ErrInvalidData, detail)
}
