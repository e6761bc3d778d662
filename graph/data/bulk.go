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
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"devt.de/krotik/arcdb/graph/util"
)

/*
BulkInsertItem is an item which can be loaded through the bulk insert path.
Implementations are BulkVertex, BulkEdge, BulkVertexProperty and
BulkEdgeProperty.
*/
type BulkInsertItem interface {
	bulkItem()
}

/*
BulkVertex inserts a vertex.
*/
type BulkVertex struct {
	Vertex Vertex
}

/*
BulkEdge inserts an edge.
*/
type BulkEdge struct {
	Key EdgeKey
}

/*
BulkVertexProperty sets a vertex property.
*/
type BulkVertexProperty struct {
	ID    uuid.UUID
	Name  string
	Value json.RawMessage
}

/*
BulkEdgeProperty sets an edge property.
*/
type BulkEdgeProperty struct {
	Key   EdgeKey
	Name  string
	Value json.RawMessage
}

func (BulkVertex) bulkItem()         {}
func (BulkEdge) bulkItem()           {}
func (BulkVertexProperty) bulkItem() {}
func (BulkEdgeProperty) bulkItem()   {}

/*
Item type names in the JSON representation of bulk items
*/
const (
	BulkTypeVertex         = "vertex"
	BulkTypeEdge           = "edge"
	BulkTypeVertexProperty = "vertex_property"
	BulkTypeEdgeProperty   = "edge_property"
)

/*
bulkItemJSON is the JSON representation of all bulk items.
*/
type bulkItemJSON struct {
	Type   string          `json:"type"`
	Vertex *Vertex         `json:"vertex,omitempty"`
	ID     *uuid.UUID      `json:"id,omitempty"`
	Key    *EdgeKey        `json:"key,omitempty"`
	Name   string          `json:"name,omitempty"`
	Value  json.RawMessage `json:"value,omitempty"`
}

/*
MarshalBulkItem returns the JSON representation of a bulk item.
*/
func MarshalBulkItem(item BulkInsertItem) ([]byte, error) {
	var obj bulkItemJSON

	switch i := item.(type) {
	case BulkVertex:
		obj = bulkItemJSON{Type: BulkTypeVertex, Vertex: &i.Vertex}
	case BulkEdge:
		obj = bulkItemJSON{Type: BulkTypeEdge, Key: &i.Key}
	case BulkVertexProperty:
		obj = bulkItemJSON{Type: BulkTypeVertexProperty, ID: &i.ID, Name: i.Name, Value: i.Value}
	case BulkEdgeProperty:
		obj = bulkItemJSON{Type: BulkTypeEdgeProperty, Key: &i.Key, Name: i.Name, Value: i.Value}
	default:
		return nil, util.NewValidationError(util.ErrInvalidData, fmt.Sprintf("Unknown bulk item: %T", item))
	}

	return json.Marshal(obj)
}

/*
UnmarshalBulkItem parses the JSON representation of a bulk item.
*/
func UnmarshalBulkItem(b []byte) (BulkInsertItem, error) {
	var obj bulkItemJSON

	if err := json.Unmarshal(b, &obj); err != nil {
		return nil, util.NewValidationError(util.ErrInvalidData, err.Error())
	}

	missing := func(field string) error {
		return util.NewValidationError(util.ErrInvalidData,
			fmt.Sprintf("Bulk item of type %v needs a %v", obj.Type, field))
	}

	switch obj.Type {
	case BulkTypeVertex:
		if obj.Vertex == nil || obj.Vertex.T.IsZero() {
			return nil, missing("vertex")
		}
		return BulkVertex{*obj.Vertex}, nil

	case BulkTypeEdge:
		if obj.Key == nil || obj.Key.T.IsZero() {
			return nil, missing("key")
		}
		return BulkEdge{*obj.Key}, nil

	case BulkTypeVertexProperty:
		if obj.ID == nil {
			return nil, missing("id")
		} else if obj.Name == "" {
			return nil, missing("name")
		}
		return BulkVertexProperty{*obj.ID, obj.Name, obj.Value}, nil

	case BulkTypeEdgeProperty:
		if obj.Key == nil || obj.Key.T.IsZero() {
			return nil, missing("key")
		} else if obj.Name == "" {
			return nil, missing("name")
		}
		return BulkEdgeProperty{*obj.Key, obj.Name, obj.Value}, nil
	}

	return nil, util.NewValidationError(util.ErrInvalidData,
		fmt.Sprintf("Unknown bulk item type: %v", obj.Type))
}
