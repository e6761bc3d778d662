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
Package rpc contains a websocket facade for a graph datastore.

Every websocket connection is a session with its own transaction. A client
sends JSON requests of the form:

	{"id":1,"op":"get_vertices","params":{"query":{...}}}

The server answers every request in the order of arrival with:

	{"id":1,"op":"get_vertices","result":[...]}

or in case of an error:

	{"id":1,"op":"get_vertices","error":"...","error_type":"Invalid type"}

The error type is the message of the graph error type (see graph/util) so
clients can restore validation and backend errors.
*/
package rpc

import (
	"encoding/json"

	"github.com/google/uuid"

	"devt.de/krotik/arcdb/graph/data"
)

/*
Operations which are understood by the server
*/
const (
	OpPing                   = "ping"
	OpSync                   = "sync"
	OpBulkInsert             = "bulk_insert"
	OpCreateVertex           = "create_vertex"
	OpCreateVertexFromType   = "create_vertex_from_type"
	OpGetVertices            = "get_vertices"
	OpDeleteVertices         = "delete_vertices"
	OpGetVertexCount         = "get_vertex_count"
	OpCreateEdge             = "create_edge"
	OpGetEdges               = "get_edges"
	OpDeleteEdges            = "delete_edges"
	OpGetEdgeCount           = "get_edge_count"
	OpGetVertexProperties    = "get_vertex_properties"
	OpGetAllVertexProperties = "get_all_vertex_properties"
	OpSetVertexProperties    = "set_vertex_properties"
	OpDeleteVertexProperties = "delete_vertex_properties"
	OpGetEdgeProperties      = "get_edge_properties"
	OpGetAllEdgeProperties   = "get_all_edge_properties"
	OpSetEdgeProperties      = "set_edge_properties"
	OpDeleteEdgeProperties   = "delete_edge_properties"
)

/*
Request is a single request of a client.
*/
type Request struct {
	ID     uint64          `json:"id"`
	Op     string          `json:"op"`
	Params json.RawMessage `json:"params,omitempty"`
}

/*
Response is the answer to a single request.
*/
type Response struct {
	ID        uint64          `json:"id"`
	Op        string          `json:"op"`
	Result    json.RawMessage `json:"result,omitempty"`
	Error     string          `json:"error,omitempty"`
	ErrorType string          `json:"error_type,omitempty"`
}

// Request parameters
// ==================

type vertexParams struct {
	Vertex data.Vertex `json:"vertex"`
}

type typeParams struct {
	T data.Type `json:"t"`
}

type edgeKeyParams struct {
	Key data.EdgeKey `json:"key"`
}

/*
queryParams holds a vertex, edge or property query in its JSON representation.
*/
type queryParams struct {
	Query json.RawMessage `json:"query"`
}

type propertyParams struct {
	Query json.RawMessage `json:"query"`
	Value json.RawMessage `json:"value"`
}

type edgeCountParams struct {
	ID        uuid.UUID      `json:"id"`
	T         *data.Type     `json:"t,omitempty"`
	Direction data.Direction `json:"direction"`
}

type bulkParams struct {
	Items []json.RawMessage `json:"items"`
}
