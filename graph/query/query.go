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
Package query contains the query algebra of the graph datastore.

A query is a tree of values. Vertex queries produce vertices, edge queries
produce edges. Pipe queries consume the result of a query of the opposite
kind, which allows multi-hop traversals:

	// All vertices which are followed by users followed by a given vertex
	q := query.Specific(id).
		Outbound(100).WithType(follows).
		Inbound(100).
		Outbound(100).WithType(follows).
		Inbound(100)

Queries hold no datastore state and can be reused. A limit is always a hard
upper bound on the number of results; a limit of 0 yields nothing.
*/
package query

import (
	"time"

	"github.com/google/uuid"

	"devt.de/krotik/arcdb/graph/data"
)

/*
VertexQuery is a query which produces vertices. Implementations are
RangeVertexQuery, SpecificVertexQuery and PipeVertexQuery.
*/
type VertexQuery interface {
	vertexQuery()
}

/*
EdgeQuery is a query which produces edges. Implementations are
SpecificEdgeQuery and PipeEdgeQuery.
*/
type EdgeQuery interface {
	edgeQuery()
}

/*
RangeVertexQuery scans vertices in identifier order.
*/
type RangeVertexQuery struct {
	StartID *uuid.UUID // First id to return (inclusive); nil starts at the beginning
	T       *data.Type // Optional type filter
	Limit   uint32     // Maximum number of results
}

/*
SpecificVertexQuery looks up vertices by id. Ids which do not exist are
omitted from the result.
*/
type SpecificVertexQuery struct {
	IDs []uuid.UUID
}

/*
PipeVertexQuery produces the vertices at one end of the edges of an inner query.
*/
type PipeVertexQuery struct {
	Inner     EdgeQuery      // Query producing the edges
	Direction data.Direction // End of the edges which should be returned
	Limit     uint32         // Maximum number of results
	T         *data.Type     // Optional vertex type filter
}

/*
SpecificEdgeQuery looks up edges by key. Keys which do not exist are omitted
from the result.
*/
type SpecificEdgeQuery struct {
	Keys []data.EdgeKey
}

/*
PipeEdgeQuery produces the edges of the vertices of an inner query.
*/
type PipeEdgeQuery struct {
	Inner     VertexQuery    // Query producing the vertices
	Direction data.Direction // Direction of the edges relative to the vertices
	Limit     uint32         // Maximum number of results
	T         *data.Type     // Optional edge type filter
	High      *time.Time     // Optional newest creation time (inclusive)
	Low       *time.Time     // Optional oldest creation time (inclusive)
}

func (RangeVertexQuery) vertexQuery()    {}
func (SpecificVertexQuery) vertexQuery() {}
func (PipeVertexQuery) vertexQuery()     {}
func (SpecificEdgeQuery) edgeQuery()     {}
func (PipeEdgeQuery) edgeQuery()         {}

/*
VertexPropertyQuery selects a named property of the vertices of a query.
*/
type VertexPropertyQuery struct {
	Inner VertexQuery
	Name  string
}

/*
EdgePropertyQuery selects a named property of the edges of a query.
*/
type EdgePropertyQuery struct {
	Inner EdgeQuery
	Name  string
}
