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
	"time"

	"github.com/google/uuid"

	"devt.de/krotik/arcdb/graph/data"
)

// Builder functions return modified copies, the receiver is never changed.

/*
Range creates a new range query which scans all vertices.
*/
func Range(limit uint32) RangeVertexQuery {
	return RangeVertexQuery{Limit: limit}
}

/*
Specific creates a new query for a set of vertex ids.
*/
func Specific(ids ...uuid.UUID) SpecificVertexQuery {
	return SpecificVertexQuery{IDs: ids}
}

/*
SpecificEdges creates a new query for a set of edge keys.
*/
func SpecificEdges(keys ...data.EdgeKey) SpecificEdgeQuery {
	return SpecificEdgeQuery{Keys: keys}
}

/*
WithStart sets the first id of the range.
*/
func (q RangeVertexQuery) WithStart(id uuid.UUID) RangeVertexQuery {
	q.StartID = &id
	return q
}

/*
WithType sets the vertex type filter.
*/
func (q RangeVertexQuery) WithType(t data.Type) RangeVertexQuery {
	q.T = &t
	return q
}

/*
WithType sets the vertex type filter.
*/
func (q PipeVertexQuery) WithType(t data.Type) PipeVertexQuery {
	q.T = &t
	return q
}

/*
WithType sets the edge type filter.
*/
func (q PipeEdgeQuery) WithType(t data.Type) PipeEdgeQuery {
	q.T = &t
	return q
}

/*
WithHigh sets the newest creation time (inclusive) of the returned edges.
*/
func (q PipeEdgeQuery) WithHigh(high time.Time) PipeEdgeQuery {
	q.High = &high
	return q
}

/*
WithLow sets the oldest creation time (inclusive) of the returned edges.
*/
func (q PipeEdgeQuery) WithLow(low time.Time) PipeEdgeQuery {
	q.Low = &low
	return q
}

func pipeEdges(inner VertexQuery, dir data.Direction, limit uint32) PipeEdgeQuery {
	return PipeEdgeQuery{Inner: inner, Direction: dir, Limit: limit}
}

func pipeVertices(inner EdgeQuery, dir data.Direction, limit uint32) PipeVertexQuery {
	return PipeVertexQuery{Inner: inner, Direction: dir, Limit: limit}
}

/*
Outbound returns the edges for which the vertices of this query are the outbound end.
*/
func (q RangeVertexQuery) Outbound(limit uint32) PipeEdgeQuery {
	return pipeEdges(q, data.Outbound, limit)
}

/*
Inbound returns the edges for which the vertices of this query are the inbound end.
*/
func (q RangeVertexQuery) Inbound(limit uint32) PipeEdgeQuery {
	return pipeEdges(q, data.Inbound, limit)
}

/*
Outbound returns the edges for which the vertices of this query are the outbound end.
*/
func (q SpecificVertexQuery) Outbound(limit uint32) PipeEdgeQuery {
	return pipeEdges(q, data.Outbound, limit)
}

/*
Inbound returns the edges for which the vertices of this query are the inbound end.
*/
func (q SpecificVertexQuery) Inbound(limit uint32) PipeEdgeQuery {
	return pipeEdges(q, data.Inbound, limit)
}

/*
Outbound returns the edges for which the vertices of this query are the outbound end.
*/
func (q PipeVertexQuery) Outbound(limit uint32) PipeEdgeQuery {
	return pipeEdges(q, data.Outbound, limit)
}

/*
Inbound returns the edges for which the vertices of this query are the inbound end.
*/
func (q PipeVertexQuery) Inbound(limit uint32) PipeEdgeQuery {
	return pipeEdges(q, data.Inbound, limit)
}

/*
Outbound returns the outbound vertices of the edges of this query.
*/
func (q SpecificEdgeQuery) Outbound(limit uint32) PipeVertexQuery {
	return pipeVertices(q, data.Outbound, limit)
}

/*
Inbound returns the inbound vertices of the edges of this query.
*/
func (q SpecificEdgeQuery) Inbound(limit uint32) PipeVertexQuery {
	return pipeVertices(q, data.Inbound, limit)
}

/*
Outbound returns the outbound vertices of the edges of this query.
*/
func (q PipeEdgeQuery) Outbound(limit uint32) PipeVertexQuery {
	return pipeVertices(q, data.Outbound, limit)
}

/*
Inbound returns the inbound vertices of the edges of this query.
*/
func (q PipeEdgeQuery) Inbound(limit uint32) PipeVertexQuery {
	return pipeVertices(q, data.Inbound, limit)
}

/*
Property selects a named property of the vertices of this query.
*/
func (q RangeVertexQuery) Property(name string) VertexPropertyQuery {
	return VertexPropertyQuery{q, name}
}

/*
Property selects a named property of the vertices of this query.
*/
func (q SpecificVertexQuery) Property(name string) VertexPropertyQuery {
	return VertexPropertyQuery{q, name}
}

/*
Property selects a named property of the vertices of this query.
*/
func (q PipeVertexQuery) Property(name string) VertexPropertyQuery {
	return VertexPropertyQuery{q, name}
}

/*
Property selects a named property of the edges of this query.
*/
func (q SpecificEdgeQuery) Property(name string) EdgePropertyQuery {
	return EdgePropertyQuery{q, name}
}

/*
Property selects a named property of the edges of this query.
*/
func (q PipeEdgeQuery) Property(name string) EdgePropertyQuery {
	return EdgePropertyQuery{q, name}
}
