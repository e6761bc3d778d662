/*
 * ArcDB
 *
 * Copyright 2016 Matthias Ladkau. All rights reserved.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package graph

import (
	"fmt"

	"github.com/google/uuid"

	"devt.de/krotik/arcdb/graph/data"
	"devt.de/krotik/arcdb/graph/graphstorage"
	"devt.de/krotik/arcdb/graph/query"
	"devt.de/krotik/arcdb/graph/util"
)

/*
evalVertices evaluates a vertex query. The result never contains the same
vertex twice.
*/
func evalVertices(r graphstorage.Reader, q query.VertexQuery) ([]data.Vertex, error) {
	switch vq := q.(type) {

	case query.RangeVertexQuery:
		return evalRange(r, vq)

	case query.SpecificVertexQuery:
		return evalSpecificVertices(r, vq)

	case query.PipeVertexQuery:
		return evalPipeVertices(r, vq)
	}

	return nil, &util.GraphError{Type: util.ErrInvalidData, Detail: fmt.Sprintf("Unknown vertex query: %T", q)}
}

/*
evalEdges evaluates an edge query. The result never contains the same
edge twice.
*/
func evalEdges(r graphstorage.Reader, q query.EdgeQuery) ([]data.Edge, error) {
	switch eq := q.(type) {

	case query.SpecificEdgeQuery:
		return evalSpecificEdges(r, eq)

	case query.PipeEdgeQuery:
		return evalPipeEdges(r, eq)
	}

	return nil, &util.GraphError{Type: util.ErrInvalidData, Detail: fmt.Sprintf("Unknown edge query: %T", q)}
}

func evalRange(r graphstorage.Reader, q query.RangeVertexQuery) ([]data.Vertex, error) {
	res := []data.Vertex{}

	if q.Limit == 0 {
		return res, nil
	}

	err := r.ScanVertices(q.StartID, func(v data.Vertex) (bool, error) {
		if q.T == nil || v.T == *q.T {
			res = append(res, v)
		}
		return uint32(len(res)) < q.Limit, nil
	})

	return res, err
}

func evalSpecificVertices(r graphstorage.Reader, q query.SpecificVertexQuery) ([]data.Vertex, error) {
	res := []data.Vertex{}
	seen := make(map[uuid.UUID]bool, len(q.IDs))

	for _, id := range q.IDs {
		if seen[id] {
			continue
		}

		seen[id] = true

		t, ok, err := r.Vertex(id)
		if err != nil {
			return nil, err
		} else if ok {
			res = append(res, data.NewVertex(id, t))
		}
	}

	return res, nil
}

func evalPipeVertices(r graphstorage.Reader, q query.PipeVertexQuery) ([]data.Vertex, error) {
	res := []data.Vertex{}

	if q.Limit == 0 {
		return res, nil
	}

	edges, err := evalEdges(r, q.Inner)
	if err != nil {
		return nil, err
	}

	seen := make(map[uuid.UUID]bool)

	for _, e := range edges {
		id := e.Key.End(q.Direction)

		if seen[id] {
			continue
		}

		seen[id] = true

		t, ok, err := r.Vertex(id)
		if err != nil {
			return nil, err
		} else if !ok || (q.T != nil && t != *q.T) {
			continue
		}

		if res = append(res, data.NewVertex(id, t)); uint32(len(res)) >= q.Limit {
			break
		}
	}

	return res, nil
}

func evalSpecificEdges(r graphstorage.Reader, q query.SpecificEdgeQuery) ([]data.Edge, error) {
	res := []data.Edge{}
	seen := make(map[data.EdgeKey]bool, len(q.Keys))

	for _, key := range q.Keys {
		if seen[key] {
			continue
		}

		seen[key] = true

		created, ok, err := r.Edge(key)
		if err != nil {
			return nil, err
		} else if ok {
			res = append(res, data.NewEdge(key, created))
		}
	}

	return res, nil
}

func evalPipeEdges(r graphstorage.Reader, q query.PipeEdgeQuery) ([]data.Edge, error) {
	res := []data.Edge{}

	if q.Limit == 0 {
		return res, nil
	}

	vertices, err := evalVertices(r, q.Inner)
	if err != nil {
		return nil, err
	}

	for _, v := range vertices {
		err = r.ScanEdges(v.ID, q.Direction, q.T, func(e data.Edge) (bool, error) {
			if (q.High == nil || !e.CreatedDatetime.After(*q.High)) &&
				(q.Low == nil || !e.CreatedDatetime.Before(*q.Low)) {

				res = append(res, e)
			}
			return uint32(len(res)) < q.Limit, nil
		})

		if err != nil {
			return nil, err
		} else if uint32(len(res)) >= q.Limit {
			break
		}
	}

	return res, nil
}
