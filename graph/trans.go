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
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"devt.de/krotik/arcdb/graph/data"
	"devt.de/krotik/arcdb/graph/graphstorage"
	"devt.de/krotik/arcdb/graph/query"
	"devt.de/krotik/arcdb/graph/util"
)

/*
graphTrans is the Transaction implementation of a Manager. Each operation
runs in a single storage view or update.
*/
type graphTrans struct {
	gm *Manager // Graph manager which created this transaction
}

/*
view runs a read operation.
*/
func (gt *graphTrans) view(fn func(r graphstorage.Reader) error) error {
	if err := gt.gm.checkOpen(); err != nil {
		return err
	}
	return gt.gm.gs.View(fn)
}

/*
update runs a write operation.
*/
func (gt *graphTrans) update(fn func(w graphstorage.Writer) error) error {
	if err := gt.gm.checkOpen(); err != nil {
		return err
	}
	return gt.gm.gs.Update(fn)
}

// Vertices
// ========

/*
CreateVertex creates a new vertex.
*/
func (gt *graphTrans) CreateVertex(v data.Vertex) (bool, error) {
	var created bool

	if v.T.IsZero() {
		return false, util.NewValidationError(util.ErrInvalidType, "Vertex without type")
	}

	err := gt.update(func(w graphstorage.Writer) error {
		var err error
		created, err = createVertex(w, v)
		return err
	})

	return created, err
}

/*
CreateVertexFromType creates a new vertex with a generated id.
*/
func (gt *graphTrans) CreateVertexFromType(t data.Type) (uuid.UUID, error) {
	id, err := gt.gm.newID()
	if err != nil {
		return uuid.Nil, util.NewBackendError(util.ErrWriting, err)
	}

	created, err := gt.CreateVertex(data.NewVertex(id, t))

	if err == nil && !created {
		err = &util.GraphError{Type: util.ErrWriting, Detail: "Generated vertex id exists already: " + id.String()}
	}

	if err != nil {
		return uuid.Nil, err
	}

	return id, nil
}

/*
GetVertices returns the vertices of a query.
*/
func (gt *graphTrans) GetVertices(q query.VertexQuery) ([]data.Vertex, error) {
	var res []data.Vertex

	err := gt.view(func(r graphstorage.Reader) error {
		var err error
		res, err = evalVertices(r, q)
		return err
	})

	return res, err
}

/*
DeleteVertices deletes the vertices of a query with all their edges and
properties.
*/
func (gt *graphTrans) DeleteVertices(q query.VertexQuery) error {
	return gt.update(func(w graphstorage.Writer) error {
		vertices, err := evalVertices(w, q)

		for i := 0; err == nil && i < len(vertices); i++ {
			err = deleteVertex(w, vertices[i].ID)
		}

		return err
	})
}

/*
GetVertexCount returns the number of vertices.
*/
func (gt *graphTrans) GetVertexCount() (uint64, error) {
	var res uint64

	err := gt.view(func(r graphstorage.Reader) error {
		var err error
		res, err = r.VertexCount()
		return err
	})

	return res, err
}

// Edges
// =====

/*
CreateEdge creates a new edge or refreshes the creation time of an existing
edge.
*/
func (gt *graphTrans) CreateEdge(key data.EdgeKey) (bool, error) {
	var created bool

	if key.T.IsZero() {
		return false, util.NewValidationError(util.ErrInvalidType, "Edge without type")
	}

	err := gt.update(func(w graphstorage.Writer) error {
		var err error
		created, err = createEdge(w, key, gt.gm.clock())
		return err
	})

	return created, err
}

/*
GetEdges returns the edges of a query.
*/
func (gt *graphTrans) GetEdges(q query.EdgeQuery) ([]data.Edge, error) {
	var res []data.Edge

	err := gt.view(func(r graphstorage.Reader) error {
		var err error
		res, err = evalEdges(r, q)
		return err
	})

	return res, err
}

/*
DeleteEdges deletes the edges of a query with their properties.
*/
func (gt *graphTrans) DeleteEdges(q query.EdgeQuery) error {
	return gt.update(func(w graphstorage.Writer) error {
		edges, err := evalEdges(w, q)

		for i := 0; err == nil && i < len(edges); i++ {
			err = deleteEdge(w, edges[i].Key)
		}

		return err
	})
}

/*
GetEdgeCount returns the number of edges of a vertex in a given direction.
*/
func (gt *graphTrans) GetEdgeCount(id uuid.UUID, t *data.Type, dir data.Direction) (uint64, error) {
	var res uint64

	err := gt.view(func(r graphstorage.Reader) error {
		return r.ScanEdges(id, dir, t, func(e data.Edge) (bool, error) {
			res++
			return true, nil
		})
	})

	return res, err
}

// Vertex properties
// =================

/*
GetVertexProperties returns a named property of the vertices of a query.
*/
func (gt *graphTrans) GetVertexProperties(q query.VertexPropertyQuery) ([]data.VertexProperty, error) {
	if err := data.CheckPropertyName(q.Name); err != nil {
		return nil, err
	}

	res := []data.VertexProperty{}

	err := gt.view(func(r graphstorage.Reader) error {
		vertices, err := evalVertices(r, q.Inner)

		for i := 0; err == nil && i < len(vertices); i++ {
			var value json.RawMessage
			var ok bool

			if value, ok, err = r.VertexProperty(vertices[i].ID, q.Name); ok {
				res = append(res, data.VertexProperty{ID: vertices[i].ID, Value: value})
			}
		}

		return err
	})

	if err != nil {
		return nil, err
	}

	return res, nil
}

/*
GetAllVertexProperties returns all properties of the vertices of a query.
*/
func (gt *graphTrans) GetAllVertexProperties(q query.VertexQuery) ([]data.VertexProperties, error) {
	res := []data.VertexProperties{}

	err := gt.view(func(r graphstorage.Reader) error {
		vertices, err := evalVertices(r, q)

		for i := 0; err == nil && i < len(vertices); i++ {
			var props []data.NamedProperty

			if props, err = r.VertexProperties(vertices[i].ID); err == nil {
				res = append(res, data.VertexProperties{Vertex: vertices[i], Props: nonNilProps(props)})
			}
		}

		return err
	})

	if err != nil {
		return nil, err
	}

	return res, nil
}

/*
SetVertexProperties sets a named property on the vertices of a query.
*/
func (gt *graphTrans) SetVertexProperties(q query.VertexPropertyQuery, value json.RawMessage) error {
	if err := data.CheckPropertyName(q.Name); err != nil {
		return err
	}

	value, err := data.NormalizeJSON(value)
	if err != nil {
		return err
	}

	return gt.update(func(w graphstorage.Writer) error {
		vertices, err := evalVertices(w, q.Inner)

		for i := 0; err == nil && i < len(vertices); i++ {
			err = w.PutVertexProperty(vertices[i].ID, q.Name, value)
		}

		return err
	})
}

/*
DeleteVertexProperties deletes a named property from the vertices of a query.
*/
func (gt *graphTrans) DeleteVertexProperties(q query.VertexPropertyQuery) error {
	if err := data.CheckPropertyName(q.Name); err != nil {
		return err
	}

	return gt.update(func(w graphstorage.Writer) error {
		vertices, err := evalVertices(w, q.Inner)

		for i := 0; err == nil && i < len(vertices); i++ {
			err = w.DeleteVertexProperty(vertices[i].ID, q.Name)
		}

		return err
	})
}

// Edge properties
// ===============

/*
GetEdgeProperties returns a named property of the edges of a query.
*/
func (gt *graphTrans) GetEdgeProperties(q query.EdgePropertyQuery) ([]data.EdgeProperty, error) {
	if err := data.CheckPropertyName(q.Name); err != nil {
		return nil, err
	}

	res := []data.EdgeProperty{}

	err := gt.view(func(r graphstorage.Reader) error {
		edges, err := evalEdges(r, q.Inner)

		for i := 0; err == nil && i < len(edges); i++ {
			var value json.RawMessage
			var ok bool

			if value, ok, err = r.EdgeProperty(edges[i].Key, q.Name); ok {
				res = append(res, data.EdgeProperty{Key: edges[i].Key, Value: value})
			}
		}

		return err
	})

	if err != nil {
		return nil, err
	}

	return res, nil
}

/*
GetAllEdgeProperties returns all properties of the edges of a query.
*/
func (gt *graphTrans) GetAllEdgeProperties(q query.EdgeQuery) ([]data.EdgeProperties, error) {
	res := []data.EdgeProperties{}

	err := gt.view(func(r graphstorage.Reader) error {
		edges, err := evalEdges(r, q)

		for i := 0; err == nil && i < len(edges); i++ {
			var props []data.NamedProperty

			if props, err = r.EdgeProperties(edges[i].Key); err == nil {
				res = append(res, data.EdgeProperties{Edge: edges[i], Props: nonNilProps(props)})
			}
		}

		return err
	})

	if err != nil {
		return nil, err
	}

	return res, nil
}

/*
SetEdgeProperties sets a named property on the edges of a query.
*/
func (gt *graphTrans) SetEdgeProperties(q query.EdgePropertyQuery, value json.RawMessage) error {
	if err := data.CheckPropertyName(q.Name); err != nil {
		return err
	}

	value, err := data.NormalizeJSON(value)
	if err != nil {
		return err
	}

	return gt.update(func(w graphstorage.Writer) error {
		edges, err := evalEdges(w, q.Inner)

		for i := 0; err == nil && i < len(edges); i++ {
			err = w.PutEdgeProperty(edges[i].Key, q.Name, value)
		}

		return err
	})
}

/*
DeleteEdgeProperties deletes a named property from the edges of a query.
*/
func (gt *graphTrans) DeleteEdgeProperties(q query.EdgePropertyQuery) error {
	if err := data.CheckPropertyName(q.Name); err != nil {
		return err
	}

	return gt.update(func(w graphstorage.Writer) error {
		edges, err := evalEdges(w, q.Inner)

		for i := 0; err == nil && i < len(edges); i++ {
			err = w.DeleteEdgeProperty(edges[i].Key, q.Name)
		}

		return err
	})
}

// Record level helper functions
// =============================

/*
createVertex stores a vertex if its id is not taken.
*/
func createVertex(w graphstorage.Writer, v data.Vertex) (bool, error) {
	_, exists, err := w.Vertex(v.ID)

	if err != nil || exists {
		return false, err
	}

	return true, w.PutVertex(v)
}

/*
createEdge stores an edge if both of its ends exist.
*/
func createEdge(w graphstorage.Writer, key data.EdgeKey, created time.Time) (bool, error) {
	for _, id := range []uuid.UUID{key.OutboundID, key.InboundID} {
		_, exists, err := w.Vertex(id)

		if err != nil || !exists {
			return false, err
		}
	}

	return true, w.PutEdge(key, data.NormalizeTime(created))
}

/*
deleteVertex deletes a vertex with all its edges and properties.
*/
func deleteVertex(w graphstorage.Writer, id uuid.UUID) error {
	var edges []data.EdgeKey

	// Collect all edges of the vertex

	collect := func(e data.Edge) (bool, error) {
		edges = append(edges, e.Key)
		return true, nil
	}

	if err := w.ScanEdges(id, data.Outbound, nil, collect); err != nil {
		return err
	}

	if err := w.ScanEdges(id, data.Inbound, nil, collect); err != nil {
		return err
	}

	props, err := w.VertexProperties(id)
	if err != nil {
		return err
	}

	// Delete collected records

	for _, key := range edges {
		if err := deleteEdge(w, key); err != nil {
			return err
		}
	}

	for _, prop := range props {
		if err := w.DeleteVertexProperty(id, prop.Name); err != nil {
			return err
		}
	}

	return w.DeleteVertex(id)
}

/*
deleteEdge deletes an edge with all its properties.
*/
func deleteEdge(w graphstorage.Writer, key data.EdgeKey) error {
	props, err := w.EdgeProperties(key)
	if err != nil {
		return err
	}

	for _, prop := range props {
		if err := w.DeleteEdgeProperty(key, prop.Name); err != nil {
			return err
		}
	}

	return w.DeleteEdge(key)
}

/*
nonNilProps makes sure property lists are never nil.
*/
func nonNilProps(props []data.NamedProperty) []data.NamedProperty {
	if props == nil {
		return []data.NamedProperty{}
	}
	return props
}
