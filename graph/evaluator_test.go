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
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"devt.de/krotik/arcdb/graph/data"
	"devt.de/krotik/arcdb/graph/graphstorage"
	"devt.de/krotik/arcdb/graph/query"
	"devt.de/krotik/arcdb/graph/util"
)

type unknownVertexQuery struct {
	query.VertexQuery
}

type unknownEdgeQuery struct {
	query.EdgeQuery
}

func id(n byte) uuid.UUID {
	return uuid.UUID{15: n}
}

func TestEvalUnknownQueries(t *testing.T) {
	gs := graphstorage.NewMemoryGraphStorage("mem")

	err := gs.View(func(r graphstorage.Reader) error {
		_, err := evalVertices(r, unknownVertexQuery{})
		assert.True(t, util.IsValidationError(err))

		_, err = evalEdges(r, unknownEdgeQuery{})
		assert.True(t, util.IsValidationError(err))

		// Unknown queries are also detected when nested

		_, err = evalVertices(r, query.PipeVertexQuery{Inner: unknownEdgeQuery{}, Limit: 1})
		assert.True(t, util.IsValidationError(err))

		return nil
	})

	require.NoError(t, err)
}

func TestEvalPipes(t *testing.T) {
	ta := data.MustType("a")
	tb := data.MustType("b")
	now := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)

	gs := graphstorage.NewMemoryGraphStorage("mem")

	require.NoError(t, gs.Update(func(w graphstorage.Writer) error {
		for i := byte(1); i <= 4; i++ {
			if _, err := createVertex(w, data.NewVertex(id(i), ta)); err != nil {
				return err
			}
		}

		for i, key := range []data.EdgeKey{
			data.NewEdgeKey(id(1), ta, id(2)),
			data.NewEdgeKey(id(1), tb, id(3)),
			data.NewEdgeKey(id(1), ta, id(4)),
			data.NewEdgeKey(id(2), ta, id(4)),
		} {
			if _, err := createEdge(w, key, now.Add(time.Duration(i)*time.Second)); err != nil {
				return err
			}
		}

		return nil
	}))

	require.NoError(t, gs.View(func(r graphstorage.Reader) error {

		// Edges of a vertex are ordered by type and other id

		edges, err := evalEdges(r, query.Specific(id(1)).Outbound(10))
		require.NoError(t, err)
		require.Len(t, edges, 3)
		assert.Equal(t, data.NewEdgeKey(id(1), ta, id(2)), edges[0].Key)
		assert.Equal(t, data.NewEdgeKey(id(1), ta, id(4)), edges[1].Key)
		assert.Equal(t, data.NewEdgeKey(id(1), tb, id(3)), edges[2].Key)

		// The time window is inclusive

		edges, err = evalEdges(r, query.Specific(id(1)).Outbound(10).
			WithLow(now.Add(time.Second)).WithHigh(now.Add(2*time.Second)))
		require.NoError(t, err)
		assert.Len(t, edges, 2)

		// Vertex 4 is reached twice but returned once

		vertices, err := evalVertices(r, query.Specific(id(1), id(2)).Outbound(10).Inbound(10))
		require.NoError(t, err)
		assert.Equal(t, []data.Vertex{data.NewVertex(id(2), ta), data.NewVertex(id(4), ta),
			data.NewVertex(id(3), ta)}, vertices)

		vertices, err = evalVertices(r, query.Specific(id(1), id(2)).Outbound(10).Inbound(1))
		require.NoError(t, err)
		assert.Equal(t, []data.Vertex{data.NewVertex(id(2), ta)}, vertices)

		// Inbound edges are reported with their real direction

		edges, err = evalEdges(r, query.Specific(id(4)).Inbound(10))
		require.NoError(t, err)
		require.Len(t, edges, 2)
		assert.Equal(t, id(1), edges[0].Key.OutboundID)
		assert.Equal(t, id(2), edges[1].Key.OutboundID)

		vertices, err = evalVertices(r, query.Specific(id(4)).Inbound(10).Outbound(10))
		require.NoError(t, err)
		assert.Equal(t, []data.Vertex{data.NewVertex(id(1), ta), data.NewVertex(id(2), ta)}, vertices)

		return nil
	}))
}

func TestBulkInserter(t *testing.T) {
	gm := NewGraphManager(graphstorage.NewMemoryGraphStorage("mem"), WithBulkBatchSize(2))

	bi := NewBulkInserter(gm)

	assert.Equal(t, "Bulk inserter - Items: 0 - Batches: 0 - Pending: 0 - Batch size: 2", bi.String())

	require.NoError(t, bi.Add(data.BulkVertex{Vertex: data.NewVertex(id(1), data.MustType("a"))}))
	require.NoError(t, bi.Add(data.BulkVertexProperty{ID: id(1), Name: "x",
		Value: json.RawMessage(` { "a" : 1 } `)}))
	require.NoError(t, bi.Add(data.BulkVertexProperty{ID: id(2), Name: "x", Value: json.RawMessage(`1`)}))

	assert.Equal(t, "Bulk inserter - Items: 3 - Batches: 1 - Pending: 1 - Batch size: 2", bi.String())

	err := bi.Add(data.BulkVertex{Vertex: data.NewVertex(id(3), data.Type{})})
	assert.ErrorIs(t, err, util.ErrInvalidType)

	err = bi.Add(data.BulkEdgeProperty{Key: data.NewEdgeKey(id(1), data.MustType("a"), id(1)),
		Name: "x", Value: json.RawMessage(`{`)})
	assert.ErrorIs(t, err, util.ErrInvalidJSON)

	require.NoError(t, bi.Close())

	trans, err := gm.Transaction()
	require.NoError(t, err)

	props, err := trans.GetAllVertexProperties(query.Range(10))
	require.NoError(t, err)
	require.Len(t, props, 1)
	assert.Equal(t, []data.NamedProperty{{Name: "x", Value: json.RawMessage(`{"a":1}`)}}, props[0].Props)

	// Errors of several batches are combined

	require.NoError(t, gm.Close())

	bi = NewBulkInserter(gm)

	assert.Error(t, bi.Add(data.BulkVertex{Vertex: data.NewVertex(id(4), data.MustType("a"))}))
	assert.Error(t, bi.Add(data.BulkVertex{Vertex: data.NewVertex(id(5), data.MustType("a"))}))
	assert.Error(t, bi.Add(data.BulkVertex{Vertex: data.NewVertex(id(6), data.MustType("a"))}))
	assert.Error(t, bi.Add(data.BulkVertex{Vertex: data.NewVertex(id(7), data.MustType("a"))}))

	err = bi.Close()
	assert.Contains(t, err.Error(), "Datastore is closed")
	assert.False(t, util.IsBackendError(err))
}
