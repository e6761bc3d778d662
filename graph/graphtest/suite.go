/*
 * ArcDB
 *
 * Copyright 2016 Matthias Ladkau. All rights reserved.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package graphtest

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"devt.de/krotik/arcdb/graph"
	"devt.de/krotik/arcdb/graph/data"
	"devt.de/krotik/arcdb/graph/query"
	"devt.de/krotik/arcdb/graph/util"
)

var (
	userType    = data.MustType("user")
	groupType   = data.MustType("group")
	followsType = data.MustType("follows")
	memberType  = data.MustType("member")
)

/*
RunSuite runs all datastore checks against datastores of a given factory.
*/
func RunSuite(t *testing.T, factory Factory) {
	checks := []struct {
		name string
		fn   func(t *testing.T, factory Factory)
	}{
		{"ConcreteScenario", checkConcreteScenario},
		{"DuplicateCreateVertex", checkDuplicateCreateVertex},
		{"CreateVertexFromType", checkCreateVertexFromType},
		{"CreateEdge", checkCreateEdge},
		{"CascadeDelete", checkCascadeDelete},
		{"DeleteEdges", checkDeleteEdges},
		{"PipeRoundTrip", checkPipeRoundTrip},
		{"MultiHop", checkMultiHop},
		{"RangeQuery", checkRangeQuery},
		{"LimitMonotonicity", checkLimitMonotonicity},
		{"SpecificQuery", checkSpecificQuery},
		{"EdgePipeOrder", checkEdgePipeOrder},
		{"EdgePipeTimeWindow", checkEdgePipeTimeWindow},
		{"EdgeCount", checkEdgeCount},
		{"VertexProperties", checkVertexProperties},
		{"EdgeProperties", checkEdgeProperties},
		{"Validation", checkValidation},
		{"BulkInsert", checkBulkInsert},
		{"ImportExport", checkImportExport},
		{"Concurrency", checkConcurrency},
		{"Close", checkClose},
	}

	for _, c := range checks {
		check := c
		t.Run(check.name, func(t *testing.T) {
			check.fn(t, factory)
		})
	}
}

/*
newTrans creates a new datastore with a transaction.
*/
func newTrans(t *testing.T, factory Factory, opts ...graph.Option) (graph.Datastore, graph.Transaction) {
	ds := factory(t, opts...)

	trans, err := ds.Transaction()
	require.NoError(t, err)

	return ds, trans
}

func createVertices(t *testing.T, trans graph.Transaction, tp data.Type, ids ...uuid.UUID) {
	for _, id := range ids {
		created, err := trans.CreateVertex(data.NewVertex(id, tp))
		require.NoError(t, err)
		require.True(t, created, id.String())
	}
}

func createEdges(t *testing.T, trans graph.Transaction, keys ...data.EdgeKey) {
	for _, key := range keys {
		created, err := trans.CreateEdge(key)
		require.NoError(t, err)
		require.True(t, created, key.String())
	}
}

func vertexIDs(t *testing.T, trans graph.Transaction, q query.VertexQuery) []uuid.UUID {
	vertices, err := trans.GetVertices(q)
	require.NoError(t, err)

	ids := []uuid.UUID{}
	for _, v := range vertices {
		ids = append(ids, v.ID)
	}

	return ids
}

func edgeKeys(t *testing.T, trans graph.Transaction, q query.EdgeQuery) []data.EdgeKey {
	edges, err := trans.GetEdges(q)
	require.NoError(t, err)

	keys := []data.EdgeKey{}
	for _, e := range edges {
		keys = append(keys, e.Key)
	}

	return keys
}

func edgeCount(t *testing.T, trans graph.Transaction, id uuid.UUID, tp *data.Type, dir data.Direction) uint64 {
	count, err := trans.GetEdgeCount(id, tp, dir)
	require.NoError(t, err)
	return count
}

func vertexCount(t *testing.T, trans graph.Transaction) uint64 {
	count, err := trans.GetVertexCount()
	require.NoError(t, err)
	return count
}

func checkConcreteScenario(t *testing.T, factory Factory) {
	_, trans := newTrans(t, factory)

	a, b := TestID(1), TestID(2)

	createVertices(t, trans, userType, a, b)
	createEdges(t, trans, data.NewEdgeKey(a, followsType, b))

	assert.Equal(t, uint64(1), edgeCount(t, trans, a, &followsType, data.Outbound))
	assert.Equal(t, uint64(0), edgeCount(t, trans, b, &followsType, data.Outbound))

	require.NoError(t, trans.DeleteVertices(query.Specific(a)))

	assert.Empty(t, edgeKeys(t, trans, query.SpecificEdges(data.NewEdgeKey(a, followsType, b))))
}

func checkDuplicateCreateVertex(t *testing.T, factory Factory) {
	_, trans := newTrans(t, factory)

	v := data.NewVertex(TestID(1), userType)

	created, err := trans.CreateVertex(v)
	require.NoError(t, err)
	assert.True(t, created)

	// Same id with a different type is also a duplicate

	created, err = trans.CreateVertex(data.NewVertex(v.ID, groupType))
	require.NoError(t, err)
	assert.False(t, created)

	assert.Equal(t, uint64(1), vertexCount(t, trans))

	vertices, err := trans.GetVertices(query.Specific(v.ID))
	require.NoError(t, err)
	assert.Equal(t, []data.Vertex{v}, vertices)
}

func checkCreateVertexFromType(t *testing.T, factory Factory) {
	_, trans := newTrans(t, factory, graph.WithIDGenerator(SequentialIDs(0xb0)))

	id1, err := trans.CreateVertexFromType(userType)
	require.NoError(t, err)

	id2, err := trans.CreateVertexFromType(groupType)
	require.NoError(t, err)

	assert.NotEqual(t, id1, id2)

	vertices, err := trans.GetVertices(query.Range(10))
	require.NoError(t, err)
	assert.Equal(t, []data.Vertex{data.NewVertex(id1, userType), data.NewVertex(id2, groupType)}, vertices)

	// An id generator which repeats itself causes an error

	_, trans = newTrans(t, factory, graph.WithIDGenerator(func() (uuid.UUID, error) {
		return TestID(9), nil
	}))

	_, err = trans.CreateVertexFromType(userType)
	require.NoError(t, err)

	_, err = trans.CreateVertexFromType(userType)
	assert.True(t, util.IsBackendError(err))

	// Errors of the id generator are returned

	_, trans = newTrans(t, factory, graph.WithIDGenerator(func() (uuid.UUID, error) {
		return uuid.Nil, errors.New("testerror")
	}))

	_, err = trans.CreateVertexFromType(userType)
	assert.Error(t, err)
}

func checkCreateEdge(t *testing.T, factory Factory) {
	clock := NewClock(time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC), time.Second)

	_, trans := newTrans(t, factory, graph.WithClock(clock.Now))

	a, b, missing := TestID(1), TestID(2), TestID(3)

	createVertices(t, trans, userType, a, b)

	// Edges need both ends

	for _, key := range []data.EdgeKey{
		data.NewEdgeKey(a, followsType, missing),
		data.NewEdgeKey(missing, followsType, b),
	} {
		created, err := trans.CreateEdge(key)
		require.NoError(t, err)
		assert.False(t, created)
	}

	key := data.NewEdgeKey(a, followsType, b)

	createEdges(t, trans, key)

	edges, err := trans.GetEdges(query.SpecificEdges(key))
	require.NoError(t, err)
	require.Len(t, edges, 1)

	first := edges[0].CreatedDatetime

	// Creating an existing edge refreshes its creation time

	createEdges(t, trans, key)

	edges, err = trans.GetEdges(query.SpecificEdges(key))
	require.NoError(t, err)
	require.Len(t, edges, 1)
	assert.True(t, edges[0].CreatedDatetime.After(first))

	assert.Equal(t, uint64(1), edgeCount(t, trans, a, nil, data.Outbound))

	// Self loops are edges like any other

	loop := data.NewEdgeKey(a, followsType, a)
	createEdges(t, trans, loop)

	assert.Equal(t, uint64(2), edgeCount(t, trans, a, nil, data.Outbound))
	assert.Equal(t, uint64(1), edgeCount(t, trans, a, nil, data.Inbound))
}

func checkCascadeDelete(t *testing.T, factory Factory) {
	_, trans := newTrans(t, factory)

	a, b, c := TestID(1), TestID(2), TestID(3)

	createVertices(t, trans, userType, a, b, c)

	ab := data.NewEdgeKey(a, followsType, b)
	ca := data.NewEdgeKey(c, followsType, a)
	aa := data.NewEdgeKey(a, memberType, a)
	bc := data.NewEdgeKey(b, followsType, c)

	createEdges(t, trans, ab, ca, aa, bc)

	value := json.RawMessage(`{"x":1}`)

	require.NoError(t, trans.SetVertexProperties(query.Specific(a, b).Property("p"), value))
	require.NoError(t, trans.SetEdgeProperties(query.SpecificEdges(ab, ca, aa, bc).Property("p"), value))

	require.NoError(t, trans.DeleteVertices(query.Specific(a)))

	assert.Equal(t, uint64(2), vertexCount(t, trans))
	assert.Equal(t, []uuid.UUID{b, c}, vertexIDs(t, trans, query.Range(10)))

	// No edge with the deleted vertex as an end survives

	assert.Equal(t, []data.EdgeKey{bc}, edgeKeys(t, trans, query.SpecificEdges(ab, ca, aa, bc)))
	assert.Equal(t, []data.EdgeKey{bc}, edgeKeys(t, trans, query.Range(10).Outbound(10)))
	assert.Equal(t, []data.EdgeKey{bc}, edgeKeys(t, trans, query.Range(10).Inbound(10)))

	for _, dir := range []data.Direction{data.Outbound, data.Inbound} {
		assert.Equal(t, uint64(0), edgeCount(t, trans, a, nil, dir))
	}

	// Properties of the vertex and its edges are gone

	props, err := trans.GetVertexProperties(query.Specific(a, b).Property("p"))
	require.NoError(t, err)
	assert.Equal(t, []data.VertexProperty{{ID: b, Value: value}}, props)

	eprops, err := trans.GetEdgeProperties(query.SpecificEdges(ab, ca, aa, bc).Property("p"))
	require.NoError(t, err)
	assert.Equal(t, []data.EdgeProperty{{Key: bc, Value: value}}, eprops)

	// Recreating the vertex and its edges does not bring back old data

	createVertices(t, trans, userType, a)
	createEdges(t, trans, ab)

	props, err = trans.GetVertexProperties(query.Specific(a).Property("p"))
	require.NoError(t, err)
	assert.Empty(t, props)

	eprops, err = trans.GetEdgeProperties(query.SpecificEdges(ab).Property("p"))
	require.NoError(t, err)
	assert.Empty(t, eprops)

	// Deleting by query deletes all matching vertices

	require.NoError(t, trans.DeleteVertices(query.Range(10).WithType(userType)))
	assert.Equal(t, uint64(0), vertexCount(t, trans))
	assert.Empty(t, edgeKeys(t, trans, query.SpecificEdges(ab, bc)))

	// Deleting missing vertices is not an error

	require.NoError(t, trans.DeleteVertices(query.Specific(a, b)))
}

func checkDeleteEdges(t *testing.T, factory Factory) {
	_, trans := newTrans(t, factory)

	a, b := TestID(1), TestID(2)

	createVertices(t, trans, userType, a, b)

	ab := data.NewEdgeKey(a, followsType, b)
	ba := data.NewEdgeKey(b, followsType, a)

	createEdges(t, trans, ab, ba)

	require.NoError(t, trans.SetEdgeProperties(query.SpecificEdges(ab, ba).Property("w"), json.RawMessage(`1`)))

	require.NoError(t, trans.DeleteEdges(query.Specific(a).Outbound(10)))

	assert.Equal(t, []data.EdgeKey{ba}, edgeKeys(t, trans, query.SpecificEdges(ab, ba)))
	assert.Equal(t, uint64(2), vertexCount(t, trans))

	// Edge properties go with the edge

	createEdges(t, trans, ab)

	eprops, err := trans.GetEdgeProperties(query.SpecificEdges(ab, ba).Property("w"))
	require.NoError(t, err)
	assert.Equal(t, []data.EdgeProperty{{Key: ba, Value: json.RawMessage(`1`)}}, eprops)

	require.NoError(t, trans.DeleteEdges(query.SpecificEdges(data.NewEdgeKey(b, memberType, a))))
	assert.Len(t, edgeKeys(t, trans, query.SpecificEdges(ab, ba)), 2)
}

func checkPipeRoundTrip(t *testing.T, factory Factory) {
	_, trans := newTrans(t, factory)

	a, b := TestID(1), TestID(2)

	createVertices(t, trans, userType, a, b)
	createEdges(t, trans, data.NewEdgeKey(a, followsType, b))

	// The outbound edges of A lead to B

	assert.Contains(t, vertexIDs(t, trans, query.Specific(a).Outbound(10).Inbound(10)), b)

	// The inbound edges of B lead back to A

	assert.Contains(t, vertexIDs(t, trans, query.Specific(b).Inbound(10).Outbound(10)), a)

	// A vertex pipe yields the end which is named by its direction

	assert.Equal(t, []uuid.UUID{a}, vertexIDs(t, trans, query.Specific(a).Outbound(10).Outbound(10)))
	assert.Equal(t, []uuid.UUID{b}, vertexIDs(t, trans, query.Specific(b).Inbound(10).Inbound(10)))

	// Pipes from vertices without edges are empty

	assert.Empty(t, vertexIDs(t, trans, query.Specific(b).Outbound(10).Inbound(10)))
}

func checkMultiHop(t *testing.T, factory Factory) {
	_, trans := newTrans(t, factory)

	ids := []uuid.UUID{TestID(1), TestID(2), TestID(3), TestID(4), TestID(5)}

	createVertices(t, trans, userType, ids[:4]...)
	createVertices(t, trans, groupType, ids[4])

	// 1 -> 2, 1 -> 3, 2 -> 4, 3 -> 4, 3 -> 5

	createEdges(t, trans,
		data.NewEdgeKey(ids[0], followsType, ids[1]),
		data.NewEdgeKey(ids[0], followsType, ids[2]),
		data.NewEdgeKey(ids[1], followsType, ids[3]),
		data.NewEdgeKey(ids[2], followsType, ids[3]),
		data.NewEdgeKey(ids[2], memberType, ids[4]))

	twoHops := query.Specific(ids[0]).Outbound(10).Inbound(10).Outbound(10).Inbound(10)

	// Vertex 4 is reached twice but returned once

	assert.Equal(t, []uuid.UUID{ids[3], ids[4]}, vertexIDs(t, trans, twoHops))

	assert.Equal(t, []uuid.UUID{ids[3]}, vertexIDs(t, trans, twoHops.WithType(userType)))

	assert.Equal(t, []uuid.UUID{ids[4]}, vertexIDs(t, trans,
		query.Specific(ids[0]).Outbound(10).Inbound(10).Outbound(10).WithType(memberType).Inbound(10)))

	// Limits are applied after deduplication

	limited := twoHops
	limited.Limit = 1

	assert.Equal(t, []uuid.UUID{ids[3]}, vertexIDs(t, trans, limited))

	// Queries can be reused

	assert.Equal(t, vertexIDs(t, trans, twoHops), vertexIDs(t, trans, twoHops))
}

func checkRangeQuery(t *testing.T, factory Factory) {
	_, trans := newTrans(t, factory)

	createVertices(t, trans, userType, TestID(1), TestID(3), TestID(5))
	createVertices(t, trans, groupType, TestID(2), TestID(4))

	assert.Equal(t, []uuid.UUID{TestID(1), TestID(2), TestID(3), TestID(4), TestID(5)},
		vertexIDs(t, trans, query.Range(10)))

	// The start id is inclusive and does not need to exist

	assert.Equal(t, []uuid.UUID{TestID(3), TestID(4)}, vertexIDs(t, trans, query.Range(2).WithStart(TestID(3))))
	assert.Len(t, vertexIDs(t, trans, query.Range(10).WithStart(uuid.Nil)), 5)

	// Limits are applied after the type filter

	assert.Equal(t, []uuid.UUID{TestID(2), TestID(4)}, vertexIDs(t, trans, query.Range(2).WithType(groupType)))
	assert.Equal(t, []uuid.UUID{TestID(3), TestID(5)}, vertexIDs(t, trans, query.Range(5).WithStart(TestID(2)).WithType(userType)))

	assert.Empty(t, vertexIDs(t, trans, query.Range(0)))
	assert.Empty(t, vertexIDs(t, trans, query.Range(10).WithType(memberType)))
	assert.Empty(t, vertexIDs(t, trans, query.Range(10).WithStart(TestID(6))))
}

func checkLimitMonotonicity(t *testing.T, factory Factory) {
	_, trans := newTrans(t, factory)

	for i := byte(20); i > 0; i-- {
		tp := userType
		if i%3 == 0 {
			tp = groupType
		}
		createVertices(t, trans, tp, TestID(i))
	}

	for _, tp := range []*data.Type{nil, &userType, &groupType} {
		prev := vertexIDs(t, trans, rangeQuery(0, tp))

		for n := uint32(1); n <= 22; n++ {
			res := vertexIDs(t, trans, rangeQuery(n, tp))

			assert.LessOrEqual(t, len(res), int(n))
			assert.Equal(t, prev, res[:len(prev)])

			prev = res
		}
	}
}

func rangeQuery(limit uint32, tp *data.Type) query.RangeVertexQuery {
	q := query.Range(limit)
	if tp != nil {
		q = q.WithType(*tp)
	}
	return q
}

func checkSpecificQuery(t *testing.T, factory Factory) {
	_, trans := newTrans(t, factory)

	a, b, c := TestID(1), TestID(2), TestID(3)

	createVertices(t, trans, userType, a, b, c)

	// Request order is kept, duplicates and missing ids are left out

	assert.Equal(t, []uuid.UUID{c, a, b}, vertexIDs(t, trans, query.Specific(c, TestID(9), a, c, b, a)))
	assert.Empty(t, vertexIDs(t, trans, query.Specific()))

	ab := data.NewEdgeKey(a, followsType, b)
	cb := data.NewEdgeKey(c, followsType, b)

	createEdges(t, trans, ab, cb)

	assert.Equal(t, []data.EdgeKey{cb, ab}, edgeKeys(t, trans,
		query.SpecificEdges(cb, ab.Reversed(), ab, cb, data.NewEdgeKey(a, memberType, b))))
}

func checkEdgePipeOrder(t *testing.T, factory Factory) {
	_, trans := newTrans(t, factory)

	a, b, c, d := TestID(1), TestID(2), TestID(3), TestID(4)

	createVertices(t, trans, userType, a, b, c, d)

	keys := []data.EdgeKey{
		data.NewEdgeKey(a, memberType, b),
		data.NewEdgeKey(a, followsType, d),
		data.NewEdgeKey(a, followsType, b),
		data.NewEdgeKey(c, followsType, b),
		data.NewEdgeKey(a, memberType, c),
	}

	createEdges(t, trans, keys...)

	// Edges are ordered by type and then by the other end

	assert.Equal(t, []data.EdgeKey{keys[2], keys[1], keys[0], keys[4]},
		edgeKeys(t, trans, query.Specific(a).Outbound(10)))

	assert.Equal(t, []data.EdgeKey{keys[2], keys[3], keys[0]},
		edgeKeys(t, trans, query.Specific(b).Inbound(10)))

	// Edges of several vertices follow the order of the vertices

	assert.Equal(t, []data.EdgeKey{keys[3], keys[2], keys[1]},
		edgeKeys(t, trans, query.Specific(c, a).Outbound(10).WithType(followsType)))

	// Limits apply to the whole result

	assert.Equal(t, []data.EdgeKey{keys[2], keys[1], keys[0]},
		edgeKeys(t, trans, query.Specific(a, c).Outbound(3)))

	// Member edges of a and c lead to b and c whose inbound edges are returned

	assert.Equal(t, []data.EdgeKey{keys[2], keys[3], keys[0], keys[4]},
		edgeKeys(t, trans, query.Specific(a, c).Outbound(3).WithType(memberType).Inbound(10).Inbound(10)))

	assert.Empty(t, edgeKeys(t, trans, query.Specific(a).Outbound(0)))
}

func checkEdgePipeTimeWindow(t *testing.T, factory Factory) {
	start := time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := NewClock(start, time.Hour)

	_, trans := newTrans(t, factory, graph.WithClock(clock.Now))

	a := TestID(1)
	others := []uuid.UUID{TestID(2), TestID(3), TestID(4), TestID(5)}

	createVertices(t, trans, userType, a)
	createVertices(t, trans, userType, others...)

	// Edges are created at start + 1h, 2h, 3h, 4h

	for _, id := range others {
		createEdges(t, trans, data.NewEdgeKey(a, followsType, id))
	}

	hour := func(n int) time.Time {
		return start.Add(time.Duration(n) * time.Hour)
	}

	window := func(low, high *time.Time, limit uint32) []uuid.UUID {
		q := query.Specific(a).Outbound(limit)
		q.Low, q.High = low, high

		var ids []uuid.UUID
		for _, key := range edgeKeys(t, trans, q) {
			ids = append(ids, key.InboundID)
		}

		return ids
	}

	h2, h3 := hour(2), hour(3)

	// Window bounds are inclusive

	assert.Equal(t, []uuid.UUID{others[1], others[2]}, window(&h2, &h3, 10))
	assert.Equal(t, []uuid.UUID{others[1], others[2], others[3]}, window(&h2, nil, 10))
	assert.Equal(t, []uuid.UUID{others[0], others[1], others[2]}, window(nil, &h3, 10))
	assert.Equal(t, []uuid.UUID{others[2]}, window(&h3, &h3, 10))
	assert.Nil(t, window(&h3, &h2, 10))

	// Limits are applied after the window

	assert.Equal(t, []uuid.UUID{others[2]}, window(&h3, nil, 1))

	// Refreshing an edge moves it into a later window

	createEdges(t, trans, data.NewEdgeKey(a, followsType, others[0]))

	h5 := hour(5)
	assert.Equal(t, []uuid.UUID{others[0]}, window(&h5, nil, 10))
}

func checkEdgeCount(t *testing.T, factory Factory) {
	_, trans := newTrans(t, factory)

	a, b, c := TestID(1), TestID(2), TestID(3)

	createVertices(t, trans, userType, a, b, c)
	createEdges(t, trans,
		data.NewEdgeKey(a, followsType, b),
		data.NewEdgeKey(a, followsType, c),
		data.NewEdgeKey(a, memberType, b),
		data.NewEdgeKey(c, followsType, a))

	assert.Equal(t, uint64(3), edgeCount(t, trans, a, nil, data.Outbound))
	assert.Equal(t, uint64(2), edgeCount(t, trans, a, &followsType, data.Outbound))
	assert.Equal(t, uint64(1), edgeCount(t, trans, a, &memberType, data.Outbound))
	assert.Equal(t, uint64(1), edgeCount(t, trans, a, nil, data.Inbound))
	assert.Equal(t, uint64(2), edgeCount(t, trans, b, nil, data.Inbound))
	assert.Equal(t, uint64(0), edgeCount(t, trans, b, nil, data.Outbound))
	assert.Equal(t, uint64(0), edgeCount(t, trans, TestID(9), nil, data.Outbound))

	tp := data.MustType("follow")
	assert.Equal(t, uint64(0), edgeCount(t, trans, a, &tp, data.Outbound))
}

func checkVertexProperties(t *testing.T, factory Factory) {
	_, trans := newTrans(t, factory)

	a, b := TestID(1), TestID(2)

	createVertices(t, trans, userType, a, b)

	q := query.Specific(a).Property("name")

	// Setting overwrites

	require.NoError(t, trans.SetVertexProperties(q, json.RawMessage(`"v1"`)))
	require.NoError(t, trans.SetVertexProperties(q, json.RawMessage(`"v2"`)))

	props, err := trans.GetVertexProperties(q)
	require.NoError(t, err)
	assert.Equal(t, []data.VertexProperty{{ID: a, Value: json.RawMessage(`"v2"`)}}, props)

	// Values are stored in compact form

	require.NoError(t, trans.SetVertexProperties(query.Range(10).Property("obj"),
		json.RawMessage(" { \"a\" : [1, 2, null] } ")))

	all, err := trans.GetAllVertexProperties(query.Specific(b, a))
	require.NoError(t, err)
	assert.Equal(t, []data.VertexProperties{
		{Vertex: data.NewVertex(b, userType), Props: []data.NamedProperty{
			{Name: "obj", Value: json.RawMessage(`{"a":[1,2,null]}`)},
		}},
		{Vertex: data.NewVertex(a, userType), Props: []data.NamedProperty{
			{Name: "name", Value: json.RawMessage(`"v2"`)},
			{Name: "obj", Value: json.RawMessage(`{"a":[1,2,null]}`)},
		}},
	}, all)

	// Delete a property

	require.NoError(t, trans.DeleteVertexProperties(query.Range(10).Property("obj")))
	require.NoError(t, trans.DeleteVertexProperties(query.Range(10).Property("unknown")))

	all, err = trans.GetAllVertexProperties(query.Specific(a, b, TestID(9)))
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, []data.NamedProperty{{Name: "name", Value: json.RawMessage(`"v2"`)}}, all[0].Props)
	assert.Equal(t, []data.NamedProperty{}, all[1].Props)

	// Properties of missing vertices are never written

	require.NoError(t, trans.SetVertexProperties(query.Specific(TestID(9)).Property("name"), json.RawMessage(`1`)))
	createVertices(t, trans, userType, TestID(9))

	props, err = trans.GetVertexProperties(query.Specific(TestID(9)).Property("name"))
	require.NoError(t, err)
	assert.Empty(t, props)

	// Any JSON value is a valid property value

	for _, v := range []string{`null`, `true`, `-1.5e3`, `"text"`, `[]`, `{"deep":{"deeper":[{}]}}`} {
		require.NoError(t, trans.SetVertexProperties(q, json.RawMessage(v)))

		props, err = trans.GetVertexProperties(q)
		require.NoError(t, err)
		require.Len(t, props, 1)
		assert.JSONEq(t, v, string(props[0].Value))
	}
}

func checkEdgeProperties(t *testing.T, factory Factory) {
	_, trans := newTrans(t, factory)

	a, b := TestID(1), TestID(2)

	createVertices(t, trans, userType, a, b)

	ab := data.NewEdgeKey(a, followsType, b)
	ba := data.NewEdgeKey(b, followsType, a)

	createEdges(t, trans, ab, ba)

	q := query.Specific(a).Outbound(10).Property("weight")

	require.NoError(t, trans.SetEdgeProperties(q, json.RawMessage(`1`)))
	require.NoError(t, trans.SetEdgeProperties(q, json.RawMessage(`2`)))

	props, err := trans.GetEdgeProperties(q)
	require.NoError(t, err)
	assert.Equal(t, []data.EdgeProperty{{Key: ab, Value: json.RawMessage(`2`)}}, props)

	props, err = trans.GetEdgeProperties(query.SpecificEdges(ba).Property("weight"))
	require.NoError(t, err)
	assert.Empty(t, props)

	require.NoError(t, trans.SetEdgeProperties(query.SpecificEdges(ab, ba).Property("color"), json.RawMessage(`"red"`)))

	all, err := trans.GetAllEdgeProperties(query.SpecificEdges(ba, ab))
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, ba, all[0].Edge.Key)
	assert.Equal(t, []data.NamedProperty{{Name: "color", Value: json.RawMessage(`"red"`)}}, all[0].Props)
	assert.Equal(t, ab, all[1].Edge.Key)
	assert.Equal(t, []data.NamedProperty{
		{Name: "color", Value: json.RawMessage(`"red"`)},
		{Name: "weight", Value: json.RawMessage(`2`)},
	}, all[1].Props)

	require.NoError(t, trans.DeleteEdgeProperties(query.SpecificEdges(ab, ba).Property("color")))

	all, err = trans.GetAllEdgeProperties(query.SpecificEdges(ba, ab))
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, []data.NamedProperty{}, all[0].Props)
	assert.Len(t, all[1].Props, 1)

	// Refreshing an edge keeps its properties

	createEdges(t, trans, ab)

	props, err = trans.GetEdgeProperties(q)
	require.NoError(t, err)
	assert.Len(t, props, 1)
}

func checkValidation(t *testing.T, factory Factory) {
	_, trans := newTrans(t, factory)

	a := TestID(1)

	createVertices(t, trans, userType, a)

	_, err := trans.CreateVertex(data.Vertex{ID: TestID(2)})
	assert.True(t, util.IsValidationError(err))

	_, err = trans.CreateEdge(data.EdgeKey{OutboundID: a, InboundID: a})
	assert.True(t, util.IsValidationError(err))

	err = trans.SetVertexProperties(query.Specific(a).Property("x"), json.RawMessage(`{"a":`))
	assert.True(t, util.IsValidationError(err))
	assert.True(t, errors.Is(err, util.ErrInvalidJSON))

	err = trans.SetEdgeProperties(query.Specific(a).Outbound(1).Property("x"), json.RawMessage(``))
	assert.True(t, util.IsValidationError(err))

	// Nothing was written

	assert.Equal(t, uint64(1), vertexCount(t, trans))

	all, err := trans.GetAllVertexProperties(query.Specific(a))
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Empty(t, all[0].Props)
}

func checkBulkInsert(t *testing.T, factory Factory) {
	ds, trans := newTrans(t, factory, graph.WithBulkBatchSize(2))

	a, b, c := TestID(1), TestID(2), TestID(3)
	ab := data.NewEdgeKey(a, followsType, b)
	ac := data.NewEdgeKey(a, followsType, c)

	createVertices(t, trans, groupType, a)

	err := ds.BulkInsert([]data.BulkInsertItem{
		data.BulkVertex{Vertex: data.NewVertex(a, userType)},
		data.BulkVertex{Vertex: data.NewVertex(b, userType)},
		data.BulkEdge{Key: ab},
		data.BulkEdge{Key: ac},
		data.BulkVertexProperty{ID: b, Name: "name", Value: json.RawMessage(` "B" `)},
		data.BulkVertexProperty{ID: c, Name: "name", Value: json.RawMessage(`"C"`)},
		data.BulkEdgeProperty{Key: ab, Name: "w", Value: json.RawMessage(`1`)},
		data.BulkEdgeProperty{Key: ac, Name: "w", Value: json.RawMessage(`1`)},
		data.BulkVertex{Vertex: data.NewVertex(c, userType)},
	})
	require.NoError(t, err)

	// Existing vertices are kept and missing owners are skipped

	vertices, err := trans.GetVertices(query.Range(10))
	require.NoError(t, err)
	assert.Equal(t, []data.Vertex{
		data.NewVertex(a, groupType),
		data.NewVertex(b, userType),
		data.NewVertex(c, userType),
	}, vertices)

	assert.Equal(t, []data.EdgeKey{ab}, edgeKeys(t, trans, query.Specific(a).Outbound(10)))

	props, err := trans.GetVertexProperties(query.Range(10).Property("name"))
	require.NoError(t, err)
	assert.Equal(t, []data.VertexProperty{{ID: b, Value: json.RawMessage(`"B"`)}}, props)

	eprops, err := trans.GetEdgeProperties(query.Specific(a).Outbound(10).Property("w"))
	require.NoError(t, err)
	assert.Equal(t, []data.EdgeProperty{{Key: ab, Value: json.RawMessage(`1`)}}, eprops)

	assert.Equal(t, uint64(3), vertexCount(t, trans))

	// Malformed items are rejected

	err = ds.BulkInsert([]data.BulkInsertItem{
		data.BulkVertexProperty{ID: b, Name: "name", Value: json.RawMessage(`{`)},
	})
	assert.True(t, util.IsValidationError(err))

	err = ds.BulkInsert([]data.BulkInsertItem{data.BulkVertex{Vertex: data.Vertex{ID: TestID(7)}}})
	assert.True(t, util.IsValidationError(err))

	err = ds.BulkInsert([]data.BulkInsertItem{data.BulkEdge{Key: data.EdgeKey{OutboundID: a, InboundID: b}}})
	assert.True(t, util.IsValidationError(err))

	err = ds.BulkInsert(nil)
	assert.NoError(t, err)

	// Items before a malformed item are applied

	err = ds.BulkInsert([]data.BulkInsertItem{
		data.BulkVertex{Vertex: data.NewVertex(TestID(4), userType)},
		data.BulkVertex{Vertex: data.NewVertex(TestID(5), userType)},
		data.BulkVertexProperty{ID: a, Name: "x", Value: json.RawMessage(`nope`)},
	})
	assert.True(t, util.IsValidationError(err))
	assert.Equal(t, uint64(5), vertexCount(t, trans))

	// Streaming inserter of local datastores

	gm, ok := ds.(*graph.Manager)
	if !ok {
		return
	}

	bi := graph.NewBulkInserter(gm)

	for i := byte(10); i < 15; i++ {
		require.NoError(t, bi.Add(data.BulkVertex{Vertex: data.NewVertex(TestID(i), userType)}))
	}

	require.NoError(t, bi.Add(data.BulkEdge{Key: data.NewEdgeKey(TestID(10), followsType, TestID(14))}))
	assert.Contains(t, bi.String(), "Items: 6")
	require.NoError(t, bi.Close())

	assert.Equal(t, uint64(10), vertexCount(t, trans))
	assert.Equal(t, uint64(1), edgeCount(t, trans, TestID(14), nil, data.Inbound))
}

func checkImportExport(t *testing.T, factory Factory) {
	ds, trans := newTrans(t, factory)

	a, b, c := TestID(1), TestID(2), TestID(3)

	createVertices(t, trans, userType, a, b)
	createVertices(t, trans, groupType, c)
	createEdges(t, trans,
		data.NewEdgeKey(a, followsType, b),
		data.NewEdgeKey(b, followsType, a),
		data.NewEdgeKey(a, memberType, c))

	require.NoError(t, trans.SetVertexProperties(query.Specific(a, c).Property("name"), json.RawMessage(`"x"`)))
	require.NoError(t, trans.SetEdgeProperties(query.Specific(a).Outbound(10).Property("w"), json.RawMessage(`[1]`)))

	var out bytes.Buffer
	require.NoError(t, graph.ExportJSONLines(&out, ds))

	lines := bytes.Split(bytes.TrimSpace(out.Bytes()), []byte("\n"))
	assert.Len(t, lines, 3+2+3+2)

	// Load the dump into a new datastore and dump it again

	ds2, trans2 := newTrans(t, factory)
	require.NoError(t, graph.ImportJSONLines(bytes.NewReader(out.Bytes()), ds2))

	var out2 bytes.Buffer
	require.NoError(t, graph.ExportJSONLines(&out2, ds2))
	assert.Equal(t, out.String(), out2.String())

	assert.Equal(t, uint64(3), vertexCount(t, trans2))
	assert.Equal(t, uint64(2), edgeCount(t, trans2, a, nil, data.Outbound))

	// Broken input is reported with its line number

	ds3, trans3 := newTrans(t, factory)

	err := graph.ImportJSONLines(bytes.NewBufferString(
		"\n"+string(lines[0])+"\n{\"type\":\"foo\"}\n"), ds3)
	assert.True(t, util.IsValidationError(err))
	assert.Contains(t, err.Error(), "Line 3")
	assert.Equal(t, uint64(0), vertexCount(t, trans3))
}

func checkConcurrency(t *testing.T, factory Factory) {
	_, trans := newTrans(t, factory)

	hub := TestID(1)
	createVertices(t, trans, groupType, hub)

	var g errgroup.Group

	for i := 0; i < 8; i++ {
		worker := byte(i)

		g.Go(func() error {
			for j := byte(0); j < 10; j++ {
				id := uuid.UUID{0: 0x10 + worker, 15: j}

				if _, err := trans.CreateVertex(data.NewVertex(id, userType)); err != nil {
					return err
				}
				if _, err := trans.CreateEdge(data.NewEdgeKey(id, memberType, hub)); err != nil {
					return err
				}
			}
			return nil
		})

		g.Go(func() error {
			for j := 0; j < 10; j++ {

				// Every member edge leads to an existing vertex

				vertices, err := trans.GetVertices(query.Specific(hub).Inbound(1000).Outbound(1000))
				if err != nil {
					return err
				}

				edges, err := trans.GetEdges(query.Specific(hub).Inbound(1000))
				if err != nil {
					return err
				}

				if len(vertices) > len(edges) {
					return errors.New("more member vertices than member edges")
				}
			}
			return nil
		})
	}

	require.NoError(t, g.Wait())

	assert.Equal(t, uint64(81), vertexCount(t, trans))
	assert.Equal(t, uint64(80), edgeCount(t, trans, hub, &memberType, data.Inbound))

	// Delete all members concurrently with readers

	var dg errgroup.Group

	dg.Go(func() error {
		return trans.DeleteVertices(query.Range(1000).WithType(userType))
	})

	dg.Go(func() error {
		count, err := trans.GetEdgeCount(hub, nil, data.Inbound)
		if err == nil && count != 0 && count != 80 {
			return errors.New("observed a partially applied delete")
		}
		return err
	})

	require.NoError(t, dg.Wait())

	assert.Equal(t, uint64(1), vertexCount(t, trans))
	assert.Equal(t, uint64(0), edgeCount(t, trans, hub, nil, data.Inbound))
}

func checkClose(t *testing.T, factory Factory) {
	ds, trans := newTrans(t, factory)

	createVertices(t, trans, userType, TestID(1))

	require.NoError(t, ds.Sync())
	require.NoError(t, ds.Close())

	_, err := ds.Transaction()
	assert.True(t, util.IsBackendError(err))

	_, err = trans.GetVertexCount()
	assert.True(t, errors.Is(err, util.ErrClosing))

	assert.NoError(t, ds.Close())
}
