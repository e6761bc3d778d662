/*
 * ArcDB
 *
 * Copyright 2016 Matthias Ladkau. All rights reserved.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package graph_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"devt.de/krotik/arcdb/graph"
	"devt.de/krotik/arcdb/graph/data"
	"devt.de/krotik/arcdb/graph/graphstorage"
	"devt.de/krotik/arcdb/graph/graphtest"
	"devt.de/krotik/arcdb/graph/query"
	"devt.de/krotik/arcdb/graph/util"
)

func newDatastore(t *testing.T, gs graphstorage.Storage, opts ...graph.Option) graph.Datastore {
	ds := graph.NewGraphManager(gs, opts...)

	t.Cleanup(func() {
		assert.NoError(t, ds.Close())
	})

	return ds
}

func memoryFactory(t *testing.T, opts ...graph.Option) graph.Datastore {
	return newDatastore(t, graphstorage.NewMemoryGraphStorage("mem"), opts...)
}

func boltFactory(t *testing.T, opts ...graph.Option) graph.Datastore {
	gs, err := graphstorage.NewBoltGraphStorage(filepath.Join(t.TempDir(), "bolt"), false)
	require.NoError(t, err)

	return newDatastore(t, gs, opts...)
}

func badgerFactory(t *testing.T, opts ...graph.Option) graph.Datastore {
	gs, err := graphstorage.NewBadgerGraphStorage(filepath.Join(t.TempDir(), "badger"), false)
	require.NoError(t, err)

	return newDatastore(t, gs, opts...)
}

func TestMemoryDatastore(t *testing.T) {
	graphtest.RunSuite(t, memoryFactory)
}

func TestBoltDatastore(t *testing.T) {
	graphtest.RunSuite(t, boltFactory)
}

func TestBadgerDatastore(t *testing.T) {
	if testing.Short() {
		t.Skip("badger datastore is skipped in short mode")
	}

	graphtest.RunSuite(t, badgerFactory)
}

func TestDifferential(t *testing.T) {
	seeds := []int64{1, 2, 3, 5, 8, 13, 21, 34}

	graphtest.Run(t, seeds, 200, memoryFactory, boltFactory)

	if !testing.Short() {
		graphtest.Run(t, seeds[:3], 200, memoryFactory, badgerFactory)
	}
}

func FuzzDifferential(f *testing.F) {
	f.Add([]byte{})
	f.Add([]byte{0, 1, 0, 0, 5, 1, 2, 0, 2, 6, 2})
	f.Add([]byte("vertices, edges and properties"))
	f.Add([]byte{17, 5, 0, 1, 2, 3, 1, 0, 4, 2, 1, 18, 0, 2, 1, 2, 3})

	f.Fuzz(func(t *testing.T, b []byte) {
		graphtest.Compare(t, graphtest.DecodeOps(b), memoryFactory, boltFactory)
	})
}

func TestDecodeOps(t *testing.T) {
	assert.Empty(t, graphtest.DecodeOps(nil))

	b := make([]byte, 10000)
	for i := range b {
		b[i] = byte(i * 7)
	}

	ops := graphtest.DecodeOps(b)
	assert.Len(t, ops, graphtest.MaxDecodedOps)

	// Decoding is deterministic

	assert.Equal(t, ops, graphtest.DecodeOps(b))
	assert.Equal(t, graphtest.RandomOps(42, 50), graphtest.RandomOps(42, 50))

	for _, op := range ops {
		assert.NotEmpty(t, op.String())
	}
}

func TestApplyErrorCategories(t *testing.T) {
	ds := memoryFactory(t)

	res, err := graphtest.Apply(ds, graphtest.Op{Kind: graphtest.OpCreateVertex})
	require.NoError(t, err)
	assert.Equal(t, `{"error":"validation"}`, res)

	res, err = graphtest.Apply(ds, graphtest.Op{Kind: graphtest.OpCreateVertex,
		Vertex: data.NewVertex(graphtest.TestID(1), data.MustType("a"))})
	require.NoError(t, err)
	assert.Equal(t, `{"result":true}`, res)

	res, err = graphtest.Apply(ds, graphtest.Op{Kind: graphtest.OpGetVertices,
		VertexQuery: query.Range(10)})
	require.NoError(t, err)
	assert.Equal(t, `{"result":[{"id":"00000000-0000-0000-0000-000000000001","t":"a"}]}`, res)

	require.NoError(t, ds.Close())

	res, err = graphtest.Apply(ds, graphtest.Op{Kind: graphtest.OpGetVertexCount})
	require.NoError(t, err)
	assert.Contains(t, res, `"error":"backend: `)
}

func TestManagerClosed(t *testing.T) {
	gm := graph.NewGraphManager(graphstorage.NewMemoryGraphStorage("mem"))

	assert.Equal(t, "mem", gm.Name())
	require.NoError(t, gm.Sync())
	require.NoError(t, gm.Close())
	require.NoError(t, gm.Close())

	_, err := gm.Transaction()
	assert.ErrorIs(t, err, util.ErrClosing)

	assert.ErrorIs(t, gm.Sync(), util.ErrClosing)
	assert.ErrorIs(t, gm.BulkInsert(nil), util.ErrClosing)
}

func TestManagerStorageErrors(t *testing.T) {
	mgs := graphstorage.NewMemoryGraphStorage("mem")
	gm := graph.NewGraphManager(mgs)

	graphstorage.MgsRetSync = &util.GraphError{Type: util.ErrFlushing, Detail: "test"}
	defer func() {
		graphstorage.MgsRetSync = nil
	}()

	assert.ErrorIs(t, gm.Sync(), util.ErrFlushing)

	// Close still closes the storage if the final sync fails

	graphstorage.MgsRetClose = &util.GraphError{Type: util.ErrClosing, Detail: "test"}
	defer func() {
		graphstorage.MgsRetClose = nil
	}()

	assert.ErrorIs(t, gm.Close(), util.ErrClosing)
}
