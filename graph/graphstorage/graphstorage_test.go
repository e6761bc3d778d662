/*
 * ArcDB
 *
 * Copyright 2016 Matthias Ladkau. All rights reserved.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package graphstorage

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"devt.de/krotik/common/fileutil"
	"github.com/boltdb/bolt"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"devt.de/krotik/arcdb/graph/data"
	"devt.de/krotik/arcdb/graph/util"
)

const boltGraphStorageTestDBDir = "boltgraphstoragetest"
const badgerGraphStorageTestDBDir = "badgergraphstoragetest"

var dbdirs = []string{boltGraphStorageTestDBDir, badgerGraphStorageTestDBDir}

// Main function for all tests in this package

func TestMain(m *testing.M) {
	flag.Parse()

	removeDirs := func() {
		for _, dbdir := range dbdirs {
			if res, _ := fileutil.PathExists(dbdir); res {
				if err := os.RemoveAll(dbdir); err != nil {
					fmt.Print("Could not remove test directory:", err.Error())
				}
			}
		}
	}

	removeDirs()

	// Run the tests

	res := m.Run()

	// Teardown

	removeDirs()

	os.Exit(res)
}

var (
	person  = data.MustType("person")
	knows   = data.MustType("knows")
	likes   = data.MustType("likes")
	vid1    = uuid.MustParse("00000000-0000-0000-0000-000000000001")
	vid2    = uuid.MustParse("00000000-0000-0000-0000-000000000002")
	vid3    = uuid.MustParse("00000000-0000-0000-0000-000000000003")
	created = time.Date(2020, 5, 1, 12, 0, 0, 42, time.UTC)
)

func TestMemoryGraphStorage(t *testing.T) {
	gs := NewMemoryGraphStorage("mystorage")

	assert.Equal(t, "mystorage", gs.Name())

	checkStorage(t, gs)

	MgsRetSync = errors.New("testerror")
	defer func() { MgsRetSync = nil }()

	assert.Equal(t, MgsRetSync, gs.Sync())
	assert.NoError(t, gs.Close())
}

func TestBoltGraphStorage(t *testing.T) {
	gs, err := NewBoltGraphStorage(boltGraphStorageTestDBDir, false)
	require.NoError(t, err)

	assert.Equal(t, boltGraphStorageTestDBDir, gs.Name())

	checkStorage(t, gs)
	checkRollback(t, gs)

	// Errors of the bolt database are backend errors

	err = gs.Update(func(w Writer) error {
		return w.PutVertexProperty(vid1, strings.Repeat("x", bolt.MaxKeySize), json.RawMessage(`1`))
	})
	assert.True(t, util.IsBackendError(err), err)
	assert.ErrorIs(t, err, util.ErrWriting)
	assert.Contains(t, err.Error(), bolt.ErrKeyTooLarge.Error())

	require.NoError(t, gs.Sync())
	require.NoError(t, gs.Close())

	// Data survives a reopen in readonly mode

	gs, err = NewBoltGraphStorage(boltGraphStorageTestDBDir, true)
	require.NoError(t, err)

	checkPersisted(t, gs)

	require.NoError(t, gs.Close())

	_, err = NewBoltGraphStorage(boltGraphStorageTestDBDir+"/missing", true)
	assert.True(t, errors.Is(err, util.ErrOpening))
}

func TestBadgerGraphStorage(t *testing.T) {
	gs, err := NewBadgerGraphStorage(badgerGraphStorageTestDBDir, false)
	require.NoError(t, err)

	assert.Equal(t, badgerGraphStorageTestDBDir, gs.Name())

	checkStorage(t, gs)
	checkRollback(t, gs)

	require.NoError(t, gs.Sync())
	require.NoError(t, gs.Close())

	gs, err = NewBadgerGraphStorage(badgerGraphStorageTestDBDir, true)
	require.NoError(t, err)

	checkPersisted(t, gs)

	require.NoError(t, gs.Close())

	_, err = NewBadgerGraphStorage(badgerGraphStorageTestDBDir+"/missing", true)
	assert.True(t, errors.Is(err, util.ErrOpening))
}

/*
checkStorage runs record level checks which every storage must pass. It
leaves vid1 and vid2 with an edge and properties in the storage.
*/
func checkStorage(t *testing.T, gs Storage) {
	ekey1 := data.NewEdgeKey(vid1, knows, vid2)
	ekey2 := data.NewEdgeKey(vid1, likes, vid2)
	ekey3 := data.NewEdgeKey(vid1, knows, vid3)
	ekey4 := data.NewEdgeKey(vid3, knows, vid2)

	require.NoError(t, gs.Update(func(w Writer) error {
		for _, id := range []uuid.UUID{vid3, vid1, vid2} {
			if err := w.PutVertex(data.NewVertex(id, person)); err != nil {
				return err
			}
		}

		// Storing a vertex twice does not change the count

		if err := w.PutVertex(data.NewVertex(vid1, person)); err != nil {
			return err
		}

		for _, key := range []data.EdgeKey{ekey4, ekey2, ekey3, ekey1} {
			if err := w.PutEdge(key, created); err != nil {
				return err
			}
		}

		if err := w.PutVertexProperty(vid1, "name", json.RawMessage(`"Alice"`)); err != nil {
			return err
		}
		if err := w.PutVertexProperty(vid1, "age", json.RawMessage(`42`)); err != nil {
			return err
		}
		if err := w.PutVertexProperty(vid3, "name", json.RawMessage(`"Carol"`)); err != nil {
			return err
		}

		return w.PutEdgeProperty(ekey1, "since", json.RawMessage(`2019`))
	}))

	require.NoError(t, gs.View(func(r Reader) error {
		tp, ok, err := r.Vertex(vid1)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, person, tp)

		_, ok, err = r.Vertex(uuid.Nil)
		require.NoError(t, err)
		assert.False(t, ok)

		count, err := r.VertexCount()
		require.NoError(t, err)
		assert.Equal(t, uint64(3), count)

		assert.Equal(t, []uuid.UUID{vid1, vid2, vid3}, scanVertexIDs(t, r, nil))
		assert.Equal(t, []uuid.UUID{vid2, vid3}, scanVertexIDs(t, r, &vid2))

		// Stop scanning early

		var visited int
		require.NoError(t, r.ScanVertices(nil, func(v data.Vertex) (bool, error) {
			visited++
			return false, nil
		}))
		assert.Equal(t, 1, visited)

		// Errors of the callback are returned

		testErr := errors.New("testerror")
		assert.Equal(t, testErr, r.ScanVertices(nil, func(v data.Vertex) (bool, error) {
			return true, testErr
		}))

		ts, ok, err := r.Edge(ekey1)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.True(t, created.Equal(ts))

		_, ok, err = r.Edge(ekey1.Reversed())
		require.NoError(t, err)
		assert.False(t, ok)

		// Edges are ordered by type and then by the other end

		assert.Equal(t, []data.EdgeKey{ekey1, ekey3, ekey2}, scanEdgeKeys(t, r, vid1, data.Outbound, nil))
		assert.Equal(t, []data.EdgeKey{ekey1, ekey3}, scanEdgeKeys(t, r, vid1, data.Outbound, &knows))
		assert.Equal(t, []data.EdgeKey{ekey1, ekey4, ekey2}, scanEdgeKeys(t, r, vid2, data.Inbound, nil))
		assert.Equal(t, []data.EdgeKey{ekey2}, scanEdgeKeys(t, r, vid2, data.Inbound, &likes))
		assert.Nil(t, scanEdgeKeys(t, r, vid2, data.Outbound, nil))

		v, ok, err := r.VertexProperty(vid1, "name")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.JSONEq(t, `"Alice"`, string(v))

		_, ok, err = r.VertexProperty(vid1, "foo")
		require.NoError(t, err)
		assert.False(t, ok)

		props, err := r.VertexProperties(vid1)
		require.NoError(t, err)
		assert.Equal(t, []data.NamedProperty{
			{Name: "age", Value: json.RawMessage(`42`)},
			{Name: "name", Value: json.RawMessage(`"Alice"`)},
		}, props)

		props, err = r.VertexProperties(vid2)
		require.NoError(t, err)
		assert.Empty(t, props)

		v, ok, err = r.EdgeProperty(ekey1, "since")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, `2019`, string(v))

		props, err = r.EdgeProperties(ekey1)
		require.NoError(t, err)
		assert.Len(t, props, 1)

		props, err = r.EdgeProperties(ekey3)
		require.NoError(t, err)
		assert.Empty(t, props)

		return nil
	}))

	// Remove records

	require.NoError(t, gs.Update(func(w Writer) error {
		for _, key := range []data.EdgeKey{ekey2, ekey3, ekey4} {
			if err := w.DeleteEdge(key); err != nil {
				return err
			}
		}

		if err := w.DeleteVertexProperty(vid3, "name"); err != nil {
			return err
		}
		if err := w.DeleteVertexProperty(vid3, "unknown"); err != nil {
			return err
		}
		if err := w.DeleteEdgeProperty(ekey2, "unknown"); err != nil {
			return err
		}
		if err := w.DeleteVertex(vid3); err != nil {
			return err
		}

		// Deleting a missing vertex does not change the count

		return w.DeleteVertex(vid3)
	}))

	require.NoError(t, gs.View(func(r Reader) error {
		count, err := r.VertexCount()
		require.NoError(t, err)
		assert.Equal(t, uint64(2), count)

		assert.Equal(t, []uuid.UUID{vid1, vid2}, scanVertexIDs(t, r, nil))
		assert.Equal(t, []data.EdgeKey{ekey1}, scanEdgeKeys(t, r, vid1, data.Outbound, nil))
		assert.Equal(t, []data.EdgeKey{ekey1}, scanEdgeKeys(t, r, vid2, data.Inbound, nil))

		props, err := r.VertexProperties(vid3)
		require.NoError(t, err)
		assert.Empty(t, props)

		return nil
	}))
}

/*
checkRollback checks that a failing update leaves no traces.
*/
func checkRollback(t *testing.T, gs Storage) {
	testErr := errors.New("testerror")

	err := gs.Update(func(w Writer) error {
		if err := w.PutVertex(data.NewVertex(vid3, person)); err != nil {
			return err
		}
		return testErr
	})
	assert.Equal(t, testErr, err)

	require.NoError(t, gs.View(func(r Reader) error {
		_, ok, err := r.Vertex(vid3)
		require.NoError(t, err)
		assert.False(t, ok)
		return nil
	}))
}

/*
checkPersisted checks the records left by checkStorage in a readonly storage.
*/
func checkPersisted(t *testing.T, gs Storage) {
	require.NoError(t, gs.View(func(r Reader) error {
		count, err := r.VertexCount()
		require.NoError(t, err)
		assert.Equal(t, uint64(2), count)

		ts, ok, err := r.Edge(data.NewEdgeKey(vid1, knows, vid2))
		require.NoError(t, err)
		assert.True(t, ok)
		assert.True(t, created.Equal(ts))

		v, ok, err := r.VertexProperty(vid1, "age")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, `42`, string(v))

		return nil
	}))

	err := gs.Update(func(w Writer) error {
		return w.DeleteVertex(vid1)
	})
	assert.True(t, errors.Is(err, util.ErrReadOnly))
	assert.True(t, util.IsBackendError(err))
}

func scanVertexIDs(t *testing.T, r Reader, start *uuid.UUID) []uuid.UUID {
	var res []uuid.UUID

	require.NoError(t, r.ScanVertices(start, func(v data.Vertex) (bool, error) {
		res = append(res, v.ID)
		return true, nil
	}))

	return res
}

func scanEdgeKeys(t *testing.T, r Reader, id uuid.UUID, dir data.Direction, tp *data.Type) []data.EdgeKey {
	var res []data.EdgeKey

	require.NoError(t, r.ScanEdges(id, dir, tp, func(e data.Edge) (bool, error) {
		res = append(res, e.Key)
		return true, nil
	}))

	return res
}
