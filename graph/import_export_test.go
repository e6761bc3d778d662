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
	"bytes"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"devt.de/krotik/arcdb/graph/data"
	"devt.de/krotik/arcdb/graph/graphstorage"
	"devt.de/krotik/arcdb/graph/query"
	"devt.de/krotik/arcdb/graph/util"
)

func TestImportExport(t *testing.T) {
	var res bytes.Buffer

	gm := NewGraphManager(graphstorage.NewMemoryGraphStorage("test"))
	defer gm.Close()

	// Export an empty graph

	require.NoError(t, ExportJSONLines(&res, gm))
	assert.Equal(t, "", res.String())

	// Export with a small page size so paging is exercised

	oldPageSize := ExportPageSize
	ExportPageSize = 2
	defer func() {
		ExportPageSize = oldPageSize
	}()

	trans, err := gm.Transaction()
	require.NoError(t, err)

	person, knows := data.MustType("person"), data.MustType("knows")

	ids := make([]uuid.UUID, 5)
	for i := range ids {
		ids[i] = uuid.UUID{15: byte(i + 1)}
		_, err = trans.CreateVertex(data.NewVertex(ids[i], person))
		require.NoError(t, err)
	}

	require.NoError(t, trans.SetVertexProperties(query.Specific(ids[0], ids[4]).Property("age"),
		[]byte(`42`)))

	for i := 0; i < 4; i++ {
		_, err = trans.CreateEdge(data.NewEdgeKey(ids[i], knows, ids[i+1]))
		require.NoError(t, err)
	}

	require.NoError(t, trans.SetEdgeProperties(
		query.SpecificEdges(data.NewEdgeKey(ids[3], knows, ids[4])).Property("weight"),
		[]byte(`{"w": 0.5}`)))

	res.Reset()
	require.NoError(t, ExportJSONLines(&res, gm))

	lines := strings.Split(strings.TrimSpace(res.String()), "\n")
	require.Len(t, lines, 12)

	// All vertices come before the first edge

	for i, line := range lines {
		if i < 7 {
			assert.True(t, strings.HasPrefix(line, `{"type":"vertex`), line)
		} else {
			assert.True(t, strings.HasPrefix(line, `{"type":"edge`), line)
		}
	}

	// Import into a new datastore and compare the dumps

	gm2 := NewGraphManager(graphstorage.NewMemoryGraphStorage("test2"))
	defer gm2.Close()

	require.NoError(t, ImportJSONLines(strings.NewReader("\n"+res.String()+"\n\n"), gm2))

	var res2 bytes.Buffer
	require.NoError(t, ExportJSONLines(&res2, gm2))
	assert.Equal(t, res.String(), res2.String())

	trans2, err := gm2.Transaction()
	require.NoError(t, err)

	count, err := trans2.GetEdgeCount(ids[1], nil, data.Outbound)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), count)
}

func TestImportExportError(t *testing.T) {
	gm := NewGraphManager(graphstorage.NewMemoryGraphStorage("test"))

	// Test incomplete import data

	err := ImportJSONLines(strings.NewReader(`
{"type":"vertex","vertex":{"id":"00000000-0000-0000-0000-000000000001","t":"x"}}
{"type":"vertex","vertex":`), gm)

	assert.True(t, util.IsValidationError(err), err)
	assert.ErrorIs(t, err, util.ErrInvalidData)
	assert.Contains(t, err.Error(), "Line 3")

	// Items before the bad line are not loaded if they are in the same chunk

	trans, err := gm.Transaction()
	require.NoError(t, err)

	count, err := trans.GetVertexCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(0), count)

	// Bulk items which miss fields

	err = ImportJSONLines(strings.NewReader(`{"type":"vertex_property","name":"a"}`), gm)
	assert.EqualError(t, err,
		"GraphError: Invalid data (Line 1: GraphError: Invalid data (Bulk item of type vertex_property needs a id))")

	// Closed datastores cannot be exported or imported

	require.NoError(t, gm.Close())

	var res bytes.Buffer

	assert.ErrorIs(t, ExportJSONLines(&res, gm), util.ErrClosing)
	assert.ErrorIs(t, ImportJSONLines(strings.NewReader(
		`{"type":"vertex","vertex":{"id":"00000000-0000-0000-0000-000000000001","t":"x"}}`), gm), util.ErrClosing)
}

func TestImportExportPropertyNames(t *testing.T) {
	var res bytes.Buffer

	gm := NewGraphManager(graphstorage.NewMemoryGraphStorage("test"))
	defer gm.Close()

	trans, err := gm.Transaction()
	require.NoError(t, err)

	id := uuid.UUID{15: 1}
	key := data.NewEdgeKey(id, data.MustType("self"), id)

	_, err = trans.CreateVertex(data.NewVertex(id, data.MustType("x")))
	require.NoError(t, err)
	_, err = trans.CreateEdge(key)
	require.NoError(t, err)

	// Properties without a name cannot be stored

	err = trans.SetVertexProperties(query.Specific(id).Property(""), []byte(`1`))
	assert.True(t, util.IsValidationError(err), err)
	assert.ErrorIs(t, err, util.ErrInvalidData)

	err = trans.SetEdgeProperties(query.SpecificEdges(key).Property(""), []byte(`1`))
	assert.ErrorIs(t, err, util.ErrInvalidData)

	err = gm.BulkInsert([]data.BulkInsertItem{
		data.BulkVertexProperty{ID: id, Name: "a", Value: []byte(`2`)},
		data.BulkVertexProperty{ID: id, Name: "", Value: []byte(`3`)},
	})
	assert.ErrorIs(t, err, util.ErrInvalidData)

	_, err = CheckBulkItem(data.BulkEdgeProperty{Key: key, Name: ""})
	assert.ErrorIs(t, err, util.ErrInvalidData)

	// Everything which was stored survives an export and import

	require.NoError(t, ExportJSONLines(&res, gm))
	assert.Equal(t, 3, strings.Count(res.String(), "\n"))

	gm2 := NewGraphManager(graphstorage.NewMemoryGraphStorage("test2"))
	defer gm2.Close()

	require.NoError(t, ImportJSONLines(bytes.NewReader(res.Bytes()), gm2))

	trans2, err := gm2.Transaction()
	require.NoError(t, err)

	props, err := trans2.GetAllVertexProperties(query.Specific(id))
	require.NoError(t, err)
	require.Len(t, props, 1)
	assert.Equal(t, []data.NamedProperty{{Name: "a", Value: []byte(`2`)}}, props[0].Props)

	// Decoding a property query without a name fails as well

	_, err = query.UnmarshalVertexPropertyQuery([]byte(`{"inner":{"type":"specific","limit":0},"name":""}`))
	assert.ErrorIs(t, err, util.ErrInvalidData)
}
