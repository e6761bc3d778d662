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
	"bufio"
	"bytes"
	"fmt"
	"io"
	"math"

	"github.com/google/uuid"

	"devt.de/krotik/arcdb/graph/data"
	"devt.de/krotik/arcdb/graph/query"
	"devt.de/krotik/arcdb/graph/util"
)

/*
ExportPageSize is the number of vertices which are read at once during an export
*/
var ExportPageSize uint32 = 1000

/*
maxLineLength is the maximum length of a single line during an import
*/
const maxLineLength = 64 * 1024 * 1024

/*
ExportJSONLines dumps the contents of a datastore to an io.Writer. Each line
contains one bulk item in JSON format:

	{"type":"vertex","vertex":{"id":"...","t":"..."}}
	{"type":"vertex_property","id":"...","name":"...","value":...}
	{"type":"edge","key":{"outbound_id":"...","t":"...","inbound_id":"..."}}
	{"type":"edge_property","key":{...},"name":"...","value":...}

All vertices are written before the first edge so the output can be loaded
again with ImportJSONLines.
*/
func ExportJSONLines(out io.Writer, ds Datastore) error {
	trans, err := ds.Transaction()
	if err != nil {
		return err
	}

	write := func(item data.BulkInsertItem) error {
		line, err := data.MarshalBulkItem(item)
		if err == nil {
			_, err = fmt.Fprintf(out, "%s\n", line)
		}
		return err
	}

	// Write all vertices with their properties

	err = pageVertices(trans, func(vertices []data.Vertex) error {
		props, err := trans.GetAllVertexProperties(query.Specific(vertexIDs(vertices)...))

		for i := 0; err == nil && i < len(props); i++ {
			if err = write(data.BulkVertex{Vertex: props[i].Vertex}); err == nil {
				for _, p := range props[i].Props {
					if err = write(data.BulkVertexProperty{ID: props[i].Vertex.ID,
						Name: p.Name, Value: p.Value}); err != nil {
						break
					}
				}
			}
		}

		return err
	})

	if err != nil {
		return err
	}

	// Write all edges with their properties

	return pageVertices(trans, func(vertices []data.Vertex) error {
		props, err := trans.GetAllEdgeProperties(query.Specific(vertexIDs(vertices)...).Outbound(math.MaxUint32))

		for i := 0; err == nil && i < len(props); i++ {
			if err = write(data.BulkEdge{Key: props[i].Edge.Key}); err == nil {
				for _, p := range props[i].Props {
					if err = write(data.BulkEdgeProperty{Key: props[i].Edge.Key,
						Name: p.Name, Value: p.Value}); err != nil {
						break
					}
				}
			}
		}

		return err
	})
}

/*
pageVertices visits all vertices of a datastore in pages.
*/
func pageVertices(trans Transaction, fn func(vertices []data.Vertex) error) error {
	var start *uuid.UUID

	for {
		q := query.Range(ExportPageSize + 1)
		if start != nil {
			q = q.WithStart(*start)
		}

		vertices, err := trans.GetVertices(q)
		if err != nil {
			return err
		}

		// The start vertex was part of the previous page

		if start != nil && len(vertices) > 0 && vertices[0].ID == *start {
			vertices = vertices[1:]
		}

		if len(vertices) > int(ExportPageSize) {
			vertices = vertices[:ExportPageSize]
		}

		if len(vertices) == 0 {
			return nil
		}

		if err := fn(vertices); err != nil {
			return err
		}

		last := vertices[len(vertices)-1].ID
		start = &last
	}
}

func vertexIDs(vertices []data.Vertex) []uuid.UUID {
	ids := make([]uuid.UUID, len(vertices))
	for i, v := range vertices {
		ids[i] = v.ID
	}
	return ids
}

/*
ImportJSONLines loads bulk items in the format of ExportJSONLines from an
io.Reader into a datastore. Empty lines are ignored. Items are loaded in
chunks; chunks which were loaded before an error stay in the datastore.
*/
func ImportJSONLines(in io.Reader, ds Datastore) error {
	var chunk []data.BulkInsertItem

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineLength)

	line := 0

	for scanner.Scan() {
		line++

		text := bytes.TrimSpace(scanner.Bytes())
		if len(text) == 0 {
			continue
		}

		item, err := data.UnmarshalBulkItem(text)
		if err != nil {
			return util.NewValidationError(util.ErrInvalidData, fmt.Sprintf("Line %v: %v", line, err))
		}

		if chunk = append(chunk, item); len(chunk) >= DefaultBulkBatchSize {
			if err := ds.BulkInsert(chunk); err != nil {
				return err
			}
			chunk = chunk[:0]
		}
	}

	if err := scanner.Err(); err != nil {
		return util.NewBackendError(util.ErrReading, err)
	}

	if len(chunk) > 0 {
		return ds.BulkInsert(chunk)
	}

	return nil
}
