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
Package graphstorage contains the storage backends of the graph datastore.

A storage provides primitive, record level access to vertices, edges and
properties. Query evaluation and cascading deletes are done on top of these
primitives by the graph package, so every storage produces the same results
as long as it honours the orderings documented on the Reader interface.

There are three storage objects: MemoryGraphStorage which keeps all data in
memory, and two disk storages built on embedded key-value stores:
BoltGraphStorage (bolt) and BadgerGraphStorage (badger).
*/
package graphstorage

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"devt.de/krotik/arcdb/graph/data"
)

/*
Storage interface models the storage backend for a graph datastore.
*/
type Storage interface {

	/*
	   Name returns the name of the storage instance.
	*/
	Name() string

	/*
	   View runs a read-only function. All reads of the function observe
	   the same consistent state.
	*/
	View(fn func(r Reader) error) error

	/*
	   Update runs a read-write function. Concurrent View calls never observe
	   a partially applied Update.
	*/
	Update(fn func(w Writer) error) error

	/*
	   Sync writes all pending changes to the storage.
	*/
	Sync() error

	/*
	   Close closes the storage.
	*/
	Close() error
}

/*
Reader provides read access to the records of a storage.
*/
type Reader interface {

	/*
	   Vertex looks up the type of a vertex.
	*/
	Vertex(id uuid.UUID) (data.Type, bool, error)

	/*
	   ScanVertices iterates over all vertices in identifier order starting
	   at a given id (inclusive) or at the beginning if start is nil. The
	   iteration stops when fn returns false or an error.
	*/
	ScanVertices(start *uuid.UUID, fn func(v data.Vertex) (bool, error)) error

	/*
	   VertexCount returns the number of stored vertices.
	*/
	VertexCount() (uint64, error)

	/*
	   Edge looks up the creation time of an edge.
	*/
	Edge(key data.EdgeKey) (time.Time, bool, error)

	/*
	   ScanEdges iterates over the edges of a vertex in a given direction. If a
	   type is given only edges of this type are visited. Edges are visited
	   ordered by type and then by the id of the other end. The iteration stops
	   when fn returns false or an error.
	*/
	ScanEdges(id uuid.UUID, dir data.Direction, t *data.Type, fn func(e data.Edge) (bool, error)) error

	/*
	   VertexProperty looks up a single property of a vertex.
	*/
	VertexProperty(id uuid.UUID, name string) (json.RawMessage, bool, error)

	/*
	   VertexProperties returns all properties of a vertex ordered by name.
	*/
	VertexProperties(id uuid.UUID) ([]data.NamedProperty, error)

	/*
	   EdgeProperty looks up a single property of an edge.
	*/
	EdgeProperty(key data.EdgeKey, name string) (json.RawMessage, bool, error)

	/*
	   EdgeProperties returns all properties of an edge ordered by name.
	*/
	EdgeProperties(key data.EdgeKey) ([]data.NamedProperty, error)
}

/*
Writer provides read and write access to the records of a storage. Writers
change single records only; cascades are the responsibility of the caller.
Records must not be written while a scan of the same Writer is in progress.
*/
type Writer interface {
	Reader

	/*
	   PutVertex stores a vertex record.
	*/
	PutVertex(v data.Vertex) error

	/*
	   DeleteVertex removes a vertex record.
	*/
	DeleteVertex(id uuid.UUID) error

	/*
	   PutEdge stores an edge record with its creation time.
	*/
	PutEdge(key data.EdgeKey, created time.Time) error

	/*
	   DeleteEdge removes an edge record.
	*/
	DeleteEdge(key data.EdgeKey) error

	/*
	   PutVertexProperty stores a vertex property.
	*/
	PutVertexProperty(id uuid.UUID, name string, value json.RawMessage) error

	/*
	   DeleteVertexProperty removes a vertex property.
	*/
	DeleteVertexProperty(id uuid.UUID, name string) error

	/*
	   PutEdgeProperty stores an edge property.
	*/
	PutEdgeProperty(key data.EdgeKey, name string, value json.RawMessage) error

	/*
	   DeleteEdgeProperty removes an edge property.
	*/
	DeleteEdgeProperty(key data.EdgeKey, name string) error
}
