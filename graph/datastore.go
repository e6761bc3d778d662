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
	"sync"
	"time"

	"devt.de/krotik/common/logutil"
	"github.com/google/uuid"

	"devt.de/krotik/arcdb/graph/data"
	"devt.de/krotik/arcdb/graph/graphstorage"
	"devt.de/krotik/arcdb/graph/query"
	"devt.de/krotik/arcdb/graph/util"
)

/*
Datastore is a handle to a whole graph.
*/
type Datastore interface {

	/*
	   Transaction begins a unit of work.
	*/
	Transaction() (Transaction, error)

	/*
	   BulkInsert loads a list of items. Items are applied in order and are
	   not rolled back on errors.
	*/
	BulkInsert(items []data.BulkInsertItem) error

	/*
	   Sync writes all pending changes to the storage.
	*/
	Sync() error

	/*
	   Close closes the datastore.
	*/
	Close() error
}

/*
Transaction provides the operations on a graph. Each operation is atomic.
Missing vertices, edges or properties are never an error.
*/
type Transaction interface {

	/*
	   CreateVertex creates a new vertex. Returns false if a vertex with the
	   same id exists already.
	*/
	CreateVertex(v data.Vertex) (bool, error)

	/*
	   CreateVertexFromType creates a new vertex with a generated id.
	*/
	CreateVertexFromType(t data.Type) (uuid.UUID, error)

	/*
	   GetVertices returns the vertices of a query.
	*/
	GetVertices(q query.VertexQuery) ([]data.Vertex, error)

	/*
	   DeleteVertices deletes the vertices of a query together with their
	   edges and all properties of these vertices and edges.
	*/
	DeleteVertices(q query.VertexQuery) error

	/*
	   GetVertexCount returns the number of vertices.
	*/
	GetVertexCount() (uint64, error)

	/*
	   CreateEdge creates a new edge or refreshes the creation time of an
	   existing edge. Returns false if one of the ends does not exist.
	*/
	CreateEdge(key data.EdgeKey) (bool, error)

	/*
	   GetEdges returns the edges of a query.
	*/
	GetEdges(q query.EdgeQuery) ([]data.Edge, error)

	/*
	   DeleteEdges deletes the edges of a query together with their properties.
	*/
	DeleteEdges(q query.EdgeQuery) error

	/*
	   GetEdgeCount returns the number of edges of a vertex in a given
	   direction optionally restricted to an edge type.
	*/
	GetEdgeCount(id uuid.UUID, t *data.Type, dir data.Direction) (uint64, error)

	/*
	   GetVertexProperties returns a named property of the vertices of a query.
	   Vertices without the property are left out.
	*/
	GetVertexProperties(q query.VertexPropertyQuery) ([]data.VertexProperty, error)

	/*
	   GetAllVertexProperties returns all properties of the vertices of a query.
	*/
	GetAllVertexProperties(q query.VertexQuery) ([]data.VertexProperties, error)

	/*
	   SetVertexProperties sets a named property on the vertices of a query.
	*/
	SetVertexProperties(q query.VertexPropertyQuery, value json.RawMessage) error

	/*
	   DeleteVertexProperties deletes a named property from the vertices of a query.
	*/
	DeleteVertexProperties(q query.VertexPropertyQuery) error

	/*
	   GetEdgeProperties returns a named property of the edges of a query.
	   Edges without the property are left out.
	*/
	GetEdgeProperties(q query.EdgePropertyQuery) ([]data.EdgeProperty, error)

	/*
	   GetAllEdgeProperties returns all properties of the edges of a query.
	*/
	GetAllEdgeProperties(q query.EdgeQuery) ([]data.EdgeProperties, error)

	/*
	   SetEdgeProperties sets a named property on the edges of a query.
	*/
	SetEdgeProperties(q query.EdgePropertyQuery, value json.RawMessage) error

	/*
	   DeleteEdgeProperties deletes a named property from the edges of a query.
	*/
	DeleteEdgeProperties(q query.EdgePropertyQuery) error
}

/*
logger of the graph package
*/
var logger = logutil.GetLogger("arcdb.graph")

/*
Manager data structure
*/
type Manager struct {
	gs            graphstorage.Storage      // Graph storage of this graph manager
	clock         func() time.Time          // Clock for edge creation times
	newID         func() (uuid.UUID, error) // Generator for vertex ids
	bulkBatchSize int                       // Number of bulk items per storage update
	closed        bool                      // Flag if the manager was closed
	mutex         *sync.RWMutex             // Mutex for the closed flag
}

/*
Option configures a Manager.
*/
type Option func(gm *Manager)

/*
WithClock sets the clock which provides edge creation times.
*/
func WithClock(clock func() time.Time) Option {
	return func(gm *Manager) {
		gm.clock = clock
	}
}

/*
WithIDGenerator sets the generator for the ids of vertices created by
CreateVertexFromType.
*/
func WithIDGenerator(newID func() (uuid.UUID, error)) Option {
	return func(gm *Manager) {
		gm.newID = newID
	}
}

/*
WithBulkBatchSize sets the number of bulk items per storage update.
*/
func WithBulkBatchSize(n int) Option {
	return func(gm *Manager) {
		if n < 1 {
			n = 1
		}
		gm.bulkBatchSize = n
	}
}

/*
NewGraphManager returns a new Manager instance.
*/
func NewGraphManager(gs graphstorage.Storage, opts ...Option) *Manager {
	gm := &Manager{
		gs:            gs,
		clock:         time.Now,
		newID:         uuid.NewUUID,
		bulkBatchSize: DefaultBulkBatchSize,
		mutex:         &sync.RWMutex{},
	}

	for _, opt := range opts {
		opt(gm)
	}

	return gm
}

/*
Name returns the name of the underlying graph storage.
*/
func (gm *Manager) Name() string {
	return gm.gs.Name()
}

/*
Transaction begins a unit of work.
*/
func (gm *Manager) Transaction() (Transaction, error) {
	if err := gm.checkOpen(); err != nil {
		return nil, err
	}
	return &graphTrans{gm}, nil
}

/*
BulkInsert loads a list of items.
*/
func (gm *Manager) BulkInsert(items []data.BulkInsertItem) error {
	if err := gm.checkOpen(); err != nil {
		return err
	}

	bi := NewBulkInserter(gm)

	for _, item := range items {
		if err := bi.Add(item); err != nil {
			bi.Close()
			return err
		}
	}

	return bi.Close()
}

/*
Sync writes all pending changes to the storage.
*/
func (gm *Manager) Sync() error {
	if err := gm.checkOpen(); err != nil {
		return err
	}
	return gm.gs.Sync()
}

/*
Close syncs and closes the underlying storage. A closed manager cannot be
used anymore.
*/
func (gm *Manager) Close() error {
	gm.mutex.Lock()
	defer gm.mutex.Unlock()

	if gm.closed {
		return nil
	}

	gm.closed = true

	if err := gm.gs.Sync(); err != nil {
		logger.Warning("Could not sync storage ", gm.gs.Name(), ": ", err)
	}

	return gm.gs.Close()
}

/*
checkOpen returns an error if the manager was closed.
*/
func (gm *Manager) checkOpen() error {
	gm.mutex.RLock()
	defer gm.mutex.RUnlock()

	if gm.closed {
		return &util.GraphError{Type: util.ErrClosing, Detail: "Datastore is closed"}
	}

	return nil
}
