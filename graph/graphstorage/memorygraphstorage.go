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
	"sort"
	"sync"
	"time"

	"github.com/google/btree"
	"github.com/google/uuid"

	"devt.de/krotik/arcdb/graph/data"
)

/*
Return values for Sync and Close calls
*/
var MgsRetSync, MgsRetClose error

/*
btreeDegree is the degree of the B-Trees which hold vertices and edges
*/
const btreeDegree = 32

/*
vertexItem is a vertex in the vertex tree.
*/
type vertexItem struct {
	id uuid.UUID
	t  data.Type
}

func (vi *vertexItem) Less(than btree.Item) bool {
	return data.CompareIDs(vi.id, than.(*vertexItem).id) < 0
}

/*
edgeItem is an edge in one of the edge trees. In the inbound tree the key
is stored reversed so the inbound end comes first.
*/
type edgeItem struct {
	key     data.EdgeKey
	created time.Time
}

func (ei *edgeItem) Less(than btree.Item) bool {
	return data.CompareEdgeKeys(ei.key, than.(*edgeItem).key) < 0
}

/*
MemoryGraphStorage data structure
*/
type MemoryGraphStorage struct {
	name        string                                      // Name of the graph storage
	vertices    *btree.BTree                                // Vertices ordered by id
	outEdges    *btree.BTree                                // Edges ordered by outbound id
	inEdges     *btree.BTree                                // Reversed edges ordered by inbound id
	vertexProps map[uuid.UUID]map[string]json.RawMessage    // Vertex properties
	edgeProps   map[data.EdgeKey]map[string]json.RawMessage // Edge properties
	mutex       *sync.RWMutex                               // Lock for the whole graph
}

/*
NewMemoryGraphStorage creates a new MemoryGraphStorage instance.
*/
func NewMemoryGraphStorage(name string) Storage {
	return &MemoryGraphStorage{
		name:        name,
		vertices:    btree.New(btreeDegree),
		outEdges:    btree.New(btreeDegree),
		inEdges:     btree.New(btreeDegree),
		vertexProps: make(map[uuid.UUID]map[string]json.RawMessage),
		edgeProps:   make(map[data.EdgeKey]map[string]json.RawMessage),
		mutex:       &sync.RWMutex{},
	}
}

/*
Name returns the name of the MemoryGraphStorage instance.
*/
func (mgs *MemoryGraphStorage) Name() string {
	return mgs.name
}

/*
View runs a read-only function.
*/
func (mgs *MemoryGraphStorage) View(fn func(r Reader) error) error {
	mgs.mutex.RLock()
	defer mgs.mutex.RUnlock()

	return fn(mgs)
}

/*
Update runs a read-write function.
*/
func (mgs *MemoryGraphStorage) Update(fn func(w Writer) error) error {
	mgs.mutex.Lock()
	defer mgs.mutex.Unlock()

	return fn(mgs)
}

/*
Sync writes all pending changes to the storage.
*/
func (mgs *MemoryGraphStorage) Sync() error {
	return MgsRetSync
}

/*
Close closes the storage.
*/
func (mgs *MemoryGraphStorage) Close() error {
	return MgsRetClose
}

// Reader
// ======

/*
Vertex looks up the type of a vertex.
*/
func (mgs *MemoryGraphStorage) Vertex(id uuid.UUID) (data.Type, bool, error) {
	if item := mgs.vertices.Get(&vertexItem{id: id}); item != nil {
		return item.(*vertexItem).t, true, nil
	}
	return data.Type{}, false, nil
}

/*
ScanVertices iterates over all vertices in identifier order.
*/
func (mgs *MemoryGraphStorage) ScanVertices(start *uuid.UUID, fn func(v data.Vertex) (bool, error)) error {
	var err error

	iter := func(item btree.Item) bool {
		vi := item.(*vertexItem)

		var cont bool
		cont, err = fn(data.NewVertex(vi.id, vi.t))

		return cont && err == nil
	}

	if start == nil {
		mgs.vertices.Ascend(iter)
	} else {
		mgs.vertices.AscendGreaterOrEqual(&vertexItem{id: *start}, iter)
	}

	return err
}

/*
VertexCount returns the number of stored vertices.
*/
func (mgs *MemoryGraphStorage) VertexCount() (uint64, error) {
	return uint64(mgs.vertices.Len()), nil
}

/*
Edge looks up the creation time of an edge.
*/
func (mgs *MemoryGraphStorage) Edge(key data.EdgeKey) (time.Time, bool, error) {
	if item := mgs.outEdges.Get(&edgeItem{key: key}); item != nil {
		return item.(*edgeItem).created, true, nil
	}
	return time.Time{}, false, nil
}

/*
ScanEdges iterates over the edges of a vertex in a given direction.
*/
func (mgs *MemoryGraphStorage) ScanEdges(id uuid.UUID, dir data.Direction, t *data.Type,
	fn func(e data.Edge) (bool, error)) error {

	var err error

	tree := mgs.outEdges
	if dir == data.Inbound {
		tree = mgs.inEdges
	}

	pivot := data.EdgeKey{OutboundID: id}
	if t != nil {
		pivot.T = *t
	}

	tree.AscendGreaterOrEqual(&edgeItem{key: pivot}, func(item btree.Item) bool {
		ei := item.(*edgeItem)

		if ei.key.OutboundID != id || (t != nil && ei.key.T != *t) {
			return false
		}

		key := ei.key
		if dir == data.Inbound {
			key = key.Reversed()
		}

		var cont bool
		cont, err = fn(data.NewEdge(key, ei.created))

		return cont && err == nil
	})

	return err
}

/*
VertexProperty looks up a single property of a vertex.
*/
func (mgs *MemoryGraphStorage) VertexProperty(id uuid.UUID, name string) (json.RawMessage, bool, error) {
	value, ok := mgs.vertexProps[id][name]
	return copyValue(value), ok, nil
}

/*
VertexProperties returns all properties of a vertex ordered by name.
*/
func (mgs *MemoryGraphStorage) VertexProperties(id uuid.UUID) ([]data.NamedProperty, error) {
	return sortedProperties(mgs.vertexProps[id]), nil
}

/*
EdgeProperty looks up a single property of an edge.
*/
func (mgs *MemoryGraphStorage) EdgeProperty(key data.EdgeKey, name string) (json.RawMessage, bool, error) {
	value, ok := mgs.edgeProps[key][name]
	return copyValue(value), ok, nil
}

/*
EdgeProperties returns all properties of an edge ordered by name.
*/
func (mgs *MemoryGraphStorage) EdgeProperties(key data.EdgeKey) ([]data.NamedProperty, error) {
	return sortedProperties(mgs.edgeProps[key]), nil
}

// Writer
// ======

/*
PutVertex stores a vertex record.
*/
func (mgs *MemoryGraphStorage) PutVertex(v data.Vertex) error {
	mgs.vertices.ReplaceOrInsert(&vertexItem{v.ID, v.T})
	return nil
}

/*
DeleteVertex removes a vertex record.
*/
func (mgs *MemoryGraphStorage) DeleteVertex(id uuid.UUID) error {
	mgs.vertices.Delete(&vertexItem{id: id})
	return nil
}

/*
PutEdge stores an edge record with its creation time.
*/
func (mgs *MemoryGraphStorage) PutEdge(key data.EdgeKey, created time.Time) error {
	created = data.NormalizeTime(created)

	mgs.outEdges.ReplaceOrInsert(&edgeItem{key, created})
	mgs.inEdges.ReplaceOrInsert(&edgeItem{key.Reversed(), created})

	return nil
}

/*
DeleteEdge removes an edge record.
*/
func (mgs *MemoryGraphStorage) DeleteEdge(key data.EdgeKey) error {
	mgs.outEdges.Delete(&edgeItem{key: key})
	mgs.inEdges.Delete(&edgeItem{key: key.Reversed()})
	return nil
}

/*
PutVertexProperty stores a vertex property.
*/
func (mgs *MemoryGraphStorage) PutVertexProperty(id uuid.UUID, name string, value json.RawMessage) error {
	props, ok := mgs.vertexProps[id]
	if !ok {
		props = make(map[string]json.RawMessage)
		mgs.vertexProps[id] = props
	}

	props[name] = copyValue(value)

	return nil
}

/*
DeleteVertexProperty removes a vertex property.
*/
func (mgs *MemoryGraphStorage) DeleteVertexProperty(id uuid.UUID, name string) error {
	if props, ok := mgs.vertexProps[id]; ok {
		delete(props, name)

		if len(props) == 0 {
			delete(mgs.vertexProps, id)
		}
	}
	return nil
}

/*
PutEdgeProperty stores an edge property.
*/
func (mgs *MemoryGraphStorage) PutEdgeProperty(key data.EdgeKey, name string, value json.RawMessage) error {
	props, ok := mgs.edgeProps[key]
	if !ok {
		props = make(map[string]json.RawMessage)
		mgs.edgeProps[key] = props
	}

	props[name] = copyValue(value)

	return nil
}

/*
DeleteEdgeProperty removes an edge property.
*/
func (mgs *MemoryGraphStorage) DeleteEdgeProperty(key data.EdgeKey, name string) error {
	if props, ok := mgs.edgeProps[key]; ok {
		delete(props, name)

		if len(props) == 0 {
			delete(mgs.edgeProps, key)
		}
	}
	return nil
}

// Helper functions
// ================

/*
sortedProperties returns the properties of a given map ordered by name.
*/
func sortedProperties(props map[string]json.RawMessage) []data.NamedProperty {
	if len(props) == 0 {
		return nil
	}

	res := make([]data.NamedProperty, 0, len(props))

	for name, value := range props {
		res = append(res, data.NamedProperty{Name: name, Value: copyValue(value)})
	}

	sort.Slice(res, func(i, j int) bool {
		return res[i].Name < res[j].Name
	})

	return res
}

/*
copyValue copies a JSON value so callers cannot modify stored data.
*/
func copyValue(value json.RawMessage) json.RawMessage {
	if value == nil {
		return nil
	}
	res := make(json.RawMessage, len(value))
	copy(res, value)
	return res
}
