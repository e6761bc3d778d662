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
	"time"

	"github.com/google/uuid"

	"devt.de/krotik/arcdb/graph/data"
)

/*
kvTxn is a transaction of an ordered key-value store. Values returned by get
and passed to scan callbacks are owned by the caller.
*/
type kvTxn interface {

	/*
	   get returns the value of a key or nil if the key does not exist.
	*/
	get(key []byte) ([]byte, error)

	/*
	   put stores a value under a key.
	*/
	put(key []byte, value []byte) error

	/*
	   delete removes a key.
	*/
	delete(key []byte) error

	/*
	   scan visits all keys which start with a given prefix in byte order
	   beginning with the first key >= start.
	*/
	scan(prefix []byte, start []byte, fn func(key []byte, value []byte) (bool, error)) error
}

/*
kvGraphAccess implements the Reader and Writer interfaces on top of a
key-value transaction.
*/
type kvGraphAccess struct {
	txn kvTxn
}

// Reader
// ======

/*
Vertex looks up the type of a vertex.
*/
func (ga *kvGraphAccess) Vertex(id uuid.UUID) (data.Type, bool, error) {
	v, err := ga.txn.get(vertexKey(id))
	if err != nil || v == nil {
		return data.Type{}, false, err
	}

	t, err := decodeType(v)

	return t, err == nil, err
}

/*
ScanVertices iterates over all vertices in identifier order.
*/
func (ga *kvGraphAccess) ScanVertices(start *uuid.UUID, fn func(v data.Vertex) (bool, error)) error {
	prefix := []byte{PrefixVertex}
	from := prefix

	if start != nil {
		from = vertexKey(*start)
	}

	return ga.txn.scan(prefix, from, func(key []byte, value []byte) (bool, error) {
		var id uuid.UUID

		if len(key) != 17 {
			return false, encodingError("Invalid vertex key: %x", key)
		}

		copy(id[:], key[1:])

		t, err := decodeType(value)
		if err != nil {
			return false, err
		}

		return fn(data.NewVertex(id, t))
	})
}

/*
VertexCount returns the number of stored vertices.
*/
func (ga *kvGraphAccess) VertexCount() (uint64, error) {
	v, err := ga.txn.get(MetaVertexCount)
	if err != nil {
		return 0, err
	}
	return decodeCount(v)
}

/*
Edge looks up the creation time of an edge.
*/
func (ga *kvGraphAccess) Edge(key data.EdgeKey) (time.Time, bool, error) {
	v, err := ga.txn.get(outEdgeKey(key))
	if err != nil || v == nil {
		return time.Time{}, false, err
	}

	created, err := decodeTime(v)

	return created, err == nil, err
}

/*
ScanEdges iterates over the edges of a vertex in a given direction.
*/
func (ga *kvGraphAccess) ScanEdges(id uuid.UUID, dir data.Direction, t *data.Type,
	fn func(e data.Edge) (bool, error)) error {

	prefix := edgeScanPrefix(id, dir, t)

	return ga.txn.scan(prefix, prefix, func(key []byte, value []byte) (bool, error) {
		ekey, err := decodeEdgeKey(key)
		if err != nil {
			return false, err
		}

		created, err := decodeTime(value)
		if err != nil {
			return false, err
		}

		return fn(data.NewEdge(ekey, created))
	})
}

/*
VertexProperty looks up a single property of a vertex.
*/
func (ga *kvGraphAccess) VertexProperty(id uuid.UUID, name string) (json.RawMessage, bool, error) {
	v, err := ga.txn.get(vertexPropKey(id, name))
	if err != nil || v == nil {
		return nil, false, err
	}
	return json.RawMessage(v), true, nil
}

/*
VertexProperties returns all properties of a vertex ordered by name.
*/
func (ga *kvGraphAccess) VertexProperties(id uuid.UUID) ([]data.NamedProperty, error) {
	return ga.scanProperties(vertexPropPrefix(id))
}

/*
EdgeProperty looks up a single property of an edge.
*/
func (ga *kvGraphAccess) EdgeProperty(key data.EdgeKey, name string) (json.RawMessage, bool, error) {
	v, err := ga.txn.get(edgePropKey(key, name))
	if err != nil || v == nil {
		return nil, false, err
	}
	return json.RawMessage(v), true, nil
}

/*
EdgeProperties returns all properties of an edge ordered by name.
*/
func (ga *kvGraphAccess) EdgeProperties(key data.EdgeKey) ([]data.NamedProperty, error) {
	return ga.scanProperties(edgePropPrefix(key))
}

/*
scanProperties collects all properties under a given owner prefix.
*/
func (ga *kvGraphAccess) scanProperties(prefix []byte) ([]data.NamedProperty, error) {
	var res []data.NamedProperty

	err := ga.txn.scan(prefix, prefix, func(key []byte, value []byte) (bool, error) {
		res = append(res, data.NamedProperty{
			Name:  string(key[len(prefix):]),
			Value: json.RawMessage(value),
		})
		return true, nil
	})

	return res, err
}

// Writer
// ======

/*
PutVertex stores a vertex record.
*/
func (ga *kvGraphAccess) PutVertex(v data.Vertex) error {
	_, exists, err := ga.Vertex(v.ID)
	if err != nil {
		return err
	}

	if err = ga.txn.put(vertexKey(v.ID), []byte(v.T.String())); err == nil && !exists {
		err = ga.adjustVertexCount(1)
	}

	return err
}

/*
DeleteVertex removes a vertex record.
*/
func (ga *kvGraphAccess) DeleteVertex(id uuid.UUID) error {
	_, exists, err := ga.Vertex(id)
	if err != nil || !exists {
		return err
	}

	if err = ga.txn.delete(vertexKey(id)); err == nil {
		err = ga.adjustVertexCount(-1)
	}

	return err
}

/*
adjustVertexCount changes the stored vertex count.
*/
func (ga *kvGraphAccess) adjustVertexCount(delta int) error {
	count, err := ga.VertexCount()
	if err != nil {
		return err
	}

	if delta < 0 && count > 0 {
		count--
	} else if delta > 0 {
		count++
	}

	return ga.txn.put(MetaVertexCount, encodeCount(count))
}

/*
PutEdge stores an edge record with its creation time.
*/
func (ga *kvGraphAccess) PutEdge(key data.EdgeKey, created time.Time) error {
	ts := encodeTime(data.NormalizeTime(created))

	err := ga.txn.put(outEdgeKey(key), ts)
	if err == nil {
		err = ga.txn.put(inEdgeKey(key), ts)
	}

	return err
}

/*
DeleteEdge removes an edge record.
*/
func (ga *kvGraphAccess) DeleteEdge(key data.EdgeKey) error {
	err := ga.txn.delete(outEdgeKey(key))
	if err == nil {
		err = ga.txn.delete(inEdgeKey(key))
	}
	return err
}

/*
PutVertexProperty stores a vertex property.
*/
func (ga *kvGraphAccess) PutVertexProperty(id uuid.UUID, name string, value json.RawMessage) error {
	return ga.txn.put(vertexPropKey(id, name), value)
}

/*
DeleteVertexProperty removes a vertex property.
*/
func (ga *kvGraphAccess) DeleteVertexProperty(id uuid.UUID, name string) error {
	return ga.txn.delete(vertexPropKey(id, name))
}

/*
PutEdgeProperty stores an edge property.
*/
func (ga *kvGraphAccess) PutEdgeProperty(key data.EdgeKey, name string, value json.RawMessage) error {
	return ga.txn.put(edgePropKey(key, name), value)
}

/*
DeleteEdgeProperty removes an edge property.
*/
func (ga *kvGraphAccess) DeleteEdgeProperty(key data.EdgeKey, name string) error {
	return ga.txn.delete(edgePropKey(key, name))
}

/*
decodeType decodes a stored type.
*/
func decodeType(b []byte) (data.Type, error) {
	t, err := data.NewType(string(b))
	if err != nil {
		return t, encodingError("Invalid stored type: %v", err)
	}
	return t, nil
}
