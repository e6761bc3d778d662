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
	"bytes"
	"encoding/binary"
	"fmt"
	"time"

	"github.com/google/uuid"

	"devt.de/krotik/arcdb/graph/data"
	"devt.de/krotik/arcdb/graph/util"
)

// Key layout of key-value storages
// ================================
//
// Prefixes are only one byte. They are followed by the vertex id so all
// entries of a vertex are stored near each other.
//
//	PrefixVertex + id -> type
//	PrefixOutEdge + outbound id + type + 0x00 + inbound id -> created (unix nano)
//	PrefixInEdge + inbound id + type + 0x00 + outbound id -> created (unix nano)
//	PrefixVertexProp + id + name -> JSON value
//	PrefixEdgeProp + outbound id + type + 0x00 + inbound id + name -> JSON value
//	PrefixMeta + name -> meta value
//
// Types never contain a 0x00 byte so the separator keeps the byte order of
// keys equal to the string order of types.

/*
Key prefixes
*/
const (
	PrefixVertex     = '\x01'
	PrefixOutEdge    = '\x02'
	PrefixInEdge     = '\x03'
	PrefixVertexProp = '\x04'
	PrefixEdgeProp   = '\x05'
	PrefixMeta       = '\x06'
)

/*
MetaVertexCount is the meta entry key for the vertex count
*/
var MetaVertexCount = []byte{PrefixMeta, 'v', 'c', 'n', 't'}

const typeSeparator = '\x00'

func vertexKey(id uuid.UUID) []byte {
	return append([]byte{PrefixVertex}, id[:]...)
}

/*
edgeKeyBytes encodes an edge key with a given prefix. The first id is the
id of the end the key is sorted by.
*/
func edgeKeyBytes(prefix byte, first uuid.UUID, t data.Type, second uuid.UUID) []byte {
	ts := t.String()
	buf := make([]byte, 0, 1+16+len(ts)+1+16)

	buf = append(buf, prefix)
	buf = append(buf, first[:]...)
	buf = append(buf, ts...)
	buf = append(buf, typeSeparator)
	buf = append(buf, second[:]...)

	return buf
}

func outEdgeKey(key data.EdgeKey) []byte {
	return edgeKeyBytes(PrefixOutEdge, key.OutboundID, key.T, key.InboundID)
}

func inEdgeKey(key data.EdgeKey) []byte {
	return edgeKeyBytes(PrefixInEdge, key.InboundID, key.T, key.OutboundID)
}

/*
edgeScanPrefix returns the prefix of all edges of a vertex in a direction
and optionally of a given type.
*/
func edgeScanPrefix(id uuid.UUID, dir data.Direction, t *data.Type) []byte {
	prefix := []byte{PrefixOutEdge}
	if dir == data.Inbound {
		prefix[0] = PrefixInEdge
	}

	prefix = append(prefix, id[:]...)

	if t != nil {
		prefix = append(prefix, t.String()...)
		prefix = append(prefix, typeSeparator)
	}

	return prefix
}

/*
decodeEdgeKey decodes an edge key which was encoded by outEdgeKey or inEdgeKey.
*/
func decodeEdgeKey(b []byte) (data.EdgeKey, error) {
	var first, second uuid.UUID

	if len(b) < 1+16+1+16+1 {
		return data.EdgeKey{}, encodingError("Edge key too short: %x", b)
	}

	copy(first[:], b[1:17])
	copy(second[:], b[len(b)-16:])

	tb := b[17 : len(b)-16]
	if tb[len(tb)-1] != typeSeparator {
		return data.EdgeKey{}, encodingError("Edge key without type separator: %x", b)
	}

	t, err := data.NewType(string(tb[:len(tb)-1]))
	if err != nil {
		return data.EdgeKey{}, encodingError("Invalid type in edge key: %v", err)
	}

	if b[0] == PrefixInEdge {
		return data.NewEdgeKey(second, t, first), nil
	}

	return data.NewEdgeKey(first, t, second), nil
}

func vertexPropPrefix(id uuid.UUID) []byte {
	return append([]byte{PrefixVertexProp}, id[:]...)
}

func vertexPropKey(id uuid.UUID, name string) []byte {
	return append(vertexPropPrefix(id), name...)
}

func edgePropPrefix(key data.EdgeKey) []byte {
	return edgeKeyBytes(PrefixEdgeProp, key.OutboundID, key.T, key.InboundID)
}

func edgePropKey(key data.EdgeKey, name string) []byte {
	return append(edgePropPrefix(key), name...)
}

func encodeTime(t time.Time) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(t.UnixNano()))
	return b
}

func decodeTime(b []byte) (time.Time, error) {
	if len(b) != 8 {
		return time.Time{}, encodingError("Invalid timestamp: %x", b)
	}
	return time.Unix(0, int64(binary.BigEndian.Uint64(b))).UTC(), nil
}

func encodeCount(c uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, c)
	return b
}

func decodeCount(b []byte) (uint64, error) {
	if b == nil {
		return 0, nil
	} else if len(b) != 8 {
		return 0, encodingError("Invalid count: %x", b)
	}
	return binary.BigEndian.Uint64(b), nil
}

func hasPrefix(b []byte, prefix []byte) bool {
	return bytes.HasPrefix(b, prefix)
}

func encodingError(format string, args ...interface{}) error {
	return &util.GraphError{Type: util.ErrEncoding, Detail: fmt.Sprintf(format, args...)}
}
