/*
 * ArcDB
 *
 * Copyright 2016 Matthias Ladkau. All rights reserved.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package data

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"devt.de/krotik/arcdb/graph/util"
)

func TestNewType(t *testing.T) {
	typ, err := NewType("follows")
	require.NoError(t, err)
	assert.Equal(t, "follows", typ.String())
	assert.False(t, typ.IsZero())

	for _, invalid := range []string{"", "has space", "ümlaut", strings.Repeat("a", MaxTypeLength+1)} {
		_, err := NewType(invalid)
		assert.Error(t, err, invalid)
		assert.True(t, util.IsValidationError(err), invalid)
	}

	_, err = NewType(strings.Repeat("a", MaxTypeLength))
	assert.NoError(t, err)

	assert.Panics(t, func() { MustType("") })
	assert.True(t, Type{}.IsZero())
}

func TestTypeText(t *testing.T) {
	var typ Type

	require.NoError(t, json.Unmarshal([]byte(`"user"`), &typ))
	assert.Equal(t, MustType("user"), typ)

	err := json.Unmarshal([]byte(`""`), &typ)
	assert.True(t, util.IsValidationError(err))

	res, err := json.Marshal(MustType("user"))
	require.NoError(t, err)
	assert.Equal(t, `"user"`, string(res))
}

func TestDirection(t *testing.T) {
	var d Direction

	require.NoError(t, json.Unmarshal([]byte(`"inbound"`), &d))
	assert.Equal(t, Inbound, d)
	assert.Equal(t, "outbound", Outbound.String())
	assert.Error(t, json.Unmarshal([]byte(`"sideways"`), &d))
}

func TestOrdering(t *testing.T) {
	a := uuid.MustParse("00000000-0000-0000-0000-000000000001")
	b := uuid.MustParse("00000000-0000-0000-0000-000000000002")

	assert.Equal(t, -1, CompareIDs(a, b))
	assert.Equal(t, 1, CompareIDs(b, a))
	assert.Equal(t, 0, CompareIDs(a, a))

	k1 := NewEdgeKey(a, MustType("a"), b)
	k2 := NewEdgeKey(a, MustType("ab"), a)
	k3 := NewEdgeKey(a, MustType("b"), a)

	assert.Equal(t, -1, CompareEdgeKeys(k1, k2))
	assert.Equal(t, -1, CompareEdgeKeys(k2, k3))
	assert.Equal(t, 0, CompareEdgeKeys(k3, k3))

	assert.Equal(t, NewEdgeKey(b, MustType("a"), a), k1.Reversed())
	assert.Equal(t, b, k1.End(Inbound))
	assert.Equal(t, a, k1.End(Outbound))
}

func TestNormalizeTime(t *testing.T) {
	loc := time.FixedZone("test", 3600)
	ts := time.Date(2020, 1, 2, 3, 4, 5, 6, loc)

	n := NormalizeTime(ts)

	assert.Equal(t, time.UTC, n.Location())
	assert.True(t, n.Equal(ts))
	assert.Equal(t, n, NewEdge(EdgeKey{}, ts).CreatedDatetime)
}

func TestNormalizeJSON(t *testing.T) {
	res, err := NormalizeJSON(json.RawMessage(`{ "a" : [1, 2,  3] }`))
	require.NoError(t, err)
	assert.Equal(t, `{"a":[1,2,3]}`, string(res))

	_, err = NormalizeJSON(json.RawMessage(`{"a":`))
	assert.True(t, util.IsValidationError(err))

	assert.Equal(t, `"x"`, string(MustJSON("x")))
}

func TestBulkItemJSON(t *testing.T) {
	id := uuid.New()
	key := NewEdgeKey(id, MustType("follows"), uuid.New())

	items := []BulkInsertItem{
		BulkVertex{NewVertex(id, MustType("user"))},
		BulkEdge{key},
		BulkVertexProperty{id, "name", MustJSON("john")},
		BulkEdgeProperty{key, "weight", MustJSON(1.5)},
	}

	for _, item := range items {
		b, err := MarshalBulkItem(item)
		require.NoError(t, err)

		res, err := UnmarshalBulkItem(b)
		require.NoError(t, err)
		assert.Equal(t, item, res)
	}

	for _, invalid := range []string{
		`{"type":"vertex"}`,
		`{"type":"vertex","vertex":{"id":"` + id.String() + `"}}`,
		`{"type":"edge"}`,
		`{"type":"vertex_property","name":"x"}`,
		`{"type":"vertex_property","id":"` + id.String() + `"}`,
		`{"type":"edge_property","name":"x"}`,
		`{"type":"unknown"}`,
		`{"type":`,
	} {
		_, err := UnmarshalBulkItem([]byte(invalid))
		assert.True(t, util.IsValidationError(err), invalid)
	}
}
