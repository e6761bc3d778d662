/*
 * ArcDB
 *
 * Copyright 2016 Matthias Ladkau. All rights reserved.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package graphtest

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"devt.de/krotik/arcdb/graph"
	"devt.de/krotik/arcdb/graph/data"
	"devt.de/krotik/arcdb/graph/query"
	"devt.de/krotik/arcdb/graph/util"
)

/*
OpKind is the kind of a datastore operation
*/
type OpKind int

/*
Datastore operations
*/
const (
	OpCreateVertex OpKind = iota
	OpCreateVertexFromType
	OpGetVertices
	OpDeleteVertices
	OpGetVertexCount
	OpCreateEdge
	OpGetEdges
	OpDeleteEdges
	OpGetEdgeCount
	OpGetVertexProperties
	OpGetAllVertexProperties
	OpSetVertexProperties
	OpDeleteVertexProperties
	OpGetEdgeProperties
	OpGetAllEdgeProperties
	OpSetEdgeProperties
	OpDeleteEdgeProperties
	OpBulkInsert
	opCount
)

var opNames = []string{"CreateVertex", "CreateVertexFromType", "GetVertices", "DeleteVertices",
	"GetVertexCount", "CreateEdge", "GetEdges", "DeleteEdges", "GetEdgeCount", "GetVertexProperties",
	"GetAllVertexProperties", "SetVertexProperties", "DeleteVertexProperties", "GetEdgeProperties",
	"GetAllEdgeProperties", "SetEdgeProperties", "DeleteEdgeProperties", "BulkInsert"}

/*
String returns the name of an operation kind.
*/
func (k OpKind) String() string {
	if k >= 0 && k < opCount {
		return opNames[k]
	}
	return fmt.Sprintf("OpKind(%d)", int(k))
}

/*
Op is a single datastore operation. Only the fields used by its kind are set.
*/
type Op struct {
	Kind        OpKind
	Vertex      data.Vertex
	T           data.Type
	Key         data.EdgeKey
	VertexQuery query.VertexQuery
	EdgeQuery   query.EdgeQuery
	ID          uuid.UUID
	OptT        *data.Type
	Direction   data.Direction
	Name        string
	Value       json.RawMessage
	Items       []data.BulkInsertItem
}

/*
String returns a string representation of an operation.
*/
func (op Op) String() string {
	switch op.Kind {
	case OpCreateVertex:
		return fmt.Sprintf("%v(%v)", op.Kind, op.Vertex)
	case OpCreateVertexFromType:
		return fmt.Sprintf("%v(%v)", op.Kind, op.T)
	case OpCreateEdge:
		return fmt.Sprintf("%v(%v)", op.Kind, op.Key)
	case OpGetEdgeCount:
		return fmt.Sprintf("%v(%v, %v, %v)", op.Kind, op.ID, op.OptT, op.Direction)
	case OpBulkInsert:
		return fmt.Sprintf("%v(%v items)", op.Kind, len(op.Items))
	case OpGetVertexCount:
		return op.Kind.String()
	}

	q, _ := query.MarshalVertexQuery(op.VertexQuery)
	if op.EdgeQuery != nil {
		q, _ = query.MarshalEdgeQuery(op.EdgeQuery)
	}

	return fmt.Sprintf("%v(%s, %q, %s)", op.Kind, q, op.Name, op.Value)
}

// Operation generation
// ====================

/*
Pools of values which are used for generated operations. The pools are small
so generated operations hit existing data most of the time.
*/
var (
	poolSize   = 8
	poolTypes  = []data.Type{data.MustType("a"), data.MustType("b"), data.MustType("c")}
	poolNames  = []string{"x", "y"}
	poolValues = []json.RawMessage{
		json.RawMessage(`null`), json.RawMessage(`1`), json.RawMessage(`"s"`),
		json.RawMessage(`[1,{"a":true}]`), json.RawMessage(`{"n":{"m":-2.5}}`),
	}
)

/*
source provides the bytes from which operations are generated.
*/
type source interface {
	next() byte
}

/*
randSource produces random bytes.
*/
type randSource struct {
	rng *rand.Rand
}

func (s *randSource) next() byte {
	return byte(s.rng.Intn(256))
}

/*
byteSource produces the bytes of a given input and zeros once the input is
exhausted.
*/
type byteSource struct {
	input []byte
	pos   int
}

func (s *byteSource) next() byte {
	if s.pos >= len(s.input) {
		return 0
	}
	s.pos++
	return s.input[s.pos-1]
}

func (s *byteSource) exhausted() bool {
	return s.pos >= len(s.input)
}

/*
RandomOps generates n random operations from a seed.
*/
func RandomOps(seed int64, n int) []Op {
	src := &randSource{rand.New(rand.NewSource(seed))}

	ops := make([]Op, n)
	for i := range ops {
		ops[i] = genOp(src)
	}

	return ops
}

/*
MaxDecodedOps is the maximum number of operations which are decoded from
a byte input.
*/
var MaxDecodedOps = 64

/*
DecodeOps decodes a list of operations from arbitrary bytes. Every input
produces a valid list of operations.
*/
func DecodeOps(b []byte) []Op {
	var ops []Op

	src := &byteSource{input: b}

	for !src.exhausted() && len(ops) < MaxDecodedOps {
		ops = append(ops, genOp(src))
	}

	return ops
}

func genID(src source) uuid.UUID {
	return TestID(byte(int(src.next())%poolSize) + 1)
}

func genType(src source) data.Type {
	return poolTypes[int(src.next())%len(poolTypes)]
}

func genOptType(src source) *data.Type {
	if src.next()%2 == 0 {
		return nil
	}
	t := genType(src)
	return &t
}

func genDirection(src source) data.Direction {
	return data.Direction(src.next() % 2)
}

func genLimit(src source) uint32 {
	return uint32(src.next() % 12)
}

func genKey(src source) data.EdgeKey {
	return data.NewEdgeKey(genID(src), genType(src), genID(src))
}

func genName(src source) string {
	return poolNames[int(src.next())%len(poolNames)]
}

func genValue(src source) json.RawMessage {
	return poolValues[int(src.next())%len(poolValues)]
}

func genTime(src source) *time.Time {
	if src.next()%3 != 0 {
		return nil
	}

	// Operations are applied with a clock which starts at the beginning of
	// 2020 and advances by a millisecond per call

	t := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(src.next()%64) * time.Millisecond)

	return &t
}

func genVertexQuery(src source, depth int) query.VertexQuery {
	kind := src.next() % 3

	if depth <= 0 && kind == 2 {
		kind = src.next() % 2
	}

	switch kind {
	case 0:
		q := query.Range(genLimit(src))
		if src.next()%2 == 0 {
			q = q.WithStart(genID(src))
		}
		q.T = genOptType(src)
		return q

	case 1:
		ids := make([]uuid.UUID, src.next()%4)
		for i := range ids {
			ids[i] = genID(src)
		}
		return query.Specific(ids...)
	}

	return query.PipeVertexQuery{
		Inner:     genEdgeQuery(src, depth-1),
		Direction: genDirection(src),
		Limit:     genLimit(src),
		T:         genOptType(src),
	}
}

func genEdgeQuery(src source, depth int) query.EdgeQuery {
	if depth <= 0 || src.next()%3 == 0 {
		keys := make([]data.EdgeKey, src.next()%4)
		for i := range keys {
			keys[i] = genKey(src)
		}
		return query.SpecificEdges(keys...)
	}

	return query.PipeEdgeQuery{
		Inner:     genVertexQuery(src, depth-1),
		Direction: genDirection(src),
		Limit:     genLimit(src),
		T:         genOptType(src),
		High:      genTime(src),
		Low:       genTime(src),
	}
}

func genBulkItem(src source) data.BulkInsertItem {
	switch src.next() % 4 {
	case 0:
		return data.BulkVertex{Vertex: data.NewVertex(genID(src), genType(src))}
	case 1:
		return data.BulkEdge{Key: genKey(src)}
	case 2:
		return data.BulkVertexProperty{ID: genID(src), Name: genName(src), Value: genValue(src)}
	}
	return data.BulkEdgeProperty{Key: genKey(src), Name: genName(src), Value: genValue(src)}
}

/*
genOp generates a single operation. Creating operations are generated more
often than others so generated graphs are not empty most of the time.
*/
func genOp(src source) Op {
	b := src.next()

	kind := OpKind(int(b) % int(opCount+3))
	if kind >= opCount {
		kind = []OpKind{OpCreateVertex, OpCreateEdge, OpCreateEdge}[kind-opCount]
	}

	op := Op{Kind: kind}

	switch kind {
	case OpCreateVertex:
		op.Vertex = data.NewVertex(genID(src), genType(src))

	case OpCreateVertexFromType:
		op.T = genType(src)

	case OpGetVertices, OpDeleteVertices, OpGetAllVertexProperties:
		op.VertexQuery = genVertexQuery(src, 2)

	case OpCreateEdge:
		op.Key = genKey(src)

	case OpGetEdges, OpDeleteEdges, OpGetAllEdgeProperties:
		op.EdgeQuery = genEdgeQuery(src, 2)

	case OpGetEdgeCount:
		op.ID = genID(src)
		op.OptT = genOptType(src)
		op.Direction = genDirection(src)

	case OpGetVertexProperties, OpDeleteVertexProperties:
		op.VertexQuery = genVertexQuery(src, 2)
		op.Name = genName(src)

	case OpSetVertexProperties:
		op.VertexQuery = genVertexQuery(src, 2)
		op.Name = genName(src)
		op.Value = genValue(src)

	case OpGetEdgeProperties, OpDeleteEdgeProperties:
		op.EdgeQuery = genEdgeQuery(src, 2)
		op.Name = genName(src)

	case OpSetEdgeProperties:
		op.EdgeQuery = genEdgeQuery(src, 2)
		op.Name = genName(src)
		op.Value = genValue(src)

	case OpBulkInsert:
		op.Items = make([]data.BulkInsertItem, src.next()%6)
		for i := range op.Items {
			op.Items[i] = genBulkItem(src)
		}
	}

	return op
}

// Operation application
// =====================

/*
opResult is the comparable outcome of an operation.
*/
type opResult struct {
	Result interface{} `json:"result,omitempty"`
	Error  string      `json:"error,omitempty"`
}

/*
Apply applies an operation to a datastore and returns the JSON encoded
outcome. Errors are part of the outcome and reduced to their category so
storage specific error details do not matter.
*/
func Apply(ds graph.Datastore, op Op) (string, error) {
	var res interface{}

	trans, err := ds.Transaction()

	if err == nil {
		switch op.Kind {
		case OpCreateVertex:
			res, err = trans.CreateVertex(op.Vertex)
		case OpCreateVertexFromType:
			res, err = trans.CreateVertexFromType(op.T)
		case OpGetVertices:
			res, err = trans.GetVertices(op.VertexQuery)
		case OpDeleteVertices:
			err = trans.DeleteVertices(op.VertexQuery)
		case OpGetVertexCount:
			res, err = trans.GetVertexCount()
		case OpCreateEdge:
			res, err = trans.CreateEdge(op.Key)
		case OpGetEdges:
			res, err = trans.GetEdges(op.EdgeQuery)
		case OpDeleteEdges:
			err = trans.DeleteEdges(op.EdgeQuery)
		case OpGetEdgeCount:
			res, err = trans.GetEdgeCount(op.ID, op.OptT, op.Direction)
		case OpGetVertexProperties:
			res, err = trans.GetVertexProperties(query.VertexPropertyQuery{Inner: op.VertexQuery, Name: op.Name})
		case OpGetAllVertexProperties:
			res, err = trans.GetAllVertexProperties(op.VertexQuery)
		case OpSetVertexProperties:
			err = trans.SetVertexProperties(query.VertexPropertyQuery{Inner: op.VertexQuery, Name: op.Name}, op.Value)
		case OpDeleteVertexProperties:
			err = trans.DeleteVertexProperties(query.VertexPropertyQuery{Inner: op.VertexQuery, Name: op.Name})
		case OpGetEdgeProperties:
			res, err = trans.GetEdgeProperties(query.EdgePropertyQuery{Inner: op.EdgeQuery, Name: op.Name})
		case OpGetAllEdgeProperties:
			res, err = trans.GetAllEdgeProperties(op.EdgeQuery)
		case OpSetEdgeProperties:
			err = trans.SetEdgeProperties(query.EdgePropertyQuery{Inner: op.EdgeQuery, Name: op.Name}, op.Value)
		case OpDeleteEdgeProperties:
			err = trans.DeleteEdgeProperties(query.EdgePropertyQuery{Inner: op.EdgeQuery, Name: op.Name})
		case OpBulkInsert:
			err = ds.BulkInsert(op.Items)
		default:
			return "", fmt.Errorf("Unknown operation: %v", op.Kind)
		}
	}

	outcome := opResult{Result: res}

	if util.IsValidationError(err) {
		outcome = opResult{Error: "validation"}
	} else if err != nil {
		outcome = opResult{Error: "backend: " + err.Error()}
	}

	b, err := json.Marshal(outcome)

	return string(b), err
}

/*
Compare applies a list of operations to the datastores of all given
factories and fails the test on the first differing outcome. All datastores
are created with the same deterministic clock and id generator.
*/
func Compare(t *testing.T, ops []Op, factories ...Factory) {
	require.NotEmpty(t, factories)

	datastores := make([]graph.Datastore, len(factories))
	for i, factory := range factories {
		datastores[i] = factory(t, DeterministicOptions()...)
	}

	for i, op := range ops {
		expected, err := Apply(datastores[0], op)
		require.NoError(t, err)

		for j, ds := range datastores[1:] {
			res, err := Apply(ds, op)
			require.NoError(t, err)

			require.Equal(t, expected, res, "Operation %v: %v (datastore %v)", i, op, j+1)
		}
	}

	// Final states must be equal as well

	final := []Op{
		{Kind: OpGetVertexCount},
		{Kind: OpGetAllVertexProperties, VertexQuery: query.Range(1000)},
		{Kind: OpGetAllEdgeProperties, EdgeQuery: query.Range(1000).Outbound(100000)},
	}

	for _, op := range final {
		expected, err := Apply(datastores[0], op)
		require.NoError(t, err)

		for j, ds := range datastores[1:] {
			res, err := Apply(ds, op)
			require.NoError(t, err)

			require.Equal(t, expected, res, "Final state %v (datastore %v)", op, j+1)
		}
	}
}

/*
Run compares datastores of the given factories with a random operation
stream of n operations for every seed.
*/
func Run(t *testing.T, seeds []int64, n int, factories ...Factory) {
	for _, seed := range seeds {
		s := seed
		t.Run(fmt.Sprintf("seed-%v", s), func(t *testing.T) {
			Compare(t, RandomOps(s, n), factories...)
		})
	}
}
