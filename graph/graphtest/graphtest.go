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
Package graphtest contains test tooling for graph datastores.

RunSuite checks the behaviour of a datastore which every storage must show.
Compare and Run apply the same stream of operations to several datastores
and fail if any result differs. Operation streams are produced from a seeded
random generator (RandomOps) or decoded from arbitrary bytes (DecodeOps) so
they can be driven by the fuzzing engine.
*/
package graphtest

import (
	"encoding/binary"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"devt.de/krotik/arcdb/graph"
)

/*
Factory creates a new empty datastore for a test. The datastore is closed
when the test finishes.
*/
type Factory func(t *testing.T, opts ...graph.Option) graph.Datastore

/*
Clock is a deterministic clock which advances by a fixed step on every call.
*/
type Clock struct {
	now  time.Time
	step time.Duration
	lock *sync.Mutex
}

/*
NewClock creates a new Clock.
*/
func NewClock(start time.Time, step time.Duration) *Clock {
	return &Clock{start, step, &sync.Mutex{}}
}

/*
Now advances the clock and returns the new time.
*/
func (c *Clock) Now() time.Time {
	c.lock.Lock()
	defer c.lock.Unlock()

	c.now = c.now.Add(c.step)

	return c.now
}

/*
SequentialIDs returns an id generator which produces ascending ids. All ids
start with the given prefix byte.
*/
func SequentialIDs(prefix byte) func() (uuid.UUID, error) {
	var counter uint64
	lock := &sync.Mutex{}

	return func() (uuid.UUID, error) {
		var id uuid.UUID

		lock.Lock()
		counter++
		binary.BigEndian.PutUint64(id[8:], counter)
		lock.Unlock()

		id[0] = prefix

		return id, nil
	}
}

/*
TestID returns a small well-known id.
*/
func TestID(n byte) uuid.UUID {
	return uuid.UUID{15: n}
}

/*
DeterministicOptions returns datastore options which make timestamps and
generated ids reproducible.
*/
func DeterministicOptions() []graph.Option {
	return []graph.Option{
		graph.WithClock(NewClock(time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC), time.Millisecond).Now),
		graph.WithIDGenerator(SequentialIDs(0xa0)),
	}
}
