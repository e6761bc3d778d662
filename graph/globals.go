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
Package graph contains the main API to the graph datastore.

Datastore API

The main API is provided by a Manager object which can be created with the
NewGraphManager() constructor function. A Manager implements the Datastore
interface on top of a graphstorage.Storage. Every storage (memory, bolt or
badger) produces the same results since queries are evaluated and cascades
are collected in this package.

Transactions

A Transaction is a cheap handle to a Datastore. Each of its operations is
atomic on its own: reads run in one storage view and writes run in one storage
update. A Transaction does not pin a snapshot across calls.

Queries

Transaction operations take queries from the graph/query package. Queries are
evaluated by direct interpretation:

	Range     - vertices in id order from an optional start id
	Specific  - existing vertices or edges in request order, duplicates once
	Pipe      - vertices at the end of edges, or edges of vertices

Limits are applied after all filters.

Cascades

Deleting a vertex deletes all edges of the vertex (both directions), the
properties of these edges and the properties of the vertex. Affected records
are collected first and deleted afterwards.

Bulk insert

Large amounts of data can be loaded with a BulkInserter. Items are written in
batches, each batch in its own storage update. Earlier batches stay applied if
a later batch fails.
*/
package graph

/*
VERSION of the GraphManager
*/
const VERSION = 1

/*
DefaultBulkBatchSize is the default number of bulk items per storage update
*/
const DefaultBulkBatchSize = 1000
