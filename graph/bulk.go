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
	"fmt"
	"sync"

	"devt.de/krotik/common/errorutil"

	"devt.de/krotik/arcdb/graph/data"
	"devt.de/krotik/arcdb/graph/graphstorage"
	"devt.de/krotik/arcdb/graph/util"
)

/*
BulkInserter loads a stream of bulk items into a graph. Items are collected
and written in batches; each batch is written in its own storage update.
A BulkInserter is thread-safe.
*/
type BulkInserter struct {
	gm *Manager // Graph manager which created this inserter

	batch     []data.BulkInsertItem     // Current batch which is build up
	batchSize int                       // Number of items per batch
	errors    *errorutil.CompositeError // Collected batch errors
	firstErr  error                     // First batch error

	countItems   int // Count of added items
	countBatches int // Count of written batches

	lock *sync.Mutex // Lock for this inserter
}

/*
NewBulkInserter creates a new BulkInserter for a Manager.
*/
func NewBulkInserter(gm *Manager) *BulkInserter {
	return &BulkInserter{
		gm:        gm,
		batch:     make([]data.BulkInsertItem, 0, gm.bulkBatchSize),
		batchSize: gm.bulkBatchSize,
		errors:    errorutil.NewCompositeError(),
		lock:      &sync.Mutex{},
	}
}

/*
String returns a string representation of this inserter.
*/
func (bi *BulkInserter) String() string {
	bi.lock.Lock()
	defer bi.lock.Unlock()

	return fmt.Sprintf("Bulk inserter - Items: %v - Batches: %v - Pending: %v - Batch size: %v",
		bi.countItems, bi.countBatches, len(bi.batch), bi.batchSize)
}

/*
Add adds an item. Malformed items are rejected with a validation error. If
the item completes a batch then the batch is written and the error of the
write is returned.
*/
func (bi *BulkInserter) Add(item data.BulkInsertItem) error {
	item, err := CheckBulkItem(item)
	if err != nil {
		return err
	}

	bi.lock.Lock()
	defer bi.lock.Unlock()

	bi.batch = append(bi.batch, item)
	bi.countItems++

	if len(bi.batch) >= bi.batchSize {
		return bi.flush()
	}

	return nil
}

/*
Close writes all remaining items. Returns the error of a failed batch. If
several batches failed all errors are returned as a composite error.
*/
func (bi *BulkInserter) Close() error {
	bi.lock.Lock()
	defer bi.lock.Unlock()

	bi.flush()

	if len(bi.errors.Errors) > 1 {
		return bi.errors
	}

	return bi.firstErr
}

/*
flush writes the current batch.
*/
func (bi *BulkInserter) flush() error {
	if len(bi.batch) == 0 {
		return nil
	}

	batch := bi.batch
	bi.batch = make([]data.BulkInsertItem, 0, bi.batchSize)
	bi.countBatches++

	err := bi.gm.checkOpen()

	if err == nil {
		err = bi.gm.gs.Update(func(w graphstorage.Writer) error {
			for _, item := range batch {
				if err := applyBulkItem(w, item, bi.gm); err != nil {
					return err
				}
			}
			return nil
		})
	}

	if err != nil {
		logger.Error("Bulk insert batch ", bi.countBatches, " failed: ", err)

		bi.errors.Add(err)

		if bi.firstErr == nil {
			bi.firstErr = err
		}

		return err
	}

	logger.Debug("Bulk insert batch ", bi.countBatches, " written (",
		len(batch), " items)")

	return nil
}

/*
CheckBulkItem validates a bulk item and normalizes its property value. The
normalized item is returned.
*/
func CheckBulkItem(item data.BulkInsertItem) (data.BulkInsertItem, error) {
	var err error

	switch it := item.(type) {

	case data.BulkVertex:
		if it.Vertex.T.IsZero() {
			return nil, util.NewValidationError(util.ErrInvalidType, "Bulk vertex without type")
		}

	case data.BulkEdge:
		if it.Key.T.IsZero() {
			return nil, util.NewValidationError(util.ErrInvalidType, "Bulk edge without type")
		}

	case data.BulkVertexProperty:
		if err = data.CheckPropertyName(it.Name); err == nil {
			it.Value, err = data.NormalizeJSON(it.Value)
		}
		item = it

	case data.BulkEdgeProperty:
		if err = data.CheckPropertyName(it.Name); err == nil {
			it.Value, err = data.NormalizeJSON(it.Value)
		}
		item = it

	default:
		err = util.NewValidationError(util.ErrInvalidData, fmt.Sprintf("Unknown bulk item: %T", item))
	}

	return item, err
}

/*
applyBulkItem writes a single bulk item. Vertices with a taken id are
skipped as well as edges and properties whose owner does not exist.
*/
func applyBulkItem(w graphstorage.Writer, item data.BulkInsertItem, gm *Manager) error {
	var err error

	switch it := item.(type) {

	case data.BulkVertex:
		_, err = createVertex(w, it.Vertex)

	case data.BulkEdge:
		_, err = createEdge(w, it.Key, gm.clock())

	case data.BulkVertexProperty:
		var exists bool

		if _, exists, err = w.Vertex(it.ID); exists {
			err = w.PutVertexProperty(it.ID, it.Name, it.Value)
		}

	case data.BulkEdgeProperty:
		var exists bool

		if _, exists, err = w.Edge(it.Key); exists {
			err = w.PutEdgeProperty(it.Key, it.Name, it.Value)
		}
	}

	return err
}
