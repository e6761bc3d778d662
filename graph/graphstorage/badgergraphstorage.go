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
	"errors"
	"os"
	"sync"

	"devt.de/krotik/common/fileutil"
	"github.com/dgraph-io/badger"

	"devt.de/krotik/arcdb/graph/util"
)

/*
BadgerGraphStorage data structure
*/
type BadgerGraphStorage struct {
	name     string      // Name of the graph storage
	readonly bool        // Flag for readonly mode
	db       *badger.DB  // Badger database
	wlock    *sync.Mutex // Lock which serializes write transactions
}

/*
NewBadgerGraphStorage creates a new BadgerGraphStorage instance. The name is
the directory which holds the database files.
*/
func NewBadgerGraphStorage(name string, readonly bool) (Storage, error) {

	// Create the storage directory if it does not exist yet

	if res, _ := fileutil.PathExists(name); !res {
		if readonly {
			return nil, &util.GraphError{Type: util.ErrOpening,
				Detail: "Cannot create readonly storage: " + name}
		}

		if err := os.MkdirAll(name, 0770); err != nil {
			return nil, &util.GraphError{Type: util.ErrOpening, Detail: err.Error()}
		}
	}

	opts := badger.DefaultOptions(name).WithLogger(nil).WithReadOnly(readonly)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, &util.GraphError{Type: util.ErrOpening, Detail: err.Error()}
	}

	return &BadgerGraphStorage{name, readonly, db, &sync.Mutex{}}, nil
}

/*
Name returns the name of the BadgerGraphStorage instance.
*/
func (bgs *BadgerGraphStorage) Name() string {
	return bgs.name
}

/*
View runs a read-only function.
*/
func (bgs *BadgerGraphStorage) View(fn func(r Reader) error) error {
	var fnErr error

	err := bgs.db.View(func(txn *badger.Txn) error {
		fnErr = fn(&kvGraphAccess{&badgerTxn{txn, false}})
		return fnErr
	})

	if fnErr != nil {
		return fnErr
	}

	return util.NewBackendError(util.ErrReading, err)
}

/*
Update runs a read-write function. All changes are discarded if the function
returns an error.
*/
func (bgs *BadgerGraphStorage) Update(fn func(w Writer) error) error {
	var fnErr error

	if bgs.readonly {
		return &util.GraphError{Type: util.ErrReadOnly, Detail: bgs.name}
	}

	bgs.wlock.Lock()
	defer bgs.wlock.Unlock()

	err := bgs.db.Update(func(txn *badger.Txn) error {
		fnErr = fn(&kvGraphAccess{&badgerTxn{txn, true}})
		return fnErr
	})

	if fnErr != nil {
		return fnErr
	}

	return util.NewBackendError(util.ErrWriting, err)
}

/*
Sync writes all pending changes to the storage. Badger syncs its value log
when a transaction is committed so there is nothing left to do.
*/
func (bgs *BadgerGraphStorage) Sync() error {
	return nil
}

/*
Close closes the storage.
*/
func (bgs *BadgerGraphStorage) Close() error {
	return util.NewBackendError(util.ErrClosing, bgs.db.Close())
}

/*
badgerTxn implements kvTxn on a badger transaction.
*/
type badgerTxn struct {
	txn    *badger.Txn
	update bool
}

func (t *badgerTxn) get(key []byte) ([]byte, error) {
	item, err := t.txn.Get(key)

	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	} else if err != nil {
		return nil, util.NewBackendError(util.ErrReading, err)
	}

	value, err := item.ValueCopy(nil)

	return value, util.NewBackendError(util.ErrReading, err)
}

func (t *badgerTxn) put(key []byte, value []byte) error {
	return t.writeError(t.txn.Set(key, cloneBytes(value)))
}

func (t *badgerTxn) delete(key []byte) error {
	return t.writeError(t.txn.Delete(key))
}

func (t *badgerTxn) writeError(err error) error {
	if errors.Is(err, badger.ErrTxnTooBig) {
		return &util.GraphError{Type: util.ErrWriting, Detail: "Transaction too big: " + err.Error()}
	}
	return util.NewBackendError(util.ErrWriting, err)
}

func (t *badgerTxn) scan(prefix []byte, start []byte, fn func(key []byte, value []byte) (bool, error)) error {
	var keys, values [][]byte

	it := t.txn.NewIterator(badger.DefaultIteratorOptions)

	for it.Seek(start); it.ValidForPrefix(prefix); it.Next() {
		item := it.Item()

		value, err := item.ValueCopy(nil)
		if err != nil {
			it.Close()
			return util.NewBackendError(util.ErrReading, err)
		}

		if !t.update {

			// Readonly transactions can have nested iterators

			if cont, err := fn(item.KeyCopy(nil), value); err != nil || !cont {
				it.Close()
				return err
			}

			continue
		}

		keys = append(keys, item.KeyCopy(nil))
		values = append(values, value)
	}

	it.Close()

	// Read-write transactions allow only one open iterator

	for i, key := range keys {
		if cont, err := fn(key, values[i]); err != nil || !cont {
			return err
		}
	}

	return nil
}
