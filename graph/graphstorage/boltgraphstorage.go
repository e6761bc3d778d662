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
	"path/filepath"
	"time"

	"devt.de/krotik/common/fileutil"
	"github.com/boltdb/bolt"

	"devt.de/krotik/arcdb/graph/util"
)

/*
FilenameBoltDB is the filename of the bolt database file
*/
var FilenameBoltDB = "graph.bolt"

/*
BoltBucket is the name of the bucket which holds all graph data
*/
var BoltBucket = []byte("arcdb")

/*
BoltOpenTimeout is the time to wait for the file lock of a bolt database
*/
var BoltOpenTimeout = time.Second

/*
BoltGraphStorage data structure
*/
type BoltGraphStorage struct {
	name     string   // Name of the graph storage
	readonly bool     // Flag for readonly mode
	db       *bolt.DB // Bolt database
}

/*
NewBoltGraphStorage creates a new BoltGraphStorage instance. The name is the
directory which holds the database file.
*/
func NewBoltGraphStorage(name string, readonly bool) (Storage, error) {

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

	db, err := bolt.Open(filepath.Join(name, FilenameBoltDB), 0600, &bolt.Options{
		Timeout:  BoltOpenTimeout,
		ReadOnly: readonly,
	})
	if err != nil {
		return nil, &util.GraphError{Type: util.ErrOpening, Detail: err.Error()}
	}

	if !readonly {
		err = db.Update(func(tx *bolt.Tx) error {
			_, err := tx.CreateBucketIfNotExists(BoltBucket)
			return err
		})

		if err != nil {
			db.Close()
			return nil, &util.GraphError{Type: util.ErrOpening, Detail: err.Error()}
		}
	}

	return &BoltGraphStorage{name, readonly, db}, nil
}

/*
Name returns the name of the BoltGraphStorage instance.
*/
func (bgs *BoltGraphStorage) Name() string {
	return bgs.name
}

/*
View runs a read-only function.
*/
func (bgs *BoltGraphStorage) View(fn func(r Reader) error) error {
	var fnErr error

	err := bgs.db.View(func(tx *bolt.Tx) error {
		fnErr = fn(&kvGraphAccess{&boltTxn{tx.Bucket(BoltBucket)}})
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
func (bgs *BoltGraphStorage) Update(fn func(w Writer) error) error {
	var fnErr error

	if bgs.readonly {
		return &util.GraphError{Type: util.ErrReadOnly, Detail: bgs.name}
	}

	err := bgs.db.Update(func(tx *bolt.Tx) error {
		fnErr = fn(&kvGraphAccess{&boltTxn{tx.Bucket(BoltBucket)}})
		return fnErr
	})

	if fnErr != nil {
		return fnErr
	} else if errors.Is(err, bolt.ErrDatabaseReadOnly) {
		return &util.GraphError{Type: util.ErrReadOnly, Detail: err.Error()}
	}

	return util.NewBackendError(util.ErrWriting, err)
}

/*
Sync writes all pending changes to the storage.
*/
func (bgs *BoltGraphStorage) Sync() error {
	if bgs.readonly {
		return nil
	}
	return util.NewBackendError(util.ErrFlushing, bgs.db.Sync())
}

/*
Close closes the storage.
*/
func (bgs *BoltGraphStorage) Close() error {
	return util.NewBackendError(util.ErrClosing, bgs.db.Close())
}

/*
boltTxn implements kvTxn on a bolt bucket. A nil bucket is an empty
readonly database.
*/
type boltTxn struct {
	bucket *bolt.Bucket
}

func (t *boltTxn) get(key []byte) ([]byte, error) {
	if t.bucket == nil {
		return nil, nil
	}
	return cloneBytes(t.bucket.Get(key)), nil
}

func (t *boltTxn) put(key []byte, value []byte) error {
	return util.NewBackendError(util.ErrWriting, t.bucket.Put(key, value))
}

func (t *boltTxn) delete(key []byte) error {
	return util.NewBackendError(util.ErrWriting, t.bucket.Delete(key))
}

func (t *boltTxn) scan(prefix []byte, start []byte, fn func(key []byte, value []byte) (bool, error)) error {
	if t.bucket == nil {
		return nil
	}

	c := t.bucket.Cursor()

	for k, v := c.Seek(start); k != nil && hasPrefix(k, prefix); k, v = c.Next() {
		if cont, err := fn(cloneBytes(k), cloneBytes(v)); err != nil || !cont {
			return err
		}
	}

	return nil
}

/*
cloneBytes copies memory owned by the key-value store.
*/
func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	res := make([]byte, len(b))
	copy(res, b)
	return res
}
