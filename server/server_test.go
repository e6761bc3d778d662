/*
 * ArcDB
 *
 * Copyright 2016 Matthias Ladkau. All rights reserved.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package server

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"testing"
	"time"

	"devt.de/krotik/common/fileutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"devt.de/krotik/arcdb/config"
	"devt.de/krotik/arcdb/graph"
	"devt.de/krotik/arcdb/graph/data"
	"devt.de/krotik/arcdb/graph/graphtest"
	"devt.de/krotik/arcdb/rpc"
)

const testdb = "testdb"

const testport = "9491"

var printLog = []string{}
var errorLog = []string{}

func TestMain(m *testing.M) {
	flag.Parse()

	basepath = testdb + "/"
	logOutput = io.Discard

	// Log all print and error messages

	print = func(v ...interface{}) {
		printLog = append(printLog, fmt.Sprint(v...))
	}
	fatal = func(v ...interface{}) {
		errorLog = append(errorLog, fmt.Sprint(v...))
	}

	defer func() {
		fatal = log.Fatal
		basepath = ""
	}()

	if res, _ := fileutil.PathExists(testdb); res {
		if err := os.RemoveAll(testdb); err != nil {
			fmt.Print("Could not remove test directory:", err.Error())
		}
	}

	ensurePath(testdb)

	// Run the tests

	res := m.Run()

	if res, _ := fileutil.PathExists(testdb); res {
		if err := os.RemoveAll(testdb); err != nil {
			fmt.Print("Could not remove test directory:", err.Error())
		}
	}

	os.Exit(res)
}

/*
resetServerState resets logs and configuration before a test and cleans up
the test directory after the test.
*/
func resetServerState(t *testing.T) {
	printLog = []string{}
	errorLog = []string{}

	config.LoadDefaultConfig()
	config.Config[config.RPCPort] = testport

	t.Cleanup(func() {
		http.DefaultServeMux = http.NewServeMux()

		os.RemoveAll(testdb)
		ensurePath(testdb)
	})
}

func TestMainNormalCase(t *testing.T) {
	resetServerState(t)

	done := make(chan bool)

	go func() {
		StartServer()
		done <- true
	}()

	// Wait until the server accepts connections

	var c *rpc.Client
	var err error

	for i := 0; i < 50; i++ {
		if c, err = rpc.Dial(context.Background(),
			fmt.Sprintf("ws://localhost:%v%v", testport, rpc.EndpointRPC)); err == nil {
			break
		}
		time.Sleep(100 * time.Millisecond)
	}

	require.NoError(t, err)

	require.NoError(t, c.Ping())

	created, err := c.CreateVertex(data.NewVertex(graphtest.TestID(1), data.MustType("user")))
	require.NoError(t, err)
	assert.True(t, created)

	count, err := c.GetVertexCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), count)

	require.NoError(t, c.Close())

	// To exit the main function the lock watcher thread
	// has to recognise that the lockfile was modified

	stopped := false

	for !stopped {
		shutdownWithLogFile(basepath + config.Str(config.LockFile))

		select {
		case <-done:
			stopped = true
		case <-time.After(200 * time.Millisecond):
		}
	}

	assert.Empty(t, errorLog)

	logString := strings.Join(printLog, "\n")

	assert.Equal(t, `
ArcDB 1.0.0
Starting bolt datastore in testdb/db
Creating GraphManager instance
Starting server on: localhost:9491
Waiting for shutdown
Lockfile was modified
Shutting down
Closing datastore`[1:], logString)
}

func TestSingleOperation(t *testing.T) {
	resetServerState(t)

	user := data.MustType("user")

	StartServerWithSingleOp(func(ds graph.Datastore) bool {
		trans, err := ds.Transaction()
		require.NoError(t, err)

		_, err = trans.CreateVertex(data.NewVertex(graphtest.TestID(1), user))
		require.NoError(t, err)

		return true
	})

	require.Empty(t, errorLog)

	// Reopen the datastore readonly and check that the vertex is still there

	config.Config[config.EnableReadOnly] = true

	StartServerWithSingleOp(func(ds graph.Datastore) bool {
		trans, err := ds.Transaction()
		require.NoError(t, err)

		count, err := trans.GetVertexCount()
		require.NoError(t, err)
		assert.Equal(t, uint64(1), count)

		_, err = trans.CreateVertex(data.NewVertex(graphtest.TestID(2), user))
		assert.Error(t, err)

		return true
	})

	assert.Empty(t, errorLog)
	assert.Contains(t, printLog, "Starting bolt datastore (readonly) in testdb/db")
}

func TestMainErrorCases(t *testing.T) {
	resetServerState(t)

	// Unknown storage backend

	config.Config[config.StorageBackend] = "foo"

	StartServer()

	assert.Equal(t, []string{"Unknown storage backend: foo"}, errorLog)

	// Readonly datastore which does not exist

	errorLog = []string{}

	config.Config[config.StorageBackend] = config.BackendBadger
	config.Config[config.EnableReadOnly] = true

	StartServer()

	require.Len(t, errorLog, 1)
	assert.Contains(t, errorLog[0], "Failed to open graph storage")

	// Memory datastore ignores the readonly flag

	printLog = []string{}
	errorLog = []string{}

	config.Config[config.StorageBackend] = config.BackendMemory

	StartServerWithSingleOp(func(ds graph.Datastore) bool {
		return true
	})

	assert.Empty(t, errorLog)
	assert.Contains(t, printLog, "Ignoring EnableReadOnly setting")
}

/*
shutdownWithLogFile modifies the lockfile so a running server shuts down.
*/
func shutdownWithLogFile(filename string) error {

	file, err := os.OpenFile(filename, os.O_CREATE|os.O_TRUNC|os.O_RDWR, 0660)
	if err != nil {
		return err
	}
	defer file.Close()

	_, err = file.Write([]byte("a"))

	return err
}
