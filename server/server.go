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
Package server contains the code for the ArcDB server.
*/
package server

import (
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"devt.de/krotik/common/fileutil"
	"devt.de/krotik/common/httputil"
	"devt.de/krotik/common/lockutil"
	"devt.de/krotik/common/logutil"

	"devt.de/krotik/arcdb/config"
	"devt.de/krotik/arcdb/graph"
	"devt.de/krotik/arcdb/graph/graphstorage"
	"devt.de/krotik/arcdb/rpc"
)

/*
Using custom consolelogger type so we can test log.Fatal calls with unit tests. Overwrite
these if the server should not call os.Exit on a fatal error.
*/
type consolelogger func(v ...interface{})

var fatal = consolelogger(log.Fatal)
var print = consolelogger(log.Print)

/*
Base path for all file (used by unit tests)
*/
var basepath = ""

/*
logOutput is the output of all log sinks
*/
var logOutput io.Writer = os.Stderr

/*
StartServer runs the ArcDB server. The server uses config.Config for all its configuration
parameters.
*/
func StartServer() {
	StartServerWithSingleOp(nil)
}

/*
StartServerWithSingleOp runs the ArcDB server. If the singleOperation function is
not nil then the server executes the function and exists if the function returns true.
*/
func StartServerWithSingleOp(singleOperation func(graph.Datastore) bool) {
	var err error
	var gs graphstorage.Storage

	print(fmt.Sprintf("ArcDB %v", config.ProductVersion))

	// Ensure we have a configuration - use the default configuration if nothing was set

	if config.Config == nil {
		config.LoadDefaultConfig()
	}

	if err = config.CheckBackend(); err != nil {
		fatal(err)
		return
	}

	// Setup logging

	logutil.ClearLogSinks()
	logutil.GetLogger("").AddLogSink(logutil.StringToLoglevel(config.Str(config.LogLevel)),
		logutil.SimpleFormatter(), logOutput)

	// Create graph storage

	backend := config.Str(config.StorageBackend)

	if backend == config.BackendMemory {

		print("Starting memory only datastore")

		gs = graphstorage.NewMemoryGraphStorage(config.BackendMemory)

		if config.Bool(config.EnableReadOnly) {
			print("Ignoring EnableReadOnly setting")
		}

	} else {

		loc := filepath.Join(basepath, config.Str(config.LocationDatastore))
		readonly := config.Bool(config.EnableReadOnly)

		if readonly {
			print("Starting ", backend, " datastore (readonly) in ", loc)
		} else {
			print("Starting ", backend, " datastore in ", loc)

			// Ensure path for database exists

			ensurePath(loc)
		}

		if backend == config.BackendBadger {
			gs, err = graphstorage.NewBadgerGraphStorage(loc, readonly)
		} else {
			gs, err = graphstorage.NewBoltGraphStorage(loc, readonly)
		}

		if err != nil {
			fatal(err)
			return
		}
	}

	// Create GraphManager

	print("Creating GraphManager instance")

	gm := graph.NewGraphManager(gs,
		graph.WithBulkBatchSize(int(config.Int(config.BulkInsertBatchSize))))

	defer func() {

		print("Closing datastore")

		if err := gm.Close(); err != nil {
			fatal(err)
			return
		}

		os.RemoveAll(filepath.Join(basepath, config.Str(config.LockFile)))
	}()

	// Handle single operation - these are operations which work on the datastore
	// and then exit.

	if singleOperation != nil && singleOperation(gm) {
		return
	}

	// Register RPC endpoint

	handler := rpc.NewHandler(gm)

	http.Handle(rpc.EndpointRPC, handler)

	// Start HTTP server

	hs := &httputil.HTTPServer{}

	var wg sync.WaitGroup
	wg.Add(1)

	addr := config.Str(config.RPCHost) + ":" + config.Str(config.RPCPort)

	print("Starting server on: ", addr)

	go hs.RunHTTPServer(addr, &wg)

	// Wait until the server has started

	wg.Wait()

	if hs.LastError != nil {
		fatal(hs.LastError)
		return
	}

	// Create a lockfile so the server can be shut down

	lf := lockutil.NewLockFile(filepath.Join(basepath, config.Str(config.LockFile)), time.Duration(2)*time.Second)

	lf.Start()

	go func() {

		// Check if the lockfile watcher is running and
		// call shutdown once it has finished

		for lf.WatcherRunning() {
			time.Sleep(time.Duration(1) * time.Second)
		}

		print("Lockfile was modified")

		handler.Shutdown()
		hs.Shutdown()
	}()

	// Add to the wait group so we can wait for the shutdown

	wg.Add(1)

	print("Waiting for shutdown")
	wg.Wait()

	print("Shutting down")
}

/*
ensurePath ensures that a given relative path exists.
*/
func ensurePath(path string) {
	if res, _ := fileutil.PathExists(path); !res {
		if err := os.MkdirAll(path, 0770); err != nil {
			fatal("Could not create directory:", err.Error())
			return
		}
	}
}
