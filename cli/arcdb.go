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
ArcDB is a property graph database with interchangeable storage backends.

Features:

- Vertices and edges carry a type and arbitrary JSON properties.

- Graphs are queried with composable vertex and edge queries which can pipe
from vertices to their edges and back.

- Data is stored in memory, in a bolt database file or in a badger database.

- The database can be embedded or used as a standalone server which is
accessed through a websocket RPC interface.

- Whole graphs can be exported to and imported from JSON lines files.
*/
package main

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"devt.de/krotik/common/timeutil"
	"github.com/spf13/cobra"

	"devt.de/krotik/arcdb/config"
	"devt.de/krotik/arcdb/graph"
	"devt.de/krotik/arcdb/server"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

/*
newRootCommand creates the command tree of the ArcDB tool.
*/
func newRootCommand() *cobra.Command {
	var configFile string

	root := &cobra.Command{
		Use:          "arcdb",
		Short:        "ArcDB property graph database",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return config.LoadConfigFile(configFile)
		},
	}

	root.PersistentFlags().StringVar(&configFile, "config", config.DefaultConfigFile,
		"Configuration file (created with default values if it does not exist)")

	root.AddCommand(&cobra.Command{
		Use:   "server",
		Short: "Start ArcDB server",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			server.StartServer()
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "import <file>",
		Short: "Import a JSON lines file into the datastore",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd.ErrOrStderr(), args[0])
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "export <file>",
		Short: "Export the datastore to a JSON lines file (use - for stdout)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(cmd.OutOrStdout(), cmd.ErrOrStderr(), args[0])
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show the version of ArcDB",
		Args:  cobra.NoArgs,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return nil
		},
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "ArcDB", config.ProductVersion)
		},
	})

	return root
}

/*
runImport imports a JSON lines file.
*/
func runImport(status io.Writer, filename string) error {
	var err error

	in, err := os.Open(filename)
	if err != nil {
		return err
	}
	defer in.Close()

	fmt.Fprintln(status, "Importing from:", filename)

	server.StartServerWithSingleOp(func(ds graph.Datastore) bool {
		err = graph.ImportJSONLines(in, ds)
		return true
	})

	if err == nil {
		fmt.Fprintln(status, "Import finished at", timeutil.MakeTimestamp())
	}

	return err
}

/*
runExport exports the datastore to a JSON lines file.
*/
func runExport(stdout io.Writer, status io.Writer, filename string) error {
	var err error

	out := stdout

	if filename != "-" {
		var file *os.File

		if file, err = os.Create(filename); err != nil {
			return err
		}
		defer file.Close()

		out = file
	}

	lc := &lineCounter{w: out}

	server.StartServerWithSingleOp(func(ds graph.Datastore) bool {
		err = graph.ExportJSONLines(lc, ds)
		return true
	})

	if err == nil {
		fmt.Fprintln(status, "Exported", lc.lines, "items at", timeutil.MakeTimestamp())
	}

	return err
}

/*
lineCounter counts the lines which are written to a writer.
*/
type lineCounter struct {
	w     io.Writer
	lines int
}

func (lc *lineCounter) Write(p []byte) (int, error) {
	lc.lines += bytes.Count(p, []byte("\n"))
	return lc.w.Write(p)
}
