/*
 * ArcDB
 *
 * Copyright 2016 Matthias Ladkau. All rights reserved.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"devt.de/krotik/arcdb/graph"
	"devt.de/krotik/arcdb/graph/data"
	"devt.de/krotik/arcdb/graph/graphstorage"
	"devt.de/krotik/arcdb/graph/graphtest"
	"devt.de/krotik/arcdb/graph/query"
)

func runCommand(t *testing.T, args ...string) (string, string, error) {
	var stdout, stderr bytes.Buffer

	cmd := newRootCommand()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)

	err := cmd.Execute()

	return stdout.String(), stderr.String(), err
}

func TestVersion(t *testing.T) {
	out, _, err := runCommand(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "ArcDB 1.0.0\n", out)
}

func TestImportExport(t *testing.T) {
	dir := t.TempDir()

	conf := filepath.Join(dir, "arcdb.config.json")

	require.NoError(t, os.WriteFile(conf, []byte(fmt.Sprintf(`{
    "StorageBackend": "bolt",
    "LocationDatastore": %q,
    "LockFile": %q
}`, filepath.Join(dir, "db"), filepath.Join(dir, "arcdb.lck"))), 0644))

	// Build a small graph in memory and dump it

	gm := graph.NewGraphManager(graphstorage.NewMemoryGraphStorage("source"),
		graphtest.DeterministicOptions()...)
	defer gm.Close()

	trans, err := gm.Transaction()
	require.NoError(t, err)

	user, follows := data.MustType("user"), data.MustType("follows")

	for i := byte(1); i <= 3; i++ {
		_, err = trans.CreateVertex(data.NewVertex(graphtest.TestID(i), user))
		require.NoError(t, err)
	}

	require.NoError(t, trans.SetVertexProperties(query.Specific(graphtest.TestID(1)).Property("name"),
		[]byte(`"alice"`)))

	key := data.NewEdgeKey(graphtest.TestID(1), follows, graphtest.TestID(2))
	_, err = trans.CreateEdge(key)
	require.NoError(t, err)

	require.NoError(t, trans.SetEdgeProperties(query.SpecificEdges(key).Property("since"),
		[]byte(`2016`)))

	var expected bytes.Buffer
	require.NoError(t, graph.ExportJSONLines(&expected, gm))

	importFile := filepath.Join(dir, "import.jsonl")
	require.NoError(t, os.WriteFile(importFile, expected.Bytes(), 0644))

	// Import into the configured datastore and export it again

	_, status, err := runCommand(t, "--config", conf, "import", importFile)
	require.NoError(t, err)
	assert.Contains(t, status, "Import finished at")

	exportFile := filepath.Join(dir, "export.jsonl")

	_, status, err = runCommand(t, "--config", conf, "export", exportFile)
	require.NoError(t, err)
	assert.Contains(t, status, "Exported 6 items at")

	exported, err := os.ReadFile(exportFile)
	require.NoError(t, err)
	assert.Equal(t, expected.String(), string(exported))

	out, _, err := runCommand(t, "--config", conf, "export", "-")
	require.NoError(t, err)
	assert.Equal(t, expected.String(), out)

	// Invalid input is reported

	require.NoError(t, os.WriteFile(importFile, []byte("{\"type\":\"foo\"}\n"), 0644))

	_, _, err = runCommand(t, "--config", conf, "import", importFile)
	assert.True(t, strings.Contains(fmt.Sprint(err), "Line 1"), err)

	_, _, err = runCommand(t, "--config", conf, "import", filepath.Join(dir, "missing"))
	assert.Error(t, err)
}
