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
Package config contains the configuration of an ArcDB server.
*/
package config

import (
	"fmt"
	"strconv"

	"devt.de/krotik/common/errorutil"
	"devt.de/krotik/common/fileutil"
)

// Global variables
// ================

/*
ProductVersion is the current version of ArcDB
*/
const ProductVersion = "1.0.0"

/*
DefaultConfigFile is the default config file which will be used to configure ArcDB
*/
var DefaultConfigFile = "arcdb.config.json"

/*
Known configuration options for ArcDB
*/
const (
	StorageBackend      = "StorageBackend"
	LocationDatastore   = "LocationDatastore"
	EnableReadOnly      = "EnableReadOnly"
	RPCHost             = "RPCHost"
	RPCPort             = "RPCPort"
	LockFile            = "LockFile"
	LogLevel            = "LogLevel"
	BulkInsertBatchSize = "BulkInsertBatchSize"
)

/*
Known storage backends
*/
const (
	BackendMemory = "memory"
	BackendBolt   = "bolt"
	BackendBadger = "badger"
)

/*
DefaultConfig is the defaut configuration
*/
var DefaultConfig = map[string]interface{}{
	StorageBackend:      BackendBolt,
	LocationDatastore:   "db",
	EnableReadOnly:      false,
	RPCHost:             "localhost",
	RPCPort:             "9090",
	LockFile:            "arcdb.lck",
	LogLevel:            "Info",
	BulkInsertBatchSize: 1000,
}

/*
Config is the actual config which is used
*/
var Config map[string]interface{}

/*
LoadConfigFile loads a given config file. If the config file does not exist it is
created with the default options.
*/
func LoadConfigFile(configfile string) error {
	var err error

	Config, err = fileutil.LoadConfig(configfile, DefaultConfig)

	return err
}

/*
LoadDefaultConfig loads the default configuration.
*/
func LoadDefaultConfig() {
	data := make(map[string]interface{})
	for k, v := range DefaultConfig {
		data[k] = v
	}

	Config = data
}

// Helper functions
// ================

/*
Str reads a config value as a string value.
*/
func Str(key string) string {
	return fmt.Sprint(Config[key])
}

/*
Int reads a config value as an int value.
*/
func Int(key string) int64 {
	ret, err := strconv.ParseInt(fmt.Sprint(Config[key]), 10, 64)

	errorutil.AssertTrue(err == nil,
		fmt.Sprintf("Could not parse config key %v: %v", key, err))

	return ret
}

/*
Bool reads a config value as a boolean value.
*/
func Bool(key string) bool {
	ret, err := strconv.ParseBool(fmt.Sprint(Config[key]))

	errorutil.AssertTrue(err == nil,
		fmt.Sprintf("Could not parse config key %v: %v", key, err))

	return ret
}

/*
CheckBackend checks that the configured storage backend is known.
*/
func CheckBackend() error {
	switch b := Str(StorageBackend); b {
	case BackendMemory, BackendBolt, BackendBadger:
		return nil
	default:
		return fmt.Errorf("Unknown storage backend: %v", b)
	}
}
