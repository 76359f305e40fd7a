/*
 * MajorTom
 *
 * Copyright 2016 Matthias Ladkau. All rights reserved.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

/*
Package config contains the global configuration of the topic map store.
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
ProductVersion is the current version of the store
*/
const ProductVersion = "1.0.0"

/*
DefaultConfigFile is the default config file which will be used to configure the store
*/
var DefaultConfigFile = "majortom.config.json"

/*
Known configuration options
*/
const (
	EnableRevisionManagement      = "EnableRevisionManagement"
	EnableTypeInstanceAssociation = "EnableTypeInstanceAssociation"
	CommitWorkerCount             = "CommitWorkerCount"
	LabelCacheMaxSize             = "LabelCacheMaxSize"
	IndexCacheMaxSize             = "IndexCacheMaxSize"
	LogLevel                      = "LogLevel"
	BaseLocator                   = "BaseLocator"
)

/*
DefaultConfig is the defaut configuration
*/
var DefaultConfig = map[string]interface{}{
	EnableRevisionManagement:      true,
	EnableTypeInstanceAssociation: false,
	CommitWorkerCount:             1,
	LabelCacheMaxSize:             0,
	IndexCacheMaxSize:             0,
	LogLevel:                      "info",
	BaseLocator:                   "http://majortom.local/tm/",
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
