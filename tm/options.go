/*
 * MajorTom
 *
 * Copyright 2016 Matthias Ladkau. All rights reserved.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package tm

import (
	"strings"

	ecalutil "devt.de/krotik/ecal/util"
	"github.com/geovaly/majortom-sub000/config"
)

/*
Options are the settings of a store.
*/
type Options struct {
	RevisionManagement bool            // Flag if mutations are recorded in the journal
	TypeInstance       bool            // Flag if topic types are also modeled as type-instance associations
	CommitWorkerCount  int             // Number of workers which apply submitted operations
	LabelCacheMaxSize  uint64          // Maximum number of cached labels (0 = unbounded)
	IndexCacheMaxSize  uint64          // Maximum number of cached index results (0 = unbounded)
	Logger             ecalutil.Logger // Logger of the store
	BaseLocator        string          // Base locator of the topic map
}

/*
DefaultOptions returns the default options.
*/
func DefaultOptions() *Options {
	return &Options{
		RevisionManagement: true,
		CommitWorkerCount:  1,
		Logger:             ecalutil.NewNullLogger(),
		BaseLocator:        config.DefaultConfig[config.BaseLocator].(string),
	}
}

/*
OptionsFromConfig creates store options from the global configuration.
*/
func OptionsFromConfig() (*Options, error) {
	if config.Config == nil {
		config.LoadDefaultConfig()
	}

	logger, err := ecalutil.NewLogLevelLogger(ecalutil.NewStdOutLogger(),
		strings.ToLower(config.Str(config.LogLevel)))

	if err != nil {
		return nil, err
	}

	return &Options{
		RevisionManagement: config.Bool(config.EnableRevisionManagement),
		TypeInstance:       config.Bool(config.EnableTypeInstanceAssociation),
		CommitWorkerCount:  int(config.Int(config.CommitWorkerCount)),
		LabelCacheMaxSize:  uint64(config.Int(config.LabelCacheMaxSize)),
		IndexCacheMaxSize:  uint64(config.Int(config.IndexCacheMaxSize)),
		Logger:             logger,
		BaseLocator:        config.Str(config.BaseLocator),
	}, nil
}
