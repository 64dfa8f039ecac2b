// Copyright 2014 The go-ethereum Authors
// This file is part of go-ethereum.
//
// go-ethereum is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// go-ethereum is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with go-ethereum. If not, see <http://www.gnu.org/licenses/>.

// chaincore imports, validates and stores blocks of an account-based chain.
package main

import (
	"fmt"
	"os"

	"github.com/nodeforge/chaincore/core"
	"github.com/nodeforge/chaincore/core/rawdb"
	"github.com/urfave/cli/v2"
)

const clientIdentifier = "chaincore"

var (
	configFileFlag = &cli.StringFlag{
		Name:  "config",
		Usage: "TOML configuration file",
	}
	dataDirFlag = &cli.StringFlag{
		Name:  "datadir",
		Usage: "Data directory for the chain database",
		Value: defaultConfig.DataDir,
	}
	dbEngineFlag = &cli.StringFlag{
		Name:  "db.engine",
		Usage: "Backing database implementation to use ('pebble' or 'leveldb')",
		Value: rawdb.DBPebble,
	}
	cacheFlag = &cli.IntFlag{
		Name:  "cache",
		Usage: "Megabytes of memory allocated to the database",
		Value: defaultConfig.DatabaseCache,
	}
	precompileCacheFlag = &cli.IntFlag{
		Name:  "cache.precompile",
		Usage: "Megabytes of memory allocated to memoized precompile results (0 disables the cache)",
		Value: core.DefaultCacheConfig.PrecompileCacheSize,
	}
	verbosityFlag = &cli.IntFlag{
		Name:  "verbosity",
		Usage: "Logging verbosity: 0=silent, 1=error, 2=warn, 3=info, 4=debug, 5=detail",
		Value: defaultConfig.Log.Verbosity,
	}
	logFileFlag = &cli.StringFlag{
		Name:  "log.file",
		Usage: "Write logs to a rotated file instead of the console",
	}
	logJSONFlag = &cli.BoolFlag{
		Name:  "log.json",
		Usage: "Format logs with JSON",
	}
	fakePoWFlag = &cli.BoolFlag{
		Name:  "fakepow",
		Usage: "Disables proof-of-work verification",
	}
	noIndexFlag = &cli.BoolFlag{
		Name:  "noindex",
		Usage: "Skip the transaction lookup index while importing",
	}
	noCodeFlag = &cli.BoolFlag{
		Name:  "nocode",
		Usage: "Exclude contract code (save db lookups)",
	}
	noStorageFlag = &cli.BoolFlag{
		Name:  "nostorage",
		Usage: "Exclude storage entries (save db lookups)",
	}
	dumpLimitFlag = &cli.Uint64Flag{
		Name:  "limit",
		Usage: "Max number of elements (0 = no limit)",
	}
)

func newApp() *cli.App {
	app := &cli.App{
		Name:  clientIdentifier,
		Usage: "block import and state transition core",
		Flags: []cli.Flag{
			configFileFlag,
			dataDirFlag,
			dbEngineFlag,
			cacheFlag,
			precompileCacheFlag,
			verbosityFlag,
			logFileFlag,
			logJSONFlag,
			fakePoWFlag,
		},
		Commands: []*cli.Command{
			initCommand,
			importCommand,
			exportCommand,
			headCommand,
			dumpCommand,
			inspectCommand,
			dumpConfigCommand,
		},
	}
	app.Before = func(ctx *cli.Context) error {
		cfg, err := makeConfig(ctx)
		if err != nil {
			return err
		}
		return setupLogging(cfg.Log)
	}
	app.After = func(ctx *cli.Context) error {
		closeLogging()
		return nil
	}
	return app
}

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
