// Copyright 2024 The go-ethereum Authors
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

package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"

	"github.com/BurntSushi/toml"
	"github.com/nodeforge/chaincore/core"
	"github.com/nodeforge/chaincore/core/rawdb"
	"github.com/urfave/cli/v2"
)

var (
	dumpConfigCommand = &cli.Command{
		Action:      dumpConfig,
		Name:        "dumpconfig",
		Usage:       "Export configuration values in a TOML format",
		ArgsUsage:   "<dumpfile (optional)>",
		Description: `Export configuration values in TOML format (to stdout by default).`,
	}
)

type logConfig struct {
	Verbosity  int    // 0=silent, 1=error, 2=warn, 3=info, 4=debug, 5=detail
	JSON       bool   // JSON records instead of terminal or logfmt output
	File       string // log file, rotated when it reaches MaxSize
	MaxSize    int    // megabytes
	MaxBackups int
	MaxAge     int // days
	Compress   bool
}

type chaincoreConfig struct {
	DataDir         string
	DBEngine        string // "pebble" or "leveldb"
	DatabaseCache   int    // megabytes
	DatabaseHandles int
	Cache           core.CacheConfig
	Log             logConfig
}

var defaultConfig = chaincoreConfig{
	DataDir:         defaultDataDir(),
	DBEngine:        rawdb.DBPebble,
	DatabaseCache:   512,
	DatabaseHandles: 256,
	Cache:           *core.DefaultCacheConfig,
	Log: logConfig{
		Verbosity:  3,
		MaxSize:    100,
		MaxBackups: 10,
		MaxAge:     30,
	},
}

func defaultDataDir() string {
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".chaincore")
	}
	return ".chaincore"
}

func loadConfig(file string, cfg *chaincoreConfig) error {
	f, err := os.Open(file)
	if err != nil {
		return err
	}
	defer f.Close()

	md, err := toml.NewDecoder(bufio.NewReader(f)).Decode(cfg)
	if err != nil {
		var perr toml.ParseError
		if errors.As(err, &perr) {
			return fmt.Errorf("%s, %s", file, perr.ErrorWithPosition())
		}
		return fmt.Errorf("%s, %w", file, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return fmt.Errorf("%s, field '%s' is not defined in %s", file, undecoded[0], reflect.TypeOf(*cfg).Name())
	}
	return nil
}

// makeConfig loads the configuration file if one was given, then applies the
// command line flags on top.
func makeConfig(ctx *cli.Context) (chaincoreConfig, error) {
	cfg := defaultConfig
	if file := ctx.String(configFileFlag.Name); file != "" {
		if err := loadConfig(file, &cfg); err != nil {
			return cfg, err
		}
	}
	if ctx.IsSet(dataDirFlag.Name) {
		cfg.DataDir = ctx.String(dataDirFlag.Name)
	}
	if ctx.IsSet(dbEngineFlag.Name) {
		cfg.DBEngine = ctx.String(dbEngineFlag.Name)
	}
	if ctx.IsSet(cacheFlag.Name) {
		cfg.DatabaseCache = ctx.Int(cacheFlag.Name)
	}
	if ctx.IsSet(precompileCacheFlag.Name) {
		cfg.Cache.PrecompileCacheSize = ctx.Int(precompileCacheFlag.Name)
	}
	if ctx.IsSet(verbosityFlag.Name) {
		cfg.Log.Verbosity = ctx.Int(verbosityFlag.Name)
	}
	if ctx.IsSet(logFileFlag.Name) {
		cfg.Log.File = ctx.String(logFileFlag.Name)
	}
	if ctx.IsSet(logJSONFlag.Name) {
		cfg.Log.JSON = ctx.Bool(logJSONFlag.Name)
	}
	switch cfg.DBEngine {
	case rawdb.DBPebble, rawdb.DBLeveldb:
	default:
		return cfg, fmt.Errorf("invalid db.engine %q, want %q or %q", cfg.DBEngine, rawdb.DBPebble, rawdb.DBLeveldb)
	}
	return cfg, nil
}

// dumpConfig is the dumpconfig command.
func dumpConfig(ctx *cli.Context) error {
	cfg, err := makeConfig(ctx)
	if err != nil {
		return err
	}
	dump := os.Stdout
	if ctx.NArg() > 0 {
		dump, err = os.OpenFile(ctx.Args().Get(0), os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
		if err != nil {
			return err
		}
		defer dump.Close()
	}
	return toml.NewEncoder(dump).Encode(cfg)
}
