// Copyright 2025 The go-ethereum Authors
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
	"os"
	"path/filepath"
	"testing"

	"github.com/nodeforge/chaincore/core/rawdb"
	"github.com/stretchr/testify/require"
)

const testConfig = `DataDir = "/var/lib/chaincore"
DBEngine = "leveldb"
DatabaseCache = 128

[Cache]
TrieCleanLimit = 32
PrecompileCacheSize = 4

[Log]
Verbosity = 2
MaxBackups = 3
`

func TestLoadConfig(t *testing.T) {
	file := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(file, []byte(testConfig), 0644))

	cfg := defaultConfig
	require.NoError(t, loadConfig(file, &cfg))
	require.Equal(t, "/var/lib/chaincore", cfg.DataDir)
	require.Equal(t, rawdb.DBLeveldb, cfg.DBEngine)
	require.Equal(t, 128, cfg.DatabaseCache)
	require.Equal(t, defaultConfig.DatabaseHandles, cfg.DatabaseHandles)
	require.Equal(t, 32, cfg.Cache.TrieCleanLimit)
	require.Equal(t, 4, cfg.Cache.PrecompileCacheSize)
	require.Equal(t, 2, cfg.Log.Verbosity)
	require.Equal(t, 3, cfg.Log.MaxBackups)
	require.Equal(t, defaultConfig.Log.MaxSize, cfg.Log.MaxSize)
}

func TestLoadConfigErrors(t *testing.T) {
	dir := t.TempDir()
	tests := map[string]string{
		"unknown field": "DataDir = \"x\"\nSyncMode = \"fast\"\n",
		"syntax":        "DataDir = \n",
		"type":          "DatabaseCache = \"lots\"\n",
	}
	for name, content := range tests {
		file := filepath.Join(dir, name+".toml")
		require.NoError(t, os.WriteFile(file, []byte(content), 0644))

		cfg := defaultConfig
		require.Error(t, loadConfig(file, &cfg), name)
	}
	cfg := defaultConfig
	require.Error(t, loadConfig(filepath.Join(dir, "missing.toml"), &cfg))
}

func TestFlagsOverrideConfig(t *testing.T) {
	var (
		dir  = t.TempDir()
		file = filepath.Join(dir, "config.toml")
		out  = filepath.Join(dir, "dump.toml")
	)
	require.NoError(t, os.WriteFile(file, []byte(testConfig), 0644))

	args := []string{clientIdentifier, "--config", file, "--cache.precompile", "8", "--datadir", dir, "dumpconfig", out}
	require.NoError(t, newApp().Run(args))

	cfg := defaultConfig
	require.NoError(t, loadConfig(out, &cfg))
	require.Equal(t, dir, cfg.DataDir)
	require.Equal(t, rawdb.DBLeveldb, cfg.DBEngine)
	require.Equal(t, 8, cfg.Cache.PrecompileCacheSize)
	require.Equal(t, 32, cfg.Cache.TrieCleanLimit)
	require.Equal(t, 2, cfg.Log.Verbosity)
}

func TestInvalidDBEngine(t *testing.T) {
	args := []string{clientIdentifier, "--db.engine", "rocksdb", "--verbosity", "0", "dumpconfig", filepath.Join(t.TempDir(), "out.toml")}
	require.ErrorContains(t, newApp().Run(args), "invalid db.engine")
}

func TestLogFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "logs", "chaincore.log")
	cfg := defaultConfig.Log
	cfg.File = file
	cfg.JSON = true
	require.NoError(t, setupLogging(cfg))
	defer setupLogging(logConfig{Verbosity: 0})
	defer closeLogging()

	require.NotNil(t, logOutput)
	_, err := os.Stat(filepath.Dir(file))
	require.NoError(t, err)
}
