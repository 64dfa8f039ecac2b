// Copyright 2018 The go-ethereum Authors
// This file is part of the go-ethereum library.
//
// The go-ethereum library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The go-ethereum library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the go-ethereum library. If not, see <http://www.gnu.org/licenses/>.

package rawdb

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"
	"github.com/nodeforge/chaincore/ethdb"
	"github.com/nodeforge/chaincore/ethdb/leveldb"
	"github.com/nodeforge/chaincore/ethdb/memorydb"
	"github.com/nodeforge/chaincore/ethdb/pebble"
)

const (
	DBPebble  = "pebble"
	DBLeveldb = "leveldb"
)

// nofreezedb is a database wrapper that exposes a plain key-value store as
// the chain database.
type nofreezedb struct {
	ethdb.KeyValueStore
}

// NewDatabase creates a high level database on top of a given key-value data
// store.
func NewDatabase(db ethdb.KeyValueStore) ethdb.Database {
	return &nofreezedb{KeyValueStore: db}
}

// NewMemoryDatabase creates an ephemeral in-memory key-value database.
func NewMemoryDatabase() ethdb.Database {
	return NewDatabase(memorydb.New())
}

// NewLevelDBDatabase creates a persistent key-value database backed by
// LevelDB.
func NewLevelDBDatabase(file string, cache int, handles int, namespace string, readonly bool) (ethdb.Database, error) {
	db, err := leveldb.New(file, cache, handles, namespace, readonly)
	if err != nil {
		return nil, err
	}
	log.Info("Using LevelDB as the backing database")
	return NewDatabase(db), nil
}

// NewPebbleDBDatabase creates a persistent key-value database backed by
// Pebble.
func NewPebbleDBDatabase(file string, cache int, handles int, namespace string, readonly bool) (ethdb.Database, error) {
	db, err := pebble.New(file, cache, handles, namespace, readonly)
	if err != nil {
		return nil, err
	}
	log.Info("Using pebble as the backing database")
	return NewDatabase(db), nil
}

// OpenOptions contains the options to apply when opening a database.
type OpenOptions struct {
	Type      string // "leveldb" | "pebble"
	Directory string // the datadir
	Namespace string // the namespace for database relevant metrics
	Cache     int    // the capacity(in megabytes) of the data caching
	Handles   int    // number of files to be open simultaneously
	ReadOnly  bool
}

// PreexistingDatabase checks the given data directory whether a database is
// already instantiated at that location, and if so, returns the type of
// database (or the empty string).
func PreexistingDatabase(path string) string {
	if _, err := os.Stat(filepath.Join(path, "CURRENT")); err != nil {
		return "" // No pre-existing db
	}
	if matches, err := filepath.Glob(filepath.Join(path, "OPTIONS*")); len(matches) > 0 || err != nil {
		if err != nil {
			panic(err) // only possible if the pattern is malformed
		}
		return DBPebble
	}
	return DBLeveldb
}

// Open opens a key-value database on disk, honoring the engine already
// present in the directory when one exists. Pebble is the default for
// fresh directories.
func Open(o OpenOptions) (ethdb.Database, error) {
	existingDb := PreexistingDatabase(o.Directory)
	if len(existingDb) != 0 && len(o.Type) != 0 && o.Type != existingDb {
		return nil, fmt.Errorf("db.engine choice was %v but found pre-existing %v database in specified data directory", o.Type, existingDb)
	}
	if o.Type == DBPebble || existingDb == DBPebble {
		return NewPebbleDBDatabase(o.Directory, o.Cache, o.Handles, o.Namespace, o.ReadOnly)
	}
	if o.Type == DBLeveldb || existingDb == DBLeveldb {
		return NewLevelDBDatabase(o.Directory, o.Cache, o.Handles, o.Namespace, o.ReadOnly)
	}
	if o.Type != "" {
		return nil, fmt.Errorf("unknown db.engine %v", o.Type)
	}
	return NewPebbleDBDatabase(o.Directory, o.Cache, o.Handles, o.Namespace, o.ReadOnly)
}

// DatabaseStat counts the entries and bytes stored under a key prefix.
type DatabaseStat struct {
	Name  string
	Count int
	Size  common.StorageSize
}

// InspectDatabase traverses the entire database and tallies the stored
// items per data category.
func InspectDatabase(db ethdb.Database) []DatabaseStat {
	it := db.NewIterator(nil, nil)
	defer it.Release()

	var (
		headers, bodies, receipts, tds, numHashes, hashNumbers  DatabaseStat
		lookups, codes, tries, preimages, metadata, unaccounted DatabaseStat
	)
	for it.Next() {
		var (
			key  = it.Key()
			size = common.StorageSize(len(key) + len(it.Value()))
			stat *DatabaseStat
		)
		switch {
		case hasPrefixLen(key, headerPrefix, len(headerPrefix)+8+common.HashLength):
			stat = &headers
		case hasPrefixLen(key, headerPrefix, len(headerPrefix)+8+common.HashLength+len(headerTDSuffix)):
			stat = &tds
		case hasPrefixLen(key, headerPrefix, len(headerPrefix)+8+len(headerHashSuffix)):
			stat = &numHashes
		case hasPrefixLen(key, headerNumberPrefix, len(headerNumberPrefix)+common.HashLength):
			stat = &hashNumbers
		case hasPrefixLen(key, blockBodyPrefix, len(blockBodyPrefix)+8+common.HashLength):
			stat = &bodies
		case hasPrefixLen(key, blockReceiptsPrefix, len(blockReceiptsPrefix)+8+common.HashLength):
			stat = &receipts
		case hasPrefixLen(key, txLookupPrefix, len(txLookupPrefix)+common.HashLength):
			stat = &lookups
		case hasPrefixLen(key, CodePrefix, len(CodePrefix)+common.HashLength):
			stat = &codes
		case hasPrefixLen(key, PreimagePrefix, len(PreimagePrefix)+common.HashLength):
			stat = &preimages
		case len(key) == common.HashLength:
			stat = &tries
		case string(key) == string(headBlockKey) || string(key) == string(headHeaderKey) ||
			hasPrefixLen(key, configPrefix, len(configPrefix)+common.HashLength):
			stat = &metadata
		default:
			stat = &unaccounted
		}
		stat.Count++
		stat.Size += size
	}
	headers.Name, bodies.Name, receipts.Name, tds.Name = "Headers", "Bodies", "Receipts", "Difficulties"
	numHashes.Name, hashNumbers.Name, lookups.Name = "Canonical hashes", "Header numbers", "Transaction lookups"
	codes.Name, tries.Name, preimages.Name = "Contract codes", "Trie nodes", "Trie preimages"
	metadata.Name, unaccounted.Name = "Metadata", "Unaccounted"

	return []DatabaseStat{headers, bodies, receipts, tds, numHashes, hashNumbers, lookups, codes, tries, preimages, metadata, unaccounted}
}

func hasPrefixLen(key, prefix []byte, length int) bool {
	return len(key) == length && string(key[:len(prefix)]) == string(prefix)
}
