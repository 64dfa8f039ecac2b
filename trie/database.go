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

package trie

import (
	"github.com/VictoriaMetrics/fastcache"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/metrics"
	"github.com/nodeforge/chaincore/core/rawdb"
	"github.com/nodeforge/chaincore/ethdb"
)

var (
	memcacheCleanHitMeter   = metrics.NewRegisteredMeter("trie/memcache/clean/hit", nil)
	memcacheCleanMissMeter  = metrics.NewRegisteredMeter("trie/memcache/clean/miss", nil)
	memcacheCleanReadMeter  = metrics.NewRegisteredMeter("trie/memcache/clean/read", nil)
	memcacheCleanWriteMeter = metrics.NewRegisteredMeter("trie/memcache/clean/write", nil)

	memcacheCommitNodesMeter = metrics.NewRegisteredMeter("trie/memcache/commit/nodes", nil)
	memcacheCommitBytesMeter = metrics.NewRegisteredMeter("trie/memcache/commit/bytes", nil)
)

// Config defines all necessary options for database.
type Config struct {
	Cache int // Memory allowance (MB) to use for caching trie nodes in memory
}

// Database is an intermediate read layer between the trie data structures and
// the disk database. Trie nodes are persisted directly on commit; reads are
// served from a clean cache in front of the disk.
type Database struct {
	diskdb ethdb.Database   // Persistent storage for matured trie nodes
	cleans *fastcache.Cache // GC friendly memory cache of clean node RLPs
}

// NewDatabase creates a new trie database to store ephemeral trie content before
// its written out to disk or garbage collected.
func NewDatabase(diskdb ethdb.Database, config *Config) *Database {
	var cleans *fastcache.Cache
	if config != nil && config.Cache > 0 {
		cleans = fastcache.New(config.Cache * 1024 * 1024)
	}
	return &Database{diskdb: diskdb, cleans: cleans}
}

// DiskDB retrieves the persistent storage backing the trie database.
func (db *Database) DiskDB() ethdb.Database {
	return db.diskdb
}

// Node retrieves an encoded trie node blob by hash. Nil is returned if the
// node is not present in either the clean cache or the disk.
func (db *Database) Node(hash common.Hash) []byte {
	if hash == (common.Hash{}) {
		return nil
	}
	if db.cleans != nil {
		if enc := db.cleans.Get(nil, hash[:]); enc != nil {
			memcacheCleanHitMeter.Mark(1)
			memcacheCleanReadMeter.Mark(int64(len(enc)))
			return enc
		}
		memcacheCleanMissMeter.Mark(1)
	}
	enc := rawdb.ReadTrieNode(db.diskdb, hash)
	if len(enc) == 0 {
		return nil
	}
	if db.cleans != nil {
		db.cleans.Set(hash[:], enc)
		memcacheCleanWriteMeter.Mark(int64(len(enc)))
	}
	return enc
}

// HasNode reports whether the node with the given hash is available.
func (db *Database) HasNode(hash common.Hash) bool {
	if db.cleans != nil && db.cleans.Has(hash[:]) {
		return true
	}
	return rawdb.HasTrieNode(db.diskdb, hash)
}

// WriteNodes adds the nodes of the set into the given writer. Callers are
// responsible for flushing the writer; the clean cache is not populated
// until the nodes are read back.
func (db *Database) WriteNodes(w ethdb.KeyValueWriter, nodes *NodeSet) {
	if nodes == nil {
		return
	}
	for hash, blob := range nodes.Nodes {
		rawdb.WriteTrieNode(w, hash, blob)
	}
	memcacheCommitNodesMeter.Mark(int64(nodes.Len()))
	memcacheCommitBytesMeter.Mark(int64(nodes.Size()))
}

// Update flushes the node set straight into the disk database.
func (db *Database) Update(nodes *NodeSet) error {
	if nodes.Len() == 0 {
		return nil
	}
	batch := db.diskdb.NewBatch()
	db.WriteNodes(batch, nodes)
	if err := batch.Write(); err != nil {
		log.Error("Failed to write trie nodes", "nodes", nodes.Len(), "err", err)
		return err
	}
	log.Trace("Persisted trie nodes", "nodes", nodes.Len(), "size", nodes.Size())
	return nil
}
