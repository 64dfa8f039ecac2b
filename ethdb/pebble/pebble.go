// Copyright 2023 The go-ethereum Authors
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

// Package pebble implements the key-value database layer based on pebble.
package pebble

import (
	"errors"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/bloom"
	"github.com/cockroachdb/pebble/vfs"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/metrics"
	"github.com/nodeforge/chaincore/ethdb"
)

const (
	// minCache is the minimum amount of memory in megabytes to allocate to pebble
	// read and write caching, split half and half.
	minCache = 16

	// minHandles is the minimum number of files handles to allocate to the open
	// database files.
	minHandles = 16
)

// Database is a persistent key-value store based on the pebble storage engine.
// Apart from basic data storage functionality it also supports batch writes and
// iterating over the keyspace in binary-alphabetical order.
type Database struct {
	fn     string     // filename for reporting
	db     *pebble.DB // Underlying pebble storage engine
	closed atomic.Bool

	compTimeMeter    *metrics.Meter // Meter for measuring the total time spent in database compaction
	writeDelayMeter  *metrics.Meter // Meter for measuring the write delay duration due to database compaction
	writeDelayNMeter *metrics.Meter // Meter for measuring the write delay number due to database compaction
	level0CompGauge  *metrics.Gauge // Gauge for tracking the number of table compaction in level0

	log log.Logger // Contextual logger tracking the database path

	activeComp          int       // current number of active compactions
	compStartTime       time.Time // the start time of the earliest currently-active compaction
	level0Comp          atomic.Uint32
	writeDelayStartTime time.Time // the start time of the latest write stall
}

func (d *Database) onCompactionBegin(info pebble.CompactionInfo) {
	if d.activeComp == 0 {
		d.compStartTime = time.Now()
	}
	for _, level := range info.Input {
		if level.Level == 0 {
			d.level0Comp.Add(1)
		}
	}
	d.activeComp++
}

func (d *Database) onCompactionEnd(info pebble.CompactionInfo) {
	if d.activeComp == 1 && d.compTimeMeter != nil {
		d.compTimeMeter.Mark(int64(time.Since(d.compStartTime)))
	} else if d.activeComp == 0 {
		panic("should not happen")
	}
	d.activeComp--
	if d.level0CompGauge != nil {
		d.level0CompGauge.Update(int64(d.level0Comp.Load()))
	}
}

func (d *Database) onWriteStallBegin(b pebble.WriteStallBeginInfo) {
	d.writeDelayStartTime = time.Now()
	if d.writeDelayNMeter != nil {
		d.writeDelayNMeter.Mark(1)
	}
}

func (d *Database) onWriteStallEnd() {
	if d.writeDelayMeter != nil {
		d.writeDelayMeter.Mark(int64(time.Since(d.writeDelayStartTime)))
	}
}

// New returns a wrapped pebble DB object. The namespace is the prefix that the
// metrics reporting should use for surfacing internal stats.
func New(file string, cache int, handles int, namespace string, readonly bool) (*Database, error) {
	// Ensure we have some minimal caching and file guarantees
	if cache < minCache {
		cache = minCache
	}
	if handles < minHandles {
		handles = minHandles
	}
	logger := log.New("database", file)
	logger.Info("Allocated cache and file handles", "cache", common.StorageSize(cache*1024*1024), "handles", handles)

	opts := &pebble.Options{
		// Pebble has a single combined cache area and the write
		// buffers are taken from this too. Assign all available
		// memory allowance for cache.
		Cache:        pebble.NewCache(int64(cache * 1024 * 1024)),
		MaxOpenFiles: handles,
		// The size of memory table(as well as the write buffer).
		MemTableSize: uint64(cache * 1024 * 1024 / 4),
		// Use all available CPUs for faster compaction.
		MaxConcurrentCompactions: func() int { return runtime.NumCPU() },
		ReadOnly:                 readonly,
	}
	return open(file, opts, namespace, logger)
}

// NewMemory returns a pebble instance on top of an in-memory file system.
func NewMemory() (*Database, error) {
	return open("memory", &pebble.Options{FS: vfs.NewMem()}, "", log.New("database", "memory"))
}

func open(file string, opts *pebble.Options, namespace string, logger log.Logger) (*Database, error) {
	var pdb *Database

	// Per-level options. Options for at least one level must be specified. The
	// options for the last level are used for all subsequent levels.
	opts.Levels = []pebble.LevelOptions{
		{TargetFileSize: 2 * 1024 * 1024, FilterPolicy: bloom.FilterPolicy(10)},
	}
	opts.EventListener = &pebble.EventListener{
		CompactionBegin: func(info pebble.CompactionInfo) {
			pdb.onCompactionBegin(info)
		},
		CompactionEnd: func(info pebble.CompactionInfo) {
			pdb.onCompactionEnd(info)
		},
		WriteStallBegin: func(info pebble.WriteStallBeginInfo) {
			pdb.onWriteStallBegin(info)
		},
		WriteStallEnd: func() {
			pdb.onWriteStallEnd()
		},
	}
	db, err := pebble.Open(file, opts)
	if err != nil {
		return nil, err
	}
	pdb = &Database{
		fn:  file,
		db:  db,
		log: logger,
	}
	if namespace != "" {
		pdb.compTimeMeter = metrics.NewRegisteredMeter(namespace+"compact/time", nil)
		pdb.writeDelayMeter = metrics.NewRegisteredMeter(namespace+"compact/writedelay/duration", nil)
		pdb.writeDelayNMeter = metrics.NewRegisteredMeter(namespace+"compact/writedelay/counter", nil)
		pdb.level0CompGauge = metrics.NewRegisteredGauge(namespace+"compact/level0", nil)
	}
	return pdb, nil
}

// Close flushes any pending data to disk and closes all io accesses to the
// underlying key-value store.
func (d *Database) Close() error {
	if !d.closed.CompareAndSwap(false, true) {
		return nil
	}
	return d.db.Close()
}

// Has retrieves if a key is present in the key-value store.
func (d *Database) Has(key []byte) (bool, error) {
	_, closer, err := d.db.Get(key)
	if errors.Is(err, pebble.ErrNotFound) {
		return false, nil
	} else if err != nil {
		return false, err
	}
	closer.Close()
	return true, nil
}

// Get retrieves the given key if it's present in the key-value store.
func (d *Database) Get(key []byte) ([]byte, error) {
	dat, closer, err := d.db.Get(key)
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, ethdb.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	ret := make([]byte, len(dat))
	copy(ret, dat)
	closer.Close()
	return ret, nil
}

// Put inserts the given value into the key-value store.
func (d *Database) Put(key []byte, value []byte) error {
	return d.db.Set(key, value, pebble.NoSync)
}

// Delete removes the key from the key-value store.
func (d *Database) Delete(key []byte) error {
	return d.db.Delete(key, nil)
}

// NewBatch creates a write-only key-value store that buffers changes to its host
// database until a final write is called.
func (d *Database) NewBatch() ethdb.Batch {
	return &batch{
		b: d.db.NewBatch(),
	}
}

// upperBound returns the upper bound for the given prefix
func upperBound(prefix []byte) (limit []byte) {
	for i := len(prefix) - 1; i >= 0; i-- {
		c := prefix[i]
		if c == 0xff {
			continue
		}
		limit = make([]byte, i+1)
		copy(limit, prefix)
		limit[i] = c + 1
		break
	}
	return limit
}

// NewIterator creates a binary-alphabetical iterator over a subset
// of database content with a particular key prefix, starting at a particular
// initial key (or after, if it does not exist).
func (d *Database) NewIterator(prefix []byte, start []byte) ethdb.Iterator {
	iter, err := d.db.NewIter(&pebble.IterOptions{
		LowerBound: append(prefix, start...),
		UpperBound: upperBound(prefix),
	})
	if err != nil {
		return &pebbleIterator{err: err}
	}
	iter.First()
	return &pebbleIterator{iter: iter, moved: true}
}

// batch is a write-only batch that commits changes to its host database
// when Write is called. A batch cannot be used concurrently.
type batch struct {
	b    *pebble.Batch
	size int
}

// Put inserts the given value into the batch for later committing.
func (b *batch) Put(key, value []byte) error {
	b.b.Set(key, value, nil)
	b.size += len(key) + len(value)
	return nil
}

// Delete inserts the key removal into the batch for later committing.
func (b *batch) Delete(key []byte) error {
	b.b.Delete(key, nil)
	b.size += len(key)
	return nil
}

// ValueSize retrieves the amount of data queued up for writing.
func (b *batch) ValueSize() int {
	return b.size
}

// Write flushes any accumulated data to disk.
func (b *batch) Write() error {
	return b.b.Commit(pebble.Sync)
}

// Reset resets the batch for reuse.
func (b *batch) Reset() {
	b.b.Reset()
	b.size = 0
}

// pebbleIterator is a wrapper of underlying iterator in storage engine.
// The purpose of this structure is to implement the missing APIs.
type pebbleIterator struct {
	iter     *pebble.Iterator
	moved    bool
	released bool
	err      error
}

// Next moves the iterator to the next key/value pair. It returns whether the
// iterator is exhausted.
func (iter *pebbleIterator) Next() bool {
	if iter.iter == nil {
		return false
	}
	if iter.moved {
		iter.moved = false
		return iter.iter.Valid()
	}
	return iter.iter.Next()
}

// Error returns any accumulated error. Exhausting all the key/value pairs
// is not considered to be an error.
func (iter *pebbleIterator) Error() error {
	if iter.iter == nil {
		return iter.err
	}
	return iter.iter.Error()
}

// Key returns the key of the current key/value pair, or nil if done. The caller
// should not modify the contents of the returned slice, and its contents may
// change on the next call to Next.
func (iter *pebbleIterator) Key() []byte {
	if iter.iter == nil {
		return nil
	}
	return iter.iter.Key()
}

// Value returns the value of the current key/value pair, or nil if done. The
// caller should not modify the contents of the returned slice, and its contents
// may change on the next call to Next.
func (iter *pebbleIterator) Value() []byte {
	if iter.iter == nil {
		return nil
	}
	return iter.iter.Value()
}

// Release releases associated resources. Release should always succeed and can
// be called multiple times without causing error.
func (iter *pebbleIterator) Release() {
	if !iter.released && iter.iter != nil {
		iter.iter.Close()
		iter.released = true
	}
}
