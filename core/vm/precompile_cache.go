// Copyright 2024 The go-ethereum Authors
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

package vm

import (
	"encoding/binary"
	"sync/atomic"

	"github.com/VictoriaMetrics/fastcache"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/metrics"
)

// maxCachedOutput is the largest precompile output kept in the cache. Larger
// results are recomputed on every call.
const maxCachedOutput = 32 * 1024

var (
	precompileCacheHitMeter  = metrics.NewRegisteredMeter("chain/precompile/cache/hit", nil)
	precompileCacheMissMeter = metrics.NewRegisteredMeter("chain/precompile/cache/miss", nil)
)

// PrecompileCache memoizes the results of precompiled contracts.
//
// Entries are keyed by the keccak256 fingerprint of the contract name and the
// input, and hold the gas cost followed by the output. The underlying store is
// sharded and bounded, evicting old entries in bulk once full. It is safe for
// concurrent use; racing writers of the same entry store identical values.
type PrecompileCache struct {
	cache  *fastcache.Cache
	hits   atomic.Uint64
	misses atomic.Uint64
}

// NewPrecompileCache creates a cache holding up to maxBytes of entries.
func NewPrecompileCache(maxBytes int) *PrecompileCache {
	return &PrecompileCache{cache: fastcache.New(maxBytes)}
}

// Compute returns the output and gas cost of running p on input, serving it
// from the cache if possible. Failed runs are never cached.
func (c *PrecompileCache) Compute(p PrecompiledContract, input []byte) ([]byte, uint64, error) {
	if output, gasCost, ok := c.lookup(p, input); ok {
		return output, gasCost, nil
	}
	gasCost := p.RequiredGas(input)
	output, err := p.Run(input)
	if err != nil {
		return nil, gasCost, err
	}
	c.store(p, input, gasCost, output)
	return output, gasCost, nil
}

// Stats returns the number of cache hits and misses so far.
func (c *PrecompileCache) Stats() (hits, misses uint64) {
	if c == nil {
		return 0, 0
	}
	return c.hits.Load(), c.misses.Load()
}

// Reset drops every cached entry.
func (c *PrecompileCache) Reset() {
	if c != nil {
		c.cache.Reset()
	}
}

func (c *PrecompileCache) lookup(p PrecompiledContract, input []byte) ([]byte, uint64, bool) {
	if c == nil {
		return nil, 0, false
	}
	key := precompileKey(p, input)
	enc, ok := c.cache.HasGet(nil, key[:])
	if !ok || len(enc) < 8 {
		c.misses.Add(1)
		precompileCacheMissMeter.Mark(1)
		return nil, 0, false
	}
	c.hits.Add(1)
	precompileCacheHitMeter.Mark(1)
	return enc[8:], binary.BigEndian.Uint64(enc[:8]), true
}

func (c *PrecompileCache) store(p PrecompiledContract, input []byte, gasCost uint64, output []byte) {
	if c == nil || len(output) > maxCachedOutput {
		return
	}
	key := precompileKey(p, input)
	enc := make([]byte, 8+len(output))
	binary.BigEndian.PutUint64(enc, gasCost)
	copy(enc[8:], output)
	c.cache.Set(key[:], enc)
}

func precompileKey(p PrecompiledContract, input []byte) common.Hash {
	return crypto.Keccak256Hash([]byte(p.Name()), []byte{0}, input)
}
