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
	"bytes"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

// countingContract records how many times it was actually run.
type countingContract struct {
	runs atomic.Int64
	fail bool
}

func (c *countingContract) RequiredGas(input []byte) uint64 { return uint64(len(input)) + 1 }
func (c *countingContract) Name() string                    { return "COUNTER" }

func (c *countingContract) Run(input []byte) ([]byte, error) {
	c.runs.Add(1)
	if c.fail {
		return nil, errors.New("boom")
	}
	return bytes.Repeat(input, 2), nil
}

func TestPrecompileCacheCompute(t *testing.T) {
	var (
		cache = NewPrecompileCache(1024 * 1024)
		p     = new(countingContract)
	)
	out, gas, err := cache.Compute(p, []byte{1, 2})
	require.NoError(t, err)
	require.Equal(t, []byte{1, 2, 1, 2}, out)
	require.Equal(t, uint64(3), gas)

	out2, gas2, err := cache.Compute(p, []byte{1, 2})
	require.NoError(t, err)
	require.Equal(t, out, out2)
	require.Equal(t, gas, gas2)
	require.Equal(t, int64(1), p.runs.Load())

	hits, misses := cache.Stats()
	require.Equal(t, uint64(1), hits)
	require.Equal(t, uint64(1), misses)

	// Callers own the returned slice.
	out2[0] = 0xff
	out3, _, _ := cache.Compute(p, []byte{1, 2})
	require.Equal(t, []byte{1, 2, 1, 2}, out3)
}

func TestPrecompileCacheSkipsFailures(t *testing.T) {
	cache := NewPrecompileCache(1024 * 1024)
	p := &countingContract{fail: true}
	for i := 0; i < 3; i++ {
		_, _, err := cache.Compute(p, []byte{1})
		require.Error(t, err)
	}
	require.Equal(t, int64(3), p.runs.Load())
}

func TestPrecompileCacheSkipsLargeOutputs(t *testing.T) {
	cache := NewPrecompileCache(4 * 1024 * 1024)
	p := new(countingContract)
	input := make([]byte, maxCachedOutput) // doubled output exceeds the limit
	cache.Compute(p, input)
	cache.Compute(p, input)
	require.Equal(t, int64(2), p.runs.Load())
}

func TestPrecompileCacheKeyedByContract(t *testing.T) {
	cache := NewPrecompileCache(1024 * 1024)
	in := []byte("input")
	idOut, _, err := cache.Compute(&dataCopy{}, in)
	require.NoError(t, err)
	shaOut, _, err := cache.Compute(&sha256hash{}, in)
	require.NoError(t, err)
	require.NotEqual(t, idOut, shaOut)

	// Both modexp pricing schemes share an address but not a cache entry.
	modIn := []byte{}
	_, gasOld, _ := cache.Compute(&bigModExp{eip2565: false}, modIn)
	_, gasNew, _ := cache.Compute(&bigModExp{eip2565: true}, modIn)
	require.Equal(t, uint64(0), gasOld)
	require.Equal(t, uint64(200), gasNew)
}

func TestPrecompileCacheRunChargesGasOnHit(t *testing.T) {
	cache := NewPrecompileCache(1024 * 1024)
	p := new(countingContract)
	_, left, err := RunPrecompiledContract(cache, p, []byte{1, 2, 3}, 10)
	require.NoError(t, err)
	require.Equal(t, uint64(6), left)

	_, left, err = RunPrecompiledContract(cache, p, []byte{1, 2, 3}, 3)
	require.ErrorIs(t, err, ErrOutOfGas)
	require.Zero(t, left)
	require.Equal(t, int64(1), p.runs.Load())

	// An underfunded miss never runs the contract.
	_, _, err = RunPrecompiledContract(cache, p, []byte{9, 9, 9, 9}, 1)
	require.ErrorIs(t, err, ErrOutOfGas)
	require.Equal(t, int64(1), p.runs.Load())
}

func TestPrecompileCacheConcurrent(t *testing.T) {
	var (
		cache  = NewPrecompileCache(1024 * 1024)
		p      = &sha256hash{}
		inputs = [][]byte{{1}, {2}, {3}, {4}}
		want   = make([][]byte, len(inputs))
	)
	for i, in := range inputs {
		want[i], _ = p.Run(in)
	}
	var wg sync.WaitGroup
	for w := 0; w < 16; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				n := (w + i) % len(inputs)
				out, gas, err := cache.Compute(p, inputs[n])
				if err != nil || gas != 72 || !bytes.Equal(out, want[n]) {
					t.Errorf("bad result for input %d: out %x gas %d err %v", n, out, gas, err)
					return
				}
			}
		}(w)
	}
	wg.Wait()

	hits, misses := cache.Stats()
	require.Equal(t, uint64(16*200), hits+misses)
	require.GreaterOrEqual(t, misses, uint64(len(inputs)))
}

func TestPrecompileCacheNil(t *testing.T) {
	var cache *PrecompileCache
	out, left, err := RunPrecompiledContract(cache, &dataCopy{}, []byte{7}, 100)
	require.NoError(t, err)
	require.Equal(t, []byte{7}, out)
	require.Equal(t, uint64(82), left)
	hits, misses := cache.Stats()
	require.Zero(t, hits+misses)
}
