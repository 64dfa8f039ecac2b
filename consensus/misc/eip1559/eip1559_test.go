// Copyright 2021 The go-ethereum Authors
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

package eip1559

import (
	"math/big"
	"testing"

	"github.com/nodeforge/chaincore/consensus"
	"github.com/nodeforge/chaincore/core/types"
	"github.com/nodeforge/chaincore/params"
	"github.com/stretchr/testify/require"
)

// copyConfig does a _shallow_ copy of a given config. Safe to set new values, but
// do not use e.g. SetInt() on the numbers. For testing only
func copyConfig(original *params.ChainConfig) *params.ChainConfig {
	cpy := *original
	return &cpy
}

func config() *params.ChainConfig {
	config := copyConfig(params.TestChainConfig)
	config.LondonBlock = big.NewInt(5)
	return config
}

// TestBlockGasLimits tests the gasLimit checks for blocks both across
// the EIP-1559 boundary and post-1559 blocks
func TestBlockGasLimits(t *testing.T) {
	initial := new(big.Int).SetUint64(params.InitialBaseFee)

	for i, tc := range []struct {
		pGasLimit uint64
		pNum      int64
		gasLimit  uint64
		ok        bool
	}{
		// Transitions from non-london to london
		{10000000, 4, 20000000, true},  // No change
		{10000000, 4, 20019530, true},  // Upper limit
		{10000000, 4, 20019531, false}, // Upper +1
		{10000000, 4, 19980470, true},  // Lower limit
		{10000000, 4, 19980469, false}, // Lower limit -1
		// London to London
		{20000000, 5, 20000000, true},
		{20000000, 5, 20019530, true},  // Upper limit
		{20000000, 5, 20019531, false}, // Upper limit +1
		{20000000, 5, 19980470, true},  // Lower limit
		{20000000, 5, 19980469, false}, // Lower limit -1
		{40000000, 5, 40039061, true},  // Upper limit
		{40000000, 5, 40039062, false}, // Upper limit +1
		{40000000, 5, 39960939, true},  // lower limit
		{40000000, 5, 39960938, false}, // Lower limit -1
	} {
		parent := &types.Header{
			GasUsed:  tc.pGasLimit / 2,
			GasLimit: tc.pGasLimit,
			BaseFee:  initial,
			Number:   big.NewInt(tc.pNum),
		}
		header := &types.Header{
			GasUsed:  tc.gasLimit / 2,
			GasLimit: tc.gasLimit,
			BaseFee:  initial,
			Number:   big.NewInt(tc.pNum + 1),
		}
		err := VerifyEIP1559Header(config(), parent, header)
		if tc.ok {
			require.NoError(t, err, "test %d", i)
		} else {
			require.ErrorIs(t, err, consensus.ErrInvalidGasLimit, "test %d", i)
		}
	}
}

func TestMissingBaseFee(t *testing.T) {
	parent := &types.Header{GasLimit: 20000000, GasUsed: 10000000, BaseFee: big.NewInt(params.InitialBaseFee), Number: big.NewInt(5)}
	header := &types.Header{GasLimit: 20000000, Number: big.NewInt(6)}

	require.ErrorIs(t, VerifyEIP1559Header(config(), parent, header), consensus.ErrInvalidBaseFee)

	header.BaseFee = big.NewInt(params.InitialBaseFee + 1)
	require.ErrorIs(t, VerifyEIP1559Header(config(), parent, header), consensus.ErrInvalidBaseFee)

	header.BaseFee = big.NewInt(params.InitialBaseFee)
	require.NoError(t, VerifyEIP1559Header(config(), parent, header))
}

// TestCalcBaseFee assumes all blocks are 1559-blocks
func TestCalcBaseFee(t *testing.T) {
	tests := []struct {
		parentBaseFee   int64
		parentGasLimit  uint64
		parentGasUsed   uint64
		expectedBaseFee int64
	}{
		{params.InitialBaseFee, 20000000, 10000000, params.InitialBaseFee}, // usage == target
		{params.InitialBaseFee, 20000000, 9000000, 987500000},              // usage below target
		{params.InitialBaseFee, 20000000, 11000000, 1012500000},            // usage above target
		{params.InitialBaseFee, 20000000, 0, 875000000},                    // empty parent
		{7, 20000000, 10000001, 8},                                         // increase is at least one
	}
	for i, test := range tests {
		parent := &types.Header{
			Number:   big.NewInt(32),
			GasLimit: test.parentGasLimit,
			GasUsed:  test.parentGasUsed,
			BaseFee:  big.NewInt(test.parentBaseFee),
		}
		have := CalcBaseFee(config(), parent)
		require.Equal(t, big.NewInt(test.expectedBaseFee).String(), have.String(), "test %d", i)
	}
}

func TestCalcBaseFeeAtFork(t *testing.T) {
	parent := &types.Header{Number: big.NewInt(4), GasLimit: 10000000}
	require.Equal(t, uint64(params.InitialBaseFee), CalcBaseFee(config(), parent).Uint64())
}
