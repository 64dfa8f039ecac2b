// Copyright 2017 The go-ethereum Authors
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

package params

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCheckConfigForkOrder(t *testing.T) {
	require.NoError(t, AllEthashProtocolChanges.CheckConfigForkOrder())
	require.NoError(t, PreLondonConfig.CheckConfigForkOrder())

	skipped := &ChainConfig{
		ChainID:        big.NewInt(1),
		HomesteadBlock: big.NewInt(0),
		ByzantiumBlock: big.NewInt(10),
	}
	require.Error(t, skipped.CheckConfigForkOrder())

	reversed := &ChainConfig{
		ChainID:        big.NewInt(1),
		HomesteadBlock: big.NewInt(5),
		EIP150Block:    big.NewInt(1),
	}
	require.Error(t, reversed.CheckConfigForkOrder())

	// Petersburg is optional and follows Constantinople when unset.
	optional := &ChainConfig{
		ChainID:             big.NewInt(1),
		HomesteadBlock:      big.NewInt(0),
		EIP150Block:         big.NewInt(0),
		EIP155Block:         big.NewInt(0),
		EIP158Block:         big.NewInt(0),
		ByzantiumBlock:      big.NewInt(0),
		ConstantinopleBlock: big.NewInt(3),
		IstanbulBlock:       big.NewInt(4),
	}
	require.NoError(t, optional.CheckConfigForkOrder())
	require.True(t, optional.IsPetersburg(big.NewInt(3)))
	require.False(t, optional.IsPetersburg(big.NewInt(2)))
}

func TestRulesRefundQuotient(t *testing.T) {
	cfg := &ChainConfig{
		ChainID:        big.NewInt(1),
		HomesteadBlock: big.NewInt(0),
		LondonBlock:    big.NewInt(10),
	}
	require.Equal(t, RefundQuotient, cfg.Rules(big.NewInt(9)).RefundQuotient)
	require.Equal(t, RefundQuotientEIP3529, cfg.Rules(big.NewInt(10)).RefundQuotient)

	rules := (&ChainConfig{}).Rules(big.NewInt(0))
	require.NotNil(t, rules.ChainID)
	require.False(t, rules.IsHomestead)
}
