// Copyright 2015 The go-ethereum Authors
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

package types_test

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/nodeforge/chaincore/core/types"
	"github.com/stretchr/testify/require"
)

func TestBloom(t *testing.T) {
	positive := []string{
		"testtest",
		"test",
		"hallo",
		"other",
	}
	negative := []string{
		"tes",
		"lo",
	}

	var bloom types.Bloom
	for _, data := range positive {
		bloom.Add([]byte(data))
	}
	for _, data := range positive {
		require.True(t, bloom.Test([]byte(data)), "expected %q to be present", data)
	}
	for _, data := range negative {
		require.False(t, bloom.Test([]byte(data)), "did not expect %q to be present", data)
	}
}

func TestCreateBloomFromReceipts(t *testing.T) {
	addr := common.Address{0x11}
	topic := common.Hash{0x22}
	receipts := []*types.Receipt{
		{Logs: []*types.Log{{Address: addr, Topics: []common.Hash{topic}}}},
		{Logs: []*types.Log{}},
	}
	bloom := types.CreateBloom(receipts)
	require.True(t, types.BloomLookup(bloom, addr))
	require.True(t, types.BloomLookup(bloom, topic))
	require.False(t, types.BloomLookup(bloom, common.Address{0x33}))

	require.Equal(t, bloom.Bytes(), types.LogsBloom(receipts[0].Logs))
}
