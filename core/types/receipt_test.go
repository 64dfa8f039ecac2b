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
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/nodeforge/chaincore/core/types"
	"github.com/nodeforge/chaincore/params"
	"github.com/stretchr/testify/require"
)

func TestReceiptStatusEncoding(t *testing.T) {
	for _, status := range []uint64{types.ReceiptStatusFailed, types.ReceiptStatusSuccessful} {
		receipt := &types.Receipt{Type: types.DynamicFeeTxType, Status: status, CumulativeGasUsed: 1, Logs: []*types.Log{}}
		enc, err := receipt.MarshalBinary()
		require.NoError(t, err)
		require.Equal(t, byte(types.DynamicFeeTxType), enc[0])

		var decoded types.Receipt
		require.NoError(t, decoded.UnmarshalBinary(enc))
		require.Equal(t, status, decoded.Status)
		require.Equal(t, uint64(1), decoded.CumulativeGasUsed)
	}
}

func TestLegacyReceiptPostState(t *testing.T) {
	root := common.Hash{0xaa}.Bytes()
	receipt := types.NewReceipt(root, false, 21000)
	enc, err := rlp.EncodeToBytes(receipt)
	require.NoError(t, err)

	var decoded types.Receipt
	require.NoError(t, rlp.DecodeBytes(enc, &decoded))
	require.Equal(t, root, decoded.PostState)
}

func TestStoredReceiptRecomputesBloom(t *testing.T) {
	log := &types.Log{Address: common.Address{0x01}, Topics: []common.Hash{{0x02}}, Data: []byte{0x03}}
	receipt := &types.Receipt{Status: types.ReceiptStatusSuccessful, CumulativeGasUsed: 5, Logs: []*types.Log{log}}
	receipt.Bloom = types.CreateBloom([]*types.Receipt{receipt})

	enc, err := rlp.EncodeToBytes((*types.ReceiptForStorage)(receipt))
	require.NoError(t, err)

	var decoded types.ReceiptForStorage
	require.NoError(t, rlp.DecodeBytes(enc, &decoded))
	require.Equal(t, receipt.Bloom, decoded.Bloom)
	require.Len(t, decoded.Logs, 1)
}

func TestDeriveFields(t *testing.T) {
	block := makeBlock(t, 2, big.NewInt(params.InitialBaseFee))
	receipts := types.Receipts{
		{Status: types.ReceiptStatusSuccessful, CumulativeGasUsed: 21000, Logs: []*types.Log{{}}},
		{Status: types.ReceiptStatusSuccessful, CumulativeGasUsed: 42000, Logs: []*types.Log{{}, {}}},
	}
	err := receipts.DeriveFields(params.TestChainConfig, block.Hash(), block.NumberU64(), block.BaseFee(), block.Transactions())
	require.NoError(t, err)

	for i, r := range receipts {
		require.Equal(t, block.Transactions()[i].Hash(), r.TxHash)
		require.Equal(t, block.Hash(), r.BlockHash)
		require.Equal(t, uint(i), r.TransactionIndex)
		require.Equal(t, uint64(21000), r.GasUsed)
	}
	require.Equal(t, uint(0), receipts[0].Logs[0].Index)
	require.Equal(t, uint(1), receipts[1].Logs[0].Index)
	require.Equal(t, uint(2), receipts[1].Logs[1].Index)

	err = types.Receipts{{}}.DeriveFields(params.TestChainConfig, block.Hash(), 1, nil, block.Transactions())
	require.Error(t, err)
}
