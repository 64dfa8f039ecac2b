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
	"bytes"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/nodeforge/chaincore/core/types"
	"github.com/nodeforge/chaincore/params"
	"github.com/nodeforge/chaincore/trie"
	"github.com/stretchr/testify/require"
)

var (
	testKey, _  = crypto.HexToECDSA("b71c71a67e1177ad4e901695e1b4b9ee17ae16c6668d313eac2f96dbcda3f291")
	testAddr    = common.HexToAddress("0x71562b71999873DB5b286dF957af199Ec94617F7")
	testChainID = params.TestChainConfig.ChainID
)

func makeBlock(t *testing.T, txs int, baseFee *big.Int) *types.Block {
	signer := types.LatestSignerForChainID(testChainID)
	var (
		list     []*types.Transaction
		receipts []*types.Receipt
		gas      uint64
	)
	for i := 0; i < txs; i++ {
		tx := types.MustSignNewTx(testKey, signer, &types.DynamicFeeTx{
			ChainID:   testChainID,
			Nonce:     uint64(i),
			To:        &common.Address{0xbb},
			Value:     big.NewInt(10),
			Gas:       21000,
			GasTipCap: big.NewInt(1),
			GasFeeCap: big.NewInt(2e9),
		})
		gas += 21000
		list = append(list, tx)
		receipts = append(receipts, &types.Receipt{
			Type:              types.DynamicFeeTxType,
			Status:            types.ReceiptStatusSuccessful,
			CumulativeGasUsed: gas,
			Logs:              []*types.Log{},
		})
	}
	header := &types.Header{
		ParentHash: common.Hash{0x01},
		Coinbase:   common.Address{0xcc},
		Difficulty: big.NewInt(131072),
		Number:     big.NewInt(1),
		GasLimit:   8_000_000,
		GasUsed:    gas,
		Time:       1_700_000_000,
		Extra:      []byte("chaincore"),
		BaseFee:    baseFee,
	}
	return types.NewBlock(header, &types.Body{Transactions: list}, receipts, trie.NewEmpty(nil))
}

func TestBlockEncoding(t *testing.T) {
	block := makeBlock(t, 3, big.NewInt(params.InitialBaseFee))

	enc, err := rlp.EncodeToBytes(block)
	require.NoError(t, err)

	var decoded types.Block
	require.NoError(t, rlp.DecodeBytes(enc, &decoded))
	require.Equal(t, block.Hash(), decoded.Hash())
	require.Equal(t, block.TxHash(), decoded.TxHash())
	require.Equal(t, block.ReceiptHash(), decoded.ReceiptHash())
	require.Equal(t, block.BaseFee(), decoded.BaseFee())
	require.Len(t, decoded.Transactions(), 3)
	require.Equal(t, uint64(len(enc)), decoded.Size())

	for i, tx := range decoded.Transactions() {
		require.Equal(t, block.Transactions()[i].Hash(), tx.Hash())
	}
	// Re-encoding must be byte-identical.
	reenc, err := rlp.EncodeToBytes(&decoded)
	require.NoError(t, err)
	require.True(t, bytes.Equal(enc, reenc))
}

func TestPreLondonHeaderOmitsBaseFee(t *testing.T) {
	block := makeBlock(t, 1, nil)
	enc, err := rlp.EncodeToBytes(block.Header())
	require.NoError(t, err)

	var header types.Header
	require.NoError(t, rlp.DecodeBytes(enc, &header))
	require.Nil(t, header.BaseFee)
	require.Equal(t, block.Hash(), header.Hash())
}

func TestEmptyBlockRoots(t *testing.T) {
	block := types.NewBlock(&types.Header{Number: big.NewInt(1)}, nil, nil, trie.NewEmpty(nil))
	require.Equal(t, types.EmptyTxsHash, block.TxHash())
	require.Equal(t, types.EmptyReceiptsHash, block.ReceiptHash())
	require.Equal(t, types.EmptyUncleHash, block.UncleHash())
	require.True(t, block.Header().EmptyBody())
	require.True(t, block.Header().EmptyReceipts())
}

func TestUncleHash(t *testing.T) {
	uncle := &types.Header{Number: big.NewInt(1), Difficulty: big.NewInt(1), Extra: []byte("uncle")}
	block := types.NewBlock(&types.Header{Number: big.NewInt(2)}, &types.Body{Uncles: []*types.Header{uncle}}, nil, trie.NewEmpty(nil))

	require.Equal(t, types.CalcUncleHash([]*types.Header{uncle}), block.UncleHash())
	require.NotEqual(t, types.EmptyUncleHash, block.UncleHash())
	require.Len(t, block.Uncles(), 1)
	// The block holds its own copy of the uncle.
	uncle.Extra = []byte("mutated")
	require.Equal(t, []byte("uncle"), block.Uncles()[0].Extra)
}

func TestHeaderSanityCheck(t *testing.T) {
	header := &types.Header{Number: big.NewInt(1), Difficulty: big.NewInt(1)}
	require.NoError(t, header.SanityCheck())

	header.Extra = make([]byte, 100*1024+1)
	require.Error(t, header.SanityCheck())
}

func TestWithSealKeepsBody(t *testing.T) {
	block := makeBlock(t, 2, big.NewInt(params.InitialBaseFee))
	sealed := types.CopyHeader(block.Header())
	sealed.Nonce = types.EncodeNonce(42)

	resealed := block.WithSeal(sealed)
	require.Equal(t, uint64(42), resealed.Nonce())
	require.Len(t, resealed.Transactions(), 2)
	require.NotEqual(t, block.Hash(), resealed.Hash())
}

func TestHeaderParentHashFromRLP(t *testing.T) {
	header := &types.Header{ParentHash: common.Hash{0xde, 0xad}, Number: big.NewInt(9)}
	enc, err := rlp.EncodeToBytes(header)
	require.NoError(t, err)
	require.Equal(t, header.ParentHash, types.HeaderParentHashFromRLP(enc))
	require.Equal(t, common.Hash{}, types.HeaderParentHashFromRLP([]byte{0x01, 0x02}))
}
