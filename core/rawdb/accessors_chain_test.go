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
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/nodeforge/chaincore/core/types"
	"github.com/nodeforge/chaincore/params"
	"github.com/stretchr/testify/require"
)

var testKey, _ = crypto.HexToECDSA("b71c71a67e1177ad4e901695e1b4b9ee17ae16c6668d313eac2f96dbcda3f291")

// listHasher builds a flat hash over list items, enough for block roots in
// storage tests where the exact root value is irrelevant.
type listHasher struct{ items [][]byte }

func (h *listHasher) Reset() { h.items = nil }
func (h *listHasher) Update(k, v []byte) error {
	h.items = append(h.items, append(common.CopyBytes(k), v...))
	return nil
}
func (h *listHasher) Hash() common.Hash { return crypto.Keccak256Hash(h.items...) }

func makeTestBlock(t *testing.T, number int64, parent common.Hash) (*types.Block, types.Receipts) {
	signer := types.LatestSignerForChainID(params.TestChainConfig.ChainID)
	tx, err := types.SignNewTx(testKey, signer, &types.LegacyTx{
		Nonce:    uint64(number),
		To:       &common.Address{0x01},
		Value:    big.NewInt(1),
		Gas:      21000,
		GasPrice: big.NewInt(1e9),
	})
	require.NoError(t, err)

	receipt := &types.Receipt{
		Status:            types.ReceiptStatusSuccessful,
		CumulativeGasUsed: 21000,
		GasUsed:           21000,
		TxHash:            tx.Hash(),
		Logs:              []*types.Log{},
	}
	header := &types.Header{
		ParentHash: parent,
		Number:     big.NewInt(number),
		Difficulty: big.NewInt(131072),
		GasLimit:   8_000_000,
		Extra:      []byte("test block"),
	}
	block := types.NewBlock(header, &types.Body{Transactions: []*types.Transaction{tx}}, []*types.Receipt{receipt}, &listHasher{})
	return block, types.Receipts{receipt}
}

func TestHeaderStorage(t *testing.T) {
	db := NewMemoryDatabase()

	header := &types.Header{Number: big.NewInt(42), Extra: []byte("test header")}
	require.Nil(t, ReadHeader(db, header.Hash(), header.Number.Uint64()))

	WriteHeader(db, header)
	entry := ReadHeader(db, header.Hash(), header.Number.Uint64())
	require.NotNil(t, entry)
	require.Equal(t, header.Hash(), entry.Hash())
	require.True(t, HasHeader(db, header.Hash(), 42))

	number := ReadHeaderNumber(db, header.Hash())
	require.NotNil(t, number)
	require.Equal(t, uint64(42), *number)

	DeleteHeader(db, header.Hash(), header.Number.Uint64())
	require.Nil(t, ReadHeader(db, header.Hash(), header.Number.Uint64()))
	require.Nil(t, ReadHeaderNumber(db, header.Hash()))
}

func TestBlockStorage(t *testing.T) {
	db := NewMemoryDatabase()
	block, _ := makeTestBlock(t, 1, common.Hash{})

	require.Nil(t, ReadBlock(db, block.Hash(), block.NumberU64()))
	WriteBlock(db, block)

	entry := ReadBlock(db, block.Hash(), block.NumberU64())
	require.NotNil(t, entry)
	require.Equal(t, block.Hash(), entry.Hash())
	require.Equal(t, block.Transactions()[0].Hash(), entry.Transactions()[0].Hash())
	require.True(t, HasBody(db, block.Hash(), block.NumberU64()))

	DeleteBlock(db, block.Hash(), block.NumberU64())
	require.Nil(t, ReadBlock(db, block.Hash(), block.NumberU64()))
	require.False(t, HasBody(db, block.Hash(), block.NumberU64()))
}

func TestPartialBlockStorage(t *testing.T) {
	db := NewMemoryDatabase()
	block, _ := makeTestBlock(t, 1, common.Hash{})

	// Header without a body is not a block.
	WriteHeader(db, block.Header())
	require.Nil(t, ReadBlock(db, block.Hash(), block.NumberU64()))
	DeleteHeader(db, block.Hash(), block.NumberU64())

	// Body without a header is not a block either.
	WriteBody(db, block.Hash(), block.NumberU64(), block.Body())
	require.Nil(t, ReadBlock(db, block.Hash(), block.NumberU64()))
}

func TestTdStorage(t *testing.T) {
	db := NewMemoryDatabase()
	hash, td := common.Hash{0x01}, big.NewInt(314)

	require.Nil(t, ReadTd(db, hash, 0))
	WriteTd(db, hash, 0, td)
	require.Equal(t, td, ReadTd(db, hash, 0))
	DeleteTd(db, hash, 0)
	require.Nil(t, ReadTd(db, hash, 0))
}

func TestCanonicalMappingStorage(t *testing.T) {
	db := NewMemoryDatabase()
	hash, number := common.Hash{0: 0xff}, uint64(314)

	require.Equal(t, common.Hash{}, ReadCanonicalHash(db, number))
	WriteCanonicalHash(db, hash, number)
	require.Equal(t, hash, ReadCanonicalHash(db, number))
	DeleteCanonicalHash(db, number)
	require.Equal(t, common.Hash{}, ReadCanonicalHash(db, number))
}

func TestHeadStorage(t *testing.T) {
	db := NewMemoryDatabase()
	block, _ := makeTestBlock(t, 1, common.Hash{})

	require.Equal(t, common.Hash{}, ReadHeadBlockHash(db))
	require.Nil(t, ReadHeadBlock(db))

	WriteBlock(db, block)
	WriteHeadHeaderHash(db, block.Hash())
	WriteHeadBlockHash(db, block.Hash())

	require.Equal(t, block.Hash(), ReadHeadHeaderHash(db))
	require.Equal(t, block.Hash(), ReadHeadBlock(db).Hash())
	require.Equal(t, block.Hash(), ReadHeadHeader(db).Hash())
}

func TestReceiptStorage(t *testing.T) {
	db := NewMemoryDatabase()
	block, receipts := makeTestBlock(t, 1, common.Hash{})

	require.False(t, HasReceipts(db, block.Hash(), 1))
	WriteBlock(db, block)
	WriteReceipts(db, block.Hash(), 1, receipts)
	require.True(t, HasReceipts(db, block.Hash(), 1))

	rs := ReadReceipts(db, block.Hash(), 1, params.TestChainConfig)
	require.Len(t, rs, 1)
	require.Equal(t, block.Hash(), rs[0].BlockHash)
	require.Equal(t, block.Transactions()[0].Hash(), rs[0].TxHash)
	require.Equal(t, uint64(21000), rs[0].GasUsed)
	require.Equal(t, types.ReceiptStatusSuccessful, rs[0].Status)

	DeleteReceipts(db, block.Hash(), 1)
	require.Nil(t, ReadRawReceipts(db, block.Hash(), 1))
}

func TestFindCommonAncestor(t *testing.T) {
	db := NewMemoryDatabase()

	root := &types.Header{Number: big.NewInt(0), Extra: []byte("root")}
	a1 := &types.Header{ParentHash: root.Hash(), Number: big.NewInt(1), Extra: []byte("a")}
	a2 := &types.Header{ParentHash: a1.Hash(), Number: big.NewInt(2), Extra: []byte("a")}
	b1 := &types.Header{ParentHash: root.Hash(), Number: big.NewInt(1), Extra: []byte("b")}
	for _, h := range []*types.Header{root, a1, a2, b1} {
		WriteHeader(db, h)
	}
	ancestor := FindCommonAncestor(db, a2, b1)
	require.NotNil(t, ancestor)
	require.Equal(t, root.Hash(), ancestor.Hash())

	require.Equal(t, a1.Hash(), FindCommonAncestor(db, a2, a1).Hash())
}

func TestReadAllHashes(t *testing.T) {
	db := NewMemoryDatabase()
	a := &types.Header{Number: big.NewInt(7), Extra: []byte("a")}
	b := &types.Header{Number: big.NewInt(7), Extra: []byte("b")}
	WriteHeader(db, a)
	WriteHeader(db, b)
	WriteCanonicalHash(db, a.Hash(), 7)
	WriteTd(db, a.Hash(), 7, big.NewInt(1))

	require.ElementsMatch(t, []common.Hash{a.Hash(), b.Hash()}, ReadAllHashes(db, 7))
}

func TestChainConfigStorage(t *testing.T) {
	db := NewMemoryDatabase()
	hash := common.Hash{0x42}
	require.Nil(t, ReadChainConfig(db, hash))
	WriteChainConfig(db, hash, params.TestChainConfig)

	cfg := ReadChainConfig(db, hash)
	require.NotNil(t, cfg)
	require.Equal(t, params.TestChainConfig.ChainID, cfg.ChainID)
	require.True(t, cfg.IsLondon(big.NewInt(0)))
}
