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
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/nodeforge/chaincore/params"
	"github.com/stretchr/testify/require"
)

func TestLookupStorage(t *testing.T) {
	db := NewMemoryDatabase()
	block, receipts := makeTestBlock(t, 1, common.Hash{})
	tx := block.Transactions()[0]

	txn, _, _, _ := ReadTransaction(db, tx.Hash())
	require.Nil(t, txn)

	WriteBlock(db, block)
	WriteReceipts(db, block.Hash(), block.NumberU64(), receipts)
	WriteTxLookupEntriesByBlock(db, block)

	// Lookups into non-canonical blocks are hidden.
	txn, _, _, _ = ReadTransaction(db, tx.Hash())
	require.Nil(t, txn)

	WriteCanonicalHash(db, block.Hash(), block.NumberU64())
	txn, hash, number, index := ReadTransaction(db, tx.Hash())
	require.NotNil(t, txn)
	require.Equal(t, tx.Hash(), txn.Hash())
	require.Equal(t, block.Hash(), hash)
	require.Equal(t, block.NumberU64(), number)
	require.Equal(t, uint64(0), index)

	receipt, _, _, _ := ReadReceipt(db, tx.Hash(), params.TestChainConfig)
	require.NotNil(t, receipt)
	require.Equal(t, tx.Hash(), receipt.TxHash)

	DeleteTxLookupEntry(db, tx.Hash())
	require.Nil(t, ReadTxLookupEntry(db, tx.Hash()))
}
