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
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/nodeforge/chaincore/core/types"
	"github.com/nodeforge/chaincore/ethdb"
	"github.com/nodeforge/chaincore/params"
)

// TxLookupEntry is a positional metadata to help looking up a transaction
// by hash.
type TxLookupEntry struct {
	BlockHash  common.Hash
	BlockIndex uint64
	Index      uint64
}

// ReadTxLookupEntry retrieves the positional metadata associated with a
// transaction hash to allow retrieving the transaction or receipt by hash.
func ReadTxLookupEntry(db ethdb.KeyValueReader, hash common.Hash) *TxLookupEntry {
	data, _ := db.Get(txLookupKey(hash))
	if len(data) == 0 {
		return nil
	}
	var entry TxLookupEntry
	if err := rlp.DecodeBytes(data, &entry); err != nil {
		log.Error("Invalid transaction lookup entry RLP", "hash", hash, "blob", data, "err", err)
		return nil
	}
	return &entry
}

// WriteTxLookupEntriesByBlock stores a positional metadata for every transaction
// from a block, enabling hash based transaction and receipt lookups.
func WriteTxLookupEntriesByBlock(db ethdb.KeyValueWriter, block *types.Block) {
	for i, tx := range block.Transactions() {
		entry := TxLookupEntry{
			BlockHash:  block.Hash(),
			BlockIndex: block.NumberU64(),
			Index:      uint64(i),
		}
		data, err := rlp.EncodeToBytes(entry)
		if err != nil {
			log.Crit("Failed to encode transaction lookup entry", "err", err)
		}
		if err := db.Put(txLookupKey(tx.Hash()), data); err != nil {
			log.Crit("Failed to store transaction lookup entry", "err", err)
		}
	}
}

// DeleteTxLookupEntry removes all transaction data associated with a hash.
func DeleteTxLookupEntry(db ethdb.KeyValueWriter, hash common.Hash) {
	if err := db.Delete(txLookupKey(hash)); err != nil {
		log.Crit("Failed to delete transaction lookup entry", "err", err)
	}
}

// DeleteTxLookupEntries removes all transaction lookups for a given block.
func DeleteTxLookupEntries(db ethdb.KeyValueWriter, hashes []common.Hash) {
	for _, hash := range hashes {
		DeleteTxLookupEntry(db, hash)
	}
}

// ReadTransaction retrieves a specific transaction from the database, along with
// its added positional metadata. Lookups pointing at a block that is no longer
// canonical are treated as missing.
func ReadTransaction(db ethdb.KeyValueReader, hash common.Hash) (*types.Transaction, common.Hash, uint64, uint64) {
	entry := ReadTxLookupEntry(db, hash)
	if entry == nil {
		return nil, common.Hash{}, 0, 0
	}
	if !isCanonical(db, entry.BlockHash, entry.BlockIndex) {
		return nil, common.Hash{}, 0, 0
	}
	body := ReadBody(db, entry.BlockHash, entry.BlockIndex)
	if body == nil || entry.Index >= uint64(len(body.Transactions)) {
		log.Error("Transaction referenced missing", "number", entry.BlockIndex, "hash", entry.BlockHash, "index", entry.Index)
		return nil, common.Hash{}, 0, 0
	}
	tx := body.Transactions[entry.Index]
	if tx.Hash() != hash {
		log.Error("Transaction lookup points at wrong position", "number", entry.BlockIndex, "hash", entry.BlockHash, "index", entry.Index)
		return nil, common.Hash{}, 0, 0
	}
	return tx, entry.BlockHash, entry.BlockIndex, entry.Index
}

// ReadReceipt retrieves a specific transaction receipt from the database, along with
// its added positional metadata.
func ReadReceipt(db ethdb.KeyValueReader, hash common.Hash, config *params.ChainConfig) (*types.Receipt, common.Hash, uint64, uint64) {
	entry := ReadTxLookupEntry(db, hash)
	if entry == nil || !isCanonical(db, entry.BlockHash, entry.BlockIndex) {
		return nil, common.Hash{}, 0, 0
	}
	receipts := ReadReceipts(db, entry.BlockHash, entry.BlockIndex, config)
	if entry.Index < uint64(len(receipts)) {
		return receipts[entry.Index], entry.BlockHash, entry.BlockIndex, entry.Index
	}
	log.Error("Receipt not found", "number", entry.BlockIndex, "hash", entry.BlockHash, "txhash", hash)
	return nil, common.Hash{}, 0, 0
}
