// Copyright 2014 The go-ethereum Authors
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

// Package core implements the block import and state transition core.
package core

import (
	"errors"
	"fmt"
	"io"
	"math/big"
	"sync"
	"sync/atomic"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/event"
	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/metrics"
	"github.com/ethereum/go-ethereum/rlp"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/nodeforge/chaincore/consensus"
	"github.com/nodeforge/chaincore/core/rawdb"
	"github.com/nodeforge/chaincore/core/state"
	"github.com/nodeforge/chaincore/core/types"
	"github.com/nodeforge/chaincore/core/vm"
	"github.com/nodeforge/chaincore/ethdb"
	"github.com/nodeforge/chaincore/params"
	"github.com/nodeforge/chaincore/trie"
)

var (
	headBlockGauge = metrics.NewRegisteredGauge("chain/head/block", nil)

	blockInsertTimer     = metrics.NewRegisteredTimer("chain/inserts", nil)
	blockValidationTimer = metrics.NewRegisteredTimer("chain/validation", nil)
	blockExecutionTimer  = metrics.NewRegisteredTimer("chain/execution", nil)
	blockWriteTimer      = metrics.NewRegisteredTimer("chain/write", nil)

	blockReorgMeter     = metrics.NewRegisteredMeter("chain/reorg/executes", nil)
	blockReorgAddMeter  = metrics.NewRegisteredMeter("chain/reorg/add", nil)
	blockReorgDropMeter = metrics.NewRegisteredMeter("chain/reorg/drop", nil)
	badBlockMeter       = metrics.NewRegisteredMeter("chain/bad/blocks", nil)

	errChainStopped = errors.New("blockchain is stopped")
)

const (
	headerCacheLimit   = 512
	tdCacheLimit       = 1024
	blockCacheLimit    = 256
	receiptsCacheLimit = 32
	badBlockLimit      = 10
)

// CacheConfig contains the configuration values for the caches that are
// resident in a blockchain.
type CacheConfig struct {
	TrieCleanLimit      int // Memory allowance (MB) to use for caching trie nodes in memory
	PrecompileCacheSize int // Memory allowance (MB) for memoized precompile results, 0 disables
}

// DefaultCacheConfig are the default caching values if none are specified by the
// user (also used during testing).
var DefaultCacheConfig = &CacheConfig{
	TrieCleanLimit:      64,
	PrecompileCacheSize: 16,
}

// BlockChain represents the canonical chain given a database with a genesis
// block. The Blockchain manages chain imports, reverts, chain reorganisations.
//
// Importing blocks in to the block chain happens according to the set of rules
// defined by the two stage Validator. Processing of blocks is done using the
// Processor which processes the included transaction. The validation of the state
// is done in the second part of the Validator. Failing results in aborting of
// the import.
//
// The BlockChain also helps in returning blocks from **any** chain included
// in the database as well as blocks that represents the canonical chain. It's
// important to note that GetBlock can return any block and does not need to be
// included in the canonical one where as GetBlockByNumber always represents the
// canonical chain.
type BlockChain struct {
	chainConfig *params.ChainConfig // Chain & network configuration
	cacheConfig *CacheConfig        // Cache configuration

	db           ethdb.Database // Low level persistent database to store final content in
	stateCache   state.Database // State database to reuse between imports
	genesisBlock *types.Block

	chainHeadFeed event.Feed
	chainSideFeed event.Feed
	scope         event.SubscriptionScope

	chainmu      sync.Mutex                   // blockchain insertion lock
	currentBlock atomic.Pointer[types.Header] // Current head of the chain
	stopping     atomic.Bool

	headerCache   *lru.Cache[common.Hash, *types.Header]
	tdCache       *lru.Cache[common.Hash, *big.Int]
	blockCache    *lru.Cache[common.Hash, *types.Block]
	receiptsCache *lru.Cache[common.Hash, []*types.Receipt]
	badBlocks     *lru.Cache[common.Hash, *types.Block]

	engine    consensus.Engine
	validator Validator // Block and state validator interface
	processor Processor // Block transaction processor interface
	vmConfig  vm.Config
}

// NewBlockChain returns a fully initialised block chain using information
// available in the database. If the database holds no genesis block, the given
// genesis specification is committed first. It initialises the default
// Validator and Processor.
func NewBlockChain(db ethdb.Database, cacheConfig *CacheConfig, genesis *Genesis, engine consensus.Engine, vmConfig vm.Config) (*BlockChain, error) {
	if cacheConfig == nil {
		cacheConfig = DefaultCacheConfig
	}
	chainConfig, genesisHash, err := SetupGenesisBlock(db, genesis)
	if err != nil {
		return nil, err
	}
	log.Info("Initialised chain configuration", "config", chainConfig.Description())

	if vmConfig.PrecompileCache == nil && cacheConfig.PrecompileCacheSize > 0 {
		vmConfig.PrecompileCache = vm.NewPrecompileCache(cacheConfig.PrecompileCacheSize * 1024 * 1024)
	}
	headerCache, _ := lru.New[common.Hash, *types.Header](headerCacheLimit)
	tdCache, _ := lru.New[common.Hash, *big.Int](tdCacheLimit)
	blockCache, _ := lru.New[common.Hash, *types.Block](blockCacheLimit)
	receiptsCache, _ := lru.New[common.Hash, []*types.Receipt](receiptsCacheLimit)
	badBlocks, _ := lru.New[common.Hash, *types.Block](badBlockLimit)

	bc := &BlockChain{
		chainConfig:   chainConfig,
		cacheConfig:   cacheConfig,
		db:            db,
		stateCache:    state.NewDatabaseWithConfig(db, &trie.Config{Cache: cacheConfig.TrieCleanLimit}),
		headerCache:   headerCache,
		tdCache:       tdCache,
		blockCache:    blockCache,
		receiptsCache: receiptsCache,
		badBlocks:     badBlocks,
		engine:        engine,
		vmConfig:      vmConfig,
	}
	bc.validator = NewBlockValidator(chainConfig, bc)
	bc.processor = NewStateProcessor(chainConfig, bc)

	bc.genesisBlock = bc.GetBlock(genesisHash, 0)
	if bc.genesisBlock == nil {
		return nil, ErrNoGenesis
	}
	if err := bc.loadLastState(); err != nil {
		return nil, err
	}
	return bc, nil
}

// loadLastState loads the last known chain state from the database.
func (bc *BlockChain) loadLastState() error {
	head := rawdb.ReadHeadBlockHash(bc.db)
	if head == (common.Hash{}) {
		log.Warn("Empty database, resetting chain")
		return bc.resetToGenesis()
	}
	headBlock := bc.GetBlockByHash(head)
	if headBlock == nil {
		log.Warn("Head block missing, resetting chain", "hash", head)
		return bc.resetToGenesis()
	}
	bc.currentBlock.Store(headBlock.Header())
	headBlockGauge.Update(int64(headBlock.NumberU64()))

	log.Info("Loaded most recent local block", "number", headBlock.Number(), "hash", headBlock.Hash(),
		"td", bc.GetTd(headBlock.Hash(), headBlock.NumberU64()), "state", bc.HasState(headBlock.Root()))
	return nil
}

// resetToGenesis points the head back at the genesis block.
func (bc *BlockChain) resetToGenesis() error {
	batch := bc.db.NewBatch()
	rawdb.WriteCanonicalHash(batch, bc.genesisBlock.Hash(), 0)
	rawdb.WriteHeadBlockHash(batch, bc.genesisBlock.Hash())
	rawdb.WriteHeadHeaderHash(batch, bc.genesisBlock.Hash())
	if err := batch.Write(); err != nil {
		return err
	}
	bc.currentBlock.Store(bc.genesisBlock.Header())
	headBlockGauge.Update(0)
	return nil
}

// Stop unsubscribes all event listeners and refuses further imports.
func (bc *BlockChain) Stop() {
	if !bc.stopping.CompareAndSwap(false, true) {
		return
	}
	bc.scope.Close()

	// Wait for any in-flight import to finish.
	bc.chainmu.Lock()
	defer bc.chainmu.Unlock()
	log.Info("Blockchain stopped")
}

// Config retrieves the chain's fork configuration.
func (bc *BlockChain) Config() *params.ChainConfig { return bc.chainConfig }

// Engine retrieves the blockchain's consensus engine.
func (bc *BlockChain) Engine() consensus.Engine { return bc.engine }

// Validator returns the current validator.
func (bc *BlockChain) Validator() Validator { return bc.validator }

// Processor returns the current processor.
func (bc *BlockChain) Processor() Processor { return bc.processor }

// Genesis retrieves the chain's genesis block.
func (bc *BlockChain) Genesis() *types.Block { return bc.genesisBlock }

// CurrentHeader retrieves the current head header of the canonical chain.
func (bc *BlockChain) CurrentHeader() *types.Header {
	return bc.currentBlock.Load()
}

// CurrentBlock retrieves the current head block of the canonical chain.
func (bc *BlockChain) CurrentBlock() *types.Block {
	head := bc.currentBlock.Load()
	return bc.GetBlock(head.Hash(), head.Number.Uint64())
}

// State returns a new mutable state based on the current HEAD block.
func (bc *BlockChain) State() (*state.StateDB, error) {
	return bc.StateAt(bc.CurrentHeader().Root)
}

// StateAt returns a new mutable state based on a particular point in time.
func (bc *BlockChain) StateAt(root common.Hash) (*state.StateDB, error) {
	return state.New(root, bc.stateCache)
}

// WorldStateAt returns a read-only view of the world state at root.
func (bc *BlockChain) WorldStateAt(root common.Hash) (*state.WorldState, error) {
	return state.NewWorldState(root, bc.stateCache)
}

// HasState checks if state trie is fully present in the database or not.
func (bc *BlockChain) HasState(root common.Hash) bool {
	_, err := bc.stateCache.OpenTrie(root)
	return err == nil
}

// HasBlockAndState checks if a block and associated state trie is fully present
// in the database or not, caching it if present.
func (bc *BlockChain) HasBlockAndState(hash common.Hash, number uint64) bool {
	block := bc.GetBlock(hash, number)
	if block == nil {
		return false
	}
	return bc.HasState(block.Root())
}

// HasHeader checks if a block header is present in the database or not, caching
// it if present.
func (bc *BlockChain) HasHeader(hash common.Hash, number uint64) bool {
	if bc.headerCache.Contains(hash) {
		return true
	}
	return rawdb.HasHeader(bc.db, hash, number)
}

// HasBlock checks if a block is fully present in the database or not.
func (bc *BlockChain) HasBlock(hash common.Hash, number uint64) bool {
	if bc.blockCache.Contains(hash) {
		return true
	}
	if !bc.HasHeader(hash, number) {
		return false
	}
	return rawdb.HasBody(bc.db, hash, number)
}

// GetHeader retrieves a block header from the database by hash and number,
// caching it if found.
func (bc *BlockChain) GetHeader(hash common.Hash, number uint64) *types.Header {
	if header, ok := bc.headerCache.Get(hash); ok {
		return header
	}
	header := rawdb.ReadHeader(bc.db, hash, number)
	if header == nil {
		return nil
	}
	bc.headerCache.Add(hash, header)
	return header
}

// GetHeaderByHash retrieves a block header from the database by hash, caching it if
// found.
func (bc *BlockChain) GetHeaderByHash(hash common.Hash) *types.Header {
	number := rawdb.ReadHeaderNumber(bc.db, hash)
	if number == nil {
		return nil
	}
	return bc.GetHeader(hash, *number)
}

// GetHeaderByNumber retrieves a block header from the database by number,
// caching it (associated with its hash) if found.
func (bc *BlockChain) GetHeaderByNumber(number uint64) *types.Header {
	hash := rawdb.ReadCanonicalHash(bc.db, number)
	if hash == (common.Hash{}) {
		return nil
	}
	return bc.GetHeader(hash, number)
}

// GetTd retrieves a block's total difficulty in the canonical chain from the
// database by hash and number, caching it if found.
func (bc *BlockChain) GetTd(hash common.Hash, number uint64) *big.Int {
	if td, ok := bc.tdCache.Get(hash); ok {
		return td
	}
	td := rawdb.ReadTd(bc.db, hash, number)
	if td == nil {
		return nil
	}
	bc.tdCache.Add(hash, td)
	return td
}

// GetBlock retrieves a block from the database by hash and number,
// caching it if found.
func (bc *BlockChain) GetBlock(hash common.Hash, number uint64) *types.Block {
	if block, ok := bc.blockCache.Get(hash); ok {
		return block
	}
	block := rawdb.ReadBlock(bc.db, hash, number)
	if block == nil {
		return nil
	}
	bc.blockCache.Add(block.Hash(), block)
	return block
}

// GetBlockByHash retrieves a block from the database by hash, caching it if found.
func (bc *BlockChain) GetBlockByHash(hash common.Hash) *types.Block {
	number := rawdb.ReadHeaderNumber(bc.db, hash)
	if number == nil {
		return nil
	}
	return bc.GetBlock(hash, *number)
}

// GetBlockByNumber retrieves a block from the database by number, caching it
// (associated with its hash) if found.
func (bc *BlockChain) GetBlockByNumber(number uint64) *types.Block {
	hash := rawdb.ReadCanonicalHash(bc.db, number)
	if hash == (common.Hash{}) {
		return nil
	}
	return bc.GetBlock(hash, number)
}

// GetReceiptsByHash retrieves the receipts for all transactions in a given block.
func (bc *BlockChain) GetReceiptsByHash(hash common.Hash) types.Receipts {
	if receipts, ok := bc.receiptsCache.Get(hash); ok {
		return receipts
	}
	number := rawdb.ReadHeaderNumber(bc.db, hash)
	if number == nil {
		return nil
	}
	receipts := rawdb.ReadReceipts(bc.db, hash, *number, bc.chainConfig)
	if receipts == nil {
		return nil
	}
	bc.receiptsCache.Add(hash, receipts)
	return receipts
}

// GetTransactionLookup retrieves the lookup entry of a canonical transaction
// together with the transaction itself. Nil is returned if the transaction is
// not indexed.
func (bc *BlockChain) GetTransactionLookup(hash common.Hash) (*rawdb.TxLookupEntry, *types.Transaction) {
	entry := rawdb.ReadTxLookupEntry(bc.db, hash)
	if entry == nil {
		return nil, nil
	}
	tx, _, _, _ := rawdb.ReadTransaction(bc.db, hash)
	if tx == nil {
		return nil, nil
	}
	return entry, tx
}

// BadBlocks returns a list of the last 'bad blocks' that the client has seen on
// the network.
func (bc *BlockChain) BadBlocks() []*types.Block {
	blocks := make([]*types.Block, 0, bc.badBlocks.Len())
	for _, hash := range bc.badBlocks.Keys() {
		if blk, exist := bc.badBlocks.Peek(hash); exist {
			blocks = append(blocks, blk)
		}
	}
	return blocks
}

// addBadBlock adds a bad block to the bad-block LRU cache
func (bc *BlockChain) addBadBlock(block *types.Block) {
	bc.badBlocks.Add(block.Hash(), block)
	badBlockMeter.Mark(1)
}

// isBadBlock reports whether the block was previously rejected permanently.
func (bc *BlockChain) isBadBlock(hash common.Hash) bool {
	return bc.badBlocks.Contains(hash)
}

// Export writes the active chain to the given writer.
func (bc *BlockChain) Export(w io.Writer) error {
	return bc.ExportN(w, uint64(0), bc.CurrentHeader().Number.Uint64())
}

// ExportN writes a subset of the active chain to the given writer.
func (bc *BlockChain) ExportN(w io.Writer, first uint64, last uint64) error {
	if first > last {
		return fmt.Errorf("export failed: first (%d) is greater than last (%d)", first, last)
	}
	log.Info("Exporting batch of blocks", "count", last-first+1)

	for nr := first; nr <= last; nr++ {
		block := bc.GetBlockByNumber(nr)
		if block == nil {
			return fmt.Errorf("export failed on #%d: not found", nr)
		}
		if err := rlp.Encode(w, block); err != nil {
			return err
		}
	}
	return nil
}

// SubscribeChainHeadEvent registers a subscription of ChainHeadEvent.
func (bc *BlockChain) SubscribeChainHeadEvent(ch chan<- ChainHeadEvent) event.Subscription {
	return bc.scope.Track(bc.chainHeadFeed.Subscribe(ch))
}

// SubscribeChainSideEvent registers a subscription of ChainSideEvent.
func (bc *BlockChain) SubscribeChainSideEvent(ch chan<- ChainSideEvent) event.Subscription {
	return bc.scope.Track(bc.chainSideFeed.Subscribe(ch))
}
