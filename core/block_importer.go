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

package core

import (
	"errors"
	"fmt"
	"math/big"
	"runtime"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"
	"github.com/nodeforge/chaincore/consensus"
	"github.com/nodeforge/chaincore/core/rawdb"
	"github.com/nodeforge/chaincore/core/state"
	"github.com/nodeforge/chaincore/core/types"
	"github.com/nodeforge/chaincore/core/vm"
	"github.com/nodeforge/chaincore/ethdb"
	"github.com/nodeforge/chaincore/params"
)

// ImportStatus is the outcome tag of a block import.
type ImportStatus uint8

const (
	// Imported means the block was stored and is the new canonical head.
	Imported ImportStatus = iota

	// SideChain means the block was stored but did not carry enough total
	// difficulty to become the head.
	SideChain

	// AlreadyPresent means the block was known before the call; nothing was
	// written.
	AlreadyPresent

	// Rejected means the block was not stored. ImportResult.Reason says why.
	Rejected
)

func (s ImportStatus) String() string {
	switch s {
	case Imported:
		return "imported"
	case SideChain:
		return "sidechain"
	case AlreadyPresent:
		return "known"
	case Rejected:
		return "rejected"
	default:
		return fmt.Sprintf("ImportStatus(%d)", uint8(s))
	}
}

// RejectReason classifies why a block was rejected.
type RejectReason uint8

const (
	NotRejected           RejectReason = iota
	RejectHeader                       // header failed validation
	RejectBody                         // body does not match the header commitments
	RejectExecution                    // a transaction could not be applied
	RejectStateDivergence              // execution results differ from the header
	RejectStorage                      // the database failed to persist the block
	RejectUnknownAncestor              // parent block is not known
	RejectMissingState                 // parent state is not available for execution
	RejectBadBlock                     // block was rejected before
)

func (r RejectReason) String() string {
	switch r {
	case NotRejected:
		return "none"
	case RejectHeader:
		return "invalid header"
	case RejectBody:
		return "invalid body"
	case RejectExecution:
		return "execution failed"
	case RejectStateDivergence:
		return "state divergence"
	case RejectStorage:
		return "storage failure"
	case RejectUnknownAncestor:
		return "unknown ancestor"
	case RejectMissingState:
		return "missing state"
	case RejectBadBlock:
		return "known bad block"
	default:
		return fmt.Sprintf("RejectReason(%d)", uint8(r))
	}
}

// permanent reports whether a rejection with this reason makes the block
// invalid forever.
func (r RejectReason) permanent() bool {
	switch r {
	case RejectHeader, RejectBody, RejectExecution, RejectStateDivergence:
		return true
	}
	return false
}

// ImportResult is the outcome of importing one block.
type ImportResult struct {
	Status ImportStatus
	Reason RejectReason // set if Status is Rejected
	Err    error        // set if Status is Rejected

	// Td is the total difficulty of the block, unset for rejected blocks.
	Td *big.Int
}

// Succeeded reports whether the block is stored after the import.
func (r ImportResult) Succeeded() bool {
	return r.Status != Rejected
}

func rejected(reason RejectReason, err error) ImportResult {
	return ImportResult{Status: Rejected, Reason: reason, Err: err}
}

// BodyMode selects how a block body is validated.
type BodyMode uint8

const (
	// BodyFull re-executes the transactions and checks every commitment.
	BodyFull BodyMode = iota

	// BodyLight trusts the supplied receipts instead of executing the block.
	BodyLight
)

func (m BodyMode) String() string {
	switch m {
	case BodyFull:
		return "full"
	case BodyLight:
		return "light"
	default:
		return "unknown"
	}
}

// importOptions carries the per-call knobs of the import entry points.
type importOptions struct {
	headerMode consensus.HeaderMode
	ommerMode  consensus.HeaderMode
	bodyMode   BodyMode
	receipts   types.Receipts // receipts supplied by the caller, if any
	raw        bool           // skip validation altogether
	indexTxs   bool           // write transaction lookup entries
}

// ImportBlock validates and imports a single block, checking ommers in full.
func (bc *BlockChain) ImportBlock(block *types.Block, headerMode consensus.HeaderMode) ImportResult {
	return bc.ImportBlockWithModes(block, headerMode, consensus.FullValidation)
}

// ImportBlockWithModes validates and imports a single block. The body is always
// executed and compared against the header.
func (bc *BlockChain) ImportBlockWithModes(block *types.Block, headerMode, ommerMode consensus.HeaderMode) ImportResult {
	return bc.importBlock(block, importOptions{
		headerMode: headerMode,
		ommerMode:  ommerMode,
		bodyMode:   BodyFull,
		indexTxs:   true,
	})
}

// ImportBlockForSyncing imports a block received during sync. With BodyLight
// the block is not executed: the receipts are checked against the header and
// the header state root is trusted.
func (bc *BlockChain) ImportBlockForSyncing(block *types.Block, receipts types.Receipts, headerMode, ommerMode consensus.HeaderMode, bodyMode BodyMode, indexTxs bool) ImportResult {
	return bc.importBlock(block, importOptions{
		headerMode: headerMode,
		ommerMode:  ommerMode,
		bodyMode:   bodyMode,
		receipts:   receipts,
		indexTxs:   indexTxs,
	})
}

// ImportRawSyncBlock imports a block that was already validated elsewhere.
// Nothing is checked; the block is executed if its parent state is available
// and stored with the supplied receipts.
func (bc *BlockChain) ImportRawSyncBlock(block *types.Block, receipts types.Receipts, indexTxs bool) ImportResult {
	return bc.importBlock(block, importOptions{
		receipts: receipts,
		raw:      true,
		indexTxs: indexTxs,
	})
}

// InsertChain imports a batch of blocks with full validation, stopping at the
// first rejected one. It returns the index of the failing block.
func (bc *BlockChain) InsertChain(chain types.Blocks) (int, error) {
	if len(chain) == 0 {
		return 0, nil
	}
	// Do a sanity check that the provided chain is actually ordered and linked.
	for i := 1; i < len(chain); i++ {
		block, prev := chain[i], chain[i-1]
		if block.NumberU64() != prev.NumberU64()+1 || block.ParentHash() != prev.Hash() {
			log.Error("Non contiguous block insert", "number", block.Number(), "hash", block.Hash(),
				"parent", block.ParentHash(), "prevnumber", prev.Number(), "prevhash", prev.Hash())
			return 0, fmt.Errorf("non contiguous insert: item %d is #%d [%x..], item %d is #%d [%x..] (parent [%x..])", i-1, prev.NumberU64(),
				prev.Hash().Bytes()[:4], i, block.NumberU64(), block.Hash().Bytes()[:4], block.ParentHash().Bytes()[:4])
		}
	}
	stats := insertStats{startTime: time.Now()}
	for i, block := range chain {
		res := bc.ImportBlock(block, consensus.FullValidation)
		switch res.Status {
		case Rejected:
			return i, res.Err
		case AlreadyPresent:
			stats.ignored++
		default:
			stats.processed++
			stats.txs += len(block.Transactions())
			stats.gas += block.GasUsed()
		}
		stats.report(chain, i)
	}
	return 0, nil
}

// importBlock runs the import pipeline shared by all entry points.
func (bc *BlockChain) importBlock(block *types.Block, opts importOptions) ImportResult {
	if bc.stopping.Load() {
		return rejected(RejectStorage, errChainStopped)
	}
	var (
		start  = time.Now()
		hash   = block.Hash()
		number = block.NumberU64()
		header = block.Header()
	)
	if bc.isBadBlock(hash) {
		return rejected(RejectBadBlock, fmt.Errorf("%w: %x", ErrBannedBlock, hash))
	}
	if bc.HasBlock(hash, number) {
		return ImportResult{Status: AlreadyPresent, Td: bc.GetTd(hash, number)}
	}
	if number == 0 {
		return rejected(RejectUnknownAncestor, fmt.Errorf("%w: foreign genesis %x", consensus.ErrUnknownAncestor, hash))
	}
	parent := bc.GetHeader(block.ParentHash(), number-1)
	if parent == nil {
		return rejected(RejectUnknownAncestor, consensus.ErrUnknownAncestor)
	}
	if !opts.raw {
		vstart := time.Now()
		if err := bc.validator.ValidateHeader(header, parent, opts.headerMode); err != nil {
			return bc.reject(block, nil, RejectHeader, err)
		}
		if err := bc.validator.ValidateBody(block, opts.ommerMode); err != nil {
			return bc.reject(block, nil, RejectBody, err)
		}
		blockValidationTimer.UpdateSince(vstart)
	}
	var (
		receipts = opts.receipts
		statedb  *state.StateDB
	)
	switch {
	case opts.raw:
		if bc.HasState(parent.Root) {
			res, sdb, err := bc.execute(block, parent)
			if err != nil {
				return rejected(RejectExecution, err)
			}
			if root := sdb.IntermediateRoot(bc.chainConfig.IsEIP158(block.Number())); root != header.Root {
				log.Warn("Raw block state root differs from header", "number", number, "hash", hash, "local", root, "remote", header.Root)
			}
			statedb = sdb
			if receipts == nil {
				receipts = res.Receipts
			}
		}
		if receipts == nil {
			receipts = types.Receipts{}
		}
		if err := receipts.DeriveFields(bc.chainConfig, hash, number, header.BaseFee, block.Transactions()); err != nil {
			log.Warn("Failed to derive raw block receipts", "number", number, "hash", hash, "err", err)
		}

	case opts.bodyMode == BodyLight:
		if err := bc.validator.ValidateReceipts(block, receipts); err != nil {
			// The receipts came from the caller, the block itself may still be fine.
			log.Debug("Rejected sync block receipts", "number", number, "hash", hash, "err", err)
			return rejected(RejectBody, err)
		}
		if err := receipts.DeriveFields(bc.chainConfig, hash, number, header.BaseFee, block.Transactions()); err != nil {
			return rejected(RejectBody, err)
		}

	default:
		if !bc.HasState(parent.Root) {
			return rejected(RejectMissingState, fmt.Errorf("%w: parent %x root %x", ErrMissingState, parent.Hash(), parent.Root))
		}
		res, sdb, err := bc.execute(block, parent)
		if err != nil {
			return bc.reject(block, nil, RejectExecution, err)
		}
		vstart := time.Now()
		if err := bc.validator.ValidateState(block, sdb, res); err != nil {
			return bc.reject(block, res.Receipts, RejectStateDivergence, err)
		}
		blockValidationTimer.UpdateSince(vstart)
		statedb, receipts = sdb, res.Receipts
	}
	wstart := time.Now()
	status, td, ev, err := bc.writeBlockAndSetHead(block, receipts, statedb, opts.indexTxs)
	if err != nil {
		if errors.Is(err, consensus.ErrUnknownAncestor) {
			return rejected(RejectUnknownAncestor, err)
		}
		log.Error("Failed to write block", "number", number, "hash", hash, "err", err)
		return rejected(RejectStorage, err)
	}
	blockWriteTimer.UpdateSince(wstart)

	switch status {
	case Imported:
		log.Debug("Inserted new block", "number", number, "hash", hash,
			"uncles", len(block.Uncles()), "txs", len(block.Transactions()), "gas", block.GasUsed(),
			"elapsed", common.PrettyDuration(time.Since(start)), "root", block.Root())
	case SideChain:
		log.Debug("Inserted forked block", "number", number, "hash", hash,
			"diff", block.Difficulty(), "elapsed", common.PrettyDuration(time.Since(start)),
			"txs", len(block.Transactions()), "gas", block.GasUsed(), "uncles", len(block.Uncles()),
			"root", block.Root())
	case AlreadyPresent:
		return ImportResult{Status: AlreadyPresent, Td: td}
	}
	blockInsertTimer.UpdateSince(start)

	// Events are delivered outside the chain lock.
	for _, side := range ev.sides {
		bc.chainSideFeed.Send(ChainSideEvent{Header: side})
	}
	if ev.head != nil {
		bc.chainHeadFeed.Send(*ev.head)
	}
	return ImportResult{Status: status, Td: td}
}

// execute runs the block on top of its parent state. The returned state is
// private to the caller until committed.
func (bc *BlockChain) execute(block *types.Block, parent *types.Header) (*ProcessResult, *state.StateDB, error) {
	statedb, err := bc.StateAt(parent.Root)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrMissingState, err)
	}
	pstart := time.Now()
	res, err := bc.processor.Process(block, statedb, bc.vmConfig)
	if err != nil {
		return nil, nil, err
	}
	blockExecutionTimer.UpdateSince(pstart)
	return res, statedb, nil
}

// reject builds the result for a block that failed validation and, for
// permanent failures, records it as bad. A body that does not match its
// header's commitments is not recorded: the block hash covers only the header,
// so banning it would also refuse the honest block.
func (bc *BlockChain) reject(block *types.Block, receipts types.Receipts, reason RejectReason, err error) ImportResult {
	switch {
	case errors.Is(err, consensus.ErrFutureBlock), errors.Is(err, vm.ErrNoInterpreter),
		errors.Is(err, ErrInvalidTxRoot), errors.Is(err, ErrInvalidUncleHash):
		log.Debug("Rejected block", "number", block.Number(), "hash", block.Hash(), "reason", reason, "err", err)
	case reason.permanent():
		bc.addBadBlock(block)
		log.Error(summarizeBadBlock(block, receipts, bc.chainConfig, err))
	default:
		log.Debug("Rejected block", "number", block.Number(), "hash", block.Hash(), "reason", reason, "err", err)
	}
	return rejected(reason, err)
}

// chainEvents collects the notifications of one import, sent after the chain
// lock is released.
type chainEvents struct {
	head  *ChainHeadEvent
	sides []*types.Header
}

// writeBlockAndSetHead persists the block together with its state and receipts,
// and moves the head if the block carries the most total difficulty. State is
// made durable before the batch that advances the head is written.
func (bc *BlockChain) writeBlockAndSetHead(block *types.Block, receipts types.Receipts, statedb *state.StateDB, indexTxs bool) (ImportStatus, *big.Int, chainEvents, error) {
	bc.chainmu.Lock()
	defer bc.chainmu.Unlock()

	var (
		ev     chainEvents
		hash   = block.Hash()
		number = block.NumberU64()
	)
	// Another import may have won the race while this block was executing.
	if bc.HasBlock(hash, number) {
		return AlreadyPresent, bc.GetTd(hash, number), ev, nil
	}
	ptd := bc.GetTd(block.ParentHash(), number-1)
	if ptd == nil {
		return Rejected, nil, ev, consensus.ErrUnknownAncestor
	}
	if statedb != nil {
		if _, err := statedb.Commit(bc.chainConfig.IsEIP158(block.Number())); err != nil {
			return Rejected, nil, ev, err
		}
	}
	var (
		current  = bc.CurrentHeader()
		localTd  = bc.GetTd(current.Hash(), current.Number.Uint64())
		externTd = new(big.Int).Add(ptd, block.Difficulty())
		batch    = bc.db.NewBatch()
		status   = SideChain
		reorg    bool
		dropped  []*types.Header
	)
	rawdb.WriteTd(batch, hash, number, externTd)
	rawdb.WriteBlock(batch, block)
	rawdb.WriteReceipts(batch, hash, number, receipts)

	// Ties keep the current head, so the first block imported at a height wins.
	if externTd.Cmp(localTd) > 0 {
		if block.ParentHash() != current.Hash() {
			var err error
			if dropped, err = bc.reorg(batch, current, block); err != nil {
				return Rejected, nil, ev, err
			}
			reorg = true
		}
		rawdb.WriteCanonicalHash(batch, hash, number)
		if indexTxs {
			rawdb.WriteTxLookupEntriesByBlock(batch, block)
		}
		rawdb.WriteHeadHeaderHash(batch, hash)
		rawdb.WriteHeadBlockHash(batch, hash)
		status = Imported
	}
	if err := batch.Write(); err != nil {
		return Rejected, nil, ev, err
	}
	bc.tdCache.Add(hash, externTd)
	bc.receiptsCache.Add(hash, receipts)

	if status == Imported {
		bc.currentBlock.Store(block.Header())
		headBlockGauge.Update(int64(number))
		ev.head = &ChainHeadEvent{Header: block.Header(), Receipts: receipts, Reorg: reorg}
		ev.sides = dropped
	} else {
		ev.sides = []*types.Header{block.Header()}
	}
	return status, externTd, ev, nil
}

// reorg rewrites the canonical index so that it leads to the parent of block
// instead of oldHead. Lookup entries of transactions that are no longer
// canonical are removed. The dropped headers are returned.
func (bc *BlockChain) reorg(batch ethdb.Batch, oldHead *types.Header, block *types.Block) ([]*types.Header, error) {
	newParent := bc.GetHeader(block.ParentHash(), block.NumberU64()-1)
	if newParent == nil {
		return nil, errors.New("invalid new chain")
	}
	ancestor := rawdb.FindCommonAncestor(bc.db, oldHead, newParent)
	if ancestor == nil {
		return nil, errors.New("invalid old chain")
	}
	var (
		oldChain []*types.Header
		newChain []*types.Block
		deleted  = mapset.NewThreadUnsafeSet[common.Hash]()
		added    = mapset.NewThreadUnsafeSet[common.Hash]()
	)
	for h := oldHead; h.Number.Uint64() > ancestor.Number.Uint64(); {
		oldChain = append(oldChain, h)
		if b := bc.GetBlock(h.Hash(), h.Number.Uint64()); b != nil {
			for _, tx := range b.Transactions() {
				deleted.Add(tx.Hash())
			}
		}
		if h = bc.GetHeader(h.ParentHash, h.Number.Uint64()-1); h == nil {
			return nil, errors.New("invalid old chain")
		}
	}
	for h := newParent; h.Number.Uint64() > ancestor.Number.Uint64(); {
		b := bc.GetBlock(h.Hash(), h.Number.Uint64())
		if b == nil {
			return nil, errors.New("invalid new chain")
		}
		newChain = append(newChain, b)
		if h = bc.GetHeader(h.ParentHash, h.Number.Uint64()-1); h == nil {
			return nil, errors.New("invalid new chain")
		}
	}
	for _, tx := range block.Transactions() {
		added.Add(tx.Hash())
	}
	// Insert the new chain segment in incremental order.
	for i := len(newChain) - 1; i >= 0; i-- {
		b := newChain[i]
		rawdb.WriteCanonicalHash(batch, b.Hash(), b.NumberU64())
		rawdb.WriteTxLookupEntriesByBlock(batch, b)
		for _, tx := range b.Transactions() {
			added.Add(tx.Hash())
		}
	}
	// Drop canonical entries above the new head.
	for n := block.NumberU64() + 1; n <= oldHead.Number.Uint64(); n++ {
		rawdb.DeleteCanonicalHash(batch, n)
	}
	rawdb.DeleteTxLookupEntries(batch, deleted.Difference(added).ToSlice())

	logFn := log.Info
	msg := "Chain reorg detected"
	if len(oldChain) > 63 {
		msg = "Large chain reorg detected"
		logFn = log.Warn
	}
	context := []interface{}{"number", ancestor.Number, "hash", ancestor.Hash(), "drop", len(oldChain)}
	if len(oldChain) > 0 {
		context = append(context, "dropfrom", oldChain[0].Hash())
	}
	context = append(context, "add", len(newChain)+1, "addfrom", block.Hash())
	logFn(msg, context...)
	blockReorgMeter.Mark(1)
	blockReorgAddMeter.Mark(int64(len(newChain) + 1))
	blockReorgDropMeter.Mark(int64(len(oldChain)))
	return oldChain, nil
}

// insertStats tracks and reports on block insertion.
type insertStats struct {
	processed, ignored int
	txs                int
	gas                uint64
	lastIndex          int
	startTime          time.Time
}

// statsReportLimit is the time limit during import and export after which we
// always print out progress. This avoids the user wondering what's going on.
const statsReportLimit = 8 * time.Second

// report prints statistics if some number of blocks have been processed
// or more than a few seconds have passed since the last message.
func (st *insertStats) report(chain []*types.Block, index int) {
	var (
		now     = time.Now()
		elapsed = now.Sub(st.startTime)
	)
	if index == len(chain)-1 || elapsed >= statsReportLimit {
		end := chain[index]
		context := []interface{}{
			"number", end.Number(), "hash", end.Hash(),
			"blocks", st.processed, "txs", st.txs, "mgas", float64(st.gas) / 1000000,
			"elapsed", common.PrettyDuration(elapsed), "mgasps", float64(st.gas) * 1000 / float64(elapsed+1),
		}
		if st.ignored > 0 {
			context = append(context, []interface{}{"ignored", st.ignored}...)
		}
		log.Info("Imported new chain segment", context...)
		*st = insertStats{startTime: now, lastIndex: index + 1}
	}
}

// summarizeBadBlock returns a string summarizing the bad block and other
// relevant information.
func summarizeBadBlock(block *types.Block, receipts []*types.Receipt, config *params.ChainConfig, err error) string {
	var receiptString string
	for i, receipt := range receipts {
		receiptString += fmt.Sprintf("\n  %d: cumulative: %v gas: %v contract: %v status: %v tx: %v logs: %v bloom: %x state: %x",
			i, receipt.CumulativeGasUsed, receipt.GasUsed, receipt.ContractAddress.Hex(),
			receipt.Status, receipt.TxHash.Hex(), receipt.Logs, receipt.Bloom, receipt.PostState)
	}
	platform := fmt.Sprintf("%s %s %s", runtime.Version(), runtime.GOARCH, runtime.GOOS)
	return fmt.Sprintf(`
########## BAD BLOCK #########
Block: %v (%#x)
Error: %v
Platform: %v
Chain config: %#v
Receipts: %v
##############################
`, block.Number(), block.Hash(), err, platform, config, receiptString)
}
