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

package core

import (
	"fmt"

	"github.com/nodeforge/chaincore/consensus"
	"github.com/nodeforge/chaincore/core/state"
	"github.com/nodeforge/chaincore/core/types"
	"github.com/nodeforge/chaincore/params"
	"github.com/nodeforge/chaincore/trie"
)

// BlockValidator is responsible for validating block headers, uncles and
// processed state.
//
// BlockValidator implements Validator.
type BlockValidator struct {
	config *params.ChainConfig // Chain configuration options
	bc     *BlockChain         // Canonical block chain
}

// NewBlockValidator returns a new block validator which is safe for re-use
func NewBlockValidator(config *params.ChainConfig, blockchain *BlockChain) *BlockValidator {
	validator := &BlockValidator{
		config: config,
		bc:     blockchain,
	}
	return validator
}

// ValidateHeader checks that header extends parent. Linkage, timestamp order
// and the gas used bound are always checked; the remaining consensus rules are
// left to the engine unless mode is NoValidation.
func (v *BlockValidator) ValidateHeader(header, parent *types.Header, mode consensus.HeaderMode) error {
	if parent == nil {
		return consensus.ErrUnknownAncestor
	}
	if header.ParentHash != parent.Hash() {
		return fmt.Errorf("%w: have %x, want %x", consensus.ErrInvalidParent, header.ParentHash, parent.Hash())
	}
	if header.Number == nil || header.Number.Uint64() != parent.Number.Uint64()+1 {
		return fmt.Errorf("%w: have %v, parent %v", consensus.ErrInvalidNumber, header.Number, parent.Number)
	}
	if header.Time <= parent.Time {
		return fmt.Errorf("%w: have %d, parent %d", consensus.ErrOlderBlockTime, header.Time, parent.Time)
	}
	if header.GasUsed > header.GasLimit {
		return fmt.Errorf("%w: have %d, gasLimit %d", consensus.ErrInvalidGasUsed, header.GasUsed, header.GasLimit)
	}
	if mode == consensus.NoValidation {
		return nil
	}
	if err := header.SanityCheck(); err != nil {
		return err
	}
	return v.bc.engine.VerifyHeader(v.bc, header, parent, mode)
}

// ValidateBody validates the given block's uncles and verifies the block
// header's transaction and uncle roots. The headers are assumed to be already
// validated at this point.
func (v *BlockValidator) ValidateBody(block *types.Block, ommerMode consensus.HeaderMode) error {
	// Header validity is known at this point. Here we verify that uncles, transactions
	// and withdrawals given in the block body match the header.
	header := block.Header()
	if hash := types.CalcUncleHash(block.Uncles()); hash != header.UncleHash {
		return fmt.Errorf("%w: (header value %x, calculated %x)", ErrInvalidUncleHash, header.UncleHash, hash)
	}
	if hash := types.DeriveSha(block.Transactions(), trie.NewEmpty(nil)); hash != header.TxHash {
		return fmt.Errorf("%w: (header value %x, calculated %x)", ErrInvalidTxRoot, header.TxHash, hash)
	}
	return v.bc.engine.VerifyUncles(v.bc, block, ommerMode)
}

// ValidateState validates the various changes that happen after a state transition,
// such as amount of used gas, the receipt roots and the state root itself.
func (v *BlockValidator) ValidateState(block *types.Block, statedb *state.StateDB, res *ProcessResult) error {
	header := block.Header()
	if block.GasUsed() != res.GasUsed {
		return fmt.Errorf("%w: (remote: %d local: %d)", ErrGasUsedMismatch, block.GasUsed(), res.GasUsed)
	}
	// Validate the received block's bloom with the one derived from the generated receipts.
	// For valid blocks this should always validate to true.
	rbloom := types.CreateBloom(res.Receipts)
	if rbloom != header.Bloom {
		return fmt.Errorf("%w: (remote: %x  local: %x)", ErrInvalidBloom, header.Bloom, rbloom)
	}
	// The receipt Trie's root (R = (Tr [[H1, R1], ... [Hn, Rn]]))
	receiptSha := types.DeriveSha(res.Receipts, trie.NewEmpty(nil))
	if receiptSha != header.ReceiptHash {
		return fmt.Errorf("%w: (remote: %x local: %x)", ErrInvalidReceiptRoot, header.ReceiptHash, receiptSha)
	}
	// Validate the state root against the received state root and throw
	// an error if they don't match.
	if root := statedb.IntermediateRoot(v.config.IsEIP158(header.Number)); header.Root != root {
		return fmt.Errorf("%w: (remote: %x local: %x) dberr: %v", ErrInvalidStateRoot, header.Root, root, statedb.Error())
	}
	return nil
}

// ValidateReceipts checks receipts supplied alongside a block against the
// header's commitments. It is used when the block is not executed locally.
func (v *BlockValidator) ValidateReceipts(block *types.Block, receipts types.Receipts) error {
	header := block.Header()
	if len(receipts) != len(block.Transactions()) {
		return fmt.Errorf("%w: have %d, want %d", ErrReceiptCount, len(receipts), len(block.Transactions()))
	}
	var gasUsed uint64
	if len(receipts) > 0 {
		gasUsed = receipts[len(receipts)-1].CumulativeGasUsed
	}
	if gasUsed != header.GasUsed {
		return fmt.Errorf("%w: (remote: %d local: %d)", ErrGasUsedMismatch, header.GasUsed, gasUsed)
	}
	if rbloom := types.CreateBloom(receipts); rbloom != header.Bloom {
		return fmt.Errorf("%w: (remote: %x  local: %x)", ErrInvalidBloom, header.Bloom, rbloom)
	}
	if receiptSha := types.DeriveSha(receipts, trie.NewEmpty(nil)); receiptSha != header.ReceiptHash {
		return fmt.Errorf("%w: (remote: %x local: %x)", ErrInvalidReceiptRoot, header.ReceiptHash, receiptSha)
	}
	return nil
}

// CalcGasLimit computes the gas limit of the next block after parent. It aims
// to keep the baseline gas close to the provided target, and increase it towards
// the target if the baseline gas is lower.
func CalcGasLimit(parentGasLimit, desiredLimit uint64) uint64 {
	delta := parentGasLimit/params.GasLimitBoundDivisor - 1
	limit := parentGasLimit
	if desiredLimit < params.MinGasLimit {
		desiredLimit = params.MinGasLimit
	}
	// If we're outside our allowed gas range, we try to hone towards them
	if limit < desiredLimit {
		limit = parentGasLimit + delta
		if limit > desiredLimit {
			limit = desiredLimit
		}
		return limit
	}
	if limit > desiredLimit {
		limit = parentGasLimit - delta
		if limit < desiredLimit {
			limit = desiredLimit
		}
	}
	return limit
}
