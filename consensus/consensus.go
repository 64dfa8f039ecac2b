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

// Package consensus implements different Ethereum consensus engines.
package consensus

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/nodeforge/chaincore/core/state"
	"github.com/nodeforge/chaincore/core/types"
	"github.com/nodeforge/chaincore/params"
)

// HeaderMode selects how thoroughly a header is checked before import.
type HeaderMode uint8

const (
	// FullValidation runs every header check, including the seal.
	FullValidation HeaderMode = iota

	// LightValidation runs every header check except the seal.
	LightValidation

	// NoValidation only checks that the header links to its parent.
	NoValidation
)

func (m HeaderMode) String() string {
	switch m {
	case FullValidation:
		return "full"
	case LightValidation:
		return "light"
	case NoValidation:
		return "none"
	default:
		return "unknown"
	}
}

// VerifySeal reports whether the mode requires the seal to be checked.
func (m HeaderMode) VerifySeal() bool { return m == FullValidation }

// ChainHeaderReader defines a small collection of methods needed to access the local
// blockchain during header verification.
type ChainHeaderReader interface {
	// Config retrieves the blockchain's chain configuration.
	Config() *params.ChainConfig

	// CurrentHeader retrieves the current header from the local chain.
	CurrentHeader() *types.Header

	// GetHeader retrieves a block header from the database by hash and number.
	GetHeader(hash common.Hash, number uint64) *types.Header

	// GetHeaderByNumber retrieves a canonical block header from the database by number.
	GetHeaderByNumber(number uint64) *types.Header

	// GetHeaderByHash retrieves a block header from the database by its hash.
	GetHeaderByHash(hash common.Hash) *types.Header

	// GetTd retrieves the total difficulty from the database by hash and number.
	GetTd(hash common.Hash, number uint64) *big.Int
}

// ChainReader defines a small collection of methods needed to access the local
// blockchain during header and/or uncle verification.
type ChainReader interface {
	ChainHeaderReader

	// GetBlock retrieves a block from the database by hash and number.
	GetBlock(hash common.Hash, number uint64) *types.Block
}

// Engine is an algorithm agnostic consensus engine.
type Engine interface {
	// Author retrieves the Ethereum address of the account that minted the given
	// block.
	Author(header *types.Header) (common.Address, error)

	// VerifyHeader checks whether a header conforms to the consensus rules of the
	// engine, given its already known parent. The mode decides whether the seal
	// is checked; NoValidation is handled by the caller and never reaches here.
	VerifyHeader(chain ChainHeaderReader, header, parent *types.Header, mode HeaderMode) error

	// VerifyUncles verifies that the given block's uncles conform to the consensus
	// rules of the engine. Structural checks always run; each uncle header is
	// verified according to mode.
	VerifyUncles(chain ChainReader, block *types.Block, mode HeaderMode) error

	// VerifySeal checks the proof-of-work (or equivalent) of a single header.
	VerifySeal(header *types.Header) error

	// Prepare initializes the consensus fields of a block header according to the
	// rules of a particular engine.
	Prepare(chain ChainHeaderReader, header *types.Header) error

	// Finalize runs any post-transaction state modifications (e.g. block rewards)
	// but does not assemble the block.
	Finalize(chain ChainHeaderReader, header *types.Header, state *state.StateDB, uncles []*types.Header)

	// FinalizeAndAssemble runs any post-transaction state modifications (e.g. block
	// rewards) and assembles the final block.
	FinalizeAndAssemble(chain ChainHeaderReader, header *types.Header, state *state.StateDB, txs []*types.Transaction,
		uncles []*types.Header, receipts []*types.Receipt) (*types.Block, error)

	// Seal generates a sealing request for the given input block and returns the
	// sealed header.
	Seal(header *types.Header, stop <-chan struct{}) (*types.Header, error)

	// SealHash returns the hash of a block prior to it being sealed.
	SealHash(header *types.Header) common.Hash

	// CalcDifficulty is the difficulty adjustment algorithm. It returns the difficulty
	// that a new block should have.
	CalcDifficulty(chain ChainHeaderReader, time uint64, parent *types.Header) *big.Int
}
