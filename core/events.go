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

package core

import (
	"github.com/nodeforge/chaincore/core/types"
)

// ChainHeadEvent is posted when a block becomes the new head of the canonical
// chain.
type ChainHeadEvent struct {
	Header   *types.Header
	Receipts types.Receipts

	// Reorg is set when the new head does not extend the previous one.
	Reorg bool
}

// ChainSideEvent is posted for blocks that were imported but are not part of
// the canonical chain, including blocks dropped by a reorg.
type ChainSideEvent struct {
	Header *types.Header
}
