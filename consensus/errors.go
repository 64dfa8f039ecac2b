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

package consensus

import "errors"

var (
	// ErrUnknownAncestor is returned when validating a block requires an ancestor
	// that is unknown.
	ErrUnknownAncestor = errors.New("unknown ancestor")

	// ErrPrunedAncestor is returned when validating a block requires an ancestor
	// that is known, but the state of which is not available.
	ErrPrunedAncestor = errors.New("pruned ancestor")

	// ErrFutureBlock is returned when a block's timestamp is in the future according
	// to the current node.
	ErrFutureBlock = errors.New("block in the future")

	// ErrInvalidNumber is returned if a block's number doesn't equal its parent's
	// plus one.
	ErrInvalidNumber = errors.New("invalid block number")

	// ErrInvalidParent is returned if a header's parent hash does not match the
	// header it is validated against.
	ErrInvalidParent = errors.New("invalid parent hash")

	// ErrOlderBlockTime is returned if a header's timestamp is not strictly after
	// its parent's.
	ErrOlderBlockTime = errors.New("timestamp older than parent")

	// ErrInvalidGasLimit is returned if the gas limit moved outside of the allowed
	// bounds relative to the parent.
	ErrInvalidGasLimit = errors.New("invalid gas limit")

	// ErrInvalidGasUsed is returned if a header claims more gas used than its limit.
	ErrInvalidGasUsed = errors.New("invalid gas used")

	// ErrInvalidBaseFee is returned if the base fee is missing or not the one
	// derived from the parent.
	ErrInvalidBaseFee = errors.New("invalid base fee")

	// ErrInvalidDifficulty is returned if the difficulty does not follow the
	// adjustment algorithm.
	ErrInvalidDifficulty = errors.New("invalid difficulty")

	// ErrExtraDataTooLong is returned if the extra-data section exceeds the limit.
	ErrExtraDataTooLong = errors.New("extra-data too long")

	// ErrInvalidPoW is returned if the seal of a header does not satisfy its
	// difficulty.
	ErrInvalidPoW = errors.New("invalid proof-of-work")

	// ErrInvalidUncle is the common cause wrapped by every ommer rejection.
	ErrInvalidUncle = errors.New("invalid uncle")
)
