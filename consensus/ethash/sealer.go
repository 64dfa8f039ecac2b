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

package ethash

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/nodeforge/chaincore/consensus"
	"github.com/nodeforge/chaincore/core/types"
)

// two256 is a big integer representing 2^256
var two256 = new(big.Int).Exp(big.NewInt(2), big.NewInt(256), big.NewInt(0))

// errSealStopped is returned by Seal if the stop channel fired before a
// valid nonce was found.
var errSealStopped = errors.New("sealing stopped")

// hashimoto derives the mix digest and the final PoW value for a seal hash and
// nonce. The mix binds the nonce to the header; the result is compared against
// the difficulty target.
func hashimoto(sealHash common.Hash, nonce uint64) (digest common.Hash, result []byte) {
	var seed [40]byte
	copy(seed[:], sealHash[:])
	binary.LittleEndian.PutUint64(seed[32:], nonce)

	digest = crypto.Keccak256Hash(seed[:])
	return digest, crypto.Keccak256(seed[:], digest[:])
}

// target returns the highest PoW value accepted at the given difficulty.
func target(difficulty *big.Int) *big.Int {
	return new(big.Int).Div(two256, difficulty)
}

// VerifySeal checks whether a block satisfies the PoW difficulty requirements.
func (ethash *Ethash) VerifySeal(header *types.Header) error {
	// If we're running a fake PoW, accept any seal as valid
	if ethash.config.PowMode == ModeFake || ethash.config.PowMode == ModeFullFake {
		if ethash.fakeFail != nil && *ethash.fakeFail == header.Number.Uint64() {
			return fmt.Errorf("%w: %w", consensus.ErrInvalidPoW, errTesterPoW)
		}
		return nil
	}
	// Ensure that we have a valid difficulty for the block
	if header.Difficulty.Sign() <= 0 {
		return fmt.Errorf("%w: non-positive difficulty", consensus.ErrInvalidDifficulty)
	}
	digest, result := hashimoto(ethash.SealHash(header), header.Nonce.Uint64())
	if header.MixDigest != digest {
		return fmt.Errorf("%w: %w", consensus.ErrInvalidPoW, errInvalidMixDigest)
	}
	if new(big.Int).SetBytes(result).Cmp(target(header.Difficulty)) > 0 {
		return consensus.ErrInvalidPoW
	}
	return nil
}

// Seal implements consensus.Engine, attempting to find a nonce that satisfies
// the header's difficulty requirements. Fake engines return the header as is.
func (ethash *Ethash) Seal(header *types.Header, stop <-chan struct{}) (*types.Header, error) {
	header = types.CopyHeader(header)
	if ethash.config.PowMode == ModeFake || ethash.config.PowMode == ModeFullFake {
		header.Nonce, header.MixDigest = types.BlockNonce{}, common.Hash{}
		return header, nil
	}
	if header.Difficulty.Sign() <= 0 {
		return nil, fmt.Errorf("%w: non-positive difficulty", consensus.ErrInvalidDifficulty)
	}
	ethash.lock.Lock()
	seed := ethash.rand.Uint64()
	ethash.lock.Unlock()

	var (
		hash     = ethash.SealHash(header)
		boundary = target(header.Difficulty)
		attempts = uint64(0)
		nonce    = seed
	)
	logger := ethash.config.Log.New("number", header.Number, "sealhash", hash)
	logger.Trace("Started ethash search for new nonces", "seed", seed)
	for {
		select {
		case <-stop:
			logger.Trace("Ethash nonce search aborted", "attempts", attempts)
			return nil, errSealStopped
		default:
		}
		digest, result := hashimoto(hash, nonce)
		if new(big.Int).SetBytes(result).Cmp(boundary) <= 0 {
			header.Nonce = types.EncodeNonce(nonce)
			header.MixDigest = digest
			logger.Trace("Ethash nonce found and reported", "attempts", attempts, "nonce", nonce)
			return header, nil
		}
		attempts++
		nonce++
	}
}
