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
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/nodeforge/chaincore/consensus"
	"github.com/nodeforge/chaincore/consensus/ethash"
	"github.com/nodeforge/chaincore/core/rawdb"
	"github.com/nodeforge/chaincore/core/types"
	"github.com/nodeforge/chaincore/core/vm"
	"github.com/nodeforge/chaincore/params"
	"github.com/stretchr/testify/require"
)

func newValidatorChain(t *testing.T, engine consensus.Engine, n int) (*BlockChain, []*types.Block, []types.Receipts) {
	t.Helper()

	gspec := &Genesis{Config: params.TestChainConfig, Alloc: GenesisAlloc{testAddr: {Balance: testBalance}}}
	_, blocks, receipts := GenerateChainWithGenesis(gspec, ethash.NewFaker(), n, func(i int, b *BlockGen) {
		b.SetCoinbase(common.Address{1})
		to := common.Address{0x42}
		b.AddTx(types.MustSignNewTx(testKey, b.Signer(), &types.LegacyTx{
			Nonce:    b.TxNonce(testAddr),
			To:       &to,
			Value:    big.NewInt(1),
			Gas:      params.TxGas,
			GasPrice: testGasTip,
		}))
	})
	chain, err := NewBlockChain(rawdb.NewMemoryDatabase(), nil, gspec, engine, vm.Config{})
	require.NoError(t, err)
	t.Cleanup(chain.Stop)
	return chain, blocks, receipts
}

func parentOf(chain *BlockChain, blocks []*types.Block, i int) *types.Header {
	if i == 0 {
		return chain.Genesis().Header()
	}
	return blocks[i-1].Header()
}

// Tests that simple header verification works, for both good and bad blocks.
func TestHeaderVerification(t *testing.T) {
	chain, blocks, _ := newValidatorChain(t, ethash.NewFaker(), 8)

	for i, block := range blocks {
		parent := parentOf(chain, blocks, i)
		require.NoError(t, chain.Validator().ValidateHeader(block.Header(), parent, consensus.FullValidation), "block %d", i)

		failer, _, _ := newValidatorChain(t, ethash.NewFakeFailer(block.NumberU64()), 0)
		err := failer.Validator().ValidateHeader(block.Header(), parent, consensus.FullValidation)
		require.ErrorIs(t, err, consensus.ErrInvalidPoW, "block %d", i)
	}
}

func TestHeaderValidationModes(t *testing.T) {
	// A real proof-of-work engine rejects the unsealed generated blocks, but
	// only when the seal is part of the check.
	chain, blocks, _ := newValidatorChain(t, ethash.New(ethash.Config{}), 1)
	var (
		v      = chain.Validator()
		header = blocks[0].Header()
		parent = chain.Genesis().Header()
	)
	require.ErrorIs(t, v.ValidateHeader(header, parent, consensus.FullValidation), consensus.ErrInvalidPoW)
	require.NoError(t, v.ValidateHeader(header, parent, consensus.LightValidation))
	require.NoError(t, v.ValidateHeader(header, parent, consensus.NoValidation))

	// Engine rules such as difficulty are skipped only without validation.
	wrong := types.CopyHeader(header)
	wrong.Difficulty = new(big.Int).Add(header.Difficulty, big.NewInt(1))
	require.ErrorIs(t, v.ValidateHeader(wrong, parent, consensus.LightValidation), consensus.ErrInvalidDifficulty)
	require.NoError(t, v.ValidateHeader(wrong, parent, consensus.NoValidation))
}

func TestHeaderInvariantsInEveryMode(t *testing.T) {
	chain, blocks, _ := newValidatorChain(t, ethash.NewFaker(), 1)
	var (
		v      = chain.Validator()
		parent = chain.Genesis().Header()
	)
	for _, mode := range []consensus.HeaderMode{consensus.FullValidation, consensus.LightValidation, consensus.NoValidation} {
		stale := blocks[0].Header()
		stale.Time = parent.Time
		require.ErrorIs(t, v.ValidateHeader(stale, parent, mode), consensus.ErrOlderBlockTime, "mode %v", mode)

		overused := blocks[0].Header()
		overused.GasUsed = overused.GasLimit + 1
		require.ErrorIs(t, v.ValidateHeader(overused, parent, mode), consensus.ErrInvalidGasUsed, "mode %v", mode)
	}
}

func TestHeaderLinkage(t *testing.T) {
	chain, blocks, _ := newValidatorChain(t, ethash.NewFaker(), 2)
	v := chain.Validator()

	// Linkage holds in every mode.
	for _, mode := range []consensus.HeaderMode{consensus.FullValidation, consensus.LightValidation, consensus.NoValidation} {
		require.ErrorIs(t, v.ValidateHeader(blocks[1].Header(), chain.Genesis().Header(), mode), consensus.ErrInvalidParent, "mode %v", mode)
		require.ErrorIs(t, v.ValidateHeader(blocks[0].Header(), nil, mode), consensus.ErrUnknownAncestor, "mode %v", mode)

		skipped := types.CopyHeader(blocks[0].Header())
		skipped.Number = big.NewInt(2)
		require.ErrorIs(t, v.ValidateHeader(skipped, chain.Genesis().Header(), mode), consensus.ErrInvalidNumber, "mode %v", mode)
	}
}

func TestHeaderGasUsedAboveLimit(t *testing.T) {
	chain, blocks, _ := newValidatorChain(t, ethash.NewFaker(), 1)

	header := blocks[0].Header()
	header.GasUsed = header.GasLimit + 1
	err := chain.Validator().ValidateHeader(header, chain.Genesis().Header(), consensus.FullValidation)
	require.ErrorIs(t, err, consensus.ErrInvalidGasUsed)
}

func TestBodyValidation(t *testing.T) {
	chain, blocks, _ := newValidatorChain(t, ethash.NewFaker(), 1)
	var (
		v     = chain.Validator()
		block = blocks[0]
	)
	require.NoError(t, v.ValidateBody(block, consensus.FullValidation))

	header := block.Header()
	header.TxHash = common.Hash{0xde, 0xad}
	require.ErrorIs(t, v.ValidateBody(block.WithSeal(header), consensus.FullValidation), ErrInvalidTxRoot)

	header = block.Header()
	header.UncleHash = common.Hash{0xde, 0xad}
	require.ErrorIs(t, v.ValidateBody(block.WithSeal(header), consensus.FullValidation), ErrInvalidUncleHash)

	// Dropping a transaction from the body breaks the commitment too.
	stripped := block.WithBody(types.Body{Uncles: block.Uncles()})
	require.ErrorIs(t, v.ValidateBody(stripped, consensus.FullValidation), ErrInvalidTxRoot)
}

func TestReceiptValidation(t *testing.T) {
	chain, blocks, receipts := newValidatorChain(t, ethash.NewFaker(), 2)
	v := chain.Validator()

	require.NoError(t, v.ValidateReceipts(blocks[0], receipts[0]))
	require.ErrorIs(t, v.ValidateReceipts(blocks[0], nil), ErrReceiptCount)

	// Receipts of a sibling block carry a different cumulative gas or root.
	forged := types.Receipts{{
		Type:              receipts[0][0].Type,
		Status:            types.ReceiptStatusFailed,
		CumulativeGasUsed: receipts[0][0].CumulativeGasUsed,
		Logs:              []*types.Log{},
	}}
	forged[0].Bloom = types.CreateBloom(forged)
	require.ErrorIs(t, v.ValidateReceipts(blocks[0], forged), ErrInvalidReceiptRoot)

	short := types.Receipts{{
		Type:              receipts[0][0].Type,
		Status:            types.ReceiptStatusSuccessful,
		CumulativeGasUsed: receipts[0][0].CumulativeGasUsed - 1,
		Logs:              []*types.Log{},
	}}
	require.ErrorIs(t, v.ValidateReceipts(blocks[0], short), ErrGasUsedMismatch)
}

func TestCalcGasLimit(t *testing.T) {
	for i, tc := range []struct {
		pGasLimit uint64
		max       uint64
		min       uint64
	}{
		{20000000, 20019530, 19980470},
		{40000000, 40039061, 39960939},
	} {
		// Increase
		if have, want := CalcGasLimit(tc.pGasLimit, 2*tc.pGasLimit), tc.max; have != want {
			t.Errorf("test %d: have %d want <%d", i, have, want)
		}
		// Decrease
		if have, want := CalcGasLimit(tc.pGasLimit, 0), tc.min; have != want {
			t.Errorf("test %d: have %d want >%d", i, have, want)
		}
		// Small decrease
		if have, want := CalcGasLimit(tc.pGasLimit, tc.pGasLimit-1), tc.pGasLimit-1; have != want {
			t.Errorf("test %d: have %d want %d", i, have, want)
		}
		// Small increase
		if have, want := CalcGasLimit(tc.pGasLimit, tc.pGasLimit+1), tc.pGasLimit+1; have != want {
			t.Errorf("test %d: have %d want %d", i, have, want)
		}
		// No change
		if have, want := CalcGasLimit(tc.pGasLimit, tc.pGasLimit), tc.pGasLimit; have != want {
			t.Errorf("test %d: have %d want %d", i, have, want)
		}
	}
}
