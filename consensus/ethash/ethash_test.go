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
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/nodeforge/chaincore/consensus"
	"github.com/nodeforge/chaincore/consensus/misc/eip1559"
	"github.com/nodeforge/chaincore/core/rawdb"
	"github.com/nodeforge/chaincore/core/state"
	"github.com/nodeforge/chaincore/core/types"
	"github.com/nodeforge/chaincore/params"
	"github.com/nodeforge/chaincore/trie"
	"github.com/stretchr/testify/require"
)

// testChain is a minimal in-memory consensus.ChainReader.
type testChain struct {
	config *params.ChainConfig
	blocks map[common.Hash]*types.Block
	head   *types.Block
}

func newTestChain(config *params.ChainConfig) (*testChain, *types.Block) {
	genesis := types.NewBlockWithHeader(&types.Header{
		Number:     new(big.Int),
		Difficulty: new(big.Int).Set(params.GenesisDifficulty),
		GasLimit:   8_000_000,
		BaseFee:    big.NewInt(params.InitialBaseFee),
		UncleHash:  types.EmptyUncleHash,
		Root:       types.EmptyRootHash,
	})
	c := &testChain{config: config, blocks: map[common.Hash]*types.Block{genesis.Hash(): genesis}, head: genesis}
	return c, genesis
}

func (c *testChain) Config() *params.ChainConfig  { return c.config }
func (c *testChain) CurrentHeader() *types.Header { return c.head.Header() }
func (c *testChain) GetHeader(hash common.Hash, number uint64) *types.Header {
	if b := c.GetBlock(hash, number); b != nil {
		return b.Header()
	}
	return nil
}
func (c *testChain) GetHeaderByNumber(number uint64) *types.Header { return nil }
func (c *testChain) GetHeaderByHash(hash common.Hash) *types.Header {
	if b, ok := c.blocks[hash]; ok {
		return b.Header()
	}
	return nil
}
func (c *testChain) GetTd(common.Hash, uint64) *big.Int { return nil }
func (c *testChain) GetBlock(hash common.Hash, number uint64) *types.Block {
	if b, ok := c.blocks[hash]; ok && b.NumberU64() == number {
		return b
	}
	return nil
}

// child builds a valid header on top of parent.
func child(config *params.ChainConfig, parent *types.Header, coinbase byte) *types.Header {
	header := &types.Header{
		ParentHash: parent.Hash(),
		Coinbase:   common.Address{coinbase},
		Number:     new(big.Int).Add(parent.Number, big.NewInt(1)),
		GasLimit:   parent.GasLimit,
		Time:       parent.Time + 10,
		UncleHash:  types.EmptyUncleHash,
		Root:       types.EmptyRootHash,
	}
	header.Difficulty = CalcDifficulty(config, header.Time, parent)
	if config.IsLondon(header.Number) {
		header.BaseFee = eip1559.CalcBaseFee(config, parent)
	}
	return header
}

func (c *testChain) insert(header *types.Header, uncles ...*types.Header) *types.Block {
	block := types.NewBlock(header, &types.Body{Uncles: uncles}, nil, trie.NewEmpty(nil))
	c.blocks[block.Hash()] = block
	c.head = block
	return block
}

func fixedClock(engine *Ethash) *Ethash {
	engine.now = func() time.Time { return time.Unix(1_000_000, 0) }
	return engine
}

func TestCalcDifficultyFrontier(t *testing.T) {
	config := &params.ChainConfig{ChainID: big.NewInt(1)}
	parent := &types.Header{Number: big.NewInt(100), Time: 1000, Difficulty: big.NewInt(1_000_000)}

	// Faster than the duration limit raises the difficulty
	require.Equal(t, int64(1_000_000+1_000_000/2048), CalcDifficulty(config, 1005, parent).Int64())
	// Slower lowers it
	require.Equal(t, int64(1_000_000-1_000_000/2048), CalcDifficulty(config, 1020, parent).Int64())

	// Never below the minimum
	parent.Difficulty = new(big.Int).Set(params.MinimumDifficulty)
	require.Equal(t, params.MinimumDifficulty.Int64(), CalcDifficulty(config, 2000, parent).Int64())
}

func TestCalcDifficultyByzantium(t *testing.T) {
	parent := &types.Header{Number: big.NewInt(100), Time: 1000, Difficulty: big.NewInt(2_048_000), UncleHash: types.EmptyUncleHash}

	// 1 - (5 // 9) = 1 step up
	require.Equal(t, int64(2_049_000), CalcDifficulty(params.TestChainConfig, 1005, parent).Int64())
	// 1 - (30 // 9) = -2 steps
	require.Equal(t, int64(2_046_000), CalcDifficulty(params.TestChainConfig, 1030, parent).Int64())

	// Uncles in the parent add one extra step
	parent.UncleHash = common.Hash{0x01}
	require.Equal(t, int64(2_050_000), CalcDifficulty(params.TestChainConfig, 1005, parent).Int64())

	// Adjustment is capped at -99 steps
	parent.UncleHash = types.EmptyUncleHash
	parent.Difficulty = big.NewInt(204_800_000)
	require.Equal(t, int64(204_800_000-99*100_000), CalcDifficulty(params.TestChainConfig, 1000+9*200, parent).Int64())
}

func TestSealAndVerify(t *testing.T) {
	engine := New(Config{PowMode: ModeNormal})
	header := &types.Header{
		Number:     big.NewInt(1),
		Difficulty: big.NewInt(64),
		GasLimit:   8_000_000,
		Time:       10,
	}
	sealed, err := engine.Seal(header, nil)
	require.NoError(t, err)
	require.NoError(t, engine.VerifySeal(sealed))
	require.Equal(t, engine.SealHash(header), engine.SealHash(sealed), "sealing must not touch sealed fields")

	tampered := types.CopyHeader(sealed)
	tampered.Nonce = types.EncodeNonce(sealed.Nonce.Uint64() + 1)
	require.ErrorIs(t, engine.VerifySeal(tampered), consensus.ErrInvalidPoW)

	tampered = types.CopyHeader(sealed)
	tampered.Extra = []byte("changed")
	require.ErrorIs(t, engine.VerifySeal(tampered), consensus.ErrInvalidPoW)
}

func TestSealStop(t *testing.T) {
	engine := New(Config{PowMode: ModeNormal})
	stop := make(chan struct{})
	close(stop)

	// An impossible difficulty only terminates through the stop channel
	header := &types.Header{Number: big.NewInt(1), Difficulty: new(big.Int).Lsh(big.NewInt(1), 255)}
	_, err := engine.Seal(header, stop)
	require.ErrorIs(t, err, errSealStopped)
}

func TestFakeSeal(t *testing.T) {
	header := &types.Header{Number: big.NewInt(3), Difficulty: big.NewInt(1)}
	require.NoError(t, NewFaker().VerifySeal(header))
	require.NoError(t, NewFullFaker().VerifySeal(header))
	require.ErrorIs(t, NewFakeFailer(3).VerifySeal(header), consensus.ErrInvalidPoW)
	require.NoError(t, NewFakeFailer(4).VerifySeal(header))
}

func TestVerifyHeader(t *testing.T) {
	chain, genesis := newTestChain(params.TestChainConfig)
	engine := fixedClock(NewFaker())

	valid := child(chain.config, genesis.Header(), 1)
	require.NoError(t, engine.VerifyHeader(chain, valid, genesis.Header(), consensus.FullValidation))

	tests := []struct {
		name   string
		mutate func(h *types.Header)
		want   error
	}{
		{"extra", func(h *types.Header) { h.Extra = make([]byte, params.MaximumExtraDataSize+1) }, consensus.ErrExtraDataTooLong},
		{"future", func(h *types.Header) { h.Time = 1_000_000 + 16 }, consensus.ErrFutureBlock},
		{"time", func(h *types.Header) { h.Time = genesis.Time() }, consensus.ErrOlderBlockTime},
		{"number", func(h *types.Header) { h.Number = big.NewInt(2) }, consensus.ErrInvalidNumber},
		{"difficulty", func(h *types.Header) { h.Difficulty = big.NewInt(1) }, consensus.ErrInvalidDifficulty},
		{"gasused", func(h *types.Header) { h.GasUsed = h.GasLimit + 1 }, consensus.ErrInvalidGasUsed},
		{"gaslimit", func(h *types.Header) { h.GasLimit = h.GasLimit * 2 }, consensus.ErrInvalidGasLimit},
		{"basefee", func(h *types.Header) { h.BaseFee = new(big.Int).Add(h.BaseFee, common.Big1) }, consensus.ErrInvalidBaseFee},
		{"nobasefee", func(h *types.Header) { h.BaseFee = nil }, consensus.ErrInvalidBaseFee},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			header := types.CopyHeader(valid)
			tt.mutate(header)
			require.ErrorIs(t, engine.VerifyHeader(chain, header, genesis.Header(), consensus.LightValidation), tt.want)

			// Nothing is checked without validation
			require.NoError(t, engine.VerifyHeader(chain, header, genesis.Header(), consensus.NoValidation))
		})
	}
}

func TestVerifyHeaderPreLondon(t *testing.T) {
	chain, genesis := newTestChain(params.PreLondonConfig)
	engine := fixedClock(NewFaker())

	parent := genesis.Header()
	parent.BaseFee = nil
	header := child(chain.config, parent, 1)
	require.Nil(t, header.BaseFee)
	require.NoError(t, engine.VerifyHeader(chain, header, parent, consensus.FullValidation))

	header.BaseFee = big.NewInt(params.InitialBaseFee)
	require.ErrorIs(t, engine.VerifyHeader(chain, header, parent, consensus.FullValidation), consensus.ErrInvalidBaseFee)
}

func TestVerifyHeaderSealModes(t *testing.T) {
	chain, genesis := newTestChain(params.TestChainConfig)
	engine := fixedClock(NewFakeFailer(1))

	header := child(chain.config, genesis.Header(), 1)
	require.ErrorIs(t, engine.VerifyHeader(chain, header, genesis.Header(), consensus.FullValidation), consensus.ErrInvalidPoW)

	pow := fixedClock(New(Config{}))
	require.ErrorIs(t, pow.VerifyHeader(chain, header, genesis.Header(), consensus.FullValidation), consensus.ErrInvalidPoW)
	require.NoError(t, pow.VerifyHeader(chain, header, genesis.Header(), consensus.LightValidation))
}

func TestVerifyUncles(t *testing.T) {
	config := params.TestChainConfig
	engine := fixedClock(NewFaker())

	chain, genesis := newTestChain(config)
	b1 := chain.insert(child(config, genesis.Header(), 1))
	uncle := child(config, genesis.Header(), 2)
	sibling := child(config, b1.Header(), 3)

	build := func(uncles ...*types.Header) *types.Block {
		header := child(config, b1.Header(), 4)
		return types.NewBlock(header, &types.Body{Uncles: uncles}, nil, trie.NewEmpty(nil))
	}
	require.NoError(t, engine.VerifyUncles(chain, build(), consensus.FullValidation))
	require.NoError(t, engine.VerifyUncles(chain, build(uncle), consensus.FullValidation))

	other := child(config, genesis.Header(), 5)
	third := child(config, genesis.Header(), 6)
	tests := []struct {
		name   string
		uncles []*types.Header
		want   error
	}{
		{"too many", []*types.Header{uncle, other, third}, errTooManyUncles},
		{"duplicate", []*types.Header{uncle, uncle}, errDuplicateUncle},
		{"ancestor", []*types.Header{b1.Header()}, errUncleIsAncestor},
		{"dangling", []*types.Header{sibling}, errDanglingUncle},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := engine.VerifyUncles(chain, build(tt.uncles...), consensus.FullValidation)
			require.ErrorIs(t, err, consensus.ErrInvalidUncle)
			require.ErrorIs(t, err, tt.want)
		})
	}
	// An uncle with broken header fields is only caught with validation on
	broken := types.CopyHeader(uncle)
	broken.Difficulty = big.NewInt(1)
	require.ErrorIs(t, engine.VerifyUncles(chain, build(broken), consensus.LightValidation), consensus.ErrInvalidDifficulty)
	require.NoError(t, engine.VerifyUncles(chain, build(broken), consensus.NoValidation))

	// Uncles already included by an ancestor are rejected
	b2 := chain.insert(child(config, b1.Header(), 7), uncle)
	header := child(config, b2.Header(), 8)
	block := types.NewBlock(header, &types.Body{Uncles: []*types.Header{uncle}}, nil, trie.NewEmpty(nil))
	require.ErrorIs(t, engine.VerifyUncles(chain, block, consensus.FullValidation), errDuplicateUncle)
}

func TestAccumulateRewards(t *testing.T) {
	statedb, err := state.New(types.EmptyRootHash, state.NewDatabase(rawdb.NewMemoryDatabase()))
	require.NoError(t, err)

	var (
		miner  = common.Address{0xaa}
		uncler = common.Address{0xbb}
		header = &types.Header{Number: big.NewInt(10), Coinbase: miner}
		uncle  = &types.Header{Number: big.NewInt(9), Coinbase: uncler}
		reward = ConstantinopleBlockReward.Uint64()
		chain  = &testChain{config: params.TestChainConfig}
		engine = NewFaker()
	)
	engine.Finalize(chain, header, statedb, []*types.Header{uncle})

	require.Equal(t, uint256.NewInt(reward+reward/32), statedb.GetBalance(miner))
	require.Equal(t, uint256.NewInt(reward*7/8), statedb.GetBalance(uncler))
}

func TestBlockRewardSchedule(t *testing.T) {
	statedb, err := state.New(types.EmptyRootHash, state.NewDatabase(rawdb.NewMemoryDatabase()))
	require.NoError(t, err)

	config := &params.ChainConfig{ChainID: big.NewInt(1), HomesteadBlock: big.NewInt(0), ByzantiumBlock: big.NewInt(5)}
	miner := common.Address{0x01}
	accumulateRewards(config, statedb, &types.Header{Number: big.NewInt(1), Coinbase: miner}, nil)
	require.Equal(t, FrontierBlockReward, statedb.GetBalance(miner))

	accumulateRewards(config, statedb, &types.Header{Number: big.NewInt(5), Coinbase: miner}, nil)
	require.Equal(t, new(uint256.Int).Add(FrontierBlockReward, ByzantiumBlockReward), statedb.GetBalance(miner))
}
