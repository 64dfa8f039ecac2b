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
	"encoding/json"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/log"
	"github.com/holiman/uint256"
	"github.com/nodeforge/chaincore/core/rawdb"
	"github.com/nodeforge/chaincore/core/state"
	"github.com/nodeforge/chaincore/core/types"
	"github.com/nodeforge/chaincore/ethdb"
	"github.com/nodeforge/chaincore/params"
	"github.com/nodeforge/chaincore/trie"
)

var errGenesisNoConfig = errors.New("genesis has no chain configuration")

// Genesis specifies the header fields, state of a genesis block. It also defines
// hard fork switch-over blocks through the chain configuration.
type Genesis struct {
	Config     *params.ChainConfig
	Nonce      uint64
	Timestamp  uint64
	ExtraData  []byte
	GasLimit   uint64
	Difficulty *big.Int
	Mixhash    common.Hash
	Coinbase   common.Address
	Alloc      GenesisAlloc

	// These fields are used for consensus tests. Please don't use them
	// in actual genesis blocks.
	Number     uint64
	GasUsed    uint64
	ParentHash common.Hash
	BaseFee    *big.Int
}

// GenesisAlloc specifies the initial state that is part of the genesis block.
type GenesisAlloc map[common.Address]GenesisAccount

// UnmarshalJSON accepts account addresses with or without the 0x prefix.
func (ga *GenesisAlloc) UnmarshalJSON(data []byte) error {
	m := make(map[common.UnprefixedAddress]GenesisAccount)
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	*ga = make(GenesisAlloc)
	for addr, a := range m {
		(*ga)[common.Address(addr)] = a
	}
	return nil
}

// GenesisAccount is an account in the state of the genesis block.
type GenesisAccount struct {
	Code    []byte
	Storage map[common.Hash]common.Hash
	Balance *big.Int
	Nonce   uint64
}

type genesisAccountJSON struct {
	Code    hexutil.Bytes               `json:"code,omitempty"`
	Storage map[common.Hash]common.Hash `json:"storage,omitempty"`
	Balance *math.HexOrDecimal256       `json:"balance"`
	Nonce   math.HexOrDecimal64         `json:"nonce,omitempty"`
}

// MarshalJSON encodes the account with hex quantities.
func (a GenesisAccount) MarshalJSON() ([]byte, error) {
	return json.Marshal(genesisAccountJSON{
		Code:    a.Code,
		Storage: a.Storage,
		Balance: (*math.HexOrDecimal256)(a.Balance),
		Nonce:   math.HexOrDecimal64(a.Nonce),
	})
}

// UnmarshalJSON decodes the account, requiring a balance.
func (a *GenesisAccount) UnmarshalJSON(input []byte) error {
	var dec genesisAccountJSON
	if err := json.Unmarshal(input, &dec); err != nil {
		return err
	}
	if dec.Balance == nil {
		return errors.New("missing required field 'balance' for GenesisAccount")
	}
	a.Code = dec.Code
	a.Storage = dec.Storage
	a.Balance = (*big.Int)(dec.Balance)
	a.Nonce = uint64(dec.Nonce)
	return nil
}

type genesisJSON struct {
	Config     *params.ChainConfig   `json:"config"`
	Nonce      math.HexOrDecimal64   `json:"nonce"`
	Timestamp  math.HexOrDecimal64   `json:"timestamp"`
	ExtraData  hexutil.Bytes         `json:"extraData"`
	GasLimit   *math.HexOrDecimal64  `json:"gasLimit"`
	Difficulty *math.HexOrDecimal256 `json:"difficulty"`
	Mixhash    common.Hash           `json:"mixHash"`
	Coinbase   common.Address        `json:"coinbase"`
	Alloc      GenesisAlloc          `json:"alloc"`
	Number     math.HexOrDecimal64   `json:"number"`
	GasUsed    math.HexOrDecimal64   `json:"gasUsed"`
	ParentHash common.Hash           `json:"parentHash"`
	BaseFee    *math.HexOrDecimal256 `json:"baseFeePerGas"`
}

// MarshalJSON encodes the genesis specification.
func (g Genesis) MarshalJSON() ([]byte, error) {
	gasLimit := math.HexOrDecimal64(g.GasLimit)
	return json.Marshal(genesisJSON{
		Config:     g.Config,
		Nonce:      math.HexOrDecimal64(g.Nonce),
		Timestamp:  math.HexOrDecimal64(g.Timestamp),
		ExtraData:  g.ExtraData,
		GasLimit:   &gasLimit,
		Difficulty: (*math.HexOrDecimal256)(g.Difficulty),
		Mixhash:    g.Mixhash,
		Coinbase:   g.Coinbase,
		Alloc:      g.Alloc,
		Number:     math.HexOrDecimal64(g.Number),
		GasUsed:    math.HexOrDecimal64(g.GasUsed),
		ParentHash: g.ParentHash,
		BaseFee:    (*math.HexOrDecimal256)(g.BaseFee),
	})
}

// UnmarshalJSON decodes a genesis specification. Gas limit, difficulty and
// alloc are required.
func (g *Genesis) UnmarshalJSON(input []byte) error {
	var dec genesisJSON
	if err := json.Unmarshal(input, &dec); err != nil {
		return err
	}
	if dec.GasLimit == nil {
		return errors.New("missing required field 'gasLimit' for Genesis")
	}
	if dec.Difficulty == nil {
		return errors.New("missing required field 'difficulty' for Genesis")
	}
	if dec.Alloc == nil {
		return errors.New("missing required field 'alloc' for Genesis")
	}
	*g = Genesis{
		Config:     dec.Config,
		Nonce:      uint64(dec.Nonce),
		Timestamp:  uint64(dec.Timestamp),
		ExtraData:  dec.ExtraData,
		GasLimit:   uint64(*dec.GasLimit),
		Difficulty: (*big.Int)(dec.Difficulty),
		Mixhash:    dec.Mixhash,
		Coinbase:   dec.Coinbase,
		Alloc:      dec.Alloc,
		Number:     uint64(dec.Number),
		GasUsed:    uint64(dec.GasUsed),
		ParentHash: dec.ParentHash,
		BaseFee:    (*big.Int)(dec.BaseFee),
	}
	return nil
}

// GenesisMismatchError is raised when trying to overwrite an existing
// genesis block with an incompatible one.
type GenesisMismatchError struct {
	Stored, New common.Hash
}

func (e *GenesisMismatchError) Error() string {
	return fmt.Sprintf("database contains incompatible genesis (have %x, new %x)", e.Stored, e.New)
}

// flush writes the allocation into the state database behind db and returns
// the resulting root.
func (ga GenesisAlloc) flush(db ethdb.Database) (common.Hash, error) {
	statedb, err := state.New(types.EmptyRootHash, state.NewDatabase(db))
	if err != nil {
		return common.Hash{}, err
	}
	for addr, account := range ga {
		if account.Balance != nil {
			balance, overflow := uint256.FromBig(account.Balance)
			if overflow {
				return common.Hash{}, fmt.Errorf("balance of %x overflows 256 bits", addr)
			}
			statedb.AddBalance(addr, balance)
		}
		statedb.SetCode(addr, account.Code)
		statedb.SetNonce(addr, account.Nonce)
		for key, value := range account.Storage {
			statedb.SetState(addr, key, value)
		}
	}
	return statedb.Commit(false)
}

// hash computes the state root of the allocation without touching any
// persistent database.
func (ga GenesisAlloc) hash() (common.Hash, error) {
	return ga.flush(rawdb.NewMemoryDatabase())
}

func (g *Genesis) chainConfig() *params.ChainConfig {
	if g.Config == nil {
		return params.AllEthashProtocolChanges
	}
	return g.Config
}

// toBlockWithRoot constructs the genesis block with the given state root.
func (g *Genesis) toBlockWithRoot(root common.Hash) *types.Block {
	head := &types.Header{
		Number:     new(big.Int).SetUint64(g.Number),
		Nonce:      types.EncodeNonce(g.Nonce),
		Time:       g.Timestamp,
		ParentHash: g.ParentHash,
		Extra:      g.ExtraData,
		GasLimit:   g.GasLimit,
		GasUsed:    g.GasUsed,
		BaseFee:    g.BaseFee,
		Difficulty: g.Difficulty,
		MixDigest:  g.Mixhash,
		Coinbase:   g.Coinbase,
		Root:       root,
	}
	if g.GasLimit == 0 {
		head.GasLimit = params.GenesisGasLimit
	}
	if g.Difficulty == nil {
		head.Difficulty = params.GenesisDifficulty
	}
	if g.chainConfig().IsLondon(common.Big0) && head.BaseFee == nil {
		head.BaseFee = new(big.Int).SetUint64(params.InitialBaseFee)
	}
	return types.NewBlock(head, nil, nil, trie.NewEmpty(nil))
}

// ToBlock returns the genesis block according to genesis specification.
func (g *Genesis) ToBlock() *types.Block {
	root, err := g.Alloc.hash()
	if err != nil {
		panic(err)
	}
	return g.toBlockWithRoot(root)
}

// Commit writes the block and state of a genesis specification to the database.
// The block is committed as the canonical head block.
func (g *Genesis) Commit(db ethdb.Database) (*types.Block, error) {
	if g.Number != 0 {
		return nil, errors.New("can't commit genesis block with number > 0")
	}
	config := g.chainConfig()
	if err := config.CheckConfigForkOrder(); err != nil {
		return nil, err
	}
	root, err := g.Alloc.flush(db)
	if err != nil {
		return nil, err
	}
	block := g.toBlockWithRoot(root)

	batch := db.NewBatch()
	rawdb.WriteTd(batch, block.Hash(), block.NumberU64(), block.Difficulty())
	rawdb.WriteBlock(batch, block)
	rawdb.WriteReceipts(batch, block.Hash(), block.NumberU64(), nil)
	rawdb.WriteCanonicalHash(batch, block.Hash(), block.NumberU64())
	rawdb.WriteHeadBlockHash(batch, block.Hash())
	rawdb.WriteHeadHeaderHash(batch, block.Hash())
	rawdb.WriteChainConfig(batch, block.Hash(), config)
	if err := batch.Write(); err != nil {
		return nil, err
	}
	return block, nil
}

// MustCommit writes the genesis block and state to db, panicking on error.
// The block is committed as the canonical head block.
func (g *Genesis) MustCommit(db ethdb.Database) *types.Block {
	block, err := g.Commit(db)
	if err != nil {
		panic(err)
	}
	return block
}

// SetupGenesisBlock writes or updates the genesis block in db.
//
//	                     genesis == nil       genesis != nil
//	                  +------------------------------------------
//	db has no genesis |  ErrNoGenesis         |  genesis
//	db has genesis    |  from DB              |  genesis (if compatible)
//
// The stored chain configuration is returned together with the genesis hash.
func SetupGenesisBlock(db ethdb.Database, genesis *Genesis) (*params.ChainConfig, common.Hash, error) {
	if genesis != nil && genesis.Config == nil {
		return nil, common.Hash{}, errGenesisNoConfig
	}
	stored := rawdb.ReadCanonicalHash(db, 0)
	if (stored == common.Hash{}) {
		if genesis == nil {
			return nil, common.Hash{}, ErrNoGenesis
		}
		log.Info("Writing custom genesis block")
		block, err := genesis.Commit(db)
		if err != nil {
			return nil, common.Hash{}, err
		}
		return genesis.Config, block.Hash(), nil
	}
	if genesis != nil {
		hash := genesis.ToBlock().Hash()
		if hash != stored {
			return nil, common.Hash{}, &GenesisMismatchError{stored, hash}
		}
	}
	storedcfg := rawdb.ReadChainConfig(db, stored)
	if storedcfg == nil {
		if genesis == nil {
			return nil, common.Hash{}, fmt.Errorf("%w: chain config of %x", ErrNoGenesis, stored)
		}
		log.Warn("Found genesis block without chain config")
		rawdb.WriteChainConfig(db, stored, genesis.Config)
		return genesis.Config, stored, nil
	}
	return storedcfg, stored, nil
}
