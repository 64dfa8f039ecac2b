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

package vm

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
	"github.com/nodeforge/chaincore/core/rawdb"
	"github.com/nodeforge/chaincore/core/state"
	"github.com/nodeforge/chaincore/core/types"
	"github.com/nodeforge/chaincore/params"
	"github.com/stretchr/testify/require"
)

// interpreterFunc adapts a function to the Interpreter interface.
type interpreterFunc func(evm *EVM, contract *Contract, input []byte, readOnly bool) ([]byte, error)

func (f interpreterFunc) Run(evm *EVM, contract *Contract, input []byte, readOnly bool) ([]byte, error) {
	return f(evm, contract, input, readOnly)
}

var (
	testCaller = common.HexToAddress("0xc0ffee")
	testCallee = common.HexToAddress("0xca11ee")
)

func newTestEVM(t *testing.T, interp Interpreter) (*EVM, *state.StateDB) {
	t.Helper()
	statedb, err := state.New(types.EmptyRootHash, state.NewDatabase(rawdb.NewMemoryDatabase()))
	require.NoError(t, err)
	statedb.SetBalance(testCaller, uint256.NewInt(1_000_000))

	blockCtx := BlockContext{
		CanTransfer: func(db StateDB, addr common.Address, amount *uint256.Int) bool {
			return db.GetBalance(addr).Cmp(amount) >= 0
		},
		Transfer: func(db StateDB, sender, recipient common.Address, amount *uint256.Int) {
			db.SubBalance(sender, amount)
			db.AddBalance(recipient, amount)
		},
		GetHash:     func(uint64) common.Hash { return common.Hash{} },
		BlockNumber: big.NewInt(1),
		Difficulty:  big.NewInt(1),
		GasLimit:    10_000_000,
	}
	evm := NewEVM(blockCtx, TxContext{Origin: testCaller, GasPrice: big.NewInt(1)}, statedb, params.TestChainConfig, Config{
		Interpreter:     interp,
		PrecompileCache: NewPrecompileCache(1024 * 1024),
	})
	return evm, statedb
}

func TestCallValueTransfer(t *testing.T) {
	evm, statedb := newTestEVM(t, nil)
	_, left, err := evm.Call(testCaller, testCallee, nil, 1000, uint256.NewInt(10))
	require.NoError(t, err)
	require.Equal(t, uint64(1000), left)
	require.Equal(t, uint64(10), statedb.GetBalance(testCallee).Uint64())
	require.Equal(t, uint64(999_990), statedb.GetBalance(testCaller).Uint64())
}

func TestCallInsufficientBalance(t *testing.T) {
	evm, statedb := newTestEVM(t, nil)
	_, left, err := evm.Call(testCaller, testCallee, nil, 1000, uint256.NewInt(2_000_000))
	require.ErrorIs(t, err, ErrInsufficientBalance)
	require.Equal(t, uint64(1000), left)
	require.False(t, statedb.Exist(testCallee))
}

func TestCallNonExistentNoValue(t *testing.T) {
	evm, statedb := newTestEVM(t, nil)
	_, _, err := evm.Call(testCaller, testCallee, nil, 1000, new(uint256.Int))
	require.NoError(t, err)
	require.False(t, statedb.Exist(testCallee))
}

func TestCallWithoutInterpreter(t *testing.T) {
	evm, statedb := newTestEVM(t, nil)
	statedb.SetCode(testCallee, []byte{0x00})

	_, left, err := evm.Call(testCaller, testCallee, nil, 1000, uint256.NewInt(5))
	require.ErrorIs(t, err, ErrNoInterpreter)
	require.Zero(t, left)
	require.Zero(t, statedb.GetBalance(testCallee).Uint64())
}

func TestCallRevertKeepsGas(t *testing.T) {
	key := common.HexToHash("0x01")
	interp := interpreterFunc(func(evm *EVM, contract *Contract, input []byte, readOnly bool) ([]byte, error) {
		evm.StateDB.SetState(contract.Address(), key, common.HexToHash("0x02"))
		contract.UseGas(100)
		return []byte("reason"), ErrExecutionReverted
	})
	evm, statedb := newTestEVM(t, interp)
	statedb.SetCode(testCallee, []byte{0x01})

	ret, left, err := evm.Call(testCaller, testCallee, nil, 1000, uint256.NewInt(5))
	require.ErrorIs(t, err, ErrExecutionReverted)
	require.Equal(t, []byte("reason"), ret)
	require.Equal(t, uint64(900), left)
	require.Equal(t, common.Hash{}, statedb.GetState(testCallee, key))
	require.Zero(t, statedb.GetBalance(testCallee).Uint64())
}

func TestCallHaltConsumesGas(t *testing.T) {
	interp := interpreterFunc(func(evm *EVM, contract *Contract, input []byte, readOnly bool) ([]byte, error) {
		return nil, ErrOutOfGas
	})
	evm, statedb := newTestEVM(t, interp)
	statedb.SetCode(testCallee, []byte{0x01})

	_, left, err := evm.Call(testCaller, testCallee, nil, 1000, new(uint256.Int))
	require.ErrorIs(t, err, ErrOutOfGas)
	require.Zero(t, left)
}

func TestNestedCallsShareWrites(t *testing.T) {
	var (
		inner = common.HexToAddress("0x1111")
		key   = common.HexToHash("0xaa")
	)
	interp := interpreterFunc(func(evm *EVM, contract *Contract, input []byte, readOnly bool) ([]byte, error) {
		if contract.Address() == inner {
			// The inner frame observes the outer frame's write.
			return evm.StateDB.GetState(testCallee, key).Bytes(), nil
		}
		evm.StateDB.SetState(contract.Address(), key, common.HexToHash("0x42"))
		ret, left, err := evm.Call(contract.Address(), inner, nil, contract.Gas, new(uint256.Int))
		contract.Gas = left
		return ret, err
	})
	evm, statedb := newTestEVM(t, interp)
	statedb.SetCode(testCallee, []byte{0x01})
	statedb.SetCode(inner, []byte{0x01})

	ret, _, err := evm.Call(testCaller, testCallee, nil, 1000, new(uint256.Int))
	require.NoError(t, err)
	require.Equal(t, common.HexToHash("0x42").Bytes(), ret)
	require.Zero(t, evm.Depth())
}

func TestCallDepthLimit(t *testing.T) {
	var deepest int
	interp := interpreterFunc(func(evm *EVM, contract *Contract, input []byte, readOnly bool) ([]byte, error) {
		deepest = max(deepest, evm.Depth())
		_, _, err := evm.Call(contract.Address(), contract.Address(), nil, contract.Gas, new(uint256.Int))
		return nil, err
	})
	evm, statedb := newTestEVM(t, interp)
	statedb.SetCode(testCallee, []byte{0x01})

	_, _, err := evm.Call(testCaller, testCallee, nil, 1000, new(uint256.Int))
	require.ErrorIs(t, err, ErrDepth)
	require.Equal(t, int(params.CallCreateDepth)+1, deepest)
}

func TestCallPrecompile(t *testing.T) {
	evm, _ := newTestEVM(t, nil)
	identity := common.BytesToAddress([]byte{4})

	for i := 0; i < 2; i++ {
		ret, left, err := evm.Call(testCaller, identity, []byte{1, 2, 3}, 100, new(uint256.Int))
		require.NoError(t, err)
		require.Equal(t, []byte{1, 2, 3}, ret)
		require.Equal(t, uint64(82), left)
	}
	hits, misses := evm.Config.PrecompileCache.Stats()
	require.Equal(t, uint64(1), hits)
	require.Equal(t, uint64(1), misses)
}

func TestCreate(t *testing.T) {
	runtime := []byte{0x60, 0x01}
	interp := interpreterFunc(func(evm *EVM, contract *Contract, input []byte, readOnly bool) ([]byte, error) {
		require.True(t, contract.IsDeployment)
		return runtime, nil
	})
	evm, statedb := newTestEVM(t, interp)
	statedb.SetNonce(testCaller, 7)

	_, addr, left, err := evm.Create(testCaller, []byte{0xfe}, 10_000, uint256.NewInt(3))
	require.NoError(t, err)
	require.Equal(t, crypto.CreateAddress(testCaller, 7), addr)
	require.Equal(t, uint64(10_000-2*params.CreateDataGas), left)
	require.Equal(t, runtime, statedb.GetCode(addr))
	require.Equal(t, uint64(1), statedb.GetNonce(addr))
	require.Equal(t, uint64(8), statedb.GetNonce(testCaller))
	require.Equal(t, uint64(3), statedb.GetBalance(addr).Uint64())

	// Deploying again at an occupied address fails and burns the gas.
	_, _, left, err = evm.create(testCaller, []byte{0xfe}, 10_000, new(uint256.Int), addr)
	require.ErrorIs(t, err, ErrContractAddressCollision)
	require.Zero(t, left)
}

func TestCreateCollisionWithStorage(t *testing.T) {
	evm, statedb := newTestEVM(t, interpreterFunc(func(evm *EVM, contract *Contract, input []byte, readOnly bool) ([]byte, error) {
		return nil, nil
	}))
	// No nonce and no code, but a storage slot is enough to occupy the address.
	addr := crypto.CreateAddress(testCaller, 0)
	statedb.SetState(addr, common.HexToHash("0x01"), common.HexToHash("0x02"))

	_, _, left, err := evm.Create(testCaller, []byte{0xfe}, 10_000, new(uint256.Int))
	require.ErrorIs(t, err, ErrContractAddressCollision)
	require.Zero(t, left)
	require.Empty(t, statedb.GetCode(addr))
	require.Equal(t, uint64(1), statedb.GetNonce(testCaller))
}

func TestCreateCodeStoreOutOfGas(t *testing.T) {
	interp := interpreterFunc(func(evm *EVM, contract *Contract, input []byte, readOnly bool) ([]byte, error) {
		return make([]byte, 100), nil
	})
	evm, statedb := newTestEVM(t, interp)
	_, addr, left, err := evm.Create(testCaller, []byte{0xfe}, 1000, new(uint256.Int))
	require.ErrorIs(t, err, ErrCodeStoreOutOfGas)
	require.Zero(t, left)
	require.False(t, statedb.Exist(addr))
	require.Equal(t, uint64(1), statedb.GetNonce(testCaller))
}

func TestCreateRejectsEF(t *testing.T) {
	interp := interpreterFunc(func(evm *EVM, contract *Contract, input []byte, readOnly bool) ([]byte, error) {
		return []byte{0xef}, nil
	})
	evm, _ := newTestEVM(t, interp)
	_, _, _, err := evm.Create(testCaller, []byte{0xfe}, 100_000, new(uint256.Int))
	require.ErrorIs(t, err, ErrInvalidCode)
}

func TestStaticCallReadOnly(t *testing.T) {
	var sawReadOnly bool
	interp := interpreterFunc(func(evm *EVM, contract *Contract, input []byte, readOnly bool) ([]byte, error) {
		sawReadOnly = readOnly
		return nil, nil
	})
	evm, statedb := newTestEVM(t, interp)
	statedb.SetCode(testCallee, []byte{0x01})
	_, left, err := evm.StaticCall(testCaller, testCallee, nil, 50)
	require.NoError(t, err)
	require.Equal(t, uint64(50), left)
	require.True(t, sawReadOnly)
}
