// Copyright 2020 The go-ethereum Authors
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
	"crypto/ecdsa"
	"math"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/nodeforge/chaincore/consensus/ethash"
	"github.com/nodeforge/chaincore/consensus/misc/eip1559"
	"github.com/nodeforge/chaincore/core/rawdb"
	"github.com/nodeforge/chaincore/core/state"
	"github.com/nodeforge/chaincore/core/types"
	"github.com/nodeforge/chaincore/core/vm"
	"github.com/nodeforge/chaincore/internal/testvm"
	"github.com/nodeforge/chaincore/params"
	"github.com/stretchr/testify/require"
)

var (
	testKey, _  = crypto.HexToECDSA("b71c71a67e1177ad4e901695e1b4b9ee17ae16c6668d313eac2f96dbcda3f291")
	testAddr    = crypto.PubkeyToAddress(testKey.PublicKey)
	testBalance = big.NewInt(1_000_000_000_000_000_000)
	testGasTip  = big.NewInt(2_000_000_000)
)

// txEnv is a chain holding only its genesis, with a header for block one
// on top, used to apply single transactions.
type txEnv struct {
	chain   *BlockChain
	header  *types.Header
	statedb *state.StateDB
	signer  types.Signer
}

func newTxEnv(t *testing.T, config *params.ChainConfig, alloc GenesisAlloc, vmConfig vm.Config) *txEnv {
	t.Helper()

	genesis := &Genesis{Config: config, Alloc: alloc}
	chain, err := NewBlockChain(rawdb.NewMemoryDatabase(), nil, genesis, ethash.NewFaker(), vmConfig)
	require.NoError(t, err)
	t.Cleanup(chain.Stop)

	parent := chain.Genesis().Header()
	header := &types.Header{
		ParentHash: parent.Hash(),
		Coinbase:   common.HexToAddress("0xc0ffee"),
		Number:     big.NewInt(1),
		GasLimit:   parent.GasLimit,
		Time:       parent.Time + 10,
		Difficulty: big.NewInt(1),
	}
	if config.IsLondon(header.Number) {
		header.BaseFee = eip1559.CalcBaseFee(config, parent)
	}
	statedb, err := chain.State()
	require.NoError(t, err)
	return &txEnv{
		chain:   chain,
		header:  header,
		statedb: statedb,
		signer:  types.MakeSigner(config, header.Number),
	}
}

func (env *txEnv) apply(tx *types.Transaction, gaspool uint64) (*types.Receipt, uint64, error) {
	return env.applyWithPool(tx, new(GasPool).AddGas(gaspool))
}

func (env *txEnv) applyWithPool(tx *types.Transaction, gp *GasPool) (*types.Receipt, uint64, error) {
	var used uint64
	env.statedb.SetTxContext(tx.Hash(), 0)
	receipt, err := ApplyTransaction(env.chain.Config(), env.chain, &env.header.Coinbase, gp, env.statedb, env.header, tx, &used, env.chain.vmConfig)
	return receipt, used, err
}

func (env *txEnv) legacyTx(key *ecdsa.PrivateKey, nonce uint64, to common.Address, value int64, gas uint64, data []byte) *types.Transaction {
	return types.MustSignNewTx(key, env.signer, &types.LegacyTx{
		Nonce:    nonce,
		To:       &to,
		Value:    big.NewInt(value),
		Gas:      gas,
		GasPrice: testGasTip,
		Data:     data,
	})
}

func TestStateProcessorErrors(t *testing.T) {
	var (
		config    = params.TestChainConfig
		recipient = common.HexToAddress("0xbeef")
		funded    = GenesisAlloc{testAddr: {Balance: testBalance}}
	)
	tests := []struct {
		name  string
		alloc GenesisAlloc
		tx    func(env *txEnv) *types.Transaction
		pool  uint64
		want  error
	}{
		{
			name:  "nonce too high",
			alloc: funded,
			tx: func(env *txEnv) *types.Transaction {
				return env.legacyTx(testKey, 1, recipient, 0, params.TxGas, nil)
			},
			want: ErrNonceTooHigh,
		},
		{
			name:  "nonce too low",
			alloc: GenesisAlloc{testAddr: {Balance: testBalance, Nonce: 2}},
			tx: func(env *txEnv) *types.Transaction {
				return env.legacyTx(testKey, 1, recipient, 0, params.TxGas, nil)
			},
			want: ErrNonceTooLow,
		},
		{
			name:  "nonce at max",
			alloc: GenesisAlloc{testAddr: {Balance: testBalance, Nonce: math.MaxUint64}},
			tx: func(env *txEnv) *types.Transaction {
				return env.legacyTx(testKey, math.MaxUint64, recipient, 0, params.TxGas, nil)
			},
			want: ErrNonceMax,
		},
		{
			name:  "sender has code",
			alloc: GenesisAlloc{testAddr: {Balance: testBalance, Code: []byte{0x00}}},
			tx: func(env *txEnv) *types.Transaction {
				return env.legacyTx(testKey, 0, recipient, 0, params.TxGas, nil)
			},
			want: ErrSenderNoEOA,
		},
		{
			name:  "insufficient funds",
			alloc: GenesisAlloc{testAddr: {Balance: new(big.Int).SetUint64(params.TxGas)}},
			tx: func(env *txEnv) *types.Transaction {
				return env.legacyTx(testKey, 0, recipient, 0, params.TxGas, nil)
			},
			want: ErrInsufficientFunds,
		},
		{
			name:  "insufficient funds for transfer",
			alloc: funded,
			tx: func(env *txEnv) *types.Transaction {
				return env.legacyTx(testKey, 0, recipient, testBalance.Int64(), params.TxGas, nil)
			},
			want: ErrInsufficientFundsForTransfer,
		},
		{
			name:  "gas covered but not gas and value",
			alloc: GenesisAlloc{testAddr: {Balance: new(big.Int).Mul(testGasTip, big.NewInt(int64(params.TxGas)))}},
			tx: func(env *txEnv) *types.Transaction {
				return env.legacyTx(testKey, 0, recipient, 1, params.TxGas, nil)
			},
			want: ErrInsufficientFundsForTransfer,
		},
		{
			name:  "intrinsic gas",
			alloc: funded,
			tx: func(env *txEnv) *types.Transaction {
				return env.legacyTx(testKey, 0, recipient, 0, params.TxGas-1, nil)
			},
			want: ErrIntrinsicGas,
		},
		{
			name:  "block gas exhausted",
			alloc: funded,
			tx: func(env *txEnv) *types.Transaction {
				return env.legacyTx(testKey, 0, recipient, 0, params.TxGas, nil)
			},
			pool: params.TxGas - 1,
			want: ErrGasLimitReached,
		},
		{
			name:  "fee cap below base fee",
			alloc: funded,
			tx: func(env *txEnv) *types.Transaction {
				return types.MustSignNewTx(testKey, env.signer, &types.DynamicFeeTx{
					ChainID:   config.ChainID,
					To:        &recipient,
					Gas:       params.TxGas,
					GasFeeCap: big.NewInt(1),
					GasTipCap: big.NewInt(1),
					Value:     common.Big0,
				})
			},
			want: ErrFeeCapTooLow,
		},
		{
			name:  "tip above fee cap",
			alloc: funded,
			tx: func(env *txEnv) *types.Transaction {
				return types.MustSignNewTx(testKey, env.signer, &types.DynamicFeeTx{
					ChainID:   config.ChainID,
					To:        &recipient,
					Gas:       params.TxGas,
					GasFeeCap: testGasTip,
					GasTipCap: new(big.Int).Add(testGasTip, common.Big1),
					Value:     common.Big0,
				})
			},
			want: ErrTipAboveFeeCap,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTxEnv(t, config, tt.alloc, vm.Config{})
			var (
				balance = env.statedb.GetBalance(testAddr).Clone()
				nonce   = env.statedb.GetNonce(testAddr)
				pool    = tt.pool
			)
			if pool == 0 {
				pool = env.header.GasLimit
			}
			gp := new(GasPool).AddGas(pool)
			receipt, used, err := env.applyWithPool(tt.tx(env), gp)
			require.ErrorIs(t, err, tt.want)
			require.Nil(t, receipt)
			require.Zero(t, used)

			// A transaction failing its pre-checks leaves no trace in the state
			// or in the block gas pool.
			require.Equal(t, balance, env.statedb.GetBalance(testAddr))
			require.Equal(t, nonce, env.statedb.GetNonce(testAddr))
			require.Equal(t, pool, gp.Gas())
		})
	}
}

func TestValueTransfer(t *testing.T) {
	var (
		recipient = common.HexToAddress("0xbeef")
		env       = newTxEnv(t, params.TestChainConfig, GenesisAlloc{testAddr: {Balance: testBalance}}, vm.Config{})
	)
	receipt, used, err := env.apply(env.legacyTx(testKey, 0, recipient, 1000, params.TxGas, nil), env.header.GasLimit)
	require.NoError(t, err)
	require.Equal(t, types.ReceiptStatusSuccessful, receipt.Status)
	require.Equal(t, params.TxGas, used)
	require.Equal(t, params.TxGas, receipt.GasUsed)
	require.Equal(t, params.TxGas, receipt.CumulativeGasUsed)

	// Legacy gas price sits above the base fee, so the sender pays the full
	// price and the coinbase keeps the difference over the base fee.
	fee := new(big.Int).Mul(testGasTip, big.NewInt(int64(params.TxGas)))
	want := new(big.Int).Sub(testBalance, fee)
	want.Sub(want, big.NewInt(1000))
	require.Equal(t, want, env.statedb.GetBalance(testAddr).ToBig())
	require.Equal(t, uint64(1), env.statedb.GetNonce(testAddr))
	require.Equal(t, int64(1000), env.statedb.GetBalance(recipient).ToBig().Int64())

	tip := new(big.Int).Sub(testGasTip, env.header.BaseFee)
	tip.Mul(tip, big.NewInt(int64(params.TxGas)))
	require.Equal(t, tip, env.statedb.GetBalance(env.header.Coinbase).ToBig())
}

func TestRevertKeepsNonceAndGas(t *testing.T) {
	var (
		contract = common.HexToAddress("0xc0de")
		code     = testvm.NewProgram().Sstore(1, 1).Revert().Bytes()
		alloc    = GenesisAlloc{
			testAddr: {Balance: testBalance},
			contract: {Balance: common.Big0, Code: code},
		}
		env = newTxEnv(t, params.TestChainConfig, alloc, vm.Config{Interpreter: testvm.New()})
	)
	receipt, used, err := env.apply(env.legacyTx(testKey, 0, contract, 0, 100_000, nil), env.header.GasLimit)
	require.NoError(t, err)
	require.Equal(t, types.ReceiptStatusFailed, receipt.Status)

	// Revert hands back the unused gas but charges for the work done.
	want := params.TxGas + 2*testvm.GasStep + testvm.GasSstoreSet
	require.Equal(t, want, used)
	require.Equal(t, uint64(1), env.statedb.GetNonce(testAddr))
	require.Equal(t, common.Hash{}, env.statedb.GetState(contract, common.BytesToHash([]byte{1})))

	fee := new(big.Int).Mul(testGasTip, new(big.Int).SetUint64(want))
	require.Equal(t, new(big.Int).Sub(testBalance, fee), env.statedb.GetBalance(testAddr).ToBig())
}

func TestExceptionalHaltConsumesGas(t *testing.T) {
	var (
		contract = common.HexToAddress("0xc0de")
		alloc    = GenesisAlloc{
			testAddr: {Balance: testBalance},
			contract: {Balance: common.Big0, Code: testvm.NewProgram().Sstore(1, 1).Invalid().Bytes()},
		}
		env = newTxEnv(t, params.TestChainConfig, alloc, vm.Config{Interpreter: testvm.New()})
	)
	receipt, used, err := env.apply(env.legacyTx(testKey, 0, contract, 0, 100_000, nil), env.header.GasLimit)
	require.NoError(t, err)
	require.Equal(t, types.ReceiptStatusFailed, receipt.Status)
	require.Equal(t, uint64(100_000), used)
	require.Equal(t, uint64(1), env.statedb.GetNonce(testAddr))
}

func TestRefundCap(t *testing.T) {
	var (
		contract = common.HexToAddress("0xc0de")
		slot     = func(i byte) common.Hash { return common.BytesToHash([]byte{i}) }
		code     = testvm.NewProgram().Sstore(1, 0).Sstore(2, 0).Sstore(3, 0).Bytes()
		alloc    = GenesisAlloc{
			testAddr: {Balance: testBalance},
			contract: {
				Balance: common.Big0,
				Code:    code,
				Storage: map[common.Hash]common.Hash{slot(1): slot(1), slot(2): slot(1), slot(3): slot(1)},
			},
		}
		execGas = params.TxGas + 3*(testvm.GasStep+testvm.GasSstoreReset)
		refund  = 3 * testvm.RefundSstore
	)
	tests := []struct {
		name   string
		config *params.ChainConfig
		want   uint64
	}{
		// Post-London the refund is capped at a fifth of the gas used.
		{"london", params.TestChainConfig, execGas - execGas/5},
		// Before London the cap is half, which the refund stays under.
		{"pre-london", params.PreLondonConfig, execGas - refund},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTxEnv(t, tt.config, alloc, vm.Config{Interpreter: testvm.New()})
			receipt, used, err := env.apply(env.legacyTx(testKey, 0, contract, 0, 100_000, nil), env.header.GasLimit)
			require.NoError(t, err)
			require.Equal(t, types.ReceiptStatusSuccessful, receipt.Status)
			require.Equal(t, tt.want, used)
			for i := byte(1); i <= 3; i++ {
				require.Equal(t, common.Hash{}, env.statedb.GetState(contract, slot(i)))
			}
		})
	}
}

func TestMissingInterpreterAborts(t *testing.T) {
	var (
		contract = common.HexToAddress("0xc0de")
		alloc    = GenesisAlloc{
			testAddr: {Balance: testBalance},
			contract: {Balance: common.Big0, Code: testvm.NewProgram().Stop().Bytes()},
		}
		env = newTxEnv(t, params.TestChainConfig, alloc, vm.Config{})
	)
	_, _, err := env.apply(env.legacyTx(testKey, 0, contract, 0, 100_000, nil), env.header.GasLimit)
	require.ErrorIs(t, err, vm.ErrNoInterpreter)
}

func TestContractLogs(t *testing.T) {
	var (
		contract = common.HexToAddress("0xc0de")
		alloc    = GenesisAlloc{
			testAddr: {Balance: testBalance},
			contract: {Balance: common.Big0, Code: testvm.NewProgram().Log(7).Bytes()},
		}
		env   = newTxEnv(t, params.TestChainConfig, alloc, vm.Config{Interpreter: testvm.New()})
		input = []byte{0xca, 0xfe}
	)
	tx := env.legacyTx(testKey, 0, contract, 0, 100_000, input)
	receipt, _, err := env.apply(tx, env.header.GasLimit)
	require.NoError(t, err)
	require.Len(t, receipt.Logs, 1)

	l := receipt.Logs[0]
	require.Equal(t, contract, l.Address)
	require.Equal(t, []common.Hash{common.BytesToHash([]byte{7})}, l.Topics)
	require.Equal(t, input, l.Data)
	require.Equal(t, tx.Hash(), l.TxHash)
	require.True(t, receipt.Bloom.Test(contract.Bytes()))
}
