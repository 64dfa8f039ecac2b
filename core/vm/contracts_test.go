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

package vm

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/nodeforge/chaincore/params"
	"github.com/stretchr/testify/require"
)

// precompiledTest defines the input/output pairs for precompiled contract tests.
type precompiledTest struct {
	Input, Expected string
	Gas             uint64
	Name            string
}

var modexpTests = []precompiledTest{
	{
		Input: "0000000000000000000000000000000000000000000000000000000000000001" +
			"0000000000000000000000000000000000000000000000000000000000000020" +
			"0000000000000000000000000000000000000000000000000000000000000020" +
			"03" +
			"fffffffffffffffffffffffffffffffffffffffffffffffffffffffefffffc2e" +
			"fffffffffffffffffffffffffffffffffffffffffffffffffffffffefffffc2f",
		Expected: "0000000000000000000000000000000000000000000000000000000000000001",
		Name:     "eip_example1",
		Gas:      13056,
	},
	{
		Input: "0000000000000000000000000000000000000000000000000000000000000000" +
			"0000000000000000000000000000000000000000000000000000000000000020" +
			"0000000000000000000000000000000000000000000000000000000000000020" +
			"fffffffffffffffffffffffffffffffffffffffffffffffffffffffefffffc2e" +
			"fffffffffffffffffffffffffffffffffffffffffffffffffffffffefffffc2f",
		Expected: "0000000000000000000000000000000000000000000000000000000000000000",
		Name:     "eip_example2",
		Gas:      13056,
	},
	{
		Input: "0000000000000000000000000000000000000000000000000000000000000001" +
			"0000000000000000000000000000000000000000000000000000000000000001" +
			"0000000000000000000000000000000000000000000000000000000000000001" +
			"020305",
		Expected: "03",
		Name:     "small",
		Gas:      0,
	},
}

func testPrecompiled(t *testing.T, addr string, test precompiledTest) {
	t.Helper()
	p := PrecompiledContractsByzantium[common.HexToAddress(addr)]
	in := common.Hex2Bytes(test.Input)
	gas := p.RequiredGas(in)
	require.Equal(t, test.Gas, gas, test.Name)

	res, left, err := RunPrecompiledContract(nil, p, in, gas)
	require.NoError(t, err, test.Name)
	require.Zero(t, left)
	require.Equal(t, test.Expected, common.Bytes2Hex(res), test.Name)
}

func TestPrecompiledModExp(t *testing.T) {
	for _, test := range modexpTests {
		testPrecompiled(t, "05", test)
	}
}

func TestPrecompiledModExpEip2565(t *testing.T) {
	p := PrecompiledContractsBerlin[common.BytesToAddress([]byte{5})]
	require.Equal(t, uint64(1360), p.RequiredGas(common.Hex2Bytes(modexpTests[0].Input)))
	// Cheap calls are raised to the minimum price.
	require.Equal(t, uint64(200), p.RequiredGas(common.Hex2Bytes(modexpTests[2].Input)))
}

func TestPrecompiledModExpZeroLengths(t *testing.T) {
	p := &bigModExp{eip2565: true}
	out, err := p.Run(nil)
	require.NoError(t, err)
	require.Empty(t, out)

	// A zero modulus yields zero padded to the modulus length.
	in := common.Hex2Bytes("0000000000000000000000000000000000000000000000000000000000000001" +
		"0000000000000000000000000000000000000000000000000000000000000001" +
		"0000000000000000000000000000000000000000000000000000000000000002" +
		"0203" + "0000")
	out, err = p.Run(in)
	require.NoError(t, err)
	require.Equal(t, []byte{0, 0}, out)
}

func TestPrecompiledHashes(t *testing.T) {
	tests := []precompiledTest{
		{Input: "", Expected: "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855", Gas: 60, Name: "sha256"},
		{Input: "", Expected: "0000000000000000000000009c1185a5c5e9fc54612808977ee8f548b2258d31", Gas: 600, Name: "ripemd160"},
		{Input: "deadbeef", Expected: "deadbeef", Gas: 18, Name: "identity"},
	}
	for i, test := range tests {
		addr := common.BytesToAddress([]byte{byte(i + 2)})
		testPrecompiled(t, addr.Hex(), test)
	}
}

func TestPrecompiledWordPricing(t *testing.T) {
	in := make([]byte, 33) // two words
	require.Equal(t, uint64(60+2*12), (&sha256hash{}).RequiredGas(in))
	require.Equal(t, uint64(600+2*120), (&ripemd160hash{}).RequiredGas(in))
	require.Equal(t, uint64(15+2*3), (&dataCopy{}).RequiredGas(in))
}

func TestPrecompiledEcrecover(t *testing.T) {
	key, err := crypto.HexToECDSA("b71c71a67e1177ad4e901695e1b4b9ee17ae16c6668d313eac2f96dbcda3f291")
	require.NoError(t, err)
	hash := crypto.Keccak256([]byte("chaincore"))
	sig, err := crypto.Sign(hash, key)
	require.NoError(t, err)

	input := make([]byte, 128)
	copy(input, hash)
	input[63] = sig[64] + 27
	copy(input[64:], sig[:64])

	p := &ecrecover{}
	require.Equal(t, params.EcrecoverGas, p.RequiredGas(input))
	out, err := p.Run(input)
	require.NoError(t, err)
	require.Equal(t, common.LeftPadBytes(crypto.PubkeyToAddress(key.PublicKey).Bytes(), 32), out)

	// A malformed v yields an empty result rather than an error.
	input[63] = 29
	out, err = p.Run(input)
	require.NoError(t, err)
	require.Nil(t, out)

	input[63] = sig[64] + 27
	input[40] = 1
	out, err = p.Run(input)
	require.NoError(t, err)
	require.Nil(t, out)
}

func TestPrecompiledOutOfGas(t *testing.T) {
	p := &sha256hash{}
	_, left, err := RunPrecompiledContract(nil, p, []byte{1}, 71)
	require.ErrorIs(t, err, ErrOutOfGas)
	require.Zero(t, left)

	out, left, err := RunPrecompiledContract(nil, p, []byte{1}, 100)
	require.NoError(t, err)
	require.Len(t, out, 32)
	require.Equal(t, uint64(100-72), left)
}

func TestActivePrecompiles(t *testing.T) {
	require.Len(t, ActivePrecompiles(params.Rules{}), 4)
	require.Len(t, ActivePrecompiles(params.Rules{IsByzantium: true}), 5)

	active := ActivePrecompiles(params.Rules{IsByzantium: true, IsBerlin: true})
	require.Equal(t, common.BytesToAddress([]byte{1}), active[0])
	require.Equal(t, common.BytesToAddress([]byte{5}), active[4])
}

func TestGetData(t *testing.T) {
	data := []byte{1, 2, 3}
	require.Equal(t, []byte{2, 3, 0}, getData(data, 1, 3))
	require.Equal(t, []byte{0, 0}, getData(data, 10, 2))
	require.Equal(t, []byte{}, getData(data, 3, 0))
}
