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

package state

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/nodeforge/chaincore/core/types"
	"github.com/stretchr/testify/require"
)

func TestSnapshotRevert(t *testing.T) {
	state := newTestState(t)
	addr := common.HexToAddress("0xaa")
	key := common.HexToHash("0x01")

	state.SetBalance(addr, uint256.NewInt(42))
	state.SetNonce(addr, 1)

	id := state.Snapshot()
	state.SetBalance(addr, uint256.NewInt(7))
	state.SetNonce(addr, 2)
	state.SetState(addr, key, common.HexToHash("0xff"))
	state.SetCode(addr, []byte{0x1})
	state.AddRefund(100)
	state.AddLog(&types.Log{Address: addr})
	state.AddAddressToAccessList(addr)
	state.AddSlotToAccessList(addr, key)

	state.RevertToSnapshot(id)

	require.Equal(t, uint64(42), state.GetBalance(addr).Uint64())
	require.Equal(t, uint64(1), state.GetNonce(addr))
	require.Equal(t, common.Hash{}, state.GetState(addr, key))
	require.Nil(t, state.GetCode(addr))
	require.Zero(t, state.GetRefund())
	require.Empty(t, state.Logs())
	require.False(t, state.AddressInAccessList(addr))
}

func TestSnapshotRevertCreation(t *testing.T) {
	state := newTestState(t)
	addr := common.HexToAddress("0xbb")

	id := state.Snapshot()
	state.AddBalance(addr, uint256.NewInt(1))
	require.True(t, state.Exist(addr))

	state.RevertToSnapshot(id)
	require.False(t, state.Exist(addr))
}

func TestSnapshotRevertSelfDestruct(t *testing.T) {
	state := newTestState(t)
	addr := common.HexToAddress("0xcc")
	state.SetBalance(addr, uint256.NewInt(5))

	id := state.Snapshot()
	state.SelfDestruct(addr)
	require.True(t, state.HasSelfDestructed(addr))
	require.True(t, state.GetBalance(addr).IsZero())

	state.RevertToSnapshot(id)
	require.False(t, state.HasSelfDestructed(addr))
	require.Equal(t, uint64(5), state.GetBalance(addr).Uint64())
}

func TestRevertInvalidSnapshot(t *testing.T) {
	state := newTestState(t)
	require.Panics(t, func() { state.RevertToSnapshot(3) })
}

func TestJournalResetAfterFinalise(t *testing.T) {
	state := newTestState(t)
	state.SetBalance(common.HexToAddress("0x01"), uint256.NewInt(1))
	require.NotZero(t, state.journal.length())

	state.Finalise(true)
	require.Zero(t, state.journal.length())
	require.Empty(t, state.journal.dirties)
}
