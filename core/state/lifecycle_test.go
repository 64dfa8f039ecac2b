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

	"github.com/stretchr/testify/require"
)

func TestTransition(t *testing.T) {
	tests := []struct {
		from       Stage
		ev         Event
		empty      bool
		clearEmpty bool
		want       Stage
	}{
		// Implicit creation on credit and touch.
		{Absent, Credit, false, true, Live},
		{Absent, Credit, true, true, Empty},
		{Absent, Touch, true, false, Empty},
		{Empty, Credit, false, true, Live},
		{Live, Touch, false, true, Live},

		// Credits after a self-destruct are burnt.
		{Deleted, Credit, false, true, Deleted},
		{Deleted, Touch, true, true, Deleted},

		// Explicit creation resurrects.
		{Deleted, Create, true, true, Empty},
		{Absent, Create, false, true, Live},

		{Absent, SelfDestruct, true, true, Absent},
		{Live, SelfDestruct, false, true, Deleted},
		{Empty, SelfDestruct, true, false, Deleted},

		// Touch-and-clear at the transaction boundary.
		{Empty, EndOfTx, true, true, Deleted},
		{Empty, EndOfTx, true, false, Empty},
		{Live, EndOfTx, true, true, Deleted},
		{Live, EndOfTx, true, false, Empty},
		{Live, EndOfTx, false, true, Live},
		{Deleted, EndOfTx, false, true, Deleted},
		{Absent, EndOfTx, true, true, Absent},
	}
	for _, tt := range tests {
		got := Transition(tt.from, tt.ev, tt.empty, tt.clearEmpty)
		require.Equal(t, tt.want, got, "%v --%v(empty=%v, clear=%v)-->", tt.from, tt.ev, tt.empty, tt.clearEmpty)
	}
}

func TestTransitionUnknownEvent(t *testing.T) {
	require.Panics(t, func() { Transition(Live, Event(42), false, false) })
}

func TestStageStrings(t *testing.T) {
	require.Equal(t, "deleted", Deleted.String())
	require.Equal(t, "end-of-tx", EndOfTx.String())
	require.Equal(t, "stage(9)", Stage(9).String())
}
