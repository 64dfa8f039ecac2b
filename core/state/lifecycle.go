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

import "fmt"

// Stage is the lifecycle position of an account within the live account set.
type Stage uint8

const (
	// Absent accounts are not part of the live set.
	Absent Stage = iota

	// Live accounts hold a nonce, a balance, code or storage.
	Live

	// Empty accounts exist in the live set but hold nothing at all.
	Empty

	// Deleted accounts were removed from the live set during the current
	// block, either by self-destruct or by the touch-and-clear rule. They
	// remain reachable through older state roots.
	Deleted
)

func (s Stage) String() string {
	switch s {
	case Absent:
		return "absent"
	case Live:
		return "live"
	case Empty:
		return "empty"
	case Deleted:
		return "deleted"
	default:
		return fmt.Sprintf("stage(%d)", uint8(s))
	}
}

// Event is something that happens to an account during execution.
type Event uint8

const (
	Credit       Event = iota // balance added (possibly zero)
	Touch                     // account accessed by a call or gas payment
	Create                    // account or contract explicitly created
	SelfDestruct              // account destroyed by its own code
	EndOfTx                   // transaction boundary reached
)

func (e Event) String() string {
	switch e {
	case Credit:
		return "credit"
	case Touch:
		return "touch"
	case Create:
		return "create"
	case SelfDestruct:
		return "selfdestruct"
	case EndOfTx:
		return "end-of-tx"
	default:
		return fmt.Sprintf("event(%d)", uint8(e))
	}
}

// Transition returns the stage an account moves to when ev happens to it.
//
// empty reports whether the account, with the effects of ev applied, has a
// zero nonce, a zero balance, no code and empty storage. clearEmpty enables
// the EIP-158 rule that removes touched empty accounts at the end of each
// transaction.
//
// A self-destructed account stays deleted for the rest of the transaction no
// matter what happens to it; credits made after the destruction are burnt.
func Transition(from Stage, ev Event, empty, clearEmpty bool) Stage {
	switch ev {
	case Credit, Touch:
		if from == Deleted {
			return Deleted
		}
		if empty {
			return Empty
		}
		return Live

	case Create:
		// Creation always starts a fresh account, resurrecting a previously
		// cleared address as well.
		if empty {
			return Empty
		}
		return Live

	case SelfDestruct:
		if from == Absent {
			return Absent
		}
		return Deleted

	case EndOfTx:
		switch from {
		case Empty:
			if clearEmpty {
				return Deleted
			}
			return Empty
		case Live:
			if empty {
				if clearEmpty {
					return Deleted
				}
				return Empty
			}
			return Live
		default:
			return from
		}
	}
	panic(fmt.Sprintf("unknown account event %d", ev))
}
