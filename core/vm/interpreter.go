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

package vm

// Interpreter runs contract code on behalf of the EVM.
//
// Run executes contract.Code with the given input, drawing gas from
// contract.Gas. State is read and written through evm.StateDB and nested
// calls go through evm.Call, so that every frame of a transaction sees the
// writes of the frames before it. Returning ErrExecutionReverted keeps the
// remaining gas; any other error consumes it all. In both cases the EVM
// rolls back the frame's state changes.
//
// Implementations must be deterministic and must not retain references to
// the contract or the EVM after Run returns.
type Interpreter interface {
	Run(evm *EVM, contract *Contract, input []byte, readOnly bool) ([]byte, error)
}

// Config are the configuration options for the EVM.
type Config struct {
	// Interpreter executes contract code. Without one, any frame that has
	// code to run fails with ErrNoInterpreter.
	Interpreter Interpreter

	// PrecompileCache memoizes precompiled contract results. It is usually
	// shared by every EVM of a chain. Nil disables caching.
	PrecompileCache *PrecompileCache
}
