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

/*
Package vm implements the call and create frame handling of the Ethereum
Virtual Machine.

Bytecode execution itself is delegated to an Interpreter supplied by the
embedder. The EVM takes care of everything around it: call depth, value
transfer, state snapshots and reverts, contract creation rules and the
precompiled contracts, whose results are memoized in a PrecompileCache
shared between all EVM instances.
*/
package vm
