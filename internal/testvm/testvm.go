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

// Package testvm implements a tiny deterministic interpreter for contract code.
//
// It is not the EVM instruction set. Programs are flat byte sequences of the
// operations below, which is enough to drive storage writes, refunds, logs,
// nested calls, reverts and exceptional halts through the transaction
// processor in tests.
//
//	0x00                STOP
//	0x01 key value      SSTORE one-byte value at one-byte key
//	0x02 topic          LOG the call input under a one-byte topic
//	0x03 addr[20] value CALL addr with a one-byte value and all remaining gas
//	0xf3 n data[n]      RETURN the next n bytes of code
//	0xfd                REVERT
//	0xfe                INVALID
package testvm

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/nodeforge/chaincore/core/types"
	"github.com/nodeforge/chaincore/core/vm"
)

const (
	opStop    = 0x00
	opSstore  = 0x01
	opLog     = 0x02
	opCall    = 0x03
	opReturn  = 0xf3
	opRevert  = 0xfd
	opInvalid = 0xfe
)

const (
	GasStep        uint64 = 3     // charged for every operation
	GasSstoreSet   uint64 = 20000 // zero to non-zero slot write
	GasSstoreReset uint64 = 5000  // any other slot write
	RefundSstore   uint64 = 4800  // refund for clearing a slot
	GasLog         uint64 = 750   // per LOG
	GasCall        uint64 = 700   // per CALL, on top of the callee gas
)

var (
	// ErrInvalidOpcode is returned for INVALID and unknown operations.
	ErrInvalidOpcode = errors.New("invalid opcode")

	errTruncated = errors.New("truncated program")
)

// Interpreter runs test programs. The zero value is ready to use.
type Interpreter struct{}

// New returns an interpreter for use in vm.Config.
func New() *Interpreter { return new(Interpreter) }

// Run implements vm.Interpreter.
func (in *Interpreter) Run(evm *vm.EVM, contract *vm.Contract, input []byte, readOnly bool) ([]byte, error) {
	code := contract.Code
	for pc := 0; pc < len(code); {
		op := code[pc]
		if !contract.UseGas(GasStep) {
			return nil, vm.ErrOutOfGas
		}
		switch op {
		case opStop:
			return nil, nil

		case opSstore:
			if pc+2 >= len(code) {
				return nil, errTruncated
			}
			if readOnly {
				return nil, vm.ErrWriteProtection
			}
			var (
				addr    = contract.Address()
				key     = common.BytesToHash([]byte{code[pc+1]})
				value   = common.BytesToHash([]byte{code[pc+2]})
				current = evm.StateDB.GetState(addr, key)
				cost    = GasSstoreReset
			)
			if current == (common.Hash{}) && value != (common.Hash{}) {
				cost = GasSstoreSet
			}
			if !contract.UseGas(cost) {
				return nil, vm.ErrOutOfGas
			}
			if current != (common.Hash{}) && value == (common.Hash{}) {
				evm.StateDB.AddRefund(RefundSstore)
			}
			evm.StateDB.SetState(addr, key, value)
			pc += 3

		case opLog:
			if pc+1 >= len(code) {
				return nil, errTruncated
			}
			if readOnly {
				return nil, vm.ErrWriteProtection
			}
			if !contract.UseGas(GasLog) {
				return nil, vm.ErrOutOfGas
			}
			evm.StateDB.AddLog(&types.Log{
				Address:     contract.Address(),
				Topics:      []common.Hash{common.BytesToHash([]byte{code[pc+1]})},
				Data:        common.CopyBytes(input),
				BlockNumber: evm.Context.BlockNumber.Uint64(),
			})
			pc += 2

		case opCall:
			if pc+common.AddressLength+1 >= len(code) {
				return nil, errTruncated
			}
			if !contract.UseGas(GasCall) {
				return nil, vm.ErrOutOfGas
			}
			var (
				to    = common.BytesToAddress(code[pc+1 : pc+1+common.AddressLength])
				value = uint256.NewInt(uint64(code[pc+1+common.AddressLength]))
			)
			if readOnly && !value.IsZero() {
				return nil, vm.ErrWriteProtection
			}
			_, left, err := evm.Call(contract.Address(), to, input, contract.Gas, value)
			contract.Gas = left
			if errors.Is(err, vm.ErrNoInterpreter) {
				return nil, err
			}
			pc += 2 + common.AddressLength

		case opReturn:
			if pc+1 >= len(code) {
				return nil, errTruncated
			}
			n := int(code[pc+1])
			if pc+2+n > len(code) {
				return nil, errTruncated
			}
			return common.CopyBytes(code[pc+2 : pc+2+n]), nil

		case opRevert:
			return nil, vm.ErrExecutionReverted

		default:
			return nil, fmt.Errorf("%w: 0x%x at %d", ErrInvalidOpcode, op, pc)
		}
	}
	return nil, nil
}

// Program assembles test programs.
type Program struct {
	code []byte
}

// NewProgram starts an empty program.
func NewProgram() *Program { return new(Program) }

// Sstore appends a storage write.
func (p *Program) Sstore(key, value byte) *Program {
	p.code = append(p.code, opSstore, key, value)
	return p
}

// Log appends a log of the call input.
func (p *Program) Log(topic byte) *Program {
	p.code = append(p.code, opLog, topic)
	return p
}

// Call appends a call to addr transferring value.
func (p *Program) Call(addr common.Address, value byte) *Program {
	p.code = append(p.code, opCall)
	p.code = append(p.code, addr.Bytes()...)
	p.code = append(p.code, value)
	return p
}

// Return appends a RETURN of data. Data longer than 255 bytes panics.
func (p *Program) Return(data []byte) *Program {
	if len(data) > 255 {
		panic("testvm: return data too long")
	}
	p.code = append(p.code, opReturn, byte(len(data)))
	p.code = append(p.code, data...)
	return p
}

// Stop appends STOP.
func (p *Program) Stop() *Program {
	p.code = append(p.code, opStop)
	return p
}

// Revert appends REVERT.
func (p *Program) Revert() *Program {
	p.code = append(p.code, opRevert)
	return p
}

// Invalid appends INVALID.
func (p *Program) Invalid() *Program {
	p.code = append(p.code, opInvalid)
	return p
}

// Bytes returns the assembled code.
func (p *Program) Bytes() []byte {
	return common.CopyBytes(p.code)
}
