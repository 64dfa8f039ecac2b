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

package state

import (
	"encoding/json"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/nodeforge/chaincore/core/types"
)

// DumpAccount represents an account in the state.
type DumpAccount struct {
	Balance     string                 `json:"balance"`
	Nonce       uint64                 `json:"nonce"`
	Root        hexutil.Bytes          `json:"root"`
	CodeHash    hexutil.Bytes          `json:"codeHash"`
	Code        hexutil.Bytes          `json:"code,omitempty"`
	Storage     map[common.Hash]string `json:"storage,omitempty"`
	Address     *common.Address        `json:"address,omitempty"` // Address only present in iterative (line-by-line) mode
	AddressHash hexutil.Bytes          `json:"key,omitempty"`     // If we don't have address, we can output the key
}

// Dump represents the full dump in a collected format, as one large map.
type Dump struct {
	Root     string                 `json:"root"`
	Accounts map[string]DumpAccount `json:"accounts"`
}

// DumpConfig is a set of options to control what portions of the state will be
// iterated and collected.
type DumpConfig struct {
	SkipCode          bool
	SkipStorage       bool
	OnlyWithAddresses bool
	Max               uint64
}

// RawDump returns the world state as a Dump. Accounts whose address preimage
// is unknown are keyed by their hashed address.
func (ws *WorldState) RawDump(conf *DumpConfig) (Dump, error) {
	if conf == nil {
		conf = new(DumpConfig)
	}
	dump := Dump{
		Root:     fmt.Sprintf("%x", ws.root),
		Accounts: make(map[string]DumpAccount),
	}
	ws.lock.Lock()
	defer ws.lock.Unlock()

	var (
		accounts   uint64
		missingPre int
		errStop    = fmt.Errorf("dump limit reached")
	)
	err := ws.trie.Walk(func(hashedKey, value []byte) error {
		var data types.StateAccount
		if err := rlp.DecodeBytes(value, &data); err != nil {
			return err
		}
		account := DumpAccount{
			Balance:     data.Balance.ToBig().String(),
			Nonce:       data.Nonce,
			Root:        data.Root[:],
			CodeHash:    data.CodeHash,
			AddressHash: common.CopyBytes(hashedKey),
		}
		preimage := ws.trie.GetKey(hashedKey)
		key := fmt.Sprintf("pre(%x)", hashedKey)
		if preimage == nil {
			if conf.OnlyWithAddresses {
				return nil
			}
			missingPre++
		} else {
			addr := common.BytesToAddress(preimage)
			account.Address = &addr
			key = addr.Hex()
		}
		if !conf.SkipCode && account.Address != nil {
			code, err := ws.db.ContractCode(*account.Address, common.BytesToHash(data.CodeHash))
			if err != nil {
				return err
			}
			account.Code = code
		}
		if !conf.SkipStorage && data.Root != types.EmptyRootHash {
			addr := common.Address{}
			if account.Address != nil {
				addr = *account.Address
			}
			tr, err := ws.db.OpenStorageTrie(addr, data.Root)
			if err != nil {
				return err
			}
			account.Storage = make(map[common.Hash]string)
			err = tr.Walk(func(slotHash, enc []byte) error {
				_, content, _, err := rlp.Split(enc)
				if err != nil {
					return err
				}
				slot := common.BytesToHash(slotHash)
				if pre := tr.GetKey(slotHash); pre != nil {
					slot = common.BytesToHash(pre)
				}
				account.Storage[slot] = common.Bytes2Hex(content)
				return nil
			})
			if err != nil {
				return err
			}
		}
		dump.Accounts[key] = account
		accounts++
		if conf.Max > 0 && accounts >= conf.Max {
			return errStop
		}
		return nil
	})
	if err != nil && err != errStop {
		return Dump{}, err
	}
	if missingPre > 0 {
		log.Warn("Dump incomplete due to missing preimages", "missing", missingPre)
	}
	return dump, nil
}

// Dump returns a JSON string representing the entire state as a single json-object
func (ws *WorldState) Dump(conf *DumpConfig) ([]byte, error) {
	dump, err := ws.RawDump(conf)
	if err != nil {
		return nil, err
	}
	return json.MarshalIndent(dump, "", "    ")
}
