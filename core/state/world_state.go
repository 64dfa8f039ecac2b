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
	"errors"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/nodeforge/chaincore/core/types"
	"github.com/nodeforge/chaincore/trie"
)

// errForeignUpdater is returned when an updater is committed into a world
// state it was not derived from.
var errForeignUpdater = errors.New("updater does not descend from this world state")

// WorldState is a read-only view of the account set at one state root.
//
// Changes are made through an updater obtained from Updater. Updaters are
// exclusively owned write buffers: nothing written through one is visible
// to the WorldState or to any other updater until it is committed.
type WorldState struct {
	db   Database
	root common.Hash

	lock sync.Mutex // trie resolves nodes in place on read
	trie *trie.StateTrie
}

// NewWorldState opens the world state identified by root.
func NewWorldState(root common.Hash, db Database) (*WorldState, error) {
	tr, err := db.OpenTrie(root)
	if err != nil {
		return nil, err
	}
	return &WorldState{db: db, root: root, trie: tr}, nil
}

// Root returns the state root the view is anchored at.
func (ws *WorldState) Root() common.Hash {
	return ws.root
}

// Database returns the backing state database.
func (ws *WorldState) Database() Database {
	return ws.db
}

// Get returns the account stored at addr, or nil if there is none.
func (ws *WorldState) Get(addr common.Address) (*types.StateAccount, error) {
	ws.lock.Lock()
	defer ws.lock.Unlock()

	return ws.trie.GetAccount(addr)
}

// Storage returns the value of the storage slot key of the account at addr.
func (ws *WorldState) Storage(addr common.Address, key common.Hash) (common.Hash, error) {
	tr, err := ws.storageTrie(addr)
	if tr == nil || err != nil {
		return common.Hash{}, err
	}
	val, err := tr.GetStorage(addr, key.Bytes())
	if err != nil {
		return common.Hash{}, err
	}
	return common.BytesToHash(val), nil
}

// Code returns the contract code of the account at addr.
func (ws *WorldState) Code(addr common.Address) ([]byte, error) {
	acct, err := ws.Get(addr)
	if acct == nil || err != nil {
		return nil, err
	}
	return ws.db.ContractCode(addr, common.BytesToHash(acct.CodeHash))
}

// IsStorageEmpty reports whether the account at addr holds no storage slot.
// It inspects the storage trie itself rather than trusting a cached flag.
func (ws *WorldState) IsStorageEmpty(addr common.Address) (bool, error) {
	tr, err := ws.storageTrie(addr)
	if err != nil {
		return false, err
	}
	return tr == nil || tr.IsEmpty(), nil
}

func (ws *WorldState) storageTrie(addr common.Address) (*trie.StateTrie, error) {
	acct, err := ws.Get(addr)
	if acct == nil || err != nil {
		return nil, err
	}
	return ws.db.OpenStorageTrie(addr, acct.Root)
}

// Updater returns a fresh write overlay on top of the world state.
func (ws *WorldState) Updater() (*StateDB, error) {
	return New(ws.root, ws.db)
}

// Commit persists the changes buffered in updater and returns the world state
// at the resulting root. The receiver itself is left untouched.
func (ws *WorldState) Commit(updater *StateDB, deleteEmptyObjects bool) (*WorldState, error) {
	if updater.OriginalRoot() != ws.root {
		return nil, fmt.Errorf("%w: updater root %x, state root %x", errForeignUpdater, updater.OriginalRoot(), ws.root)
	}
	root, err := updater.Commit(deleteEmptyObjects)
	if err != nil {
		return nil, err
	}
	return NewWorldState(root, ws.db)
}
