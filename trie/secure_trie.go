// Copyright 2015 The go-ethereum Authors
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

package trie

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/nodeforge/chaincore/core/rawdb"
	"github.com/nodeforge/chaincore/core/types"
)

// StateTrie wraps a trie with key hashing. In a stateTrie trie, all
// access operations hash the key using keccak256. This prevents
// calling code from creating long chains of nodes that
// increase the access time.
//
// Contrary to a regular trie, a StateTrie can only be created with
// New and must have an attached database. The database also stores
// the preimage of each key if preimage recording is enabled.
//
// StateTrie is not safe for concurrent use.
type StateTrie struct {
	trie       Trie
	db         *Database
	hashKeyBuf [common.HashLength]byte
	preimages  map[common.Hash][]byte
}

// NewStateTrie creates a trie with an existing root node from a backing database.
//
// If root is the zero hash or the sha3 hash of an empty string, the
// trie is initially empty. Otherwise, New will panic if db is nil
// and returns MissingNodeError if the root node cannot be found.
func NewStateTrie(root common.Hash, db *Database) (*StateTrie, error) {
	if db == nil {
		panic("trie.NewStateTrie called without a database")
	}
	trie, err := New(root, db)
	if err != nil {
		return nil, err
	}
	return &StateTrie{trie: *trie, db: db}, nil
}

// GetAccount attempts to retrieve an account with provided account address.
// If the specified account is not in the trie, nil will be returned.
// If a trie node is not found in the database, a MissingNodeError is returned.
func (t *StateTrie) GetAccount(address common.Address) (*types.StateAccount, error) {
	res, err := t.trie.Get(t.hashKey(address.Bytes()))
	if res == nil || err != nil {
		return nil, err
	}
	ret := new(types.StateAccount)
	err = rlp.DecodeBytes(res, ret)
	return ret, err
}

// GetStorage attempts to retrieve a storage slot with provided account address
// and slot key. The value bytes must not be modified by the caller.
// If the specified storage slot is not in the trie, nil will be returned.
// If a trie node is not found in the database, a MissingNodeError is returned.
func (t *StateTrie) GetStorage(_ common.Address, key []byte) ([]byte, error) {
	enc, err := t.trie.Get(t.hashKey(key))
	if err != nil || len(enc) == 0 {
		return nil, err
	}
	_, content, _, err := rlp.Split(enc)
	return content, err
}

// UpdateAccount will abstract the write of an account to the secure trie.
func (t *StateTrie) UpdateAccount(address common.Address, acc *types.StateAccount) error {
	hk := t.hashKey(address.Bytes())
	data, err := rlp.EncodeToBytes(acc)
	if err != nil {
		return err
	}
	if err := t.trie.Update(hk, data); err != nil {
		return err
	}
	t.recordPreimage(hk, address.Bytes())
	return nil
}

// UpdateStorage associates key with value in the trie. Subsequent calls to
// Get will return value. If value has length zero, any existing value
// is deleted from the trie and calls to Get will return nil.
//
// The value bytes must not be modified by the caller while they are
// stored in the trie.
//
// If a node is not found in the database, a MissingNodeError is returned.
func (t *StateTrie) UpdateStorage(_ common.Address, key, value []byte) error {
	hk := t.hashKey(key)
	v, _ := rlp.EncodeToBytes(value)
	if err := t.trie.Update(hk, v); err != nil {
		return err
	}
	t.recordPreimage(hk, key)
	return nil
}

// DeleteStorage removes any existing storage slot from the trie.
// If the specified trie node is not in the trie, nothing will be changed.
// If a node is not found in the database, a MissingNodeError is returned.
func (t *StateTrie) DeleteStorage(_ common.Address, key []byte) error {
	return t.trie.Delete(t.hashKey(key))
}

// DeleteAccount abstracts an account deletion from the trie.
func (t *StateTrie) DeleteAccount(address common.Address) error {
	return t.trie.Delete(t.hashKey(address.Bytes()))
}

// GetKey returns the sha3 preimage of a hashed key that was
// previously used to store a value.
func (t *StateTrie) GetKey(shaKey []byte) []byte {
	if key, ok := t.preimages[common.BytesToHash(shaKey)]; ok {
		return key
	}
	return rawdb.ReadPreimage(t.db.DiskDB(), common.BytesToHash(shaKey))
}

// Preimages returns the key preimages recorded since the trie was opened.
func (t *StateTrie) Preimages() map[common.Hash][]byte {
	return t.preimages
}

// Commit collects all dirty nodes in the trie and replaces them with the
// corresponding node hash. All collected nodes will be encapsulated into
// a nodeset for return. The returned nodeset can be nil if the trie is
// clean (nothing to commit). Once the trie is committed, it's not usable
// anymore.
func (t *StateTrie) Commit() (common.Hash, *NodeSet, error) {
	return t.trie.Commit()
}

// Hash returns the root hash of StateTrie. It does not write to the
// database and can be used even if the trie doesn't have one.
func (t *StateTrie) Hash() common.Hash {
	return t.trie.Hash()
}

// IsEmpty reports whether the trie holds no entries.
func (t *StateTrie) IsEmpty() bool {
	return t.trie.root == nil
}

// Copy returns a copy of StateTrie.
func (t *StateTrie) Copy() *StateTrie {
	cpy := &StateTrie{
		trie: *t.trie.Copy(),
		db:   t.db,
	}
	if len(t.preimages) > 0 {
		cpy.preimages = make(map[common.Hash][]byte, len(t.preimages))
		for k, v := range t.preimages {
			cpy.preimages[k] = v
		}
	}
	return cpy
}

// Walk visits every entry of the trie in hashed key order, handing the
// callback the hashed key and the raw stored value.
func (t *StateTrie) Walk(fn func(hashedKey, value []byte) error) error {
	return t.trie.Walk(fn)
}

func (t *StateTrie) recordPreimage(hk []byte, key []byte) {
	if t.preimages == nil {
		t.preimages = make(map[common.Hash][]byte)
	}
	t.preimages[common.BytesToHash(hk)] = common.CopyBytes(key)
}

// hashKey returns the hash of key as an ephemeral buffer.
// The caller must not hold onto the return value because it will become
// invalid on the next call to hashKey or secKey.
func (t *StateTrie) hashKey(key []byte) []byte {
	h := newHasher()
	h.sha.Reset()
	h.sha.Write(key)
	h.sha.Read(t.hashKeyBuf[:])
	returnHasherToPool(h)
	return t.hashKeyBuf[:]
}

// HashKey returns the keccak256 hash of the given key. It is the key under
// which values are stored in a StateTrie.
func HashKey(key []byte) common.Hash {
	return crypto.Keccak256Hash(key)
}
