// Copyright 2020 The go-ethereum Authors
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
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// NodeSet contains the set of dirty trie nodes produced by a trie commit,
// keyed by node hash. The blobs are the RLP encodings written to disk.
type NodeSet struct {
	Nodes map[common.Hash][]byte
	size  int
}

// NewNodeSet initializes an empty node set.
func NewNodeSet() *NodeSet {
	return &NodeSet{Nodes: make(map[common.Hash][]byte)}
}

func (set *NodeSet) addNode(hash []byte, blob []byte) {
	h := common.BytesToHash(hash)
	if _, ok := set.Nodes[h]; ok {
		return
	}
	set.Nodes[h] = blob
	set.size += common.HashLength + len(blob)
}

// Merge adds all the nodes of other into the set.
func (set *NodeSet) Merge(other *NodeSet) {
	if other == nil {
		return
	}
	for hash, blob := range other.Nodes {
		set.addNode(hash[:], blob)
	}
}

// Len returns the number of nodes in the set.
func (set *NodeSet) Len() int {
	if set == nil {
		return 0
	}
	return len(set.Nodes)
}

// Size returns the approximate byte size of the set.
func (set *NodeSet) Size() common.StorageSize {
	if set == nil {
		return 0
	}
	return common.StorageSize(set.size)
}

// committer is the tool used for the trie Commit operation. The committer will
// capture all dirty nodes during the commit process and keep them cached in
// insertion order.
type committer struct {
	nodes *NodeSet
}

// newCommitter creates a new committer or picks one from the pool.
func newCommitter(nodeset *NodeSet) *committer {
	return &committer{nodes: nodeset}
}

// Commit collapses a node down into a hash node.
func (c *committer) Commit(n node) hashNode {
	return c.commit(n).(hashNode)
}

// commit collapses a node down into a hash node and returns it.
func (c *committer) commit(n node) node {
	// if this path is clean, use available cached data
	hash, dirty := n.cache()
	if hash != nil && !dirty {
		return hash
	}
	// Commit children, then parent, and remove the dirty flag.
	switch cn := n.(type) {
	case *shortNode:
		// Commit child
		collapsed := cn.copy()

		// If the child is fullNode, recursively commit,
		// otherwise it can only be hashNode or valueNode.
		if _, ok := cn.Val.(*fullNode); ok {
			collapsed.Val = c.commit(cn.Val)
		}
		// The key needs to be copied, since we're adding it to the
		// modified nodeset.
		collapsed.Key = hexToCompact(cn.Key)
		hashedNode := c.store(collapsed)
		if hn, ok := hashedNode.(hashNode); ok {
			return hn
		}
		return collapsed
	case *fullNode:
		hashedKids := c.commitChildren(cn)
		collapsed := cn.copy()
		collapsed.Children = hashedKids

		hashedNode := c.store(collapsed)
		if hn, ok := hashedNode.(hashNode); ok {
			return hn
		}
		return collapsed
	case hashNode:
		return cn
	default:
		// nil, valuenode shouldn't be committed
		panic(fmt.Sprintf("%T: invalid node: %v", n, n))
	}
}

// commitChildren commits the children of the given fullnode
func (c *committer) commitChildren(n *fullNode) [17]node {
	var children [17]node
	for i := 0; i < 16; i++ {
		child := n.Children[i]
		if child == nil {
			continue
		}
		// If it's the hashed child, save the hash value directly.
		// Note: it's impossible that the child in range [0, 15]
		// is a valueNode.
		if hn, ok := child.(hashNode); ok {
			children[i] = hn
			continue
		}
		// Commit the child recursively and store the "hashed" value.
		// Note the returned node can be some embedded nodes, so it's
		// possible the type is not hashNode.
		children[i] = c.commit(child)
	}
	// For the 17th child, it's possible the type is valuenode.
	if n.Children[16] != nil {
		children[16] = n.Children[16]
	}
	return children
}

// store hashes the node n and adds it to the modified nodeset. If leaf collection
// is enabled, leaf nodes will be tracked in the modified nodeset as well.
func (c *committer) store(n node) node {
	// Larger nodes are replaced by their hash and stored in the database.
	var hash, _ = n.cache()

	// This was not generated - must be a small node stored in the parent.
	// In theory, we should check if the node is leaf here (embedded node
	// usually is leaf node). But small value (less than 32bytes) is not
	// our target (leaves in account trie only).
	if hash == nil {
		return n
	}
	c.nodes.addNode(hash, nodeToBytes(n))
	return hash
}
