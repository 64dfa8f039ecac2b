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

package types_test

import (
	"bytes"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/nodeforge/chaincore/core/types"
	"github.com/nodeforge/chaincore/trie"
	"github.com/stretchr/testify/require"
)

func TestDeriveShaEmpty(t *testing.T) {
	require.Equal(t, types.EmptyRootHash, types.DeriveSha(types.Transactions{}, trie.NewEmpty(nil)))
	require.Equal(t, types.EmptyReceiptsHash, types.DeriveSha(types.Receipts{}, trie.NewEmpty(nil)))
}

func TestDeriveShaMatchesIndexedTrie(t *testing.T) {
	var txs types.Transactions
	for i := 0; i < 130; i++ {
		txs = append(txs, types.NewTransaction(uint64(i), common.Address{byte(i)}, big.NewInt(int64(i)), 21000, big.NewInt(1), nil))
	}
	got := types.DeriveSha(txs, trie.NewEmpty(nil))

	// Build the same trie by hand, keyed by the RLP encoded index.
	tr := trie.NewEmpty(nil)
	for i, tx := range txs {
		key, err := rlp.EncodeToBytes(uint(i))
		require.NoError(t, err)
		var buf bytes.Buffer
		txs.EncodeIndex(i, &buf)
		require.NoError(t, tr.Update(key, common.CopyBytes(buf.Bytes())))

		enc, err := tx.MarshalBinary()
		require.NoError(t, err)
		require.Equal(t, enc, buf.Bytes())
	}
	require.Equal(t, tr.Hash(), got)
}
