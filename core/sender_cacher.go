// Copyright 2018 The go-ethereum Authors
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

package core

import (
	"runtime"

	"github.com/nodeforge/chaincore/core/types"
	"golang.org/x/sync/errgroup"
)

// recoverSenders derives the sender of every transaction concurrently. The
// results are cached inside the transactions, so the sequential execution
// that follows finds them for free.
func recoverSenders(signer types.Signer, txs types.Transactions) error {
	if len(txs) < 2 {
		return nil
	}
	var g errgroup.Group
	g.SetLimit(runtime.NumCPU())
	for _, tx := range txs {
		g.Go(func() error {
			_, err := types.Sender(signer, tx)
			return err
		})
	}
	return g.Wait()
}
