// Copyright 2025 The go-ethereum Authors
// This file is part of go-ethereum.
//
// go-ethereum is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// go-ethereum is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with go-ethereum. If not, see <http://www.gnu.org/licenses/>.

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/nodeforge/chaincore/consensus/ethash"
	"github.com/nodeforge/chaincore/core"
	"github.com/nodeforge/chaincore/core/state"
	"github.com/nodeforge/chaincore/core/types"
	"github.com/nodeforge/chaincore/core/vm"
	"github.com/nodeforge/chaincore/params"
	"github.com/stretchr/testify/require"
)

const testGenesis = `{
	"config": {
		"chainId": 1337,
		"homesteadBlock": 0,
		"eip150Block": 0,
		"eip155Block": 0,
		"eip158Block": 0,
		"byzantiumBlock": 0,
		"constantinopleBlock": 0,
		"petersburgBlock": 0,
		"istanbulBlock": 0,
		"berlinBlock": 0,
		"londonBlock": 0,
		"ethash": {}
	},
	"nonce": "0x0",
	"timestamp": "0x0",
	"extraData": "0x",
	"gasLimit": "0x47b760",
	"difficulty": "0x20000",
	"alloc": {
		"71562b71999873db5b286df957af199ec94617f7": {"balance": "1000000000000000000"}
	}
}`

var (
	testKey, _ = crypto.HexToECDSA("b71c71a67e1177ad4e901695e1b4b9ee17ae16c6668d313eac2f96dbcda3f291")
	testAddr   = crypto.PubkeyToAddress(testKey.PublicKey)
	recipient  = common.HexToAddress("0x000000000000000000000000000000000000beef")
)

// runApp runs the command line in-process against datadir.
func runApp(t *testing.T, datadir string, args ...string) error {
	t.Helper()
	argv := append([]string{clientIdentifier, "--datadir", datadir, "--fakepow", "--verbosity", "0"}, args...)
	return newApp().Run(argv)
}

// captureStdout returns everything fn writes to stdout.
func captureStdout(t *testing.T, fn func()) string {
	t.Helper()
	r, w, err := os.Pipe()
	require.NoError(t, err)

	saved := os.Stdout
	os.Stdout = w
	done := make(chan []byte)
	go func() {
		out, _ := io.ReadAll(r)
		done <- out
	}()
	fn()
	os.Stdout = saved
	w.Close()
	return string(<-done)
}

// writeTestChain writes the genesis file and an RLP file holding the genesis
// block followed by n generated blocks.
func writeTestChain(t *testing.T, dir string, n int) (string, string, []*types.Block) {
	t.Helper()
	genesisFile := filepath.Join(dir, "genesis.json")
	require.NoError(t, os.WriteFile(genesisFile, []byte(testGenesis), 0644))

	gspec := new(core.Genesis)
	require.NoError(t, json.Unmarshal([]byte(testGenesis), gspec))
	_, blocks, _ := core.GenerateChainWithGenesis(gspec, ethash.NewFaker(), n, func(i int, b *core.BlockGen) {
		tx, err := types.SignTx(types.NewTransaction(b.TxNonce(testAddr), recipient, big.NewInt(1000), params.TxGas, b.BaseFee(), nil), b.Signer(), testKey)
		require.NoError(t, err)
		b.AddTx(tx)
	})
	chainFile := filepath.Join(dir, "chain.rlp")
	fh, err := os.Create(chainFile)
	require.NoError(t, err)
	defer fh.Close()

	require.NoError(t, rlp.Encode(fh, gspec.ToBlock()))
	for _, block := range blocks {
		require.NoError(t, rlp.Encode(fh, block))
	}
	return genesisFile, chainFile, blocks
}

func openTestChain(t *testing.T, datadir string) *core.BlockChain {
	t.Helper()
	cfg := defaultConfig
	cfg.DataDir = datadir
	db, err := openDatabase(cfg, false)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	chain, err := core.NewBlockChain(db, nil, nil, ethash.NewFaker(), vm.Config{})
	require.NoError(t, err)
	t.Cleanup(chain.Stop)
	return chain
}

func TestInitImportExport(t *testing.T) {
	var (
		dir     = t.TempDir()
		datadir = filepath.Join(dir, "data")
	)
	genesisFile, chainFile, blocks := writeTestChain(t, dir, 5)

	require.NoError(t, runApp(t, datadir, "init", genesisFile))
	require.NoError(t, runApp(t, datadir, "import", chainFile))
	// Importing the same file again skips the known blocks.
	require.NoError(t, runApp(t, datadir, "import", chainFile))

	exportFile := filepath.Join(dir, "export.rlp")
	require.NoError(t, runApp(t, datadir, "export", exportFile))

	fh, err := os.Open(exportFile)
	require.NoError(t, err)
	defer fh.Close()
	stream := rlp.NewStream(fh, 0)
	for i := 0; i <= len(blocks); i++ {
		var block types.Block
		require.NoError(t, stream.Decode(&block))
		require.Equal(t, uint64(i), block.NumberU64())
		if i > 0 {
			require.Equal(t, blocks[i-1].Hash(), block.Hash())
		}
	}
	var extra types.Block
	require.ErrorIs(t, stream.Decode(&extra), io.EOF)

	chain := openTestChain(t, datadir)
	head := chain.CurrentBlock()
	require.Equal(t, blocks[len(blocks)-1].Hash(), head.Hash())

	ws, err := chain.WorldStateAt(head.Root())
	require.NoError(t, err)
	sender, err := ws.Get(testAddr)
	require.NoError(t, err)
	require.Equal(t, uint64(len(blocks)), sender.Nonce)
	account, err := ws.Get(recipient)
	require.NoError(t, err)
	require.Equal(t, uint64(5000), account.Balance.Uint64())
}

func TestImportGzipWithoutIndex(t *testing.T) {
	var (
		dir     = t.TempDir()
		datadir = filepath.Join(dir, "data")
	)
	genesisFile, chainFile, blocks := writeTestChain(t, dir, 3)
	require.NoError(t, runApp(t, datadir, "init", genesisFile))
	require.NoError(t, runApp(t, datadir, "import", chainFile))

	// Round-trip the chain through a gzipped export into a second datadir.
	gzFile := filepath.Join(dir, "chain.rlp.gz")
	require.NoError(t, runApp(t, datadir, "export", gzFile))

	otherdir := filepath.Join(dir, "other")
	require.NoError(t, runApp(t, otherdir, "init", genesisFile))
	require.NoError(t, runApp(t, otherdir, "import", "--noindex", gzFile))

	chain := openTestChain(t, otherdir)
	require.Equal(t, blocks[len(blocks)-1].Hash(), chain.CurrentBlock().Hash())

	tx := blocks[0].Transactions()[0]
	entry, _ := chain.GetTransactionLookup(tx.Hash())
	require.Nil(t, entry)
}

func TestImportWithoutGenesis(t *testing.T) {
	var (
		dir     = t.TempDir()
		datadir = filepath.Join(dir, "data")
	)
	_, chainFile, _ := writeTestChain(t, dir, 2)
	require.ErrorIs(t, runApp(t, datadir, "import", chainFile), core.ErrNoGenesis)
}

func TestImportForeignChain(t *testing.T) {
	var (
		dir     = t.TempDir()
		datadir = filepath.Join(dir, "data")
	)
	_, chainFile, _ := writeTestChain(t, dir, 2)

	// A genesis with a different allocation does not parent the generated chain.
	other := filepath.Join(dir, "other.json")
	foreign := strings.Replace(testGenesis, "1000000000000000000", "2000000000000000000", 1)
	require.NoError(t, os.WriteFile(other, []byte(foreign), 0644))
	require.NoError(t, runApp(t, datadir, "init", other))

	err := runApp(t, datadir, "import", chainFile)
	require.Error(t, err)
	require.Contains(t, err.Error(), "invalid block 1")
}

func TestExportRange(t *testing.T) {
	var (
		dir     = t.TempDir()
		datadir = filepath.Join(dir, "data")
	)
	genesisFile, chainFile, blocks := writeTestChain(t, dir, 4)
	require.NoError(t, runApp(t, datadir, "init", genesisFile))
	require.NoError(t, runApp(t, datadir, "import", chainFile))

	out := filepath.Join(dir, "range.rlp")
	require.NoError(t, runApp(t, datadir, "export", out, "2", "3"))
	require.Error(t, runApp(t, datadir, "export", out, "2", "9"))
	require.Error(t, runApp(t, datadir, "export", out, "x", "3"))

	fh, err := os.Open(out)
	require.NoError(t, err)
	defer fh.Close()
	stream := rlp.NewStream(fh, 0)
	for _, want := range blocks[1:3] {
		var block types.Block
		require.NoError(t, stream.Decode(&block))
		require.Equal(t, want.Hash(), block.Hash())
	}
}

func TestHeadAndDump(t *testing.T) {
	var (
		dir     = t.TempDir()
		datadir = filepath.Join(dir, "data")
	)
	genesisFile, chainFile, blocks := writeTestChain(t, dir, 2)
	require.NoError(t, runApp(t, datadir, "init", genesisFile))
	require.NoError(t, runApp(t, datadir, "import", chainFile))
	head := blocks[len(blocks)-1]

	out := captureStdout(t, func() {
		require.NoError(t, runApp(t, datadir, "head"))
	})
	require.Contains(t, out, fmt.Sprintf("Number:     %d", head.NumberU64()))
	require.Contains(t, out, fmt.Sprintf("Hash:       %#x", head.Hash()))

	out = captureStdout(t, func() {
		require.NoError(t, runApp(t, datadir, "dump", "--limit", "1", "1"))
	})
	var dump state.Dump
	require.NoError(t, json.Unmarshal([]byte(out), &dump))
	require.Equal(t, fmt.Sprintf("%x", blocks[0].Root()), dump.Root)
	require.Len(t, dump.Accounts, 1)

	require.Error(t, runApp(t, datadir, "dump", "7"))
}

func TestInspect(t *testing.T) {
	var (
		dir     = t.TempDir()
		datadir = filepath.Join(dir, "data")
	)
	genesisFile, chainFile, _ := writeTestChain(t, dir, 2)
	require.NoError(t, runApp(t, datadir, "init", genesisFile))
	require.NoError(t, runApp(t, datadir, "import", chainFile))

	out := captureStdout(t, func() {
		require.NoError(t, runApp(t, datadir, "inspect"))
	})
	require.Contains(t, out, "Headers")
	require.Contains(t, out, "Total")
}

func TestInitInvalidGenesis(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"config": `), 0644))

	require.Error(t, runApp(t, filepath.Join(dir, "data"), "init", bad))
	require.Error(t, runApp(t, filepath.Join(dir, "data"), "init"))
}
