// Copyright 2015 The go-ethereum Authors
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
	"compress/gzip"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/nodeforge/chaincore/consensus"
	"github.com/nodeforge/chaincore/consensus/ethash"
	"github.com/nodeforge/chaincore/core"
	"github.com/nodeforge/chaincore/core/rawdb"
	"github.com/nodeforge/chaincore/core/state"
	"github.com/nodeforge/chaincore/core/types"
	"github.com/nodeforge/chaincore/core/vm"
	"github.com/nodeforge/chaincore/ethdb"
	"github.com/urfave/cli/v2"
)

// importBatchSize is the number of blocks decoded before they are handed
// to the chain.
const importBatchSize = 2500

var (
	initCommand = &cli.Command{
		Action:    initGenesis,
		Name:      "init",
		Usage:     "Bootstrap and initialize a new genesis block",
		ArgsUsage: "<genesisPath>",
		Description: `
The init command initializes a new genesis block and definition for the chain.
This is a destructive action and changes the chain in which you will be
participating.

It expects the genesis file as argument.`,
	}
	importCommand = &cli.Command{
		Action:    importChain,
		Name:      "import",
		Usage:     "Import a blockchain file",
		ArgsUsage: "<filename> (<filename 2> ... <filename N>) ",
		Flags:     []cli.Flag{noIndexFlag},
		Description: `
The import command imports blocks from an RLP-encoded form. The form can be one
file with several RLP-encoded blocks, or several files can be used. Files ending
in .gz are decompressed on the fly.

If only one file is used, import error will result in failure. If several files
are used, processing will proceed even if an individual RLP-file import failure
occurs.`,
	}
	exportCommand = &cli.Command{
		Action:    exportChain,
		Name:      "export",
		Usage:     "Export blockchain into file",
		ArgsUsage: "<filename> [<blockNumFirst> <blockNumLast>]",
		Description: `
Requires a first argument of the file to write to.
Optional second and third arguments control the first and
last block to write. In this mode, the file will be appended
if already existing. If the file ends with .gz, the output will
be gzipped.`,
	}
	headCommand = &cli.Command{
		Action: showHead,
		Name:   "head",
		Usage:  "Show the current head block",
	}
	dumpCommand = &cli.Command{
		Action:    dump,
		Name:      "dump",
		Usage:     "Dump a specific block state from storage",
		ArgsUsage: "[<blockHash> | <blockNum>]",
		Flags:     []cli.Flag{noCodeFlag, noStorageFlag, dumpLimitFlag},
		Description: `
This command dumps out the state for a given block (or latest, if none provided).`,
	}
	inspectCommand = &cli.Command{
		Action: inspect,
		Name:   "inspect",
		Usage:  "Inspect the storage size for each type of data in the database",
	}
)

// openDatabase opens the chain database described by the configuration.
func openDatabase(cfg chaincoreConfig, readonly bool) (ethdb.Database, error) {
	return rawdb.Open(rawdb.OpenOptions{
		Type:      cfg.DBEngine,
		Directory: cfg.DataDir,
		Namespace: "chaincore/db/chaindata/",
		Cache:     cfg.DatabaseCache,
		Handles:   cfg.DatabaseHandles,
		ReadOnly:  readonly,
	})
}

// makeChain opens the database and the chain on top of it. The database
// must already hold a genesis block.
func makeChain(ctx *cli.Context, cfg chaincoreConfig) (*core.BlockChain, ethdb.Database, error) {
	db, err := openDatabase(cfg, false)
	if err != nil {
		return nil, nil, err
	}
	var engine consensus.Engine = ethash.New(ethash.Config{})
	if ctx.Bool(fakePoWFlag.Name) {
		engine = ethash.NewFaker()
	}
	cache := cfg.Cache
	chain, err := core.NewBlockChain(db, &cache, nil, engine, vm.Config{})
	if err != nil {
		db.Close()
		return nil, nil, err
	}
	return chain, db, nil
}

// initGenesis will initialise the given JSON format genesis file and writes it
// as the zero'd block (i.e. genesis) or will fail hard if it can't succeed.
func initGenesis(ctx *cli.Context) error {
	if ctx.Args().Len() != 1 {
		return errors.New("need genesis.json file as the only argument")
	}
	cfg, err := makeConfig(ctx)
	if err != nil {
		return err
	}
	genesisPath := ctx.Args().First()
	file, err := os.Open(genesisPath)
	if err != nil {
		return fmt.Errorf("failed to read genesis file: %v", err)
	}
	defer file.Close()

	genesis := new(core.Genesis)
	if err := json.NewDecoder(file).Decode(genesis); err != nil {
		return fmt.Errorf("invalid genesis file: %v", err)
	}
	db, err := openDatabase(cfg, false)
	if err != nil {
		return err
	}
	defer db.Close()

	_, hash, err := core.SetupGenesisBlock(db, genesis)
	if err != nil {
		return fmt.Errorf("failed to write genesis block: %v", err)
	}
	log.Info("Successfully wrote genesis state", "hash", hash)
	return nil
}

func importChain(ctx *cli.Context) error {
	if ctx.Args().Len() < 1 {
		return errors.New("this command requires an argument")
	}
	cfg, err := makeConfig(ctx)
	if err != nil {
		return err
	}
	chain, db, err := makeChain(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()
	defer chain.Stop()

	var (
		start   = time.Now()
		indexTx = !ctx.Bool(noIndexFlag.Name)
	)
	if ctx.Args().Len() == 1 {
		if err := importFile(chain, ctx.Args().First(), indexTx); err != nil {
			return err
		}
	} else {
		for _, arg := range ctx.Args().Slice() {
			if err := importFile(chain, arg, indexTx); err != nil {
				log.Error("Import error", "file", arg, "err", err)
			}
		}
	}
	head := chain.CurrentHeader()
	fmt.Printf("Import done in %v.\n", time.Since(start))
	fmt.Printf("Head block: #%d [%x]\n", head.Number, head.Hash())
	return nil
}

// importFile imports an RLP stream of blocks. Blocks already in the chain
// are skipped, the rest are imported in order with full validation.
func importFile(chain *core.BlockChain, fn string, indexTx bool) error {
	// Watch for Ctrl-C while the import is running.
	// If a signal is received, the import will stop at the next batch.
	interrupt := make(chan os.Signal, 1)
	stop := make(chan struct{})
	signal.Notify(interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(interrupt)
	defer close(interrupt)
	go func() {
		if _, ok := <-interrupt; ok {
			log.Info("Interrupted during import, stopping at next batch")
		}
		close(stop)
	}()
	checkInterrupt := func() bool {
		select {
		case <-stop:
			return true
		default:
			return false
		}
	}
	log.Info("Importing blockchain", "file", fn)

	// Open the file handle and potentially unwrap the gzip stream
	fh, err := os.Open(fn)
	if err != nil {
		return err
	}
	defer fh.Close()

	var reader io.Reader = fh
	if strings.HasSuffix(fn, ".gz") {
		if reader, err = gzip.NewReader(reader); err != nil {
			return err
		}
	}
	stream := rlp.NewStream(reader, 0)

	blocks := make(types.Blocks, importBatchSize)
	n := 0
	for batch := 0; ; batch++ {
		if checkInterrupt() {
			return errors.New("interrupted")
		}
		i := 0
		for ; i < importBatchSize; i++ {
			var b types.Block
			if err := stream.Decode(&b); err == io.EOF {
				break
			} else if err != nil {
				return fmt.Errorf("at block %d: %v", n, err)
			}
			// don't import first block
			if b.NumberU64() == 0 {
				i--
				continue
			}
			blocks[i] = &b
			n++
		}
		if i == 0 {
			break
		}
		if checkInterrupt() {
			return errors.New("interrupted")
		}
		if err := importBatch(chain, blocks[:i], indexTx); err != nil {
			return err
		}
		log.Debug("Imported batch", "batch", batch, "blocks", i)
	}
	return nil
}

// importBatch imports a run of consecutive blocks, stopping at the first
// rejection.
func importBatch(chain *core.BlockChain, blocks types.Blocks, indexTx bool) error {
	if indexTx {
		if failindex, err := chain.InsertChain(blocks); err != nil {
			return fmt.Errorf("invalid block %d: %v", blocks[failindex].NumberU64(), err)
		}
		return nil
	}
	for _, block := range blocks {
		res := chain.ImportBlockForSyncing(block, nil, consensus.FullValidation, consensus.FullValidation, core.BodyFull, false)
		if !res.Succeeded() {
			return fmt.Errorf("invalid block %d: %s: %v", block.NumberU64(), res.Reason, res.Err)
		}
	}
	return nil
}

func exportChain(ctx *cli.Context) error {
	if ctx.Args().Len() < 1 {
		return errors.New("this command requires an argument")
	}
	cfg, err := makeConfig(ctx)
	if err != nil {
		return err
	}
	chain, db, err := makeChain(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()
	defer chain.Stop()

	start := time.Now()
	fp := ctx.Args().First()
	if ctx.Args().Len() < 3 {
		err = exportFile(chain, fp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, nil)
	} else {
		// This can be improved to allow for numbers larger than 9223372036854775807
		first, ferr := strconv.ParseInt(ctx.Args().Get(1), 10, 64)
		last, lerr := strconv.ParseInt(ctx.Args().Get(2), 10, 64)
		if ferr != nil || lerr != nil {
			return errors.New("export error in parsing parameters: block number not an integer")
		}
		if first < 0 || last < 0 {
			return errors.New("export error: block number must be greater than 0")
		}
		if head := chain.CurrentHeader(); uint64(last) > head.Number.Uint64() {
			return fmt.Errorf("export error: block number %d larger than head block %d", uint64(last), head.Number.Uint64())
		}
		err = exportFile(chain, fp, os.O_CREATE|os.O_WRONLY|os.O_APPEND, []uint64{uint64(first), uint64(last)})
	}
	if err != nil {
		return fmt.Errorf("export error: %v", err)
	}
	fmt.Printf("Export done in %v\n", time.Since(start))
	return nil
}

// exportFile writes the chain, or the given inclusive range of it, to fn.
func exportFile(chain *core.BlockChain, fn string, flags int, span []uint64) error {
	log.Info("Exporting blockchain", "file", fn)

	fh, err := os.OpenFile(fn, flags, os.ModePerm)
	if err != nil {
		return err
	}
	defer fh.Close()

	var writer io.Writer = fh
	if strings.HasSuffix(fn, ".gz") {
		gz := gzip.NewWriter(writer)
		defer gz.Close()
		writer = gz
	}
	if span == nil {
		err = chain.Export(writer)
	} else {
		err = chain.ExportN(writer, span[0], span[1])
	}
	if err != nil {
		return err
	}
	log.Info("Exported blockchain", "file", fn)
	return nil
}

func showHead(ctx *cli.Context) error {
	cfg, err := makeConfig(ctx)
	if err != nil {
		return err
	}
	chain, db, err := makeChain(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()
	defer chain.Stop()

	head := chain.CurrentBlock()
	fmt.Printf("Number:     %d\n", head.NumberU64())
	fmt.Printf("Hash:       %#x\n", head.Hash())
	fmt.Printf("Parent:     %#x\n", head.ParentHash())
	fmt.Printf("Root:       %#x\n", head.Root())
	fmt.Printf("Time:       %v\n", time.Unix(int64(head.Time()), 0).UTC())
	fmt.Printf("Difficulty: %v\n", head.Difficulty())
	fmt.Printf("TD:         %v\n", chain.GetTd(head.Hash(), head.NumberU64()))
	fmt.Printf("Txs:        %d\n", len(head.Transactions()))
	fmt.Printf("State:      %v\n", chain.HasState(head.Root()))
	return nil
}

// parseDumpBlock resolves the block selector of the dump command.
func parseDumpBlock(chain *core.BlockChain, arg string) (*types.Header, error) {
	if arg == "" {
		return chain.CurrentHeader(), nil
	}
	var header *types.Header
	if hashish(arg) {
		header = chain.GetHeaderByHash(common.HexToHash(arg))
	} else {
		number, err := strconv.ParseUint(arg, 10, 64)
		if err != nil {
			return nil, err
		}
		header = chain.GetHeaderByNumber(number)
	}
	if header == nil {
		return nil, fmt.Errorf("block %s not found", arg)
	}
	return header, nil
}

func dump(ctx *cli.Context) error {
	cfg, err := makeConfig(ctx)
	if err != nil {
		return err
	}
	chain, db, err := makeChain(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()
	defer chain.Stop()

	header, err := parseDumpBlock(chain, ctx.Args().First())
	if err != nil {
		return err
	}
	ws, err := chain.WorldStateAt(header.Root)
	if err != nil {
		return fmt.Errorf("state of block #%d unavailable: %w", header.Number, err)
	}
	out, err := ws.Dump(&state.DumpConfig{
		SkipCode:    ctx.Bool(noCodeFlag.Name),
		SkipStorage: ctx.Bool(noStorageFlag.Name),
		Max:         ctx.Uint64(dumpLimitFlag.Name),
	})
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func inspect(ctx *cli.Context) error {
	cfg, err := makeConfig(ctx)
	if err != nil {
		return err
	}
	db, err := openDatabase(cfg, true)
	if err != nil {
		return err
	}
	defer db.Close()

	var total common.StorageSize
	for _, stat := range rawdb.InspectDatabase(db) {
		fmt.Printf("%-20s %10d %12v\n", stat.Name, stat.Count, stat.Size)
		total += stat.Size
	}
	fmt.Printf("%-20s %10s %12v\n", "Total", "", total)
	return nil
}

// hashish returns true for strings that look like hashes.
func hashish(x string) bool {
	_, err := strconv.Atoi(x)
	return err != nil
}
