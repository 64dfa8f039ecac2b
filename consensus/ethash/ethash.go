// Copyright 2017 The go-ethereum Authors
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

// Package ethash implements a proof-of-work consensus engine with the ethash
// difficulty and reward schedule.
package ethash

import (
	"math/rand"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/nodeforge/chaincore/consensus"
)

var _ consensus.Engine = (*Ethash)(nil)

// Mode defines the type and amount of PoW verification an ethash engine makes.
type Mode uint

const (
	ModeNormal Mode = iota
	ModeFake
	ModeFullFake
)

func (m Mode) String() string {
	switch m {
	case ModeNormal:
		return "Normal"
	case ModeFake:
		return "Fake"
	case ModeFullFake:
		return "FullFake"
	}
	return "unknown"
}

// Config are the configuration parameters of the ethash.
type Config struct {
	PowMode Mode
	Log     log.Logger `toml:"-"`
}

// Ethash is a consensus engine based on proof-of-work.
type Ethash struct {
	config Config

	rand *rand.Rand // Properly seeded random source for nonces
	lock sync.Mutex // Ensures thread safety for the random source

	now func() time.Time

	// The fields below are hooks for testing
	fakeFail  *uint64        // Block number which fails PoW check even in fake mode
	fakeDelay *time.Duration // Time delay to sleep for before returning from verify
}

// New creates a full sized ethash PoW scheme.
func New(config Config) *Ethash {
	if config.Log == nil {
		config.Log = log.Root()
	}
	return &Ethash{
		config: config,
		rand:   rand.New(rand.NewSource(time.Now().UnixNano())),
		now:    time.Now,
	}
}

// NewFaker creates an ethash consensus engine with a fake PoW scheme that accepts
// all blocks' seal as valid, though they still have to conform to the Ethereum
// consensus rules.
func NewFaker() *Ethash {
	return New(Config{PowMode: ModeFake})
}

// NewFakeFailer creates a ethash consensus engine with a fake PoW scheme that
// accepts all blocks as valid apart from the single one specified, though they
// still have to conform to the Ethereum consensus rules.
func NewFakeFailer(fail uint64) *Ethash {
	ethash := NewFaker()
	ethash.fakeFail = &fail
	return ethash
}

// NewFakeDelayer creates a ethash consensus engine with a fake PoW scheme that
// accepts all blocks as valid, but delays verifications by some time, though
// they still have to conform to the Ethereum consensus rules.
func NewFakeDelayer(delay time.Duration) *Ethash {
	ethash := NewFaker()
	ethash.fakeDelay = &delay
	return ethash
}

// NewFullFaker creates an ethash consensus engine with a full fake scheme that
// accepts all blocks as valid, without checking any consensus rules whatsoever.
func NewFullFaker() *Ethash {
	return New(Config{PowMode: ModeFullFake})
}
