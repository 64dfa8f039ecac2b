// Copyright 2024 The go-ethereum Authors
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
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/ethereum/go-ethereum/log"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"gopkg.in/natefinch/lumberjack.v2"
)

// logOutput is the rotating log file, if one is in use.
var logOutput *lumberjack.Logger

// setupLogging installs the root logger. Terminal output is colored when
// stderr is a terminal. With a log file configured, records go to the file
// instead and the file is rotated by size.
func setupLogging(cfg logConfig) error {
	var (
		level   = log.FromLegacyLevel(cfg.Verbosity)
		handler slog.Handler
	)
	if cfg.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.File), 0755); err != nil {
			return err
		}
		logOutput = &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSize,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAge,
			Compress:   cfg.Compress,
		}
		if cfg.JSON {
			handler = log.JSONHandlerWithLevel(logOutput, level)
		} else {
			handler = log.LogfmtHandlerWithLevel(logOutput, level)
		}
	} else {
		var (
			usecolor = (isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd())) && os.Getenv("TERM") != "dumb"
			output   = io.Writer(os.Stderr)
		)
		if usecolor {
			output = colorable.NewColorableStderr()
		}
		if cfg.JSON {
			handler = log.JSONHandlerWithLevel(output, level)
		} else {
			handler = log.NewTerminalHandlerWithLevel(output, level, usecolor)
		}
	}
	log.SetDefault(log.NewLogger(handler))
	return nil
}

// closeLogging flushes and closes the log file.
func closeLogging() {
	if logOutput != nil {
		logOutput.Close()
		logOutput = nil
	}
}
