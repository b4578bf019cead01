// Copyright (c) 2025 The libbitcoin developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package log provides the package-level logger shared by every component
// of the p2p core, following the teacher's convention (see
// mining/randomx/miner.go): each subsystem gets a btclog.Logger obtained
// through UseLogger, defaulting to btclog.Disabled until the embedder opts
// in.
package log

import (
	"io"
	"os"

	"github.com/btcsuite/btclog"
	"github.com/jrick/logrotate/rotator"
)

// Backend is the shared btclog backend every package-level logger is
// derived from via Backend.Logger(subsystem).
var Backend = btclog.NewBackend(os.Stdout)

// Disabled is the logger used by packages before UseLogger is called.
var Disabled = btclog.Disabled

// NewRotatingWriter opens a size-rotated log file at path using
// github.com/jrick/logrotate, the same rotation library the teacher's node
// process uses for its debug log. The caller is responsible for closing the
// returned writer (via Close, if the concrete type supports it) on
// shutdown.
func NewRotatingWriter(path string, maxRolls int) (io.WriteCloser, error) {
	return rotator.New(path, 10*1024, false, maxRolls)
}

// NewMultiBackend returns a btclog.Backend that writes every record to both
// stdout and w. It applies no per-writer level filtering: the console and
// the file receive the same records.
func NewMultiBackend(w io.Writer) *btclog.Backend {
	return btclog.NewBackend(io.MultiWriter(os.Stdout, w))
}
