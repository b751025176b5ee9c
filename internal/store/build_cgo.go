//go:build cgo && sqlite_cgo
// +build cgo,sqlite_cgo

package store

// This file is compiled when building with CGO and the sqlite_cgo tag.
// Build command:
//   CGO_ENABLED=1 go build -tags sqlite_cgo ./...
//
// Driver used: github.com/mattn/go-sqlite3

import (
	_ "github.com/mattn/go-sqlite3"
)

const driverName = "sqlite3"

// BuildMode describes the active SQLite driver configuration, reported by
// the CLI's --version flag.
const BuildMode = "cgo"
