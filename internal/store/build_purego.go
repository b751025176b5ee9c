//go:build !sqlite_cgo
// +build !sqlite_cgo

package store

// Default build: pure Go SQLite, no C compiler required.
// Driver used: modernc.org/sqlite

import (
	_ "modernc.org/sqlite"
)

const driverName = "sqlite"

// BuildMode describes the active SQLite driver configuration, reported by
// the CLI's --version flag.
const BuildMode = "purego"
