//go:build !sqlite3_cgo

package db

import (
	// the embedded wasm build ships with FTS5 enabled
	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

const (
	driverID   = "ncruces/go-sqlite3"
	driverName = "sqlite3"
)
