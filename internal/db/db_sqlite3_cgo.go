//go:build cgo && sqlite3_cgo

// FTS5 is required by the search index: build with -tags "sqlite3_cgo sqlite_fts5".
package db

import (
	_ "github.com/mattn/go-sqlite3"
)

const (
	driverID   = "mattn/go-sqlite3"
	driverName = "sqlite3"
)
