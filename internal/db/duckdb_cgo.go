//go:build cgo

package db

// go-duckdb requires cgo; without it only the sqlite driver is registered.
import _ "github.com/marcboeker/go-duckdb"
