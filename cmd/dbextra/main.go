// Package main provides the dbextra CLI.
//
// The CLI supports:
//   - format: lay out SQL statements for reading, optionally inlining parameters
//   - run: execute a statement against the configured database and print its profile
//   - version: print version information
//
// Usage:
//
//	dbextra [flags] <command>
//
// Connection settings come from dbextra.yaml, DBEXTRA_* environment
// variables or flags, in increasing order of precedence.
package main

import (
	"os"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(exitWithError(os.Stderr, err))
	}
}
