// Package dialect provides the database dialect abstraction shared by the
// dbextra drivers.
//
// # Supported Dialects
//
//   - Postgres: PostgreSQL database
//   - MySQL: MySQL/MariaDB database
//   - SQLite: SQLite database
//
// Each dialect is identified by a constant string that is also the name of
// its database/sql driver:
//
//	dialect.Postgres = "postgres"
//	dialect.MySQL    = "mysql"
//	dialect.SQLite   = "sqlite"
//
// # Driver Interface
//
//	type Driver interface {
//	    Exec(ctx context.Context, query string, args, v any) error
//	    Query(ctx context.Context, query string, args, v any) error
//	    Tx(ctx context.Context) (Tx, error)
//	    Close() error
//	    Dialect() string
//	}
//
// # Transaction Interface
//
// The Tx interface adds Commit and Rollback to the ExecQuerier methods:
//
//	type Tx interface {
//	    ExecQuerier
//	    Commit() error
//	    Rollback() error
//	}
//
// # Usage
//
//	drv, err := sql.Open(dialect.Postgres, "postgres://...")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer drv.Close()
//
//	prof := profiler.New(profiler.WithQuoter(drv.Platform()))
//	db := sql.NewProfileDriver(drv, sql.WithProfiler(prof))
//
// # Sub-packages
//
//   - dialect/sql: database/sql backed driver, literal quoting, profiling and debug wrappers
package dialect
