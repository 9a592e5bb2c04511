// Package sql provides a database/sql backed dialect.Driver with statement
// profiling and debug logging.
//
// # Drivers
//
//   - Driver: Exec/Query/Tx over *sql.DB, with a table prefix, the server
//     version and the platform title
//   - ProfileDriver: records a profiler.Profile for every statement, counts
//     statements and reports slow ones
//   - DebugDriver: logs every statement with its arguments inlined
//
// # Literal quoting
//
// Platform renders Go values as literals of a dialect. It implements
// profiler.Quoter, so profiled statements read the way they would have been
// typed by hand:
//
//	drv, err := sql.Open(dialect.MySQL, dsn, sql.WithPrefix("smf_"))
//	if err != nil {
//	    return err
//	}
//	pd := sql.NewProfileDriver(drv, sql.WithSlowQueryLog(logger))
//	rows := &sql.Rows{}
//	err = pd.Query(ctx, "SELECT name FROM "+drv.Table("users")+" WHERE id = ?", []any{1}, rows)
//
// The recorded profile holds
//
//	SELECT name
//	FROM smf_users
//	WHERE id = '1'
//
// Positional placeholders ("?" and "$N") are rebound to named parameters
// before inlining; see profiler.Rebind.
package sql
