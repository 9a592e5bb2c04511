package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/syssam/dbextra/dialect"
	"github.com/syssam/dbextra/dialect/sql"
	"github.com/syssam/dbextra/profiler"
)

type runOptions struct {
	debug bool
}

func newRunCmd(a *app) *cobra.Command {
	var opts runOptions
	cmd := &cobra.Command{
		Use:   "run <sql> [args...]",
		Short: "Execute a statement and print its profile",
		Long: `Execute a statement against the configured database and print its profile.

Positional placeholders ("?" for MySQL and SQLite, "$N" for PostgreSQL) are
bound to the remaining arguments. Rows returned by the statement are printed
as a table, followed by the elapsed time and the statement with its
arguments inlined.`,
		Example: `  # Query a SQLite database
  dbextra run --driver sqlite --dsn app.db "SELECT id, slug FROM pages WHERE status = ?" 1`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			argv := make([]any, len(args)-1)
			for i, arg := range args[1:] {
				argv[i] = arg
			}
			return runStatement(cmd.Context(), a, cmd.OutOrStdout(), args[0], argv, opts)
		},
	}
	cmd.Flags().BoolVar(&opts.debug, "debug", false, "log every statement sent to the database")
	return cmd
}

func runStatement(ctx context.Context, a *app, stdout io.Writer, query string, args []any, opts runOptions) error {
	name, err := a.cfg.DriverName()
	if err != nil {
		return ConfigError("resolving driver", err)
	}
	dsn, err := a.cfg.ConnString()
	if err != nil {
		return ConfigError("resolving connection", err)
	}
	drv, err := sql.Open(name, dsn, sql.WithPrefix(a.cfg.Prefix))
	if err != nil {
		return DBConnectError("connecting to database", err)
	}
	defer func() { _ = drv.Close() }()
	if err := drv.DB().PingContext(ctx); err != nil {
		return DBConnectError("connecting to database", err)
	}
	if version, err := drv.Version(ctx); err == nil {
		a.log.Info("connected", "platform", drv.Title(), "version", version)
	}

	prof := profiler.New(
		profiler.WithQuoter(drv.Platform()),
		profiler.WithFormatter(a.cfg.Formatter()),
		profiler.WithLogger(a.log),
	)
	var db dialect.ExecQuerier = drv
	switch {
	case opts.debug:
		db = sql.NewDebugDriver(drv,
			sql.DebugWithLogger(a.log),
			sql.DebugWithFormatter(a.cfg.Formatter()),
		)
	case a.cfg.Profiler.Enabled:
		db = sql.NewProfileDriver(drv,
			sql.WithProfiler(prof),
			sql.WithSlowThreshold(a.cfg.Profiler.SlowThreshold),
			sql.WithSlowQueryLog(a.log),
		)
	}

	if returnsRows(query) {
		err = queryRows(ctx, db, stdout, query, args)
	} else {
		err = execStatement(ctx, db, stdout, query, args)
	}
	if err != nil {
		return err
	}

	// Only the profiling driver records statements.
	if p, ok := prof.LastProfile(); ok {
		fmt.Fprintf(stdout, "\n-- %s, %s\n%s\n", drv.Title(), p.Elapsed, p.SQL)
	}
	return nil
}

// returnsRows reports whether query is expected to produce a result set.
func returnsRows(query string) bool {
	fields := strings.Fields(query)
	if len(fields) == 0 {
		return false
	}
	switch strings.ToUpper(fields[0]) {
	case "SELECT", "WITH", "SHOW", "EXPLAIN", "PRAGMA", "VALUES", "DESCRIBE":
		return true
	}
	return false
}

func queryRows(ctx context.Context, db dialect.ExecQuerier, w io.Writer, query string, args []any) error {
	rows := &sql.Rows{}
	if err := db.Query(ctx, query, args, rows); err != nil {
		return GeneralError("running query", err)
	}
	columns, records, err := sql.ScanStrings(rows)
	if err != nil {
		return GeneralError("reading rows", err)
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(columns, "\t"))
	for _, record := range records {
		fmt.Fprintln(tw, strings.Join(record, "\t"))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(w, "(%d rows)\n", len(records))
	return nil
}

func execStatement(ctx context.Context, db dialect.ExecQuerier, w io.Writer, query string, args []any) error {
	var res sql.Result
	if err := db.Exec(ctx, query, args, &res); err != nil {
		return GeneralError("running statement", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return GeneralError("reading result", err)
	}
	fmt.Fprintf(w, "(%d rows affected)\n", affected)
	return nil
}
