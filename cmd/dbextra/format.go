package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/syssam/dbextra/dialect/sql"
	"github.com/syssam/dbextra/profiler"
)

type formatOptions struct {
	params  string
	dialect string
	indent  int
	columns int
	width   int
	jobs    int
}

func newFormatCmd(a *app) *cobra.Command {
	var opts formatOptions
	cmd := &cobra.Command{
		Use:   "format [files...]",
		Short: "Lay out SQL statements on indented lines",
		Long: `Lay out SQL statements on indented lines.

Statements are read from the given files, or from stdin when no file is
given. With --params, the ":name" placeholders of the statement are replaced
by the values of a YAML mapping, quoted for the dialect selected by --dialect
(default: the configured driver). A YAML sequence binds "?" and "$N"
placeholders by position instead.`,
		Example: `  # Format a statement from stdin
  echo "SELECT id, name, email FROM users WHERE a = 1 AND b = 2" | dbextra format

  # Inline parameters for MySQL
  dbextra format query.sql --params params.yaml --dialect mysql`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFormat(cmd.Context(), a, cmd.InOrStdin(), cmd.OutOrStdout(), args, opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.params, "params", "", "YAML file with the statement parameters")
	f.StringVar(&opts.dialect, "dialect", "", "dialect used to quote parameters (default: configured driver)")
	f.IntVar(&opts.indent, "indent", 0, "spaces per indentation level (default: configured profiler.indent)")
	f.IntVar(&opts.columns, "columns", 0, "largest projection kept on the SELECT line (default: configured profiler.inline_columns)")
	f.IntVar(&opts.width, "width", 0, "projection length limit for the SELECT line (default: configured profiler.inline_width)")
	f.IntVar(&opts.jobs, "jobs", 4, "files formatted concurrently")
	return cmd
}

func runFormat(ctx context.Context, a *app, stdin io.Reader, stdout io.Writer, files []string, opts formatOptions) error {
	formatter := a.cfg.Formatter()
	if opts.indent > 0 {
		formatter.Indent = strings.Repeat(" ", opts.indent)
	}
	if opts.columns > 0 {
		formatter.InlineColumns = opts.columns
	}
	if opts.width > 0 {
		formatter.InlineWidth = opts.width
	}

	var quoter profiler.Quoter
	bind := func(query string) *profiler.Statement { return profiler.NewStatement(query, nil) }
	if opts.params != "" {
		name := opts.dialect
		if name == "" {
			var err error
			if name, err = a.cfg.DriverName(); err != nil {
				return ConfigError("resolving dialect", err)
			}
		}
		quoter = sql.PlatformFor(name)
		var err error
		if bind, err = loadParams(opts.params); err != nil {
			return InputError("reading parameters", err)
		}
	}
	render := func(query string) string {
		if quoter == nil {
			return formatter.Format(query)
		}
		return profiler.Render(bind(query), quoter, formatter)
	}

	if len(files) == 0 {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return InputError("reading stdin", err)
		}
		_, err = fmt.Fprintln(stdout, render(string(data)))
		return err
	}

	out := make([]string, len(files))
	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(max(opts.jobs, 1))
	for i, file := range files {
		g.Go(func() error {
			data, err := os.ReadFile(file)
			if err != nil {
				return InputError("reading "+file, err)
			}
			out[i] = render(string(data))
			a.log.Debug("formatted", "file", file, "bytes", len(data))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	for i, file := range files {
		if len(files) > 1 {
			if i > 0 {
				fmt.Fprintln(stdout)
			}
			fmt.Fprintf(stdout, "-- %s\n", file)
		}
		if _, err := fmt.Fprintln(stdout, out[i]); err != nil {
			return err
		}
	}
	return nil
}

// loadParams reads a YAML parameter file. A mapping binds ":name"
// placeholders in document order; a sequence binds positional ones.
func loadParams(path string) (func(string) *profiler.Statement, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return func(query string) *profiler.Statement { return profiler.NewStatement(query, nil) }, nil
	}
	root := doc.Content[0]
	switch root.Kind {
	case yaml.MappingNode:
		params := profiler.NewParams()
		for i := 0; i+1 < len(root.Content); i += 2 {
			var v any
			if err := root.Content[i+1].Decode(&v); err != nil {
				return nil, fmt.Errorf("parameter %s: %w", root.Content[i].Value, err)
			}
			params.Set(strings.TrimPrefix(root.Content[i].Value, ":"), v)
		}
		return func(query string) *profiler.Statement { return profiler.NewStatement(query, params) }, nil
	case yaml.SequenceNode:
		var args []any
		if err := root.Decode(&args); err != nil {
			return nil, err
		}
		return func(query string) *profiler.Statement { return profiler.Rebind(query, args) }, nil
	}
	return nil, fmt.Errorf("line %d: expected a mapping or a sequence of parameters", root.Line)
}
