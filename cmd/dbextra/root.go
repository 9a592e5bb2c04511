package main

import (
	"io"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/syssam/dbextra/internal/config"
)

// app holds the state shared by the commands of one invocation.
type app struct {
	v          *viper.Viper
	cfg        *config.Config
	configPath string
	log        *slog.Logger

	// Persistent flags
	cfgFile string
	verbose int
	quiet   bool
}

// Command group IDs
const (
	groupSQL     = "sql"
	groupUtility = "utility"
)

func newRootCmd() *cobra.Command {
	a := &app{v: viper.New()}
	rootCmd := &cobra.Command{
		Use:   "dbextra",
		Short: "SQL statement profiler and formatter",
		Long: `dbextra - SQL statement profiler and formatter

dbextra lays SQL statements out on indented lines with their parameters
inlined, and runs statements against MySQL, PostgreSQL or SQLite while
recording how long they took.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			a.log = newLogger(cmd.ErrOrStderr(), a.verbose, a.quiet)
			if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "version" {
				return nil
			}
			var err error
			a.cfg, a.configPath, err = config.LoadWith(a.v, a.cfgFile)
			if err != nil {
				return ConfigError("loading configuration", err)
			}
			if a.configPath != "" {
				a.log.Info("configuration loaded", "path", a.configPath)
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&a.cfgFile, "config", "", "config file (default: auto-discover dbextra.yaml)")
	pf.CountVarP(&a.verbose, "verbose", "v", "increase verbosity (can be repeated)")
	pf.BoolVarP(&a.quiet, "quiet", "q", false, "suppress non-error output")
	pf.String("driver", "", "database driver: mysql, postgres or sqlite")
	pf.String("dsn", "", "data source name, overrides the discrete connection settings")
	pf.String("prefix", "", "table name prefix")
	for _, name := range []string{"driver", "dsn", "prefix"} {
		_ = a.v.BindPFlag(name, pf.Lookup(name))
	}

	rootCmd.AddGroup(
		&cobra.Group{ID: groupSQL, Title: "SQL:"},
		&cobra.Group{ID: groupUtility, Title: "Utility:"},
	)

	formatCmd := newFormatCmd(a)
	runCmd := newRunCmd(a)
	formatCmd.GroupID = groupSQL
	runCmd.GroupID = groupSQL
	rootCmd.AddCommand(formatCmd, runCmd)

	versionCmd := newVersionCmd()
	versionCmd.GroupID = groupUtility
	rootCmd.AddCommand(versionCmd)
	return rootCmd
}

// newLogger returns a text logger writing to w whose level follows the
// verbosity flags.
func newLogger(w io.Writer, verbose int, quiet bool) *slog.Logger {
	level := slog.LevelWarn
	switch {
	case quiet:
		level = slog.LevelError
	case verbose == 1:
		level = slog.LevelInfo
	case verbose > 1:
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}
