// Package config loads the dbextra configuration from dbextra.yaml, the
// environment and command line flags.
package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/spf13/viper"

	"github.com/syssam/dbextra/dialect"
	"github.com/syssam/dbextra/profiler"
)

const (
	maxWalkDepth = 25
	envPrefix    = "DBEXTRA"
)

// Config represents the dbextra configuration.
type Config struct {
	// Database connection
	Driver   string `mapstructure:"driver"`
	DSN      string `mapstructure:"dsn"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Database string `mapstructure:"database"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	SSLMode  string `mapstructure:"sslmode"`
	Prefix   string `mapstructure:"prefix"`

	Profiler ProfilerConfig `mapstructure:"profiler"`
}

// ProfilerConfig holds statement profiling settings.
type ProfilerConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	SlowThreshold time.Duration `mapstructure:"slow_threshold"`
	InlineColumns int           `mapstructure:"inline_columns"`
	InlineWidth   int           `mapstructure:"inline_width"`
	Indent        int           `mapstructure:"indent"`
}

// Load discovers and loads configuration with proper precedence:
// flags > env > config file > defaults.
//
// Returns the loaded config, the path to the config file (empty if none found),
// and any error encountered.
func Load(explicitConfigPath string) (*Config, string, error) {
	return LoadWith(viper.New(), explicitConfigPath)
}

// LoadWith is Load over a caller provided viper instance, typically one with
// command line flags already bound.
func LoadWith(v *viper.Viper, explicitConfigPath string) (*Config, string, error) {
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	configPath, err := findConfigFile(explicitConfigPath)
	if err != nil {
		return nil, "", err
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, configPath, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, configPath, fmt.Errorf("unmarshaling config: %w", err)
	}
	return &cfg, configPath, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("driver", dialect.MySQL)
	v.SetDefault("dsn", "")
	v.SetDefault("host", "localhost")
	v.SetDefault("port", 0)
	v.SetDefault("database", "")
	v.SetDefault("user", "")
	v.SetDefault("password", "")
	v.SetDefault("sslmode", "")
	v.SetDefault("prefix", "")

	v.SetDefault("profiler.enabled", true)
	v.SetDefault("profiler.slow_threshold", 100*time.Millisecond)
	v.SetDefault("profiler.inline_columns", profiler.DefaultFormatter.InlineColumns)
	v.SetDefault("profiler.inline_width", profiler.DefaultFormatter.InlineWidth)
	v.SetDefault("profiler.indent", len(profiler.DefaultFormatter.Indent))
}

// findConfigFile finds the config file to use.
// If explicitPath is provided, it validates the file exists.
// Otherwise, it walks up from cwd looking for dbextra.yaml or dbextra.yml,
// stopping at a .git directory or after maxWalkDepth levels.
func findConfigFile(explicitPath string) (string, error) {
	if explicitPath != "" {
		if _, err := os.Stat(explicitPath); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicitPath)
		}
		return explicitPath, nil
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("getting cwd: %w", err)
	}

	dir := cwd
	for i := 0; i < maxWalkDepth; i++ {
		for _, name := range []string{"dbextra.yaml", "dbextra.yml"} {
			path := filepath.Join(dir, name)
			if _, err := os.Stat(path); err == nil {
				return path, nil
			}
		}

		// Stop at the repository root.
		if _, err := os.Stat(filepath.Join(dir, ".git")); err == nil {
			break
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", nil
}

// DriverName returns the database/sql driver name of the configured driver.
// The PDO style names "Pdo_Mysql", "Pdo_Pgsql" and "Pdo_Sqlite" are accepted
// as aliases.
func (c *Config) DriverName() (string, error) {
	switch strings.ToLower(c.Driver) {
	case "", "mysql", "pdo_mysql", "mysqli":
		return dialect.MySQL, nil
	case "postgres", "postgresql", "pgsql", "pdo_pgsql":
		return dialect.Postgres, nil
	case "sqlite", "sqlite3", "pdo_sqlite":
		return dialect.SQLite, nil
	}
	return "", fmt.Errorf("unsupported driver %q", c.Driver)
}

// ConnString returns the data source name for the configured driver.
// If dsn is set, it's returned directly. Otherwise, it is built from the
// discrete fields.
func (c *Config) ConnString() (string, error) {
	if c.DSN != "" {
		return c.DSN, nil
	}
	name, err := c.DriverName()
	if err != nil {
		return "", err
	}
	if name == dialect.SQLite {
		if c.Database == "" {
			return "", fmt.Errorf("database is required when dsn is not set")
		}
		return c.Database, nil
	}
	if c.Host == "" {
		return "", fmt.Errorf("host is required when dsn is not set")
	}
	if c.Database == "" {
		return "", fmt.Errorf("database is required when dsn is not set")
	}
	if c.User == "" {
		return "", fmt.Errorf("user is required when dsn is not set")
	}

	if name == dialect.MySQL {
		mc := mysql.NewConfig()
		mc.User = c.User
		mc.Passwd = c.Password
		mc.Net = "tcp"
		mc.Addr = net.JoinHostPort(c.Host, strconv.Itoa(c.port(3306)))
		mc.DBName = c.Database
		mc.ParseTime = true
		return mc.FormatDSN(), nil
	}

	u := &url.URL{
		Scheme: "postgres",
		Host:   net.JoinHostPort(c.Host, strconv.Itoa(c.port(5432))),
		Path:   "/" + c.Database,
	}
	if c.Password != "" {
		u.User = url.UserPassword(c.User, c.Password)
	} else {
		u.User = url.User(c.User)
	}
	if c.SSLMode != "" {
		q := u.Query()
		q.Set("sslmode", c.SSLMode)
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

func (c *Config) port(def int) int {
	if c.Port > 0 {
		return c.Port
	}
	return def
}

// Formatter returns the statement layout configured under profiler.
func (c *Config) Formatter() profiler.Formatter {
	f := profiler.DefaultFormatter
	if c.Profiler.InlineColumns > 0 {
		f.InlineColumns = c.Profiler.InlineColumns
	}
	if c.Profiler.InlineWidth > 0 {
		f.InlineWidth = c.Profiler.InlineWidth
	}
	if c.Profiler.Indent > 0 {
		f.Indent = strings.Repeat(" ", c.Profiler.Indent)
	}
	return f
}
