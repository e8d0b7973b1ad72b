// Package config provides configuration management for xfields.
// It reads an optional YAML file with centralized defaults; environment
// variables prefixed XFIELDS_ take precedence over the file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/spf13/viper"

	"github.com/thalib/xfields/internal/constants"
	xerrors "github.com/thalib/xfields/internal/errors"
	"github.com/thalib/xfields/internal/table"
)

const (
	// VersionMajor is the major version number
	VersionMajor = 1
	// VersionMinor is the minor version number
	VersionMinor = 2

	// EnvPrefix prefixes every environment variable read by xfields.
	EnvPrefix = "XFIELDS"

	constantsKey = "constants"
)

// Version returns the version string in format {major}.{minor}
func Version() string {
	return fmt.Sprintf("%d.%d", VersionMajor, VersionMinor)
}

// Defaults contains all default configuration values
// centralized in one place to avoid hardcoded literals
var Defaults = struct {
	Logging struct {
		Level  string
		Format string
		Path   string
	}
	Database struct {
		Connection   string
		Database     string
		User         string
		Password     string
		Host         string
		QueryTimeout int
	}
	Catalog struct {
		Enabled bool
	}
	Check struct {
		Tolerance float64
		Timeout   int
	}
	ConfigPath string
}{
	Logging: struct {
		Level  string
		Format string
		Path   string
	}{
		Level:  "info",
		Format: "simple",
		Path:   "",
	},
	Database: struct {
		Connection   string
		Database     string
		User         string
		Password     string
		Host         string
		QueryTimeout int
	}{
		Connection:   "sqlite",
		Database:     "xfields.db",
		Host:         "localhost",
		QueryTimeout: 10, // seconds
	},
	Catalog: struct {
		Enabled bool
	}{
		Enabled: false,
	},
	Check: struct {
		Tolerance float64
		Timeout   int
	}{
		Tolerance: 1e-12,
		Timeout:   5, // seconds
	},
	ConfigPath: "xfields.yaml",
}

// AppConfig holds the application configuration.
// It is designed to be immutable after initialization.
type AppConfig struct {
	Logging  LoggingConfig  `mapstructure:"logging"`
	Database DatabaseConfig `mapstructure:"database"`
	Catalog  CatalogConfig  `mapstructure:"catalog"`
	Check    CheckConfig    `mapstructure:"check"`

	// FileOverrides holds the constants section of the config file.
	FileOverrides table.Overrides `mapstructure:"-"`

	// EnvOverrides holds XFIELDS_CONSTANTS_<NAME> variables.
	EnvOverrides table.Overrides `mapstructure:"-"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json, console, simple
	Path   string `mapstructure:"path"`   // log file; empty logs to stderr
}

// DatabaseConfig holds catalog database connection configuration.
type DatabaseConfig struct {
	Connection   string `mapstructure:"connection"`    // database type: sqlite, postgres, mysql
	Database     string `mapstructure:"database"`      // database file/name
	User         string `mapstructure:"user"`          // database user
	Password     string `mapstructure:"password"`      // database password
	Host         string `mapstructure:"host"`          // database host
	QueryTimeout int    `mapstructure:"query_timeout"` // query timeout in seconds
}

// CatalogConfig controls the override and snapshot catalog.
type CatalogConfig struct {
	Enabled bool `mapstructure:"enabled"` // consult stored overrides during resolution
}

// CheckConfig holds consistency check configuration.
type CheckConfig struct {
	Tolerance float64 `mapstructure:"tolerance"` // absolute tolerance of identity checks
	Timeout   int     `mapstructure:"timeout"`   // check timeout in seconds
}

var envKeys = []string{
	"logging.level",
	"logging.format",
	"logging.path",
	"database.connection",
	"database.database",
	"database.user",
	"database.password",
	"database.host",
	"database.query_timeout",
	"catalog.enabled",
	"check.tolerance",
	"check.timeout",
}

var globalConfig *AppConfig

// Load initializes and loads the application configuration.
// An explicit configPath must exist; the default path is optional.
func Load(configPath string) (*AppConfig, error) {
	v := viper.New()

	v.SetDefault("logging.level", Defaults.Logging.Level)
	v.SetDefault("logging.format", Defaults.Logging.Format)
	v.SetDefault("logging.path", Defaults.Logging.Path)
	v.SetDefault("database.connection", Defaults.Database.Connection)
	v.SetDefault("database.database", Defaults.Database.Database)
	v.SetDefault("database.user", Defaults.Database.User)
	v.SetDefault("database.password", Defaults.Database.Password)
	v.SetDefault("database.host", Defaults.Database.Host)
	v.SetDefault("database.query_timeout", Defaults.Database.QueryTimeout)
	v.SetDefault("catalog.enabled", Defaults.Catalog.Enabled)
	v.SetDefault("check.tolerance", Defaults.Check.Tolerance)
	v.SetDefault("check.timeout", Defaults.Check.Timeout)

	v.SetConfigType("yaml")
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigFile(Defaults.ConfigPath)
	}

	// Read config file (optional - continue if the default file doesn't exist)
	if err := v.ReadInConfig(); err != nil {
		if configPath != "" {
			if isNotFound(err) {
				return nil, xerrors.NewConfigError(fmt.Sprintf("config file not found: %s", configPath), err)
			}
			return nil, xerrors.NewConfigError("failed to read config file", err)
		}
		if !isNotFound(err) {
			return nil, xerrors.NewConfigError("failed to read config file", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	for _, key := range envKeys {
		if err := v.BindEnv(key); err != nil {
			return nil, xerrors.NewConfigError("failed to bind environment", err)
		}
	}

	var cfg AppConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, xerrors.NewConfigError("failed to unmarshal config", err)
	}

	fileOverrides, err := table.ParseMap(v.GetStringMap(constantsKey))
	if err != nil {
		return nil, xerrors.NewConfigError("invalid constants section", err)
	}
	cfg.FileOverrides = fileOverrides

	envOverrides, err := LoadEnvOverrides()
	if err != nil {
		return nil, err
	}
	cfg.EnvOverrides = envOverrides

	if err := validate(&cfg); err != nil {
		return nil, xerrors.NewConfigError("config validation failed", err)
	}

	globalConfig = &cfg

	return &cfg, nil
}

// LoadEnvOverrides reads XFIELDS_CONSTANTS_<NAME> variables, e.g.
// XFIELDS_CONSTANTS_QELEM=1.0. Empty variables count as unset.
func LoadEnvOverrides() (table.Overrides, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	out := table.Overrides{}
	for _, name := range constants.Names() {
		key := constantsKey + "." + name.Key()
		if err := v.BindEnv(key); err != nil {
			return nil, xerrors.NewConfigError("failed to bind environment", err)
		}
		if !v.IsSet(key) {
			continue
		}
		value, err := table.ParseValue(name, v.Get(key))
		if err != nil {
			return nil, xerrors.NewConfigError(fmt.Sprintf("invalid %s_%s_%s", EnvPrefix, strings.ToUpper(constantsKey), name), err)
		}
		out[name] = value
	}
	return out, nil
}

// isNotFound reports whether err means the config file does not exist.
// Viper returns ConfigFileNotFoundError only when searching paths; with an
// explicit file it surfaces the underlying fs error.
func isNotFound(err error) bool {
	var notFound viper.ConfigFileNotFoundError
	return errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist)
}

// validate checks configuration values and applies fallbacks.
func validate(cfg *AppConfig) error {
	switch cfg.Logging.Format {
	case "json", "console", "simple":
	case "":
		cfg.Logging.Format = Defaults.Logging.Format
	default:
		return fmt.Errorf("invalid logging format %q, must be one of: json, console, simple", cfg.Logging.Format)
	}

	switch cfg.Database.Connection {
	case "sqlite", "postgres", "mysql":
	case "":
		cfg.Database.Connection = Defaults.Database.Connection
	default:
		return fmt.Errorf("invalid database connection %q, must be one of: sqlite, postgres, mysql", cfg.Database.Connection)
	}
	if cfg.Database.Database == "" {
		cfg.Database.Database = Defaults.Database.Database
	}
	if cfg.Database.QueryTimeout <= 0 {
		cfg.Database.QueryTimeout = Defaults.Database.QueryTimeout
	}

	if cfg.Check.Tolerance <= 0 {
		return fmt.Errorf("check.tolerance must be positive, got %g", cfg.Check.Tolerance)
	}
	if cfg.Check.Timeout <= 0 {
		cfg.Check.Timeout = Defaults.Check.Timeout
	}

	return nil
}

// ConnectionString builds the catalog connection string.
func (c DatabaseConfig) ConnectionString() string {
	switch c.Connection {
	case "postgres":
		if c.User != "" && c.Password != "" {
			return fmt.Sprintf("postgres://%s:%s@%s/%s", c.User, c.Password, c.Host, c.Database)
		}
		return fmt.Sprintf("postgres://%s/%s", c.Host, c.Database)
	case "mysql":
		if c.User != "" && c.Password != "" {
			return fmt.Sprintf("mysql://%s:%s@tcp(%s)/%s", c.User, c.Password, c.Host, c.Database)
		}
		return fmt.Sprintf("mysql://tcp(%s)/%s", c.Host, c.Database)
	default:
		return fmt.Sprintf("sqlite://%s", c.Database)
	}
}

// Sources returns the override sources defined by the configuration, in
// precedence order: environment, then config file.
func (c *AppConfig) Sources() []table.Source {
	return []table.Source{
		table.NewStaticSource(table.OriginEnv, c.EnvOverrides),
		table.NewStaticSource(table.OriginConfig, c.FileOverrides),
	}
}

// Get returns the global configuration instance.
// This is thread-safe as the config is immutable after Load().
func Get() *AppConfig {
	if globalConfig == nil {
		panic("configuration not loaded - call config.Load() first")
	}
	return globalConfig
}
