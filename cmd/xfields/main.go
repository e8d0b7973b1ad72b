package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/thalib/xfields/internal/catalog"
	"github.com/thalib/xfields/internal/config"
	"github.com/thalib/xfields/internal/consistency"
	"github.com/thalib/xfields/internal/database"
	"github.com/thalib/xfields/internal/logging"
	"github.com/thalib/xfields/internal/preflight"
	"github.com/thalib/xfields/internal/table"
)

const (
	exitOK           = 0
	exitError        = 1
	exitInconsistent = 2
)

type options struct {
	configPath    string
	sets          []string
	format        string
	check         bool
	snapshot      bool
	label         string
	replay        string
	listSnapshots bool
	version       bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func parseFlags(args []string, stderr io.Writer) (*options, error) {
	opts := &options{}

	fs := pflag.NewFlagSet("xfields", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVarP(&opts.configPath, "config", "c", "", "path to configuration file (default: ./xfields.yaml if present)")
	fs.StringArrayVarP(&opts.sets, "set", "s", nil, "define a constant as NAME=VALUE before resolution (repeatable)")
	fs.StringVarP(&opts.format, "format", "f", "text", "output format: text, json or yaml")
	fs.BoolVar(&opts.check, "check", false, "run consistency checks and exit 2 if any fail")
	fs.BoolVar(&opts.snapshot, "snapshot", false, "store the resolved table in the catalog")
	fs.StringVar(&opts.label, "label", "", "label for --snapshot")
	fs.StringVar(&opts.replay, "replay", "", "resolve from a stored snapshot ID")
	fs.BoolVar(&opts.listSnapshots, "list-snapshots", false, "list stored snapshots and exit")
	fs.BoolVarP(&opts.version, "version", "v", false, "print version and exit")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}

	switch opts.format {
	case formatText, formatJSON, formatYAML:
	default:
		return nil, fmt.Errorf("invalid format %q, must be one of: text, json, yaml", opts.format)
	}

	return opts, nil
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return exitOK
		}
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitError
	}

	if opts.version {
		fmt.Fprintf(stdout, "xfields %s\n", config.Version())
		return exitOK
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		fmt.Fprintf(stderr, "Failed to load configuration: %v\n", err)
		return exitError
	}

	logging.Init(logging.LoggerConfig{
		Level:       logging.ParseLevel(cfg.Logging.Level),
		Format:      cfg.Logging.Format,
		Output:      stderr,
		FilePath:    cfg.Logging.Path,
		ServiceName: "xfields",
		Version:     config.Version(),
	})

	ctx = logging.SetRunID(ctx, logging.NewRunID())
	logger := logging.GetLogger().WithContext(ctx)
	logConfigSummary(logger, cfg)

	var cat *catalog.Catalog
	if needsCatalog(cfg, opts) {
		driver, err := openCatalog(ctx, cfg, logger)
		if err != nil {
			logger.ErrorWithErr("Catalog unavailable", err)
			fmt.Fprintf(stderr, "Failed to open catalog: %v\n", err)
			return exitError
		}
		defer driver.Close()

		cat = catalog.New(driver).
			WithLogger(logger).
			WithTimeout(time.Duration(cfg.Database.QueryTimeout) * time.Second)
		if _, err := cat.EnsureSchema(ctx); err != nil {
			fmt.Fprintf(stderr, "Failed to prepare catalog: %v\n", err)
			return exitError
		}
	}

	if opts.listSnapshots {
		snaps, err := cat.ListSnapshots(ctx)
		if err != nil {
			fmt.Fprintf(stderr, "Failed to list snapshots: %v\n", err)
			return exitError
		}
		if err := renderSnapshots(stdout, opts.format, snaps, time.Now()); err != nil {
			fmt.Fprintf(stderr, "Failed to write output: %v\n", err)
			return exitError
		}
		return exitOK
	}

	resolver, err := buildResolver(ctx, cfg, opts, cat)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitError
	}
	resolver.WithLogger(logger)

	tbl, err := resolver.Resolve(ctx)
	if err != nil {
		logger.ErrorWithErr("Resolution failed", err)
		fmt.Fprintf(stderr, "Failed to resolve constant table: %v\n", err)
		return exitError
	}

	rep := &report{Table: tbl}

	if opts.snapshot {
		snap, err := cat.SaveSnapshot(ctx, tbl, opts.label)
		if err != nil {
			fmt.Fprintf(stderr, "Failed to save snapshot: %v\n", err)
			return exitError
		}
		rep.SnapshotID = snap.ID
	}

	if opts.check {
		result, err := consistency.NewChecker(&cfg.Check).WithLogger(logger).Check(ctx, tbl)
		if err != nil {
			fmt.Fprintf(stderr, "Consistency check failed: %v\n", err)
			return exitError
		}
		rep.Check = result
	}

	if err := renderReport(stdout, opts.format, rep); err != nil {
		fmt.Fprintf(stderr, "Failed to write output: %v\n", err)
		return exitError
	}

	if rep.Check != nil && !rep.Check.Consistent {
		logger.Warnf("Found %d consistency issue(s)", len(rep.Check.Issues))
		return exitInconsistent
	}
	return exitOK
}

func needsCatalog(cfg *config.AppConfig, opts *options) bool {
	return cfg.Catalog.Enabled || opts.snapshot || opts.replay != "" || opts.listSnapshots
}

// openCatalog connects to the configured catalog database.
func openCatalog(ctx context.Context, cfg *config.AppConfig, logger *logging.Logger) (database.Driver, error) {
	if cfg.Database.Connection == config.Defaults.Database.Connection {
		if check, ok := preflight.ParentOf(cfg.Database.Database, "catalog", true); ok {
			results, err := preflight.EnsureDirs([]preflight.DirCheck{check})
			if err != nil {
				return nil, err
			}
			for _, r := range results {
				if r.Created {
					logger.Infof("Created %s directory %s", r.Label, r.Path)
				}
			}
		}
	}

	driver, err := database.NewDriver(database.Config{
		ConnectionString: cfg.Database.ConnectionString(),
		MaxOpenConns:     2,
		MaxIdleConns:     2,
		ConnMaxLifetime:  time.Minute,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create database driver: %w", err)
	}
	if err := driver.Connect(ctx); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	logger.WithField("dialect", string(driver.Dialect())).Debug("Connected to catalog")
	return driver, nil
}

// buildResolver wires the override sources in precedence order: --set,
// --replay, environment, config file, catalog, link-time injection.
func buildResolver(ctx context.Context, cfg *config.AppConfig, opts *options, cat *catalog.Catalog) (*table.Resolver, error) {
	resolver := table.NewResolver()

	for _, s := range opts.sets {
		name, value, err := table.ParseAssignment(s)
		if err != nil {
			return nil, fmt.Errorf("invalid --set %q: %w", s, err)
		}
		if err := resolver.Define(name, value); err != nil {
			return nil, err
		}
	}

	if opts.replay != "" {
		snap, err := cat.LoadSnapshot(ctx, opts.replay)
		if err != nil {
			return nil, fmt.Errorf("failed to load snapshot: %w", err)
		}
		if err := resolver.AddSource(snap.Source()); err != nil {
			return nil, err
		}
	}

	for _, src := range cfg.Sources() {
		if err := resolver.AddSource(src); err != nil {
			return nil, err
		}
	}

	if cfg.Catalog.Enabled && cat != nil {
		if err := resolver.AddSource(cat); err != nil {
			return nil, err
		}
	}

	if err := resolver.AddSource(table.BuildSource()); err != nil {
		return nil, err
	}

	return resolver, nil
}

// logConfigSummary logs the loaded configuration for debugging
func logConfigSummary(logger *logging.Logger, cfg *config.AppConfig) {
	logger.Debugf("Database: %s (%s)", cfg.Database.Connection, cfg.Database.Database)
	logger.Debugf("Catalog enabled: %v", cfg.Catalog.Enabled)
	logger.Debugf("Config overrides: %d, environment overrides: %d", len(cfg.FileOverrides), len(cfg.EnvOverrides))
	logger.Debugf("Check tolerance: %g", cfg.Check.Tolerance)
}
