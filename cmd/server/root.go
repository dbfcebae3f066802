package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/warp/accommodation-ledger/api"
	"github.com/warp/accommodation-ledger/config"
	"github.com/warp/accommodation-ledger/logger"
	"github.com/warp/accommodation-ledger/pettycash"
	"github.com/warp/accommodation-ledger/store/sqlite"
)

const defaultConfigPath = "ledger.yaml"

type globalFlags struct {
	configPath string
	dbPath     string
	logLevel   string
	logFormat  string
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}
	root := &cobra.Command{
		Use:           "ledger",
		Short:         "Residence accounting ledger",
		Long:          "Accrual income, cash flow and cash-basis balance sheet reporting over an append-only journal of student-accommodation entries.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&g.configPath, "config", "", "Path to ledger.yaml (default ./ledger.yaml if present)")
	root.PersistentFlags().StringVar(&g.dbPath, "db", "", "SQLite database path (overrides database.path)")
	root.PersistentFlags().StringVar(&g.logLevel, "log-level", "", "Log level (overrides logging.level)")
	root.PersistentFlags().StringVar(&g.logFormat, "log-format", "", "Log format json|console (overrides logging.format)")

	root.AddCommand(
		newServeCmd(g),
		newReportCmd(g),
		newSeedCmd(g),
		newConfigCmd(),
	)
	return root
}

// loadConfig reads the config file, if any, and applies flag overrides.
func (g *globalFlags) loadConfig() (*config.Config, error) {
	cfg := config.Default()
	path := g.configPath
	if path == "" {
		path = defaultConfigPath
	}

	loaded, err := config.Load(path)
	switch {
	case err == nil:
		cfg = loaded
	case errors.Is(err, fs.ErrNotExist) && g.configPath == "":
		// No file: defaults apply.
	default:
		return nil, err
	}

	if g.dbPath != "" {
		cfg.Database.Path = g.dbPath
	}
	if g.logLevel != "" {
		cfg.Logging.Level = g.logLevel
	}
	if g.logFormat != "" {
		cfg.Logging.Format = g.logFormat
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

// app is everything a command needs, opened from config.
type app struct {
	cfg     *config.Config
	log     zerolog.Logger
	store   *sqlite.Store
	handler *api.Handler
}

func (g *globalFlags) open(logOut io.Writer) (*app, error) {
	cfg, err := g.loadConfig()
	if err != nil {
		return nil, err
	}
	log, err := logger.NewWithWriter(logOut, cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return nil, err
	}

	st, err := sqlite.New(cfg.Database.Path)
	if err != nil {
		return nil, err
	}

	handler := api.NewHandler(st, api.Options{
		QueryTimeout: cfg.Ledger.QueryTimeout,
		Accounts: pettycash.Accounts{
			PettyCashCode: cfg.PettyCash.PettyCashCode,
			PettyCashName: cfg.PettyCash.PettyCashName,
			BankCode:      cfg.PettyCash.BankCode,
			BankName:      cfg.PettyCash.BankName,
		},
	}, log)
	handler.Scheduler.Enabled = cfg.Scheduler.Enabled
	handler.Scheduler.CheckInterval = cfg.Scheduler.Interval

	return &app{cfg: cfg, log: log, store: st, handler: handler}, nil
}

func (a *app) Close() error {
	return a.store.Close()
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// =============================================================================
// CONFIG
// =============================================================================

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage ledger.yaml",
	}

	var force bool
	initCmd := &cobra.Command{
		Use:   "init [path]",
		Short: "Write a default config file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := defaultConfigPath
			if len(args) == 1 {
				path = args[0]
			}
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}
			if err := config.Save(path, config.Default()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file")

	cmd.AddCommand(initCmd)
	return cmd
}
