package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"factlint/internal/config"
	"factlint/internal/logging"
	"factlint/internal/rules"
	"factlint/internal/rulesdsl"
	"factlint/internal/storage"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"
)

// Exit codes. Findings at or above --fail-on exit 1, degraded analysis under
// --strict exits 2 and any other error exits 3.
const (
	exitFindings = 1
	exitDegraded = 2
	exitError    = 3
)

var (
	rootCmd = &cobra.Command{
		Use:           "factlint",
		Short:         "Fact-based static analysis for Java sources",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	configPath string
	dbPath     string
	logLevel   string
)

// exitStatus ends the process with a code but no error message.
type exitStatus struct {
	code   int
	reason string
}

func (e *exitStatus) Error() string { return e.reason }

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	if err == nil {
		return
	}
	var status *exitStatus
	if errors.As(err, &status) {
		os.Exit(status.code)
	}
	fmt.Fprintln(os.Stderr, "factlint:", err)
	os.Exit(exitError)
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultPath, "Path to the configuration file")
	rootCmd.PersistentFlags().StringVarP(&dbPath, "db", "d", "", "Path to the run history database (SQLite)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: trace, debug, info, warn, error, off")

	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(rulesCmd)
	rootCmd.AddCommand(runsCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(diffCmd)
}

// loadConfig reads the configuration and applies the persistent flags, which
// take precedence over the environment and the file.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.LoadConfig(configPath, cmd.Flags().Changed("config"))
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if dbPath != "" {
		cfg.Storage.DB = dbPath
	}
	return cfg, nil
}

func newLogger(cmd *cobra.Command, cfg *config.Config) hclog.Logger {
	return logging.New(logging.Options{Level: cfg.Log.Level, JSON: cfg.Log.JSON, Output: cmd.ErrOrStderr()})
}

// buildRegistry compiles the configured rule packs and freezes the registry.
func buildRegistry(cfg *config.Config, extraPacks []string) (*rules.Registry, error) {
	packs := append(append([]string(nil), cfg.Rules.Packs...), extraPacks...)
	custom, err := rulesdsl.LoadAll(packs)
	if err != nil {
		return nil, err
	}
	settings, err := cfg.RuleSettings()
	if err != nil {
		return nil, err
	}
	return rules.NewRegistry(rules.WithRules(custom...), rules.WithSettings(settings))
}

// initStore initializes the SQLite store.
func initStore(cfg *config.Config) (*storage.SQLiteStore, error) {
	store, err := storage.NewSQLiteStore(cfg.Storage.DB)
	if err != nil {
		return nil, fmt.Errorf("open run history %s: %w", cfg.Storage.DB, err)
	}
	return store, nil
}
