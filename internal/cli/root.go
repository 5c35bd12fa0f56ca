// Package cli implements the cmarkov CLI commands.
package cli

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/CTAG07/cmarkov/internal/config"
	"github.com/CTAG07/cmarkov/pkg/markov"
)

var (
	configPath string
	dbPath     string
	logLevel   string
	modelName  string

	cfg    *config.Config
	logger *slog.Logger
)

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:   "cmarkov",
	Short: "Constrained Markov sentence generation",
	Long: "Train a corpus of sentences into SQLite, then generate fixed-length sentences\n" +
		"that satisfy per-position constraints with the corpus' transition probabilities.",
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "cmarkov.json", "Config file (.json, .yaml or .yml)")
	RootCmd.PersistentFlags().StringVarP(&dbPath, "db", "d", "", "Database path (default: from config or $CMARKOV_DB_PATH)")
	RootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")
	RootCmd.PersistentFlags().StringVarP(&modelName, "model", "m", "", "Corpus model name (default: from config)")
}

// loadConfig reads the config file, applies the environment and the global
// flags on top of it and sets up logging.
func loadConfig(cmd *cobra.Command, _ []string) error {
	c, err := config.Load(configPath)
	if err != nil {
		if c == nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "warning: %v\n", err)
	}
	c.ApplyEnv()
	if dbPath != "" {
		c.Database.Path = dbPath
	}
	if logLevel != "" {
		c.Log.Level = logLevel
	}
	if modelName != "" {
		c.Model.Name = modelName
	}
	if err = applyModelFlags(cmd, c.Model); err != nil {
		return err
	}
	if err = c.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	cfg = c
	logger = newLogger(c.Log)
	return nil
}

func newLogger(lc *config.LogConfig) *slog.Logger {
	level, _ := config.ParseLevel(lc.Level)
	opts := &slog.HandlerOptions{Level: level}
	if lc.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

func newTokenizer() *markov.DefaultTokenizer {
	return markov.NewDefaultTokenizer(markov.WithLowercase(cfg.Model.Lowercase))
}

// openStore opens the configured database, ensures the schema and returns a
// Store over it. The caller closes both.
func openStore() (*sql.DB, *markov.Store, error) {
	if err := ensureDir(cfg.Database.Path); err != nil {
		return nil, nil, fmt.Errorf("failed to create database directory: %w", err)
	}
	db, err := initDB(cfg.Database.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	if err = markov.SetupSchema(db); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("failed to set up schema: %w", err)
	}
	store, err := markov.NewStore(db, newTokenizer())
	if err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("failed to create store: %w", err)
	}
	store.SetLogger(logger)
	return db, store, nil
}

func exitErr(msg string, err error) {
	fmt.Fprintf(os.Stderr, "error: %s: %v\n", msg, err)
	os.Exit(1)
}
