// Package cli provides the command-line interface for checklist.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/nhle/checklist/internal/model"
	"github.com/nhle/checklist/internal/store"
)

// Version is set at build time.
var Version = "0.1.0"

// sessionKey is used to store the session in the command context.
type sessionKey struct{}

// session carries what every command needs after flags are parsed.
type session struct {
	cfg      *model.AppConfig
	logger   *slog.Logger
	closeLog func() error
}

// NewRootCmd creates and returns the root command.
func NewRootCmd() *cobra.Command {
	var cfgFile string

	rootCmd := &cobra.Command{
		Use:   "checklist",
		Short: "Ordered, grouped checklists backed by SQLite",
		Long: `checklist keeps named lists of entries grouped by status columns.

Ranked columns keep a gap-free order 1..N; dated columns are ordered by date.
Entries can be added, reordered, moved between lists and columns, removed,
exported and imported.`,
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			// Skip config loading for help and completion commands
			if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "__complete" {
				return nil
			}

			path := cfgFile
			if path == "" {
				path = model.DefaultConfigPath()
			}
			cfg, err := model.LoadConfig(path, cmd.Flags())
			if err != nil {
				return err
			}

			logger, closeLog, err := newLogger(cfg, cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			cmd.SetContext(context.WithValue(ctx, sessionKey{}, &session{
				cfg:      cfg,
				logger:   logger,
				closeLog: closeLog,
			}))
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			return sessionFrom(cmd).closeLog()
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global persistent flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ~/.config/checklist/config.yaml)")
	rootCmd.PersistentFlags().String("database", "", "Path to the SQLite database")
	rootCmd.PersistentFlags().String("log-level", "", "Log level (debug|info|warn|error)")
	rootCmd.PersistentFlags().String("log-format", "", "Log format (text|json)")
	rootCmd.PersistentFlags().String("log-file", "", "Also write logs to this file")

	_ = rootCmd.RegisterFlagCompletionFunc("log-format", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"text", "json"}, cobra.ShellCompDirectiveNoFileComp
	})

	rootCmd.AddCommand(newServeCommand())
	rootCmd.AddCommand(newListsCommand())
	rootCmd.AddCommand(newShowCommand())
	rootCmd.AddCommand(newOverviewCommand())
	rootCmd.AddCommand(newAddCommand())
	rootCmd.AddCommand(newMoveCommand())
	rootCmd.AddCommand(newRemoveCommand())
	rootCmd.AddCommand(newSettingsCommand())
	rootCmd.AddCommand(newExportCommand())
	rootCmd.AddCommand(newImportCommand())
	rootCmd.AddCommand(newCheckCommand())
	rootCmd.AddCommand(newConfigCommand())

	return rootCmd
}

// Execute runs the root command.
func Execute() error {
	rootCmd := NewRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}

func sessionFrom(cmd *cobra.Command) *session {
	if cmd.Context() != nil {
		if s, ok := cmd.Context().Value(sessionKey{}).(*session); ok {
			return s
		}
	}
	return &session{
		cfg:      model.DefaultAppConfig(),
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		closeLog: func() error { return nil },
	}
}

// openStore opens the configured database, creating its directory.
func openStore(cmd *cobra.Command) (*store.SQLiteStore, error) {
	sess := sessionFrom(cmd)
	path := sess.cfg.Database.Path

	if dir := filepath.Dir(path); path != ":memory:" && dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}
	return store.NewSQLiteStore(path, store.WithLogger(sess.logger))
}
