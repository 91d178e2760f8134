// Package main provides the CLI entrypoint for typetest.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/verte-zerg/typetest/internal/config"
	"github.com/verte-zerg/typetest/internal/generator"
	"github.com/verte-zerg/typetest/internal/identity"
	"github.com/verte-zerg/typetest/internal/leaderboard"
	"github.com/verte-zerg/typetest/internal/model"
	"github.com/verte-zerg/typetest/internal/report"
	"github.com/verte-zerg/typetest/internal/session"
	"github.com/verte-zerg/typetest/internal/stats"
	"github.com/verte-zerg/typetest/internal/store"
	"github.com/verte-zerg/typetest/internal/tui"
	"github.com/verte-zerg/typetest/internal/wordlist"
)

var (
	configPath string
	practice   practiceFlags
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "typetest",
		Short:         "Terminal typing speed test",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE:          runPracticeCmd,
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultConfigPath(), "config file path")
	addPracticeFlags(rootCmd, &practice)

	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newStatsCmd())
	rootCmd.AddCommand(newLeaderboardCmd())
	rootCmd.AddCommand(newLoginCmd())
	rootCmd.AddCommand(newServeCmd())

	return rootCmd
}

func runPracticeCmd(cmd *cobra.Command, _ []string) error {
	fileCfg, err := loadFileConfig(configPath)
	if err != nil {
		return err
	}
	cfg, err := resolvePractice(cmd, practice, fileCfg)
	if err != nil {
		return err
	}

	// The TUI owns the terminal, so logs go to a file.
	logger, closeLog, err := newLogger(fileCfg, config.DefaultLogPath())
	if err != nil {
		return fmt.Errorf("failed to set up logging: %w", err)
	}
	defer func() {
		if cerr := closeLog(); cerr != nil {
			_ = cerr
		}
	}()

	words, err := wordlist.Resolve(cfg.WordListPath)
	if err != nil {
		return err
	}

	st, err := store.Open(config.DefaultDBPath())
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			logErrf("failed to close db: %v\n", cerr)
		}
	}()

	gen := generator.NewSeeded(words)
	if cfg.FocusWeak {
		focusInitialWeakSet(context.Background(), st, gen, cfg, logger)
	}

	ctrl := session.NewController(session.Config{
		Mode:     cfg.Mode,
		Options:  generator.Options{Punctuation: cfg.Punctuation, Numbers: cfg.Numbers},
		PoolSize: cfg.PoolSize,
	}, gen)

	reportOpts := []report.Option{report.WithRecorder(st), report.WithLogger(logger)}
	var board tui.Board
	if cfg.ServerURL != "" {
		ids := identity.NewStore(config.DefaultIdentityPath())
		reportOpts = append(reportOpts, report.WithSubmitter(report.NewClient(cfg.ServerURL, nil), ids))
		board = leaderboard.NewClient(cfg.ServerURL, nil)
	}

	logger.Info("practice started", "mode", cfg.Mode.String(), "punctuation", cfg.Punctuation, "numbers", cfg.Numbers)
	m := tui.NewModel(tui.Options{
		Config:     cfg,
		Controller: ctrl,
		Focus:      gen,
		History:    st,
		Reporter:   report.New(reportOpts...),
		Board:      board,
		Logger:     logger,
	})
	program := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run TUI: %w", err)
	}
	return nil
}

func focusInitialWeakSet(ctx context.Context, st *store.Store, gen *generator.Generator, cfg model.Config, logger *slog.Logger) {
	aggs, err := st.GetWeakChars(ctx, cfg.WeakWindow, cfg.Mode.Name())
	if err != nil {
		logErrf("failed to load weak chars: %v\n", err)
		return
	}
	weakSet := stats.SelectWeakChars(aggs, cfg.WeakTop)
	if len(weakSet) == 0 {
		logErrln("no stats available for weak-char focus yet; using normal generator")
		return
	}
	gen.FocusWeak(weakSet, cfg.WeakFactor)
	logger.Debug("weak-char focus enabled", "chars", len(weakSet))
}

func logErrf(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}

func logErrln(args ...any) {
	if _, err := fmt.Fprintln(os.Stderr, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}
