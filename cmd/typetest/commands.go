package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/verte-zerg/typetest/internal/config"
	"github.com/verte-zerg/typetest/internal/identity"
	"github.com/verte-zerg/typetest/internal/leaderboard"
	"github.com/verte-zerg/typetest/internal/model"
	"github.com/verte-zerg/typetest/internal/report"
	"github.com/verte-zerg/typetest/internal/server"
	"github.com/verte-zerg/typetest/internal/stats"
	"github.com/verte-zerg/typetest/internal/statsui"
	"github.com/verte-zerg/typetest/internal/store"
	"github.com/verte-zerg/typetest/internal/wordlist"
)

const (
	leaderboardRows = 20
	shutdownTimeout = 10 * time.Second
)

func newConfigCmd() *cobra.Command {
	var printOnly bool
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Create/open config file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if printOnly {
				return printPaths(cmd.OutOrStdout())
			}
			return runConfigCmd()
		},
	}
	cmd.Flags().BoolVar(&printOnly, "paths", false, "print file locations instead of opening the editor")
	return cmd
}

func printPaths(w io.Writer) error {
	lines := []string{
		"config:   " + configPath,
		"identity: " + config.DefaultIdentityPath(),
		"history:  " + config.DefaultDBPath(),
		"log:      " + config.DefaultLogPath(),
	}
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	}
	return nil
}

func runConfigCmd() error {
	path := configPath
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to stat config: %w", err)
		}
		if err := os.WriteFile(path, []byte(defaultConfigTemplate()), 0o644); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
	}

	editor := strings.TrimSpace(os.Getenv("EDITOR"))
	if editor == "" {
		editor = "vi"
	}
	parts := strings.Fields(editor)
	cmd := exec.Command(parts[0], append(parts[1:], path)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to open editor: %w", err)
	}
	return nil
}

func newStatsCmd() *cobra.Command {
	var (
		mode        string
		since       string
		last        int
		curveWindow int
		plain       bool
	)
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show stats",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := statsConfig(mode, since, last, curveWindow)
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

			if plain {
				return renderPlainStats(cmd.Context(), cmd.OutOrStdout(), st, cfg)
			}
			program := tea.NewProgram(statsui.NewModel(st, cfg), tea.WithAltScreen())
			if _, err := program.Run(); err != nil {
				return fmt.Errorf("failed to run stats TUI: %w", err)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&mode, "mode", "", "mode filter: words or time")
	cmd.Flags().StringVar(&since, "since", "", "start date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&last, "last", 0, "limit to last N tests")
	cmd.Flags().IntVar(&curveWindow, "curve-window", defaultCurveWindow, "moving average window")
	cmd.Flags().BoolVar(&plain, "plain", false, "print stats instead of opening the stats UI")
	return cmd
}

func statsConfig(mode, since string, last, curveWindow int) (model.StatsConfig, error) {
	mode = strings.ToLower(strings.TrimSpace(mode))
	if mode != "" && mode != "words" && mode != "time" {
		return model.StatsConfig{}, fmt.Errorf("invalid --mode value %q (expected words or time)", mode)
	}
	if last < 0 {
		return model.StatsConfig{}, fmt.Errorf("--last must be >= 0")
	}
	if curveWindow <= 0 {
		return model.StatsConfig{}, fmt.Errorf("--curve-window must be > 0")
	}
	var sinceTime *time.Time
	if since != "" {
		parsed, err := time.ParseInLocation("2006-01-02", since, time.Local)
		if err != nil {
			return model.StatsConfig{}, fmt.Errorf("invalid --since value: %w", err)
		}
		sinceTime = &parsed
	}
	return model.StatsConfig{Mode: mode, Since: sinceTime, Last: last, CurveWindow: curveWindow}, nil
}

func renderPlainStats(ctx context.Context, w io.Writer, src stats.HistorySource, cfg model.StatsConfig) error {
	rep, err := stats.BuildReport(ctx, src, cfg)
	if err != nil {
		return fmt.Errorf("failed to load stats: %w", err)
	}
	if err := stats.RenderSummary(w, rep.Sessions); err != nil {
		return err
	}
	if err := stats.RenderCurves(w, rep.Sessions, cfg.CurveWindow); err != nil {
		return err
	}
	return stats.RenderCharTable(w, rep.CharAggsAll)
}

func newLeaderboardCmd() *cobra.Command {
	var (
		serverURL string
		college   string
		mine      bool
	)
	cmd := &cobra.Command{
		Use:   "leaderboard",
		Short: "Show the global or a college leaderboard",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			fileCfg, err := loadFileConfig(configPath)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("server") {
				serverURL = config.StringOr(fileCfg.Server.URL, serverURL)
			}
			if serverURL == "" {
				return fmt.Errorf("no results service configured (set --server, server.url or %s)", config.EnvServerURL)
			}
			if mine {
				id, err := identity.NewStore(config.DefaultIdentityPath()).Load()
				if err != nil {
					return fmt.Errorf("failed to load identity (run typetest login): %w", err)
				}
				college = id.College
			}

			client := leaderboard.NewClient(strings.TrimRight(serverURL, "/"), nil)
			ctx := cmd.Context()
			var entries []model.LeaderboardEntry
			if college != "" {
				entries, err = client.College(ctx, college)
			} else {
				entries, err = client.Global(ctx)
			}
			if err != nil {
				return err
			}
			return printLeaderboard(cmd.OutOrStdout(), entries, terminalWidth())
		},
	}
	cmd.Flags().StringVar(&serverURL, "server", "", "base URL of the results service")
	cmd.Flags().StringVar(&college, "college", "", "show the leaderboard of one college")
	cmd.Flags().BoolVar(&mine, "mine", false, "show the leaderboard of your own college")
	return cmd
}

func printLeaderboard(w io.Writer, entries []model.LeaderboardEntry, width int) error {
	if len(entries) == 0 {
		_, err := fmt.Fprintln(w, "No results yet.")
		return err
	}
	lines := stats.FormatTable(leaderboard.Headers, leaderboard.Rows(entries, leaderboardRows), map[int]bool{0: true, 2: true, 3: true})
	for _, line := range lines {
		if width > 0 {
			line = runewidth.Truncate(line, width, "")
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	}
	return nil
}

func terminalWidth() int {
	fd := int(os.Stdout.Fd())
	if !term.IsTerminal(fd) {
		return 0
	}
	width, _, err := term.GetSize(fd)
	if err != nil {
		return 0
	}
	return width
}

func newLoginCmd() *cobra.Command {
	var name, email, college string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Save the identity attached to submitted results",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ids := identity.NewStore(config.DefaultIdentityPath())
			out := cmd.OutOrStdout()
			if name == "" && email == "" && college == "" {
				id, err := ids.Load()
				if errors.Is(err, identity.ErrNotFound) {
					_, werr := fmt.Fprintln(out, "Not logged in. Run: typetest login --name NAME --college COLLEGE")
					return werr
				}
				if err != nil {
					return err
				}
				_, err = fmt.Fprintf(out, "%s (%s)\n", id.DisplayName(), id.College)
				return err
			}
			id := model.Identity{Name: name, Email: email, College: college}
			if err := ids.Save(id); err != nil {
				return err
			}
			_, err := fmt.Fprintf(out, "Saved identity for %s to %s\n", id.DisplayName(), ids.Path())
			return err
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().StringVar(&email, "email", "", "email address")
	cmd.Flags().StringVar(&college, "college", "", "college shown on the leaderboard")
	return cmd
}

func newServeCmd() *cobra.Command {
	var (
		flags  practiceFlags
		listen string
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve typing sessions over WebSocket",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			fileCfg, err := loadFileConfig(configPath)
			if err != nil {
				return err
			}
			cfg, err := resolvePractice(cmd, flags, fileCfg)
			if err != nil {
				return err
			}
			applyConfig(cmd, "listen", &listen, fileCfg.Server.Listen)
			return runServe(cmd.Context(), cfg, fileCfg, listen)
		},
	}
	addPracticeFlags(cmd, &flags)
	cmd.Flags().StringVar(&listen, "listen", defaultListen, "address to listen on")
	return cmd
}

func runServe(ctx context.Context, cfg model.Config, fileCfg config.FileConfig, listen string) error {
	logger, closeLog, err := newLogger(fileCfg, "")
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
			logger.Warn("failed to close db", "err", cerr)
		}
	}()

	srv := server.New(server.Config{
		Practice: cfg,
		Reporter: report.New(report.WithRecorder(st), report.WithLogger(logger)),
		Logger:   logger,
	}, words)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := srv.WatchWordList(ctx); err != nil {
			logger.Warn("word list watcher stopped", "err", err)
		}
	}()

	httpSrv := &http.Server{
		Addr:              listen,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", listen, "mode", cfg.Mode.String())
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down: %w", err)
	}
	return nil
}
