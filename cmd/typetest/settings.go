package main

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/verte-zerg/typetest/internal/config"
	"github.com/verte-zerg/typetest/internal/logging"
	"github.com/verte-zerg/typetest/internal/model"
)

const (
	defaultMode        = "words"
	defaultWords       = 25
	defaultSeconds     = 30
	defaultWeakTop     = 8
	defaultWeakFactor  = 2.0
	defaultWeakWindow  = 20
	defaultCurveWindow = 20
	defaultListen      = ":8080"
)

// practiceFlags holds the flags shared by the practice and serve commands.
type practiceFlags struct {
	mode        string
	words       int
	seconds     int
	punctuation bool
	numbers     bool
	wordlist    string
	focusWeak   bool
	weakTop     int
	weakFactor  float64
	weakWindow  int
	server      string
}

func addPracticeFlags(cmd *cobra.Command, f *practiceFlags) {
	cmd.Flags().StringVar(&f.mode, "mode", defaultMode, "test mode: words or time")
	cmd.Flags().IntVar(&f.words, "words", defaultWords, "words per test in words mode")
	cmd.Flags().IntVar(&f.seconds, "time", defaultSeconds, "seconds per test in time mode")
	cmd.Flags().BoolVar(&f.punctuation, "punctuation", false, "decorate words with punctuation")
	cmd.Flags().BoolVar(&f.numbers, "numbers", false, "mix numbers into the text")
	cmd.Flags().StringVar(&f.wordlist, "wordlist", "", "path to a word list (one word per line)")
	cmd.Flags().BoolVar(&f.focusWeak, "focus-weak", false, "bias practice toward weak characters")
	cmd.Flags().IntVar(&f.weakTop, "weak-top", defaultWeakTop, "number of weak characters to focus on")
	cmd.Flags().Float64Var(&f.weakFactor, "weak-factor", defaultWeakFactor, "weight factor for weak characters")
	cmd.Flags().IntVar(&f.weakWindow, "weak-window", defaultWeakWindow, "number of recent tests to compute weak chars")
	cmd.Flags().StringVar(&f.server, "server", "", "base URL of the results service")
}

// resolvePractice layers flags over the config file over defaults. Only flags
// the user actually set win over the file.
func resolvePractice(cmd *cobra.Command, f practiceFlags, fileCfg config.FileConfig) (model.Config, error) {
	p := fileCfg.Practice
	applyConfig(cmd, "mode", &f.mode, p.Mode)
	applyConfig(cmd, "words", &f.words, p.Words)
	applyConfig(cmd, "time", &f.seconds, p.Seconds)
	applyConfig(cmd, "punctuation", &f.punctuation, p.Punctuation)
	applyConfig(cmd, "numbers", &f.numbers, p.Numbers)
	applyConfig(cmd, "wordlist", &f.wordlist, p.WordList)
	applyConfig(cmd, "focus-weak", &f.focusWeak, p.FocusWeak)
	applyConfig(cmd, "weak-top", &f.weakTop, p.WeakTop)
	applyConfig(cmd, "weak-factor", &f.weakFactor, p.WeakFactor)
	applyConfig(cmd, "weak-window", &f.weakWindow, p.WeakWindow)
	applyConfig(cmd, "server", &f.server, fileCfg.Server.URL)

	value := f.words
	if strings.EqualFold(strings.TrimSpace(f.mode), "time") {
		value = f.seconds
	}
	mode, err := model.ParseMode(f.mode, value)
	if err != nil {
		return model.Config{}, fmt.Errorf("invalid mode: %w", err)
	}

	cfg := model.Config{
		Mode:         mode,
		Punctuation:  f.punctuation,
		Numbers:      f.numbers,
		WordListPath: strings.TrimSpace(f.wordlist),
		FocusWeak:    f.focusWeak,
		WeakTop:      f.weakTop,
		WeakFactor:   f.weakFactor,
		WeakWindow:   f.weakWindow,
		ServerURL:    strings.TrimRight(strings.TrimSpace(f.server), "/"),
	}
	if err := validateConfig(cfg); err != nil {
		return model.Config{}, err
	}
	return cfg, nil
}

func applyConfig[T any](cmd *cobra.Command, name string, target, value *T) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func validateConfig(cfg model.Config) error {
	if cfg.WeakTop < 0 {
		return fmt.Errorf("--weak-top must be >= 0")
	}
	if cfg.WeakFactor < 0 {
		return fmt.Errorf("--weak-factor must be >= 0")
	}
	if cfg.WeakWindow < 0 {
		return fmt.Errorf("--weak-window must be >= 0")
	}
	if cfg.ServerURL != "" && !strings.HasPrefix(cfg.ServerURL, "http://") && !strings.HasPrefix(cfg.ServerURL, "https://") {
		return fmt.Errorf("--server must be an http(s) URL")
	}
	return nil
}

// loadFileConfig reads the TOML config and applies environment overrides.
func loadFileConfig(path string) (config.FileConfig, error) {
	fileCfg, err := config.LoadConfig(path)
	if err != nil {
		return config.FileConfig{}, fmt.Errorf("failed to load config: %w", err)
	}
	config.LoadEnv(&fileCfg)
	return fileCfg, nil
}

// newLogger builds the logger from the [log] section. An empty filePath logs
// to stderr.
func newLogger(fileCfg config.FileConfig, filePath string) (*slog.Logger, func() error, error) {
	level, err := logging.ParseLevel(config.StringOr(fileCfg.Log.Level, ""))
	if err != nil {
		return nil, nil, err
	}
	format, err := logging.ParseFormat(config.StringOr(fileCfg.Log.Format, ""))
	if err != nil {
		return nil, nil, err
	}
	return logging.New(logging.Config{
		Level:    level,
		Format:   format,
		FilePath: config.StringOr(fileCfg.Log.File, filePath),
	})
}

func defaultConfigTemplate() string {
	return fmt.Sprintf(`# typetest configuration
# Uncomment a value to enable it. CLI flags override config values.

[practice]
# mode = %q           # words or time
# words = %d             # Words per test in words mode
# time = %d              # Seconds per test in time mode
# punctuation = false     # Decorate words with punctuation
# numbers = false         # Mix numbers into the text
# wordlist = ""           # Custom word list, one word per line
# focus-weak = false      # Bias practice toward weak characters
# weak-top = %d           # Number of weak characters to focus on
# weak-factor = %.1f      # Weight factor for weak characters
# weak-window = %d       # Number of recent tests to compute weak chars

[server]
# url = ""                # Results service base URL (env %s)
# listen = %q        # Address for typetest serve (env %s)

[log]
# level = "info"          # debug, info, warn or error
# format = "text"         # text or json
# file = ""               # Defaults to the state directory
`,
		defaultMode,
		defaultWords,
		defaultSeconds,
		defaultWeakTop,
		defaultWeakFactor,
		defaultWeakWindow,
		config.EnvServerURL,
		defaultListen,
		config.EnvListen,
	)
}
