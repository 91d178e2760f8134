// Package server hosts typing sessions for remote sinks. Each WebSocket
// connection owns one session Controller driven by its own Runner; rendered
// instructions are streamed back as JSON.
package server

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/verte-zerg/typetest/internal/generator"
	"github.com/verte-zerg/typetest/internal/model"
	"github.com/verte-zerg/typetest/internal/session"
	"github.com/verte-zerg/typetest/internal/wordlist"
)

const (
	maxPreviewWords     = 500
	defaultPreviewWords = 50

	// Upper bounds for sessions requested over /ws.
	maxSessionWords   = 1000
	maxSessionSeconds = 3600
)

// Config configures a Server.
type Config struct {
	// Practice holds the defaults for new connections. Clients may override
	// the mode and decoration through query parameters.
	Practice model.Config
	// Reporter receives finished results. Nil drops them.
	Reporter     session.Reporter
	Logger       *slog.Logger
	TickInterval time.Duration
}

// Server serves the practice engine over HTTP and WebSocket.
type Server struct {
	cfg    Config
	logger *slog.Logger
	vocab  atomic.Pointer[[]string]
	conns  atomic.Int64
}

// New returns a Server drawing target words from vocab.
func New(cfg Config, vocab []string) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	s := &Server{cfg: cfg, logger: logger}
	s.SetVocabulary(vocab)
	return s
}

// SetVocabulary replaces the words new sessions draw from. Connections
// already open keep their vocabulary.
func (s *Server) SetVocabulary(words []string) {
	if len(words) == 0 {
		words = wordlist.Common()
	}
	s.vocab.Store(&words)
}

// Vocabulary returns the words new sessions draw from.
func (s *Server) Vocabulary() []string {
	return *s.vocab.Load()
}

// Connections returns the number of open WebSocket sessions.
func (s *Server) Connections() int64 {
	return s.conns.Load()
}

// WatchWordList reloads the configured word list whenever it changes until
// ctx is cancelled. It returns immediately when no word list is configured.
func (s *Server) WatchWordList(ctx context.Context) error {
	path := s.cfg.Practice.WordListPath
	if path == "" {
		return nil
	}
	return wordlist.Watch(ctx, path, func(words []string) {
		s.SetVocabulary(words)
		s.logger.Info("word list reloaded", "path", path, "words", len(words))
	}, func(err error) {
		s.logger.Warn("word list watch", "path", path, "err", err)
	})
}

// Handler returns the HTTP handler with all routes registered.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Get("/words", s.handleWords)
	})
	r.Get("/ws", s.handleWebSocket)

	return r
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		defer func() {
			s.logger.Debug("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"duration", time.Since(start),
				"request_id", middleware.GetReqID(r.Context()),
			)
		}()
		next.ServeHTTP(ww, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":      "ok",
		"connections": s.Connections(),
		"vocabulary":  len(s.Vocabulary()),
	})
}

func (s *Server) handleWords(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	count := defaultPreviewWords
	if raw := q.Get("count"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > maxPreviewWords {
			respondError(w, http.StatusBadRequest, "count must be between 1 and "+strconv.Itoa(maxPreviewWords))
			return
		}
		count = n
	}
	opts, err := decorationFromQuery(q.Get, s.cfg.Practice)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	words := generator.NewSeeded(s.Vocabulary()).Generate(count, opts)
	respondJSON(w, http.StatusOK, map[string]any{"words": words})
}

func decorationFromQuery(get func(string) string, defaults model.Config) (generator.Options, error) {
	opts := generator.Options{Punctuation: defaults.Punctuation, Numbers: defaults.Numbers}
	if raw := get("punctuation"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return opts, errInvalidParam("punctuation")
		}
		opts.Punctuation = v
	}
	if raw := get("numbers"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return opts, errInvalidParam("numbers")
		}
		opts.Numbers = v
	}
	return opts, nil
}

func modeFromQuery(get func(string) string, defaults model.Mode) (model.Mode, error) {
	name := get("mode")
	rawValue := get("value")
	if name == "" && rawValue == "" {
		return defaults, nil
	}
	if name == "" {
		name = defaults.Name()
	}
	value := 0
	if rawValue != "" {
		n, err := strconv.Atoi(rawValue)
		if err != nil {
			return model.Mode{}, errInvalidParam("value")
		}
		value = n
	} else if name == defaults.Name() {
		value = defaults.Value()
	} else if name == "time" {
		value = 30
	} else {
		value = 25
	}
	mode, err := model.ParseMode(name, value)
	if err != nil {
		return model.Mode{}, err
	}
	if (mode.Name() == "words" && mode.Value() > maxSessionWords) ||
		(mode.Name() == "time" && mode.Value() > maxSessionSeconds) {
		return model.Mode{}, errInvalidParam("value")
	}
	return mode, nil
}
