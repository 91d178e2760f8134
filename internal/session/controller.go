package session

import (
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/verte-zerg/typetest/internal/generator"
	"github.com/verte-zerg/typetest/internal/matcher"
	"github.com/verte-zerg/typetest/internal/model"
	"github.com/verte-zerg/typetest/internal/stats"
)

const (
	defaultPoolSize    = 100
	defaultRefillAhead = 30
)

// WordSource produces target tokens for a session.
type WordSource interface {
	Generate(count int, opts generator.Options) []string
	Extend(last string, count int, opts generator.Options) []string
}

// Config configures the sessions a Controller creates.
type Config struct {
	Mode    model.Mode
	Options generator.Options
	// PoolSize is the number of tokens generated up front and per refill in
	// duration mode.
	PoolSize int
	// RefillAhead extends the pool once fewer words than this remain ahead
	// of the cursor in duration mode.
	RefillAhead int
}

// Update is the outcome of handling one event. Submit is set exactly once per
// session, on the transition into Finished.
type Update struct {
	Instructions []Instruction
	Submit       *model.Result
}

func (u *Update) add(instrs ...Instruction) {
	u.Instructions = append(u.Instructions, instrs...)
}

// Option customizes a Controller.
type Option func(*Controller)

// WithIDGenerator replaces the session id generator.
func WithIDGenerator(fn func() string) Option {
	return func(c *Controller) {
		c.newID = fn
	}
}

// Controller owns the current Session and reduces events into render
// instructions. It is not safe for concurrent use; callers serialize events.
type Controller struct {
	cfg   Config
	words WordSource
	newID func() string
	sess  *Session
}

// NewController returns a Controller with a fresh NotStarted session.
func NewController(cfg Config, words WordSource, opts ...Option) *Controller {
	if cfg.PoolSize <= 0 {
		cfg.PoolSize = defaultPoolSize
	}
	if cfg.RefillAhead <= 0 {
		cfg.RefillAhead = defaultRefillAhead
	}
	cfg.RefillAhead = min(cfg.RefillAhead, cfg.PoolSize)
	c := &Controller{cfg: cfg, words: words, newID: uuid.NewString}
	for _, opt := range opts {
		opt(c)
	}
	c.reset()
	return c
}

// Session returns the current session.
func (c *Controller) Session() *Session {
	return c.sess
}

// Config returns the configuration used for new sessions.
func (c *Controller) Config() Config {
	return c.cfg
}

// Finalize ends a running session at the given time. Calling it again, or on
// a session that never started, does nothing.
func (c *Controller) Finalize(at time.Time) Update {
	return c.Handle(End(at))
}

// Handle applies one event to the current session.
func (c *Controller) Handle(ev Event) Update {
	var u Update
	s := c.sess
	switch ev.Kind {
	case EventReset:
		c.reset()
		u.Instructions = c.Snapshot(ev.At)
		return u
	case EventSubmitted:
		if ev.SessionID == s.ID && s.State == Finished {
			outcome := ev.Outcome
			u.add(Instruction{Kind: KindNotice, Notice: &outcome})
		}
	case EventTick:
		if ev.SessionID != s.ID || s.State != Running {
			return u
		}
		if c.expired(ev.At) {
			c.finish(&u, c.deadline())
			break
		}
		u.add(c.statsInstr(ev.At), c.progressInstr(ev.At))
	case EventEnd:
		if s.State == Running {
			c.finish(&u, c.clampEnd(ev.At))
		}
	case EventBackspace:
		if s.State != Running || len(s.input) == 0 {
			return u
		}
		if c.expired(ev.At) {
			c.finish(&u, c.deadline())
			break
		}
		s.input = s.input[:len(s.input)-1]
		c.live(&u, ev.At)
	case EventRune:
		c.typeRune(&u, ev.Rune, ev.At)
	}
	c.stamp(u.Instructions)
	return u
}

// Snapshot returns the instructions needed to draw the current session from
// scratch.
func (c *Controller) Snapshot(at time.Time) []Instruction {
	s := c.sess
	instrs := []Instruction{
		{Kind: KindReset},
		{Kind: KindWords, Words: s.Tokens()},
	}
	for i, w := range s.Words {
		if w.Committed || len(w.Input) > 0 {
			instrs = append(instrs, c.wordInstr(i))
		}
	}
	instrs = append(instrs, c.cursorInstr(), c.statsInstr(at), c.progressInstr(at))
	if res, ok := s.Result(); ok {
		m := stats.Metrics{WPM: res.WPM, RawWPM: res.RawWPM, Accuracy: res.Accuracy}
		instrs = append(instrs, Instruction{Kind: KindResult, Result: &res, Metrics: &m})
	}
	c.stamp(instrs)
	return instrs
}

func (c *Controller) typeRune(u *Update, r rune, at time.Time) {
	s := c.sess
	switch s.State {
	case Finished:
		return
	case Running:
		if c.expired(at) {
			c.finish(u, c.deadline())
			return
		}
	}
	if r == matcher.Boundary {
		if len(s.input) > 0 {
			c.commit(u, at)
		}
		return
	}
	started := false
	if s.State == NotStarted {
		s.State = Running
		s.StartTime = at
		started = true
	}
	s.input = append(s.input, r)
	c.live(u, at)
	if started {
		u.add(c.progressInstr(at))
	}
}

func (c *Controller) live(u *Update, at time.Time) {
	s := c.sess
	s.Words[s.CurrentWordIndex].Live(s.input)
	s.CurrentCharIndex = len(s.input)
	u.add(c.wordInstr(s.CurrentWordIndex), c.cursorInstr(), c.statsInstr(at))
}

func (c *Controller) commit(u *Update, at time.Time) {
	s := c.sess
	idx := s.CurrentWordIndex
	s.fold(matcher.Commit(s.Words[idx], s.input, true))
	s.CompletedWordCount++
	s.CurrentWordIndex++
	s.CurrentCharIndex = 0
	s.input = nil
	u.add(c.wordInstr(idx))

	if s.Mode.Kind == model.ModeWords && s.CompletedWordCount >= s.Mode.Words {
		c.finish(u, at)
		return
	}
	c.refill(u)
	if s.CurrentWordIndex >= len(s.Words) {
		c.finish(u, at)
		return
	}
	u.add(c.cursorInstr(), c.statsInstr(at), c.progressInstr(at))
}

func (c *Controller) refill(u *Update) {
	s := c.sess
	if s.Mode.Kind != model.ModeTime || len(s.Words)-s.CurrentWordIndex >= c.cfg.RefillAhead {
		return
	}
	last := ""
	if len(s.Words) > 0 {
		last = s.Words[len(s.Words)-1].Text
	}
	start := len(s.Words)
	tokens := c.words.Extend(last, c.cfg.PoolSize, s.Options)
	for _, tok := range tokens {
		s.Words = append(s.Words, matcher.NewWord(tok))
	}
	u.add(Instruction{Kind: KindAppend, Index: start, Words: tokens})
}

func (c *Controller) finish(u *Update, at time.Time) {
	s := c.sess
	if s.State != Running {
		return
	}
	if len(s.input) > 0 && s.CurrentWordIndex < len(s.Words) {
		idx := s.CurrentWordIndex
		s.fold(matcher.Commit(s.Words[idx], s.input, false))
		u.add(c.wordInstr(idx))
	}
	s.State = Finished
	s.EndTime = at

	elapsed := s.Elapsed(at)
	m := stats.ComputeElapsed(s.CorrectChars, s.IncorrectChars, elapsed)
	res := model.Result{
		SessionID:       s.ID,
		StartedAt:       s.StartTime,
		EndedAt:         at,
		Mode:            s.Mode.Name(),
		ModeValue:       s.Mode.Value(),
		Punctuation:     s.Options.Punctuation,
		Numbers:         s.Options.Numbers,
		WPM:             m.WPM,
		RawWPM:          m.RawWPM,
		Accuracy:        m.Accuracy,
		CorrectChars:    s.CorrectChars,
		IncorrectChars:  s.IncorrectChars,
		DurationSeconds: math.Round(elapsed.Seconds()*100) / 100,
		Chars:           s.charStats(),
	}
	s.result = &res
	submit := res
	u.Submit = &submit
	u.add(Instruction{Kind: KindResult, Result: &res, Metrics: &m})
}

func (c *Controller) reset() {
	n := c.cfg.PoolSize
	if c.cfg.Mode.Kind == model.ModeWords {
		n = c.cfg.Mode.Words
	}
	tokens := c.words.Generate(n, c.cfg.Options)
	c.sess = newSession(c.newID(), c.cfg.Mode, c.cfg.Options, tokens)
}

func (c *Controller) deadline() time.Time {
	return c.sess.StartTime.Add(c.sess.Mode.Limit())
}

func (c *Controller) expired(at time.Time) bool {
	s := c.sess
	return s.State == Running && s.Mode.Kind == model.ModeTime && !at.Before(c.deadline())
}

func (c *Controller) clampEnd(at time.Time) time.Time {
	if c.sess.Mode.Kind == model.ModeTime && at.After(c.deadline()) {
		return c.deadline()
	}
	return at
}

func (c *Controller) stamp(instrs []Instruction) {
	for i := range instrs {
		instrs[i].SessionID = c.sess.ID
		instrs[i].State = c.sess.State
	}
}

func (c *Controller) wordInstr(idx int) Instruction {
	w := c.sess.Words[idx]
	states := make([]model.CharState, len(w.States))
	copy(states, w.States)
	return Instruction{Kind: KindWord, Index: idx, States: states, Input: string(w.Input)}
}

func (c *Controller) cursorInstr() Instruction {
	return Instruction{Kind: KindCursor, Index: c.sess.CurrentWordIndex, Char: c.sess.CurrentCharIndex}
}

func (c *Controller) statsInstr(at time.Time) Instruction {
	s := c.sess
	var m stats.Metrics
	if s.State == Running {
		m = stats.Compute(s.CorrectChars, s.IncorrectChars, s.StartTime, at)
	} else {
		m = stats.ComputeElapsed(s.CorrectChars, s.IncorrectChars, s.Elapsed(at))
	}
	return Instruction{Kind: KindStats, Metrics: &m}
}

func (c *Controller) progressInstr(at time.Time) Instruction {
	s := c.sess
	p := Progress{}
	if s.Mode.Kind == model.ModeTime {
		left := s.Mode.Limit() - s.Elapsed(at)
		p.SecondsLeft = int(math.Ceil(left.Seconds()))
	} else {
		p.WordsLeft = s.Mode.Words - s.CompletedWordCount
	}
	return Instruction{Kind: KindProgress, Progress: &p}
}
