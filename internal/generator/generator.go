// Package generator builds the target word pool for a typing test.
package generator

import (
	"math/rand"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/verte-zerg/typetest/internal/wordlist"
)

const (
	numberPct  = 0.15
	wrapPct    = 0.05
	trailPct   = 0.30
	maxNumber  = 10000
	sentenceOf = ".!?"
)

var trailingMarks = []rune{'.', ',', '!', '?', ';', ':'}

var wrappers = [][2]string{{`"`, `"`}, {"(", ")"}}

// Options toggles token decoration.
type Options struct {
	Punctuation bool
	Numbers     bool
}

// Generator produces randomized target tokens. It is not safe for concurrent use.
type Generator struct {
	rnd     *rand.Rand
	vocab   []string
	weights []float64
	total   float64
}

// New returns a Generator drawing from vocab with the given random source.
// An empty vocabulary falls back to the built-in common words.
func New(rnd *rand.Rand, vocab []string) *Generator {
	if len(vocab) == 0 {
		vocab = wordlist.Common()
	}
	return &Generator{rnd: rnd, vocab: vocab}
}

// NewSeeded returns a Generator seeded with the current time.
func NewSeeded(vocab []string) *Generator {
	return New(rand.New(rand.NewSource(time.Now().UnixNano())), vocab)
}

// Vocabulary returns the words tokens are drawn from.
func (g *Generator) Vocabulary() []string {
	return g.vocab
}

// FocusWeak biases selection toward words containing weak characters.
// An empty set restores uniform selection.
func (g *Generator) FocusWeak(weakSet map[rune]struct{}, factor float64) {
	if len(weakSet) == 0 || factor <= 0 {
		g.weights = nil
		g.total = 0
		return
	}
	g.weights = make([]float64, len(g.vocab))
	g.total = 0
	for i, word := range g.vocab {
		weakCount := 0
		for _, r := range word {
			if _, ok := weakSet[unicode.ToLower(r)]; ok {
				weakCount++
			}
		}
		w := 1.0 + float64(weakCount)*factor
		g.weights[i] = w
		g.total += w
	}
}

// Generate returns count tokens, each drawn independently with replacement.
func (g *Generator) Generate(count int, opts Options) []string {
	return g.Extend("", count, opts)
}

// Extend returns count more tokens continuing after last, so capitalisation
// carries over sentence ends across refills. An empty last starts a sentence.
func (g *Generator) Extend(last string, count int, opts Options) []string {
	if count <= 0 {
		return nil
	}
	result := make([]string, 0, count)
	sentenceStart := last == "" || endsSentence(last)
	for i := 0; i < count; i++ {
		token := g.pick()
		if opts.Numbers && g.rnd.Float64() < numberPct {
			token = strconv.Itoa(g.rnd.Intn(maxNumber))
		} else if opts.Punctuation && sentenceStart {
			token = capitalize(token)
		}
		if opts.Punctuation {
			token = g.punctuate(token)
		}
		sentenceStart = endsSentence(token)
		result = append(result, token)
	}
	return result
}

func (g *Generator) pick() string {
	if g.weights == nil {
		return g.vocab[g.rnd.Intn(len(g.vocab))]
	}
	r := g.rnd.Float64() * g.total
	acc := 0.0
	for j, w := range g.weights {
		acc += w
		if r <= acc {
			return g.vocab[j]
		}
	}
	return g.vocab[len(g.vocab)-1]
}

func (g *Generator) punctuate(token string) string {
	r := g.rnd.Float64()
	switch {
	case r < wrapPct:
		pair := wrappers[g.rnd.Intn(len(wrappers))]
		return pair[0] + token + pair[1]
	case r < wrapPct+trailPct:
		return token + string(trailingMarks[g.rnd.Intn(len(trailingMarks))])
	default:
		return token
	}
}

func capitalize(word string) string {
	r, size := utf8.DecodeRuneInString(word)
	if r == utf8.RuneError {
		return word
	}
	return string(unicode.ToUpper(r)) + word[size:]
}

func endsSentence(token string) bool {
	token = strings.TrimRight(token, `")`)
	if token == "" {
		return false
	}
	r, _ := utf8.DecodeLastRuneInString(token)
	return strings.ContainsRune(sentenceOf, r)
}
