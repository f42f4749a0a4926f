// Package quality scores extracted documents with word-level heuristics
// and rejects boilerplate, listings and non-prose pages.
package quality

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/yourorg/cc-corpus/internal/normalize"
)

// Canonical thresholds. MinWords and the ellipsis ratio disagree between
// observed variants of the filter; the stricter values are the defaults
// and LegacyMinWords/LooseEllipsisRatio keep the other variant addressable.
const (
	DefaultMinWords       = 50
	LegacyMinWords        = 20
	DefaultMaxWords       = 100000
	DefaultMinMeanWordLen = 3.0
	DefaultMaxMeanWordLen = 10.0
	DefaultHashRatio      = 0.1
	DefaultEllipsisRatio  = 0.1
	LooseEllipsisRatio    = 0.3
	DefaultBulletRatio    = 0.9
	DefaultNonAlphaRatio  = 0.8
	DefaultMinStopWords   = 2
)

// DefaultStopWords must appear in ostensibly English prose.
var DefaultStopWords = []string{"the", "be", "to", "of", "and", "that", "have", "with"}

// Config holds every threshold of the filter. Ratios are per word.
type Config struct {
	MinWords           int      `yaml:"min_words"`
	MaxWords           int      `yaml:"max_words"`
	MinMeanWordLen     float64  `yaml:"min_mean_word_len"`
	MaxMeanWordLen     float64  `yaml:"max_mean_word_len"`
	MaxHashRatio       float64  `yaml:"max_hash_ratio"`
	MaxEllipsisRatio   float64  `yaml:"max_ellipsis_ratio"`
	LooseEllipsisRatio float64  `yaml:"loose_ellipsis_ratio"`
	MaxBulletRatio     float64  `yaml:"max_bullet_ratio"`
	MaxNonAlphaRatio   float64  `yaml:"max_non_alpha_ratio"`
	RequireStopWords   bool     `yaml:"require_stop_words"`
	MinStopWords       int      `yaml:"min_stop_words"`
	StopWords          []string `yaml:"stop_words"`
}

// DefaultConfig is the canonical variant.
func DefaultConfig() Config {
	return Config{
		MinWords:           DefaultMinWords,
		MaxWords:           DefaultMaxWords,
		MinMeanWordLen:     DefaultMinMeanWordLen,
		MaxMeanWordLen:     DefaultMaxMeanWordLen,
		MaxHashRatio:       DefaultHashRatio,
		MaxEllipsisRatio:   DefaultEllipsisRatio,
		LooseEllipsisRatio: LooseEllipsisRatio,
		MaxBulletRatio:     DefaultBulletRatio,
		MaxNonAlphaRatio:   DefaultNonAlphaRatio,
		RequireStopWords:   true,
		MinStopWords:       DefaultMinStopWords,
		StopWords:          DefaultStopWords,
	}
}

// LegacyConfig is the experimental variant: 20-word floor, no stop-word check.
func LegacyConfig() Config {
	c := DefaultConfig()
	c.MinWords = LegacyMinWords
	c.RequireStopWords = false
	return c
}

// Reason names the check that rejected a document.
type Reason string

const (
	ReasonNone        Reason = ""
	ReasonEmpty       Reason = "empty"
	ReasonWordCount   Reason = "word_count"
	ReasonMeanWordLen Reason = "mean_word_length"
	ReasonHash        Reason = "hash_ratio"
	ReasonEllipsis    Reason = "ellipsis_ratio"
	ReasonBullet      Reason = "bullet_ratio"
	ReasonNonAlpha    Reason = "non_alpha_ratio"
	ReasonStopWords   Reason = "stop_words"
)

// Reasons lists every rejection reason, for metric label pre-registration.
func Reasons() []Reason {
	return []Reason{ReasonEmpty, ReasonWordCount, ReasonMeanWordLen, ReasonHash,
		ReasonEllipsis, ReasonBullet, ReasonNonAlpha, ReasonStopWords}
}

// Verdict is the outcome of Check.
type Verdict struct {
	Accepted bool
	Reason   Reason
	Words    int
}

// Filter is safe for concurrent use; it holds no mutable state.
type Filter struct {
	cfg   Config
	stops map[string]struct{}
}

func New(cfg Config) *Filter {
	stops := make(map[string]struct{}, len(cfg.StopWords))
	for _, w := range cfg.StopWords {
		stops[normalize.Text(w)] = struct{}{}
	}
	return &Filter{cfg: cfg, stops: stops}
}

func (f *Filter) Config() Config { return f.cfg }

// Accepts reports whether text passes every check.
func (f *Filter) Accepts(text string) bool { return f.Check(text).Accepted }

// Check runs the checks in order and stops at the first failure.
func (f *Filter) Check(text string) Verdict {
	if strings.TrimSpace(text) == "" {
		return Verdict{Reason: ReasonEmpty}
	}
	words := strings.Fields(text)
	n := len(words)
	reject := func(r Reason) Verdict { return Verdict{Reason: r, Words: n} }

	// The band check also guards every ratio below against n == 0.
	if n < f.cfg.MinWords || (f.cfg.MaxWords > 0 && n > f.cfg.MaxWords) || n == 0 {
		return reject(ReasonWordCount)
	}
	wn := float64(n)

	mean := float64(utf8.RuneCountInString(text)) / wn
	if mean < f.cfg.MinMeanWordLen || mean > f.cfg.MaxMeanWordLen {
		return reject(ReasonMeanWordLen)
	}
	if float64(strings.Count(text, "#"))/wn > f.cfg.MaxHashRatio {
		return reject(ReasonHash)
	}
	ellipses := float64(strings.Count(text, "..."))
	if ellipses/wn > f.cfg.MaxEllipsisRatio {
		return reject(ReasonEllipsis)
	}
	if float64(strings.Count(text, "•")) > f.cfg.MaxBulletRatio*wn {
		return reject(ReasonBullet)
	}
	if ellipses/wn > f.cfg.LooseEllipsisRatio {
		return reject(ReasonEllipsis)
	}

	nonAlpha := 0
	for _, w := range words {
		if !hasLetter(w) {
			nonAlpha++
		}
	}
	if float64(nonAlpha)/wn > f.cfg.MaxNonAlphaRatio {
		return reject(ReasonNonAlpha)
	}
	if f.cfg.RequireStopWords && f.countStops(text) < f.cfg.MinStopWords {
		return reject(ReasonStopWords)
	}
	return Verdict{Accepted: true, Words: n}
}

// countStops matches stop words on normalised text, so case, punctuation
// and diacritics do not hide them.
func (f *Filter) countStops(text string) int {
	n := 0
	for _, w := range strings.Fields(normalize.Text(text)) {
		if _, ok := f.stops[w]; ok {
			n++
			if n >= f.cfg.MinStopWords {
				return n
			}
		}
	}
	return n
}

func hasLetter(w string) bool {
	for _, r := range w {
		if unicode.IsLetter(r) {
			return true
		}
	}
	return false
}
