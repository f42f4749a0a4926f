package quality

import (
	"strings"
	"testing"
)

var vocab = []string{"the", "river", "flows", "through", "green", "valley", "and", "birds", "sing", "with", "quiet", "voices"}

func words(n int, decorate func(i int, w string) string) string {
	out := make([]string, n)
	for i := range out {
		w := vocab[i%len(vocab)]
		if decorate != nil {
			w = decorate(i, w)
		}
		out[i] = w
	}
	return strings.Join(out, " ")
}

func TestCheck(t *testing.T) {
	f := New(DefaultConfig())
	cases := []struct {
		name string
		text string
		want Reason
	}{
		{"empty", "", ReasonEmpty},
		{"blank", " \n\t ", ReasonEmpty},
		{"49 words", words(49, nil), ReasonWordCount},
		{"50 words", words(50, nil), ReasonNone},
		{"hashes", words(100, func(_ int, w string) string { return "##" + w }), ReasonHash},
		{"ellipsis", words(60, func(i int, w string) string {
			if i%5 == 0 {
				return w + "..."
			}
			return w
		}), ReasonEllipsis},
		{"bullets", words(60, func(_ int, w string) string { return "•" + w }), ReasonBullet},
		{"numbers", strings.TrimSpace(strings.Repeat("1234 ", 60)), ReasonNonAlpha},
		{"long words", strings.TrimSpace(strings.Repeat("incomprehensibilities ", 60)), ReasonMeanWordLen},
		{"no stop words", strings.TrimSpace(strings.Repeat("river flows green valley ", 15)), ReasonStopWords},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			v := f.Check(tc.text)
			if v.Reason != tc.want {
				t.Fatalf("reason=%q; want %q (words=%d)", v.Reason, tc.want, v.Words)
			}
			if v.Accepted != (tc.want == ReasonNone) {
				t.Fatalf("accepted=%v for reason %q", v.Accepted, v.Reason)
			}
		})
	}
}

func TestFiftyWordsMeanFive(t *testing.T) {
	// 50 four-letter words plus separators: mean length just under 5.
	text := strings.TrimSpace(strings.Repeat("that tree have with time ", 10))
	if n := len(strings.Fields(text)); n != 50 {
		t.Fatalf("fixture has %d words", n)
	}
	if !New(DefaultConfig()).Accepts(text) {
		t.Fatalf("expected 50 well-formed words to pass: %v", New(DefaultConfig()).Check(text))
	}
}

func TestMeanWordLenCountsRunes(t *testing.T) {
	// Eight letters, sixteen bytes per word.
	text := strings.TrimSpace(strings.Repeat("καλημέρα ", 25))
	if len(text)/25 <= 10 {
		t.Fatalf("fixture mean is %d bytes", len(text)/25)
	}
	if v := New(LegacyConfig()).Check(text); !v.Accepted {
		t.Fatalf("non-Latin words of normal length rejected: %+v", v)
	}
}

func TestLegacyConfig(t *testing.T) {
	text := strings.TrimSpace(strings.Repeat("river flows green valley gently ", 5))
	if New(DefaultConfig()).Accepts(text) {
		t.Fatalf("25 words should fail the canonical filter")
	}
	if !New(LegacyConfig()).Accepts(text) {
		t.Fatalf("25 words without stop words should pass the legacy filter: %v", New(LegacyConfig()).Check(text))
	}
}

func TestMaxWords(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MinWords = 1
	cfg.MaxWords = 10
	if v := New(cfg).Check(words(11, nil)); v.Reason != ReasonWordCount {
		t.Fatalf("reason=%q; want word_count", v.Reason)
	}
}

func TestZeroMaxWordsIsUnbounded(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxWords = 0
	if v := New(cfg).Check(words(200, nil)); !v.Accepted {
		t.Fatalf("max_words 0 should not bound the count: %+v", v)
	}
}

func TestStopWordsIgnoreCaseAndPunctuation(t *testing.T) {
	cfg := LegacyConfig()
	cfg.RequireStopWords = true
	text := "The, " + strings.TrimSpace(strings.Repeat("river flows green valley ", 6)) + " AND."
	if !New(cfg).Accepts(text) {
		t.Fatalf("capitalised stop words with punctuation should count: %v", New(cfg).Check(text))
	}
	accented := "Thé " + strings.TrimSpace(strings.Repeat("river flows green valley ", 6)) + " «with»"
	if !New(cfg).Accepts(accented) {
		t.Fatalf("accented and quoted stop words should count: %v", New(cfg).Check(accented))
	}
}
