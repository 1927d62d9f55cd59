package tokenizer

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
)

func terms(a *Analyzer, text string) []string {
	return slices.Collect(a.Terms(text))
}

func TestTermsDefault(t *testing.T) {
	a := Default()
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"title", "The Matrix", []string{"the", "matrix"}},
		{"punctuation", "Hello, World! (1999)", []string{"hello", "world", "1999"}},
		{"only punctuation", "???", nil},
		{"empty", "", nil},
		{"apostrophe splits", "Schindler's List", []string{"schindler", "s", "list"}},
		{"unicode", "Amélie — Café", []string{"amélie", "café"}},
		{"newline boundary", "Up\nAn old man", []string{"up", "an", "old", "man"}},
		{"trailing token", "part 2", []string{"part", "2"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, terms(a, tt.in))
		})
	}
}

func TestTermsRestartable(t *testing.T) {
	seq := Default().Terms("a love story across decades")
	first := slices.Collect(seq)
	second := slices.Collect(seq)
	assert.Equal(t, first, second)
	assert.Len(t, first, 5)
}

func TestTermsEarlyStop(t *testing.T) {
	var got []string
	for term := range Default().Terms("one two three four") {
		got = append(got, term)
		if len(got) == 2 {
			break
		}
	}
	assert.Equal(t, []string{"one", "two"}, got)
}

func TestStopWordsAndMinLength(t *testing.T) {
	a := New(Options{StopWords: true, MinTokenLength: 2})
	assert.Equal(t, []string{"hacker", "discovers", "reality", "simulation"},
		terms(a, "A hacker discovers reality is a simulation"))
}

func TestStemming(t *testing.T) {
	a := New(Options{Stemming: true})
	assert.Equal(t, []string{"run", "dog"}, terms(a, "Running dogs"))
}

func TestTokenizePositions(t *testing.T) {
	tokens := New(Options{StopWords: true}).Tokenize("the quick brown fox")
	assert.Equal(t, []Token{
		{Term: "quick", Position: 0},
		{Term: "brown", Position: 1},
		{Term: "fox", Position: 2},
	}, tokens)
}

func BenchmarkTokenize(b *testing.B) {
	text := "A computer hacker learns from mysterious rebels about the true nature of his reality and his role in the war against its controllers."
	a := Default()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_ = a.Tokenize(text)
	}
}
