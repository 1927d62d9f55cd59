// Package tokenizer provides text tokenisation for the index and the query
// parser. It lower-cases input and splits on non-alphanumeric boundaries;
// stop-word removal and English stemming are optional.
package tokenizer

import (
	"iter"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/kljensen/snowball/english"
)

var stopWords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {},
	"be": {}, "by": {}, "for": {}, "from": {}, "has": {}, "he": {},
	"in": {}, "is": {}, "it": {}, "its": {}, "of": {}, "on": {},
	"or": {}, "that": {}, "the": {}, "to": {}, "was": {}, "were": {},
	"will": {}, "with": {}, "this": {}, "but": {}, "they": {},
	"have": {}, "had": {}, "what": {}, "when": {}, "where": {},
	"who": {}, "which": {}, "their": {}, "if": {}, "each": {},
	"do": {}, "not": {}, "no": {}, "so": {}, "can": {},
}

// Token represents a single normalised term and its position in the
// original text.
type Token struct {
	Term     string
	Position int
}

// Options selects the optional normalisation steps.
type Options struct {
	StopWords      bool
	Stemming       bool
	MinTokenLength int
}

// Analyzer turns text into index terms. The zero value lower-cases and
// splits only. An Analyzer is immutable and safe for concurrent use.
type Analyzer struct {
	opts Options
}

func New(opts Options) *Analyzer {
	if opts.MinTokenLength < 1 {
		opts.MinTokenLength = 1
	}
	return &Analyzer{opts: opts}
}

// Default returns the analyzer used when nothing is configured.
func Default() *Analyzer {
	return New(Options{})
}

func (a *Analyzer) Options() Options {
	return a.opts
}

// Terms returns a lazy sequence of normalised terms. Ranging over it again
// re-tokenises the text from the start.
func (a *Analyzer) Terms(text string) iter.Seq[string] {
	return func(yield func(string) bool) {
		for word := range words(text) {
			term, ok := a.normalize(word)
			if !ok {
				continue
			}
			if !yield(term) {
				return
			}
		}
	}
}

// Tokenize breaks text into a slice of normalised Tokens. Positions count
// emitted tokens only.
func (a *Analyzer) Tokenize(text string) []Token {
	tokens := make([]Token, 0, len(text)/6)
	pos := 0
	for term := range a.Terms(text) {
		tokens = append(tokens, Token{
			Term:     term,
			Position: pos,
		})
		pos++
	}
	return tokens
}

func (a *Analyzer) normalize(word string) (string, bool) {
	word = strings.ToLower(word)
	if utf8.RuneCountInString(word) < a.opts.MinTokenLength {
		return "", false
	}
	if a.opts.StopWords {
		if _, isStop := stopWords[word]; isStop {
			return "", false
		}
	}
	if a.opts.Stemming {
		word = english.Stem(word, false)
	}
	if word == "" {
		return "", false
	}
	return word, true
}

// words yields maximal runs of letters and digits.
func words(text string) iter.Seq[string] {
	return func(yield func(string) bool) {
		start := -1
		for i, r := range text {
			if unicode.IsLetter(r) || unicode.IsDigit(r) {
				if start < 0 {
					start = i
				}
				continue
			}
			if start >= 0 {
				if !yield(text[start:i]) {
					return
				}
				start = -1
			}
		}
		if start >= 0 {
			yield(text[start:])
		}
	}
}
