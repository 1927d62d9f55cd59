package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/Movie-Search-Evaluation/internal/indexer/tokenizer"
	apperrors "github.com/Adithya-Monish-Kumar-K/Movie-Search-Evaluation/pkg/errors"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		terms    []string
		required []string
		exclude  []string
	}{
		{"single word", "Matrix", []string{"matrix"}, nil, nil},
		{"default is OR", "love story", []string{"love", "story"}, nil, nil},
		{"explicit OR", "love OR story", []string{"love", "story"}, nil, nil},
		{"AND requires both sides", "love AND story", nil, []string{"love", "story"}, nil},
		{"AND binds only its neighbours", "war OR love AND story", []string{"war"}, []string{"love", "story"}, nil},
		{"AND then OR", "love AND story OR war", []string{"war"}, []string{"love", "story"}, nil},
		{"AND NOT excludes", "love AND NOT war", nil, []string{"love"}, []string{"war"}},
		{"excluded side stays excluded", "-war AND love", nil, []string{"love"}, []string{"war"}},
		{"AND over a split word", "sci-fi AND space", nil, []string{"sci", "fi", "space"}, nil},
		{"lowercase and is a term", "love and story", []string{"love", "and", "story"}, nil, nil},
		{"NOT excludes next word", "love NOT war", []string{"love"}, nil, []string{"war"}},
		{"prefix operators", "+love -war story", []string{"story"}, []string{"love"}, []string{"war"}},
		{"required wins over optional", "love +love", nil, []string{"love"}, nil},
		{"punctuation splits words", "sci-fi thriller", []string{"sci", "fi", "thriller"}, nil, nil},
		{"duplicates removed", "love Love LOVE", []string{"love"}, nil, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := Parse("title", tt.raw, nil)
			require.NoError(t, err)
			assert.Equal(t, "title", q.Field)
			assert.Equal(t, tt.raw, q.RawQuery)
			assert.ElementsMatch(t, tt.terms, q.Terms)
			assert.ElementsMatch(t, tt.required, q.Required)
			assert.ElementsMatch(t, tt.exclude, q.ExcludeTerms)
		})
	}
}

func TestParsePhrases(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		terms   []string
		phrases []Phrase
	}{
		{"optional phrase", `"love story"`, nil, []Phrase{{Terms: []string{"love", "story"}, Occur: Should}}},
		{"required phrase", `+"love story" war`, []string{"war"}, []Phrase{{Terms: []string{"love", "story"}, Occur: Must}}},
		{"excluded phrase", `love -"love story"`, []string{"love"}, []Phrase{{Terms: []string{"love", "story"}, Occur: MustNot}}},
		{"NOT before a phrase", `love NOT "love story"`, []string{"love"}, []Phrase{{Terms: []string{"love", "story"}, Occur: MustNot}}},
		{"AND promotes a phrase", `"love story" AND war`, nil, []Phrase{{Terms: []string{"love", "story"}, Occur: Must}}},
		{"operators inside quotes are words", `"war AND peace"`, nil, []Phrase{{Terms: []string{"war", "and", "peace"}, Occur: Should}}},
		{"unterminated quote runs to the end", `war "love story`, []string{"war"}, []Phrase{{Terms: []string{"love", "story"}, Occur: Should}}},
		{"one-word phrase is a term", `"Matrix" war`, []string{"matrix", "war"}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := Parse("body", tt.raw, nil)
			require.NoError(t, err)
			assert.ElementsMatch(t, tt.terms, q.Terms)
			assert.ElementsMatch(t, tt.phrases, q.Phrases)
		})
	}

	q, err := Parse("body", `"love story" AND war`, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"war"}, q.Required)
	assert.True(t, q.HasRequired())
	assert.Equal(t, []string{"war", "love", "story"}, q.Positive())

	_, err = Parse("body", `-"love story"`, nil)
	assert.ErrorIs(t, err, apperrors.ErrEmptyQuery)
}

func TestParseEmptyQuery(t *testing.T) {
	for _, raw := range []string{"", "   ", "???", "NOT matrix", "-matrix", "AND OR"} {
		_, err := Parse("title", raw, nil)
		require.ErrorIs(t, err, apperrors.ErrEmptyQuery, raw)
		var eq *apperrors.EmptyQueryError
		require.ErrorAs(t, err, &eq)
		assert.Equal(t, raw, eq.Raw)
	}
}

func TestParseUsesAnalyzer(t *testing.T) {
	analyzer := tokenizer.New(tokenizer.Options{StopWords: true, Stemming: true})
	q, err := Parse("body", "the hackers", analyzer)
	require.NoError(t, err)
	assert.Equal(t, []string{"hacker"}, q.Terms)

	_, err = Parse("body", "the of and", analyzer)
	assert.ErrorIs(t, err, apperrors.ErrEmptyQuery)
}

func TestPositiveAndKey(t *testing.T) {
	q, err := Parse("title", "story +love", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"love", "story"}, q.Positive())

	a, err := Parse("title", "love story", nil)
	require.NoError(t, err)
	b, err := Parse("title", "story   love", nil)
	require.NoError(t, err)
	c, err := Parse("body", "story love", nil)
	require.NoError(t, err)
	d, err := Parse("title", "love AND story", nil)
	require.NoError(t, err)
	assert.Equal(t, a.Key(), b.Key())
	assert.NotEqual(t, a.Key(), c.Key())
	assert.NotEqual(t, a.Key(), d.Key())

	e, err := Parse("title", `"love story"`, nil)
	require.NoError(t, err)
	f, err := Parse("title", `"story love"`, nil)
	require.NoError(t, err)
	assert.NotEqual(t, a.Key(), e.Key())
	assert.NotEqual(t, e.Key(), f.Key())
}
