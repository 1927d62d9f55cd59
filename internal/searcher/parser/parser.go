// Package parser turns raw query text into a structured Query for one field.
package parser

import (
	"sort"
	"strings"
	"unicode"

	"github.com/Adithya-Monish-Kumar-K/Movie-Search-Evaluation/internal/indexer/tokenizer"
	apperrors "github.com/Adithya-Monish-Kumar-K/Movie-Search-Evaluation/pkg/errors"
)

// Occur says how a phrase takes part in matching.
type Occur int

const (
	Should Occur = iota
	Must
	MustNot
)

func (o Occur) prefix() string {
	switch o {
	case Must:
		return "+"
	case MustNot:
		return "-"
	default:
		return ""
	}
}

// Phrase is a run of terms that must occur at consecutive positions.
type Phrase struct {
	Terms []string
	Occur Occur
}

func (p Phrase) String() string {
	return p.Occur.prefix() + `"` + strings.Join(p.Terms, " ") + `"`
}

// Query is a parsed query. Terms are optional: when nothing is required a
// document matching any term or optional phrase is a candidate, otherwise
// they only add to the score. Required terms and phrases must all match;
// excluded ones must not.
type Query struct {
	Field        string
	Terms        []string
	Required     []string
	ExcludeTerms []string
	Phrases      []Phrase
	RawQuery     string
}

// HasRequired reports whether any term or phrase must match.
func (q *Query) HasRequired() bool {
	if len(q.Required) > 0 {
		return true
	}
	for _, p := range q.Phrases {
		if p.Occur == Must {
			return true
		}
	}
	return false
}

// Positive returns the scoring terms: required terms first, then the
// optional ones, then the terms of phrases that are not excluded, without
// duplicates.
func (q *Query) Positive() []string {
	lists := [][]string{q.Required, q.Terms}
	for _, p := range q.Phrases {
		if p.Occur != MustNot {
			lists = append(lists, p.Terms)
		}
	}
	out := make([]string, 0, len(q.Required)+len(q.Terms))
	seen := make(map[string]struct{}, cap(out))
	for _, list := range lists {
		for _, t := range list {
			if _, ok := seen[t]; ok {
				continue
			}
			seen[t] = struct{}{}
			out = append(out, t)
		}
	}
	return out
}

// Key is a canonical form of the query: two queries with the same key
// retrieve the same documents.
func (q *Query) Key() string {
	parts := []string{
		q.Field,
		joinSorted(q.Terms),
		"+" + joinSorted(q.Required),
		"-" + joinSorted(q.ExcludeTerms),
	}
	phrases := make([]string, 0, len(q.Phrases))
	for _, p := range q.Phrases {
		phrases = append(phrases, p.String())
	}
	sort.Strings(phrases)
	parts = append(parts, strings.Join(phrases, ","))
	return strings.Join(parts, "|")
}

func joinSorted(terms []string) string {
	sorted := append([]string(nil), terms...)
	sort.Strings(sorted)
	return strings.Join(sorted, ",")
}

// Parse analyzes raw for field using the classic Lucene rules with OR as
// the default operator. Every word is run through the analyzer and each
// produced term becomes a query term:
//
//   - a bare word is optional;
//   - +word is required, and -word or NOT word is excluded;
//   - "quoted words" form a phrase, with the same prefixes;
//   - AND makes the clauses on both sides required, unless a side is
//     excluded;
//   - OR is the default and changes nothing.
//
// So "a OR b AND c" requires b and c and keeps a optional. The upper-case
// words AND, OR and NOT are the only operators. A phrase that analyzes to a
// single term is a plain term. A query with no positive terms fails with an
// EmptyQueryError.
func Parse(field, raw string, analyzer *tokenizer.Analyzer) (*Query, error) {
	if analyzer == nil {
		analyzer = tokenizer.Default()
	}
	q := &Query{
		Field:        field,
		Terms:        make([]string, 0),
		Required:     make([]string, 0),
		ExcludeTerms: make([]string, 0),
		Phrases:      make([]Phrase, 0),
		RawQuery:     raw,
	}

	var (
		excludeNext bool
		andNext     bool
		// promotePrev makes the previous clause required when it was
		// optional; nil otherwise.
		promotePrev func()
	)
	for _, clause := range clauses(raw) {
		switch clause {
		case "AND":
			if promotePrev != nil {
				promotePrev()
				promotePrev = nil
			}
			andNext = true
			continue
		case "OR":
			andNext = false
			continue
		case "NOT":
			excludeNext = true
			continue
		}

		occur := Should
		switch {
		case excludeNext:
			occur = MustNot
		case len(clause) > 1 && clause[0] == '-':
			occur = MustNot
			clause = clause[1:]
		case len(clause) > 1 && clause[0] == '+':
			occur = Must
			clause = clause[1:]
		}
		if occur == Should && andNext {
			occur = Must
		}
		excludeNext, andNext = false, false

		quoted := strings.HasPrefix(clause, `"`)
		terms := make([]string, 0, 1)
		for term := range analyzer.Terms(strings.Trim(clause, `"`)) {
			terms = append(terms, term)
		}
		promotePrev = nil
		if quoted && len(terms) > 1 {
			q.Phrases = append(q.Phrases, Phrase{Terms: terms, Occur: occur})
			if occur == Should {
				i := len(q.Phrases) - 1
				promotePrev = func() { q.Phrases[i].Occur = Must }
			}
			continue
		}
		switch occur {
		case MustNot:
			q.ExcludeTerms = appendNew(q.ExcludeTerms, terms...)
		case Must:
			q.require(terms)
		default:
			for _, t := range terms {
				if !contains(q.Required, t) {
					q.Terms = appendNew(q.Terms, t)
				}
			}
			promotePrev = func() { q.require(terms) }
		}
	}

	if len(q.Positive()) == 0 {
		return nil, &apperrors.EmptyQueryError{Raw: raw}
	}
	return q, nil
}

// clauses splits raw on whitespace, keeping a double-quoted run together
// with any +/- prefix. An unterminated quote runs to the end of the text.
func clauses(raw string) []string {
	var (
		out     []string
		current strings.Builder
		inQuote bool
	)
	flush := func() {
		if current.Len() > 0 {
			out = append(out, current.String())
			current.Reset()
		}
	}
	for _, r := range raw {
		switch {
		case r == '"':
			current.WriteRune(r)
			if inQuote {
				inQuote = false
				flush()
			} else {
				inQuote = true
			}
		case unicode.IsSpace(r) && !inQuote:
			flush()
		default:
			current.WriteRune(r)
		}
	}
	flush()
	return out
}

// require moves terms into Required, dropping them from the optional list.
func (q *Query) require(terms []string) {
	for _, t := range terms {
		q.Required = appendNew(q.Required, t)
		q.Terms = remove(q.Terms, t)
	}
}

func appendNew(list []string, terms ...string) []string {
	for _, t := range terms {
		if !contains(list, t) {
			list = append(list, t)
		}
	}
	return list
}

func contains(list []string, term string) bool {
	for _, t := range list {
		if t == term {
			return true
		}
	}
	return false
}

func remove(list []string, term string) []string {
	for i, t := range list {
		if t == term {
			return append(list[:i], list[i+1:]...)
		}
	}
	return list
}
