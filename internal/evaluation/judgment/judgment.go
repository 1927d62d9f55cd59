// Package judgment holds the hand-labeled relevance sets of a benchmark:
// for every query string, the document ids considered relevant.
package judgment

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/Movie-Search-Evaluation/internal/indexer/index"
	apperrors "github.com/Adithya-Monish-Kumar-K/Movie-Search-Evaluation/pkg/errors"
)

// Set is a set of relevant document ids.
type Set map[index.DocID]struct{}

func NewSet(ids ...index.DocID) Set {
	s := make(Set, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

func (s Set) Contains(id index.DocID) bool {
	_, ok := s[id]
	return ok
}

// Sorted returns the ids in ascending order.
func (s Set) Sorted() []index.DocID {
	ids := make([]index.DocID, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Record is one benchmark line: a query and its whitespace-separated
// relevant document ids.
type Record struct {
	Line     int
	Query    string
	Relevant string
}

// Entry is a query with its relevant set.
type Entry struct {
	Query    string
	Relevant Set
}

// Table maps benchmark queries to relevant sets. Entries iterate in the
// order each query first appeared in the source.
type Table struct {
	order []string
	sets  map[string]Set
}

// Load builds a Table. A query that appears more than once keeps its first
// position but takes the relevant set of its last occurrence.
func Load(records []Record) (*Table, error) {
	t := &Table{
		order: make([]string, 0, len(records)),
		sets:  make(map[string]Set, len(records)),
	}
	for _, rec := range records {
		ids, err := ParseIDs(rec.Relevant)
		if err != nil {
			return nil, &apperrors.MalformedRecordError{Line: rec.Line, Reason: err.Error()}
		}
		if _, seen := t.sets[rec.Query]; !seen {
			t.order = append(t.order, rec.Query)
		}
		t.sets[rec.Query] = NewSet(ids...)
	}
	return t, nil
}

// ParseIDs parses a whitespace-separated list of decimal document ids.
func ParseIDs(s string) ([]index.DocID, error) {
	fields := strings.Fields(s)
	ids := make([]index.DocID, 0, len(fields))
	for _, f := range fields {
		n, err := strconv.ParseUint(f, 10, 32)
		if err != nil || n == 0 {
			return nil, fmt.Errorf("invalid document id %q", f)
		}
		ids = append(ids, index.DocID(n))
	}
	return ids, nil
}

func (t *Table) Len() int {
	return len(t.order)
}

// Entries returns the table in iteration order.
func (t *Table) Entries() []Entry {
	entries := make([]Entry, 0, len(t.order))
	for _, q := range t.order {
		entries = append(entries, Entry{Query: q, Relevant: t.sets[q]})
	}
	return entries
}
