package index

import (
	"fmt"
	"sort"
	"sync"

	"github.com/Adithya-Monish-Kumar-K/Movie-Search-Evaluation/internal/indexer/tokenizer"
	apperrors "github.com/Adithya-Monish-Kumar-K/Movie-Search-Evaluation/pkg/errors"
)

var _ Reader = (*MemoryIndex)(nil)

// MemoryIndex is an in-memory inverted index keyed by field and term. It is
// built with AddDocument, sealed, and then only read.
type MemoryIndex struct {
	mu       sync.RWMutex
	analyzer *tokenizer.Analyzer
	index    map[string]map[string]PostingList
	docs     map[DocID]*Document
	stats    map[string]*FieldStats
	lastID   DocID
	sealed   bool
	size     int64
}

func NewMemoryIndex(analyzer *tokenizer.Analyzer) *MemoryIndex {
	if analyzer == nil {
		analyzer = tokenizer.Default()
	}
	return &MemoryIndex{
		analyzer: analyzer,
		index:    make(map[string]map[string]PostingList),
		docs:     make(map[DocID]*Document),
		stats:    make(map[string]*FieldStats),
	}
}

// AddDocument indexes every field and returns the assigned id. The id
// counter advances before validation, so an id is never handed out twice.
func (m *MemoryIndex) AddDocument(fields map[string]string) (DocID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sealed {
		return 0, apperrors.New(apperrors.ErrIndexSealed, "cannot add documents after build")
	}
	m.lastID++
	docID := m.lastID
	if len(fields) == 0 {
		return 0, apperrors.Newf(apperrors.ErrInvalidInput, "document %d has no fields", docID)
	}
	for field := range fields {
		if field == "" {
			return 0, apperrors.Newf(apperrors.ErrInvalidInput, "document %d has an unnamed field", docID)
		}
	}

	doc := &Document{
		ID:      docID,
		Fields:  make(map[string]string, len(fields)),
		Lengths: make(map[string]int, len(fields)),
	}
	for field, text := range fields {
		tokens := m.analyzer.Tokenize(text)
		termData := make(map[string]*Posting)
		for _, token := range tokens {
			p, exists := termData[token.Term]
			if !exists {
				p = &Posting{
					DocID:     docID,
					Positions: make([]int, 0, 4),
				}
				termData[token.Term] = p
			}
			p.Frequency++
			p.Positions = append(p.Positions, token.Position)
		}

		terms, exists := m.index[field]
		if !exists {
			terms = make(map[string]PostingList)
			m.index[field] = terms
		}
		// Ids only grow, so appending keeps every list sorted by DocID.
		for term, posting := range termData {
			terms[term] = append(terms[term], *posting)
			m.size += int64(len(term) + len(posting.Positions)*8 + 16)
		}

		st, exists := m.stats[field]
		if !exists {
			st = &FieldStats{}
			m.stats[field] = st
		}
		st.DocCount++
		st.TotalTokens += int64(len(tokens))

		doc.Fields[field] = text
		doc.Lengths[field] = len(tokens)
		m.size += int64(len(text))
	}
	m.docs[docID] = doc
	return docID, nil
}

// ReserveThrough advances the id counter so the next document receives an
// id greater than id. Reserved ids are never assigned. Ids already at or past
// id are left alone.
func (m *MemoryIndex) ReserveThrough(id DocID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sealed {
		return apperrors.New(apperrors.ErrIndexSealed, "cannot reserve ids after build")
	}
	if id > m.lastID {
		m.lastID = id
	}
	return nil
}

// Seal ends the build phase. Further AddDocument calls fail.
func (m *MemoryIndex) Seal() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sealed = true
}

func (m *MemoryIndex) Sealed() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sealed
}

// Postings returns the posting list of term in field. The returned slice is
// shared with the index and must not be modified.
func (m *MemoryIndex) Postings(field, term string) (PostingList, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.index[field][term], nil
}

func (m *MemoryIndex) Fetch(id DocID, field string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	doc, ok := m.docs[id]
	if !ok {
		return "", &apperrors.NotFoundError{DocID: uint32(id)}
	}
	text, ok := doc.Fields[field]
	if !ok {
		return "", &apperrors.NotFoundError{DocID: uint32(id), Field: field}
	}
	return text, nil
}

func (m *MemoryIndex) FieldLength(id DocID, field string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if doc, ok := m.docs[id]; ok {
		return doc.Lengths[field]
	}
	return 0
}

func (m *MemoryIndex) FieldStats(field string) FieldStats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if st, ok := m.stats[field]; ok {
		return *st
	}
	return FieldStats{}
}

// Fields returns the indexed field names in sorted order.
func (m *MemoryIndex) Fields() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	fields := make([]string, 0, len(m.stats))
	for field := range m.stats {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	return fields
}

func (m *MemoryIndex) DocCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.docs)
}

// LastID is the highest id handed out so far.
func (m *MemoryIndex) LastID() DocID {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastID
}

func (m *MemoryIndex) Size() int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.size
}

func (m *MemoryIndex) Analyzer() *tokenizer.Analyzer {
	return m.analyzer
}

// Snapshot returns every posting list ordered by field, then term.
func (m *MemoryIndex) Snapshot() []TermEntry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	entries := make([]TermEntry, 0)
	for field, terms := range m.index {
		for term, postings := range terms {
			entries = append(entries, TermEntry{
				Field:    field,
				Term:     term,
				Postings: postings,
			})
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Field != entries[j].Field {
			return entries[i].Field < entries[j].Field
		}
		return entries[i].Term < entries[j].Term
	})
	return entries
}

// Documents returns the stored documents ordered by id.
func (m *MemoryIndex) Documents() []Document {
	m.mu.RLock()
	defer m.mu.RUnlock()
	docs := make([]Document, 0, len(m.docs))
	for _, doc := range m.docs {
		docs = append(docs, *doc)
	}
	sort.Slice(docs, func(i, j int) bool {
		return docs[i].ID < docs[j].ID
	})
	return docs
}

// AllStats returns a copy of the per-field statistics.
func (m *MemoryIndex) AllStats() map[string]FieldStats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]FieldStats, len(m.stats))
	for field, st := range m.stats {
		out[field] = *st
	}
	return out
}

func (m *MemoryIndex) String() string {
	return fmt.Sprintf("MemoryIndex(docs=%d, fields=%d, sealed=%t)", m.DocCount(), len(m.Fields()), m.Sealed())
}
