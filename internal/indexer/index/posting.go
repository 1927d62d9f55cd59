package index

import (
	"sort"

	"github.com/RoaringBitmap/roaring/v2"
)

// DocID identifies a document within one index build. Ids start at 1.
type DocID uint32

// Field names of a movie document.
const (
	FieldTitle    = "title"
	FieldBody     = "body"
	FieldFulltext = "fulltext"
)

// MovieFields builds the stored fields of a movie record. fulltext is the
// title and body joined on a line boundary.
func MovieFields(title, body string) map[string]string {
	return map[string]string{
		FieldTitle:    title,
		FieldBody:     body,
		FieldFulltext: title + "\n" + body,
	}
}

type Posting struct {
	DocID     DocID `cbor:"1,keyasint" json:"doc_id"`
	Frequency int   `cbor:"2,keyasint" json:"frequency"`
	Positions []int `cbor:"3,keyasint" json:"positions"`
}

// PostingList is ordered by ascending DocID.
type PostingList []Posting

// Bitmap returns the set of documents in the list.
func (pl PostingList) Bitmap() *roaring.Bitmap {
	bm := roaring.New()
	for _, p := range pl {
		bm.Add(uint32(p.DocID))
	}
	return bm
}

// Find returns the posting of id.
func (pl PostingList) Find(id DocID) (Posting, bool) {
	i := sort.Search(len(pl), func(i int) bool { return pl[i].DocID >= id })
	if i < len(pl) && pl[i].DocID == id {
		return pl[i], true
	}
	return Posting{}, false
}

// PhraseMatches returns the documents in which the terms of lists occur at
// consecutive positions, lists[0] first. Positions must be ascending within
// each posting.
func PhraseMatches(lists []PostingList) *roaring.Bitmap {
	result := roaring.New()
	if len(lists) == 0 {
		return result
	}
	bitmaps := make([]*roaring.Bitmap, len(lists))
	for i, pl := range lists {
		bitmaps[i] = pl.Bitmap()
	}
	candidates := roaring.FastAnd(bitmaps...)
	it := candidates.Iterator()
	for it.HasNext() {
		id := DocID(it.Next())
		positions := make([][]int, len(lists))
		for i, pl := range lists {
			p, _ := pl.Find(id)
			positions[i] = p.Positions
		}
		if consecutive(positions) {
			result.Add(uint32(id))
		}
	}
	return result
}

func consecutive(positions [][]int) bool {
	for _, start := range positions[0] {
		matched := true
		for i := 1; i < len(positions); i++ {
			want := start + i
			j := sort.SearchInts(positions[i], want)
			if j == len(positions[i]) || positions[i][j] != want {
				matched = false
				break
			}
		}
		if matched {
			return true
		}
	}
	return false
}

type TermEntry struct {
	Field    string
	Term     string
	Postings PostingList
}

// FieldStats aggregates token counts for one field over the whole index.
type FieldStats struct {
	DocCount    int   `cbor:"1,keyasint" json:"doc_count"`
	TotalTokens int64 `cbor:"2,keyasint" json:"total_tokens"`
}

func (s FieldStats) AvgLength() float64 {
	if s.DocCount == 0 {
		return 0
	}
	return float64(s.TotalTokens) / float64(s.DocCount)
}

// Document is a stored document: its raw field text and the token count of
// each field.
type Document struct {
	ID      DocID             `cbor:"1,keyasint" json:"id"`
	Fields  map[string]string `cbor:"2,keyasint" json:"fields"`
	Lengths map[string]int    `cbor:"3,keyasint" json:"lengths"`
}

// Reader is the read-only view of a completed index. MemoryIndex and
// segment.Reader both implement it.
type Reader interface {
	DocCount() int
	Fields() []string
	Postings(field, term string) (PostingList, error)
	FieldStats(field string) FieldStats
	FieldLength(id DocID, field string) int
	Fetch(id DocID, field string) (string, error)
}
