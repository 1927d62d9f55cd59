package ranker

import (
	"container/heap"
	"math"
	"sort"

	"github.com/Adithya-Monish-Kumar-K/Movie-Search-Evaluation/internal/indexer/index"
)

// ranksBefore reports whether a is ordered ahead of b in a result list.
func ranksBefore(a, b ScoredDoc) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	return a.DocID < b.DocID
}

// selectTop rounds scores to four decimals and returns the best limit
// documents in rank order. Small limits use a bounded heap instead of
// sorting every candidate.
func selectTop(scores map[index.DocID]float64, limit int) []ScoredDoc {
	if limit < 0 || limit >= len(scores) {
		result := make([]ScoredDoc, 0, len(scores))
		for docID, score := range scores {
			result = append(result, ScoredDoc{DocID: docID, Score: round(score)})
		}
		sort.Slice(result, func(i, j int) bool { return ranksBefore(result[i], result[j]) })
		return result
	}

	h := make(worstFirst, 0, limit+1)
	for docID, score := range scores {
		heap.Push(&h, ScoredDoc{DocID: docID, Score: round(score)})
		if h.Len() > limit {
			heap.Pop(&h)
		}
	}
	result := make([]ScoredDoc, h.Len())
	for i := len(result) - 1; i >= 0; i-- {
		result[i] = heap.Pop(&h).(ScoredDoc)
	}
	return result
}

func round(score float64) float64 {
	return math.Round(score*10000) / 10000
}

// worstFirst is a heap whose root is the lowest-ranked document.
type worstFirst []ScoredDoc

func (h worstFirst) Len() int           { return len(h) }
func (h worstFirst) Less(i, j int) bool { return ranksBefore(h[j], h[i]) }
func (h worstFirst) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *worstFirst) Push(x any) {
	*h = append(*h, x.(ScoredDoc))
}

func (h *worstFirst) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
