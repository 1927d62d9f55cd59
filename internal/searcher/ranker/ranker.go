package ranker

import (
	"math"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/Adithya-Monish-Kumar-K/Movie-Search-Evaluation/internal/indexer/index"
)

const (
	k1 = 1.2
	b  = 0.75
)

// Scoring models.
const (
	ModelBM25 = "bm25"
	ModelTF   = "tf"
)

type ScoredDoc struct {
	DocID index.DocID `json:"doc_id"`
	Score float64     `json:"score"`
}

// TermPostings is the posting list of one query term within the searched
// field. Rank consumes terms in slice order so score sums are reproducible.
type TermPostings struct {
	Term     string
	Postings index.PostingList
}

type RankParams struct {
	Model          string
	TotalDocs      int
	AvgFieldLength float64
}

// Rank scores every candidate that appears in at least one term's postings
// and returns at most limit documents ordered by score descending, then
// DocID ascending. A limit of zero returns nothing; a negative limit
// returns every scored document.
func Rank(
	terms []TermPostings,
	candidates *roaring.Bitmap,
	params RankParams,
	fieldLength func(id index.DocID) int,
	limit int,
) []ScoredDoc {
	if limit == 0 || candidates.IsEmpty() {
		return []ScoredDoc{}
	}
	scores := make(map[index.DocID]float64, candidates.GetCardinality())
	for _, tp := range terms {
		idf := computeIDF(int64(params.TotalDocs), int64(len(tp.Postings)))
		for _, posting := range tp.Postings {
			if !candidates.Contains(uint32(posting.DocID)) {
				continue
			}
			switch params.Model {
			case ModelTF:
				scores[posting.DocID] += float64(posting.Frequency)
			default:
				scores[posting.DocID] += idf * computeTFNorm(
					float64(posting.Frequency),
					float64(fieldLength(posting.DocID)),
					params.AvgFieldLength,
				)
			}
		}
	}
	return selectTop(scores, limit)
}

// computeIDF never goes negative, even for terms in more than half the
// documents.
func computeIDF(totalDocs int64, docFreq int64) float64 {
	numerator := float64(totalDocs) - float64(docFreq) + 0.5
	denominator := float64(docFreq) + 0.5
	return math.Log(1 + numerator/denominator)
}

func computeTFNorm(termFreq float64, docLength float64, avgDocLength float64) float64 {
	if avgDocLength == 0 {
		return 0
	}
	lengthRatio := docLength / avgDocLength
	denominator := termFreq + k1*(1-b+b*lengthRatio)
	return (termFreq * (k1 + 1)) / denominator
}
