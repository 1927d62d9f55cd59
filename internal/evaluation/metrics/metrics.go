// Package metrics implements the ranked-retrieval quality measures used by
// the evaluation harness. Results are ranked document ids, best first;
// relevant is the judged set for the query.
package metrics

// PrecisionAtK is the fraction of the first k ranks holding a relevant
// document. The denominator is always k, so ranks past the end of results
// count as misses. Returns 0 when k <= 0.
func PrecisionAtK[T comparable](results []T, relevant map[T]struct{}, k int) float64 {
	if k <= 0 {
		return 0
	}
	hits := 0
	for i := 0; i < k && i < len(results); i++ {
		if _, ok := relevant[results[i]]; ok {
			hits++
		}
	}
	return float64(hits) / float64(k)
}

// PrecisionAtR is PrecisionAtK with k equal to the number of relevant
// documents.
func PrecisionAtR[T comparable](results []T, relevant map[T]struct{}) float64 {
	return PrecisionAtK(results, relevant, len(relevant))
}

// AveragePrecision averages PrecisionAtK over the rank of every relevant
// result, dividing by the size of the relevant set so unretrieved relevant
// documents lower the score. Returns 0 when relevant is empty.
func AveragePrecision[T comparable](results []T, relevant map[T]struct{}) float64 {
	if len(relevant) == 0 {
		return 0
	}
	sum := 0.0
	for i, id := range results {
		if _, ok := relevant[id]; ok {
			sum += PrecisionAtK(results, relevant, i+1)
		}
	}
	return sum / float64(len(relevant))
}

// Accumulator sums per-query measures for one field.
type Accumulator struct {
	SumPrecisionAtK float64
	SumPrecisionAtR float64
	SumAP           float64
	Evaluated       int
	Skipped         int
}

func (a *Accumulator) Add(pAtK, pAtR, ap float64) {
	a.SumPrecisionAtK += pAtK
	a.SumPrecisionAtR += pAtR
	a.SumAP += ap
	a.Evaluated++
}

func (a *Accumulator) Skip() {
	a.Skipped++
}

// Means divides each sum by the number of evaluated queries, or returns
// zeros when none were evaluated.
func (a *Accumulator) Means() (meanPAtK, meanPAtR, mapScore float64) {
	if a.Evaluated == 0 {
		return 0, 0, 0
	}
	n := float64(a.Evaluated)
	return a.SumPrecisionAtK / n, a.SumPrecisionAtR / n, a.SumAP / n
}
