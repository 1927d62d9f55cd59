package evaluation

import (
	"time"

	"github.com/Adithya-Monish-Kumar-K/Movie-Search-Evaluation/internal/indexer/index"
)

// QueryResult holds the measures of one benchmark query on one field.
// Skipped queries produced no search terms and carry no measures.
type QueryResult struct {
	Query        string        `json:"query"`
	Skipped      bool          `json:"skipped,omitempty"`
	Relevant     int           `json:"relevant"`
	Retrieved    []index.DocID `json:"retrieved,omitempty"`
	RelevantIDs  []index.DocID `json:"relevant_ids,omitempty"`
	PrecisionAtK float64       `json:"precision_at_k"`
	PrecisionAtR float64       `json:"precision_at_r"`
	AP           float64       `json:"average_precision"`
}

// FieldReport aggregates one field. Means are over evaluated queries only.
type FieldReport struct {
	Field            string        `json:"field"`
	Queries          []QueryResult `json:"queries"`
	MeanPrecisionAtK float64       `json:"mean_precision_at_k"`
	MeanPrecisionAtR float64       `json:"mean_precision_at_r"`
	MAP              float64       `json:"map"`
	Evaluated        int           `json:"evaluated"`
	Skipped          int           `json:"skipped"`
	Duration         time.Duration `json:"duration_ns"`
}

// Report is the outcome of one evaluation run. Fields keep the configured
// order.
type Report struct {
	RunID       string        `json:"run_id"`
	StartedAt   time.Time     `json:"started_at"`
	Duration    time.Duration `json:"duration_ns"`
	K           int           `json:"k"`
	Limit       int           `json:"limit"`
	Fingerprint string        `json:"index_fingerprint,omitempty"`
	Fields      []FieldReport `json:"fields"`
}
