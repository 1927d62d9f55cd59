// Package publisher announces finished evaluation runs on Kafka: one
// run_completed event followed by a field_scored event per field, all keyed
// by run id so they land on one partition in order.
package publisher

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Movie-Search-Evaluation/internal/evaluation"
	"github.com/Adithya-Monish-Kumar-K/Movie-Search-Evaluation/pkg/kafka"
)

const (
	EventRunCompleted = "run_completed"
	EventFieldScored  = "field_scored"
)

// BatchPublisher is satisfied by *kafka.Producer.
type BatchPublisher interface {
	PublishBatch(ctx context.Context, events []kafka.Event) error
}

type RunCompleted struct {
	RunID       string    `json:"run_id"`
	StartedAt   time.Time `json:"started_at"`
	DurationMS  int64     `json:"duration_ms"`
	Fingerprint string    `json:"index_fingerprint,omitempty"`
	K           int       `json:"k"`
	Fields      []string  `json:"fields"`
}

type FieldScored struct {
	RunID            string  `json:"run_id"`
	Field            string  `json:"field"`
	MeanPrecisionAtK float64 `json:"mean_precision_at_k"`
	MeanPrecisionAtR float64 `json:"mean_precision_at_r"`
	MAP              float64 `json:"map"`
	Evaluated        int     `json:"evaluated"`
	Skipped          int     `json:"skipped"`
}

type Publisher struct {
	producer BatchPublisher
	logger   *slog.Logger
}

func New(producer BatchPublisher) *Publisher {
	return &Publisher{
		producer: producer,
		logger:   slog.Default().With("component", "report-publisher"),
	}
}

// Events converts a report into the messages Publish sends.
func Events(r *evaluation.Report) []kafka.Event {
	fields := make([]string, 0, len(r.Fields))
	for _, fr := range r.Fields {
		fields = append(fields, fr.Field)
	}
	events := make([]kafka.Event, 0, len(r.Fields)+1)
	events = append(events, kafka.Event{
		Key:  r.RunID,
		Type: EventRunCompleted,
		Value: RunCompleted{
			RunID:       r.RunID,
			StartedAt:   r.StartedAt,
			DurationMS:  r.Duration.Milliseconds(),
			Fingerprint: r.Fingerprint,
			K:           r.K,
			Fields:      fields,
		},
	})
	for _, fr := range r.Fields {
		events = append(events, kafka.Event{
			Key:  r.RunID,
			Type: EventFieldScored,
			Value: FieldScored{
				RunID:            r.RunID,
				Field:            fr.Field,
				MeanPrecisionAtK: fr.MeanPrecisionAtK,
				MeanPrecisionAtR: fr.MeanPrecisionAtR,
				MAP:              fr.MAP,
				Evaluated:        fr.Evaluated,
				Skipped:          fr.Skipped,
			},
		})
	}
	return events
}

func (p *Publisher) Publish(ctx context.Context, r *evaluation.Report) error {
	events := Events(r)
	if err := p.producer.PublishBatch(ctx, events); err != nil {
		return fmt.Errorf("publishing run %s: %w", r.RunID, err)
	}
	p.logger.Info("evaluation run published", "run_id", r.RunID, "events", len(events))
	return nil
}
