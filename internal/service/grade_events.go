package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/php369/urop-grading-api/internal/models"
)

// GradeEvent notifies external collaborators of a grade lifecycle change.
type GradeEvent struct {
	SubmissionID uint               `json:"submission_id"`
	GradeID      uint               `json:"grade_id"`
	Version      int                `json:"version"`
	Action       models.GradeAction `json:"action"`
	Score        float64            `json:"score"`
	GraderID     uint               `json:"grader_id"`
	OccurredAt   time.Time          `json:"occurred_at"`
}

// GradeEventPublisher fans grade lifecycle events out to interested systems.
type GradeEventPublisher interface {
	Publish(ctx context.Context, event GradeEvent) error
}

type natsGradeEventPublisher struct {
	conn        *nats.Conn
	subjectBase string
	logger      zerolog.Logger
}

// NewGradeEventPublisher builds a NATS-backed publisher. Subjects are
// "<base>.<action>", e.g. "grades.updated".
func NewGradeEventPublisher(conn *nats.Conn, subjectBase string, logger zerolog.Logger) GradeEventPublisher {
	if subjectBase == "" {
		subjectBase = "grades"
	}
	return &natsGradeEventPublisher{
		conn:        conn,
		subjectBase: subjectBase,
		logger:      logger.With().Str("component", "grade_event_publisher").Logger(),
	}
}

func (p *natsGradeEventPublisher) Publish(_ context.Context, event GradeEvent) error {
	if p.conn == nil {
		return nil
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode grade event: %w", err)
	}

	subject := fmt.Sprintf("%s.%s", p.subjectBase, event.Action)
	if err := p.conn.Publish(subject, payload); err != nil {
		return fmt.Errorf("publish grade event: %w", err)
	}

	p.logger.Debug().
		Str("subject", subject).
		Uint("grade_id", event.GradeID).
		Int("version", event.Version).
		Msg("grade event published")

	return nil
}
