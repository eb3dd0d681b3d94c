package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

// StudentEvent is the payload published for every lifecycle transition.
type StudentEvent struct {
	StudentID  string                 `json:"student_id"`
	Action     string                 `json:"action"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
	OccurredAt time.Time              `json:"occurred_at"`
}

// Publisher announces student lifecycle transitions to downstream consumers.
type Publisher interface {
	Publish(ctx context.Context, event StudentEvent) error
}

type natsPublisher struct {
	conn        *nats.Conn
	subjectBase string
	logger      zerolog.Logger
}

// NewNATSPublisher constructs a publisher over an established NATS
// connection. Events are published to "<subjectBase>.<suffix>" where the
// suffix is the action without its "student." prefix, e.g.
// registry.students.created.
func NewNATSPublisher(conn *nats.Conn, subjectBase string, logger zerolog.Logger) Publisher {
	if subjectBase == "" {
		subjectBase = "registry.students"
	}

	return &natsPublisher{
		conn:        conn,
		subjectBase: subjectBase,
		logger:      logger.With().Str("component", "nats_publisher").Logger(),
	}
}

func (p *natsPublisher) Publish(_ context.Context, event StudentEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode student event: %w", err)
	}

	subject := p.subjectBase + "." + strings.TrimPrefix(event.Action, "student.")
	if err := p.conn.Publish(subject, payload); err != nil {
		return fmt.Errorf("failed to publish student event: %w", err)
	}

	p.logger.Debug().Str("subject", subject).Str("student_id", event.StudentID).Msg("event published")
	return nil
}

// Connect dials the NATS server at the given URL.
func Connect(url string) (*nats.Conn, error) {
	if url == "" {
		return nil, fmt.Errorf("nats url must not be empty")
	}

	conn, err := nats.Connect(url, nats.Name("student-registry-api"))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to nats: %w", err)
	}

	return conn, nil
}
