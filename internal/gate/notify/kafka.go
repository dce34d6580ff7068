package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aussiebroadwan/agency/internal/gate/domain"
	"github.com/aussiebroadwan/agency/pkg/slogx"
	skafka "github.com/segmentio/kafka-go"
)

// Writer is the part of *kafka.Writer the mailer uses.
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...skafka.Message) error
	Close() error
}

// KafkaMailer publishes submissions as JSON to a topic consumed by the
// outbound mail worker. Messages are keyed by submission kind so each kind
// stays ordered within its partition.
type KafkaMailer struct {
	writer Writer
}

// NewKafkaMailer connects to brokers, a comma separated host:port list.
func NewKafkaMailer(brokers, topic string) *KafkaMailer {
	return NewKafkaMailerWithWriter(newWriter(brokers, topic))
}

// newWriter flushes every message on its own: Send is synchronous and one
// submission is one message, so batching would only add latency to the
// request.
func newWriter(brokers, topic string) *skafka.Writer {
	return &skafka.Writer{
		Addr:         skafka.TCP(splitBrokers(brokers)...),
		Topic:        topic,
		Balancer:     &skafka.Hash{},
		BatchSize:    1,
		BatchTimeout: 10 * time.Millisecond,
		RequiredAcks: skafka.RequireOne,
	}
}

func NewKafkaMailerWithWriter(w Writer) *KafkaMailer {
	return &KafkaMailer{writer: w}
}

func (m *KafkaMailer) Send(ctx context.Context, s domain.Submission) error {
	value, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("notify: marshal submission: %w", err)
	}

	msg := skafka.Message{
		Key:   []byte(s.Kind),
		Value: value,
	}
	if err := m.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("notify: kafka write: %w", err)
	}

	slogx.FromContext(ctx).Debug("submission published",
		slog.String("submission_id", s.ID),
		slog.String("kind", string(s.Kind)),
	)
	return nil
}

func (m *KafkaMailer) Close() error {
	return m.writer.Close()
}

func splitBrokers(s string) []string {
	var out []string
	for b := range strings.SplitSeq(s, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}
