package notify

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/aussiebroadwan/agency/internal/gate/domain"
	skafka "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	msgs   []skafka.Message
	err    error
	closed bool
}

func (f *fakeWriter) WriteMessages(ctx context.Context, msgs ...skafka.Message) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

func TestKafkaMailer_Send(t *testing.T) {
	t.Parallel()

	fw := &fakeWriter{}
	m := NewKafkaMailerWithWriter(fw)

	sub := domain.Submission{
		ID:         "01J0000000000000000000000S",
		Kind:       domain.SubmissionContactUs,
		Name:       "Ada",
		Email:      "ada@example.com",
		Subject:    "Hello",
		Message:    "Do you build gates?",
		ReceivedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, m.Send(t.Context(), sub))
	require.Len(t, fw.msgs, 1)
	require.Equal(t, string(domain.SubmissionContactUs), string(fw.msgs[0].Key))

	var got domain.Submission
	require.NoError(t, json.Unmarshal(fw.msgs[0].Value, &got))
	require.Equal(t, sub, got)

	require.NoError(t, m.Close())
	require.True(t, fw.closed)
}

func TestKafkaMailer_WriteError(t *testing.T) {
	t.Parallel()

	boom := errors.New("broker down")
	m := NewKafkaMailerWithWriter(&fakeWriter{err: boom})

	err := m.Send(t.Context(), domain.Submission{Kind: domain.SubmissionHireUs})
	require.ErrorIs(t, err, boom)
}

func TestSplitBrokers(t *testing.T) {
	t.Parallel()

	require.Equal(t, []string{"a:9092", "b:9092"}, splitBrokers(" a:9092, ,b:9092 "))
	require.Nil(t, splitBrokers(""))
}

func TestNewWriter(t *testing.T) {
	t.Parallel()

	w := newWriter(" broker-1:9092, ,broker-2:9092", "agency.submissions")
	require.Contains(t, w.Addr.String(), "broker-1:9092")
	require.Contains(t, w.Addr.String(), "broker-2:9092")
	require.Equal(t, "agency.submissions", w.Topic)
	require.Equal(t, 1, w.BatchSize)
	require.Equal(t, 10*time.Millisecond, w.BatchTimeout)
	require.IsType(t, &skafka.Hash{}, w.Balancer)
}
