package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"opsengine/internal/domain"
	"opsengine/pkg/crypto"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	messages []kafka.Message
	err      error
	closed   bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func TestProducer_PublishDecision_Signed(t *testing.T) {
	writer := &fakeWriter{}
	signer := crypto.NewSigner("test-secret", nil)
	p := newProducer(writer, signer, nil)

	event := domain.DecisionEvent{
		EventID:         "e1",
		TicketID:        "ticket-42",
		Intent:          domain.IntentCreditLimitIncrease,
		Outcome:         domain.OutcomeRejected,
		RequestedAmount: 50000,
		CoverageRatio:   "0.2x",
		Action:          domain.ActionRoutedToCreditAnalyst,
		DecidedAt:       time.Date(2026, 10, 14, 9, 30, 0, 123, time.UTC),
	}

	require.NoError(t, p.PublishDecision(context.Background(), event))
	require.Len(t, writer.messages, 1)

	msg := writer.messages[0]
	assert.Equal(t, "ticket-42", string(msg.Key))
	require.Len(t, msg.Headers, 1)
	assert.Equal(t, "REJECTED", string(msg.Headers[0].Value))

	var decoded domain.DecisionEvent
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.NotEmpty(t, decoded.Signature)

	ok, err := signer.VerifyDecision(decoded)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestProducer_PublishDecision_WriteError(t *testing.T) {
	writer := &fakeWriter{err: errors.New("no brokers")}
	p := newProducer(writer, nil, nil)

	err := p.PublishDecision(context.Background(), domain.DecisionEvent{TicketID: "t"})

	assert.ErrorContains(t, err, "no brokers")
}

func TestProducer_Close(t *testing.T) {
	writer := &fakeWriter{}
	p := newProducer(writer, nil, nil)

	require.NoError(t, p.Close())
	assert.True(t, writer.closed)
}

func TestNopPublisher(t *testing.T) {
	var p NopPublisher
	assert.NoError(t, p.PublishDecision(context.Background(), domain.DecisionEvent{}))
	assert.NoError(t, p.Close())
}
