package handler

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/aws/aws-lambda-go/events"
	"github.com/stretchr/testify/require"

	"feedback-agent/internal/usecase"
)

// scriptedProcessor returns a configured outcome per message body.
type scriptedProcessor struct {
	outcomes map[string]error
	seen     []string
}

func (p *scriptedProcessor) ProcessMessage(_ context.Context, body string) error {
	p.seen = append(p.seen, body)
	return p.outcomes[body]
}

func sqsEvent(bodies ...string) events.SQSEvent {
	var event events.SQSEvent
	for i, body := range bodies {
		event.Records = append(event.Records, events.SQSMessage{
			MessageId: fmt.Sprintf("sqs-%d", i+1),
			Body:      body,
		})
	}
	return event
}

func TestNewWorkerHandler_NilProcessor(t *testing.T) {
	_, err := NewWorkerHandler(nil)
	require.Error(t, err)
}

func TestWorkerHandle_AllSucceed(t *testing.T) {
	p := &scriptedProcessor{outcomes: map[string]error{}}
	h, err := NewWorkerHandler(p)
	require.NoError(t, err)

	require.NoError(t, h.Handle(context.Background(), sqsEvent("m1", "m2", "m3")))
	require.Equal(t, []string{"m1", "m2", "m3"}, p.seen)
}

func TestWorkerHandle_MalformedSkippedBatchContinues(t *testing.T) {
	p := &scriptedProcessor{outcomes: map[string]error{
		"m2": fmt.Errorf("%w: no userId", usecase.ErrMalformedMessage),
	}}
	h, err := NewWorkerHandler(p)
	require.NoError(t, err)

	// A malformed message must not fail the batch; m3 still runs.
	require.NoError(t, h.Handle(context.Background(), sqsEvent("m1", "m2", "m3")))
	require.Equal(t, []string{"m1", "m2", "m3"}, p.seen)
}

func TestWorkerHandle_FatalAbortsBatch(t *testing.T) {
	fatal := errors.New("dynamodb down")
	p := &scriptedProcessor{outcomes: map[string]error{"m2": fatal}}
	h, err := NewWorkerHandler(p)
	require.NoError(t, err)

	// The fatal error propagates so the whole batch stays unacknowledged
	// and redelivers, including m1 which already persisted.
	err = h.Handle(context.Background(), sqsEvent("m1", "m2", "m3"))
	require.ErrorIs(t, err, fatal)
	require.Equal(t, []string{"m1", "m2"}, p.seen)
}

func TestWorkerHandle_EmptyBatch(t *testing.T) {
	p := &scriptedProcessor{}
	h, err := NewWorkerHandler(p)
	require.NoError(t, err)

	require.NoError(t, h.Handle(context.Background(), events.SQSEvent{}))
	require.Empty(t, p.seen)
}
