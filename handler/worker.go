package handler

import (
	"context"
	"errors"
	"log/slog"

	"github.com/aws/aws-lambda-go/events"

	"feedback-agent/internal/usecase"
)

// MessageProcessor is the enrichment operation consumed by WorkerHandler.
type MessageProcessor interface {
	ProcessMessage(ctx context.Context, body string) error
}

// WorkerHandler consumes queue batches for the enrichment pipeline. The
// batch is acknowledged atomically: returning nil acknowledges every
// message, returning an error acknowledges none, so the channel redelivers
// the whole batch including messages that already persisted in this
// attempt. That duplication is the accepted cost of at-least-once delivery
// here; the worker does not deduplicate.
type WorkerHandler struct {
	processor MessageProcessor
}

func NewWorkerHandler(processor MessageProcessor) (*WorkerHandler, error) {
	if processor == nil {
		return nil, errors.New("handler: message processor must not be nil")
	}
	return &WorkerHandler{processor: processor}, nil
}

// Handle processes each message in the batch sequentially. Malformed
// messages are logged and skipped: they would fail identically on every
// redelivery. Any other failure aborts the batch immediately.
func (h *WorkerHandler) Handle(ctx context.Context, event events.SQSEvent) error {
	processed, skipped := 0, 0

	for _, record := range event.Records {
		err := h.processor.ProcessMessage(ctx, record.Body)
		switch {
		case errors.Is(err, usecase.ErrMalformedMessage):
			slog.Warn("skipping malformed message", "sqsMessageId", record.MessageId, "err", err)
			skipped++
		case err != nil:
			slog.Error("batch aborted", "sqsMessageId", record.MessageId, "processed", processed, "skipped", skipped, "err", err)
			return err
		default:
			processed++
		}
	}

	slog.Info("batch complete", "processed", processed, "skipped", skipped, "total", len(event.Records))
	return nil
}
