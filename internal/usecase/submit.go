package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"feedback-agent/internal/domain"
)

const defaultMaxFeedbackLen = 10000

// EnvelopePublisher is the dispatch-channel seam used by SubmitService.
type EnvelopePublisher interface {
	Publish(ctx context.Context, env domain.SubmissionEnvelope) (string, error)
}

// SubmitService is the synchronous intake: it validates a feedback
// submission, wraps it in an envelope and hands it to the dispatch
// channel. The caller never learns the enrichment outcome here; the
// response only acknowledges acceptance.
type SubmitService struct {
	publisher      EnvelopePublisher
	maxFeedbackLen int

	now func() time.Time
}

type SubmitInput struct {
	CallerID     string
	Feedback     string
	Tags         []string
	FeedbackType string
}

type SubmitOutput struct {
	MessageID string
	Timestamp int64
}

func NewSubmitService(publisher EnvelopePublisher, maxFeedbackLen int) (*SubmitService, error) {
	if publisher == nil {
		return nil, errors.New("usecase: publisher must not be nil")
	}
	if maxFeedbackLen <= 0 {
		maxFeedbackLen = defaultMaxFeedbackLen
	}
	return &SubmitService{
		publisher:      publisher,
		maxFeedbackLen: maxFeedbackLen,
		now:            time.Now,
	}, nil
}

func (s *SubmitService) Submit(ctx context.Context, in SubmitInput) (SubmitOutput, error) {
	if strings.TrimSpace(in.CallerID) == "" {
		return SubmitOutput{}, newError(ErrorUnauthorized, "missing_caller_identity", nil)
	}
	feedback := strings.TrimSpace(in.Feedback)
	if feedback == "" {
		return SubmitOutput{}, newError(ErrorInvalidInput, "empty_feedback", nil)
	}
	if len([]rune(feedback)) > s.maxFeedbackLen {
		return SubmitOutput{}, newError(ErrorInvalidInput, "feedback_too_long", nil)
	}

	feedbackType := strings.TrimSpace(in.FeedbackType)
	if feedbackType == "" {
		feedbackType = domain.DefaultCategory
	}
	tags := in.Tags
	if tags == nil {
		tags = []string{}
	}

	env := domain.SubmissionEnvelope{
		UserID:       in.CallerID,
		Feedback:     feedback,
		Timestamp:    s.now().UnixMilli(),
		Tags:         tags,
		FeedbackType: feedbackType,
	}

	msgID, err := s.publisher.Publish(ctx, env)
	if err != nil {
		return SubmitOutput{}, newError(ErrorInternal, "publish_error", err)
	}
	return SubmitOutput{MessageID: msgID, Timestamp: env.Timestamp}, nil
}
