package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"feedback-agent/internal/domain"
	"feedback-agent/internal/integrations/dispatch"
)

const (
	maxTitleLen       = 100
	maxDescriptionLen = 500

	fallbackTitle       = "Review and analyze feedback"
	fallbackDescription = "Automated analysis was unavailable for this submission. Review the original feedback manually."
)

// ErrMalformedMessage marks a message whose envelope could not be parsed.
// The batch processor logs and skips such messages without failing the
// batch; a malformed payload would fail identically on every redelivery,
// so retrying it is pointless. Every other processing error is fatal to
// the batch and triggers redelivery of all its messages.
var ErrMalformedMessage = errors.New("usecase: malformed message")

// RecordWriter is the store seam used by EnrichService.
type RecordWriter interface {
	Put(ctx context.Context, rec domain.Recommendation) error
}

// RecommendationGenerator is the inference seam used by EnrichService.
type RecommendationGenerator interface {
	GenerateRecommendations(ctx context.Context, feedback string) (json.RawMessage, error)
	Model() string
}

// EnrichService processes dispatched submissions: it calls the inference
// model, normalizes its output and persists one recommendation record per
// message. Delivery is at-least-once and non-idempotent: a fatal error
// mid-batch redelivers the whole batch, re-persisting messages that had
// already succeeded in the failed attempt.
type EnrichService struct {
	store RecordWriter
	model RecommendationGenerator

	now    func() time.Time
	itemID func() string
}

func NewEnrichService(store RecordWriter, model RecommendationGenerator) (*EnrichService, error) {
	if store == nil {
		return nil, errors.New("usecase: record writer must not be nil")
	}
	if model == nil {
		return nil, errors.New("usecase: recommendation generator must not be nil")
	}
	return &EnrichService{
		store:  store,
		model:  model,
		now:    time.Now,
		itemID: uuid.NewString,
	}, nil
}

// ProcessMessage runs the per-message pipeline: parse, enrich, normalize,
// persist. Parse failures return ErrMalformedMessage (skip lane); an
// inference failure is absorbed by substituting the fallback item; a
// non-array model response or a store write failure is fatal.
func (s *EnrichService) ProcessMessage(ctx context.Context, body string) error {
	env, err := dispatch.ParseSubmission(body)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}

	var items []domain.RecommendationItem
	raw, err := s.model.GenerateRecommendations(ctx, env.Feedback)
	if err != nil {
		items = s.fallbackItems()
	} else {
		items, err = s.normalizeItems(raw)
		if err != nil {
			return fmt.Errorf("usecase: normalize output for %s: %w", env.UserID, err)
		}
	}

	now := s.now().UTC().Format(time.RFC3339)
	rec := domain.Recommendation{
		UserID:           env.UserID,
		Timestamp:        env.Timestamp,
		FeedbackType:     env.FeedbackType,
		OriginalFeedback: env.Feedback,
		Recommendations:  items,
		Tags:             env.Tags,
		Completed:        false,
		GeneratedAt:      now,
		UpdatedAt:        now,
		ModelUsed:        s.model.Model(),
	}
	if err := s.store.Put(ctx, rec); err != nil {
		return fmt.Errorf("usecase: persist record for %s: %w", env.UserID, err)
	}
	return nil
}

// modelItem is the untrusted per-item shape in the model output.
type modelItem struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Priority    string `json:"priority"`
	Category    string `json:"category"`
}

// normalizeItems coerces the raw model output into clean recommendation
// items. Output that is not a JSON array is an error here, which the
// caller treats as fatal. An empty array degrades to the fallback item so
// every persisted record carries at least one recommendation.
func (s *EnrichService) normalizeItems(raw json.RawMessage) ([]domain.RecommendationItem, error) {
	var rawItems []modelItem
	if err := json.Unmarshal(raw, &rawItems); err != nil {
		return nil, fmt.Errorf("model output is not an array of items: %w", err)
	}
	if len(rawItems) == 0 {
		return s.fallbackItems(), nil
	}

	items := make([]domain.RecommendationItem, 0, len(rawItems))
	for _, it := range rawItems {
		items = append(items, domain.RecommendationItem{
			ID:          s.itemID(),
			Title:       truncate(it.Title, maxTitleLen),
			Description: truncate(it.Description, maxDescriptionLen),
			Priority:    clampPriority(it.Priority),
			Category:    defaultIfEmpty(it.Category, domain.DefaultCategory),
		})
	}
	return items, nil
}

func (s *EnrichService) fallbackItems() []domain.RecommendationItem {
	return []domain.RecommendationItem{{
		ID:          s.itemID(),
		Title:       fallbackTitle,
		Description: fallbackDescription,
		Priority:    domain.PriorityMedium,
		Category:    domain.DefaultCategory,
	}}
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}

func clampPriority(p string) string {
	switch strings.ToLower(strings.TrimSpace(p)) {
	case domain.PriorityHigh:
		return domain.PriorityHigh
	case domain.PriorityLow:
		return domain.PriorityLow
	default:
		return domain.PriorityMedium
	}
}

func defaultIfEmpty(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
