package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"feedback-agent/internal/domain"
	"feedback-agent/internal/repository"
)

// RecordStore is the read/mutate seam over the recommendation table used
// by QueryService.
type RecordStore interface {
	ListByOwner(ctx context.Context, owner string) ([]domain.Recommendation, error)
	Search(ctx context.Context, owner string, f repository.Filter) ([]domain.Recommendation, error)
	Update(ctx context.Context, owner string, timestamp int64, req repository.UpdateRequest) (domain.Recommendation, error)
	DeleteAllByOwner(ctx context.Context, owner string) (int, error)
}

// QueryService is the owner-scoped read/update/delete surface over
// recommendation records.
type QueryService struct {
	store RecordStore
}

func NewQueryService(store RecordStore) (*QueryService, error) {
	if store == nil {
		return nil, errors.New("usecase: record store must not be nil")
	}
	return &QueryService{store: store}, nil
}

// List returns all records for the caller, newest submission first.
func (s *QueryService) List(ctx context.Context, callerID string) ([]domain.Recommendation, error) {
	if strings.TrimSpace(callerID) == "" {
		return nil, newError(ErrorUnauthorized, "missing_caller_identity", nil)
	}
	recs, err := s.store.ListByOwner(ctx, callerID)
	if err != nil {
		return nil, newError(ErrorInternal, "store_list_error", err)
	}
	return recs, nil
}

// SearchInput carries the raw, caller-supplied filters. Date strings that
// fail to parse are silently dropped rather than rejected.
type SearchInput struct {
	CallerID     string
	FromDate     string
	ToDate       string
	FeedbackType string
	Completed    *bool
	Tags         []string
	Text         string
}

// Search applies the store-level filters and then, when Text is set, a
// case-insensitive substring match over each record's serialized
// recommendations and its original feedback. The table has no text index;
// this second pass is deliberately a linear scan of the filtered set.
func (s *QueryService) Search(ctx context.Context, in SearchInput) ([]domain.Recommendation, error) {
	if strings.TrimSpace(in.CallerID) == "" {
		return nil, newError(ErrorUnauthorized, "missing_caller_identity", nil)
	}

	filter := repository.Filter{
		FromMillis: parseDateMillis(in.FromDate),
		ToMillis:   parseDateMillis(in.ToDate),
		Category:   strings.TrimSpace(in.FeedbackType),
		Completed:  in.Completed,
		Tags:       in.Tags,
	}

	recs, err := s.store.Search(ctx, in.CallerID, filter)
	if err != nil {
		return nil, newError(ErrorInternal, "store_search_error", err)
	}

	text := strings.ToLower(strings.TrimSpace(in.Text))
	if text == "" {
		return recs, nil
	}
	matched := make([]domain.Recommendation, 0, len(recs))
	for _, rec := range recs {
		if recordMatchesText(rec, text) {
			matched = append(matched, rec)
		}
	}
	return matched, nil
}

// UpdateInput is the partial field set accepted by Update. Nil fields are
// left unchanged; at least one must be present.
type UpdateInput struct {
	CallerID        string
	Timestamp       string
	Completed       *bool
	Tags            []string
	Recommendations []domain.RecommendationItem
	FeedbackType    *string
}

// Update mutates the whitelisted fields of one record and returns the
// updated record. The record must already exist; update never creates.
func (s *QueryService) Update(ctx context.Context, in UpdateInput) (domain.Recommendation, error) {
	if strings.TrimSpace(in.CallerID) == "" {
		return domain.Recommendation{}, newError(ErrorUnauthorized, "missing_caller_identity", nil)
	}
	ts, err := strconv.ParseInt(strings.TrimSpace(in.Timestamp), 10, 64)
	if err != nil {
		return domain.Recommendation{}, newError(ErrorInvalidInput, "invalid_timestamp", err)
	}

	rec, err := s.store.Update(ctx, in.CallerID, ts, repository.UpdateRequest{
		Completed:       in.Completed,
		Tags:            in.Tags,
		Recommendations: in.Recommendations,
		FeedbackType:    in.FeedbackType,
	})
	switch {
	case errors.Is(err, repository.ErrEmptyUpdate):
		return domain.Recommendation{}, newError(ErrorInvalidInput, "no_updatable_fields", err)
	case errors.Is(err, repository.ErrNotFound):
		return domain.Recommendation{}, newError(ErrorNotFound, "record_not_found", err)
	case err != nil:
		return domain.Recommendation{}, newError(ErrorInternal, "store_update_error", err)
	}
	return rec, nil
}

// DeleteAll removes every record for the caller and returns the count.
func (s *QueryService) DeleteAll(ctx context.Context, callerID string) (int, error) {
	if strings.TrimSpace(callerID) == "" {
		return 0, newError(ErrorUnauthorized, "missing_caller_identity", nil)
	}
	count, err := s.store.DeleteAllByOwner(ctx, callerID)
	if err != nil {
		return 0, newError(ErrorInternal, "store_delete_error", err)
	}
	return count, nil
}

// parseDateMillis converts an ISO date or datetime string to epoch
// milliseconds. Unparsable input returns nil, which drops the bound.
func parseDateMillis(s string) *int64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			ms := t.UnixMilli()
			return &ms
		}
	}
	return nil
}

func recordMatchesText(rec domain.Recommendation, lowered string) bool {
	if strings.Contains(strings.ToLower(rec.OriginalFeedback), lowered) {
		return true
	}
	serialized, err := json.Marshal(rec.Recommendations)
	if err != nil {
		return false
	}
	return strings.Contains(strings.ToLower(string(serialized)), lowered)
}
