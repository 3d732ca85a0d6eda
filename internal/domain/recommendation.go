package domain

// Priority levels accepted on a recommendation item. Anything else is
// clamped to PriorityMedium during normalization.
const (
	PriorityHigh   = "high"
	PriorityMedium = "medium"
	PriorityLow    = "low"
)

// DefaultCategory is applied when a submission or model item carries none.
const DefaultCategory = "general"

// RecommendationItem is a single actionable suggestion produced by the
// inference model (or the fallback path) for one piece of feedback.
type RecommendationItem struct {
	ID          string `json:"id" dynamodbav:"id"`
	Title       string `json:"title" dynamodbav:"title"`
	Description string `json:"description" dynamodbav:"description"`
	Priority    string `json:"priority" dynamodbav:"priority"`
	Category    string `json:"category" dynamodbav:"category"`
}

// Recommendation is the persisted record for one enriched feedback
// submission. UserID is the partition key and Timestamp the sort key; a
// second submission from the same user in the same millisecond overwrites.
type Recommendation struct {
	UserID           string               `json:"userId" dynamodbav:"userId"`
	Timestamp        int64                `json:"timestamp" dynamodbav:"timestamp"`
	FeedbackType     string               `json:"feedbackType" dynamodbav:"feedbackType"`
	OriginalFeedback string               `json:"originalFeedback" dynamodbav:"originalFeedback"`
	Recommendations  []RecommendationItem `json:"recommendations" dynamodbav:"recommendations"`
	Tags             []string             `json:"tags" dynamodbav:"tags"`
	Completed        bool                 `json:"completed" dynamodbav:"completed"`
	GeneratedAt      string               `json:"generatedAt" dynamodbav:"generatedAt"`
	UpdatedAt        string               `json:"updatedAt" dynamodbav:"updatedAt"`
	ModelUsed        string               `json:"modelUsed" dynamodbav:"modelUsed"`
}

// HasAnyTag reports whether the record carries at least one of the given
// tags. An empty query set matches nothing.
func (r Recommendation) HasAnyTag(tags []string) bool {
	for _, want := range tags {
		for _, have := range r.Tags {
			if have == want {
				return true
			}
		}
	}
	return false
}
