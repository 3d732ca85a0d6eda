package domain

// SubmissionEnvelope is the inner message published to the dispatch topic
// for every accepted feedback submission and consumed by the enrichment
// worker. Field names are the wire contract and must stay stable.
type SubmissionEnvelope struct {
	UserID       string   `json:"userId"`
	Feedback     string   `json:"feedback"`
	Timestamp    int64    `json:"timestamp"`
	Tags         []string `json:"tags"`
	FeedbackType string   `json:"feedbackType"`
}
