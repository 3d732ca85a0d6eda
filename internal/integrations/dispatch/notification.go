package dispatch

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"feedback-agent/internal/domain"
)

// notification is the topic envelope wrapping the inner submission payload
// as it arrives on the queue (raw message delivery disabled).
type notification struct {
	Type      string `json:"Type"`
	MessageID string `json:"MessageId"`
	Message   string `json:"Message"`
}

// ParseSubmission unwraps a queue record body down to the submission
// envelope. The body must be a topic notification whose Message field is
// the envelope JSON; userId and feedback are mandatory.
func ParseSubmission(body string) (domain.SubmissionEnvelope, error) {
	var note notification
	if err := json.Unmarshal([]byte(body), &note); err != nil {
		return domain.SubmissionEnvelope{}, fmt.Errorf("dispatch: decode notification: %w", err)
	}
	if strings.TrimSpace(note.Message) == "" {
		return domain.SubmissionEnvelope{}, errors.New("dispatch: notification has no message payload")
	}

	var env domain.SubmissionEnvelope
	if err := json.Unmarshal([]byte(note.Message), &env); err != nil {
		return domain.SubmissionEnvelope{}, fmt.Errorf("dispatch: decode submission envelope: %w", err)
	}
	if env.UserID == "" {
		return domain.SubmissionEnvelope{}, errors.New("dispatch: submission envelope missing userId")
	}
	if env.Feedback == "" {
		return domain.SubmissionEnvelope{}, errors.New("dispatch: submission envelope missing feedback")
	}
	if env.FeedbackType == "" {
		env.FeedbackType = domain.DefaultCategory
	}
	if env.Tags == nil {
		env.Tags = []string{}
	}
	return env, nil
}
