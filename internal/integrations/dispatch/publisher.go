package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"

	"feedback-agent/internal/domain"
)

// snsAPI is the minimal SNS interface required by Publisher.
// *sns.Client from aws-sdk-go-v2 satisfies this interface.
type snsAPI interface {
	Publish(ctx context.Context, in *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// Publisher fans submission envelopes out to the feedback topic. The topic
// feeds the durable work queue consumed by the enrichment worker.
type Publisher struct {
	api      snsAPI
	topicARN string
}

// NewPublisher creates a Publisher for the given topic.
func NewPublisher(api snsAPI, topicARN string) (*Publisher, error) {
	if api == nil {
		return nil, errors.New("dispatch: api must not be nil")
	}
	if strings.TrimSpace(topicARN) == "" {
		return nil, errors.New("dispatch: topic ARN must not be empty")
	}
	return &Publisher{api: api, topicARN: topicARN}, nil
}

// Publish serializes the envelope and publishes it to the topic, returning
// the channel-assigned message id.
func (p *Publisher) Publish(ctx context.Context, env domain.SubmissionEnvelope) (string, error) {
	body, err := json.Marshal(env)
	if err != nil {
		return "", fmt.Errorf("dispatch: marshal envelope: %w", err)
	}

	out, err := p.api.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(p.topicARN),
		Message:  aws.String(string(body)),
	})
	if err != nil {
		return "", fmt.Errorf("dispatch: publish: %w", err)
	}
	if out == nil || out.MessageId == nil {
		return "", errors.New("dispatch: publish returned no message id")
	}
	return *out.MessageId, nil
}
