package inference

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	openai "github.com/sashabaranov/go-openai"

	"feedback-agent/internal/integrations/paramstore"
)

const defaultTemperature = 0.7

// tokenPayload is the expected JSON shape stored in SSM for the API token.
type tokenPayload struct {
	Token string `json:"token"`
}

// chatAPI is the slice of the OpenAI client used here. *openai.Client
// satisfies it; tests substitute a fake.
type chatAPI interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Client calls the chat-completion endpoint to turn raw feedback text into
// structured recommendation items. The API key is fetched from the
// parameter store on first use and reused for the process lifetime.
type Client struct {
	getter      paramstore.Getter
	paramPrefix string
	model       string
	maxTokens   int

	chatOnce sync.Once
	chat     chatAPI
	chatErr  error
}

type Option func(*Client)

// WithChatAPI injects a chat backend directly, bypassing key resolution.
func WithChatAPI(api chatAPI) Option {
	return func(c *Client) {
		c.chat = api
	}
}

// NewClient creates a Client backed by the given paramstore.Getter for API
// key retrieval.
func NewClient(ps paramstore.Getter, paramPrefix, model string, maxTokens int, opts ...Option) (*Client, error) {
	if ps == nil {
		return nil, errors.New("inference: paramstore getter must not be nil")
	}
	paramPrefix = strings.TrimRight(strings.TrimSpace(paramPrefix), "/")
	if paramPrefix == "" {
		return nil, errors.New("inference: parameter prefix must not be empty")
	}
	if strings.TrimSpace(model) == "" {
		return nil, errors.New("inference: model must not be empty")
	}
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	c := &Client{
		getter:      ps,
		paramPrefix: paramPrefix,
		model:       model,
		maxTokens:   maxTokens,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Model returns the configured model identifier, recorded on every
// persisted record for provenance.
func (c *Client) Model() string {
	return c.model
}

func (c *Client) resolveChat(ctx context.Context) (chatAPI, error) {
	c.chatOnce.Do(func() {
		if c.chat != nil {
			return
		}
		raw, err := c.getter.GetParameter(ctx, c.paramPrefix+"/open-ai-token")
		if err != nil {
			c.chatErr = fmt.Errorf("inference: fetch token: %w", err)
			return
		}
		var tp tokenPayload
		if err := json.Unmarshal([]byte(raw), &tp); err != nil {
			c.chatErr = fmt.Errorf("inference: unmarshal token value: %w", err)
			return
		}
		if tp.Token == "" {
			c.chatErr = errors.New("inference: API token is empty")
			return
		}
		c.chat = openai.NewClient(tp.Token)
	})
	return c.chat, c.chatErr
}

// GenerateRecommendations asks the model for 3-5 recommendation items for
// the given feedback and returns the response body as raw JSON. Transport
// failures, empty responses and output that is not valid JSON are all
// errors; callers decide what to do with them (the worker falls back to a
// canned item). Note that valid JSON of the wrong shape, such as a bare
// object, is NOT an error here — shape enforcement happens during
// normalization.
func (c *Client) GenerateRecommendations(ctx context.Context, feedback string) (json.RawMessage, error) {
	chat, err := c.resolveChat(ctx)
	if err != nil {
		return nil, err
	}

	resp, err := chat.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: defaultTemperature,
		MaxTokens:   c.maxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt()},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt(feedback)},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("inference: chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("inference: no choices in response")
	}

	content := stripCodeFence(resp.Choices[0].Message.Content)
	if !json.Valid([]byte(content)) {
		return nil, errors.New("inference: model output is not valid JSON")
	}
	return json.RawMessage(content), nil
}

func systemPrompt() string {
	return strings.Join([]string{
		"You are a product operations assistant.",
		"Turn user feedback into concrete, actionable recommendations.",
		"Respond with a JSON array only, no prose and no markdown.",
		"Each element must have keys: title, description, priority, category.",
		"priority must be one of: high, medium, low.",
	}, "\n")
}

func userPrompt(feedback string) string {
	return fmt.Sprintf(
		"Analyze the following user feedback and produce 3 to 5 recommendations as a JSON array.\n\nFeedback:\n%s",
		feedback,
	)
}

// stripCodeFence removes a surrounding markdown code fence if the model
// wrapped its output in one despite instructions.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
