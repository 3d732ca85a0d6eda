package inference

import (
	"context"
	"errors"
	"fmt"
	"testing"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/require"
)

type fakeChat struct {
	req     openai.ChatCompletionRequest
	content string
	err     error
}

func (f *fakeChat) CreateChatCompletion(_ context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	f.req = req
	if f.err != nil {
		return openai.ChatCompletionResponse{}, f.err
	}
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Content: f.content}},
		},
	}, nil
}

type fakeParams struct {
	vals map[string]string
	err  error
}

func (f *fakeParams) GetParameter(_ context.Context, name string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	v, ok := f.vals[name]
	if !ok {
		return "", fmt.Errorf("param not found: %s", name)
	}
	return v, nil
}

func newTestClient(t *testing.T, chat chatAPI) *Client {
	t.Helper()
	c, err := NewClient(&fakeParams{}, "/feedback/prod", "gpt-4o-mini", 512, WithChatAPI(chat))
	require.NoError(t, err)
	return c
}

func TestNewClient_Validates(t *testing.T) {
	_, err := NewClient(nil, "/p", "m", 0)
	require.Error(t, err)
	_, err = NewClient(&fakeParams{}, "  ", "m", 0)
	require.Error(t, err)
	_, err = NewClient(&fakeParams{}, "/p", "", 0)
	require.Error(t, err)
}

func TestGenerateRecommendations_HappyPath(t *testing.T) {
	chat := &fakeChat{content: `[{"title":"Add caching","priority":"high"}]`}
	c := newTestClient(t, chat)

	raw, err := c.GenerateRecommendations(context.Background(), "Response times are slow")
	require.NoError(t, err)
	require.JSONEq(t, `[{"title":"Add caching","priority":"high"}]`, string(raw))

	require.Equal(t, "gpt-4o-mini", chat.req.Model)
	require.Equal(t, 512, chat.req.MaxTokens)
	require.Len(t, chat.req.Messages, 2)
	require.Contains(t, chat.req.Messages[1].Content, "Response times are slow")
}

func TestGenerateRecommendations_StripsCodeFence(t *testing.T) {
	chat := &fakeChat{content: "```json\n[{\"title\":\"x\"}]\n```"}
	c := newTestClient(t, chat)

	raw, err := c.GenerateRecommendations(context.Background(), "feedback")
	require.NoError(t, err)
	require.JSONEq(t, `[{"title":"x"}]`, string(raw))
}

func TestGenerateRecommendations_NonJSONOutput(t *testing.T) {
	c := newTestClient(t, &fakeChat{content: "I think you should add caching."})
	_, err := c.GenerateRecommendations(context.Background(), "feedback")
	require.ErrorContains(t, err, "not valid JSON")
}

func TestGenerateRecommendations_NonArrayJSONAccepted(t *testing.T) {
	// Shape enforcement is the normalizer's job; valid JSON passes through.
	c := newTestClient(t, &fakeChat{content: `{"title":"x"}`})
	raw, err := c.GenerateRecommendations(context.Background(), "feedback")
	require.NoError(t, err)
	require.JSONEq(t, `{"title":"x"}`, string(raw))
}

func TestGenerateRecommendations_TransportError(t *testing.T) {
	c := newTestClient(t, &fakeChat{err: errors.New("timeout")})
	_, err := c.GenerateRecommendations(context.Background(), "feedback")
	require.ErrorContains(t, err, "timeout")
}

func TestResolveChat_TokenErrors(t *testing.T) {
	cases := []struct {
		name   string
		params *fakeParams
		want   string
	}{
		{name: "fetch error", params: &fakeParams{err: errors.New("ssm down")}, want: "ssm down"},
		{name: "not json", params: &fakeParams{vals: map[string]string{"/p/open-ai-token": "raw"}}, want: "unmarshal token"},
		{name: "empty token", params: &fakeParams{vals: map[string]string{"/p/open-ai-token": `{"token":""}`}}, want: "token is empty"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c, err := NewClient(tc.params, "/p", "m", 0)
			require.NoError(t, err)
			_, err = c.GenerateRecommendations(context.Background(), "feedback")
			require.ErrorContains(t, err, tc.want)
		})
	}
}
