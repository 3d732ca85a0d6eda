package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"feedback-agent/internal/domain"
)

type mockPublisher struct {
	published []domain.SubmissionEnvelope
	msgID     string
	err       error
}

func (m *mockPublisher) Publish(_ context.Context, env domain.SubmissionEnvelope) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	m.published = append(m.published, env)
	return m.msgID, nil
}

func newSubmitService(t *testing.T, pub *mockPublisher) *SubmitService {
	t.Helper()
	s, err := NewSubmitService(pub, 0)
	require.NoError(t, err)
	s.now = func() time.Time { return time.UnixMilli(1700000000000) }
	return s
}

func TestNewSubmitService_NilPublisher(t *testing.T) {
	_, err := NewSubmitService(nil, 100)
	require.Error(t, err)
}

func TestSubmit_HappyPath(t *testing.T) {
	pub := &mockPublisher{msgID: "msg-1"}
	s := newSubmitService(t, pub)

	out, err := s.Submit(context.Background(), SubmitInput{
		CallerID: "U1",
		Feedback: "  Response times are slow  ",
		Tags:     []string{"perf"},
	})
	require.NoError(t, err)
	require.Equal(t, "msg-1", out.MessageID)
	require.Equal(t, int64(1700000000000), out.Timestamp)

	require.Len(t, pub.published, 1)
	env := pub.published[0]
	require.Equal(t, "U1", env.UserID)
	require.Equal(t, "Response times are slow", env.Feedback)
	require.Equal(t, "general", env.FeedbackType)
	require.Equal(t, []string{"perf"}, env.Tags)
}

func TestSubmit_DefaultsNilTags(t *testing.T) {
	pub := &mockPublisher{msgID: "msg-1"}
	s := newSubmitService(t, pub)

	_, err := s.Submit(context.Background(), SubmitInput{CallerID: "U1", Feedback: "x", FeedbackType: "ux"})
	require.NoError(t, err)
	require.NotNil(t, pub.published[0].Tags)
	require.Empty(t, pub.published[0].Tags)
	require.Equal(t, "ux", pub.published[0].FeedbackType)
}

func TestSubmit_Validation(t *testing.T) {
	cases := []struct {
		name string
		in   SubmitInput
		code ErrorCode
	}{
		{name: "missing caller", in: SubmitInput{Feedback: "x"}, code: ErrorUnauthorized},
		{name: "empty feedback", in: SubmitInput{CallerID: "U1"}, code: ErrorInvalidInput},
		{name: "whitespace feedback", in: SubmitInput{CallerID: "U1", Feedback: "   "}, code: ErrorInvalidInput},
		{name: "oversized feedback", in: SubmitInput{CallerID: "U1", Feedback: strings.Repeat("a", 10001)}, code: ErrorInvalidInput},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			pub := &mockPublisher{msgID: "msg-1"}
			s := newSubmitService(t, pub)

			_, err := s.Submit(context.Background(), tc.in)
			var ucErr *Error
			require.ErrorAs(t, err, &ucErr)
			require.Equal(t, tc.code, ucErr.Code)
			require.Empty(t, pub.published)
		})
	}
}

func TestSubmit_MaxLengthBoundary(t *testing.T) {
	pub := &mockPublisher{msgID: "msg-1"}
	s := newSubmitService(t, pub)

	_, err := s.Submit(context.Background(), SubmitInput{
		CallerID: "U1",
		Feedback: strings.Repeat("a", 10000),
	})
	require.NoError(t, err)
	require.Len(t, pub.published, 1)
}

func TestSubmit_PublishError(t *testing.T) {
	s := newSubmitService(t, &mockPublisher{err: errors.New("sns down")})

	_, err := s.Submit(context.Background(), SubmitInput{CallerID: "U1", Feedback: "x"})
	var ucErr *Error
	require.ErrorAs(t, err, &ucErr)
	require.Equal(t, ErrorInternal, ucErr.Code)
}
