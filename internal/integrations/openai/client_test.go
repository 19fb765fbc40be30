package openai

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"line-chat-agent/internal/domain"
)

type fakeGetter struct {
	val    string
	err    error
	onCall func()
}

func (f *fakeGetter) GetParameter(_ context.Context, _ string) (string, error) {
	if f.onCall != nil {
		f.onCall()
	}
	return f.val, f.err
}

// ---------------------------------------------------------------------------
// chatURL helper
// ---------------------------------------------------------------------------

func TestChatURL(t *testing.T) {
	cases := []struct {
		base string
		want string
	}{
		{"https://api.openai.com/v1", "https://api.openai.com/v1/chat/completions"},
		{"https://api.openai.com/v1/", "https://api.openai.com/v1/chat/completions"},
		{"http://localhost:8080", "http://localhost:8080/v1/chat/completions"},
		{"", "https://api.openai.com/v1/chat/completions"},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, chatURL(tc.base), "base=%q", tc.base)
	}
}

// ---------------------------------------------------------------------------
// NewClient
// ---------------------------------------------------------------------------

func TestNewClient_NilGetter(t *testing.T) {
	_, err := NewClient(nil, "/line-chat-agent")
	require.Error(t, err)
	require.Contains(t, err.Error(), "nil")
}

func TestNewClient_EmptyPrefix(t *testing.T) {
	_, err := NewClient(&fakeGetter{}, "  ")
	require.Error(t, err)
}

// ---------------------------------------------------------------------------
// resolveAPIKey — SSM caching behaviour
// ---------------------------------------------------------------------------

func TestResolveAPIKey_FetchedOnceAndCached(t *testing.T) {
	calls := 0
	g := &fakeGetter{val: "sk-from-ssm"}
	g.onCall = func() { calls++ }
	c, err := NewClient(g, "/line-chat-agent")
	require.NoError(t, err)

	key, err := c.resolveAPIKey(context.Background())
	require.NoError(t, err)
	require.Equal(t, "sk-from-ssm", key)

	key, err = c.resolveAPIKey(context.Background())
	require.NoError(t, err)
	require.Equal(t, "sk-from-ssm", key)
	require.Equal(t, 1, calls)
}

func TestResolveAPIKey_EmptyToken(t *testing.T) {
	c, err := NewClient(&fakeGetter{val: "  "}, "/line-chat-agent")
	require.NoError(t, err)
	_, err = c.resolveAPIKey(context.Background())
	require.Error(t, err)
}

// ---------------------------------------------------------------------------
// Chat
// ---------------------------------------------------------------------------

func TestChat_SendsFixedGenerationParameters(t *testing.T) {
	var got chatRequest
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &got))
		_, _ = w.Write([]byte(`{"choices":[{"index":0,"message":{"role":"assistant","content":"こんにちは"}}]}`))
	}))
	defer srv.Close()

	c, err := NewClient(&fakeGetter{val: "sk-test"}, "/line-chat-agent", WithBaseURL(srv.URL))
	require.NoError(t, err)

	answer, err := c.Chat(context.Background(), "gpt-4o-mini-2024-07-18", []domain.ChatMessage{
		{Role: domain.RoleSystem, Content: "persona"},
		{Role: domain.RoleUser, Content: "hello"},
	})
	require.NoError(t, err)
	require.Equal(t, "こんにちは", answer)
	require.Equal(t, "Bearer sk-test", auth)
	require.Equal(t, "gpt-4o-mini-2024-07-18", got.Model)
	require.Equal(t, 500, got.MaxTokens)
	require.InDelta(t, 0.7, got.Temperature, 1e-9)
	require.Len(t, got.Messages, 2)
}

func TestChat_EmptyModel(t *testing.T) {
	c, err := NewClient(&fakeGetter{val: "sk-test"}, "/line-chat-agent")
	require.NoError(t, err)
	_, err = c.Chat(context.Background(), "", nil)
	require.Error(t, err)
}

func TestChat_UpstreamStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":"rate limited"}`))
	}))
	defer srv.Close()

	c, err := NewClient(&fakeGetter{val: "sk-test"}, "/line-chat-agent", WithBaseURL(srv.URL))
	require.NoError(t, err)

	_, err = c.Chat(context.Background(), "gpt-4o-mini-2024-07-18", nil)
	require.Error(t, err)
	var statusErr *HTTPStatusError
	require.True(t, errors.As(err, &statusErr))
	require.Equal(t, http.StatusTooManyRequests, statusErr.HTTPStatusCode())
}

func TestChat_NoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	c, err := NewClient(&fakeGetter{val: "sk-test"}, "/line-chat-agent", WithBaseURL(srv.URL))
	require.NoError(t, err)

	_, err = c.Chat(context.Background(), "gpt-4o-mini-2024-07-18", nil)
	require.Error(t, err)
	require.Contains(t, err.Error(), "no choices")
}

func TestChat_KeyFetchFailureSurfaces(t *testing.T) {
	c, err := NewClient(&fakeGetter{err: errors.New("ssm down")}, "/line-chat-agent")
	require.NoError(t, err)
	_, err = c.Chat(context.Background(), "gpt-4o-mini-2024-07-18", nil)
	require.Error(t, err)
	require.Contains(t, err.Error(), "ssm down")
}
