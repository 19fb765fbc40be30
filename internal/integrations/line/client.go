// Package line is a focused client for the pieces of the LINE Messaging API
// this relay needs: webhook signature validation and payload parsing, bot and
// member profile lookup, and one-shot reply delivery.
package line

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// HTTPStatusError captures non-2xx responses from the Messaging API.
type HTTPStatusError struct {
	StatusCode int
	URL        string
	Body       string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("line: unexpected status %d from %s: %s", e.StatusCode, e.URL, e.Body)
}

func (e *HTTPStatusError) HTTPStatusCode() int {
	return e.StatusCode
}

// botInfoResponse is the minimal shape of GET /v2/bot/info.
type botInfoResponse struct {
	DisplayName string `json:"displayName"`
}

// profileResponse is the minimal shape shared by the profile endpoints.
type profileResponse struct {
	DisplayName string `json:"displayName"`
}

// replyRequest is the body of POST /v2/bot/message/reply.
type replyRequest struct {
	ReplyToken string         `json:"replyToken"`
	Messages   []replyMessage `json:"messages"`
}

type replyMessage struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Client talks to the LINE Messaging API with a channel access token.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	accessToken string
}

type Option func(*Client)

func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimSpace(baseURL)
	}
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// NewClient creates a Messaging API client with the given channel access token.
func NewClient(accessToken string, opts ...Option) (*Client, error) {
	if strings.TrimSpace(accessToken) == "" {
		return nil, errors.New("line: access token must not be empty")
	}
	c := &Client{
		baseURL:     "https://api.line.me",
		httpClient:  &http.Client{Timeout: 10 * time.Second},
		accessToken: accessToken,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BotDisplayName returns the bot's own display name, used for mention gating.
func (c *Client) BotDisplayName(ctx context.Context) (string, error) {
	var out botInfoResponse
	if err := c.getJSON(ctx, "/v2/bot/info", &out); err != nil {
		return "", err
	}
	if out.DisplayName == "" {
		return "", errors.New("line: bot info missing display name")
	}
	return out.DisplayName, nil
}

// Profile returns the display name of a user from a one-to-one chat.
func (c *Client) Profile(ctx context.Context, userID string) (string, error) {
	return c.displayName(ctx, "/v2/bot/profile/"+url.PathEscape(userID))
}

// GroupMemberProfile returns the display name of a group member.
func (c *Client) GroupMemberProfile(ctx context.Context, groupID, userID string) (string, error) {
	return c.displayName(ctx, "/v2/bot/group/"+url.PathEscape(groupID)+"/member/"+url.PathEscape(userID))
}

// RoomMemberProfile returns the display name of a room member.
func (c *Client) RoomMemberProfile(ctx context.Context, roomID, userID string) (string, error) {
	return c.displayName(ctx, "/v2/bot/room/"+url.PathEscape(roomID)+"/member/"+url.PathEscape(userID))
}

func (c *Client) displayName(ctx context.Context, path string) (string, error) {
	var out profileResponse
	if err := c.getJSON(ctx, path, &out); err != nil {
		return "", err
	}
	return out.DisplayName, nil
}

// ReplyText sends one text message against a reply token. The token is
// consumable exactly once; a failed call cannot be retried with the same token.
func (c *Client) ReplyText(ctx context.Context, replyToken, text string) error {
	body, err := json.Marshal(replyRequest{
		ReplyToken: replyToken,
		Messages:   []replyMessage{{Type: "text", Text: text}},
	})
	if err != nil {
		return fmt.Errorf("line: marshal reply: %w", err)
	}

	endpoint := c.endpoint("/v2/bot/message/reply")
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("line: create reply request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.accessToken)

	if _, err := c.do(req, endpoint); err != nil {
		return fmt.Errorf("line: reply failed: %w", err)
	}
	return nil
}

func (c *Client) endpoint(path string) string {
	return strings.TrimRight(c.baseURL, "/") + path
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	endpoint := c.endpoint(path)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("line: create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)

	raw, err := c.do(req, endpoint)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("line: decode response from %s: %w", endpoint, err)
	}
	return nil
}

func (c *Client) do(req *http.Request, endpoint string) ([]byte, error) {
	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("line: request %s: %w", endpoint, err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		buf, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return nil, &HTTPStatusError{
			StatusCode: res.StatusCode,
			URL:        endpoint,
			Body:       string(buf),
		}
	}

	buf, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("line: read response body: %w", err)
	}
	return buf, nil
}
