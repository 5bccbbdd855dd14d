// Package slackapi is a minimal Slack Web API client covering the calls the
// bridge needs: posting, updating and deleting messages, fetching thread
// replies, auth.test, and opening a Socket Mode connection.
package slackapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

type Client struct {
	http     *http.Client
	baseURL  string
	botToken string
	appToken string
}

func New(httpClient *http.Client, baseURL, botToken, appToken string) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	baseURL = strings.TrimSpace(strings.TrimRight(baseURL, "/"))
	if baseURL == "" {
		baseURL = "https://slack.com/api"
	}
	return &Client{
		http:     httpClient,
		baseURL:  baseURL,
		botToken: strings.TrimSpace(botToken),
		appToken: strings.TrimSpace(appToken),
	}
}

type AuthTestResult struct {
	TeamID string
	UserID string
	BotID  string
	Team   string
	User   string
}

type authTestResponse struct {
	OK     bool   `json:"ok"`
	Error  string `json:"error,omitempty"`
	TeamID string `json:"team_id,omitempty"`
	UserID string `json:"user_id,omitempty"`
	BotID  string `json:"bot_id,omitempty"`
	Team   string `json:"team,omitempty"`
	User   string `json:"user,omitempty"`
}

func (c *Client) AuthTest(ctx context.Context) (AuthTestResult, error) {
	if c == nil {
		return AuthTestResult{}, fmt.Errorf("slack client is not initialized")
	}
	body, status, _, err := c.postAuthJSON(ctx, c.botToken, "/auth.test", nil)
	if err != nil {
		return AuthTestResult{}, err
	}
	if status < 200 || status >= 300 {
		return AuthTestResult{}, fmt.Errorf("slack auth.test http %d", status)
	}
	var out authTestResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return AuthTestResult{}, err
	}
	if !out.OK {
		return AuthTestResult{}, fmt.Errorf("slack auth.test failed: %s", errorCode(out.Error))
	}
	return AuthTestResult{
		TeamID: strings.TrimSpace(out.TeamID),
		UserID: strings.TrimSpace(out.UserID),
		BotID:  strings.TrimSpace(out.BotID),
		Team:   strings.TrimSpace(out.Team),
		User:   strings.TrimSpace(out.User),
	}, nil
}

type postMessageRequest struct {
	Channel  string `json:"channel"`
	Text     string `json:"text"`
	ThreadTS string `json:"thread_ts,omitempty"`
}

type postMessageResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
	TS    string `json:"ts,omitempty"`
}

// PostMessage sends text to a channel, threaded under threadTS when given,
// and returns the ts of the posted message. Rate-limited and 5xx responses
// are retried a bounded number of times.
func (c *Client) PostMessage(ctx context.Context, channelID, text, threadTS string) (string, error) {
	channelID = strings.TrimSpace(channelID)
	threadTS = strings.TrimSpace(threadTS)
	if channelID == "" {
		return "", fmt.Errorf("channel_id is required")
	}
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("text is required")
	}
	var ts string
	err := c.callWithRetry(ctx, func() (int, http.Header, error) {
		body, status, headers, err := c.postAuthJSON(ctx, c.botToken, "/chat.postMessage", postMessageRequest{
			Channel:  channelID,
			Text:     text,
			ThreadTS: threadTS,
		})
		if err != nil {
			return status, headers, err
		}
		var out postMessageResponse
		if err := decodeOKEnvelope(body, status, "chat.postMessage", &out, func() (bool, string) { return out.OK, out.Error }); err != nil {
			return status, headers, err
		}
		ts = strings.TrimSpace(out.TS)
		return status, headers, nil
	})
	if err != nil {
		return "", err
	}
	return ts, nil
}

type updateMessageRequest struct {
	Channel string `json:"channel"`
	TS      string `json:"ts"`
	Text    string `json:"text"`
}

type apiEnvelopeResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// UpdateMessage rewrites the text of a previously posted message.
func (c *Client) UpdateMessage(ctx context.Context, channelID, ts, text string) error {
	channelID = strings.TrimSpace(channelID)
	ts = strings.TrimSpace(ts)
	if channelID == "" {
		return fmt.Errorf("channel_id is required")
	}
	if ts == "" {
		return fmt.Errorf("ts is required")
	}
	return c.callWithRetry(ctx, func() (int, http.Header, error) {
		body, status, headers, err := c.postAuthJSON(ctx, c.botToken, "/chat.update", updateMessageRequest{
			Channel: channelID,
			TS:      ts,
			Text:    text,
		})
		if err != nil {
			return status, headers, err
		}
		var out apiEnvelopeResponse
		return status, headers, decodeOKEnvelope(body, status, "chat.update", &out, func() (bool, string) { return out.OK, out.Error })
	})
}

type deleteMessageRequest struct {
	Channel string `json:"channel"`
	TS      string `json:"ts"`
}

// DeleteMessage removes a previously posted message.
func (c *Client) DeleteMessage(ctx context.Context, channelID, ts string) error {
	channelID = strings.TrimSpace(channelID)
	ts = strings.TrimSpace(ts)
	if channelID == "" {
		return fmt.Errorf("channel_id is required")
	}
	if ts == "" {
		return fmt.Errorf("ts is required")
	}
	return c.callWithRetry(ctx, func() (int, http.Header, error) {
		body, status, headers, err := c.postAuthJSON(ctx, c.botToken, "/chat.delete", deleteMessageRequest{
			Channel: channelID,
			TS:      ts,
		})
		if err != nil {
			return status, headers, err
		}
		var out apiEnvelopeResponse
		return status, headers, decodeOKEnvelope(body, status, "chat.delete", &out, func() (bool, string) { return out.OK, out.Error })
	})
}

// ThreadMessage is one message of a conversation thread, oldest first.
type ThreadMessage struct {
	Type        string `json:"type,omitempty"`
	Subtype     string `json:"subtype,omitempty"`
	Text        string `json:"text,omitempty"`
	User        string `json:"user,omitempty"`
	BotID       string `json:"bot_id,omitempty"`
	TS          string `json:"ts,omitempty"`
	ThreadTS    string `json:"thread_ts,omitempty"`
	ClientMsgID string `json:"client_msg_id,omitempty"`
}

type conversationsRepliesResponse struct {
	OK               bool            `json:"ok"`
	Error            string          `json:"error,omitempty"`
	Messages         []ThreadMessage `json:"messages,omitempty"`
	HasMore          bool            `json:"has_more,omitempty"`
	ResponseMetadata struct {
		NextCursor string `json:"next_cursor,omitempty"`
	} `json:"response_metadata,omitempty"`
}

const repliesPageLimit = 200

// ConversationsReplies fetches every message of the thread rooted at
// threadTS, following cursor pagination until exhausted.
func (c *Client) ConversationsReplies(ctx context.Context, channelID, threadTS string) ([]ThreadMessage, error) {
	channelID = strings.TrimSpace(channelID)
	threadTS = strings.TrimSpace(threadTS)
	if channelID == "" {
		return nil, fmt.Errorf("channel_id is required")
	}
	if threadTS == "" {
		return nil, fmt.Errorf("thread_ts is required")
	}
	var messages []ThreadMessage
	cursor := ""
	for {
		params := url.Values{}
		params.Set("channel", channelID)
		params.Set("ts", threadTS)
		params.Set("limit", strconv.Itoa(repliesPageLimit))
		if cursor != "" {
			params.Set("cursor", cursor)
		}
		body, status, _, err := c.getAuth(ctx, c.botToken, "/conversations.replies", params)
		if err != nil {
			return nil, err
		}
		if status < 200 || status >= 300 {
			return nil, fmt.Errorf("slack conversations.replies http %d", status)
		}
		var out conversationsRepliesResponse
		if err := json.Unmarshal(body, &out); err != nil {
			return nil, err
		}
		if !out.OK {
			return nil, fmt.Errorf("slack conversations.replies failed: %s", errorCode(out.Error))
		}
		messages = append(messages, out.Messages...)
		cursor = strings.TrimSpace(out.ResponseMetadata.NextCursor)
		if cursor == "" {
			return messages, nil
		}
	}
}

type openConnectionResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
	URL   string `json:"url,omitempty"`
}

// OpenSocketURL requests a Socket Mode websocket URL using the app token.
func (c *Client) OpenSocketURL(ctx context.Context) (string, error) {
	if c == nil {
		return "", fmt.Errorf("slack client is not initialized")
	}
	body, status, _, err := c.postAuthJSON(ctx, c.appToken, "/apps.connections.open", nil)
	if err != nil {
		return "", err
	}
	if status < 200 || status >= 300 {
		return "", fmt.Errorf("slack apps.connections.open http %d", status)
	}
	var out openConnectionResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", err
	}
	if !out.OK {
		return "", fmt.Errorf("slack apps.connections.open failed: %s", errorCode(out.Error))
	}
	socketURL := strings.TrimSpace(out.URL)
	if socketURL == "" {
		return "", fmt.Errorf("slack apps.connections.open returned empty url")
	}
	return socketURL, nil
}

// ConnectSocket opens a Socket Mode websocket connection.
func (c *Client) ConnectSocket(ctx context.Context) (*websocket.Conn, error) {
	socketURL, err := c.OpenSocketURL(ctx)
	if err != nil {
		return nil, err
	}
	dialer := *websocket.DefaultDialer
	conn, _, err := dialer.DialContext(ctx, socketURL, nil)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

const maxAttempts = 3

func (c *Client) callWithRetry(ctx context.Context, call func() (int, http.Header, error)) error {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		status, headers, err := call()
		if err == nil {
			return nil
		}
		lastErr = err
		if attempt >= maxAttempts {
			break
		}
		wait, retryable := retryDelay(status, headers, attempt)
		if !retryable {
			break
		}
		if err := sleepWithContext(ctx, wait); err != nil {
			return err
		}
	}
	return lastErr
}

func retryDelay(status int, headers http.Header, attempt int) (time.Duration, bool) {
	switch {
	case status == http.StatusTooManyRequests:
		retryAfter := ""
		if headers != nil {
			retryAfter = strings.TrimSpace(headers.Get("Retry-After"))
		}
		if retryAfter == "" {
			return 1 * time.Second, true
		}
		secs, err := strconv.Atoi(retryAfter)
		if err != nil || secs <= 0 {
			return 1 * time.Second, true
		}
		return time.Duration(secs) * time.Second, true
	case status >= 500 && status <= 599:
		switch attempt {
		case 1:
			return 300 * time.Millisecond, true
		case 2:
			return 1 * time.Second, true
		default:
			return 2 * time.Second, true
		}
	default:
		return 0, false
	}
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func decodeOKEnvelope(body []byte, status int, method string, out any, check func() (bool, string)) error {
	if err := json.Unmarshal(body, out); err != nil {
		return err
	}
	if status < 200 || status >= 300 {
		return fmt.Errorf("slack %s http %d", method, status)
	}
	ok, code := check()
	if !ok {
		return fmt.Errorf("slack %s failed: %s", method, errorCode(code))
	}
	return nil
}

func errorCode(code string) string {
	code = strings.TrimSpace(code)
	if code == "" {
		return "unknown_error"
	}
	return code
}

func (c *Client) postAuthJSON(ctx context.Context, token, path string, payload any) ([]byte, int, http.Header, error) {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, 0, nil, err
		}
		body = bytes.NewReader(raw)
	}
	req, err := c.newAuthRequest(ctx, http.MethodPost, token, path, "", body)
	if err != nil {
		return nil, 0, nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req)
}

func (c *Client) getAuth(ctx context.Context, token, path string, params url.Values) ([]byte, int, http.Header, error) {
	query := ""
	if len(params) > 0 {
		query = params.Encode()
	}
	req, err := c.newAuthRequest(ctx, http.MethodGet, token, path, query, nil)
	if err != nil {
		return nil, 0, nil, err
	}
	return c.do(req)
}

func (c *Client) newAuthRequest(ctx context.Context, method, token, path, query string, body io.Reader) (*http.Request, error) {
	if c == nil || c.http == nil {
		return nil, fmt.Errorf("slack client is not initialized")
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, fmt.Errorf("slack token is required")
	}
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("slack api path is required")
	}
	target := c.baseURL + path
	if query != "" {
		target += "?" + query
	}
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	return req, nil
}

func (c *Client) do(req *http.Request) ([]byte, int, http.Header, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, nil, err
	}
	raw, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return nil, resp.StatusCode, resp.Header, readErr
	}
	return raw, resp.StatusCode, resp.Header, nil
}
