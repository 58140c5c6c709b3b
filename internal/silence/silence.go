package silence

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Matcher is one silence label predicate.
// Params: label name/value pair with regex and equality flags.
// Returns: wire matcher for the silence API.
type Matcher struct {
	Name    string `json:"name"`
	Value   string `json:"value"`
	IsRegex bool   `json:"isRegex"`
	IsEqual *bool  `json:"isEqual,omitempty"`
}

// Request is one silence creation payload.
// Params: matchers, time window, author identity, free-text comment.
// Returns: wire request body.
type Request struct {
	Matchers  []Matcher `json:"matchers"`
	StartsAt  string    `json:"startsAt"`
	EndsAt    string    `json:"endsAt"`
	CreatedBy string    `json:"createdBy"`
	Comment   string    `json:"comment"`
}

// UpstreamError carries a non-2xx silence API response.
// Params: HTTP status and response body.
// Returns: operator-facing upstream failure with the body verbatim.
type UpstreamError struct {
	StatusCode int
	Body       string
}

// Error renders the upstream failure.
// Params: none.
// Returns: status plus upstream body text.
func (e *UpstreamError) Error() string {
	body := strings.TrimSpace(e.Body)
	if body == "" {
		return fmt.Sprintf("silence api returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("silence api returned status %d: %s", e.StatusCode, body)
}

// EqualMatcher builds one exact-match predicate.
// Params: label name and value.
// Returns: matcher for "label == value".
func EqualMatcher(name, value string) Matcher {
	return Matcher{Name: name, Value: value}
}

// NotEqualMatcher builds one inverted predicate.
// Params: label name and value.
// Returns: matcher for "label != value".
func NotEqualMatcher(name, value string) Matcher {
	isEqual := false
	return Matcher{Name: name, Value: value, IsEqual: &isEqual}
}

// Client submits silences to the external silence-management API.
// Params: base URL, author identity, and bounded HTTP client.
// Returns: fire-and-forget silence writer; no local silence state is kept.
type Client struct {
	baseURL   string
	createdBy string
	client    *http.Client
	now       func() time.Time
}

// New creates a silence API client.
// Params: API base URL, author identity, request timeout, and now function.
// Returns: initialized client.
func New(baseURL, createdBy string, timeout time.Duration, now func() time.Time) *Client {
	if now == nil {
		now = time.Now
	}
	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		createdBy: createdBy,
		client:    &http.Client{Timeout: timeout},
		now:       now,
	}
}

// Create submits one silence window for the given matchers.
// Params: context, matchers, silence duration, and comment.
// Returns: opaque silence identifier from the API, or transport/upstream error.
// Single attempt; failures are terminal for the command invocation.
func (c *Client) Create(ctx context.Context, matchers []Matcher, duration time.Duration, comment string) (string, error) {
	now := c.now().UTC()
	request := Request{
		Matchers:  matchers,
		StartsAt:  now.Format(time.RFC3339),
		EndsAt:    now.Add(duration).Format(time.RFC3339),
		CreatedBy: c.createdBy,
		Comment:   comment,
	}

	body, err := json.Marshal(request)
	if err != nil {
		return "", fmt.Errorf("encode silence request: %w", err)
	}

	httpRequest, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v2/silences", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build silence request: %w", err)
	}
	httpRequest.Header.Set("Content-Type", "application/json")

	response, err := c.client.Do(httpRequest)
	if err != nil {
		return "", fmt.Errorf("silence api send: %w", err)
	}
	defer response.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(response.Body, 64<<10))
	if err != nil {
		return "", fmt.Errorf("read silence response: %w", err)
	}
	if response.StatusCode < 200 || response.StatusCode >= 300 {
		return "", &UpstreamError{StatusCode: response.StatusCode, Body: string(payload)}
	}

	var decoded struct {
		SilenceID string `json:"silenceID"`
	}
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return "", fmt.Errorf("decode silence response: %w", err)
	}
	if decoded.SilenceID == "" {
		decoded.SilenceID = "?"
	}
	return decoded.SilenceID, nil
}
