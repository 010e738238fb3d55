// Package jobs calls remote job functions (serverless endpoints that take a
// JSON body and answer with a JSON result).
package jobs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// Invoker runs a named job. It performs no retries.
type Invoker interface {
	Invoke(ctx context.Context, jobName string, payload interface{}) (json.RawMessage, error)
}

// StatusError is returned when the endpoint answers outside 2xx.
type StatusError struct {
	JobName    string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("job %s failed with status %d: %s", e.JobName, e.StatusCode, e.Body)
}

type HTTPInvoker struct {
	BaseURL string
	Client  *http.Client
}

// Ensure HTTPInvoker implements Invoker
var _ Invoker = &HTTPInvoker{}

// NewHTTPInvoker builds an invoker that posts to <baseURL>/<jobName>. A nil
// token source sends unauthenticated requests. timeout is the deadline for a
// whole invocation; zero means none.
func NewHTTPInvoker(baseURL string, ts oauth2.TokenSource, timeout time.Duration) *HTTPInvoker {
	client := &http.Client{}
	if ts != nil {
		client = oauth2.NewClient(context.Background(), ts)
	}
	client.Timeout = timeout

	return &HTTPInvoker{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Client:  client,
	}
}

// TokenSourceConfig selects how the invoker authenticates.
type TokenSourceConfig struct {
	StaticToken  string
	TokenURL     string
	ClientID     string
	ClientSecret string
}

// NewTokenSource prefers client credentials, falls back to a static bearer
// token, and returns nil when neither is configured.
func NewTokenSource(cfg TokenSourceConfig) oauth2.TokenSource {
	if cfg.TokenURL != "" {
		cc := clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     cfg.TokenURL,
		}
		return cc.TokenSource(context.Background())
	}
	if cfg.StaticToken != "" {
		return oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.StaticToken, TokenType: "Bearer"})
	}
	return nil
}

func (h *HTTPInvoker) Invoke(ctx context.Context, jobName string, payload interface{}) (json.RawMessage, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal job payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.BaseURL+"/"+jobName, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("job %s request failed: %w", jobName, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read job %s response: %w", jobName, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{JobName: jobName, StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	if len(bytes.TrimSpace(respBody)) == 0 {
		return json.RawMessage("null"), nil
	}
	if !json.Valid(respBody) {
		return nil, fmt.Errorf("job %s returned invalid JSON", jobName)
	}
	return json.RawMessage(respBody), nil
}
