package agent

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const maxErrorBodyBytes = 512

type messageRequest struct {
	Text string `json:"text"`
}

// HTTPTransport posts prompts to {baseURL}/{agentID}/message using basic auth
type HTTPTransport struct {
	endpoint   string
	authHeader string
	httpClient *http.Client
}

// NewHTTPTransport creates a transport for one agent. credentials is the raw
// "user:password" pair, encoded once here.
func NewHTTPTransport(baseURL, agentID, credentials string, timeout time.Duration) *HTTPTransport {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &HTTPTransport{
		endpoint:   fmt.Sprintf("%s/%s/message", strings.TrimRight(baseURL, "/"), agentID),
		authHeader: "Basic " + base64.StdEncoding.EncodeToString([]byte(credentials)),
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (t *HTTPTransport) Send(ctx context.Context, prompt string) (*RawResponse, error) {
	jsonBody, err := json.Marshal(messageRequest{Text: prompt})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", t.authHeader)

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request to %s: %w", t.endpoint, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet := string(body)
		if len(snippet) > maxErrorBodyBytes {
			snippet = snippet[:maxErrorBodyBytes]
		}
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: snippet}
	}

	return &RawResponse{StatusCode: resp.StatusCode, Data: decodeBody(body)}, nil
}

// decodeBody returns the JSON value of body, or body as a plain string when it is not JSON
func decodeBody(body []byte) interface{} {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil
	}
	var data interface{}
	if err := json.Unmarshal(trimmed, &data); err != nil {
		return string(body)
	}
	return data
}
