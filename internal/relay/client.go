package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/autonome/autonome/internal/queue"
)

const defaultTimeout = 2 * time.Minute

var ErrEmptyAnswer = errors.New("AI service returned an empty answer")

// ServiceError is a non-2xx reply from an AI service
type ServiceError struct {
	StatusCode int
	Message    string
	Details    string
}

func (e *ServiceError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("AI service returned status %d: %s: %s", e.StatusCode, e.Message, e.Details)
	}
	return fmt.Sprintf("AI service returned status %d: %s", e.StatusCode, e.Message)
}

// Client calls the /discuss-crypto endpoint of an AI service
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Discuss posts a payload and returns the service's answer
func (c *Client) Discuss(ctx context.Context, payload queue.Payload) (*queue.Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/discuss-crypto", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call AI service: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read AI service response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		svcErr := &ServiceError{StatusCode: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		var errBody struct {
			Error   string `json:"error"`
			Details string `json:"details"`
		}
		if json.Unmarshal(data, &errBody) == nil && errBody.Error != "" {
			svcErr.Message = errBody.Error
			svcErr.Details = errBody.Details
		}
		return nil, svcErr
	}

	var answer queue.Response
	if err := json.Unmarshal(data, &answer); err != nil {
		return nil, fmt.Errorf("failed to decode AI service response: %w", err)
	}
	if strings.TrimSpace(answer.AIResponse.Text) == "" {
		return nil, ErrEmptyAnswer
	}
	return &answer, nil
}
