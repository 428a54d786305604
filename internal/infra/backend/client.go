package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"bodhiment-quiz/internal/domain"
)

// APIError is an error reported by the generation backend in its JSON body.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Status != 0 && e.Status != http.StatusOK {
		return fmt.Sprintf("backend status %d: %s", e.Status, e.Message)
	}
	return e.Message
}

// Unwrap lets callers match backend failures with domain.ErrGenerationFailed.
func (e *APIError) Unwrap() error {
	return domain.ErrGenerationFailed
}

// Client talks JSON over HTTP to the generation backend.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient builds a client for baseURL. A zero timeout means no per-request limit.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

type generateRequest struct {
	InputText string `json:"input_text"`
}

// GenerateMCQs calls POST /generate-mcqs.
func (c *Client) GenerateMCQs(ctx context.Context, inputText string) ([]domain.RawMCQ, error) {
	var resp domain.MCQResponse
	if err := c.postJSON(ctx, "/generate-mcqs", generateRequest{InputText: inputText}, &resp); err != nil {
		return nil, err
	}
	if resp.Error != "" {
		return nil, &APIError{Status: http.StatusOK, Message: resp.Error}
	}
	if len(resp.MCQs) == 0 {
		return nil, domain.ErrNoQuestions
	}
	return resp.MCQs, nil
}

func (c *Client) postJSON(ctx context.Context, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrGenerationFailed, err)
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(res.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("%w: read response: %v", domain.ErrGenerationFailed, err)
	}

	if res.StatusCode < 200 || res.StatusCode > 299 {
		var errBody struct {
			Error string `json:"error"`
		}
		msg := http.StatusText(res.StatusCode)
		if json.Unmarshal(raw, &errBody) == nil && errBody.Error != "" {
			msg = errBody.Error
		}
		return &APIError{Status: res.StatusCode, Message: msg}
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: decode response: %v", domain.ErrGenerationFailed, err)
	}
	return nil
}
