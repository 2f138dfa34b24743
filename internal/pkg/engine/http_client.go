package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/docmill/docmill/internal/pkg/env"
	"github.com/docmill/docmill/internal/pkg/processing"
)

// HTTPClient reaches the external document-transformation service over HTTP.
// The engine is a collaborator: this subsystem only admits, journals and
// stores; the actual conversion happens on the other side.
type HTTPClient struct {
	baseURL string
	client  *http.Client
}

func NewHTTPClient(baseURL string) *HTTPClient {
	return &HTTPClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 2 * time.Minute},
	}
}

// NewHTTPClientFromEnv builds a client for the ENGINE_URL endpoint.
func NewHTTPClientFromEnv() *HTTPClient {
	return NewHTTPClient(env.GetEnv("ENGINE_URL", "http://localhost:8100"))
}

type executeRequest struct {
	Operation string `json:"operation"`
	InputName string `json:"input_name"`
	InputSize int64  `json:"input_size"`
}

type executeResponse struct {
	OutputName  string `json:"output_name"`
	OutputSize  int64  `json:"output_size"`
	ContentType string `json:"content_type"`
	Error       string `json:"error,omitempty"`
}

// Execute submits the transformation and waits for its outcome.
func (c *HTTPClient) Execute(ctx context.Context, req processing.Request) (processing.Result, error) {
	body, err := json.Marshal(executeRequest{
		Operation: req.Operation,
		InputName: req.InputName,
		InputSize: req.InputSize,
	})
	if err != nil {
		return processing.Result{}, fmt.Errorf("marshaling engine request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/execute", bytes.NewReader(body))
	if err != nil {
		return processing.Result{}, fmt.Errorf("creating engine request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return processing.Result{}, fmt.Errorf("engine request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return processing.Result{}, fmt.Errorf("engine returned status %d: %s", resp.StatusCode, bytes.TrimSpace(data))
	}

	var out executeResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return processing.Result{}, fmt.Errorf("decoding engine response: %w", err)
	}
	if out.Error != "" {
		return processing.Result{}, fmt.Errorf("engine reported failure: %s", out.Error)
	}

	return processing.Result{
		OutputName:  out.OutputName,
		OutputSize:  out.OutputSize,
		ContentType: out.ContentType,
	}, nil
}
