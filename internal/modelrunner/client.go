// Package modelrunner is the HTTP adapter for the model runner service
// that executes the skin-condition classifier.
package modelrunner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/example/derma-scan/internal/inference"
	"github.com/example/derma-scan/internal/logging"
)

// Client posts raw image bytes to the runner and decodes its verdict.
type Client struct {
	endpoint string
	http     *http.Client
	logger   *zap.Logger
}

type runnerResponse struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

// NewClient returns a ready-to-use classifier backed by the runner at
// endpoint.
func NewClient(endpoint string, timeout time.Duration, logger *zap.Logger) *Client {
	return &Client{
		endpoint: endpoint,
		http:     &http.Client{Timeout: timeout},
		logger:   logger.Named("modelrunner_client"),
	}
}

// Ping reports whether the runner answers HTTP at all. Any response,
// including an error status, counts as reachable; only transport failures
// do not.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint, nil)
	if err != nil {
		return logging.NewOperationError("modelrunner.ping", "", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return logging.NewOperationError("modelrunner.ping", "", err)
	}
	resp.Body.Close()
	return nil
}

// Classify implements inference.Classifier.
func (c *Client) Classify(ctx context.Context, requestID string, imageBytes []byte) (*inference.Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(imageBytes))
	if err != nil {
		return nil, logging.NewOperationError("modelrunner.build_request", requestID, err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := c.http.Do(req)
	if err != nil {
		wrapped := logging.NewOperationError("modelrunner.classify", requestID, err)
		c.logger.Error("model runner call failed", zap.Error(wrapped), zap.String("endpoint", c.endpoint))
		return nil, wrapped
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		err := fmt.Errorf("model runner returned status %d: %s", resp.StatusCode, bytes.TrimSpace(payload))
		wrapped := logging.NewOperationError("modelrunner.classify", requestID, err)
		c.logger.Error("model runner rejected request", zap.Error(wrapped), zap.Int("status", resp.StatusCode))
		return nil, wrapped
	}

	var verdict runnerResponse
	if err := json.NewDecoder(resp.Body).Decode(&verdict); err != nil {
		wrapped := logging.NewOperationError("modelrunner.decode_response", requestID, err)
		c.logger.Error("model runner response unparsable", zap.Error(wrapped))
		return nil, wrapped
	}
	if verdict.Label == "" {
		return nil, logging.NewOperationError("modelrunner.decode_response", requestID, fmt.Errorf("empty label in runner response"))
	}

	return &inference.Result{Label: verdict.Label, Confidence: verdict.Confidence}, nil
}
