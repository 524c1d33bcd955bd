package predictor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"time"

	"go.uber.org/zap"

	"github.com/example/derma-scan/internal/capture"
	"github.com/example/derma-scan/internal/logging"
)

// UploadFieldName is the multipart form field the service reads the image
// from, and UploadFileName the filename carried on the part.
const (
	UploadFieldName = "file"
	UploadFileName  = "skin_image.jpg"
)

// HTTPClient posts acquired images to the prediction endpoint as a
// multipart upload and decodes the JSON response.
type HTTPClient struct {
	endpoint string
	http     *http.Client
	logger   *zap.Logger
}

// NewHTTPClient builds a client for the given endpoint. The timeout bounds
// the whole request so a hung service cannot leave a prediction in flight
// forever.
func NewHTTPClient(endpoint string, timeout time.Duration, logger *zap.Logger) *HTTPClient {
	return &HTTPClient{
		endpoint: endpoint,
		http:     &http.Client{Timeout: timeout},
		logger:   logger.Named("predictor_client"),
	}
}

// Predict implements Client.
func (c *HTTPClient) Predict(ctx context.Context, img *capture.Image) (*Prediction, error) {
	body, contentType, err := encodeUpload(img)
	if err != nil {
		return nil, logging.NewOperationError("predictor.encode_upload", "", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, body)
	if err != nil {
		return nil, logging.NewOperationError("predictor.build_request", "", err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.http.Do(req)
	if err != nil {
		wrapped := logging.NewOperationError("predictor.post", "", err)
		c.logger.Error("prediction request failed", zap.Error(wrapped), zap.String("endpoint", c.endpoint))
		return nil, wrapped
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		err := fmt.Errorf("prediction service returned status %d: %s", resp.StatusCode, bytes.TrimSpace(payload))
		wrapped := logging.NewOperationError("predictor.post", "", err)
		c.logger.Error("prediction request rejected", zap.Error(wrapped), zap.Int("status", resp.StatusCode))
		return nil, wrapped
	}

	var prediction Prediction
	if err := json.NewDecoder(resp.Body).Decode(&prediction); err != nil {
		wrapped := logging.NewOperationError("predictor.decode_response", "", err)
		c.logger.Error("prediction response unparsable", zap.Error(wrapped))
		return nil, wrapped
	}
	return &prediction, nil
}

func encodeUpload(img *capture.Image) (*bytes.Buffer, string, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, UploadFieldName, UploadFileName))
	header.Set("Content-Type", img.MIME())

	part, err := writer.CreatePart(header)
	if err != nil {
		return nil, "", fmt.Errorf("create multipart part: %w", err)
	}
	if _, err := part.Write(img.Bytes()); err != nil {
		return nil, "", fmt.Errorf("write image payload: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("finalize multipart body: %w", err)
	}
	return body, writer.FormDataContentType(), nil
}
