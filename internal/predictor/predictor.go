// Package predictor defines the prediction service contract used by the
// scanning client.
package predictor

import (
	"context"

	"github.com/example/derma-scan/internal/capture"
)

// Prediction is the structured classification returned by the service.
// Confidence is a percentage in [0, 100].
type Prediction struct {
	Prediction  string   `json:"prediction"`
	Confidence  float64  `json:"confidence"`
	Description string   `json:"description"`
	Precautions []string `json:"precautions"`
}

// Client submits an acquired image for classification.
type Client interface {
	Predict(ctx context.Context, img *capture.Image) (*Prediction, error)
}
