// Package inference defines the raw classification contract the gateway
// depends on. The heavy model lives in a separate runner service; the
// gateway only sees labels and confidences.
package inference

import "context"

// Result is a raw classification: a label and a confidence in [0, 1].
type Result struct {
	Label      string
	Confidence float64
}

// Classifier exposes the subset of the model runner used by the gateway.
// Ping reports reachability only; it must not run the model.
type Classifier interface {
	Classify(ctx context.Context, requestID string, imageBytes []byte) (*Result, error)
	Ping(ctx context.Context) error
}
