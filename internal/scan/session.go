// Package scan owns the prediction request lifecycle: which image is
// currently acquired, whether a request is in flight, and what outcome to
// present. The lifecycle is a tagged state, not a pile of booleans, so a
// loading session with a stale result cannot be represented.
package scan

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/example/derma-scan/internal/capture"
	"github.com/example/derma-scan/internal/logging"
	"github.com/example/derma-scan/internal/predictor"
)

// State is the request lifecycle position.
type State int

const (
	StateIdle State = iota
	StateLoading
	StateSucceeded
	StateFailed
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// ErrNoImage is returned by Predict when no image has been acquired. The
// CLI disables the action instead, but a programmatic caller gets an
// explicit precondition failure rather than a silent no-op.
var ErrNoImage = errors.New("no image acquired")

// ErrPredictionInFlight is returned when Predict is called while a request
// is already loading. Starting a second request is prevented, not raced.
var ErrPredictionInFlight = errors.New("prediction already in flight")

// ErrImageSuperseded is returned when the acquired image was replaced or
// cleared while a request was in flight. The stale outcome is discarded so
// it can never be presented against the newer image.
var ErrImageSuperseded = errors.New("image superseded during prediction")

// Session holds the acquired image, the prediction outcome, and the
// lifecycle state. All methods are safe for concurrent use.
type Session struct {
	mu         sync.Mutex
	state      State
	image      *capture.Image
	result     *predictor.Prediction
	userErr    string
	generation uint64

	client   predictor.Client
	endpoint string
	timeout  time.Duration
	logger   *zap.Logger
}

// Snapshot is a copy of the session for rendering.
type Snapshot struct {
	State   State
	Image   *capture.Image
	Result  *predictor.Prediction
	UserErr string
}

// NewSession wires a session to a prediction client. The endpoint is only
// used in user-facing error text; the client owns the actual target.
func NewSession(client predictor.Client, endpoint string, timeout time.Duration, logger *zap.Logger) *Session {
	return &Session{
		state:    StateIdle,
		client:   client,
		endpoint: endpoint,
		timeout:  timeout,
		logger:   logger.Named("scan_session"),
	}
}

// SetImage installs a newly acquired image. Any prior result or error is
// cleared: a fresh acquisition always starts a fresh lifecycle.
func (s *Session) SetImage(img *capture.Image) {
	if img == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.image = img
	s.result = nil
	s.userErr = ""
	s.state = StateIdle
	s.generation++
	s.logger.Info("image acquired", zap.String("mime", img.MIME()), zap.Int("bytes", len(img.Bytes())))
}

// Predict submits the current image. Exactly one of result and user error
// is set afterwards, and the state is a non-loading terminal value. If the
// image is replaced or cleared while the request is in flight, the outcome
// is dropped and ErrImageSuperseded returned instead.
func (s *Session) Predict(ctx context.Context) (*predictor.Prediction, error) {
	s.mu.Lock()
	if s.state == StateLoading {
		s.mu.Unlock()
		return nil, ErrPredictionInFlight
	}
	if s.image == nil {
		s.mu.Unlock()
		return nil, ErrNoImage
	}
	img := s.image
	gen := s.generation
	s.state = StateLoading
	s.result = nil
	s.userErr = ""
	s.mu.Unlock()

	reqCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	result, err := s.client.Predict(reqCtx, img)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generation != gen {
		s.logger.Info("discarding outcome for superseded image")
		return nil, ErrImageSuperseded
	}
	if err != nil {
		wrapped := logging.NewOperationError("scan.predict", "", err)
		s.logger.Error("prediction failed", zap.Error(wrapped))
		s.state = StateFailed
		s.userErr = fmt.Sprintf("Prediction failed. Check that the prediction service is reachable at %s.", s.endpoint)
		return nil, wrapped
	}

	s.state = StateSucceeded
	s.result = result
	s.logger.Info("prediction succeeded",
		zap.String("prediction", result.Prediction),
		zap.Float64("confidence", result.Confidence))
	return result, nil
}

// Clear resets the session to its empty idle state. Idempotent.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.image = nil
	s.result = nil
	s.userErr = ""
	s.state = StateIdle
	s.generation++
}

// Snapshot returns a copy of the current session for rendering.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		State:   s.state,
		Image:   s.image,
		Result:  s.result,
		UserErr: s.userErr,
	}
}
