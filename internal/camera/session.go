// Package camera manages a scoped capture session against a video device.
// A session is opened, yields at most one still frame, and is closed; the
// underlying device is released on every exit path.
package camera

import (
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/example/derma-scan/internal/capture"
	"github.com/example/derma-scan/internal/logging"
)

// ErrSessionClosed is returned when capture is attempted after the session
// has been closed by a capture, a cancel, or an open failure.
var ErrSessionClosed = errors.New("camera session closed")

// Device is a single camera handle: it grabs JPEG-encoded frames and must
// be closed exactly once.
type Device interface {
	ReadFrame() ([]byte, error)
	Close() error
}

// Opener opens the camera identified by a device index.
type Opener func(device int) (Device, error)

// AcquireFunc receives the captured image. It is invoked at most once per
// session, before the session closes.
type AcquireFunc func(img *capture.Image)

// AlertFunc surfaces a user-visible failure message.
type AlertFunc func(msg string)

type sessionState int

const (
	stateActive sessionState = iota
	stateClosed
)

// Session is a live camera acquisition. It moves Active -> Closed and never
// back; reopening the camera means opening a fresh session.
type Session struct {
	mu        sync.Mutex
	state     sessionState
	device    Device
	onAcquire AcquireFunc
	alert     AlertFunc
	logger    *zap.Logger
	closeOnce sync.Once
}

// Open acquires the device and returns an active session. On failure the
// alert callback fires, nothing is left holding the device, and no session
// is returned: the open fails closed rather than silently.
func Open(deviceIndex int, opener Opener, onAcquire AcquireFunc, alert AlertFunc, logger *zap.Logger) (*Session, error) {
	if alert == nil {
		alert = func(string) {}
	}
	device, err := opener(deviceIndex)
	if err != nil {
		wrapped := logging.NewOperationError("camera.open", "", err)
		logger.Error("camera unavailable", zap.Error(wrapped), zap.Int("device", deviceIndex))
		alert("Unable to access camera. Please check permissions and that a camera is connected.")
		return nil, wrapped
	}
	return &Session{
		state:     stateActive,
		device:    device,
		onAcquire: onAcquire,
		alert:     alert,
		logger:    logger.Named("camera_session"),
	}, nil
}

// Capture snapshots one frame, hands it to the acquisition callback as a
// data-URI image, and closes the session. The device is released whether
// the capture succeeds or fails.
func (s *Session) Capture() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != stateActive {
		return ErrSessionClosed
	}

	frame, err := s.device.ReadFrame()
	if err != nil {
		s.teardown()
		wrapped := logging.NewOperationError("camera.capture", "", err)
		s.logger.Error("frame capture failed", zap.Error(wrapped))
		s.alert("Unable to capture a frame from the camera.")
		return wrapped
	}

	img, err := capture.FromBytes(frame)
	if err != nil {
		s.teardown()
		wrapped := logging.NewOperationError("camera.capture", "", fmt.Errorf("frame rejected: %w", err))
		s.logger.Error("captured frame is not a valid image", zap.Error(wrapped))
		s.alert("Unable to capture a frame from the camera.")
		return wrapped
	}

	if s.onAcquire != nil {
		s.onAcquire(img)
	}
	s.teardown()
	return nil
}

// Cancel closes the session without acquiring an image. Safe to call more
// than once and after Capture.
func (s *Session) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.teardown()
}

// Active reports whether the session can still capture.
func (s *Session) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == stateActive
}

// teardown is the single release path for the device. Callers hold s.mu.
func (s *Session) teardown() {
	s.closeOnce.Do(func() {
		s.state = stateClosed
		if err := s.device.Close(); err != nil {
			s.logger.Warn("device close failed", zap.Error(err))
		}
	})
}
