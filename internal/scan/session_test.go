package scan

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/example/derma-scan/internal/capture"
	"github.com/example/derma-scan/internal/predictor"
)

type stubClient struct {
	mu      sync.Mutex
	calls   int
	result  *predictor.Prediction
	err     error
	release chan struct{}
}

func (s *stubClient) Predict(ctx context.Context, img *capture.Image) (*predictor.Prediction, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	if s.release != nil {
		select {
		case <-s.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

func (s *stubClient) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func testImage(t *testing.T) *capture.Image {
	t.Helper()
	img, err := capture.FromBytes(append([]byte{0xFF, 0xD8, 0xFF, 0xE0}, []byte("lesion")...))
	if err != nil {
		t.Fatalf("failed to build test image: %v", err)
	}
	return img
}

func newTestSession(client predictor.Client) *Session {
	return NewSession(client, "http://localhost:8000/predict", 5*time.Second, zap.NewNop())
}

func TestPredictWithoutImageIsPreconditionFailure(t *testing.T) {
	client := &stubClient{result: &predictor.Prediction{Prediction: "Eczema"}}
	session := newTestSession(client)

	_, err := session.Predict(context.Background())
	if !errors.Is(err, ErrNoImage) {
		t.Fatalf("expected ErrNoImage, got %v", err)
	}

	snap := session.Snapshot()
	if snap.State != StateIdle {
		t.Fatalf("expected no state transition, got %s", snap.State)
	}
	if client.callCount() != 0 {
		t.Fatalf("expected no network call, got %d", client.callCount())
	}
}

func TestPredictSuccessStoresResult(t *testing.T) {
	want := &predictor.Prediction{
		Prediction:  "Eczema",
		Confidence:  87,
		Description: "Inflamed, itchy patches.",
		Precautions: []string{"See a dermatologist", "Avoid allergens"},
	}
	client := &stubClient{result: want}
	session := newTestSession(client)
	session.SetImage(testImage(t))

	got, err := session.Predict(context.Background())
	if err != nil {
		t.Fatalf("expected success, got error: %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected result: %+v", got)
	}

	snap := session.Snapshot()
	if snap.State != StateSucceeded {
		t.Fatalf("expected succeeded, got %s", snap.State)
	}
	if !reflect.DeepEqual(snap.Result, want) {
		t.Fatalf("snapshot result mismatch: %+v", snap.Result)
	}
	if snap.UserErr != "" {
		t.Fatalf("expected no user error, got %q", snap.UserErr)
	}
}

func TestPredictFailureSetsGenericMessage(t *testing.T) {
	client := &stubClient{err: errors.New("status 500")}
	session := newTestSession(client)
	session.SetImage(testImage(t))

	if _, err := session.Predict(context.Background()); err == nil {
		t.Fatal("expected error")
	}

	snap := session.Snapshot()
	if snap.State != StateFailed {
		t.Fatalf("expected failed, got %s", snap.State)
	}
	if snap.Result != nil {
		t.Fatalf("expected no result, got %+v", snap.Result)
	}
	if snap.UserErr == "" {
		t.Fatal("expected a user-facing error message")
	}
	if want := "http://localhost:8000/predict"; !strings.Contains(snap.UserErr, want) {
		t.Fatalf("expected message to hint at %s, got %q", want, snap.UserErr)
	}
}

func TestPredictWhileLoadingIsPrevented(t *testing.T) {
	release := make(chan struct{})
	client := &stubClient{result: &predictor.Prediction{Prediction: "Eczema"}, release: release}
	session := newTestSession(client)
	session.SetImage(testImage(t))

	firstDone := make(chan error, 1)
	go func() {
		_, err := session.Predict(context.Background())
		firstDone <- err
	}()

	waitForState(t, session, StateLoading)

	if _, err := session.Predict(context.Background()); !errors.Is(err, ErrPredictionInFlight) {
		t.Fatalf("expected ErrPredictionInFlight, got %v", err)
	}

	close(release)
	if err := <-firstDone; err != nil {
		t.Fatalf("first prediction should succeed, got %v", err)
	}
	if client.callCount() != 1 {
		t.Fatalf("expected exactly one network call, got %d", client.callCount())
	}
}

func TestNewAcquisitionClearsResultAndError(t *testing.T) {
	client := &stubClient{err: errors.New("boom")}
	session := newTestSession(client)
	session.SetImage(testImage(t))
	_, _ = session.Predict(context.Background())

	if snap := session.Snapshot(); snap.UserErr == "" {
		t.Fatal("precondition: expected an error to be present")
	}

	session.SetImage(testImage(t))
	snap := session.Snapshot()
	if snap.State != StateIdle {
		t.Fatalf("expected idle after acquisition, got %s", snap.State)
	}
	if snap.Result != nil || snap.UserErr != "" {
		t.Fatalf("expected result and error cleared, got %+v / %q", snap.Result, snap.UserErr)
	}
	if snap.Image == nil {
		t.Fatal("expected image present")
	}
}

func TestClearIsIdempotent(t *testing.T) {
	client := &stubClient{result: &predictor.Prediction{Prediction: "Eczema", Confidence: 87}}
	session := newTestSession(client)
	session.SetImage(testImage(t))
	if _, err := session.Predict(context.Background()); err != nil {
		t.Fatalf("expected success, got error: %v", err)
	}

	session.Clear()
	first := session.Snapshot()
	session.Clear()
	second := session.Snapshot()

	for _, snap := range []Snapshot{first, second} {
		if snap.State != StateIdle || snap.Image != nil || snap.Result != nil || snap.UserErr != "" {
			t.Fatalf("expected empty idle session, got %+v", snap)
		}
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatal("clearing twice must equal clearing once")
	}
}

func TestNewAcquisitionDuringFlightDropsStaleResult(t *testing.T) {
	release := make(chan struct{})
	client := &stubClient{result: &predictor.Prediction{Prediction: "Eczema", Confidence: 87}, release: release}
	session := newTestSession(client)
	session.SetImage(testImage(t))

	done := make(chan error, 1)
	go func() {
		_, err := session.Predict(context.Background())
		done <- err
	}()

	waitForState(t, session, StateLoading)
	fresh := testImage(t)
	session.SetImage(fresh)

	close(release)
	if err := <-done; !errors.Is(err, ErrImageSuperseded) {
		t.Fatalf("expected ErrImageSuperseded, got %v", err)
	}

	snap := session.Snapshot()
	if snap.State != StateIdle {
		t.Fatalf("stale completion must not change state, got %s", snap.State)
	}
	if snap.Image != fresh {
		t.Fatal("expected the fresh image to remain acquired")
	}
	if snap.Result != nil || snap.UserErr != "" {
		t.Fatalf("stale outcome must not be installed, got %+v / %q", snap.Result, snap.UserErr)
	}
}

func TestClearDuringFlightDropsStaleFailure(t *testing.T) {
	release := make(chan struct{})
	client := &stubClient{err: errors.New("status 500"), release: release}
	session := newTestSession(client)
	session.SetImage(testImage(t))

	done := make(chan error, 1)
	go func() {
		_, err := session.Predict(context.Background())
		done <- err
	}()

	waitForState(t, session, StateLoading)
	session.Clear()

	close(release)
	if err := <-done; !errors.Is(err, ErrImageSuperseded) {
		t.Fatalf("expected ErrImageSuperseded, got %v", err)
	}

	snap := session.Snapshot()
	if snap.State != StateIdle || snap.Image != nil || snap.Result != nil || snap.UserErr != "" {
		t.Fatalf("expected empty idle session after clear, got %+v", snap)
	}
}

func TestPredictTimesOut(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	client := &stubClient{result: &predictor.Prediction{}, release: release}

	session := NewSession(client, "http://localhost:8000/predict", 50*time.Millisecond, zap.NewNop())
	session.SetImage(testImage(t))

	if _, err := session.Predict(context.Background()); err == nil {
		t.Fatal("expected timeout error")
	}
	if snap := session.Snapshot(); snap.State != StateFailed {
		t.Fatalf("expected failed after timeout, got %s", snap.State)
	}
}

func waitForState(t *testing.T, session *Session, want State) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if session.Snapshot().State == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("session did not reach state %s", want)
}
