package predictor

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/example/derma-scan/internal/capture"
	"github.com/example/derma-scan/internal/logging"
)

func testImage(t *testing.T) *capture.Image {
	t.Helper()
	img, err := capture.FromBytes(append([]byte{0xFF, 0xD8, 0xFF, 0xE0}, []byte("lesion")...))
	if err != nil {
		t.Fatalf("failed to build test image: %v", err)
	}
	return img
}

func TestPredictSendsMultipartUpload(t *testing.T) {
	img := testImage(t)

	var gotField, gotFilename, gotPartType string
	var gotPayload []byte

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("unexpected method: %s", r.Method)
		}
		file, header, err := r.FormFile(UploadFieldName)
		if err != nil {
			t.Errorf("missing upload field: %v", err)
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		defer file.Close()

		gotField = UploadFieldName
		gotFilename = header.Filename
		gotPartType = header.Header.Get("Content-Type")
		payload, err := io.ReadAll(file)
		if err != nil {
			t.Errorf("failed to read payload: %v", err)
		}
		gotPayload = payload

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"prediction":"Eczema","confidence":87,"description":"Inflamed, itchy patches.","precautions":["See a dermatologist","Avoid allergens"]}`))
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, 5*time.Second, zap.NewNop())
	got, err := client.Predict(context.Background(), img)
	if err != nil {
		t.Fatalf("expected success, got error: %v", err)
	}

	want := &Prediction{
		Prediction:  "Eczema",
		Confidence:  87,
		Description: "Inflamed, itchy patches.",
		Precautions: []string{"See a dermatologist", "Avoid allergens"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected prediction: %+v", got)
	}

	if gotField != UploadFieldName {
		t.Fatalf("unexpected field name: %s", gotField)
	}
	if gotFilename != UploadFileName {
		t.Fatalf("unexpected filename: %s", gotFilename)
	}
	if gotPartType != "image/jpeg" {
		t.Fatalf("unexpected part content type: %s", gotPartType)
	}
	if !bytes.Equal(gotPayload, img.Bytes()) {
		t.Fatal("uploaded payload does not match image bytes")
	}
}

func TestPredictNonSuccessStatusIsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, 5*time.Second, zap.NewNop())
	_, err := client.Predict(context.Background(), testImage(t))
	if err == nil {
		t.Fatal("expected error for non-2xx response")
	}

	var opErr *logging.OperationError
	if !errors.As(err, &opErr) {
		t.Fatalf("expected OperationError, got %T", err)
	}
	if opErr.Operation != "predictor.post" {
		t.Fatalf("unexpected operation: %s", opErr.Operation)
	}
}

func TestPredictUnparsableBodyIsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>definitely not json</html>"))
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, 5*time.Second, zap.NewNop())
	_, err := client.Predict(context.Background(), testImage(t))
	if err == nil {
		t.Fatal("expected error for unparsable body")
	}

	var opErr *logging.OperationError
	if !errors.As(err, &opErr) {
		t.Fatalf("expected OperationError, got %T", err)
	}
	if opErr.Operation != "predictor.decode_response" {
		t.Fatalf("unexpected operation: %s", opErr.Operation)
	}
}

func TestPredictUnreachableServiceIsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // reject connections immediately

	client := NewHTTPClient(server.URL, time.Second, zap.NewNop())
	if _, err := client.Predict(context.Background(), testImage(t)); err == nil {
		t.Fatal("expected error for unreachable service")
	}
}

func TestPredictHonorsContextCancellation(t *testing.T) {
	blocked := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-blocked
	}))
	defer server.Close()
	defer close(blocked)

	client := NewHTTPClient(server.URL, time.Minute, zap.NewNop())
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if _, err := client.Predict(ctx, testImage(t)); err == nil {
		t.Fatal("expected error when context deadline passes")
	}
}
