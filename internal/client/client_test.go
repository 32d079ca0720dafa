package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Krishang91/capstone/internal/config"
	apperrors "github.com/Krishang91/capstone/internal/errors"
	"github.com/Krishang91/capstone/internal/resilience"
)

func newTestClient(t *testing.T, url string, timeout time.Duration) *Client {
	t.Helper()
	return New(&config.Edge{ServiceURL: url, RequestTimeout: timeout})
}

func TestPredictSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/predict" {
			t.Errorf("path = %s", r.URL.Path)
		}
		f, hdr, err := r.FormFile("file")
		if err != nil {
			t.Fatalf("form file: %v", err)
		}
		f.Close()
		json.NewEncoder(w).Encode(Prediction{
			Filename:   hdr.Filename,
			Prediction: "real",
			Confidence: 0.93,
			Score:      2.6,
			Transcript: "hello there",
		})
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, time.Second)
	pred, err := c.Predict(context.Background(), "clip.wav", []byte("fake wav bytes"))
	if err != nil {
		t.Fatalf("Predict() = %v", err)
	}
	if pred.Filename != "clip.wav" || pred.Prediction != "real" {
		t.Errorf("prediction = %+v", pred)
	}
	if pred.Transcript != "hello there" {
		t.Errorf("transcript = %q", pred.Transcript)
	}
}

func TestPredictServiceError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"error":{"code":"MODEL_UNAVAILABLE","message":"model is loading"}}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, time.Second)
	_, err := c.Predict(context.Background(), "clip.wav", []byte("x"))
	if apperrors.CodeOf(err) != apperrors.CodeModelUnavailable {
		t.Errorf("code = %v, want MODEL_UNAVAILABLE (err = %v)", apperrors.CodeOf(err), err)
	}
}

func TestPredictErrorWithoutBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "too many requests", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, time.Second)
	_, err := c.Predict(context.Background(), "clip.wav", []byte("x"))
	if apperrors.CodeOf(err) != apperrors.CodeServiceBusy {
		t.Errorf("code = %v, want SERVICE_BUSY", apperrors.CodeOf(err))
	}
}

func TestPredictConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // nothing listening anymore

	c := newTestClient(t, srv.URL, time.Second)
	_, err := c.Predict(context.Background(), "clip.wav", []byte("x"))
	if apperrors.CodeOf(err) != apperrors.CodeConnection {
		t.Errorf("code = %v, want CONNECTION_FAILED (err = %v)", apperrors.CodeOf(err), err)
	}
}

func TestPredictTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, 20*time.Millisecond)
	_, err := c.Predict(context.Background(), "clip.wav", []byte("x"))
	if apperrors.CodeOf(err) != apperrors.CodeTimeout {
		t.Errorf("code = %v, want TIMEOUT (err = %v)", apperrors.CodeOf(err), err)
	}
}

func TestPredictBreakerFailsFast(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	c := newTestClient(t, srv.URL, time.Second)
	for i := 0; i < resilience.EdgeThreshold; i++ {
		c.Predict(context.Background(), "clip.wav", []byte("x"))
	}

	_, err := c.Predict(context.Background(), "clip.wav", []byte("x"))
	if err != resilience.ErrOpen {
		t.Errorf("err = %v, want ErrOpen after %d failures", err, resilience.EdgeThreshold)
	}
}

func TestHealthLoaded(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(healthBody{Status: "ok", ModelLoaded: true})
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, time.Second)
	if err := c.Health(context.Background()); err != nil {
		t.Errorf("Health() = %v, want nil", err)
	}
}

func TestHealthDegraded(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(healthBody{Status: "degraded", ModelLoaded: false})
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, time.Second)
	err := c.Health(context.Background())
	if apperrors.CodeOf(err) != apperrors.CodeModelUnavailable {
		t.Errorf("code = %v, want MODEL_UNAVAILABLE", apperrors.CodeOf(err))
	}
	if !apperrors.IsRetryable(err) {
		t.Error("degraded health should be retryable")
	}
}
