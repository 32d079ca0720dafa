// Package client is the edge-side HTTP client for the inference service.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Krishang91/capstone/internal/config"
	apperrors "github.com/Krishang91/capstone/internal/errors"
	"github.com/Krishang91/capstone/internal/resilience"
)

// Prediction is the wire shape of a single verdict.
type Prediction struct {
	Filename   string  `json:"filename"`
	Prediction string  `json:"prediction"`
	Confidence float64 `json:"confidence"`
	Score      float64 `json:"score"`
	Transcript string  `json:"transcript,omitempty"`
}

type healthBody struct {
	Status      string `json:"status"`
	ModelLoaded bool   `json:"model_loaded"`
}

type errorBody struct {
	Error struct {
		Code    apperrors.Code `json:"code"`
		Message string         `json:"message"`
	} `json:"error"`
}

// Client talks to the inference service over HTTP.
type Client struct {
	baseURL string
	http    *http.Client
	breaker *resilience.Breaker
}

// New creates a client for the service at cfg.ServiceURL.
func New(cfg *config.Edge) *Client {
	tr := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          8,
		MaxIdleConnsPerHost:   4,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		ResponseHeaderTimeout: cfg.RequestTimeout,
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.ServiceURL, "/"),
		http: &http.Client{
			Transport: tr,
			Timeout:   cfg.RequestTimeout,
		},
		breaker: resilience.NewBreaker(resilience.EdgeConfig()),
	}
}

// Predict uploads a WAV recording and returns the service's verdict.
// Calls go through a circuit breaker so a dead service fails fast
// instead of burning the full request timeout on every button press.
func (c *Client) Predict(ctx context.Context, filename string, wav []byte) (*Prediction, error) {
	return resilience.ExecuteWithResult(c.breaker, func() (*Prediction, error) {
		return c.predict(ctx, filename, wav)
	})
}

func (c *Client) predict(ctx context.Context, filename string, wav []byte) (*Prediction, error) {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)

	fw, err := w.CreateFormFile("file", filename)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInternal, "create form file")
	}
	if _, err := fw.Write(wav); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInternal, "write audio part")
	}
	if err := w.Close(); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInternal, "close multipart")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/predict", &body)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInternal, "build request")
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, mapTransportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, decodeError(resp)
	}

	var pred Prediction
	if err := json.NewDecoder(resp.Body).Decode(&pred); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInternal, "decode prediction")
	}
	return &pred, nil
}

// Health probes the service. It returns MODEL_UNAVAILABLE while the
// service is up but still loading its model, so callers can keep
// waiting with the retryable-error machinery.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", http.NoBody)
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeInternal, "build request")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return mapTransportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return decodeError(resp)
	}

	var h healthBody
	if err := json.NewDecoder(resp.Body).Decode(&h); err != nil {
		return apperrors.Wrap(err, apperrors.CodeInternal, "decode health")
	}
	if !h.ModelLoaded {
		return apperrors.New(apperrors.CodeModelUnavailable, "service is up but the model is not loaded")
	}
	return nil
}

// mapTransportError classifies a failed round trip into the local codes.
func mapTransportError(err error) error {
	var ue *url.Error
	if errors.As(err, &ue) && ue.Timeout() {
		return apperrors.Wrap(err, apperrors.CodeTimeout, "request timed out")
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return apperrors.Wrap(err, apperrors.CodeTimeout, "request timed out")
	}
	return apperrors.Wrap(err, apperrors.CodeConnection, "service unreachable")
}

// decodeError turns a non-200 response into an AppError, preferring the
// code the service put in the body over the one implied by the status.
func decodeError(resp *http.Response) error {
	const maxErr = 4096
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErr))

	var eb errorBody
	if err := json.Unmarshal(raw, &eb); err == nil && eb.Error.Code != "" {
		return apperrors.New(eb.Error.Code, eb.Error.Message)
	}
	return apperrors.New(apperrors.FromStatus(resp.StatusCode),
		strings.TrimSpace(string(raw)))
}
