// Package server exposes the inference service over HTTP
package server

import (
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/Krishang91/capstone/internal/config"
	apperrors "github.com/Krishang91/capstone/internal/errors"
	"github.com/Krishang91/capstone/internal/service"
	"github.com/Krishang91/capstone/internal/trace"
)

// Server routes the wire contract onto the inference service.
type Server struct {
	svc       *service.Service
	maxUpload int64
}

// New creates a server for svc.
func New(svc *service.Service, cfg *config.Server) *Server {
	maxUpload := cfg.MaxUploadBytes
	if maxUpload <= 0 {
		maxUpload = 16 << 20
	}
	return &Server{svc: svc, maxUpload: maxUpload}
}

// Handler returns the HTTP handler with middleware applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /", s.handleRoot)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /info", s.handleInfo)
	mux.HandleFunc("POST /predict", s.handlePredict)
	mux.HandleFunc("POST /predict_batch", s.handlePredictBatch)

	return trace.Middleware(mux)
}

type errorBody struct {
	Code    apperrors.Code `json:"code"`
	Message string         `json:"message"`
}

type errorResponse struct {
	Error errorBody `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	code := apperrors.CodeOf(err)

	var ae *apperrors.AppError
	if errors.As(err, &ae) {
		status = ae.HTTPStatus()
	}

	trace.Logger(r.Context()).Warn("request failed",
		"path", r.URL.Path, "code", code, "status", status, "error", err)
	writeJSON(w, status, errorResponse{Error: errorBody{Code: code, Message: err.Error()}})
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	info := s.svc.Info()
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Deepfake Audio Detection API",
		"model":   info.ModelName + "-" + info.ModelVariant,
		"endpoints": map[string]string{
			"/predict":       "POST - upload a WAV file for prediction",
			"/predict_batch": "POST - upload multiple WAV files",
			"/health":        "GET - service health",
			"/info":          "GET - active model variant",
		},
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.svc.Health())
}

func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.svc.Info())
}

func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)
	if err := r.ParseMultipartForm(s.maxUpload); err != nil {
		writeError(w, r, apperrors.Wrap(err, apperrors.CodeInvalidAudio, "parse multipart form"))
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, r, apperrors.Wrap(err, apperrors.CodeInvalidAudio, `missing multipart field "file"`))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, r, apperrors.Wrap(err, apperrors.CodeInvalidAudio, "read upload"))
		return
	}

	pred, err := s.svc.Predict(r.Context(), header.Filename, data)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pred)
}

// batchError is the per-item wire shape for a failed batch entry.
type batchError struct {
	Filename string         `json:"filename"`
	Err      string         `json:"error"`
	Code     apperrors.Code `json:"code"`
}

func (s *Server) handlePredictBatch(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)
	if err := r.ParseMultipartForm(s.maxUpload); err != nil {
		writeError(w, r, apperrors.Wrap(err, apperrors.CodeInvalidAudio, "parse multipart form"))
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		writeError(w, r, apperrors.New(apperrors.CodeInvalidAudio, `no files in multipart field "files"`))
		return
	}

	items := make([]service.BatchItem, 0, len(headers))
	for _, h := range headers {
		data, err := readPart(h)
		if err != nil {
			// A part that cannot even be read becomes a per-item error,
			// consistent with decode failures: the batch goes on.
			items = append(items, service.BatchItem{Filename: h.Filename, Data: nil})
			continue
		}
		items = append(items, service.BatchItem{Filename: h.Filename, Data: data})
	}

	results := s.svc.PredictBatch(r.Context(), items)

	entries := make([]any, 0, len(results))
	for _, res := range results {
		if res.Prediction != nil {
			entries = append(entries, res.Prediction)
			continue
		}
		entries = append(entries, batchError{Filename: res.Filename, Err: res.Err, Code: res.Code})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"predictions": entries,
		"total":       len(results),
	})
}

func readPart(h *multipart.FileHeader) ([]byte, error) {
	f, err := h.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}
