package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"mime/multipart"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/seami/media-ingest/internal/pipeline"
)

// Ingestor is the pipeline capability the handlers consume.
type Ingestor interface {
	Ingest(ctx context.Context, in pipeline.IngestInput) (*pipeline.IngestResult, error)
}

// Handlers contains the HTTP handlers for the API.
type Handlers struct {
	service              Ingestor
	validator            *validator.Validate
	logger               *slog.Logger
	cloudinaryConfigured bool
	maxUploadBytes       int64
}

// HandlerOption is a function that configures a Handlers instance.
type HandlerOption func(*Handlers)

// WithCloudinaryConfigured sets the flag reported by the health endpoint.
func WithCloudinaryConfigured(configured bool) HandlerOption {
	return func(h *Handlers) {
		h.cloudinaryConfigured = configured
	}
}

// WithMaxUploadBytes caps the accepted request body size.
func WithMaxUploadBytes(n int64) HandlerOption {
	return func(h *Handlers) {
		if n > 0 {
			h.maxUploadBytes = n
		}
	}
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(service Ingestor, logger *slog.Logger, opts ...HandlerOption) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handlers{
		service:        service,
		validator:      validator.New(),
		logger:         logger,
		maxUploadBytes: 200 << 20,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Health handles GET /health requests. It reports whether the video
// backend credentials are present and never touches the pipeline.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:     "ok",
		Cloudinary: BackendHealth{Configured: h.cloudinaryConfigured},
	})
}

// UploadVideo handles POST /upload requests with a multipart "video" field.
func (h *Handlers) UploadVideo(w http.ResponseWriter, r *http.Request) {
	file, header, ok := h.openUpload(w, r, "video")
	if !ok {
		return
	}
	defer func() { _ = file.Close() }()

	res, err := h.service.Ingest(r.Context(), pipeline.IngestInput{
		Kind:     pipeline.KindVideo,
		Filename: header.Filename,
		Data:     file,
	})
	if err != nil {
		h.writeIngestFailure(w, err)
		return
	}

	writeJSON(w, http.StatusOK, VideoUploadResponse{
		Success:  true,
		VideoURL: res.URL,
	})
}

// UploadImage handles POST /upload-image requests with a multipart
// "image" field.
func (h *Handlers) UploadImage(w http.ResponseWriter, r *http.Request) {
	file, header, ok := h.openUpload(w, r, "image")
	if !ok {
		return
	}
	defer func() { _ = file.Close() }()

	res, err := h.service.Ingest(r.Context(), pipeline.IngestInput{
		Kind:     pipeline.KindImage,
		Filename: header.Filename,
		Data:     file,
	})
	if err != nil {
		h.writeIngestFailure(w, err)
		return
	}

	writeJSON(w, http.StatusOK, ImageUploadResponse{
		Success:          true,
		ImageURL:         res.URL,
		OriginalFormat:   res.OriginalExt,
		CompressedFormat: res.DerivativeFormat,
	})
}

// openUpload extracts and validates the named multipart file field.
// On failure it writes the 400 response and returns ok=false.
func (h *Handlers) openUpload(w http.ResponseWriter, r *http.Request, field string) (multipart.File, *multipart.FileHeader, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)

	f, fh, err := r.FormFile(field)
	if err != nil {
		h.logger.Warn("missing or unreadable upload field",
			slog.String("field", field),
			slog.String("error", err.Error()),
		)
		writeFailure(w, http.StatusBadRequest, field+" file is required")
		return nil, nil, false
	}

	req := uploadRequest{Filename: fh.Filename, Size: fh.Size}
	if err := h.validator.Struct(req); err != nil {
		_ = f.Close()
		h.logger.Warn("upload validation failed",
			slog.String("field", field),
			slog.String("error", err.Error()),
		)
		writeFailure(w, http.StatusBadRequest, "uploaded file is missing a filename")
		return nil, nil, false
	}

	return f, fh, true
}

// writeIngestFailure maps a pipeline failure onto the uniform error payload.
// Validation failures are the caller's fault (400); everything else is a 500.
func (h *Handlers) writeIngestFailure(w http.ResponseWriter, err error) {
	var stageErr *pipeline.StageError
	if errors.As(err, &stageErr) {
		status := http.StatusInternalServerError
		if stageErr.Kind == pipeline.KindValidation {
			status = http.StatusBadRequest
		}
		writeFailure(w, status, stageErr.Message)
		return
	}

	h.logger.Error("unclassified ingest failure", slog.String("error", err.Error()))
	writeFailure(w, http.StatusInternalServerError, "internal server error")
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
	}
}

// writeFailure writes an error response in the standard format.
func writeFailure(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, FailureResponse{
		Success: false,
		Error:   message,
	})
}
