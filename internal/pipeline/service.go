package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/seami/media-ingest/internal/publish"
	"github.com/seami/media-ingest/internal/staging"
	"github.com/seami/media-ingest/internal/transform"
)

// allowedImageExts is the explicit allow-list for the image endpoint.
// The video endpoint has no extension gate, matching upstream behavior.
var allowedImageExts = map[string]struct{}{
	".jpg":  {},
	".jpeg": {},
	".png":  {},
	".gif":  {},
	".bmp":  {},
	".tiff": {},
	".webp": {},
}

// AllowedImageExt reports whether ext (with or without a leading dot,
// any case) is an accepted image upload extension.
func AllowedImageExt(ext string) bool {
	ext = strings.ToLower(ext)
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	_, ok := allowedImageExts[ext]
	return ok
}

// IngestInput is one inbound upload.
type IngestInput struct {
	// Kind selects the transform and publish backend.
	Kind MediaKind
	// Filename is the client-supplied name; only its extension is used.
	Filename string
	// Data is the raw payload.
	Data io.Reader
}

// IngestResult is the successful outcome of a pipeline run.
type IngestResult struct {
	// URL is the public location of the published derivative.
	URL string
	// OriginalExt is the uploaded file's extension, with leading dot.
	OriginalExt string
	// DerivativeFormat is the derivative encoding (e.g. "mp4", "webp").
	DerivativeFormat string
}

// Service sequences Transform, Publish and Cleanup for one request at a
// time. Concurrent jobs share nothing beyond the staging directory, where
// generated names keep them from colliding.
type Service struct {
	staging        *staging.Store
	videoTransform transform.Transformer
	imageTransform transform.Transformer
	videoPublisher publish.Publisher
	imagePublisher publish.Publisher
	logger         *slog.Logger
}

// NewService creates a pipeline Service.
func NewService(
	store *staging.Store,
	videoTransform, imageTransform transform.Transformer,
	videoPublisher, imagePublisher publish.Publisher,
	logger *slog.Logger,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		staging:        store,
		videoTransform: videoTransform,
		imageTransform: imageTransform,
		videoPublisher: videoPublisher,
		imagePublisher: imagePublisher,
		logger:         logger,
	}
}

// Ingest runs the full pipeline for one upload: stage the raw bytes,
// validate, transform, publish, and release every staged file. Release is
// unconditional and detached from the request context, so staged files are
// reclaimed even when the caller disconnected mid-flight.
//
// On failure the returned error is always a *StageError.
func (s *Service) Ingest(ctx context.Context, in IngestInput) (*IngestResult, error) {
	job := NewJob(in.Kind, strings.ToLower(filepath.Ext(in.Filename)))
	start := time.Now()

	var staged []string
	defer func() {
		cleanupCtx := context.WithoutCancel(ctx)
		if err := s.staging.Release(cleanupCtx, staged...); err != nil {
			s.logger.Error("failed to release staged files",
				slog.String("job_id", job.ID),
				slog.String("error", err.Error()),
			)
		}
	}()

	if !in.Kind.IsValid() {
		return nil, s.fail(job, KindValidation,
			fmt.Sprintf("unknown media kind %q", in.Kind), nil)
	}

	rawPath, err := s.staging.Stage(ctx, in.Data, job.OriginalExt)
	if err != nil {
		return nil, s.fail(job, KindIO, "could not store the uploaded file", err)
	}
	job.RawPath = rawPath
	staged = append(staged, rawPath)

	// Extension gate applies to images only. The raw file is already
	// staged at this point and is released on the way out like any other
	// exit path.
	if in.Kind == KindImage && !AllowedImageExt(job.OriginalExt) {
		return nil, s.fail(job, KindValidation,
			fmt.Sprintf("unsupported image format %q", job.OriginalExt), nil)
	}

	if err := job.TransitionTo(StatusTransforming); err != nil {
		return nil, s.fail(job, KindIO, "internal pipeline error", err)
	}

	derivative, err := s.transformer(in.Kind).Transform(ctx, rawPath)
	if err != nil {
		return nil, s.fail(job, KindTranscode, transformDiagnostic(err, rawPath), err)
	}
	job.DerivativePath = derivative
	staged = append(staged, derivative)

	if err := job.TransitionTo(StatusTransformed); err != nil {
		return nil, s.fail(job, KindIO, "internal pipeline error", err)
	}
	if err := job.TransitionTo(StatusPublishing); err != nil {
		return nil, s.fail(job, KindIO, "internal pipeline error", err)
	}

	url, err := s.publisher(in.Kind).Publish(ctx, derivative)
	if err != nil {
		return nil, s.fail(job, KindPublish, publishDiagnostic(err, rawPath, derivative), err)
	}

	if err := job.TransitionTo(StatusPublished); err != nil {
		return nil, s.fail(job, KindIO, "internal pipeline error", err)
	}

	s.logger.Info("media ingested",
		slog.String("job_id", job.ID),
		slog.String("kind", string(in.Kind)),
		slog.String("url", url),
		slog.Duration("duration", time.Since(start)),
	)

	return &IngestResult{
		URL:              url,
		OriginalExt:      job.OriginalExt,
		DerivativeFormat: strings.TrimPrefix(filepath.Ext(derivative), "."),
	}, nil
}

// transformer selects the kind-appropriate transform.
func (s *Service) transformer(kind MediaKind) transform.Transformer {
	if kind == KindImage {
		return s.imageTransform
	}
	return s.videoTransform
}

// publisher selects the kind-appropriate backend. Selection is a pure
// function of the media kind: video always goes to the media store, image
// always goes to the image host.
func (s *Service) publisher(kind MediaKind) publish.Publisher {
	if kind == KindImage {
		return s.imagePublisher
	}
	return s.videoPublisher
}

// fail moves the job to FAILED, logs the full cause, and returns the
// caller-facing StageError.
func (s *Service) fail(job *UploadJob, kind ErrorKind, msg string, err error) *StageError {
	stage := job.Status
	if terr := job.Fail(); terr != nil {
		s.logger.Warn("job already terminal",
			slog.String("job_id", job.ID),
			slog.String("status", string(job.Status)),
		)
	}

	attrs := []any{
		slog.String("job_id", job.ID),
		slog.String("kind", string(kind)),
		slog.String("stage", string(stage)),
		slog.String("message", msg),
	}
	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))
	}
	s.logger.Error("ingest failed", attrs...)

	return &StageError{Stage: stage, Kind: kind, Message: msg, Err: err}
}

// transformDiagnostic builds a caller-facing message from a transform
// failure, preferring the engine's own stderr tail.
func transformDiagnostic(err error, paths ...string) string {
	var ffErr *transform.FFmpegError
	if errors.As(err, &ffErr) {
		return redactPaths(ffErr.Diagnostic(), paths...)
	}
	if errors.Is(err, transform.ErrUndecodableInput) {
		return "image input is not decodable"
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "transform did not complete within the allowed time"
	}
	return redactPaths(err.Error(), paths...)
}

// publishDiagnostic builds a caller-facing message from a publish failure.
func publishDiagnostic(err error, paths ...string) string {
	var backendErr *publish.BackendError
	if errors.As(err, &backendErr) {
		return redactPaths(backendErr.Message, paths...)
	}
	return redactPaths(err.Error(), paths...)
}
