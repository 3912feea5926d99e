// Package bootstrap provides dependency initialization for the media
// ingestion service.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/seami/media-ingest/internal/config"
	"github.com/seami/media-ingest/internal/pipeline"
	"github.com/seami/media-ingest/internal/publish"
	"github.com/seami/media-ingest/internal/staging"
	"github.com/seami/media-ingest/internal/transform"
)

// Dependencies holds all initialized dependencies for the HTTP server.
type Dependencies struct {
	Pipeline *pipeline.Service

	// CloudinaryConfigured is surfaced by the health endpoint.
	CloudinaryConfigured bool
}

// NewDependencies creates and initializes all dependencies for the application.
func NewDependencies(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	store, err := staging.New(cfg.StagingDir, logger)
	if err != nil {
		return nil, fmt.Errorf("create staging store: %w", err)
	}

	videoTransform := transform.NewVideo(cfg.StagingDir, transform.DefaultVideoSpec(),
		transform.WithVideoFFmpegPath(cfg.FFmpegPath),
		transform.WithVideoTimeout(cfg.TransformTimeout),
	)
	imageTransform := transform.NewImage(cfg.StagingDir, transform.DefaultImageSpec(),
		transform.WithImageFFmpegPath(cfg.FFmpegPath),
	)

	videoPublisher, err := initVideoPublisher(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	imagePublisher, err := publish.NewImgbb(cfg.ImgbbAPIKey)
	if err != nil {
		return nil, fmt.Errorf("create imgbb publisher: %w", err)
	}

	svc := pipeline.NewService(store, videoTransform, imageTransform, videoPublisher, imagePublisher, logger)

	return &Dependencies{
		Pipeline:             svc,
		CloudinaryConfigured: cfg.CloudinaryEnabled(),
	}, nil
}

// initVideoPublisher selects the video backend based on configuration.
// Cloudinary wins when its full credential set is present; an S3 bucket is
// the fallback. With neither, requests fail at publish time instead of
// failing the boot.
func initVideoPublisher(ctx context.Context, cfg *config.Config, logger *slog.Logger) (publish.Publisher, error) {
	if cfg.CloudinaryEnabled() {
		cl, err := publish.NewCloudinary(cfg.CloudinaryName, cfg.CloudinaryKey, cfg.CloudinarySecret,
			publish.WithCloudinaryFolder(cfg.CloudinaryFolder),
		)
		if err != nil {
			return nil, fmt.Errorf("create Cloudinary publisher: %w", err)
		}
		logger.Info("Cloudinary video backend configured",
			slog.String("cloud_name", cfg.CloudinaryName),
			slog.String("folder", cfg.CloudinaryFolder),
		)
		return cl, nil
	}

	if cfg.S3Enabled() {
		s3Pub, err := publish.NewS3(ctx, publish.S3Config{
			Bucket:          cfg.S3Bucket,
			Region:          cfg.S3Region,
			Endpoint:        cfg.S3Endpoint,
			AccessKeyID:     cfg.AWSAccessKeyID,
			SecretAccessKey: cfg.AWSSecretAccessKey,
			KeyPrefix:       cfg.S3KeyPrefix,
		})
		if err != nil {
			return nil, fmt.Errorf("create S3 publisher: %w", err)
		}
		logger.Info("S3 video backend configured",
			slog.String("bucket", cfg.S3Bucket),
			slog.String("region", cfg.S3Region),
		)
		return s3Pub, nil
	}

	logger.Warn("no video backend configured, video uploads will fail at publish")
	return publish.Unconfigured{Backend: "cloudinary"}, nil
}
