package publish

import (
	"context"
	"fmt"
	"mime"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Config holds the configuration for the S3-compatible video backend.
type S3Config struct {
	Bucket          string
	Region          string
	Endpoint        string // Optional: for custom S3-compatible endpoints
	AccessKeyID     string // Optional: AWS access key ID
	SecretAccessKey string // Optional: AWS secret access key
	KeyPrefix       string // Logical folder for uploaded derivatives
}

// S3 uploads video derivatives to an S3-compatible object store. It serves
// as the video backend when Cloudinary credentials are absent.
type S3 struct {
	client   *s3.Client
	bucket   string
	region   string
	endpoint string
	prefix   string
}

// NewS3 creates an S3 video publisher.
func NewS3(ctx context.Context, cfg S3Config) (*S3, error) {
	var configOpts []func(*config.LoadOptions) error
	configOpts = append(configOpts, config.WithRegion(cfg.Region))

	// Use static credentials if provided
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		configOpts = append(configOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, configOpts...)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	var clientOpts []func(*s3.Options)
	if cfg.Endpoint != "" {
		clientOpts = append(clientOpts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		})
	}

	client := s3.NewFromConfig(awsCfg, clientOpts...)

	return &S3{
		client:   client,
		bucket:   cfg.Bucket,
		region:   cfg.Region,
		endpoint: strings.TrimSuffix(cfg.Endpoint, "/"),
		prefix:   cfg.KeyPrefix,
	}, nil
}

// Publish uploads the file at localPath and returns its public URL.
func (s *S3) Publish(ctx context.Context, localPath string) (string, error) {
	f, err := os.Open(localPath) // #nosec G304 - path is generated by the pipeline
	if err != nil {
		return "", &BackendError{Backend: "s3", Message: "derivative file could not be read", Err: err}
	}
	defer func() { _ = f.Close() }()

	key := path.Join(s.prefix, filepath.Base(localPath))

	input := &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   f,
	}
	if ct := mime.TypeByExtension(filepath.Ext(localPath)); ct != "" {
		input.ContentType = aws.String(ct)
	}

	if _, err := s.client.PutObject(ctx, input); err != nil {
		return "", &BackendError{Backend: "s3", Message: fmt.Sprintf("upload failed: %v", err), Err: err}
	}

	return s.publicURL(key), nil
}

// publicURL formats the object's public URL, honoring a custom endpoint.
func (s *S3) publicURL(key string) string {
	if s.endpoint != "" {
		return fmt.Sprintf("%s/%s/%s", s.endpoint, s.bucket, key)
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, key)
}
