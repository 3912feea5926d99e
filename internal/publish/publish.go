// Package publish uploads derivative files to the external content stores.
// Two backends share one contract: Cloudinary (or an S3-compatible store)
// for video, imgbb for images. No backend retries; a single failed attempt
// is terminal for the request.
package publish

import (
	"context"
	"errors"
	"fmt"
)

// Publisher uploads a local derivative file and returns its public URL.
type Publisher interface {
	Publish(ctx context.Context, localPath string) (url string, err error)
}

// ErrNotConfigured is returned when a publish is attempted against a
// backend that has no credentials.
var ErrNotConfigured = errors.New("publish: backend is not configured")

// BackendError carries the backend's own diagnostic for a failed upload.
type BackendError struct {
	// Backend names the store that rejected the upload.
	Backend string
	// Message is the backend's reported failure, or a transport diagnostic.
	Message string
	Err     error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("publish to %s failed: %s", e.Backend, e.Message)
}

func (e *BackendError) Unwrap() error {
	return e.Err
}

// Unconfigured is a Publisher placeholder used when no credentials are
// present, so the service boots and fails per-request instead of at startup.
type Unconfigured struct {
	// Backend names the missing backend in failure messages.
	Backend string
}

// Publish always fails with ErrNotConfigured.
func (u Unconfigured) Publish(_ context.Context, _ string) (string, error) {
	return "", &BackendError{
		Backend: u.Backend,
		Message: "backend credentials are not configured",
		Err:     ErrNotConfigured,
	}
}
