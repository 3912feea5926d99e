package pipeline

import (
	"fmt"
	"path/filepath"
	"strings"
)

// ErrorKind classifies a stage failure for the response mapping.
type ErrorKind string

const (
	// KindValidation marks bad or missing input (HTTP 400).
	KindValidation ErrorKind = "validation"
	// KindTranscode marks an engine or codec failure (HTTP 500).
	KindTranscode ErrorKind = "transcode"
	// KindPublish marks a rejected or unreachable remote store (HTTP 500).
	KindPublish ErrorKind = "publish"
	// KindIO marks a local filesystem failure (HTTP 500).
	KindIO ErrorKind = "io"
)

// StageError is the uniform failure returned by the orchestrator. Message is
// safe to show to callers: it carries the engine or backend diagnostic with
// local filesystem paths redacted. The wrapped error keeps full detail for
// logs.
type StageError struct {
	// Stage is the job status at the time of failure.
	Stage Status
	// Kind classifies the failure.
	Kind ErrorKind
	// Message is the caller-facing diagnostic.
	Message string
	Err     error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s failed at %s: %s", e.Kind, e.Stage, e.Message)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// redactPaths replaces each known local path in msg with its base name so
// failure messages never leak the staging layout.
func redactPaths(msg string, paths ...string) string {
	for _, p := range paths {
		if p == "" {
			continue
		}
		msg = strings.ReplaceAll(msg, p, filepath.Base(p))
		if dir := filepath.Dir(p); dir != "." && dir != "/" {
			msg = strings.ReplaceAll(msg, dir+string(filepath.Separator), "")
		}
	}
	return msg
}
