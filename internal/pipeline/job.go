// Package pipeline orchestrates the transform-and-publish workflow for a
// single uploaded media file: stage the raw bytes, produce a derivative,
// publish it to the kind-appropriate backend, and release every staged file
// no matter which stage failed.
package pipeline

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// MediaKind selects the transform and publish backend for a job.
type MediaKind string

const (
	// KindVideo routes through the video transform and the media store.
	KindVideo MediaKind = "video"
	// KindImage routes through the image transform and the image host.
	KindImage MediaKind = "image"
)

// IsValid returns true if the media kind is known.
func (k MediaKind) IsValid() bool {
	return k == KindVideo || k == KindImage
}

// Status represents the current state of an UploadJob.
type Status string

const (
	// StatusReceived indicates the raw bytes have been fully received.
	StatusReceived Status = "RECEIVED"
	// StatusTransforming indicates the derivative is being produced.
	StatusTransforming Status = "TRANSFORMING"
	// StatusTransformed indicates the derivative exists on disk.
	StatusTransformed Status = "TRANSFORMED"
	// StatusPublishing indicates the derivative is being uploaded.
	StatusPublishing Status = "PUBLISHING"
	// StatusPublished indicates the remote URL has been obtained.
	StatusPublished Status = "PUBLISHED"
	// StatusFailed indicates a stage failed; the job is terminal.
	StatusFailed Status = "FAILED"
)

// ErrInvalidTransition is returned when an invalid state transition is attempted.
var ErrInvalidTransition = errors.New("invalid state transition")

// validTransitions defines the strictly forward job lifecycle. Every
// non-terminal state may fail; nothing leaves a terminal state.
var validTransitions = map[Status][]Status{
	StatusReceived:     {StatusTransforming, StatusFailed},
	StatusTransforming: {StatusTransformed, StatusFailed},
	StatusTransformed:  {StatusPublishing, StatusFailed},
	StatusPublishing:   {StatusPublished, StatusFailed},
	StatusPublished:    {},
	StatusFailed:       {},
}

// canTransition checks if a transition from one status to another is valid.
func canTransition(from, to Status) bool {
	allowed, ok := validTransitions[from]
	if !ok {
		return false
	}
	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}

// UploadJob tracks one inbound file through the pipeline. A job lives for
// exactly one request and is discarded after the response is sent.
type UploadJob struct {
	// ID is the unique identifier for this job, used in logs.
	ID string
	// Kind is the media kind of the upload.
	Kind MediaKind
	// OriginalExt is the lowercased extension of the uploaded filename,
	// including the leading dot. May be empty.
	OriginalExt string
	// RawPath is the staged location of the inbound bytes.
	RawPath string
	// DerivativePath is the transform output, set on transform success.
	DerivativePath string
	// Status is the current job state.
	Status Status
	// CreatedAt is when the job was created.
	CreatedAt time.Time
	// UpdatedAt is when the job last changed state.
	UpdatedAt time.Time
}

// NewJob creates an UploadJob in the RECEIVED state.
func NewJob(kind MediaKind, originalExt string) *UploadJob {
	now := time.Now()
	return &UploadJob{
		ID:          uuid.NewString(),
		Kind:        kind,
		OriginalExt: originalExt,
		Status:      StatusReceived,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// TransitionTo attempts to change the job status to the specified state.
// Returns ErrInvalidTransition if the transition is not allowed.
func (j *UploadJob) TransitionTo(status Status) error {
	if !canTransition(j.Status, status) {
		return ErrInvalidTransition
	}
	j.Status = status
	j.UpdatedAt = time.Now()
	return nil
}

// Fail transitions the job to FAILED state.
func (j *UploadJob) Fail() error {
	return j.TransitionTo(StatusFailed)
}

// IsTerminal returns true if the job is in a terminal state.
func (j *UploadJob) IsTerminal() bool {
	return j.Status == StatusPublished || j.Status == StatusFailed
}
