package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMediaKind_IsValid(t *testing.T) {
	assert.True(t, KindVideo.IsValid())
	assert.True(t, KindImage.IsValid())
	assert.False(t, MediaKind("audio").IsValid())
	assert.False(t, MediaKind("").IsValid())
}

func TestNewJob(t *testing.T) {
	job := NewJob(KindVideo, ".mp4")

	assert.NotEmpty(t, job.ID)
	assert.Equal(t, KindVideo, job.Kind)
	assert.Equal(t, ".mp4", job.OriginalExt)
	assert.Equal(t, StatusReceived, job.Status)
	assert.False(t, job.IsTerminal())
}

func TestUploadJob_ForwardTransitions(t *testing.T) {
	job := NewJob(KindImage, ".png")

	require.NoError(t, job.TransitionTo(StatusTransforming))
	require.NoError(t, job.TransitionTo(StatusTransformed))
	require.NoError(t, job.TransitionTo(StatusPublishing))
	require.NoError(t, job.TransitionTo(StatusPublished))
	assert.True(t, job.IsTerminal())
}

func TestUploadJob_NoBackwardTransitions(t *testing.T) {
	job := NewJob(KindVideo, ".mp4")
	require.NoError(t, job.TransitionTo(StatusTransforming))

	assert.ErrorIs(t, job.TransitionTo(StatusReceived), ErrInvalidTransition)
	assert.Equal(t, StatusTransforming, job.Status)
}

func TestUploadJob_NoSkippedStages(t *testing.T) {
	job := NewJob(KindVideo, ".mp4")

	assert.ErrorIs(t, job.TransitionTo(StatusPublished), ErrInvalidTransition)
	assert.ErrorIs(t, job.TransitionTo(StatusTransformed), ErrInvalidTransition)
}

func TestUploadJob_FailFromAnyNonTerminalState(t *testing.T) {
	stages := []Status{StatusReceived, StatusTransforming, StatusTransformed, StatusPublishing}

	for _, stage := range stages {
		t.Run(string(stage), func(t *testing.T) {
			job := NewJob(KindVideo, ".mp4")
			job.Status = stage

			require.NoError(t, job.Fail())
			assert.Equal(t, StatusFailed, job.Status)
			assert.True(t, job.IsTerminal())
		})
	}
}

func TestUploadJob_TerminalStatesAreFinal(t *testing.T) {
	published := NewJob(KindVideo, ".mp4")
	published.Status = StatusPublished
	assert.ErrorIs(t, published.Fail(), ErrInvalidTransition)

	failed := NewJob(KindVideo, ".mp4")
	failed.Status = StatusFailed
	assert.ErrorIs(t, failed.TransitionTo(StatusTransforming), ErrInvalidTransition)
	assert.ErrorIs(t, failed.Fail(), ErrInvalidTransition)
}
