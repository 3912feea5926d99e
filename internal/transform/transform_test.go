package transform

import (
	"context"
	"image"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFitWithin(t *testing.T) {
	tests := []struct {
		name         string
		w, h         int
		maxW, maxH   int
		wantW, wantH int
	}{
		{"wide landscape shrinks to width bound", 2000, 500, 800, 800, 800, 200},
		{"tall portrait shrinks to height bound", 500, 2000, 800, 800, 200, 800},
		{"square shrinks evenly", 1600, 1600, 800, 800, 800, 800},
		{"already inside box is untouched", 640, 480, 800, 800, 640, 480},
		{"exactly at bound is untouched", 800, 800, 800, 800, 800, 800},
		{"smaller than box is never enlarged", 100, 50, 800, 800, 100, 50},
		{"extreme ratio clamps to one pixel", 10000, 2, 800, 800, 800, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotW, gotH := fitWithin(tt.w, tt.h, tt.maxW, tt.maxH)
			assert.Equal(t, tt.wantW, gotW)
			assert.Equal(t, tt.wantH, gotH)
			assert.LessOrEqual(t, gotW, tt.maxW)
			assert.LessOrEqual(t, gotH, tt.maxH)
		})
	}
}

func TestVideo_BuildArgs(t *testing.T) {
	v := NewVideo(t.TempDir(), DefaultVideoSpec())

	args := v.buildArgs("in.mp4", "out.mp4")

	assert.Contains(t, args, "scale=1280:720:force_original_aspect_ratio=decrease,pad=1280:720:(ow-iw)/2:(oh-ih)/2:black")
	assert.Contains(t, args, "800k")
	assert.Contains(t, args, "libx264")
	assert.Equal(t, "out.mp4", args[len(args)-1])

	// frame rate follows the -r flag
	for i, a := range args {
		if a == "-r" {
			assert.Equal(t, "30", args[i+1])
		}
	}
}

func TestVideo_BuildArgs_NoLetterbox(t *testing.T) {
	spec := DefaultVideoSpec()
	spec.Letterbox = false
	v := NewVideo(t.TempDir(), spec)

	args := v.buildArgs("in.mp4", "out.mp4")

	assert.Contains(t, args, "scale=1280:720:force_original_aspect_ratio=decrease")
	for _, a := range args {
		assert.NotContains(t, a, "pad=")
	}
}

func TestImage_BuildArgs(t *testing.T) {
	img := NewImage(t.TempDir(), DefaultImageSpec())

	t.Run("adds scale filter when shrinking", func(t *testing.T) {
		args := img.buildArgs("in.jpg", "out.webp", 800, 200, 2000, 500)
		assert.Contains(t, args, "scale=800:200")
		assert.Contains(t, args, "libwebp")
		assert.Contains(t, args, "85")
	})

	t.Run("omits scale filter when input fits", func(t *testing.T) {
		args := img.buildArgs("in.jpg", "out.webp", 640, 480, 640, 480)
		for _, a := range args {
			assert.NotContains(t, a, "scale=")
		}
	})
}

func TestImage_Transform_UndecodableInput(t *testing.T) {
	dir := t.TempDir()
	raw := filepath.Join(dir, "not-an-image.jpg")
	require.NoError(t, os.WriteFile(raw, []byte("this is not image data"), 0600))

	img := NewImage(dir, DefaultImageSpec())

	_, err := img.Transform(context.Background(), raw)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUndecodableInput)

	// no derivative may be left behind
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestImage_Transform_ProbesDimensions(t *testing.T) {
	// The probe decodes the image before ffmpeg runs; a valid PNG makes it
	// past the probe even when ffmpeg itself is unavailable on the host.
	dir := t.TempDir()
	raw := filepath.Join(dir, "valid.png")
	require.NoError(t, imaging.Save(imaging.New(10, 10, image.White.C), raw))

	img := NewImage(dir, DefaultImageSpec(), WithImageFFmpegPath("/nonexistent/ffmpeg"))

	_, err := img.Transform(context.Background(), raw)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrUndecodableInput)
}

func TestVideo_Transform_Timeout(t *testing.T) {
	dir := t.TempDir()
	raw := filepath.Join(dir, "clip.mp4")
	require.NoError(t, os.WriteFile(raw, []byte("raw"), 0600))

	// An already-expired deadline fails before the encoder is spawned.
	v := NewVideo(dir, DefaultVideoSpec(), WithVideoTimeout(time.Nanosecond))
	_, err := v.Transform(context.Background(), raw)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestFFmpegError_Diagnostic(t *testing.T) {
	err := &FFmpegError{
		Args:   []string{"-i", "in.mp4"},
		Stderr: "ffmpeg version 6.0\nconfiguration: ...\nin.mp4: Invalid data found when processing input",
		Err:    assert.AnError,
	}

	assert.Equal(t, "in.mp4: Invalid data found when processing input", err.Diagnostic())
	assert.ErrorIs(t, err, assert.AnError)
}

func TestFFmpegError_Diagnostic_EmptyStderr(t *testing.T) {
	err := &FFmpegError{Err: assert.AnError}
	assert.Equal(t, assert.AnError.Error(), err.Diagnostic())
}
