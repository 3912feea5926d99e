// Package transform produces standardized derivatives from raw media files.
// The video adapter transcodes to a fixed H.264/MP4 target box with
// letterboxing; the image adapter re-encodes to bounded WebP. Both shell out
// to ffmpeg and never delete their input: cleanup belongs to the caller.
package transform

import "context"

// Transformer converts a raw local file into a derivative local file.
// Implementations write exactly one new file and return its path.
type Transformer interface {
	Transform(ctx context.Context, rawPath string) (derivativePath string, err error)
}

// VideoSpec describes the fixed video derivative parameters.
// One instance is constructed per process and never mutated.
type VideoSpec struct {
	// Width and Height define the exact output box.
	Width  int
	Height int
	// FrameRate is the output frame rate.
	FrameRate int
	// Bitrate is the target video bitrate, in ffmpeg notation (e.g. "800k").
	Bitrate string
	// Letterbox pads the scaled frame to the exact box instead of distorting it.
	Letterbox bool
}

// DefaultVideoSpec returns the production video derivative parameters.
func DefaultVideoSpec() VideoSpec {
	return VideoSpec{
		Width:     1280,
		Height:    720,
		FrameRate: 30,
		Bitrate:   "800k",
		Letterbox: true,
	}
}

// ImageSpec describes the fixed image derivative parameters.
// One instance is constructed per process and never mutated.
type ImageSpec struct {
	// Format is the derivative encoding. Only "webp" is supported.
	Format string
	// Quality is the lossy encoder quality (1-100).
	Quality int
	// MaxWidth and MaxHeight bound the output; aspect ratio is preserved
	// and inputs already inside the box are never enlarged.
	MaxWidth  int
	MaxHeight int
}

// DefaultImageSpec returns the production image derivative parameters.
func DefaultImageSpec() ImageSpec {
	return ImageSpec{
		Format:    "webp",
		Quality:   85,
		MaxWidth:  800,
		MaxHeight: 800,
	}
}
