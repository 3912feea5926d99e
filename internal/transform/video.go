package transform

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// Video transcodes raw uploads to the fixed H.264/MP4 target using ffmpeg.
type Video struct {
	ffmpegPath string
	outDir     string
	spec       VideoSpec
	// timeout bounds a single transcode so one request cannot pin the
	// encoder indefinitely. Zero disables the bound.
	timeout time.Duration
}

// VideoOption configures a Video transformer.
type VideoOption func(*Video)

// WithVideoFFmpegPath sets the ffmpeg binary path. Defaults to "ffmpeg".
func WithVideoFFmpegPath(path string) VideoOption {
	return func(v *Video) {
		if path != "" {
			v.ffmpegPath = path
		}
	}
}

// WithVideoTimeout sets the upper bound for a single transcode.
func WithVideoTimeout(d time.Duration) VideoOption {
	return func(v *Video) {
		v.timeout = d
	}
}

// NewVideo creates a video transformer writing derivatives into outDir.
func NewVideo(outDir string, spec VideoSpec, opts ...VideoOption) *Video {
	v := &Video{
		ffmpegPath: "ffmpeg",
		outDir:     outDir,
		spec:       spec,
		timeout:    5 * time.Minute,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Transform transcodes rawPath and returns the derivative path.
// The output is scaled to fit the target box with aspect ratio preserved,
// then padded to exactly the box. The raw file is left in place.
func (v *Video) Transform(ctx context.Context, rawPath string) (string, error) {
	if v.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, v.timeout)
		defer cancel()
	}

	dst := filepath.Join(v.outDir, "compressed_"+uuid.NewString()+".mp4")

	if err := runFFmpeg(ctx, v.ffmpegPath, v.buildArgs(rawPath, dst)); err != nil {
		_ = os.Remove(dst)
		return "", fmt.Errorf("transcode video: %w", err)
	}

	return dst, nil
}

// buildArgs assembles the ffmpeg invocation for the configured spec.
func (v *Video) buildArgs(src, dst string) []string {
	filter := fmt.Sprintf("scale=%d:%d:force_original_aspect_ratio=decrease",
		v.spec.Width, v.spec.Height)
	if v.spec.Letterbox {
		// pad centers the scaled frame on a black canvas of the exact box
		filter += fmt.Sprintf(",pad=%d:%d:(ow-iw)/2:(oh-ih)/2:black",
			v.spec.Width, v.spec.Height)
	}

	return []string{
		"-y",         // Overwrite output file without asking
		"-i", src, // Input file
		"-vf", filter, // Scale + letterbox filter
		"-r", fmt.Sprintf("%d", v.spec.FrameRate), // Output frame rate
		"-b:v", v.spec.Bitrate, // Target video bitrate
		"-c:v", "libx264", // Video codec
		"-preset", "fast", // Encoding speed preset
		"-pix_fmt", "yuv420p", // Pixel format for compatibility
		"-movflags", "+faststart", // Relocate moov atom for streaming
		dst,
	}
}
