package transform

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// FFmpegError represents an error from running ffmpeg, including the stderr output.
type FFmpegError struct {
	Args   []string
	Stderr string
	Err    error
}

func (e *FFmpegError) Error() string {
	return fmt.Sprintf("ffmpeg error: %v\nargs: %v\nstderr: %s", e.Err, e.Args, e.Stderr)
}

func (e *FFmpegError) Unwrap() error {
	return e.Err
}

// Diagnostic returns the tail of the engine's stderr, suitable for a
// user-facing failure message. ffmpeg prints its actual complaint last.
func (e *FFmpegError) Diagnostic() string {
	lines := strings.Split(strings.TrimSpace(e.Stderr), "\n")
	if len(lines) == 0 || lines[len(lines)-1] == "" {
		return e.Err.Error()
	}
	return strings.TrimSpace(lines[len(lines)-1])
}

// runFFmpeg executes ffmpeg with the given arguments and returns an error
// containing stderr output if the command fails.
func runFFmpeg(ctx context.Context, ffmpegPath string, args []string) error {
	// #nosec G204 - ffmpegPath is set by the application, not user input
	cmd := exec.CommandContext(ctx, ffmpegPath, args...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err != nil {
		// Check if context was cancelled or timed out
		if ctx.Err() != nil {
			return fmt.Errorf("ffmpeg cancelled: %w", ctx.Err())
		}
		return &FFmpegError{
			Args:   args,
			Stderr: stderr.String(),
			Err:    err,
		}
	}

	return nil
}
