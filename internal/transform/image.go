package transform

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"

	// Register decoders for the bmp, tiff and webp inputs the standard
	// library cannot decode. The allow-list admits all three.
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// ErrUndecodableInput is returned when the raw file is not a decodable image.
var ErrUndecodableInput = errors.New("image input is not decodable")

// Image re-encodes raw uploads to bounded WebP derivatives.
// The input is decoded first to reject undecodable payloads before any
// encoder process is spawned; the encode itself goes through ffmpeg's
// libwebp since no pure-Go webp encoder is available.
type Image struct {
	ffmpegPath string
	outDir     string
	spec       ImageSpec
}

// ImageOption configures an Image transformer.
type ImageOption func(*Image)

// WithImageFFmpegPath sets the ffmpeg binary path. Defaults to "ffmpeg".
func WithImageFFmpegPath(path string) ImageOption {
	return func(i *Image) {
		if path != "" {
			i.ffmpegPath = path
		}
	}
}

// NewImage creates an image transformer writing derivatives into outDir.
func NewImage(outDir string, spec ImageSpec, opts ...ImageOption) *Image {
	img := &Image{
		ffmpegPath: "ffmpeg",
		outDir:     outDir,
		spec:       spec,
	}
	for _, opt := range opts {
		opt(img)
	}
	return img
}

// Transform re-encodes rawPath and returns the derivative path.
// The output fits within the configured bounding box with aspect ratio
// preserved; inputs already inside the box are never enlarged.
func (i *Image) Transform(ctx context.Context, rawPath string) (string, error) {
	src, err := imaging.Open(rawPath)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUndecodableInput, err)
	}

	bounds := src.Bounds()
	w, h := fitWithin(bounds.Dx(), bounds.Dy(), i.spec.MaxWidth, i.spec.MaxHeight)

	dst := filepath.Join(i.outDir, "compressed_"+uuid.NewString()+"."+i.spec.Format)

	if err := runFFmpeg(ctx, i.ffmpegPath, i.buildArgs(rawPath, dst, w, h, bounds.Dx(), bounds.Dy())); err != nil {
		_ = os.Remove(dst)
		return "", fmt.Errorf("compress image: %w", err)
	}

	return dst, nil
}

// buildArgs assembles the ffmpeg invocation. The target dimensions are
// precomputed so the scale filter is only applied when shrinking.
func (i *Image) buildArgs(src, dst string, w, h, srcW, srcH int) []string {
	args := []string{
		"-y",
		"-i", src,
	}
	if w != srcW || h != srcH {
		args = append(args, "-vf", fmt.Sprintf("scale=%d:%d", w, h))
	}
	args = append(args,
		"-c:v", "libwebp",
		"-quality", fmt.Sprintf("%d", i.spec.Quality),
		"-frames:v", "1",
		dst,
	)
	return args
}

// fitWithin scales (w, h) down so both dimensions fit in (maxW, maxH),
// preserving aspect ratio. Dimensions already inside the box are unchanged.
func fitWithin(w, h, maxW, maxH int) (int, int) {
	if w <= maxW && h <= maxH {
		return w, h
	}

	scaleW := float64(maxW) / float64(w)
	scaleH := float64(maxH) / float64(h)
	scale := scaleW
	if scaleH < scale {
		scale = scaleH
	}

	outW := int(float64(w) * scale)
	outH := int(float64(h) * scale)
	if outW < 1 {
		outW = 1
	}
	if outH < 1 {
		outH = 1
	}
	return outW, outH
}
