package port

import (
	"context"

	"github.com/ependal/vidgate/internal/domain"
)

// Transcoder wraps the external codec tool. Long-running invocations
// honor ctx cancellation; implementations additionally terminate the
// tool when the output directory disappears mid-run and resolve that
// case as a nil-error no-op, since it signals concurrent deletion of
// the video rather than a processing failure.
type Transcoder interface {
	Probe(ctx context.Context, inputPath string) (*domain.ProbeResult, error)

	// Transcode produces the adaptive-bitrate rendition set plus the
	// top-level manifest in outputDir, keyed by id. It is idempotent:
	// when the manifest already exists the call returns immediately.
	Transcode(ctx context.Context, inputPath, outputDir, id string, hasAudio bool) error

	// StaticThumb extracts a single compressed frame from the video.
	StaticThumb(ctx context.Context, inputPath, outputPath string) error

	// AnimatedPreview produces a short looping low-fps preview.
	AnimatedPreview(ctx context.Context, inputPath, outputPath string) error

	// ConvertImage re-encodes a caller-supplied raster image into the
	// thumbnail format.
	ConvertImage(ctx context.Context, inputPath, outputPath string) error
}
