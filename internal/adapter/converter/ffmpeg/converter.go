// Package ffmpeg wraps the external ffmpeg/ffprobe tools as the codec
// invoker. Long invocations watch their output directory and terminate
// the subprocess when it disappears, which is the system's concurrent
// deletion signal; that termination resolves as a nil-error no-op.
package ffmpeg

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/ependal/vidgate/internal/adapter/storage/assets"
	"github.com/ependal/vidgate/internal/domain"
	"github.com/ependal/vidgate/internal/infrastructure/logger"
	"github.com/ependal/vidgate/internal/port"
)

var (
	ErrEmptyPath   = errors.New("empty path")
	ErrInvalidPath = errors.New("invalid path")
)

// errOutputGone cancels a running invocation when the output directory
// has been deleted out from under it.
var errOutputGone = errors.New("output directory deleted")

// watchInterval is how often a running invocation polls its output
// directory for the deletion signal.
const watchInterval = 500 * time.Millisecond

// rendition is one rung of the fixed adaptive-bitrate ladder.
type rendition struct {
	Name    string
	Height  int
	Bitrate string
	MaxRate string
	BufSize string
}

var ladder = []rendition{
	{Name: "1080p", Height: 1080, Bitrate: "5000k", MaxRate: "5350k", BufSize: "7500k"},
	{Name: "720p", Height: 720, Bitrate: "2800k", MaxRate: "2996k", BufSize: "4200k"},
	{Name: "480p", Height: 480, Bitrate: "1400k", MaxRate: "1498k", BufSize: "2100k"},
	{Name: "360p", Height: 360, Bitrate: "800k", MaxRate: "856k", BufSize: "1200k"},
}

const (
	segmentSeconds   = 4
	keyframeInterval = 48
	audioBitrate     = "128k"

	staticThumbOffset = "00:00:04"
	previewOffset     = "00:00:01"
	previewSeconds    = "3"
	previewFilter     = "fps=10,scale=320:-2"
)

type Converter struct {
	log logger.Logger

	// OnProgress, when set, receives transcode progress as a fraction
	// of the input duration in [0,1].
	OnProgress func(id string, fraction float64)
}

func NewConverter(log logger.Logger) *Converter {
	return &Converter{log: log}
}

func validatePath(path string) error {
	if path == "" {
		return ErrEmptyPath
	}
	if strings.ContainsRune(path, '\x00') {
		return ErrInvalidPath
	}
	return nil
}

func (c *Converter) Probe(ctx context.Context, inputPath string) (*domain.ProbeResult, error) {
	if err := validatePath(inputPath); err != nil {
		return nil, err
	}

	cmd := exec.CommandContext(ctx, "ffprobe", probeArgs(inputPath)...)
	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("ffprobe: %w", err)
	}

	var result domain.ProbeResult
	if err := json.Unmarshal(output, &result); err != nil {
		return nil, fmt.Errorf("parse ffprobe output: %w", err)
	}
	if result.VideoStream() == nil {
		return nil, errors.New("no video stream found")
	}
	return &result, nil
}

func (c *Converter) Transcode(ctx context.Context, inputPath, outputDir, id string, hasAudio bool) error {
	if err := validatePath(inputPath); err != nil {
		return err
	}

	// Idempotent re-entry: a completed run leaves the manifest behind.
	manifestPath := filepath.Join(outputDir, assets.ManifestName(id))
	if _, err := os.Stat(manifestPath); err == nil {
		c.log.WithField("video_id", id).Info("manifest already present, skipping transcode")
		return nil
	}

	args := transcodeArgs(inputPath, outputDir, id, hasAudio)
	return c.runWatched(ctx, outputDir, id, args, true)
}

func (c *Converter) StaticThumb(ctx context.Context, inputPath, outputPath string) error {
	if err := validatePath(inputPath); err != nil {
		return err
	}
	return c.runWatched(ctx, filepath.Dir(outputPath), "", staticThumbArgs(inputPath, outputPath), false)
}

func (c *Converter) AnimatedPreview(ctx context.Context, inputPath, outputPath string) error {
	if err := validatePath(inputPath); err != nil {
		return err
	}
	return c.runWatched(ctx, filepath.Dir(outputPath), "", animatedPreviewArgs(inputPath, outputPath), false)
}

func (c *Converter) ConvertImage(ctx context.Context, inputPath, outputPath string) error {
	if err := validatePath(inputPath); err != nil {
		return err
	}
	return c.runWatched(ctx, filepath.Dir(outputPath), "", convertImageArgs(inputPath, outputPath), false)
}

// runWatched executes ffmpeg, cancelling it when watchDir disappears.
// Cancellation by deletion is not an error; the caller's own pipeline
// step will observe the missing directory and stop.
func (c *Converter) runWatched(ctx context.Context, watchDir, id string, args []string, reportProgress bool) error {
	runCtx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	watchDone := make(chan struct{})
	defer close(watchDone)
	go func() {
		ticker := time.NewTicker(watchInterval)
		defer ticker.Stop()
		for {
			select {
			case <-watchDone:
				return
			case <-runCtx.Done():
				return
			case <-ticker.C:
				if _, err := os.Stat(watchDir); os.IsNotExist(err) {
					cancel(errOutputGone)
					return
				}
			}
		}
	}()

	cmd := exec.CommandContext(runCtx, "ffmpeg", args...)
	var stdout io.ReadCloser
	if reportProgress && c.OnProgress != nil {
		var err error
		stdout, err = cmd.StdoutPipe()
		if err != nil {
			return fmt.Errorf("ffmpeg stdout: %w", err)
		}
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start ffmpeg: %w", err)
	}
	if stdout != nil {
		go c.scanProgress(id, stdout)
	}

	err := cmd.Wait()
	if errors.Is(context.Cause(runCtx), errOutputGone) {
		c.log.WithField("dir", watchDir).Info("output directory removed, invocation cancelled")
		return nil
	}
	if err != nil {
		return fmt.Errorf("ffmpeg: %w", err)
	}
	return nil
}

// scanProgress parses `-progress pipe:1` key=value output. Duration
// arrives first as a comment-free out_time_us counter, so progress is
// reported relative to whatever total the caller tracks; here we only
// surface the raw seconds processed.
func (c *Converter) scanProgress(id string, r io.Reader) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "out_time_us=") {
			continue
		}
		us, err := strconv.ParseInt(strings.TrimPrefix(line, "out_time_us="), 10, 64)
		if err != nil {
			continue
		}
		c.OnProgress(id, float64(us)/1e6)
	}
}

func probeArgs(inputPath string) []string {
	return []string{
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		inputPath,
	}
}

// transcodeArgs builds the single-invocation adaptive-bitrate command:
// the input is split and scaled once per ladder rung, each rung gets
// its own rate-controlled H.264 stream, and the HLS muxer writes one
// variant playlist per rung plus the top-level manifest. Audio maps
// are omitted entirely for silent inputs.
func transcodeArgs(inputPath, outputDir, id string, hasAudio bool) []string {
	args := []string{
		"-i", inputPath,
		"-filter_complex", splitFilter(),
	}

	for i, r := range ladder {
		args = append(args,
			"-map", fmt.Sprintf("[v%dout]", i+1),
			fmt.Sprintf("-c:v:%d", i), "libx264",
			fmt.Sprintf("-b:v:%d", i), r.Bitrate,
			fmt.Sprintf("-maxrate:v:%d", i), r.MaxRate,
			fmt.Sprintf("-bufsize:v:%d", i), r.BufSize,
		)
	}

	args = append(args,
		"-preset", "medium",
		"-g", strconv.Itoa(keyframeInterval),
		"-keyint_min", strconv.Itoa(keyframeInterval),
		"-sc_threshold", "0",
	)

	if hasAudio {
		for range ladder {
			args = append(args, "-map", "a:0")
		}
		args = append(args, "-c:a", "aac", "-b:a", audioBitrate, "-ac", "2")
	}

	args = append(args,
		"-f", "hls",
		"-hls_time", strconv.Itoa(segmentSeconds),
		"-hls_playlist_type", "vod",
		"-hls_flags", "independent_segments",
		"-master_pl_name", assets.ManifestName(id),
		"-hls_segment_filename", filepath.Join(outputDir, id+"_%v_%03d.ts"),
		"-var_stream_map", varStreamMap(hasAudio),
		"-progress", "pipe:1",
		"-nostats",
		"-y",
		filepath.Join(outputDir, id+"_%v.m3u8"),
	)
	return args
}

func splitFilter() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("[0:v]split=%d", len(ladder)))
	for i := range ladder {
		sb.WriteString(fmt.Sprintf("[v%d]", i+1))
	}
	for i, r := range ladder {
		sb.WriteString(fmt.Sprintf(";[v%d]scale=w=-2:h=%d[v%dout]", i+1, r.Height, i+1))
	}
	return sb.String()
}

func varStreamMap(hasAudio bool) string {
	entries := make([]string, len(ladder))
	for i, r := range ladder {
		if hasAudio {
			entries[i] = fmt.Sprintf("v:%d,a:%d,name:%s", i, i, r.Name)
		} else {
			entries[i] = fmt.Sprintf("v:%d,name:%s", i, r.Name)
		}
	}
	return strings.Join(entries, " ")
}

func staticThumbArgs(inputPath, outputPath string) []string {
	return []string{
		"-ss", staticThumbOffset,
		"-i", inputPath,
		"-vframes", "1",
		"-c:v", "libwebp",
		"-y", outputPath,
	}
}

func animatedPreviewArgs(inputPath, outputPath string) []string {
	return []string{
		"-ss", previewOffset,
		"-t", previewSeconds,
		"-i", inputPath,
		"-vf", previewFilter,
		"-loop", "0",
		"-c:v", "libwebp",
		"-y", outputPath,
	}
}

func convertImageArgs(inputPath, outputPath string) []string {
	return []string{
		"-i", inputPath,
		"-frames:v", "1",
		"-c:v", "libwebp",
		"-y", outputPath,
	}
}

var _ port.Transcoder = (*Converter)(nil)
