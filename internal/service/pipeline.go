package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/ependal/vidgate/internal/adapter/storage/assets"
	"github.com/ependal/vidgate/internal/domain"
	"github.com/ependal/vidgate/internal/infrastructure/logger"
	"github.com/ependal/vidgate/internal/infrastructure/metrics"
	"github.com/ependal/vidgate/internal/port"
)

// errDeleted aborts a pipeline run when the video's asset directory
// (or record) disappeared mid-flight. It is a benign race with the
// deletion manager, not a failure: the run stops silently and leaves
// whatever status the record had.
var errDeleted = errors.New("video deleted during processing")

// Pipeline turns a raw upload into streaming assets: probe, thumbnail,
// adaptive-bitrate transcode, animated preview, record finalization.
// Steps are idempotent and individually gated on asset-directory
// existence so a run can be re-entered after partial failure and
// tolerates concurrent deletion without leaking a subprocess.
type Pipeline struct {
	store      port.VideoStore
	transcoder port.Transcoder
	assets     *assets.Store
	log        logger.Logger
}

func NewPipeline(store port.VideoStore, transcoder port.Transcoder, assetStore *assets.Store, log logger.Logger) *Pipeline {
	return &Pipeline{
		store:      store,
		transcoder: transcoder,
		assets:     assetStore,
		log:        log,
	}
}

// Run processes one upload to a terminal state. It is called on its
// own goroutine, detached from the intake request; errors land in the
// record's status and the log, never in an HTTP response.
//
// uploadPath is the staged original, originalExt its extension, and
// customThumbPath an optional caller-supplied thumbnail staged next to
// it (empty when none was provided).
func (p *Pipeline) Run(id, uploadPath, originalExt, customThumbPath string) {
	ctx := context.Background()
	log := p.log.WithField("video_id", id)

	err := p.process(ctx, id, uploadPath, customThumbPath)
	switch {
	case errors.Is(err, errDeleted):
		log.Info("processing stopped, video deleted concurrently")
		metrics.PipelineRuns.WithLabelValues("cancelled").Inc()
	case err != nil:
		log.WithError(err).Error("processing failed")
		if statusErr := p.store.UpdateStatus(ctx, id, domain.StatusError); statusErr != nil && !errors.Is(statusErr, domain.ErrNotFound) {
			log.WithError(statusErr).Error("failed to record error status")
		}
		metrics.PipelineRuns.WithLabelValues("error").Inc()
	default:
		log.Info("processing complete")
		metrics.PipelineRuns.WithLabelValues("uploaded").Inc()
	}

	// The original is relocated (or discarded) in every outcome so raw
	// input and derived assets co-locate.
	p.placeOriginal(id, uploadPath, originalExt, log)
}

func (p *Pipeline) process(ctx context.Context, id, uploadPath, customThumbPath string) error {
	// Guard against delete-before-processing-start.
	video, err := p.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return errDeleted
		}
		return fmt.Errorf("load record: %w", err)
	}

	probe, err := p.transcoder.Probe(ctx, uploadPath)
	if err != nil {
		return fmt.Errorf("probe: %w", err)
	}

	if err := p.assets.EnsureDir(id); err != nil {
		return fmt.Errorf("create asset directory: %w", err)
	}

	if err := p.makeThumbnail(ctx, video, uploadPath, customThumbPath); err != nil {
		return err
	}

	if err := p.checkAlive(id); err != nil {
		return err
	}
	start := time.Now()
	if err := p.transcoder.Transcode(ctx, uploadPath, p.assets.Dir(id), id, probe.HasAudio()); err != nil {
		return fmt.Errorf("transcode: %w", err)
	}
	metrics.TranscodeDuration.Observe(time.Since(start).Seconds())

	if err := p.checkAlive(id); err != nil {
		return err
	}
	previewName := assets.AnimatedThumbName(id)
	if !p.assets.FileExists(id, previewName) {
		if err := p.transcoder.AnimatedPreview(ctx, uploadPath, p.assets.Path(id, previewName)); err != nil {
			return fmt.Errorf("animated preview: %w", err)
		}
	}

	// The transcode may have been resolved as a cancellation no-op; the
	// directory check distinguishes that from real completion, and the
	// manifest must exist before its field is committed.
	if err := p.checkAlive(id); err != nil {
		return err
	}
	if !p.assets.FileExists(id, assets.ManifestName(id)) {
		return errDeleted
	}

	video.Status = domain.StatusUploaded
	video.DurationSeconds = probe.DurationSeconds()
	video.ManifestName = assets.ManifestName(id)
	video.AnimatedThumbName = previewName
	if err := p.store.Finalize(ctx, video); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return errDeleted
		}
		return fmt.Errorf("finalize record: %w", err)
	}
	return nil
}

// makeThumbnail produces the static thumbnail, unless the caller
// supplied a custom one at upload time, in which case that is
// converted instead and auto-generation is skipped.
func (p *Pipeline) makeThumbnail(ctx context.Context, video *domain.Video, uploadPath, customThumbPath string) error {
	id := video.ID

	if customThumbPath != "" {
		customName := assets.CustomThumbName(id)
		if err := p.transcoder.ConvertImage(ctx, customThumbPath, p.assets.Path(id, customName)); err != nil {
			return fmt.Errorf("convert custom thumbnail: %w", err)
		}
		if err := os.Remove(customThumbPath); err != nil {
			p.log.WithField("video_id", id).WithError(err).Warn("failed to remove staged thumbnail")
		}
		video.CustomThumbName = customName
		return nil
	}

	thumbName := assets.StaticThumbName(id)
	if !p.assets.FileExists(id, thumbName) {
		if err := p.transcoder.StaticThumb(ctx, uploadPath, p.assets.Path(id, thumbName)); err != nil {
			return fmt.Errorf("static thumbnail: %w", err)
		}
	}
	video.StaticThumbName = thumbName
	return nil
}

func (p *Pipeline) checkAlive(id string) error {
	if !p.assets.DirExists(id) {
		return errDeleted
	}
	return nil
}

// placeOriginal moves the staged upload into the asset directory under
// its id-derived name, or deletes it when the directory is gone. Both
// paths are best effort: a leftover file is an orphan for external GC,
// never a blocking failure.
func (p *Pipeline) placeOriginal(id, uploadPath, originalExt string, log logger.Entry) {
	if _, err := os.Stat(uploadPath); err != nil {
		return
	}

	if p.assets.DirExists(id) {
		name := assets.OriginalName(id, originalExt)
		if err := os.Rename(uploadPath, p.assets.Path(id, name)); err != nil {
			log.WithError(err).Warn("failed to move original into asset directory")
			return
		}
		if err := p.store.SetOriginalName(context.Background(), id, name); err != nil && !errors.Is(err, domain.ErrNotFound) {
			log.WithError(err).Warn("failed to record original asset name")
		}
		return
	}

	// Directory gone: the video was deleted, discard the orphan with a
	// single bounded retry.
	backoff := retry.WithMaxRetries(1, retry.NewConstant(time.Second))
	err := retry.Do(context.Background(), backoff, func(ctx context.Context) error {
		if err := os.Remove(uploadPath); err != nil && !os.IsNotExist(err) {
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		log.WithError(err).Warn("failed to delete orphaned original")
	}
}
