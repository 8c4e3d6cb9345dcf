package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ependal/vidgate/internal/adapter/storage/assets"
	"github.com/ependal/vidgate/internal/domain"
	"github.com/ependal/vidgate/internal/infrastructure/logger"
	"github.com/ependal/vidgate/internal/infrastructure/metrics"
	"github.com/ependal/vidgate/internal/port"
)

// VideoService is the application face of the video catalog: intake,
// ownership-scoped reads, metadata edits, custom thumbnails, deletion.
// Asset production itself happens on the detached Pipeline.
type VideoService struct {
	store      port.VideoStore
	transcoder port.Transcoder
	assets     *assets.Store
	pipeline   *Pipeline
	reaper     *Reaper
	log        logger.Logger
}

func NewVideoService(store port.VideoStore, transcoder port.Transcoder, assetStore *assets.Store, log logger.Logger) *VideoService {
	return &VideoService{
		store:      store,
		transcoder: transcoder,
		assets:     assetStore,
		pipeline:   NewPipeline(store, transcoder, assetStore, log),
		reaper:     NewReaper(assetStore, log),
		log:        log,
	}
}

// UploadInput carries a staged multipart upload. VideoPath (and
// ThumbPath, when a custom thumbnail was attached) point into the
// asset store's temp area; the pipeline takes ownership of both.
type UploadInput struct {
	OwnerID     string
	Title       string
	Description string
	Category    string
	Tags        []string
	VideoPath   string
	VideoExt    string
	ThumbPath   string
}

// Create persists the record in inProgress and kicks off processing
// detached from the request. The caller gets the id back immediately;
// completion or failure is discoverable only by polling.
func (s *VideoService) Create(ctx context.Context, in UploadInput) (*domain.Video, error) {
	video := domain.NewVideo(in.OwnerID, in.Title, in.Description, in.Category, in.Tags)

	if err := s.store.Save(ctx, video); err != nil {
		_ = os.Remove(in.VideoPath)
		if in.ThumbPath != "" {
			_ = os.Remove(in.ThumbPath)
		}
		return nil, fmt.Errorf("save video record: %w", err)
	}

	metrics.UploadsTotal.Inc()
	s.log.WithField("video_id", video.ID).
		WithField("title", logger.Sanitize(in.Title)).
		Info("video accepted for processing")

	go s.pipeline.Run(video.ID, in.VideoPath, in.VideoExt, in.ThumbPath)

	return video, nil
}

// GetOwned loads a record and enforces the ownership invariant shared
// by every access path, bearer and signed alike.
func (s *VideoService) GetOwned(ctx context.Context, id, subjectID string) (*domain.Video, error) {
	video, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !video.OwnedBy(subjectID) {
		return nil, domain.ErrForbidden
	}
	return video, nil
}

func (s *VideoService) List(ctx context.Context, subjectID string) ([]*domain.Video, error) {
	return s.store.ListByOwner(ctx, subjectID)
}

func (s *VideoService) Status(ctx context.Context, id, subjectID string) (domain.VideoStatus, error) {
	video, err := s.GetOwned(ctx, id, subjectID)
	if err != nil {
		return "", err
	}
	return video.Status, nil
}

func (s *VideoService) Duration(ctx context.Context, id, subjectID string) (float64, error) {
	video, err := s.GetOwned(ctx, id, subjectID)
	if err != nil {
		return 0, err
	}
	if !video.Ready() {
		return 0, domain.ErrNotReady
	}
	return video.DurationSeconds, nil
}

// PatchMetadata applies owner edits to the mutable fields. Edits on a
// video still in flight are rejected as not-ready rather than racing
// the pipeline's finalization write.
func (s *VideoService) PatchMetadata(ctx context.Context, id, subjectID string, patch *domain.MetadataPatch) (*domain.Video, error) {
	video, err := s.GetOwned(ctx, id, subjectID)
	if err != nil {
		return nil, err
	}
	if !video.Ready() {
		return nil, domain.ErrNotReady
	}
	if err := s.store.UpdateMetadata(ctx, id, patch); err != nil {
		return nil, err
	}
	return s.store.Get(ctx, id)
}

// ReplaceCustomThumb converts a staged image into the video's custom
// thumbnail slot, overwriting any prior one, and discards the staged
// source. Independent of the pipeline state machine.
func (s *VideoService) ReplaceCustomThumb(ctx context.Context, id, subjectID, stagedPath string) error {
	if _, err := s.GetOwned(ctx, id, subjectID); err != nil {
		_ = os.Remove(stagedPath)
		return err
	}

	if err := s.assets.EnsureDir(id); err != nil {
		_ = os.Remove(stagedPath)
		return fmt.Errorf("create asset directory: %w", err)
	}

	customName := assets.CustomThumbName(id)
	if err := s.transcoder.ConvertImage(ctx, stagedPath, s.assets.Path(id, customName)); err != nil {
		_ = os.Remove(stagedPath)
		return fmt.Errorf("convert thumbnail: %w", err)
	}
	if err := os.Remove(stagedPath); err != nil {
		s.log.WithField("video_id", id).WithError(err).Warn("failed to remove staged thumbnail")
	}

	return s.store.UpdateCustomThumb(ctx, id, customName)
}

// Delete removes the record synchronously and hands the asset
// directory to the reaper. An in-flight pipeline observes the
// directory vanishing and stops on its own.
func (s *VideoService) Delete(ctx context.Context, id, subjectID string) error {
	if _, err := s.GetOwned(ctx, id, subjectID); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}

	go s.reaper.Reap(id)
	return nil
}

// ThumbKind selects which thumbnail file a request is after.
type ThumbKind string

const (
	ThumbStatic   ThumbKind = "static"
	ThumbAnimated ThumbKind = "animated"
)

// ThumbPath resolves the on-disk path of a thumbnail, enforcing
// ownership and readiness. The static kind prefers a custom thumbnail
// when one was supplied.
func (s *VideoService) ThumbPath(ctx context.Context, id, subjectID string, kind ThumbKind) (string, error) {
	video, err := s.GetOwned(ctx, id, subjectID)
	if err != nil {
		return "", err
	}
	if !video.Ready() {
		return "", domain.ErrNotReady
	}

	var name string
	switch kind {
	case ThumbAnimated:
		name = video.AnimatedThumbName
	default:
		name = video.ThumbName()
	}
	if name == "" || !s.assets.FileExists(id, name) {
		return "", domain.ErrNotFound
	}
	return s.assets.Path(id, name), nil
}

// StreamFilePath resolves the manifest (empty file argument) or a
// named playlist/segment for the signed streaming routes. File names
// are validated against the id-derived naming scheme before touching
// the filesystem.
func (s *VideoService) StreamFilePath(ctx context.Context, id, subjectID, file string) (path, mimeType string, err error) {
	video, err := s.GetOwned(ctx, id, subjectID)
	if err != nil {
		return "", "", err
	}
	if !video.Ready() {
		return "", "", domain.ErrNotReady
	}

	if file == "" {
		file = video.ManifestName
	}
	if !assets.ValidStreamFile(id, file) {
		return "", "", domain.ErrNotFound
	}
	if !s.assets.FileExists(id, file) {
		return "", "", domain.ErrNotFound
	}
	return s.assets.Path(id, file), streamMIME(file), nil
}

// DownloadPath resolves the raw original for the range-aware download
// endpoint, returning the path and a client-facing filename.
func (s *VideoService) DownloadPath(ctx context.Context, id, subjectID string) (path, filename string, err error) {
	video, err := s.GetOwned(ctx, id, subjectID)
	if err != nil {
		return "", "", err
	}
	if !video.Ready() {
		return "", "", domain.ErrNotReady
	}
	if video.OriginalAssetName == "" || !s.assets.FileExists(id, video.OriginalAssetName) {
		return "", "", domain.ErrNotFound
	}
	return s.assets.Path(id, video.OriginalAssetName), video.OriginalAssetName, nil
}

func streamMIME(file string) string {
	switch strings.ToLower(filepath.Ext(file)) {
	case ".m3u8":
		return "application/vnd.apple.mpegurl"
	case ".ts":
		return "video/MP2T"
	default:
		return "application/octet-stream"
	}
}
