package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"strings"

	"github.com/ependal/vidgate/internal/adapter/http/middleware"
	"github.com/ependal/vidgate/internal/adapter/http/validation"
	"github.com/ependal/vidgate/internal/domain"
	"github.com/ependal/vidgate/internal/infrastructure/logger"
	"github.com/ependal/vidgate/internal/service"
)

// VideoService is what the handlers need from the application layer.
type VideoService interface {
	Create(ctx context.Context, in service.UploadInput) (*domain.Video, error)
	GetOwned(ctx context.Context, id, subjectID string) (*domain.Video, error)
	List(ctx context.Context, subjectID string) ([]*domain.Video, error)
	Status(ctx context.Context, id, subjectID string) (domain.VideoStatus, error)
	Duration(ctx context.Context, id, subjectID string) (float64, error)
	PatchMetadata(ctx context.Context, id, subjectID string, patch *domain.MetadataPatch) (*domain.Video, error)
	ReplaceCustomThumb(ctx context.Context, id, subjectID, stagedPath string) error
	Delete(ctx context.Context, id, subjectID string) error
	ThumbPath(ctx context.Context, id, subjectID string, kind service.ThumbKind) (string, error)
	StreamFilePath(ctx context.Context, id, subjectID, file string) (path, mimeType string, err error)
	DownloadPath(ctx context.Context, id, subjectID string) (path, filename string, err error)
}

// URLIssuer issues expiring signed tokens for a resource/subject pair.
type URLIssuer interface {
	Issue(resourceID, subjectID string) service.SignedToken
}

const (
	maxTitleLen       = 256
	maxDescriptionLen = 5000
	maxCategoryLen    = 64
	maxTags           = 32
)

type Handlers struct {
	videoSvc       VideoService
	issuer         URLIssuer
	tempDir        string
	maxUploadBytes int64
	maxThumbBytes  int64
	log            logger.Logger
}

func NewHandlers(videoSvc VideoService, issuer URLIssuer, tempDir string, maxUploadMB, maxThumbMB int, log logger.Logger) *Handlers {
	return &Handlers{
		videoSvc:       videoSvc,
		issuer:         issuer,
		tempDir:        tempDir,
		maxUploadBytes: int64(maxUploadMB) * 1024 * 1024,
		maxThumbBytes:  int64(maxThumbMB) * 1024 * 1024,
		log:            log,
	}
}

// Upload is the intake endpoint: it stages the multipart parts,
// persists the record as inProgress, and returns before any processing
// happens. Pipeline failures are never surfaced here.
func (h *Handlers) Upload() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes+h.maxThumbBytes)
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			var maxErr *http.MaxBytesError
			if errors.As(err, &maxErr) {
				writeError(w, http.StatusRequestEntityTooLarge, "upload too large")
				return
			}
			writeError(w, http.StatusBadRequest, "malformed multipart request")
			return
		}

		title := strings.TrimSpace(r.FormValue("title"))
		if title == "" {
			writeError(w, http.StatusBadRequest, "title is required")
			return
		}
		if msg := validateMetadata(title, r.FormValue("description"), r.FormValue("category"), parseTags(r.FormValue("tags"))); msg != "" {
			writeError(w, http.StatusBadRequest, msg)
			return
		}

		file, header, err := r.FormFile("video")
		if err != nil {
			writeError(w, http.StatusBadRequest, "video file is required")
			return
		}
		defer file.Close() //nolint:errcheck

		mime, allowed, err := validation.SniffVideo(file)
		if err != nil {
			writeError(w, http.StatusBadRequest, "unreadable video file")
			return
		}
		if !allowed {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("unsupported video type %s", mime))
			return
		}

		videoPath, err := h.stage(file, "video-*.tmp")
		if err != nil {
			h.log.WithError(err).Error("failed to stage upload")
			writeError(w, http.StatusInternalServerError, "failed to store upload")
			return
		}

		thumbPath, errMsg, status := h.stageThumbnail(r)
		if errMsg != "" {
			_ = os.Remove(videoPath)
			writeError(w, status, errMsg)
			return
		}

		video, err := h.videoSvc.Create(r.Context(), service.UploadInput{
			OwnerID:     middleware.Subject(r),
			Title:       title,
			Description: r.FormValue("description"),
			Category:    r.FormValue("category"),
			Tags:        parseTags(r.FormValue("tags")),
			VideoPath:   videoPath,
			VideoExt:    validation.SafeExt(header.Filename),
			ThumbPath:   thumbPath,
		})
		if err != nil {
			h.log.WithError(err).WithField("filename", logger.Sanitize(header.Filename)).Error("upload rejected")
			writeError(w, http.StatusInternalServerError, "failed to create video")
			return
		}

		writeJSON(w, http.StatusCreated, map[string]string{
			"id":     video.ID,
			"status": string(video.Status),
		})
	}
}

// stageThumbnail pulls the optional custom thumbnail part out of the
// form. An empty errMsg means success; thumbPath is empty when no
// thumbnail part was sent.
func (h *Handlers) stageThumbnail(r *http.Request) (thumbPath, errMsg string, status int) {
	thumb, thumbHeader, err := r.FormFile("thumbnail")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return "", "", 0
		}
		return "", "invalid thumbnail upload", http.StatusBadRequest
	}
	defer thumb.Close() //nolint:errcheck

	if thumbHeader.Size > h.maxThumbBytes {
		return "", "thumbnail too large", http.StatusRequestEntityTooLarge
	}
	mime, allowed, err := validation.SniffImage(thumb)
	if err != nil {
		return "", "unreadable thumbnail", http.StatusBadRequest
	}
	if !allowed {
		return "", fmt.Sprintf("unsupported thumbnail type %s", mime), http.StatusBadRequest
	}

	path, err := h.stage(thumb, "thumb-*.tmp")
	if err != nil {
		h.log.WithError(err).Error("failed to stage thumbnail")
		return "", "failed to store thumbnail", http.StatusInternalServerError
	}
	return path, "", 0
}

func (h *Handlers) stage(src multipart.File, pattern string) (string, error) {
	if err := os.MkdirAll(h.tempDir, 0o755); err != nil {
		return "", fmt.Errorf("create temp dir: %w", err)
	}
	dst, err := os.CreateTemp(h.tempDir, pattern)
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	defer dst.Close() //nolint:errcheck

	if _, err := io.Copy(dst, src); err != nil {
		_ = os.Remove(dst.Name())
		return "", fmt.Errorf("write temp file: %w", err)
	}
	return dst.Name(), nil
}

func (h *Handlers) List() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		videos, err := h.videoSvc.List(r.Context(), middleware.Subject(r))
		if err != nil {
			h.writeServiceError(w, err)
			return
		}
		if videos == nil {
			videos = []*domain.Video{}
		}
		writeJSON(w, http.StatusOK, videos)
	}
}

func (h *Handlers) Get() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		video, err := h.videoSvc.GetOwned(r.Context(), r.PathValue("id"), middleware.Subject(r))
		if err != nil {
			h.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, video)
	}
}

func (h *Handlers) Status() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status, err := h.videoSvc.Status(r.Context(), r.PathValue("id"), middleware.Subject(r))
		if err != nil {
			h.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": string(status)})
	}
}

func (h *Handlers) Duration() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		duration, err := h.videoSvc.Duration(r.Context(), r.PathValue("id"), middleware.Subject(r))
		if err != nil {
			h.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]float64{"durationSeconds": duration})
	}
}

func (h *Handlers) Patch() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var patch domain.MetadataPatch
		if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
			writeError(w, http.StatusBadRequest, "malformed request body")
			return
		}

		title, description, category := "", "", ""
		if patch.Title != nil {
			title = *patch.Title
			if strings.TrimSpace(title) == "" {
				writeError(w, http.StatusBadRequest, "title must not be empty")
				return
			}
		}
		if patch.Description != nil {
			description = *patch.Description
		}
		if patch.Category != nil {
			category = *patch.Category
		}
		if msg := validateMetadata(title, description, category, patch.Tags); msg != "" {
			writeError(w, http.StatusBadRequest, msg)
			return
		}

		video, err := h.videoSvc.PatchMetadata(r.Context(), r.PathValue("id"), middleware.Subject(r), &patch)
		if err != nil {
			h.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, video)
	}
}

func (h *Handlers) Delete() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := h.videoSvc.Delete(r.Context(), r.PathValue("id"), middleware.Subject(r)); err != nil {
			h.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
	}
}

// ReplaceThumb swaps in a caller-supplied custom thumbnail outside the
// pipeline state machine.
func (h *Handlers) ReplaceThumb() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxThumbBytes+(1<<20))
		if err := r.ParseMultipartForm(h.maxThumbBytes); err != nil {
			var maxErr *http.MaxBytesError
			if errors.As(err, &maxErr) {
				writeError(w, http.StatusRequestEntityTooLarge, "thumbnail too large")
				return
			}
			writeError(w, http.StatusBadRequest, "malformed multipart request")
			return
		}

		thumbPath, errMsg, status := h.stageThumbnail(r)
		if errMsg != "" {
			writeError(w, status, errMsg)
			return
		}
		if thumbPath == "" {
			writeError(w, http.StatusBadRequest, "thumbnail file is required")
			return
		}

		if err := h.videoSvc.ReplaceCustomThumb(r.Context(), r.PathValue("id"), middleware.Subject(r), thumbPath); err != nil {
			h.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "thumbnail updated"})
	}
}

// ServeThumb serves a thumbnail file. The same handler backs the
// bearer-protected and signed routes; only the wrapping middleware
// differs.
func (h *Handlers) ServeThumb(kind service.ThumbKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		path, err := h.videoSvc.ThumbPath(r.Context(), r.PathValue("id"), middleware.Subject(r), kind)
		if err != nil {
			h.writeServiceError(w, err)
			return
		}
		w.Header().Set("Content-Type", "image/webp")
		http.ServeFile(w, r, path)
	}
}

// Stream serves the manifest ({id} route) or a playlist/segment
// ({id}/{file} route) for signed streaming clients.
func (h *Handlers) Stream() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		path, mimeType, err := h.videoSvc.StreamFilePath(r.Context(), r.PathValue("id"), middleware.Subject(r), r.PathValue("file"))
		if err != nil {
			h.writeServiceError(w, err)
			return
		}
		w.Header().Set("Content-Type", mimeType)
		http.ServeFile(w, r, path)
	}
}

// Download serves the raw original. http.ServeFile handles Range
// requests, answering 206 with bytes start-end/total framing when a
// range is asked for and a plain 200 otherwise.
func (h *Handlers) Download() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		path, filename, err := h.videoSvc.DownloadPath(r.Context(), r.PathValue("id"), middleware.Subject(r))
		if err != nil {
			h.writeServiceError(w, err)
			return
		}
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", validation.SanitizeFilename(filename)))
		http.ServeFile(w, r, path)
	}
}

// IssueSignedURL mints a token pair for the streaming routes. The
// video must be ready: there is nothing to stream before that.
func (h *Handlers) IssueSignedURL() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, subject := r.PathValue("id"), middleware.Subject(r)
		video, err := h.videoSvc.GetOwned(r.Context(), id, subject)
		if err != nil {
			h.writeServiceError(w, err)
			return
		}
		if !video.Ready() {
			h.writeServiceError(w, domain.ErrNotReady)
			return
		}
		writeJSON(w, http.StatusOK, h.issuer.Issue(id, subject))
	}
}

// RefreshSignedURL re-issues a fresh token pair. Only ownership is
// re-checked, per the refresh contract.
func (h *Handlers) RefreshSignedURL() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, subject := r.PathValue("id"), middleware.Subject(r)
		if _, err := h.videoSvc.GetOwned(r.Context(), id, subject); err != nil {
			h.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, h.issuer.Issue(id, subject))
	}
}

func (h *Handlers) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "video not found")
	case errors.Is(err, domain.ErrNotReady):
		writeError(w, http.StatusConflict, "processing not complete")
	case errors.Is(err, domain.ErrForbidden):
		writeError(w, http.StatusForbidden, "access denied")
	case errors.Is(err, domain.ErrInvalidToken), errors.Is(err, domain.ErrExpiredToken):
		writeError(w, http.StatusUnauthorized, "unauthorized")
	default:
		h.log.WithError(err).Error("request failed")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func validateMetadata(title, description, category string, tags []string) string {
	if len(title) > maxTitleLen {
		return "title too long"
	}
	if len(description) > maxDescriptionLen {
		return "description too long"
	}
	if len(category) > maxCategoryLen {
		return "category too long"
	}
	if len(tags) > maxTags {
		return "too many tags"
	}
	return ""
}

func parseTags(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	tags := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
