package domain

import (
	"time"

	"github.com/google/uuid"
)

type VideoStatus string

const (
	// StatusInProgress is assigned at intake and holds until the
	// processing pipeline reaches a terminal state.
	StatusInProgress VideoStatus = "inProgress"
	StatusUploaded   VideoStatus = "uploaded"
	StatusError      VideoStatus = "error"
)

// Video is one uploaded asset. The id doubles as the asset-directory
// name, so it is immutable once assigned. Filename fields are relative
// to that directory and stay empty until the owning processing step has
// written the file to disk.
type Video struct {
	ID                string      `json:"id"`
	OwnerID           string      `json:"ownerId"`
	Title             string      `json:"title"`
	Description       string      `json:"description"`
	Category          string      `json:"category"`
	Tags              []string    `json:"tags"`
	Status            VideoStatus `json:"status"`
	DurationSeconds   float64     `json:"durationSeconds"`
	OriginalAssetName string      `json:"originalAssetName,omitempty"`
	ManifestName      string      `json:"manifestName,omitempty"`
	StaticThumbName   string      `json:"staticThumbName,omitempty"`
	AnimatedThumbName string      `json:"animatedThumbName,omitempty"`
	CustomThumbName   string      `json:"customThumbName,omitempty"`
	CreatedAt         time.Time   `json:"createdAt"`
}

func NewVideo(ownerID, title, description, category string, tags []string) *Video {
	return &Video{
		ID:          uuid.NewString(),
		OwnerID:     ownerID,
		Title:       title,
		Description: description,
		Category:    category,
		Tags:        tags,
		Status:      StatusInProgress,
		CreatedAt:   time.Now(),
	}
}

// OwnedBy reports whether subject may access this video.
func (v *Video) OwnedBy(subjectID string) bool {
	return v.OwnerID == subjectID
}

// Ready reports whether derived assets (manifest, thumbnails) may be
// exposed to readers.
func (v *Video) Ready() bool {
	return v.Status == StatusUploaded
}

// Terminal reports whether the pipeline has finished with this video.
// Both uploaded and error are absorbing states.
func (v *Video) Terminal() bool {
	return v.Status == StatusUploaded || v.Status == StatusError
}

// ThumbName returns the thumbnail to serve: a caller-supplied custom
// thumbnail wins over the auto-generated static frame.
func (v *Video) ThumbName() string {
	if v.CustomThumbName != "" {
		return v.CustomThumbName
	}
	return v.StaticThumbName
}

// MetadataPatch carries the owner-editable fields of a video. Nil
// pointers mean "leave unchanged".
type MetadataPatch struct {
	Title       *string  `json:"title"`
	Description *string  `json:"description"`
	Category    *string  `json:"category"`
	Tags        []string `json:"tags"`
}

// Apply copies the set fields of the patch onto the video.
func (p *MetadataPatch) Apply(v *Video) {
	if p.Title != nil {
		v.Title = *p.Title
	}
	if p.Description != nil {
		v.Description = *p.Description
	}
	if p.Category != nil {
		v.Category = *p.Category
	}
	if p.Tags != nil {
		v.Tags = p.Tags
	}
}
