package port

import (
	"context"

	"github.com/ependal/vidgate/internal/domain"
)

// VideoStore is the typed accessor over the record store for Video
// rows. Update methods are single-statement and atomic per record.
type VideoStore interface {
	Save(ctx context.Context, v *domain.Video) error
	Get(ctx context.Context, id string) (*domain.Video, error)
	ListByOwner(ctx context.Context, ownerID string) ([]*domain.Video, error)
	Delete(ctx context.Context, id string) error

	UpdateMetadata(ctx context.Context, id string, patch *domain.MetadataPatch) error
	UpdateCustomThumb(ctx context.Context, id, customThumbName string) error
	SetOriginalName(ctx context.Context, id, originalAssetName string) error

	// Finalize commits the pipeline result in one statement: asset
	// names, duration, and status=uploaded.
	Finalize(ctx context.Context, v *domain.Video) error
	UpdateStatus(ctx context.Context, id string, status domain.VideoStatus) error
}
