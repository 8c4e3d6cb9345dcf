package service

import (
	"context"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/ependal/vidgate/internal/adapter/storage/assets"
	"github.com/ependal/vidgate/internal/infrastructure/logger"
	"github.com/ependal/vidgate/internal/infrastructure/metrics"
)

const (
	reapAttempts = 10
	reapBackoff  = time.Second
)

// Reaper reclaims asset directories after their record is gone. The
// record delete is synchronous; directory removal happens here with
// bounded retries, since a still-running transcode can hold the
// directory busy for a few seconds before it notices the deletion.
type Reaper struct {
	assets *assets.Store
	log    logger.Logger
}

func NewReaper(assetStore *assets.Store, log logger.Logger) *Reaper {
	return &Reaper{assets: assetStore, log: log}
}

// Reap removes the asset directory for id, retrying busy/non-empty
// failures. "Already gone" is success. Exhausting the retries logs
// and gives up; the directory becomes an orphan for external GC.
func (r *Reaper) Reap(id string) {
	backoff := retry.WithMaxRetries(reapAttempts-1, retry.NewConstant(reapBackoff))
	err := retry.Do(context.Background(), backoff, func(ctx context.Context) error {
		if err := r.assets.Remove(id); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		r.log.WithField("video_id", id).WithError(err).Error("giving up on asset directory removal")
		metrics.AssetDirRemovals.WithLabelValues("abandoned").Inc()
		return
	}
	r.log.WithField("video_id", id).Info("asset directory removed")
	metrics.AssetDirRemovals.WithLabelValues("removed").Inc()
}
