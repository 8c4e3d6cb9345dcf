// Package metrics registers the Prometheus collectors for the
// processing pipeline and the delivery layer.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	UploadsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vidgate_uploads_total",
		Help: "Accepted video uploads.",
	})

	PipelineRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vidgate_pipeline_runs_total",
		Help: "Completed pipeline runs by terminal result.",
	}, []string{"result"})

	TranscodeDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "vidgate_transcode_duration_seconds",
		Help:    "Wall-clock duration of adaptive-bitrate transcodes.",
		Buckets: prometheus.ExponentialBuckets(1, 2, 12),
	})

	SignedURLVerifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vidgate_signed_url_verifications_total",
		Help: "Signed-URL verification outcomes.",
	}, []string{"result"})

	AssetDirRemovals = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vidgate_asset_dir_removals_total",
		Help: "Asset directory removal outcomes after video deletion.",
	}, []string{"result"})
)
