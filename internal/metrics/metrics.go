// Package metrics records batch statistics for the node-exporter textfile collector.
package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "tiktokmaker"

// Video results used as the "result" label
const (
	ResultOK          = "ok"
	ResultSkipped     = "skipped"
	ResultNoTelemetry = "no_telemetry"
	ResultFailed      = "failed"
)

// Metrics holds the Prometheus metrics of one run
type Metrics struct {
	registry *prometheus.Registry

	VideosProcessed    *prometheus.CounterVec
	ClipsGenerated     prometheus.Counter
	PeaksDetected      prometheus.Counter
	ProcessingDuration prometheus.Histogram
	AudioExtracted     *prometheus.CounterVec
	Stabilizations     *prometheus.CounterVec
	FilesDownloaded    prometheus.Counter
	BytesDownloaded    prometheus.Counter
	LastRunTimestamp   prometheus.Gauge
}

// New creates a Metrics instance with its own registry
func New() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		VideosProcessed: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "videos_processed_total",
			Help:      "Videos run through highlight generation, by result",
		}, []string{"result"}),
		ClipsGenerated: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "clips_generated_total",
			Help:      "Highlight clips written, joined files included",
		}),
		PeaksDetected: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "peaks_detected_total",
			Help:      "Peaks selected across all videos",
		}),
		ProcessingDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "video_processing_seconds",
			Help:      "Wall time spent on one video",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600},
		}),
		AudioExtracted: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "audio",
			Name:      "extractions_total",
			Help:      "WAV extractions, by result",
		}, []string{"result"}),
		Stabilizations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "gyroflow",
			Name:      "runs_total",
			Help:      "Gyroflow runs, by result",
		}, []string{"result"}),
		FilesDownloaded: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "camera",
			Name:      "files_downloaded_total",
			Help:      "Files copied from the camera",
		}),
		BytesDownloaded: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "camera",
			Name:      "bytes_downloaded_total",
			Help:      "Bytes copied from the camera",
		}),
		LastRunTimestamp: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last batch finished",
		}),
	}
}

// Registry exposes the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveVideo records the outcome of one video
func (m *Metrics) ObserveVideo(result string, peaks, clips int, elapsed time.Duration) {
	m.VideosProcessed.WithLabelValues(result).Inc()
	m.PeaksDetected.Add(float64(peaks))
	m.ClipsGenerated.Add(float64(clips))
	m.ProcessingDuration.Observe(elapsed.Seconds())
}

// WriteTextfile stamps the run time and writes every metric to path in the
// text exposition format. The file is replaced atomically.
func (m *Metrics) WriteTextfile(path string) error {
	m.LastRunTimestamp.SetToCurrentTime()

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("metrics dir: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("write metrics %s: %w", path, err)
	}
	return nil
}
