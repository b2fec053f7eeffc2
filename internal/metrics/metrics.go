package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// All metrics are low-cardinality (no per-alert or per-frame labels)

var (
	// FramesProcessedTotal counts frames read from the source and run
	// through detection
	FramesProcessedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "firewatch_frames_processed_total",
			Help: "Total frames processed by source",
		},
		[]string{"source"},
	)

	// DetectionsTotal counts individual detections by label
	DetectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "firewatch_detections_total",
			Help: "Total detections by label",
		},
		[]string{"source", "label"},
	)

	// DetectionLatency tracks per-frame detection latency
	DetectionLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "firewatch_detection_latency_ms",
			Help:    "Detection latency in milliseconds",
			Buckets: []float64{10, 25, 50, 100, 200, 500, 1000, 2000},
		},
		[]string{"source"},
	)

	// AlertsFiredTotal counts alerts that passed the debounce gate
	AlertsFiredTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "firewatch_alerts_fired_total",
			Help: "Total alerts fired by source and label",
		},
		[]string{"source", "label"},
	)

	// AlertsResolvedTotal counts operator decisions
	AlertsResolvedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "firewatch_alerts_resolved_total",
			Help: "Total alerts resolved by final status",
		},
		[]string{"status"},
	)

	// AlertsPending is the current number of undecided alerts
	AlertsPending = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "firewatch_alerts_pending",
			Help: "Current number of pending alerts",
		},
	)

	// ChannelSendsTotal counts notification deliveries by channel and outcome
	ChannelSendsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "firewatch_channel_sends_total",
			Help: "Total notification sends by channel and result",
		},
		[]string{"channel", "result"},
	)

	// PipelineUp is a gauge for pipeline health
	PipelineUp = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "firewatch_pipeline_up",
			Help: "Pipeline health status (1=running, 0=stopped)",
		},
	)
)

// Helper functions for metrics recording

func RecordFrame(source string) {
	FramesProcessedTotal.WithLabelValues(source).Inc()
}

func RecordDetection(source, label string) {
	DetectionsTotal.WithLabelValues(source, label).Inc()
}

func RecordDetectionLatency(source string, latencyMs float64) {
	DetectionLatency.WithLabelValues(source).Observe(latencyMs)
}

func RecordAlertFired(source, label string) {
	AlertsFiredTotal.WithLabelValues(source, label).Inc()
}

func RecordAlertResolved(status string) {
	AlertsResolvedTotal.WithLabelValues(status).Inc()
}

func SetPendingAlerts(count int) {
	AlertsPending.Set(float64(count))
}

func RecordChannelSend(channel string, ok bool) {
	result := "ok"
	if !ok {
		result = "error"
	}
	ChannelSendsTotal.WithLabelValues(channel, result).Inc()
}

func SetPipelineUp(up bool) {
	if up {
		PipelineUp.Set(1)
	} else {
		PipelineUp.Set(0)
	}
}
