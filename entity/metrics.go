package entity

import "github.com/xlnfi/xln-core/metrics"

var (
	metricFramesCommitted      = metrics.LazyLoadCounter("entity_frames_committed_count")
	metricDoubleSignReports    = metrics.LazyLoadCounter("entity_double_sign_evidence_count")
	metricQuorumLatencyMicros  = metrics.LazyLoadHistogram("entity_quorum_latency_micros", nil)
)
