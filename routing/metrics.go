package routing

import "github.com/xlnfi/xln-core/metrics"

// Search duration is observed in microseconds: fine enough resolution for
// sub-millisecond graph searches without forcing float buckets.
var metricSearchDurationMicros = metrics.LazyLoadHistogram("routing_search_duration_micros", nil)
