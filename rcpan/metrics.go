package rcpan

import "github.com/xlnfi/xln-core/metrics"

var metricViolations = metrics.LazyLoadCounter("rcpan_violation_count")
