package grading

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// judgeFailures counts judge calls that failed and were degraded to rules
var judgeFailures = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "grader_judge_failures_total",
	Help: "Failed judge calls by judge and stage (segment, segment_image, judge)",
}, []string{"judge", "stage"})
