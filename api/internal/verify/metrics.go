package verify

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// stepsGraded counts graded steps by rule verdict and final outcome
	stepsGraded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "grader_steps_total",
		Help: "Graded solution steps by rule verdict and final verdict",
	}, []string{"rule", "final"})

	// stepCategories counts classified incorrect steps
	stepCategories = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "grader_step_errors_total",
		Help: "Incorrect steps by error category",
	}, []string{"category"})

	stepDisagreements = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "grader_step_disagreements_total",
		Help: "Steps where the rule verdict and the external verdict differ, by winning source",
	}, []string{"source"})

	stepPanics = promauto.NewCounter(prometheus.CounterOpts{
		Name: "grader_step_panics_total",
		Help: "Step evaluations that panicked and were recorded as indeterminate",
	})

	problemsGraded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "grader_problems_total",
		Help: "Graded problems by outcome",
	}, []string{"outcome"})

	problemConfidence = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "grader_problem_confidence",
		Help:    "Confidence of graded problems",
		Buckets: []float64{0.1, 0.25, 0.5, 0.75, 0.9, 1},
	})
)
