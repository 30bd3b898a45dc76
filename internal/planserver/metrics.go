package planserver

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/banshee-data/riskplan/internal/planner"
)

// Outcome label values for evaluationsTotal.
const (
	outcomeOK        = "ok"
	outcomeInvalid   = "invalid"
	outcomeCancelled = "cancelled"
	outcomeError     = "error"
)

var (
	// evaluationsTotal counts evaluations.
	// Labels: outcome (ok, invalid, cancelled, error)
	evaluationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "riskplan",
		Subsystem: "planner",
		Name:      "evaluations_total",
		Help:      "Total planner evaluations by outcome",
	}, []string{"outcome"})

	evaluationDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "riskplan",
		Subsystem: "planner",
		Name:      "evaluation_duration_seconds",
		Help:      "Wall time of one evaluation in seconds",
		Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	})

	trialsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "riskplan",
		Subsystem: "planner",
		Name:      "trials_total",
		Help:      "Total Monte Carlo trials simulated across all candidates",
	})

	// chosenTotal counts which maneuver won.
	// Labels: maneuver
	chosenTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "riskplan",
		Subsystem: "planner",
		Name:      "chosen_total",
		Help:      "Total times each maneuver was selected",
	}, []string{"maneuver"})
)

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return outcomeOK
	case errors.Is(err, ErrBadRequest), errors.Is(err, planner.ErrInvalidConfig):
		return outcomeInvalid
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return outcomeCancelled
	default:
		return outcomeError
	}
}

// Observe records one evaluation in the process metrics. res may be nil
// when err is set.
func Observe(res *planner.Result, err error, elapsed time.Duration) {
	evaluationsTotal.WithLabelValues(outcomeOf(err)).Inc()
	evaluationDuration.Observe(elapsed.Seconds())
	if err != nil || res == nil {
		return
	}
	trialsTotal.Add(float64(res.Samples * len(res.Candidates)))
	chosenTotal.WithLabelValues(res.BestName).Inc()
}
