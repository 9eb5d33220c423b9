package metrics

import (
	"fmt"
	"io"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/common/expfmt"

	"github.com/roach88/hqp/internal/engine"
	"github.com/roach88/hqp/internal/ir"
)

// Solve status label values.
const (
	StatusFeasible   = "feasible"
	StatusInfeasible = "infeasible"
	StatusError      = "error"
)

// Level outcome label values.
const (
	OutcomeOK             = "ok"
	OutcomeRankDegenerate = "rank_degenerate"
	OutcomeInfeasible     = "infeasible"
)

// codeUnknown labels errors that are not *engine.SolveError.
const codeUnknown = "UNKNOWN"

// Collector records solves, levels and errors.
// Safe for concurrent use.
type Collector struct {
	registry *prometheus.Registry

	solvesTotal   *prometheus.CounterVec
	levelsTotal   *prometheus.CounterVec
	solveDuration prometheus.Histogram
	qpIterations  prometheus.Histogram
	errorsTotal   *prometheus.CounterVec
}

// NewCollector creates a collector with its own registry.
func NewCollector(namespace string) *Collector {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Collector{
		registry: reg,
		solvesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "solves_total",
				Help:      "Total number of cascade solves",
			},
			[]string{"status"},
		),
		levelsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "levels_total",
				Help:      "Total number of solved priority levels",
			},
			[]string{"kind", "outcome"},
		),
		solveDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "solve_duration_seconds",
				Help:      "Cascade solve duration in seconds",
				Buckets:   prometheus.ExponentialBuckets(1e-6, 4, 12),
			},
		),
		qpIterations: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "qp_iterations",
				Help:      "Active-set iterations per level",
				Buckets:   []float64{0, 1, 2, 4, 8, 16, 32, 64, 128},
			},
		),
		errorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "errors_total",
				Help:      "Total number of failed solves by error code",
			},
			[]string{"code"},
		),
	}
}

// ObserveSolution records a finished solve and each of its levels.
func (c *Collector) ObserveSolution(sol *ir.Solution, dur time.Duration) {
	status := StatusFeasible
	if !sol.Feasible() {
		status = StatusInfeasible
	}
	c.solvesTotal.WithLabelValues(status).Inc()
	c.solveDuration.Observe(dur.Seconds())

	for _, l := range sol.Levels {
		c.levelsTotal.WithLabelValues(string(l.Kind), outcome(l)).Inc()
		c.qpIterations.Observe(float64(l.Iterations))
	}
}

// outcome picks one label per level; infeasibility wins over degeneracy.
func outcome(l ir.LevelReport) string {
	switch {
	case l.HasDiagnostic(ir.DiagLevelInfeasible):
		return OutcomeInfeasible
	case l.HasDiagnostic(ir.DiagRankDegenerate):
		return OutcomeRankDegenerate
	default:
		return OutcomeOK
	}
}

// ObserveError records a failed solve.
func (c *Collector) ObserveError(err error) {
	code := codeUnknown
	if sc, ok := engine.CodeOf(err); ok {
		code = string(sc)
	}
	c.solvesTotal.WithLabelValues(StatusError).Inc()
	c.errorsTotal.WithLabelValues(code).Inc()
}

// Registry returns the collector's registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// WriteText writes every metric in the Prometheus text format.
func (c *Collector) WriteText(w io.Writer) error {
	families, err := c.registry.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}
	enc := expfmt.NewEncoder(w, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			return fmt.Errorf("encode %s: %w", mf.GetName(), err)
		}
	}
	return nil
}
