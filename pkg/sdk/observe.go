package catalogd

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// noKind labels calls that are not scoped to a catalog kind.
const noKind = "-"

// Call outcomes, the outcome label of catalogd_sdk_calls_total.
const (
	outcomeOK          = "ok"
	outcomeInvalid     = "invalid"
	outcomeNotFound    = "not_found"
	outcomeConflict    = "conflict"
	outcomeUnavailable = "unavailable"
	outcomeError       = "error"
)

// outcomeOf classifies err by the domain sentinel it wraps.
func outcomeOf(err error) string {
	switch {
	case err == nil:
		return outcomeOK
	case errors.Is(err, ErrValidation):
		return outcomeInvalid
	case errors.Is(err, ErrNotFound):
		return outcomeNotFound
	case errors.Is(err, ErrInvalidTransition),
		errors.Is(err, ErrAlreadyExists),
		errors.Is(err, ErrMetricsRegression):
		return outcomeConflict
	case errors.Is(err, ErrUpstreamStore):
		return outcomeUnavailable
	default:
		return outcomeError
	}
}

// callerFault reports whether the outcome was caused by the caller's input.
func callerFault(outcome string) bool {
	return outcome == outcomeInvalid || outcome == outcomeNotFound || outcome == outcomeConflict
}

type sdkMetrics struct {
	calls         *prometheus.CounterVec
	latency       *prometheus.HistogramVec
	emptyResults  *prometheus.CounterVec
	ignoredFacets *prometheus.CounterVec
}

func newSDKMetrics(reg prometheus.Registerer) (*sdkMetrics, error) {
	opts := func(name, help string) prometheus.Opts {
		return prometheus.Opts{Namespace: "catalogd", Subsystem: "sdk", Name: name, Help: help}
	}

	m := &sdkMetrics{}
	var err error
	if m.calls, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts(
		opts("calls_total", "SDK calls by operation, catalog kind and outcome.")),
		[]string{"operation", "kind", "outcome"})); err != nil {
		return nil, err
	}
	if m.latency, err = register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "catalogd",
		Subsystem: "sdk",
		Name:      "call_duration_seconds",
		Help:      "SDK call latency by operation.",
		Buckets:   []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1},
	}, []string{"operation"})); err != nil {
		return nil, err
	}
	if m.emptyResults, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts(
		opts("empty_results_total", "Searches that matched no record.")),
		[]string{"kind"})); err != nil {
		return nil, err
	}
	if m.ignoredFacets, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts(
		opts("ignored_facets_total", "Facet selections dropped because the index does not hold them.")),
		[]string{"kind", "dimension"})); err != nil {
		return nil, err
	}
	return m, nil
}

// register adds c to reg. A collector that is already registered under the
// same descriptor is returned in place of c, so several clients can share reg.
func register[T prometheus.Collector](reg prometheus.Registerer, c T) (T, error) {
	err := reg.Register(c)
	if err == nil {
		return c, nil
	}
	var are prometheus.AlreadyRegisteredError
	if !errors.As(err, &are) {
		return c, fmt.Errorf("catalogd: register metric: %w", err)
	}
	existing, ok := are.ExistingCollector.(T)
	if !ok {
		return c, fmt.Errorf("catalogd: metric already registered as %T", are.ExistingCollector)
	}
	return existing, nil
}

// observer logs and counts SDK calls. A nil observer does nothing.
type observer struct {
	logger  *slog.Logger
	metrics *sdkMetrics
}

func newObserver(logger *slog.Logger, reg prometheus.Registerer) (*observer, error) {
	o := &observer{logger: logger}
	if reg != nil {
		m, err := newSDKMetrics(reg)
		if err != nil {
			return nil, err
		}
		o.metrics = m
	}
	return o, nil
}

// call is one SDK operation in flight.
type call struct {
	obs   *observer
	op    string
	kind  string
	start time.Time
}

// begin starts timing op. kind is empty for calls outside a catalog kind.
func (o *observer) begin(op string, kind Kind) call {
	k := string(kind)
	if k == "" {
		k = noKind
	}
	return call{obs: o, op: op, kind: k, start: time.Now()}
}

// end records the result of the call.
func (c call) end(err error) {
	o := c.obs
	if o == nil {
		return
	}
	dur := time.Since(c.start)
	outcome := outcomeOf(err)

	if o.metrics != nil {
		o.metrics.calls.WithLabelValues(c.op, c.kind, outcome).Inc()
		o.metrics.latency.WithLabelValues(c.op).Observe(dur.Seconds())
	}
	if o.logger == nil {
		return
	}

	attrs := []any{"op", c.op, "kind", c.kind, "outcome", outcome, "duration", dur}
	switch {
	case err == nil:
		o.logger.Debug("catalogd call", attrs...)
	case callerFault(outcome):
		o.logger.Debug("catalogd call rejected", append(attrs, "error", err)...)
	default:
		o.logger.Warn("catalogd call failed", append(attrs, "error", err)...)
	}
}

// searched counts what a search dropped or failed to match.
func (o *observer) searched(kind Kind, total int, ignored []UnknownFacet) {
	if o == nil || o.metrics == nil {
		return
	}
	if total == 0 {
		o.metrics.emptyResults.WithLabelValues(string(kind)).Inc()
	}
	for _, u := range ignored {
		o.metrics.ignoredFacets.WithLabelValues(string(kind), string(u.Dimension)).Inc()
	}
}
