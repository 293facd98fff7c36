package health

import (
	"context"
	"time"
)

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates an auxiliary component is failing.
	Degraded Status = "degraded"
	// Unhealthy indicates the record store is unreachable.
	Unhealthy Status = "error"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// DefaultTimeout bounds each individual check.
const DefaultTimeout = 2 * time.Second

// Report aggregates health check results.
type Report struct {
	Status Status
	Driver string
	Checks map[string]CheckResult
}

type check struct {
	name   string
	pinger Pinger
}

// Service coordinates health checks.
type Service struct {
	store     Pinger
	driver    string
	auxiliary []check
	timeout   time.Duration
}

// New creates a Service for the record store reached through driver.
func New(store Pinger, driver string) *Service {
	return &Service{store: store, driver: driver, timeout: DefaultTimeout}
}

// WithCheck adds an auxiliary dependency. Its failure degrades the report
// without making it unhealthy.
func (s *Service) WithCheck(name string, p Pinger) *Service {
	if p != nil {
		s.auxiliary = append(s.auxiliary, check{name: name, pinger: p})
	}
	return s
}

// WithTimeout overrides the per-check timeout.
func (s *Service) WithTimeout(d time.Duration) *Service {
	if d > 0 {
		s.timeout = d
	}
	return s
}

// Check runs health checks against all components.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult, 1+len(s.auxiliary))

	status := Healthy
	checks["record_store"] = s.ping(ctx, s.store)
	if checks["record_store"] == CheckError {
		status = Unhealthy
	}

	for _, c := range s.auxiliary {
		checks[c.name] = s.ping(ctx, c.pinger)
		if checks[c.name] == CheckError && status == Healthy {
			status = Degraded
		}
	}

	return Report{Status: status, Driver: s.driver, Checks: checks}
}

func (s *Service) ping(ctx context.Context, p Pinger) CheckResult {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if err := p.Ping(ctx); err != nil {
		return CheckError
	}
	return CheckOK
}
