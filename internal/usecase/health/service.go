package health

import (
	"context"
	"sync"
)

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates a provider is down; answers fall back to placeholders.
	Degraded Status = "degraded"
	// Unhealthy indicates the candidate store is down.
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

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Provider names a model provider to check.
type Provider struct {
	Name    string
	Checker ProviderChecker
}

// Service coordinates health checks.
type Service struct {
	store     StorePinger
	providers []Provider
}

// New creates a Service. Providers with a nil checker are skipped.
func New(store StorePinger, providers ...Provider) *Service {
	kept := make([]Provider, 0, len(providers))
	for _, p := range providers {
		if p.Checker != nil {
			kept = append(kept, p)
		}
	}
	return &Service{store: store, providers: kept}
}

// Check runs every health check concurrently.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult, len(s.providers)+1)
	var mu sync.Mutex
	var wg sync.WaitGroup

	record := func(name string, err error) {
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			checks[name] = CheckError
			return
		}
		checks[name] = CheckOK
	}

	wg.Add(1 + len(s.providers))
	go func() {
		defer wg.Done()
		record("database", s.store.Ping(ctx))
	}()
	for _, p := range s.providers {
		go func() {
			defer wg.Done()
			record(p.Name, p.Checker.HealthCheck(ctx))
		}()
	}
	wg.Wait()

	status := Healthy
	for name, v := range checks {
		if v != CheckError {
			continue
		}
		if name == "database" {
			status = Unhealthy
			break
		}
		status = Degraded
	}

	return Report{Status: status, Checks: checks}
}
