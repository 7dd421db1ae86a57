package application

import (
	"context"
	"time"
)

// Pinger reports reachability of one dependency. Both the sqlite DB and the
// Redis feed satisfy it; the in-process feed needs no probe and passes nil.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ComponentStatus is the health view of one dependency.
type ComponentStatus struct {
	Name   string
	OK     bool
	Detail string
}

// HealthService probes the service's dependencies for the health endpoint.
type HealthService struct {
	components map[string]Pinger
}

// NewHealthService creates a HealthService. Nil pingers are skipped, so
// optional dependencies (the Redis feed) can be wired conditionally.
func NewHealthService(components map[string]Pinger) *HealthService {
	return &HealthService{components: components}
}

// Check probes every component with a short per-probe timeout and reports
// overall health plus per-component detail.
func (s *HealthService) Check(ctx context.Context) (bool, []ComponentStatus) {
	ok := true
	statuses := make([]ComponentStatus, 0, len(s.components))

	for name, p := range s.components {
		if p == nil {
			continue
		}

		probeCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		err := p.Ping(probeCtx)
		cancel()

		status := ComponentStatus{Name: name, OK: err == nil}
		if err != nil {
			ok = false
			status.Detail = err.Error()
		}
		statuses = append(statuses, status)
	}

	return ok, statuses
}
