package server

import (
	"context"
	"errors"
	"fmt"

	"github.com/timekeepco/timekeep/internal/graph"
)

// HealthService defines behaviour for readiness probes.
type HealthService interface {
	Probe(ctx context.Context) error
}

// GraphHealthService verifies graph connectivity as part of health checks.
type GraphHealthService struct {
	Client graph.Client
}

// Probe implements the HealthService interface.
func (s GraphHealthService) Probe(ctx context.Context) error {
	if s.Client == nil {
		return nil
	}
	return s.Client.VerifyConnectivity(ctx)
}

// Pinger is anything with a connectivity check, such as the user store.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingHealthService adapts a Pinger.
type PingHealthService struct {
	Target Pinger
}

// Probe implements the HealthService interface.
func (s PingHealthService) Probe(ctx context.Context) error {
	if s.Target == nil {
		return nil
	}
	return s.Target.Ping(ctx)
}

// HealthChecks probes every named dependency and joins the failures.
type HealthChecks map[string]HealthService

// Probe implements the HealthService interface.
func (hc HealthChecks) Probe(ctx context.Context) error {
	var errs []error
	for name, check := range hc {
		if check == nil {
			continue
		}
		if err := check.Probe(ctx); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}
