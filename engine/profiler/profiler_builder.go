package profiler

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ProfilerBuilderOption is a function that configures a Profiler during construction.
type ProfilerBuilderOption func(*Profiler)

// WithUpdateInterval is an option builder that sets how often Tick logs.
//
// Parameters:
//   - interval: the reporting interval, ignored if not positive
//
// Returns:
//   - ProfilerBuilderOption: a function that applies the interval to a Profiler
func WithUpdateInterval(interval time.Duration) ProfilerBuilderOption {
	return func(p *Profiler) {
		if interval > 0 {
			p.updateInterval = interval
		}
	}
}

// WithRegistry is an option builder that registers the profiler's collectors
// with an existing registry.
//
// Parameters:
//   - registry: the registry to use
//
// Returns:
//   - ProfilerBuilderOption: a function that applies the registry to a Profiler
func WithRegistry(registry *prometheus.Registry) ProfilerBuilderOption {
	return func(p *Profiler) {
		p.registry = registry
	}
}
