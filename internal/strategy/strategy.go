// Package strategy defines the Strategy interface for crossover strategies,
// a Registry for managing them, and the simulation engine that turns a
// strategy's indicator lines into trades.
package strategy

import (
	"context"
	"sort"
)

// Lines is the pair of index-aligned series a crossover strategy trades on.
// The simulation buys when Indicator rises above Signal and sells when it
// falls below. Crossovers are evaluated from WarmUp onward.
type Lines struct {
	Indicator []float64
	Signal    []float64
	WarmUp    int
}

// Strategy is the interface that all crossover strategies must implement.
type Strategy interface {
	// Name returns the unique identifier for this strategy.
	Name() string

	// Lines derives the indicator/signal pair from a price column. The
	// returned slices have the same length as prices.
	Lines(ctx context.Context, prices []float64) (Lines, error)
}

// Registry holds a named collection of strategies for lookup and enumeration.
type Registry struct {
	strategies map[string]Strategy
}

// NewRegistry creates an empty strategy Registry.
func NewRegistry() *Registry {
	return &Registry{
		strategies: make(map[string]Strategy),
	}
}

// Register adds a strategy to the registry, keyed by its Name().
func (r *Registry) Register(s Strategy) {
	r.strategies[s.Name()] = s
}

// Get retrieves a strategy by name. The second return value indicates whether
// the strategy was found.
func (r *Registry) Get(name string) (Strategy, bool) {
	s, ok := r.strategies[name]
	return s, ok
}

// List returns a sorted slice of all registered strategy names.
func (r *Registry) List() []string {
	names := make([]string, 0, len(r.strategies))
	for name := range r.strategies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
