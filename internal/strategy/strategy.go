// Package strategy implements the cross-sectional momentum backtest: signal
// alignment, month-end rebalance scheduling, long/short weight construction
// and the daily stepper, plus a Registry of named signals and the
// Backtester that wires prices, signals, metrics and run storage together.
package strategy

import (
	"errors"
	"sort"
	"sync"

	"xsmom/internal/domain"
)

// ErrUnknownSignal is returned when a signal name is not registered.
var ErrUnknownSignal = errors.New("unknown signal")

// Signal computes a cross-sectional score table from a price table. The
// result must have the same dates and symbols as prices; cells without
// enough history are left undefined.
type Signal interface {
	// Name returns the unique identifier for this signal.
	Name() string

	// Compute derives the score table from adjusted close prices.
	Compute(prices *domain.Table) *domain.Table
}

// Registry holds a named collection of signals for lookup and enumeration.
type Registry struct {
	mu      sync.RWMutex
	signals map[string]Signal
}

// NewRegistry creates an empty signal Registry.
func NewRegistry() *Registry {
	return &Registry{
		signals: make(map[string]Signal),
	}
}

// Register adds a signal to the registry, keyed by its Name().
func (r *Registry) Register(s Signal) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.signals[s.Name()] = s
}

// Get retrieves a signal by name. The second return value indicates whether
// the signal was found.
func (r *Registry) Get(name string) (Signal, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.signals[name]
	return s, ok
}

// List returns a sorted slice of all registered signal names.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.signals))
	for name := range r.signals {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
