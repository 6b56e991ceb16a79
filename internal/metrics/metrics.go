// Package metrics defines the minimal metrics surface the pipeline emits to.
//
// The core pipeline depends only on Backend; concrete backends (Datadog, or
// the default nop) live in subpackages and are selected at startup. Backends
// buffer in-memory and submit on Flush, so the hot path never blocks on the
// network.
package metrics

import "sync"

// Labels attaches dimensions to a metric observation.
type Labels map[string]string

// Backend receives metric observations.
type Backend interface {
	// IncCounter adds delta (> 0) to a named counter.
	IncCounter(name string, delta float64, labels Labels)

	// ObserveHistogram records one sample (>= 0) of a named distribution.
	ObserveHistogram(name string, value float64, labels Labels)

	// Flush submits buffered metrics. Safe to call concurrently with
	// observations.
	Flush() error
}

// nopBackend drops everything; the default when no backend is configured.
type nopBackend struct{}

func (nopBackend) IncCounter(string, float64, Labels)       {}
func (nopBackend) ObserveHistogram(string, float64, Labels) {}
func (nopBackend) Flush() error                             { return nil }

var (
	mu      sync.RWMutex
	backend Backend = nopBackend{}
)

// SetBackend installs the process-wide backend. Call once at startup, before
// the pipeline runs.
func SetBackend(b Backend) {
	mu.Lock()
	defer mu.Unlock()
	if b == nil {
		backend = nopBackend{}
		return
	}
	backend = b
}

func current() Backend {
	mu.RLock()
	defer mu.RUnlock()
	return backend
}

// IncCounter forwards to the installed backend.
func IncCounter(name string, delta float64, labels Labels) {
	current().IncCounter(name, delta, labels)
}

// ObserveHistogram forwards to the installed backend.
func ObserveHistogram(name string, value float64, labels Labels) {
	current().ObserveHistogram(name, value, labels)
}

// Flush forwards to the installed backend.
func Flush() error {
	return current().Flush()
}
