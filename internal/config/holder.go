package config

import "sync"

// Holder gives the long-running `serve` command one place to swap the
// resolved configuration on SIGHUP while request handlers keep reading it.
type Holder struct {
	mu  sync.RWMutex
	cfg *Resolved
}

// NewHolder wraps an initial resolved configuration.
func NewHolder(cfg *Resolved) *Holder {
	return &Holder{cfg: cfg}
}

// Config returns the current snapshot. Callers must not modify it.
func (h *Holder) Config() *Resolved {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return h.cfg
}

// Path returns the config file the snapshot was loaded from.
func (h *Holder) Path() string {
	return h.Config().ConfigPath
}

// Update replaces the snapshot.
func (h *Holder) Update(cfg *Resolved) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.cfg = cfg
}
