// Package cache holds the report caches: bounded LRUs with TTL, swept
// periodically by a manager owned by the HTTP server.
package cache

import (
	"log/slog"
	"time"
)

// Cleaner is the sweep surface of a cache.
type Cleaner interface {
	CleanExpired() int
}

// Manager sweeps expired entries out of its registered caches on an
// interval, so invalidation misses don't pin stale report data in memory.
type Manager struct {
	caches []Cleaner
	stop   chan struct{}
	done   chan struct{}
}

func NewManager() *Manager {
	return &Manager{
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
}

// Register adds a cache to the sweep set. Not safe after StartCleanup.
func (m *Manager) Register(c Cleaner) {
	m.caches = append(m.caches, c)
}

// StartCleanup begins the periodic sweep in a background goroutine.
func (m *Manager) StartCleanup(interval time.Duration) {
	go m.sweep(interval)
}

func (m *Manager) sweep(interval time.Duration) {
	defer close(m.done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			removed := 0
			for _, c := range m.caches {
				removed += c.CleanExpired()
			}
			if removed > 0 {
				slog.Debug("Swept expired report cache entries", "removed", removed)
			}
		case <-m.stop:
			return
		}
	}
}

// Stop halts the sweep and waits for it to finish.
func (m *Manager) Stop() {
	close(m.stop)
	<-m.done
}
