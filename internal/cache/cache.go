package cache

import (
	"log/slog"
	"sync"
	"time"
)

// Cache defines a generic keyed cache
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, data T)
	Delete(key string)
	Clear()
	Size() int
}

// Stats reports cache effectiveness counters
type Stats struct {
	Hits      uint64
	Misses    uint64
	Evictions uint64
}

// Cleaner is implemented by caches that can drop expired entries
type Cleaner interface {
	CleanExpired() int
}

// Manager periodically sweeps expired entries out of registered caches
type Manager struct {
	mu       sync.Mutex
	caches   []Cleaner
	logger   *slog.Logger
	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
	started  bool
}

// NewManager creates a new cache manager
func NewManager(logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		logger: logger,
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
}

// Register adds a cache to the sweep list
func (m *Manager) Register(c Cleaner) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.caches = append(m.caches, c)
}

// Started reports whether StartCleanup has launched the periodic sweeper
func (m *Manager) Started() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.started
}

// Sweep cleans every registered cache once and returns the number of removed entries
func (m *Manager) Sweep() int {
	m.mu.Lock()
	caches := append([]Cleaner(nil), m.caches...)
	m.mu.Unlock()

	total := 0
	for _, c := range caches {
		total += c.CleanExpired()
	}
	return total
}

// StartCleanup begins periodic cleanup of all registered caches.
// Calling it more than once has no effect.
func (m *Manager) StartCleanup(interval time.Duration) {
	m.mu.Lock()
	if m.started || interval <= 0 {
		m.mu.Unlock()
		return
	}
	m.started = true
	m.mu.Unlock()

	go m.cleanup(interval)
}

func (m *Manager) cleanup(interval time.Duration) {
	defer close(m.done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if n := m.Sweep(); n > 0 {
				m.logger.Debug("Cache sweep removed expired entries", "removed", n)
			}
		case <-m.stop:
			return
		}
	}
}

// Stop halts the cleanup routine and waits for it to exit
func (m *Manager) Stop() {
	m.stopOnce.Do(func() {
		close(m.stop)
		m.mu.Lock()
		started := m.started
		m.mu.Unlock()
		if started {
			<-m.done
		}
	})
}
