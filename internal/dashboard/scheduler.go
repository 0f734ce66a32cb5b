package dashboard

import (
	"sync"
	"time"
)

// CallbackID identifies a registered periodic callback
type CallbackID uint64

// Scheduler runs periodic callbacks for a document
type Scheduler interface {
	AddPeriodicCallback(fn func(), period time.Duration) CallbackID
	// RemovePeriodicCallback stops future invocations. It does not wait for
	// an invocation already in progress.
	RemovePeriodicCallback(id CallbackID)
}

// TickerScheduler runs every callback on its own time.Ticker goroutine
type TickerScheduler struct {
	mu      sync.Mutex
	nextID  CallbackID
	stops   map[CallbackID]chan struct{}
	stopped bool
}

// NewTickerScheduler creates a scheduler with no callbacks
func NewTickerScheduler() *TickerScheduler {
	return &TickerScheduler{stops: make(map[CallbackID]chan struct{})}
}

// AddPeriodicCallback calls fn every period until removed
func (s *TickerScheduler) AddPeriodicCallback(fn func(), period time.Duration) CallbackID {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	id := s.nextID
	if s.stopped {
		return id
	}

	stop := make(chan struct{})
	s.stops[id] = stop

	go func() {
		ticker := time.NewTicker(period)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				select {
				case <-stop:
					return
				default:
				}
				fn()
			}
		}
	}()

	return id
}

// RemovePeriodicCallback stops the callback; unknown ids are ignored
func (s *TickerScheduler) RemovePeriodicCallback(id CallbackID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if stop, ok := s.stops[id]; ok {
		close(stop)
		delete(s.stops, id)
	}
}

// Active returns the number of running callbacks
func (s *TickerScheduler) Active() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.stops)
}

// Stop removes every callback and refuses new ones
func (s *TickerScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, stop := range s.stops {
		close(stop)
		delete(s.stops, id)
	}
	s.stopped = true
}
