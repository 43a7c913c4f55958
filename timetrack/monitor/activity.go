package monitor

import (
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"
)

// EventSource attaches OS-level input listeners. Implementations call record
// once per observed pointer or keyboard event; delivery order and event
// payloads are irrelevant, only occurrence matters.
type EventSource interface {
	Start(record func()) error
	Stop()
}

// ActivityLevel maps an event count over a window to a 0-100 score: one event
// per second sustained throughout the window is 100. idle forces the score to
// 0, so a burst at the start of an otherwise silent window is not rewarded.
func ActivityLevel(events int, window time.Duration, idle bool) int {
	if idle || window <= 0 {
		return 0
	}
	level := int(math.Round(float64(events) / window.Seconds() * 100))
	if level > 100 {
		return 100
	}
	if level < 0 {
		return 0
	}
	return level
}

// ActivitySampler turns raw input events into one bounded activity score per
// reporting window. The event counter is shared between the OS delivery path
// and the window-consume path and is the only hot shared state here, guarded
// by a single mutex.
type ActivitySampler struct {
	mu        sync.Mutex
	events    int
	lastEvent time.Time
	running   bool
	stopCh    chan struct{}
	doneCh    chan struct{}

	source EventSource
	window time.Duration
	sink   func(level int) error
	log    *slog.Logger

	now func() time.Time
}

func NewActivitySampler(source EventSource, window time.Duration, sink func(level int) error, log *slog.Logger) *ActivitySampler {
	if window <= 0 {
		window = 60 * time.Second
	}
	return &ActivitySampler{
		source: source,
		window: window,
		sink:   sink,
		log:    log,
		now:    time.Now,
	}
}

// RecordEvent is called once per observed input event. Constant time and
// non-blocking apart from the counter mutex.
func (s *ActivitySampler) RecordEvent() {
	s.mu.Lock()
	s.events++
	s.lastEvent = s.now()
	s.mu.Unlock()
}

// ConsumeWindow atomically reads and resets the event counter and returns the
// window's activity level. Safe to call concurrently with RecordEvent.
func (s *ActivitySampler) ConsumeWindow(window time.Duration) int {
	s.mu.Lock()
	events := s.events
	s.events = 0
	idle := s.lastEvent.IsZero() || s.now().Sub(s.lastEvent) > window
	s.mu.Unlock()
	return ActivityLevel(events, window, idle)
}

// CurrentLevel peeks at the running window without resetting it, for live
// gauges.
func (s *ActivitySampler) CurrentLevel() int {
	s.mu.Lock()
	events := s.events
	idle := s.lastEvent.IsZero() || s.now().Sub(s.lastEvent) > s.window
	s.mu.Unlock()
	return ActivityLevel(events, s.window, idle)
}

// Start attaches the input listeners and begins the periodic flush loop.
// Starting an already-started sampler is a no-op. A listener attach failure
// is fatal to starting.
func (s *ActivitySampler) Start() error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})
	stopCh, doneCh := s.stopCh, s.doneCh
	s.mu.Unlock()

	if err := s.source.Start(s.RecordEvent); err != nil {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
		return fmt.Errorf("failed to attach input listeners: %w", err)
	}

	go s.loop(stopCh, doneCh)
	return nil
}

func (s *ActivitySampler) loop(stopCh, doneCh chan struct{}) {
	defer close(doneCh)
	ticker := time.NewTicker(s.window)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.flush()
		case <-stopCh:
			// final flush of whatever accumulated since the last tick
			s.flush()
			return
		}
	}
}

// flush consumes the window and forwards the level. A sink failure must not
// kill the sampling loop.
func (s *ActivitySampler) flush() {
	level := s.ConsumeWindow(s.window)
	if s.sink == nil {
		return
	}
	if err := s.sink(level); err != nil {
		s.log.Warn("activity sink failed, continuing", slog.Int("level", level), slog.String("error", err.Error()))
	}
}

// Stop detaches the listeners, has the loop flush once more, and waits for
// it to exit so callers can rely on the final window having been delivered.
// Stopping an already-stopped sampler is a no-op. Must not be called from the
// sink itself.
func (s *ActivitySampler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	stopCh, doneCh := s.stopCh, s.doneCh
	s.stopCh, s.doneCh = nil, nil
	s.mu.Unlock()

	s.source.Stop()
	close(stopCh)
	<-doneCh
}

// Running reports whether the sampler is attached.
func (s *ActivitySampler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}
