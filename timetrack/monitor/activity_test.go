package monitor

import (
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeSource struct {
	startErr error
	started  int
	stopped  int
}

func (f *fakeSource) Start(record func()) error {
	if f.startErr != nil {
		return f.startErr
	}
	f.started++
	return nil
}

func (f *fakeSource) Stop() {
	f.stopped++
}

type sinkRecorder struct {
	mu     sync.Mutex
	levels []int
	err    error
}

func (r *sinkRecorder) sink(level int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.levels = append(r.levels, level)
	return r.err
}

func (r *sinkRecorder) recorded() []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int(nil), r.levels...)
}

func TestActivityLevel(t *testing.T) {
	tests := []struct {
		name     string
		events   int
		window   time.Duration
		idle     bool
		expected int
	}{
		{
			name:     "Half rate",
			events:   30,
			window:   60 * time.Second,
			expected: 50,
		},
		{
			name:     "Sustained one per second",
			events:   60,
			window:   60 * time.Second,
			expected: 100,
		},
		{
			name:     "Burst clamps at 100",
			events:   600,
			window:   60 * time.Second,
			expected: 100,
		},
		{
			name:     "No events",
			events:   0,
			window:   60 * time.Second,
			expected: 0,
		},
		{
			name:     "Idle overrides events",
			events:   45,
			window:   60 * time.Second,
			idle:     true,
			expected: 0,
		},
		{
			name:     "Rounds to nearest",
			events:   20,
			window:   30 * time.Second,
			expected: 67,
		},
		{
			name:     "Zero window",
			events:   10,
			window:   0,
			expected: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ActivityLevel(tt.events, tt.window, tt.idle))
		})
	}
}

func TestConsumeWindow(t *testing.T) {
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

	t.Run("Counts since last consume", func(t *testing.T) {
		s := NewActivitySampler(&fakeSource{}, time.Minute, nil, slog.Default())
		s.now = func() time.Time { return now }

		for i := 0; i < 30; i++ {
			s.RecordEvent()
		}
		assert.Equal(t, 50, s.ConsumeWindow(time.Minute))

		// counter was reset but the worker is not idle yet
		assert.Equal(t, 0, s.ConsumeWindow(time.Minute))
	})

	t.Run("Idle when last event is older than the window", func(t *testing.T) {
		s := NewActivitySampler(&fakeSource{}, time.Minute, nil, slog.Default())
		s.now = func() time.Time { return now }
		s.RecordEvent()

		s.now = func() time.Time { return now.Add(2 * time.Minute) }
		s.RecordEvent() // bumps the counter but then goes quiet
		s.now = func() time.Time { return now.Add(5 * time.Minute) }

		assert.Equal(t, 0, s.ConsumeWindow(time.Minute))
	})

	t.Run("Never consumed and never touched", func(t *testing.T) {
		s := NewActivitySampler(&fakeSource{}, time.Minute, nil, slog.Default())
		assert.Equal(t, 0, s.ConsumeWindow(time.Minute))
	})
}

func TestCurrentLevelDoesNotReset(t *testing.T) {
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	s := NewActivitySampler(&fakeSource{}, time.Minute, nil, slog.Default())
	s.now = func() time.Time { return now }

	for i := 0; i < 60; i++ {
		s.RecordEvent()
	}
	assert.Equal(t, 100, s.CurrentLevel())
	assert.Equal(t, 100, s.CurrentLevel())
	assert.Equal(t, 100, s.ConsumeWindow(time.Minute))
}

func TestSamplerLifecycle(t *testing.T) {
	t.Run("Stop delivers the final window", func(t *testing.T) {
		now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
		source := &fakeSource{}
		rec := &sinkRecorder{}
		// window far larger than the test so only the final flush fires
		s := NewActivitySampler(source, time.Hour, rec.sink, slog.Default())
		s.now = func() time.Time { return now }

		assert.NoError(t, s.Start())
		assert.True(t, s.Running())

		for i := 0; i < 1800; i++ {
			s.RecordEvent()
		}
		s.Stop()

		assert.False(t, s.Running())
		assert.Equal(t, 1, source.stopped)
		assert.Equal(t, []int{50}, rec.recorded())
	})

	t.Run("Start is idempotent", func(t *testing.T) {
		source := &fakeSource{}
		s := NewActivitySampler(source, time.Hour, nil, slog.Default())

		assert.NoError(t, s.Start())
		assert.NoError(t, s.Start())
		assert.Equal(t, 1, source.started)
		s.Stop()
		s.Stop()
		assert.Equal(t, 1, source.stopped)
	})

	t.Run("Attach failure aborts start", func(t *testing.T) {
		source := &fakeSource{startErr: errors.New("no permission for input devices")}
		s := NewActivitySampler(source, time.Hour, nil, slog.Default())

		assert.Error(t, s.Start())
		assert.False(t, s.Running())
	})

	t.Run("Sink failure does not stop the loop", func(t *testing.T) {
		rec := &sinkRecorder{err: errors.New("store unavailable")}
		s := NewActivitySampler(&fakeSource{}, time.Hour, rec.sink, slog.Default())

		assert.NoError(t, s.Start())
		s.RecordEvent()
		s.Stop()
		assert.Len(t, rec.recorded(), 1)
	})
}
