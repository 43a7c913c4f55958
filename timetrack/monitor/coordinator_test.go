package monitor

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeLedger struct {
	mu              sync.Mutex
	activity        []int
	locations       []Coordinates
	activityConsent bool
	locationConsent bool
	entryOpen       bool
	open            []Attachment
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{activityConsent: true, locationConsent: true, entryOpen: true}
}

func (l *fakeLedger) RecordActivity(ctx context.Context, entryID int32, level int, at time.Time) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.entryOpen {
		return false, nil
	}
	l.activity = append(l.activity, level)
	return true, nil
}

func (l *fakeLedger) RecordLocation(ctx context.Context, entryID int32, fix Coordinates, place *string, at time.Time) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.locations = append(l.locations, fix)
	return nil
}

func (l *fakeLedger) Consents(ctx context.Context, workerID int32) (bool, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.activityConsent, l.locationConsent, nil
}

func (l *fakeLedger) OpenEntries(ctx context.Context) ([]Attachment, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.open, nil
}

func (l *fakeLedger) recordedActivity() []int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]int(nil), l.activity...)
}

func (l *fakeLedger) recordedLocations() []Coordinates {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Coordinates(nil), l.locations...)
}

func (l *fakeLedger) setConsents(activity, location bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.activityConsent = activity
	l.locationConsent = location
}

func (l *fakeLedger) closeEntry() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entryOpen = false
}

// geoServer serves a fixed successful ip-api style payload.
func geoServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"success","lat":51.5074,"lon":-0.1278,"city":"London","regionName":"England","country":"United Kingdom","timezone":"Europe/London"}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

// deadProbe is a probe whose endpoint is gone, so every fix fails soft.
func deadProbe(t *testing.T) *LocationProbe {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()
	return NewLocationProbe(srv.URL, slog.Default())
}

func TestCoordinatorAttach(t *testing.T) {
	t.Run("No consent means no session", func(t *testing.T) {
		ledger := newFakeLedger()
		c := NewCoordinator(ledger, deadProbe(t), Config{Window: time.Hour}, slog.Default())

		assert.NoError(t, c.Attach(context.Background(), Attachment{WorkerID: 1, EntryID: 10}))
		_, running := c.LiveLevel(1)
		assert.False(t, running)
		assert.False(t, c.RecordEvent(1))
	})

	t.Run("Activity consent starts a sampler", func(t *testing.T) {
		ledger := newFakeLedger()
		c := NewCoordinator(ledger, deadProbe(t), Config{Window: time.Hour}, slog.Default())

		assert.NoError(t, c.Attach(context.Background(), Attachment{WorkerID: 1, EntryID: 10, ActivityConsent: true}))
		assert.True(t, c.RecordEvent(1))

		level, running := c.LiveLevel(1)
		assert.True(t, running)
		assert.GreaterOrEqual(t, level, 0)
	})

	t.Run("Attach is idempotent per worker", func(t *testing.T) {
		ledger := newFakeLedger()
		c := NewCoordinator(ledger, deadProbe(t), Config{Window: time.Hour}, slog.Default())

		att := Attachment{WorkerID: 1, EntryID: 10, ActivityConsent: true}
		assert.NoError(t, c.Attach(context.Background(), att))
		assert.NoError(t, c.Attach(context.Background(), att))

		c.Detach(context.Background(), 1)
		_, running := c.LiveLevel(1)
		assert.False(t, running)
	})

	t.Run("Location consent samples at attach and detach", func(t *testing.T) {
		ledger := newFakeLedger()
		probe := NewLocationProbe(geoServer(t).URL, slog.Default())
		c := NewCoordinator(ledger, probe, Config{Window: time.Hour}, slog.Default())

		assert.NoError(t, c.Attach(context.Background(), Attachment{WorkerID: 1, EntryID: 10, LocationConsent: true}))
		c.Detach(context.Background(), 1)

		fixes := ledger.recordedLocations()
		assert.Len(t, fixes, 2)
		assert.InDelta(t, 51.5074, fixes[0].Lat, 1e-9)
	})
}

func TestCoordinatorDetach(t *testing.T) {
	t.Run("Final activity window lands before detach returns", func(t *testing.T) {
		ledger := newFakeLedger()
		c := NewCoordinator(ledger, deadProbe(t), Config{Window: time.Hour}, slog.Default())

		assert.NoError(t, c.Attach(context.Background(), Attachment{WorkerID: 1, EntryID: 10, ActivityConsent: true}))
		c.RecordEvent(1)
		c.Detach(context.Background(), 1)

		assert.Len(t, ledger.recordedActivity(), 1)
	})

	t.Run("Detach without session is a no-op", func(t *testing.T) {
		ledger := newFakeLedger()
		c := NewCoordinator(ledger, deadProbe(t), Config{Window: time.Hour}, slog.Default())
		c.Detach(context.Background(), 99)
		assert.Empty(t, ledger.recordedActivity())
	})
}

func TestCoordinatorConsentRevocation(t *testing.T) {
	t.Run("Revoked activity consent suppresses the final window", func(t *testing.T) {
		ledger := newFakeLedger()
		c := NewCoordinator(ledger, deadProbe(t), Config{Window: time.Hour}, slog.Default())

		assert.NoError(t, c.Attach(context.Background(), Attachment{WorkerID: 1, EntryID: 10, ActivityConsent: true}))
		c.RecordEvent(1)

		ledger.setConsents(false, false)
		c.Detach(context.Background(), 1)

		assert.Empty(t, ledger.recordedActivity())
	})

	t.Run("Revoked location consent suppresses the check-out fix", func(t *testing.T) {
		ledger := newFakeLedger()
		probe := NewLocationProbe(geoServer(t).URL, slog.Default())
		c := NewCoordinator(ledger, probe, Config{Window: time.Hour}, slog.Default())

		assert.NoError(t, c.Attach(context.Background(), Attachment{WorkerID: 1, EntryID: 10, LocationConsent: true}))
		assert.Len(t, ledger.recordedLocations(), 1)

		ledger.setConsents(true, false)
		c.Detach(context.Background(), 1)

		// only the attach fix; no sample after revocation
		assert.Len(t, ledger.recordedLocations(), 1)
	})
}

func TestCoordinatorClosedEntry(t *testing.T) {
	// A reading refused because the entry closed tears the session down.
	ledger := newFakeLedger()
	c := NewCoordinator(ledger, deadProbe(t), Config{Window: 20 * time.Millisecond}, slog.Default())

	assert.NoError(t, c.Attach(context.Background(), Attachment{WorkerID: 1, EntryID: 10, ActivityConsent: true}))
	ledger.closeEntry()
	c.RecordEvent(1)

	assert.Eventually(t, func() bool {
		_, running := c.LiveLevel(1)
		return !running
	}, 2*time.Second, 10*time.Millisecond)
}

func TestCoordinatorResume(t *testing.T) {
	ledger := newFakeLedger()
	ledger.open = []Attachment{
		{WorkerID: 1, EntryID: 10, ActivityConsent: true},
		{WorkerID: 2, EntryID: 11},
		{WorkerID: 3, EntryID: 12, ActivityConsent: true},
	}
	c := NewCoordinator(ledger, deadProbe(t), Config{Window: time.Hour}, slog.Default())

	assert.NoError(t, c.Resume(context.Background()))

	_, running := c.LiveLevel(1)
	assert.True(t, running)
	_, running = c.LiveLevel(2)
	assert.False(t, running)
	_, running = c.LiveLevel(3)
	assert.True(t, running)
}

func TestCoordinatorResumeAfterDetach(t *testing.T) {
	// A detach whose checkout then fails leaves the entry open; Resume puts
	// the session back.
	ledger := newFakeLedger()
	ledger.open = []Attachment{{WorkerID: 1, EntryID: 10, ActivityConsent: true}}
	c := NewCoordinator(ledger, deadProbe(t), Config{Window: time.Hour}, slog.Default())

	assert.NoError(t, c.Attach(context.Background(), ledger.open[0]))
	c.Detach(context.Background(), 1)
	_, running := c.LiveLevel(1)
	assert.False(t, running)

	assert.NoError(t, c.Resume(context.Background()))
	_, running = c.LiveLevel(1)
	assert.True(t, running)
	assert.True(t, c.RecordEvent(1))
}
