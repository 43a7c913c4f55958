package monitor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrConsentRequired is a programming/integration error: a sampler start was
// attempted for a capability the worker has not consented to. The coordinator
// refuses to start and never samples silently.
var ErrConsentRequired = errors.New("sampler start requires worker consent")

// Ledger is the persistence surface the coordinator pushes samples into.
type Ledger interface {
	// RecordActivity returns false when the entry is already closed and the
	// reading was skipped.
	RecordActivity(ctx context.Context, entryID int32, level int, at time.Time) (bool, error)
	RecordLocation(ctx context.Context, entryID int32, fix Coordinates, place *string, at time.Time) error
	// Consents reads the worker's current flags; polled once per sampling
	// window to honor mid-session revocation.
	Consents(ctx context.Context, workerID int32) (activity, location bool, err error)
	// OpenEntries lists open entries with their workers' consent flags, for
	// re-attachment after a process restart.
	OpenEntries(ctx context.Context) ([]Attachment, error)
}

// Attachment binds one worker's open entry to the samplers its consent allows.
type Attachment struct {
	WorkerID        int32
	EntryID         int32
	ActivityConsent bool
	LocationConsent bool
}

// RemoteEventSource is the EventSource for deployments where input events
// arrive over the API (Coordinator.RecordEvent) instead of from local OS
// listeners; attach and detach are no-ops.
type RemoteEventSource struct{}

func (RemoteEventSource) Start(func()) error { return nil }
func (RemoteEventSource) Stop()              {}

type session struct {
	id      uuid.UUID
	entryID int32

	sampler *ActivitySampler
	locStop chan struct{}

	locationConsent bool
}

// Config tunes the coordinator. A zero LocationCadence means location is
// sampled only at attach and detach, which is the privacy-preserving default.
type Config struct {
	Window          time.Duration
	LocationCadence time.Duration

	// NewEventSource builds the input listener for each session. Defaults to
	// RemoteEventSource.
	NewEventSource func() EventSource
}

// Coordinator binds an ActivitySampler and the LocationProbe to the lifetime
// of one open entry per worker, subject to consent.
type Coordinator struct {
	ledger Ledger
	probe  *LocationProbe
	cfg    Config
	log    *slog.Logger

	mu       sync.Mutex
	sessions map[int32]*session
}

func NewCoordinator(ledger Ledger, probe *LocationProbe, cfg Config, log *slog.Logger) *Coordinator {
	if cfg.Window <= 0 {
		cfg.Window = 60 * time.Second
	}
	if cfg.NewEventSource == nil {
		cfg.NewEventSource = func() EventSource { return RemoteEventSource{} }
	}
	return &Coordinator{
		ledger:   ledger,
		probe:    probe,
		cfg:      cfg,
		log:      log,
		sessions: make(map[int32]*session),
	}
}

// Attach starts the consented samplers for a worker's open entry. Attaching a
// worker who already has a session is a no-op. Neither consent flag set means
// there is nothing to monitor and no session is kept.
func (c *Coordinator) Attach(ctx context.Context, att Attachment) error {
	if !att.ActivityConsent && !att.LocationConsent {
		return nil
	}

	c.mu.Lock()
	if _, ok := c.sessions[att.WorkerID]; ok {
		c.mu.Unlock()
		return nil
	}
	s := &session{
		id:              uuid.New(),
		entryID:         att.EntryID,
		locationConsent: att.LocationConsent,
	}
	c.sessions[att.WorkerID] = s
	c.mu.Unlock()

	if att.ActivityConsent {
		if err := c.startActivity(att.WorkerID, s, att.ActivityConsent); err != nil {
			c.mu.Lock()
			delete(c.sessions, att.WorkerID)
			c.mu.Unlock()
			return err
		}
	}

	if att.LocationConsent {
		c.sampleLocation(ctx, att.EntryID)
		if c.cfg.LocationCadence > 0 {
			s.locStop = make(chan struct{})
			go c.locationLoop(att.WorkerID, s)
		}
	}

	c.log.Info("monitoring attached",
		slog.String("session", s.id.String()),
		slog.Int("worker", int(att.WorkerID)),
		slog.Int("entry", int(att.EntryID)),
		slog.Bool("activity", att.ActivityConsent),
		slog.Bool("location", att.LocationConsent))
	return nil
}

func (c *Coordinator) startActivity(workerID int32, s *session, consented bool) error {
	if !consented {
		return fmt.Errorf("worker %d: %w", workerID, ErrConsentRequired)
	}

	entryID := s.entryID
	sink := func(level int) error {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		activity, _, err := c.ledger.Consents(ctx, workerID)
		if err == nil && !activity {
			c.log.Info("activity consent revoked, detaching sampler", slog.Int("worker", int(workerID)))
			go c.stopActivity(workerID)
			return nil
		}

		recorded, err := c.ledger.RecordActivity(ctx, entryID, level, time.Now())
		if err != nil {
			return err
		}
		if !recorded {
			// entry closed under us, tear the session down
			go c.Detach(context.Background(), workerID)
		}
		return nil
	}

	s.sampler = NewActivitySampler(c.cfg.NewEventSource(), c.cfg.Window, sink, c.log)
	return s.sampler.Start()
}

// stopActivity detaches just the activity sampler, keeping any location
// cadence alive. Used on mid-session consent revocation.
func (c *Coordinator) stopActivity(workerID int32) {
	c.mu.Lock()
	s, ok := c.sessions[workerID]
	var sampler *ActivitySampler
	if ok && s.sampler != nil {
		sampler = s.sampler
		s.sampler = nil
	}
	c.mu.Unlock()
	if sampler != nil {
		sampler.Stop()
	}
}

func (c *Coordinator) locationLoop(workerID int32, s *session) {
	ticker := time.NewTicker(c.cfg.LocationCadence)
	defer ticker.Stop()
	for {
		select {
		case <-s.locStop:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			_, location, err := c.ledger.Consents(ctx, workerID)
			if err == nil && !location {
				c.log.Info("location consent revoked, stopping cadence", slog.Int("worker", int(workerID)))
				cancel()
				c.mu.Lock()
				s.locationConsent = false
				c.mu.Unlock()
				return
			}
			c.sampleLocation(ctx, s.entryID)
			cancel()
		}
	}
}

// sampleLocation takes one best-effort fix and persists it. Failures degrade
// with a warning, they never surface.
func (c *Coordinator) sampleLocation(ctx context.Context, entryID int32) {
	fix := c.probe.ResolveCurrent(ctx)
	if fix == nil {
		c.log.Warn("location fix unavailable", slog.Int("entry", int(entryID)))
		return
	}
	var place *string
	if details := c.probe.ResolveDetails(ctx, fix.Lat, fix.Lon); details != nil {
		label := details.City + ", " + details.Country
		place = &label
	}
	if err := c.ledger.RecordLocation(ctx, entryID, *fix, place, time.Now()); err != nil {
		c.log.Warn("location sample not persisted", slog.Int("entry", int(entryID)), slog.String("error", err.Error()))
	}
}

// Detach flushes and stops both samplers for the worker and takes the final
// check-out location fix. Call it before closing the entry so that the final
// activity window still lands on an open entry. Detaching a worker with no
// session is a no-op.
func (c *Coordinator) Detach(ctx context.Context, workerID int32) {
	c.mu.Lock()
	s, ok := c.sessions[workerID]
	if !ok {
		c.mu.Unlock()
		return
	}
	delete(c.sessions, workerID)
	locationConsent := s.locationConsent
	c.mu.Unlock()

	if s.sampler != nil {
		s.sampler.Stop()
	}
	if s.locStop != nil {
		close(s.locStop)
	}
	if locationConsent {
		// re-read the flag: revocation mid-session must also suppress the
		// check-out fix, even when no cadence loop noticed it
		if _, location, err := c.ledger.Consents(ctx, workerID); err == nil && !location {
			c.log.Info("location consent revoked, skipping check-out fix", slog.Int("worker", int(workerID)))
		} else {
			c.sampleLocation(ctx, s.entryID)
		}
	}

	c.log.Info("monitoring detached",
		slog.String("session", s.id.String()),
		slog.Int("worker", int(workerID)))
}

// RecordEvent feeds one remote input event into the worker's sampler. Returns
// false when no activity sampler is attached.
func (c *Coordinator) RecordEvent(workerID int32) bool {
	c.mu.Lock()
	s, ok := c.sessions[workerID]
	var sampler *ActivitySampler
	if ok {
		sampler = s.sampler
	}
	c.mu.Unlock()
	if sampler == nil {
		return false
	}
	sampler.RecordEvent()
	return true
}

// LiveLevel peeks at the worker's running window for dashboard gauges.
func (c *Coordinator) LiveLevel(workerID int32) (int, bool) {
	c.mu.Lock()
	s, ok := c.sessions[workerID]
	var sampler *ActivitySampler
	if ok {
		sampler = s.sampler
	}
	c.mu.Unlock()
	if sampler == nil {
		return 0, false
	}
	return sampler.CurrentLevel(), true
}

// Resume re-attaches monitoring for every open entry found in storage, for
// process restarts with sessions still open.
func (c *Coordinator) Resume(ctx context.Context) error {
	atts, err := c.ledger.OpenEntries(ctx)
	if err != nil {
		return fmt.Errorf("failed to list open entries: %w", err)
	}
	for _, att := range atts {
		if err := c.Attach(ctx, att); err != nil {
			c.log.Warn("failed to resume monitoring",
				slog.Int("worker", int(att.WorkerID)),
				slog.String("error", err.Error()))
		}
	}
	return nil
}
