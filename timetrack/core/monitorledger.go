package core

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	dbase "timetrack.app/timetrack/core"
	"timetrack.app/timetrack/core/models"
	"timetrack.app/timetrack/timetrack/monitor"
)

// MonitorLedger adapts the pooled store to the coordinator's persistence
// surface. Each call acquires and releases its own connection.
type MonitorLedger struct {
	Dm *dbase.DatabaseManager
}

func (l *MonitorLedger) RecordActivity(ctx context.Context, entryID int32, level int, at time.Time) (bool, error) {
	var recorded bool
	err := l.Dm.Exec(ctx, func(db *gorm.DB) error {
		ok, err := RecordActivity(db, entryID, level, at)
		recorded = ok
		return err
	})
	return recorded, err
}

func (l *MonitorLedger) RecordLocation(ctx context.Context, entryID int32, fix monitor.Coordinates, place *string, at time.Time) error {
	return l.Dm.Exec(ctx, func(db *gorm.DB) error {
		return RecordLocation(db, &models.LocationSample{
			TimetrackID: entryID,
			Timestamp:   at,
			Latitude:    fix.Lat,
			Longitude:   fix.Lon,
			Place:       place,
		})
	})
}

func (l *MonitorLedger) Consents(ctx context.Context, workerID int32) (activity, location bool, err error) {
	err = l.Dm.Exec(ctx, func(db *gorm.DB) error {
		var inner error
		activity, location, inner = Consents(db, workerID)
		return inner
	})
	return activity, location, err
}

func (l *MonitorLedger) OpenEntries(ctx context.Context) ([]monitor.Attachment, error) {
	var atts []monitor.Attachment
	err := l.Dm.Exec(ctx, func(db *gorm.DB) error {
		type row struct {
			WorkerID        int32 `gorm:"column:worker_id"`
			EntryID         int32 `gorm:"column:entry_id"`
			ActivityConsent bool  `gorm:"column:activity_consent"`
			LocationConsent bool  `gorm:"column:location_consent"`
		}
		var rows []row
		if err := db.Raw(`
			SELECT
				t.worker_id,
				t.id AS entry_id,
				w.activity_tracking_consent AS activity_consent,
				w.location_tracking_consent AS location_consent
			FROM timetrack_entries t
			JOIN workers w ON t.worker_id = w.id
			WHERE t.check_out IS NULL`).
			Scan(&rows).Error; err != nil {
			return fmt.Errorf("failed to list open entries: %w", err)
		}
		for _, r := range rows {
			atts = append(atts, monitor.Attachment{
				WorkerID:        r.WorkerID,
				EntryID:         r.EntryID,
				ActivityConsent: r.ActivityConsent,
				LocationConsent: r.LocationConsent,
			})
		}
		return nil
	})
	return atts, err
}
