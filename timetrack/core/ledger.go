package core

import (
	"fmt"
	"time"

	"gorm.io/gorm"

	"timetrack.app/timetrack/core/models"
)

// The ledger translates committed TimeAccount state into the reporting
// queries the admin surface needs. Read operations tolerate absent optional
// fields (no project, no breaks) by treating them as zero/empty.

type WorkerStatusRow struct {
	WorkerID    int32      `gorm:"column:worker_id" json:"workerId"`
	Username    string     `gorm:"column:username" json:"username"`
	FullName    string     `gorm:"column:full_name" json:"fullName"`
	EntryID     *int32     `gorm:"column:entry_id" json:"entryId,omitempty"`
	CheckIn     *time.Time `gorm:"column:check_in" json:"checkIn,omitempty"`
	CheckOut    *time.Time `gorm:"column:check_out" json:"checkOut,omitempty"`
	OnBreak     bool       `gorm:"column:on_break" json:"onBreak"`
	ProjectName *string    `gorm:"column:project_name" json:"currentProject,omitempty"`
}

// AllWorkersStatus reflects only the most recent entry per worker for the
// current date.
func AllWorkersStatus(db *gorm.DB) ([]WorkerStatusRow, error) {
	var rows []WorkerStatusRow
	err := db.Raw(`
		SELECT
			w.id AS worker_id,
			w.username,
			w.full_name,
			t.id AS entry_id,
			t.check_in,
			t.check_out,
			b.id IS NOT NULL AS on_break,
			p.name AS project_name
		FROM workers w
		LEFT JOIN (
			SELECT *, ROW_NUMBER() OVER (PARTITION BY worker_id ORDER BY check_in DESC) AS rn
			FROM timetrack_entries
			WHERE date = CURDATE()
		) t ON w.id = t.worker_id AND t.rn = 1
		LEFT JOIN break_intervals b ON b.timetrack_id = t.id AND b.end_time IS NULL
		LEFT JOIN projects p ON t.project_id = p.id
		WHERE w.role = 'collaborator'
		ORDER BY w.full_name`).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch worker status: %w", err)
	}
	return rows, nil
}

type HistoryRow struct {
	models.TimetrackEntry
	ProjectName *string `gorm:"column:project_name" json:"projectName,omitempty"`
}

// History returns the worker's entries for the trailing N days, newest first.
func History(db *gorm.DB, workerID int32, days int) ([]HistoryRow, error) {
	if days <= 0 {
		days = 30
	}
	var rows []HistoryRow
	err := db.Raw(`
		SELECT t.*, p.name AS project_name
		FROM timetrack_entries t
		LEFT JOIN projects p ON t.project_id = p.id
		WHERE t.worker_id = ? AND t.date >= DATE_SUB(CURDATE(), INTERVAL ? DAY)
		ORDER BY t.check_in DESC`, workerID, days).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch history: %w", err)
	}
	return rows, nil
}

// WeeklyEntries fetches the flat closed-entry rows for the trailing 7 days;
// grouping into report rows happens in BuildWeeklyReport. workerID zero means
// all workers.
func WeeklyEntries(db *gorm.DB, workerID int32) ([]WeeklyEntry, error) {
	q := db.Raw(`
		SELECT
			t.worker_id,
			w.full_name,
			COALESCE(p.name, '') AS project_name,
			DATE_FORMAT(t.date, '%Y-%m-%d') AS day,
			t.total_hours,
			COALESCE((
				SELECT SUM(b.total_minutes) FROM break_intervals b WHERE b.timetrack_id = t.id
			), 0) AS break_minutes
		FROM timetrack_entries t
		JOIN workers w ON t.worker_id = w.id
		LEFT JOIN projects p ON t.project_id = p.id
		WHERE t.date >= DATE_SUB(CURDATE(), INTERVAL 7 DAY)
		  AND t.total_hours IS NOT NULL
		  AND (? = 0 OR t.worker_id = ?)
		ORDER BY w.full_name, t.date`, workerID, workerID)

	var rows []WeeklyEntry
	if err := q.Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch weekly entries: %w", err)
	}
	return rows, nil
}

type PendingRow struct {
	models.TimetrackEntry
	FullName    string  `gorm:"column:full_name" json:"fullName"`
	ProjectName *string `gorm:"column:project_name" json:"projectName,omitempty"`
}

// PendingApprovals lists manual entries that are neither approved nor
// rejected, newest first.
func PendingApprovals(db *gorm.DB) ([]PendingRow, error) {
	var rows []PendingRow
	err := db.Raw(`
		SELECT t.*, w.full_name, p.name AS project_name
		FROM timetrack_entries t
		JOIN workers w ON t.worker_id = w.id
		LEFT JOIN projects p ON t.project_id = p.id
		WHERE t.manual_entry = TRUE
		  AND t.approved_by IS NULL
		  AND t.rejected = FALSE
		ORDER BY t.date DESC`).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch pending approvals: %w", err)
	}
	return rows, nil
}

// RecordActivity appends one reading for an entry, but only while the entry
// is still open: a flush racing a checkout must not attribute samples to a
// closed entry. Returns false when the reading was skipped for that reason.
func RecordActivity(db *gorm.DB, entryID int32, level int, at time.Time) (bool, error) {
	res := db.Exec(`
		INSERT INTO activity_readings (timetrack_id, timestamp, activity_level)
		SELECT ?, ?, ?
		FROM dual
		WHERE EXISTS (
			SELECT 1 FROM timetrack_entries WHERE id = ? AND check_out IS NULL
		)`, entryID, at, level, entryID)
	if res.Error != nil {
		return false, fmt.Errorf("failed to record activity: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

// RecordLocation appends one position sample for an entry. The coordinator
// takes its check-out fix before the entry closes, so no open-entry condition
// is needed here.
func RecordLocation(db *gorm.DB, sample *models.LocationSample) error {
	if err := db.Create(sample).Error; err != nil {
		return fmt.Errorf("failed to record location: %w", err)
	}
	return nil
}

// ActivityHistory returns the readings of the trailing four hours for the
// live dashboard gauge.
func ActivityHistory(db *gorm.DB, entryID int32) ([]models.ActivityReading, error) {
	var readings []models.ActivityReading
	err := db.Where("timetrack_id = ? AND timestamp >= DATE_SUB(NOW(), INTERVAL 4 HOUR)", entryID).
		Order("timestamp").
		Find(&readings).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch activity history: %w", err)
	}
	return readings, nil
}

type ActivityStatsRow struct {
	AvgActivity   *float64 `gorm:"column:avg_activity" json:"avgActivity,omitempty"`
	MaxActivity   *int     `gorm:"column:max_activity" json:"maxActivity,omitempty"`
	MinActivity   *int     `gorm:"column:min_activity" json:"minActivity,omitempty"`
	TotalReadings int64    `gorm:"column:total_readings" json:"totalReadings"`
}

func ActivityStats(db *gorm.DB, entryID int32) (ActivityStatsRow, error) {
	var row ActivityStatsRow
	err := db.Raw(`
		SELECT
			AVG(activity_level) AS avg_activity,
			MAX(activity_level) AS max_activity,
			MIN(activity_level) AS min_activity,
			COUNT(*) AS total_readings
		FROM activity_readings
		WHERE timetrack_id = ?`, entryID).
		Scan(&row).Error
	if err != nil {
		return ActivityStatsRow{}, fmt.Errorf("failed to fetch activity stats: %w", err)
	}
	return row, nil
}

// TodayActivity returns all of today's readings across the worker's entries.
func TodayActivity(db *gorm.DB, workerID int32) ([]models.ActivityReading, error) {
	var readings []models.ActivityReading
	err := db.Raw(`
		SELECT a.*
		FROM activity_readings a
		JOIN timetrack_entries t ON a.timetrack_id = t.id
		WHERE t.worker_id = ? AND DATE(a.timestamp) = CURDATE()
		ORDER BY a.timestamp DESC`, workerID).
		Scan(&readings).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch today's activity: %w", err)
	}
	return readings, nil
}

func LocationHistory(db *gorm.DB, entryID int32) ([]models.LocationSample, error) {
	var samples []models.LocationSample
	err := db.Where("timetrack_id = ?", entryID).
		Order("timestamp").
		Find(&samples).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch location history: %w", err)
	}
	return samples, nil
}

// UpdateConsent flips the worker's monitoring consent flags. Nil leaves a
// flag untouched.
func UpdateConsent(db *gorm.DB, workerID int32, activity, location *bool) error {
	updates := map[string]interface{}{}
	if activity != nil {
		updates["activity_tracking_consent"] = *activity
	}
	if location != nil {
		updates["location_tracking_consent"] = *location
	}
	if len(updates) == 0 {
		return nil
	}
	if err := db.Model(&models.Worker{}).
		Where("id = ?", workerID).
		Updates(updates).Error; err != nil {
		return fmt.Errorf("failed to update consent: %w", err)
	}
	return nil
}

// Consents reads the worker's current consent flags. The coordinator polls
// this once per sampling window to honor mid-session revocation.
func Consents(db *gorm.DB, workerID int32) (activity, location bool, err error) {
	var w models.Worker
	if err := db.Select("activity_tracking_consent", "location_tracking_consent").
		First(&w, workerID).Error; err != nil {
		return false, false, fmt.Errorf("failed to load consent flags: %w", err)
	}
	return w.ActivityTrackingConsent, w.LocationTrackingConsent, nil
}
