package core

import (
	"errors"
	"fmt"
	"math"
	"time"

	"gorm.io/gorm"

	"timetrack.app/timetrack/core/models"
	"timetrack.app/timetrack/utils"
)

type State string

const (
	StateClosed  State = "CLOSED"
	StateOpen    State = "OPEN"
	StateOnBreak State = "ON_BREAK"
)

// Status is the durable state of a worker's daily cycle, re-derived from
// storage so a process restart mid-session recovers correctly.
type Status struct {
	State State                 `json:"state"`
	Entry *models.TimetrackEntry `json:"entry,omitempty"`
	Break *models.BreakInterval  `json:"break,omitempty"`
}

// TimeAccount is the state machine for one worker's active session. It holds
// no session state itself; every transition validates its guards against the
// database at transition time.
type TimeAccount struct {
	WorkerID int32

	// Now is swappable for tests. Defaults to time.Now.
	Now func() time.Time
}

func NewTimeAccount(workerID int32) *TimeAccount {
	return &TimeAccount{WorkerID: workerID, Now: time.Now}
}

func (a *TimeAccount) now() time.Time {
	if a.Now != nil {
		return a.Now()
	}
	return time.Now()
}

// TotalHours is the derived gross duration of a closed entry.
func TotalHours(checkIn, checkOut time.Time) float64 {
	return checkOut.Sub(checkIn).Hours()
}

// BreakMinutes rounds a break's duration to whole minutes.
func BreakMinutes(start, end time.Time) int32 {
	return int32(math.Round(end.Sub(start).Minutes()))
}

// DeriveState maps durable rows to the session state.
func DeriveState(entry *models.TimetrackEntry, brk *models.BreakInterval) State {
	switch {
	case entry == nil || entry.CheckOut != nil:
		return StateClosed
	case brk != nil && brk.EndTime == nil:
		return StateOnBreak
	default:
		return StateOpen
	}
}

// CurrentState loads the worker's open entry and open break, if any. Callers
// use this before issuing a command and after process restarts.
func (a *TimeAccount) CurrentState(db *gorm.DB) (Status, error) {
	entry, err := openEntry(db, a.WorkerID)
	if err != nil {
		return Status{}, err
	}
	if entry == nil {
		return Status{State: StateClosed}, nil
	}

	brk, err := openBreak(db, entry.ID)
	if err != nil {
		return Status{}, err
	}
	return Status{State: DeriveState(entry, brk), Entry: entry, Break: brk}, nil
}

type CheckInOptions struct {
	ProjectID int32
	TaskID    *int32

	// Lat/Lng is the cached location fix at check-in time, recorded on the
	// entry when location consent holds. Nil when unavailable.
	Lat *float64
	Lng *float64
}

// CheckIn opens a new entry for the worker. The at-most-one-open-entry
// invariant is enforced with a conditional insert so concurrent check-in
// attempts race on the database, not on in-process state: the loser sees
// zero affected rows and gets ErrAlreadyCheckedIn. The entry insert and the
// task status flip commit or roll back together.
func (a *TimeAccount) CheckIn(db *gorm.DB, opts CheckInOptions) (*models.TimetrackEntry, error) {
	if opts.ProjectID == 0 {
		return nil, ErrInactiveProject
	}

	var entry *models.TimetrackEntry
	err := db.Transaction(func(tx *gorm.DB) error {
		var project models.Project
		err := tx.Select("is_active").Take(&project, opts.ProjectID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) || (err == nil && !project.IsActive) {
			return ErrInactiveProject
		}
		if err != nil {
			return fmt.Errorf("failed to look up project: %w", err)
		}

		now := a.now()
		res := tx.Exec(`
			INSERT INTO timetrack_entries (worker_id, project_id, task_id, check_in, date, location_lat, location_lng)
			SELECT ?, ?, ?, ?, ?, ?, ?
			FROM dual
			WHERE NOT EXISTS (
				SELECT 1 FROM timetrack_entries WHERE worker_id = ? AND check_out IS NULL
			)`,
			a.WorkerID, opts.ProjectID, opts.TaskID, now, now.Format("2006-01-02"),
			opts.Lat, opts.Lng, a.WorkerID)
		if res.Error != nil {
			return fmt.Errorf("failed to create entry: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrAlreadyCheckedIn
		}

		entry, err = openEntry(tx, a.WorkerID)
		if err != nil {
			return err
		}
		if entry == nil {
			return errors.New("entry vanished after insert")
		}

		if opts.TaskID != nil {
			if err := tx.Model(&models.Task{}).
				Where("id = ?", *opts.TaskID).
				Update("status", models.TaskInProgress).Error; err != nil {
				return fmt.Errorf("failed to update task status: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// StartBreak opens a break on the current entry. The one-open-break invariant
// uses the same conditional-insert discipline as CheckIn.
func (a *TimeAccount) StartBreak(db *gorm.DB, breakType models.BreakType) (*models.BreakInterval, error) {
	entry, err := openEntry(db, a.WorkerID)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, ErrNotCheckedIn
	}

	now := a.now()
	res := db.Exec(`
		INSERT INTO break_intervals (timetrack_id, start_time, break_type)
		SELECT ?, ?, ?
		FROM dual
		WHERE NOT EXISTS (
			SELECT 1 FROM break_intervals WHERE timetrack_id = ? AND end_time IS NULL
		)`,
		entry.ID, now, breakType, entry.ID)
	if res.Error != nil {
		return nil, fmt.Errorf("failed to create break: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, ErrAlreadyOnBreak
	}

	return openBreak(db, entry.ID)
}

// EndBreak closes the current break and records its rounded minutes.
func (a *TimeAccount) EndBreak(db *gorm.DB) (*models.BreakInterval, error) {
	entry, err := openEntry(db, a.WorkerID)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, ErrNotCheckedIn
	}
	brk, err := openBreak(db, entry.ID)
	if err != nil {
		return nil, err
	}
	if brk == nil {
		return nil, ErrNoOpenBreak
	}

	now := a.now()
	minutes := BreakMinutes(brk.StartTime, now)
	if err := db.Model(&models.BreakInterval{}).
		Where("id = ?", brk.ID).
		Updates(map[string]interface{}{"end_time": now, "total_minutes": minutes}).Error; err != nil {
		return nil, fmt.Errorf("failed to close break: %w", err)
	}
	brk.EndTime = &now
	brk.TotalMinutes = &minutes
	return brk, nil
}

// CheckOut closes the open entry and sets its derived hours. A forgotten open
// break does not block the checkout: it is force-closed first, recording its
// minutes as of now.
func (a *TimeAccount) CheckOut(db *gorm.DB) (*models.TimetrackEntry, error) {
	entry, err := openEntry(db, a.WorkerID)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, ErrNotCheckedIn
	}

	brk, err := openBreak(db, entry.ID)
	if err != nil {
		return nil, err
	}
	now := a.now()
	if brk != nil {
		minutes := BreakMinutes(brk.StartTime, now)
		if err := db.Model(&models.BreakInterval{}).
			Where("id = ?", brk.ID).
			Updates(map[string]interface{}{"end_time": now, "total_minutes": minutes}).Error; err != nil {
			return nil, fmt.Errorf("failed to force-close break: %w", err)
		}
	}

	hours := TotalHours(entry.CheckIn, now)
	if err := db.Model(&models.TimetrackEntry{}).
		Where("id = ?", entry.ID).
		Updates(map[string]interface{}{"check_out": now, "total_hours": hours}).Error; err != nil {
		return nil, fmt.Errorf("failed to close entry: %w", err)
	}
	entry.CheckOut = &now
	entry.TotalHours = &hours
	return entry, nil
}

type ManualEntryInput struct {
	ProjectID int32
	CheckIn   time.Time
	CheckOut  time.Time
	Reason    string
}

// ValidateManualEntry holds the guards for retroactive entries: the range
// must be strictly positive and the reason non-empty.
func ValidateManualEntry(in ManualEntryInput) error {
	if !in.CheckOut.After(in.CheckIn) {
		return ErrInvalidRange
	}
	if in.Reason == "" {
		return ErrMissingReason
	}
	return nil
}

// SubmitManualEntry creates a closed, unapproved entry independent of the
// live session cycle. Nothing is persisted when a guard fails.
func (a *TimeAccount) SubmitManualEntry(db *gorm.DB, in ManualEntryInput) (*models.TimetrackEntry, error) {
	if err := ValidateManualEntry(in); err != nil {
		return nil, err
	}

	hours := TotalHours(in.CheckIn, in.CheckOut)
	day := utils.DayOf(in.CheckIn)
	entry := &models.TimetrackEntry{
		WorkerID:          a.WorkerID,
		ProjectID:         &in.ProjectID,
		CheckIn:           in.CheckIn,
		CheckOut:          &in.CheckOut,
		TotalHours:        &hours,
		Date:              day,
		ManualEntry:       true,
		ManualEntryReason: &in.Reason,
	}
	if err := db.Create(entry).Error; err != nil {
		return nil, fmt.Errorf("failed to create manual entry: %w", err)
	}
	return entry, nil
}

// ApproveManualEntry records the approver on a pending manual entry.
func ApproveManualEntry(db *gorm.DB, entryID, approverID int32) error {
	entry, err := loadEntry(db, entryID)
	if err != nil {
		return err
	}
	if !entry.ManualEntry {
		return ErrNotManual
	}
	if entry.ApprovedBy != nil {
		return ErrAlreadyApproved
	}
	if entry.Rejected {
		return ErrAlreadyRejected
	}
	if err := db.Model(&models.TimetrackEntry{}).
		Where("id = ?", entryID).
		Update("approved_by", approverID).Error; err != nil {
		return fmt.Errorf("failed to approve entry: %w", err)
	}
	return nil
}

// RejectManualEntry marks a pending manual entry as rejected. The row is kept
// for audit rather than deleted.
func RejectManualEntry(db *gorm.DB, entryID int32) error {
	entry, err := loadEntry(db, entryID)
	if err != nil {
		return err
	}
	if !entry.ManualEntry {
		return ErrNotManual
	}
	if entry.ApprovedBy != nil {
		return ErrAlreadyApproved
	}
	if entry.Rejected {
		return ErrAlreadyRejected
	}
	if err := db.Model(&models.TimetrackEntry{}).
		Where("id = ?", entryID).
		Update("rejected", true).Error; err != nil {
		return fmt.Errorf("failed to reject entry: %w", err)
	}
	return nil
}

func loadEntry(db *gorm.DB, entryID int32) (*models.TimetrackEntry, error) {
	var entry models.TimetrackEntry
	if err := db.First(&entry, entryID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEntryNotFound
		}
		return nil, fmt.Errorf("failed to load entry: %w", err)
	}
	return &entry, nil
}

func openEntry(db *gorm.DB, workerID int32) (*models.TimetrackEntry, error) {
	var entry models.TimetrackEntry
	err := db.Where("worker_id = ? AND check_out IS NULL", workerID).
		Order("check_in DESC").
		First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load open entry: %w", err)
	}
	return &entry, nil
}

func openBreak(db *gorm.DB, entryID int32) (*models.BreakInterval, error) {
	var brk models.BreakInterval
	err := db.Where("timetrack_id = ? AND end_time IS NULL", entryID).
		Order("start_time DESC").
		First(&brk).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load open break: %w", err)
	}
	return &brk, nil
}
