package models

import "time"

type Role string

const (
	RoleAdmin        Role = "admin"
	RoleCollaborator Role = "collaborator"
)

type TaskStatus string

const (
	TaskPending    TaskStatus = "pending"
	TaskInProgress TaskStatus = "in_progress"
	TaskCompleted  TaskStatus = "completed"
)

type BreakType string

const (
	BreakLunch BreakType = "lunch"
	BreakRest  BreakType = "rest"
	BreakOther BreakType = "other"
)

type Worker struct {
	WorkerID                int32    `gorm:"primaryKey;column:id" json:"id"`
	Username                string   `gorm:"column:username;type:varchar(50);uniqueIndex;not null" json:"username"`
	Password                string   `gorm:"column:password;type:varchar(255);not null" json:"-"`
	FullName                string   `gorm:"column:full_name;type:varchar(100);not null" json:"fullName"`
	Role                    Role     `gorm:"column:role;type:enum('admin','collaborator');not null" json:"role"`
	HourlyRate              *float64 `gorm:"column:hourly_rate;type:decimal(10,2)" json:"hourlyRate,omitempty"`
	LocationTrackingConsent bool     `gorm:"column:location_tracking_consent;not null;default:false" json:"locationTrackingConsent"`
	ActivityTrackingConsent bool     `gorm:"column:activity_tracking_consent;not null;default:false" json:"activityTrackingConsent"`

	CreatedAt time.Time `gorm:"type:timestamp;not null;default:CURRENT_TIMESTAMP;<-:create" json:"createdAt"`
}

func (Worker) TableName() string {
	return "workers"
}

type Project struct {
	ProjectID   int32    `gorm:"primaryKey;column:id" json:"id"`
	Name        string   `gorm:"column:name;type:varchar(100);uniqueIndex;not null" json:"name"`
	Description *string  `gorm:"column:description;type:text" json:"description,omitempty"`
	HourlyRate  *float64 `gorm:"column:hourly_rate;type:decimal(10,2)" json:"hourlyRate,omitempty"`
	IsActive    bool     `gorm:"column:is_active;not null;default:true" json:"isActive"`

	CreatedAt time.Time `gorm:"type:timestamp;not null;default:CURRENT_TIMESTAMP;<-:create" json:"createdAt"`
}

func (Project) TableName() string {
	return "projects"
}

type Task struct {
	TaskID      int32      `gorm:"primaryKey;column:id" json:"id"`
	ProjectID   int32      `gorm:"column:project_id;not null;index" json:"projectId"`
	Name        string     `gorm:"column:name;type:varchar(200);not null" json:"name"`
	Description *string    `gorm:"column:description;type:text" json:"description,omitempty"`
	Status      TaskStatus `gorm:"column:status;type:enum('pending','in_progress','completed');not null;default:pending" json:"status"`

	CreatedAt time.Time `gorm:"type:timestamp;not null;default:CURRENT_TIMESTAMP;<-:create" json:"createdAt"`

	Project Project `gorm:"foreignKey:ProjectID;references:ProjectID" json:"-"`
}

func (Task) TableName() string {
	return "tasks"
}

// TimetrackEntry is one check-in-to-check-out span. CheckOut nil means the
// entry is still open; TotalHours is only set at check-out. Manual entries are
// created already closed and stay pending until ApprovedBy is set.
type TimetrackEntry struct {
	ID                int32      `gorm:"primaryKey;column:id" json:"id"`
	WorkerID          int32      `gorm:"column:worker_id;not null;index" json:"workerId"`
	ProjectID         *int32     `gorm:"column:project_id" json:"projectId,omitempty"`
	TaskID            *int32     `gorm:"column:task_id" json:"taskId,omitempty"`
	CheckIn           time.Time  `gorm:"column:check_in;type:datetime;not null" json:"checkIn"`
	CheckOut          *time.Time `gorm:"column:check_out;type:datetime" json:"checkOut,omitempty"`
	TotalHours        *float64   `gorm:"column:total_hours;type:decimal(5,2)" json:"totalHours,omitempty"`
	Date              time.Time  `gorm:"column:date;type:date;not null;index" json:"date"`
	LocationLat       *float64   `gorm:"column:location_lat;type:decimal(10,8)" json:"locationLat,omitempty"`
	LocationLng       *float64   `gorm:"column:location_lng;type:decimal(11,8)" json:"locationLng,omitempty"`
	ManualEntry       bool       `gorm:"column:manual_entry;not null;default:false" json:"manualEntry"`
	ManualEntryReason *string    `gorm:"column:manual_entry_reason;type:text" json:"manualEntryReason,omitempty"`
	ApprovedBy        *int32     `gorm:"column:approved_by" json:"approvedBy,omitempty"`
	Rejected          bool       `gorm:"column:rejected;not null;default:false" json:"rejected"`

	CreatedAt time.Time `gorm:"type:timestamp;not null;default:CURRENT_TIMESTAMP;<-:create" json:"createdAt"`

	Worker  Worker   `gorm:"foreignKey:WorkerID;references:WorkerID" json:"-"`
	Project *Project `gorm:"foreignKey:ProjectID;references:ProjectID" json:"-"`
	Task    *Task    `gorm:"foreignKey:TaskID;references:TaskID" json:"-"`
}

func (TimetrackEntry) TableName() string {
	return "timetrack_entries"
}

// BreakInterval nests inside an open TimetrackEntry. EndTime nil means the
// break is still running; TotalMinutes is derived at close.
type BreakInterval struct {
	ID           int32      `gorm:"primaryKey;column:id" json:"id"`
	TimetrackID  int32      `gorm:"column:timetrack_id;not null;index" json:"timetrackId"`
	StartTime    time.Time  `gorm:"column:start_time;type:datetime;not null" json:"startTime"`
	EndTime      *time.Time `gorm:"column:end_time;type:datetime" json:"endTime,omitempty"`
	BreakType    BreakType  `gorm:"column:break_type;type:enum('lunch','rest','other');not null" json:"breakType"`
	TotalMinutes *int32     `gorm:"column:total_minutes" json:"totalMinutes,omitempty"`

	CreatedAt time.Time `gorm:"type:timestamp;not null;default:CURRENT_TIMESTAMP;<-:create" json:"createdAt"`

	Entry TimetrackEntry `gorm:"foreignKey:TimetrackID;references:ID" json:"-"`
}

func (BreakInterval) TableName() string {
	return "break_intervals"
}

// ActivityReading is an append-only sample; rows are never mutated after insert.
type ActivityReading struct {
	ID            int32     `gorm:"primaryKey;column:id" json:"id"`
	TimetrackID   int32     `gorm:"column:timetrack_id;not null;index" json:"timetrackId"`
	Timestamp     time.Time `gorm:"column:timestamp;type:datetime;not null" json:"timestamp"`
	ActivityLevel int       `gorm:"column:activity_level;not null" json:"activityLevel"`

	CreatedAt time.Time `gorm:"type:timestamp;not null;default:CURRENT_TIMESTAMP;<-:create" json:"createdAt"`

	Entry TimetrackEntry `gorm:"foreignKey:TimetrackID;references:ID" json:"-"`
}

func (ActivityReading) TableName() string {
	return "activity_readings"
}

// LocationSample is an append-only coarse position fix tied to an entry.
type LocationSample struct {
	ID          int32     `gorm:"primaryKey;column:id" json:"id"`
	TimetrackID int32     `gorm:"column:timetrack_id;not null;index" json:"timetrackId"`
	Timestamp   time.Time `gorm:"column:timestamp;type:datetime;not null" json:"timestamp"`
	Latitude    float64   `gorm:"column:latitude;type:decimal(10,8);not null" json:"latitude"`
	Longitude   float64   `gorm:"column:longitude;type:decimal(11,8);not null" json:"longitude"`
	Place       *string   `gorm:"column:place;type:varchar(200)" json:"place,omitempty"`

	CreatedAt time.Time `gorm:"type:timestamp;not null;default:CURRENT_TIMESTAMP;<-:create" json:"createdAt"`

	Entry TimetrackEntry `gorm:"foreignKey:TimetrackID;references:ID" json:"-"`
}

func (LocationSample) TableName() string {
	return "location_samples"
}
