package core

import (
	"sort"

	"timetrack.app/timetrack/utils"
)

// WeeklyEntry is one flat closed-entry row as fetched by WeeklyEntries.
type WeeklyEntry struct {
	WorkerID     int32    `gorm:"column:worker_id" json:"workerId"`
	FullName     string   `gorm:"column:full_name" json:"fullName"`
	ProjectName  string   `gorm:"column:project_name" json:"projectName"`
	Day          string   `gorm:"column:day" json:"day"`
	TotalHours   *float64 `gorm:"column:total_hours" json:"totalHours"`
	BreakMinutes int32    `gorm:"column:break_minutes" json:"breakMinutes"`
}

// WeeklyReportRow is one (worker, project, day) aggregate.
type WeeklyReportRow struct {
	WorkerID       int32   `json:"workerId"`
	FullName       string  `json:"fullName"`
	ProjectName    string  `json:"projectName"`
	Day            string  `json:"day"`
	GrossHours     float64 `json:"grossHours"`
	BreakHours     float64 `json:"breakHours"`
	EffectiveHours float64 `json:"effectiveHours"`
}

type reportKey struct {
	workerID int32
	project  string
	day      string
}

// BuildWeeklyReport groups flat entry rows by (worker, project, day) and
// derives effectiveHours = grossHours - breakHours.
func BuildWeeklyReport(entries []WeeklyEntry) []WeeklyReportRow {
	groups := utils.GroupBy(entries, func(e WeeklyEntry) reportKey {
		return reportKey{workerID: e.WorkerID, project: e.ProjectName, day: e.Day}
	})

	rows := make([]WeeklyReportRow, 0, len(groups))
	for key, group := range groups {
		row := WeeklyReportRow{
			WorkerID:    key.workerID,
			FullName:    group[0].FullName,
			ProjectName: key.project,
			Day:         key.day,
		}
		for _, e := range group {
			if e.TotalHours != nil {
				row.GrossHours += *e.TotalHours
			}
			row.BreakHours += float64(e.BreakMinutes) / 60
		}
		row.EffectiveHours = row.GrossHours - row.BreakHours
		rows = append(rows, row)
	}

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].FullName != rows[j].FullName {
			return rows[i].FullName < rows[j].FullName
		}
		if rows[i].Day != rows[j].Day {
			return rows[i].Day < rows[j].Day
		}
		return rows[i].ProjectName < rows[j].ProjectName
	})
	return rows
}
