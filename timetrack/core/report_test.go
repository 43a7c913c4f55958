package core

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"timetrack.app/timetrack/utils"
)

func TestBuildWeeklyReport(t *testing.T) {
	t.Run("Empty input", func(t *testing.T) {
		assert.Empty(t, BuildWeeklyReport(nil))
	})

	t.Run("Lunch break reduces effective hours", func(t *testing.T) {
		rows := BuildWeeklyReport([]WeeklyEntry{
			{WorkerID: 1, FullName: "Ana Silva", ProjectName: "General", Day: "2025-03-10", TotalHours: utils.Ptr(8.0), BreakMinutes: 30},
		})

		assert.Len(t, rows, 1)
		assert.Equal(t, 8.0, rows[0].GrossHours)
		assert.InDelta(t, 0.5, rows[0].BreakHours, 1e-9)
		assert.InDelta(t, 7.5, rows[0].EffectiveHours, 1e-9)
	})

	t.Run("Two entries same day same project are summed", func(t *testing.T) {
		rows := BuildWeeklyReport([]WeeklyEntry{
			{WorkerID: 1, FullName: "Ana Silva", ProjectName: "General", Day: "2025-03-10", TotalHours: utils.Ptr(4.0), BreakMinutes: 15},
			{WorkerID: 1, FullName: "Ana Silva", ProjectName: "General", Day: "2025-03-10", TotalHours: utils.Ptr(3.0), BreakMinutes: 0},
		})

		assert.Len(t, rows, 1)
		assert.Equal(t, 7.0, rows[0].GrossHours)
		assert.InDelta(t, 0.25, rows[0].BreakHours, 1e-9)
		assert.InDelta(t, 6.75, rows[0].EffectiveHours, 1e-9)
	})

	t.Run("Open entry contributes only breaks", func(t *testing.T) {
		rows := BuildWeeklyReport([]WeeklyEntry{
			{WorkerID: 1, FullName: "Ana Silva", ProjectName: "General", Day: "2025-03-10", TotalHours: nil, BreakMinutes: 60},
		})

		assert.Len(t, rows, 1)
		assert.Equal(t, 0.0, rows[0].GrossHours)
		assert.InDelta(t, 1.0, rows[0].BreakHours, 1e-9)
		assert.InDelta(t, -1.0, rows[0].EffectiveHours, 1e-9)
	})

	t.Run("Sorted by name then day then project", func(t *testing.T) {
		rows := BuildWeeklyReport([]WeeklyEntry{
			{WorkerID: 2, FullName: "Bruno Costa", ProjectName: "Internal", Day: "2025-03-10", TotalHours: utils.Ptr(6.0)},
			{WorkerID: 1, FullName: "Ana Silva", ProjectName: "Internal", Day: "2025-03-11", TotalHours: utils.Ptr(2.0)},
			{WorkerID: 1, FullName: "Ana Silva", ProjectName: "General", Day: "2025-03-11", TotalHours: utils.Ptr(5.0)},
			{WorkerID: 1, FullName: "Ana Silva", ProjectName: "General", Day: "2025-03-10", TotalHours: utils.Ptr(8.0)},
		})

		assert.Len(t, rows, 4)
		assert.Equal(t, "2025-03-10", rows[0].Day)
		assert.Equal(t, "Ana Silva", rows[0].FullName)
		assert.Equal(t, "General", rows[1].ProjectName)
		assert.Equal(t, "2025-03-11", rows[1].Day)
		assert.Equal(t, "Internal", rows[2].ProjectName)
		assert.Equal(t, "Bruno Costa", rows[3].FullName)
	})
}
