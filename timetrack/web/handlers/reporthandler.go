package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	dbase "timetrack.app/timetrack/core"
	ttcore "timetrack.app/timetrack/timetrack/core"
	"timetrack.app/timetrack/web/common"
	"timetrack.app/timetrack/web/middlewares"
)

// AllWorkersStatusHandler returns every collaborator with their latest entry
// for today, for the admin dashboard.
func AllWorkersStatusHandler(dm *dbase.DatabaseManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		var rows []ttcore.WorkerStatusRow
		err := dm.Exec(c.Request.Context(), func(db *gorm.DB) error {
			r, err := ttcore.AllWorkersStatus(db)
			if err != nil {
				return err
			}
			rows = r
			return nil
		})
		if err != nil {
			c.JSON(http.StatusInternalServerError, common.NewErrorResponse(err.Error()))
			return
		}

		c.JSON(http.StatusOK, common.NewSuccessResponse(rows))
	}
}

// HistoryHandler lists the authenticated worker's own entries over the last
// N days (default 7, capped at 90).
func HistoryHandler(dm *dbase.DatabaseManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := middlewares.GetIdentity(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, common.NewErrorResponse("not authenticated"))
			return
		}

		days := 7
		if raw := c.Query("days"); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil || parsed < 1 {
				c.JSON(http.StatusBadRequest, common.NewErrorResponse("days must be a positive integer"))
				return
			}
			days = parsed
		}
		if days > 90 {
			days = 90
		}

		var rows []ttcore.HistoryRow
		err := dm.Exec(c.Request.Context(), func(db *gorm.DB) error {
			r, err := ttcore.History(db, identity.ID, days)
			if err != nil {
				return err
			}
			rows = r
			return nil
		})
		if err != nil {
			c.JSON(http.StatusInternalServerError, common.NewErrorResponse(err.Error()))
			return
		}

		c.JSON(http.StatusOK, common.NewSearchResponse(rows, int64(len(rows))))
	}
}

// WeeklyReportHandler aggregates the current week's hours per worker, project
// and day. An optional workerId query narrows it to one worker; zero means
// everyone.
func WeeklyReportHandler(dm *dbase.DatabaseManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		var workerID int32
		if raw := c.Query("workerId"); raw != "" {
			parsed, err := strconv.ParseInt(raw, 10, 32)
			if err != nil {
				c.JSON(http.StatusBadRequest, common.NewErrorResponse("invalid workerId"))
				return
			}
			workerID = int32(parsed)
		}

		var entries []ttcore.WeeklyEntry
		err := dm.Exec(c.Request.Context(), func(db *gorm.DB) error {
			e, err := ttcore.WeeklyEntries(db, workerID)
			if err != nil {
				return err
			}
			entries = e
			return nil
		})
		if err != nil {
			c.JSON(http.StatusInternalServerError, common.NewErrorResponse(err.Error()))
			return
		}

		c.JSON(http.StatusOK, common.NewSuccessResponse(ttcore.BuildWeeklyReport(entries)))
	}
}

func PendingApprovalsHandler(dm *dbase.DatabaseManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		var rows []ttcore.PendingRow
		err := dm.Exec(c.Request.Context(), func(db *gorm.DB) error {
			r, err := ttcore.PendingApprovals(db)
			if err != nil {
				return err
			}
			rows = r
			return nil
		})
		if err != nil {
			c.JSON(http.StatusInternalServerError, common.NewErrorResponse(err.Error()))
			return
		}

		c.JSON(http.StatusOK, common.NewSuccessResponse(rows))
	}
}
