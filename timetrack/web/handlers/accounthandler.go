package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	dbase "timetrack.app/timetrack/core"
	"timetrack.app/timetrack/core/models"
	ttcore "timetrack.app/timetrack/timetrack/core"
	"timetrack.app/timetrack/timetrack/monitor"
	"timetrack.app/timetrack/web/common"
	"timetrack.app/timetrack/web/middlewares"
)

// CheckInHandler opens a working session for the authenticated worker and
// attaches monitoring for it. The location fix recorded on the entry is
// whatever the probe has cached; check-in never blocks on geolocation.
func CheckInHandler(dm *dbase.DatabaseManager, coord *monitor.Coordinator, probe *monitor.LocationProbe) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := middlewares.GetIdentity(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, common.NewErrorResponse("not authenticated"))
			return
		}

		var req CheckInRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, common.NewErrorResponse(common.FormatBindingError(err)))
			return
		}

		var entry *models.TimetrackEntry
		var worker models.Worker
		err := dm.Exec(c.Request.Context(), func(db *gorm.DB) error {
			if err := db.First(&worker, identity.ID).Error; err != nil {
				return err
			}

			opts := ttcore.CheckInOptions{ProjectID: req.ProjectID, TaskID: req.TaskID}
			if worker.LocationTrackingConsent {
				if fix, _ := probe.CachedLocation(); fix != nil {
					opts.Lat = &fix.Lat
					opts.Lng = &fix.Lon
				}
			}

			account := ttcore.NewTimeAccount(identity.ID)
			created, err := account.CheckIn(db, opts)
			if err != nil {
				return err
			}
			entry = created
			return nil
		})
		if err != nil {
			writeDomainError(c, err)
			return
		}

		if err := coord.Attach(c.Request.Context(), monitor.Attachment{
			WorkerID:        identity.ID,
			EntryID:         entry.ID,
			ActivityConsent: worker.ActivityTrackingConsent,
			LocationConsent: worker.LocationTrackingConsent,
		}); err != nil {
			c.JSON(http.StatusInternalServerError, common.NewErrorResponse(err.Error()))
			return
		}

		c.JSON(http.StatusOK, common.NewSuccessResponse(entry))
	}
}

// CheckOutHandler detaches monitoring first so the final activity window and
// location fix land on the entry while it is still open, then closes it.
func CheckOutHandler(dm *dbase.DatabaseManager, coord *monitor.Coordinator) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := middlewares.GetIdentity(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, common.NewErrorResponse("not authenticated"))
			return
		}

		coord.Detach(c.Request.Context(), identity.ID)

		var entry *models.TimetrackEntry
		err := dm.Exec(c.Request.Context(), func(db *gorm.DB) error {
			account := ttcore.NewTimeAccount(identity.ID)
			closed, err := account.CheckOut(db)
			if err != nil {
				return err
			}
			entry = closed
			return nil
		})
		if err != nil {
			// the entry may still be open; put its monitoring back
			if rerr := coord.Resume(c.Request.Context()); rerr != nil {
				slog.Warn("failed to restore monitoring after checkout failure",
					slog.Int("worker", int(identity.ID)), slog.String("error", rerr.Error()))
			}
			writeDomainError(c, err)
			return
		}

		c.JSON(http.StatusOK, common.NewSuccessResponse(entry))
	}
}

func StartBreakHandler(dm *dbase.DatabaseManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := middlewares.GetIdentity(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, common.NewErrorResponse("not authenticated"))
			return
		}

		var req StartBreakRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, common.NewErrorResponse(common.FormatBindingError(err)))
			return
		}

		breakType := models.BreakType(req.BreakType)
		switch breakType {
		case models.BreakLunch, models.BreakRest, models.BreakOther:
		case "":
			breakType = models.BreakRest
		default:
			c.JSON(http.StatusBadRequest, common.NewErrorResponse("breakType must be lunch, rest or other"))
			return
		}

		var interval *models.BreakInterval
		err := dm.Exec(c.Request.Context(), func(db *gorm.DB) error {
			account := ttcore.NewTimeAccount(identity.ID)
			started, err := account.StartBreak(db, breakType)
			if err != nil {
				return err
			}
			interval = started
			return nil
		})
		if err != nil {
			writeDomainError(c, err)
			return
		}

		c.JSON(http.StatusOK, common.NewSuccessResponse(interval))
	}
}

func EndBreakHandler(dm *dbase.DatabaseManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := middlewares.GetIdentity(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, common.NewErrorResponse("not authenticated"))
			return
		}

		var interval *models.BreakInterval
		err := dm.Exec(c.Request.Context(), func(db *gorm.DB) error {
			account := ttcore.NewTimeAccount(identity.ID)
			ended, err := account.EndBreak(db)
			if err != nil {
				return err
			}
			interval = ended
			return nil
		})
		if err != nil {
			writeDomainError(c, err)
			return
		}

		c.JSON(http.StatusOK, common.NewSuccessResponse(interval))
	}
}

func StatusHandler(dm *dbase.DatabaseManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := middlewares.GetIdentity(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, common.NewErrorResponse("not authenticated"))
			return
		}

		var status ttcore.Status
		err := dm.Exec(c.Request.Context(), func(db *gorm.DB) error {
			account := ttcore.NewTimeAccount(identity.ID)
			s, err := account.CurrentState(db)
			if err != nil {
				return err
			}
			status = s
			return nil
		})
		if err != nil {
			c.JSON(http.StatusInternalServerError, common.NewErrorResponse(err.Error()))
			return
		}

		c.JSON(http.StatusOK, common.NewSuccessResponse(gin.H{
			"state": status.State,
			"entry": status.Entry,
			"break": status.Break,
		}))
	}
}

func ManualEntryHandler(dm *dbase.DatabaseManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := middlewares.GetIdentity(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, common.NewErrorResponse("not authenticated"))
			return
		}

		var req ManualEntryRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, common.NewErrorResponse(common.FormatBindingError(err)))
			return
		}

		var entry *models.TimetrackEntry
		err := dm.Exec(c.Request.Context(), func(db *gorm.DB) error {
			account := ttcore.NewTimeAccount(identity.ID)
			created, err := account.SubmitManualEntry(db, ttcore.ManualEntryInput{
				ProjectID: req.ProjectID,
				CheckIn:   req.CheckIn.Time,
				CheckOut:  req.CheckOut.Time,
				Reason:    req.Reason,
			})
			if err != nil {
				return err
			}
			entry = created
			return nil
		})
		if err != nil {
			writeDomainError(c, err)
			return
		}

		c.JSON(http.StatusOK, common.NewSuccessResponse(entry))
	}
}

// ApproveEntryHandler is admin-only, enforced by route middleware.
func ApproveEntryHandler(dm *dbase.DatabaseManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := middlewares.GetIdentity(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, common.NewErrorResponse("not authenticated"))
			return
		}

		entryID, err := paramInt32(c, "entryId")
		if err != nil {
			c.JSON(http.StatusBadRequest, common.NewErrorResponse("invalid entry id"))
			return
		}

		if err := dm.Exec(c.Request.Context(), func(db *gorm.DB) error {
			return ttcore.ApproveManualEntry(db, entryID, identity.ID)
		}); err != nil {
			writeDomainError(c, err)
			return
		}

		c.JSON(http.StatusOK, common.NewSuccessResponse(gin.H{"approved": true}))
	}
}

func RejectEntryHandler(dm *dbase.DatabaseManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		entryID, err := paramInt32(c, "entryId")
		if err != nil {
			c.JSON(http.StatusBadRequest, common.NewErrorResponse("invalid entry id"))
			return
		}

		if err := dm.Exec(c.Request.Context(), func(db *gorm.DB) error {
			return ttcore.RejectManualEntry(db, entryID)
		}); err != nil {
			writeDomainError(c, err)
			return
		}

		c.JSON(http.StatusOK, common.NewSuccessResponse(gin.H{"rejected": true}))
	}
}
