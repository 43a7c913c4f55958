package handlers

import (
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

// ActivityEventHandler is the input-event ping. Clients post one whenever the
// worker produces input; the sampler aggregates them into per-window levels.
// A 204 means counted, a 409 means no sampler is running for this worker.
func ActivityEventHandler(coord *monitor.Coordinator) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := middlewares.GetIdentity(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, common.NewErrorResponse("not authenticated"))
			return
		}

		if !coord.RecordEvent(identity.ID) {
			c.JSON(http.StatusConflict, common.NewGuardErrorResponse("NOT_MONITORED", "no active monitoring session"))
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// LiveLevelHandler peeks at the current window without consuming it.
func LiveLevelHandler(coord *monitor.Coordinator) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := middlewares.GetIdentity(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, common.NewErrorResponse("not authenticated"))
			return
		}

		level, running := coord.LiveLevel(identity.ID)
		c.JSON(http.StatusOK, common.NewSuccessResponse(gin.H{
			"level":   level,
			"running": running,
		}))
	}
}

func ActivityHistoryHandler(dm *dbase.DatabaseManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		entryID, err := paramInt32(c, "entryId")
		if err != nil {
			c.JSON(http.StatusBadRequest, common.NewErrorResponse("invalid entry id"))
			return
		}

		var readings []models.ActivityReading
		err = dm.Exec(c.Request.Context(), func(db *gorm.DB) error {
			r, err := ttcore.ActivityHistory(db, entryID)
			if err != nil {
				return err
			}
			readings = r
			return nil
		})
		if err != nil {
			c.JSON(http.StatusInternalServerError, common.NewErrorResponse(err.Error()))
			return
		}

		c.JSON(http.StatusOK, common.NewSuccessResponse(readings))
	}
}

func ActivityStatsHandler(dm *dbase.DatabaseManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		entryID, err := paramInt32(c, "entryId")
		if err != nil {
			c.JSON(http.StatusBadRequest, common.NewErrorResponse("invalid entry id"))
			return
		}

		var stats ttcore.ActivityStatsRow
		err = dm.Exec(c.Request.Context(), func(db *gorm.DB) error {
			s, err := ttcore.ActivityStats(db, entryID)
			if err != nil {
				return err
			}
			stats = s
			return nil
		})
		if err != nil {
			c.JSON(http.StatusInternalServerError, common.NewErrorResponse(err.Error()))
			return
		}

		c.JSON(http.StatusOK, common.NewSuccessResponse(stats))
	}
}

// TodayActivityHandler returns the authenticated worker's own readings for
// the current date across all of today's entries.
func TodayActivityHandler(dm *dbase.DatabaseManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := middlewares.GetIdentity(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, common.NewErrorResponse("not authenticated"))
			return
		}

		var readings []models.ActivityReading
		err := dm.Exec(c.Request.Context(), func(db *gorm.DB) error {
			r, err := ttcore.TodayActivity(db, identity.ID)
			if err != nil {
				return err
			}
			readings = r
			return nil
		})
		if err != nil {
			c.JSON(http.StatusInternalServerError, common.NewErrorResponse(err.Error()))
			return
		}

		c.JSON(http.StatusOK, common.NewSuccessResponse(readings))
	}
}

func LocationHistoryHandler(dm *dbase.DatabaseManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		entryID, err := paramInt32(c, "entryId")
		if err != nil {
			c.JSON(http.StatusBadRequest, common.NewErrorResponse("invalid entry id"))
			return
		}

		var samples []models.LocationSample
		err = dm.Exec(c.Request.Context(), func(db *gorm.DB) error {
			s, err := ttcore.LocationHistory(db, entryID)
			if err != nil {
				return err
			}
			samples = s
			return nil
		})
		if err != nil {
			c.JSON(http.StatusInternalServerError, common.NewErrorResponse(err.Error()))
			return
		}

		c.JSON(http.StatusOK, common.NewSuccessResponse(samples))
	}
}

// UpdateConsentHandler flips the worker's own consent flags. A running
// sampler notices revocation on its next window, so nothing is torn down
// here.
func UpdateConsentHandler(dm *dbase.DatabaseManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := middlewares.GetIdentity(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, common.NewErrorResponse("not authenticated"))
			return
		}

		var req ConsentRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, common.NewErrorResponse(common.FormatBindingError(err)))
			return
		}
		if req.ActivityConsent == nil && req.LocationConsent == nil {
			c.JSON(http.StatusBadRequest, common.NewErrorResponse("nothing to update"))
			return
		}

		var activity, location bool
		err := dm.Exec(c.Request.Context(), func(db *gorm.DB) error {
			if err := ttcore.UpdateConsent(db, identity.ID, req.ActivityConsent, req.LocationConsent); err != nil {
				return err
			}
			var err error
			activity, location, err = ttcore.Consents(db, identity.ID)
			return err
		})
		if err != nil {
			c.JSON(http.StatusInternalServerError, common.NewErrorResponse(err.Error()))
			return
		}

		c.JSON(http.StatusOK, common.NewSuccessResponse(gin.H{
			"activityConsent": activity,
			"locationConsent": location,
		}))
	}
}
