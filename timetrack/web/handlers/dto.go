package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	ttcore "timetrack.app/timetrack/timetrack/core"
	"timetrack.app/timetrack/web/common"
)

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type LoginResponse struct {
	Token    string `json:"token"`
	WorkerID int32  `json:"workerId"`
	FullName string `json:"fullName"`
	Role     string `json:"role"`
}

type CheckInRequest struct {
	ProjectID int32  `json:"projectId" binding:"required"`
	TaskID    *int32 `json:"taskId"`
}

type StartBreakRequest struct {
	BreakType string `json:"breakType"`
}

type ManualEntryRequest struct {
	ProjectID int32                `json:"projectId" binding:"required"`
	CheckIn   common.LocalDateTime `json:"checkIn" binding:"required"`
	CheckOut  common.LocalDateTime `json:"checkOut" binding:"required"`
	Reason    string               `json:"reason"`
}

type ConsentRequest struct {
	ActivityConsent *bool `json:"activityConsent"`
	LocationConsent *bool `json:"locationConsent"`
}

// writeDomainError maps guard violations to 409 with a stable code, a
// missing entry to 404, and everything else to 500.
func writeDomainError(c *gin.Context, err error) {
	if errors.Is(err, ttcore.ErrEntryNotFound) {
		c.JSON(http.StatusNotFound, common.NewErrorResponse("entry not found"))
		return
	}
	var guard *ttcore.GuardError
	if errors.As(err, &guard) {
		c.JSON(http.StatusConflict, common.NewGuardErrorResponse(guard.Code, guard.Message))
		return
	}
	c.JSON(http.StatusInternalServerError, common.NewErrorResponse(err.Error()))
}

func paramInt32(c *gin.Context, name string) (int32, error) {
	v, err := strconv.ParseInt(c.Param(name), 10, 32)
	return int32(v), err
}
