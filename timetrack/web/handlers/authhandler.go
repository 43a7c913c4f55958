package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	dbase "timetrack.app/timetrack/core"
	"timetrack.app/timetrack/core/models"
	"timetrack.app/timetrack/security"
	"timetrack.app/timetrack/web/common"
)

// LoginHandler verifies credentials and issues a signed identity token.
// Unknown username and wrong password return the same 401 body.
func LoginHandler(dm *dbase.DatabaseManager, base64Secret string, tokenTTLSeconds int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req LoginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, common.NewErrorResponse(common.FormatBindingError(err)))
			return
		}

		var worker models.Worker
		err := dm.Exec(c.Request.Context(), func(db *gorm.DB) error {
			return db.Where("username = ?", req.Username).First(&worker).Error
		})
		if err != nil || !security.CheckPassword(worker.Password, req.Password) {
			c.JSON(http.StatusUnauthorized, common.NewErrorResponse("invalid username or password"))
			return
		}

		token, err := security.CreateIdentityToken(&security.Identity{
			ID:       worker.WorkerID,
			Username: worker.Username,
			FullName: worker.FullName,
			Role:     string(worker.Role),
		}, base64Secret, tokenTTLSeconds)
		if err != nil {
			c.JSON(http.StatusInternalServerError, common.NewErrorResponse(err.Error()))
			return
		}

		c.JSON(http.StatusOK, common.NewSuccessResponse(LoginResponse{
			Token:    token,
			WorkerID: worker.WorkerID,
			FullName: worker.FullName,
			Role:     string(worker.Role),
		}))
	}
}
