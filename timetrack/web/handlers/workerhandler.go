package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-sql-driver/mysql"
	"gorm.io/gorm"

	dbase "timetrack.app/timetrack/core"
	"timetrack.app/timetrack/core/models"
	"timetrack.app/timetrack/security"
	"timetrack.app/timetrack/web/common"
)

type RegisterWorkerRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required,min=8"`
	FullName string `json:"fullName" binding:"required"`
	Role     string `json:"role" binding:"omitempty,oneof=admin collaborator"`
}

// RegisterWorkerHandler creates a worker account. Admin-only by route
// middleware. Consent flags start off and the worker opts in themselves.
func RegisterWorkerHandler(dm *dbase.DatabaseManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req RegisterWorkerRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, common.NewErrorResponse(common.FormatBindingError(err)))
			return
		}

		hash, err := security.HashPassword(req.Password)
		if err != nil {
			c.JSON(http.StatusInternalServerError, common.NewErrorResponse(err.Error()))
			return
		}

		role := models.RoleCollaborator
		if req.Role == string(models.RoleAdmin) {
			role = models.RoleAdmin
		}

		worker := models.Worker{
			Username: req.Username,
			Password: hash,
			FullName: req.FullName,
			Role:     role,
		}
		if err := dm.Exec(c.Request.Context(), func(db *gorm.DB) error {
			return db.Create(&worker).Error
		}); err != nil {
			var mysqlErr *mysql.MySQLError
			if errors.As(err, &mysqlErr) && mysqlErr.Number == 1062 {
				c.JSON(http.StatusConflict, common.NewGuardErrorResponse("USERNAME_TAKEN", "username already exists"))
				return
			}
			c.JSON(http.StatusInternalServerError, common.NewErrorResponse(err.Error()))
			return
		}

		c.JSON(http.StatusCreated, common.NewSuccessResponse(worker))
	}
}

// ActiveProjectsHandler lists the projects a worker may check in against,
// with their tasks preloaded.
func ActiveProjectsHandler(dm *dbase.DatabaseManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		var projects []models.Project
		err := dm.Exec(c.Request.Context(), func(db *gorm.DB) error {
			return db.Where("is_active = ?", true).Order("name").Find(&projects).Error
		})
		if err != nil {
			c.JSON(http.StatusInternalServerError, common.NewErrorResponse(err.Error()))
			return
		}

		c.JSON(http.StatusOK, common.NewSuccessResponse(projects))
	}
}
