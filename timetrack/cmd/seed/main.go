package main

import (
	"context"
	"log"
	"log/slog"
	"os"

	"gorm.io/gorm"

	"timetrack.app/timetrack/config"
	dbase "timetrack.app/timetrack/core"
	"timetrack.app/timetrack/core/models"
	"timetrack.app/timetrack/migrate"
	"timetrack.app/timetrack/security"
	"timetrack.app/timetrack/utils"
)

// Seeds the database with the default admin account and starter projects.
// Safe to run repeatedly: existing rows are left alone.
func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	ctx := context.Background()
	if err := migrate.Run(ctx, cfg.Database.DSN, logger); err != nil {
		log.Fatal("migrations failed: ", err)
	}

	dm, err := dbase.New(cfg.Database.DSN, 2)
	if err != nil {
		log.Fatal(err)
	}
	defer dm.Close()

	password := os.Getenv("TIMETRACK_ADMIN_PASSWORD")
	if password == "" {
		password = "admin123"
		logger.Warn("TIMETRACK_ADMIN_PASSWORD not set, using default password")
	}

	if err := dm.Exec(ctx, func(db *gorm.DB) error {
		if err := seedAdmin(db, password); err != nil {
			return err
		}
		return seedProjects(db)
	}); err != nil {
		log.Fatal(err)
	}

	logger.Info("seed complete")
}

func seedAdmin(db *gorm.DB, password string) error {
	var count int64
	if err := db.Model(&models.Worker{}).Where("username = ?", "admin").Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	hash, err := security.HashPassword(password)
	if err != nil {
		return err
	}
	return db.Create(&models.Worker{
		Username: "admin",
		Password: hash,
		FullName: "Administrator",
		Role:     models.RoleAdmin,
	}).Error
}

func seedProjects(db *gorm.DB) error {
	defaults := []models.Project{
		{Name: "General", Description: utils.Ptr("Unassigned work"), IsActive: true},
		{Name: "Internal", Description: utils.Ptr("Internal tooling and admin"), IsActive: true},
	}
	for _, p := range defaults {
		var count int64
		if err := db.Model(&models.Project{}).Where("name = ?", p.Name).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			continue
		}
		if err := db.Create(&p).Error; err != nil {
			return err
		}
	}
	return nil
}
