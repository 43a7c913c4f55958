package main

import (
	"context"
	"encoding/base64"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/gin-gonic/gin"

	"timetrack.app/timetrack/config"
	dbase "timetrack.app/timetrack/core"
	"timetrack.app/timetrack/migrate"
	ttcore "timetrack.app/timetrack/timetrack/core"
	"timetrack.app/timetrack/timetrack/monitor"
	"timetrack.app/timetrack/timetrack/web/handlers"
	"timetrack.app/timetrack/web/middlewares"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	if err := migrate.Run(context.Background(), cfg.Database.DSN, logger); err != nil {
		log.Fatal("migrations failed: ", err)
	}

	dm, err := dbase.New(cfg.Database.DSN, cfg.Database.MaxConnections)
	if err != nil {
		log.Fatal(err)
	}
	defer dm.Close()

	jwtSecret, err := base64.StdEncoding.DecodeString(cfg.Auth.SigningSecret)
	if err != nil {
		log.Fatal("failed to decode JWT secret: ", err)
	}

	probe := monitor.NewLocationProbe(cfg.Monitoring.GeoBaseURL, logger)
	coord := monitor.NewCoordinator(&ttcore.MonitorLedger{Dm: dm}, probe, monitor.Config{
		Window:          time.Duration(cfg.Monitoring.WindowSeconds) * time.Second,
		LocationCadence: time.Duration(cfg.Monitoring.LocationCadenceMinutes) * time.Minute,
	}, logger)

	// Entries left open by a previous process keep being monitored.
	if err := coord.Resume(context.Background()); err != nil {
		logger.Warn("failed to resume monitoring sessions", slog.Any("error", err))
	}

	r := gin.Default()
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"message": "pong",
		})
	})

	r.POST("/api/auth/login", handlers.LoginHandler(dm, cfg.Auth.SigningSecret, cfg.Auth.TokenTTLSeconds))

	protected := r.Group("/api/v1")
	protected.Use(middlewares.Authentication(jwtSecret))
	{
		protected.POST("/timetrack/checkin", handlers.CheckInHandler(dm, coord, probe))
		protected.POST("/timetrack/checkout", handlers.CheckOutHandler(dm, coord))
		protected.POST("/timetrack/breaks/start", handlers.StartBreakHandler(dm))
		protected.POST("/timetrack/breaks/end", handlers.EndBreakHandler(dm))
		protected.GET("/timetrack/status", handlers.StatusHandler(dm))
		protected.POST("/timetrack/manual", handlers.ManualEntryHandler(dm))
		protected.GET("/timetrack/history", handlers.HistoryHandler(dm))

		protected.GET("/projects", handlers.ActiveProjectsHandler(dm))

		protected.POST("/monitoring/events", handlers.ActivityEventHandler(coord))
		protected.GET("/monitoring/live", handlers.LiveLevelHandler(coord))
		protected.GET("/monitoring/activity/today", handlers.TodayActivityHandler(dm))
		protected.PUT("/monitoring/consent", handlers.UpdateConsentHandler(dm))

		admin := protected.Group("")
		admin.Use(middlewares.RequireAdmin())
		{
			admin.POST("/workers", handlers.RegisterWorkerHandler(dm))
			admin.GET("/workers/status", handlers.AllWorkersStatusHandler(dm))
			admin.GET("/reports/weekly", handlers.WeeklyReportHandler(dm))
			admin.GET("/timetrack/pending", handlers.PendingApprovalsHandler(dm))
			admin.POST("/timetrack/:entryId/approve", handlers.ApproveEntryHandler(dm))
			admin.POST("/timetrack/:entryId/reject", handlers.RejectEntryHandler(dm))
			admin.GET("/monitoring/activity/:entryId", handlers.ActivityHistoryHandler(dm))
			admin.GET("/monitoring/activity/:entryId/stats", handlers.ActivityStatsHandler(dm))
			admin.GET("/monitoring/location/:entryId", handlers.LocationHistoryHandler(dm))
		}
	}

	if err := r.Run(cfg.Server.Addr); err != nil {
		log.Fatal(err)
	}
}
