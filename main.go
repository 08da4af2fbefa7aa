package main

import (
	"context"

	"github.com/cajaoblatos/oblatos34/config"
	"github.com/cajaoblatos/oblatos34/models"
	"github.com/cajaoblatos/oblatos34/routes"
	"github.com/cajaoblatos/oblatos34/services"
	"github.com/cajaoblatos/oblatos34/utils"
)

func main() {
	cfg := config.Load()

	// Initialize logger early
	if err := utils.InitLogger(cfg); err != nil {
		panic(err)
	}

	db := config.InitDatabase(models.All()...)

	var source services.CalendarSource
	if cfg.GoogleCalendarID != "" {
		// the context backs token refreshes for the lifetime of the source
		gs, err := services.NewGoogleCalendarSource(context.Background(), cfg)
		if err != nil {
			utils.Sugar.Warnw("google calendar disabled", "error", err)
		} else {
			source = gs
		}
	}

	svc := routes.NewServices(db, cfg, source)
	r := routes.SetupRouter(db, svc)

	var onShutdown []func()
	if cfg.SchedulerEnabled {
		sched, err := services.NewScheduler(svc.Calendar, svc.Events, svc.Push, cfg.CalendarSyncInterval, cfg.EventReminderInterval)
		if err != nil {
			utils.Sugar.Fatalf("scheduler init failed: %v", err)
		}
		sched.Start()
		onShutdown = append(onShutdown, sched.Stop)
	}

	utils.Sugar.Infof("Starting server on port %s (graceful)", cfg.AppPort)
	if err := utils.GraceServer(":"+cfg.AppPort, r, onShutdown...); err != nil {
		utils.Sugar.Fatalf("server stopped with error: %v", err)
	}
}
