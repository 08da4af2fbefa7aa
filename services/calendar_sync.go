package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/cajaoblatos/oblatos34/models"
	"github.com/cajaoblatos/oblatos34/utils"
)

const (
	syncHorizon     = 30 * 24 * time.Hour
	staleSyncMaxAge = 30 * 24 * time.Hour
	untitledEvent   = "Sin título"
)

// SyncReport summarises one synchronisation run.
type SyncReport struct {
	RunID   string   `json:"run_id"`
	Synced  int      `json:"synced"`
	Updated int      `json:"updated"`
	Deleted int64    `json:"deleted"`
	Errors  []string `json:"errors"`
	Total   int      `json:"total"`
}

// CalendarSyncService mirrors remote calendar events into the eventos table.
type CalendarSyncService struct {
	db     *gorm.DB
	source CalendarSource
	now    func() time.Time
}

func NewCalendarSyncService(db *gorm.DB, source CalendarSource) *CalendarSyncService {
	return &CalendarSyncService{db: db, source: source, now: time.Now}
}

// Sync upserts the events of the next 30 days keyed on their remote id, then deletes synced events
// that have not been seen for 30 days. A failing event is reported and does not stop the run.
func (s *CalendarSyncService) Sync(ctx context.Context) (*SyncReport, error) {
	report := &SyncReport{RunID: uuid.NewString(), Errors: []string{}}
	if s.source == nil {
		utils.CalendarSyncRuns.WithLabelValues("failed").Inc()
		return nil, ErrCalendarNotConfigured
	}
	now := s.now()
	log := utils.Sugar.With("run_id", report.RunID)
	log.Infow("calendar sync started")

	remote, err := s.source.ListEvents(ctx, now, now.Add(syncHorizon))
	if err != nil {
		utils.CalendarSyncRuns.WithLabelValues("failed").Inc()
		log.Errorw("calendar sync failed", "error", err)
		return nil, err
	}
	report.Total = len(remote)

	for _, ev := range remote {
		created, err := s.upsert(ctx, ev, now)
		if err != nil {
			title := ev.Summary
			if title == "" {
				title = untitledEvent
			}
			msg := fmt.Sprintf("event %q (%s): %v", title, ev.ID, err)
			report.Errors = append(report.Errors, msg)
			log.Warnw("calendar event skipped", "google_event_id", ev.ID, "error", err)
			continue
		}
		if created {
			report.Synced++
		} else {
			report.Updated++
		}
	}

	res := s.db.WithContext(ctx).
		Where("google_event_id IS NOT NULL AND last_sync_at < ?", now.Add(-staleSyncMaxAge)).
		Delete(&models.Event{})
	if res.Error != nil {
		report.Errors = append(report.Errors, fmt.Sprintf("stale cleanup: %v", res.Error))
	} else {
		report.Deleted = res.RowsAffected
	}

	outcome := "ok"
	if len(report.Errors) > 0 {
		outcome = "partial"
	}
	utils.CalendarSyncRuns.WithLabelValues(outcome).Inc()
	log.Infow("calendar sync finished",
		"synced", report.Synced, "updated", report.Updated, "deleted", report.Deleted, "errors", len(report.Errors))
	return report, nil
}

func (s *CalendarSyncService) upsert(ctx context.Context, ev CalendarEvent, now time.Time) (bool, error) {
	if strings.TrimSpace(ev.ID) == "" {
		return false, errors.New("missing event id")
	}
	if ev.Start.IsZero() {
		return false, errors.New("missing start time")
	}
	title := utils.SanitizeText(ev.Summary)
	if title == "" {
		title = untitledEvent
	}
	googleID := ev.ID
	syncedAt := now

	db := s.db.WithContext(ctx)
	var existing models.Event
	err := db.Where("google_event_id = ?", googleID).First(&existing).Error
	switch {
	case err == nil:
		return false, db.Model(&existing).Updates(map[string]interface{}{
			"titulo":         title,
			"descripcion":    utils.Sanitize(ev.Description),
			"fecha_inicio":   ev.Start,
			"fecha_fin":      ev.End,
			"ubicacion":      utils.SanitizeText(ev.Location),
			"es_todo_el_dia": ev.AllDay,
			"last_sync_at":   syncedAt,
			"sync_status":    models.SyncStatusSynced,
		}).Error
	case errors.Is(err, gorm.ErrRecordNotFound):
		row := models.Event{
			Title:         title,
			Description:   utils.Sanitize(ev.Description),
			StartAt:       ev.Start,
			EndAt:         ev.End,
			Location:      utils.SanitizeText(ev.Location),
			Category:      DefaultEventCategory,
			AllDay:        ev.AllDay,
			GoogleEventID: &googleID,
			LastSyncAt:    &syncedAt,
			SyncStatus:    models.SyncStatusSynced,
			NotifyEnabled: true,
		}
		return true, db.Create(&row).Error
	default:
		return false, err
	}
}
