package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/cajaoblatos/oblatos34/models"
	"github.com/cajaoblatos/oblatos34/streak"
	"github.com/cajaoblatos/oblatos34/utils"
)

const (
	DefaultEventCategory = "General"
	upcomingEventsLimit  = 20
	// ReminderWindow is how far ahead events are picked up for push reminders.
	ReminderWindow = 48 * time.Hour
)

// EventService manages the calendar events shown in the app.
type EventService struct {
	db  *gorm.DB
	now func() time.Time
}

func NewEventService(db *gorm.DB) *EventService {
	return &EventService{db: db, now: time.Now}
}

// ListUpcoming returns the next events that have not started yet.
func (s *EventService) ListUpcoming(ctx context.Context) ([]models.Event, error) {
	events := []models.Event{}
	err := s.db.WithContext(ctx).
		Where("fecha_inicio >= ?", s.now()).
		Order("fecha_inicio ASC").
		Limit(upcomingEventsLimit).
		Find(&events).Error
	return events, err
}

// EventInput is the admin payload for creating or editing an event. ID is set when editing.
type EventInput struct {
	ID            uint       `json:"id"`
	Title         string     `json:"title" binding:"required,max=255"`
	Description   string     `json:"description"`
	StartAt       time.Time  `json:"start_at" binding:"required"`
	EndAt         *time.Time `json:"end_at"`
	Location      string     `json:"location" binding:"max=255"`
	Category      string     `json:"category" binding:"max=64"`
	AllDay        bool       `json:"all_day"`
	NotifyEnabled *bool      `json:"notify_enabled"`
}

// normalize applies the all-day and default-category rules.
func (in *EventInput) normalize() error {
	in.Title = utils.SanitizeText(in.Title)
	in.Description = utils.Sanitize(in.Description)
	in.Location = utils.SanitizeText(in.Location)
	in.Category = strings.TrimSpace(in.Category)
	if in.Category == "" {
		in.Category = DefaultEventCategory
	}
	if in.AllDay {
		start := streak.Day(in.StartAt)
		end := start.Add(24*time.Hour - time.Second)
		in.StartAt = start
		in.EndAt = &end
	}
	if in.EndAt != nil && in.EndAt.Before(in.StartAt) {
		return ErrInvalidEventTime
	}
	return nil
}

// Save creates the event, or updates it when in.ID is set.
func (s *EventService) Save(ctx context.Context, in EventInput) (*models.Event, error) {
	if err := in.normalize(); err != nil {
		return nil, err
	}
	db := s.db.WithContext(ctx)

	var ev models.Event
	if in.ID != 0 {
		if err := db.First(&ev, in.ID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrEventNotFound
			}
			return nil, err
		}
	} else {
		ev.SyncStatus = models.SyncStatusManual
		ev.NotifyEnabled = true
	}

	ev.Title = in.Title
	ev.Description = in.Description
	ev.StartAt = in.StartAt
	ev.EndAt = in.EndAt
	ev.Location = in.Location
	ev.Category = in.Category
	ev.AllDay = in.AllDay
	if in.NotifyEnabled != nil {
		ev.NotifyEnabled = *in.NotifyEnabled
	}

	// Select("*") so false and empty values are written on update too
	var err error
	if ev.ID == 0 {
		err = db.Create(&ev).Error
	} else {
		err = db.Select("*").Omit("created_at").Updates(&ev).Error
	}
	if err != nil {
		return nil, err
	}
	return &ev, nil
}

// Delete removes an event.
func (s *EventService) Delete(ctx context.Context, id uint) error {
	res := s.db.WithContext(ctx).Delete(&models.Event{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrEventNotFound
	}
	return nil
}

// ClaimUpcoming returns events starting within the reminder window that still need a notification
// and marks them as notified in the same transaction, so each event is handed out once.
func (s *EventService) ClaimUpcoming(ctx context.Context) ([]models.Event, error) {
	now := s.now()
	events := []models.Event{}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("fecha_inicio BETWEEN ? AND ?", now, now.Add(ReminderWindow)).
			Where("notificacion_enviada = ? OR notificacion_enviada IS NULL", false).
			Where("enviar_notificacion = ?", true).
			Order("fecha_inicio ASC").
			Find(&events).Error; err != nil {
			return err
		}
		if len(events) == 0 {
			return nil
		}
		ids := make([]uint, 0, len(events))
		for i := range events {
			ids = append(ids, events[i].ID)
			events[i].NotificationSent = true
		}
		return tx.Model(&models.Event{}).Where("id IN ?", ids).Update("notificacion_enviada", true).Error
	})
	if err != nil {
		return nil, err
	}
	return events, nil
}

// ReleaseClaims clears the notified flag so the events are picked up again by the next reminder run.
func (s *EventService) ReleaseClaims(ctx context.Context, ids ...uint) error {
	if len(ids) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Model(&models.Event{}).
		Where("id IN ?", ids).
		Update("notificacion_enviada", false).Error
}
