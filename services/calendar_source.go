package services

import (
	"context"
	"fmt"
	"os"
	"time"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/cajaoblatos/oblatos34/config"
	"github.com/cajaoblatos/oblatos34/streak"
)

const calendarPageSize = 50

// CalendarEvent is a remote calendar entry in the shape the sync needs.
type CalendarEvent struct {
	ID          string
	Summary     string
	Description string
	Location    string
	Start       time.Time
	End         *time.Time
	AllDay      bool
}

// CalendarSource lists remote events between from and to, ordered by start.
type CalendarSource interface {
	ListEvents(ctx context.Context, from, to time.Time) ([]CalendarEvent, error)
}

// GoogleCalendarSource reads a Google Calendar through the Calendar v3 API.
type GoogleCalendarSource struct {
	svc        *calendar.Service
	calendarID string
	loc        *time.Location
}

// NewGoogleCalendarSource authenticates with the service-account file when configured, otherwise
// with the API key, which only works for public calendars.
func NewGoogleCalendarSource(ctx context.Context, cfg config.AppConfig) (*GoogleCalendarSource, error) {
	var opts []option.ClientOption
	switch {
	case cfg.GoogleCredentialsFile != "":
		data, err := os.ReadFile(cfg.GoogleCredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read google credentials: %w", err)
		}
		creds, err := google.CredentialsFromJSON(ctx, data, calendar.CalendarReadonlyScope)
		if err != nil {
			return nil, fmt.Errorf("parse google credentials: %w", err)
		}
		opts = append(opts, option.WithCredentials(creds))
	case cfg.GoogleAPIKey != "":
		opts = append(opts, option.WithAPIKey(cfg.GoogleAPIKey))
	default:
		return nil, ErrCalendarNotConfigured
	}

	svc, err := calendar.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create calendar service: %w", err)
	}
	return &GoogleCalendarSource{svc: svc, calendarID: cfg.GoogleCalendarID, loc: time.Local}, nil
}

func (g *GoogleCalendarSource) ListEvents(ctx context.Context, from, to time.Time) ([]CalendarEvent, error) {
	resp, err := g.svc.Events.List(g.calendarID).
		TimeMin(from.Format(time.RFC3339)).
		TimeMax(to.Format(time.RFC3339)).
		SingleEvents(true).
		OrderBy("startTime").
		MaxResults(calendarPageSize).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("list calendar events: %w", err)
	}

	out := make([]CalendarEvent, 0, len(resp.Items))
	for _, item := range resp.Items {
		if item.Status == "cancelled" {
			continue
		}
		ev := CalendarEvent{
			ID:          item.Id,
			Summary:     item.Summary,
			Description: item.Description,
			Location:    item.Location,
		}
		if item.Start != nil {
			ev.Start, ev.AllDay = g.parseEventTime(item.Start)
		}
		if item.End != nil {
			if end, allDay := g.parseEventTime(item.End); !end.IsZero() {
				if allDay {
					// Google's all-day end date is exclusive
					end = end.AddDate(0, 0, -1).Add(24*time.Hour - time.Second)
				}
				ev.End = &end
			}
		}
		out = append(out, ev)
	}
	return out, nil
}

// parseEventTime returns the zero time when neither field parses; the sync reports such events.
func (g *GoogleCalendarSource) parseEventTime(et *calendar.EventDateTime) (time.Time, bool) {
	if et.DateTime != "" {
		if t, err := time.Parse(time.RFC3339, et.DateTime); err == nil {
			return t.In(g.loc), false
		}
	}
	if et.Date != "" {
		if t, err := time.ParseInLocation("2006-01-02", et.Date, g.loc); err == nil {
			return streak.Day(t), true
		}
	}
	return time.Time{}, false
}
