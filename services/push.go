package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cajaoblatos/oblatos34/config"
	"github.com/cajaoblatos/oblatos34/models"
	"github.com/cajaoblatos/oblatos34/utils"
)

const (
	reminderTitle   = "🎉 Recordatorio de Evento"
	reminderMessage = "No olvides: %s\nFecha: %s\nHora: %s"
)

// Notification is a push message. Without PlayerIDs it goes to every subscriber.
type Notification struct {
	Title     string   `json:"title"`
	Message   string   `json:"message"`
	PlayerIDs []string `json:"player_ids,omitempty"`
	URL       string   `json:"url,omitempty"`
}

// PushResult mirrors the OneSignal answer.
type PushResult struct {
	Success  bool            `json:"success"`
	HTTPCode int             `json:"http_code"`
	Response json.RawMessage `json:"response,omitempty"`
}

// PushService sends notifications through the OneSignal REST API.
type PushService struct {
	client  *http.Client
	appID   string
	restKey string
	apiURL  string
}

func NewPushService(cfg config.AppConfig) *PushService {
	return &PushService{
		client:  &http.Client{Timeout: 10 * time.Second},
		appID:   cfg.OneSignalAppID,
		restKey: cfg.OneSignalRESTKey,
		apiURL:  cfg.OneSignalAPIURL,
	}
}

// Configured reports whether OneSignal credentials are present.
func (p *PushService) Configured() bool {
	return p.appID != "" && p.restKey != ""
}

type oneSignalPayload struct {
	AppID            string            `json:"app_id"`
	Headings         map[string]string `json:"headings"`
	Contents         map[string]string `json:"contents"`
	IncludedSegments []string          `json:"included_segments,omitempty"`
	IncludePlayerIDs []string          `json:"include_player_ids,omitempty"`
	URL              string            `json:"url,omitempty"`
}

// Send posts n to OneSignal. A non-2xx answer is not an error; it is reported through PushResult.
func (p *PushService) Send(ctx context.Context, n Notification) (*PushResult, error) {
	if !p.Configured() {
		return nil, ErrPushNotConfigured
	}
	payload := oneSignalPayload{
		AppID:    p.appID,
		Headings: map[string]string{"en": n.Title},
		Contents: map[string]string{"en": n.Message},
		URL:      n.URL,
	}
	if len(n.PlayerIDs) > 0 {
		payload.IncludePlayerIDs = n.PlayerIDs
	} else {
		payload.IncludedSegments = []string{"All"}
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.apiURL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	req.Header.Set("Authorization", "Basic "+p.restKey)

	resp, err := p.client.Do(req)
	if err != nil {
		utils.PushNotifications.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("onesignal request: %w", err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read onesignal response: %w", err)
	}

	res := &PushResult{Success: resp.StatusCode == http.StatusOK, HTTPCode: resp.StatusCode}
	if json.Valid(raw) {
		res.Response = raw
	}
	if res.Success {
		utils.PushNotifications.WithLabelValues("sent").Inc()
	} else {
		utils.PushNotifications.WithLabelValues("rejected").Inc()
		utils.Sugar.Warnw("onesignal rejected notification", "status", resp.StatusCode, "body", string(raw))
	}
	return res, nil
}

// SendEventReminder sends the standard event reminder text.
func (p *PushService) SendEventReminder(ctx context.Context, title, date, hour string, playerIDs []string) (*PushResult, error) {
	return p.Send(ctx, Notification{
		Title:     reminderTitle,
		Message:   fmt.Sprintf(reminderMessage, title, date, hour),
		PlayerIDs: playerIDs,
	})
}

// RemindEvent formats an event row into a reminder.
func (p *PushService) RemindEvent(ctx context.Context, ev models.Event) (*PushResult, error) {
	hour := ev.StartAt.Format("15:04")
	if ev.AllDay {
		hour = "Todo el día"
	}
	return p.SendEventReminder(ctx, ev.Title, ev.StartAt.Format(displayDate), hour, nil)
}
