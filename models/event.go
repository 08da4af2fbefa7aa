package models

import "time"

// Sync states stored in Event.SyncStatus.
const (
	SyncStatusManual = "manual"
	SyncStatusSynced = "synced"
)

// Event maps the eventos table. Rows come from the admin UI or from the Google Calendar sync.
type Event struct {
	ID               uint       `gorm:"primaryKey" json:"id"`
	Title            string     `gorm:"column:titulo;size:255;not null" json:"title"`
	Description      string     `gorm:"column:descripcion;type:text" json:"description"`
	StartAt          time.Time  `gorm:"column:fecha_inicio;not null;index" json:"start_at"`
	EndAt            *time.Time `gorm:"column:fecha_fin" json:"end_at"`
	Location         string     `gorm:"column:ubicacion;size:255" json:"location"`
	Category         string     `gorm:"column:categoria;size:64;default:General" json:"category"`
	AllDay           bool       `gorm:"column:es_todo_el_dia;default:false" json:"all_day"`
	GoogleEventID    *string    `gorm:"column:google_event_id;size:255;uniqueIndex" json:"google_event_id,omitempty"`
	LastSyncAt       *time.Time `gorm:"column:last_sync_at" json:"last_sync_at,omitempty"`
	SyncStatus       string     `gorm:"column:sync_status;size:16;default:manual" json:"sync_status"`
	NotifyEnabled    bool       `gorm:"column:enviar_notificacion;default:true" json:"notify_enabled"`
	NotificationSent bool       `gorm:"column:notificacion_enviada;default:false" json:"notification_sent"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

func (Event) TableName() string { return "eventos" }

func (Event) AdditiveColumns() []string {
	return []string{"GoogleEventID", "LastSyncAt", "SyncStatus", "NotifyEnabled", "NotificationSent"}
}
