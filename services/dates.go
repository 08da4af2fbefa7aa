package services

import "time"

const (
	isoDate     = "2006-01-02"
	displayDate = "02/01/2006"
)

func formatDate(t *time.Time, layout string) *string {
	if t == nil || t.IsZero() {
		return nil
	}
	s := t.Format(layout)
	return &s
}
