package services

import (
	"os"
	"testing"
	"time"

	"github.com/cajaoblatos/oblatos34/testutil"
)

func TestMain(m *testing.M) {
	testutil.UseConfig("admin")
	os.Exit(m.Run())
}

// clock is a settable time source for the services under test.
type clock struct{ t time.Time }

func newClock(y int, m time.Month, d, h int) *clock {
	return &clock{t: time.Date(y, m, d, h, 0, 0, 0, time.Local)}
}

func (c *clock) Now() time.Time          { return c.t }
func (c *clock) Advance(d time.Duration) { c.t = c.t.Add(d) }
func (c *clock) NextDay()                { c.t = c.t.AddDate(0, 0, 1) }
