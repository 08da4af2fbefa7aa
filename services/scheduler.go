package services

import (
	"context"
	"errors"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/cajaoblatos/oblatos34/utils"
)

const jobTimeout = 2 * time.Minute

// Scheduler runs the periodic calendar sync and the event reminder jobs.
type Scheduler struct {
	sched gocron.Scheduler
}

// NewScheduler registers the jobs. A nil sync service or an unconfigured push service skips its job.
func NewScheduler(sync *CalendarSyncService, events *EventService, push *PushService,
	syncEvery, remindEvery time.Duration) (*Scheduler, error) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}

	if sync != nil && syncEvery > 0 {
		if _, err := sched.NewJob(
			gocron.DurationJob(syncEvery),
			gocron.NewTask(func() {
				ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
				defer cancel()
				if _, err := sync.Sync(ctx); err != nil {
					utils.Sugar.Errorw("[Scheduler] calendar sync failed", "error", err)
				}
			}),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
		); err != nil {
			return nil, err
		}
	}

	if events != nil && push != nil && push.Configured() && remindEvery > 0 {
		if _, err := sched.NewJob(
			gocron.DurationJob(remindEvery),
			gocron.NewTask(func() {
				ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
				defer cancel()
				SendEventReminders(ctx, events, push)
			}),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
		); err != nil {
			return nil, err
		}
	}

	return &Scheduler{sched: sched}, nil
}

func (s *Scheduler) Start() {
	s.sched.Start()
}

// Stop waits for running jobs to finish.
func (s *Scheduler) Stop() {
	if err := s.sched.Shutdown(); err != nil {
		utils.Sugar.Warnw("[Scheduler] shutdown", "error", err)
	}
}

// SendEventReminders claims the upcoming events and pushes one reminder each. Events whose push
// fails are released so a later run retries them. It returns how many reminders OneSignal accepted.
func SendEventReminders(ctx context.Context, events *EventService, push *PushService) int {
	claimed, err := events.ClaimUpcoming(ctx)
	if err != nil {
		utils.Sugar.Errorw("[Scheduler] claim upcoming events failed", "error", err)
		return 0
	}
	sent := 0
	var failed []uint
	for i, ev := range claimed {
		res, err := push.RemindEvent(ctx, ev)
		if errors.Is(err, ErrPushNotConfigured) {
			utils.Sugar.Warnw("[Scheduler] push not configured, reminders postponed", "events", len(claimed)-i)
			for _, rest := range claimed[i:] {
				failed = append(failed, rest.ID)
			}
			break
		}
		if err != nil {
			utils.Sugar.Errorw("[Scheduler] event reminder failed", "event_id", ev.ID, "error", err)
			failed = append(failed, ev.ID)
			continue
		}
		if !res.Success {
			utils.Sugar.Warnw("[Scheduler] event reminder rejected", "event_id", ev.ID, "http_code", res.HTTPCode)
			failed = append(failed, ev.ID)
			continue
		}
		sent++
	}
	if err := events.ReleaseClaims(ctx, failed...); err != nil {
		utils.Sugar.Errorw("[Scheduler] release reminder claims failed", "events", failed, "error", err)
	}
	return sent
}
