// Package scheduler runs the unattended daily check at a fixed local time.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/pauljones0/epic-free-games-bot/internal/config"
	"github.com/pauljones0/epic-free-games-bot/internal/processor"
)

const (
	jobName    = "daily-check"
	dateLayout = "2006-01-02"
)

// Reconciler is the part of the engine the scheduler drives.
type Reconciler interface {
	Reconcile(ctx context.Context, tc processor.TriggerContext) processor.Outcome
	LastRunDate() string
}

// Scheduler wraps a gocron scheduler holding one daily job. gocron computes
// every next fire from the wall clock in the configured location.
type Scheduler struct {
	cron   gocron.Scheduler
	job    gocron.Job
	target Reconciler
	loc    *time.Location
	hour   int
	minute int
	now    func() time.Time
}

// New creates an unstarted scheduler firing at cfg.DailyHour:cfg.DailyMinute in cfg.Location.
func New(target Reconciler, cfg *config.Config) (*Scheduler, error) {
	loc := cfg.Location
	if loc == nil {
		loc = time.Local
	}
	s, err := gocron.NewScheduler(gocron.WithLocation(loc))
	if err != nil {
		return nil, fmt.Errorf("failed to create gocron scheduler: %w", err)
	}
	return &Scheduler{
		cron:   s,
		target: target,
		loc:    loc,
		hour:   cfg.DailyHour,
		minute: cfg.DailyMinute,
		now:    time.Now,
	}, nil
}

// Start runs a catch-up check when today's fire time has already passed
// without a recorded run, then arms the daily job. Scheduled runs use ctx
// and stop doing work once it is cancelled.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.catchUpDue() {
		slog.Info("Running late start check")
		s.fire(ctx)
	}

	job, err := s.cron.NewJob(
		gocron.DailyJob(1, gocron.NewAtTimes(gocron.NewAtTime(uint(s.hour), uint(s.minute), 0))),
		gocron.NewTask(func() { s.fire(ctx) }),
		gocron.WithName(jobName),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("failed to create daily job: %w", err)
	}
	s.job = job
	s.cron.Start()

	if next, err := job.NextRun(); err == nil {
		slog.Info("Daily check armed", "next_run", next.Format(time.RFC3339), "in", time.Until(next).Round(time.Minute).String())
	}
	return nil
}

// Stop cancels the pending fire and waits for a running one to finish.
func (s *Scheduler) Stop() error {
	slog.Info("Stopping scheduler")
	return s.cron.Shutdown()
}

// NextRun is the next scheduled fire time.
func (s *Scheduler) NextRun() (time.Time, error) {
	if s.job == nil {
		return time.Time{}, errors.New("scheduler not started")
	}
	return s.job.NextRun()
}

// DailyTime renders the fire time as HH:MM with the zone abbreviation.
func (s *Scheduler) DailyTime() string {
	zone, _ := s.now().In(s.loc).Zone()
	return fmt.Sprintf("%02d:%02d %s", s.hour, s.minute, zone)
}

func (s *Scheduler) today() string {
	return s.now().In(s.loc).Format(dateLayout)
}

func (s *Scheduler) catchUpDue() bool {
	now := s.now().In(s.loc)
	fireAt := time.Date(now.Year(), now.Month(), now.Day(), s.hour, s.minute, 0, 0, s.loc)
	return !now.Before(fireAt) && s.target.LastRunDate() != s.today()
}

// fire reconciles unless a run was already recorded for today.
func (s *Scheduler) fire(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	today := s.today()
	if s.target.LastRunDate() == today {
		slog.Info("Daily check already done today, skipping", "date", today)
		return
	}
	slog.Info("Running daily check", "date", today)
	out := s.target.Reconcile(ctx, processor.TriggerContext{})
	if out.Err != nil {
		slog.Error("Daily check failed", "status", out.Status.String(), "error", out.Err)
	}
}
