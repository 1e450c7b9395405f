package processor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/pauljones0/epic-free-games-bot/internal/compare"
	"github.com/pauljones0/epic-free-games-bot/internal/config"
	"github.com/pauljones0/epic-free-games-bot/internal/confirm"
	"github.com/pauljones0/epic-free-games-bot/internal/models"
)

const (
	dateLayout         = "2006-01-02"
	maxParallelPublish = 4
)

// Sentinel errors wrapped into Outcome.Err.
var (
	// ErrNoDestination means no channel could be resolved for the announcement.
	ErrNoDestination = errors.New("no destination channel available")
	// ErrPersist means the new state was not saved, so nothing was announced.
	ErrPersist = errors.New("persist tracker state")
)

// Requester identifies the user behind a manual check.
type Requester struct {
	ID   string
	Name string
}

// TriggerContext describes one reconciliation request.
type TriggerContext struct {
	// Forced announces the current offers even if they did not change.
	Forced bool
	// Requester is nil for unattended runs.
	Requester *Requester
	// Target is a single destination; empty means every resolved destination.
	Target string
}

// Status is the final state of one reconciliation.
type Status int

const (
	StatusAnnounced Status = iota + 1
	StatusUnchanged
	StatusFetchFailed
	StatusNoDestination
	StatusPersistFailed
)

func (s Status) String() string {
	switch s {
	case StatusAnnounced:
		return "announced"
	case StatusUnchanged:
		return "unchanged"
	case StatusFetchFailed:
		return "fetch_failed"
	case StatusNoDestination:
		return "no_destination"
	case StatusPersistFailed:
		return "persist_failed"
	default:
		return "unknown"
	}
}

// Outcome is the result of one reconciliation.
type Outcome struct {
	Status             Status
	CurrentCount       int
	UpcomingCount      int
	Destinations       int
	FailedDeliveries   int
	ConfirmationIssued bool
	ConfirmExpiry      time.Time
	Err                error
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithRecorder reports outcomes and deliveries to r.
func WithRecorder(r Recorder) Option {
	return func(e *Engine) { e.recorder = r }
}

// Engine owns the tracker state and serializes every change to it.
type Engine struct {
	mu    sync.Mutex
	state models.TrackerState

	store     StateStore
	fetcher   OfferFetcher
	publisher Publisher
	confirms  *confirm.Tracker
	recorder  Recorder
	location  *time.Location
	now       func() time.Time
}

// New loads the persisted state and returns a ready engine.
func New(ctx context.Context, store StateStore, f OfferFetcher, pub Publisher, cfg *config.Config, opts ...Option) *Engine {
	loc := cfg.Location
	if loc == nil {
		loc = time.Local
	}
	e := &Engine{
		store:     store,
		fetcher:   f,
		publisher: pub,
		confirms:  confirm.New(cfg.ConfirmWindow),
		location:  loc,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.state = store.Load(ctx).Clone()
	return e
}

// Today is the current calendar date in the engine's time zone.
func (e *Engine) Today() string {
	return e.now().In(e.location).Format(dateLayout)
}

// Reconcile runs one fetch, compare, merge, persist and announce cycle.
func (e *Engine) Reconcile(ctx context.Context, tc TriggerContext) Outcome {
	logger := slog.With("run_id", uuid.NewString(), "forced", tc.Forced)
	if tc.Requester != nil {
		logger = logger.With("requester", tc.Requester.Name)
	}
	if tc.Target != "" {
		logger = logger.With("target", tc.Target)
	}

	out := e.reconcile(ctx, tc, logger)
	if e.recorder != nil {
		e.recorder.ObserveOutcome(out.Status.String())
	}
	logger.Info("Reconciliation finished",
		"status", out.Status.String(),
		"current", out.CurrentCount,
		"upcoming", out.UpcomingCount,
		"failed_deliveries", out.FailedDeliveries)
	return out
}

func (e *Engine) reconcile(ctx context.Context, tc TriggerContext, logger *slog.Logger) Outcome {
	fetched, err := e.fetcher.Fetch(ctx)
	if err != nil {
		logger.Error("Failed to fetch games", "error", err)
		return Outcome{Status: StatusFetchFailed, Err: err}
	}

	destinations, err := e.publisher.Destinations(ctx, tc.Target)
	if err == nil && len(destinations) == 0 {
		err = ErrNoDestination
	}
	if err != nil {
		logger.Error("Channel not found", "error", err)
		return Outcome{Status: StatusNoDestination, Err: fmt.Errorf("%w: %w", ErrNoDestination, err)}
	}

	ann, out, changed := e.apply(ctx, tc, fetched, logger)
	if !changed {
		return out
	}

	out.Destinations = len(destinations)
	if ann.Empty() {
		logger.Info("Nothing to announce")
		return out
	}
	out.FailedDeliveries = e.dispatch(ctx, destinations, ann, logger)
	return out
}

// apply compares and updates the state under the lock. It reports changed
// only when the new state was persisted and an announcement should follow.
func (e *Engine) apply(ctx context.Context, tc TriggerContext, fetched *models.FetchResult, logger *slog.Logger) (models.Announcement, Outcome, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !tc.Forced && compare.Same(fetched.Current, e.state.Current) {
		out := Outcome{Status: StatusUnchanged}
		if tc.Requester != nil && tc.Target != "" {
			out.ConfirmationIssued = true
			out.ConfirmExpiry = e.confirms.Grant(tc.Requester.ID, e.now())
			logger.Info("Games unchanged, confirmation granted", "expires", out.ConfirmExpiry)
		} else {
			logger.Info("Games unchanged since last check")
		}
		return models.Announcement{}, out, false
	}

	fresh := compare.NewUpcoming(e.state.Upcoming, fetched.Upcoming)
	next := models.TrackerState{
		Current:     models.CloneOffers(fetched.Current),
		Upcoming:    append(models.CloneOffers(e.state.Upcoming), fresh...),
		LastRunDate: e.state.LastRunDate,
	}
	if today := e.Today(); today > next.LastRunDate {
		next.LastRunDate = today
	}

	if err := e.store.Save(ctx, next); err != nil {
		logger.Error("Failed to save state, skipping announcement", "error", err)
		return models.Announcement{}, Outcome{Status: StatusPersistFailed, Err: fmt.Errorf("%w: %w", ErrPersist, err)}, false
	}
	e.state = next

	ann := models.Announcement{
		Current:  models.CloneOffers(next.Current),
		Upcoming: models.CloneOffers(fresh),
	}
	if tc.Requester != nil {
		ann.Requester = tc.Requester.Name
	}
	logger.Info("State updated", "current", len(next.Current), "new_upcoming", len(fresh), "total_upcoming", len(next.Upcoming))
	return ann, Outcome{
		Status:        StatusAnnounced,
		CurrentCount:  len(ann.Current),
		UpcomingCount: len(ann.Upcoming),
	}, true
}

// dispatch publishes to every destination independently and returns the
// number of destinations that failed.
func (e *Engine) dispatch(ctx context.Context, destinations []string, ann models.Announcement, logger *slog.Logger) int {
	var failed atomic.Int32
	var g errgroup.Group
	g.SetLimit(maxParallelPublish)
	for _, dest := range destinations {
		g.Go(func() error {
			err := e.publisher.Publish(ctx, dest, ann)
			if e.recorder != nil {
				e.recorder.ObserveDelivery(err)
			}
			if err != nil {
				failed.Add(1)
				logger.Warn("Failed to deliver announcement", "destination", dest, "error", err)
			}
			return nil
		})
	}
	g.Wait()
	return int(failed.Load())
}

// Confirm consumes the requester's confirmation grant. It returns the current
// offers and true when the grant was valid.
func (e *Engine) Confirm(requesterID string) ([]models.Offer, bool) {
	if !e.confirms.Consume(requesterID, e.now()) {
		return nil, false
	}
	return e.Current(), true
}

// ConfirmWindow is how long a confirmation grant stays valid.
func (e *Engine) ConfirmWindow() time.Duration {
	return e.confirms.Window()
}

// Current returns a copy of the last announced current offers.
func (e *Engine) Current() []models.Offer {
	e.mu.Lock()
	defer e.mu.Unlock()
	return models.CloneOffers(e.state.Current)
}

// Upcoming returns a copy of every upcoming offer recorded so far.
func (e *Engine) Upcoming() []models.Offer {
	e.mu.Lock()
	defer e.mu.Unlock()
	return models.CloneOffers(e.state.Upcoming)
}

// LastRunDate is the date of the last successful announcement, or "".
func (e *Engine) LastRunDate() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.LastRunDate
}

// State returns a deep copy of the tracker state.
func (e *Engine) State() models.TrackerState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.Clone()
}
