package processor

import (
	"context"

	"github.com/pauljones0/epic-free-games-bot/internal/models"
)

// OfferFetcher abstracts the upstream free-games API.
type OfferFetcher interface {
	Fetch(ctx context.Context) (*models.FetchResult, error)
}

// StateStore abstracts the durable tracker state.
type StateStore interface {
	Load(ctx context.Context) models.TrackerState
	Save(ctx context.Context, state models.TrackerState) error
}

// Publisher abstracts the messaging platform.
type Publisher interface {
	// Destinations resolves where to announce. A non-empty target restricts
	// the result to that single destination.
	Destinations(ctx context.Context, target string) ([]string, error)
	Publish(ctx context.Context, destination string, a models.Announcement) error
}

// Recorder receives reconciliation metrics. It may be nil.
type Recorder interface {
	ObserveOutcome(status string)
	ObserveDelivery(err error)
}
