package storage

import (
	"context"
	"fmt"
	"log/slog"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/pauljones0/epic-free-games-bot/internal/models"
)

const (
	firestoreCollection = "bot_state"
	firestoreDocumentID = "tracker"
)

// Firestore keeps the state in one document; a single Set replaces all fields.
type Firestore struct {
	client *firestore.Client
}

// NewFirestore opens a Firestore client for projectID.
func NewFirestore(ctx context.Context, projectID string, opts ...option.ClientOption) (*Firestore, error) {
	client, err := firestore.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("firestore.NewClient: %w", err)
	}
	return &Firestore{client: client}, nil
}

func (c *Firestore) Close() error {
	return c.client.Close()
}

func (c *Firestore) doc() *firestore.DocumentRef {
	return c.client.Collection(firestoreCollection).Doc(firestoreDocumentID)
}

func (c *Firestore) Load(ctx context.Context) models.TrackerState {
	snap, err := c.doc().Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			slog.Info("Firestore state document not found. Assuming first run.", "collection", firestoreCollection, "doc", firestoreDocumentID)
		} else {
			slog.Warn("Failed to read Firestore state, starting with empty state", "error", err)
		}
		return models.EmptyState()
	}
	if !snap.Exists() {
		return models.EmptyState()
	}

	var state models.TrackerState
	if err := snap.DataTo(&state); err != nil {
		slog.Warn("Corrupt Firestore state document, starting with empty state", "error", err)
		return models.EmptyState()
	}
	state = normalize(state)
	slog.Info("Loaded state from Firestore", "current", len(state.Current), "upcoming", len(state.Upcoming), "last_run", state.LastRunDate)
	return state
}

func (c *Firestore) Save(ctx context.Context, state models.TrackerState) error {
	if _, err := c.doc().Set(ctx, normalize(state)); err != nil {
		return fmt.Errorf("failed to set state document in Firestore: %w", err)
	}
	return nil
}
