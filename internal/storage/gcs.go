package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"github.com/pauljones0/epic-free-games-bot/internal/models"
)

// GCS keeps the state as one JSON object in a Cloud Storage bucket. Object
// writes become visible only when the writer is closed successfully.
type GCS struct {
	client *storage.Client
	bucket string
	object string
}

// NewGCS stores the state as bucket/object.
func NewGCS(ctx context.Context, bucket, object string, opts ...option.ClientOption) (*GCS, error) {
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("storage.NewClient: %w", err)
	}
	return &GCS{client: client, bucket: bucket, object: object}, nil
}

func (g *GCS) Close() error {
	return g.client.Close()
}

func (g *GCS) Load(ctx context.Context) models.TrackerState {
	r, err := g.client.Bucket(g.bucket).Object(g.object).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			slog.Info("State object not found, starting with empty state", "bucket", g.bucket, "object", g.object)
		} else {
			slog.Warn("Failed to open state object, starting with empty state", "bucket", g.bucket, "object", g.object, "error", err)
		}
		return models.EmptyState()
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		slog.Warn("Failed to read state object, starting with empty state", "error", err)
		return models.EmptyState()
	}
	state, err := decodeState(data)
	if err != nil {
		slog.Warn("Corrupt state object, starting with empty state", "error", err)
		return models.EmptyState()
	}
	slog.Info("Loaded state from Cloud Storage", "current", len(state.Current), "upcoming", len(state.Upcoming), "last_run", state.LastRunDate)
	return state
}

func (g *GCS) Save(ctx context.Context, state models.TrackerState) error {
	data, err := encodeState(state)
	if err != nil {
		return err
	}

	w := g.client.Bucket(g.bucket).Object(g.object).NewWriter(ctx)
	w.ContentType = "application/json"
	if _, err := w.Write(data); err != nil {
		w.Close()
		return fmt.Errorf("write to storage: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close storage writer: %w", err)
	}
	return nil
}
