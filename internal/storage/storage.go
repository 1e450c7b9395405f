// Package storage persists the tracker state. Every backend writes the whole
// state in one operation so current offers, upcoming offers and the last run
// date are never observed out of step.
package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"google.golang.org/api/option"

	"github.com/pauljones0/epic-free-games-bot/internal/config"
	"github.com/pauljones0/epic-free-games-bot/internal/epic"
	"github.com/pauljones0/epic-free-games-bot/internal/models"
)

// Backend is implemented by every state store.
type Backend interface {
	// Load never fails: a missing or unreadable record yields the empty state.
	Load(ctx context.Context) models.TrackerState
	Save(ctx context.Context, state models.TrackerState) error
	Close() error
}

// Open returns the backend selected by cfg.StateBackend.
func Open(ctx context.Context, cfg *config.Config) (Backend, error) {
	switch cfg.StateBackend {
	case config.BackendFile, "":
		return NewFile(cfg.StateFile), nil
	case config.BackendFirestore:
		return NewFirestore(ctx, cfg.ProjectID, clientOptions(cfg)...)
	case config.BackendGCS:
		return NewGCS(ctx, cfg.StateBucket, cfg.StateObject, clientOptions(cfg)...)
	default:
		return nil, fmt.Errorf("unknown state backend %q", cfg.StateBackend)
	}
}

func clientOptions(cfg *config.Config) []option.ClientOption {
	if cfg.CredentialsFile == "" {
		return nil
	}
	return []option.ClientOption{option.WithCredentialsFile(cfg.CredentialsFile)}
}

func encodeState(state models.TrackerState) ([]byte, error) {
	data, err := json.MarshalIndent(normalize(state), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal state: %w", err)
	}
	return data, nil
}

// storedState mirrors models.TrackerState with undecoded offer entries, so
// files written by the earlier bot (raw upstream game objects) still load.
type storedState struct {
	Current     []json.RawMessage `json:"current"`
	Upcoming    []json.RawMessage `json:"upcoming"`
	LastRunDate string            `json:"last_daily_run"`
}

func decodeState(data []byte) (models.TrackerState, error) {
	var raw storedState
	if err := json.Unmarshal(data, &raw); err != nil {
		return models.EmptyState(), fmt.Errorf("unmarshal state: %w", err)
	}

	current, legacyCurrent, err := decodeOffers(raw.Current, false)
	if err != nil {
		return models.EmptyState(), fmt.Errorf("unmarshal current offers: %w", err)
	}
	upcoming, legacyUpcoming, err := decodeOffers(raw.Upcoming, true)
	if err != nil {
		return models.EmptyState(), fmt.Errorf("unmarshal upcoming offers: %w", err)
	}
	if n := legacyCurrent + legacyUpcoming; n > 0 {
		slog.Info("Converted legacy state entries", "count", n)
	}

	return normalize(models.TrackerState{
		Current:     current,
		Upcoming:    upcoming,
		LastRunDate: raw.LastRunDate,
	}), nil
}

// decodeOffers accepts both the stored Offer shape (seller is a string) and
// raw upstream game objects, which go through the API decoder. It returns
// the number of upstream-shaped entries.
func decodeOffers(entries []json.RawMessage, upcoming bool) ([]models.Offer, int, error) {
	offers := make([]models.Offer, 0, len(entries))
	legacy := 0
	for _, entry := range entries {
		var probe struct {
			Seller json.RawMessage `json:"seller"`
		}
		if err := json.Unmarshal(entry, &probe); err != nil {
			return nil, 0, err
		}
		if bytes.HasPrefix(bytes.TrimSpace(probe.Seller), []byte(`"`)) {
			var o models.Offer
			if err := json.Unmarshal(entry, &o); err != nil {
				return nil, 0, err
			}
			offers = append(offers, o)
			continue
		}
		offers = append(offers, epic.DecodeOffer(entry, upcoming))
		legacy++
	}
	return offers, legacy, nil
}

// normalize replaces nil slices so an empty state round-trips unchanged.
func normalize(state models.TrackerState) models.TrackerState {
	if state.Current == nil {
		state.Current = []models.Offer{}
	}
	if state.Upcoming == nil {
		state.Upcoming = []models.Offer{}
	}
	return state
}
