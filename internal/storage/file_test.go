package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pauljones0/epic-free-games-bot/internal/config"
	"github.com/pauljones0/epic-free-games-bot/internal/models"
)

func sampleState() models.TrackerState {
	return models.TrackerState{
		Current: []models.Offer{{
			Title:       "Alpha",
			Description: "Zażółć gęślą jaźń",
			Seller:      "Alpha Studio",
			URLSlug:     "alpha",
			ImageURL:    "https://cdn.example/alpha.jpg",
			EndDate:     time.Date(2026, 10, 22, 15, 0, 0, 0, time.UTC),
		}},
		Upcoming: []models.Offer{
			{Title: "Beta", Description: "No description", Seller: "Unknown", StartDate: time.Date(2026, 10, 22, 15, 0, 0, 0, time.UTC)},
			{Title: "Gamma", Description: "No description", Seller: "Unknown"},
		},
		LastRunDate: "2026-10-19",
	}
}

func TestFile_RoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "posted_games.json")
	store := NewFile(path)

	for name, state := range map[string]models.TrackerState{
		"empty":  models.EmptyState(),
		"sample": sampleState(),
	} {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, store.Save(ctx, state))
			assert.Equal(t, state, store.Load(ctx))
		})
	}
}

func TestFile_LoadMissingIsEmpty(t *testing.T) {
	store := NewFile(filepath.Join(t.TempDir(), "absent.json"))
	assert.Equal(t, models.EmptyState(), store.Load(context.Background()))
}

func TestFile_LoadCorruptIsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "posted_games.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	assert.Equal(t, models.EmptyState(), NewFile(path).Load(context.Background()))
}

func TestFile_LoadLegacyNullFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "posted_games.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"current": null, "upcoming": null, "last_daily_run": null}`), 0o644))

	state := NewFile(path).Load(context.Background())
	assert.NotNil(t, state.Current)
	assert.NotNil(t, state.Upcoming)
	assert.Empty(t, state.LastRunDate)
}

const originalFormatState = `{
  "current": [
    {
      "title": "Alpha",
      "description": "First game",
      "seller": {"name": "S"},
      "urlSlug": "alpha",
      "keyImages": [{"type": "Thumbnail", "url": "https://cdn.example/alpha.jpg"}],
      "promotions": {"promotionalOffers": [{"promotionalOffers": [
        {"startDate": "2026-10-15T15:00:00.000Z", "endDate": "2026-10-22T15:00:00.000Z"}
      ]}]}
    }
  ],
  "upcoming": [
    {"title": "Beta", "seller": {"name": "Beta Works"}, "effectiveDate": "2026-10-22T15:00:00.000Z"},
    {"title": "Gamma"}
  ],
  "last_daily_run": "2026-10-18"
}`

func TestFile_LoadOriginalFormat(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "posted_games.json")
	require.NoError(t, os.WriteFile(path, []byte(originalFormatState), 0o644))

	store := NewFile(path)
	state := store.Load(ctx)

	require.Len(t, state.Current, 1)
	alpha := state.Current[0]
	assert.Equal(t, "Alpha", alpha.Title)
	assert.Equal(t, "S", alpha.Seller)
	assert.Equal(t, "alpha", alpha.URLSlug)
	assert.Equal(t, "https://cdn.example/alpha.jpg", alpha.ImageURL)
	assert.True(t, alpha.EndDate.Equal(time.Date(2026, 10, 22, 15, 0, 0, 0, time.UTC)), "end date %s", alpha.EndDate)

	require.Len(t, state.Upcoming, 2)
	assert.Equal(t, "Beta", state.Upcoming[0].Title)
	assert.Equal(t, "Beta Works", state.Upcoming[0].Seller)
	assert.True(t, state.Upcoming[0].StartDate.Equal(time.Date(2026, 10, 22, 15, 0, 0, 0, time.UTC)))
	assert.Equal(t, "Gamma", state.Upcoming[1].Title)
	assert.Equal(t, "Unknown", state.Upcoming[1].Seller)
	assert.Equal(t, "2026-10-18", state.LastRunDate)

	// The next save rewrites the file in the current format.
	require.NoError(t, store.Save(ctx, state))
	assert.Equal(t, state, store.Load(ctx))
}

func TestFile_LoadMixedEntryShapes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "posted_games.json")
	data := `{"current": [
		{"title": "New", "description": "d", "seller": "Studio"},
		{"title": "Old", "seller": {"name": "Studio"}}
	], "upcoming": []}`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	state := NewFile(path).Load(context.Background())
	assert.Equal(t, []string{"New", "Old"}, models.Titles(state.Current))
	assert.Equal(t, "Studio", state.Current[1].Seller)
}

func TestFile_SaveUnwritableFails(t *testing.T) {
	store := NewFile(filepath.Join(t.TempDir(), "missing-dir", "posted_games.json"))
	err := store.Save(context.Background(), sampleState())
	require.Error(t, err)
}

func TestFile_SaveLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	store := NewFile(filepath.Join(dir, "posted_games.json"))
	require.NoError(t, store.Save(context.Background(), sampleState()))
	require.NoError(t, store.Save(context.Background(), models.EmptyState()))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "posted_games.json", entries[0].Name())
}

func TestOpen_FileBackend(t *testing.T) {
	cfg := &config.Config{StateBackend: config.BackendFile, StateFile: filepath.Join(t.TempDir(), "s.json")}
	backend, err := Open(context.Background(), cfg)
	require.NoError(t, err)
	defer backend.Close()

	_, ok := backend.(*File)
	assert.True(t, ok, "expected *File backend, got %T", backend)
}

func TestOpen_UnknownBackend(t *testing.T) {
	_, err := Open(context.Background(), &config.Config{StateBackend: "redis"})
	require.Error(t, err)
}
