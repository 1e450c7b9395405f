package notifier

import (
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/pauljones0/epic-free-games-bot/internal/models"
)

func fieldValue(t *testing.T, fields map[string]string, name string) string {
	t.Helper()
	v, ok := fields[name]
	if !ok {
		t.Fatalf("field %q not found in %v", name, fields)
	}
	return v
}

func TestRenderer_CurrentOffer(t *testing.T) {
	warsaw, err := time.LoadLocation("Europe/Warsaw")
	if err != nil {
		t.Fatalf("LoadLocation: %v", err)
	}
	r := NewRenderer(warsaw)
	offer := models.Offer{
		Title:       "Great Game",
		Description: "Explore things",
		Seller:      "Studio",
		URLSlug:     "great-game",
		ImageURL:    "https://cdn.example/thumb.jpg",
		// 23:30 UTC is already the next day in Warsaw.
		EndDate: time.Date(2026, 10, 22, 23, 30, 0, 0, time.UTC),
	}

	embed := r.Embed(offer, false, "alice")

	if embed.Title != "Great Game" || embed.Description != "Explore things" {
		t.Errorf("Unexpected title/description: %q / %q", embed.Title, embed.Description)
	}
	if embed.Color != embedColor {
		t.Errorf("Color = %#x, want %#x", embed.Color, embedColor)
	}
	fields := make(map[string]string)
	for _, f := range embed.Fields {
		fields[f.Name] = f.Value
	}
	if got := fieldValue(t, fields, "Seller"); got != "Studio" {
		t.Errorf("Seller = %q", got)
	}
	if got := fieldValue(t, fields, "Store Link"); got != "https://www.epicgames.com/store/p/great-game" {
		t.Errorf("Store Link = %q", got)
	}
	if got := fieldValue(t, fields, "Available Until"); got != "2026-10-23" {
		t.Errorf("Available Until = %q, want 2026-10-23", got)
	}
	if _, ok := fields["Start Date"]; ok {
		t.Error("current offer should not carry a Start Date")
	}
	if embed.Thumbnail == nil || embed.Thumbnail.URL != offer.ImageURL {
		t.Errorf("Thumbnail = %+v", embed.Thumbnail)
	}
	if embed.Footer == nil || embed.Footer.Text != "Checked by alice" {
		t.Errorf("Footer = %+v", embed.Footer)
	}
}

func TestRenderer_UpcomingOffer(t *testing.T) {
	r := NewRenderer(time.UTC)

	withDate := r.Embed(models.Offer{Title: "Soon", StartDate: time.Date(2026, 10, 29, 15, 0, 0, 0, time.UTC)}, true, "")
	withoutDate := r.Embed(models.Offer{Title: "Someday"}, true, "")

	for _, tt := range []struct {
		name string
		want string
		got  map[string]string
	}{
		{"with date", "2026-10-29", toMap(withDate.Fields)},
		{"without date", unknownStart, toMap(withoutDate.Fields)},
	} {
		if got := fieldValue(t, tt.got, "Start Date"); got != tt.want {
			t.Errorf("%s: Start Date = %q, want %q", tt.name, got, tt.want)
		}
		if _, ok := tt.got["Available Until"]; ok {
			t.Errorf("%s: upcoming offer should not carry Available Until", tt.name)
		}
	}

	if withoutDate.Footer != nil || withoutDate.Thumbnail != nil {
		t.Error("unattributed offer without image should have no footer or thumbnail")
	}
	if got := fieldValue(t, toMap(withoutDate.Fields), "Store Link"); got != noLink {
		t.Errorf("Store Link = %q, want %q", got, noLink)
	}
}

func TestRenderer_Sections(t *testing.T) {
	r := NewRenderer(time.UTC)

	got := r.sections(models.Announcement{Current: []models.Offer{{Title: "A"}, {Title: "B"}}})
	if len(got) != 1 || got[0].header != HeaderCurrent || len(got[0].embeds) != 2 {
		t.Fatalf("unexpected sections: %+v", got)
	}

	got = r.sections(models.Announcement{Current: []models.Offer{{Title: "A"}}, Upcoming: []models.Offer{{Title: "C"}}})
	if len(got) != 2 || got[1].header != HeaderUpcoming {
		t.Fatalf("unexpected sections: %+v", got)
	}

	if got := r.sections(models.Announcement{}); len(got) != 0 {
		t.Errorf("empty announcement should render nothing, got %d sections", len(got))
	}
}

func toMap(fields []*discordgo.MessageEmbedField) map[string]string {
	m := make(map[string]string, len(fields))
	for _, f := range fields {
		m[f.Name] = f.Value
	}
	return m
}
