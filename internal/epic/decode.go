package epic

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/pauljones0/epic-free-games-bot/internal/models"
)

const (
	placeholderTitle       = "Unknown Game"
	placeholderDescription = "No description"
	placeholderSeller      = "Unknown"
)

type apiResponse struct {
	CurrentGames []json.RawMessage `json:"currentGames"`
	NextGames    []json.RawMessage `json:"nextGames"`
}

type apiImage struct {
	Type string `json:"type"`
	URL  string `json:"url"`
}

type apiPromotions struct {
	PromotionalOffers []struct {
		PromotionalOffers []struct {
			StartDate string `json:"startDate"`
			EndDate   string `json:"endDate"`
		} `json:"promotionalOffers"`
	} `json:"promotionalOffers"`
}

// imagePreference lists keyImages types in the order they are tried.
var imagePreference = []string{"Thumbnail", "OfferImageWide", "DieselStoreFrontWide"}

// Decode parses an API body. Only a body that is not a JSON object is an
// error; individual games with missing or mistyped fields get placeholders.
func Decode(body []byte) (*models.FetchResult, error) {
	var raw apiResponse
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("malformed response body: %w", err)
	}

	result := &models.FetchResult{
		Current:  make([]models.Offer, 0, len(raw.CurrentGames)),
		Upcoming: make([]models.Offer, 0, len(raw.NextGames)),
	}
	for _, g := range raw.CurrentGames {
		result.Current = append(result.Current, DecodeOffer(g, false))
	}
	for _, g := range raw.NextGames {
		result.Upcoming = append(result.Upcoming, DecodeOffer(g, true))
	}
	return result, nil
}

// DecodeOffer converts one upstream game object into an Offer, applying the
// placeholder rules. upcoming selects effectiveDate over the promotion end date.
func DecodeOffer(raw json.RawMessage, upcoming bool) models.Offer {
	offer := models.Offer{
		Title:       placeholderTitle,
		Description: placeholderDescription,
		Seller:      placeholderSeller,
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		slog.Warn("Unreadable game entry, using placeholders", "error", err)
		return offer
	}

	if v := stringField(fields, "title"); v != "" {
		offer.Title = v
	}
	if v := stringField(fields, "description"); v != "" {
		offer.Description = v
	}
	var seller map[string]json.RawMessage
	if json.Unmarshal(fields["seller"], &seller) == nil {
		if v := stringField(seller, "name"); v != "" {
			offer.Seller = v
		}
	}
	offer.URLSlug = stringField(fields, "urlSlug")

	var images []apiImage
	if json.Unmarshal(fields["keyImages"], &images) == nil {
		offer.ImageURL = pickImage(images)
	}

	if upcoming {
		offer.StartDate = parseDate(stringField(fields, "effectiveDate"))
		return offer
	}
	var promos apiPromotions
	if json.Unmarshal(fields["promotions"], &promos) == nil && len(promos.PromotionalOffers) > 0 {
		inner := promos.PromotionalOffers[0].PromotionalOffers
		if len(inner) > 0 {
			offer.EndDate = parseDate(inner[0].EndDate)
		}
	}
	return offer
}

// stringField returns the string value at key, or "" when absent or not a string.
func stringField(fields map[string]json.RawMessage, key string) string {
	raw, ok := fields[key]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

func pickImage(images []apiImage) string {
	for _, kind := range imagePreference {
		for _, img := range images {
			if img.Type == kind && img.URL != "" {
				return img.URL
			}
		}
	}
	for _, img := range images {
		if img.URL != "" {
			return img.URL
		}
	}
	return ""
}

// parseDate returns the zero time for empty or unparsable timestamps.
func parseDate(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		slog.Debug("Unparsable offer date", "value", s, "error", err)
		return time.Time{}
	}
	return t.UTC()
}
