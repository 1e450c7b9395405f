package models

import "time"

// Offer is a single promotional game listing as announced to channels.
// Offers are compared by Title only.
type Offer struct {
	Title       string    `json:"title" firestore:"title"`
	Description string    `json:"description" firestore:"description"`
	Seller      string    `json:"seller" firestore:"seller"`
	URLSlug     string    `json:"urlSlug,omitempty" firestore:"urlSlug,omitempty"`
	ImageURL    string    `json:"imageURL,omitempty" firestore:"imageURL,omitempty"`
	EndDate     time.Time `json:"endDate,omitzero" firestore:"endDate,omitempty"`
	StartDate   time.Time `json:"startDate,omitzero" firestore:"startDate,omitempty"`
}

const storeURLPrefix = "https://www.epicgames.com/store/p/"

// StoreURL returns the Epic store page for the offer, or "" when the slug is unknown.
func (o Offer) StoreURL() string {
	if o.URLSlug == "" {
		return ""
	}
	return storeURLPrefix + o.URLSlug
}

// FetchResult is the raw pair of offer lists returned by the upstream API.
type FetchResult struct {
	Current  []Offer
	Upcoming []Offer
}

// Titles returns the titles of offers in order.
func Titles(offers []Offer) []string {
	titles := make([]string, 0, len(offers))
	for _, o := range offers {
		titles = append(titles, o.Title)
	}
	return titles
}

// CloneOffers returns a copy of offers that shares no backing array.
// A nil input yields an empty, non-nil slice.
func CloneOffers(offers []Offer) []Offer {
	out := make([]Offer, len(offers))
	copy(out, offers)
	return out
}
