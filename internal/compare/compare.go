// Package compare decides whether two offer collections describe the same
// set of games and which upcoming offers are not yet recorded.
package compare

import (
	mapset "github.com/deckarep/golang-set/v2"

	"github.com/pauljones0/epic-free-games-bot/internal/models"
)

func titleSet(offers []models.Offer) mapset.Set[string] {
	s := mapset.NewThreadUnsafeSetWithSize[string](len(offers))
	for _, o := range offers {
		s.Add(o.Title)
	}
	return s
}

// Same reports whether a and b contain the same set of titles.
// Order, duplicates and every non-title field are ignored, so a renewed end
// date on a known title is not a change.
func Same(a, b []models.Offer) bool {
	return titleSet(a).Equal(titleSet(b))
}

// NewUpcoming returns the offers in fetched whose title is not present in
// stored, in fetched order. Titles repeated within fetched are returned once.
func NewUpcoming(stored, fetched []models.Offer) []models.Offer {
	seen := titleSet(stored)
	var fresh []models.Offer
	for _, o := range fetched {
		if seen.Contains(o.Title) {
			continue
		}
		seen.Add(o.Title)
		fresh = append(fresh, o)
	}
	return fresh
}
