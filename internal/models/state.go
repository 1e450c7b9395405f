package models

// TrackerState is the persisted record of what has been announced.
//
// Upcoming is append-only and deduplicated by title; it is never pruned.
// LastRunDate is an ISO calendar date (YYYY-MM-DD) in the configured time zone,
// empty when no successful reconciliation has happened yet.
type TrackerState struct {
	Current     []Offer `json:"current" firestore:"current"`
	Upcoming    []Offer `json:"upcoming" firestore:"upcoming"`
	LastRunDate string  `json:"last_daily_run,omitempty" firestore:"lastDailyRun,omitempty"`
}

// EmptyState returns the zero-value state with non-nil slices.
func EmptyState() TrackerState {
	return TrackerState{Current: []Offer{}, Upcoming: []Offer{}}
}

// Clone returns a deep copy of the state.
func (s TrackerState) Clone() TrackerState {
	return TrackerState{
		Current:     CloneOffers(s.Current),
		Upcoming:    CloneOffers(s.Upcoming),
		LastRunDate: s.LastRunDate,
	}
}

// Announcement is the payload handed to the presentation layer for one run.
type Announcement struct {
	Current   []Offer
	Upcoming  []Offer
	Requester string
}

// Empty reports whether there is nothing to post.
func (a Announcement) Empty() bool {
	return len(a.Current) == 0 && len(a.Upcoming) == 0
}
