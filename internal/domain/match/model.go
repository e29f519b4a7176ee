package match

import (
	"context"

	"courtmatch/internal/domain/fault"
	"courtmatch/internal/domain/geo"
	"courtmatch/internal/domain/player"
	"courtmatch/internal/domain/schedule"
)

var (
	ErrLocationUnavailable = fault.New(fault.KindUnavailable, "location_unavailable", "current location is unavailable")
	ErrPoolUnavailable     = fault.New(fault.KindUnavailable, "pool_unavailable", "candidate pool is unavailable")
)

// ScoringStrategy selects which of the two match-score formulas applies.
// Both exist in the product; they are configuration, not a runtime choice
// the engine makes on its own.
type ScoringStrategy string

const (
	// StrategyLocation scores |skillDiff|*10 + distanceMiles and geofences
	// candidates to the search radius.
	StrategyLocation ScoringStrategy = "location"

	// StrategyVenue scores |skillDiff|*10 - commonVenues*5 and drops
	// candidates sharing no venue with the requester.
	StrategyVenue ScoringStrategy = "venue"
)

// Candidate is one entry of the raw pool handed to the ranker: the user plus
// the availability and whereabouts the ranker filters on.
type Candidate struct {
	User      player.User         `json:"user"`
	Location  *geo.Coordinate     `json:"location,omitempty"`
	TimeSlots []schedule.TimeSlot `json:"time_slots"`
	VenueIDs  []string            `json:"venue_ids,omitempty"`
}

// MatchCandidate is a scored, filtered candidate. Constructed per search and
// never persisted. Lower MatchScore is better.
type MatchCandidate struct {
	User            player.User        `json:"user"`
	Distance        float64            `json:"distance_miles"`
	SkillDifference int                `json:"skill_difference"`
	CommonVenues    int                `json:"common_venues"`
	OverlappingSlot *schedule.TimeSlot `json:"overlapping_slot,omitempty"`
	MatchScore      float64            `json:"match_score"`
}

// SearchRequest describes one ranking request. Exactly one of Location or
// VenueIDs matters depending on Strategy.
type SearchRequest struct {
	RequesterID string
	SkillLevel  int
	Strategy    ScoringStrategy
	Location    *geo.Coordinate
	RadiusMiles float64
	VenueIDs    []string
	TimeSlot    schedule.TimeSlot

	// Excluded reports relationships the ranker must skip (blocked players).
	// Nil means nothing extra is excluded.
	Excluded func(userID string) bool
}

// PoolProvider supplies the raw candidate set for a requester. Blocked
// relationships are expected to be pre-filtered or flagged through
// SearchRequest.Excluded.
type PoolProvider interface {
	Candidates(ctx context.Context, requesterID string) ([]Candidate, error)
}

// AuthorizationState mirrors the device location permission.
type AuthorizationState int

const (
	AuthorizationNotDetermined AuthorizationState = iota
	AuthorizationDenied
	AuthorizationAuthorized
)

// LocationProvider supplies the requester's current position when the
// search request does not carry one.
type LocationProvider interface {
	CurrentLocation(ctx context.Context) (*geo.Coordinate, error)
	AuthorizationState(ctx context.Context) AuthorizationState
}

// Ranker filters and orders a candidate pool for a requester.
type Ranker interface {
	// Rank returns candidates sorted ascending by match score. An empty
	// result is not an error; widening the search is the caller's call.
	Rank(ctx context.Context, req SearchRequest) ([]MatchCandidate, error)

	// BestMatch returns the top-ranked candidate, or nil when the filtered
	// pool is empty.
	BestMatch(ctx context.Context, req SearchRequest) (*MatchCandidate, error)
}
