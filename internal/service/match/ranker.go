package match

import (
	"context"
	"math"
	"sort"

	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"

	"courtmatch/internal/domain/geo"
	"courtmatch/internal/domain/match"
	"courtmatch/internal/domain/schedule"
)

// Score weights. Skill distance dominates; distance or venue overlap breaks
// the field apart within a skill band.
const (
	skillWeight    = 10.0
	distanceWeight = 1.0
	venueWeight    = 5.0
)

// RankerConfig configures search behavior.
type RankerConfig struct {
	// DefaultRadiusMiles applies when a location search carries no radius.
	DefaultRadiusMiles float64

	// SkipGeoWhenUnavailable makes a location search degrade to pure skill
	// scoring when no position can be resolved, instead of failing with
	// ErrLocationUnavailable.
	SkipGeoWhenUnavailable bool
}

// Ranker implements match.Ranker. Each call is read-only over the pool
// snapshot it pulls, so concurrent searches share no mutable state.
type Ranker struct {
	pool     match.PoolProvider
	location match.LocationProvider
	filter   geo.Filter
	slots    schedule.Engine
	config   RankerConfig
	log      zerolog.Logger
}

// NewRanker creates a candidate ranker. location may be nil when every
// search request carries its own coordinates.
func NewRanker(
	pool match.PoolProvider,
	location match.LocationProvider,
	filter geo.Filter,
	slots schedule.Engine,
	config RankerConfig,
	log zerolog.Logger,
) *Ranker {
	return &Ranker{
		pool:     pool,
		location: location,
		filter:   filter,
		slots:    slots,
		config:   config,
		log:      log.With().Str("component", "ranker").Logger(),
	}
}

// Rank filters and scores the candidate pool for the request, sorted
// ascending by match score with distance then candidate id as tiebreaks.
// An empty result is not an error.
func (r *Ranker) Rank(ctx context.Context, req match.SearchRequest) ([]match.MatchCandidate, error) {
	pool, err := r.pool.Candidates(ctx, req.RequesterID)
	if err != nil {
		return nil, eris.Wrap(match.ErrPoolUnavailable, err.Error())
	}

	origin, geofence, err := r.resolveOrigin(ctx, req)
	if err != nil {
		return nil, err
	}

	radius := req.RadiusMiles
	if radius <= 0 {
		radius = r.config.DefaultRadiusMiles
	}

	ranked := make([]match.MatchCandidate, 0, len(pool))
	for _, c := range pool {
		if c.User.ID == req.RequesterID {
			continue
		}
		if req.Excluded != nil && req.Excluded(c.User.ID) {
			continue
		}

		overlap := r.bestOverlap(req.TimeSlot, c.TimeSlots)
		if overlap == nil {
			continue
		}

		mc := match.MatchCandidate{
			User:            c.User,
			SkillDifference: c.User.DisplayLevel() - req.SkillLevel,
			OverlappingSlot: overlap,
		}
		skill := math.Abs(float64(mc.SkillDifference)) * skillWeight

		switch req.Strategy {
		case match.StrategyVenue:
			mc.CommonVenues = commonVenues(req.VenueIDs, c.VenueIDs)
			if mc.CommonVenues == 0 {
				continue
			}
			mc.MatchScore = skill - float64(mc.CommonVenues)*venueWeight

		default:
			if geofence {
				if c.Location == nil {
					continue
				}
				mc.Distance = r.filter.Distance(*origin, *c.Location)
				if mc.Distance > radius {
					continue
				}
			}
			mc.MatchScore = skill + mc.Distance*distanceWeight
		}

		ranked = append(ranked, mc)
	}

	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].MatchScore != ranked[j].MatchScore {
			return ranked[i].MatchScore < ranked[j].MatchScore
		}
		if ranked[i].Distance != ranked[j].Distance {
			return ranked[i].Distance < ranked[j].Distance
		}
		return ranked[i].User.ID < ranked[j].User.ID
	})

	r.log.Debug().
		Str("requester", req.RequesterID).
		Int("pool", len(pool)).
		Int("ranked", len(ranked)).
		Str("strategy", string(req.Strategy)).
		Msg("ranked candidates")

	return ranked, nil
}

// BestMatch returns the top-ranked candidate, or nil when nothing survives
// filtering.
func (r *Ranker) BestMatch(ctx context.Context, req match.SearchRequest) (*match.MatchCandidate, error) {
	ranked, err := r.Rank(ctx, req)
	if err != nil {
		return nil, err
	}
	if len(ranked) == 0 {
		return nil, nil
	}
	return &ranked[0], nil
}

// resolveOrigin determines the search origin for a location search. It
// returns geofence=false when geofencing is configured to degrade instead of
// fail.
func (r *Ranker) resolveOrigin(ctx context.Context, req match.SearchRequest) (*geo.Coordinate, bool, error) {
	if req.Strategy == match.StrategyVenue {
		return nil, false, nil
	}

	if req.Location != nil {
		if err := req.Location.Validate(); err != nil {
			return nil, false, err
		}
		return req.Location, true, nil
	}

	if r.location != nil && r.location.AuthorizationState(ctx) == match.AuthorizationAuthorized {
		loc, err := r.location.CurrentLocation(ctx)
		if err == nil && loc != nil {
			return loc, true, nil
		}
	}

	if r.config.SkipGeoWhenUnavailable {
		return nil, false, nil
	}
	return nil, false, match.ErrLocationUnavailable
}

// bestOverlap returns the longest usable overlap between the requested slot
// and the candidate's availability.
func (r *Ranker) bestOverlap(want schedule.TimeSlot, have []schedule.TimeSlot) *schedule.TimeSlot {
	var best *schedule.TimeSlot
	for _, s := range have {
		o := r.slots.Overlap(want, s)
		if o == nil {
			continue
		}
		if best == nil || o.Duration() > best.Duration() {
			best = o
		}
	}
	return best
}

func commonVenues(a, b []string) int {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	set := make(map[string]struct{}, len(a))
	for _, v := range a {
		set[v] = struct{}{}
	}
	n := 0
	for _, v := range b {
		if _, ok := set[v]; ok {
			n++
		}
	}
	return n
}
