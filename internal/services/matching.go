package services

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"

	"github.com/localpro/backend/internal/models"
)

// EventTaskCreated is fanned out to each matched candidate provider when a
// client posts a new task.
const EventTaskCreated = "task.created"

// Radius bands in meters. Matching starts at the base band and widens while
// the candidate count stays below MinCandidates, capped at the last band.
var radiusBandsMeters = []float64{6_000, 10_000, 15_000}

// MatcherProviderRepo is the minimal provider repository interface for matching.
type MatcherProviderRepo interface {
	ListVerifiedByCategory(ctx context.Context, categoryID uuid.UUID) ([]*models.Provider, error)
}

// Match is one ranked candidate.
type Match struct {
	Provider       *models.Provider `json:"provider"`
	DistanceMeters float64          `json:"distance_meters"`
}

// Matcher finds verified providers near a task. It performs no writes; it is
// a pure query over current provider state.
type Matcher struct {
	Providers MatcherProviderRepo
	// MinCandidates is the count below which the radius widens to the next band.
	MinCandidates int
}

// NewMatcher returns a Matcher that widens the search radius until at least
// one candidate is found.
func NewMatcher(providers MatcherProviderRepo) *Matcher {
	return &Matcher{Providers: providers, MinCandidates: 1}
}

// MatchTask returns verified providers of the task's category within the
// narrowest sufficient radius band, sorted ascending by great-circle
// distance, ties broken by provider id.
func (m *Matcher) MatchTask(ctx context.Context, task *models.Task) ([]Match, error) {
	if !task.HasCoordinates() {
		return nil, fmt.Errorf("%w: task has no coordinates", ErrValidation)
	}
	providers, err := m.Providers.ListVerifiedByCategory(ctx, task.CategoryID)
	if err != nil {
		return nil, err
	}

	origin := orb.Point{*task.Longitude, *task.Latitude}

	var matches []Match
	for _, radius := range radiusBandsMeters {
		matches = candidatesWithin(origin, providers, radius)
		if len(matches) >= m.minCandidates() {
			break
		}
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].DistanceMeters != matches[j].DistanceMeters {
			return matches[i].DistanceMeters < matches[j].DistanceMeters
		}
		return matches[i].Provider.ID.String() < matches[j].Provider.ID.String()
	})
	return matches, nil
}

// candidatesWithin filters providers by distance. Providers without
// coordinates are skipped, not errors.
func candidatesWithin(origin orb.Point, providers []*models.Provider, radiusMeters float64) []Match {
	var out []Match
	for _, p := range providers {
		if !p.HasCoordinates() {
			continue
		}
		d := geo.DistanceHaversine(origin, orb.Point{*p.Longitude, *p.Latitude})
		if d <= radiusMeters {
			out = append(out, Match{Provider: p, DistanceMeters: d})
		}
	}
	return out
}

func (m *Matcher) minCandidates() int {
	if m.MinCandidates <= 0 {
		return 1
	}
	return m.MinCandidates
}
