// Package aggregate folds per-location extraction results into a coverage snapshot.
package aggregate

import (
	"sort"

	"CinemaScanner/internal/domain"
)

// Aggregator is not safe for concurrent use; callers serialize Add.
type Aggregator struct {
	movies     map[string]*domain.Movie
	movieOrder []string
	movieLocs  map[string]domain.Set
	variantLoc map[string]domain.Set

	venues     map[string]domain.Venue
	venueOrder []string
}

// New returns an empty aggregator.
func New() *Aggregator {
	return &Aggregator{
		movies:     map[string]*domain.Movie{},
		movieLocs:  map[string]domain.Set{},
		variantLoc: map[string]domain.Set{},
		venues:     map[string]domain.Venue{},
	}
}

// Add merges one location's result. Movie metadata and venues are
// first-seen-wins; variant lists are unioned by code.
func (a *Aggregator) Add(res domain.LocationResult) {
	for _, m := range res.Movies {
		movie, ok := a.movies[m.Title]
		if !ok {
			movie = &domain.Movie{
				Title:     m.Title,
				Poster:    m.Poster,
				Genres:    m.Genres,
				Rating:    m.Rating,
				Duration:  m.Duration,
				EventDate: m.EventDate,
				IsNew:     m.IsNew,
				Variants:  []domain.Variant{},
			}
			a.movies[m.Title] = movie
			a.movieOrder = append(a.movieOrder, m.Title)
			a.movieLocs[m.Title] = domain.NewSet()
		}
		a.movieLocs[m.Title].Add(res.Slug)

		for _, v := range m.Variants {
			locs, ok := a.variantLoc[v.Code]
			if !ok {
				locs = domain.NewSet()
				a.variantLoc[v.Code] = locs
			}
			locs.Add(res.Slug)

			if !movie.HasVariant(v.Code) {
				v.CityCount = 0
				movie.Variants = append(movie.Variants, v)
			}
		}
	}

	for _, v := range res.Venues {
		if _, ok := a.venues[v.Code]; ok {
			continue
		}
		a.venues[v.Code] = v
		a.venueOrder = append(a.venueOrder, v.Code)
	}
}

// MovieCount returns the number of distinct raw titles seen so far.
func (a *Aggregator) MovieCount() int {
	return len(a.movies)
}

// VenueCount returns the number of distinct venue codes seen so far.
func (a *Aggregator) VenueCount() int {
	return len(a.venues)
}

// Snapshot renders the coverage-sorted view. Ties keep first-seen order.
func (a *Aggregator) Snapshot() domain.CoverageSnapshot {
	movies := make([]domain.Movie, 0, len(a.movieOrder))
	for _, title := range a.movieOrder {
		src := a.movies[title]
		m := *src
		m.CityCount = len(a.movieLocs[title])
		m.Variants = make([]domain.Variant, len(src.Variants))
		for i, v := range src.Variants {
			v.CityCount = len(a.variantLoc[v.Code])
			m.Variants[i] = v
		}
		sort.SliceStable(m.Variants, func(i, j int) bool {
			return m.Variants[i].CityCount > m.Variants[j].CityCount
		})
		movies = append(movies, m)
	}
	sort.SliceStable(movies, func(i, j int) bool {
		return movies[i].CityCount > movies[j].CityCount
	})

	venues := make([]domain.Venue, 0, len(a.venueOrder))
	for _, code := range a.venueOrder {
		venues = append(venues, a.venues[code])
	}

	return domain.CoverageSnapshot{Movies: movies, Venues: venues}
}

// Build is a convenience for aggregating a complete set of results at once.
func Build(results []domain.LocationResult) domain.CoverageSnapshot {
	agg := New()
	for _, res := range results {
		agg.Add(res)
	}
	return agg.Snapshot()
}
