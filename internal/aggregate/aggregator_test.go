package aggregate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"CinemaScanner/internal/domain"
)

func movie(title string, codes ...string) domain.Movie {
	m := domain.Movie{Title: title, Poster: "poster-" + title, Genres: []string{"Drama"}}
	for _, c := range codes {
		m.Variants = append(m.Variants, domain.Variant{Code: c, Name: title + " " + c, Language: "Hindi", Format: "2D"})
	}
	return m
}

func sampleResults() []domain.LocationResult {
	return []domain.LocationResult{
		{
			Slug:   "mumbai",
			Movies: []domain.Movie{movie("Alpha", "A1"), movie("Beta", "B1", "B2")},
			Venues: []domain.Venue{{Code: "V1", Name: "Mumbai One"}},
		},
		{
			Slug:   "pune",
			Movies: []domain.Movie{movie("Beta", "B2"), movie("Gamma", "G1")},
			Venues: []domain.Venue{{Code: "V1", Name: "Pune Copy"}, {Code: "V2", Name: "Pune Two"}},
		},
		{
			Slug:   "delhi",
			Movies: []domain.Movie{movie("Beta", "B2", "B3"), movie("Gamma", "G1")},
		},
	}
}

func coverage(s domain.CoverageSnapshot) map[string]int {
	out := map[string]int{}
	for _, m := range s.Movies {
		out[m.Title] = m.CityCount
		for _, v := range m.Variants {
			out[m.Title+"/"+v.Code] = v.CityCount
		}
	}
	return out
}

func TestSnapshotCoverageAndOrder(t *testing.T) {
	t.Parallel()

	snap := Build(sampleResults())
	require.Len(t, snap.Movies, 3)

	assert.Equal(t, "Beta", snap.Movies[0].Title)
	assert.Equal(t, 3, snap.Movies[0].CityCount)
	assert.Equal(t, "Gamma", snap.Movies[1].Title)
	assert.Equal(t, 2, snap.Movies[1].CityCount)
	assert.Equal(t, "Alpha", snap.Movies[2].Title)
	assert.Equal(t, 1, snap.Movies[2].CityCount)

	beta := snap.Movies[0]
	require.Len(t, beta.Variants, 3)
	assert.Equal(t, "B2", beta.Variants[0].Code)
	assert.Equal(t, 3, beta.Variants[0].CityCount)
	assert.Equal(t, "B1", beta.Variants[1].Code)
	assert.Equal(t, 1, beta.Variants[1].CityCount)
	assert.Equal(t, "B3", beta.Variants[2].Code)
	assert.Equal(t, 1, beta.Variants[2].CityCount)
}

func TestSnapshotStableTies(t *testing.T) {
	t.Parallel()

	snap := Build([]domain.LocationResult{
		{Slug: "a", Movies: []domain.Movie{movie("First", "F1", "F2"), movie("Second", "S1")}},
		{Slug: "b", Movies: []domain.Movie{movie("Third", "T1")}},
	})

	titles := []string{}
	for _, m := range snap.Movies {
		titles = append(titles, m.Title)
	}
	assert.Equal(t, []string{"First", "Second", "Third"}, titles)
	assert.Equal(t, "F1", snap.Movies[0].Variants[0].Code)
	assert.Equal(t, "F2", snap.Movies[0].Variants[1].Code)
}

func TestCoverageIndependentOfOrder(t *testing.T) {
	t.Parallel()

	results := sampleResults()
	forward := coverage(Build(results))

	reversed := make([]domain.LocationResult, len(results))
	for i, r := range results {
		reversed[len(results)-1-i] = r
	}
	assert.Equal(t, forward, coverage(Build(reversed)))
}

func TestSameLocationCountedOnce(t *testing.T) {
	t.Parallel()

	agg := New()
	agg.Add(domain.LocationResult{Slug: "mumbai", Movies: []domain.Movie{movie("Alpha", "A1")}})
	agg.Add(domain.LocationResult{Slug: "mumbai", Movies: []domain.Movie{movie("Alpha", "A1")}})

	snap := agg.Snapshot()
	require.Len(t, snap.Movies, 1)
	assert.Equal(t, 1, snap.Movies[0].CityCount)
	assert.Equal(t, 1, snap.Movies[0].Variants[0].CityCount)
}

func TestNearDuplicateTitlesStaySeparate(t *testing.T) {
	t.Parallel()

	snap := Build([]domain.LocationResult{
		{Slug: "a", Movies: []domain.Movie{movie("Don (2023)", "D1")}},
		{Slug: "b", Movies: []domain.Movie{movie("DON", "D2")}},
	})
	assert.Len(t, snap.Movies, 2)
}

func TestFirstSeenMetadataWins(t *testing.T) {
	t.Parallel()

	first := movie("Alpha", "A1")
	first.Rating = "UA"
	second := movie("Alpha", "A2")
	second.Rating = "A"
	second.Poster = "other"

	snap := Build([]domain.LocationResult{
		{Slug: "a", Movies: []domain.Movie{first}},
		{Slug: "b", Movies: []domain.Movie{second}},
	})
	require.Len(t, snap.Movies, 1)
	assert.Equal(t, "UA", snap.Movies[0].Rating)
	assert.Equal(t, "poster-Alpha", snap.Movies[0].Poster)
	assert.Len(t, snap.Movies[0].Variants, 2)
}

func TestVenuesFirstSeenWinsAndUnique(t *testing.T) {
	t.Parallel()

	snap := Build(sampleResults())
	require.Len(t, snap.Venues, 2)
	assert.Equal(t, "Mumbai One", snap.Venues[0].Name)
	assert.Equal(t, "V2", snap.Venues[1].Code)

	index := snap.VenueIndex()
	assert.Len(t, index, 2)
	assert.Equal(t, "Pune Two", index["V2"].Name)
}

func TestVariantCodesUniquePerMovie(t *testing.T) {
	t.Parallel()

	for _, m := range Build(sampleResults()).Movies {
		seen := map[string]bool{}
		for _, v := range m.Variants {
			assert.False(t, seen[v.Code], "duplicate code %s in %s", v.Code, m.Title)
			seen[v.Code] = true
		}
	}
}
