package reconcile

import (
	"regexp"
	"strings"

	"CinemaScanner/internal/domain"
)

const (
	// DefaultLegacyPosterPrefix is the CDN path older poster URLs were issued under.
	DefaultLegacyPosterPrefix = "https://in.bmscdn.com/events/moviecard/"
	// DefaultCurrentPosterPrefix replaces DefaultLegacyPosterPrefix in rewritten posters.
	DefaultCurrentPosterPrefix = "https://assets-in.bmscdn.com/iedb/movies/images/mobile/listing/xlarge/"
)

var (
	parenthetical = regexp.MustCompile(`\([^)]*\)`)
	nonAlnum      = regexp.MustCompile(`[^a-z0-9]+`)
)

// Normalize derives the merge key of a title: lowercased, parenthetical text
// removed, everything but ASCII letters and digits stripped.
func Normalize(title string) string {
	t := strings.ToLower(title)
	t = parenthetical.ReplaceAllString(t, "")
	return nonAlnum.ReplaceAllString(t, "")
}

// RewritePoster swaps legacy for current when url starts with legacy.
func RewritePoster(url, legacy, current string) string {
	if url == "" || legacy == "" {
		return url
	}
	if strings.HasPrefix(url, legacy) {
		return current + strings.TrimPrefix(url, legacy)
	}
	return url
}

// Completeness scores how much of a record is populated (0-9).
func Completeness(poster string, genres []string, variants int, rating, eventDate string) int {
	s := 0
	if poster != "" {
		s += 2
	}
	if len(genres) > 0 {
		s += 2
	}
	if variants > 0 {
		s += 3
	}
	if rating != "" {
		s++
	}
	if eventDate != "" {
		s++
	}
	return s
}

func movieScore(m domain.Movie) int {
	return Completeness(m.Poster, m.Genres, len(m.Variants), m.Rating, m.EventDate)
}

// Master records carry no variant list.
func masterScore(r domain.MasterRecord) int {
	return Completeness(r.Poster, r.Genres, 0, r.Rating, r.EventDate)
}
