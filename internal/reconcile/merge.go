package reconcile

import "CinemaScanner/internal/domain"

// Merger folds coverage snapshots into the master dataset.
type Merger struct {
	legacyPrefix  string
	currentPrefix string
}

// NewMerger configures poster rewriting; empty prefixes fall back to the defaults.
func NewMerger(legacyPrefix, currentPrefix string) *Merger {
	if legacyPrefix == "" {
		legacyPrefix = DefaultLegacyPosterPrefix
	}
	if currentPrefix == "" {
		currentPrefix = DefaultCurrentPosterPrefix
	}
	return &Merger{legacyPrefix: legacyPrefix, currentPrefix: currentPrefix}
}

type entry struct {
	record    domain.MasterRecord
	genres    domain.Set
	languages domain.Set
	score     int
}

// Merge returns the updated master set: existing records in their original
// order followed by new keys in snapshot order. Neither input is modified.
func (m *Merger) Merge(master []domain.MasterRecord, snapshot []domain.Movie) []domain.MasterRecord {
	var (
		order []string
		table = map[string]*entry{}
	)

	for _, rec := range master {
		key := Normalize(rec.Title)
		e := &entry{
			record: domain.MasterRecord{
				Title:     rec.Title,
				Poster:    rec.Poster,
				NewPoster: m.rewrite(rec.Poster),
				Rating:    rec.Rating,
				Duration:  rec.Duration,
				EventDate: rec.EventDate,
			},
			genres:    domain.NewSet(rec.Genres...),
			languages: domain.NewSet(rec.Languages...),
			score:     masterScore(rec),
		}
		if _, ok := table[key]; !ok {
			order = append(order, key)
		}
		table[key] = e
	}

	for _, movie := range snapshot {
		if movie.Title == "" {
			continue
		}
		key := Normalize(movie.Title)
		score := movieScore(movie)

		cur, ok := table[key]
		if !ok {
			cur = &entry{
				record: domain.MasterRecord{
					Title:     movie.Title,
					Poster:    movie.Poster,
					NewPoster: m.rewrite(movie.Poster),
					Rating:    movie.Rating,
					Duration:  movie.Duration,
					EventDate: movie.EventDate,
				},
				genres:    domain.NewSet(),
				languages: domain.NewSet(),
				score:     score,
			}
			table[key] = cur
			order = append(order, key)
		}

		if score > cur.score {
			cur.record.Title = movie.Title
			cur.record.Rating = movie.Rating
			cur.record.Duration = movie.Duration
			cur.record.EventDate = movie.EventDate
			cur.score = score
		}

		if cur.record.Poster == "" && movie.Poster != "" {
			cur.record.Poster = movie.Poster
			cur.record.NewPoster = m.rewrite(movie.Poster)
		}

		for _, g := range movie.Genres {
			cur.genres.Add(g)
		}
		for _, v := range movie.Variants {
			if v.Language != "" {
				cur.languages.Add(v.Language)
			}
		}
	}

	out := make([]domain.MasterRecord, 0, len(order))
	for _, key := range order {
		e := table[key]
		rec := e.record
		rec.Genres = e.genres.Sorted()
		rec.Languages = e.languages.Sorted()
		out = append(out, rec)
	}
	return out
}

func (m *Merger) rewrite(url string) string {
	return RewritePoster(url, m.legacyPrefix, m.currentPrefix)
}
