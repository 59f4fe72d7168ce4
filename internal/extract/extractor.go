package extract

import (
	"encoding/json"
	"strings"

	"CinemaScanner/internal/domain"
	"CinemaScanner/internal/ports"
)

// DefaultPosterCDN is the path prefix poster image codes are appended to.
const DefaultPosterCDN = "https://in.bmscdn.com/events/moviecard/"

// NoPoster is stored when the first variant carries no image code.
const NoPoster = ""

type eventVariant struct {
	Name      flexString `json:"EventName"`
	Code      flexString `json:"EventCode"`
	Language  flexString `json:"EventLanguage"`
	Format    flexString `json:"EventDimension"`
	ImageCode flexString `json:"EventImageCode"`
	Genres    flexList   `json:"Genre"`
	Censor    flexString `json:"EventCensor"`
	Duration  flexString `json:"Duration"`
	EventDate flexString `json:"EventDate"`
	IsNew     flexBool   `json:"isNewEvent"`
}

type eventGroup struct {
	Title    flexString        `json:"EventTitle"`
	Children []json.RawMessage `json:"ChildEvents"`
}

// Elements stay raw so one malformed entry only drops itself.
type moviesEnvelope struct {
	MoviesData struct {
		BookMyShow struct {
			Events []json.RawMessage `json:"arrEvents"`
		} `json:"BookMyShow"`
	} `json:"moviesData"`
}

type venueDescriptor struct {
	Code          flexString `json:"VenueCode"`
	Name          flexString `json:"VenueName"`
	Address       flexString `json:"VenueAddress"`
	City          flexString `json:"City"`
	State         flexString `json:"State"`
	RegionCode    flexString `json:"RegionCode"`
	SubRegionCode flexString `json:"SubRegionCode"`
	Latitude      flexString `json:"VenueLatitude"`
	Longitude     flexString `json:"VenueLongitude"`
	Formats       flexList   `json:"availableEventFormats"`
}

type venuesEnvelope struct {
	Cinemas struct {
		BookMyShow struct {
			AIVN struct {
				Venues []json.RawMessage `json:"venues"`
			} `json:"aiVN"`
		} `json:"BookMyShow"`
	} `json:"cinemas"`
}

// Extractor parses QUICKBOOK payloads.
type Extractor struct {
	posterCDN string
}

var _ ports.Extractor = (*Extractor)(nil)

// NewExtractor builds an extractor; an empty posterCDN falls back to DefaultPosterCDN.
func NewExtractor(posterCDN string) *Extractor {
	if strings.TrimSpace(posterCDN) == "" {
		posterCDN = DefaultPosterCDN
	}
	return &Extractor{posterCDN: posterCDN}
}

// Extract returns the movies and venues found in raw. Missing or malformed
// sections produce empty slices rather than errors.
func (e *Extractor) Extract(raw []byte) domain.LocationResult {
	return domain.LocationResult{
		Movies: e.movies(raw),
		Venues: venues(raw),
	}
}

func (e *Extractor) movies(raw []byte) []domain.Movie {
	var env moviesEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil
	}

	var (
		out   []domain.Movie
		index = map[string]int{}
	)
	for _, item := range env.MoviesData.BookMyShow.Events {
		var group eventGroup
		if err := json.Unmarshal(item, &group); err != nil {
			continue
		}
		title := string(group.Title)
		children := decodeVariants(group.Children)
		if title == "" || len(children) == 0 {
			continue
		}

		pos, ok := index[title]
		if !ok {
			first := children[0]
			out = append(out, domain.Movie{
				Title:     title,
				Poster:    e.posterURL(string(first.ImageCode)),
				Genres:    genres(first.Genres),
				Rating:    string(first.Censor),
				Duration:  string(first.Duration),
				EventDate: string(first.EventDate),
				IsNew:     bool(first.IsNew),
				Variants:  []domain.Variant{},
			})
			pos = len(out) - 1
			index[title] = pos
		}

		movie := &out[pos]
		for _, child := range children {
			code := string(child.Code)
			if movie.HasVariant(code) {
				continue
			}
			movie.Variants = append(movie.Variants, domain.Variant{
				Name:     string(child.Name),
				Code:     code,
				Language: string(child.Language),
				Format:   string(child.Format),
			})
		}
	}
	return out
}

func venues(raw []byte) []domain.Venue {
	var env venuesEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil
	}

	var (
		out  []domain.Venue
		seen = map[string]struct{}{}
	)
	for _, item := range env.Cinemas.BookMyShow.AIVN.Venues {
		var v venueDescriptor
		if err := json.Unmarshal(item, &v); err != nil {
			continue
		}
		code := string(v.Code)
		if _, ok := seen[code]; ok {
			continue
		}
		seen[code] = struct{}{}
		out = append(out, domain.Venue{
			Code:             code,
			Name:             string(v.Name),
			Address:          string(v.Address),
			City:             string(v.City),
			State:            string(v.State),
			RegionCode:       string(v.RegionCode),
			SubRegionCode:    string(v.SubRegionCode),
			Latitude:         string(v.Latitude),
			Longitude:        string(v.Longitude),
			AvailableFormats: nonNil(v.Formats),
		})
	}
	return out
}

// decodeVariants keeps the children that decode; the first of them carries
// the movie's metadata.
func decodeVariants(items []json.RawMessage) []eventVariant {
	out := make([]eventVariant, 0, len(items))
	for _, item := range items {
		var v eventVariant
		if err := json.Unmarshal(item, &v); err != nil {
			continue
		}
		out = append(out, v)
	}
	return out
}

func genres(list flexList) []string {
	return nonNil(list)
}

func nonNil(list flexList) []string {
	if len(list) == 0 {
		return []string{}
	}
	return []string(list)
}

func (e *Extractor) posterURL(imageCode string) string {
	if imageCode == "" {
		return NoPoster
	}
	return e.posterCDN + imageCode + ".jpg"
}
