package domain

// Variant is one screening configuration (language + format) of a movie.
type Variant struct {
	Name     string `json:"VariantName"`
	Code     string `json:"EventCode"`
	Language string `json:"Language"`
	Format   string `json:"Format"`
	// CityCount is only populated on snapshot output.
	CityCount int `json:"CityCount,omitempty"`
}

// Movie is a titled event with its screening variants. Title is the raw
// upstream string; normalization only happens during reconciliation.
type Movie struct {
	Title     string    `json:"Title"`
	Poster    string    `json:"Poster"`
	Genres    []string  `json:"Genres"`
	Rating    string    `json:"Rating"`
	Duration  string    `json:"Duration"`
	EventDate string    `json:"EventDate"`
	IsNew     bool      `json:"isNewEvent"`
	CityCount int       `json:"CityCount,omitempty"`
	Variants  []Variant `json:"Variants"`
}

// HasVariant reports whether a variant with code is already recorded.
func (m Movie) HasVariant(code string) bool {
	for _, v := range m.Variants {
		if v.Code == code {
			return true
		}
	}
	return false
}

// Venue is a cinema as reported by a location payload.
type Venue struct {
	Code             string   `json:"VenueCode"`
	Name             string   `json:"VenueName"`
	Address          string   `json:"VenueAddress"`
	City             string   `json:"City"`
	State            string   `json:"State"`
	RegionCode       string   `json:"RegionCode"`
	SubRegionCode    string   `json:"SubRegionCode"`
	Latitude         string   `json:"Latitude"`
	Longitude        string   `json:"Longitude"`
	AvailableFormats []string `json:"AvailableFormats"`
}

// LocationResult is what one location contributed during a run, in payload order.
type LocationResult struct {
	Slug   string
	Movies []Movie
	Venues []Venue
}

// CoverageSnapshot is the aggregated view of a run.
type CoverageSnapshot struct {
	Movies []Movie
	Venues []Venue
}

// VenueIndex renders the venue table keyed by venue code.
func (s CoverageSnapshot) VenueIndex() map[string]Venue {
	out := make(map[string]Venue, len(s.Venues))
	for _, v := range s.Venues {
		out[v.Code] = v
	}
	return out
}

// MasterRecord is the long-lived, cross-run view of a movie.
type MasterRecord struct {
	Title     string   `json:"Title"`
	Poster    string   `json:"Poster"`
	NewPoster string   `json:"New Poster"`
	Genres    []string `json:"Genres"`
	Rating    string   `json:"Rating"`
	Duration  string   `json:"Duration"`
	EventDate string   `json:"EventDate"`
	Languages []string `json:"Languages"`
}
