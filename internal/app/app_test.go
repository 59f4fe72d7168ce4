package app

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"CinemaScanner/internal/config"
	"CinemaScanner/internal/domain"
	"CinemaScanner/internal/logging"
)

const quickbookPayload = `{
  "moviesData": {"BookMyShow": {"arrEvents": [
    {"EventTitle": "Stree 2", "ChildEvents": [
      {"EventName": "Stree 2", "EventCode": "ET00364249", "EventLanguage": "Hindi", "EventDimension": "2D",
       "EventImageCode": "stree-2", "Genre": ["Comedy", "Horror"], "EventCensor": "UA", "Duration": "147", "EventDate": "20240815"}
    ]}
  ]}},
  "cinemas": {"BookMyShow": {"aiVN": {"venues": [
    {"VenueCode": "PVRJ", "VenueName": "PVR Juhu", "City": "Mumbai"}
  ]}}}
}`

func testConfig(t *testing.T, baseURL string) config.Config {
	t.Helper()

	dir := t.TempDir()
	catalog := filepath.Join(dir, "citiesbms.json")
	require.NoError(t, os.WriteFile(catalog, []byte(`[{"RegionSlug":"mumbai"},{"RegionSlug":"pune"}]`), 0o600))

	return config.Config{
		Scanner: config.ScannerConfig{
			BaseURL:          baseURL,
			HomePath:         "/explore/home",
			DataPath:         "/serv/getData?cmd=QUICKBOOK&type=MT",
			Concurrency:      2,
			BreakerThreshold: 10,
			Identity:         "static",
		},
		Catalog: config.CatalogConfig{Path: catalog},
		State: config.StateConfig{
			Backend:     config.StateBackendFile,
			FetchedPath: filepath.Join(dir, "citiesfetched.json"),
			FailedPath:  filepath.Join(dir, "citiesfailed.json"),
		},
		Output: config.OutputConfig{Dir: filepath.Join(dir, "output"), Movies: "movies.json", Venues: "venues.json"},
		Master: config.MasterConfig{Path: filepath.Join(dir, "moviedata.json")},
	}
}

func TestApplicationRunOnce(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/explore/home/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "<html><head><title>Movies</title></head><body></body></html>")
	})
	mux.HandleFunc("/serv/getData", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, quickbookPayload)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	cfg := testConfig(t, srv.URL)
	application, err := New(context.Background(), cfg, logging.NewWithWriter(io.Discard, "error"))
	require.NoError(t, err)
	defer application.Close()

	require.NoError(t, application.Run(context.Background()))

	var movies []domain.Movie
	readJSONFile(t, filepath.Join(cfg.Output.Dir, "movies.json"), &movies)
	require.Len(t, movies, 1)
	assert.Equal(t, "Stree 2", movies[0].Title)
	assert.Equal(t, 2, movies[0].CityCount)

	var venues map[string]domain.Venue
	readJSONFile(t, filepath.Join(cfg.Output.Dir, "venues.json"), &venues)
	assert.Contains(t, venues, "PVRJ")

	var master []domain.MasterRecord
	readJSONFile(t, cfg.Master.Path, &master)
	require.Len(t, master, 1)
	assert.Equal(t, []string{"Hindi"}, master[0].Languages)

	var fetched []string
	readJSONFile(t, cfg.State.FetchedPath, &fetched)
	assert.Equal(t, []string{"mumbai", "pune"}, fetched)
}

func TestNewRejectsUnknownIdentity(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t, "https://example.test")
	cfg.Scanner.Identity = "carrier-pigeon"

	_, err := New(context.Background(), cfg, logging.NewWithWriter(io.Discard, "error"))
	require.Error(t, err)
}

func TestNewLimiter(t *testing.T) {
	t.Parallel()

	assert.Nil(t, newLimiter(0))
	l := newLimiter(2.5)
	require.NotNil(t, l)
	assert.Equal(t, 3, l.Burst())
}

func readJSONFile(t *testing.T, path string, v any) {
	t.Helper()
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, v))
}
