package storage

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"CinemaScanner/internal/domain"
)

func TestFileStateStoreRoundTrip(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	store := NewFileStateStore(filepath.Join(dir, "fetched.json"), filepath.Join(dir, "failed.json"), nil)
	ctx := context.Background()

	state, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, state.Fetched)
	assert.Empty(t, state.Failed)

	state.Fetched.Add("pune")
	state.Fetched.Add("agra")
	state.Failed.Add("mumbai")
	require.NoError(t, store.Save(ctx, state))

	raw, err := os.ReadFile(filepath.Join(dir, "fetched.json"))
	require.NoError(t, err)
	var slugs []string
	require.NoError(t, json.Unmarshal(raw, &slugs))
	assert.Equal(t, []string{"agra", "pune"}, slugs)

	reloaded, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.NewSet("agra", "pune"), reloaded.Fetched)
	assert.Equal(t, domain.NewSet("mumbai"), reloaded.Failed)
}

func TestFileStateStoreRecoversFromCorruption(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	fetched := filepath.Join(dir, "fetched.json")
	failed := filepath.Join(dir, "failed.json")
	require.NoError(t, os.WriteFile(fetched, []byte(`["pune", `), 0o644))
	require.NoError(t, os.WriteFile(failed, []byte("   \n"), 0o644))

	state, err := NewFileStateStore(fetched, failed, nil).Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, state.Fetched)
	assert.Empty(t, state.Failed)
}

func TestFileStateStoreFetchedWinsOverFailed(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	fetched := filepath.Join(dir, "fetched.json")
	failed := filepath.Join(dir, "failed.json")
	require.NoError(t, os.WriteFile(fetched, []byte(`["pune"]`), 0o644))
	require.NoError(t, os.WriteFile(failed, []byte(`["pune","agra"]`), 0o644))

	state, err := NewFileStateStore(fetched, failed, nil).Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.StatusFetched, state.Status("pune"))
	assert.Equal(t, domain.StatusFailed, state.Status("agra"))
	assert.Equal(t, domain.StatusPending, state.Status("delhi"))
}

func TestFileCatalog(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "cities.json")
	require.NoError(t, os.WriteFile(path, []byte(`[
	  {"RegionSlug": "mumbai", "RegionName": "Mumbai"},
	  {"RegionSlug": " pune "},
	  {"RegionSlug": ""},
	  {"RegionSlug": "mumbai"}
	]`), 0o644))

	locs, err := NewFileCatalog(path).Locations(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []domain.Location{{Slug: "mumbai"}, {Slug: "pune"}}, locs)

	_, err = NewFileCatalog(filepath.Join(t.TempDir(), "missing.json")).Locations(context.Background())
	assert.Error(t, err)
}

func TestFileMasterStore(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "moviedata.json")
	store := NewFileMasterStore(path)
	ctx := context.Background()

	records, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, records)

	want := []domain.MasterRecord{{
		Title:     "Amélie",
		Poster:    "https://in.bmscdn.com/events/moviecard/a.jpg",
		NewPoster: "https://assets-in.bmscdn.com/x/a.jpg",
		Genres:    []string{"Comedy"},
		Languages: []string{"French"},
	}}
	require.NoError(t, store.Save(ctx, want))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"New Poster"`)
	assert.Contains(t, string(raw), "Amélie")

	got, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))
	_, err = store.Load(ctx)
	assert.Error(t, err)
}

func TestSnapshotFiles(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "output")
	w := NewSnapshotFiles(dir, "movies.json", "venues.json")

	snap := domain.CoverageSnapshot{
		Movies: []domain.Movie{{Title: "Leo", CityCount: 2, Variants: []domain.Variant{{Code: "L1", CityCount: 2}}}},
		Venues: []domain.Venue{{Code: "V1", Name: "One & Only"}},
	}
	require.NoError(t, w.WriteSnapshot(context.Background(), snap))

	var venues map[string]domain.Venue
	raw, err := os.ReadFile(w.VenuesPath)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, &venues))
	assert.Equal(t, "One & Only", venues["V1"].Name)
	assert.Contains(t, string(raw), "One & Only")

	var movies []map[string]any
	raw, err = os.ReadFile(w.MoviesPath)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, &movies))
	require.Len(t, movies, 1)
	assert.EqualValues(t, 2, movies[0]["CityCount"])
	assert.Equal(t, "Leo", movies[0]["Title"])
}

func TestSnapshotFilesEmpty(t *testing.T) {
	t.Parallel()

	w := NewSnapshotFiles(t.TempDir(), "movies.json", "venues.json")
	require.NoError(t, w.WriteSnapshot(context.Background(), domain.CoverageSnapshot{}))

	raw, err := os.ReadFile(w.MoviesPath)
	require.NoError(t, err)
	assert.Equal(t, "[]", strings.TrimSpace(string(raw)))
}

func TestUpsertQuery(t *testing.T) {
	t.Parallel()

	query, args, err := upsertQuery(domain.MasterRecord{Title: "Don (2023)", Rating: "UA"})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(query, "INSERT INTO master_movies"))
	assert.Contains(t, query, "$9")
	assert.Contains(t, query, "ON CONFLICT (normalized_key) DO UPDATE")
	require.Len(t, args, 9)
	assert.Equal(t, "don", args[0])
	assert.Equal(t, []string{}, args[4])
	assert.Equal(t, "UA", args[6])
}

func TestRedisStateStore(t *testing.T) {
	redisURL := os.Getenv("REDIS_TEST_URL")
	if redisURL == "" {
		t.Skip("REDIS_TEST_URL not set")
	}

	ctx := context.Background()
	client, err := NewRedisClient(ctx, redisURL)
	require.NoError(t, err)
	defer client.Close()

	prefix := "cinemascanner-test-" + t.Name()
	store := NewRedisStateStore(client, prefix)
	defer client.Del(ctx, prefix+":fetched", prefix+":failed")

	require.NoError(t, store.Save(ctx, domain.ResumeState{
		Fetched: domain.NewSet("mumbai", "pune"),
		Failed:  domain.NewSet("pune", "leh"),
	}))

	got, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"mumbai", "pune"}, got.Fetched.Sorted())
	assert.Equal(t, []string{"leh"}, got.Failed.Sorted())

	require.NoError(t, store.Save(ctx, domain.ResumeState{Fetched: domain.NewSet(), Failed: domain.NewSet()}))
	got, err = store.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, got.Fetched)
	assert.Empty(t, got.Failed)
}
