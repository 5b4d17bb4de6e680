package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"courtmap/api"
	"courtmap/discovery"
	"courtmap/storage"
)

const nearbyFixture = `{
  "ok": true,
  "locations": [
    {"id": "wash-park", "name": "Wash Park", "lat": 39.70, "lng": -104.97, "distance_mi": 2.1,
     "visited": true, "rating": 9.5, "indoor_courts": 0, "outdoor_courts": 8, "access": "free",
     "skill_levels": "beginner, intermediate"},
    {"id": "riverside", "name": "Riverside Indoor", "lat": 39.75, "lng": -104.99, "distance_mi": 3.4,
     "rating": 7.5, "indoor_courts": 4, "access": "paid", "skill_levels": ["advanced"],
     "hours": {"timezone": "America/Denver", "mon": {"open": "06:00", "close": "22:00"}}},
    {"id": "warehouse", "name": "Warehouse Courts", "lat": 39.74, "lng": -104.98, "distance_mi": 1.0,
     "rating": null, "indoor_courts": 6, "access": "public", "skill_levels": null}
  ]
}`

// withTestEnv points the config dir at a temp dir and restores package state.
func withTestEnv(t *testing.T) {
	t.Helper()
	t.Setenv(storage.ConfigDirEnv, t.TempDir())
	origClient, origCfg, origJSON, origCompact := client, cfg, outputJSON, outputCompact
	t.Cleanup(func() {
		client, cfg, outputJSON, outputCompact = origClient, origCfg, origJSON, origCompact
	})
	cfg = Config{}
	outputJSON = false
	outputCompact = false
}

type nearbyServer struct {
	*httptest.Server
	failing atomic.Bool
	radius  atomic.Value
	auth    atomic.Value
}

func newNearbyServer(t *testing.T) *nearbyServer {
	t.Helper()
	s := &nearbyServer{}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/locations/nearby" {
			http.NotFound(w, r)
			return
		}
		s.radius.Store(r.URL.Query().Get("radius"))
		s.auth.Store(r.Header.Get("Authorization"))
		if s.failing.Load() {
			http.Error(w, "upstream unavailable", http.StatusBadGateway)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(nearbyFixture))
	}))
	t.Cleanup(s.Close)

	client = api.NewClient()
	client.BaseURL = s.URL
	return s
}

func runNearby(t *testing.T, args ...string) (NearbyResult, string, error) {
	t.Helper()
	outputJSON = true
	cmd := nearbyCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()

	var result NearbyResult
	if err == nil {
		require.NoError(t, json.Unmarshal(out.Bytes(), &result))
	}
	return result, errOut.String(), err
}

func venueIDs(venues []discovery.AnnotatedVenue) []string {
	out := make([]string, 0, len(venues))
	for _, v := range venues {
		out = append(out, v.ID)
	}
	return out
}

func TestNearby_LiveFetch(t *testing.T) {
	withTestEnv(t)
	srv := newNearbyServer(t)
	client.APIKey = "secret"

	result, _, err := runNearby(t, "--near", "39.74,-104.99")
	require.NoError(t, err)

	assert.Equal(t, sourceLive, result.Source)
	assert.Equal(t, "25", srv.radius.Load())
	assert.Equal(t, "Bearer secret", srv.auth.Load())
	assert.Equal(t, 3, result.Fetched)
	assert.Equal(t, []string{"wash-park", "warehouse", "riverside"}, venueIDs(result.Venues))
	assert.Equal(t, api.AccessPublic, result.Venues[0].Access)
	assert.Equal(t, 8, result.Venues[0].TotalCourts)

	db, err := storage.OpenSnapshotsDB()
	require.NoError(t, err)
	defer db.Close()
	snap, err := storage.LoadSnapshot(db, 39.74, -104.99, 25)
	require.NoError(t, err)
	require.NotNil(t, snap)
	assert.Len(t, snap.Records, 3)
}

func TestNearby_FiltersAndSort(t *testing.T) {
	withTestEnv(t)
	newNearbyServer(t)

	result, _, err := runNearby(t, "--near", "39.74,-104.99", "--court", "indoor", "--sort", "rating", "--radius", "10")
	require.NoError(t, err)
	assert.Equal(t, []string{"riverside", "warehouse"}, venueIDs(result.Venues))
	assert.Equal(t, 10.0, result.RadiusMiles)
	assert.Equal(t, "rating", result.SortKey)

	result, _, err = runNearby(t, "--near", "39.74,-104.99", "--skills", "advanced,pro")
	require.NoError(t, err)
	assert.Equal(t, []string{"riverside"}, venueIDs(result.Venues))

	_, _, err = runNearby(t, "--near", "39.74,-104.99", "--access", "members")
	assert.Error(t, err)
}

func TestNearby_FallsBackToSnapshot(t *testing.T) {
	withTestEnv(t)
	srv := newNearbyServer(t)

	_, _, err := runNearby(t, "--near", "39.74,-104.99")
	require.NoError(t, err)

	srv.failing.Store(true)
	result, stderr, err := runNearby(t, "--near", "39.74,-104.99")
	require.NoError(t, err)
	assert.Equal(t, sourceSnapshot, result.Source)
	assert.Len(t, result.Venues, 3)
	assert.Contains(t, result.Notice, "live fetch failed")
	assert.Contains(t, stderr, "showing snapshot")

	_, _, err = runNearby(t, "--near", "40.01,-105.27")
	var invalid *api.InvalidResponseError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, http.StatusBadGateway, invalid.Status)
}

func TestNearby_Offline(t *testing.T) {
	withTestEnv(t)
	srv := newNearbyServer(t)

	_, _, err := runNearby(t, "--near", "39.74,-104.99", "--offline")
	assert.ErrorContains(t, err, "no snapshot")

	_, _, err = runNearby(t, "--near", "39.74,-104.99")
	require.NoError(t, err)

	srv.failing.Store(true)
	result, _, err := runNearby(t, "--near", "39.7401,-104.9899", "--offline", "--limit", "1")
	require.NoError(t, err)
	assert.Equal(t, sourceSnapshot, result.Source)
	assert.Len(t, result.Venues, 1)
	assert.Equal(t, 3, result.Matched)
}

func TestNearby_RequiresLocation(t *testing.T) {
	withTestEnv(t)
	newNearbyServer(t)

	_, _, err := runNearby(t)
	assert.ErrorIs(t, err, discovery.ErrLocationPermissionDenied)
	assert.ErrorContains(t, err, "--near")

	cfg.DefaultLocation = "39.74,-104.99"
	result, _, err := runNearby(t)
	require.NoError(t, err)
	assert.Len(t, result.Venues, 3)
}

func TestParseCoordinate(t *testing.T) {
	tests := []struct {
		input    string
		lat, lng float64
		ok       bool
	}{
		{"39.74,-104.99", 39.74, -104.99, true},
		{" 39.74 , -104.99 ", 39.74, -104.99, true},
		{"91,0", 0, 0, false},
		{"0,181", 0, 0, false},
		{"denver", 0, 0, false},
		{"1,2,3", 0, 0, false},
	}
	for _, tt := range tests {
		lat, lng, ok := parseCoordinate(tt.input)
		assert.Equal(t, tt.ok, ok, tt.input)
		assert.Equal(t, tt.lat, lat, tt.input)
		assert.Equal(t, tt.lng, lng, tt.input)
	}
}

func TestPlaceLocator(t *testing.T) {
	withTestEnv(t)
	var geocoded atomic.Int32
	geo := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		geocoded.Add(1)
		assert.Equal(t, "Boulder, CO", r.URL.Query().Get("q"))
		_, _ = w.Write([]byte(`[{"lat": "40.015", "lon": "-105.2705"}]`))
	}))
	defer geo.Close()
	client = api.NewClient()
	client.GeocodeURL = geo.URL

	require.NoError(t, storage.SavePlaces([]storage.Place{{Alias: "home", Lat: 39.7, Lng: -105}}))
	ctx := context.Background()

	center, err := placeLocator{input: "HOME"}.Locate(ctx)
	require.NoError(t, err)
	assert.Equal(t, discovery.Center{Lat: 39.7, Lng: -105}, center)

	center, err = placeLocator{input: "39.74,-104.99"}.Locate(ctx)
	require.NoError(t, err)
	assert.Equal(t, discovery.Center{Lat: 39.74, Lng: -104.99}, center)

	center, err = placeLocator{input: "Boulder, CO"}.Locate(ctx)
	require.NoError(t, err)
	assert.Equal(t, discovery.Center{Lat: 40.015, Lng: -105.2705}, center)
	assert.Equal(t, int32(1), geocoded.Load())

	_, err = placeLocator{}.Locate(ctx)
	assert.ErrorIs(t, err, discovery.ErrLocationPermissionDenied)

	cfg.DefaultLocation = "home"
	center, err = placeLocator{}.Locate(ctx)
	require.NoError(t, err)
	assert.Equal(t, 39.7, center.Lat)
}

func TestCriteriaFlags(t *testing.T) {
	withTestEnv(t)

	flags := criteriaFlags{access: "public", court: "outdoor", capacity: "5-8", verified: true}
	criteria, key, err := flags.criteria()
	require.NoError(t, err)
	assert.Equal(t, discovery.FilterCriteria{
		Access:       discovery.AccessPublic,
		CourtType:    discovery.CourtOutdoor,
		Capacity:     discovery.CapacityMedium,
		VerifiedOnly: true,
	}, criteria)
	assert.Equal(t, discovery.SortDistance, key)

	cfg.DefaultSort = "rating"
	cfg.FavouriteSkills = []string{"Pro", "novice"}
	criteria, key, err = (&criteriaFlags{}).criteria()
	require.NoError(t, err)
	assert.Equal(t, discovery.SortRating, key)
	assert.Equal(t, api.SkillLevels{api.SkillBeginner, api.SkillPro}, criteria.Skills)

	_, _, err = (&criteriaFlags{skills: "wizard"}).criteria()
	assert.Error(t, err)
	_, _, err = (&criteriaFlags{sort: "name"}).criteria()
	assert.Error(t, err)
}

func TestRadiusMiles(t *testing.T) {
	withTestEnv(t)

	r, err := (&criteriaFlags{}).radiusMiles()
	require.NoError(t, err)
	assert.Equal(t, discovery.DefaultRadiusMiles, r)

	cfg.DefaultRadius = 40
	r, err = (&criteriaFlags{}).radiusMiles()
	require.NoError(t, err)
	assert.Equal(t, 40.0, r)

	r, err = (&criteriaFlags{radius: 5}).radiusMiles()
	require.NoError(t, err)
	assert.Equal(t, 5.0, r)

	_, err = (&criteriaFlags{radius: -1}).radiusMiles()
	assert.Error(t, err)
}

func TestLoadConfig(t *testing.T) {
	withTestEnv(t)

	conf, err := loadConfig()
	require.NoError(t, err)
	assert.Equal(t, Config{}, conf)

	path, err := storage.ConfigPath()
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(`{
  "default_location": "home",
  "default_radius": 15,
  "default_sort": "rating",
  "favourite_skills": ["intermediate"]
}`), 0o644))

	conf, err = loadConfig()
	require.NoError(t, err)
	assert.Equal(t, "home", conf.DefaultLocation)
	assert.Equal(t, 15.0, conf.DefaultRadius)
	assert.Equal(t, "rating", conf.DefaultSort)
	assert.Equal(t, []string{"intermediate"}, conf.FavouriteSkills)
}

func TestConfigureClientPrecedence(t *testing.T) {
	withTestEnv(t)
	client = api.NewClient()
	t.Setenv(envAPIURL, "")
	t.Setenv(envAPIKey, "")

	cfg.APIBaseURL = "https://config.example.test"
	require.NoError(t, storage.SaveCredentials(storage.NewCredentials("stored-key", time.Now())))
	configureClient()
	assert.Equal(t, "https://config.example.test", client.BaseURL)
	assert.Equal(t, "stored-key", client.APIKey)

	t.Setenv(envAPIURL, "https://env.example.test")
	t.Setenv(envAPIKey, "env-key")
	configureClient()
	assert.Equal(t, "https://env.example.test", client.BaseURL)
	assert.Equal(t, "env-key", client.APIKey)
}

func TestAgeLabel(t *testing.T) {
	assert.Equal(t, "just now", ageLabel(10*time.Second))
	assert.Equal(t, "5m ago", ageLabel(5*time.Minute))
	assert.Equal(t, "3h ago", ageLabel(3*time.Hour))
	assert.Equal(t, "4d ago", ageLabel(96*time.Hour))
}
