package cmd

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"courtmap/api"
	"courtmap/discovery"
	"courtmap/schedule"
	"courtmap/storage"

	"github.com/spf13/cobra"
)

const locateTimeout = 10 * time.Second

func resolveLocation(ctx context.Context, input string) (float64, float64, error) {
	if lat, lon, ok := parseCoordinate(input); ok {
		return lat, lon, nil
	}
	return client.Geocode(ctx, input)
}

func parseCoordinate(input string) (float64, float64, bool) {
	parts := strings.Split(input, ",")
	if len(parts) != 2 {
		return 0, 0, false
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil || lat < -90 || lat > 90 {
		return 0, 0, false
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil || lon < -180 || lon > 180 {
		return 0, 0, false
	}
	return lat, lon, true
}

// placeLocator resolves --near, falling back to default_location. It tries a
// saved place alias, then a literal lat,lng, then the geocoder.
type placeLocator struct {
	input string
}

func (l placeLocator) Locate(ctx context.Context) (discovery.Center, error) {
	input := strings.TrimSpace(l.input)
	if input == "" {
		input = strings.TrimSpace(cfg.DefaultLocation)
	}
	if input == "" {
		return discovery.Center{}, discovery.ErrLocationPermissionDenied
	}

	if places, err := storage.LoadPlaces(); err == nil {
		if place, ok := storage.FindPlaceByAlias(places, input); ok {
			return discovery.Center{Lat: place.Lat, Lng: place.Lng}, nil
		}
	}

	ctx, cancel := context.WithTimeout(ctx, locateTimeout)
	defer cancel()
	lat, lng, err := resolveLocation(ctx, input)
	if err != nil {
		return discovery.Center{}, fmt.Errorf("resolve %q: %w", input, err)
	}
	return discovery.Center{Lat: lat, Lng: lng}, nil
}

func contextWithLocateTimeout(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithTimeout(ctx, locateTimeout)
}

func locationError(err error) error {
	return fmt.Errorf("no location given: pass --near or set default_location in config (%w)", err)
}

// criteriaFlags are the filter and sort flags shared by nearby and map.
type criteriaFlags struct {
	access   string
	court    string
	capacity string
	skills   string
	sort     string
	verified bool
	openNow  bool
	radius   float64
}

func (f *criteriaFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.access, "access", "any", "Access: any, public or paid")
	cmd.Flags().StringVar(&f.court, "court", "any", "Court type: any, indoor or outdoor")
	cmd.Flags().StringVar(&f.capacity, "capacity", "any", "Total courts: any, small (1-4), medium (5-8) or large (9+)")
	cmd.Flags().StringVar(&f.skills, "skills", "", "Skill levels, comma separated (default: favourite_skills from config)")
	cmd.Flags().StringVar(&f.sort, "sort", "", "Sort: distance, rating or capacity (default: default_sort from config)")
	cmd.Flags().BoolVar(&f.verified, "verified", false, "Only verified venues")
	cmd.Flags().BoolVar(&f.openNow, "open-now", false, "Only venues open now")
	cmd.Flags().Float64Var(&f.radius, "radius", 0, "Search radius in miles (default: default_radius from config, else 25)")
}

func (f *criteriaFlags) criteria() (discovery.FilterCriteria, discovery.SortKey, error) {
	var c discovery.FilterCriteria
	var err error
	if c.Access, err = discovery.ParseAccess(f.access); err != nil {
		return c, 0, err
	}
	if c.CourtType, err = discovery.ParseCourtType(f.court); err != nil {
		return c, 0, err
	}
	if c.Capacity, err = discovery.ParseCapacity(f.capacity); err != nil {
		return c, 0, err
	}
	c.VerifiedOnly = f.verified
	c.OpenNowOnly = f.openNow

	if strings.TrimSpace(f.skills) != "" {
		if c.Skills, err = api.ParseSkillLevels(f.skills); err != nil {
			return c, 0, err
		}
	} else if len(cfg.FavouriteSkills) > 0 {
		c.Skills = api.NewSkillLevels(cfg.FavouriteSkills...)
	}

	sortInput := f.sort
	if sortInput == "" {
		sortInput = cfg.DefaultSort
	}
	key, err := discovery.ParseSortKey(sortInput)
	if err != nil {
		return c, 0, err
	}
	return c, key, nil
}

func (f *criteriaFlags) radiusMiles() (float64, error) {
	switch {
	case f.radius < 0:
		return 0, fmt.Errorf("--radius must be positive")
	case f.radius > 0:
		return f.radius, nil
	case cfg.DefaultRadius > 0:
		return cfg.DefaultRadius, nil
	default:
		return discovery.DefaultRadiusMiles, nil
	}
}

func newSession(criteria discovery.FilterCriteria, key discovery.SortKey, radius float64) *discovery.Session {
	fetcher := discovery.NewFetchController(client, logger)
	return discovery.NewSession(fetcher, schedule.NewEvaluator(nil),
		discovery.WithLogger(logger),
		discovery.WithCriteria(criteria),
		discovery.WithSortKey(key),
		discovery.WithRadius(radius),
	)
}

// saveSnapshot stores the session's last result; failures are only logged.
func saveSnapshot(db *sql.DB, session *discovery.Session) {
	if db == nil {
		return
	}
	result, ok := session.LastResult()
	if !ok {
		return
	}
	err := storage.SaveSnapshot(db, storage.Snapshot{
		Lat:         result.Center.Lat,
		Lng:         result.Center.Lng,
		RadiusMiles: result.RadiusMiles,
		FetchedAt:   result.FetchedAt,
		Source:      client.BaseURL,
		Records:     result.Records,
	})
	if err != nil {
		logger.Printf("snapshot save failed err=%v", err)
	}
}

// seedFromSnapshot primes session with the stored snapshot for the query, if any.
func seedFromSnapshot(db *sql.DB, session *discovery.Session, center discovery.Center, radius float64) (*storage.Snapshot, error) {
	if db == nil {
		return nil, nil
	}
	snap, err := storage.LoadSnapshot(db, center.Lat, center.Lng, radius)
	if err != nil || snap == nil {
		return nil, err
	}
	if err := session.Seed(center, radius, snap.Records, snap.FetchedAt); err != nil {
		return nil, err
	}
	logger.Printf("snapshot seeded key=%s records=%d fetched_at=%s", snap.Key, len(snap.Records), snap.FetchedAt.Format(time.RFC3339))
	return snap, nil
}

func openSnapshots() *sql.DB {
	db, err := storage.OpenSnapshotsDB()
	if err != nil {
		logger.Printf("snapshots unavailable err=%v", err)
		return nil
	}
	return db
}

func writeJSON(v any) error {
	return writeJSONTo(os.Stdout, v)
}

func writeJSONTo(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

func ageLabel(since time.Duration) string {
	switch {
	case since < time.Minute:
		return "just now"
	case since < time.Hour:
		return fmt.Sprintf("%dm ago", int(since.Minutes()))
	case since < 48*time.Hour:
		return fmt.Sprintf("%dh ago", int(since.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(since.Hours()/24))
	}
}
