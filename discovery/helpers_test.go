package discovery

import (
	"context"
	"sync"
	"time"

	"courtmap/api"
	"courtmap/schedule"
)

// monday18 is Monday 2026-10-19 18:00 UTC.
var monday18 = time.Date(2026, time.October, 19, 18, 0, 0, 0, time.UTC)

func fixedEvaluator(at time.Time) *schedule.Evaluator {
	return schedule.NewEvaluator(schedule.FixedClock{At: at, Local: time.UTC})
}

type stepClock struct {
	mu sync.Mutex
	at time.Time
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.at
}

func (c *stepClock) Set(at time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.at = at
}

func (c *stepClock) Location(name string) (*time.Location, error) {
	if name == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(name)
}

func distance(mi float64) *float64 {
	return &mi
}

func hours(tz string, days map[time.Weekday][2]string) *schedule.Schedule {
	s := &schedule.Schedule{TimeZone: tz, Days: map[time.Weekday]schedule.Hours{}}
	for day, window := range days {
		s.Days[day] = schedule.Hours{Open: window[0], Close: window[1]}
	}
	return s
}

// fixtureRecords is the five-venue fixture around Denver used by the scenario tests.
func fixtureRecords() []api.VenueRecord {
	return []api.VenueRecord{
		{
			ID: "riverside", Name: "Riverside Indoor", Lat: 39.75, Lng: -104.99,
			DistanceMi: distance(3), Rating: api.NewRating(7.5),
			IndoorCourts: 4, Access: api.AccessPaid,
			SkillLevels: api.SkillLevels{api.SkillIntermediate},
			Hours:       hours("UTC", map[time.Weekday][2]string{time.Monday: {"06:00", "22:00"}}),
		},
		{
			ID: "summit", Name: "Summit Club", Lat: 39.80, Lng: -105.05, Visited: true,
			DistanceMi: distance(10), Rating: api.NewRating(6),
			IndoorCourts: 2, OutdoorCourts: 2, Access: api.AccessPaid,
			SkillLevels: api.SkillLevels{api.SkillAdvanced, api.SkillPro},
			Hours:       hours("UTC", map[time.Weekday][2]string{time.Monday: {"00:00", "00:00"}}),
		},
		{
			ID: "warehouse", Name: "Warehouse Courts", Lat: 39.74, Lng: -104.98,
			DistanceMi: distance(1), IndoorCourts: 6, Access: api.AccessPublic,
			SkillLevels: api.SkillLevels{api.SkillBeginner},
			Hours:       hours("UTC", map[time.Weekday][2]string{time.Monday: {"06:00", "22:00"}}),
		},
		{
			ID: "wash-park", Name: "Wash Park", Lat: 39.70, Lng: -104.97, Visited: true,
			DistanceMi: distance(2), Rating: api.NewRating(9.5),
			OutdoorCourts: 8, Access: api.AccessPublic,
			SkillLevels: api.SkillLevels{api.SkillBeginner, api.SkillIntermediate},
			Hours:       hours("UTC", map[time.Weekday][2]string{time.Monday: {"06:00", "22:00"}}),
		},
		{
			ID: "early-bird", Name: "Early Bird Racquet", Lat: 39.60, Lng: -104.90,
			DistanceMi: distance(20), Rating: api.NewRating(9),
			IndoorCourts: 3, Access: api.AccessPaid,
			Hours: hours("UTC", map[time.Weekday][2]string{time.Monday: {"06:00", "12:00"}}),
		},
	}
}

func ids(venues []AnnotatedVenue) []string {
	out := make([]string, 0, len(venues))
	for _, v := range venues {
		out = append(out, v.ID)
	}
	return out
}

// fakeNearby answers nearby queries with a per-call handler.
type fakeNearby struct {
	mu      sync.Mutex
	queries []api.NearbyQuery
	handle  func(ctx context.Context, q api.NearbyQuery) (api.NearbyResponse, error)
}

func (f *fakeNearby) GetNearby(ctx context.Context, q api.NearbyQuery) (api.NearbyResponse, error) {
	f.mu.Lock()
	f.queries = append(f.queries, q)
	handle := f.handle
	f.mu.Unlock()
	return handle(ctx, q)
}

func (f *fakeNearby) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.queries)
}

func (f *fakeNearby) setHandler(handle func(ctx context.Context, q api.NearbyQuery) (api.NearbyResponse, error)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handle = handle
}

func respondWith(records []api.VenueRecord) func(context.Context, api.NearbyQuery) (api.NearbyResponse, error) {
	return func(context.Context, api.NearbyQuery) (api.NearbyResponse, error) {
		return api.NearbyResponse{OK: true, Locations: records}, nil
	}
}
