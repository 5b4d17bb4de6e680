package discovery

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"courtmap/api"
)

func TestApply_FixtureScenario(t *testing.T) {
	venues := Annotate(fixtureRecords(), fixedEvaluator(monday18), nil)
	criteria := FilterCriteria{CourtType: CourtIndoor, OpenNowOnly: true}

	got := Apply(venues, criteria, SortRating)

	// summit is verified; riverside outranks warehouse, whose rating is missing.
	assert.Equal(t, []string{"summit", "riverside", "warehouse"}, ids(got))
}

func TestApply_EachCriterion(t *testing.T) {
	venues := Annotate(fixtureRecords(), fixedEvaluator(monday18), nil)

	tests := []struct {
		name     string
		criteria FilterCriteria
		want     []string
	}{
		{"zero value keeps all", FilterCriteria{}, []string{"wash-park", "summit", "warehouse", "riverside", "early-bird"}},
		{"public", FilterCriteria{Access: AccessPublic}, []string{"wash-park", "warehouse"}},
		{"paid", FilterCriteria{Access: AccessPaid}, []string{"summit", "riverside", "early-bird"}},
		{"outdoor", FilterCriteria{CourtType: CourtOutdoor}, []string{"wash-park", "summit"}},
		{"verified", FilterCriteria{VerifiedOnly: true}, []string{"wash-park", "summit"}},
		{"open now", FilterCriteria{OpenNowOnly: true}, []string{"wash-park", "summit", "warehouse", "riverside"}},
		{"small", FilterCriteria{Capacity: CapacitySmall}, []string{"summit", "riverside", "early-bird"}},
		{"medium", FilterCriteria{Capacity: CapacityMedium}, []string{"wash-park", "warehouse"}},
		{"large", FilterCriteria{Capacity: CapacityLarge}, []string{}},
		{"skills any-of", FilterCriteria{Skills: api.SkillLevels{api.SkillPro, api.SkillBeginner}}, []string{"wash-park", "summit", "warehouse"}},
		{"conjunction", FilterCriteria{Access: AccessPublic, Skills: api.SkillLevels{api.SkillIntermediate}}, []string{"wash-park"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ids(Apply(venues, tt.criteria, SortDistance)))
		})
	}
}

func TestApply_SortKeys(t *testing.T) {
	venues := Annotate(fixtureRecords(), fixedEvaluator(monday18), nil)

	assert.Equal(t, []string{"wash-park", "summit", "warehouse", "riverside", "early-bird"}, ids(Apply(venues, FilterCriteria{}, SortDistance)))
	assert.Equal(t, []string{"wash-park", "summit", "early-bird", "riverside", "warehouse"}, ids(Apply(venues, FilterCriteria{}, SortRating)))
	assert.Equal(t, []string{"wash-park", "summit", "warehouse", "riverside", "early-bird"}, ids(Apply(venues, FilterCriteria{}, SortCapacity)))
}

func TestApply_MissingDistanceSortsLastWithinGroup(t *testing.T) {
	venues := []AnnotatedVenue{
		{VenueRecord: api.VenueRecord{ID: "no-distance-verified", Visited: true}},
		{VenueRecord: api.VenueRecord{ID: "far-verified", Visited: true, DistanceMi: distance(40)}},
		{VenueRecord: api.VenueRecord{ID: "no-distance"}},
		{VenueRecord: api.VenueRecord{ID: "near", DistanceMi: distance(0)}},
		{VenueRecord: api.VenueRecord{ID: "mid", DistanceMi: distance(5)}},
	}

	got := Apply(venues, FilterCriteria{}, SortDistance)
	assert.Equal(t, []string{"far-verified", "no-distance-verified", "near", "mid", "no-distance"}, ids(got))
}

func TestApply_MissingRatingBelowZero(t *testing.T) {
	venues := []AnnotatedVenue{
		{VenueRecord: api.VenueRecord{ID: "unrated"}},
		{VenueRecord: api.VenueRecord{ID: "zero", Rating: api.NewRating(0)}},
		{VenueRecord: api.VenueRecord{ID: "five", Rating: api.NewRating(5)}},
	}

	assert.Equal(t, []string{"five", "zero", "unrated"}, ids(Apply(venues, FilterCriteria{}, SortRating)))
}

func TestApply_StableForEqualKeys(t *testing.T) {
	venues := []AnnotatedVenue{
		{VenueRecord: api.VenueRecord{ID: "a"}, TotalCourts: 2},
		{VenueRecord: api.VenueRecord{ID: "b"}, TotalCourts: 4},
		{VenueRecord: api.VenueRecord{ID: "c"}, TotalCourts: 2},
		{VenueRecord: api.VenueRecord{ID: "d"}, TotalCourts: 4},
	}

	assert.Equal(t, []string{"b", "d", "a", "c"}, ids(Apply(venues, FilterCriteria{}, SortCapacity)))
	assert.Equal(t, []string{"a", "b", "c", "d"}, ids(Apply(venues, FilterCriteria{}, SortDistance)))
}

func randomVenues(r *rand.Rand, n int) []AnnotatedVenue {
	accesses := []api.Access{api.AccessPublic, api.AccessPaid, api.AccessUnknown, ""}
	venues := make([]AnnotatedVenue, 0, n)
	for i := 0; i < n; i++ {
		v := AnnotatedVenue{VenueRecord: api.VenueRecord{
			ID:            string(rune('a'+i%26)) + string(rune('0'+i/26)),
			Visited:       r.Intn(3) == 0,
			IndoorCourts:  r.Intn(7) - 1,
			OutdoorCourts: r.Intn(7) - 1,
			Access:        accesses[r.Intn(len(accesses))],
		}}
		if r.Intn(4) > 0 {
			v.DistanceMi = distance(r.Float64() * 30)
		}
		if r.Intn(4) > 0 {
			v.Rating = api.NewRating(float64(r.Intn(21)) / 2)
		}
		for _, level := range api.AllSkillLevels {
			if r.Intn(3) == 0 {
				v.SkillLevels = append(v.SkillLevels, level)
			}
		}
		v.OpenNow = r.Intn(2) == 0
		v.TotalCourts = v.Indoor() + v.Outdoor()
		venues = append(venues, v)
	}
	return venues
}

func allCriteria() []FilterCriteria {
	var out []FilterCriteria
	for _, access := range []AccessFilter{AccessAny, AccessPublic, AccessPaid} {
		for _, court := range []CourtType{CourtAny, CourtIndoor, CourtOutdoor} {
			for _, capacity := range []Capacity{CapacityAny, CapacitySmall, CapacityMedium, CapacityLarge} {
				for _, skills := range []api.SkillLevels{nil, {api.SkillBeginner}, {api.SkillAdvanced, api.SkillPro}} {
					for flags := 0; flags < 4; flags++ {
						out = append(out, FilterCriteria{
							Access:       access,
							CourtType:    court,
							Capacity:     capacity,
							Skills:       skills,
							VerifiedOnly: flags&1 != 0,
							OpenNowOnly:  flags&2 != 0,
						})
					}
				}
			}
		}
	}
	return out
}

func TestApply_Properties(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	venues := randomVenues(r, 60)
	byID := map[string]AnnotatedVenue{}
	for _, v := range venues {
		byID[v.ID] = v
	}

	for _, criteria := range allCriteria() {
		for _, key := range []SortKey{SortDistance, SortRating, SortCapacity} {
			got := Apply(venues, criteria, key)

			seen := map[string]bool{}
			for _, v := range got {
				_, ok := byID[v.ID]
				require.True(t, ok, "output contains unknown venue %s", v.ID)
				require.False(t, seen[v.ID], "duplicate venue %s", v.ID)
				seen[v.ID] = true
				require.True(t, Matches(v, criteria))
			}

			again := Apply(got, criteria, key)
			require.Equal(t, ids(got), ids(again), "filtering is idempotent")

			leftVerified := false
			for i := len(got) - 1; i >= 0; i-- {
				if got[i].Visited {
					leftVerified = true
				} else {
					require.False(t, leftVerified, "non-verified venue %s ranked before a verified one", got[i].ID)
				}
			}

			if key == SortDistance {
				for i := 1; i < len(got); i++ {
					if got[i].Visited != got[i-1].Visited {
						continue
					}
					if got[i-1].DistanceMi == nil {
						require.Nil(t, got[i].DistanceMi, "defined distance after a missing one")
					}
				}
			}
		}
	}
}

func TestApply_DoesNotModifyInput(t *testing.T) {
	venues := Annotate(fixtureRecords(), fixedEvaluator(monday18), nil)
	before := ids(venues)
	_ = Apply(venues, FilterCriteria{}, SortRating)
	assert.Equal(t, before, ids(venues))
}

func TestParseHelpers(t *testing.T) {
	access, err := ParseAccess("Public")
	require.NoError(t, err)
	assert.Equal(t, AccessPublic, access)
	_, err = ParseAccess("members")
	assert.Error(t, err)

	court, err := ParseCourtType("outdoor")
	require.NoError(t, err)
	assert.Equal(t, CourtOutdoor, court)
	_, err = ParseCourtType("clay")
	assert.Error(t, err)

	capacity, err := ParseCapacity("9+")
	require.NoError(t, err)
	assert.Equal(t, CapacityLarge, capacity)
	_, err = ParseCapacity("huge")
	assert.Error(t, err)

	key, err := ParseSortKey("")
	require.NoError(t, err)
	assert.Equal(t, SortDistance, key)
	key, err = ParseSortKey("courts")
	require.NoError(t, err)
	assert.Equal(t, SortCapacity, key)
	_, err = ParseSortKey("name")
	assert.Error(t, err)

	assert.Equal(t, SortDistance, SortCapacity.Next())
	assert.Equal(t, CourtIndoor, CourtAny.Next())
}
