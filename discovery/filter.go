package discovery

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"courtmap/api"
)

type AccessFilter int

const (
	AccessAny AccessFilter = iota
	AccessPublic
	AccessPaid
)

type CourtType int

const (
	CourtAny CourtType = iota
	CourtIndoor
	CourtOutdoor
)

type Capacity int

const (
	CapacityAny Capacity = iota
	CapacitySmall
	CapacityMedium
	CapacityLarge
)

// Bounds returns the inclusive court-count range of a capacity bucket; max is -1 when open-ended.
func (c Capacity) Bounds() (int, int) {
	switch c {
	case CapacitySmall:
		return 1, 4
	case CapacityMedium:
		return 5, 8
	case CapacityLarge:
		return 9, -1
	default:
		return 0, -1
	}
}

type SortKey int

const (
	SortDistance SortKey = iota
	SortRating
	SortCapacity
)

func (k SortKey) String() string {
	switch k {
	case SortRating:
		return "rating"
	case SortCapacity:
		return "capacity"
	default:
		return "distance"
	}
}

// Next cycles through the sort keys.
func (k SortKey) Next() SortKey {
	return (k + 1) % 3
}

func (a AccessFilter) String() string {
	switch a {
	case AccessPublic:
		return "public"
	case AccessPaid:
		return "paid"
	default:
		return "any"
	}
}

func (c CourtType) String() string {
	switch c {
	case CourtIndoor:
		return "indoor"
	case CourtOutdoor:
		return "outdoor"
	default:
		return "any"
	}
}

// Next cycles any -> indoor -> outdoor -> any.
func (c CourtType) Next() CourtType {
	return (c + 1) % 3
}

func (c Capacity) String() string {
	switch c {
	case CapacitySmall:
		return "small"
	case CapacityMedium:
		return "medium"
	case CapacityLarge:
		return "large"
	default:
		return "any"
	}
}

func ParseAccess(input string) (AccessFilter, error) {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "", "any", "all":
		return AccessAny, nil
	case "public", "free":
		return AccessPublic, nil
	case "paid":
		return AccessPaid, nil
	}
	return AccessAny, fmt.Errorf("invalid access %q (expected any, public or paid)", input)
}

func ParseCourtType(input string) (CourtType, error) {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "", "any", "all":
		return CourtAny, nil
	case "indoor":
		return CourtIndoor, nil
	case "outdoor":
		return CourtOutdoor, nil
	}
	return CourtAny, fmt.Errorf("invalid court type %q (expected any, indoor or outdoor)", input)
}

func ParseCapacity(input string) (Capacity, error) {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "", "any", "all":
		return CapacityAny, nil
	case "small", "1-4":
		return CapacitySmall, nil
	case "medium", "5-8":
		return CapacityMedium, nil
	case "large", "9+":
		return CapacityLarge, nil
	}
	return CapacityAny, fmt.Errorf("invalid capacity %q (expected any, small, medium or large)", input)
}

func ParseSortKey(input string) (SortKey, error) {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "", "distance", "nearest":
		return SortDistance, nil
	case "rating", "rated":
		return SortRating, nil
	case "capacity", "courts":
		return SortCapacity, nil
	}
	return SortDistance, fmt.Errorf("invalid sort %q (expected distance, rating or capacity)", input)
}

// FilterCriteria is a conjunction of constraints; the zero value matches everything.
type FilterCriteria struct {
	Access       AccessFilter    `json:"access"`
	CourtType    CourtType       `json:"court_type"`
	VerifiedOnly bool            `json:"verified_only"`
	OpenNowOnly  bool            `json:"open_now_only"`
	Capacity     Capacity        `json:"capacity"`
	Skills       api.SkillLevels `json:"skills,omitempty"`
}

// Matches reports whether v satisfies every enabled constraint. Skills match
// when the venue has at least one of the requested levels.
func Matches(v AnnotatedVenue, c FilterCriteria) bool {
	switch c.Access {
	case AccessPublic:
		if v.Access != api.AccessPublic {
			return false
		}
	case AccessPaid:
		if v.Access != api.AccessPaid {
			return false
		}
	}

	switch c.CourtType {
	case CourtIndoor:
		if v.Indoor() == 0 {
			return false
		}
	case CourtOutdoor:
		if v.Outdoor() == 0 {
			return false
		}
	}

	if c.VerifiedOnly && !v.Visited {
		return false
	}
	if c.OpenNowOnly && !v.OpenNow {
		return false
	}

	if c.Capacity != CapacityAny {
		lo, hi := c.Capacity.Bounds()
		if v.TotalCourts < lo || (hi >= 0 && v.TotalCourts > hi) {
			return false
		}
	}

	if len(c.Skills) > 0 && !v.SkillLevels.Intersects(c.Skills) {
		return false
	}
	return true
}

// Apply filters venues by c and ranks the result by key. Verified venues always
// come first; within each group the order is a stable sort on key.
func Apply(venues []AnnotatedVenue, c FilterCriteria, key SortKey) []AnnotatedVenue {
	verified := make([]AnnotatedVenue, 0, len(venues))
	others := make([]AnnotatedVenue, 0, len(venues))
	for _, v := range venues {
		if !Matches(v, c) {
			continue
		}
		if v.Visited {
			verified = append(verified, v)
		} else {
			others = append(others, v)
		}
	}

	less := lessFunc(key)
	sort.SliceStable(verified, func(i, j int) bool { return less(verified[i], verified[j]) })
	sort.SliceStable(others, func(i, j int) bool { return less(others[i], others[j]) })

	return append(verified, others...)
}

func lessFunc(key SortKey) func(a, b AnnotatedVenue) bool {
	switch key {
	case SortRating:
		return func(a, b AnnotatedVenue) bool {
			return ratingKey(a) > ratingKey(b)
		}
	case SortCapacity:
		return func(a, b AnnotatedVenue) bool {
			return a.TotalCourts > b.TotalCourts
		}
	default:
		return func(a, b AnnotatedVenue) bool {
			return distanceKey(a) < distanceKey(b)
		}
	}
}

func distanceKey(v AnnotatedVenue) float64 {
	if v.DistanceMi == nil || math.IsNaN(*v.DistanceMi) {
		return math.Inf(1)
	}
	return *v.DistanceMi
}

func ratingKey(v AnnotatedVenue) float64 {
	if rating, ok := v.Rating.Value(); ok {
		return rating
	}
	return math.Inf(-1)
}
