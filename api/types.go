package api

import (
	"encoding/json"
	"strings"

	"courtmap/schedule"
)

type Coordinate struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type NearbyQuery struct {
	Lat         float64
	Lng         float64
	RadiusMiles float64
}

type NearbyResponse struct {
	OK        bool          `json:"ok"`
	Error     string        `json:"error,omitempty"`
	Locations []VenueRecord `json:"locations,omitempty"`
	Center    *Coordinate   `json:"center,omitempty"`
}

type Access string

const (
	AccessUnknown Access = "unknown"
	AccessPublic  Access = "public"
	AccessPaid    Access = "paid"
)

func (a Access) String() string {
	if a == "" {
		return string(AccessUnknown)
	}
	return string(a)
}

func (a *Access) UnmarshalJSON(data []byte) error {
	var raw *string
	if err := json.Unmarshal(data, &raw); err != nil || raw == nil {
		*a = AccessUnknown
		return nil
	}
	switch strings.ToLower(strings.TrimSpace(*raw)) {
	case "public", "free":
		*a = AccessPublic
	case "paid", "private", "membership":
		*a = AccessPaid
	default:
		*a = AccessUnknown
	}
	return nil
}

// Rating is a score in [0,10]. Out-of-range or non-numeric values decode as absent.
type Rating struct {
	value float64
	valid bool
}

func NewRating(v float64) Rating {
	if v < 0 || v > 10 {
		return Rating{}
	}
	return Rating{value: v, valid: true}
}

func (r Rating) Value() (float64, bool) {
	return r.value, r.valid
}

func (r *Rating) UnmarshalJSON(data []byte) error {
	var v *float64
	if err := json.Unmarshal(data, &v); err != nil || v == nil {
		*r = Rating{}
		return nil
	}
	*r = NewRating(*v)
	return nil
}

func (r Rating) MarshalJSON() ([]byte, error) {
	if !r.valid {
		return []byte("null"), nil
	}
	return json.Marshal(r.value)
}

type SubRatings struct {
	Surface   Rating `json:"surface"`
	Nets      Rating `json:"nets"`
	Lighting  Rating `json:"lighting"`
	Amenities Rating `json:"amenities"`
	Parking   Rating `json:"parking"`
	Community Rating `json:"community"`
}

// VenueRecord is one location as returned by the nearby endpoint.
type VenueRecord struct {
	ID            string             `json:"id"`
	Name          string             `json:"name"`
	Address       string             `json:"address"`
	City          string             `json:"city"`
	State         string             `json:"state"`
	Zip           string             `json:"zip"`
	Country       string             `json:"country"`
	Lat           float64            `json:"lat"`
	Lng           float64            `json:"lng"`
	DistanceMi    *float64           `json:"distance_mi,omitempty"`
	Visited       bool               `json:"visited"`
	Rating        Rating             `json:"rating"`
	Ratings       SubRatings         `json:"ratings"`
	IndoorCourts  int                `json:"indoor_courts"`
	OutdoorCourts int                `json:"outdoor_courts"`
	Access        Access             `json:"access"`
	Summary       string             `json:"summary"`
	SkillLevels   SkillLevels        `json:"skill_levels"`
	Hours         *schedule.Schedule `json:"hours,omitempty"`
}

// FormattedAddress joins the non-empty address parts.
func (v VenueRecord) FormattedAddress() string {
	parts := []string{}
	for _, part := range []string{v.Address, v.City, v.State, v.Country} {
		if strings.TrimSpace(part) != "" {
			parts = append(parts, part)
		}
	}
	return strings.Join(parts, ", ")
}
