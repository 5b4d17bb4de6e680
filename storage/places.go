package storage

import (
	"sort"
	"strings"
)

// Place is a saved search center.
type Place struct {
	Alias string  `json:"alias"`
	Name  string  `json:"name,omitempty"`
	Lat   float64 `json:"lat"`
	Lng   float64 `json:"lng"`
}

type PlacesFile struct {
	Places []Place `json:"places"`
}

func LoadPlaces() ([]Place, error) {
	path, err := PlacesPath()
	if err != nil {
		return nil, err
	}
	var payload PlacesFile
	if _, err := readJSONFile(path, &payload); err != nil {
		return nil, err
	}
	if payload.Places == nil {
		payload.Places = []Place{}
	}
	return payload.Places, nil
}

// SavePlaces writes places sorted by alias.
func SavePlaces(places []Place) error {
	path, err := PlacesPath()
	if err != nil {
		return err
	}
	sorted := make([]Place, len(places))
	copy(sorted, places)
	sort.Slice(sorted, func(i, j int) bool {
		return strings.ToLower(sorted[i].Alias) < strings.ToLower(sorted[j].Alias)
	})
	return writeJSONFile(path, PlacesFile{Places: sorted}, 0o644)
}

func FindPlaceByAlias(places []Place, alias string) (Place, bool) {
	needle := strings.ToLower(strings.TrimSpace(alias))
	for _, place := range places {
		if strings.ToLower(place.Alias) == needle {
			return place, true
		}
	}
	return Place{}, false
}

// UpsertPlace replaces the place with the same alias or appends it.
func UpsertPlace(places []Place, place Place) []Place {
	out := make([]Place, 0, len(places)+1)
	replaced := false
	for _, existing := range places {
		if strings.EqualFold(existing.Alias, place.Alias) {
			out = append(out, place)
			replaced = true
			continue
		}
		out = append(out, existing)
	}
	if !replaced {
		out = append(out, place)
	}
	return out
}

func RemovePlace(places []Place, alias string) ([]Place, bool) {
	out := make([]Place, 0, len(places))
	removed := false
	for _, place := range places {
		if strings.EqualFold(place.Alias, strings.TrimSpace(alias)) {
			removed = true
			continue
		}
		out = append(out, place)
	}
	return out, removed
}
