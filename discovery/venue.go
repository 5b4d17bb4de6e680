// Package discovery fetches nearby venues, annotates them with open-now status,
// filters and ranks them, and culls the ranked set to a map viewport.
package discovery

import (
	"log"
	"math"

	"github.com/paulmach/orb"

	"courtmap/api"
	"courtmap/schedule"
)

// Center is a query or viewport center.
type Center struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Point returns the center as an orb.Point, which is [lng, lat].
func (c Center) Point() orb.Point {
	return orb.Point{c.Lng, c.Lat}
}

// AnnotatedVenue is a fetched record plus the values derived once per fetch.
type AnnotatedVenue struct {
	api.VenueRecord
	OpenNow     bool `json:"open_now"`
	TotalCourts int  `json:"total_courts"`
}

func (v AnnotatedVenue) Point() orb.Point {
	return orb.Point{v.Lng, v.Lat}
}

func (v AnnotatedVenue) Indoor() int {
	return max(v.IndoorCourts, 0)
}

func (v AnnotatedVenue) Outdoor() int {
	return max(v.OutdoorCourts, 0)
}

// Annotate derives OpenNow and TotalCourts for every record. Per-day schedule
// errors are logged; the affected day counts as closed.
func Annotate(records []api.VenueRecord, evaluator *schedule.Evaluator, logger *log.Logger) []AnnotatedVenue {
	now := evaluator.Now()
	out := make([]AnnotatedVenue, 0, len(records))
	for _, record := range records {
		if logger != nil && record.Hours != nil {
			for _, err := range record.Hours.Validate() {
				logger.Printf("schedule venue=%s err=%v", record.ID, err)
			}
		}
		venue := AnnotatedVenue{VenueRecord: record}
		venue.OpenNow = evaluator.IsOpenAt(record.Hours, now)
		venue.TotalCourts = venue.Indoor() + venue.Outdoor()
		out = append(out, venue)
	}
	return out
}

// reannotate recomputes OpenNow in place against the evaluator's clock.
func reannotate(venues []AnnotatedVenue, evaluator *schedule.Evaluator) {
	now := evaluator.Now()
	for i := range venues {
		venues[i].OpenNow = evaluator.IsOpenAt(venues[i].Hours, now)
	}
}

// RatingSegments buckets a [0,10] rating onto a ten-segment bar with an optional half segment.
func RatingSegments(rating float64) (int, bool) {
	if math.IsNaN(rating) || rating <= 0 {
		return 0, false
	}
	if rating >= 10 {
		return 10, false
	}
	full := math.Floor(rating)
	return int(full), rating-full >= 0.5
}
