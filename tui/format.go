package tui

import (
	"fmt"
	"strings"

	"courtmap/api"
	"courtmap/discovery"
)

// RatingBar draws a ten-segment bar followed by the score, or "unrated".
func RatingBar(r api.Rating) string {
	value, ok := r.Value()
	if !ok {
		return "unrated"
	}
	full, half := discovery.RatingSegments(value)
	var sb strings.Builder
	sb.WriteString(strings.Repeat("█", full))
	empty := 10 - full
	if half {
		sb.WriteString("▌")
		empty--
	}
	sb.WriteString(strings.Repeat("░", empty))
	fmt.Fprintf(&sb, " %.1f", value)
	return sb.String()
}

func DistanceLabel(v discovery.AnnotatedVenue) string {
	if v.DistanceMi == nil {
		return "-"
	}
	return fmt.Sprintf("%.1f mi", *v.DistanceMi)
}

// CourtsLabel is "<indoor>i/<outdoor>o".
func CourtsLabel(v discovery.AnnotatedVenue) string {
	return fmt.Sprintf("%di/%do", v.Indoor(), v.Outdoor())
}

func OpenLabel(v discovery.AnnotatedVenue) string {
	if v.OpenNow {
		return "open"
	}
	return "closed"
}

func VerifiedMark(v discovery.AnnotatedVenue) string {
	if v.Visited {
		return "✓"
	}
	return ""
}

// CriteriaSummary lists the enabled filters, or "none".
func CriteriaSummary(c discovery.FilterCriteria) string {
	parts := []string{}
	if c.Access != discovery.AccessAny {
		parts = append(parts, c.Access.String())
	}
	if c.CourtType != discovery.CourtAny {
		parts = append(parts, c.CourtType.String())
	}
	if c.VerifiedOnly {
		parts = append(parts, "verified")
	}
	if c.OpenNowOnly {
		parts = append(parts, "open-now")
	}
	if c.Capacity != discovery.CapacityAny {
		parts = append(parts, c.Capacity.String())
	}
	if len(c.Skills) > 0 {
		parts = append(parts, "skills:"+c.Skills.String())
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, " ")
}

func truncate(s string, max int) string {
	r := []rune(s)
	if max <= 0 || len(r) <= max {
		return s
	}
	if max <= 1 {
		return string(r[:max])
	}
	return string(r[:max-1]) + "…"
}
