package discovery

import (
	"math"

	"github.com/paulmach/orb"
)

const (
	milesPerDegreeLat = 69.0
	minViewportDelta  = 0.005
	maxViewportDelta  = 60.0
)

type ZoomBucket int

const (
	ZoomStreet ZoomBucket = iota
	ZoomCity
	ZoomWide
)

func (z ZoomBucket) String() string {
	switch z {
	case ZoomWide:
		return "wide"
	case ZoomCity:
		return "city"
	default:
		return "street"
	}
}

// Viewport is a rectangular map region: Center ± half of each delta, in degrees.
type Viewport struct {
	Center   Center  `json:"center"`
	LatDelta float64 `json:"lat_delta"`
	LngDelta float64 `json:"lng_delta"`
}

// ViewportAround frames a query radius. It is a framing heuristic and assumes
// roughly 69 miles per degree of latitude.
func ViewportAround(center Center, radiusMiles float64) Viewport {
	latDelta := 2 * radiusMiles / milesPerDegreeLat
	lngDelta := latDelta
	if cos := math.Cos(center.Lat * math.Pi / 180); cos > 0.01 {
		lngDelta = latDelta / cos
	}
	return Viewport{
		Center:   center,
		LatDelta: clampDelta(latDelta),
		LngDelta: clampDelta(lngDelta),
	}
}

// Bound returns the viewport rectangle.
func (v Viewport) Bound() orb.Bound {
	halfLat := math.Abs(v.LatDelta) / 2
	halfLng := math.Abs(v.LngDelta) / 2
	return orb.Bound{
		Min: orb.Point{v.Center.Lng - halfLng, v.Center.Lat - halfLat},
		Max: orb.Point{v.Center.Lng + halfLng, v.Center.Lat + halfLat},
	}
}

// Zoom buckets the viewport by its larger span.
func (v Viewport) Zoom() ZoomBucket {
	span := math.Max(math.Abs(v.LatDelta), math.Abs(v.LngDelta))
	switch {
	case span > 1.0:
		return ZoomWide
	case span > 0.25:
		return ZoomCity
	default:
		return ZoomStreet
	}
}

// Pan moves the center by a fraction of the current deltas.
func (v Viewport) Pan(dLat, dLng float64) Viewport {
	v.Center.Lat = math.Max(-90, math.Min(90, v.Center.Lat+dLat*v.LatDelta))
	v.Center.Lng += dLng * v.LngDelta
	return v
}

// ZoomBy scales both deltas; a factor above one zooms out.
func (v Viewport) ZoomBy(factor float64) Viewport {
	if factor <= 0 {
		return v
	}
	v.LatDelta = clampDelta(v.LatDelta * factor)
	v.LngDelta = clampDelta(v.LngDelta * factor)
	return v
}

func clampDelta(d float64) float64 {
	return math.Max(minViewportDelta, math.Min(maxViewportDelta, math.Abs(d)))
}

// DefaultCaps bounds how many pins each zoom bucket renders.
var DefaultCaps = map[ZoomBucket]int{
	ZoomWide:   50,
	ZoomCity:   120,
	ZoomStreet: 250,
}

// Culler selects the part of a ranked list a viewport can render.
type Culler struct {
	Caps map[ZoomBucket]int
}

// Cap returns the render cap for a viewport. Negative caps count as zero.
func (c Culler) Cap(vp Viewport) int {
	caps := c.Caps
	if caps == nil {
		caps = DefaultCaps
	}
	n, ok := caps[vp.Zoom()]
	if !ok {
		n = DefaultCaps[vp.Zoom()]
	}
	return max(n, 0)
}

// Cull keeps ranked venues inside the viewport, in rank order, up to the zoom cap.
// The input slice is not modified.
func (c Culler) Cull(ranked []AnnotatedVenue, vp Viewport) []AnnotatedVenue {
	limit := c.Cap(vp)
	bound := vp.Bound()
	out := make([]AnnotatedVenue, 0, min(limit, len(ranked)))
	for _, v := range ranked {
		if len(out) >= limit {
			break
		}
		if bound.Contains(v.Point()) {
			out = append(out, v)
		}
	}
	return out
}

// Cull applies the default caps.
func Cull(ranked []AnnotatedVenue, vp Viewport) []AnnotatedVenue {
	return Culler{}.Cull(ranked, vp)
}
