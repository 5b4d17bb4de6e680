package tui

import (
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/paulmach/orb"

	"courtmap/discovery"
)

const ringSegments = 48

// MapView renders the render set of a discovery session as Braille dots,
// framed by the session viewport, with the query radius drawn as a ring.
type MapView struct {
	width    int
	height   int
	viewport discovery.Viewport
	pins     []orb.Point
	selected int // index into pins, -1 if none
	center   orb.Point
	radius   float64
}

func NewMapView(width, height int) MapView {
	return MapView{
		width:    width,
		height:   height,
		selected: -1,
	}
}

func (m *MapView) SetSize(width, height int) {
	m.width = width
	m.height = height
}

func (m *MapView) SetViewport(vp discovery.Viewport) {
	m.viewport = vp
}

// SetPins replaces the plotted venues and clears the selection.
func (m *MapView) SetPins(venues []discovery.AnnotatedVenue) {
	m.pins = make([]orb.Point, 0, len(venues))
	for _, v := range venues {
		m.pins = append(m.pins, v.Point())
	}
	m.selected = -1
}

func (m *MapView) SetSelected(idx int) {
	m.selected = idx
}

// SetQuery sets the fetch center and radius drawn as a ring.
func (m *MapView) SetQuery(center discovery.Center, radiusMiles float64) {
	m.center = center.Point()
	m.radius = radiusMiles
}

// ring approximates the query radius as a polygon, 69 miles per degree of latitude.
func (m MapView) ring() []orb.Point {
	if m.radius <= 0 {
		return nil
	}
	dLat := m.radius / 69.0
	cosLat := math.Cos(m.center[1] * math.Pi / 180)
	if cosLat < 0.01 {
		cosLat = 0.01
	}
	dLng := dLat / cosLat
	out := make([]orb.Point, 0, ringSegments)
	for i := 0; i < ringSegments; i++ {
		theta := 2 * math.Pi * float64(i) / ringSegments
		out = append(out, orb.Point{m.center[0] + dLng*math.Cos(theta), m.center[1] + dLat*math.Sin(theta)})
	}
	return out
}

// Braille character encoding:
// Each braille char is a 2x4 dot grid.
// Dot positions:  0 3
//
//	1 4
//	2 5
//	6 7
//
// Unicode: 0x2800 + sum of raised dot bits
var brailleDots = [8]rune{0x01, 0x02, 0x04, 0x08, 0x10, 0x20, 0x40, 0x80}

var dotPositions = [8][2]int{
	{0, 0}, {1, 0}, {2, 0}, {0, 1},
	{1, 1}, {2, 1}, {3, 0}, {3, 1},
}

func (m MapView) View() string {
	if m.width <= 0 || m.height <= 0 {
		return ""
	}

	cols := m.width
	rows := m.height
	dotW := cols * 2
	dotH := rows * 4

	bound := m.viewport.Bound()
	latRange := bound.Max[1] - bound.Min[1]
	lngRange := bound.Max[0] - bound.Min[0]
	if latRange <= 0 || lngRange <= 0 {
		return strings.TrimSuffix(strings.Repeat(strings.Repeat(" ", cols)+"\n", rows), "\n")
	}

	// Braille dots are roughly square on screen, so scale longitude by cos(lat).
	cosLat := math.Cos(m.viewport.Center.Lat * math.Pi / 180)
	geoAspect := lngRange * cosLat / latRange
	dotAspect := float64(dotW) / float64(dotH)

	effectiveW, effectiveH := dotW, dotH
	offsetX, offsetY := 0, 0
	if geoAspect < dotAspect {
		effectiveW = max(int(float64(dotH)*geoAspect), 4)
		offsetX = (dotW - effectiveW) / 2
	} else {
		effectiveH = max(int(float64(dotW)/geoAspect), 4)
		offsetY = (dotH - effectiveH) / 2
	}

	toDot := func(p orb.Point) (int, int) {
		x := offsetX + int(math.Round((p[0]-bound.Min[0])/lngRange*float64(effectiveW-1)))
		y := offsetY + int(math.Round((bound.Max[1]-p[1])/latRange*float64(effectiveH-1)))
		return x, y
	}

	ringGrid := newGrid(dotW, dotH)
	pinGrid := newGrid(dotW, dotH)
	selGrid := newGrid(dotW, dotH)
	centerGrid := newGrid(dotW, dotH)

	ring := m.ring()
	for i := range ring {
		x0, y0 := toDot(ring[i])
		x1, y1 := toDot(ring[(i+1)%len(ring)])
		drawLine(ringGrid, x0, y0, x1, y1, dotW, dotH)
	}

	for i, p := range m.pins {
		if !bound.Contains(p) {
			continue
		}
		x, y := toDot(p)
		if i == m.selected {
			plot(selGrid, x, y, dotW, dotH)
			plot(selGrid, x+1, y, dotW, dotH)
			plot(selGrid, x, y+1, dotW, dotH)
			plot(selGrid, x+1, y+1, dotW, dotH)
			continue
		}
		plot(pinGrid, x, y, dotW, dotH)
	}

	if m.radius > 0 && bound.Contains(m.center) {
		cx, cy := toDot(m.center)
		drawLine(centerGrid, cx-1, cy, cx+1, cy, dotW, dotH)
		drawLine(centerGrid, cx, cy-1, cx, cy+1, dotW, dotH)
	}

	ringStyle := lipgloss.NewStyle().Foreground(Muted)
	pinStyle := lipgloss.NewStyle().Foreground(Success)
	selStyle := lipgloss.NewStyle().Foreground(Warning).Bold(true)
	centerStyle := lipgloss.NewStyle().Foreground(Primary)

	var sb strings.Builder
	for row := 0; row < rows; row++ {
		for col := 0; col < cols; col++ {
			ringVal := cell(ringGrid, row, col)
			pinVal := cell(pinGrid, row, col)
			selVal := cell(selGrid, row, col)
			centerVal := cell(centerGrid, row, col)

			switch {
			case selVal != 0x2800:
				sb.WriteString(selStyle.Render(string(selVal | pinVal)))
			case pinVal != 0x2800:
				sb.WriteString(pinStyle.Render(string(pinVal)))
			case centerVal != 0x2800:
				sb.WriteString(centerStyle.Render(string(centerVal)))
			case ringVal != 0x2800:
				sb.WriteString(ringStyle.Render(string(ringVal)))
			default:
				sb.WriteRune(' ')
			}
		}
		if row < rows-1 {
			sb.WriteRune('\n')
		}
	}

	return sb.String()
}

func newGrid(w, h int) [][]bool {
	grid := make([][]bool, h)
	for i := range grid {
		grid[i] = make([]bool, w)
	}
	return grid
}

func plot(grid [][]bool, x, y, maxW, maxH int) {
	if x >= 0 && x < maxW && y >= 0 && y < maxH {
		grid[y][x] = true
	}
}

func cell(grid [][]bool, row, col int) rune {
	var val rune = 0x2800
	for dot := 0; dot < 8; dot++ {
		dy := row*4 + dotPositions[dot][0]
		dx := col*2 + dotPositions[dot][1]
		if dy < len(grid) && dx < len(grid[dy]) && grid[dy][dx] {
			val |= brailleDots[dot]
		}
	}
	return val
}

// drawLine draws a line between two points using Bresenham's algorithm.
func drawLine(grid [][]bool, x0, y0, x1, y1, maxW, maxH int) {
	dx := abs(x1 - x0)
	dy := -abs(y1 - y0)
	sx := 1
	if x0 >= x1 {
		sx = -1
	}
	sy := 1
	if y0 >= y1 {
		sy = -1
	}
	err := dx + dy

	for {
		plot(grid, x0, y0, maxW, maxH)
		if x0 == x1 && y0 == y1 {
			break
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x0 += sx
		}
		if e2 <= dx {
			err += dx
			y0 += sy
		}
	}
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
