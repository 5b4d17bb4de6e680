// Package tui is the interactive map browser behind "courtmap map".
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"courtmap/api"
	"courtmap/discovery"
)

const (
	radiusStep      = 5.0
	minRadius       = 5.0
	maxRadius       = 200.0
	radiusDebounce  = 400 * time.Millisecond
	openNowInterval = time.Minute
	panFraction     = 0.2
	zoomFactor      = 1.5
)

type fetchDoneMsg struct {
	err error
}

type radiusDebounceMsg struct {
	seq int
}

type openNowTickMsg time.Time

// Options configures a Browser.
type Options struct {
	// Initial is a fetch started before the program runs.
	Initial *discovery.Pending
	// OnCommit runs after every committed fetch, off the update loop.
	OnCommit func(discovery.View)
}

// Browser is the bubbletea model for the map browser. Filter, sort and
// viewport keys act on the session locally; radius changes are debounced
// before they refetch.
type Browser struct {
	ctx     context.Context
	session *discovery.Session
	opts    Options

	view      discovery.View
	rows      []discovery.AnnotatedVenue
	mapView   MapView
	table     table.Model
	search    textinput.Model
	searching bool
	spinner   spinner.Model

	width  int
	height int

	radius    float64
	radiusSeq int
	notice    string
}

func NewBrowser(ctx context.Context, session *discovery.Session, opts Options) Browser {
	search := textinput.New()
	search.Placeholder = "Filter by name..."
	search.CharLimit = 50

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(Primary)

	b := Browser{
		ctx:     ctx,
		session: session,
		opts:    opts,
		mapView: NewMapView(60, 12),
		search:  search,
		spinner: sp,
	}
	b.buildTable()
	b.sync()
	b.radius = b.view.RadiusMiles
	return b
}

func (b Browser) Init() tea.Cmd {
	cmds := []tea.Cmd{b.spinner.Tick, openNowTick()}
	if b.opts.Initial != nil {
		cmds = append(cmds, waitFetch(b.opts.Initial))
	}
	return tea.Batch(cmds...)
}

func openNowTick() tea.Cmd {
	return tea.Tick(openNowInterval, func(t time.Time) tea.Msg {
		return openNowTickMsg(t)
	})
}

func waitFetch(p *discovery.Pending) tea.Cmd {
	return func() tea.Msg {
		return fetchDoneMsg{err: p.Wait()}
	}
}

func (b Browser) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		b.width = msg.Width
		b.height = msg.Height
		b.updateLayout()
		return b, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return b, tea.Quit
		}
		if b.searching {
			return b.updateSearch(msg)
		}
		return b.handleKey(msg.String())

	case fetchDoneMsg:
		return b.handleFetchDone(msg.err)

	case radiusDebounceMsg:
		if msg.seq != b.radiusSeq {
			return b, nil
		}
		p := b.session.SetRadius(b.ctx, b.radius)
		b.sync()
		return b, waitFetch(p)

	case openNowTickMsg:
		if err := b.session.RefreshOpenNow(); err != nil {
			return b, nil
		}
		b.sync()
		return b, openNowTick()

	case spinner.TickMsg:
		var cmd tea.Cmd
		b.spinner, cmd = b.spinner.Update(msg)
		return b, cmd
	}
	return b, nil
}

func (b Browser) handleKey(key string) (tea.Model, tea.Cmd) {
	switch key {
	case "q", "esc":
		return b, tea.Quit
	case "up", "k":
		return b.applyViewport(b.view.Viewport.Pan(panFraction, 0))
	case "down", "j":
		return b.applyViewport(b.view.Viewport.Pan(-panFraction, 0))
	case "left", "h":
		return b.applyViewport(b.view.Viewport.Pan(0, -panFraction))
	case "right", "l":
		return b.applyViewport(b.view.Viewport.Pan(0, panFraction))
	case "+", "=":
		return b.applyViewport(b.view.Viewport.ZoomBy(1 / zoomFactor))
	case "-", "_":
		return b.applyViewport(b.view.Viewport.ZoomBy(zoomFactor))
	case "[":
		return b.stepRadius(-radiusStep)
	case "]":
		return b.stepRadius(radiusStep)
	case "s":
		return b.apply(b.session.SetSortKey(b.view.SortKey.Next()))
	case "o":
		c := b.view.Criteria
		c.OpenNowOnly = !c.OpenNowOnly
		return b.apply(b.session.SetFilters(c))
	case "c":
		c := b.view.Criteria
		c.CourtType = c.CourtType.Next()
		return b.apply(b.session.SetFilters(c))
	case "v":
		c := b.view.Criteria
		c.VerifiedOnly = !c.VerifiedOnly
		return b.apply(b.session.SetFilters(c))
	case "r":
		p := b.session.Refresh(b.ctx)
		b.sync()
		return b, waitFetch(p)
	case "tab", "n":
		b.table.MoveDown(1)
		b.syncSelection()
		return b, nil
	case "shift+tab", "p":
		b.table.MoveUp(1)
		b.syncSelection()
		return b, nil
	case "enter":
		venue, ok := b.selected()
		if !ok {
			return b, nil
		}
		p := b.session.SetCenter(b.ctx, discovery.Center{Lat: venue.Lat, Lng: venue.Lng})
		b.sync()
		return b, waitFetch(p)
	case "/":
		b.searching = true
		b.search.Focus()
		return b, textinput.Blink
	}
	return b, nil
}

func (b Browser) updateSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		b.search.SetValue("")
		fallthrough
	case "enter", "tab":
		b.searching = false
		b.search.Blur()
		b.refreshRows()
		return b, nil
	}
	var cmd tea.Cmd
	b.search, cmd = b.search.Update(msg)
	b.refreshRows()
	return b, cmd
}

func (b Browser) applyViewport(vp discovery.Viewport) (tea.Model, tea.Cmd) {
	return b.apply(b.session.SetViewport(vp))
}

func (b Browser) apply(err error) (tea.Model, tea.Cmd) {
	if err != nil {
		b.notice = err.Error()
		return b, nil
	}
	b.sync()
	return b, nil
}

// stepRadius records the new radius and schedules a debounced refetch;
// only the last step within the debounce window reaches the session.
func (b Browser) stepRadius(delta float64) (tea.Model, tea.Cmd) {
	b.radius = min(max(b.radius+delta, minRadius), maxRadius)
	b.radiusSeq++
	seq := b.radiusSeq
	return b, tea.Tick(radiusDebounce, func(time.Time) tea.Msg {
		return radiusDebounceMsg{seq: seq}
	})
}

func (b Browser) handleFetchDone(err error) (tea.Model, tea.Cmd) {
	b.sync()
	switch {
	case err == nil:
		b.notice = ""
		if b.opts.OnCommit != nil {
			view := b.view
			hook := b.opts.OnCommit
			return b, func() tea.Msg {
				hook(view)
				return nil
			}
		}
	case errors.Is(err, discovery.ErrSuperseded), errors.Is(err, context.Canceled):
	case api.IsRecoverable(err) && b.view.FetchedCount > 0:
		b.notice = "showing last results: " + err.Error()
	default:
		b.notice = err.Error()
	}
	return b, nil
}

func (b *Browser) sync() {
	b.view = b.session.View()
	if b.view.RadiusMiles > 0 && b.radiusSeq == 0 {
		b.radius = b.view.RadiusMiles
	}
	b.mapView.SetViewport(b.view.Viewport)
	b.mapView.SetQuery(b.view.Center, b.view.RadiusMiles)
	b.mapView.SetPins(b.view.RenderSet)
	b.refreshRows()
}

func (b *Browser) refreshRows() {
	needle := normalize(strings.TrimSpace(b.search.Value()))
	rows := make([]discovery.AnnotatedVenue, 0, len(b.view.Ranked))
	for _, v := range b.view.Ranked {
		if needle != "" && !strings.Contains(normalize(v.Name), needle) {
			continue
		}
		rows = append(rows, v)
	}
	b.rows = rows
	b.table.SetRows(b.tableRows())
	if b.table.Cursor() >= len(b.rows) {
		b.table.SetCursor(max(len(b.rows)-1, 0))
	}
	b.syncSelection()
}

func (b *Browser) syncSelection() {
	venue, ok := b.selected()
	b.mapView.SetSelected(-1)
	if !ok {
		return
	}
	for i, v := range b.view.RenderSet {
		if v.ID == venue.ID {
			b.mapView.SetSelected(i)
			return
		}
	}
}

func (b Browser) selected() (discovery.AnnotatedVenue, bool) {
	cursor := b.table.Cursor()
	if cursor < 0 || cursor >= len(b.rows) {
		return discovery.AnnotatedVenue{}, false
	}
	return b.rows[cursor], true
}

func (b *Browser) columnWidths() (name, dist, rating, courts, access, open int) {
	name, dist, rating, courts, access, open = 28, 9, 15, 7, 8, 6
	if b.width > 100 {
		name += b.width - 100
	}
	return
}

func (b *Browser) buildTable() {
	nameW, distW, ratingW, courtsW, accessW, openW := b.columnWidths()
	columns := []table.Column{
		{Title: "", Width: 1},
		{Title: "Name", Width: nameW},
		{Title: "Dist", Width: distW},
		{Title: "Rating", Width: ratingW},
		{Title: "Courts", Width: courtsW},
		{Title: "Access", Width: accessW},
		{Title: "Now", Width: openW},
	}
	t := table.New(
		table.WithColumns(columns),
		table.WithRows(b.tableRows()),
		table.WithFocused(false),
		table.WithHeight(8),
	)
	t.SetStyles(tableStyles())
	b.table = t
}

func (b *Browser) tableRows() []table.Row {
	nameW, _, _, _, _, _ := b.columnWidths()
	rows := make([]table.Row, len(b.rows))
	for i, v := range b.rows {
		rows[i] = table.Row{
			VerifiedMark(v),
			truncate(v.Name, nameW),
			DistanceLabel(v),
			RatingBar(v.Rating),
			CourtsLabel(v),
			v.Access.String(),
			OpenLabel(v),
		}
	}
	return rows
}

func (b *Browser) updateLayout() {
	if b.width <= 0 || b.height <= 0 {
		return
	}
	mapH := max(b.height/2-2, 4)
	tableH := max(b.height-mapH-8, 3)
	b.mapView.SetSize(max(b.width-2, 10), mapH)
	b.buildTable()
	b.table.SetHeight(tableH)
	b.refreshRows()
}

func (b Browser) View() string {
	var sb strings.Builder

	status := b.view.Status.String()
	if b.view.Status == discovery.StatusFetching {
		status = b.spinner.View() + " " + status
	}
	sb.WriteString(Title.Render("courtmap"))
	sb.WriteString("  ")
	sb.WriteString(Label.Render(fmt.Sprintf("%s · %d ranked · %d/%d shown (%s) · %.0f mi",
		status, b.view.RankedCount, len(b.view.RenderSet), b.view.RenderCap, b.view.Zoom, b.radius)))
	sb.WriteString("\n")
	sb.WriteString(Label.Render("sort ") + Value.Render(b.view.SortKey.String()))
	sb.WriteString(Label.Render("  filters ") + Value.Render(CriteriaSummary(b.view.Criteria)))
	if !b.view.FetchedAt.IsZero() {
		sb.WriteString(Label.Render("  fetched " + b.view.FetchedAt.Local().Format("15:04")))
	}
	sb.WriteString("\n")

	switch {
	case b.notice != "":
		sb.WriteString(NoticeText.Render(b.notice))
	case b.view.Status == discovery.StatusError && b.view.Err != nil:
		sb.WriteString(ErrorText.Render(b.view.Err.Error()))
	}
	sb.WriteString("\n")

	sb.WriteString(MapBorder.Render(b.mapView.View()))
	sb.WriteString("\n")

	if b.searching || b.search.Value() != "" {
		sb.WriteString(b.search.View())
		sb.WriteString("\n")
	}
	sb.WriteString(b.table.View())
	sb.WriteString("\n")
	sb.WriteString(StatusBar.Render("←↓↑→/hjkl pan · +/- zoom · [/] radius · s sort · o open · c courts · v verified · / find · enter recenter · r refresh · q quit"))
	return sb.String()
}

// normalize removes accents/diacritics and lowercases text for fuzzy matching.
func normalize(s string) string {
	t := transform.Chain(norm.NFD, transform.RemoveFunc(func(r rune) bool {
		return unicode.Is(unicode.Mn, r)
	}), norm.NFC)
	result, _, _ := transform.String(t, strings.ToLower(s))
	return result
}
