package discovery

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sync"
	"time"

	"courtmap/api"
	"courtmap/schedule"
)

type Status int

const (
	StatusIdle Status = iota
	StatusFetching
	StatusReady
	StatusError
	StatusClosed
)

func (s Status) String() string {
	switch s {
	case StatusFetching:
		return "fetching"
	case StatusReady:
		return "ready"
	case StatusError:
		return "error"
	case StatusClosed:
		return "closed"
	default:
		return "idle"
	}
}

// DefaultRadiusMiles is used until SetRadius is called.
const DefaultRadiusMiles = 25.0

// View is a snapshot of session state for presentation.
type View struct {
	Status       Status
	Center       Center
	RadiusMiles  float64
	Criteria     FilterCriteria
	SortKey      SortKey
	Viewport     Viewport
	Zoom         ZoomBucket
	RenderCap    int
	Ranked       []AnnotatedVenue
	RenderSet    []AnnotatedVenue
	RankedCount  int
	FetchedCount int
	Err          error
	FetchedAt    time.Time
	AnnotatedAt  time.Time
}

// Pending tracks a fetch triggered by SetCenter or SetRadius.
type Pending struct {
	done chan struct{}
	err  error
}

func resolvedPending(err error) *Pending {
	p := &Pending{done: make(chan struct{}), err: err}
	close(p.done)
	return p
}

// Done is closed once the fetch was committed, discarded or failed.
func (p *Pending) Done() <-chan struct{} { return p.done }

// Wait blocks until Done and returns nil when the result was committed.
func (p *Pending) Wait() error {
	<-p.done
	return p.err
}

type Option func(*Session)

func WithLogger(logger *log.Logger) Option {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithCuller(c Culler) Option {
	return func(s *Session) { s.culler = c }
}

func WithCriteria(c FilterCriteria) Option {
	return func(s *Session) { s.criteria = c }
}

func WithSortKey(k SortKey) Option {
	return func(s *Session) { s.sortKey = k }
}

func WithRadius(miles float64) Option {
	return func(s *Session) {
		if miles > 0 {
			s.radius = miles
		}
	}
}

// Session owns the query, the criteria and the last good result set, and
// derives the ranked list and render set from them.
type Session struct {
	fetcher   *FetchController
	evaluator *schedule.Evaluator
	culler    Culler
	logger    *log.Logger

	mu           sync.Mutex
	status       Status
	center       Center
	hasCenter    bool
	radius       float64
	criteria     FilterCriteria
	sortKey      SortKey
	viewport     Viewport
	autoViewport bool
	loaded       bool
	result       Result
	venues       []AnnotatedVenue
	ranked       []AnnotatedVenue
	renderSet    []AnnotatedVenue
	err          error
	fetchedAt    time.Time
	annotatedAt  time.Time
}

func NewSession(fetcher *FetchController, evaluator *schedule.Evaluator, opts ...Option) *Session {
	s := &Session{
		fetcher:      fetcher,
		evaluator:    evaluator,
		logger:       log.New(io.Discard, "", 0),
		radius:       DefaultRadiusMiles,
		autoViewport: true,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetCenter moves the query center and starts a fetch, superseding any fetch in flight.
func (s *Session) SetCenter(ctx context.Context, center Center) *Pending {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status == StatusClosed {
		return resolvedPending(ErrSessionClosed)
	}
	s.center = center
	s.hasCenter = true
	s.autoViewport = true
	return s.startLocked(ctx)
}

// SetCenterFrom resolves the center through loc. A locator failure such as
// ErrLocationPermissionDenied leaves the session untouched.
func (s *Session) SetCenterFrom(ctx context.Context, loc Locator) *Pending {
	center, err := loc.Locate(ctx)
	if err != nil {
		s.logger.Printf("locate failed err=%v", err)
		return resolvedPending(err)
	}
	return s.SetCenter(ctx, center)
}

// SetRadius changes the query radius. Callers are expected to debounce rapid
// changes. Without a center the radius is only recorded.
func (s *Session) SetRadius(ctx context.Context, miles float64) *Pending {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status == StatusClosed {
		return resolvedPending(ErrSessionClosed)
	}
	if miles <= 0 {
		return resolvedPending(fmt.Errorf("radius must be positive, got %g", miles))
	}
	s.radius = miles
	if !s.hasCenter {
		return resolvedPending(nil)
	}
	return s.startLocked(ctx)
}

// Refresh refetches the current query.
func (s *Session) Refresh(ctx context.Context) *Pending {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status == StatusClosed {
		return resolvedPending(ErrSessionClosed)
	}
	if !s.hasCenter {
		return resolvedPending(nil)
	}
	return s.startLocked(ctx)
}

func (s *Session) startLocked(ctx context.Context) *Pending {
	s.setStatusLocked(StatusFetching)
	f := s.fetcher.Start(ctx, s.center, s.radius)
	p := &Pending{done: make(chan struct{})}
	go func() {
		records, err := f.Wait()
		p.err = s.commit(f, records, err)
		close(p.done)
	}()
	return p
}

func (s *Session) commit(f *Fetch, records []api.VenueRecord, fetchErr error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status == StatusClosed {
		return ErrSessionClosed
	}
	if !s.fetcher.IsCurrent(f) || errors.Is(fetchErr, ErrSuperseded) {
		s.logger.Printf("fetch discarded seq=%d reason=superseded", f.Seq())
		return ErrSuperseded
	}

	if fetchErr != nil {
		if errors.Is(fetchErr, context.Canceled) {
			s.setStatusLocked(s.settledStatusLocked())
			return fetchErr
		}
		s.err = fetchErr
		s.setStatusLocked(StatusError)
		if s.loaded {
			// Keep showing the last good result; the error stays as a notice.
			s.setStatusLocked(StatusReady)
		}
		return fetchErr
	}

	now := s.evaluator.Now()
	s.result = Result{Center: f.Center(), RadiusMiles: f.RadiusMiles(), Records: records, FetchedAt: now}
	s.venues = Annotate(records, s.evaluator, s.logger)
	s.loaded = true
	s.err = nil
	s.fetchedAt = now
	s.annotatedAt = now
	if s.autoViewport {
		s.viewport = ViewportAround(f.Center(), f.RadiusMiles())
	}
	s.recomputeLocked()
	s.setStatusLocked(StatusReady)
	return nil
}

// Seed primes the session with a previously fetched result, for example a
// stored snapshot. It does not clear an error notice.
func (s *Session) Seed(center Center, radiusMiles float64, records []api.VenueRecord, fetchedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status == StatusClosed {
		return ErrSessionClosed
	}
	s.center = center
	s.hasCenter = true
	if radiusMiles > 0 {
		s.radius = radiusMiles
	}
	s.result = Result{Center: center, RadiusMiles: s.radius, Records: records, FetchedAt: fetchedAt}
	s.venues = Annotate(records, s.evaluator, s.logger)
	s.loaded = true
	s.fetchedAt = fetchedAt
	s.annotatedAt = s.evaluator.Now()
	if s.autoViewport {
		s.viewport = ViewportAround(center, s.radius)
	}
	s.recomputeLocked()
	if s.status != StatusFetching {
		s.setStatusLocked(StatusReady)
	}
	return nil
}

// SetFilters re-ranks the fetched set without a network call.
func (s *Session) SetFilters(c FilterCriteria) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status == StatusClosed {
		return ErrSessionClosed
	}
	s.criteria = c
	s.recomputeLocked()
	return nil
}

// SetSortKey re-ranks the fetched set without a network call.
func (s *Session) SetSortKey(k SortKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status == StatusClosed {
		return ErrSessionClosed
	}
	s.sortKey = k
	s.recomputeLocked()
	return nil
}

// SetViewport re-culls the ranked list for a new visible region.
func (s *Session) SetViewport(vp Viewport) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status == StatusClosed {
		return ErrSessionClosed
	}
	s.viewport = vp
	s.autoViewport = false
	s.renderSet = s.culler.Cull(s.ranked, s.viewport)
	return nil
}

// RefreshOpenNow re-derives open-now flags from the current clock. Flags are
// otherwise computed once per fetch and may go stale.
func (s *Session) RefreshOpenNow() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status == StatusClosed {
		return ErrSessionClosed
	}
	if !s.loaded {
		return nil
	}
	reannotate(s.venues, s.evaluator)
	s.annotatedAt = s.evaluator.Now()
	s.recomputeLocked()
	return nil
}

// Close cancels any fetch in flight. Later operations return ErrSessionClosed.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status == StatusClosed {
		return
	}
	s.fetcher.Cancel()
	s.setStatusLocked(StatusClosed)
}

// Result is the raw record set behind the current ranking.
type Result struct {
	Center      Center
	RadiusMiles float64
	Records     []api.VenueRecord
	FetchedAt   time.Time
}

// LastResult returns the last committed or seeded result.
func (s *Session) LastResult() (Result, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.loaded {
		return Result{}, false
	}
	r := s.result
	r.Records = append([]api.VenueRecord(nil), s.result.Records...)
	return r, true
}

func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return View{
		Status:       s.status,
		Center:       s.center,
		RadiusMiles:  s.radius,
		Criteria:     s.criteria,
		SortKey:      s.sortKey,
		Viewport:     s.viewport,
		Zoom:         s.viewport.Zoom(),
		RenderCap:    s.culler.Cap(s.viewport),
		Ranked:       append([]AnnotatedVenue(nil), s.ranked...),
		RenderSet:    append([]AnnotatedVenue(nil), s.renderSet...),
		RankedCount:  len(s.ranked),
		FetchedCount: len(s.venues),
		Err:          s.err,
		FetchedAt:    s.fetchedAt,
		AnnotatedAt:  s.annotatedAt,
	}
}

func (s *Session) recomputeLocked() {
	if !s.loaded {
		return
	}
	s.ranked = Apply(s.venues, s.criteria, s.sortKey)
	s.renderSet = s.culler.Cull(s.ranked, s.viewport)
}

func (s *Session) settledStatusLocked() Status {
	switch {
	case s.loaded:
		return StatusReady
	case s.err != nil:
		return StatusError
	default:
		return StatusIdle
	}
}

func (s *Session) setStatusLocked(status Status) {
	if s.status == status {
		return
	}
	s.logger.Printf("session status=%s ranked=%d render=%d", status, len(s.ranked), len(s.renderSet))
	s.status = status
}
