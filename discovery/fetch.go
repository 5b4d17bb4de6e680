package discovery

import (
	"context"
	"io"
	"log"
	"sync"

	"github.com/google/uuid"

	"courtmap/api"
)

// NearbyAPI is the remote collaborator the fetch controller queries.
type NearbyAPI interface {
	GetNearby(ctx context.Context, q api.NearbyQuery) (api.NearbyResponse, error)
}

// Fetch is one nearby request started by a FetchController.
type Fetch struct {
	seq     uint64
	id      string
	center  Center
	radius  float64
	done    chan struct{}
	records []api.VenueRecord
	err     error
}

func (f *Fetch) Seq() uint64          { return f.seq }
func (f *Fetch) ID() string           { return f.id }
func (f *Fetch) Center() Center       { return f.center }
func (f *Fetch) RadiusMiles() float64 { return f.radius }

// Done is closed when the request finished, failed or was cancelled.
func (f *Fetch) Done() <-chan struct{} { return f.done }

// Wait blocks until the request completes. A request that is no longer
// current reports ErrSuperseded.
func (f *Fetch) Wait() ([]api.VenueRecord, error) {
	<-f.done
	return f.records, f.err
}

// FetchController keeps at most one nearby request current. Starting a new
// request cancels the previous one.
type FetchController struct {
	api    NearbyAPI
	logger *log.Logger

	mu      sync.Mutex
	seq     uint64
	current *Fetch
	cancel  context.CancelFunc
}

func NewFetchController(nearby NearbyAPI, logger *log.Logger) *FetchController {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &FetchController{api: nearby, logger: logger}
}

// Start cancels any in-flight request and issues a new one.
func (fc *FetchController) Start(ctx context.Context, center Center, radiusMiles float64) *Fetch {
	fc.mu.Lock()
	if fc.cancel != nil {
		fc.cancel()
	}
	fc.seq++
	fetchCtx, cancel := context.WithCancel(ctx)
	f := &Fetch{
		seq:    fc.seq,
		id:     uuid.NewString(),
		center: center,
		radius: radiusMiles,
		done:   make(chan struct{}),
	}
	fc.current = f
	fc.cancel = cancel
	fc.mu.Unlock()

	fc.logger.Printf("fetch start seq=%d id=%s lat=%.6f lng=%.6f radius=%g", f.seq, f.id, center.Lat, center.Lng, radiusMiles)
	go fc.run(fetchCtx, cancel, f)
	return f
}

func (fc *FetchController) run(ctx context.Context, cancel context.CancelFunc, f *Fetch) {
	defer close(f.done)
	defer cancel()

	resp, err := fc.api.GetNearby(ctx, api.NearbyQuery{Lat: f.center.Lat, Lng: f.center.Lng, RadiusMiles: f.radius})
	switch {
	case !fc.IsCurrent(f):
		f.err = ErrSuperseded
	case err != nil:
		f.err = err
	default:
		f.records = resp.Locations
	}

	if f.err != nil {
		fc.logger.Printf("fetch failed seq=%d id=%s err=%v", f.seq, f.id, f.err)
		return
	}
	fc.logger.Printf("fetch done seq=%d id=%s records=%d", f.seq, f.id, len(f.records))
}

// IsCurrent reports whether f is the most recently started request.
func (fc *FetchController) IsCurrent(f *Fetch) bool {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	return f != nil && fc.current == f
}

// Cancel abandons the current request, if any.
func (fc *FetchController) Cancel() {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	if fc.cancel != nil {
		fc.cancel()
		fc.cancel = nil
	}
	fc.current = nil
}
