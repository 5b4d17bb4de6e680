package discovery

import (
	"context"
	"errors"
)

var (
	// ErrSuperseded is returned for a fetch that a newer fetch replaced.
	ErrSuperseded = errors.New("fetch superseded by a newer request")
	// ErrSessionClosed is returned by operations on a closed session.
	ErrSessionClosed = errors.New("discovery session closed")
	// ErrLocationPermissionDenied means no center could be resolved automatically.
	ErrLocationPermissionDenied = errors.New("location permission denied")
)

// Locator supplies the query center.
type Locator interface {
	Locate(ctx context.Context) (Center, error)
}

// LocatorFunc adapts a function to Locator.
type LocatorFunc func(ctx context.Context) (Center, error)

func (f LocatorFunc) Locate(ctx context.Context) (Center, error) {
	return f(ctx)
}
