package schedule

import (
	"errors"
	"time"
)

// Clock supplies the current instant and resolves IANA zones.
// Location("") resolves the caller's local zone.
type Clock interface {
	Now() time.Time
	Location(name string) (*time.Location, error)
}

// SystemClock reads the host clock and zone database.
type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now()
}

func (SystemClock) Location(name string) (*time.Location, error) {
	if name == "" {
		return time.Local, nil
	}
	return time.LoadLocation(name)
}

// FixedClock always reports At. Local is returned for the empty zone name;
// a nil Local means the local zone cannot be resolved.
type FixedClock struct {
	At    time.Time
	Local *time.Location
}

func (c FixedClock) Now() time.Time {
	return c.At
}

func (c FixedClock) Location(name string) (*time.Location, error) {
	if name == "" {
		if c.Local == nil {
			return nil, errNoLocalZone
		}
		return c.Local, nil
	}
	return time.LoadLocation(name)
}

var errNoLocalZone = errors.New("local time zone unavailable")

// Evaluator decides whether a schedule is open at an instant.
type Evaluator struct {
	clock Clock
}

func NewEvaluator(clock Clock) *Evaluator {
	if clock == nil {
		clock = SystemClock{}
	}
	return &Evaluator{clock: clock}
}

// Now returns the evaluator's current instant.
func (e *Evaluator) Now() time.Time {
	return e.clock.Now()
}

// IsOpenNow reports whether s is open at the clock's current instant.
func (e *Evaluator) IsOpenNow(s *Schedule) bool {
	return e.IsOpenAt(s, e.clock.Now())
}

// IsOpenAt reports whether s is open at the given instant. Any ambiguity
// (no schedule, unknown zone, malformed times) reports closed.
func (e *Evaluator) IsOpenAt(s *Schedule, at time.Time) bool {
	if s == nil || len(s.Days) == 0 {
		return false
	}
	loc, err := e.clock.Location(s.TimeZone)
	if err != nil || loc == nil {
		return false
	}

	local := at.In(loc)
	today := local.Weekday()
	now := local.Hour()*3600 + local.Minute()*60 + local.Second()

	if open, closeAt, err := s.window(today); err == nil && open >= 0 {
		switch {
		case open == closeAt:
			return true
		case open < closeAt:
			if open <= now && now < closeAt {
				return true
			}
		default:
			if now >= open || now < closeAt {
				return true
			}
		}
	}

	// Last night's window may still be running.
	yesterday := (today + 6) % 7
	if open, closeAt, err := s.window(yesterday); err == nil && open >= 0 {
		if open > closeAt && now < closeAt {
			return true
		}
	}
	return false
}
