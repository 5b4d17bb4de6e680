// Package schedule evaluates weekly operating hours against a clock.
package schedule

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

const secondsPerDay = 24 * 60 * 60

// Hours is one day's opening window as wall-clock strings.
type Hours struct {
	Open  string `json:"open"`
	Close string `json:"close"`
}

// Schedule maps weekdays to opening windows. A missing day is closed.
type Schedule struct {
	TimeZone string
	Days     map[time.Weekday]Hours
}

// ParseError reports a malformed time on a single day of a schedule.
type ParseError struct {
	Day   time.Weekday
	Field string
	Value string
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("schedule %s %s %q: %v", strings.ToLower(e.Day.String()), e.Field, e.Value, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

var dayNames = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"sun":       time.Sunday,
	"monday":    time.Monday,
	"mon":       time.Monday,
	"tuesday":   time.Tuesday,
	"tue":       time.Tuesday,
	"tues":      time.Tuesday,
	"wednesday": time.Wednesday,
	"wed":       time.Wednesday,
	"thursday":  time.Thursday,
	"thu":       time.Thursday,
	"thurs":     time.Thursday,
	"friday":    time.Friday,
	"fri":       time.Friday,
	"saturday":  time.Saturday,
	"sat":       time.Saturday,
}

// UnmarshalJSON accepts {"timezone": "...", "monday": {"open": "...", "close": "..."}, ...}.
// Unknown keys are ignored and null days are treated as closed. Malformed
// values never fail the decode: a bad day keeps its raw text so Validate
// reports it, and a non-string zone is kept as text that will not resolve.
func (s *Schedule) UnmarshalJSON(data []byte) error {
	out := Schedule{Days: map[time.Weekday]Hours{}}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		*s = out
		return nil
	}

	for key, value := range raw {
		name := strings.ToLower(strings.TrimSpace(key))
		if name == "timezone" || name == "tz" {
			out.TimeZone = strings.TrimSpace(rawText(value))
			continue
		}
		day, ok := dayNames[name]
		if !ok {
			continue
		}
		if isNull(value) {
			continue
		}
		out.Days[day] = decodeHours(value)
	}
	*s = out
	return nil
}

func decodeHours(value json.RawMessage) Hours {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(value, &fields); err != nil {
		text := rawText(value)
		return Hours{Open: text, Close: text}
	}
	return Hours{Open: rawText(fields["open"]), Close: rawText(fields["close"])}
}

// rawText returns a JSON string's value, or the raw JSON for anything else.
func rawText(value json.RawMessage) string {
	var text string
	if err := json.Unmarshal(value, &text); err == nil {
		return text
	}
	return string(bytes.TrimSpace(value))
}

func isNull(value json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(value), []byte("null"))
}

// MarshalJSON writes the same shape UnmarshalJSON reads.
func (s Schedule) MarshalJSON() ([]byte, error) {
	out := map[string]any{}
	if s.TimeZone != "" {
		out["timezone"] = s.TimeZone
	}
	for day, hours := range s.Days {
		out[strings.ToLower(day.String())] = hours
	}
	return json.Marshal(out)
}

// Validate returns a ParseError for every malformed open or close time, in weekday order.
func (s *Schedule) Validate() []error {
	if s == nil {
		return nil
	}
	days := make([]time.Weekday, 0, len(s.Days))
	for day := range s.Days {
		days = append(days, day)
	}
	sort.Slice(days, func(i, j int) bool { return days[i] < days[j] })

	var errs []error
	for _, day := range days {
		if _, _, err := s.window(day); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

// window returns the parsed open and close seconds for a day, or -1, -1 when the day has no entry.
func (s *Schedule) window(day time.Weekday) (int, int, error) {
	hours, ok := s.Days[day]
	if !ok {
		return -1, -1, nil
	}
	open, err := ParseClock(hours.Open)
	if err != nil {
		return -1, -1, &ParseError{Day: day, Field: "open", Value: hours.Open, Err: err}
	}
	closeAt, err := ParseClock(hours.Close)
	if err != nil {
		return -1, -1, &ParseError{Day: day, Field: "close", Value: hours.Close, Err: err}
	}
	return open, closeAt, nil
}

// ParseClock parses H:MM, HH:MM or HH:MM:SS into seconds since midnight.
// 24:00 is accepted as the end of the day.
func ParseClock(input string) (int, error) {
	parts := strings.Split(strings.TrimSpace(input), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("invalid time %q (expected HH:MM or HH:MM:SS)", input)
	}

	values := make([]int, 3)
	limits := []int{24, 59, 59}
	for i, part := range parts {
		if part == "" || len(part) > 2 || (i > 0 && len(part) != 2) {
			return 0, fmt.Errorf("invalid time %q", input)
		}
		if strings.TrimLeft(part, "0123456789") != "" {
			return 0, fmt.Errorf("invalid time %q", input)
		}
		n, err := strconv.Atoi(part)
		if err != nil || n > limits[i] {
			return 0, fmt.Errorf("invalid time %q", input)
		}
		values[i] = n
	}

	seconds := values[0]*3600 + values[1]*60 + values[2]
	if seconds > secondsPerDay {
		return 0, fmt.Errorf("invalid time %q", input)
	}
	return seconds, nil
}
