// Package deadline evaluates event response deadlines stored as loose
// date/time strings with a per-event time zone.
package deadline

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/meetingday/notifier/internal/domain/common/errorz"
)

// Tier is the graduated reminder bucket of a pending deadline
type Tier int

const (
	TierNone Tier = iota
	TierTwoDays
	TierOneDay
	TierTwoHours
)

func (t Tier) String() string {
	switch t {
	case TierTwoDays:
		return "2-day"
	case TierOneDay:
		return "1-day"
	case TierTwoHours:
		return "2-hour"
	default:
		return "none"
	}
}

// dateLayouts are tried in order when the date is not in DD/MM/YYYY form
var dateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"02-01-2006",
	"02.01.2006",
	"2006-01-02 15:04:05",
	time.RFC3339,
	"January 2, 2006",
	"Jan 2, 2006",
	"2 January 2006",
	"2 Jan 2006",
}

var clockLayouts = []string{
	"15:04",
	"15:04:05",
	"3:04PM",
	"3:04 PM",
	"3:04:05 PM",
	"3PM",
	"3 PM",
}

// Remaining is the time left before a deadline, truncated to whole units
type Remaining struct {
	Hours  int
	Days   int
	Passed bool
}

// LoadLocation returns the named IANA zone, UTC when name is empty
func LoadLocation(name string) (*time.Location, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(name)
}

// Parse builds the deadline instant of an event.
//
// Parameters:
//   - date is DD/MM/YYYY or any of the fallback layouts
//   - clock is the time of day; empty means midnight
//   - zone is the IANA time zone name; empty means UTC
func Parse(date, clock, zone string) (time.Time, error) {
	loc, err := LoadLocation(zone)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: time zone %q: %v", errorz.InvalidDeadline, zone, err)
	}

	year, month, day, err := parseDate(strings.TrimSpace(date), loc)
	if err != nil {
		return time.Time{}, err
	}

	hour, minute, sec, err := parseClock(strings.TrimSpace(clock))
	if err != nil {
		return time.Time{}, err
	}

	return time.Date(year, month, day, hour, minute, sec, 0, loc), nil
}

// Until computes the time left from now to the deadline.
// A deadline equal to now counts as passed.
func Until(deadline, now time.Time) Remaining {
	left := deadline.Sub(now)
	if left <= 0 {
		return Remaining{Passed: true}
	}
	return Remaining{
		Hours: int(left / time.Hour),
		Days:  int(left / (24 * time.Hour)),
	}
}

// Classify maps the time left to a reminder tier
func Classify(r Remaining) Tier {
	switch {
	case r.Passed:
		return TierNone
	case r.Hours < 2:
		return TierTwoHours
	case r.Days < 1:
		return TierOneDay
	case r.Days <= 2:
		return TierTwoDays
	default:
		return TierNone
	}
}

// Evaluate parses the deadline and computes the time left at now
func Evaluate(date, clock, zone string, now time.Time) (time.Time, Remaining, error) {
	at, err := Parse(date, clock, zone)
	if err != nil {
		return time.Time{}, Remaining{}, err
	}
	return at, Until(at, now.In(at.Location())), nil
}

func parseDate(s string, loc *time.Location) (int, time.Month, int, error) {
	if s == "" {
		return 0, 0, 0, fmt.Errorf("%w: empty date", errorz.InvalidDeadline)
	}

	if parts := strings.Split(s, "/"); len(parts) == 3 {
		day, errDay := strconv.Atoi(strings.TrimSpace(parts[0]))
		month, errMonth := strconv.Atoi(strings.TrimSpace(parts[1]))
		year, errYear := strconv.Atoi(strings.TrimSpace(parts[2]))
		if errDay != nil || errMonth != nil || errYear != nil {
			return 0, 0, 0, fmt.Errorf("%w: date %q", errorz.InvalidDeadline, s)
		}
		// time.Date normalizes out-of-range values, so 31/02 would silently become March
		t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, loc)
		if t.Day() != day || int(t.Month()) != month || t.Year() != year {
			return 0, 0, 0, fmt.Errorf("%w: date %q out of range", errorz.InvalidDeadline, s)
		}
		return year, time.Month(month), day, nil
	}

	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			y, m, d := t.In(loc).Date()
			return y, m, d, nil
		}
	}
	return 0, 0, 0, fmt.Errorf("%w: unrecognized date %q", errorz.InvalidDeadline, s)
}

func parseClock(s string) (int, int, int, error) {
	if s == "" {
		return 0, 0, 0, nil
	}
	upper := strings.ToUpper(s)
	for _, layout := range clockLayouts {
		if t, err := time.Parse(layout, upper); err == nil {
			return t.Hour(), t.Minute(), t.Second(), nil
		}
	}
	return 0, 0, 0, fmt.Errorf("%w: unrecognized time %q", errorz.InvalidDeadline, s)
}
