// Package timezone turns local wall-clock dates and times in the operating
// zone into absolute instants without consulting the host's zone settings.
package timezone

import (
	"fmt"
	"time"
	_ "time/tzdata"

	"rallyrent/utils"
)

const (
	DateLayout  = "2006-01-02"
	ClockLayout = "15:04"
)

// Converter resolves local fields in one fixed location.
type Converter struct {
	loc *time.Location
}

func NewConverter(loc *time.Location) *Converter {
	return &Converter{loc: loc}
}

// Load builds a converter for an IANA zone name.
func Load(name string) (*Converter, error) {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", name, err)
	}
	return NewConverter(loc), nil
}

func (c *Converter) Location() *time.Location {
	return c.loc
}

// ParseDate validates a YYYY-MM-DD calendar date.
func ParseDate(date string) (time.Time, error) {
	d, err := time.Parse(DateLayout, date)
	if err != nil {
		return time.Time{}, utils.Validation(utils.CodeInvalidTimeInput, fmt.Sprintf("invalid date %q, expected YYYY-MM-DD", date))
	}
	return d, nil
}

// ParseClock validates an HH:MM (or HH:MM:SS) wall-clock time and returns
// the hour, minute and second.
func ParseClock(clock string) (int, int, int, error) {
	for _, layout := range []string{ClockLayout, "15:04:05"} {
		if t, err := time.Parse(layout, clock); err == nil {
			return t.Hour(), t.Minute(), t.Second(), nil
		}
	}
	return 0, 0, 0, utils.Validation(utils.CodeInvalidTimeInput, fmt.Sprintf("invalid time %q, expected HH:MM", clock))
}

// LocalToInstant resolves date + clock in the operating zone.
//
// The fields are first read as if they were UTC. Formatting that naive
// instant in the zone yields a wall clock whose distance from the requested
// fields is the zone offset; subtracting it gives a candidate. A second pass
// re-derives the offset at the candidate, which is what fixes dates where a
// DST shift sits between the naive instant and the real one.
func (c *Converter) LocalToInstant(date, clock string) (time.Time, error) {
	d, err := ParseDate(date)
	if err != nil {
		return time.Time{}, err
	}
	h, m, s, err := ParseClock(clock)
	if err != nil {
		return time.Time{}, err
	}

	naive := time.Date(d.Year(), d.Month(), d.Day(), h, m, s, 0, time.UTC)

	offset := c.wallOffset(naive)
	candidate := naive.Add(-offset)

	if second := c.wallOffset(candidate); second != offset {
		retry := naive.Add(-second)
		if c.wallMatches(retry, naive) {
			return retry.UTC(), nil
		}
	}
	return candidate.UTC(), nil
}

// wallOffset compares the zone's wall clock at instant with the same
// instant's UTC fields, folding any day rollover into the difference.
func (c *Converter) wallOffset(instant time.Time) time.Duration {
	local := instant.In(c.loc)
	asUTC := time.Date(local.Year(), local.Month(), local.Day(), local.Hour(), local.Minute(), local.Second(), 0, time.UTC)
	return asUTC.Sub(instant.UTC())
}

func (c *Converter) wallMatches(instant, naive time.Time) bool {
	local := instant.In(c.loc)
	return local.Year() == naive.Year() && local.YearDay() == naive.YearDay() &&
		local.Hour() == naive.Hour() && local.Minute() == naive.Minute()
}

// DayOfWeek returns 0 (Sunday) through 6 for a calendar date. A calendar
// date's weekday does not depend on the zone.
func (c *Converter) DayOfWeek(date string) (int, error) {
	d, err := ParseDate(date)
	if err != nil {
		return 0, err
	}
	return int(d.Weekday()), nil
}

// DayBounds returns the instants of local 00:00:00 and 23:59:59 on date.
func (c *Converter) DayBounds(date string) (time.Time, time.Time, error) {
	start, err := c.LocalToInstant(date, "00:00")
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end, err := c.LocalToInstant(date, "23:59:59")
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return start, end, nil
}

// LocalFields formats an instant back into local date and HH:MM.
func (c *Converter) LocalFields(instant time.Time) (string, string) {
	local := instant.In(c.loc)
	return local.Format(DateLayout), local.Format(ClockLayout)
}
