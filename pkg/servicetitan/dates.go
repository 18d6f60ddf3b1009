package servicetitan

import (
	"fmt"
	"strings"
	"time"

	// Embedded zone database so LoadTimezone works on hosts without one.
	_ "time/tzdata"
)

// APITimeLayout is the UTC timestamp format the API accepts in filters.
const APITimeLayout = "2006-01-02T15:04:05Z"

// dateLayouts are tried in order by ParseDate.
var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
	"01/02/2006 15:04:05",
	"01/02/2006 15:04",
	"01/02/2006",
	"Jan 2, 2006",
	"January 2, 2006",
}

// LoadTimezone resolves an IANA zone name. Empty and "UTC" return time.UTC.
func LoadTimezone(name string) (*time.Location, error) {
	name = strings.TrimSpace(name)
	if name == "" || strings.EqualFold(name, "UTC") {
		return time.UTC, nil
	}

	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %w", ErrInvalidTimezone, name, err)
	}

	return loc, nil
}

// ParseDate parses a date or date-time string. Values without an offset are
// returned as wall-clock times in UTC; callers reinterpret them with ToAPITime.
func ParseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)

	for _, layout := range dateLayouts {
		parsed, err := time.Parse(layout, value)
		if err == nil {
			return parsed, nil
		}
	}

	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, value)
}

// ParseAPITime parses value as a wall-clock time in tz (empty = UTC) and
// returns the instant in UTC. Values carrying an explicit offset keep it.
func ParseAPITime(value string, tz string) (time.Time, error) {
	parsed, err := ParseDate(value)
	if err != nil {
		return time.Time{}, err
	}

	if hasOffset(value) {
		return parsed.UTC(), nil
	}

	loc, err := LoadTimezone(tz)
	if err != nil {
		return time.Time{}, err
	}

	return InLocation(parsed, loc).UTC(), nil
}

// ToAPITime interprets the wall clock of t in tz and formats the instant in UTC.
func ToAPITime(t time.Time, tz string) (string, error) {
	loc, err := LoadTimezone(tz)
	if err != nil {
		return "", err
	}

	return FormatAPITime(InLocation(t, loc)), nil
}

// InLocation keeps the wall clock of t and reassigns it to loc.
func InLocation(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}

	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), loc)
}

// FormatAPITime renders an instant in the API's UTC layout.
func FormatAPITime(t time.Time) string {
	return t.UTC().Format(APITimeLayout)
}

func hasOffset(value string) bool {
	_, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(value))

	return err == nil
}
