// Package dates turns the date strings published by regulator sites into UTC instants.
package dates

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

var ErrUnrecognizedFormat = errors.New("unrecognized date format")

var (
	dashedPattern  = regexp.MustCompile(`^(\d{1,2})-(\d{1,2})-(\d{4})$`)
	slashedPattern = regexp.MustCompile(`^(\d{1,2})/([A-Za-z]{3})/(\d{4})$`)
	weekdayPattern = regexp.MustCompile(`^[A-Za-z]+,\s*([A-Za-z]+)\s+(\d{1,2}),\s*(\d{4})$`)
	longPattern    = regexp.MustCompile(`^(\d{1,2})\s+([A-Za-z]+)\s+(\d{4})$`)
)

// Layouts tried by the generic stage, in order.
var genericLayouts = []string{
	time.RFC1123Z,
	time.RFC1123,
	time.RFC3339,
	time.RFC822Z,
	time.RFC822,
	"Mon, 2 Jan 2006 15:04:05 -0700",
	"Mon, 2 Jan 2006 15:04:05 MST",
	"2 Jan 2006 15:04:05 -0700",
	"2 Jan 2006 -0700",
	"2 January 2006 -0700",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

var months = map[string]time.Month{
	"jan": time.January, "january": time.January,
	"feb": time.February, "february": time.February,
	"mar": time.March, "march": time.March,
	"apr": time.April, "april": time.April,
	"may": time.May,
	"jun": time.June, "june": time.June,
	"jul": time.July, "july": time.July,
	"aug": time.August, "august": time.August,
	"sep": time.September, "sept": time.September, "september": time.September,
	"oct": time.October, "october": time.October,
	"nov": time.November, "november": time.November,
	"dec": time.December, "december": time.December,
}

type Normalizer struct {
	loc *time.Location
}

// NewNormalizer returns a Normalizer that reads zone-less dates in loc.
func NewNormalizer(loc *time.Location) *Normalizer {
	if loc == nil {
		loc = time.UTC
	}
	return &Normalizer{loc: loc}
}

// Normalize parses raw and returns the instant in UTC. The returned error
// wraps ErrUnrecognizedFormat when no pattern applies.
func (n *Normalizer) Normalize(raw string) (time.Time, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, fmt.Errorf("%w: empty string", ErrUnrecognizedFormat)
	}

	if m := dashedPattern.FindStringSubmatch(s); m != nil {
		month, _ := strconv.Atoi(m[2])
		return n.build(raw, m[3], time.Month(month), m[1])
	}

	if m := slashedPattern.FindStringSubmatch(s); m != nil {
		month, ok := months[strings.ToLower(m[2])]
		if !ok {
			return time.Time{}, fmt.Errorf("%w: %q", ErrUnrecognizedFormat, raw)
		}
		return n.build(raw, m[3], month, m[1])
	}

	if m := weekdayPattern.FindStringSubmatch(s); m != nil {
		if month, ok := months[strings.ToLower(m[1])]; ok {
			return n.build(raw, m[3], month, m[2])
		}
	}

	if m := longPattern.FindStringSubmatch(s); m != nil {
		if month, ok := months[strings.ToLower(m[2])]; ok {
			return n.build(raw, m[3], month, m[1])
		}
	}

	return n.generic(raw, s)
}

// NormalizeOr returns fallback when raw cannot be parsed.
func (n *Normalizer) NormalizeOr(raw string, fallback time.Time) time.Time {
	t, err := n.Normalize(raw)
	if err != nil {
		return fallback.UTC()
	}
	return t
}

func (n *Normalizer) Location() *time.Location {
	return n.loc
}

func (n *Normalizer) build(raw, year string, month time.Month, day string) (time.Time, error) {
	y, err := strconv.Atoi(year)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrUnrecognizedFormat, raw)
	}
	d, err := strconv.Atoi(day)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrUnrecognizedFormat, raw)
	}
	if month < time.January || month > time.December {
		return time.Time{}, fmt.Errorf("%w: invalid month in %q", ErrUnrecognizedFormat, raw)
	}

	t := time.Date(y, month, d, 0, 0, 0, 0, n.loc)
	// time.Date normalizes overflow, so 31-02 would silently become March.
	if t.Year() != y || t.Month() != month || t.Day() != d {
		return time.Time{}, fmt.Errorf("%w: invalid calendar date %q", ErrUnrecognizedFormat, raw)
	}

	return t.UTC(), nil
}

func (n *Normalizer) generic(raw, s string) (time.Time, error) {
	candidates := []string{s}
	if stripped := strings.Replace(s, ",", "", 1); stripped != s {
		candidates = append(candidates, stripped)
	}

	for _, candidate := range candidates {
		for _, layout := range genericLayouts {
			if t, err := time.ParseInLocation(layout, candidate, n.loc); err == nil {
				return t.UTC(), nil
			}
		}
	}

	for _, candidate := range candidates {
		if t, err := dateparse.ParseIn(candidate, n.loc); err == nil {
			return t.UTC(), nil
		}
	}

	return time.Time{}, fmt.Errorf("%w: %q", ErrUnrecognizedFormat, raw)
}
