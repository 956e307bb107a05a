// Package certificate holds the field-level normalizers applied to extracted
// certificate records: dates, certificate types, abbreviations, IMO numbers
// and audit category detection.
package certificate

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/rs/zerolog"

	"shipcerts/internal/logger"
)

// DateLayout is the canonical date format of every normalized record.
const DateLayout = "2006-01-02"

var (
	isoDatePattern     = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	numericDatePattern = regexp.MustCompile(`^(\d{1,2})[./-](\d{1,2})[./-](\d{2}|\d{4})$`)
	ordinalPattern     = regexp.MustCompile(`(?i)\b(\d{1,2})(st|nd|rd|th)\b`)
	dayOfPattern       = regexp.MustCompile(`(?i)\bday\s+of\b`)
	monthAbbrevPattern = regexp.MustCompile(`(?i)\b(jan|feb|mar|apr|may|jun|jul|aug|sep|sept|oct|nov|dec)\.`)
	spacePattern       = regexp.MustCompile(`\s+`)
)

// noDateValues are placeholders that mean the certificate carries no date.
var noDateValues = map[string]bool{
	"":     true,
	"-":    true,
	"none": true,
	"n/a":  true,
	"na":   true,
	"null": true,
}

func componentLog() zerolog.Logger {
	return logger.WithComponent("certificate")
}

// NormalizeDate converts a raw date string to YYYY-MM-DD. The second return
// value is false when the input is a no-date placeholder or cannot be parsed;
// unparseable input is logged, never returned as an error.
func NormalizeDate(raw string) (string, bool) {
	value := strings.TrimSpace(raw)
	if noDateValues[strings.ToLower(value)] {
		return "", false
	}

	t, err := parseDate(value)
	if err != nil {
		log := componentLog()
		log.Warn().
			Str("raw", raw).
			Err(err).
			Msg("Could not parse date, leaving it empty")
		return "", false
	}
	return t.Format(DateLayout), true
}

// ParseDate parses a raw date with the same rules as NormalizeDate.
func ParseDate(raw string) (time.Time, bool) {
	value := strings.TrimSpace(raw)
	if noDateValues[strings.ToLower(value)] {
		return time.Time{}, false
	}
	t, err := parseDate(value)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func parseDate(value string) (time.Time, error) {
	if isoDatePattern.MatchString(value) {
		return time.Parse(DateLayout, value)
	}

	if m := numericDatePattern.FindStringSubmatch(value); m != nil {
		return parseDayFirst(m[1], m[2], m[3])
	}

	// "15th day of November 2024" and "15 Nov. 2024" reduce to forms dateparse reads.
	cleaned := ordinalPattern.ReplaceAllString(value, "$1")
	cleaned = dayOfPattern.ReplaceAllString(cleaned, " ")
	cleaned = monthAbbrevPattern.ReplaceAllStringFunc(cleaned, func(m string) string {
		return m[:3]
	})
	cleaned = strings.ReplaceAll(cleaned, " of ", " ")
	cleaned = spacePattern.ReplaceAllString(cleaned, " ")
	cleaned = strings.Trim(cleaned, " .,")

	t, err := dateparse.ParseAny(cleaned,
		dateparse.PreferMonthFirst(false),
		dateparse.RetryAmbiguousDateWithSwap(true),
	)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
}

// parseDayFirst reads dd/mm/yyyy, falling back to mm/dd/yyyy only when the
// second field cannot be a month.
func parseDayFirst(a, b, y string) (time.Time, error) {
	first, _ := strconv.Atoi(a)
	second, _ := strconv.Atoi(b)
	year, _ := strconv.Atoi(y)
	if len(y) == 2 {
		year += 2000
		if year > time.Now().Year()+50 {
			year -= 100
		}
	}

	day, month := first, second
	if second > 12 && first <= 12 {
		day, month = second, first
	}
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, fmt.Errorf("invalid day/month in %s/%s/%s", a, b, y)
	}

	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if t.Day() != day {
		return time.Time{}, fmt.Errorf("day %d out of range for %s %d", day, time.Month(month), year)
	}
	return t, nil
}
