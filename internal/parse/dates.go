package parse

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

const isoDate = "2006-01-02"

var (
	inDaysRe  = regexp.MustCompile(`^in (\d+) days?`)
	isoDateRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
)

// weekdayNames in resolution order; index is the Monday-based weekday.
var weekdayNames = []string{
	"monday", "tuesday", "wednesday", "thursday",
	"friday", "saturday", "sunday",
}

// DueDate resolves a relative or absolute date phrase into an ISO
// calendar date (YYYY-MM-DD) relative to now. It never fails; input
// that cannot be resolved yields "".
//
// Resolution order, first match wins: keyword table (today, tomorrow,
// "this week" meaning the Friday of the current week, "next week"
// meaning the Monday of the next week), "in N days", a weekday name,
// a literal YYYY-MM-DD, and finally a free-text parse.
func DueDate(input string, now time.Time) string {
	input = strings.ToLower(strings.TrimSpace(input))
	if input == "" {
		return ""
	}

	today := now
	weekday := mondayBased(today.Weekday())

	switch input {
	case "today":
		return today.Format(isoDate)
	case "tomorrow":
		return today.AddDate(0, 0, 1).Format(isoDate)
	case "this week":
		// The Friday of the current week, even when that is in the past.
		return today.AddDate(0, 0, 4-weekday).Format(isoDate)
	case "next week":
		// The Monday of the following week.
		return today.AddDate(0, 0, 7-weekday).Format(isoDate)
	}

	if m := inDaysRe.FindStringSubmatch(input); m != nil {
		days, err := strconv.Atoi(m[1])
		if err == nil {
			return today.AddDate(0, 0, days).Format(isoDate)
		}
	}

	for i, name := range weekdayNames {
		if !strings.Contains(input, name) {
			continue
		}
		ahead := i - weekday
		if ahead <= 0 {
			// That weekday already passed (or is today); roll a week.
			ahead += 7
		}
		return today.AddDate(0, 0, ahead).Format(isoDate)
	}

	if isoDateRe.MatchString(input) {
		return input
	}

	parsed, err := dateparse.ParseLocal(input)
	if err != nil {
		return ""
	}
	return parsed.Format(isoDate)
}

// mondayBased converts Go's Sunday-based weekday to a Monday-based index.
func mondayBased(d time.Weekday) int {
	return (int(d) + 6) % 7
}
