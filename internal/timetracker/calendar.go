package timetracker

import (
	"sort"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the string form used for calendar exception matching and
// everywhere a plain date crosses an API boundary.
const DateLayout = "2006-01-02"

// WorkdayCalendar classifies dates as working or non-working. Exclude
// dates are forced non-working and win over everything else; include
// dates are forced working and win over weekend detection.
type WorkdayCalendar struct {
	exclude map[string]struct{}
	include map[string]struct{}
}

// NewWorkdayCalendar builds a calendar from explicit exception date
// lists in YYYY-MM-DD form.
func NewWorkdayCalendar(excludeDates, includeDates []string) WorkdayCalendar {
	return WorkdayCalendar{
		exclude: dateSet(excludeDates),
		include: dateSet(includeDates),
	}
}

// NewWorkdayCalendarFromCSV builds a calendar from the comma separated
// settings form, dropping empty entries.
func NewWorkdayCalendarFromCSV(excludeCSV, includeCSV string) WorkdayCalendar {
	return NewWorkdayCalendar(SplitCSV(excludeCSV), SplitCSV(includeCSV))
}

// IsWorkingDay applies the rule chain: excluded dates are never working
// days, included dates always are, everything else is a working day
// unless it falls on a weekend.
func (c WorkdayCalendar) IsWorkingDay(t time.Time) bool {
	day := t.Format(DateLayout)
	if _, ok := c.exclude[day]; ok {
		return false
	}
	if _, ok := c.include[day]; ok {
		return true
	}
	wd := t.Weekday()
	return wd != time.Saturday && wd != time.Sunday
}

// ExcludedDaysOfMonth returns the day numbers of the exclude dates that
// fall in the given YYYY-MM month. A full date is accepted too; only its
// month prefix is used.
func (c WorkdayCalendar) ExcludedDaysOfMonth(month string) []int {
	if len(month) > 7 {
		month = month[:7]
	}
	var days []int
	for d := range c.exclude {
		if !strings.HasPrefix(d, month) {
			continue
		}
		if n, err := strconv.Atoi(d[len(d)-2:]); err == nil {
			days = append(days, n)
		}
	}
	sort.Ints(days)
	return days
}

// SplitCSV splits a comma separated settings value, trimming whitespace
// and dropping empty entries.
func SplitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func dateSet(dates []string) map[string]struct{} {
	set := make(map[string]struct{}, len(dates))
	for _, d := range dates {
		if d = strings.TrimSpace(d); d != "" {
			set[d] = struct{}{}
		}
	}
	return set
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
