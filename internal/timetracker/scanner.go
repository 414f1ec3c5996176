package timetracker

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// EightHoursSeconds is the enough-hours coverage threshold.
const EightHoursSeconds = 8 * 60 * 60

// scanWindowDays is the trailing window FirstMissingWorklogDate checks.
const scanWindowDays = 7

// GapScanner walks date ranges looking for working days where a user's
// logged time is missing or insufficient. It issues one store query per
// scanned day; a store failure aborts the scan and the partial result is
// discarded.
type GapScanner struct {
	store    WorklogStore
	calendar WorkdayCalendar
	filter   *IssueFilter
	logger   *zap.Logger
	now      func() time.Time
}

// NewGapScanner builds a scanner over the given store and calendar. The
// filter names the issues whose time does not count toward the
// enough-hours check.
func NewGapScanner(store WorklogStore, calendar WorkdayCalendar, filter *IssueFilter, logger *zap.Logger) *GapScanner {
	return &GapScanner{
		store:    store,
		calendar: calendar,
		filter:   filter,
		logger:   logger,
		now:      time.Now,
	}
}

// MissingDates walks [from, to] and collects the working days that fail
// coverage, most recent first. With requireMinHours the day needs at
// least eight logged hours — optionally not counting time on filtered
// issues — while without it a single worklog is enough.
func (g *GapScanner) MissingDates(ctx context.Context, userKey string, from, to time.Time, requireMinHours, excludeNonWorking bool) ([]time.Time, error) {
	var missing []time.Time
	last := startOfDay(to)
	for day := startOfDay(from); !day.After(last); day = day.AddDate(0, 0, 1) {
		if !g.calendar.IsWorkingDay(day) {
			continue
		}
		covered, err := g.covered(ctx, userKey, day, requireMinHours, excludeNonWorking)
		if err != nil {
			return nil, err
		}
		if !covered {
			g.logger.Debug("day missing worklog coverage",
				zap.String("user", userKey),
				zap.String("date", day.Format(DateLayout)),
			)
			missing = append(missing, day)
		}
	}
	for i, j := 0, len(missing)-1; i < j; i, j = i+1, j-1 {
		missing[i], missing[j] = missing[j], missing[i]
	}
	return missing, nil
}

// FirstMissingWorklogDate scans the trailing seven days ending today in
// chronological order and returns the first working day without any
// worklog. When every day is covered or skipped it returns today as the
// caught-up sentinel.
func (g *GapScanner) FirstMissingWorklogDate(ctx context.Context, userKey string) (time.Time, error) {
	day := startOfDay(g.now()).AddDate(0, 0, -scanWindowDays)
	for i := 0; i < scanWindowDays; i++ {
		if g.calendar.IsWorkingDay(day) {
			logs, err := g.store.ByUserAndRange(ctx, userKey, day, day.AddDate(0, 0, 1), nil)
			if err != nil {
				return time.Time{}, fmt.Errorf("%w: worklogs on %s: %v", ErrStore, day.Format(DateLayout), err)
			}
			if len(logs) == 0 {
				return day, nil
			}
		}
		day = day.AddDate(0, 0, 1)
	}
	return day, nil
}

func (g *GapScanner) covered(ctx context.Context, userKey string, day time.Time, requireMinHours, excludeNonWorking bool) (bool, error) {
	logs, err := g.store.ByUserAndRange(ctx, userKey, day, day.AddDate(0, 0, 1), nil)
	if err != nil {
		return false, fmt.Errorf("%w: worklogs on %s: %v", ErrStore, day.Format(DateLayout), err)
	}
	if len(logs) == 0 {
		return false, nil
	}
	if !requireMinHours {
		return true, nil
	}
	var total int64
	for _, w := range logs {
		if excludeNonWorking && g.filter.Matches(w.IssueKey) {
			continue
		}
		total += w.DurationSeconds
	}
	return total >= EightHoursSeconds, nil
}
