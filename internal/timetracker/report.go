package timetracker

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/SharXeniX/jira-timetracker-plugin/pkg/types"
)

// DefaultDayStart is the end time reported for a day without worklogs.
const DefaultDayStart = "08:00"

// Report is the full result of one table report request.
type Report struct {
	Worklogs []types.Worklog
	Summary  *SummaryTable
}

// ReportBuilder loads worklogs and builds the day/week/month summaries
// the report table renders. Repeat queries for the same user and range
// come from the report cache until a mutation invalidates it.
type ReportBuilder struct {
	store     WorklogStore
	perms     PermissionService
	formatter DurationFormatter
	cache     *ReportCache
	logger    *zap.Logger
}

// NewReportBuilder wires the builder to its collaborators.
func NewReportBuilder(store WorklogStore, perms PermissionService, formatter DurationFormatter, cache *ReportCache, logger *zap.Logger) *ReportBuilder {
	return &ReportBuilder{store: store, perms: perms, formatter: formatter, cache: cache, logger: logger}
}

// Worklogs returns the user's worklogs in [from, to] ordered by date.
// An empty userKey means the requester themselves. Asking about someone
// else needs browse-users permission and scopes the query to the
// projects the requester can see; without the permission the report
// falls back to the requester's own worklogs.
func (b *ReportBuilder) Worklogs(ctx context.Context, requesterKey, userKey string, from, to time.Time) ([]types.Worklog, error) {
	if err := ValidateRange(from, to); err != nil {
		return nil, err
	}
	target := userKey
	if target == "" {
		target = requesterKey
	}
	var projects []string
	if target != requesterKey {
		ok, err := b.perms.CanBrowseUsers(ctx, requesterKey)
		if err != nil {
			return nil, fmt.Errorf("%w: browse users permission: %v", ErrStore, err)
		}
		if !ok {
			target = requesterKey
		} else {
			projects, err = b.perms.VisibleProjects(ctx, requesterKey)
			if err != nil {
				return nil, fmt.Errorf("%w: visible projects: %v", ErrStore, err)
			}
		}
	}
	start := startOfDay(from)
	end := startOfDay(to).AddDate(0, 0, 1)
	if logs, ok := b.cache.Get(target, start, end); ok {
		return logs, nil
	}
	logs, err := b.store.ByUserAndRange(ctx, target, start, end, projects)
	if err != nil {
		return nil, fmt.Errorf("%w: query worklogs: %v", ErrStore, err)
	}
	sort.Slice(logs, func(i, j int) bool {
		if !logs[i].Date.Equal(logs[j].Date) {
			return logs[i].Date.Before(logs[j].Date)
		}
		return logs[i].Start.Before(logs[j].Start)
	})
	b.cache.Put(target, start, end, logs)
	return logs, nil
}

// Build runs the full report: the date ordered worklog list plus all six
// summary maps.
func (b *ReportBuilder) Build(ctx context.Context, requesterKey, userKey string, from, to time.Time, filter *IssueFilter) (*Report, error) {
	logs, err := b.Worklogs(ctx, requesterKey, userKey, from, to)
	if err != nil {
		return nil, err
	}
	table := NewSummaryTable(filter, b.formatter)
	for _, w := range logs {
		table.Consume(w)
	}
	return &Report{Worklogs: logs, Summary: table}, nil
}

// Summary totals the user's worklogs in the range, leaving out time on
// issues matching the patterns, and returns the formatted duration.
func (b *ReportBuilder) Summary(ctx context.Context, userKey string, from, to time.Time, filter *IssueFilter) (string, error) {
	if err := ValidateRange(from, to); err != nil {
		return "", err
	}
	logs, err := b.store.ByUserAndRange(ctx, userKey, startOfDay(from), startOfDay(to).AddDate(0, 0, 1), nil)
	if err != nil {
		return "", fmt.Errorf("%w: query worklogs: %v", ErrStore, err)
	}
	var total int64
	for _, w := range logs {
		if filter.Matches(w.IssueKey) {
			continue
		}
		total += w.DurationSeconds
	}
	return b.formatter.ExactDuration(total), nil
}

// LoggedDaysOfMonth lists the day numbers of the given month the user
// logged any time on.
func (b *ReportBuilder) LoggedDaysOfMonth(ctx context.Context, userKey string, month time.Time) ([]int, error) {
	first := time.Date(month.Year(), month.Month(), 1, 0, 0, 0, 0, month.Location())
	var days []int
	for day := first; day.Month() == first.Month(); day = day.AddDate(0, 0, 1) {
		logs, err := b.store.ByUserAndRange(ctx, userKey, day, day.AddDate(0, 0, 1), nil)
		if err != nil {
			return nil, fmt.Errorf("%w: worklogs on %s: %v", ErrStore, day.Format(DateLayout), err)
		}
		if len(logs) > 0 {
			days = append(days, day.Day())
		}
	}
	return days, nil
}

// LastEndTime returns the "HH:MM" end of the latest worklog in the
// list, or the default workday start for an empty list.
func LastEndTime(worklogs []types.Worklog) string {
	if len(worklogs) == 0 {
		return DefaultDayStart
	}
	latest := worklogs[0].End()
	for _, w := range worklogs[1:] {
		if end := w.End(); end.After(latest) {
			latest = end
		}
	}
	return latest.Format("15:04")
}

// ValidateRange enforces that the range runs forward and spans at most
// one year.
func ValidateRange(from, to time.Time) error {
	if from.After(to) {
		return fmt.Errorf("%w: plugin.wrong.dates", ErrValidation)
	}
	if from.Before(to.AddDate(-1, 0, 0)) {
		return fmt.Errorf("%w: plugin.exceeded.year", ErrValidation)
	}
	return nil
}
